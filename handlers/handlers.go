// Package handlers demultiplexes inbound platform events. Ordering
// contract: successful-payment first, then commands, then state-bound
// flow handlers, and the unknown-message fallback only when no
// conversation state is active.
package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"lessonbot/broadcast"
	"lessonbot/catalog"
	"lessonbot/config"
	"lessonbot/database"
	"lessonbot/errs"
	"lessonbot/fsm"
	"lessonbot/identity"
	"lessonbot/payments"
	"lessonbot/support"
	"lessonbot/telegram"
	"lessonbot/texts"
	"lessonbot/withdrawal"
)

type Handler struct {
	bot    *bot.Bot
	cfg    *config.Config
	egress *telegram.Client
	states fsm.Store
	log    *zap.Logger

	identity    *identity.Service
	catalog     *catalog.Service
	texts       *texts.Service
	payments    *payments.Service
	support     *support.Service
	broadcasts  *broadcast.Service
	withdrawals *withdrawal.Service
	provider    withdrawal.Provider
	stats       Stats
}

type Deps struct {
	Bot    *bot.Bot
	Cfg    *config.Config
	Egress *telegram.Client
	States fsm.Store
	Log    *zap.Logger

	Identity    *identity.Service
	Catalog     *catalog.Service
	Texts       *texts.Service
	Payments    *payments.Service
	Support     *support.Service
	Broadcasts  *broadcast.Service
	Withdrawals *withdrawal.Service
	Provider    withdrawal.Provider
	Stats       Stats
}

func New(d Deps) *Handler {
	return &Handler{
		bot:         d.Bot,
		cfg:         d.Cfg,
		egress:      d.Egress,
		states:      d.States,
		log:         d.Log,
		identity:    d.Identity,
		catalog:     d.Catalog,
		texts:       d.Texts,
		payments:    d.Payments,
		support:     d.Support,
		broadcasts:  d.Broadcasts,
		withdrawals: d.Withdrawals,
		provider:    d.Provider,
		stats:       d.Stats,
	}
}

// request is the per-event context: the touched user record plus the
// admin flag, both loaded once per inbound event.
type request struct {
	user    *database.User
	isAdmin bool
	trace   string
}

func (r *request) lang() string {
	if r.user != nil {
		return r.user.Language
	}
	return "ru"
}

func (h *Handler) newRequest(ctx context.Context, from *models.User) (*request, error) {
	fullName := from.FirstName
	if from.LastName != "" {
		fullName += " " + from.LastName
	}
	user, err := h.identity.GetOrCreate(ctx, from.ID, from.Username, fullName)
	if err != nil {
		return nil, err
	}
	isAdmin, err := h.identity.IsAdmin(ctx, from.ID)
	if err != nil {
		return nil, err
	}
	return &request{user: user, isAdmin: isAdmin, trace: uuid.NewString()}, nil
}

func (h *Handler) OnMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message
	if msg.Chat.Type != "private" {
		return
	}

	req, err := h.newRequest(ctx, msg.From)
	if err != nil {
		h.log.Error("request setup failed", zap.Int64("user", msg.From.ID), zap.Error(err))
		return
	}
	log := h.log.With(zap.String("trace", req.trace), zap.Int64("user", req.user.ID))

	// Payment events bypass the FSM entirely.
	if msg.SuccessfulPayment != nil {
		h.onSuccessfulPayment(ctx, log, req, msg)
		return
	}

	if strings.HasPrefix(msg.Text, "/") {
		h.onCommand(ctx, log, req, msg)
		return
	}

	// State-bound handlers come before any fallback.
	state, err := h.states.Get(ctx, req.user.ID)
	if err != nil {
		log.Error("state load failed", zap.Error(err))
		h.replyError(ctx, req, err)
		return
	}
	if state != nil {
		h.onStateMessage(ctx, log, req, state, msg)
		return
	}

	h.sendText(ctx, req, h.texts.GetOr(ctx, "unknown_input", req.lang(),
		"Не понимаю. Используйте меню или /start."), h.mainMenuKeyboard(ctx, req))
}

func (h *Handler) onCommand(ctx context.Context, log *zap.Logger, req *request, msg *models.Message) {
	cmd := msg.Text
	if i := strings.IndexAny(cmd, " @"); i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/start":
		// a fresh /start always resets any half-finished flow
		_ = h.states.Clear(ctx, req.user.ID)
		h.sendWelcome(ctx, req)
	case "/catalog":
		h.showCatalog(ctx, req, 1)
	case "/language":
		h.showLanguagePicker(ctx, req)
	case "/support":
		h.startSupportFlow(ctx, req)
	case "/cancel":
		_ = h.states.Clear(ctx, req.user.ID)
		h.sendText(ctx, req, h.texts.GetOr(ctx, "cancelled", req.lang(), "Действие отменено."),
			h.mainMenuKeyboard(ctx, req))
	case "/testpay":
		h.onTestPay(ctx, req, msg)
	case "/admin":
		if !req.isAdmin {
			h.replyAccessDenied(ctx, req)
			return
		}
		_ = h.identity.TouchAdminLogin(ctx, req.user.ID)
		h.showAdminMenu(ctx, req)
	default:
		log.Debug("unknown command", zap.String("command", cmd))
		h.sendText(ctx, req, h.texts.GetOr(ctx, "unknown_input", req.lang(),
			"Не понимаю. Используйте меню или /start."), nil)
	}
}

// onStateMessage routes a plain message into the active flow. Input
// that the flow cannot use gets a state-specific re-prompt, never the
// generic fallback.
func (h *Handler) onStateMessage(ctx context.Context, log *zap.Logger, req *request, state *fsm.State, msg *models.Message) {
	switch state.Tag {
	case fsm.UserContactingSupport:
		h.onSupportMessage(ctx, req, state, msg)
	case fsm.AdminCreatingLesson:
		h.guardAdminState(ctx, req, func() { h.onLessonCreateStep(ctx, req, state, msg) })
	case fsm.AdminEditingLesson:
		h.guardAdminState(ctx, req, func() { h.onLessonEditInput(ctx, req, state, msg) })
	case fsm.AdminEditingCategory:
		h.guardAdminState(ctx, req, func() { h.onCategoryEditInput(ctx, req, state, msg) })
	case fsm.AdminComposingBroadcast:
		h.guardAdminState(ctx, req, func() { h.onBroadcastComposeStep(ctx, req, state, msg) })
	case fsm.AdminEditingText:
		h.guardAdminState(ctx, req, func() { h.onTextEditInput(ctx, req, state, msg) })
	case fsm.AdminCreatingWithdrawal:
		h.guardAdminState(ctx, req, func() { h.onWithdrawalCreateStep(ctx, req, state, msg) })
	case fsm.AdminRespondingTicket:
		h.guardAdminState(ctx, req, func() { h.onTicketResponseInput(ctx, req, state, msg) })
	default:
		log.Warn("unknown conversation state", zap.String("tag", string(state.Tag)))
		_ = h.states.Clear(ctx, req.user.ID)
		h.sendWelcome(ctx, req)
	}
}

// guardAdminState protects admin flows against the admin flag being
// revoked mid-conversation.
func (h *Handler) guardAdminState(ctx context.Context, req *request, fn func()) {
	if !req.isAdmin {
		_ = h.states.Clear(ctx, req.user.ID)
		h.replyAccessDenied(ctx, req)
		return
	}
	fn()
}

func (h *Handler) OnPreCheckout(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.PreCheckoutQuery == nil {
		return
	}
	q := update.PreCheckoutQuery

	err := h.payments.PreCheckout(ctx, q.From.ID, q.InvoicePayload, q.TotalAmount)
	params := &bot.AnswerPreCheckoutQueryParams{PreCheckoutQueryID: q.ID, OK: err == nil}
	if err != nil {
		if msg := errs.Message(err); msg != "" {
			params.ErrorMessage = msg
		} else {
			params.ErrorMessage = "Payment cannot be processed right now."
		}
		h.log.Info("pre-checkout rejected",
			zap.Int64("user", q.From.ID), zap.String("payload", q.InvoicePayload), zap.Error(err))
	}
	if _, aerr := b.AnswerPreCheckoutQuery(ctx, params); aerr != nil {
		h.log.Error("answering pre-checkout failed", zap.Int64("user", q.From.ID), zap.Error(aerr))
	}
}

func (h *Handler) OnChatJoinRequest(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.ChatJoinRequest == nil {
		return
	}
	jr := update.ChatJoinRequest
	if err := h.egress.ApproveChatJoin(ctx, jr.Chat.ID, jr.From.ID); err != nil {
		h.log.Warn("approving chat join failed",
			zap.Int64("chat", jr.Chat.ID), zap.Int64("user", jr.From.ID), zap.Error(err))
	}
}

// --- shared replies ---

func (h *Handler) sendText(ctx context.Context, req *request, text string, markup models.ReplyMarkup) {
	if err := h.egress.SendText(ctx, req.user.ID, text, markup); err != nil {
		h.log.Warn("send failed", zap.Int64("user", req.user.ID),
			zap.String("class", telegram.Classify(err).String()), zap.Error(err))
	}
}

func (h *Handler) replyAccessDenied(ctx context.Context, req *request) {
	h.sendText(ctx, req, h.texts.GetOr(ctx, "access_denied", req.lang(), "⛔ Доступ запрещён."), nil)
}

// replyError maps a service error onto a localized user-facing message.
// Validation errors keep the conversation state; NotFound clears it.
func (h *Handler) replyError(ctx context.Context, req *request, err error) {
	lang := req.lang()
	switch errs.KindOf(err) {
	case errs.Validation, errs.Conflict:
		msg := errs.Message(err)
		if msg == "" {
			msg = h.texts.GetOr(ctx, "error_generic", lang, "❌ Ошибка. Попробуйте позже.")
		}
		h.sendText(ctx, req, msg, nil)
	case errs.NotFound:
		_ = h.states.Clear(ctx, req.user.ID)
		h.sendText(ctx, req, h.texts.GetOr(ctx, "error_not_found", lang, "Не найдено."), nil)
	case errs.Entitlement:
		h.replyAccessDenied(ctx, req)
	default:
		h.log.Error("handler error", zap.String("trace", req.trace),
			zap.Int64("user", req.user.ID), zap.Error(err))
		h.sendText(ctx, req, h.texts.GetOr(ctx, "error_generic", lang, "❌ Ошибка. Попробуйте позже."), nil)
	}
}
