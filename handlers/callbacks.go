package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// adminPrefixes are the callback families gated behind is_admin.
var adminPrefixes = map[string]bool{
	"admin_menu": true, "admin_stats": true, "admin_sales": true, "refund": true,
	"admin_lessons": true, "admin_lesson": true, "admin_lesson_new": true,
	"admin_lesson_edit": true, "admin_lesson_toggle": true,
	"admin_lesson_delete": true, "admin_lesson_delete_force": true,
	"admin_categories": true, "admin_category_edit": true, "admin_category_delete": true,
	"admin_texts": true, "admin_texts_cat": true, "admin_text_edit": true, "admin_text_delete": true,
	"admin_tickets": true, "ticket": true, "respond": true, "assign": true,
	"close": true, "reopen": true,
	"admin_broadcasts": true, "broadcast_new": true, "broadcast_audience": true,
	"confirm_broadcast": true, "broadcast_cancel": true, "broadcast_delete": true,
	"admin_withdrawals": true, "withdrawal_new": true, "withdrawal_confirm": true,
	"withdrawal_cancel": true, "withdrawal_process": true,
}

func (h *Handler) OnCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	cb := update.CallbackQuery

	// Answer first so the client spinner clears even for unknown data.
	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID}); err != nil {
		h.log.Debug("answering callback failed", zap.Error(err))
	}

	req, err := h.newRequest(ctx, &cb.From)
	if err != nil {
		h.log.Error("request setup failed", zap.Int64("user", cb.From.ID), zap.Error(err))
		return
	}
	log := h.log.With(zap.String("trace", req.trace), zap.Int64("user", req.user.ID),
		zap.String("callback", cb.Data))

	parts := strings.Split(cb.Data, ":")
	if adminPrefixes[parts[0]] && !req.isAdmin {
		h.replyAccessDenied(ctx, req)
		return
	}

	switch parts[0] {
	case "menu":
		_ = h.states.Clear(ctx, req.user.ID)
		h.sendWelcome(ctx, req)
	case "cancel":
		_ = h.states.Clear(ctx, req.user.ID)
		h.sendText(ctx, req, h.texts.GetOr(ctx, "cancelled", req.lang(), "Действие отменено."),
			h.mainMenuKeyboard(ctx, req))
	case "lang_menu":
		h.showLanguagePicker(ctx, req)
	case "lang":
		if len(parts) > 1 {
			h.onLanguagePick(ctx, req, parts[1])
		}
	case "catalog":
		h.onCatalogCallback(ctx, req, parts[1:])
	case "lesson":
		if id, ok := argInt(parts, 1); ok {
			h.showLesson(ctx, req, id)
		}
	case "buy_lesson":
		if id, ok := argInt(parts, 1); ok {
			h.onBuyLesson(ctx, req, id)
		}
	case "pay":
		if id, ok := argInt(parts, 1); ok {
			h.onPay(ctx, req, id)
		}
	case "open_lesson":
		if id, ok := argInt(parts, 1); ok {
			h.onOpenLesson(ctx, req, id)
		}
	case "my_lessons":
		h.showMyLessons(ctx, req)
	case "support_new":
		h.startSupportFlow(ctx, req)
	case "ticket_reply":
		if id, ok := argInt(parts, 1); ok {
			h.startTicketReply(ctx, req, id)
		}

	case "admin_menu":
		h.showAdminMenu(ctx, req)
	case "admin_stats":
		h.showAdminStats(ctx, req)
	case "admin_sales":
		h.showAdminSales(ctx, req)
	case "refund":
		if id, ok := argInt(parts, 1); ok {
			h.onPurchaseRefund(ctx, req, id)
		}

	case "admin_lessons":
		page := 1
		if p, ok := argInt(parts, 1); ok {
			page = p
		}
		h.showAdminLessons(ctx, req, page)
	case "admin_lesson":
		if id, ok := argInt(parts, 1); ok {
			h.showAdminLesson(ctx, req, id)
		}
	case "admin_lesson_new":
		h.startLessonCreate(ctx, req)
	case "admin_lesson_edit":
		if id, ok := argInt(parts, 1); ok && len(parts) > 2 {
			h.startLessonEdit(ctx, req, id, parts[2])
		}
	case "admin_lesson_toggle":
		if id, ok := argInt(parts, 1); ok {
			h.onLessonToggle(ctx, req, id)
		}
	case "admin_lesson_delete":
		if id, ok := argInt(parts, 1); ok {
			h.onLessonDelete(ctx, req, id, false)
		}
	case "admin_lesson_delete_force":
		if id, ok := argInt(parts, 1); ok {
			h.onLessonDelete(ctx, req, id, true)
		}
	case "admin_categories":
		h.showAdminCategories(ctx, req)
	case "admin_category_edit":
		if id, ok := argInt(parts, 1); ok {
			h.startCategoryEdit(ctx, req, id)
		}
	case "admin_category_delete":
		if id, ok := argInt(parts, 1); ok {
			h.onCategoryDelete(ctx, req, id)
		}

	case "admin_texts":
		h.showAdminTexts(ctx, req)
	case "admin_texts_cat":
		if len(parts) > 1 {
			h.showAdminTextCategory(ctx, req, parts[1])
		}
	case "admin_text_edit":
		if len(parts) > 2 {
			h.startTextEdit(ctx, req, parts[1], parts[2])
		}
	case "admin_text_delete":
		if len(parts) > 1 {
			h.onTextDelete(ctx, req, parts[1])
		}

	case "admin_tickets":
		h.showAdminTickets(ctx, req)
	case "ticket":
		if id, ok := argInt(parts, 1); ok {
			h.showAdminTicket(ctx, req, id)
		}
	case "respond":
		if id, ok := argInt(parts, 1); ok {
			h.startTicketResponse(ctx, req, id)
		}
	case "assign":
		if id, ok := argInt(parts, 1); ok {
			h.onTicketAssign(ctx, req, id)
		}
	case "close":
		if id, ok := argInt(parts, 1); ok {
			h.onTicketClose(ctx, req, id)
		}
	case "reopen":
		if id, ok := argInt(parts, 1); ok {
			h.onTicketReopen(ctx, req, id)
		}

	case "admin_broadcasts":
		h.showAdminBroadcasts(ctx, req)
	case "broadcast_new":
		h.startBroadcastCompose(ctx, req)
	case "broadcast_audience":
		if len(parts) > 1 {
			h.onBroadcastAudience(ctx, req, parts[1])
		}
	case "confirm_broadcast":
		if id, ok := argInt(parts, 1); ok && len(parts) > 2 {
			h.onBroadcastConfirm(ctx, req, id, parts[2])
		}
	case "broadcast_cancel":
		if id, ok := argInt(parts, 1); ok {
			h.onBroadcastCancel(ctx, req, id)
		}
	case "broadcast_delete":
		if id, ok := argInt(parts, 1); ok {
			h.onBroadcastDelete(ctx, req, id)
		}

	case "admin_withdrawals":
		h.showAdminWithdrawals(ctx, req)
	case "withdrawal_new":
		h.startWithdrawalCreate(ctx, req)
	case "withdrawal_confirm":
		h.onWithdrawalConfirm(ctx, req)
	case "withdrawal_cancel":
		if id, ok := argInt(parts, 1); ok {
			h.onWithdrawalCancel(ctx, req, id)
		}
	case "withdrawal_process":
		if id, ok := argInt(parts, 1); ok {
			h.onWithdrawalProcess(ctx, req, id)
		}

	default:
		// Unknown data: the query is already answered, nothing else to do.
		log.Debug("unknown callback")
	}
}

func argInt(parts []string, i int) (int, bool) {
	if len(parts) <= i {
		return 0, false
	}
	n, err := strconv.Atoi(parts[i])
	if err != nil {
		return 0, false
	}
	return n, true
}
