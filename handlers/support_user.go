package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"lessonbot/database"
	"lessonbot/fsm"
	"lessonbot/telegram"
)

func (h *Handler) startSupportFlow(ctx context.Context, req *request) {
	if err := h.states.Set(ctx, req.user.ID, fsm.UserContactingSupport, nil); err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.sendText(ctx, req, h.texts.GetOr(ctx, "support_prompt", req.lang(),
		"✍️ Опишите вашу проблему одним сообщением."), h.cancelKeyboard(ctx, req.lang()))
}

// startTicketReply re-enters the support flow bound to an existing
// ticket so the user's next message threads onto it.
func (h *Handler) startTicketReply(ctx context.Context, req *request, ticketID int) {
	ticket, err := h.support.Get(ctx, ticketID)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	if ticket.UserID != req.user.ID {
		h.replyAccessDenied(ctx, req)
		return
	}
	if ticket.Status == database.TicketClosed {
		h.sendText(ctx, req, fmt.Sprintf("Обращение %s закрыто. Создайте новое:", ticket.TicketNumber),
			rows(row(btn("🆘 Написать в поддержку", "support_new"))))
		return
	}
	if err := h.states.Set(ctx, req.user.ID, fsm.UserContactingSupport,
		fsm.Payload{"ticket_id": strconv.Itoa(ticketID)}); err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.sendText(ctx, req, fmt.Sprintf("✍️ Ваше сообщение по %s:", ticket.TicketNumber),
		h.cancelKeyboard(ctx, req.lang()))
}

// onSupportMessage turns the user's message into a ticket, or threads
// it onto the ticket the flow was entered from. Notification failures
// never fail the write.
func (h *Handler) onSupportMessage(ctx context.Context, req *request, state *fsm.State, msg *models.Message) {
	if msg.Text == "" {
		h.sendText(ctx, req, h.texts.GetOr(ctx, "support_prompt", req.lang(),
			"✍️ Опишите вашу проблему одним сообщением."), h.cancelKeyboard(ctx, req.lang()))
		return
	}

	if raw, ok := state.Payload["ticket_id"]; ok {
		ticketID, _ := strconv.Atoi(raw)
		h.onTicketUserReply(ctx, req, ticketID, msg.Text)
		return
	}

	ticket, err := h.support.CreateTicket(ctx, req.user.ID, "", msg.Text, database.PriorityNormal)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	_ = h.states.Clear(ctx, req.user.ID)

	confirmation := fmt.Sprintf(h.texts.GetOr(ctx, "support_created", req.lang(),
		"✅ Обращение %s создано. Мы ответим вам здесь."), ticket.TicketNumber)
	h.sendText(ctx, req, confirmation, h.mainMenuKeyboard(ctx, req))

	h.notifyAdminsNewTicket(ctx, req, ticket)
}

// onTicketUserReply threads the message onto the user's ticket and
// notifies the assigned admin, or every admin while unassigned.
func (h *Handler) onTicketUserReply(ctx context.Context, req *request, ticketID int, text string) {
	_, ticket, err := h.support.AddUserResponse(ctx, ticketID, req.user.ID, text)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	_ = h.states.Clear(ctx, req.user.ID)

	h.sendText(ctx, req, fmt.Sprintf(h.texts.GetOr(ctx, "support_reply_sent", req.lang(),
		"✅ Сообщение добавлено к %s."), ticket.TicketNumber), h.mainMenuKeyboard(ctx, req))

	notice := fmt.Sprintf("💬 Ответ пользователя по <b>%s</b>:\n\n%s", ticket.TicketNumber, text)
	markup := rows(row(btn("Открыть", fmt.Sprintf("ticket:%d", ticket.ID))))

	targets := []int64{}
	if ticket.AssignedAdmin != nil {
		targets = append(targets, *ticket.AssignedAdmin)
	} else {
		admins, err := h.identity.ActiveAdmins(ctx)
		if err != nil {
			h.log.Error("loading admins for reply notification", zap.Error(err))
			return
		}
		targets = admins
	}
	for _, adminID := range targets {
		if err := h.egress.SendText(ctx, adminID, notice, markup); err != nil {
			h.log.Warn("reply notification failed", zap.Int64("admin", adminID),
				zap.String("class", telegram.Classify(err).String()), zap.Error(err))
		}
	}
}

func (h *Handler) notifyAdminsNewTicket(ctx context.Context, req *request, ticket *database.SupportTicket) {
	admins, err := h.identity.ActiveAdmins(ctx)
	if err != nil {
		h.log.Error("loading admins for ticket notification", zap.Error(err))
		return
	}

	username := ""
	if req.user.Username != nil {
		username = " (@" + *req.user.Username + ")"
	}
	text := fmt.Sprintf("🎫 Новое обращение <b>%s</b> от %s%s:\n\n%s",
		ticket.TicketNumber, req.user.FullName, username, ticket.InitialMessage)
	markup := rows(row(btn("Открыть", fmt.Sprintf("ticket:%d", ticket.ID))))

	for _, adminID := range admins {
		if err := h.egress.SendText(ctx, adminID, text, markup); err != nil {
			h.log.Warn("ticket notification failed", zap.Int64("admin", adminID),
				zap.String("class", telegram.Classify(err).String()), zap.Error(err))
		}
	}
}
