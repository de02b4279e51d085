package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"lessonbot/database"
	"lessonbot/fsm"
)

const ticketsPerScreen = 15

var statusBadge = map[database.TicketStatus]string{
	database.TicketOpen:       "🆕",
	database.TicketInProgress: "⏳",
	database.TicketClosed:     "✅",
}

func (h *Handler) showAdminTickets(ctx context.Context, req *request) {
	tickets, err := h.support.List(ctx, nil, ticketsPerScreen)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	if len(tickets) == 0 {
		h.sendText(ctx, req, "🎫 Обращений пока нет.", rows(row(btn("🏠", "admin_menu"))))
		return
	}

	var kb [][]models.InlineKeyboardButton
	for _, t := range tickets {
		label := fmt.Sprintf("%s %s · %s", statusBadge[t.Status], t.TicketNumber, t.Subject)
		kb = append(kb, row(btn(label, fmt.Sprintf("ticket:%d", t.ID))))
	}
	kb = append(kb, row(btn("🏠", "admin_menu")))
	h.sendText(ctx, req, fmt.Sprintf("🎫 Обращения (%d):", len(tickets)),
		&models.InlineKeyboardMarkup{InlineKeyboard: kb})
}

func (h *Handler) showAdminTicket(ctx context.Context, req *request, id int) {
	ticket, err := h.support.Get(ctx, id)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	responses, err := h.support.Responses(ctx, id)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎫 <b>%s</b> · %s %s\n", ticket.TicketNumber, statusBadge[ticket.Status], ticket.Status)
	fmt.Fprintf(&b, "От: <code>%d</code> · приоритет %s\n\n", ticket.UserID, ticket.Priority)
	fmt.Fprintf(&b, "<b>%s</b>\n%s\n", ticket.Subject, ticket.InitialMessage)
	for _, r := range responses {
		who := "👤"
		if r.SenderKind == "admin" {
			who = "🛠"
		}
		if r.IsInternal {
			who += " 🔒"
		}
		fmt.Fprintf(&b, "\n%s %s\n%s\n", who, r.CreatedAt.Format("02.01 15:04"), r.Message)
	}

	h.sendText(ctx, req, b.String(), ticketKeyboard(id, ticket.Status == database.TicketClosed))
}

func (h *Handler) startTicketResponse(ctx context.Context, req *request, id int) {
	ticket, err := h.support.Get(ctx, id)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	err = h.states.Set(ctx, req.user.ID, fsm.AdminRespondingTicket,
		fsm.Payload{"ticket_id": strconv.Itoa(id)})
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.sendText(ctx, req, fmt.Sprintf("✉️ Ответ на %s. Отправьте текст:", ticket.TicketNumber),
		h.cancelKeyboard(ctx, req.lang()))
}

func (h *Handler) onTicketResponseInput(ctx context.Context, req *request, state *fsm.State, msg *models.Message) {
	if msg.Text == "" {
		h.sendText(ctx, req, "Жду текстовое сообщение. Попробуйте ещё раз:", nil)
		return
	}
	ticketID, _ := strconv.Atoi(state.Payload["ticket_id"])

	_, ticket, err := h.support.AddAdminResponse(ctx, ticketID, req.user.ID, msg.Text, false)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	_ = h.states.Clear(ctx, req.user.ID)

	// Relay the reply to the ticket owner; delivery failure does not
	// undo the stored response.
	user, err := h.identity.Get(ctx, ticket.UserID)
	lang := "ru"
	if err == nil && user != nil {
		lang = user.Language
	}
	notice := fmt.Sprintf(h.texts.GetOr(ctx, "support_reply", lang, "💬 Ответ поддержки по %s:\n\n%s"),
		ticket.TicketNumber, msg.Text)
	replyMarkup := rows(row(btn("✍️ Ответить", fmt.Sprintf("ticket_reply:%d", ticket.ID))))
	if err := h.egress.SendText(ctx, ticket.UserID, notice, replyMarkup); err != nil {
		h.log.Warn("ticket reply delivery failed",
			zap.Int("ticket_id", ticketID), zap.Int64("user_id", ticket.UserID), zap.Error(err))
	}

	h.sendText(ctx, req, "✅ Ответ отправлен.", nil)
	h.showAdminTicket(ctx, req, ticketID)
}

func (h *Handler) onTicketAssign(ctx context.Context, req *request, id int) {
	if err := h.support.Assign(ctx, id, req.user.ID); err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.showAdminTicket(ctx, req, id)
}

func (h *Handler) onTicketClose(ctx context.Context, req *request, id int) {
	if err := h.support.Close(ctx, id); err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.showAdminTicket(ctx, req, id)
}

func (h *Handler) onTicketReopen(ctx context.Context, req *request, id int) {
	if err := h.support.Reopen(ctx, id); err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.showAdminTicket(ctx, req, id)
}
