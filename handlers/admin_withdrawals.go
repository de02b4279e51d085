package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"

	"lessonbot/database"
	"lessonbot/fsm"
)

var withdrawalBadge = map[database.WithdrawalStatus]string{
	database.WithdrawalPending:    "📝",
	database.WithdrawalProcessing: "⏳",
	database.WithdrawalCompleted:  "✅",
	database.WithdrawalFailed:     "❌",
	database.WithdrawalCancelled:  "🚫",
}

func (h *Handler) showAdminWithdrawals(ctx context.Context, req *request) {
	available, err := h.withdrawals.Available(ctx)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	list, err := h.withdrawals.List(ctx, 10)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "💸 Выводы. Доступно: %d ⭐\n", available)
	var kb [][]models.InlineKeyboardButton
	for _, w := range list {
		fmt.Fprintf(&b, "\n%s #%d %d ⭐ (комиссия %d, к выплате %d)",
			withdrawalBadge[w.Status], w.ID, w.Amount, w.Commission, w.NetAmount)
		if w.FailureReason != nil {
			fmt.Fprintf(&b, "\n   причина: %s", *w.FailureReason)
		}
		switch w.Status {
		case database.WithdrawalPending:
			kb = append(kb, row(
				btn(fmt.Sprintf("▶️ Выплатить #%d", w.ID), fmt.Sprintf("withdrawal_process:%d", w.ID)),
				btn(fmt.Sprintf("🚫 #%d", w.ID), fmt.Sprintf("withdrawal_cancel:%d", w.ID))))
		}
	}
	if len(list) == 0 {
		b.WriteString("\nзаявок пока нет")
	}
	kb = append(kb,
		row(btn("➕ Новая заявка", "withdrawal_new")),
		row(btn("🏠", "admin_menu")))

	h.sendText(ctx, req, b.String(), &models.InlineKeyboardMarkup{InlineKeyboard: kb})
}

func (h *Handler) startWithdrawalCreate(ctx context.Context, req *request) {
	available, err := h.withdrawals.Available(ctx)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	err = h.states.Set(ctx, req.user.ID, fsm.AdminCreatingWithdrawal, fsm.Payload{"step": "amount"})
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.sendText(ctx, req,
		fmt.Sprintf("💸 Доступно %d ⭐, минимум %d ⭐.\n\nСумма вывода:", available, h.cfg.MinWithdrawalAmount),
		h.cancelKeyboard(ctx, req.lang()))
}

// onWithdrawalCreateStep walks amount → wallet → notes, then shows the
// commission breakdown for confirmation.
func (h *Handler) onWithdrawalCreateStep(ctx context.Context, req *request, state *fsm.State, msg *models.Message) {
	switch state.Payload["step"] {
	case "amount":
		amount, err := strconv.Atoi(strings.TrimSpace(msg.Text))
		if err != nil || amount <= 0 {
			h.sendText(ctx, req, "Нужна сумма в Stars числом. Попробуйте ещё раз:", nil)
			return
		}
		if amount < h.cfg.MinWithdrawalAmount {
			h.sendText(ctx, req, fmt.Sprintf("Минимум %d ⭐. Попробуйте ещё раз:", h.cfg.MinWithdrawalAmount), nil)
			return
		}
		err = h.states.UpdatePayload(ctx, req.user.ID,
			fsm.Payload{"amount": strconv.Itoa(amount), "step": "wallet"})
		if err != nil {
			h.replyError(ctx, req, err)
			return
		}
		h.sendText(ctx, req, "👛 Адрес TON-кошелька (EQ…, UQ… или 0Q…):", h.cancelKeyboard(ctx, req.lang()))

	case "wallet":
		wallet := strings.TrimSpace(msg.Text)
		err := h.states.UpdatePayload(ctx, req.user.ID,
			fsm.Payload{"wallet": wallet, "step": "notes"})
		if err != nil {
			h.replyError(ctx, req, err)
			return
		}
		h.sendText(ctx, req, "📝 Комментарий к заявке (или «пропустить»):", h.cancelKeyboard(ctx, req.lang()))

	case "notes":
		patch := fsm.Payload{"step": "confirm"}
		if !isSkipWord(msg.Text) && strings.TrimSpace(msg.Text) != "" {
			patch["notes"] = msg.Text
		}
		if err := h.states.UpdatePayload(ctx, req.user.ID, patch); err != nil {
			h.replyError(ctx, req, err)
			return
		}
		amount, _ := strconv.Atoi(state.Payload["amount"])
		commission := h.withdrawals.Commission(amount)
		h.sendText(ctx, req,
			fmt.Sprintf("💸 Сумма: %d ⭐\nКомиссия: %d ⭐\nК выплате: %d ⭐\nКошелёк: %s\n\nСоздать заявку?",
				amount, commission, amount-commission, state.Payload["wallet"]),
			rows(
				row(btn("✅ Создать", "withdrawal_confirm")),
				row(btn("🚫 Отмена", "cancel")),
			))

	default:
		h.sendText(ctx, req, "Подтвердите заявку кнопкой выше или отмените её.", nil)
	}
}

func (h *Handler) onWithdrawalConfirm(ctx context.Context, req *request) {
	state, err := h.states.Get(ctx, req.user.ID)
	if err != nil || state == nil || state.Tag != fsm.AdminCreatingWithdrawal {
		h.sendText(ctx, req, "Черновик заявки не найден, начните заново.", nil)
		h.showAdminWithdrawals(ctx, req)
		return
	}
	amount, _ := strconv.Atoi(state.Payload["amount"])
	var notes *string
	if n := state.Payload["notes"]; n != "" {
		notes = &n
	}

	w, err := h.withdrawals.Create(ctx, req.user.ID, amount, state.Payload["wallet"], notes)
	if err != nil {
		// insufficient balance and wallet format errors keep the flow
		h.replyError(ctx, req, err)
		return
	}
	_ = h.states.Clear(ctx, req.user.ID)
	h.sendText(ctx, req, fmt.Sprintf("✅ Заявка #%d создана, к выплате %d ⭐.", w.ID, w.NetAmount), nil)
	h.showAdminWithdrawals(ctx, req)
}

func (h *Handler) onWithdrawalCancel(ctx context.Context, req *request, id int) {
	if err := h.withdrawals.Cancel(ctx, id, "cancelled by admin"); err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.sendText(ctx, req, fmt.Sprintf("🚫 Заявка #%d отменена.", id), nil)
	h.showAdminWithdrawals(ctx, req)
}

func (h *Handler) onWithdrawalProcess(ctx context.Context, req *request, id int) {
	if err := h.withdrawals.StartProcessing(ctx, id); err != nil {
		h.replyError(ctx, req, err)
		return
	}
	if err := h.withdrawals.Process(ctx, h.provider, id); err != nil {
		h.replyError(ctx, req, err)
		h.showAdminWithdrawals(ctx, req)
		return
	}
	w, err := h.withdrawals.Get(ctx, id)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	txID := ""
	if w.TransactionID != nil {
		txID = *w.TransactionID
	}
	h.sendText(ctx, req, fmt.Sprintf("✅ Заявка #%d выплачена. Транзакция: %s", id, txID), nil)
	h.showAdminWithdrawals(ctx, req)
}
