package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"lessonbot/payments"
	"lessonbot/tglog"
)

// onBuyLesson shows the purchase confirmation for a paid lesson.
func (h *Handler) onBuyLesson(ctx context.Context, req *request, lessonID int) {
	lesson, err := h.payments.Validate(ctx, req.user.ID, lessonID)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	text := fmt.Sprintf("<b>%s</b>\n\n💰 Цена: %d ⭐\n\nОплатить?", lesson.Title, lesson.Price)
	h.sendText(ctx, req, text, rows(
		row(btn(fmt.Sprintf("💳 Оплатить %d ⭐", lesson.Price),
			fmt.Sprintf("pay:%d:%d", lesson.ID, lesson.Price))),
		row(btn("✖️", fmt.Sprintf("lesson:%d", lesson.ID))),
	))
}

// onPay issues the Stars invoice. A failed platform send leaves no
// local state behind.
func (h *Handler) onPay(ctx context.Context, req *request, lessonID int) {
	lesson, payload, err := h.payments.InvoicePayload(ctx, req.user.ID, lessonID)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}

	if err := h.egress.SendInvoice(ctx, req.user.ID, lesson.Title, lesson.Description, payload, lesson.Price); err != nil {
		h.log.Error("invoice send failed", zap.String("trace", req.trace),
			zap.Int64("user", req.user.ID), zap.Int("lesson", lessonID), zap.Error(err))
		h.sendText(ctx, req, h.texts.GetOr(ctx, "error_generic", req.lang(),
			"❌ Ошибка. Попробуйте позже."), nil)
	}
}

// onSuccessfulPayment commits the purchase in one transaction, then
// delivers the lesson outside of it. Redeliveries are absorbed by the
// charge-id idempotency; the lesson is re-sent so the user is never
// left without content.
func (h *Handler) onSuccessfulPayment(ctx context.Context, log *zap.Logger, req *request, msg *models.Message) {
	sp := msg.SuccessfulPayment

	purchase, lesson, created, err := h.payments.Commit(ctx, req.user.ID,
		sp.TelegramPaymentChargeID, sp.InvoicePayload, sp.TotalAmount)
	if err != nil {
		// The platform already debited; leaving the event unacknowledged
		// locally means a redelivery retries the commit.
		log.Error("payment commit failed",
			zap.String("charge", sp.TelegramPaymentChargeID), zap.Error(err))
		h.sendText(ctx, req, h.texts.GetOr(ctx, "error_generic", req.lang(),
			"❌ Ошибка. Попробуйте позже."), nil)
		return
	}

	if created {
		log.Info("payment committed",
			zap.String("charge", purchase.PaymentChargeID),
			zap.Int("lesson", lesson.ID), zap.Int("amount", purchase.Amount))
		tglog.Send("💰 Продажа: урок #%d, %d ⭐, пользователь %d",
			lesson.ID, purchase.Amount, purchase.UserID)
	} else {
		log.Info("payment replay ignored", zap.String("charge", purchase.PaymentChargeID))
	}

	h.sendText(ctx, req, h.texts.GetOr(ctx, "payment_success", req.lang(),
		"✅ Оплата прошла! Отправляю урок..."), nil)
	h.deliverLesson(ctx, req, lesson)
}

// onTestPay commits a purchase without the payment dialog. Only
// reachable for admins while TEST_MODE is on.
func (h *Handler) onTestPay(ctx context.Context, req *request, msg *models.Message) {
	if !h.cfg.TestMode || !req.isAdmin {
		h.sendText(ctx, req, h.texts.GetOr(ctx, "unknown_input", req.lang(),
			"Не понимаю. Используйте меню или /start."), h.mainMenuKeyboard(ctx, req))
		return
	}

	fields := strings.Fields(msg.Text)
	if len(fields) < 2 {
		h.sendText(ctx, req, "Использование: /testpay <id урока>", nil)
		return
	}
	lessonID, err := strconv.Atoi(fields[1])
	if err != nil {
		h.sendText(ctx, req, "Использование: /testpay <id урока>", nil)
		return
	}

	lesson, err := h.payments.Validate(ctx, req.user.ID, lessonID)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}

	payload := payments.BuildPayload(lesson.ID, req.user.ID, time.Now().Unix())
	chargeID := "test-" + uuid.NewString()
	purchase, lesson, _, err := h.payments.Commit(ctx, req.user.ID, chargeID, payload, lesson.Price)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}

	tglog.Send("🧪 Тестовая продажа: урок #%d, %d ⭐, пользователь %d",
		lesson.ID, purchase.Amount, purchase.UserID)
	h.sendText(ctx, req, "🧪 Тестовая оплата проведена. Отправляю урок...", nil)
	h.deliverLesson(ctx, req, lesson)
}
