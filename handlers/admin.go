package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"

	"lessonbot/database"
	"lessonbot/tglog"
)

// Stats is the read-only aggregate surface for the admin dashboard.
type Stats interface {
	CountUsers(ctx context.Context) (int, error)
	CountLessons(ctx context.Context, activeOnly bool) (int, error)
	CountCompletedPurchases(ctx context.Context) (int, error)
	SumCompletedPurchases(ctx context.Context) (int, error)
}

func (h *Handler) showAdminMenu(ctx context.Context, req *request) {
	h.sendText(ctx, req, "🛠 <b>Панель администратора</b>", adminMenuKeyboard())
}

func (h *Handler) showAdminStats(ctx context.Context, req *request) {
	users, err := h.stats.CountUsers(ctx)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	lessons, err := h.stats.CountLessons(ctx, true)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	sales, err := h.stats.CountCompletedPurchases(ctx)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	revenue, err := h.stats.SumCompletedPurchases(ctx)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	available, err := h.withdrawals.Available(ctx)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}

	var b strings.Builder
	b.WriteString("📊 <b>Статистика</b>\n\n")
	fmt.Fprintf(&b, "👥 Пользователи: %d\n", users)
	fmt.Fprintf(&b, "📚 Активные уроки: %d\n", lessons)
	fmt.Fprintf(&b, "💳 Продажи: %d\n", sales)
	fmt.Fprintf(&b, "💰 Выручка: %d ⭐\n", revenue)
	fmt.Fprintf(&b, "💸 Доступно к выводу: %d ⭐", available)

	h.sendText(ctx, req, b.String(), rows(
		row(btn("💳 Последние продажи", "admin_sales")),
		row(btn("◀️", "admin_menu")),
	))
}

var purchaseBadge = map[database.PurchaseStatus]string{
	database.PurchaseCompleted: "✅",
	database.PurchaseRefunded:  "↩️",
	database.PurchaseCancelled: "🚫",
}

func (h *Handler) showAdminSales(ctx context.Context, req *request) {
	purchases, err := h.payments.RecentPurchases(ctx, 15)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	if len(purchases) == 0 {
		h.sendText(ctx, req, "Продаж пока нет.", rows(row(btn("◀️", "admin_stats"))))
		return
	}

	var b strings.Builder
	b.WriteString("💳 <b>Последние продажи</b>\n\n")
	var kb [][]models.InlineKeyboardButton
	for _, p := range purchases {
		lessonLabel := "урок удалён"
		if p.LessonID != nil {
			lessonLabel = fmt.Sprintf("урок #%d", *p.LessonID)
		}
		fmt.Fprintf(&b, "%s #%d: %s, %d ⭐, пользователь %d\n",
			purchaseBadge[p.Status], p.ID, lessonLabel, p.Amount, p.UserID)
		if p.Status == database.PurchaseCompleted {
			kb = append(kb, row(btn(fmt.Sprintf("↩️ Возврат #%d", p.ID),
				fmt.Sprintf("refund:%d", p.ID))))
		}
	}
	kb = append(kb, row(btn("◀️", "admin_stats")))
	h.sendText(ctx, req, b.String(), &models.InlineKeyboardMarkup{InlineKeyboard: kb})
}

// onPurchaseRefund returns the Stars to the buyer and flips the
// purchase to refunded.
func (h *Handler) onPurchaseRefund(ctx context.Context, req *request, id int) {
	purchase, err := h.payments.RefundByID(ctx, h.egress, id)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	tglog.Send("↩️ Возврат: покупка #%d, %d ⭐, пользователь %d",
		purchase.ID, purchase.Amount, purchase.UserID)
	h.sendText(ctx, req, fmt.Sprintf("✅ Возврат по покупке #%d выполнен.", purchase.ID), nil)
	h.showAdminSales(ctx, req)
}
