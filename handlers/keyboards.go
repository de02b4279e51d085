package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot/models"
)

// Keyboard builders are a pure view layer over the callback grammar.

func btn(text, data string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: data}
}

func rows(rs ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: rs}
}

func row(buttons ...models.InlineKeyboardButton) []models.InlineKeyboardButton {
	return buttons
}

func (h *Handler) mainMenuKeyboard(ctx context.Context, req *request) *models.InlineKeyboardMarkup {
	lang := req.lang()
	kb := [][]models.InlineKeyboardButton{
		row(btn(h.texts.GetOr(ctx, "btn_catalog", lang, "📚 Каталог"), "catalog")),
		row(btn(h.texts.GetOr(ctx, "btn_my_lessons", lang, "🎓 Мои уроки"), "my_lessons")),
		row(
			btn(h.texts.GetOr(ctx, "btn_support", lang, "🆘 Поддержка"), "support_new"),
			btn(h.texts.GetOr(ctx, "btn_language", lang, "🌍 Язык"), "lang_menu"),
		),
	}
	if req.isAdmin {
		kb = append(kb, row(btn("🛠 Админ", "admin_menu")))
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: kb}
}

func languageKeyboard() *models.InlineKeyboardMarkup {
	return rows(row(btn("🇷🇺 Русский", "lang:ru"), btn("🇬🇧 English", "lang:en")))
}

func (h *Handler) cancelKeyboard(ctx context.Context, lang string) *models.InlineKeyboardMarkup {
	return rows(row(btn(h.texts.GetOr(ctx, "btn_cancel", lang, "✖️ Отмена"), "cancel")))
}

func (h *Handler) lessonKeyboard(ctx context.Context, req *request, lessonID, price int, owned, free bool) *models.InlineKeyboardMarkup {
	lang := req.lang()
	var kb [][]models.InlineKeyboardButton
	if free || owned {
		kb = append(kb, row(btn(h.texts.GetOr(ctx, "btn_open", lang, "▶️ Открыть урок"),
			fmt.Sprintf("open_lesson:%d", lessonID))))
	} else {
		label := fmt.Sprintf(h.texts.GetOr(ctx, "btn_buy", lang, "💳 Купить за %d ⭐"), price)
		kb = append(kb, row(btn(label, fmt.Sprintf("buy_lesson:%d", lessonID))))
	}
	kb = append(kb, row(btn("◀️", "catalog")))
	return &models.InlineKeyboardMarkup{InlineKeyboard: kb}
}

func adminMenuKeyboard() *models.InlineKeyboardMarkup {
	return rows(
		row(btn("📚 Уроки", "admin_lessons"), btn("🗂 Категории", "admin_categories")),
		row(btn("📝 Тексты", "admin_texts"), btn("🎫 Тикеты", "admin_tickets")),
		row(btn("📣 Рассылки", "admin_broadcasts"), btn("💸 Выводы", "admin_withdrawals")),
		row(btn("📊 Статистика", "admin_stats")),
	)
}

func audienceKeyboard() *models.InlineKeyboardMarkup {
	return rows(
		row(btn("👥 Все", "broadcast_audience:all")),
		row(btn("✅ Активные", "broadcast_audience:active")),
		row(btn("💰 Покупатели", "broadcast_audience:buyers")),
		row(btn("✖️ Отмена", "cancel")),
	)
}

func ticketKeyboard(ticketID int, closed bool) *models.InlineKeyboardMarkup {
	if closed {
		return rows(
			row(btn("🔓 Переоткрыть", fmt.Sprintf("reopen:%d", ticketID))),
			row(btn("◀️", "admin_tickets")),
		)
	}
	return rows(
		row(btn("💬 Ответить", fmt.Sprintf("respond:%d", ticketID)),
			btn("👤 Взять", fmt.Sprintf("assign:%d", ticketID))),
		row(btn("✅ Закрыть", fmt.Sprintf("close:%d", ticketID))),
		row(btn("◀️", "admin_tickets")),
	)
}
