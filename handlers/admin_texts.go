package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot/models"

	"lessonbot/fsm"
	"lessonbot/texts"
)

func (h *Handler) showAdminTexts(ctx context.Context, req *request) {
	var kb [][]models.InlineKeyboardButton
	for _, c := range texts.Categories() {
		kb = append(kb, row(btn(c, "admin_texts_cat:"+c)))
	}
	kb = append(kb, row(btn("🏠", "admin_menu")))
	h.sendText(ctx, req, "📝 Тексты. Выберите категорию:",
		&models.InlineKeyboardMarkup{InlineKeyboard: kb})
}

func (h *Handler) showAdminTextCategory(ctx context.Context, req *request, category string) {
	entries, err := h.texts.ListByCategory(ctx, category)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	if len(entries) == 0 {
		h.sendText(ctx, req, "В этой категории пока нет текстов.",
			rows(row(btn("◀️", "admin_texts"))))
		return
	}

	var kb [][]models.InlineKeyboardButton
	for _, e := range entries {
		kb = append(kb, row(
			btn(e.Key+" 🇷🇺", fmt.Sprintf("admin_text_edit:%s:ru", e.Key)),
			btn("🇬🇧", fmt.Sprintf("admin_text_edit:%s:en", e.Key)),
			btn("🗑", "admin_text_delete:"+e.Key),
		))
	}
	kb = append(kb, row(btn("◀️", "admin_texts")))
	h.sendText(ctx, req, fmt.Sprintf("📝 %s (%d):", category, len(entries)),
		&models.InlineKeyboardMarkup{InlineKeyboard: kb})
}

func (h *Handler) startTextEdit(ctx context.Context, req *request, key, lang string) {
	if lang != "ru" && lang != "en" {
		lang = "ru"
	}
	current := h.texts.Get(ctx, key, lang)
	err := h.states.Set(ctx, req.user.ID, fsm.AdminEditingText,
		fsm.Payload{"key": key, "lang": lang})
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	prompt := fmt.Sprintf("✏️ %s (%s)\n\nТекущее значение:\n%s\n\nОтправьте новое значение:",
		key, lang, current)
	if current == "" {
		prompt = fmt.Sprintf("✏️ %s (%s)\n\nЗначение не задано. Отправьте новое:", key, lang)
	}
	h.sendText(ctx, req, prompt, h.cancelKeyboard(ctx, req.lang()))
}

func (h *Handler) onTextEditInput(ctx context.Context, req *request, state *fsm.State, msg *models.Message) {
	key := state.Payload["key"]
	lang := state.Payload["lang"]
	if msg.Text == "" {
		h.sendText(ctx, req, "Жду текстовое сообщение. Попробуйте ещё раз:", nil)
		return
	}

	entry, err := h.texts.UpsertLang(ctx, key, lang, msg.Text)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	_ = h.states.Clear(ctx, req.user.ID)
	h.sendText(ctx, req, fmt.Sprintf("✅ Текст %s обновлён.", entry.Key), nil)
	h.showAdminTextCategory(ctx, req, entry.Category)
}

func (h *Handler) onTextDelete(ctx context.Context, req *request, key string) {
	if err := h.texts.Delete(ctx, key); err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.sendText(ctx, req, fmt.Sprintf("🗑 Текст %s удалён.", key), nil)
	h.showAdminTexts(ctx, req)
}
