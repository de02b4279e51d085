package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"

	"lessonbot/catalog"
	"lessonbot/database"
	"lessonbot/errs"
	"lessonbot/fsm"
)

func (h *Handler) showAdminLessons(ctx context.Context, req *request, page int) {
	lessons, total, err := h.catalog.List(ctx, page, lessonsPerPage, catalog.ListOptions{IncludeInactive: true})
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}

	var kb [][]models.InlineKeyboardButton
	for _, l := range lessons {
		label := l.Title
		if !l.IsActive {
			label = "🚫 " + label
		}
		kb = append(kb, row(btn(label, fmt.Sprintf("admin_lesson:%d", l.ID))))
	}
	var nav []models.InlineKeyboardButton
	if page > 1 {
		nav = append(nav, btn("◀️", fmt.Sprintf("admin_lessons:%d", page-1)))
	}
	if page*lessonsPerPage < total {
		nav = append(nav, btn("▶️", fmt.Sprintf("admin_lessons:%d", page+1)))
	}
	if len(nav) > 0 {
		kb = append(kb, nav)
	}
	kb = append(kb,
		row(btn("➕ Новый урок", "admin_lesson_new")),
		row(btn("🏠", "admin_menu")))

	h.sendText(ctx, req, fmt.Sprintf("📚 Уроки (%d):", total),
		&models.InlineKeyboardMarkup{InlineKeyboard: kb})
}

func (h *Handler) showAdminLesson(ctx context.Context, req *request, id int) {
	lesson, err := h.catalog.Get(ctx, id, true)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}

	status := "✅ активен"
	if !lesson.IsActive {
		status = "🚫 выключен"
	}
	categoryName := "—"
	if lesson.Category != nil {
		categoryName = *lesson.Category
	}
	text := fmt.Sprintf("<b>%s</b>\n\n%s\n\n💰 %d ⭐ | %s | 👁 %d\n🗂 %s\n📎 %s",
		lesson.Title, lesson.Description, lesson.Price, status, lesson.Views,
		categoryName, lesson.ContentType)

	toggle := "🚫 Выключить"
	if !lesson.IsActive {
		toggle = "✅ Включить"
	}
	h.sendText(ctx, req, text, rows(
		row(btn("✏️ Название", fmt.Sprintf("admin_lesson_edit:%d:title", id)),
			btn("✏️ Описание", fmt.Sprintf("admin_lesson_edit:%d:description", id))),
		row(btn("✏️ Цена", fmt.Sprintf("admin_lesson_edit:%d:price", id)),
			btn("✏️ Категория", fmt.Sprintf("admin_lesson_edit:%d:category", id))),
		row(btn("✏️ Медиа", fmt.Sprintf("admin_lesson_edit:%d:media", id))),
		row(btn(toggle, fmt.Sprintf("admin_lesson_toggle:%d", id)),
			btn("🗑 Удалить", fmt.Sprintf("admin_lesson_delete:%d", id))),
		row(btn("◀️", "admin_lessons")),
	))
}

// --- creation flow ---

func (h *Handler) startLessonCreate(ctx context.Context, req *request) {
	if err := h.states.Set(ctx, req.user.ID, fsm.AdminCreatingLesson, fsm.Payload{"step": "title"}); err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.sendText(ctx, req, fmt.Sprintf("✏️ Название урока (до %d символов):", catalog.MaxTitleLen),
		h.cancelKeyboard(ctx, req.lang()))
}

// onLessonCreateStep advances the creation accumulator one input at a
// time: title → description → price → category → content_type → content.
func (h *Handler) onLessonCreateStep(ctx context.Context, req *request, state *fsm.State, msg *models.Message) {
	step := state.Payload["step"]

	switch step {
	case "title":
		if msg.Text == "" || len([]rune(msg.Text)) > catalog.MaxTitleLen {
			h.sendText(ctx, req, fmt.Sprintf("Название должно быть текстом до %d символов. Попробуйте ещё раз:",
				catalog.MaxTitleLen), nil)
			return
		}
		h.advanceCreate(ctx, req, fsm.Payload{"title": msg.Text, "step": "description"},
			fmt.Sprintf("📝 Описание (до %d символов):", catalog.MaxDescriptionLen))

	case "description":
		if msg.Text == "" || len([]rune(msg.Text)) > catalog.MaxDescriptionLen {
			h.sendText(ctx, req, fmt.Sprintf("Описание должно быть текстом до %d символов. Попробуйте ещё раз:",
				catalog.MaxDescriptionLen), nil)
			return
		}
		h.advanceCreate(ctx, req, fsm.Payload{"description": msg.Text, "step": "price"},
			fmt.Sprintf("💰 Цена в Stars (0–%d, 0 = бесплатно):", catalog.MaxPrice))

	case "price":
		price, err := strconv.Atoi(strings.TrimSpace(msg.Text))
		if err != nil || price < 0 || price > catalog.MaxPrice {
			h.sendText(ctx, req, fmt.Sprintf("Нужно число от 0 до %d. Попробуйте ещё раз:", catalog.MaxPrice), nil)
			return
		}
		h.advanceCreate(ctx, req, fsm.Payload{"price": strconv.Itoa(price), "step": "category"},
			"🗂 Название категории:")

	case "category":
		if strings.TrimSpace(msg.Text) == "" {
			h.sendText(ctx, req, "Категория не может быть пустой. Попробуйте ещё раз:", nil)
			return
		}
		h.advanceCreate(ctx, req, fsm.Payload{"category": strings.TrimSpace(msg.Text), "step": "content_type"},
			"📎 Тип контента: text, photo, video, document или audio")

	case "content_type":
		ct := database.ContentType(strings.ToLower(strings.TrimSpace(msg.Text)))
		if !database.ValidContentType(ct) {
			h.sendText(ctx, req, "Допустимо: text, photo, video, document, audio. Попробуйте ещё раз:", nil)
			return
		}
		if ct == database.ContentText {
			// text lessons have no file, finish now
			if err := h.states.UpdatePayload(ctx, req.user.ID, fsm.Payload{"content_type": string(ct)}); err != nil {
				h.replyError(ctx, req, err)
				return
			}
			state.Payload["content_type"] = string(ct)
			h.finishLessonCreate(ctx, req, state.Payload, nil, nil)
			return
		}
		h.advanceCreate(ctx, req, fsm.Payload{"content_type": string(ct), "step": "content"},
			"📎 Отправьте файл урока одним сообщением:")

	case "content":
		wantType := database.ContentType(state.Payload["content_type"])
		gotType, fileID, duration, ok := mediaFromMessage(msg)
		if !ok || gotType != wantType {
			h.sendText(ctx, req, fmt.Sprintf("Жду файл типа %s. Отправьте его одним сообщением:", wantType), nil)
			return
		}
		h.finishLessonCreate(ctx, req, state.Payload, &fileID, duration)

	default:
		h.startLessonCreate(ctx, req)
	}
}

func (h *Handler) advanceCreate(ctx context.Context, req *request, patch fsm.Payload, prompt string) {
	if err := h.states.UpdatePayload(ctx, req.user.ID, patch); err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.sendText(ctx, req, prompt, h.cancelKeyboard(ctx, req.lang()))
}

func (h *Handler) finishLessonCreate(ctx context.Context, req *request, p fsm.Payload, fileID *string, duration *int) {
	price, _ := strconv.Atoi(p["price"])
	lesson, err := h.catalog.Create(ctx, catalog.CreateLessonInput{
		Title:        p["title"],
		Description:  p["description"],
		Price:        price,
		ContentType:  database.ContentType(p["content_type"]),
		FileHandle:   fileID,
		DurationSec:  duration,
		CategoryName: p["category"],
	})
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	_ = h.states.Clear(ctx, req.user.ID)
	h.sendText(ctx, req, fmt.Sprintf("✅ Урок «%s» создан.", lesson.Title), nil)
	h.showAdminLesson(ctx, req, lesson.ID)
}

// --- field editing flow ---

var editPrompts = map[string]string{
	"title":       "✏️ Новое название:",
	"description": "📝 Новое описание:",
	"price":       "💰 Новая цена в Stars:",
	"category":    "🗂 Новая категория:",
	"media":       "📎 Отправьте новый файл (или напишите text для текстового урока):",
}

func (h *Handler) startLessonEdit(ctx context.Context, req *request, lessonID int, field string) {
	prompt, ok := editPrompts[field]
	if !ok {
		h.replyError(ctx, req, errs.Newf(errs.Validation, "unknown field %q", field))
		return
	}
	if _, err := h.catalog.Get(ctx, lessonID, true); err != nil {
		h.replyError(ctx, req, err)
		return
	}
	err := h.states.Set(ctx, req.user.ID, fsm.AdminEditingLesson,
		fsm.Payload{"lesson_id": strconv.Itoa(lessonID), "field": field})
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.sendText(ctx, req, prompt, h.cancelKeyboard(ctx, req.lang()))
}

func (h *Handler) onLessonEditInput(ctx context.Context, req *request, state *fsm.State, msg *models.Message) {
	lessonID, _ := strconv.Atoi(state.Payload["lesson_id"])
	field := state.Payload["field"]

	var err error
	switch field {
	case "title":
		err = h.catalog.UpdateTitle(ctx, lessonID, msg.Text)
	case "description":
		err = h.catalog.UpdateDescription(ctx, lessonID, msg.Text)
	case "price":
		price, convErr := strconv.Atoi(strings.TrimSpace(msg.Text))
		if convErr != nil {
			h.sendText(ctx, req, "Нужно число. Попробуйте ещё раз:", nil)
			return
		}
		err = h.catalog.UpdatePrice(ctx, lessonID, price)
	case "category":
		err = h.catalog.UpdateCategory(ctx, lessonID, msg.Text)
	case "media":
		if strings.EqualFold(strings.TrimSpace(msg.Text), "text") {
			err = h.catalog.UpdateMedia(ctx, lessonID, database.ContentText, nil, nil)
			break
		}
		ct, fileID, duration, ok := mediaFromMessage(msg)
		if !ok {
			h.sendText(ctx, req, "Жду файл: фото, видео, документ или аудио. Попробуйте ещё раз:", nil)
			return
		}
		err = h.catalog.UpdateMedia(ctx, lessonID, ct, &fileID, duration)
	default:
		_ = h.states.Clear(ctx, req.user.ID)
		h.showAdminLesson(ctx, req, lessonID)
		return
	}

	if err != nil {
		// Validation keeps the state so the admin can retry.
		h.replyError(ctx, req, err)
		return
	}
	_ = h.states.Clear(ctx, req.user.ID)
	h.showAdminLesson(ctx, req, lessonID)
}

func (h *Handler) onLessonToggle(ctx context.Context, req *request, id int) {
	lesson, err := h.catalog.Get(ctx, id, true)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	if err := h.catalog.SetActive(ctx, id, !lesson.IsActive); err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.showAdminLesson(ctx, req, id)
}

// onLessonDelete runs the deletion policy: hard delete when no
// completed purchases exist, otherwise offer soft delete or force.
func (h *Handler) onLessonDelete(ctx context.Context, req *request, id int, force bool) {
	if force {
		if err := h.catalog.HardDelete(ctx, id, true); err != nil {
			h.replyError(ctx, req, err)
			return
		}
		h.sendText(ctx, req, "🗑 Урок удалён, покупки помечены отменёнными.", nil)
		h.showAdminLessons(ctx, req, 1)
		return
	}

	ok, reason, err := h.catalog.CanDelete(ctx, id)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	if ok {
		if err := h.catalog.HardDelete(ctx, id, false); err != nil {
			h.replyError(ctx, req, err)
			return
		}
		h.sendText(ctx, req, "🗑 Урок удалён.", nil)
		h.showAdminLessons(ctx, req, 1)
		return
	}

	h.sendText(ctx, req, fmt.Sprintf("⚠️ Нельзя удалить: %s.\n\nВыключить урок или удалить принудительно?", reason),
		rows(
			row(btn("🚫 Выключить", fmt.Sprintf("admin_lesson_toggle:%d", id))),
			row(btn("❗ Удалить принудительно", fmt.Sprintf("admin_lesson_delete_force:%d", id))),
			row(btn("◀️", fmt.Sprintf("admin_lesson:%d", id))),
		))
}

// --- categories ---

func (h *Handler) showAdminCategories(ctx context.Context, req *request) {
	counts, err := h.catalog.CategoryCounts(ctx)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}

	var kb [][]models.InlineKeyboardButton
	for _, c := range counts {
		kb = append(kb, row(
			btn(fmt.Sprintf("%s (%d)", c.Name, c.Lessons), fmt.Sprintf("admin_category_edit:%d", c.CategoryID)),
			btn("🗑", fmt.Sprintf("admin_category_delete:%d", c.CategoryID)),
		))
	}
	kb = append(kb, row(btn("🏠", "admin_menu")))
	h.sendText(ctx, req, "🗂 Категории:", &models.InlineKeyboardMarkup{InlineKeyboard: kb})
}

func (h *Handler) startCategoryEdit(ctx context.Context, req *request, id int) {
	err := h.states.Set(ctx, req.user.ID, fsm.AdminEditingCategory,
		fsm.Payload{"category_id": strconv.Itoa(id), "step": "name"})
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.sendText(ctx, req, "✏️ Новое название категории:", h.cancelKeyboard(ctx, req.lang()))
}

func (h *Handler) onCategoryEditInput(ctx context.Context, req *request, state *fsm.State, msg *models.Message) {
	id, _ := strconv.Atoi(state.Payload["category_id"])
	if _, err := h.catalog.RenameCategory(ctx, id, msg.Text, nil); err != nil {
		h.replyError(ctx, req, err)
		return
	}
	_ = h.states.Clear(ctx, req.user.ID)
	h.showAdminCategories(ctx, req)
}

func (h *Handler) onCategoryDelete(ctx context.Context, req *request, id int) {
	if err := h.catalog.DeleteCategory(ctx, id); err != nil {
		h.replyError(ctx, req, err)
		return
	}
	h.sendText(ctx, req, "🗑 Категория удалена, уроки отвязаны.", nil)
	h.showAdminCategories(ctx, req)
}

// mediaFromMessage extracts the content type, file handle and duration
// from an inbound media message.
func mediaFromMessage(msg *models.Message) (database.ContentType, string, *int, bool) {
	switch {
	case len(msg.Photo) > 0:
		return database.ContentPhoto, msg.Photo[len(msg.Photo)-1].FileID, nil, true
	case msg.Video != nil:
		d := msg.Video.Duration
		return database.ContentVideo, msg.Video.FileID, &d, true
	case msg.Document != nil:
		return database.ContentDocument, msg.Document.FileID, nil, true
	case msg.Audio != nil:
		d := msg.Audio.Duration
		return database.ContentAudio, msg.Audio.FileID, &d, true
	}
	return "", "", nil, false
}
