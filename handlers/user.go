package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"

	"lessonbot/catalog"
	"lessonbot/database"
)

const lessonsPerPage = 8

func (h *Handler) sendWelcome(ctx context.Context, req *request) {
	text := h.texts.GetOr(ctx, "welcome", req.lang(),
		"👋 Добро пожаловать! Здесь вы можете купить уроки за Stars.")
	h.sendText(ctx, req, text, h.mainMenuKeyboard(ctx, req))
}

func (h *Handler) showLanguagePicker(ctx context.Context, req *request) {
	h.sendText(ctx, req, "🌍 Выберите язык / Choose a language:", languageKeyboard())
}

func (h *Handler) onLanguagePick(ctx context.Context, req *request, lang string) {
	if err := h.identity.SetLanguage(ctx, req.user.ID, lang); err != nil {
		h.replyError(ctx, req, err)
		return
	}
	req.user.Language = lang
	h.sendWelcome(ctx, req)
}

// onCatalogCallback handles the catalog:* family:
// catalog | catalog:all | catalog:categories | catalog:category:<id> | catalog:page:<n>
func (h *Handler) onCatalogCallback(ctx context.Context, req *request, args []string) {
	if len(args) == 0 {
		h.showCatalog(ctx, req, 1)
		return
	}
	switch args[0] {
	case "all":
		h.showCatalog(ctx, req, 1)
	case "categories":
		h.showCategories(ctx, req)
	case "category":
		if id, ok := argInt(args, 1); ok {
			h.showCategoryLessons(ctx, req, id)
		}
	case "page":
		if page, ok := argInt(args, 1); ok {
			h.showCatalog(ctx, req, page)
		}
	default:
		h.showCatalog(ctx, req, 1)
	}
}

func (h *Handler) showCatalog(ctx context.Context, req *request, page int) {
	lessons, total, err := h.catalog.List(ctx, page, lessonsPerPage, catalog.ListOptions{})
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	lang := req.lang()
	if total == 0 {
		h.sendText(ctx, req, h.texts.GetOr(ctx, "catalog_empty", lang, "Пока нет доступных уроков."),
			h.mainMenuKeyboard(ctx, req))
		return
	}

	var kb [][]models.InlineKeyboardButton
	for _, l := range lessons {
		label := l.Title
		if l.IsFree {
			label = "🆓 " + label
		} else {
			label = fmt.Sprintf("%s — %d ⭐", label, l.Price)
		}
		kb = append(kb, row(btn(label, fmt.Sprintf("lesson:%d", l.ID))))
	}

	var nav []models.InlineKeyboardButton
	if page > 1 {
		nav = append(nav, btn("◀️", fmt.Sprintf("catalog:page:%d", page-1)))
	}
	if page*lessonsPerPage < total {
		nav = append(nav, btn("▶️", fmt.Sprintf("catalog:page:%d", page+1)))
	}
	if len(nav) > 0 {
		kb = append(kb, nav)
	}
	kb = append(kb, row(btn("🗂", "catalog:categories"), btn("🏠", "menu")))

	title := h.texts.GetOr(ctx, "catalog_title", lang, "📚 Каталог уроков")
	h.sendText(ctx, req, fmt.Sprintf("%s (%d)", title, total),
		&models.InlineKeyboardMarkup{InlineKeyboard: kb})
}

func (h *Handler) showCategories(ctx context.Context, req *request) {
	counts, err := h.catalog.CategoryCounts(ctx)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}

	var kb [][]models.InlineKeyboardButton
	for _, c := range counts {
		kb = append(kb, row(btn(fmt.Sprintf("%s (%d)", c.Name, c.Lessons),
			fmt.Sprintf("catalog:category:%d", c.CategoryID))))
	}
	kb = append(kb, row(btn("◀️", "catalog")))
	h.sendText(ctx, req, "🗂 Категории:", &models.InlineKeyboardMarkup{InlineKeyboard: kb})
}

func (h *Handler) showCategoryLessons(ctx context.Context, req *request, categoryID int) {
	lessons, _, err := h.catalog.List(ctx, 1, lessonsPerPage, catalog.ListOptions{CategoryID: &categoryID})
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}

	var kb [][]models.InlineKeyboardButton
	for _, l := range lessons {
		kb = append(kb, row(btn(l.Title, fmt.Sprintf("lesson:%d", l.ID))))
	}
	kb = append(kb, row(btn("◀️", "catalog:categories")))
	h.sendText(ctx, req, "🗂 Уроки категории:", &models.InlineKeyboardMarkup{InlineKeyboard: kb})
}

func (h *Handler) showLesson(ctx context.Context, req *request, id int) {
	lesson, err := h.catalog.Get(ctx, id, false)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	// view counting is best effort
	_ = h.catalog.IncrementViews(ctx, id)

	owned := false
	if !lesson.IsFree {
		owned, err = h.catalog.CheckEntitlement(ctx, req.user.ID, id)
		if err != nil {
			h.replyError(ctx, req, err)
			return
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n\n%s\n\n", lesson.Title, lesson.Description)
	if lesson.IsFree {
		b.WriteString(h.texts.GetOr(ctx, "lesson_free", req.lang(), "🆓 Бесплатно"))
	} else {
		fmt.Fprintf(&b, "💰 %d ⭐", lesson.Price)
	}
	if lesson.DurationSec != nil {
		fmt.Fprintf(&b, "\n⏱ %d мин", *lesson.DurationSec/60)
	}

	h.sendText(ctx, req, b.String(),
		h.lessonKeyboard(ctx, req, lesson.ID, lesson.Price, owned, lesson.IsFree))
}

func (h *Handler) showMyLessons(ctx context.Context, req *request) {
	purchases, err := h.catalog.UserPurchases(ctx, req.user.ID)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	if len(purchases) == 0 {
		h.sendText(ctx, req, "У вас пока нет купленных уроков.", h.mainMenuKeyboard(ctx, req))
		return
	}

	var kb [][]models.InlineKeyboardButton
	for _, p := range purchases {
		if p.LessonID == nil {
			continue
		}
		lesson, err := h.catalog.Get(ctx, *p.LessonID, true)
		if err != nil {
			continue
		}
		kb = append(kb, row(btn(lesson.Title, fmt.Sprintf("open_lesson:%d", lesson.ID))))
	}
	kb = append(kb, row(btn("🏠", "menu")))
	h.sendText(ctx, req, "🎓 Ваши уроки:", &models.InlineKeyboardMarkup{InlineKeyboard: kb})
}

// onOpenLesson delivers content after an entitlement check.
func (h *Handler) onOpenLesson(ctx context.Context, req *request, id int) {
	lesson, err := h.catalog.Get(ctx, id, false)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	entitled, err := h.catalog.CheckEntitlement(ctx, req.user.ID, id)
	if err != nil {
		h.replyError(ctx, req, err)
		return
	}
	if !entitled {
		h.replyAccessDenied(ctx, req)
		return
	}
	h.deliverLesson(ctx, req, lesson)
}

// deliverLesson picks the egress method from the content type.
func (h *Handler) deliverLesson(ctx context.Context, req *request, lesson *database.Lesson) {
	caption := fmt.Sprintf("<b>%s</b>\n\n%s", lesson.Title, lesson.Description)
	fileID := ""
	if lesson.FileHandle != nil {
		fileID = *lesson.FileHandle
	}

	var err error
	switch lesson.ContentType {
	case database.ContentPhoto:
		err = h.egress.SendPhoto(ctx, req.user.ID, fileID, caption)
	case database.ContentVideo:
		err = h.egress.SendVideo(ctx, req.user.ID, fileID, caption)
	case database.ContentDocument:
		err = h.egress.SendDocument(ctx, req.user.ID, fileID, caption)
	case database.ContentAudio:
		err = h.egress.SendAudio(ctx, req.user.ID, fileID, caption)
	default:
		err = h.egress.SendText(ctx, req.user.ID, caption, nil)
	}
	if err != nil {
		h.replyError(ctx, req, err)
	}
}
