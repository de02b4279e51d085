package texts

import "lessonbot/database"

func en(s string) *string { return &s }

// Default seed. InitializeDefaults inserts only the missing keys.
var defaults = []database.TextEntry{
	{Key: "welcome", Category: "welcome",
		ValueRU: "👋 Добро пожаловать! Здесь вы можете купить уроки за Stars.",
		ValueEN: en("👋 Welcome! Browse and buy lessons with Stars.")},
	{Key: "btn_catalog", Category: "buttons",
		ValueRU: "📚 Каталог", ValueEN: en("📚 Catalog")},
	{Key: "btn_my_lessons", Category: "buttons",
		ValueRU: "🎓 Мои уроки", ValueEN: en("🎓 My lessons")},
	{Key: "btn_support", Category: "buttons",
		ValueRU: "🆘 Поддержка", ValueEN: en("🆘 Support")},
	{Key: "btn_language", Category: "buttons",
		ValueRU: "🌍 Язык", ValueEN: en("🌍 Language")},
	{Key: "btn_buy", Category: "buttons",
		ValueRU: "💳 Купить за %d ⭐", ValueEN: en("💳 Buy for %d ⭐")},
	{Key: "btn_open", Category: "buttons",
		ValueRU: "▶️ Открыть урок", ValueEN: en("▶️ Open lesson")},
	{Key: "btn_cancel", Category: "buttons",
		ValueRU: "✖️ Отмена", ValueEN: en("✖️ Cancel")},
	{Key: "catalog_title", Category: "catalog",
		ValueRU: "📚 Каталог уроков", ValueEN: en("📚 Lesson catalog")},
	{Key: "catalog_empty", Category: "catalog",
		ValueRU: "Пока нет доступных уроков.", ValueEN: en("No lessons available yet.")},
	{Key: "lesson_free", Category: "catalog",
		ValueRU: "🆓 Бесплатно", ValueEN: en("🆓 Free")},
	{Key: "payment_success", Category: "success",
		ValueRU: "✅ Оплата прошла! Отправляю урок...",
		ValueEN: en("✅ Payment received! Sending your lesson...")},
	{Key: "payment_already_owned", Category: "payment",
		ValueRU: "Вы уже купили этот урок.", ValueEN: en("You already own this lesson.")},
	{Key: "support_prompt", Category: "support",
		ValueRU: "✍️ Опишите вашу проблему одним сообщением.",
		ValueEN: en("✍️ Describe your problem in one message.")},
	{Key: "support_created", Category: "support",
		ValueRU: "✅ Обращение %s создано. Мы ответим вам здесь.",
		ValueEN: en("✅ Ticket %s created. We will reply here.")},
	{Key: "support_reply", Category: "support",
		ValueRU: "💬 Ответ поддержки по обращению %s:\n\n%s",
		ValueEN: en("💬 Support reply on ticket %s:\n\n%s")},
	{Key: "support_reply_sent", Category: "support",
		ValueRU: "✅ Сообщение добавлено к %s.",
		ValueEN: en("✅ Message added to %s.")},
	{Key: "access_denied", Category: "errors",
		ValueRU: "⛔ Доступ запрещён.", ValueEN: en("⛔ Access denied.")},
	{Key: "error_generic", Category: "errors",
		ValueRU: "❌ Ошибка. Попробуйте позже.", ValueEN: en("❌ Error. Try again later.")},
	{Key: "error_not_found", Category: "errors",
		ValueRU: "Не найдено.", ValueEN: en("Not found.")},
	{Key: "cancelled", Category: "success",
		ValueRU: "Действие отменено.", ValueEN: en("Cancelled.")},
	{Key: "unknown_input", Category: "errors",
		ValueRU: "Не понимаю. Используйте меню или /start.",
		ValueEN: en("I don't understand. Use the menu or /start.")},
}
