package pipeline

import (
	"fmt"
	"strings"
)

// User-facing response strings. The transport layer sends them as-is.
const (
	msgAccessDenied    = "Доступ запрещен."
	msgRetryRouting    = "⚠️ Не получилось распознать команду. Попробуйте еще раз."
	msgCancelled       = "Ок, отменил."
	msgDeleteCancelled = "Удаление отменено."
	msgDeleteNotFound  = "⚠️ Не нашел записей для удаления."
	msgDeleteFailed    = "⚠️ Не удалось удалить запись."
	msgDeletedBoth     = "✅ Запись удалена из таблицы и Inbox."
	msgDeletedNoMirror = "✅ Запись удалена из таблицы. Inbox не найден."
	msgNoData          = "В базе пока нет данных для поиска."
	msgAnswerFailed    = "⚠️ Не получилось найти ответ. Попробуйте еще раз."
	msgThinkingKept    = "✅ Сохранено в «Прочее»."
	msgThinkingLogOnly = "⚠️ Таблица «Прочее» не найдена. Сохранил в Inbox."
	msgThinkingDropped = "Ок, ничего не сохраняю."
	msgDuplicateKept   = "Ок, не добавляю."
	msgProcessFailed   = "⚠️ Ошибка обработки сообщения. Сохранил текст в Inbox."
)

func savedMessage(category, summary string) string {
	return fmt.Sprintf("✅ Сохранено в '%s'.\nСуть: %s", category, summary)
}

func savedNoMirrorMessage(category string) string {
	return fmt.Sprintf("✅ Сохранено в '%s'. Inbox не обновился, запись в таблице на месте.", category)
}

func missingCategoryMessage(category string) string {
	return fmt.Sprintf("⚠️ Таблица для категории '%s' не найдена. Сохранил текст в Inbox.", category)
}

func clarifyPrompt(missing []string) string {
	return fmt.Sprintf(
		"Не хватает обязательных полей: %s.\n"+
			"Ответьте в формате Поле=Значение; Поле=Значение.\n"+
			"«пропустить» — сохранить как есть, «отмена» — не сохранять.",
		strings.Join(missing, ", "))
}

func duplicatePrompt(preview string) string {
	return "Похоже, такая запись уже есть:\n" + preview + "\n\nВсе равно добавить? (да/нет)"
}

func thinkingPrompt(blocks string) string {
	return blocks + "\n\nСохранить результат в «Прочее»? (да/нет)"
}

var yesReplies = map[string]bool{
	"да": true, "да.": true, "yes": true, "ок": true, "ok": true,
	"давай": true, "сохрани": true, "сохранить": true, "save": true,
}

var noReplies = map[string]bool{
	"нет": true, "no": true, "не сохранять": true, "не надо": true,
	"отмена": true, "cancel": true, "стоп": true,
}

func isYes(text string) bool {
	return yesReplies[strings.ToLower(strings.TrimSpace(text))]
}

func isNo(text string) bool {
	return noReplies[strings.ToLower(strings.TrimSpace(text))]
}
