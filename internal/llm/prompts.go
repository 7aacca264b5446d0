package llm

import (
	"fmt"
	"sort"
	"strings"
)

// Prompt override keys looked up in the Prompts table.
const (
	RouterPromptKey  = "router_prompt"
	ExtractPromptKey = "extract_prompt"
)

const routerSystem = "Ты определяешь намерение пользователя и подходящую категорию. " +
	"Варианты действия: add (добавить запись), delete (удалить запись), ask (задать вопрос). " +
	"Отвечай строго JSON."

const defaultRouterUser = "Текст пользователя:\n{text}\n\n" +
	"Доступные категории:\n{categories}\n\n" +
	"Верни JSON: {\"action\": \"add|delete|ask\", \"category\": \"...\", \"query\": \"...\"}. " +
	"category — только для action=add, одно из названий выше. " +
	"query — поисковая фраза для delete или ask, иначе пустая строка."

const extractSystem = "Ты раскладываешь свободный текст по столбцам таблицы. " +
	"Заполняй только то, что явно следует из текста. Отвечай строго JSON."

const defaultExtractUser = "Текст:\n{text}\n\n" +
	"Столбцы: {headers}\n" +
	"Сегодня: {today}\n\n" +
	"Верни JSON, где ключи — названия столбцов, значения — извлеченные данные. " +
	"Неизвестные значения оставь пустыми строками."

const thinkingSystem = "Ты приводишь длинные устные размышления в порядок. Отвечай строго JSON."

const thinkingUser = "Текст:\n{text}\n\n" +
	"Верни JSON: {\"summary\": \"...\", \"ideas\": [], \"tasks\": [], \"expenses\": [], \"other\": []}. " +
	"summary — одно-два предложения. Списки заполняй только тем, что есть в тексте."

const answerSystem = "Ты помощник поиска по личной базе. " +
	"Отвечай кратко и по делу, с опорой на данные."

const answerUser = "Вопрос:\n{question}\n\nДанные (фрагмент):\n{corpus}\n\n" +
	"Дай краткий ответ и перечисли 3-7 самых релевантных записей."

const digestSystem = "Сделай краткую сводку по заметкам пользователя."

const digestUser = "Период: {period}\nСтатистика по категориям: {stats}\n\n" +
	"Заметки:\n{notes}\n\n" +
	"Сформируй 3-5 коротких пунктов резюме."

// formatCategories renders the (name, description) pairs as a stable
// bulleted list for prompts.
func formatCategories(categories map[string]string) string {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		if desc := categories[name]; desc != "" {
			fmt.Fprintf(&b, "- %s: %s\n", name, desc)
		} else {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// fillTemplate substitutes {key} placeholders without treating other braces
// in user-controlled templates as format directives.
func fillTemplate(template string, mapping map[string]string) string {
	out := template
	for key, value := range mapping {
		out = strings.ReplaceAll(out, "{"+key+"}", value)
	}
	return out
}
