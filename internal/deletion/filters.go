package deletion

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"voxnote/internal/model"
)

var tokenRe = regexp.MustCompile(`[a-zа-я0-9]+`)

// tokenize splits a lowered query into alphanumeric tokens longer than two
// runes.
func tokenize(text string) []string {
	var out []string
	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		if len([]rune(tok)) > 2 {
			out = append(out, tok)
		}
	}
	return out
}

var stopWords = map[string]bool{
	"удали": true, "удалить": true, "удалип": true, "удаление": true,
	"за": true, "последние": true, "последний": true, "последнюю": true, "последних": true,
	"день": true, "дня": true, "дней": true,
	"сегодня": true, "вчера": true, "позавчера": true,
	"задачи": true, "задача": true, "task": true, "tasks": true,
}

func dropStopWords(tokens []string) []string {
	var out []string
	for _, tok := range tokens {
		if !stopWords[tok] {
			out = append(out, tok)
		}
	}
	return out
}

// score counts query tokens contained in the row text.
func score(tokens []string, text string) int {
	if len(tokens) == 0 {
		return 0
	}
	lowered := strings.ToLower(text)
	n := 0
	for _, tok := range tokens {
		if strings.Contains(lowered, tok) {
			n++
		}
	}
	return n
}

// filters narrows the candidate search by table name and a date window.
type filters struct {
	tableKeywords []string
	startDate     time.Time
	endDate       time.Time
}

func (f filters) hasDates() bool { return !f.startDate.IsZero() }

func (f filters) matchesTable(name string) bool {
	if len(f.tableKeywords) == 0 {
		return true
	}
	lowered := strings.ToLower(strings.TrimSpace(name))
	for _, kw := range f.tableKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

var tableKeywordGroups = []struct {
	triggers []string
	keywords []string
}{
	{[]string{"задач", "task", "todo", "to-do"}, []string{"задач", "task"}},
	{[]string{"иде", "idea"}, []string{"иде", "idea"}},
	{[]string{"трат", "расход", "expense", "spend"}, []string{"трат", "расход", "expense", "spend"}},
}

var lastDaysRe = regexp.MustCompile(`(?:за\s+последн\w*|последн\w*|за\s+прошл\w*|last)\s+(\d+)\s*(?:дн\w*|days)`)

// inferFilters reads table hints and relative date windows out of the query.
func inferFilters(query string, today time.Time) filters {
	lowered := strings.ToLower(query)
	var f filters

	for _, group := range tableKeywordGroups {
		for _, trig := range group.triggers {
			if strings.Contains(lowered, trig) {
				f.tableKeywords = append(f.tableKeywords, group.keywords...)
				break
			}
		}
	}

	// Cell dates parse as UTC midnight of their calendar day, so the window
	// must start from the caller's calendar day, not the UTC day boundary.
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	switch {
	case strings.Contains(lowered, "позавчера"):
		f.startDate = day.AddDate(0, 0, -2)
		f.endDate = f.startDate
	case strings.Contains(lowered, "вчера"), strings.Contains(lowered, "yesterday"):
		f.startDate = day.AddDate(0, 0, -1)
		f.endDate = f.startDate
	default:
		if m := lastDaysRe.FindStringSubmatch(lowered); m != nil {
			days, _ := strconv.Atoi(m[1])
			if days < 1 {
				days = 1
			}
			if days > 365 {
				days = 365
			}
			f.startDate = day.AddDate(0, 0, -(days - 1))
			f.endDate = day
		} else if strings.Contains(lowered, "сегодня") || strings.Contains(lowered, "today") {
			f.startDate = day
			f.endDate = day
		}
	}
	return f
}

var dateHeaderPreference = []string{
	"дата выполнения", "дата", "дата добавления", "date", "due date",
}

// findDateIndex returns the position of the preferred date column, or -1.
func findDateIndex(header []string) int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(model.CleanHeader(h))
	}
	for _, want := range dateHeaderPreference {
		for i, h := range normalized {
			if h == want {
				return i
			}
		}
	}
	return -1
}

// rowInWindow checks the row's date column against the filter window. Rows
// without a parseable date are excluded when a window is active.
func rowInWindow(row []string, dateIdx int, f filters) bool {
	if dateIdx < 0 || dateIdx >= len(row) {
		return false
	}
	d := parseCellDate(row[dateIdx])
	if d.IsZero() {
		return false
	}
	return !d.Before(f.startDate) && !d.After(f.endDate)
}

func parseCellDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{model.DateLayout, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
