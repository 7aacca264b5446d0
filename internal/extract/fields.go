package extract

import (
	"regexp"
	"strings"
	"time"

	"voxnote/internal/model"
)

var rawTextHeaders = map[string]bool{
	"сырой текст": true, "текст": true, "raw text": true, "original text": true, "исходный текст": true,
}

var summaryHeaders = map[string]bool{
	"суть": true, "описание": true, "summary": true,
}

var dueDateHeaders = map[string]bool{
	"дата выполнения": true, "дата": true, "date": true, "due date": true,
}

const dateAddedHeader = "дата добавления"

// findHeaderIndex returns the position of the first header whose clean,
// lowercased name is in names, or -1.
func findHeaderIndex(header []string, names map[string]bool) int {
	for i, raw := range header {
		if names[strings.ToLower(model.CleanHeader(raw))] {
			return i
		}
	}
	return -1
}

// headerIndex maps clean lowercased header names to column positions.
func headerIndex(header []string) map[string]int {
	out := make(map[string]int, len(header))
	for i, raw := range header {
		out[strings.ToLower(model.CleanHeader(raw))] = i
	}
	return out
}

// applyTextFields fills the raw-text column with the transcript and the
// summary column with a condensed form when the model left it empty or just
// echoed the transcript.
func applyTextFields(header, row []string, transcript string) []string {
	rawIdx := findHeaderIndex(header, rawTextHeaders)
	summaryIdx := findHeaderIndex(header, summaryHeaders)

	if rawIdx >= 0 && rawIdx < len(row) {
		row[rawIdx] = transcript
	}

	if summaryIdx >= 0 && summaryIdx < len(row) {
		current := strings.TrimSpace(row[summaryIdx])
		if current == "" || normalizeText(current) == normalizeText(transcript) {
			row[summaryIdx] = Summarize(transcript)
		}
	}
	return row
}

// applyDateFields stamps the date-added column with today and fills due-date
// columns from explicit or relative dates mentioned in the transcript.
func applyDateFields(header, row []string, transcript string, today time.Time) []string {
	todayStr := today.Format(model.DateLayout)
	for i, raw := range header {
		if strings.ToLower(model.CleanHeader(raw)) == dateAddedHeader && i < len(row) {
			row[i] = todayStr
		}
	}

	target := extractExplicitDate(transcript)
	if target.IsZero() {
		target = extractRelativeDate(transcript, today)
	}
	if target.IsZero() {
		return row
	}

	targetStr := target.Format(model.DateLayout)
	for i, raw := range header {
		if dueDateHeaders[strings.ToLower(model.CleanHeader(raw))] && i < len(row) {
			row[i] = targetStr
		}
	}
	return row
}

var explicitDateRe = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}|\d{4}-\d{2}-\d{2}`)

// extractExplicitDate finds a dd.mm.yyyy or yyyy-mm-dd date in the text.
func extractExplicitDate(text string) time.Time {
	match := explicitDateRe.FindString(text)
	if match == "" {
		return time.Time{}
	}
	return parseDateValue(match)
}

var weekdayStems = []struct {
	stem string
	day  time.Weekday
}{
	{"понед", time.Monday},
	{"втор", time.Tuesday},
	{"сред", time.Wednesday},
	{"четвер", time.Thursday},
	{"пятниц", time.Friday},
	{"суббот", time.Saturday},
	{"воскрес", time.Sunday},
}

// extractRelativeDate resolves day words ("завтра", weekday names) against
// today. "следующ..." shifts weekday matches into the next week.
func extractRelativeDate(text string, today time.Time) time.Time {
	lowered := strings.ToLower(text)
	switch {
	case strings.Contains(lowered, "послезавтра"):
		return today.AddDate(0, 0, 2)
	case strings.Contains(lowered, "завтра"):
		return today.AddDate(0, 0, 1)
	case strings.Contains(lowered, "сегодня"):
		return today
	}

	for _, w := range weekdayStems {
		if !strings.Contains(lowered, w.stem) {
			continue
		}
		// Weekday offsets count from Monday.
		weekday := int(w.day+6) % 7
		todayWD := int(today.Weekday()+6) % 7
		if strings.Contains(lowered, "следующ") {
			toNextMonday := 7 - todayWD
			return today.AddDate(0, 0, toNextMonday+weekday)
		}
		delta := (weekday - todayWD + 7) % 7
		return today.AddDate(0, 0, delta)
	}
	return time.Time{}
}

// parseDateValue parses the two accepted cell date formats.
func parseDateValue(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range []string{model.DateLayout, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// summaryValue returns the summary column value, if any.
func summaryValue(header, row []string) string {
	idx := findHeaderIndex(header, summaryHeaders)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

var summaryPrefixes = []string{
	"слушай", "а слушай", "мне надо", "мне нужно", "нужно",
	"я хочу", "хочу", "можешь пожалуйста", "можешь", "пожалуйста", "надо",
}

var summarySuffixes = []string{
	"можешь поставить задачку", "можешь поставить задачу",
	"поставь задачку", "поставь задачу",
	"добавь в задачи", "добавь задачу", "запомни это", "пожалуйста",
}

// Summarize strips conversational filler from a transcript and bounds the
// length. Used for summary columns and as a local fallback when the model
// cannot condense text.
func Summarize(text string) string {
	summary := strings.TrimSpace(text)
	if summary == "" {
		return summary
	}

	for changed := true; changed; {
		changed = false
		summary = strings.TrimLeft(summary, " ")
		lowered := strings.ToLower(summary)
		for _, pref := range summaryPrefixes {
			if strings.HasPrefix(lowered, pref) {
				summary = strings.TrimLeft(summary[len(pref):], " ,.-")
				changed = true
				break
			}
		}
	}

	lowered := strings.ToLower(summary)
	for _, suf := range summarySuffixes {
		if strings.HasSuffix(lowered, suf) {
			summary = strings.TrimRight(summary[:len(summary)-len(suf)], " ,.-")
			break
		}
	}

	summary = strings.Join(strings.Fields(summary), " ")
	if runes := []rune(summary); len(runes) > 160 {
		summary = strings.TrimRight(string(runes[:157]), " ") + "..."
	}
	if summary == "" {
		return text
	}
	return summary
}

// normalizeText lowercases and collapses whitespace for comparisons.
func normalizeText(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}
