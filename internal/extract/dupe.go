package extract

import (
	"context"
	"fmt"
	"strings"
)

// dupeScanLimit bounds how many recent rows are checked for duplicates.
const dupeScanLimit = 50

// findDuplicate scans the tail of the category table for a row whose
// summary or raw text matches the new one with a same-or-empty date.
// Returns a short preview of the match, or "".
func (e *Extractor) findDuplicate(ctx context.Context, category string, header, row []string) (string, error) {
	rows, err := e.gw.ReadRows(ctx, category, 0)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	if len(rows) > dupeScanLimit {
		rows = rows[len(rows)-dupeScanLimit:]
	}

	summaryNew := summaryValue(header, row)
	rawNew := valueByHeaders(header, row, rawTextHeaders)
	dateNew := valueByHeaders(header, row, dueDateHeaders)

	for i := len(rows) - 1; i >= 0; i-- {
		old := rows[i].Values
		summaryOld := summaryValue(header, old)
		rawOld := valueByHeaders(header, old, rawTextHeaders)
		dateOld := valueByHeaders(header, old, dueDateHeaders)

		if isDuplicate(summaryNew, rawNew, dateNew, summaryOld, rawOld, dateOld) {
			return duplicatePreview(header, old), nil
		}
	}
	return "", nil
}

func isDuplicate(summaryNew, rawNew, dateNew, summaryOld, rawOld, dateOld string) bool {
	if summaryNew != "" && summaryOld != "" && normalizeText(summaryNew) == normalizeText(summaryOld) {
		return sameOrEmpty(dateNew, dateOld)
	}
	if rawNew != "" && rawOld != "" && normalizeText(rawNew) == normalizeText(rawOld) {
		return sameOrEmpty(dateNew, dateOld)
	}
	return false
}

func sameOrEmpty(left, right string) bool {
	if left == "" || right == "" {
		return true
	}
	return normalizeText(left) == normalizeText(right)
}

func valueByHeaders(header, row []string, names map[string]bool) string {
	idx := findHeaderIndex(header, names)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// duplicatePreview renders the matched row for the confirmation prompt.
func duplicatePreview(header, row []string) string {
	var lines []string
	if date := valueByHeaders(header, row, dueDateHeaders); date != "" {
		lines = append(lines, "Дата: "+shorten(date, 80))
	}
	if summary := summaryValue(header, row); summary != "" {
		lines = append(lines, "Суть: "+shorten(summary, 80))
	}
	if raw := valueByHeaders(header, row, rawTextHeaders); raw != "" {
		lines = append(lines, "Текст: "+shorten(raw, 120))
	}
	if len(lines) == 0 {
		return "Похожая запись найдена."
	}
	return strings.Join(lines, "\n")
}

func shorten(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return fmt.Sprintf("%s...", strings.TrimRight(string(runes[:limit-3]), " "))
}
