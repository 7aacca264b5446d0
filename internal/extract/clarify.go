package extract

import (
	"strings"

	"voxnote/internal/model"
)

// Missing is one empty required column.
type Missing struct {
	Index int
	Name  string
}

// missingRequired lists required columns whose value is empty.
func missingRequired(header, row []string) []Missing {
	var out []Missing
	for i, raw := range header {
		if !strings.HasSuffix(strings.TrimSpace(raw), model.RequiredMarker) {
			continue
		}
		value := ""
		if i < len(row) {
			value = row[i]
		}
		if strings.TrimSpace(value) == "" {
			out = append(out, Missing{Index: i, Name: model.CleanHeader(raw)})
		}
	}
	return out
}

var cancelReplies = map[string]bool{
	"отмена": true, "cancel": true, "стоп": true,
}

var skipReplies = map[string]bool{
	"off": true, "пропустить": true, "skip": true,
}

func isCancelReply(text string) bool {
	return cancelReplies[strings.ToLower(strings.TrimSpace(text))]
}

func isSkipReply(text string) bool {
	return skipReplies[strings.ToLower(strings.TrimSpace(text))]
}

// parseKeyValues parses a clarification reply of `Field=Value; Field=Value`
// lines (also accepting `:` and ` - ` separators) against known headers.
// Unrecognized field names are ignored.
func parseKeyValues(text string, headers map[string]int) map[int]string {
	result := make(map[int]string)

	var lines []string
	for _, part := range strings.Split(text, ";") {
		for _, line := range strings.Split(part, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
	}

	for _, line := range lines {
		var key, value string
		switch {
		case strings.Contains(line, ":"):
			key, value, _ = strings.Cut(line, ":")
		case strings.Contains(line, "="):
			key, value, _ = strings.Cut(line, "=")
		case strings.Contains(line, " - "):
			key, value, _ = strings.Cut(line, " - ")
		default:
			continue
		}
		norm := strings.ToLower(model.CleanHeader(key))
		if idx, ok := headers[norm]; ok {
			result[idx] = strings.TrimSpace(value)
		}
	}
	return result
}
