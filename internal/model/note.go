// Package model defines the core note data types.
package model

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// RequiredMarker is the reserved trailing character that marks a column
// header as required. It is stripped when the field name is shown to users.
const RequiredMarker = "*"

// Column is one column of a category table.
type Column struct {
	Header   string `json:"header"`
	Required bool   `json:"required"`
}

// CategorySchema describes one category table: its name, the free-text
// description used for intent classification, and the ordered columns
// derived from the table's header row.
type CategorySchema struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Columns     []Column `json:"columns"`
}

// Headers returns the clean column names in order.
func (s *CategorySchema) Headers() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Header
	}
	return out
}

// RequiredIndexes returns the positions of required columns.
func (s *CategorySchema) RequiredIndexes() []int {
	var out []int
	for i, c := range s.Columns {
		if c.Required {
			out = append(out, i)
		}
	}
	return out
}

// ParseColumn derives a Column from a raw header cell.
func ParseColumn(raw string) Column {
	trimmed := strings.TrimSpace(raw)
	if strings.HasSuffix(trimmed, RequiredMarker) {
		return Column{
			Header:   strings.TrimSpace(strings.TrimSuffix(trimmed, RequiredMarker)),
			Required: true,
		}
	}
	return Column{Header: trimmed}
}

// CleanHeader strips the required marker from a raw header cell.
func CleanHeader(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, RequiredMarker, ""))
}

// NoteRecord is a committed (or about-to-commit) structured note. Values
// follow the schema's column order; unset optional fields are empty strings,
// never absent, so the row shape always matches the header count.
type NoteRecord struct {
	ID         string    `json:"id"`
	Category   string    `json:"category"`
	Values     []string  `json:"values"`
	CreatedAt  time.Time `json:"created_at"`
	SourceText string    `json:"source_text"`
}

// LogEntry is the mirrored projection of a NoteRecord in the global log
// table. Correlation with the category row uses the synthetic record ID
// when present, falling back to the (category, createdAt, sourceText) tuple.
type LogEntry struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	Category   string `json:"category"`
	SourceText string `json:"source_text"`
}

// DateLayout is the user-facing date format used in table cells.
const DateLayout = "02.01.2006"

// NewRecordID returns a fresh synthetic record identifier. The store keeps
// it in a hidden column so deletion can correlate mirrored rows exactly.
func NewRecordID() string {
	return ulid.Make().String()
}
