// Package summary builds periodic digests over the log table and ships them
// on a schedule.
package summary

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"voxnote/internal/llm"
	"voxnote/internal/model"
	"voxnote/internal/registry"
	"voxnote/internal/store"
)

// Digest input bounds: at most maxNotes transcripts, each cut to noteRunes
// runes, keep the prompt within model context limits.
const (
	maxNotes  = 50
	noteRunes = 300
)

// Builder assembles daily and weekly digests from the log table.
type Builder struct {
	gw      store.Gateway
	adapter llm.Adapter
	log     *zap.Logger
}

func NewBuilder(gw store.Gateway, adapter llm.Adapter, log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{gw: gw, adapter: adapter, log: log}
}

// Daily builds the digest for a single day. Returns the digest text and the
// number of log entries it covers.
func (b *Builder) Daily(ctx context.Context, day time.Time) (string, int, error) {
	period := "за " + day.Format(model.DateLayout)
	return b.build(ctx, day, day, period)
}

// Weekly builds the digest for the seven days ending at end.
func (b *Builder) Weekly(ctx context.Context, end time.Time) (string, int, error) {
	start := end.AddDate(0, 0, -6)
	period := fmt.Sprintf("за период %s - %s", start.Format(model.DateLayout), end.Format(model.DateLayout))
	return b.build(ctx, start, end, period)
}

func (b *Builder) build(ctx context.Context, start, end time.Time, period string) (string, int, error) {
	entries, err := b.entriesInWindow(ctx, start, end)
	if err != nil {
		return "", 0, err
	}
	if len(entries) == 0 {
		return "Нет записей " + period + ".", 0, nil
	}

	stats := categoryStats(entries)
	header := fmt.Sprintf("Сводка %s\nЗаписей: %d\nКатегории: %s", period, len(entries), stats)

	notes := make([]string, 0, len(entries))
	for _, e := range entries {
		if text := strings.TrimSpace(e.SourceText); text != "" {
			if runes := []rune(text); len(runes) > noteRunes {
				text = string(runes[:noteRunes])
			}
			notes = append(notes, text)
		}
		if len(notes) == maxNotes {
			break
		}
	}

	digest, err := b.adapter.Digest(ctx, period, stats, notes)
	if err != nil {
		// Stats alone are still worth sending.
		b.log.Warn("digest generation failed, sending stats only", zap.Error(err))
		return header, len(entries), nil
	}
	if digest = strings.TrimSpace(digest); digest == "" {
		return header, len(entries), nil
	}
	return header + "\n\nРезюме:\n" + digest, len(entries), nil
}

func (b *Builder) entriesInWindow(ctx context.Context, start, end time.Time) ([]model.LogEntry, error) {
	rows, err := b.gw.ReadRows(ctx, registry.LogTable, 0)
	if errors.Is(err, store.ErrTableNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	startDay := truncateDay(start)
	endDay := truncateDay(end)

	var out []model.LogEntry
	for _, row := range rows {
		if len(row.Values) < 3 {
			continue
		}
		d := parseLogDate(row.Values[0])
		if d.IsZero() || d.Before(startDay) || d.After(endDay) {
			continue
		}
		out = append(out, model.LogEntry{
			Date:       row.Values[0],
			Category:   strings.TrimSpace(row.Values[1]),
			SourceText: row.Values[2],
		})
	}
	return out, nil
}

// categoryStats renders "Категория: count" pairs, most frequent first, names
// breaking ties.
func categoryStats(entries []model.LogEntry) string {
	counts := make(map[string]int)
	for _, e := range entries {
		name := e.Category
		if name == "" {
			name = "без категории"
		}
		counts[name]++
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %d", name, counts[name])
	}
	return strings.Join(parts, ", ")
}

func parseLogDate(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range []string{model.DateLayout, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
