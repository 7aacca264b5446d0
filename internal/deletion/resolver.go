// Package deletion finds and ranks records matching a free-form deletion
// request and removes the chosen row together with its log mirror.
package deletion

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"voxnote/internal/model"
	"voxnote/internal/registry"
	"voxnote/internal/store"
)

// topK bounds the candidate list shown to the user.
const topK = 5

const previewLimit = 400

// Candidate is one ranked deletion target.
type Candidate struct {
	Table    string
	Handle   int64
	RecordID string
	Header   []string
	Values   []string
	Preview  string
	Score    int
}

// Resolver searches category tables for rows matching a deletion query.
type Resolver struct {
	gw  store.Gateway
	log *zap.Logger
	now func() time.Time
}

func New(gw store.Gateway, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{gw: gw, log: log, now: time.Now}
}

// FindCandidates ranks rows across category tables against the query. When
// category names a table, only that table is searched. Scoring is lexical
// token containment; ties go to the more recent row. At most topK candidates
// are returned, in rank order.
func (r *Resolver) FindCandidates(ctx context.Context, query, category string) ([]Candidate, error) {
	tables, err := r.gw.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	tokens := dropStopWords(tokenize(query))
	f := inferFilters(query, r.now())

	var found []Candidate
	for _, table := range tables {
		if registry.IsReserved(table) {
			continue
		}
		if category != "" && !strings.EqualFold(table, category) {
			continue
		}
		if category == "" && !f.matchesTable(table) {
			continue
		}

		header, err := r.gw.ReadHeader(ctx, table)
		if err != nil {
			r.log.Warn("skip table", zap.String("table", table), zap.Error(err))
			continue
		}
		rows, err := r.gw.ReadRows(ctx, table, 0)
		if err != nil {
			r.log.Warn("skip table", zap.String("table", table), zap.Error(err))
			continue
		}

		dateIdx := findDateIndex(header)
		for _, row := range rows {
			if isBlank(row.Values) {
				continue
			}
			if f.hasDates() && !rowInWindow(row.Values, dateIdx, f) {
				continue
			}
			s := score(tokens, rowText(header, row.Values))
			if len(tokens) > 0 {
				if s == 0 {
					continue
				}
			} else {
				// A bare "delete everything from yesterday" has no
				// content tokens; filters alone qualify the row.
				if !f.hasDates() && len(f.tableKeywords) == 0 && category == "" {
					continue
				}
				s = 1
			}
			found = append(found, Candidate{
				Table:    table,
				Handle:   row.Handle,
				RecordID: row.RecordID,
				Header:   header,
				Values:   row.Values,
				Preview:  makePreview(table, header, row.Values),
				Score:    s,
			})
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Score != found[j].Score {
			return found[i].Score > found[j].Score
		}
		return found[i].Handle > found[j].Handle
	})
	if len(found) > topK {
		found = found[:topK]
	}
	return found, nil
}

// Delete removes the candidate's category row and its log mirror. The log
// side is correlated by record id first, then by (category, date, text)
// matching. A missing mirror is a consistency warning, not an error; the
// second return value reports whether the mirror was removed.
func (r *Resolver) Delete(ctx context.Context, c Candidate) (bool, error) {
	if err := r.gw.DeleteRow(ctx, c.Table, c.Handle); err != nil {
		return false, fmt.Errorf("delete from %q: %w", c.Table, err)
	}

	mirrorDeleted, err := r.deleteMirror(ctx, c)
	if err != nil {
		r.log.Warn("log mirror lookup failed", zap.String("table", c.Table), zap.Error(err))
		return false, nil
	}
	if !mirrorDeleted {
		r.log.Warn("log mirror not found for deleted row",
			zap.String("table", c.Table),
			zap.String("record_id", c.RecordID))
	}
	return mirrorDeleted, nil
}

func (r *Resolver) deleteMirror(ctx context.Context, c Candidate) (bool, error) {
	rows, err := r.gw.ReadRows(ctx, registry.LogTable, 0)
	if err != nil {
		return false, err
	}

	if c.RecordID != "" {
		for _, row := range rows {
			if row.RecordID == c.RecordID {
				return true, r.gw.DeleteRow(ctx, registry.LogTable, row.Handle)
			}
		}
	}

	// Fallback: best-effort tuple matching against the mirror columns
	// [date, category, text].
	targetDate := dateValue(c.Header, c.Values)
	candidateTokens := tokenize(strings.Join(c.Values, " "))

	bestScore := 0
	var bestHandle int64 = -1
	for _, row := range rows {
		if len(row.Values) < 3 {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(row.Values[1]), c.Table) {
			continue
		}
		if targetDate != "" && strings.TrimSpace(row.Values[0]) != targetDate {
			continue
		}
		if s := score(candidateTokens, row.Values[2]); s > bestScore {
			bestScore = s
			bestHandle = row.Handle
		}
	}
	if bestHandle < 0 {
		return false, nil
	}
	return true, r.gw.DeleteRow(ctx, registry.LogTable, bestHandle)
}

// ParseSelection interprets a confirmation reply as a one-based index into a
// list of n candidates. Anything else, out-of-range included, means the user
// abandoned the deletion.
func ParseSelection(reply string, n int) (int, bool) {
	idx, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil || idx < 1 || idx > n {
		return 0, false
	}
	return idx - 1, true
}

// FormatList renders the numbered candidate list for the user.
func FormatList(candidates []Candidate) string {
	var b strings.Builder
	b.WriteString("Выберите запись для удаления (ответьте номером):\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.Preview)
	}
	return b.String()
}

func isBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func rowText(header, row []string) string {
	parts := make([]string, 0, len(header))
	for i, h := range header {
		value := ""
		if i < len(row) {
			value = row[i]
		}
		parts = append(parts, model.CleanHeader(h)+": "+value)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func makePreview(table string, header, row []string) string {
	var pairs []string
	for i, h := range header {
		if i < len(row) && strings.TrimSpace(row[i]) != "" {
			pairs = append(pairs, model.CleanHeader(h)+": "+row[i])
		}
	}
	preview := strings.Join(pairs, "; ")
	if runes := []rune(preview); len(runes) > previewLimit {
		preview = string(runes[:previewLimit-3]) + "..."
	}
	return "[" + table + "] " + preview
}

func dateValue(header, row []string) string {
	idx := findDateIndex(header)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
