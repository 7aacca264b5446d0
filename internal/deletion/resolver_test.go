package deletion

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"voxnote/internal/registry"
	"voxnote/internal/store"
)

func newTestResolver(t *testing.T) (*Resolver, store.Gateway) {
	t.Helper()
	g, err := store.NewSQLiteGateway(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return New(g, nil), g
}

func seedTask(t *testing.T, g store.Gateway, recordID string, values []string) {
	t.Helper()
	ctx := context.Background()
	g.CreateTable(ctx, "Задачи", []string{"Дата выполнения", "Суть", "Текст"})
	g.CreateTable(ctx, registry.LogTable, registry.LogHeader)
	if err := g.AppendRow(ctx, "Задачи", recordID, values); err != nil {
		t.Fatalf("seed row: %v", err)
	}
	if err := g.AppendRow(ctx, registry.LogTable, recordID, []string{values[0], "Задачи", values[2]}); err != nil {
		t.Fatalf("seed mirror: %v", err)
	}
}

func TestRankingAndDelete(t *testing.T) {
	ctx := context.Background()
	r, g := newTestResolver(t)
	seedTask(t, g, "rec-1", []string{"", "купить молоко", "надо купить молоко в магазине"})
	seedTask(t, g, "rec-2", []string{"", "позвонить маме", "не забыть молоко маме"})

	cands, err := r.FindCandidates(ctx, "удали запись про молоко магазин", "")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}
	if cands[0].RecordID != "rec-1" {
		t.Errorf("higher-scored row must rank first, got %s", cands[0].RecordID)
	}
	if cands[0].Score <= cands[1].Score {
		t.Errorf("scores not descending: %d <= %d", cands[0].Score, cands[1].Score)
	}

	idx, ok := ParseSelection("1", len(cands))
	if !ok || idx != 0 {
		t.Fatalf("selection parse: idx=%d ok=%v", idx, ok)
	}

	mirrorDeleted, err := r.Delete(ctx, cands[idx])
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !mirrorDeleted {
		t.Error("log mirror not removed")
	}

	rows, _ := g.ReadRows(ctx, "Задачи", 0)
	if len(rows) != 1 || rows[0].RecordID != "rec-2" {
		t.Errorf("wrong row survived: %v", rows)
	}
	logRows, _ := g.ReadRows(ctx, registry.LogTable, 0)
	if len(logRows) != 1 || logRows[0].RecordID != "rec-2" {
		t.Errorf("wrong mirror survived: %v", logRows)
	}
}

func TestTiesBrokenByRecency(t *testing.T) {
	ctx := context.Background()
	r, g := newTestResolver(t)
	seedTask(t, g, "old", []string{"", "молоко", "молоко"})
	seedTask(t, g, "new", []string{"", "молоко", "молоко"})

	cands, err := r.FindCandidates(ctx, "удали молоко", "")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(cands) != 2 || cands[0].RecordID != "new" {
		t.Errorf("most recent row must rank first on a tie: %v", cands)
	}
}

func TestNoMatch(t *testing.T) {
	ctx := context.Background()
	r, g := newTestResolver(t)
	seedTask(t, g, "rec-1", []string{"", "купить молоко", "купить молоко"})

	cands, err := r.FindCandidates(ctx, "удали запись про квартиру", "")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("expected no candidates, got %v", cands)
	}

	rows, _ := g.ReadRows(ctx, "Задачи", 0)
	logRows, _ := g.ReadRows(ctx, registry.LogTable, 0)
	if len(rows) != 1 || len(logRows) != 1 {
		t.Error("tables must stay unchanged on no match")
	}
}

func TestReservedTablesSkipped(t *testing.T) {
	ctx := context.Background()
	r, g := newTestResolver(t)
	g.CreateTable(ctx, registry.SettingsTable, []string{"Category", "Description"})
	g.AppendRow(ctx, registry.SettingsTable, "", []string{"молоко", "молоко"})
	g.CreateTable(ctx, registry.LogTable, registry.LogHeader)
	g.AppendRow(ctx, registry.LogTable, "", []string{"", "Задачи", "молоко"})

	cands, err := r.FindCandidates(ctx, "удали молоко", "")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("reserved tables must not yield candidates: %v", cands)
	}
}

func TestDateWindowFilter(t *testing.T) {
	ctx := context.Background()
	r, g := newTestResolver(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	seedTask(t, g, "yesterday", []string{"09.03.2026", "прогулка", "прогулка в парке"})
	seedTask(t, g, "week-ago", []string{"03.03.2026", "прогулка", "прогулка в лесу"})

	cands, err := r.FindCandidates(ctx, "удали всё за вчера", "")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(cands) != 1 || cands[0].RecordID != "yesterday" {
		t.Errorf("date window not applied: %v", cands)
	}
}

func TestDateWindowUsesCallerCalendarDay(t *testing.T) {
	ctx := context.Background()
	r, g := newTestResolver(t)
	// Shortly after local midnight the UTC day is still the previous one;
	// the window must follow the caller's calendar day.
	msk := time.FixedZone("MSK", 3*60*60)
	r.now = func() time.Time { return time.Date(2026, 8, 27, 1, 0, 0, 0, msk) }

	seedTask(t, g, "today", []string{"27.08.2026", "молоко", "купить молоко"})
	seedTask(t, g, "yesterday", []string{"26.08.2026", "молоко", "купить молоко вчера"})

	cands, err := r.FindCandidates(ctx, "удали молоко за сегодня", "")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(cands) != 1 || cands[0].RecordID != "today" {
		t.Errorf("same-local-day row must match: %v", cands)
	}
}

func TestCategoryHintRestrictsSearch(t *testing.T) {
	ctx := context.Background()
	r, g := newTestResolver(t)
	seedTask(t, g, "task", []string{"", "молоко", "молоко"})
	g.CreateTable(ctx, "Идеи", []string{"Суть"})
	g.AppendRow(ctx, "Идеи", "idea", []string{"молоко из овса"})

	cands, err := r.FindCandidates(ctx, "молоко", "Идеи")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(cands) != 1 || cands[0].Table != "Идеи" {
		t.Errorf("category hint ignored: %v", cands)
	}
}

func TestMirrorFallsBackToTupleMatch(t *testing.T) {
	ctx := context.Background()
	r, g := newTestResolver(t)
	g.CreateTable(ctx, "Задачи", []string{"Дата выполнения", "Суть", "Текст"})
	g.CreateTable(ctx, registry.LogTable, registry.LogHeader)
	// Mirror row carries no record id, as if written by an older version.
	g.AppendRow(ctx, "Задачи", "rec-1", []string{"", "купить молоко", "купить молоко"})
	g.AppendRow(ctx, registry.LogTable, "", []string{"", "Задачи", "купить молоко"})

	cands, err := r.FindCandidates(ctx, "удали молоко", "")
	if err != nil || len(cands) != 1 {
		t.Fatalf("find: %v %v", cands, err)
	}
	cand := cands[0]
	cand.RecordID = ""

	mirrorDeleted, err := r.Delete(ctx, cand)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !mirrorDeleted {
		t.Error("tuple fallback did not remove the mirror")
	}
	logRows, _ := g.ReadRows(ctx, registry.LogTable, 0)
	if len(logRows) != 0 {
		t.Errorf("mirror row survived: %v", logRows)
	}
}

func TestMissingMirrorIsWarningNotError(t *testing.T) {
	ctx := context.Background()
	r, g := newTestResolver(t)
	g.CreateTable(ctx, "Задачи", []string{"Суть"})
	g.CreateTable(ctx, registry.LogTable, registry.LogHeader)
	g.AppendRow(ctx, "Задачи", "rec-1", []string{"купить молоко"})

	cands, err := r.FindCandidates(ctx, "удали молоко", "")
	if err != nil || len(cands) != 1 {
		t.Fatalf("find: %v %v", cands, err)
	}
	mirrorDeleted, err := r.Delete(ctx, cands[0])
	if err != nil {
		t.Fatalf("delete must not fail on missing mirror: %v", err)
	}
	if mirrorDeleted {
		t.Error("no mirror existed, yet reported deleted")
	}
	rows, _ := g.ReadRows(ctx, "Задачи", 0)
	if len(rows) != 0 {
		t.Error("category row not deleted")
	}
}

func TestParseSelection(t *testing.T) {
	cases := []struct {
		reply string
		n     int
		idx   int
		ok    bool
	}{
		{"1", 3, 0, true},
		{" 3 ", 3, 2, true},
		{"4", 3, 0, false},
		{"0", 3, 0, false},
		{"отмена", 3, 0, false},
		{"первую", 3, 0, false},
	}
	for _, c := range cases {
		idx, ok := ParseSelection(c.reply, c.n)
		if idx != c.idx || ok != c.ok {
			t.Errorf("ParseSelection(%q, %d) = %d, %v; want %d, %v", c.reply, c.n, idx, ok, c.idx, c.ok)
		}
	}
}
