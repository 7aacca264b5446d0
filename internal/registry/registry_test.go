package registry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"voxnote/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, store.Gateway) {
	t.Helper()
	g, err := store.NewSQLiteGateway(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return New(g, time.Minute, nil), g
}

func TestCategoriesFromSettings(t *testing.T) {
	ctx := context.Background()
	r, g := newTestRegistry(t)

	g.CreateTable(ctx, SettingsTable, []string{"Категория", "Описание"})
	g.AppendRow(ctx, SettingsTable, "", []string{"Категория", "Описание"})
	g.AppendRow(ctx, SettingsTable, "", []string{"Задачи", "дела и поручения"})
	g.AppendRow(ctx, SettingsTable, "", []string{"Траты", ""})
	g.AppendRow(ctx, SettingsTable, "", []string{"", "мусор без имени"})

	cats, err := r.Categories(ctx)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %v", cats)
	}
	if cats["Задачи"] != "дела и поручения" {
		t.Errorf("description lost: %q", cats["Задачи"])
	}

	canonical, err := r.Canonical(ctx, "задачи")
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	if canonical != "Задачи" {
		t.Errorf("expected canonical 'Задачи', got %q", canonical)
	}
	canonical, _ = r.Canonical(ctx, "Неизвестная")
	if canonical != "" {
		t.Errorf("expected empty canonical, got %q", canonical)
	}
}

func TestSchemaRequiredMarkers(t *testing.T) {
	ctx := context.Background()
	r, g := newTestRegistry(t)

	g.CreateTable(ctx, "Задачи", []string{"Приоритет*", "Заметка", "Дата "})

	schema, err := r.Schema(ctx, "Задачи")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if len(schema.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(schema.Columns))
	}
	if !schema.Columns[0].Required || schema.Columns[0].Header != "Приоритет" {
		t.Errorf("required marker not parsed: %+v", schema.Columns[0])
	}
	if schema.Columns[1].Required {
		t.Errorf("optional column marked required: %+v", schema.Columns[1])
	}
	if schema.Columns[2].Header != "Дата" {
		t.Errorf("header not trimmed: %q", schema.Columns[2].Header)
	}

	if _, err := r.Schema(ctx, "Нет такой"); !errors.Is(err, ErrSchemaMissing) {
		t.Errorf("expected ErrSchemaMissing, got %v", err)
	}
}

func TestSchemaCacheTTL(t *testing.T) {
	ctx := context.Background()
	r, g := newTestRegistry(t)

	g.CreateTable(ctx, "Задачи", []string{"Заметка"})

	base := time.Now()
	r.now = func() time.Time { return base }

	s1, err := r.Schema(ctx, "Задачи")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	// Second read inside the TTL window comes from cache.
	s2, _ := r.Schema(ctx, "Задачи")
	if s1 != s2 {
		t.Error("expected cached schema pointer")
	}

	r.now = func() time.Time { return base.Add(2 * time.Minute) }
	s3, _ := r.Schema(ctx, "Задачи")
	if s1 == s3 {
		t.Error("expected re-derived schema after TTL expiry")
	}
}

func TestEnsureTablesAndPrompts(t *testing.T) {
	ctx := context.Background()
	r, g := newTestRegistry(t)

	if err := r.EnsureLogTable(ctx); err != nil {
		t.Fatalf("ensure log: %v", err)
	}
	if err := r.EnsureCatchAll(ctx, "Прочее"); err != nil {
		t.Fatalf("ensure catch-all: %v", err)
	}
	ok, _ := g.HasTable(ctx, LogTable)
	if !ok {
		t.Error("log table not created")
	}

	prompts, err := r.Prompts(ctx)
	if err != nil {
		t.Fatalf("prompts: %v", err)
	}
	if len(prompts) != 0 {
		t.Errorf("expected no overrides, got %v", prompts)
	}

	g.CreateTable(ctx, PromptsTable, []string{"Key", "Value"})
	g.AppendRow(ctx, PromptsTable, "", []string{"Key", "Value"})
	g.AppendRow(ctx, PromptsTable, "", []string{"router_prompt", "custom {text}"})
	prompts, _ = r.Prompts(ctx)
	if prompts["router_prompt"] != "custom {text}" {
		t.Errorf("override lost: %v", prompts)
	}
}

func TestIsReserved(t *testing.T) {
	for _, name := range []string{"Settings", "prompts", "Inbox", " inbox "} {
		if !IsReserved(name) {
			t.Errorf("expected %q reserved", name)
		}
	}
	if IsReserved("Задачи") {
		t.Error("category table wrongly reserved")
	}
}
