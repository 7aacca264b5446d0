package intent

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voxnote/internal/llm"
	"voxnote/internal/model"
	"voxnote/internal/registry"
	"voxnote/internal/store"
)

type fakeAdapter struct {
	intent model.Intent
	err    error
	calls  int
}

func (f *fakeAdapter) ClassifyIntent(ctx context.Context, text string, categories map[string]string) (model.Intent, error) {
	f.calls++
	return f.intent, f.err
}

func (f *fakeAdapter) ExtractFields(ctx context.Context, text string, columns []string, today string) (map[string]string, error) {
	return nil, nil
}

func (f *fakeAdapter) Restructure(ctx context.Context, text string) (*llm.Restructured, error) {
	return nil, nil
}

func (f *fakeAdapter) Answer(ctx context.Context, question, corpus string) (string, error) {
	return "", nil
}

func (f *fakeAdapter) Digest(ctx context.Context, period, stats string, notes []string) (string, error) {
	return "", nil
}

func newTestRouter(t *testing.T, fake *fakeAdapter) *Router {
	t.Helper()
	g, err := store.NewSQLiteGateway(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	t.Cleanup(func() { g.Close() })

	ctx := context.Background()
	g.CreateTable(ctx, registry.SettingsTable, []string{"Категория", "Описание"})
	g.AppendRow(ctx, registry.SettingsTable, "", []string{"Задачи", "дела"})
	g.AppendRow(ctx, registry.SettingsTable, "", []string{"Прочее", "все остальное"})

	reg := registry.New(g, time.Minute, nil)
	return NewRouter(fake, reg, "Прочее", nil)
}

func TestLongInputAlwaysRoutesToThinking(t *testing.T) {
	fake := &fakeAdapter{intent: model.Intent{Kind: model.IntentAdd, Category: "Задачи"}}
	r := newTestRouter(t, fake)
	ctx := context.Background()

	long := strings.Repeat("мысль ", DefaultThinkingChars/6+10)
	in, err := r.Route(ctx, long, 0)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if in.Kind != model.IntentThink {
		t.Errorf("expected think, got %v", in.Kind)
	}
	if fake.calls != 0 {
		t.Error("classifier must not run for long input")
	}

	in, _ = r.Route(ctx, "короткая мысль", DefaultThinkingSeconds)
	if in.Kind != model.IntentThink {
		t.Errorf("expected think at duration threshold, got %v", in.Kind)
	}
}

func TestShortInputNeverRoutesToThinking(t *testing.T) {
	fake := &fakeAdapter{intent: model.Intent{Kind: model.IntentAdd, Category: "Задачи"}}
	r := newTestRouter(t, fake)

	in, err := r.Route(context.Background(), "записать расход на обед", 30)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if in.Kind == model.IntentThink {
		t.Error("short input routed to thinking")
	}
}

func TestHeuristics(t *testing.T) {
	fake := &fakeAdapter{}
	r := newTestRouter(t, fake)
	ctx := context.Background()

	in, _ := r.Route(ctx, "удали задачу про молоко", 0)
	if in.Kind != model.IntentDelete {
		t.Errorf("expected delete, got %v", in.Kind)
	}
	in, _ = r.Route(ctx, "сколько я потратил в марте?", 0)
	if in.Kind != model.IntentAsk {
		t.Errorf("expected ask, got %v", in.Kind)
	}
	if fake.calls != 0 {
		t.Error("heuristic hits must not call the model")
	}
}

func TestUnknownCategoryFallsBackToCatchAll(t *testing.T) {
	fake := &fakeAdapter{intent: model.Intent{Kind: model.IntentAdd, Category: "Покупки"}}
	r := newTestRouter(t, fake)

	in, err := r.Route(context.Background(), "купил хлеб", 0)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if in.Kind != model.IntentAdd || in.Category != "Прочее" {
		t.Errorf("expected catch-all add, got %+v", in)
	}
}

func TestCategoryCanonicalization(t *testing.T) {
	fake := &fakeAdapter{intent: model.Intent{Kind: model.IntentAdd, Category: "задачи"}}
	r := newTestRouter(t, fake)

	in, _ := r.Route(context.Background(), "записать дело", 0)
	if in.Category != "Задачи" {
		t.Errorf("expected canonical 'Задачи', got %q", in.Category)
	}
}

func TestAdapterFailureSurfaces(t *testing.T) {
	fake := &fakeAdapter{err: llm.ErrAdapterUnavailable}
	r := newTestRouter(t, fake)

	_, err := r.Route(context.Background(), "записать дело", 0)
	if !errors.Is(err, llm.ErrAdapterUnavailable) {
		t.Errorf("expected ErrAdapterUnavailable, got %v", err)
	}
}
