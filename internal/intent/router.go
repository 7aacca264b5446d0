// Package intent classifies an utterance into the closed routing union.
// Cheap keyword heuristics run first; the language model decides the rest.
package intent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"voxnote/internal/llm"
	"voxnote/internal/model"
	"voxnote/internal/registry"
)

// DefaultThinkingChars is the transcript length at which input is treated
// as exploratory thinking rather than a single command.
const DefaultThinkingChars = 2500

// DefaultThinkingSeconds is the equivalent audio-duration threshold.
const DefaultThinkingSeconds = 120

var deleteMarkers = []string{"удали", "удалить", "убери", "отмени", "не надо", "remove", "delete"}

var askMarkers = []string{"вопрос", "спроси", "узнай", "что ", "как ", "почему", "?"}

// Router decides what an utterance means.
type Router struct {
	adapter  llm.Adapter
	registry *registry.Registry
	log      *zap.Logger

	// ThinkingChars and ThinkingSeconds are the long-input thresholds.
	ThinkingChars   int
	ThinkingSeconds int
	// CatchAll is the fallback category when the model names an unknown one.
	CatchAll string
}

// NewRouter creates a Router with default thresholds.
func NewRouter(adapter llm.Adapter, reg *registry.Registry, catchAll string, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		adapter:         adapter,
		registry:        reg,
		log:             log,
		ThinkingChars:   DefaultThinkingChars,
		ThinkingSeconds: DefaultThinkingSeconds,
		CatchAll:        catchAll,
	}
}

// Route classifies text. durationSeconds is the source audio length when
// known, 0 otherwise. Long input routes to thinking mode unconditionally,
// regardless of what a classifier would say.
func (r *Router) Route(ctx context.Context, text string, durationSeconds int) (model.Intent, error) {
	if durationSeconds >= r.ThinkingSeconds || len([]rune(text)) >= r.ThinkingChars {
		return model.Intent{Kind: model.IntentThink, Query: text}, nil
	}

	if in, ok := heuristic(text); ok {
		return in, nil
	}

	categories, err := r.registry.Categories(ctx)
	if err != nil {
		return model.Intent{Kind: model.IntentUnrecognized}, err
	}

	in, err := r.adapter.ClassifyIntent(ctx, text, categories)
	if err != nil {
		return model.Intent{Kind: model.IntentUnrecognized}, err
	}

	switch in.Kind {
	case model.IntentAdd, model.IntentUnrecognized:
		// An unknown or absent category falls back to the catch-all rather
		// than failing the whole message.
		canonical, err := r.registry.Canonical(ctx, in.Category)
		if err != nil {
			return model.Intent{Kind: model.IntentUnrecognized}, err
		}
		if canonical == "" {
			r.log.Debug("category not in registry, using catch-all",
				zap.String("category", in.Category))
			canonical = r.CatchAll
		}
		return model.Intent{Kind: model.IntentAdd, Category: canonical, Query: in.Query}, nil
	case model.IntentAsk, model.IntentDelete:
		if in.Query == "" {
			in.Query = text
		}
		return in, nil
	}
	return in, nil
}

// heuristic short-circuits clearly marked delete and ask utterances so an
// unavailable model never blocks the obvious cases.
func heuristic(text string) (model.Intent, bool) {
	lowered := strings.ToLower(text)
	for _, marker := range deleteMarkers {
		if strings.Contains(lowered, marker) {
			return model.Intent{Kind: model.IntentDelete, Query: text}, true
		}
	}
	for _, marker := range askMarkers {
		if strings.Contains(lowered, marker) {
			return model.Intent{Kind: model.IntentAsk, Query: text}, true
		}
	}
	return model.Intent{}, false
}
