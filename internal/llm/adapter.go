// Package llm defines the language-model adapter consumed by the pipeline
// and its Gemini implementation. All retry and timeout policy lives here,
// around the call sites, so callers get a closed result or a typed error.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"voxnote/internal/model"
)

// ErrAdapterUnavailable is returned after bounded retries are exhausted or
// the model output cannot be parsed. Callers surface a user-visible retry
// request instead of guessing.
var ErrAdapterUnavailable = errors.New("language model unavailable")

// Restructured is the segmenter output for long-form input.
type Restructured struct {
	Summary  string   `json:"summary"`
	Ideas    []string `json:"ideas"`
	Tasks    []string `json:"tasks"`
	Expenses []string `json:"expenses"`
	Other    []string `json:"other"`
}

// Empty reports whether the restructuring produced nothing.
func (r *Restructured) Empty() bool {
	return r.Summary == "" && len(r.Ideas) == 0 && len(r.Tasks) == 0 &&
		len(r.Expenses) == 0 && len(r.Other) == 0
}

// Adapter is the language-model boundary. Calls are idempotent at the
// protocol level; implementations retry transient failures a bounded number
// of times before surfacing ErrAdapterUnavailable.
type Adapter interface {
	// ClassifyIntent decides what an utterance means given the category
	// descriptions. The returned category is raw model output and may need
	// canonicalization by the caller.
	ClassifyIntent(ctx context.Context, text string, categories map[string]string) (model.Intent, error)

	// ExtractFields maps an utterance onto the given columns, returning a
	// partial field map keyed by the model's spelling of the column names.
	ExtractFields(ctx context.Context, text string, columns []string, today string) (map[string]string, error)

	// Restructure condenses a long utterance into titled blocks.
	Restructure(ctx context.Context, text string) (*Restructured, error)

	// Answer produces a grounded answer to a question over a corpus chunk.
	Answer(ctx context.Context, question string, corpus string) (string, error)

	// Digest produces a short summary over log notes for a period.
	Digest(ctx context.Context, period string, stats string, notes []string) (string, error)
}

const (
	retryAttempts = 3
	retryBaseWait = 500 * time.Millisecond
)

// withRetry runs fn up to retryAttempts times with exponential backoff,
// then wraps the last error in ErrAdapterUnavailable.
func withRetry(ctx context.Context, log *zap.Logger, op string, fn func() error) error {
	var last error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			wait := retryBaseWait << (attempt - 1)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrAdapterUnavailable, ctx.Err())
			case <-time.After(wait):
			}
		}
		if last = fn(); last == nil {
			return nil
		}
		log.Warn("llm call failed",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Error(last))
	}
	return fmt.Errorf("%w: %s: %v", ErrAdapterUnavailable, op, last)
}
