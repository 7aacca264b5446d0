// Package thinking handles long-form input: the utterance is restructured
// into titled blocks and held for explicit confirmation before anything is
// written.
package thinking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"voxnote/internal/extract"
	"voxnote/internal/llm"
	"voxnote/internal/model"
	"voxnote/internal/registry"
	"voxnote/internal/store"
)

// thinkingLabel marks restructured entries in the date/category/text tables.
const thinkingLabel = "Thinking"

// Proposal is the pending payload of a thinking-mode confirmation.
type Proposal struct {
	Blocks     string
	Transcript string
	Summary    string
	Date       string
}

// Segmenter restructures long utterances and commits confirmed proposals.
type Segmenter struct {
	gw       store.Gateway
	reg      *registry.Registry
	adapter  llm.Adapter
	log      *zap.Logger
	now      func() time.Time
	catchAll string
}

func New(gw store.Gateway, reg *registry.Registry, adapter llm.Adapter, catchAll string, log *zap.Logger) *Segmenter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Segmenter{
		gw:       gw,
		reg:      reg,
		adapter:  adapter,
		log:      log,
		now:      time.Now,
		catchAll: catchAll,
	}
}

// Restructure condenses the transcript into titled blocks. When the model
// fails, a local fallback keeps the flow alive with the condensed transcript
// instead of losing the input.
func (s *Segmenter) Restructure(ctx context.Context, text string) *Proposal {
	r, err := s.adapter.Restructure(ctx, text)
	if err != nil || r == nil || r.Empty() {
		if err != nil {
			s.log.Warn("restructure failed, using local fallback", zap.Error(err))
		}
		r = &llm.Restructured{
			Summary: extract.Summarize(text),
			Other:   []string{text},
		}
	}

	blocks := FormatBlocks(r)
	if blocks == "" {
		blocks = text
	}
	return &Proposal{
		Blocks:     blocks,
		Transcript: text,
		Summary:    strings.TrimSpace(r.Summary),
		Date:       s.now().Format(model.DateLayout),
	}
}

// Commit writes a confirmed proposal into the catch-all table with a log
// mirror. When the catch-all table does not exist the entry goes to the log
// only; there is no schema to target. Returns whether the catch-all row was
// written.
func (s *Segmenter) Commit(ctx context.Context, p *Proposal) (bool, error) {
	saveText := p.Blocks
	if !strings.Contains(saveText, p.Transcript) {
		saveText = saveText + "\n\nСырой текст:\n" + p.Transcript
	}

	if err := s.reg.EnsureLogTable(ctx); err != nil {
		return false, err
	}

	recordID := model.NewRecordID()
	ok, err := s.gw.HasTable(ctx, s.catchAll)
	if err != nil {
		return false, err
	}
	if !ok {
		s.log.Warn("catch-all table missing, writing to log only",
			zap.String("table", s.catchAll))
		if err := s.gw.AppendRow(ctx, registry.LogTable, recordID, []string{p.Date, thinkingLabel, saveText}); err != nil {
			return false, fmt.Errorf("append to log: %w", err)
		}
		return false, nil
	}

	summary := p.Summary
	if summary == "" {
		summary = thinkingLabel
	}
	if err := s.gw.AppendRow(ctx, s.catchAll, recordID, []string{p.Date, summary, saveText}); err != nil {
		return false, fmt.Errorf("append to %q: %w", s.catchAll, err)
	}
	if err := s.gw.AppendRow(ctx, registry.LogTable, recordID, []string{p.Date, thinkingLabel, saveText}); err != nil {
		return false, fmt.Errorf("append log mirror: %w", err)
	}
	s.log.Info("thinking entry committed", zap.String("record_id", recordID))
	return true, nil
}

var blockSections = []struct {
	title string
	items func(r *llm.Restructured) []string
}{
	{"💡 Идеи", func(r *llm.Restructured) []string { return r.Ideas }},
	{"✅ Потенциальные задачи", func(r *llm.Restructured) []string { return r.Tasks }},
	{"💸 Траты", func(r *llm.Restructured) []string { return r.Expenses }},
	{"🗂️ Прочее", func(r *llm.Restructured) []string { return r.Other }},
}

// FormatBlocks renders the restructured thought as titled bullet blocks.
func FormatBlocks(r *llm.Restructured) string {
	var parts []string
	if summary := strings.TrimSpace(r.Summary); summary != "" {
		parts = append(parts, "Коротко: "+summary)
	}
	for _, section := range blockSections {
		items := section.items(r)
		clean := items[:0:0]
		for _, item := range items {
			if item = strings.TrimSpace(item); item != "" {
				clean = append(clean, item)
			}
		}
		if len(clean) == 0 {
			continue
		}
		parts = append(parts, "\n"+section.title)
		for _, item := range clean {
			parts = append(parts, "• "+item)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
