// Package extract maps utterances onto category schemas, drives the single
// clarification round for missing required fields, and commits records to
// the category table plus the mirrored log.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"voxnote/internal/llm"
	"voxnote/internal/model"
	"voxnote/internal/registry"
	"voxnote/internal/store"
)

// PartialWriteError reports a category row that was written while the
// mirrored log append failed. The category table stays authoritative; the
// orphaned row is named so it can be reconciled manually.
type PartialWriteError struct {
	Table    string
	RecordID string
	Values   []string
	Err      error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("log mirror write failed for %s row %s (%v): %v",
		e.Table, e.RecordID, e.Values, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

// Clarification is the payload of a pending clarification round.
type Clarification struct {
	Category   string
	Header     []string
	Row        []string
	SourceText string
	Missing    []string
	Date       string
}

// Duplicate is the payload of a pending duplicate confirmation.
type Duplicate struct {
	Category   string
	Header     []string
	Row        []string
	SourceText string
	Date       string
	Preview    string
}

// Commit describes a successfully written record.
type Commit struct {
	Record  model.NoteRecord
	Summary string
}

// Result is the outcome of an extraction step: exactly one field is set.
type Result struct {
	Committed *Commit
	Clarify   *Clarification
	Duplicate *Duplicate
}

// Extractor turns utterances into rows of a category table.
type Extractor struct {
	gw       store.Gateway
	reg      *registry.Registry
	adapter  llm.Adapter
	log      *zap.Logger
	now      func() time.Time
	catchAll string
}

// New creates an Extractor. catchAll names the fallback category whose
// table is created lazily on first use.
func New(gw store.Gateway, reg *registry.Registry, adapter llm.Adapter, catchAll string, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{
		gw:       gw,
		reg:      reg,
		adapter:  adapter,
		log:      log,
		now:      time.Now,
		catchAll: catchAll,
	}
}

// Extract maps text onto the category's schema. The result is either a
// committed record, a clarification request naming the empty required
// fields, or a duplicate hold.
func (e *Extractor) Extract(ctx context.Context, text, category string) (*Result, error) {
	schema, err := e.schemaFor(ctx, category)
	if err != nil {
		return nil, err
	}

	today := e.now()
	todayStr := today.Format(model.DateLayout)

	fields, err := e.adapter.ExtractFields(ctx, text, schema.Headers(), todayStr)
	if err != nil {
		return nil, err
	}

	header := rawHeader(schema)
	row := buildRow(schema, fields)
	row = applyTextFields(header, row, text)
	row = applyDateFields(header, row, text, today)

	missing := missingRequired(header, row)
	if len(missing) > 0 {
		names := make([]string, len(missing))
		for i, m := range missing {
			names[i] = m.Name
		}
		e.log.Info("clarification needed",
			zap.String("category", category),
			zap.Strings("missing", names))
		return &Result{Clarify: &Clarification{
			Category:   category,
			Header:     header,
			Row:        row,
			SourceText: text,
			Missing:    names,
			Date:       todayStr,
		}}, nil
	}

	return e.finish(ctx, category, header, row, text, todayStr)
}

// Resolve applies a clarification reply and commits. The protocol allows
// exactly one round: fields still missing afterwards are committed empty.
// cancelled is true when the reply was an explicit cancellation.
func (e *Extractor) Resolve(ctx context.Context, c *Clarification, reply string) (res *Result, cancelled bool, err error) {
	reply = strings.TrimSpace(reply)
	if isCancelReply(reply) {
		return nil, true, nil
	}

	row := append([]string(nil), c.Row...)
	if !isSkipReply(reply) {
		// Values for fields that were not flagged as missing are accepted
		// as overrides, not ignored.
		updates := parseKeyValues(reply, headerIndex(c.Header))
		if len(updates) == 0 && len(c.Missing) == 1 {
			missing := missingRequired(c.Header, row)
			if len(missing) == 1 {
				row[missing[0].Index] = reply
			}
		}
		for idx, value := range updates {
			if idx < len(row) {
				row[idx] = value
			}
		}
	}

	res, err = e.finish(ctx, c.Category, c.Header, row, c.SourceText, c.Date)
	return res, false, err
}

// ConfirmDuplicate commits a record the user chose to add anyway.
func (e *Extractor) ConfirmDuplicate(ctx context.Context, d *Duplicate) (*Result, error) {
	return e.commit(ctx, d.Category, d.Row, d.SourceText, d.Date)
}

// finish runs the duplicate check and commits when clean.
func (e *Extractor) finish(ctx context.Context, category string, header, row []string, text, date string) (*Result, error) {
	preview, err := e.findDuplicate(ctx, category, header, row)
	if err != nil {
		e.log.Warn("duplicate check failed", zap.String("category", category), zap.Error(err))
	}
	if preview != "" {
		return &Result{Duplicate: &Duplicate{
			Category:   category,
			Header:     header,
			Row:        row,
			SourceText: text,
			Date:       date,
			Preview:    preview,
		}}, nil
	}
	return e.commit(ctx, category, row, text, date)
}

// commit appends the category row, then the mirrored log entry. Both must
// succeed; a failed mirror surfaces PartialWriteError while the note itself
// is considered saved.
func (e *Extractor) commit(ctx context.Context, category string, row []string, text, date string) (*Result, error) {
	recordID := model.NewRecordID()

	if err := e.gw.AppendRow(ctx, category, recordID, row); err != nil {
		return nil, fmt.Errorf("append to %q: %w", category, err)
	}

	logErr := e.reg.EnsureLogTable(ctx)
	if logErr == nil {
		logErr = e.gw.AppendRow(ctx, registry.LogTable, recordID, []string{date, category, text})
	}
	if logErr != nil {
		return nil, &PartialWriteError{
			Table:    category,
			RecordID: recordID,
			Values:   row,
			Err:      logErr,
		}
	}

	header, err := e.gw.ReadHeader(ctx, category)
	if err != nil {
		header = nil
	}
	summary := summaryValue(header, row)
	if summary == "" {
		summary = Summarize(text)
	}

	e.log.Info("record committed",
		zap.String("category", category),
		zap.String("record_id", recordID))
	return &Result{Committed: &Commit{
		Record: model.NoteRecord{
			ID:         recordID,
			Category:   category,
			Values:     row,
			CreatedAt:  e.now(),
			SourceText: text,
		},
		Summary: summary,
	}}, nil
}

// schemaFor resolves the schema, lazily creating the catch-all table.
func (e *Extractor) schemaFor(ctx context.Context, category string) (*model.CategorySchema, error) {
	schema, err := e.reg.Schema(ctx, category)
	if err == nil {
		return schema, nil
	}
	if category == e.catchAll {
		if cerr := e.reg.EnsureCatchAll(ctx, category); cerr != nil {
			return nil, cerr
		}
		return e.reg.Schema(ctx, category)
	}
	return nil, err
}

// rawHeader rebuilds the raw header cells (markers intact) from a schema.
func rawHeader(schema *model.CategorySchema) []string {
	out := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		out[i] = c.Header
		if c.Required {
			out[i] += model.RequiredMarker
		}
	}
	return out
}

// buildRow shapes the extracted field map to the schema's column order.
// Keys are matched case-insensitively; absent columns become "".
func buildRow(schema *model.CategorySchema, fields map[string]string) []string {
	normalized := make(map[string]string, len(fields))
	for key, value := range fields {
		normalized[strings.ToLower(strings.TrimSpace(key))] = value
	}

	row := make([]string, len(schema.Columns))
	for i, col := range schema.Columns {
		row[i] = strings.TrimSpace(normalized[strings.ToLower(col.Header)])
	}
	return row
}
