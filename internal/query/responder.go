// Package query answers free-form questions grounded in the stored records.
// The whole corpus is gathered, chunked, and map-reduced through the model.
package query

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"voxnote/internal/chunker"
	"voxnote/internal/llm"
	"voxnote/internal/model"
	"voxnote/internal/registry"
	"voxnote/internal/store"
)

// rowCap bounds how many rows are read per table. Oldest rows beyond the
// cap are dropped from the corpus so it stays within model context limits.
const rowCap = 500

// concurrentReads bounds parallel table reads.
const concurrentReads = 4

// ErrNoData is returned when no category table has any record.
var ErrNoData = errors.New("no records to search")

// Responder answers questions over the record corpus.
type Responder struct {
	gw      store.Gateway
	adapter llm.Adapter
	log     *zap.Logger
}

func New(gw store.Gateway, adapter llm.Adapter, log *zap.Logger) *Responder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Responder{gw: gw, adapter: adapter, log: log}
}

// Answer gathers the corpus and asks the model per chunk, then reduces
// multiple chunk answers into one. ErrNoData means there is nothing to
// ground an answer in; adapter failures surface so the caller can report
// that no answer could be produced instead of fabricating one.
func (r *Responder) Answer(ctx context.Context, question string) (string, error) {
	records, err := r.collectRecords(ctx)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", ErrNoData
	}
	r.log.Info("corpus gathered", zap.Int("records", len(records)))

	chunks := chunker.Chunk(records, chunker.DefaultOptions())
	var intermediate []string
	for _, chunk := range chunks {
		answer, err := r.adapter.Answer(ctx, question, chunk)
		if err != nil {
			return "", err
		}
		if answer = strings.TrimSpace(answer); answer != "" {
			intermediate = append(intermediate, answer)
		}
	}

	switch len(intermediate) {
	case 0:
		return "", ErrNoData
	case 1:
		return intermediate[0], nil
	}
	return r.adapter.Answer(ctx, question, strings.Join(intermediate, "\n\n---\n\n"))
}

// collectRecords reads every category table concurrently and formats each
// row as a one-line record. Table order is preserved so the corpus is
// deterministic.
func (r *Responder) collectRecords(ctx context.Context) ([]string, error) {
	tables, err := r.gw.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	perTable := make([][]string, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrentReads)

	for i, table := range tables {
		if registry.IsReserved(table) {
			continue
		}
		g.Go(func() error {
			header, err := r.gw.ReadHeader(gctx, table)
			if err != nil {
				return err
			}
			rows, err := r.gw.ReadRows(gctx, table, 0)
			if err != nil {
				return err
			}
			if len(rows) > rowCap {
				rows = rows[len(rows)-rowCap:]
			}
			records := make([]string, 0, len(rows))
			for _, row := range rows {
				if line := formatRecord(table, header, row.Values); line != "" {
					records = append(records, line)
				}
			}
			perTable[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []string
	for _, records := range perTable {
		out = append(out, records...)
	}
	return out, nil
}

// formatRecord renders a row as "[Table] Header: value; ...". Blank rows
// render as "".
func formatRecord(table string, header, row []string) string {
	blank := true
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			blank = false
			break
		}
	}
	if blank {
		return ""
	}

	pairs := make([]string, 0, len(header))
	for i, h := range header {
		value := ""
		if i < len(row) {
			value = row[i]
		}
		pairs = append(pairs, model.CleanHeader(h)+": "+value)
	}
	return "[" + table + "] " + strings.Join(pairs, "; ")
}
