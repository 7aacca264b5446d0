// Package registry reads category definitions and schemas from the store
// and caches them for a short TTL. Schemas rarely change mid-session, so
// re-deriving on expiry is enough; there is no invalidation protocol.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"voxnote/internal/model"
	"voxnote/internal/store"
)

// Reserved table names that never hold category records.
const (
	SettingsTable = "Settings"
	PromptsTable  = "Prompts"
	LogTable      = "Inbox"
)

// LogHeader is the header row of the global log table.
var LogHeader = []string{"Дата", "Категория", "Текст"}

// CatchAllHeader is the header row of the lazily created catch-all table.
var CatchAllHeader = []string{"Дата добавления", "Суть", "Текст"}

// ErrSchemaMissing is returned when the target category has no table.
var ErrSchemaMissing = errors.New("category has no table")

// IsReserved reports whether a table name is one of the service tables.
func IsReserved(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "settings", "prompts", "inbox", "botsettings":
		return true
	}
	return false
}

type cachedSchema struct {
	schema  *model.CategorySchema
	expires time.Time
}

// Registry caches category descriptions and schemas read from the gateway.
type Registry struct {
	gw  store.Gateway
	log *zap.Logger
	ttl time.Duration
	now func() time.Time

	mu         sync.Mutex
	schemas    map[string]cachedSchema
	categories map[string]string
	catExpires time.Time
}

// New creates a Registry with the given cache TTL.
func New(gw store.Gateway, ttl time.Duration, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		gw:      gw,
		log:     log,
		ttl:     ttl,
		now:     time.Now,
		schemas: make(map[string]cachedSchema),
	}
}

// Categories returns the category name -> description map from the Settings
// table. A missing Settings table yields an empty map, not an error.
func (r *Registry) Categories(ctx context.Context) (map[string]string, error) {
	r.mu.Lock()
	if r.categories != nil && r.now().Before(r.catExpires) {
		out := r.categories
		r.mu.Unlock()
		return out, nil
	}
	r.mu.Unlock()

	ok, err := r.gw.HasTable(ctx, SettingsTable)
	if err != nil {
		return nil, err
	}
	mapping := make(map[string]string)
	if ok {
		rows, err := r.gw.ReadRows(ctx, SettingsTable, 0)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if len(row.Values) == 0 {
				continue
			}
			name := strings.TrimSpace(row.Values[0])
			if name == "" || isSettingsHeader(name) {
				continue
			}
			desc := ""
			if len(row.Values) > 1 {
				desc = strings.TrimSpace(row.Values[1])
			}
			mapping[name] = desc
		}
	}

	r.mu.Lock()
	r.categories = mapping
	r.catExpires = r.now().Add(r.ttl)
	r.mu.Unlock()
	return mapping, nil
}

func isSettingsHeader(cell string) bool {
	switch strings.ToLower(cell) {
	case "category", "категория":
		return true
	}
	return false
}

// Canonical resolves a category name case-insensitively against the
// registry. Returns "" when the name is unknown.
func (r *Registry) Canonical(ctx context.Context, name string) (string, error) {
	cats, err := r.Categories(ctx)
	if err != nil {
		return "", err
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for canonical := range cats {
		if strings.ToLower(canonical) == want {
			return canonical, nil
		}
	}
	return "", nil
}

// Schema returns the CategorySchema for a category table, derived from its
// header row. ErrSchemaMissing is wrapped when the table does not exist.
func (r *Registry) Schema(ctx context.Context, category string) (*model.CategorySchema, error) {
	r.mu.Lock()
	if c, ok := r.schemas[category]; ok && r.now().Before(c.expires) {
		r.mu.Unlock()
		return c.schema, nil
	}
	r.mu.Unlock()

	header, err := r.gw.ReadHeader(ctx, category)
	if errors.Is(err, store.ErrTableNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSchemaMissing, category)
	}
	if err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("%w: %s has no header row", ErrSchemaMissing, category)
	}

	cats, err := r.Categories(ctx)
	if err != nil {
		return nil, err
	}

	schema := &model.CategorySchema{
		Name:        category,
		Description: cats[category],
		Columns:     make([]model.Column, 0, len(header)),
	}
	for _, raw := range header {
		schema.Columns = append(schema.Columns, model.ParseColumn(raw))
	}

	r.mu.Lock()
	r.schemas[category] = cachedSchema{schema: schema, expires: r.now().Add(r.ttl)}
	r.mu.Unlock()
	return schema, nil
}

// EnsureLogTable lazily creates the global log table.
func (r *Registry) EnsureLogTable(ctx context.Context) error {
	return r.gw.CreateTable(ctx, LogTable, LogHeader)
}

// EnsureCatchAll lazily creates the catch-all category table, used for
// unstructured input that fits no category.
func (r *Registry) EnsureCatchAll(ctx context.Context, name string) error {
	if err := r.gw.CreateTable(ctx, name, CatchAllHeader); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.schemas, name)
	r.mu.Unlock()
	return nil
}

// Prompts returns prompt overrides from the Prompts table (key in the first
// column, template in the second). Missing table means no overrides.
func (r *Registry) Prompts(ctx context.Context) (map[string]string, error) {
	ok, err := r.gw.HasTable(ctx, PromptsTable)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if !ok {
		return out, nil
	}
	rows, err := r.gw.ReadRows(ctx, PromptsTable, 0)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if len(row.Values) < 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(row.Values[0]))
		if key == "" || key == "key" || key == "ключ" {
			continue
		}
		out[key] = row.Values[1]
	}
	return out, nil
}
