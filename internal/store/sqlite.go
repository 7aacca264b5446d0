package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrTableNotFound is returned when an operation targets a missing table.
var ErrTableNotFound = errors.New("table not found")

// SQLiteGateway implements Gateway on a local SQLite database. Each logical
// table is a row in `tables` plus its cells in `table_rows`, so arbitrary
// user-defined headers need no DDL.
type SQLiteGateway struct {
	db *sql.DB
}

// NewSQLiteGateway opens or creates a SQLite database at the given path.
func NewSQLiteGateway(dbPath string) (*SQLiteGateway, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	g := &SQLiteGateway{db: db}
	if err := g.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return g, nil
}

func (g *SQLiteGateway) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tables (
		name       TEXT PRIMARY KEY,
		header     TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS table_rows (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		tbl        TEXT NOT NULL REFERENCES tables(name),
		record_id  TEXT,
		cells      TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rows_tbl ON table_rows(tbl);
	CREATE INDEX IF NOT EXISTS idx_rows_record ON table_rows(record_id);
	`
	_, err := g.db.Exec(schema)
	return err
}

func (g *SQLiteGateway) ListTables(ctx context.Context) ([]string, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT name FROM tables ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (g *SQLiteGateway) HasTable(ctx context.Context, name string) (bool, error) {
	var one int
	err := g.db.QueryRowContext(ctx, `SELECT 1 FROM tables WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (g *SQLiteGateway) CreateTable(ctx context.Context, name string, header []string) error {
	b, err := json.Marshal(header)
	if err != nil {
		return err
	}
	_, err = g.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO tables (name, header, created_at) VALUES (?, ?, ?)`,
		name, string(b), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("create table %q: %w", name, err)
	}
	return nil
}

func (g *SQLiteGateway) ReadHeader(ctx context.Context, table string) ([]string, error) {
	var raw string
	err := g.db.QueryRowContext(ctx, `SELECT header FROM tables WHERE name = ?`, table).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	if err != nil {
		return nil, err
	}
	var header []string
	if err := json.Unmarshal([]byte(raw), &header); err != nil {
		return nil, fmt.Errorf("decode header of %q: %w", table, err)
	}
	return header, nil
}

func (g *SQLiteGateway) ReadRows(ctx context.Context, table string, limit int) ([]Row, error) {
	if ok, err := g.HasTable(ctx, table); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	query := `SELECT id, record_id, cells, created_at FROM table_rows WHERE tbl = ? ORDER BY id`
	args := []interface{}{table}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var recordID sql.NullString
		var cells string
		if err := rows.Scan(&r.Handle, &recordID, &cells, &r.CreatedAt); err != nil {
			return nil, err
		}
		if recordID.Valid {
			r.RecordID = recordID.String
		}
		if err := json.Unmarshal([]byte(cells), &r.Values); err != nil {
			return nil, fmt.Errorf("decode row %d of %q: %w", r.Handle, table, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (g *SQLiteGateway) AppendRow(ctx context.Context, table string, recordID string, values []string) error {
	if ok, err := g.HasTable(ctx, table); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	b, err := json.Marshal(values)
	if err != nil {
		return err
	}
	var rid interface{}
	if recordID != "" {
		rid = recordID
	}
	_, err = g.db.ExecContext(ctx,
		`INSERT INTO table_rows (tbl, record_id, cells, created_at) VALUES (?, ?, ?, ?)`,
		table, rid, string(b), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append to %q: %w", table, err)
	}
	return nil
}

func (g *SQLiteGateway) DeleteRow(ctx context.Context, table string, handle int64) error {
	res, err := g.db.ExecContext(ctx, `DELETE FROM table_rows WHERE tbl = ? AND id = ?`, table, handle)
	if err != nil {
		return fmt.Errorf("delete from %q: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("row %d not found in %q", handle, table)
	}
	return nil
}

func (g *SQLiteGateway) Close() error {
	return g.db.Close()
}
