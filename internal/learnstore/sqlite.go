package learnstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.

	"github.com/MrWong99/glidekey/pkg/types"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS learned_tables (
	name       TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// Row names in the learned_tables table.
const (
	rowUnigrams = "unigrams"
	rowBigrams  = "bigrams"
)

// SQLiteStore keeps the tables as two JSON rows of an embedded SQLite
// database. Both rows are replaced in one transaction.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("learnstore: sqlite: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("learnstore: sqlite: open %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serialises
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("learnstore: sqlite: migrate: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Load implements [Store].
func (s *SQLiteStore) Load(ctx context.Context) (types.UserTables, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, payload FROM learned_tables`)
	if err != nil {
		return types.UserTables{}, fmt.Errorf("learnstore: sqlite: load: %w", err)
	}
	defer rows.Close()

	t := types.NewUserTables()
	for rows.Next() {
		var name, payload string
		if err := rows.Scan(&name, &payload); err != nil {
			return types.UserTables{}, fmt.Errorf("learnstore: sqlite: scan: %w", err)
		}
		if err := decodeRow(&t, name, []byte(payload)); err != nil {
			return types.UserTables{}, fmt.Errorf("learnstore: sqlite: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return types.UserTables{}, fmt.Errorf("learnstore: sqlite: load: %w", err)
	}
	return normalize(t), nil
}

// Save implements [Store].
func (s *SQLiteStore) Save(ctx context.Context, t types.UserTables) (err error) {
	uni, bi, err := encodeRows(t)
	if err != nil {
		return fmt.Errorf("learnstore: sqlite: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("learnstore: sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const upsert = `INSERT INTO learned_tables (name, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`
	ts := s.now().UTC().Format(time.RFC3339Nano)
	for _, row := range []struct {
		name    string
		payload []byte
	}{{rowUnigrams, uni}, {rowBigrams, bi}} {
		if _, err = tx.ExecContext(ctx, upsert, row.name, string(row.payload), ts); err != nil {
			return fmt.Errorf("learnstore: sqlite: save %s: %w", row.name, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("learnstore: sqlite: commit: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements [Store].
func (s *SQLiteStore) Close() error { return s.db.Close() }

func encodeRows(t types.UserTables) (uni, bi []byte, err error) {
	t = normalize(t)
	if uni, err = json.Marshal(t.Unigrams); err != nil {
		return nil, nil, fmt.Errorf("encode %s: %w", rowUnigrams, err)
	}
	if bi, err = json.Marshal(t.Bigrams); err != nil {
		return nil, nil, fmt.Errorf("encode %s: %w", rowBigrams, err)
	}
	return uni, bi, nil
}

var errUnknownRow = errors.New("unknown row")

func decodeRow(t *types.UserTables, name string, payload []byte) error {
	var err error
	switch name {
	case rowUnigrams:
		err = json.Unmarshal(payload, &t.Unigrams)
	case rowBigrams:
		err = json.Unmarshal(payload, &t.Bigrams)
	default:
		return fmt.Errorf("%w %q", errUnknownRow, name)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
