package learnstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/glidekey/pkg/types"
)

// PostgresSchema is the DDL applied by [PostgresStore.Migrate].
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS learned_tables (
    name       TEXT PRIMARY KEY,
    payload    JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy it.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore keeps the tables as two JSONB rows.
type PostgresStore struct {
	db    DB
	close func()
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore returns a store over db. The caller owns db and must run
// [PostgresStore.Migrate] before the first call.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ConnectPostgres opens a connection pool for dsn, verifies it and applies
// the schema. Close releases the pool.
func ConnectPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("learnstore: postgres: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("learnstore: postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("learnstore: postgres: ping: %w", err)
	}
	s := &PostgresStore{db: pool, close: pool.Close}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies [PostgresSchema].
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("learnstore: postgres: migrate: %w", err)
	}
	return nil
}

// Load implements [Store].
func (s *PostgresStore) Load(ctx context.Context) (types.UserTables, error) {
	rows, err := s.db.Query(ctx, `SELECT name, payload FROM learned_tables`)
	if err != nil {
		return types.UserTables{}, fmt.Errorf("learnstore: postgres: load: %w", err)
	}
	defer rows.Close()

	t := types.NewUserTables()
	for rows.Next() {
		var (
			name    string
			payload []byte
		)
		if err := rows.Scan(&name, &payload); err != nil {
			return types.UserTables{}, fmt.Errorf("learnstore: postgres: scan: %w", err)
		}
		if err := decodeRow(&t, name, payload); err != nil {
			return types.UserTables{}, fmt.Errorf("learnstore: postgres: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return types.UserTables{}, fmt.Errorf("learnstore: postgres: load: %w", err)
	}
	return normalize(t), nil
}

// Save implements [Store]. Both rows are written in one transaction.
func (s *PostgresStore) Save(ctx context.Context, t types.UserTables) error {
	uni, bi, err := encodeRows(t)
	if err != nil {
		return fmt.Errorf("learnstore: postgres: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("learnstore: postgres: begin: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	const upsert = `
		INSERT INTO learned_tables (name, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
	if _, err := tx.Exec(ctx, upsert, rowUnigrams, uni); err != nil {
		return fmt.Errorf("learnstore: postgres: save %s: %w", rowUnigrams, err)
	}
	if _, err := tx.Exec(ctx, upsert, rowBigrams, bi); err != nil {
		return fmt.Errorf("learnstore: postgres: save %s: %w", rowBigrams, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("learnstore: postgres: commit: %w", err)
	}
	return nil
}

// Close implements [Store]. It closes the pool opened by [ConnectPostgres];
// a store created with [NewPostgresStore] leaves db to its owner.
func (s *PostgresStore) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
