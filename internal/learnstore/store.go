// Package learnstore persists the tables of the user learning provider.
//
// Three backends are available: a JSON file ([FileStore]), an embedded SQLite
// database ([SQLiteStore]) and PostgreSQL ([PostgresStore]). [Open] builds the
// configured backend and, when a fallback path is given, chains it with a
// file store through [Chain] so that learning survives a database outage.
//
// Every backend writes the complete tables on each Save. A Load from a backend
// that has never been written returns empty tables.
package learnstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrWong99/glidekey/internal/observe"
	"github.com/MrWong99/glidekey/internal/resilience"
	"github.com/MrWong99/glidekey/pkg/provider/suggest/userlearn"
	"github.com/MrWong99/glidekey/pkg/types"
)

// Store is a durable home for [types.UserTables].
type Store interface {
	userlearn.Store

	// Close releases the backend's resources.
	Close() error
}

// Backend names accepted by [Open].
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// ErrUnknownBackend is returned by [Open] for an unsupported backend name.
var ErrUnknownBackend = errors.New("learnstore: unknown backend")

// Options selects and configures a backend.
type Options struct {
	// Backend is one of [BackendFile], [BackendSQLite] or [BackendPostgres].
	Backend string

	// Path is the file or database path for the file and sqlite backends.
	Path string

	// DSN is the PostgreSQL connection string.
	DSN string

	// FallbackPath, if set, adds a JSON file store that takes over while the
	// primary backend fails.
	FallbackPath string

	// Breaker tunes the per-backend circuit breakers of the chain.
	Breaker resilience.CircuitBreakerConfig

	// Metrics receives per-call measurements. Default: observe.DefaultMetrics().
	Metrics *observe.Metrics
}

// Open creates the store described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.Metrics == nil {
		opts.Metrics = observe.DefaultMetrics()
	}

	primary, err := openBackend(ctx, opts)
	if err != nil {
		return nil, err
	}
	primary = Instrument(primary, opts.Backend, opts.Metrics)
	if opts.FallbackPath == "" {
		return primary, nil
	}

	chain := NewChain(primary, opts.Backend, opts.Breaker)
	chain.Add("fallback", Instrument(NewFileStore(opts.FallbackPath), "fallback", opts.Metrics))
	return chain, nil
}

func openBackend(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendFile:
		if opts.Path == "" {
			return nil, errors.New("learnstore: file backend needs a path")
		}
		return NewFileStore(opts.Path), nil
	case BackendSQLite:
		if opts.Path == "" {
			return nil, errors.New("learnstore: sqlite backend needs a path")
		}
		return OpenSQLite(ctx, opts.Path)
	case BackendPostgres:
		if opts.DSN == "" {
			return nil, errors.New("learnstore: postgres backend needs a dsn")
		}
		return ConnectPostgres(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// instrumented records the latency and outcome of every call.
type instrumented struct {
	Store
	backend string
	metrics *observe.Metrics
}

// Instrument wraps s so that every Load and Save is recorded under backend.
func Instrument(s Store, backend string, m *observe.Metrics) Store {
	return &instrumented{Store: s, backend: backend, metrics: m}
}

func (s *instrumented) Load(ctx context.Context) (types.UserTables, error) {
	start := time.Now()
	t, err := s.Store.Load(ctx)
	s.metrics.RecordStoreOp(ctx, s.backend, "load", err, time.Since(start).Seconds())
	return t, err
}

func (s *instrumented) Save(ctx context.Context, t types.UserTables) error {
	start := time.Now()
	err := s.Store.Save(ctx, t)
	s.metrics.RecordStoreOp(ctx, s.backend, "save", err, time.Since(start).Seconds())
	return err
}

// normalize replaces nil maps with empty ones.
func normalize(t types.UserTables) types.UserTables {
	if t.Unigrams == nil {
		t.Unigrams = make(map[string]types.UserWordData)
	}
	if t.Bigrams == nil {
		t.Bigrams = make(map[string]map[string]int)
	}
	return t
}
