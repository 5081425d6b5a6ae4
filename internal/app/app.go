// Package app wires all glidekey subsystems into a running application.
//
// The App struct owns the full lifecycle: New builds the learning store,
// the suggestion providers, the ranking engine and the HTTP surface; Run
// initialises the engine and serves until the context ends; Shutdown tears
// everything down in order.
//
// For testing, inject doubles via functional options (WithStore, WithAssets,
// WithProvider). When an option is not provided, New creates the real
// implementation from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWong99/glidekey/internal/classifier"
	"github.com/MrWong99/glidekey/internal/config"
	"github.com/MrWong99/glidekey/internal/glide"
	"github.com/MrWong99/glidekey/internal/health"
	"github.com/MrWong99/glidekey/internal/learnstore"
	"github.com/MrWong99/glidekey/internal/observe"
	"github.com/MrWong99/glidekey/internal/server"
	"github.com/MrWong99/glidekey/internal/smoothing"
	"github.com/MrWong99/glidekey/internal/suggestion"
	"github.com/MrWong99/glidekey/pkg/gesture"
	"github.com/MrWong99/glidekey/pkg/provider/suggest"
	"github.com/MrWong99/glidekey/pkg/provider/suggest/dictionary"
	"github.com/MrWong99/glidekey/pkg/provider/suggest/userlearn"
)

// readHeaderTimeout bounds how long a client may take to send headers.
const readHeaderTimeout = 10 * time.Second

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	assets    fs.FS
	store     learnstore.Store
	telemetry *observe.Telemetry
	metrics   *observe.Metrics
	level     *slog.LevelVar
	extra     map[string]config.ProviderFactory

	// Subsystems, initialised in New and torn down in Shutdown.
	user     *userlearn.Provider
	dict     *dictionary.Provider
	decoder  atomic.Pointer[classifier.Decoder]
	smoother *smoothing.Smoother
	engine   *suggestion.Engine
	server   *server.Server
	health   *health.Handler
	handler  http.Handler
	httpSrv  *http.Server

	initOnce sync.Once
	initErr  error

	// closers are called in order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a learning store instead of opening the configured one.
// The app closes it on Shutdown.
func WithStore(s learnstore.Store) Option {
	return func(a *App) { a.store = s }
}

// WithAssets sets the filesystem suggestion providers load their data from.
// Default: the configured assets directory, or an empty filesystem.
func WithAssets(fsys fs.FS) Option {
	return func(a *App) { a.assets = fsys }
}

// WithTelemetry exposes t's Prometheus registry on /metrics and records
// into t.Metrics.
func WithTelemetry(t *observe.Telemetry) Option {
	return func(a *App) { a.telemetry = t }
}

// WithMetrics overrides the metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithLogLevel lets configuration reloads adjust lv.
func WithLogLevel(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// WithProvider registers an additional provider factory, or replaces a
// built-in one with the same name.
func WithProvider(name string, f config.ProviderFactory) Option {
	return func(a *App) {
		if a.extra == nil {
			a.extra = make(map[string]config.ProviderFactory)
		}
		a.extra[name] = f
	}
}

// New creates an App by wiring all subsystems together. It opens the
// learning store but loads no suggestion data; that happens in [App.Init].
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		if a.telemetry != nil {
			a.metrics = a.telemetry.Metrics
		} else {
			a.metrics = observe.DefaultMetrics()
		}
	}
	if a.assets == nil {
		a.assets = assetsFS(cfg.Assets.Dir)
	}

	// ── 1. Learning store ────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	// ── 2. Providers + engine ────────────────────────────────────────────
	if err := a.initEngine(); err != nil {
		a.runClosers()
		return nil, fmt.Errorf("app: init engine: %w", err)
	}

	// ── 3. HTTP surface ──────────────────────────────────────────────────
	a.initHTTP()

	return a, nil
}

// assetsFS returns the assets directory as a filesystem. Without a
// directory the providers fall back to their built-in tables.
func assetsFS(dir string) fs.FS {
	if dir == "" {
		return emptyFS{}
	}
	return os.DirFS(dir)
}

type emptyFS struct{}

func (emptyFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

func (a *App) initStore(ctx context.Context) error {
	if a.store == nil {
		l := a.cfg.Learning
		s, err := learnstore.Open(ctx, learnstore.Options{
			Backend:      l.Backend,
			Path:         l.Path,
			DSN:          l.DSN,
			FallbackPath: l.FallbackPath,
			Metrics:      a.metrics,
		})
		if err != nil {
			return err
		}
		a.store = s
		slog.Info("learning store opened", "backend", l.Backend, "fallback", l.FallbackPath != "")
	}
	a.closers = append(a.closers, a.store.Close)
	return nil
}

func (a *App) initEngine() error {
	l := a.cfg.Learning
	a.user = userlearn.New(
		userlearn.WithStore(a.store),
		userlearn.WithLimits(l.MaxUnigrams, l.MaxContexts, l.MaxNextWords),
	)

	reg := config.NewRegistry()
	a.registerBuiltinProviders(reg)
	for name, f := range a.extra {
		reg.Register(name, f)
	}

	built := make(map[config.ProviderEntry]suggest.Provider)
	var learner suggest.Learner
	build := func(set string, entries []config.ProviderEntry) ([]suggest.Provider, error) {
		var out []suggest.Provider
		for _, e := range entries {
			p, ok := built[e]
			if !ok {
				var err error
				p, err = reg.Create(e)
				if errors.Is(err, config.ErrProviderNotRegistered) {
					slog.Warn("suggestion provider not registered, skipping", "set", set, "name", e.Name)
					continue
				}
				if err != nil {
					return nil, err
				}
				built[e] = p
				slog.Debug("suggestion provider created", "set", set, "name", e.Name)
			}
			// The learning provider wins over any other learner.
			if lr, ok := p.(suggest.Learner); ok && (learner == nil || p == suggest.Provider(a.user)) {
				learner = lr
			}
			out = append(out, p)
		}
		return out, nil
	}

	completion, err := build("completion", a.cfg.Engine.Completion)
	if err != nil {
		return err
	}
	nextWord, err := build("next_word", a.cfg.Engine.NextWord)
	if err != nil {
		return err
	}

	a.engine = suggestion.New(suggestion.Providers{
		Completion: completion,
		NextWord:   nextWord,
		Learner:    learner,
	},
		suggestion.WithAssets(a.assets),
		suggestion.WithLimit(a.cfg.Engine.MaxResults),
		suggestion.WithCacheSize(a.cfg.Engine.CacheSize),
		suggestion.WithMetrics(a.metrics),
	)
	return nil
}

func (a *App) initHTTP() {
	gcfg := a.cfg.Gesture.Resolve()
	a.smoother = smoothing.New()
	a.smoother.SetSensitivity(gcfg.Sensitivity)
	a.server = server.New(a.engine, a.newRecognizer, gcfg,
		server.WithMetrics(a.metrics),
		server.WithSmoother(a.smoother),
	)

	checks := []health.Checker{health.ReadyCheck("engine", a.engine)}
	if h, ok := a.store.(health.Healther); ok {
		checks = append(checks, health.HealthyCheck("learnstore", h))
	}
	a.health = health.New(checks)

	mux := http.NewServeMux()
	a.server.Register(mux)
	a.health.Register(mux)
	if a.telemetry != nil {
		mux.Handle("GET /metrics", a.telemetry.Handler())
	}
	a.handler = observe.Middleware(a.metrics)(mux)
}

// newRecognizer builds the classifier of one glide session. Once the
// dictionary is loaded, sessions decode against it.
func (a *App) newRecognizer(cfg gesture.Configuration) glide.Recognizer {
	opts := []classifier.Option{
		classifier.WithTolerance(cfg.KeyTolerance),
		classifier.WithConfidenceThreshold(cfg.ConfidenceThreshold),
	}
	if d := a.decoder.Load(); d != nil {
		opts = append(opts, classifier.WithDecoder(d))
	}
	return classifier.New(opts...)
}

// Handler returns the HTTP handler serving every route.
func (a *App) Handler() http.Handler { return a.handler }

// Engine returns the suggestion engine.
func (a *App) Engine() *suggestion.Engine { return a.engine }

// Smoother returns the path smoother shared by all glide sessions.
func (a *App) Smoother() *smoothing.Smoother { return a.smoother }

// Gesture returns the gesture configuration new glide sessions start with.
func (a *App) Gesture() gesture.Configuration { return a.server.Configuration() }

// Init loads the suggestion providers and the glide dictionary. Provider
// failures are logged and returned but leave the app usable. Only the first
// call does any work.
func (a *App) Init(ctx context.Context) error {
	a.initOnce.Do(func() {
		start := time.Now()
		a.initErr = a.engine.Init(ctx)
		if a.initErr != nil {
			slog.Warn("some suggestion providers failed to initialise", "err", a.initErr)
		}
		if a.dict != nil {
			d := classifier.NewDecoder(a.dict.Words())
			a.decoder.Store(d)
			slog.Info("glide dictionary loaded", "words", d.Len())
		}
		slog.Info("suggestion engine ready", "took", time.Since(start))
	})
	return a.initErr
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP on the configured address and blocks until ctx is
// cancelled or the listener fails. The engine is initialised in the
// background; /readyz reports when it is done.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve is like [App.Run] but serves on ln.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	a.httpSrv = &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() { _ = a.Init(ctx) }()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", ln.Addr().String(), "tls", a.cfg.Server.TLS != nil)
		if tls := a.cfg.Server.TLS; tls != nil {
			errCh <- a.httpSrv.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			errCh <- a.httpSrv.Serve(ln)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	}
}

// ─── Reload ──────────────────────────────────────────────────────────────────

// Reload applies hot-reloadable changes to the running app. It matches
// [config.ChangeFunc].
func (a *App) Reload(_, _ *config.Config, changes config.Changes) {
	for _, s := range changes.Settings {
		if lvl, ok := s.(config.LogLevel); ok && a.level != nil {
			a.level.Set(lvl.Level())
			slog.Info("log level changed", "level", string(lvl))
		}
	}

	cfg := config.Apply(a.server.Configuration(), changes.Settings...)
	if cfg != a.server.Configuration() {
		if err := a.server.SetConfiguration(cfg); err != nil {
			slog.Warn("gesture configuration rejected", "err", err)
		} else {
			a.smoother.SetSensitivity(cfg.Sensitivity)
			slog.Info("gesture configuration updated", "sessions", a.server.Sessions())
		}
	}

	if len(changes.RestartRequired) > 0 {
		slog.Warn("configuration changes need a restart to take effect", "keys", changes.RestartRequired)
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown stops the HTTP server, ends glide sessions and closes the store.
// It respects ctx for the HTTP drain and is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		a.server.Close()
		if a.httpSrv != nil {
			if err := a.httpSrv.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("http shutdown: %w", err))
			}
		}
		st := a.smoother.Stats()
		slog.Info("smoother stats", "paths", st.Paths, "fallbacks", st.Fallbacks, "avg", st.AverageTime())
		errs = append(errs, a.runClosers()...)
	})
	return errors.Join(errs...)
}

func (a *App) runClosers() []error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errs
}
