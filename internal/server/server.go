// Package server exposes glidekey over HTTP.
//
// Routes:
//
//   - GET  /v1/glide: WebSocket pointer feed, one glide session per
//     connection (see [Server.ServeGlide]).
//   - POST /v1/suggest: ranked suggestions for a text context.
//   - POST /v1/learn: records a committed word.
//
// Health and metrics routes are registered by the caller on the same mux.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/MrWong99/glidekey/internal/glide"
	"github.com/MrWong99/glidekey/internal/observe"
	"github.com/MrWong99/glidekey/pkg/gesture"
	"github.com/MrWong99/glidekey/pkg/types"
)

// Engine is the suggestion engine surface the server needs.
// [suggestion.Engine] implements it.
type Engine interface {
	Ready() bool
	Suggest(ctx context.Context, sc types.SuggestionContext) []string
	Refine(ctx context.Context, word string) []string
	Learn(ctx context.Context, word, previous string) error
}

// RecognizerFactory returns a fresh recognizer for a new glide session.
type RecognizerFactory func(cfg gesture.Configuration) glide.Recognizer

// Option configures a [Server].
type Option func(*Server)

// WithMetrics overrides the metrics instance. Default: observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithSmoother sets the smoother handed to every glide session.
func WithSmoother(sm glide.Smoother) Option {
	return func(s *Server) { s.smoother = sm }
}

// WithLayout sets the key layout new sessions start with. Clients may
// replace it with a layout frame.
func WithLayout(l types.Layout) Option {
	return func(s *Server) { s.layout = l.Clone() }
}

// WithOriginPatterns allows cross-origin WebSocket clients whose Origin host
// matches one of patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) { s.origins = patterns }
}

// Server serves the glidekey API. It is safe for concurrent use.
type Server struct {
	engine        Engine
	newRecognizer RecognizerFactory
	smoother      glide.Smoother
	metrics       *observe.Metrics
	layout        types.Layout
	origins       []string

	mu       sync.Mutex
	cfg      gesture.Configuration
	sessions map[string]*session
	closed   bool
}

// New returns a server that builds one recognizer per glide session with
// newRecognizer and starts every session with cfg.
func New(engine Engine, newRecognizer RecognizerFactory, cfg gesture.Configuration, opts ...Option) *Server {
	s := &Server{
		engine:        engine,
		newRecognizer: newRecognizer,
		cfg:           cfg,
		sessions:      make(map[string]*session),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Register adds the API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/glide", s.ServeGlide)
	mux.HandleFunc("POST /v1/suggest", s.handleSuggest)
	mux.HandleFunc("POST /v1/learn", s.handleLearn)
}

// Configuration returns the gesture configuration new sessions start with.
func (s *Server) Configuration() gesture.Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetConfiguration validates cfg and applies it to new and live sessions.
func (s *Server) SetConfiguration(cfg gesture.Configuration) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	live := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	for _, sess := range live {
		if err := sess.orch.SetConfiguration(cfg); err != nil {
			slog.Debug("server: skip closed session", "session", sess.id, "err", err)
		}
	}
	return nil
}

// Sessions returns the number of open glide sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close ends every open glide session and rejects new ones.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	live := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	for _, sess := range live {
		sess.stop()
	}
}

func (s *Server) add(sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sessions[sess.id] = sess
	return true
}

func (s *Server) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
