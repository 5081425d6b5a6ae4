// Package glide drives glide typing from raw pointer events.
//
// An [Orchestrator] owns the gesture of one input surface. It forwards samples
// to a [Recognizer] on the caller's goroutine and computes suggestions on a
// single background worker, so slow recognition never blocks input handling.
// Results reach the caller through [Callbacks], marshalled by a [Dispatcher].
//
// Every gesture carries a generation number. Starting a new gesture or
// cancelling the current one bumps the generation, and results computed for an
// older generation are dropped instead of delivered.
package glide

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/glidekey/internal/observe"
	"github.com/MrWong99/glidekey/internal/smoothing"
	"github.com/MrWong99/glidekey/pkg/gesture"
	"github.com/MrWong99/glidekey/pkg/types"
)

// ErrClosed is returned by [Orchestrator.SetConfiguration] after Close.
var ErrClosed = errors.New("glide: orchestrator closed")

// jobQueueSize bounds the number of pending worker jobs.
const jobQueueSize = 16

// Recognizer turns samples into word candidates. It must be safe for
// concurrent use: Suggest runs on the worker while samples keep arriving.
// [classifier.Classifier] implements it.
type Recognizer interface {
	SetLayout(types.Layout)
	AddPoint(types.TouchPoint)
	Suggest(maxCount int, complete bool) []string
	Clear()
}

// Smoother denoises a finished path before the final recognition.
// [smoothing.Smoother] implements it.
type Smoother interface {
	Smooth(points []types.Point, factor float64) []types.Point
}

// Refiner returns extra alternatives for a committed word, best first.
type Refiner func(ctx context.Context, word string) []string

// Callbacks receive the results of gestures. Nil callbacks are skipped.
type Callbacks struct {
	// OnSuggestions receives live previews while gliding, the alternatives
	// of a committed word, and an empty list when a gesture is cancelled or
	// too short.
	OnSuggestions func(words []string)

	// OnCommit receives the committed word of a finished gesture. ok is
	// false when the gesture produced no word.
	OnCommit func(word string, ok bool)
}

// Dispatcher runs f on the goroutine that expects callbacks, for example a
// UI loop. The default runs f directly on the worker goroutine.
type Dispatcher func(f func())

// Option configures an [Orchestrator].
type Option func(*Orchestrator)

// WithDispatcher sets how callbacks are delivered.
func WithDispatcher(d Dispatcher) Option {
	return func(o *Orchestrator) { o.dispatch = d }
}

// WithSmoother sets the smoother used when
// [gesture.Configuration.SmoothOnComplete] is enabled.
func WithSmoother(s Smoother) Option {
	return func(o *Orchestrator) { o.smoother = s }
}

// WithRefiner adds alternatives from r after each committed word.
func WithRefiner(r Refiner) Option {
	return func(o *Orchestrator) { o.refine = r }
}

// WithMetrics overrides the metrics instance. Default: observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock overrides the clock used to pace previews.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator runs the glide state machine for one input surface.
//
// Start, Move, End and Cancel must be called from one goroutine at a time;
// the remaining methods are safe for concurrent use.
type Orchestrator struct {
	rec      Recognizer
	cb       Callbacks
	dispatch Dispatcher
	smoother Smoother
	refine   Refiner
	metrics  *observe.Metrics
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	jobs   chan func()
	wg     sync.WaitGroup

	mu          sync.Mutex
	cfg         gesture.Configuration
	state       State
	path        *gesture.Path
	gen         uint64
	lastPreview time.Time
	previewBusy bool
	closed      bool
}

// New returns a running orchestrator. Call Close to stop its worker.
func New(rec Recognizer, cfg gesture.Configuration, cb Callbacks, opts ...Option) (*Orchestrator, error) {
	if rec == nil {
		return nil, errors.New("glide: recognizer is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("glide: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		rec:      rec,
		cb:       cb,
		dispatch: func(f func()) { f() },
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		jobs:     make(chan func(), jobQueueSize),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	o.applyRecognizerSettings(cfg)

	o.wg.Add(1)
	go o.run()
	return o, nil
}

func (o *Orchestrator) run() {
	defer o.wg.Done()
	for {
		select {
		case job := <-o.jobs:
			job()
		case <-o.ctx.Done():
			return
		}
	}
}

// enqueue hands job to the worker. Jobs submitted after Close are dropped.
func (o *Orchestrator) enqueue(job func()) {
	select {
	case o.jobs <- job:
	case <-o.ctx.Done():
	}
}

// current reports whether gen is still the active generation.
func (o *Orchestrator) current(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gen == gen
}

// deliver runs f through the dispatcher unless gen has been superseded by
// the time the dispatcher gets to it. It reports whether the generation was
// current when delivery was scheduled.
func (o *Orchestrator) deliver(gen uint64, f func()) bool {
	if !o.current(gen) {
		return false
	}
	o.dispatch(func() {
		if o.current(gen) {
			f()
		}
	})
	return true
}

func (o *Orchestrator) emitSuggestions(words []string) {
	if o.cb.OnSuggestions != nil {
		o.cb.OnSuggestions(words)
	}
}

func (o *Orchestrator) emitCommit(word string, ok bool) {
	if o.cb.OnCommit != nil {
		o.cb.OnCommit(word, ok)
	}
}

// State returns the current phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Configuration returns the active configuration.
func (o *Orchestrator) Configuration() gesture.Configuration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg
}

// SetConfiguration replaces the configuration. The gesture in flight keeps
// the settings it started with for its final recognition.
func (o *Orchestrator) SetConfiguration(cfg gesture.Configuration) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("glide: %w", err)
	}
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.cfg = cfg
	o.mu.Unlock()
	o.applyRecognizerSettings(cfg)
	return nil
}

func (o *Orchestrator) applyRecognizerSettings(cfg gesture.Configuration) {
	if r, ok := o.rec.(interface{ SetTolerance(float64) }); ok {
		r.SetTolerance(cfg.KeyTolerance)
	}
	if r, ok := o.rec.(interface{ SetConfidenceThreshold(float64) }); ok {
		r.SetConfidenceThreshold(cfg.ConfidenceThreshold)
	}
}

// SetLayout replaces the key layout. It only affects samples added
// afterwards.
func (o *Orchestrator) SetLayout(l types.Layout) {
	o.rec.SetLayout(l)
}

// Feed routes ev to Start, Move, End or Cancel.
func (o *Orchestrator) Feed(ev types.GestureEvent) {
	switch ev.Type {
	case types.GestureStart:
		o.Start(ev.Point)
	case types.GestureMove:
		o.Move(ev.Point)
	case types.GestureEnd:
		o.End(ev.Point)
	case types.GestureCancel:
		o.Cancel()
	}
}

// Start begins a new gesture at p. A gesture still in flight is abandoned
// and its pending results are dropped.
func (o *Orchestrator) Start(p types.TouchPoint) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	if o.state == StateGliding {
		slog.Debug("glide restarted before the previous gesture ended")
	}
	o.gen++
	o.state = StateGliding
	o.path = gesture.NewPath()
	o.path.Add(p)
	o.lastPreview = o.now()
	o.previewBusy = false

	o.rec.Clear()
	o.rec.AddPoint(p)
}

// Move adds a sample to the active gesture and, when previews are due,
// schedules a preview of the best word so far.
func (o *Orchestrator) Move(p types.TouchPoint) {
	o.mu.Lock()
	if o.state != StateGliding {
		o.mu.Unlock()
		return
	}
	o.path.Add(p)
	o.rec.AddPoint(p)

	now := o.now()
	due := o.cfg.PreviewEnabled && !o.previewBusy && now.Sub(o.lastPreview) > o.cfg.PreviewInterval
	if !due {
		o.mu.Unlock()
		return
	}
	o.lastPreview = now
	o.previewBusy = true
	gen := o.gen
	o.mu.Unlock()

	o.enqueue(func() { o.preview(gen) })
}

func (o *Orchestrator) preview(gen uint64) {
	if !o.current(gen) {
		return
	}
	words := o.recognize(1, false)

	o.mu.Lock()
	if o.gen == gen {
		o.previewBusy = false
	}
	o.mu.Unlock()

	if len(words) == 0 {
		return
	}
	top := words[:1]
	o.deliver(gen, func() { o.emitSuggestions(top) })
}

func (o *Orchestrator) recognize(maxCount int, complete bool) []string {
	start := time.Now()
	words := o.rec.Suggest(maxCount, complete)
	o.metrics.RecognizeDuration.Record(o.ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.Bool("complete", complete)))
	return words
}

// End adds the final sample at p and schedules the final recognition.
func (o *Orchestrator) End(p types.TouchPoint) {
	o.mu.Lock()
	if o.state != StateGliding {
		o.mu.Unlock()
		return
	}
	o.path.Add(p)
	o.rec.AddPoint(p)
	o.path.Complete()
	o.state = StateCommitting

	gen := o.gen
	cfg := o.cfg
	points := o.path.XY()
	distance := o.path.TotalDistance()
	peak := o.path.PeakVelocity()
	o.mu.Unlock()

	if cfg.MinSwipeDistance > 0 && distance < cfg.MinSwipeDistance {
		o.enqueue(func() { o.reject(gen, distance) })
		return
	}
	if peak > cfg.MaxSwipeVelocity {
		slog.Debug("glide exceeded max swipe velocity",
			"peak_px_s", peak, "max_px_s", cfg.MaxSwipeVelocity)
	}
	o.enqueue(func() { o.commit(gen, cfg, points) })
}

// reject completes a gesture that was too short to be a glide.
func (o *Orchestrator) reject(gen uint64, distance float64) {
	slog.Debug("gesture too short for a glide", "distance_px", distance)
	outcome := observe.OutcomeTooShort
	if !o.deliver(gen, func() {
		o.emitCommit("", false)
		o.emitSuggestions([]string{})
	}) {
		outcome = observe.OutcomeStale
	}
	o.metrics.RecordGesture(o.ctx, outcome)
	o.finish(gen)
}

func (o *Orchestrator) commit(gen uint64, cfg gesture.Configuration, points []types.Point) {
	if !o.current(gen) {
		o.metrics.RecordGesture(o.ctx, observe.OutcomeStale)
		return
	}
	if slog.Default().Enabled(o.ctx, slog.LevelDebug) {
		shape := smoothing.Analyze(points)
		slog.Debug("glide shape",
			"points", len(points),
			"length_px", shape.Length,
			"corners", len(shape.Corners),
			"simplified_points", shape.Simplified)
	}
	if cfg.SmoothOnComplete && o.smoother != nil {
		o.replaySmoothed(gen, cfg, points)
	}

	words := o.recognize(cfg.MaxSuggestions, true)
	word, ok := "", len(words) > 0
	var alternatives []string
	if ok {
		word = words[0]
		alternatives = slices.Clone(words[1:])
		if o.refine != nil {
			for _, w := range o.refine(o.ctx, word) {
				if w != word && !slices.Contains(alternatives, w) {
					alternatives = append(alternatives, w)
				}
			}
		}
	}
	alternatives = alternatives[:min(len(alternatives), cfg.MaxAlternatives)]
	if alternatives == nil {
		alternatives = []string{}
	}

	outcome := observe.OutcomeEmpty
	if ok {
		outcome = observe.OutcomeCommitted
	}
	if !o.deliver(gen, func() {
		o.emitCommit(word, ok)
		o.emitSuggestions(alternatives)
	}) {
		outcome = observe.OutcomeStale
	}
	o.metrics.RecordGesture(o.ctx, outcome)
	o.finish(gen)
}

// replaySmoothed feeds the smoothed path into the recognizer in place of the
// raw samples.
func (o *Orchestrator) replaySmoothed(gen uint64, cfg gesture.Configuration, points []types.Point) {
	start := time.Now()
	smoothed := o.smoother.Smooth(points, cfg.SmoothingFactor)
	o.metrics.SmoothDuration.Record(o.ctx, time.Since(start).Seconds())

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen {
		return
	}
	o.rec.Clear()
	for _, p := range smoothed {
		o.rec.AddPoint(types.TouchPoint{X: p.X, Y: p.Y})
	}
}

// finish returns to idle unless a newer gesture has taken over.
func (o *Orchestrator) finish(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen {
		return
	}
	o.state = StateIdle
	o.path = nil
	o.rec.Clear()
}

// Cancel aborts the active gesture. Pending results of the gesture are
// dropped and an empty suggestion list is delivered instead. Cancel is a
// no-op while idle.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	if o.state != StateGliding && o.state != StateCommitting {
		o.mu.Unlock()
		return
	}
	o.gen++
	gen := o.gen
	o.state = StateCancelled
	o.path = nil
	o.rec.Clear()
	o.mu.Unlock()

	o.enqueue(func() {
		o.deliver(gen, func() { o.emitSuggestions([]string{}) })
		o.metrics.RecordGesture(o.ctx, observe.OutcomeCancelled)
		o.finish(gen)
	})
}

// Close stops the worker and drops pending results. It is safe to call more
// than once.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.cancel()
	o.wg.Wait()
}
