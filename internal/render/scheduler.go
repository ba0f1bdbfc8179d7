// Package render schedules page rasterization for a viewer: requests are
// debounced, a new request cancels the one in flight, and only the most
// recent request may commit its raster.
package render

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"manual-markers/internal/metrics"
	"manual-markers/internal/pdfdoc"
)

// Renderer rasterizes one page. pdfdoc.Document satisfies it.
type Renderer interface {
	Render(ctx context.Context, page int, scale float64) (*image.RGBA, error)
}

// Request identifies a raster to produce.
type Request struct {
	Page  int
	Scale float64
}

// Result is a committed raster.
type Result struct {
	Request
	Image      *image.RGBA
	Generation uint64
}

// Scheduler owns the single in-flight render of one viewer.
type Scheduler struct {
	delay    time.Duration
	logger   *zap.Logger
	onCommit func(Result)
	onError  func(Request, error)

	gen atomic.Uint64

	mu     sync.Mutex
	doc    Renderer
	cancel context.CancelFunc
	timer  *time.Timer
	closed bool

	// held while checking the generation and committing
	commitMu sync.Mutex
	wg       sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithErrorHandler receives genuine render failures of the latest request.
func WithErrorHandler(fn func(Request, error)) Option {
	return func(s *Scheduler) { s.onError = fn }
}

// NewScheduler creates a scheduler that waits delay before starting a
// render and calls onCommit with each raster that is still current.
func NewScheduler(delay time.Duration, onCommit func(Result), opts ...Option) *Scheduler {
	s := &Scheduler{
		delay:    delay,
		logger:   zap.NewNop(),
		onCommit: onCommit,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetDocument swaps the renderer and abandons any pending work.
func (s *Scheduler) SetDocument(doc Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen.Add(1)
	s.stopLocked()
	s.doc = doc
}

// Generation returns the number of the latest request.
func (s *Scheduler) Generation() uint64 {
	return s.gen.Load()
}

// Request schedules req after the debounce window, superseding every
// earlier request. Returns the request's generation.
func (s *Scheduler) Request(req Request) uint64 {
	return s.schedule(req, s.delay)
}

// RequestNow schedules req without debouncing.
func (s *Scheduler) RequestNow(req Request) uint64 {
	return s.schedule(req, 0)
}

func (s *Scheduler) schedule(req Request, delay time.Duration) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.gen.Add(1)
	if s.closed {
		return gen
	}
	s.stopLocked()

	s.wg.Add(1)
	if delay <= 0 {
		go s.run(gen, req)
	} else {
		s.timer = time.AfterFunc(delay, func() { s.run(gen, req) })
	}
	return gen
}

// stopLocked cancels the in-flight render and any pending timer.
func (s *Scheduler) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.timer != nil {
		if s.timer.Stop() {
			s.wg.Done()
		}
		s.timer = nil
	}
}

func (s *Scheduler) run(gen uint64, req Request) {
	defer s.wg.Done()

	s.mu.Lock()
	if gen != s.gen.Load() || s.doc == nil || s.closed {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	doc := s.doc
	s.mu.Unlock()
	defer cancel()

	started := time.Now()
	img, err := doc.Render(ctx, req.Page, req.Scale)

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	switch {
	case err != nil && pdfdoc.IsCancelled(err):
		metrics.ObserveRender(metrics.RenderCancelled, started)
		s.logger.Debug("render cancelled", zap.Int("page", req.Page), zap.Float64("scale", req.Scale))
		return
	case gen != s.gen.Load():
		metrics.ObserveRender(metrics.RenderStale, started)
		s.logger.Debug("stale render discarded", zap.Int("page", req.Page), zap.Uint64("generation", gen))
		return
	case err != nil:
		metrics.ObserveRender(metrics.RenderFailed, started)
		s.logger.Error("render failed", zap.Int("page", req.Page), zap.Float64("scale", req.Scale), zap.Error(err))
		if s.onError != nil {
			s.onError(req, err)
		}
		return
	}

	metrics.ObserveRender(metrics.RenderCommitted, started)
	if s.onCommit != nil {
		s.onCommit(Result{Request: req, Image: img, Generation: gen})
	}
}

// Wait blocks until no render is pending or running.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Reopen accepts requests again after Close.
func (s *Scheduler) Reopen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = false
}

// Close cancels outstanding work and refuses new requests until Reopen.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.gen.Add(1)
	s.stopLocked()
	s.mu.Unlock()
	s.wg.Wait()
}
