package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"manual-markers/internal/catalog"
	"manual-markers/internal/coords"
	"manual-markers/internal/marker"
	"manual-markers/internal/ocr"
	"manual-markers/internal/pdfdoc"
	"manual-markers/internal/preload"
	"manual-markers/internal/render"
	"manual-markers/internal/surface"
	"manual-markers/internal/textindex"
	"manual-markers/internal/vinculo"
	"manual-markers/pkg/geometry"
)

// Status is the load state shown in place of the page.
type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrNoDocument is returned by operations that need a loaded manual.
var ErrNoDocument = errors.New("no manual loaded")

// Opener loads a manual by URL. *pdfdoc.Loader satisfies it.
type Opener interface {
	Open(ctx context.Context, url string) (pdfdoc.Document, error)
}

// MarkerSource returns the saved markers to draw on page, resolved for a
// surface of width x height pixels at scale.
type MarkerSource func(page int, width, height, scale float64) []marker.Item

// Options configures a Session.
type Options struct {
	Opener       Opener
	Handoff      *preload.Handoff
	Logger       *zap.Logger
	Limits       Limits
	Zoom         *ZoomStore
	Debounce     time.Duration
	GapThreshold float64

	// Recognizer enables OCR for pages without a text layer.
	Recognizer ocr.Recognizer
	OCRScale   float64

	Markers MarkerSource

	// OnRedraw runs after the surfaces change.
	OnRedraw func()
	// OnStatus runs on every load state change.
	OnStatus func(Status, error)
	// OnIndexProgress reports text index build progress.
	OnIndexProgress func(done, total int)
}

// Session is one mounted viewer or editor: it loads a manual, keeps its
// text index, schedules renders and redraws the overlay.
type Session struct {
	opts   Options
	logger *zap.Logger

	ctrl   *Controller
	sched  *render.Scheduler
	surf   *surface.Pair
	search *textindex.Session

	// loadGen numbers Open calls; a load finishing under an older number
	// is discarded. loadMu orders the release and install steps of loads.
	loadGen atomic.Uint64
	loadMu  sync.Mutex

	mu          sync.Mutex
	status      Status
	err         error
	url         string
	doc         pdfdoc.Document
	index       *textindex.Index
	indexCancel context.CancelFunc
	indexDone   chan struct{}
	editor      *marker.Editor
	seed        *catalog.VinculoManual
}

// NewSession creates an idle session.
func NewSession(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Limits == (Limits{}) {
		opts.Limits = ViewerLimits
	}
	s := &Session{
		opts:      opts,
		logger:    logger,
		surf:      surface.NewPair(),
		search:    textindex.NewSession(nil),
		indexDone: closedChan(),
	}
	s.sched = render.NewScheduler(opts.Debounce, s.commit,
		render.WithLogger(logger.Named("render")),
		render.WithErrorHandler(s.renderFailed),
	)
	s.ctrl = NewController(opts.Limits, opts.Zoom, s.sched)
	return s
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (s *Session) Controller() *Controller { return s.ctrl }

func (s *Session) Surface() *surface.Pair { return s.surf }

func (s *Session) Search() *textindex.Session { return s.search }

// Status returns the load state and, for StatusError, its cause.
func (s *Session) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.err
}

// URL returns the manual being shown.
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Index returns the text index, possibly still being built.
func (s *Session) Index() *textindex.Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// IndexDone is closed when the current index build ends.
func (s *Session) IndexDone() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexDone
}

func (s *Session) setStatus(st Status, err error) {
	s.mu.Lock()
	s.status, s.err = st, err
	cb := s.opts.OnStatus
	s.mu.Unlock()
	if cb != nil {
		cb(st, err)
	}
}

// Open loads url, taking it from the preload handoff when offered. Failures
// become StatusError; nothing is returned to the caller. When another Open
// or Close starts before this load finishes, its document is closed
// unused.
func (s *Session) Open(ctx context.Context, url string) {
	gen := s.loadGen.Add(1)

	s.loadMu.Lock()
	s.release()
	s.sched.Reopen()
	s.setStatus(StatusLoading, nil)
	s.loadMu.Unlock()

	doc, index, err := s.load(ctx, url)

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if gen != s.loadGen.Load() {
		s.logger.Debug("superseded manual load discarded", zap.String("url", url))
		if doc != nil {
			if cerr := doc.Close(); cerr != nil {
				s.logger.Warn("closing superseded manual", zap.Error(cerr))
			}
		}
		return
	}
	if err != nil {
		s.logger.Error("manual load failed", zap.String("url", url), zap.Error(err))
		s.setStatus(StatusError, err)
		return
	}

	s.mu.Lock()
	s.url = url
	s.doc = doc
	s.mu.Unlock()

	if index != nil {
		s.useIndex(index)
	} else {
		s.buildIndex(doc)
	}
	s.sched.SetDocument(doc)
	s.ctrl.SetTotal(doc.NumPages())
	s.setStatus(StatusReady, nil)
}

func (s *Session) load(ctx context.Context, url string) (pdfdoc.Document, *textindex.Index, error) {
	if s.opts.Handoff != nil {
		if e, ok := s.opts.Handoff.Take(url); ok {
			s.logger.Debug("using preloaded manual", zap.String("url", url), zap.Bool("indexed", e.Index != nil))
			return e.Doc, e.Index, nil
		}
	}
	if s.opts.Opener == nil {
		return nil, nil, &pdfdoc.LoadError{URL: url, Err: errors.New("no loader configured")}
	}
	doc, err := s.opts.Opener.Open(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	return doc, nil, nil
}

func (s *Session) useIndex(ix *textindex.Index) {
	s.mu.Lock()
	s.index = ix
	s.indexDone = closedChan()
	s.mu.Unlock()
	s.search.SetIndex(ix)
}

// buildIndex extracts text in the background into an index that is
// searchable while it fills.
func (s *Session) buildIndex(doc pdfdoc.Document) {
	var src textindex.PageSource = doc
	if s.opts.Recognizer != nil {
		src = &ocr.FallbackSource{Doc: doc, Recognizer: s.opts.Recognizer, Scale: s.opts.OCRScale, Logger: s.logger.Named("ocr")}
	}
	ix := textindex.New(doc.NumPages())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.index = ix
	s.indexCancel = cancel
	s.indexDone = done
	s.mu.Unlock()
	s.search.SetIndex(ix)

	go func() {
		defer close(done)
		_, err := textindex.Build(ctx, src, textindex.BuildOptions{
			GapThreshold: s.opts.GapThreshold,
			Logger:       s.logger.Named("textindex"),
			Progress:     s.opts.OnIndexProgress,
			Into:         ix,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("text index build stopped", zap.Error(err))
		}
	}()
}

// release abandons the current manual.
func (s *Session) release() {
	s.mu.Lock()
	doc, cancel := s.doc, s.indexCancel
	s.doc, s.index, s.indexCancel, s.url = nil, nil, nil, ""
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.sched.SetDocument(nil)
	s.search.SetIndex(nil)
	if doc != nil {
		if err := doc.Close(); err != nil {
			s.logger.Warn("closing manual", zap.Error(err))
		}
	}
}

// Unload drops the manual and shows nothing. The session stays usable.
func (s *Session) Unload() {
	s.loadGen.Add(1)
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	s.release()
	s.setStatus(StatusEmpty, nil)
}

// Close releases the manual and stops rendering. A later Open starts
// rendering again.
func (s *Session) Close() {
	s.loadGen.Add(1)
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	s.sched.Close()
	s.release()
	<-s.IndexDone()
	s.setStatus(StatusEmpty, nil)
}

// WaitRender blocks until no render is pending.
func (s *Session) WaitRender() { s.sched.Wait() }

func (s *Session) commit(res render.Result) {
	oldPage, _ := s.surf.Page()
	oldW, oldH := s.surf.Size()
	s.surf.SetPage(res.Image, res.Page, res.Scale)
	b := res.Image.Bounds()
	s.ctrl.SetContent(geometry.Size{Width: float64(b.Dx()), Height: float64(b.Dy())})

	s.mu.Lock()
	if e := s.editor; e != nil {
		switch {
		case oldPage != res.Page:
			e.Reset()
		case oldW > 0 && oldH > 0 && (oldW != b.Dx() || oldH != b.Dy()):
			e.Rescale(float64(b.Dx())/float64(oldW), float64(b.Dy())/float64(oldH))
		}
		if v := s.seed; v != nil && v.Pagina == res.Page {
			s.seed = nil
			shape, style, err := vinculo.ToGeometry(*v, float64(b.Dx()), float64(b.Dy()), res.Scale)
			if err != nil {
				s.logger.Warn("marker cannot be edited", zap.Int("page", v.Pagina), zap.Error(err))
			} else {
				e.Load(shape, style)
			}
		}
	}
	s.mu.Unlock()
	s.Redraw()
}

func (s *Session) renderFailed(req render.Request, err error) {
	s.logger.Warn("page not shown", zap.Int("page", req.Page), zap.Error(err))
}

// Redraw clears the overlay and paints saved markers, search highlights
// and the editor state for the page on the surface.
func (s *Session) Redraw() {
	page, scale := s.surf.Page()
	w, h := s.surf.Size()
	sc := s.scene(page, scale, float64(w), float64(h))
	s.surf.DrawOverlay(func(o *image.RGBA) { marker.Draw(o, sc) })
	if s.opts.OnRedraw != nil {
		s.opts.OnRedraw()
	}
}

func (s *Session) scene(page int, scale, w, h float64) marker.Scene {
	var sc marker.Scene
	if page < 1 || w == 0 || h == 0 {
		return sc
	}
	if s.opts.Markers != nil {
		sc.Items = append(sc.Items, s.opts.Markers(page, w, h, scale)...)
	}
	sc.Highlights = s.highlights(page, scale)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editor != nil {
		es := s.editor.Scene()
		sc.Items = append(sc.Items, es.Items...)
		sc.OpenPath = es.OpenPath
		sc.OpenStyle = es.OpenStyle
		sc.RubberBand = es.RubberBand
		sc.Vertices = es.Vertices
		sc.NearFirst = es.NearFirst
	}
	return sc
}

func (s *Session) highlights(page int, scale float64) []geometry.Rect {
	if s.search.State() != textindex.HasMatches {
		return nil
	}
	s.mu.Lock()
	doc, ix := s.doc, s.index
	s.mu.Unlock()
	if doc == nil || ix == nil {
		return nil
	}
	entry, ok := ix.Page(page)
	if !ok {
		return nil
	}
	size, err := doc.PageSize(page)
	if err != nil {
		return nil
	}
	return textindex.Highlights(entry, s.search.Query(), coords.Viewport{Scale: scale, PageHeight: size.Height})
}

// Find runs a search and shows the best page. A blank query clears the
// results and their highlights.
func (s *Session) Find(query string) textindex.State {
	st := s.search.Search(query)
	if st == textindex.HasMatches {
		if hit, _, ok := s.search.Current(); ok {
			s.show(hit.Page)
			return st
		}
	}
	s.Redraw()
	return st
}

// NextHit moves to the following search hit.
func (s *Session) NextHit() bool {
	page, ok := s.search.Next()
	if ok {
		s.show(page)
	}
	return ok
}

// PrevHit moves to the preceding search hit.
func (s *Session) PrevHit() bool {
	page, ok := s.search.Prev()
	if ok {
		s.show(page)
	}
	return ok
}

// SelectHit shows hit i of the result list.
func (s *Session) SelectHit(i int) bool {
	page, ok := s.search.Select(i)
	if ok {
		s.show(page)
	}
	return ok
}

// show navigates to page; the render commit redraws the overlay. When the
// page is already shown only the overlay is redrawn.
func (s *Session) show(page int) {
	if s.ctrl.View().Page == page {
		s.Redraw()
		return
	}
	s.ctrl.GoTo(page)
}

// SetEditor switches the session into editing with e, or back to viewing
// with nil.
func (s *Session) SetEditor(e *marker.Editor) {
	s.mu.Lock()
	s.editor = e
	s.mu.Unlock()
	s.Redraw()
}

// Edit applies fn to the editor and redraws when fn reports a change.
func (s *Session) Edit(fn func(e *marker.Editor) bool) bool {
	s.mu.Lock()
	e := s.editor
	changed := e != nil && fn(e)
	s.mu.Unlock()
	if changed {
		s.Redraw()
	}
	return changed
}

// EditMarker loads v into the editor once its page is shown, replacing any
// geometry in progress, and navigates there.
func (s *Session) EditMarker(v catalog.VinculoManual) {
	s.mu.Lock()
	s.seed = &v
	s.mu.Unlock()
	if s.ctrl.View().Page == v.Pagina {
		s.ctrl.Refresh()
		return
	}
	s.ctrl.GoTo(v.Pagina)
}

// MarkerAt returns the saved marker under p, in overlay pixels. Where
// markers overlap the smallest one wins.
func (s *Session) MarkerAt(p geometry.Point2D) (marker.Item, bool) {
	if s.opts.Markers == nil {
		return marker.Item{}, false
	}
	page, scale := s.surf.Page()
	w, h := s.surf.Size()
	if page < 1 || w == 0 || h == 0 {
		return marker.Item{}, false
	}
	var (
		best  marker.Item
		found bool
	)
	for _, it := range s.opts.Markers(page, float64(w), float64(h), scale) {
		if !marker.Contains(it.Shape, p) {
			continue
		}
		if !found || marker.Area(it.Shape) < marker.Area(best.Shape) {
			best, found = it, true
		}
	}
	return best, found
}

// Capture converts the editor's committed shape into a record for the page
// on the surface.
func (s *Session) Capture() (catalog.VinculoManual, error) {
	s.mu.Lock()
	e := s.editor
	s.mu.Unlock()
	if e == nil {
		return catalog.VinculoManual{}, fmt.Errorf("%w: not editing", marker.ErrIncompleteGeometry)
	}
	s.mu.Lock()
	shape, err := e.Candidate()
	style := e.Style()
	s.mu.Unlock()
	if err != nil {
		return catalog.VinculoManual{}, err
	}
	page, _ := s.surf.Page()
	if page < 1 {
		return catalog.VinculoManual{}, ErrNoDocument
	}
	w, h := s.surf.Size()
	return vinculo.FromGeometry(shape, style, page, float64(w), float64(h))
}
