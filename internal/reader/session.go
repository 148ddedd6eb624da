package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2/pkg/logger"

	"haqiba/internal/domain"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "error"
)

// State is the UI-visible snapshot of a session.
type State struct {
	SessionID   string               `json:"sessionId"`
	Status      Status               `json:"status"`
	MaterialID  string               `json:"materialId,omitempty"`
	Title       string               `json:"title,omitempty"`
	Error       string               `json:"error,omitempty"`
	ErrorReason string               `json:"errorReason,omitempty"`
	RenderError string               `json:"renderError,omitempty"`
	Viewport    domain.ViewportState `json:"viewport"`
	ZoomPercent int                  `json:"zoomPercent"`
	Gesture     string               `json:"gesture"`
}

// Observer receives session events. Calls are made without session locks
// held and may come from any goroutine.
type Observer interface {
	OnState(State)
	OnSurface(*PageSurface)
	OnPreview(Preview)
	OnSaveConfirm(visible bool)
}

type NopObserver struct{}

func (NopObserver) OnState(State)          {}
func (NopObserver) OnSurface(*PageSurface) {}
func (NopObserver) OnPreview(Preview)      {}
func (NopObserver) OnSaveConfirm(bool)     {}

type Options struct {
	Loader      *Loader
	Bookmarks   *Bookmarks
	Environment Environment
	Observer    Observer
	Logger      logger.Logger

	Margin            float64
	ZoomStep          float64
	DoubleTapInterval time.Duration
	ConfirmDelay      time.Duration
	MaxSurfacePixels  int
	Capture           CaptureOptions
	Now               func() time.Time
}

// Session is one reader: at most one open document, its viewport, gesture
// tracking and render pipeline. All methods are safe for concurrent use;
// overlapping loads and renders are arbitrated last-issued-wins.
type Session struct {
	id        string
	loader    *Loader
	bookmarks *Bookmarks
	env       Environment
	obs       Observer
	log       logger.Logger
	capture   CaptureOptions
	pipeline  *Pipeline
	confirm   *confirmation

	surfaceMu sync.Mutex // orders OnSurface notifications

	mu         sync.Mutex
	gen        uint64
	cancelLoad context.CancelFunc
	material   domain.Material
	handle     *Handle
	status     Status
	loadErr    error
	renderErr  error
	pager      pager
	vp         *Viewport
	gestures   *Gestures
}

func NewSession(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = logger.NewDefaultLogger()
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if opts.Environment == nil {
		opts.Environment = NewGeometryBox(Geometry{ContainerWidth: fallbackWidth, DevicePixelRatio: 1})
	}
	s := &Session{
		id:        uuid.New().String(),
		loader:    opts.Loader,
		bookmarks: opts.Bookmarks,
		env:       opts.Environment,
		obs:       opts.Observer,
		log:       opts.Logger,
		capture:   opts.Capture,
		pipeline:  NewPipeline(opts.MaxSurfacePixels, opts.Logger),
		status:    StatusIdle,
		vp:        NewViewport(opts.Margin, opts.ZoomStep),
		gestures:  NewGestures(opts.DoubleTapInterval, opts.Now),
	}
	s.confirm = newConfirmation(opts.ConfirmDelay, func(visible bool) { s.obs.OnSaveConfirm(visible) })
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Surface is the committed page surface, or nil.
func (s *Session) Surface() *PageSurface { return s.pipeline.Surface() }

// ── Loading ────────────────────────────────────────────────

// Open loads m, releasing whatever was open before. A call overtaken by a
// newer Open or Close returns ErrSuperseded and leaves no trace.
func (s *Session) Open(ctx context.Context, m domain.Material) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	old := s.detachLocked()
	lctx, cancel := context.WithCancel(ctx)
	s.cancelLoad = cancel
	s.material = m
	s.status = StatusLoading
	s.loadErr, s.renderErr = nil, nil
	s.gestures.Cancel()
	state := s.stateLocked()
	s.mu.Unlock()
	defer cancel()

	s.release(old)
	s.obs.OnState(state)

	h, err := s.load(lctx, m)
	if err != nil {
		return s.failLoad(gen, err)
	}

	total := h.PageCount()
	page := newPager(s.bookmarks.Position(lctx, m.ID), total).current
	size, err := h.PageSize(lctx, page)
	if err != nil {
		h.Close()
		if !isCancellation(err) {
			err = &LoadError{Reason: LoadCorrupt, Err: err}
		}
		return s.failLoad(gen, err)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		h.Close()
		return ErrSuperseded
	}
	s.handle = h
	s.cancelLoad = nil
	s.pager = newPager(page, total)
	s.vp.Reset(s.env.Geometry().ContainerWidth, size.Width)
	s.status = StatusReady
	state = s.stateLocked()
	s.mu.Unlock()

	s.log.Info(fmt.Sprintf("[Reader] opened %s (%d pages) at page %d", m.ID, total, page))
	s.obs.OnState(state)
	return s.render(ctx)
}

// Retry re-opens after a load error, or re-renders after a render error.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	status, m := s.status, s.material
	s.mu.Unlock()

	switch status {
	case StatusFailed:
		return s.Open(ctx, m)
	case StatusReady:
		return s.render(ctx)
	}
	return ErrNoDocument
}

// Close ends the session's reading, releasing the document on every path.
func (s *Session) Close() error {
	s.mu.Lock()
	s.gen++
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	old := s.detachLocked()
	s.status = StatusIdle
	s.material = domain.Material{}
	s.loadErr, s.renderErr = nil, nil
	s.gestures.Cancel()
	state := s.stateLocked()
	s.mu.Unlock()

	s.confirm.Stop()
	err := s.release(old)
	s.obs.OnState(state)
	return err
}

func (s *Session) load(ctx context.Context, m domain.Material) (*Handle, error) {
	loc, err := m.Locator()
	if err != nil {
		reason := LoadUnknown
		if errors.Is(err, domain.ErrEmptyLocator) {
			reason = LoadNotFound
		}
		return nil, &LoadError{Reason: reason, Err: err}
	}
	return s.loader.Load(ctx, loc)
}

func (s *Session) failLoad(gen uint64, err error) error {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.cancelLoad = nil
	if errors.Is(err, context.Canceled) {
		s.status = StatusIdle
	} else {
		s.status = StatusFailed
		s.loadErr = err
	}
	state := s.stateLocked()
	s.mu.Unlock()

	if state.Status == StatusFailed {
		s.log.Error(fmt.Sprintf("[Reader] load %s: %v", state.MaterialID, err))
	}
	s.obs.OnState(state)
	return err
}

// detachLocked unhooks the open handle and invalidates in-flight renders.
// The caller releases the returned handle after unlocking.
func (s *Session) detachLocked() *Handle {
	h := s.handle
	s.handle = nil
	s.pipeline.Reset()
	return h
}

func (s *Session) release(h *Handle) error {
	if h == nil {
		return nil
	}
	if err := h.Close(); err != nil {
		s.log.Warning(fmt.Sprintf("[Reader] release document: %v", err))
		return err
	}
	return nil
}

// ── Rendering ──────────────────────────────────────────────

func (s *Session) render(ctx context.Context) error {
	s.mu.Lock()
	if s.handle == nil || s.status != StatusReady {
		s.mu.Unlock()
		return ErrNoDocument
	}
	h, page, scale := s.handle, s.pager.current, s.vp.Scale()
	s.mu.Unlock()

	surface, err := s.pipeline.Render(ctx, h, page, scale, s.env.Geometry().DevicePixelRatio)
	if errors.Is(err, ErrSuperseded) {
		return nil
	}

	s.mu.Lock()
	if s.handle == h {
		s.renderErr = err
	}
	state := s.stateLocked()
	s.mu.Unlock()

	if err != nil {
		var rerr *RenderError
		if errors.As(err, &rerr) {
			s.log.Error(fmt.Sprintf("[Reader] %v", err))
			s.obs.OnState(state)
		}
		return err
	}

	s.surfaceMu.Lock()
	if s.pipeline.Surface() == surface {
		s.obs.OnSurface(surface)
	}
	s.surfaceMu.Unlock()
	s.obs.OnState(state)
	return nil
}

// refitAndRender resolves page's size, refits the viewport if page is still
// the current one, then renders.
func (s *Session) refitAndRender(ctx context.Context, h *Handle, page int) error {
	size, err := h.PageSize(ctx, page)
	if err != nil {
		if isCancellation(err) {
			return nil
		}
		rerr := &RenderError{Page: page, Err: err}
		s.mu.Lock()
		if s.handle == h {
			s.renderErr = rerr
		}
		state := s.stateLocked()
		s.mu.Unlock()
		s.obs.OnState(state)
		return rerr
	}

	s.mu.Lock()
	if s.handle != h {
		s.mu.Unlock()
		return nil
	}
	if s.pager.current == page {
		s.vp.Refit(s.env.Geometry().ContainerWidth, size.Width)
	}
	s.mu.Unlock()
	return s.render(ctx)
}

// ── Navigation ─────────────────────────────────────────────

func (s *Session) Next(ctx context.Context) error     { return s.turn(ctx, (*pager).next) }
func (s *Session) Previous(ctx context.Context) error { return s.turn(ctx, (*pager).previous) }

func (s *Session) GoTo(ctx context.Context, page int) error {
	return s.turn(ctx, func(p *pager) bool { return p.goTo(page) })
}

func (s *Session) turn(ctx context.Context, move func(*pager) bool) error {
	s.mu.Lock()
	if s.status != StatusReady {
		s.mu.Unlock()
		return ErrNoDocument
	}
	if !move(&s.pager) {
		s.mu.Unlock()
		return nil
	}
	s.gestures.Cancel()
	h, page := s.handle, s.pager.current
	state := s.stateLocked()
	s.mu.Unlock()

	s.obs.OnState(state)
	return s.refitAndRender(ctx, h, page)
}

// Resize re-reads the container geometry and refits the current page.
func (s *Session) Resize(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusReady {
		s.mu.Unlock()
		return nil
	}
	h, page := s.handle, s.pager.current
	s.mu.Unlock()
	return s.refitAndRender(ctx, h, page)
}

// ── Zoom & gestures ────────────────────────────────────────

func (s *Session) ZoomIn(ctx context.Context) error  { return s.zoom(ctx, (*Viewport).ZoomIn) }
func (s *Session) ZoomOut(ctx context.Context) error { return s.zoom(ctx, (*Viewport).ZoomOut) }

func (s *Session) zoom(ctx context.Context, step func(*Viewport) float64) error {
	s.mu.Lock()
	if s.status != StatusReady {
		s.mu.Unlock()
		return ErrNoDocument
	}
	step(s.vp)
	state := s.stateLocked()
	s.mu.Unlock()

	s.obs.OnState(state)
	return s.render(ctx)
}

func (s *Session) TouchStart(points []Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusReady {
		s.gestures.Start(points, s.vp)
	}
}

// TouchMove only ever produces a preview; it never rasterizes.
func (s *Session) TouchMove(points []Point) {
	s.mu.Lock()
	if s.status != StatusReady {
		s.mu.Unlock()
		return
	}
	var rendered float64
	if surface := s.pipeline.Surface(); surface != nil {
		rendered = surface.Scale
	}
	preview, ok := s.gestures.Move(points, s.vp, rendered)
	s.mu.Unlock()

	if ok {
		s.obs.OnPreview(preview)
	}
}

// TouchEnd commits a finished pinch or a double tap and re-renders.
func (s *Session) TouchEnd(ctx context.Context, remaining []Point) error {
	s.mu.Lock()
	if s.status != StatusReady {
		s.mu.Unlock()
		return nil
	}
	res := s.gestures.End(remaining, s.vp)
	switch res.Action {
	case ActionCommit:
		s.vp.SetScale(res.Scale)
	case ActionDoubleTap:
		s.vp.ToggleDoubleTap()
	default:
		s.mu.Unlock()
		return nil
	}
	scale := s.vp.Scale()
	state := s.stateLocked()
	s.mu.Unlock()

	if res.Action == ActionCommit {
		s.obs.OnPreview(Preview{Scale: scale, Transform: 1})
	}
	s.obs.OnState(state)
	err := s.render(ctx)

	s.mu.Lock()
	s.gestures.Settled()
	s.mu.Unlock()
	return err
}

// TouchCancel abandons the current gesture and restores the surface.
func (s *Session) TouchCancel() {
	s.mu.Lock()
	was := s.gestures.Phase()
	s.gestures.Cancel()
	scale := s.vp.Scale()
	s.mu.Unlock()

	if was == PhasePinchTracking {
		s.obs.OnPreview(Preview{Scale: scale, Transform: 1})
	}
}

// ── Bookmarks & capture ────────────────────────────────────

// SaveBookmark stores the current page and flashes the saved signal.
func (s *Session) SaveBookmark(ctx context.Context, subjectID string) (domain.ReadingPosition, error) {
	s.mu.Lock()
	if s.status != StatusReady {
		s.mu.Unlock()
		return domain.ReadingPosition{}, ErrNoDocument
	}
	m, page := s.material, s.pager.current
	s.mu.Unlock()

	pos, err := s.bookmarks.Save(ctx, m.ID, page, m.Title, subjectID)
	if err != nil {
		return domain.ReadingPosition{}, err
	}
	s.confirm.Flash()
	return pos, nil
}

// Capture snapshots the committed surface as JPEG. It is unavailable until
// the current page has been drawn without error.
func (s *Session) Capture() ([]byte, error) {
	surface := s.pipeline.Surface()
	s.mu.Lock()
	ok := s.status == StatusReady && s.renderErr == nil &&
		surface != nil && surface.Page == s.pager.current
	s.mu.Unlock()
	if !ok {
		return nil, ErrCaptureUnavailable
	}
	return Capture(surface, s.capture)
}

func (s *Session) stateLocked() State {
	st := State{
		SessionID:  s.id,
		Status:     s.status,
		MaterialID: s.material.ID,
		Title:      s.material.Title,
		Gesture:    s.gestures.Phase().String(),
	}
	if s.handle != nil {
		st.Viewport = domain.ViewportState{
			CurrentPage:  s.pager.current,
			TotalPages:   s.pager.total,
			FitScale:     s.vp.FitScale(),
			CurrentScale: s.vp.Scale(),
		}
		st.ZoomPercent = s.vp.Percent()
	}
	if s.loadErr != nil {
		var le *LoadError
		if errors.As(s.loadErr, &le) {
			st.Error, st.ErrorReason = le.Message(), le.Reason.String()
		} else {
			st.Error, st.ErrorReason = (&LoadError{}).Message(), LoadUnknown.String()
		}
	}
	if s.renderErr != nil {
		st.RenderError = "This page could not be drawn. Tap to retry."
	}
	return st
}
