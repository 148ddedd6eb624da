package service

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wailsapp/wails/v2/pkg/logger"

	"haqiba/internal/domain"
	"haqiba/internal/reader"
)

// ─────────────────────────────────────────────────────────────
// Reader Service: one reading session bridged to the frontend
// ─────────────────────────────────────────────────────────────

// surfacePrefix is where the committed page bitmap is served.
const surfacePrefix = "/surface/"

type ReaderOptions struct {
	Margin            float64
	ZoomStep          float64
	DoubleTapInterval time.Duration
	ConfirmDelay      time.Duration
	MaxSurfacePixels  int
	Capture           reader.CaptureOptions
}

// SurfaceEvent tells the frontend a new page bitmap is ready at Src.
// Width/Height are the on-screen size, PixelWidth/PixelHeight the bitmap's.
type SurfaceEvent struct {
	Seq         uint64  `json:"seq"`
	Page        int     `json:"page"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	PixelWidth  int     `json:"pixelWidth"`
	PixelHeight int     `json:"pixelHeight"`
	Src         string  `json:"src"`
}

// ReaderService owns the reader session. It translates session callbacks
// into frontend events and serves rendered surfaces over HTTP.
type ReaderService struct {
	ctx       context.Context // for event emission
	emitter   EventEmitter
	log       logger.Logger
	bookmarks *reader.Bookmarks
	geometry  *reader.GeometryBox
	session   *reader.Session
}

func NewReaderService(
	ctx context.Context,
	loader *reader.Loader,
	bookmarks *reader.Bookmarks,
	emitter EventEmitter,
	log logger.Logger,
	opts ReaderOptions,
) *ReaderService {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	s := &ReaderService{
		ctx:       ctx,
		emitter:   emitter,
		log:       log,
		bookmarks: bookmarks,
		geometry:  reader.NewGeometryBox(reader.Geometry{ContainerWidth: 375, DevicePixelRatio: 1}),
	}
	s.session = reader.NewSession(reader.Options{
		Loader:            loader,
		Bookmarks:         bookmarks,
		Environment:       s.geometry,
		Observer:          s,
		Logger:            log,
		Margin:            opts.Margin,
		ZoomStep:          opts.ZoomStep,
		DoubleTapInterval: opts.DoubleTapInterval,
		ConfirmDelay:      opts.ConfirmDelay,
		MaxSurfacePixels:  opts.MaxSurfacePixels,
		Capture:           opts.Capture,
	})
	return s
}

// ── Session observer ───────────────────────────────────────

func (s *ReaderService) OnState(st reader.State) {
	s.emitter.Emit(s.ctx, EventReaderState, st)
}

func (s *ReaderService) OnSurface(surface *reader.PageSurface) {
	b := surface.Image.Bounds()
	s.emitter.Emit(s.ctx, EventReaderSurface, SurfaceEvent{
		Seq:         surface.Seq,
		Page:        surface.Page,
		Width:       surface.Width,
		Height:      surface.Height,
		PixelWidth:  b.Dx(),
		PixelHeight: b.Dy(),
		Src:         SurfaceURL(surface.Seq),
	})
}

func (s *ReaderService) OnPreview(p reader.Preview) {
	s.emitter.Emit(s.ctx, EventReaderPreview, p)
}

func (s *ReaderService) OnSaveConfirm(visible bool) {
	s.emitter.Emit(s.ctx, EventReaderSaved, visible)
}

// ── Document lifecycle ─────────────────────────────────────

// Open shows m. Being overtaken by a newer Open is not an error.
func (s *ReaderService) Open(ctx context.Context, m domain.Material) error {
	return quiet(s.session.Open(ctx, m))
}

func (s *ReaderService) Close() error {
	return s.session.Close()
}

func (s *ReaderService) Retry(ctx context.Context) error {
	return quiet(s.session.Retry(ctx))
}

func (s *ReaderService) State() reader.State {
	return s.session.State()
}

// ── Navigation & zoom ──────────────────────────────────────

func (s *ReaderService) Next(ctx context.Context) error     { return quiet(s.session.Next(ctx)) }
func (s *ReaderService) Previous(ctx context.Context) error { return quiet(s.session.Previous(ctx)) }
func (s *ReaderService) ZoomIn(ctx context.Context) error   { return quiet(s.session.ZoomIn(ctx)) }
func (s *ReaderService) ZoomOut(ctx context.Context) error  { return quiet(s.session.ZoomOut(ctx)) }

func (s *ReaderService) GoTo(ctx context.Context, page int) error {
	return quiet(s.session.GoTo(ctx, page))
}

// SetGeometry records the container size and refits the open page.
func (s *ReaderService) SetGeometry(ctx context.Context, g reader.Geometry) error {
	if g.ContainerWidth <= 0 {
		return fmt.Errorf("invalid container width %v", g.ContainerWidth)
	}
	s.geometry.Set(g)
	return quiet(s.session.Resize(ctx))
}

// ── Touch ──────────────────────────────────────────────────

func (s *ReaderService) TouchStart(points []reader.Point) { s.session.TouchStart(points) }
func (s *ReaderService) TouchMove(points []reader.Point)  { s.session.TouchMove(points) }
func (s *ReaderService) TouchCancel()                     { s.session.TouchCancel() }

func (s *ReaderService) TouchEnd(ctx context.Context, remaining []reader.Point) error {
	return quiet(s.session.TouchEnd(ctx, remaining))
}

// ── Positions & capture ────────────────────────────────────

func (s *ReaderService) SaveBookmark(ctx context.Context, subjectID string) (domain.ReadingPosition, error) {
	return s.session.SaveBookmark(ctx, subjectID)
}

func (s *ReaderService) Positions(ctx context.Context) ([]domain.ReadingPosition, error) {
	return s.bookmarks.List(ctx)
}

func (s *ReaderService) Position(ctx context.Context, materialID string) int {
	return s.bookmarks.Position(ctx, materialID)
}

// SavePosition stores a position for any material, open or not.
func (s *ReaderService) SavePosition(ctx context.Context, materialID string, page int, title, subjectID string) (domain.ReadingPosition, error) {
	return s.bookmarks.Save(ctx, materialID, page, title, subjectID)
}

func (s *ReaderService) Capture() ([]byte, error) {
	return s.session.Capture()
}

// ── Surface HTTP ───────────────────────────────────────────

func SurfaceURL(seq uint64) string {
	return surfacePrefix + strconv.FormatUint(seq, 10) + ".png"
}

// ServeHTTP serves GET /surface/<seq>.png. A seq other than the committed
// surface's answers 410 so the frontend drops stale bitmaps.
func (s *ReaderService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, surfacePrefix) {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, surfacePrefix)
	seq, err := strconv.ParseUint(strings.TrimSuffix(name, ".png"), 10, 64)
	if err != nil || !strings.HasSuffix(name, ".png") {
		http.NotFound(w, r)
		return
	}

	surface := s.session.Surface()
	switch {
	case surface == nil:
		http.NotFound(w, r)
		return
	case surface.Seq != seq:
		http.Error(w, "surface superseded", http.StatusGone)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		return
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, surface.Image); err != nil {
		s.log.Warning(fmt.Sprintf("[Reader] write surface %d: %v", seq, err))
	}
}

// quiet drops outcomes the frontend has nothing to do with.
func quiet(err error) error {
	if errors.Is(err, reader.ErrSuperseded) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
