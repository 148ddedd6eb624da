package reader

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"
	"sync/atomic"

	"github.com/wailsapp/wails/v2/pkg/logger"
)

// DefaultMaxSurfacePixels bounds a single surface to ~64 MiB of RGBA.
const DefaultMaxSurfacePixels = 16 << 20

// PageSurface is the bitmap of one (document, page, output scale) triple.
// Width and Height are the on-screen footprint and depend on Scale only.
type PageSurface struct {
	Seq         uint64
	Page        int
	Scale       float64
	OutputScale float64
	Width       float64
	Height      float64
	Image       *image.RGBA
}

// DeviceMultiplierCap lowers the device pixel multiplier as the display
// scale grows.
func DeviceMultiplierCap(scale float64) float64 {
	switch {
	case scale <= 1:
		return 3
	case scale <= 2:
		return 2
	default:
		return 1.5
	}
}

// OutputScale is the rasterization scale for a display scale and device
// pixel ratio.
func OutputScale(scale, devicePixelRatio float64) float64 {
	if devicePixelRatio <= 0 {
		devicePixelRatio = 1
	}
	return scale * math.Min(devicePixelRatio, DeviceMultiplierCap(scale))
}

// Pipeline turns (handle, page, scale) requests into committed surfaces.
// Every request gets the next sequence number and only the latest issued
// request may commit.
type Pipeline struct {
	seq       atomic.Uint64
	maxPixels int
	log       logger.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	cancelSeq uint64
	surface   *PageSurface
}

func NewPipeline(maxPixels int, log logger.Logger) *Pipeline {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxSurfacePixels
	}
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Pipeline{maxPixels: maxPixels, log: log}
}

// Render rasterizes page at scale. It returns ErrSuperseded when a newer
// request was issued before this one could commit, *RenderError for a real
// decode failure, and (*PageSurface, nil) once committed.
func (p *Pipeline) Render(ctx context.Context, h *Handle, page int, scale, devicePixelRatio float64) (*PageSurface, error) {
	rctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Issue the sequence number under mu so cancellation follows issue order.
	p.mu.Lock()
	seq := p.seq.Add(1)
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel, p.cancelSeq = cancel, seq
	p.mu.Unlock()
	defer p.clearCancel(seq)

	var surface *PageSurface
	err := h.Use(func(doc Document) error {
		ref, err := doc.Page(rctx, page)
		if err != nil {
			return err
		}
		if p.stale(seq) {
			return ErrSuperseded
		}

		size := ref.Size()
		out := p.boundOutputScale(size, OutputScale(scale, devicePixelRatio))
		img, err := ref.Rasterize(rctx, out)
		if err != nil {
			return err
		}
		surface = &PageSurface{
			Seq:         seq,
			Page:        page,
			Scale:       scale,
			OutputScale: out,
			Width:       size.Width * scale,
			Height:      size.Height * scale,
			Image:       img,
		}
		return nil
	})
	if err != nil {
		if isCancellation(err) || p.stale(seq) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			p.log.Debug(fmt.Sprintf("[Reader] render #%d (page %d) superseded", seq, page))
			return nil, ErrSuperseded
		}
		return nil, &RenderError{Page: page, Err: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.seq.Load() {
		p.log.Debug(fmt.Sprintf("[Reader] render #%d (page %d) discarded at commit", seq, page))
		return nil, ErrSuperseded
	}
	p.surface = surface
	return surface, nil
}

// Surface returns the committed surface, or nil.
func (p *Pipeline) Surface() *PageSurface {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.surface
}

// Latest is the most recently issued sequence number.
func (p *Pipeline) Latest() uint64 { return p.seq.Load() }

// Reset cancels any in-flight render, makes its result stale and drops the
// committed surface.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq.Add(1)
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.surface = nil
}

func (p *Pipeline) stale(seq uint64) bool { return seq != p.seq.Load() }

func (p *Pipeline) clearCancel(seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelSeq == seq {
		p.cancel = nil
	}
}

func (p *Pipeline) boundOutputScale(size Size, out float64) float64 {
	area := size.Width * size.Height
	if area <= 0 {
		return out
	}
	if pixels := area * out * out; pixels > float64(p.maxPixels) {
		return math.Sqrt(float64(p.maxPixels) / area)
	}
	return out
}
