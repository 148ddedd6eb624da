package reader_test

import (
	"context"
	"encoding/base64"
	"errors"
	"image"
	"math"
	"sync"
	"sync/atomic"

	"haqiba/internal/domain"
	"haqiba/internal/reader"
)

// ─────────────────────────────────────────────────────────────
// Fake document stack
// ─────────────────────────────────────────────────────────────

type fakeDoc struct {
	pages int
	size  reader.Size

	// rasterize, when set, runs before the bitmap is produced.
	rasterize func(ctx context.Context, page int, outputScale float64) error

	closed      atomic.Bool
	rasterCalls atomic.Int32
}

func newFakeDoc(pages int) *fakeDoc {
	return &fakeDoc{pages: pages, size: reader.Size{Width: 750, Height: 1000}}
}

func (d *fakeDoc) PageCount() int { return d.pages }

func (d *fakeDoc) Page(ctx context.Context, number int) (reader.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if number < 1 || number > d.pages {
		return nil, errors.New("page out of range")
	}
	return &fakePage{doc: d, number: number}, nil
}

func (d *fakeDoc) Close() error {
	d.closed.Store(true)
	return nil
}

type fakePage struct {
	doc    *fakeDoc
	number int
}

func (p *fakePage) Number() int       { return p.number }
func (p *fakePage) Size() reader.Size { return p.doc.size }

func (p *fakePage) Rasterize(ctx context.Context, outputScale float64) (*image.RGBA, error) {
	p.doc.rasterCalls.Add(1)
	if p.doc.rasterize != nil {
		if err := p.doc.rasterize(ctx, p.number, outputScale); err != nil {
			return nil, err
		}
	}
	w := int(math.Ceil(p.doc.size.Width * outputScale))
	h := int(math.Ceil(p.doc.size.Height * outputScale))
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

// gate blocks a rasterization until released or cancelled.
func gate(release <-chan struct{}) func(context.Context, int, float64) error {
	return func(ctx context.Context, _ int, _ float64) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

type fakeParser struct {
	openBytes func(ctx context.Context, data []byte) (reader.Document, error)
	openURL   func(ctx context.Context, rawURL string) (reader.Document, error)

	bytesCalls atomic.Int32
	urlCalls   atomic.Int32
}

func (p *fakeParser) OpenBytes(ctx context.Context, data []byte) (reader.Document, error) {
	p.bytesCalls.Add(1)
	if p.openBytes == nil {
		return nil, errors.New("OpenBytes not configured")
	}
	return p.openBytes(ctx, data)
}

func (p *fakeParser) OpenURL(ctx context.Context, rawURL string) (reader.Document, error) {
	p.urlCalls.Add(1)
	if p.openURL == nil {
		return nil, errors.New("OpenURL not configured")
	}
	return p.openURL(ctx, rawURL)
}

// docsByPayload serves a fixed document per payload.
func docsByPayload(docs map[string]*fakeDoc) func(context.Context, []byte) (reader.Document, error) {
	return func(_ context.Context, data []byte) (reader.Document, error) {
		if d, ok := docs[string(data)]; ok {
			return d, nil
		}
		return nil, reader.ErrDocumentCorrupt
	}
}

type fakeFetcher struct {
	data  []byte
	err   error
	calls atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, _ string) ([]byte, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.data, f.err
}

// ─────────────────────────────────────────────────────────────
// Storage & observer fakes
// ─────────────────────────────────────────────────────────────

type memKV struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemKV() *memKV { return &memKV{m: map[string]string{}} }

func (s *memKV) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *memKV) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

// failingKV wraps memKV; Get or Set fail while the matching flag is set.
type failingKV struct {
	*memKV
	failGet atomic.Bool
	failSet atomic.Bool
}

var errStoreDown = errors.New("store unavailable")

func newFailingKV() *failingKV { return &failingKV{memKV: newMemKV()} }

func (s *failingKV) Get(ctx context.Context, key string) (string, bool, error) {
	if s.failGet.Load() {
		return "", false, errStoreDown
	}
	return s.memKV.Get(ctx, key)
}

func (s *failingKV) Set(ctx context.Context, key, value string) error {
	if s.failSet.Load() {
		return errStoreDown
	}
	return s.memKV.Set(ctx, key, value)
}

type recorder struct {
	mu       sync.Mutex
	states   []reader.State
	surfaces []*reader.PageSurface
	previews []reader.Preview
	confirms chan bool
}

func newRecorder() *recorder { return &recorder{confirms: make(chan bool, 16)} }

func (r *recorder) OnState(s reader.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) OnSurface(s *reader.PageSurface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.surfaces = append(r.surfaces, s)
}

func (r *recorder) OnPreview(p reader.Preview) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.previews = append(r.previews, p)
}

func (r *recorder) OnSaveConfirm(visible bool) { r.confirms <- visible }

func (r *recorder) surfaceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.surfaces)
}

func (r *recorder) lastPreview() (reader.Preview, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.previews) == 0 {
		return reader.Preview{}, false
	}
	return r.previews[len(r.previews)-1], true
}

func inlineMaterial(id, payload string) domain.Material {
	return domain.Material{
		ID:    id,
		Title: "Material " + id,
		Type:  domain.MaterialTypeBook,
		URL:   "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte(payload)),
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
