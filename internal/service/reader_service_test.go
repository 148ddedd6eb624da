package service_test

import (
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"haqiba/internal/domain"
	"haqiba/internal/reader"
	"haqiba/internal/service"
	"haqiba/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────

type stubDoc struct{ pages int }

func (d stubDoc) PageCount() int { return d.pages }
func (d stubDoc) Close() error   { return nil }

func (d stubDoc) Page(_ context.Context, n int) (reader.Page, error) {
	if n < 1 || n > d.pages {
		return nil, errors.New("no such page")
	}
	return stubPage{n: n}, nil
}

type stubPage struct{ n int }

func (p stubPage) Number() int       { return p.n }
func (p stubPage) Size() reader.Size { return reader.Size{Width: 200, Height: 300} }

func (p stubPage) Rasterize(_ context.Context, out float64) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, int(200*out), int(300*out))), nil
}

type stubParser struct{}

func (stubParser) OpenBytes(_ context.Context, data []byte) (reader.Document, error) {
	if string(data) != "%PDF-stub" {
		return nil, reader.ErrDocumentCorrupt
	}
	return stubDoc{pages: 6}, nil
}

func (stubParser) OpenURL(context.Context, string) (reader.Document, error) {
	return nil, reader.ErrDocumentNotFound
}

func stubMaterial(id string) domain.Material {
	return domain.Material{
		ID:    id,
		Title: "Chemistry " + id,
		Type:  domain.MaterialTypeSummary,
		URL:   "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("%PDF-stub")),
	}
}

func newKV(t *testing.T) domain.KVStore {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "test.db"), dir)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return storage.NewSettingsStore(db)
}

func newReaderService(t *testing.T) (*service.ReaderService, *service.MockEmitter) {
	t.Helper()
	emitter := &service.MockEmitter{}
	rs := service.NewReaderService(
		context.Background(),
		reader.NewLoader(stubParser{}, nil, nil),
		reader.NewBookmarks(newKV(t), nil, nil),
		emitter,
		nil,
		service.ReaderOptions{Margin: 0, ConfirmDelay: 20 * time.Millisecond},
	)
	t.Cleanup(func() { rs.Close() })
	return rs, emitter
}

// ─────────────────────────────────────────────────────────────
// ReaderService
// ─────────────────────────────────────────────────────────────

func TestReaderService_OpenEmitsStateAndSurface(t *testing.T) {
	ctx := context.Background()
	rs, emitter := newReaderService(t)
	if err := rs.SetGeometry(ctx, reader.Geometry{ContainerWidth: 400, DevicePixelRatio: 3}); err != nil {
		t.Fatalf("SetGeometry: %v", err)
	}

	if err := rs.Open(ctx, stubMaterial("m1")); err != nil {
		t.Fatalf("Open: %v", err)
	}

	last, ok := emitter.Last(service.EventReaderState)
	if !ok {
		t.Fatal("no state event")
	}
	st := last.Data.(reader.State)
	if st.Status != reader.StatusReady || st.Viewport.TotalPages != 6 || st.ZoomPercent != 100 {
		t.Errorf("state = %+v", st)
	}

	ev, ok := emitter.Last(service.EventReaderSurface)
	if !ok {
		t.Fatal("no surface event")
	}
	surface := ev.Data.(service.SurfaceEvent)
	if surface.Page != 1 || surface.Width != 400 || surface.PixelWidth != 800 {
		t.Errorf("surface event = %+v", surface)
	}
	if surface.Src != service.SurfaceURL(surface.Seq) {
		t.Errorf("src = %q", surface.Src)
	}
}

func TestReaderService_ServeSurface(t *testing.T) {
	ctx := context.Background()
	rs, emitter := newReaderService(t)

	rec := httptest.NewRecorder()
	rs.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, service.SurfaceURL(1), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("before open: status %d, want 404", rec.Code)
	}

	if err := rs.Open(ctx, stubMaterial("m1")); err != nil {
		t.Fatalf("Open: %v", err)
	}
	first, _ := emitter.Last(service.EventReaderSurface)
	firstSrc := first.Data.(service.SurfaceEvent).Src

	rec = httptest.NewRecorder()
	rs.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, firstSrc, nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("status %d, content type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if _, err := png.Decode(rec.Body); err != nil {
		t.Fatalf("body is not a PNG: %v", err)
	}

	if err := rs.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	rec = httptest.NewRecorder()
	rs.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, firstSrc, nil))
	if rec.Code != http.StatusGone {
		t.Errorf("stale seq: status %d, want 410", rec.Code)
	}

	for _, tc := range []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/surface/abc.png", http.StatusNotFound},
		{http.MethodGet, "/other", http.StatusNotFound},
		{http.MethodPost, "/surface/1.png", http.StatusMethodNotAllowed},
	} {
		rec := httptest.NewRecorder()
		rs.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != tc.want {
			t.Errorf("%s %s: status %d, want %d", tc.method, tc.path, rec.Code, tc.want)
		}
	}
}

func TestReaderService_LoadErrorState(t *testing.T) {
	rs, emitter := newReaderService(t)
	bad := domain.Material{ID: "m2", URL: "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("junk"))}

	err := rs.Open(context.Background(), bad)
	var le *reader.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("Open = %v, want LoadError", err)
	}
	last, _ := emitter.Last(service.EventReaderState)
	if st := last.Data.(reader.State); st.Status != reader.StatusFailed || !strings.Contains(st.Error, "damaged") {
		t.Errorf("state = %+v", st)
	}
}

func TestReaderService_SaveBookmarkEmitsConfirmation(t *testing.T) {
	ctx := context.Background()
	rs, emitter := newReaderService(t)
	if err := rs.Open(ctx, stubMaterial("m1")); err != nil {
		t.Fatalf("Open: %v", err)
	}
	rs.GoTo(ctx, 3)

	if _, err := rs.SaveBookmark(ctx, "chem"); err != nil {
		t.Fatalf("SaveBookmark: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for len(emitter.Named(service.EventReaderSaved)) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("confirmation never cleared")
		}
		time.Sleep(5 * time.Millisecond)
	}
	saved := emitter.Named(service.EventReaderSaved)
	if saved[0].Data != true || saved[1].Data != false {
		t.Errorf("saved events = %+v", saved)
	}

	positions, err := rs.Positions(ctx)
	if err != nil || len(positions) != 1 || positions[0].Page != 3 || positions[0].SubjectID != "chem" {
		t.Errorf("positions = %+v, %v", positions, err)
	}
}

func TestReaderService_RejectsBadGeometry(t *testing.T) {
	rs, _ := newReaderService(t)
	if err := rs.SetGeometry(context.Background(), reader.Geometry{}); err == nil {
		t.Error("expected error for zero width")
	}
}

// ─────────────────────────────────────────────────────────────
// WindowSettingsService
// ─────────────────────────────────────────────────────────────

func TestWindowSettings_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := service.NewWindowSettingsService(newKV(t))

	if got := svc.LoadWindowSize(ctx); got.Width != service.DefaultWindowWidth || got.Height != service.DefaultWindowHeight {
		t.Fatalf("defaults = %+v", got)
	}
	if err := svc.SaveWindowSize(ctx, 480, 900); err != nil {
		t.Fatalf("SaveWindowSize: %v", err)
	}
	if got := svc.LoadWindowSize(ctx); got.Width != 480 || got.Height != 900 {
		t.Errorf("loaded = %+v", got)
	}

	svc.SaveWindowSize(ctx, 10, 10)
	if got := svc.LoadWindowSize(ctx); got.Width != service.DefaultWindowWidth {
		t.Errorf("tiny window not reset: %+v", got)
	}
}
