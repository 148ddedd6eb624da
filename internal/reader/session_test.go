package reader_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"haqiba/internal/domain"
	"haqiba/internal/reader"
)

type sessionFixture struct {
	session   *reader.Session
	parser    *fakeParser
	docs      map[string]*fakeDoc
	bookmarks *reader.Bookmarks
	rec       *recorder
	geometry  *reader.GeometryBox
}

func newSessionFixture(t *testing.T, docs map[string]*fakeDoc) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		docs:      docs,
		parser:    &fakeParser{openBytes: docsByPayload(docs)},
		bookmarks: reader.NewBookmarks(newMemKV(), nil, nil),
		rec:       newRecorder(),
		geometry:  reader.NewGeometryBox(reader.Geometry{ContainerWidth: 375, DevicePixelRatio: 1}),
	}
	f.session = reader.NewSession(reader.Options{
		Loader:       reader.NewLoader(f.parser, &fakeFetcher{}, nil),
		Bookmarks:    f.bookmarks,
		Environment:  f.geometry,
		Observer:     f.rec,
		Margin:       32,
		ConfirmDelay: 30 * time.Millisecond,
	})
	t.Cleanup(func() { f.session.Close() })
	return f
}

func (f *sessionFixture) page() int { return f.session.State().Viewport.CurrentPage }

func TestSession_OpensAtSavedPosition(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, map[string]*fakeDoc{"book": newFakeDoc(10)})
	if _, err := f.bookmarks.Save(ctx, "m1", 4, "", ""); err != nil {
		t.Fatal(err)
	}

	if err := f.session.Open(ctx, inlineMaterial("m1", "book")); err != nil {
		t.Fatalf("Open: %v", err)
	}
	st := f.session.State()
	if st.Status != reader.StatusReady {
		t.Fatalf("status = %s, want ready", st.Status)
	}
	if st.Viewport.CurrentPage != 4 || st.Viewport.TotalPages != 10 {
		t.Errorf("viewport = %+v, want page 4 of 10", st.Viewport)
	}
	if st.ZoomPercent != 100 || !approx(st.Viewport.FitScale, 343.0/750) {
		t.Errorf("zoom = %d%% fit %v", st.ZoomPercent, st.Viewport.FitScale)
	}
	if s := f.session.Surface(); s == nil || s.Page != 4 {
		t.Fatalf("surface = %+v, want page 4", s)
	}
	if f.rec.surfaceCount() != 1 {
		t.Errorf("surface events = %d, want 1", f.rec.surfaceCount())
	}
}

func TestSession_SavedPositionBeyondEndIsClamped(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, map[string]*fakeDoc{"book": newFakeDoc(3)})
	f.bookmarks.Save(ctx, "m1", 9, "", "")

	if err := f.session.Open(ctx, inlineMaterial("m1", "book")); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if f.page() != 3 {
		t.Errorf("page = %d, want 3", f.page())
	}
}

func TestSession_NavigationStopsAtBoundaries(t *testing.T) {
	ctx := context.Background()
	doc := newFakeDoc(10)
	f := newSessionFixture(t, map[string]*fakeDoc{"book": doc})
	f.bookmarks.Save(ctx, "m1", 4, "", "")
	if err := f.session.Open(ctx, inlineMaterial("m1", "book")); err != nil {
		t.Fatalf("Open: %v", err)
	}

	for range 3 {
		if err := f.session.Previous(ctx); err != nil {
			t.Fatalf("Previous: %v", err)
		}
	}
	if f.page() != 1 {
		t.Fatalf("page = %d, want 1", f.page())
	}

	renders := doc.rasterCalls.Load()
	if err := f.session.Previous(ctx); err != nil {
		t.Fatalf("Previous at start: %v", err)
	}
	if f.page() != 1 || doc.rasterCalls.Load() != renders {
		t.Errorf("previous on page 1 changed something: page %d, renders %d -> %d", f.page(), renders, doc.rasterCalls.Load())
	}

	if err := f.session.GoTo(ctx, 10); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	renders = doc.rasterCalls.Load()
	if err := f.session.Next(ctx); err != nil {
		t.Fatalf("Next at end: %v", err)
	}
	if f.page() != 10 || doc.rasterCalls.Load() != renders {
		t.Errorf("next on last page changed something: page %d", f.page())
	}
}

func TestSession_ZoomControls(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, map[string]*fakeDoc{"book": newFakeDoc(2)})
	if err := f.session.Open(ctx, inlineMaterial("m1", "book")); err != nil {
		t.Fatalf("Open: %v", err)
	}

	f.session.ZoomIn(ctx)
	f.session.ZoomIn(ctx)
	st := f.session.State()
	if !approx(st.Viewport.CurrentScale, st.Viewport.FitScale*1.5625) {
		t.Errorf("scale = %v, want fit*1.5625", st.Viewport.CurrentScale)
	}
	if st.ZoomPercent != 156 {
		t.Errorf("zoom percent = %d, want 156", st.ZoomPercent)
	}
	if s := f.session.Surface(); !approx(s.Scale, st.Viewport.CurrentScale) {
		t.Errorf("surface scale = %v, want %v", s.Scale, st.Viewport.CurrentScale)
	}

	// Zoom survives a page turn.
	f.session.Next(ctx)
	if got := f.session.State().ZoomPercent; got != 156 {
		t.Errorf("zoom after page turn = %d, want 156", got)
	}
}

func TestSession_PinchCommitsOnce(t *testing.T) {
	ctx := context.Background()
	doc := newFakeDoc(2)
	f := newSessionFixture(t, map[string]*fakeDoc{"book": doc})
	if err := f.session.Open(ctx, inlineMaterial("m1", "book")); err != nil {
		t.Fatalf("Open: %v", err)
	}
	fit := f.session.State().Viewport.FitScale
	renders := doc.rasterCalls.Load()

	f.session.TouchStart(pinch(100))
	for _, d := range []float64{120, 150, 180, 200} {
		f.session.TouchMove(pinch(d))
	}
	if doc.rasterCalls.Load() != renders {
		t.Fatal("pinch moves must not rasterize")
	}
	if p, ok := f.rec.lastPreview(); !ok || !approx(p.Transform, 2) {
		t.Fatalf("last preview = %+v, want transform 2", p)
	}

	if err := f.session.TouchEnd(ctx, nil); err != nil {
		t.Fatalf("TouchEnd: %v", err)
	}
	if doc.rasterCalls.Load() != renders+1 {
		t.Errorf("renders after commit = %d, want %d", doc.rasterCalls.Load(), renders+1)
	}
	st := f.session.State()
	if !approx(st.Viewport.CurrentScale, fit*2) || st.Gesture != "idle" {
		t.Errorf("after pinch: scale %v gesture %s", st.Viewport.CurrentScale, st.Gesture)
	}
	if p, _ := f.rec.lastPreview(); p.Transform != 1 {
		t.Errorf("preview not reset after commit: %+v", p)
	}
}

func TestSession_SupersededOpenReleasesDocument(t *testing.T) {
	ctx := context.Background()
	first, second := newFakeDoc(5), newFakeDoc(8)
	f := newSessionFixture(t, map[string]*fakeDoc{"second": second})

	entered := make(chan struct{})
	f.parser.openBytes = func(lctx context.Context, data []byte) (reader.Document, error) {
		if string(data) == "first" {
			close(entered)
			<-lctx.Done()
			return first, nil // parser finished anyway
		}
		return second, nil
	}

	done := make(chan error, 1)
	go func() { done <- f.session.Open(ctx, inlineMaterial("a", "first")) }()
	<-entered

	if err := f.session.Open(ctx, inlineMaterial("b", "second")); err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if err := <-done; !errors.Is(err, reader.ErrSuperseded) {
		t.Fatalf("first Open = %v, want ErrSuperseded", err)
	}
	if !first.closed.Load() {
		t.Error("superseded document was not released")
	}
	st := f.session.State()
	if st.MaterialID != "b" || st.Viewport.TotalPages != 8 || st.Status != reader.StatusReady {
		t.Errorf("state = %+v, want material b ready with 8 pages", st)
	}
}

func TestSession_ReopenReleasesPrevious(t *testing.T) {
	ctx := context.Background()
	a, b := newFakeDoc(2), newFakeDoc(2)
	f := newSessionFixture(t, map[string]*fakeDoc{"a": a, "b": b})

	f.session.Open(ctx, inlineMaterial("a", "a"))
	f.session.ZoomIn(ctx)
	if err := f.session.Open(ctx, inlineMaterial("b", "b")); err != nil {
		t.Fatalf("Open b: %v", err)
	}
	if !a.closed.Load() {
		t.Error("previous document still open")
	}
	if got := f.session.State().ZoomPercent; got != 100 {
		t.Errorf("zoom on new document = %d, want 100", got)
	}

	f.session.Close()
	if !b.closed.Load() {
		t.Error("Close left the document open")
	}
	if st := f.session.State(); st.Status != reader.StatusIdle || f.session.Surface() != nil {
		t.Errorf("after close: %+v", st)
	}
}

func TestSession_LoadErrorAndRetry(t *testing.T) {
	ctx := context.Background()
	doc := newFakeDoc(3)
	f := newSessionFixture(t, map[string]*fakeDoc{})

	err := f.session.Open(ctx, inlineMaterial("m1", "book"))
	var le *reader.LoadError
	if !errors.As(err, &le) || le.Reason != reader.LoadCorrupt {
		t.Fatalf("Open = %v, want corrupt LoadError", err)
	}
	st := f.session.State()
	if st.Status != reader.StatusFailed || st.Error == "" || st.ErrorReason != "corrupt" {
		t.Errorf("state = %+v", st)
	}

	f.docs["book"] = doc
	if err := f.session.Retry(ctx); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if st := f.session.State(); st.Status != reader.StatusReady || st.Error != "" {
		t.Errorf("after retry: %+v", st)
	}
}

func TestSession_EmptyLocatorIsNotFound(t *testing.T) {
	f := newSessionFixture(t, nil)
	err := f.session.Open(context.Background(), domain.Material{ID: "m1", Title: "No file"})
	var le *reader.LoadError
	if !errors.As(err, &le) || le.Reason != reader.LoadNotFound {
		t.Errorf("Open = %v, want not_found LoadError", err)
	}
}

func TestSession_RenderErrorKeepsDocumentOpen(t *testing.T) {
	ctx := context.Background()
	doc := newFakeDoc(3)
	fail := true
	doc.rasterize = func(context.Context, int, float64) error {
		if fail {
			return errors.New("broken page")
		}
		return nil
	}
	f := newSessionFixture(t, map[string]*fakeDoc{"book": doc})

	err := f.session.Open(ctx, inlineMaterial("m1", "book"))
	var rerr *reader.RenderError
	if !errors.As(err, &rerr) {
		t.Fatalf("Open = %v, want RenderError", err)
	}
	st := f.session.State()
	if st.Status != reader.StatusReady || st.RenderError == "" {
		t.Errorf("state = %+v, want ready with render error", st)
	}

	fail = false
	if err := f.session.Retry(ctx); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if st := f.session.State(); st.RenderError != "" {
		t.Errorf("render error not cleared: %+v", st)
	}
}

func TestSession_Capture(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, map[string]*fakeDoc{"book": newFakeDoc(1)})

	if _, err := f.session.Capture(); !errors.Is(err, reader.ErrCaptureUnavailable) {
		t.Fatalf("capture before open = %v, want ErrCaptureUnavailable", err)
	}
	if err := f.session.Open(ctx, inlineMaterial("m1", "book")); err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, err := f.session.Capture()
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Error("capture is not a JPEG")
	}
}

func TestSession_CaptureWaitsForCurrentPage(t *testing.T) {
	ctx := context.Background()
	doc := newFakeDoc(3)
	f := newSessionFixture(t, map[string]*fakeDoc{"book": doc})
	if err := f.session.Open(ctx, inlineMaterial("m1", "book")); err != nil {
		t.Fatalf("Open: %v", err)
	}

	release := make(chan struct{})
	doc.rasterize = gate(release)
	done := make(chan error, 1)
	go func() { done <- f.session.Next(ctx) }()
	waitFor(t, func() bool { return doc.rasterCalls.Load() == 2 })

	if _, err := f.session.Capture(); !errors.Is(err, reader.ErrCaptureUnavailable) {
		t.Errorf("capture while page 2 is drawing = %v, want ErrCaptureUnavailable", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Next: %v", err)
	}
	if _, err := f.session.Capture(); err != nil {
		t.Errorf("capture after page 2 committed: %v", err)
	}

	doc.rasterize = func(context.Context, int, float64) error { return errors.New("broken page") }
	f.session.Next(ctx)
	if _, err := f.session.Capture(); !errors.Is(err, reader.ErrCaptureUnavailable) {
		t.Errorf("capture after render error = %v, want ErrCaptureUnavailable", err)
	}
}

func TestSession_SaveBookmarkConfirmation(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, map[string]*fakeDoc{"book": newFakeDoc(6)})
	if _, err := f.session.SaveBookmark(ctx, ""); !errors.Is(err, reader.ErrNoDocument) {
		t.Fatalf("save without document = %v", err)
	}
	if err := f.session.Open(ctx, inlineMaterial("m1", "book")); err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.session.GoTo(ctx, 5)

	pos, err := f.session.SaveBookmark(ctx, "subj-1")
	if err != nil {
		t.Fatalf("SaveBookmark: %v", err)
	}
	if pos.Page != 5 || pos.Title != "Material m1" || pos.SubjectID != "subj-1" {
		t.Errorf("saved = %+v", pos)
	}

	for _, want := range []bool{true, false} {
		select {
		case got := <-f.rec.confirms:
			if got != want {
				t.Fatalf("confirm = %v, want %v", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("no confirm event (want %v)", want)
		}
	}
	if got := f.bookmarks.Position(ctx, "m1"); got != 5 {
		t.Errorf("stored position = %d, want 5", got)
	}
}

func TestSession_ResizeRefits(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(t, map[string]*fakeDoc{"book": newFakeDoc(1)})
	if err := f.session.Open(ctx, inlineMaterial("m1", "book")); err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.session.ZoomIn(ctx)

	f.geometry.Set(reader.Geometry{ContainerWidth: 782, DevicePixelRatio: 2})
	if err := f.session.Resize(ctx); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	st := f.session.State()
	if !approx(st.Viewport.FitScale, 1) || st.ZoomPercent != 125 {
		t.Errorf("after resize: fit %v zoom %d", st.Viewport.FitScale, st.ZoomPercent)
	}
	if s := f.session.Surface(); !approx(s.OutputScale, 1.25*2) {
		t.Errorf("output scale = %v, want 2.5", s.OutputScale)
	}
}
