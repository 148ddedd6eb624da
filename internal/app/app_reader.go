package app

import (
	"haqiba/internal/domain"
	"haqiba/internal/reader"
)

// ============================================================
// Reader
// ============================================================

// OpenMaterial shows m, resuming at its saved page.
func (a *App) OpenMaterial(m domain.Material) error {
	return a.svc.reader.Open(a.ctx, m)
}

func (a *App) CloseMaterial() error {
	return a.svc.reader.Close()
}

// RetryReader re-opens after a load error or re-draws after a render error.
func (a *App) RetryReader() error {
	return a.svc.reader.Retry(a.ctx)
}

func (a *App) ReaderState() reader.State {
	return a.svc.reader.State()
}

func (a *App) NextPage() error     { return a.svc.reader.Next(a.ctx) }
func (a *App) PreviousPage() error { return a.svc.reader.Previous(a.ctx) }
func (a *App) ZoomIn() error       { return a.svc.reader.ZoomIn(a.ctx) }
func (a *App) ZoomOut() error      { return a.svc.reader.ZoomOut(a.ctx) }

func (a *App) GoToPage(page int) error {
	return a.svc.reader.GoTo(a.ctx, page)
}

// SetViewport is called on mount and on every container resize.
func (a *App) SetViewport(containerWidth, devicePixelRatio float64) error {
	return a.svc.reader.SetGeometry(a.ctx, reader.Geometry{
		ContainerWidth:   containerWidth,
		DevicePixelRatio: devicePixelRatio,
	})
}

// ── Touch ──────────────────────────────────────────────────

func (a *App) TouchStart(points []reader.Point) { a.svc.reader.TouchStart(points) }
func (a *App) TouchMove(points []reader.Point)  { a.svc.reader.TouchMove(points) }
func (a *App) TouchCancel()                     { a.svc.reader.TouchCancel() }

// TouchEnd receives the fingers still down after the lift.
func (a *App) TouchEnd(remaining []reader.Point) error {
	return a.svc.reader.TouchEnd(a.ctx, remaining)
}

// ── Positions ──────────────────────────────────────────────

func (a *App) SaveBookmark(subjectID string) (domain.ReadingPosition, error) {
	return a.svc.reader.SaveBookmark(a.ctx, subjectID)
}

// ReadingPositions feeds the library's continue-reading list.
func (a *App) ReadingPositions() ([]domain.ReadingPosition, error) {
	return a.svc.reader.Positions(a.ctx)
}

func (a *App) ReadingPosition(materialID string) int {
	return a.svc.reader.Position(a.ctx, materialID)
}
