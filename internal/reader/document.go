package reader

import (
	"context"
	"fmt"
	"image"
	"sync"
)

// Size is an unscaled page size in points.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Page is a resolved page of an open document.
type Page interface {
	Number() int
	Size() Size
	// Rasterize draws the page at outputScale pixels per point. Implementations
	// should return ctx.Err() when they observe cancellation.
	Rasterize(ctx context.Context, outputScale float64) (*image.RGBA, error)
}

// Document is a parsed, page-addressable document owned by one session.
type Document interface {
	PageCount() int
	Page(ctx context.Context, number int) (Page, error)
	Close() error
}

// Parser turns bytes, or a URL it opens through its own I/O, into a Document.
type Parser interface {
	OpenBytes(ctx context.Context, data []byte) (Document, error)
	OpenURL(ctx context.Context, rawURL string) (Document, error)
}

// ─────────────────────────────────────────────────────────────
// Handle: scoped ownership of an open Document
// ─────────────────────────────────────────────────────────────

// Handle guards a Document so that Close waits for every in-flight use to
// return before releasing it, and no use can start after Close.
type Handle struct {
	mu     sync.RWMutex
	doc    Document
	pages  int
	closed bool
}

func NewHandle(doc Document) *Handle {
	return &Handle{doc: doc, pages: doc.PageCount()}
}

func (h *Handle) PageCount() int { return h.pages }

// Use runs fn with the document held open. It returns ErrDocumentClosed if
// the handle was already released. fn must not call Use again.
func (h *Handle) Use(fn func(Document) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrDocumentClosed
	}
	return fn(h.doc)
}

// PageSize resolves a page and returns its unscaled size.
func (h *Handle) PageSize(ctx context.Context, number int) (Size, error) {
	var size Size
	err := h.Use(func(doc Document) error {
		page, err := doc.Page(ctx, number)
		if err != nil {
			return fmt.Errorf("page %d: %w", number, err)
		}
		size = page.Size()
		return nil
	})
	return size, err
}

// Close releases the document. It is safe to call more than once.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.doc.Close()
}
