// Package fitzdoc implements reader.Parser on top of MuPDF via go-fitz.
package fitzdoc

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/gen2brain/go-fitz"

	"haqiba/internal/reader"
)

// pointsPerInch is the PDF user-space unit: output scale 1 is 72 DPI.
const pointsPerInch = 72

type Parser struct {
	Client   *http.Client
	TempDir  string // where OpenURL spools downloads; "" means os.TempDir
	MaxBytes int64
}

func New(client *http.Client, tempDir string, maxBytes int64) *Parser {
	return &Parser{Client: client, TempDir: tempDir, MaxBytes: maxBytes}
}

func (p *Parser) OpenBytes(ctx context.Context, data []byte) (reader.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", reader.ErrDocumentCorrupt)
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, mapError(err)
	}
	return newDocument(doc, ""), nil
}

// OpenURL downloads rawURL into a temporary file and opens it from disk.
// The file is removed when the document is closed.
func (p *Parser) OpenURL(ctx context.Context, rawURL string) (reader.Document, error) {
	path, err := p.download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	doc, err := fitz.New(path)
	if err != nil {
		os.Remove(path)
		return nil, mapError(err)
	}
	return newDocument(doc, path), nil
}

func (p *Parser) download(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &reader.StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	f, err := os.CreateTemp(p.TempDir, "haqiba-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	var body io.Reader = resp.Body
	if p.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, p.MaxBytes+1)
	}
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && p.MaxBytes > 0 && n > p.MaxBytes {
		err = fmt.Errorf("document exceeds %d bytes", p.MaxBytes)
	}
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	return f.Name(), nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, fitz.ErrNoSuchFile):
		return fmt.Errorf("%w: %v", reader.ErrDocumentNotFound, err)
	case errors.Is(err, fitz.ErrOpenDocument),
		errors.Is(err, fitz.ErrOpenMemory),
		errors.Is(err, fitz.ErrNeedsPassword),
		errors.Is(err, fitz.ErrPageMissing):
		return fmt.Errorf("%w: %v", reader.ErrDocumentCorrupt, err)
	}
	return err
}

// ── Document ───────────────────────────────────────────────

type document struct {
	doc   *fitz.Document
	path  string
	pages int

	once     sync.Once
	closeErr error
}

func newDocument(doc *fitz.Document, path string) *document {
	return &document{doc: doc, path: path, pages: doc.NumPage()}
}

func (d *document) PageCount() int { return d.pages }

func (d *document) Page(ctx context.Context, number int) (reader.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if number < 1 || number > d.pages {
		return nil, fmt.Errorf("page %d out of range 1..%d", number, d.pages)
	}
	bound, err := d.doc.Bound(number - 1)
	if err != nil {
		return nil, mapError(err)
	}
	return &page{
		doc:    d.doc,
		number: number,
		size:   reader.Size{Width: float64(bound.Dx()), Height: float64(bound.Dy())},
	}, nil
}

func (d *document) Close() error {
	d.once.Do(func() {
		d.closeErr = d.doc.Close()
		if d.path != "" {
			if err := os.Remove(d.path); err != nil && !os.IsNotExist(err) && d.closeErr == nil {
				d.closeErr = err
			}
		}
	})
	return d.closeErr
}

type page struct {
	doc    *fitz.Document
	number int
	size   reader.Size
}

func (p *page) Number() int       { return p.number }
func (p *page) Size() reader.Size { return p.size }

// Rasterize cannot interrupt MuPDF mid-page, so cancellation is observed
// before and after the draw.
func (p *page) Rasterize(ctx context.Context, outputScale float64) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := p.doc.ImageDPI(p.number-1, pointsPerInch*outputScale)
	if err != nil {
		return nil, mapError(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}
