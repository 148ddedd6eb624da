package reader

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/wailsapp/wails/v2/pkg/logger"

	"haqiba/internal/domain"
)

// Fetcher downloads a remote document in full.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// HTTPFetcher is the default Fetcher.
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64 // 0 means unlimited
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	if f.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if f.MaxBytes > 0 && int64(len(data)) > f.MaxBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", f.MaxBytes)
	}
	return data, nil
}

// Loader resolves a SourceLocator into an open Handle.
type Loader struct {
	parser  Parser
	fetcher Fetcher
	log     logger.Logger
}

func NewLoader(parser Parser, fetcher Fetcher, log logger.Logger) *Loader {
	if fetcher == nil {
		fetcher = &HTTPFetcher{}
	}
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Loader{parser: parser, fetcher: fetcher, log: log}
}

// Load opens the document behind loc. A cancelled ctx returns ctx.Err() and
// releases anything opened on the way; all other failures are *LoadError.
func (l *Loader) Load(ctx context.Context, loc domain.SourceLocator) (*Handle, error) {
	var (
		doc Document
		err error
	)
	switch loc.Kind {
	case domain.SourceInline:
		doc, err = l.loadInline(ctx, loc)
	case domain.SourceRemote:
		doc, err = l.loadRemote(ctx, loc)
	default:
		err = &LoadError{Reason: LoadUnknown, Err: domain.ErrUnsupportedLocator}
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		doc.Close()
		return nil, ctxErr
	}
	if doc.PageCount() < 1 {
		doc.Close()
		return nil, &LoadError{Reason: LoadCorrupt, Err: fmt.Errorf("%w: no pages", ErrDocumentCorrupt)}
	}
	return NewHandle(doc), nil
}

func (l *Loader) loadInline(ctx context.Context, loc domain.SourceLocator) (Document, error) {
	data, err := decodePayload(loc)
	if err != nil {
		return nil, &LoadError{Reason: LoadCorrupt, Err: fmt.Errorf("decode inline payload: %w", err)}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := l.parser.OpenBytes(ctx, data)
	if err != nil {
		return nil, &LoadError{Reason: classifyLoadError(err), Err: err}
	}
	return doc, nil
}

func (l *Loader) loadRemote(ctx context.Context, loc domain.SourceLocator) (Document, error) {
	data, fetchErr := l.fetcher.Fetch(ctx, loc.URL)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fetchErr == nil {
		doc, err := l.parser.OpenBytes(ctx, data)
		if err != nil {
			return nil, &LoadError{Reason: classifyLoadError(err), Err: err}
		}
		return doc, nil
	}

	l.log.Warning(fmt.Sprintf("[Reader] fetch %s failed, handing URL to parser: %v", loc.URL, fetchErr))
	doc, err := l.parser.OpenURL(ctx, loc.URL)
	if err != nil {
		reason := classifyLoadError(err)
		if reason == LoadUnknown {
			reason = classifyLoadError(fetchErr)
		}
		return nil, &LoadError{Reason: reason, Err: fmt.Errorf("%w (fetch: %v)", err, fetchErr)}
	}
	return doc, nil
}

func decodePayload(loc domain.SourceLocator) ([]byte, error) {
	if !loc.Base64 {
		s, err := url.PathUnescape(loc.Payload)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	}
	payload := strings.TrimSpace(loc.Payload)
	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return data, nil
	}
	// Some uploaders strip padding or use the URL alphabet.
	if data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(payload, "="))
}
