package reader

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

var (
	// ErrSuperseded marks a load or render whose result was discarded
	// because a newer request was issued.
	ErrSuperseded = errors.New("reader: superseded by a newer request")

	ErrCaptureUnavailable = errors.New("reader: no rendered page to capture")
	ErrDocumentClosed     = errors.New("reader: document closed")
	ErrNoDocument         = errors.New("reader: no document open")

	// Parsers wrap these so the loader can classify failures.
	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentCorrupt  = errors.New("document is corrupt")
)

type LoadReason int

const (
	LoadUnknown LoadReason = iota
	LoadNotFound
	LoadCorrupt
	LoadNetworkUnavailable
)

func (r LoadReason) String() string {
	switch r {
	case LoadNotFound:
		return "not_found"
	case LoadCorrupt:
		return "corrupt"
	case LoadNetworkUnavailable:
		return "network_unavailable"
	default:
		return "unknown"
	}
}

// LoadError is a recoverable document load failure.
type LoadError struct {
	Reason LoadReason
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load document (%s): %v", e.Reason, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Message is the text shown next to the retry affordance.
func (e *LoadError) Message() string {
	switch e.Reason {
	case LoadNotFound:
		return "The file for this material is missing."
	case LoadCorrupt:
		return "The file for this material is damaged."
	case LoadNetworkUnavailable:
		return "Connection problem, check your internet and retry."
	default:
		return "Sorry, the book could not be opened."
	}
}

// RenderError is a genuine rasterization failure. Cancellation never
// produces one.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render page %d: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// StatusError is returned by HTTPFetcher for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

func classifyLoadError(err error) LoadReason {
	var status *StatusError
	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return LoadNotFound
	case errors.Is(err, ErrDocumentCorrupt):
		return LoadCorrupt
	case errors.As(err, &status):
		if status.StatusCode == http.StatusNotFound || status.StatusCode == http.StatusGone {
			return LoadNotFound
		}
		return LoadNetworkUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return LoadNetworkUnavailable
	case errors.As(err, &netErr), errors.As(err, &urlErr):
		return LoadNetworkUnavailable
	}
	return LoadUnknown
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, ErrSuperseded) || errors.Is(err, ErrDocumentClosed)
}
