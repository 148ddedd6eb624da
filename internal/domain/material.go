package domain

import (
	"errors"
	"fmt"
	"strings"
)

type MaterialType string

const (
	MaterialTypeBook      MaterialType = "book"
	MaterialTypeSummary   MaterialType = "summary"
	MaterialTypeQuestions MaterialType = "questions"
)

// Material is a library entry as supplied by the listing. The reader only
// borrows it for the length of a session.
type Material struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Type      MaterialType `json:"type"`
	URL       string       `json:"url"` // remote URL or data: URL
	PageCount int          `json:"pageCount,omitempty"`
	AddedAt   int64        `json:"addedAt,omitempty"`
}

// Locator parses the material's URL into a SourceLocator.
func (m Material) Locator() (SourceLocator, error) {
	return ParseLocator(m.URL)
}

type SourceKind int

const (
	SourceRemote SourceKind = iota + 1
	SourceInline
)

func (k SourceKind) String() string {
	switch k {
	case SourceRemote:
		return "remote"
	case SourceInline:
		return "inline"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyLocator       = errors.New("source locator is empty")
	ErrUnsupportedLocator = errors.New("unsupported source locator")
)

// SourceLocator says where a document's bytes come from.
// For SourceInline, Payload holds the still-encoded data section of the URL.
type SourceLocator struct {
	Kind    SourceKind
	URL     string
	MIME    string
	Base64  bool
	Payload string
}

// ParseLocator accepts http(s) URLs and RFC 2397 data URLs.
func ParseLocator(raw string) (SourceLocator, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SourceLocator{}, ErrEmptyLocator
	}

	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return SourceLocator{Kind: SourceRemote, URL: raw}, nil

	case strings.HasPrefix(lower, "data:"):
		header, payload, ok := strings.Cut(raw[len("data:"):], ",")
		if !ok {
			return SourceLocator{}, fmt.Errorf("%w: data URL without payload", ErrUnsupportedLocator)
		}
		loc := SourceLocator{Kind: SourceInline, Payload: payload}
		for i, param := range strings.Split(header, ";") {
			switch {
			case i == 0:
				loc.MIME = param
			case strings.EqualFold(param, "base64"):
				loc.Base64 = true
			}
		}
		if loc.Payload == "" {
			return SourceLocator{}, fmt.Errorf("%w: empty data URL", ErrEmptyLocator)
		}
		return loc, nil
	}

	return SourceLocator{}, fmt.Errorf("%w: %.32q", ErrUnsupportedLocator, raw)
}

func (l SourceLocator) String() string {
	if l.Kind == SourceInline {
		return fmt.Sprintf("data:%s (%d encoded bytes)", l.MIME, len(l.Payload))
	}
	return l.URL
}
