package domain_test

import (
	"errors"
	"testing"

	"haqiba/internal/domain"
)

func TestParseLocator(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		kind    domain.SourceKind
		base64  bool
		mime    string
		payload string
		wantErr error
	}{
		{name: "https", raw: "https://cdn.example.com/book.pdf", kind: domain.SourceRemote},
		{name: "http upper", raw: "HTTP://example.com/a.pdf", kind: domain.SourceRemote},
		{name: "data base64", raw: "data:application/pdf;base64,JVBERi0=", kind: domain.SourceInline, base64: true, mime: "application/pdf", payload: "JVBERi0="},
		{name: "data plain", raw: "data:,%25PDF", kind: domain.SourceInline, payload: "%25PDF"},
		{name: "empty", raw: "   ", wantErr: domain.ErrEmptyLocator},
		{name: "empty data", raw: "data:application/pdf;base64,", wantErr: domain.ErrEmptyLocator},
		{name: "no comma", raw: "data:application/pdf;base64", wantErr: domain.ErrUnsupportedLocator},
		{name: "ftp", raw: "ftp://example.com/a.pdf", wantErr: domain.ErrUnsupportedLocator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := domain.ParseLocator(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if loc.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", loc.Kind, tt.kind)
			}
			if loc.Base64 != tt.base64 {
				t.Errorf("base64 = %v, want %v", loc.Base64, tt.base64)
			}
			if loc.MIME != tt.mime {
				t.Errorf("mime = %q, want %q", loc.MIME, tt.mime)
			}
			if tt.kind == domain.SourceInline && loc.Payload != tt.payload {
				t.Errorf("payload = %q, want %q", loc.Payload, tt.payload)
			}
		})
	}
}

func TestViewportState_ZoomPercent(t *testing.T) {
	v := domain.ViewportState{FitScale: 0.5, CurrentScale: 0.78125}
	if got := v.ZoomPercent(); got != 156 {
		t.Errorf("expected 156, got %d", got)
	}
	if got := (domain.ViewportState{}).ZoomPercent(); got != 100 {
		t.Errorf("expected 100 for zero fit, got %d", got)
	}
}
