package reader

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const (
	DefaultCaptureQuality  = 60
	DefaultCaptureMaxWidth = 1600
)

type CaptureOptions struct {
	Quality  int // JPEG quality 1..100
	MaxWidth int // wider surfaces are downscaled; 0 keeps the native size
}

// Capture encodes the surface as JPEG. It only reads the surface.
func Capture(s *PageSurface, opts CaptureOptions) ([]byte, error) {
	if s == nil || s.Image == nil || s.Image.Bounds().Empty() {
		return nil, ErrCaptureUnavailable
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultCaptureQuality
	}

	var src image.Image = s.Image
	b := s.Image.Bounds()
	if opts.MaxWidth > 0 && b.Dx() > opts.MaxWidth {
		h := max(b.Dy()*opts.MaxWidth/b.Dx(), 1)
		dst := image.NewRGBA(image.Rect(0, 0, opts.MaxWidth, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), s.Image, b, draw.Src, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, fmt.Errorf("encode capture: %w", err)
	}
	return buf.Bytes(), nil
}
