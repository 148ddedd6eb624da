package reader

import "math"

const (
	MinZoom = 0.5 // committed scale bounds, as multiples of the fit scale
	MaxZoom = 4.0

	PreviewMinZoom = 0.5 // visual-only bounds while pinching
	PreviewMaxZoom = 5.0

	DoubleTapZoom   = 2.5
	DefaultZoomStep = 1.25
	DefaultMargin   = 32
	fallbackWidth   = 375
	enlargedEpsilon = 1.05
	defaultFitScale = 1.0
)

// Viewport holds the committed fit and display scales.
// The zoom ratio scale/fit always stays within [MinZoom, MaxZoom].
type Viewport struct {
	fit    float64
	scale  float64
	margin float64
	step   float64
}

func NewViewport(margin, step float64) *Viewport {
	if margin < 0 {
		margin = DefaultMargin
	}
	if step <= 1 {
		step = DefaultZoomStep
	}
	return &Viewport{fit: defaultFitScale, scale: defaultFitScale, margin: margin, step: step}
}

// FitScale is the scale at which the page width fills the container.
func (v *Viewport) FitScale() float64 { return v.fit }

// Scale is the committed display scale.
func (v *Viewport) Scale() float64 { return v.scale }

// Ratio is scale relative to fit.
func (v *Viewport) Ratio() float64 { return v.scale / v.fit }

// Percent is the zoom shown to the user.
func (v *Viewport) Percent() int { return int(math.Round(v.Ratio() * 100)) }

// ComputeFit returns (containerWidth − margin) / pageWidth, falling back to
// sane values when the geometry is degenerate.
func (v *Viewport) ComputeFit(containerWidth, pageWidth float64) float64 {
	if pageWidth <= 0 {
		return defaultFitScale
	}
	if containerWidth <= 0 {
		containerWidth = fallbackWidth
	}
	usable := containerWidth - v.margin
	if usable <= 0 {
		usable = containerWidth
	}
	return usable / pageWidth
}

// Reset starts a new document at fit-to-width.
func (v *Viewport) Reset(containerWidth, pageWidth float64) {
	v.fit = v.ComputeFit(containerWidth, pageWidth)
	v.scale = v.fit
}

// Refit recomputes the fit scale for a new page or container size and keeps
// the current zoom ratio.
func (v *Viewport) Refit(containerWidth, pageWidth float64) {
	ratio := v.Ratio()
	v.fit = v.ComputeFit(containerWidth, pageWidth)
	v.scale = v.Clamp(v.fit * ratio)
}

// Clamp bounds s to [fit×MinZoom, fit×MaxZoom].
func (v *Viewport) Clamp(s float64) float64 {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return v.fit
	}
	return math.Min(math.Max(s, v.fit*MinZoom), v.fit*MaxZoom)
}

// ClampPreview bounds s to the visual range used during a pinch.
func (v *Viewport) ClampPreview(s float64) float64 {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return v.scale
	}
	return math.Min(math.Max(s, v.fit*PreviewMinZoom), v.fit*PreviewMaxZoom)
}

// SetScale commits a clamped scale and returns it.
func (v *Viewport) SetScale(s float64) float64 {
	v.scale = v.Clamp(s)
	return v.scale
}

func (v *Viewport) ZoomIn() float64  { return v.SetScale(v.scale * v.step) }
func (v *Viewport) ZoomOut() float64 { return v.SetScale(v.scale / v.step) }

// Enlarged reports whether the view is zoomed in past fit.
func (v *Viewport) Enlarged() bool { return v.scale > v.fit*enlargedEpsilon }

// ToggleDoubleTap switches between fit and the enlarged preset.
func (v *Viewport) ToggleDoubleTap() float64 {
	if v.Enlarged() {
		return v.SetScale(v.fit)
	}
	return v.SetScale(v.fit * DoubleTapZoom)
}
