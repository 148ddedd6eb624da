package reader

import (
	"math"
	"time"
)

const (
	DefaultDoubleTapInterval = 300 * time.Millisecond
	tapSlop                  = 10 // px a finger may drift and still count as a tap
)

type GesturePhase int

const (
	PhaseIdle GesturePhase = iota
	PhasePinchTracking
	PhaseSettling
)

func (p GesturePhase) String() string {
	switch p {
	case PhasePinchTracking:
		return "pinch"
	case PhaseSettling:
		return "settling"
	default:
		return "idle"
	}
}

// Point is a touch point in container pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Preview is a visual transform applied to the surface already on screen.
// Transform is Scale divided by the scale the surface was rasterized for.
type Preview struct {
	Scale     float64 `json:"scale"`
	Transform float64 `json:"transform"`
}

type GestureAction int

const (
	ActionNone GestureAction = iota
	ActionCommit
	ActionDoubleTap
)

// GestureResult is what a touch-end produced. Scale is set for ActionCommit
// and is already clamped.
type GestureResult struct {
	Action GestureAction
	Scale  float64
}

// Gestures holds transient touch state. It never mutates the Viewport; the
// session commits Scale once the gesture ends.
type Gestures struct {
	now      func() time.Time
	interval time.Duration

	phase      GesturePhase
	startDist  float64
	startScale float64
	ratio      float64

	tapCandidate bool
	tapStart     Point
	lastTap      time.Time
	hasLastTap   bool
}

func NewGestures(interval time.Duration, now func() time.Time) *Gestures {
	if interval <= 0 {
		interval = DefaultDoubleTapInterval
	}
	if now == nil {
		now = time.Now
	}
	return &Gestures{now: now, interval: interval, ratio: 1}
}

func (g *Gestures) Phase() GesturePhase { return g.phase }

// Start handles touchstart with every active point.
func (g *Gestures) Start(points []Point, vp *Viewport) {
	if g.phase == PhasePinchTracking {
		return
	}
	switch {
	case len(points) >= 2:
		g.phase = PhasePinchTracking
		g.startDist = math.Max(distance(points[0], points[1]), 1)
		g.startScale = vp.Scale()
		g.ratio = 1
		g.tapCandidate = false
		g.hasLastTap = false
	case len(points) == 1:
		g.tapCandidate = true
		g.tapStart = points[0]
	}
}

// Move handles touchmove. While pinching it returns the preview to apply
// over renderedScale; no rasterization is requested.
func (g *Gestures) Move(points []Point, vp *Viewport, renderedScale float64) (Preview, bool) {
	if g.phase == PhasePinchTracking && len(points) >= 2 {
		g.ratio = distance(points[0], points[1]) / g.startDist
		scale := vp.ClampPreview(g.startScale * g.ratio)
		if renderedScale <= 0 {
			renderedScale = vp.Scale()
		}
		return Preview{Scale: scale, Transform: scale / renderedScale}, true
	}
	if g.tapCandidate && len(points) == 1 && distance(points[0], g.tapStart) > tapSlop {
		g.tapCandidate = false
	}
	return Preview{}, false
}

// End handles touchend with the points still down.
func (g *Gestures) End(remaining []Point, vp *Viewport) GestureResult {
	if g.phase == PhasePinchTracking {
		if len(remaining) > 0 {
			return GestureResult{}
		}
		g.phase = PhaseSettling
		return GestureResult{Action: ActionCommit, Scale: vp.Clamp(g.startScale * g.ratio)}
	}

	if !g.tapCandidate || len(remaining) > 0 {
		return GestureResult{}
	}
	g.tapCandidate = false
	now := g.now()
	if g.hasLastTap && now.Sub(g.lastTap) < g.interval {
		g.hasLastTap = false
		return GestureResult{Action: ActionDoubleTap}
	}
	g.lastTap, g.hasLastTap = now, true
	return GestureResult{}
}

// Settled marks the commit render as issued.
func (g *Gestures) Settled() {
	if g.phase == PhaseSettling {
		g.phase = PhaseIdle
	}
}

// Cancel drops any in-progress gesture, e.g. on touchcancel or page change.
func (g *Gestures) Cancel() {
	g.phase = PhaseIdle
	g.ratio = 1
	g.tapCandidate = false
	g.hasLastTap = false
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
