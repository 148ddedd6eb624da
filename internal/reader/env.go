package reader

import "sync"

// Geometry is the hosting container as last reported by the frontend.
type Geometry struct {
	ContainerWidth   float64 `json:"containerWidth"`
	DevicePixelRatio float64 `json:"devicePixelRatio"`
}

// Environment supplies host capabilities. Sessions re-read it on every fit
// and render instead of consulting globals.
type Environment interface {
	Geometry() Geometry
}

// GeometryBox is a mutable Environment updated on resize events.
type GeometryBox struct {
	mu sync.RWMutex
	g  Geometry
}

func NewGeometryBox(g Geometry) *GeometryBox {
	return &GeometryBox{g: g}
}

func (b *GeometryBox) Geometry() Geometry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.g
}

func (b *GeometryBox) Set(g Geometry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.g = g
}
