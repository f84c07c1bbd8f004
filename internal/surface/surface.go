// Package surface samples the rendered mascot raster to decide whether a
// cursor position sits on a visible pixel.
package surface

import (
	"errors"
	"fmt"
)

// ErrReadUnsupported is returned by a PixelReader whose backing API cannot
// read pixels back (disposed context, missing read-back support).
var ErrReadUnsupported = errors.New("surface: pixel read-back not supported")

// Point is a position in window (logical) coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle in window (logical) coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether p lies inside r. Edges are inclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// ScaleAboutCenter returns r scaled by s around its centre.
func (r Rect) ScaleAboutCenter(s float64) Rect {
	w := r.Width * s
	h := r.Height * s
	return Rect{
		X:      r.X + (r.Width-w)/2,
		Y:      r.Y + (r.Height-h)/2,
		Width:  w,
		Height: h,
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("%gx%g@%g,%g", r.Width, r.Height, r.X, r.Y)
}

// Origin names the row order of a backing store.
type Origin int

const (
	// OriginTopLeft stores row 0 at the top (2D canvases, decoded images).
	OriginTopLeft Origin = iota
	// OriginBottomLeft stores row 0 at the bottom (GPU read-backs).
	OriginBottomLeft
)

func (o Origin) String() string {
	switch o {
	case OriginTopLeft:
		return "top-left"
	case OriginBottomLeft:
		return "bottom-left"
	default:
		return "unknown"
	}
}

// PixelReader reads single texels from a backing store.
type PixelReader interface {
	// Size returns the backing store dimensions in pixels.
	Size() (width, height int)
	// Origin returns the row order used by AlphaAt.
	Origin() Origin
	// AlphaAt returns the alpha of the texel at column x, native row y.
	AlphaAt(x, y int) (uint8, error)
}

// Surface is the rendered mascot as seen by the sampler: where it is shown in
// the window and how to read it. The renderer owns it; the sampler borrows it
// for a single query.
type Surface struct {
	// Display is the displayed bounding rectangle in window coordinates.
	Display Rect
	// Primary is tried first. Fallback is used when Primary fails.
	Primary  PixelReader
	Fallback PixelReader
}

// Readers returns the non-nil readers in preference order.
func (s *Surface) Readers() []PixelReader {
	readers := make([]PixelReader, 0, 2)
	if s.Primary != nil {
		readers = append(readers, s.Primary)
	}
	if s.Fallback != nil {
		readers = append(readers, s.Fallback)
	}
	return readers
}
