// Package geometry maps points between screen, container and world space.
//
// Screen space is what the pointer reports. Container space is screen space
// relative to the origin of the surface's own region. World space is the
// graph's logical coordinate system, independent of pan and zoom.
//
// All functions are pure. A Transform must be valid (zoom > 0, all values
// finite) before it is used for mapping; callers check with Validate or build
// it through NewTransform.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"nodecanvas/internal/errors"
)

// Point is a 2-D coordinate in whatever space the caller is working in.
type Point = r2.Vec

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Transform holds the view parameters needed to map between spaces.
type Transform struct {
	Pan             Point   // screen pixels
	Zoom            float64 // world units to screen pixels, > 0
	ContainerOffset Point   // screen position of the surface origin
}

// Identity returns a transform with no pan, no offset and zoom 1.
func Identity() Transform {
	return Transform{Zoom: 1}
}

// NewTransform builds a validated transform.
func NewTransform(pan Point, zoom float64, containerOffset Point) (Transform, error) {
	t := Transform{Pan: pan, Zoom: zoom, ContainerOffset: containerOffset}
	if err := t.Validate(); err != nil {
		return Transform{}, err
	}
	return t, nil
}

// Validate reports ErrInvalidGeometry for a non-positive zoom or any
// non-finite component.
func (t Transform) Validate() error {
	if err := ValidateZoom(t.Zoom); err != nil {
		return err
	}
	if !Finite(t.Pan) || !Finite(t.ContainerOffset) {
		return errors.Wrapf(errors.ErrInvalidGeometry, "non-finite pan %v or offset %v", t.Pan, t.ContainerOffset)
	}
	return nil
}

// ScreenToWorld maps a pointer position to world space.
func (t Transform) ScreenToWorld(p Point) Point {
	return r2.Scale(1/t.Zoom, r2.Sub(r2.Sub(p, t.ContainerOffset), t.Pan))
}

// WorldToScreen maps a world position to pointer space.
func (t Transform) WorldToScreen(p Point) Point {
	return r2.Add(r2.Add(r2.Scale(t.Zoom, p), t.Pan), t.ContainerOffset)
}

// WorldToContainer maps a world position into container space, which is what
// a renderer positioned at the container origin draws with.
func (t Transform) WorldToContainer(p Point) Point {
	return r2.Add(r2.Scale(t.Zoom, p), t.Pan)
}

// ScaleLength converts a world length to screen pixels.
func (t Transform) ScaleLength(l float64) float64 {
	return l * t.Zoom
}

// ValidateZoom reports ErrInvalidGeometry unless zoom is finite and positive.
func ValidateZoom(zoom float64) error {
	if math.IsNaN(zoom) || math.IsInf(zoom, 0) || zoom <= 0 {
		return errors.WithHint(
			errors.Wrapf(errors.ErrInvalidGeometry, "zoom %v", zoom),
			"zoom must be clamped to a positive value before it is applied",
		)
	}
	return nil
}

// Finite reports whether both components of p are finite.
func Finite(p Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// ZoomAbout returns the pan that keeps the world point under anchor fixed on
// screen when the zoom changes to newZoom. Used for wheel zoom.
func (t Transform) ZoomAbout(anchor Point, newZoom float64) (Point, error) {
	if err := ValidateZoom(newZoom); err != nil {
		return Point{}, err
	}
	world := t.ScreenToWorld(anchor)
	// anchor = world*newZoom + pan + offset
	return r2.Sub(r2.Sub(anchor, t.ContainerOffset), r2.Scale(newZoom, world)), nil
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
