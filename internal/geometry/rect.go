package geometry

import "gonum.org/v1/gonum/spatial/r2"

// Rect is an axis-aligned rectangle; Min is the top-left corner.
type Rect = r2.Box

// RectFromOrigin builds a rectangle from its top-left corner and size.
func RectFromOrigin(origin Point, width, height float64) Rect {
	return Rect{Min: origin, Max: Point{X: origin.X + width, Y: origin.Y + height}}
}

// Contains reports whether p lies inside r, edges included.
func Contains(r Rect, p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Empty reports whether r has zero or negative area.
func Empty(r Rect) bool {
	return r.Max.X <= r.Min.X || r.Max.Y <= r.Min.Y
}

// Size returns the width and height of r.
func Size(r Rect) (float64, float64) {
	return r.Max.X - r.Min.X, r.Max.Y - r.Min.Y
}

// Union returns the smallest rectangle containing a and b. An empty operand
// is ignored.
func Union(a, b Rect) Rect {
	if Empty(a) {
		return b
	}
	if Empty(b) {
		return a
	}
	return Rect{
		Min: Point{X: min(a.Min.X, b.Min.X), Y: min(a.Min.Y, b.Min.Y)},
		Max: Point{X: max(a.Max.X, b.Max.X), Y: max(a.Max.Y, b.Max.Y)},
	}
}
