package domain

import (
	"nodecanvas/internal/geometry"
)

// ViewState is the pan and zoom of one surface.
type ViewState struct {
	Pan  geometry.Point // screen pixels
	Zoom float64
}

// DefaultView has no pan and zoom 1.
func DefaultView() ViewState {
	return ViewState{Zoom: 1}
}

// Validate reports ErrInvalidGeometry for a non-positive zoom or a non-finite
// pan.
func (v ViewState) Validate() error {
	return v.Transform(geometry.Point{}).Validate()
}

// Transform combines the view with the container offset supplied for this
// frame.
func (v ViewState) Transform(containerOffset geometry.Point) geometry.Transform {
	return geometry.Transform{
		Pan:             v.Pan,
		Zoom:            v.Zoom,
		ContainerOffset: containerOffset,
	}
}

// ScreenPosition is where a world point is drawn relative to the container
// origin: pan + p*zoom.
func (v ViewState) ScreenPosition(p geometry.Point) geometry.Point {
	return v.Transform(geometry.Point{}).WorldToContainer(p)
}
