package domain

import (
	"strings"

	"nodecanvas/internal/geometry"
)

// Router computes an edge path. The first point must be derived from the
// source node and the last from the target; anything in between is free.
type Router interface {
	Route(source, target *Node) []geometry.Point
	Name() string
}

// StraightRouter draws a single segment from the source's right port to the
// target's left port.
type StraightRouter struct{}

// Route returns [source.RightPort, target.LeftPort].
func (StraightRouter) Route(source, target *Node) []geometry.Point {
	return []geometry.Point{source.RightPort(), target.LeftPort()}
}

// Name returns "straight".
func (StraightRouter) Name() string { return "straight" }

// OrthogonalRouter bends the edge at the horizontal midpoint between the
// ports so every segment is axis-aligned.
type OrthogonalRouter struct{}

// Route returns a three-segment elbow, or a straight segment when the ports
// are already level.
func (OrthogonalRouter) Route(source, target *Node) []geometry.Point {
	from, to := source.RightPort(), target.LeftPort()
	if from.Y == to.Y {
		return []geometry.Point{from, to}
	}
	mid := (from.X + to.X) / 2
	return []geometry.Point{
		from,
		geometry.Pt(mid, from.Y),
		geometry.Pt(mid, to.Y),
		to,
	}
}

// Name returns "orthogonal".
func (OrthogonalRouter) Name() string { return "orthogonal" }

// ParseRouter maps a router name to a Router, defaulting to straight.
func ParseRouter(name string) Router {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "orthogonal", "elbow":
		return OrthogonalRouter{}
	default:
		return StraightRouter{}
	}
}
