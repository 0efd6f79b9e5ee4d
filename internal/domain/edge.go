package domain

import (
	"fmt"

	"nodecanvas/internal/geometry"
)

// EdgeKey identifies an edge by its endpoints. A surface holds at most one
// edge per ordered pair.
type EdgeKey struct {
	Source NodeID
	Target NodeID
}

// String renders the key as "source->target".
func (k EdgeKey) String() string {
	return fmt.Sprintf("%d->%d", k.Source, k.Target)
}

// Edge connects the right port of its source to the left port of its target.
// Path is a world-space cache derived from the endpoints; SourceID and
// TargetID are the source of truth for connectivity.
type Edge struct {
	SourceID NodeID
	TargetID NodeID
	Path     []geometry.Point

	routed    bool
	sourceRev uint64
	targetRev uint64
}

// NewEdge creates an unrouted edge.
func NewEdge(source, target NodeID) *Edge {
	return &Edge{
		SourceID: source,
		TargetID: target,
	}
}

// Key returns the edge's endpoint pair.
func (e *Edge) Key() EdgeKey {
	return EdgeKey{Source: e.SourceID, Target: e.TargetID}
}

// Touches reports whether id is one of the edge's endpoints.
func (e *Edge) Touches(id NodeID) bool {
	return e.SourceID == id || e.TargetID == id
}

// Stale reports whether the cached path was computed from different endpoint
// geometry than source and target currently have.
func (e *Edge) Stale(source, target *Node) bool {
	return !e.routed || e.sourceRev != source.Revision() || e.targetRev != target.Revision()
}

// Reroute recomputes the path if it is stale. It reports whether the path was
// recomputed.
func (e *Edge) Reroute(source, target *Node, router Router) bool {
	if !e.Stale(source, target) {
		return false
	}
	e.Path = router.Route(source, target)
	e.routed = true
	e.sourceRev = source.Revision()
	e.targetRev = target.Revision()
	return true
}

// Invalidate forces the next Reroute to recompute the path.
func (e *Edge) Invalidate() {
	e.routed = false
}

// Start returns the first path point, derived from the source node.
func (e *Edge) Start() (geometry.Point, bool) {
	if len(e.Path) == 0 {
		return geometry.Point{}, false
	}
	return e.Path[0], true
}

// End returns the last path point, derived from the target node.
func (e *Edge) End() (geometry.Point, bool) {
	if len(e.Path) == 0 {
		return geometry.Point{}, false
	}
	return e.Path[len(e.Path)-1], true
}

// Clone returns a copy whose path does not alias the original.
func (e *Edge) Clone() *Edge {
	c := *e
	c.Path = append([]geometry.Point(nil), e.Path...)
	return &c
}
