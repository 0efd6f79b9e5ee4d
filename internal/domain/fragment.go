package domain

import (
	"nodecanvas/internal/errors"
	"nodecanvas/internal/geometry"
)

// NodeRecord is the persisted form of a node. Width is absent: it is derived
// from the label whenever the node is rendered.
type NodeRecord struct {
	ID       NodeID  `json:"id" yaml:"id"`
	Label    string  `json:"label" yaml:"label"`
	X        float64 `json:"x" yaml:"x"`
	Y        float64 `json:"y" yaml:"y"`
	Selected bool    `json:"selected,omitempty" yaml:"selected,omitempty"`
}

// EdgeRecord is the persisted form of an edge.
type EdgeRecord struct {
	Source NodeID `json:"source" yaml:"source"`
	Target NodeID `json:"target" yaml:"target"`
}

// ViewRecord is the persisted form of a view state.
type ViewRecord struct {
	PanX float64 `json:"pan_x" yaml:"pan_x"`
	PanY float64 `json:"pan_y" yaml:"pan_y"`
	Zoom float64 `json:"zoom" yaml:"zoom"`
}

// GraphFragment represents a node/edge list for import, export and
// persistence
type GraphFragment struct {
	Nodes []NodeRecord `json:"nodes" yaml:"nodes"`
	Edges []EdgeRecord `json:"edges" yaml:"edges"`
	View  *ViewRecord  `json:"view,omitempty" yaml:"view,omitempty"`
}

// NewGraphFragment creates an empty graph fragment
func NewGraphFragment() *GraphFragment {
	return &GraphFragment{
		Nodes: make([]NodeRecord, 0),
		Edges: make([]EdgeRecord, 0),
	}
}

// AddNode adds a node to the fragment
func (g *GraphFragment) AddNode(node NodeRecord) {
	g.Nodes = append(g.Nodes, node)
}

// AddEdge adds an edge to the fragment
func (g *GraphFragment) AddEdge(edge EdgeRecord) {
	g.Edges = append(g.Edges, edge)
}

// Validate checks ids and edge endpoints without building a surface. It
// reports ErrDuplicateID for a repeated node id or source/target pair,
// ErrDanglingEdge or ErrInvalidGeometry.
func (g *GraphFragment) Validate() error {
	seen := make(map[NodeID]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := seen[n.ID]; dup {
			return errors.Wrapf(errors.ErrDuplicateID, "node %d", n.ID)
		}
		if !geometry.Finite(n.Position()) {
			return errors.Wrapf(errors.ErrInvalidGeometry, "node %d position", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	edges := make(map[EdgeKey]struct{}, len(g.Edges))
	for _, e := range g.Edges {
		key := EdgeKey{Source: e.Source, Target: e.Target}
		if _, dup := edges[key]; dup {
			return errors.Wrapf(errors.ErrDuplicateID, "edge %s", key)
		}
		edges[key] = struct{}{}
		if _, ok := seen[e.Source]; !ok {
			return errors.Wrapf(errors.ErrDanglingEdge, "edge %d->%d: source missing", e.Source, e.Target)
		}
		if _, ok := seen[e.Target]; !ok {
			return errors.Wrapf(errors.ErrDanglingEdge, "edge %d->%d: target missing", e.Source, e.Target)
		}
	}
	if g.View != nil {
		if err := g.View.ViewState().Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Position returns the record's world position.
func (r NodeRecord) Position() geometry.Point {
	return geometry.Pt(r.X, r.Y)
}

// RecordFromNode captures the persistent fields of a node.
func RecordFromNode(n *Node) NodeRecord {
	return NodeRecord{
		ID:       n.ID,
		Label:    n.Label,
		X:        n.Position.X,
		Y:        n.Position.Y,
		Selected: n.Selected,
	}
}

// RecordFromEdge captures the persistent fields of an edge.
func RecordFromEdge(e *Edge) EdgeRecord {
	return EdgeRecord{Source: e.SourceID, Target: e.TargetID}
}

// ViewState converts the record back to a view.
func (v ViewRecord) ViewState() ViewState {
	return ViewState{Pan: geometry.Pt(v.PanX, v.PanY), Zoom: v.Zoom}
}

// RecordFromView captures a view state.
func RecordFromView(v ViewState) ViewRecord {
	return ViewRecord{PanX: v.Pan.X, PanY: v.Pan.Y, Zoom: v.Zoom}
}
