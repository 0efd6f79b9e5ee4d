package domain

import "nodecanvas/internal/geometry"

// NodePosition is a world position keyed by node, used when only the layout
// of a graph changes.
type NodePosition struct {
	NodeID NodeID  `json:"node_id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// NewNodePosition creates a new node position
func NewNodePosition(nodeID NodeID, p geometry.Point) NodePosition {
	return NodePosition{
		NodeID: nodeID,
		X:      p.X,
		Y:      p.Y,
	}
}

// Point returns the position as a world point.
func (p NodePosition) Point() geometry.Point {
	return geometry.Pt(p.X, p.Y)
}
