package domain

import (
	"math"
	"unicode/utf8"

	"nodecanvas/internal/geometry"
)

// NodeID identifies a node on a surface. Ids are unique per surface.
type NodeID int64

// Sizing holds the constants of the label-driven sizing rule. All values are
// in world units; scaling them together keeps the ratio between label length
// and node width.
type Sizing struct {
	MinWidth  float64 `yaml:"min_width" json:"min_width"`
	CharWidth float64 `yaml:"char_width" json:"char_width"`
	Padding   float64 `yaml:"padding" json:"padding"`
	Height    float64 `yaml:"height" json:"height"`
}

// DefaultSizing matches a 12px label font: 7.2 per character, 12 padding on
// each side, 80 minimum width and 32 height.
func DefaultSizing() Sizing {
	return Sizing{
		MinWidth:  80,
		CharWidth: 7.2,
		Padding:   24,
		Height:    32,
	}
}

// Scale multiplies every constant by k.
func (s Sizing) Scale(k float64) Sizing {
	return Sizing{
		MinWidth:  s.MinWidth * k,
		CharWidth: s.CharWidth * k,
		Padding:   s.Padding * k,
		Height:    s.Height * k,
	}
}

// Width returns the node width for a label: the label's character count times
// CharWidth plus Padding, never less than MinWidth.
func (s Sizing) Width(label string) float64 {
	text := float64(utf8.RuneCountInString(label))*s.CharWidth + s.Padding
	return math.Max(s.MinWidth, text)
}

// PortSize is the edge length of the square port markers.
func (s Sizing) PortSize() float64 {
	return s.Height / 10 * 3
}

// Node is a labeled box on the surface. Width and Height are derived from the
// label on every render pass and are never persisted.
type Node struct {
	ID       NodeID
	Label    string
	Position geometry.Point // world space, top-left corner
	Width    float64
	Height   float64
	Selected bool

	// revision increments whenever Position or Width changes, so cached edge
	// paths can tell whether they are stale.
	revision uint64
}

// NewNode creates a node sized for its label.
func NewNode(id NodeID, label string, position geometry.Point, sizing Sizing) *Node {
	n := &Node{
		ID:       id,
		Label:    label,
		Position: position,
	}
	n.Resize(sizing)
	return n
}

// Revision returns the geometry revision of the node.
func (n *Node) Revision() uint64 {
	return n.revision
}

// Resize recomputes Width and Height from the label. It reports whether the
// size changed.
func (n *Node) Resize(sizing Sizing) bool {
	width := sizing.Width(n.Label)
	if width == n.Width && sizing.Height == n.Height {
		return false
	}
	n.Width = width
	n.Height = sizing.Height
	n.revision++
	return true
}

// MoveTo sets the world position. It reports whether the position changed.
func (n *Node) MoveTo(p geometry.Point) bool {
	if p == n.Position {
		return false
	}
	n.Position = p
	n.revision++
	return true
}

// LeftPort is the incoming anchor, centered on the left edge.
func (n *Node) LeftPort() geometry.Point {
	return geometry.Pt(n.Position.X, n.Position.Y+n.Height/2)
}

// RightPort is the outgoing anchor, centered on the right edge.
func (n *Node) RightPort() geometry.Point {
	return geometry.Pt(n.Position.X+n.Width, n.Position.Y+n.Height/2)
}

// Bounds returns the node rectangle in world space.
func (n *Node) Bounds() geometry.Rect {
	return geometry.RectFromOrigin(n.Position, n.Width, n.Height)
}

// Clone returns a copy of the node that shares nothing with the original.
func (n *Node) Clone() *Node {
	c := *n
	return &c
}
