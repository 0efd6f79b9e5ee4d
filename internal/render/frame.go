package render

import (
	"nodecanvas/internal/domain"
	"nodecanvas/internal/geometry"
)

// Frame is the output of one render pass. Edges come first so nodes are drawn
// over them; nodes keep insertion order, so later nodes are on top.
type Frame struct {
	Sequence   uint64            `json:"sequence"`
	View       domain.ViewRecord `json:"view"`
	Background Color             `json:"background"`
	Commands   []Command         `json:"commands"`
}

// Build assembles a frame from nodes and edges that are already sized and
// routed.
func Build(seq uint64, nodes []*domain.Node, edges []*domain.Edge, view domain.ViewState, theme Theme) Frame {
	commands := make([]Command, 0, len(edges)+4*len(nodes))
	for _, e := range edges {
		if len(e.Path) == 0 {
			continue
		}
		commands = append(commands, EdgeCommand(e, view, theme))
	}
	for _, n := range nodes {
		commands = append(commands, NodeCommands(n, view, theme)...)
	}
	return Frame{
		Sequence:   seq,
		View:       domain.RecordFromView(view),
		Background: Canvas(theme),
		Commands:   commands,
	}
}

// Bounds returns the container-space extent of everything in the frame.
func (f Frame) Bounds() geometry.Rect {
	var b geometry.Rect
	for _, c := range f.Commands {
		r := c.Rect
		if c.Kind == KindEdge && geometry.Empty(r) {
			// horizontal or vertical edges have a degenerate box
			r.Max.X += 1
			r.Max.Y += 1
		}
		b = geometry.Union(b, r)
	}
	return b
}

// Filter returns the commands of one kind.
func (f Frame) Filter(kind Kind) []Command {
	var out []Command
	for _, c := range f.Commands {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
