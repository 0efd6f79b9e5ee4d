// Package render turns surface state into a list of drawing commands.
//
// Rendering is a pure function of nodes, edges, the view and a Theme. All
// coordinates in a command are in container space: the pan and zoom are
// already applied, the container offset is not. Backends (terminal, PNG,
// JSON) only draw what they are given.
package render

import (
	"encoding/json"

	"gonum.org/v1/gonum/spatial/r2"

	"nodecanvas/internal/domain"
	"nodecanvas/internal/geometry"
)

// Base sizes in world units; they are multiplied by the zoom.
const (
	LabelSize        = 12.0
	CornerRadius     = 4.0
	PortCornerRadius = 2.0
)

// Stroke widths in screen pixels; they do not scale.
const (
	NodeStrokeWidth = 2.0
	PortStrokeWidth = 1.0
	EdgeStrokeWidth = 1.5
)

// Kind is the shape a command draws.
type Kind int

const (
	KindNode Kind = iota
	KindPort
	KindLabel
	KindEdge
)

var kindNames = [...]string{"node", "port", "label", "edge"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// MarshalJSON encodes the kind by name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Command is one drawing instruction.
type Command struct {
	Kind        Kind             `json:"kind"`
	NodeID      domain.NodeID    `json:"node_id,omitempty"`
	Target      domain.NodeID    `json:"target,omitempty"`
	Rect        geometry.Rect    `json:"rect"`
	Points      []geometry.Point `json:"points,omitempty"`
	Text        string           `json:"text,omitempty"`
	TextSize    float64          `json:"text_size,omitempty"`
	Radius      float64          `json:"radius,omitempty"`
	Fill        Color            `json:"fill"`
	Stroke      Color            `json:"stroke"`
	StrokeWidth float64          `json:"stroke_width,omitempty"`
	Selected    bool             `json:"selected,omitempty"`
}

// wireRect is the JSON form of a rectangle: origin and size.
type wireRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type wirePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MarshalJSON writes rect as {x, y, width, height} and points as {x, y}.
func (c Command) MarshalJSON() ([]byte, error) {
	type plain Command
	w, h := geometry.Size(c.Rect)
	var points []wirePoint
	if len(c.Points) > 0 {
		points = make([]wirePoint, len(c.Points))
		for i, p := range c.Points {
			points[i] = wirePoint{X: p.X, Y: p.Y}
		}
	}
	return json.Marshal(struct {
		plain
		Rect   wireRect    `json:"rect"`
		Points []wirePoint `json:"points,omitempty"`
	}{
		plain:  plain(c),
		Rect:   wireRect{X: c.Rect.Min.X, Y: c.Rect.Min.Y, Width: w, Height: h},
		Points: points,
	})
}

// NodeCommands draws a node: body, input port, output port and label, in that
// order.
func NodeCommands(n *domain.Node, view domain.ViewState, theme Theme) []Command {
	zoom := view.Zoom
	origin := view.ScreenPosition(n.Position)
	body := geometry.RectFromOrigin(origin, n.Width*zoom, n.Height*zoom)

	border := ColorOf(theme.Border())
	if n.Selected {
		border = ColorOf(theme.Accent())
	}

	port := n.Height / 10 * 3 * zoom
	portRect := func(center geometry.Point) geometry.Rect {
		return geometry.RectFromOrigin(r2.Sub(center, r2.Vec{X: port / 2, Y: port / 2}), port, port)
	}

	return []Command{
		{
			Kind:        KindNode,
			NodeID:      n.ID,
			Rect:        body,
			Radius:      CornerRadius * zoom,
			Fill:        ColorOf(theme.Background()),
			Stroke:      border,
			StrokeWidth: NodeStrokeWidth,
			Selected:    n.Selected,
		},
		{
			Kind:        KindPort,
			NodeID:      n.ID,
			Rect:        portRect(view.ScreenPosition(n.LeftPort())),
			Radius:      PortCornerRadius * zoom,
			Fill:        InputPortColor,
			Stroke:      ColorOf(theme.Border()),
			StrokeWidth: PortStrokeWidth,
		},
		{
			Kind:        KindPort,
			NodeID:      n.ID,
			Rect:        portRect(view.ScreenPosition(n.RightPort())),
			Radius:      PortCornerRadius * zoom,
			Fill:        OutputPortColor,
			Stroke:      ColorOf(theme.Border()),
			StrokeWidth: PortStrokeWidth,
		},
		{
			Kind:     KindLabel,
			NodeID:   n.ID,
			Rect:     body,
			Points:   []geometry.Point{center(body)},
			Text:     n.Label,
			TextSize: LabelSize * zoom,
			Fill:     ColorOf(theme.Foreground()),
		},
	}
}

// EdgeCommand draws an edge's cached world path as a screen polyline.
func EdgeCommand(e *domain.Edge, view domain.ViewState, theme Theme) Command {
	points := make([]geometry.Point, len(e.Path))
	var bounds geometry.Rect
	for i, p := range e.Path {
		points[i] = view.ScreenPosition(p)
		if i == 0 {
			bounds = geometry.Rect{Min: points[i], Max: points[i]}
			continue
		}
		bounds.Min = r2.Vec{X: min(bounds.Min.X, points[i].X), Y: min(bounds.Min.Y, points[i].Y)}
		bounds.Max = r2.Vec{X: max(bounds.Max.X, points[i].X), Y: max(bounds.Max.Y, points[i].Y)}
	}
	return Command{
		Kind:        KindEdge,
		NodeID:      e.SourceID,
		Target:      e.TargetID,
		Rect:        bounds,
		Points:      points,
		Stroke:      ColorOf(theme.Border()),
		StrokeWidth: EdgeStrokeWidth,
	}
}

func center(r geometry.Rect) geometry.Point {
	return r2.Scale(0.5, r2.Add(r.Min, r.Max))
}
