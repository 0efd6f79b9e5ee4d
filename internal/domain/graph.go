package domain

// Graph is the derived read model served to clients: persisted fields plus
// the geometry computed in the last render pass.
type Graph struct {
	Nodes []GraphNode  `json:"nodes"`
	Edges []GraphEdge  `json:"edges"`
	View  ViewRecord   `json:"view"`
	Drag  *DragSummary `json:"drag,omitempty"`
}

// GraphNode represents a node in the read model
type GraphNode struct {
	ID       NodeID  `json:"id"`
	Label    string  `json:"label"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Selected bool    `json:"selected"`
}

// GraphEdge represents an edge in the read model. Path is in world space.
type GraphEdge struct {
	Source NodeID      `json:"source"`
	Target NodeID      `json:"target"`
	Path   []PathPoint `json:"path"`
}

// PathPoint is one waypoint of an edge path
type PathPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DragSummary describes the active drag session, if any
type DragSummary struct {
	NodeID     NodeID    `json:"node_id"`
	GrabOffset PathPoint `json:"grab_offset"`
}

// DeriveGraph converts live nodes and edges into the read model
func DeriveGraph(nodes []*Node, edges []*Edge, view ViewState) *Graph {
	graph := &Graph{
		Nodes: make([]GraphNode, 0, len(nodes)),
		Edges: make([]GraphEdge, 0, len(edges)),
		View:  RecordFromView(view),
	}

	for _, n := range nodes {
		graph.Nodes = append(graph.Nodes, GraphNode{
			ID:       n.ID,
			Label:    n.Label,
			X:        n.Position.X,
			Y:        n.Position.Y,
			Width:    n.Width,
			Height:   n.Height,
			Selected: n.Selected,
		})
	}

	for _, e := range edges {
		path := make([]PathPoint, 0, len(e.Path))
		for _, p := range e.Path {
			path = append(path, PathPoint{X: p.X, Y: p.Y})
		}
		graph.Edges = append(graph.Edges, GraphEdge{
			Source: e.SourceID,
			Target: e.TargetID,
			Path:   path,
		})
	}

	return graph
}

// Fragment drops the derived geometry and keeps what is persisted.
func (g *Graph) Fragment() *GraphFragment {
	fragment := NewGraphFragment()
	for _, n := range g.Nodes {
		fragment.AddNode(NodeRecord{ID: n.ID, Label: n.Label, X: n.X, Y: n.Y, Selected: n.Selected})
	}
	for _, e := range g.Edges {
		fragment.AddEdge(EdgeRecord{Source: e.Source, Target: e.Target})
	}
	view := g.View
	fragment.View = &view
	return fragment
}
