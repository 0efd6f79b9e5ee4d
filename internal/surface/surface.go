// Package surface composes nodes, edges, the view and the drag controller
// into one interactive graph surface.
//
// A Surface is the only owner of its nodes, edges and view. Every operation
// takes the surface lock for its whole duration, so events are applied in the
// order they arrive and a render pass never sees a half-applied update.
package surface

import (
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"nodecanvas/internal/domain"
	"nodecanvas/internal/drag"
	"nodecanvas/internal/errors"
	"nodecanvas/internal/geometry"
	"nodecanvas/internal/logging"
	"nodecanvas/internal/render"
)

// arena resolves nodes by id for the drag controller.
type arena map[domain.NodeID]*domain.Node

func (a arena) Node(id domain.NodeID) (*domain.Node, bool) {
	n, ok := a[id]
	return n, ok
}

// Surface is an interactive node graph.
type Surface struct {
	mu sync.Mutex

	sizing   domain.Sizing
	router   domain.Router
	log      *zap.SugaredLogger
	observer Observer

	nodes     arena
	order     []domain.NodeID // z-order, last is topmost
	edges     map[domain.EdgeKey]*domain.Edge
	edgeOrder []domain.EdgeKey
	incident  map[domain.NodeID]map[domain.EdgeKey]struct{}

	view   domain.ViewState
	offset geometry.Point
	drag   *drag.Controller
	seq    uint64
}

// Option configures a Surface.
type Option func(*Surface)

// WithSizing sets the label sizing rule.
func WithSizing(s domain.Sizing) Option {
	return func(sf *Surface) { sf.sizing = s }
}

// WithRouter sets the edge router.
func WithRouter(r domain.Router) Option {
	return func(sf *Surface) { sf.router = r }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(sf *Surface) { sf.log = l }
}

// WithObserver sets the activity observer.
func WithObserver(o Observer) Option {
	return func(sf *Surface) { sf.observer = o }
}

// WithView sets the initial view.
func WithView(v domain.ViewState) Option {
	return func(sf *Surface) { sf.view = v }
}

// New creates an empty surface.
func New(opts ...Option) *Surface {
	s := &Surface{
		sizing:   domain.DefaultSizing(),
		router:   domain.StraightRouter{},
		observer: NopObserver{},
		nodes:    make(arena),
		edges:    make(map[domain.EdgeKey]*domain.Edge),
		incident: make(map[domain.NodeID]map[domain.EdgeKey]struct{}),
		view:     domain.DefaultView(),
		drag:     drag.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.Named("surface")
	}
	return s
}

// Load replaces the whole graph with the fragment. The active drag, if any,
// is cancelled. The fragment's view is applied when present.
func (s *Surface) Load(f *domain.GraphFragment) error {
	if err := f.Validate(); err != nil {
		return s.reject("load", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelDrag()
	s.nodes = make(arena, len(f.Nodes))
	s.order = make([]domain.NodeID, 0, len(f.Nodes))
	s.edges = make(map[domain.EdgeKey]*domain.Edge, len(f.Edges))
	s.edgeOrder = make([]domain.EdgeKey, 0, len(f.Edges))
	s.incident = make(map[domain.NodeID]map[domain.EdgeKey]struct{})

	for _, r := range f.Nodes {
		n := domain.NewNode(r.ID, r.Label, r.Position(), s.sizing)
		n.Selected = r.Selected
		s.nodes[n.ID] = n
		s.order = append(s.order, n.ID)
	}
	for _, r := range f.Edges {
		s.insertEdge(r.Source, r.Target)
	}
	if f.View != nil {
		s.view = f.View.ViewState()
	}

	s.log.Infow("graph loaded", "nodes", len(s.nodes), "edges", len(s.edges))
	return nil
}

// Snapshot returns the persistent state of the surface.
func (s *Surface) Snapshot() *domain.GraphFragment {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := domain.NewGraphFragment()
	for _, id := range s.order {
		f.AddNode(domain.RecordFromNode(s.nodes[id]))
	}
	for _, k := range s.edgeOrder {
		f.AddEdge(domain.RecordFromEdge(s.edges[k]))
	}
	view := domain.RecordFromView(s.view)
	f.View = &view
	return f
}

// Graph returns the read model: persisted fields, current sizes and paths,
// and the drag session.
func (s *Surface) Graph() *domain.Graph {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refresh()
	g := domain.DeriveGraph(s.nodeList(), s.edgeList(), s.view)
	if session, ok := s.drag.Active(); ok {
		g.Drag = &domain.DragSummary{
			NodeID:     session.NodeID,
			GrabOffset: domain.PathPoint{X: session.GrabOffset.X, Y: session.GrabOffset.Y},
		}
	}
	return g
}

// AddNode inserts a node sized for its label.
func (s *Surface) AddNode(id domain.NodeID, label string, position geometry.Point) error {
	if !geometry.Finite(position) {
		return s.reject("add_node", errors.Wrapf(errors.ErrInvalidGeometry, "node %d position %v", id, position))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[id]; exists {
		return s.reject("add_node", errors.Wrapf(errors.ErrDuplicateID, "node %d", id))
	}
	s.nodes[id] = domain.NewNode(id, label, position, s.sizing)
	s.order = append(s.order, id)
	s.log.Debugw("node added", "node", id, "label", label)
	return nil
}

// RemoveNode deletes a node and every edge touching it. A drag of the node is
// cancelled.
func (s *Surface) RemoveNode(id domain.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[id]; !ok {
		return s.reject("remove_node", errors.Wrapf(errors.ErrUnknownNode, "node %d", id))
	}
	for k := range s.incident[id] {
		s.deleteEdge(k)
	}
	delete(s.incident, id)
	delete(s.nodes, id)
	s.order = slices.DeleteFunc(s.order, func(n domain.NodeID) bool { return n == id })

	if session, ok := s.drag.Active(); ok && session.NodeID == id {
		s.observer.DragEnded(id, true)
	}
	s.drag.Forget(id)
	s.log.Debugw("node removed", "node", id)
	return nil
}

// SetLabel changes a node's label and resizes it.
func (s *Surface) SetLabel(id domain.NodeID, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return s.reject("set_label", errors.Wrapf(errors.ErrUnknownNode, "node %d", id))
	}
	n.Label = label
	if n.Resize(s.sizing) {
		s.rerouteIncident(id)
	}
	return nil
}

// MoveNode places a node at a world position outside of a drag.
func (s *Surface) MoveNode(id domain.NodeID, position geometry.Point) error {
	if !geometry.Finite(position) {
		return s.reject("move_node", errors.Wrapf(errors.ErrInvalidGeometry, "node %d position %v", id, position))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return s.reject("move_node", errors.Wrapf(errors.ErrUnknownNode, "node %d", id))
	}
	if n.MoveTo(position) {
		s.rerouteIncident(id)
	}
	return nil
}

// AddEdge connects source's output port to target's input port. Both nodes
// must exist; a second edge for the same pair is ErrDuplicateID.
func (s *Surface) AddEdge(source, target domain.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[source]; !ok {
		return s.reject("add_edge", errors.Wrapf(errors.ErrDanglingEdge, "edge %d->%d: source missing", source, target))
	}
	if _, ok := s.nodes[target]; !ok {
		return s.reject("add_edge", errors.Wrapf(errors.ErrDanglingEdge, "edge %d->%d: target missing", source, target))
	}
	key := domain.EdgeKey{Source: source, Target: target}
	if _, exists := s.edges[key]; exists {
		return s.reject("add_edge", errors.Wrapf(errors.ErrDuplicateID, "edge %s", key))
	}
	e := s.insertEdge(source, target)
	e.Reroute(s.nodes[source], s.nodes[target], s.router)
	return nil
}

// RemoveEdge deletes the edge between source and target.
func (s *Surface) RemoveEdge(source, target domain.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.EdgeKey{Source: source, Target: target}
	if _, ok := s.edges[key]; !ok {
		return s.reject("remove_edge", errors.Wrapf(errors.ErrUnknownEdge, "edge %s", key))
	}
	s.deleteEdge(key)
	return nil
}

// Node returns a copy of a node.
func (s *Surface) Node(id domain.NodeID) (domain.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return domain.Node{}, false
	}
	return *n.Clone(), true
}

// Edge returns a copy of an edge.
func (s *Surface) Edge(source, target domain.NodeID) (domain.Edge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.edges[domain.EdgeKey{Source: source, Target: target}]
	if !ok {
		return domain.Edge{}, false
	}
	return *e.Clone(), true
}

// Counts returns the number of nodes and edges.
func (s *Surface) Counts() (nodes, edges int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes), len(s.edges)
}

// Render sizes every node, reroutes stale edges and returns the frame.
func (s *Surface) Render(theme render.Theme) render.Frame {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.refresh()
	s.seq++
	frame := render.Build(s.seq, s.nodeList(), s.edgeList(), s.view, theme)
	s.observer.FrameRendered(time.Since(start), len(s.nodes), len(s.edges))
	return frame
}

// refresh recomputes node sizes and stale edge paths. Caller holds mu.
func (s *Surface) refresh() {
	for _, id := range s.order {
		s.nodes[id].Resize(s.sizing)
	}
	rerouted := 0
	for _, k := range s.edgeOrder {
		e := s.edges[k]
		if e.Reroute(s.nodes[e.SourceID], s.nodes[e.TargetID], s.router) {
			rerouted++
		}
	}
	if rerouted > 0 {
		s.observer.EdgesRerouted(rerouted)
	}
}

// rerouteIncident updates the paths of the edges touching id. Caller holds mu.
func (s *Surface) rerouteIncident(id domain.NodeID) {
	rerouted := 0
	for k := range s.incident[id] {
		e := s.edges[k]
		if e.Reroute(s.nodes[e.SourceID], s.nodes[e.TargetID], s.router) {
			rerouted++
		}
	}
	if rerouted > 0 {
		s.observer.EdgesRerouted(rerouted)
	}
}

func (s *Surface) insertEdge(source, target domain.NodeID) *domain.Edge {
	e := domain.NewEdge(source, target)
	key := e.Key()
	s.edges[key] = e
	s.edgeOrder = append(s.edgeOrder, key)
	for _, id := range []domain.NodeID{source, target} {
		if s.incident[id] == nil {
			s.incident[id] = make(map[domain.EdgeKey]struct{})
		}
		s.incident[id][key] = struct{}{}
	}
	return e
}

func (s *Surface) deleteEdge(key domain.EdgeKey) {
	delete(s.edges, key)
	s.edgeOrder = slices.DeleteFunc(s.edgeOrder, func(k domain.EdgeKey) bool { return k == key })
	delete(s.incident[key.Source], key)
	delete(s.incident[key.Target], key)
}

func (s *Surface) nodeList() []*domain.Node {
	out := make([]*domain.Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id])
	}
	return out
}

func (s *Surface) edgeList() []*domain.Edge {
	out := make([]*domain.Edge, 0, len(s.edgeOrder))
	for _, k := range s.edgeOrder {
		out = append(out, s.edges[k])
	}
	return out
}

func (s *Surface) reject(op string, err error) error {
	s.log.Debugw("operation rejected", "op", op, "error", err)
	s.observer.Rejected(op, err)
	return err
}
