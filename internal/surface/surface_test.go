package surface

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"nodecanvas/internal/domain"
	"nodecanvas/internal/drag"
	"nodecanvas/internal/errors"
	"nodecanvas/internal/geometry"
	"nodecanvas/internal/render"
)

type recorder struct {
	started   []domain.NodeID
	ended     []domain.NodeID
	cancelled []domain.NodeID
	rerouted  int
	frames    int
	rejected  []string
}

func (r *recorder) DragStarted(id domain.NodeID) { r.started = append(r.started, id) }
func (r *recorder) DragEnded(id domain.NodeID, cancelled bool) {
	if cancelled {
		r.cancelled = append(r.cancelled, id)
		return
	}
	r.ended = append(r.ended, id)
}
func (r *recorder) EdgesRerouted(n int)                   { r.rerouted += n }
func (r *recorder) FrameRendered(time.Duration, int, int) { r.frames++ }
func (r *recorder) Rejected(op string, _ error)           { r.rejected = append(r.rejected, op) }

func newTestSurface(t *testing.T) (*Surface, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := New(WithLogger(zaptest.NewLogger(t).Sugar()), WithObserver(rec))
	require.NoError(t, s.AddNode(1, "hi", geometry.Pt(0, 0)))
	require.NoError(t, s.AddNode(2, "there", geometry.Pt(300, 0)))
	require.NoError(t, s.AddEdge(1, 2))
	return s, rec
}

func TestDragScenario(t *testing.T) {
	s, rec := newTestSurface(t)

	require.NoError(t, s.DragStart(1))

	res, err := s.DragMove(1, geometry.Pt(40, 16), geometry.Rect{})
	require.NoError(t, err)
	assert.True(t, res.Started)

	session, ok := s.ActiveDrag()
	require.True(t, ok)
	assert.Equal(t, geometry.Pt(40, 16), session.GrabOffset)

	res, err = s.DragMove(1, geometry.Pt(140, 16), geometry.Rect{})
	require.NoError(t, err)
	assert.True(t, res.Moved)

	a, _ := s.Node(1)
	assert.Equal(t, geometry.Pt(100, 0), a.Position)

	e, _ := s.Edge(1, 2)
	start, _ := e.Start()
	assert.Equal(t, geometry.Pt(180, 16), start)
	assert.Equal(t, geometry.Pt(180, 16), s.Transform().WorldToScreen(start))

	frame := s.Render(render.DefaultPalette())
	edges := frame.Filter(render.KindEdge)
	require.Len(t, edges, 1)
	assert.Equal(t, geometry.Pt(180, 16), edges[0].Points[0])

	_, ok = s.DragEnd(1)
	assert.True(t, ok)
	assert.Equal(t, []domain.NodeID{1}, rec.started)
	assert.Equal(t, []domain.NodeID{1}, rec.ended)
	assert.Positive(t, rec.rerouted)
}

func TestDragWithBounds(t *testing.T) {
	s, _ := newTestSurface(t)
	require.NoError(t, s.SetContainerOffset(geometry.Pt(100, 50)))
	require.NoError(t, s.SetPan(geometry.Pt(10, 10)))
	require.NoError(t, s.SetZoom(2))

	bounds, err := s.ScreenBounds(1)
	require.NoError(t, err)
	assert.Equal(t, geometry.Pt(110, 60), bounds.Min)
	assert.Equal(t, geometry.Pt(270, 124), bounds.Max)

	require.NoError(t, s.DragStart(1))
	_, err = s.DragMove(1, geometry.Pt(150, 80), bounds)
	require.NoError(t, err)
	session, _ := s.ActiveDrag()
	assert.Equal(t, geometry.Pt(20, 10), session.GrabOffset)

	_, err = s.DragMove(1, geometry.Pt(250, 80), bounds)
	require.NoError(t, err)
	a, _ := s.Node(1)
	assert.Equal(t, geometry.Pt(50, 0), a.Position)
}

func TestPanZoomDuringDrag(t *testing.T) {
	s, _ := newTestSurface(t)

	require.NoError(t, s.DragStart(1))
	_, err := s.DragMove(1, geometry.Pt(40, 16), geometry.Rect{})
	require.NoError(t, err)

	require.NoError(t, s.SetZoom(2))
	require.NoError(t, s.SetPan(geometry.Pt(-30, 20)))

	pointer := geometry.Pt(200, 100)
	_, err = s.DragMove(1, pointer, geometry.Rect{})
	require.NoError(t, err)

	a, _ := s.Node(1)
	tr := s.Transform()
	screen := tr.WorldToScreen(a.Position)
	// pointer sits 40,16 world units into the node, now 80,32 pixels
	assert.InDelta(t, pointer.X-80, screen.X, 1e-9)
	assert.InDelta(t, pointer.Y-32, screen.Y, 1e-9)
}

func TestIdleDrop(t *testing.T) {
	s, rec := newTestSurface(t)
	before := s.Snapshot()

	_, ok := s.DragEnd(1)
	assert.False(t, ok)

	require.NoError(t, s.DragStart(1))
	_, ok = s.DragEnd(1)
	assert.False(t, ok, "click without movement creates no session")

	require.NoError(t, s.DragStart(1))
	_, err := s.DragMove(1, geometry.Pt(10, 10), geometry.Rect{})
	require.NoError(t, err)
	_, ok = s.DragEnd(2)
	assert.False(t, ok, "mismatched id")
	assert.Equal(t, drag.Grabbed, s.DragState())

	assert.Equal(t, before.Nodes, s.Snapshot().Nodes)
	assert.Empty(t, rec.ended)
}

func TestRemoveNodeMidDrag(t *testing.T) {
	s, rec := newTestSurface(t)

	require.NoError(t, s.DragStart(1))
	_, err := s.DragMove(1, geometry.Pt(10, 10), geometry.Rect{})
	require.NoError(t, err)

	require.NoError(t, s.RemoveNode(1))
	assert.Equal(t, drag.Idle, s.DragState())
	assert.Equal(t, []domain.NodeID{1}, rec.cancelled)

	_, err = s.DragMove(1, geometry.Pt(20, 20), geometry.Rect{})
	assert.True(t, errors.Is(err, errors.ErrUnknownNode))

	nodes, edges := s.Counts()
	assert.Equal(t, 1, nodes)
	assert.Equal(t, 0, edges)
}

func TestDragMoveUnknownNodeKeepsSession(t *testing.T) {
	s, rec := newTestSurface(t)

	require.NoError(t, s.DragStart(1))
	_, err := s.DragMove(99, geometry.Pt(10, 10), geometry.Rect{})
	assert.True(t, errors.Is(err, errors.ErrUnknownNode))
	assert.Equal(t, drag.Armed, s.DragState())

	_, err = s.DragMove(1, geometry.Pt(10, 10), geometry.Rect{})
	require.NoError(t, err)
	_, err = s.DragMove(99, geometry.Pt(20, 20), geometry.Rect{})
	assert.True(t, errors.Is(err, errors.ErrUnknownNode))

	target, ok := s.DragTarget()
	assert.True(t, ok)
	assert.Equal(t, domain.NodeID(1), target)
	assert.Equal(t, drag.Grabbed, s.DragState())
	assert.Empty(t, rec.cancelled)
}

func TestBeginDragReturnsDisplacedSession(t *testing.T) {
	s, rec := newTestSurface(t)

	_, ok, err := s.BeginDrag(1)
	require.NoError(t, err)
	assert.False(t, ok, "nothing to displace")

	_, err = s.DragMove(1, geometry.Pt(40, 16), geometry.Rect{})
	require.NoError(t, err)

	_, ok, err = s.BeginDrag(1)
	require.NoError(t, err)
	assert.False(t, ok, "same node keeps its session")

	displaced, ok, err := s.BeginDrag(2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.NodeID(1), displaced.NodeID)
	assert.Equal(t, []domain.NodeID{1}, rec.cancelled)
	assert.Equal(t, drag.Armed, s.DragState())
}

func TestCancelDrag(t *testing.T) {
	s, rec := newTestSurface(t)

	assert.False(t, s.CancelDrag())

	require.NoError(t, s.DragStart(1))
	_, err := s.DragMove(1, geometry.Pt(10, 10), geometry.Rect{})
	require.NoError(t, err)

	assert.True(t, s.CancelDrag())
	assert.Equal(t, drag.Idle, s.DragState())
	assert.Equal(t, []domain.NodeID{1}, rec.cancelled)
}

func TestEdgeReroutingLocality(t *testing.T) {
	s, _ := newTestSurface(t)
	require.NoError(t, s.AddNode(3, "c", geometry.Pt(0, 200)))
	require.NoError(t, s.AddNode(4, "d", geometry.Pt(300, 200)))
	require.NoError(t, s.AddEdge(3, 4))

	before, _ := s.Edge(3, 4)

	require.NoError(t, s.MoveNode(1, geometry.Pt(50, 50)))
	require.NoError(t, s.SetLabel(2, "a much longer label than before"))
	s.Render(render.DefaultPalette())

	after, _ := s.Edge(3, 4)
	assert.Equal(t, before.Path, after.Path)

	moved, _ := s.Edge(1, 2)
	start, _ := moved.Start()
	assert.Equal(t, geometry.Pt(130, 66), start)
}

func TestSetLabelResizesOutputPort(t *testing.T) {
	s, _ := newTestSurface(t)

	require.NoError(t, s.SetLabel(1, "twenty characters!!!"))

	n, _ := s.Node(1)
	assert.InDelta(t, 20*7.2+24, n.Width, 1e-9)
	e, _ := s.Edge(1, 2)
	start, _ := e.Start()
	assert.InDelta(t, n.RightPort().X, start.X, 1e-9)
}

func TestInsertionErrors(t *testing.T) {
	s, rec := newTestSurface(t)

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"duplicate node", s.AddNode(1, "again", geometry.Pt(0, 0)), errors.ErrDuplicateID},
		{"non-finite node", s.AddNode(9, "nan", geometry.Pt(math.NaN(), 0)), errors.ErrInvalidGeometry},
		{"dangling source", s.AddEdge(9, 2), errors.ErrDanglingEdge},
		{"dangling target", s.AddEdge(1, 9), errors.ErrDanglingEdge},
		{"duplicate edge", s.AddEdge(1, 2), errors.ErrDuplicateID},
		{"unknown edge", s.RemoveEdge(2, 1), errors.ErrUnknownEdge},
		{"unknown node remove", s.RemoveNode(9), errors.ErrUnknownNode},
		{"unknown node label", s.SetLabel(9, "x"), errors.ErrUnknownNode},
		{"unknown node select", s.SetSelected(9, true), errors.ErrUnknownNode},
		{"unknown drag start", s.DragStart(9), errors.ErrUnknownNode},
		{"zero zoom", s.SetZoom(0), errors.ErrInvalidGeometry},
		{"negative zoom", s.SetZoom(-1), errors.ErrInvalidGeometry},
		{"infinite pan", s.SetPan(geometry.Pt(math.Inf(1), 0)), errors.ErrInvalidGeometry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.want), "got %v", tt.err)
		})
	}

	assert.Len(t, rec.rejected, len(tests))
	assert.Equal(t, 1.0, s.View().Zoom, "zoom is never clamped or applied on error")
}

func TestRemoveEdge(t *testing.T) {
	s, _ := newTestSurface(t)

	require.NoError(t, s.RemoveEdge(1, 2))
	_, ok := s.Edge(1, 2)
	assert.False(t, ok)

	require.NoError(t, s.AddEdge(1, 2))
	_, ok = s.Edge(1, 2)
	assert.True(t, ok)
}

func TestZoomAbout(t *testing.T) {
	s, _ := newTestSurface(t)
	require.NoError(t, s.SetContainerOffset(geometry.Pt(10, 10)))

	anchor := geometry.Pt(60, 26)
	worldBefore := s.Transform().ScreenToWorld(anchor)

	require.NoError(t, s.ZoomAbout(anchor, 3))

	assert.Equal(t, 3.0, s.View().Zoom)
	worldAfter := s.Transform().ScreenToWorld(anchor)
	assert.InDelta(t, worldBefore.X, worldAfter.X, 1e-9)
	assert.InDelta(t, worldBefore.Y, worldAfter.Y, 1e-9)

	err := s.ZoomAbout(anchor, 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidGeometry))
	assert.Equal(t, 3.0, s.View().Zoom)
}

func TestPanBy(t *testing.T) {
	s, _ := newTestSurface(t)

	require.NoError(t, s.PanBy(geometry.Pt(5, -5)))
	require.NoError(t, s.PanBy(geometry.Pt(5, -5)))
	assert.Equal(t, geometry.Pt(10, -10), s.View().Pan)
}

func TestNodeAt(t *testing.T) {
	s, _ := newTestSurface(t)
	require.NoError(t, s.AddNode(3, "over", geometry.Pt(40, 10)))

	id, ok := s.NodeAt(geometry.Pt(10, 10))
	require.True(t, ok)
	assert.Equal(t, domain.NodeID(1), id)

	id, ok = s.NodeAt(geometry.Pt(50, 20))
	require.True(t, ok)
	assert.Equal(t, domain.NodeID(3), id, "later nodes are on top")

	require.NoError(t, s.Raise(1))
	id, _ = s.NodeAt(geometry.Pt(50, 20))
	assert.Equal(t, domain.NodeID(1), id)

	_, ok = s.NodeAt(geometry.Pt(200, 200))
	assert.False(t, ok)

	require.NoError(t, s.SetZoom(0.5))
	id, ok = s.NodeAt(geometry.Pt(155, 5))
	require.True(t, ok)
	assert.Equal(t, domain.NodeID(2), id)
}

func TestSelection(t *testing.T) {
	s, _ := newTestSurface(t)

	require.NoError(t, s.SetSelected(2, true))
	frame := s.Render(render.DefaultPalette())
	bodies := frame.Filter(render.KindNode)
	require.Len(t, bodies, 2)
	assert.False(t, bodies[0].Selected)
	assert.True(t, bodies[1].Selected)

	s.ClearSelection()
	n, _ := s.Node(2)
	assert.False(t, n.Selected)
}

func TestLoadAndSnapshot(t *testing.T) {
	s := New(WithLogger(zaptest.NewLogger(t).Sugar()))

	f := domain.NewGraphFragment()
	f.AddNode(domain.NodeRecord{ID: 10, Label: "db", X: 5, Y: 5})
	f.AddNode(domain.NodeRecord{ID: 11, Label: "api", X: 200, Y: 5, Selected: true})
	f.AddEdge(domain.EdgeRecord{Source: 11, Target: 10})
	f.View = &domain.ViewRecord{PanX: 3, PanY: 4, Zoom: 1.5}

	require.NoError(t, s.Load(f))

	snap := s.Snapshot()
	assert.Equal(t, f.Nodes, snap.Nodes)
	assert.Equal(t, f.Edges, snap.Edges)
	assert.Equal(t, f.View, snap.View)

	t.Run("invalid fragment leaves the surface untouched", func(t *testing.T) {
		bad := domain.NewGraphFragment()
		bad.AddEdge(domain.EdgeRecord{Source: 1, Target: 2})
		err := s.Load(bad)
		assert.True(t, errors.Is(err, errors.ErrDanglingEdge))

		nodes, edges := s.Counts()
		assert.Equal(t, 2, nodes)
		assert.Equal(t, 1, edges)
	})

	t.Run("duplicate edges are rejected", func(t *testing.T) {
		dup := domain.NewGraphFragment()
		dup.AddNode(domain.NodeRecord{ID: 1, Label: "a"})
		dup.AddNode(domain.NodeRecord{ID: 2, Label: "b"})
		dup.AddEdge(domain.EdgeRecord{Source: 1, Target: 2})
		dup.AddEdge(domain.EdgeRecord{Source: 1, Target: 2})
		err := s.Load(dup)
		assert.True(t, errors.Is(err, errors.ErrDuplicateID))

		nodes, edges := s.Counts()
		assert.Equal(t, 2, nodes)
		assert.Equal(t, 1, edges)
	})

	t.Run("load cancels the drag", func(t *testing.T) {
		require.NoError(t, s.DragStart(10))
		_, err := s.DragMove(10, geometry.Pt(20, 20), geometry.Rect{})
		require.NoError(t, err)

		require.NoError(t, s.Load(f))
		assert.Equal(t, drag.Idle, s.DragState())
	})
}

func TestGraphReadModel(t *testing.T) {
	s, _ := newTestSurface(t)

	require.NoError(t, s.DragStart(1))
	_, err := s.DragMove(1, geometry.Pt(40, 16), geometry.Rect{})
	require.NoError(t, err)

	g := s.Graph()
	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, 80.0, g.Nodes[0].Width)
	require.NotNil(t, g.Drag)
	assert.Equal(t, domain.NodeID(1), g.Drag.NodeID)
	assert.Equal(t, domain.PathPoint{X: 40, Y: 16}, g.Drag.GrabOffset)
}

func TestRenderSequence(t *testing.T) {
	s, rec := newTestSurface(t)

	first := s.Render(render.DefaultPalette())
	second := s.Render(render.DefaultPalette())
	assert.Equal(t, first.Sequence+1, second.Sequence)
	assert.Equal(t, 2, rec.frames)
}

func TestConcurrentInput(t *testing.T) {
	s, _ := newTestSurface(t)
	require.NoError(t, s.DragStart(1))
	_, err := s.DragMove(1, geometry.Pt(0, 0), geometry.Rect{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = s.DragMove(1, geometry.Pt(float64(i*j), float64(j)), geometry.Rect{})
				_ = s.PanBy(geometry.Pt(1, 0))
				s.Render(render.DefaultPalette())
			}
		}(i)
	}
	wg.Wait()

	s.Render(render.DefaultPalette())
	a, _ := s.Node(1)
	e, _ := s.Edge(1, 2)
	start, _ := e.Start()
	assert.Equal(t, a.RightPort(), start)
}
