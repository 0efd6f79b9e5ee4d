package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"nodecanvas/internal/domain"
	"nodecanvas/internal/drag"
	"nodecanvas/internal/geometry"
	"nodecanvas/internal/service"
	"nodecanvas/internal/surface"
)

// newModel seeds A "hi" at the origin and B "there" at (300, 0) with 8x16
// cells, so A covers columns 0-9 and rows 0-1.
func newModel(t *testing.T) Model {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	svc := service.NewSurfaceService(surface.New(surface.WithLogger(log)), nil, service.WithLogger(log))
	ctx := context.Background()
	require.NoError(t, svc.CreateNode(ctx, domain.NodeRecord{ID: 1, Label: "hi"}))
	require.NoError(t, svc.CreateNode(ctx, domain.NodeRecord{ID: 2, Label: "there", X: 300}))
	require.NoError(t, svc.CreateEdge(ctx, domain.EdgeRecord{Source: 1, Target: 2}))

	m := New(svc, DefaultOptions())
	m.log = log
	return update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func mouse(action tea.MouseAction, button tea.MouseButton, col, row int) tea.MouseMsg {
	return tea.MouseMsg{X: col, Y: row, Action: action, Button: button}
}

func TestMouseDrag(t *testing.T) {
	m := newModel(t)

	m = update(t, m, mouse(tea.MouseActionPress, tea.MouseButtonLeft, 1, 0))
	assert.Equal(t, drag.Armed, m.svc.Surface().DragState())

	m = update(t, m, mouse(tea.MouseActionMotion, tea.MouseButtonNone, 3, 0))
	assert.Equal(t, drag.Grabbed, m.svc.Surface().DragState())

	n, err := m.svc.GetNode(1)
	require.NoError(t, err)
	assert.Equal(t, geometry.Pt(16, 0), n.Position)

	m = update(t, m, mouse(tea.MouseActionMotion, tea.MouseButtonNone, 3, 2))
	n, err = m.svc.GetNode(1)
	require.NoError(t, err)
	assert.Equal(t, geometry.Pt(16, 32), n.Position)

	edge, ok := m.svc.Surface().Edge(1, 2)
	require.True(t, ok)
	start, _ := edge.Start()
	assert.Equal(t, geometry.Pt(96, 48), start)

	m = update(t, m, mouse(tea.MouseActionRelease, tea.MouseButtonLeft, 3, 2))
	assert.Equal(t, drag.Idle, m.svc.Surface().DragState())
	assert.False(t, n.Selected)
}

func TestClickSelects(t *testing.T) {
	m := newModel(t)

	m = update(t, m, mouse(tea.MouseActionPress, tea.MouseButtonLeft, 2, 1))
	m = update(t, m, mouse(tea.MouseActionRelease, tea.MouseButtonLeft, 2, 1))

	n, err := m.svc.GetNode(1)
	require.NoError(t, err)
	assert.True(t, n.Selected)
	assert.Equal(t, geometry.Pt(0, 0), n.Position)
	assert.Equal(t, drag.Idle, m.svc.Surface().DragState())

	// Pressing empty space clears the selection.
	m = update(t, m, mouse(tea.MouseActionPress, tea.MouseButtonLeft, 20, 10))
	n, err = m.svc.GetNode(1)
	require.NoError(t, err)
	assert.False(t, n.Selected)
}

func TestMotionBelowThresholdDoesNotDrag(t *testing.T) {
	m := newModel(t)
	m.opts.DragThreshold = 3

	m = update(t, m, mouse(tea.MouseActionPress, tea.MouseButtonLeft, 1, 0))
	m = update(t, m, mouse(tea.MouseActionMotion, tea.MouseButtonNone, 2, 1))
	assert.Equal(t, drag.Armed, m.svc.Surface().DragState())

	m = update(t, m, mouse(tea.MouseActionMotion, tea.MouseButtonNone, 4, 0))
	assert.Equal(t, drag.Grabbed, m.svc.Surface().DragState())
}

func TestBlurCancelsDrag(t *testing.T) {
	m := newModel(t)

	m = update(t, m, mouse(tea.MouseActionPress, tea.MouseButtonLeft, 1, 0))
	m = update(t, m, mouse(tea.MouseActionMotion, tea.MouseButtonNone, 5, 0))
	require.Equal(t, drag.Grabbed, m.svc.Surface().DragState())

	m = update(t, m, tea.BlurMsg{})
	assert.Equal(t, drag.Idle, m.svc.Surface().DragState())
	assert.Nil(t, m.press)

	// Motion after the blur does not move anything.
	before, _ := m.svc.GetNode(1)
	m = update(t, m, mouse(tea.MouseActionMotion, tea.MouseButtonNone, 9, 3))
	after, _ := m.svc.GetNode(1)
	assert.Equal(t, before.Position, after.Position)
}

func TestWheelZoomKeepsAnchor(t *testing.T) {
	m := newModel(t)
	anchor := m.opts.Cells.Center(10, 5)
	before := m.svc.Surface().Transform().ScreenToWorld(anchor)

	m = update(t, m, mouse(tea.MouseActionPress, tea.MouseButtonWheelUp, 10, 5))
	assert.InDelta(t, 1.1, m.svc.Surface().View().Zoom, 1e-9)

	after := m.svc.Surface().Transform().ScreenToWorld(anchor)
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)

	m = update(t, m, mouse(tea.MouseActionPress, tea.MouseButtonWheelDown, 10, 5))
	assert.InDelta(t, 1.0, m.svc.Surface().View().Zoom, 1e-9)
}

func TestKeys(t *testing.T) {
	m := newModel(t)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, geometry.Pt(-16, 0), m.svc.Surface().View().Pan)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, geometry.Pt(-16, 16), m.svc.Surface().View().Pan)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}})
	assert.InDelta(t, 1.1, m.svc.Surface().View().Zoom, 1e-9)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'0'}})
	assert.Equal(t, domain.DefaultView(), m.svc.Surface().View())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestNudgeMovesSelection(t *testing.T) {
	m := newModel(t)
	_, err := m.svc.Dispatch(context.Background(), service.InputEvent{Type: service.InputSelect, NodeID: 1, Selected: true})
	require.NoError(t, err)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'L'}})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyShiftDown})

	a, err := m.svc.GetNode(1)
	require.NoError(t, err)
	assert.Equal(t, geometry.Pt(16, 16), a.Position)

	b, err := m.svc.GetNode(2)
	require.NoError(t, err)
	assert.Equal(t, geometry.Pt(300, 0), b.Position, "unselected nodes stay put")
}

func TestView(t *testing.T) {
	m := newModel(t)
	out := m.View()
	assert.Contains(t, out, "2 nodes")
	assert.Contains(t, out, "hi")
	assert.Contains(t, out, "there")

	m = update(t, m, mouse(tea.MouseActionPress, tea.MouseButtonLeft, 1, 0))
	m = update(t, m, mouse(tea.MouseActionMotion, tea.MouseButtonNone, 4, 0))
	assert.Contains(t, m.View(), "dragging 1")
}
