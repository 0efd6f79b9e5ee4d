// Package tui hosts a surface in the terminal.
//
// Terminal cells are mapped to container pixels through a term.CellSize, so
// the surface sees the same pointer stream a browser host would send: press
// arms a drag, motion past the threshold starts and continues it, release
// ends it. A press released without crossing the threshold selects the node.
// Losing terminal focus cancels the drag.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"nodecanvas/internal/domain"
	"nodecanvas/internal/geometry"
	"nodecanvas/internal/logging"
	"nodecanvas/internal/render/term"
	"nodecanvas/internal/service"
)

var (
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dragStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
)

// Options control how terminal input maps onto the surface.
type Options struct {
	Cells         term.CellSize
	DragThreshold int     // cells moved before a press becomes a drag
	ZoomStep      float64 // factor per wheel notch or key press
	PanStep       float64 // pixels per arrow key
}

// DefaultOptions matches the config defaults.
func DefaultOptions() Options {
	return Options{
		Cells:         term.DefaultCellSize(),
		DragThreshold: 1,
		ZoomStep:      1.1,
		PanStep:       16,
	}
}

// press is a left-button press that has not been released.
type press struct {
	node     domain.NodeID
	col, row int
	dragging bool
}

// changedMsg signals that the graph changed outside the terminal's own input.
type changedMsg struct{}

// Model is the bubbletea model of the terminal host.
type Model struct {
	svc    *service.SurfaceService
	opts   Options
	events chan service.Event
	log    *zap.SugaredLogger

	width, height int
	press         *press
	err           error
	keys          keyMap
	help          help.Model
}

// New creates a terminal host for svc.
func New(svc *service.SurfaceService, opts Options) Model {
	if opts.DragThreshold < 0 {
		opts.DragThreshold = 0
	}
	events := make(chan service.Event, 64)
	svc.Events().Subscribe(events)
	return Model{
		svc:    svc,
		opts:   opts,
		events: events,
		log:    logging.Named("tui"),
		width:  80,
		height: 24,
		keys:   defaultKeyMap(),
		help:   help.New(),
	}
}

// Init waits for outside changes.
func (m Model) Init() tea.Cmd {
	return m.listen()
}

// listen turns the next graph reload or edit into a redraw.
func (m Model) listen() tea.Cmd {
	return func() tea.Msg {
		for ev := range m.events {
			switch ev.Type {
			case service.EventGraphReloaded, service.EventNodeCreated, service.EventNodeUpdated,
				service.EventNodeDeleted, service.EventEdgeCreated, service.EventEdgeDeleted:
				return changedMsg{}
			}
		}
		return nil
	}
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

	case tea.MouseMsg:
		m = m.mouse(msg)

	case tea.KeyMsg:
		return m.key(msg)

	case tea.BlurMsg:
		m.press = nil
		m.dispatch(service.InputEvent{Type: service.InputBlur})

	case changedMsg:
		return m, m.listen()
	}
	return m, nil
}

func (m Model) mouse(msg tea.MouseMsg) Model {
	pointer := m.opts.Cells.Center(msg.X, msg.Y)

	switch {
	case msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown:
		if msg.Action != tea.MouseActionPress {
			return m
		}
		zoom := m.svc.Surface().View().Zoom
		if msg.Button == tea.MouseButtonWheelUp {
			zoom *= m.opts.ZoomStep
		} else {
			zoom /= m.opts.ZoomStep
		}
		m.dispatch(service.InputEvent{Type: service.InputZoomAbout, X: pointer.X, Y: pointer.Y, Zoom: zoom})

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		id, ok := m.svc.Surface().NodeAt(pointer)
		if !ok {
			m.press = nil
			m.dispatch(service.InputEvent{Type: service.InputClearSelection})
			return m
		}
		m.press = &press{node: id, col: msg.X, row: msg.Y}
		m.dispatch(service.InputEvent{Type: service.InputDragStart, NodeID: id})

	case msg.Action == tea.MouseActionMotion && m.press != nil:
		p := m.press
		if !p.dragging {
			if max(abs(msg.X-p.col), abs(msg.Y-p.row)) < m.opts.DragThreshold {
				return m
			}
			// The press point fixes the grab offset.
			origin := m.opts.Cells.Center(p.col, p.row)
			m.dispatch(service.InputEvent{Type: service.InputDragMove, NodeID: p.node, X: origin.X, Y: origin.Y})
			p.dragging = true
		}
		m.dispatch(service.InputEvent{Type: service.InputDragMove, NodeID: p.node, X: pointer.X, Y: pointer.Y})

	case msg.Action == tea.MouseActionRelease && m.press != nil:
		p := m.press
		m.press = nil
		m.dispatch(service.InputEvent{Type: service.InputDragEnd, NodeID: p.node})
		if !p.dragging {
			n, err := m.svc.GetNode(p.node)
			if err == nil {
				m.dispatch(service.InputEvent{Type: service.InputSelect, NodeID: p.node, Selected: !n.Selected})
			}
		}
	}
	return m
}

func (m Model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	step := m.opts.PanStep
	center := geometry.Pt(
		float64(m.width)*m.opts.Cells.Width/2,
		float64(m.canvasRows())*m.opts.Cells.Height/2,
	)

	switch {
	case matches(msg, m.keys.Quit):
		return m, tea.Quit
	case matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case matches(msg, m.keys.Up):
		m.dispatch(service.InputEvent{Type: service.InputPanBy, Y: step})
	case matches(msg, m.keys.Down):
		m.dispatch(service.InputEvent{Type: service.InputPanBy, Y: -step})
	case matches(msg, m.keys.Left):
		m.dispatch(service.InputEvent{Type: service.InputPanBy, X: step})
	case matches(msg, m.keys.Right):
		m.dispatch(service.InputEvent{Type: service.InputPanBy, X: -step})
	case matches(msg, m.keys.Nudge[0]):
		m.nudge(0, -step)
	case matches(msg, m.keys.Nudge[1]):
		m.nudge(0, step)
	case matches(msg, m.keys.Nudge[2]):
		m.nudge(-step, 0)
	case matches(msg, m.keys.Nudge[3]):
		m.nudge(step, 0)
	case matches(msg, m.keys.ZoomIn):
		zoom := m.svc.Surface().View().Zoom * m.opts.ZoomStep
		m.dispatch(service.InputEvent{Type: service.InputZoomAbout, X: center.X, Y: center.Y, Zoom: zoom})
	case matches(msg, m.keys.ZoomOut):
		zoom := m.svc.Surface().View().Zoom / m.opts.ZoomStep
		m.dispatch(service.InputEvent{Type: service.InputZoomAbout, X: center.X, Y: center.Y, Zoom: zoom})
	case matches(msg, m.keys.Reset):
		m.dispatch(service.InputEvent{Type: service.InputPan})
		m.dispatch(service.InputEvent{Type: service.InputZoom, Zoom: 1})
	case matches(msg, m.keys.Deselect):
		m.dispatch(service.InputEvent{Type: service.InputClearSelection})
	}
	return m, nil
}

// nudge moves every selected node by dx, dy screen pixels.
func (m *Model) nudge(dx, dy float64) {
	zoom := m.svc.Surface().View().Zoom
	for _, n := range m.svc.Surface().Snapshot().Nodes {
		if !n.Selected {
			continue
		}
		to := geometry.Pt(n.X+dx/zoom, n.Y+dy/zoom)
		if err := m.svc.MoveNodeTo(context.Background(), n.ID, to); err != nil {
			m.err = err
			return
		}
	}
	m.err = nil
}

// dispatch applies an event and keeps the last error for the status line.
func (m *Model) dispatch(ev service.InputEvent) {
	if _, err := m.svc.Dispatch(context.Background(), ev); err != nil {
		m.log.Debugw("input rejected", "type", ev.Type, "error", err)
		m.err = err
		return
	}
	m.err = nil
}

// View draws the surface, a status line and the key help.
func (m Model) View() string {
	helpView := m.help.View(m.keys)
	rows := m.canvasRows() - lipgloss.Height(helpView) + 1
	if rows < 1 {
		rows = 1
	}
	canvas := term.Render(m.svc.Frame(), m.width, rows, m.opts.Cells)
	return lipgloss.JoinVertical(lipgloss.Left, canvas, m.statusLine(), helpView)
}

func (m Model) canvasRows() int {
	return max(1, m.height-2)
}

func (m Model) statusLine() string {
	if m.err != nil {
		return errorStyle.Render(m.err.Error())
	}
	view := m.svc.Surface().View()
	nodes, edges := m.svc.Surface().Counts()
	line := statusStyle.Render(fmt.Sprintf("%d nodes  %d edges  zoom %.2f  pan %.0f,%.0f",
		nodes, edges, view.Zoom, view.Pan.X, view.Pan.Y))
	if session, ok := m.svc.Surface().ActiveDrag(); ok {
		line += "  " + dragStyle.Render(fmt.Sprintf("dragging %d", session.NodeID))
	}
	return line
}

// Run starts the terminal program and blocks until it exits.
func Run(ctx context.Context, svc *service.SurfaceService, opts Options) error {
	p := tea.NewProgram(New(svc, opts),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithReportFocus(),
	)
	_, err := p.Run()
	return err
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
