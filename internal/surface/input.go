package surface

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r2"

	"nodecanvas/internal/domain"
	"nodecanvas/internal/drag"
	"nodecanvas/internal/errors"
	"nodecanvas/internal/geometry"
)

// DragStart arms a drag for id. The session itself starts on the first
// DragMove.
func (s *Surface) DragStart(id domain.NodeID) error {
	_, _, err := s.BeginDrag(id)
	return err
}

// BeginDrag is DragStart that also returns the session of another node it
// displaced, so the caller can save where that node was left.
func (s *Surface) BeginDrag(id domain.NodeID) (drag.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[id]; !ok {
		return drag.Session{}, false, s.reject("drag_start", errors.Wrapf(errors.ErrUnknownNode, "node %d", id))
	}
	displaced, ok := s.drag.Active()
	ok = ok && displaced.NodeID != id
	if ok {
		s.log.Debugw("drag displaced", "node", displaced.NodeID, "by", id)
		s.observer.DragEnded(displaced.NodeID, true)
	}
	s.drag.Begin(id)
	if !ok {
		return drag.Session{}, false, nil
	}
	return displaced, true, nil
}

// DragMove applies one pointer move. pointer is in screen space; bounds is
// the node's screen rectangle as the host drew it, or the zero Rect when the
// host does not track it. Edges touching the node are rerouted immediately.
func (s *Surface) DragMove(id domain.NodeID, pointer geometry.Point, bounds geometry.Rect) (drag.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.drag.Move(s.nodes, id, pointer, bounds, s.transform())
	if err != nil {
		return res, s.reject("drag_move", err)
	}
	if res.Started {
		session, _ := s.drag.Active()
		s.log.Debugw("drag started", "node", id, "grab_offset", session.GrabOffset)
		s.observer.DragStarted(id)
	}
	if res.Moved {
		s.rerouteIncident(id)
	}
	return res, nil
}

// DragEnd closes the drag of id. It reports the ended session; a mismatched
// id or no session returns false and changes nothing.
func (s *Surface) DragEnd(id domain.NodeID) (drag.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.drag.End(id)
	if ok {
		s.log.Debugw("drag ended", "node", id)
		s.observer.DragEnded(id, false)
	}
	return session, ok
}

// CancelDrag drops the drag session on loss of drag ownership, such as the
// host losing focus. It reports whether a session was active.
func (s *Surface) CancelDrag() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelDrag()
}

func (s *Surface) cancelDrag() bool {
	session, ok := s.drag.Active()
	if !s.drag.Cancel() {
		return false
	}
	if ok {
		s.log.Debugw("drag cancelled", "node", session.NodeID)
		s.observer.DragEnded(session.NodeID, true)
	}
	return true
}

// ActiveDrag returns the drag session, if any.
func (s *Surface) ActiveDrag() (drag.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag.Active()
}

// DragTarget returns the node the current drag gesture belongs to, whether
// it is only armed or already grabbed.
func (s *Surface) DragTarget() (domain.NodeID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag.Target()
}

// DragState reports the drag controller's state.
func (s *Surface) DragState() drag.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag.State()
}

// SetPan sets the view pan in screen pixels.
func (s *Surface) SetPan(pan geometry.Point) error {
	if !geometry.Finite(pan) {
		return s.reject("set_pan", errors.Wrapf(errors.ErrInvalidGeometry, "pan %v", pan))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Pan = pan
	return nil
}

// PanBy shifts the view pan by delta screen pixels.
func (s *Surface) PanBy(delta geometry.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pan := r2.Add(s.view.Pan, delta)
	if !geometry.Finite(pan) {
		return s.reject("pan_by", errors.Wrapf(errors.ErrInvalidGeometry, "pan delta %v", delta))
	}
	s.view.Pan = pan
	return nil
}

// SetZoom sets the view zoom. The value is not clamped: zoom <= 0 or a
// non-finite zoom is ErrInvalidGeometry.
func (s *Surface) SetZoom(zoom float64) error {
	if err := geometry.ValidateZoom(zoom); err != nil {
		return s.reject("set_zoom", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Zoom = zoom
	return nil
}

// ZoomAbout changes the zoom while keeping the world point under anchor
// fixed on screen.
func (s *Surface) ZoomAbout(anchor geometry.Point, zoom float64) error {
	if !geometry.Finite(anchor) {
		return s.reject("zoom_about", errors.Wrapf(errors.ErrInvalidGeometry, "anchor %v", anchor))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pan, err := s.transform().ZoomAbout(anchor, zoom)
	if err != nil {
		return s.reject("zoom_about", err)
	}
	s.view = domain.ViewState{Pan: pan, Zoom: zoom}
	return nil
}

// SetSelected marks a node selected or not.
func (s *Surface) SetSelected(id domain.NodeID, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return s.reject("set_selected", errors.Wrapf(errors.ErrUnknownNode, "node %d", id))
	}
	n.Selected = selected
	return nil
}

// ClearSelection deselects every node.
func (s *Surface) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.nodes {
		n.Selected = false
	}
}

// SetContainerOffset records where the surface's region starts in screen
// space. Hosts call it before delivering pointer events for a frame.
func (s *Surface) SetContainerOffset(offset geometry.Point) error {
	if !geometry.Finite(offset) {
		return s.reject("set_container_offset", errors.Wrapf(errors.ErrInvalidGeometry, "offset %v", offset))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = offset
	return nil
}

// View returns the current pan and zoom.
func (s *Surface) View() domain.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Transform returns the current screen/world mapping.
func (s *Surface) Transform() geometry.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transform()
}

func (s *Surface) transform() geometry.Transform {
	return s.view.Transform(s.offset)
}

// NodeAt returns the topmost node under a screen point.
func (s *Surface) NodeAt(screen geometry.Point) (domain.NodeID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.transform()
	if t.Validate() != nil || !geometry.Finite(screen) {
		return 0, false
	}
	world := t.ScreenToWorld(screen)
	for i := len(s.order) - 1; i >= 0; i-- {
		n := s.nodes[s.order[i]]
		n.Resize(s.sizing)
		if geometry.Contains(n.Bounds(), world) {
			return n.ID, true
		}
	}
	return 0, false
}

// ScreenBounds returns a node's rectangle in screen space, which hosts pass
// back as the bounds of a DragMove.
func (s *Surface) ScreenBounds(id domain.NodeID) (geometry.Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return geometry.Rect{}, errors.Wrapf(errors.ErrUnknownNode, "node %d", id)
	}
	n.Resize(s.sizing)
	t := s.transform()
	return geometry.RectFromOrigin(t.WorldToScreen(n.Position), t.ScaleLength(n.Width), t.ScaleLength(n.Height)), nil
}

// Raise moves a node to the top of the z-order.
func (s *Surface) Raise(id domain.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[id]; !ok {
		return s.reject("raise", errors.Wrapf(errors.ErrUnknownNode, "node %d", id))
	}
	for i, n := range s.order {
		if n == id {
			s.order = append(slices.Delete(s.order, i, i+1), id)
			break
		}
	}
	return nil
}
