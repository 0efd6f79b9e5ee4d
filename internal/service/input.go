package service

import (
	"context"

	"nodecanvas/internal/domain"
	"nodecanvas/internal/errors"
	"nodecanvas/internal/geometry"
	"nodecanvas/internal/metrics"
)

// InputType names a pointer, view or selection event.
type InputType string

const (
	InputDragStart      InputType = "drag_start"
	InputDragMove       InputType = "drag_move"
	InputDragEnd        InputType = "drag_end"
	InputBlur           InputType = "blur" // host lost drag ownership
	InputPan            InputType = "pan"
	InputPanBy          InputType = "pan_by"
	InputZoom           InputType = "zoom"
	InputZoomAbout      InputType = "zoom_about"
	InputSelect         InputType = "select"
	InputClearSelection InputType = "clear_selection"
	InputContainer      InputType = "container" // container offset changed
)

// ErrUnknownInput reports an InputEvent whose Type Dispatch does not know.
var ErrUnknownInput = errors.New("unknown input type")

// Bounds is a screen rectangle supplied by the host.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect converts the bounds; nil yields the zero Rect.
func (b *Bounds) Rect() geometry.Rect {
	if b == nil {
		return geometry.Rect{}
	}
	return geometry.RectFromOrigin(geometry.Pt(b.X, b.Y), b.Width, b.Height)
}

// InputEvent is one host event. X and Y are a pointer, anchor, pan, pan delta
// or container offset in screen pixels depending on Type.
type InputEvent struct {
	Type     InputType     `json:"type"`
	NodeID   domain.NodeID `json:"node_id,omitempty"`
	X        float64       `json:"x,omitempty"`
	Y        float64       `json:"y,omitempty"`
	Bounds   *Bounds       `json:"bounds,omitempty"`
	Zoom     float64       `json:"zoom,omitempty"`
	Selected bool          `json:"selected,omitempty"`
}

// Point returns X and Y as a point.
func (e InputEvent) Point() geometry.Point {
	return geometry.Pt(e.X, e.Y)
}

// InputResult reports what Dispatch changed.
type InputResult struct {
	Type    InputType `json:"type"`
	Applied bool      `json:"applied"`
	Started bool      `json:"started,omitempty"`
	Moved   bool      `json:"moved,omitempty"`
}

// Dispatch applies one input event to the surface. Events that do not apply,
// such as a move for a node that is not being dragged, return Applied false
// without an error. When something changed a frame event is published.
func (s *SurfaceService) Dispatch(ctx context.Context, ev InputEvent) (InputResult, error) {
	metrics.InputEvents.WithLabelValues(string(ev.Type)).Inc()

	res, err := s.dispatch(ctx, ev)
	if err != nil {
		return res, err
	}
	if res.Applied {
		s.eventBus.Publish(Event{Type: EventFrame, Payload: s.Frame()})
	}
	return res, nil
}

func (s *SurfaceService) dispatch(ctx context.Context, ev InputEvent) (InputResult, error) {
	res := InputResult{Type: ev.Type}
	sf := s.surface

	switch ev.Type {
	case InputDragStart:
		displaced, ok, err := sf.BeginDrag(ev.NodeID)
		if err != nil {
			return res, err
		}
		if ok {
			s.persistPosition(ctx, displaced.NodeID)
			s.eventBus.Publish(Event{
				Type:    EventDragEnded,
				Payload: map[string]interface{}{"node_id": displaced.NodeID, "cancelled": true},
			})
		}
		if err := sf.Raise(ev.NodeID); err != nil {
			return res, err
		}
		res.Applied = true

	case InputDragMove:
		dr, err := sf.DragMove(ev.NodeID, ev.Point(), ev.Bounds.Rect())
		if err != nil {
			return res, err
		}
		res.Started, res.Moved = dr.Started, dr.Moved
		res.Applied = dr.Started || dr.Moved
		if dr.Started {
			s.eventBus.Publish(Event{
				Type:    EventDragStarted,
				Payload: map[string]domain.NodeID{"node_id": ev.NodeID},
			})
		}

	case InputDragEnd:
		session, ok := sf.DragEnd(ev.NodeID)
		if !ok {
			return res, nil
		}
		res.Applied = true
		s.persistPosition(ctx, session.NodeID)
		s.eventBus.Publish(Event{
			Type:    EventDragEnded,
			Payload: map[string]interface{}{"node_id": session.NodeID, "cancelled": false},
		})

	case InputBlur:
		session, grabbed := sf.ActiveDrag()
		if !sf.CancelDrag() {
			return res, nil
		}
		res.Applied = true
		if grabbed {
			s.persistPosition(ctx, session.NodeID)
			s.eventBus.Publish(Event{
				Type:    EventDragEnded,
				Payload: map[string]interface{}{"node_id": session.NodeID, "cancelled": true},
			})
		}

	case InputPan:
		if err := sf.SetPan(ev.Point()); err != nil {
			return res, err
		}
		res.Applied = true
		s.persistView(ctx)

	case InputPanBy:
		if err := sf.PanBy(ev.Point()); err != nil {
			return res, err
		}
		res.Applied = true
		s.persistView(ctx)

	case InputZoom:
		if err := sf.SetZoom(s.clampZoom(ev.Zoom)); err != nil {
			return res, err
		}
		res.Applied = true
		s.persistView(ctx)

	case InputZoomAbout:
		if err := sf.ZoomAbout(ev.Point(), s.clampZoom(ev.Zoom)); err != nil {
			return res, err
		}
		res.Applied = true
		s.persistView(ctx)

	case InputSelect:
		if err := sf.SetSelected(ev.NodeID, ev.Selected); err != nil {
			return res, err
		}
		res.Applied = true
		s.eventBus.Publish(Event{
			Type:    EventSelectionChanged,
			Payload: map[string]interface{}{"node_id": ev.NodeID, "selected": ev.Selected},
		})

	case InputClearSelection:
		sf.ClearSelection()
		res.Applied = true
		s.eventBus.Publish(Event{Type: EventSelectionChanged})

	case InputContainer:
		if err := sf.SetContainerOffset(ev.Point()); err != nil {
			return res, err
		}
		res.Applied = true

	default:
		return res, errors.WithHint(errors.Wrapf(ErrUnknownInput, "%q", ev.Type),
			"expected drag_start, drag_move, drag_end, blur, pan, pan_by, zoom, zoom_about, select, clear_selection or container")
	}
	return res, nil
}

// clampZoom passes invalid zooms through unchanged so the surface reports
// them.
func (s *SurfaceService) clampZoom(z float64) float64 {
	if geometry.ValidateZoom(z) != nil {
		return z
	}
	return s.clamp(z)
}
