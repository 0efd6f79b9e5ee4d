// Package drag turns pointer movement into node position updates.
//
// A Controller holds at most one Session. The session records the node by id
// only and resolves it through a NodeStore on every move, so a node removed
// mid-drag yields ErrUnknownNode instead of a stale handle.
//
// The grab offset is captured on the first move of a gesture and frozen for
// the rest of it. Every later move maps the pointer through the transform
// current at that moment, so pan and zoom changes during the drag keep the
// node fixed relative to the cursor.
package drag

import (
	"gonum.org/v1/gonum/spatial/r2"

	"nodecanvas/internal/domain"
	"nodecanvas/internal/errors"
	"nodecanvas/internal/geometry"
)

// NodeStore resolves node ids. The surface's node arena implements it.
type NodeStore interface {
	Node(id domain.NodeID) (*domain.Node, bool)
}

// State is the controller's position in the drag gesture.
type State int

const (
	Idle    State = iota // no gesture
	Armed                // Begin seen, waiting for the first move
	Grabbed              // session active
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case Grabbed:
		return "grabbed"
	default:
		return "idle"
	}
}

// Session is an active drag of one node.
type Session struct {
	NodeID     domain.NodeID
	GrabOffset geometry.Point // world space, node origin to pointer
}

// Result describes what a Move did.
type Result struct {
	Started bool // a session was created by this move
	Moved   bool // the node position changed
}

// Controller is the drag state machine. It is not safe for concurrent use;
// the owning surface serializes calls.
type Controller struct {
	armed   domain.NodeID
	isArmed bool
	session *Session
}

// New returns an idle controller.
func New() *Controller {
	return &Controller{}
}

// State reports the current state.
func (c *Controller) State() State {
	switch {
	case c.session != nil:
		return Grabbed
	case c.isArmed:
		return Armed
	default:
		return Idle
	}
}

// Active returns the current session, if any.
func (c *Controller) Active() (Session, bool) {
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Target returns the node the current gesture belongs to, armed or grabbed.
func (c *Controller) Target() (domain.NodeID, bool) {
	switch {
	case c.session != nil:
		return c.session.NodeID, true
	case c.isArmed:
		return c.armed, true
	default:
		return 0, false
	}
}

// Begin arms a drag for id. A session owned by another node is discarded;
// a session already owned by id is kept.
func (c *Controller) Begin(id domain.NodeID) {
	if c.session != nil && c.session.NodeID == id {
		return
	}
	c.session = nil
	c.armed = id
	c.isArmed = true
}

// Move handles one pointer move for node id.
//
// With no session, the move starts one when id is the armed node or nothing is
// armed. The grab offset is (pointer - bounds.Min) / zoom when bounds is
// non-empty, otherwise ScreenToWorld(pointer) - position. The node does not
// move on the starting event.
//
// With a session for id, the node moves to ScreenToWorld(pointer) - offset.
// A session for another known node makes the move a no-op. An id that does
// not resolve reports ErrUnknownNode; the gesture is dropped only when it
// belonged to that id.
func (c *Controller) Move(store NodeStore, id domain.NodeID, pointer geometry.Point, bounds geometry.Rect, t geometry.Transform) (Result, error) {
	if err := t.Validate(); err != nil {
		return Result{}, err
	}
	if !geometry.Finite(pointer) {
		return Result{}, errors.Wrapf(errors.ErrInvalidGeometry, "pointer %v", pointer)
	}

	node, ok := store.Node(id)
	if !ok {
		c.Forget(id)
		return Result{}, errors.Wrapf(errors.ErrUnknownNode, "drag node %d", id)
	}

	if c.session != nil && c.session.NodeID != id {
		return Result{}, nil
	}
	if c.session == nil && c.isArmed && c.armed != id {
		return Result{}, nil
	}

	if c.session == nil {
		c.session = &Session{
			NodeID:     id,
			GrabOffset: grabOffset(node, pointer, bounds, t),
		}
		c.isArmed = false
		return Result{Started: true}, nil
	}

	pos := r2.Sub(t.ScreenToWorld(pointer), c.session.GrabOffset)
	return Result{Moved: node.MoveTo(pos)}, nil
}

// End closes the session for id and returns it. A mismatched id or an idle
// controller is a no-op.
func (c *Controller) End(id domain.NodeID) (Session, bool) {
	if c.session == nil {
		if c.isArmed && c.armed == id {
			c.isArmed = false
		}
		return Session{}, false
	}
	if c.session.NodeID != id {
		return Session{}, false
	}
	s := *c.session
	c.reset()
	return s, true
}

// Cancel drops any session or armed gesture, for loss of drag ownership such
// as focus loss. It reports whether a session was active.
func (c *Controller) Cancel() bool {
	had := c.session != nil
	c.reset()
	return had
}

// Forget clears the gesture if it refers to id. Called when a node is removed.
func (c *Controller) Forget(id domain.NodeID) {
	if (c.session != nil && c.session.NodeID == id) || (c.isArmed && c.armed == id) {
		c.reset()
	}
}

func (c *Controller) reset() {
	c.session = nil
	c.isArmed = false
	c.armed = 0
}

func grabOffset(node *domain.Node, pointer geometry.Point, bounds geometry.Rect, t geometry.Transform) geometry.Point {
	if !geometry.Empty(bounds) {
		return r2.Scale(1/t.Zoom, r2.Sub(pointer, bounds.Min))
	}
	return r2.Sub(t.ScreenToWorld(pointer), node.Position)
}
