package drag

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodecanvas/internal/domain"
	"nodecanvas/internal/errors"
	"nodecanvas/internal/geometry"
)

type mapStore map[domain.NodeID]*domain.Node

func (m mapStore) Node(id domain.NodeID) (*domain.Node, bool) {
	n, ok := m[id]
	return n, ok
}

func newStore() mapStore {
	s := domain.DefaultSizing()
	return mapStore{
		1: domain.NewNode(1, "hi", geometry.Pt(0, 0), s),
		2: domain.NewNode(2, "there", geometry.Pt(300, 0), s),
	}
}

var noBounds geometry.Rect

func TestControllerScenario(t *testing.T) {
	store := newStore()
	c := New()
	tr := geometry.Identity()

	c.Begin(1)
	assert.Equal(t, Armed, c.State())

	res, err := c.Move(store, 1, geometry.Pt(40, 16), noBounds, tr)
	require.NoError(t, err)
	assert.True(t, res.Started)
	assert.False(t, res.Moved)

	session, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, geometry.Pt(40, 16), session.GrabOffset)
	assert.Equal(t, geometry.Pt(0, 0), store[1].Position)

	res, err = c.Move(store, 1, geometry.Pt(140, 16), noBounds, tr)
	require.NoError(t, err)
	assert.True(t, res.Moved)
	assert.Equal(t, geometry.Pt(100, 0), store[1].Position)
	assert.Equal(t, geometry.Pt(180, 16), store[1].RightPort())

	ended, ok := c.End(1)
	assert.True(t, ok)
	assert.Equal(t, domain.NodeID(1), ended.NodeID)
	assert.Equal(t, Idle, c.State())
}

func TestControllerBoundsOffset(t *testing.T) {
	store := newStore()
	c := New()
	tr := geometry.Transform{Pan: geometry.Pt(10, 20), Zoom: 2, ContainerOffset: geometry.Pt(5, 5)}

	// bounds consistent with the node's rendered rectangle
	bounds := geometry.RectFromOrigin(tr.WorldToScreen(store[1].Position), store[1].Width*2, store[1].Height*2)
	pointer := geometry.Pt(55, 45)

	_, err := c.Move(store, 1, pointer, bounds, tr)
	require.NoError(t, err)
	withBounds, _ := c.Active()

	c.Cancel()
	_, err = c.Move(store, 1, pointer, noBounds, tr)
	require.NoError(t, err)
	withoutBounds, _ := c.Active()

	assert.InDelta(t, withoutBounds.GrabOffset.X, withBounds.GrabOffset.X, 1e-9)
	assert.InDelta(t, withoutBounds.GrabOffset.Y, withBounds.GrabOffset.Y, 1e-9)
}

func TestGrabOffsetInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		store := newStore()
		c := New()
		tr := geometry.Transform{
			Pan:  geometry.Pt(rng.Float64()*400-200, rng.Float64()*400-200),
			Zoom: 0.1 + rng.Float64()*4,
		}

		grab := tr.WorldToScreen(geometry.Pt(rng.Float64()*80, rng.Float64()*32))
		c.Begin(1)
		_, err := c.Move(store, 1, grab, noBounds, tr)
		require.NoError(t, err)
		session, _ := c.Active()

		for step := 0; step < 10; step++ {
			tr.Pan = geometry.Pt(rng.Float64()*400-200, rng.Float64()*400-200)
			tr.Zoom = 0.1 + rng.Float64()*4
			pointer := geometry.Pt(rng.Float64()*1000, rng.Float64()*800)

			_, err := c.Move(store, 1, pointer, noBounds, tr)
			require.NoError(t, err)

			// the world point under the cursor stays at the same place on the node
			world := tr.ScreenToWorld(pointer)
			assert.InDelta(t, session.GrabOffset.X, world.X-store[1].Position.X, 1e-6)
			assert.InDelta(t, session.GrabOffset.Y, world.Y-store[1].Position.Y, 1e-6)

			// and the node's screen origin sits at pointer - offset*zoom
			screen := tr.WorldToScreen(store[1].Position)
			assert.InDelta(t, pointer.X-session.GrabOffset.X*tr.Zoom, screen.X, 1e-6)
			assert.InDelta(t, pointer.Y-session.GrabOffset.Y*tr.Zoom, screen.Y, 1e-6)
		}

		after, _ := c.Active()
		assert.Equal(t, session.GrabOffset, after.GrabOffset)
	}
}

func TestControllerIdleDrop(t *testing.T) {
	t.Run("drop with no session", func(t *testing.T) {
		store := newStore()
		c := New()

		_, ok := c.End(1)
		assert.False(t, ok)
		assert.Equal(t, Idle, c.State())
		assert.Equal(t, geometry.Pt(0, 0), store[1].Position)
	})

	t.Run("click without movement", func(t *testing.T) {
		store := newStore()
		c := New()

		c.Begin(1)
		_, ok := c.End(1)
		assert.False(t, ok)
		assert.Equal(t, Idle, c.State())
		assert.Equal(t, geometry.Pt(0, 0), store[1].Position)
	})

	t.Run("mismatched id keeps session", func(t *testing.T) {
		store := newStore()
		c := New()

		c.Begin(1)
		_, err := c.Move(store, 1, geometry.Pt(10, 10), noBounds, geometry.Identity())
		require.NoError(t, err)
		before, _ := c.Active()

		_, ok := c.End(2)
		assert.False(t, ok)
		after, ok := c.Active()
		assert.True(t, ok)
		assert.Equal(t, before, after)
		assert.Equal(t, geometry.Pt(0, 0), store[1].Position)
		assert.Equal(t, geometry.Pt(300, 0), store[2].Position)
	})
}

func TestControllerSingleSession(t *testing.T) {
	store := newStore()
	c := New()
	tr := geometry.Identity()

	c.Begin(1)
	_, err := c.Move(store, 1, geometry.Pt(10, 10), noBounds, tr)
	require.NoError(t, err)

	t.Run("moves for another node are ignored", func(t *testing.T) {
		res, err := c.Move(store, 2, geometry.Pt(500, 500), noBounds, tr)
		require.NoError(t, err)
		assert.Equal(t, Result{}, res)
		assert.Equal(t, geometry.Pt(300, 0), store[2].Position)
	})

	t.Run("begin for another node replaces the session", func(t *testing.T) {
		c.Begin(2)
		assert.Equal(t, Armed, c.State())

		res, err := c.Move(store, 1, geometry.Pt(50, 50), noBounds, tr)
		require.NoError(t, err)
		assert.Equal(t, Result{}, res)
		assert.Equal(t, geometry.Pt(0, 0), store[1].Position)

		res, err = c.Move(store, 2, geometry.Pt(310, 5), noBounds, tr)
		require.NoError(t, err)
		assert.True(t, res.Started)
		s, _ := c.Active()
		assert.Equal(t, domain.NodeID(2), s.NodeID)
	})

	t.Run("begin for the same node keeps the offset", func(t *testing.T) {
		before, _ := c.Active()
		c.Begin(2)
		after, ok := c.Active()
		assert.True(t, ok)
		assert.Equal(t, before, after)
	})
}

func TestControllerUnknownNode(t *testing.T) {
	store := newStore()
	c := New()

	c.Begin(1)
	_, err := c.Move(store, 1, geometry.Pt(10, 10), noBounds, geometry.Identity())
	require.NoError(t, err)

	delete(store, 1)
	_, err = c.Move(store, 1, geometry.Pt(20, 20), noBounds, geometry.Identity())
	assert.True(t, errors.Is(err, errors.ErrUnknownNode))
	assert.Equal(t, Idle, c.State())
}

func TestControllerUnknownNodeKeepsOtherGesture(t *testing.T) {
	store := newStore()
	c := New()
	tr := geometry.Identity()

	c.Begin(1)
	_, err := c.Move(store, 99, geometry.Pt(10, 10), noBounds, tr)
	assert.True(t, errors.Is(err, errors.ErrUnknownNode), "unknown id while another node is armed")
	assert.Equal(t, Armed, c.State())

	_, err = c.Move(store, 1, geometry.Pt(10, 10), noBounds, tr)
	require.NoError(t, err)

	_, err = c.Move(store, 99, geometry.Pt(20, 20), noBounds, tr)
	assert.True(t, errors.Is(err, errors.ErrUnknownNode), "unknown id while another node is grabbed")
	session, ok := c.Active()
	require.True(t, ok)
	assert.Equal(t, domain.NodeID(1), session.NodeID)
}

func TestControllerTarget(t *testing.T) {
	store := newStore()
	c := New()

	_, ok := c.Target()
	assert.False(t, ok)

	c.Begin(2)
	id, ok := c.Target()
	assert.True(t, ok)
	assert.Equal(t, domain.NodeID(2), id)

	_, err := c.Move(store, 2, geometry.Pt(310, 5), noBounds, geometry.Identity())
	require.NoError(t, err)
	id, ok = c.Target()
	assert.True(t, ok)
	assert.Equal(t, domain.NodeID(2), id)

	c.Cancel()
	_, ok = c.Target()
	assert.False(t, ok)
}

func TestControllerInvalidGeometry(t *testing.T) {
	store := newStore()
	c := New()

	c.Begin(1)
	_, err := c.Move(store, 1, geometry.Pt(10, 10), noBounds, geometry.Transform{Zoom: 0})
	assert.True(t, errors.Is(err, errors.ErrInvalidGeometry))
	assert.Equal(t, Armed, c.State())
	assert.Equal(t, geometry.Pt(0, 0), store[1].Position)
}

func TestControllerCancel(t *testing.T) {
	store := newStore()
	c := New()

	assert.False(t, c.Cancel())

	c.Begin(1)
	_, err := c.Move(store, 1, geometry.Pt(10, 10), noBounds, geometry.Identity())
	require.NoError(t, err)

	assert.True(t, c.Cancel())
	assert.Equal(t, Idle, c.State())

	// a move after focus loss needs a fresh gesture; it does not resume the old offset
	res, err := c.Move(store, 1, geometry.Pt(100, 100), noBounds, geometry.Identity())
	require.NoError(t, err)
	assert.True(t, res.Started)
	assert.Equal(t, geometry.Pt(0, 0), store[1].Position)
}

func TestControllerForget(t *testing.T) {
	store := newStore()
	c := New()

	c.Begin(1)
	_, err := c.Move(store, 1, geometry.Pt(10, 10), noBounds, geometry.Identity())
	require.NoError(t, err)

	c.Forget(2)
	assert.Equal(t, Grabbed, c.State())

	c.Forget(1)
	assert.Equal(t, Idle, c.State())
}
