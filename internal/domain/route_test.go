package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodecanvas/internal/geometry"
)

func TestStraightRouter(t *testing.T) {
	a, b := newPair()
	path := StraightRouter{}.Route(a, b)

	require.Len(t, path, 2)
	assert.Equal(t, a.RightPort(), path[0])
	assert.Equal(t, b.LeftPort(), path[1])
}

func TestOrthogonalRouter(t *testing.T) {
	t.Run("level ports give a straight segment", func(t *testing.T) {
		a, b := newPair()
		path := OrthogonalRouter{}.Route(a, b)
		require.Len(t, path, 2)
	})

	t.Run("offset ports give an elbow", func(t *testing.T) {
		a, b := newPair()
		b.MoveTo(geometry.Pt(300, 100))
		path := OrthogonalRouter{}.Route(a, b)

		require.Len(t, path, 4)
		assert.Equal(t, a.RightPort(), path[0])
		assert.Equal(t, geometry.Pt(190, 16), path[1])
		assert.Equal(t, geometry.Pt(190, 116), path[2])
		assert.Equal(t, b.LeftPort(), path[3])
	})
}

func TestParseRouter(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"straight", "straight"},
		{"orthogonal", "orthogonal"},
		{" Elbow ", "orthogonal"},
		{"", "straight"},
		{"bezier", "straight"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseRouter(tt.input).Name(), "ParseRouter(%q)", tt.input)
	}
}
