package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomcat-viz/trialviz/internal/model"
)

func TestLineString(t *testing.T) {
	ls, err := LineString([]model.Position{{X: 0, Y: 0}, {X: 3, Y: 4}})
	require.NoError(t, err)

	seq := ls.Coordinates()
	require.Equal(t, 2, seq.Length())
	assert.Equal(t, 3.0, seq.Get(1).X)
	assert.Equal(t, 4.0, seq.Get(1).Y)
}

func TestLineString_TooShort(t *testing.T) {
	_, err := LineString([]model.Position{{X: 1, Y: 1}})
	assert.ErrorIs(t, err, ErrTooShort)

	_, err = LineString(nil)
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestPathLength(t *testing.T) {
	path := []model.Position{{X: 0, Y: 0}, {X: 3, Y: 4}, {X: 3, Y: 10}}
	assert.InDelta(t, 11.0, PathLength(path), 1e-9)

	assert.Zero(t, PathLength([]model.Position{{X: 1, Y: 1}}))
	assert.Zero(t, PathLength(nil))
}

func TestBounds(t *testing.T) {
	path := []model.Position{{X: 2, Y: 7}, {X: 5, Y: 1}, {X: 3, Y: 4}}
	env := Bounds(path)

	mn, ok := env.Min().XY()
	require.True(t, ok)
	mx, ok := env.Max().XY()
	require.True(t, ok)

	assert.Equal(t, 2.0, mn.X)
	assert.Equal(t, 1.0, mn.Y)
	assert.Equal(t, 5.0, mx.X)
	assert.Equal(t, 7.0, mx.Y)
}
