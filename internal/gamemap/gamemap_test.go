package gamemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomcat-viz/trialviz/internal/model"
)

// mapJSON describes one 4x4 room spanning [0,4)x[0,4) with a door on
// its left wall.
const mapJSON = `{
	"locations": [
		{"id": "r1", "type": "room", "bounds": {"coordinates": [
			{"x": 0, "z": 0}, {"x": 4, "z": 4}
		]}}
	],
	"connections": [
		{"id": "c1", "type": "door", "bounds": {"coordinates": [
			{"x": -1, "z": 1}, {"x": 0, "z": 2}
		]}}
	]
}`

func TestParseSimpleRoom(t *testing.T) {
	m, err := Parse([]byte(mapJSON))
	require.NoError(t, err)

	assert.Equal(t, -1, m.MinX)
	assert.Equal(t, -1, m.MinY)
	assert.Equal(t, 4, m.MaxX)
	assert.Equal(t, 4, m.MaxY)
	assert.Equal(t, 6, m.Width())
	assert.Equal(t, 6, m.Height())

	// Corners and edges of the contour are walls.
	assert.Equal(t, Wall, m.At(m.Translate(-1, -1)))
	assert.Equal(t, Wall, m.At(m.Translate(4, 4)))
	assert.Equal(t, Wall, m.At(m.Translate(0, -1)))

	// Interior is empty.
	assert.Equal(t, Empty, m.At(m.Translate(1, 1)))
	assert.Equal(t, Empty, m.At(m.Translate(3, 3)))

	// The door block replaces the wall cell.
	assert.Equal(t, Door, m.At(m.Translate(-1, 1)))
}

func TestParseCompositeRoomDropsInteriorWalls(t *testing.T) {
	raw := []byte(`{
		"locations": [
			{"id": "big", "type": "room", "child_locations": ["p1", "p2"]},
			{"id": "p1", "type": "room_part", "bounds": {"coordinates": [
				{"x": 0, "z": 0}, {"x": 3, "z": 3}
			]}},
			{"id": "p2", "type": "room_part", "bounds": {"coordinates": [
				{"x": 3, "z": 0}, {"x": 6, "z": 3}
			]}}
		],
		"connections": []
	}`)

	m, err := Parse(raw)
	require.NoError(t, err)

	// The shared wall x=3 between the two parts lies inside part p2's
	// interior... except the part interiors only cover [0,3)x[0,3) and
	// [3,6)x[0,3), so the x=3 column inside the room is interior to p2
	// and must not be a wall.
	assert.Equal(t, Empty, m.At(m.Translate(3, 1)))
	// The outer contour survives.
	assert.Equal(t, Wall, m.At(m.Translate(-1, -1)))
	assert.Equal(t, Wall, m.At(m.Translate(6, 1)))
}

func TestParseEmptyMapFails(t *testing.T) {
	_, err := Parse([]byte(`{"locations": [], "connections": []}`))
	require.ErrorIs(t, err, ErrEmptyMap)
}

func TestParseBadJSON(t *testing.T) {
	_, err := Parse([]byte(`{`))
	require.Error(t, err)
}

func TestTranslate(t *testing.T) {
	m := &Map{MinX: 5, MinY: 5, MaxX: 10, MaxY: 10}
	assert.Equal(t, model.Position{X: 5, Y: 15}, m.Translate(10, 20))
}
