package scene

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomcat-viz/trialviz/internal/gamemap"
	"github.com/tomcat-viz/trialviz/internal/model"
	"github.com/tomcat-viz/trialviz/internal/trial"
)

const roomJSON = `{
	"locations": [
		{"id": "r1", "type": "room", "bounds": {"coordinates": [
			{"x": 0, "z": 0}, {"x": 8, "z": 8}
		]}}
	],
	"connections": []
}`

func testTrial(t *testing.T, ticks int) *trial.Trial {
	t.Helper()
	m, err := gamemap.Parse([]byte(roomJSON))
	require.NoError(t, err)

	tr := trial.New(ticks)
	tr.Map = m
	for tick := 0; tick < ticks; tick++ {
		for p := 0; p < model.NumPlayers; p++ {
			tr.Positions[p][tick] = []model.Position{{X: 2 + p, Y: 2 + tick%3}}
		}
	}
	return tr
}

func newTestView(t *testing.T, tr *trial.Trial) (*View, *MemCanvas) {
	t.Helper()
	canvas := NewMemCanvas()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v, err := NewView(tr, canvas, logger)
	require.NoError(t, err)
	return v, canvas
}

func countKind(canvas *MemCanvas, kind Kind) int {
	n := 0
	for _, p := range canvas.Visible() {
		if p.Kind == kind {
			n++
		}
	}
	return n
}

func findKind(canvas *MemCanvas, kind Kind) []Primitive {
	var out []Primitive
	for _, p := range canvas.Visible() {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

func TestViewInitialDraw(t *testing.T) {
	tr := testTrial(t, 10)
	tr.VictimList = []model.Victim{{Type: model.VictimA, Pos: model.Position{X: 3, Y: 3}}}
	tr.RubbleList = []model.Position{{X: 4, Y: 4}, {X: 4, Y: 4}, {X: 5, Y: 5}}

	_, canvas := newTestView(t, tr)

	assert.Equal(t, model.NumPlayers, countKind(canvas, KindPlayer))
	assert.Equal(t, 1, countKind(canvas, KindVictim))
	// Stacked rubble at (4,4) renders once.
	assert.Equal(t, 2, countKind(canvas, KindRubble))
	assert.NotZero(t, countKind(canvas, KindWall))
}

func TestViewRoundTrip(t *testing.T) {
	tr := testTrial(t, 20)
	tr.VictimList = []model.Victim{{Type: model.VictimB, Pos: model.Position{X: 3, Y: 3}}}
	marker := model.Marker{Type: model.MarkerSOS, Pos: model.Position{X: 5, Y: 5}}
	tr.PlacedMarkers[4].Add(marker)
	tr.RemovedMarkers[9].Add(marker)
	tr.RubbleCounts[3] = trial.RubbleDelta{{X: 6, Y: 6}: 2}
	tr.RubbleCounts[7] = trial.RubbleDelta{{X: 6, Y: 6}: -2}
	tr.PickedUpVictims[12].Add(model.Victim{Type: model.VictimB, Pos: model.Position{X: 3, Y: 3}})

	v, canvas := newTestView(t, tr)
	before := canvas.Visible()
	beforePath := append([]model.Position(nil), canvas.Path(model.Red)...)

	require.NoError(t, v.AdvanceTo(19))
	require.NoError(t, v.AdvanceTo(0))

	assert.Equal(t, before, canvas.Visible())
	assert.Equal(t, beforePath, canvas.Path(model.Red))
	assert.Zero(t, v.Inconsistencies())

	// Forward again over visited ticks replays cached diffs to the
	// same result as the original pass.
	require.NoError(t, v.AdvanceTo(10))
	assert.Equal(t, 0, countKind(canvas, KindMarker))
	require.NoError(t, v.AdvanceTo(5))
	assert.Equal(t, 1, countKind(canvas, KindMarker))
}

func TestViewMarkerStacking(t *testing.T) {
	tr := testTrial(t, 10)
	pos := model.Position{X: 5, Y: 5}
	tr.PlacedMarkers[1].Add(model.Marker{Type: model.MarkerVictimA, Pos: pos})
	tr.PlacedMarkers[2].Add(model.Marker{Type: model.MarkerSOS, Pos: pos})
	tr.RemovedMarkers[3].Add(model.Marker{Type: model.MarkerSOS, Pos: pos})

	v, canvas := newTestView(t, tr)

	require.NoError(t, v.AdvanceTo(2))
	// Replacement stacks on top, the old marker stays underneath.
	assert.Equal(t, 2, countKind(canvas, KindMarker))

	require.NoError(t, v.AdvanceTo(3))
	markers := findKind(canvas, KindMarker)
	require.Len(t, markers, 1)
	assert.Equal(t, model.MarkerVictimA, markers[0].Marker)
	assert.Zero(t, v.Inconsistencies())
}

func TestViewMarkerRemovalWithoutMarker(t *testing.T) {
	tr := testTrial(t, 10)
	tr.RemovedMarkers[1].Add(model.Marker{Type: model.MarkerRubble, Pos: model.Position{X: 5, Y: 5}})

	v, canvas := newTestView(t, tr)
	require.NoError(t, v.AdvanceTo(1))

	assert.Equal(t, 1, v.Inconsistencies())
	assert.Equal(t, 1, countKind(canvas, KindInconsistency))

	// The flag reverses like any other primitive.
	require.NoError(t, v.AdvanceTo(0))
	assert.Equal(t, 0, countKind(canvas, KindInconsistency))
}

func TestViewRubbleLifecycle(t *testing.T) {
	tr := testTrial(t, 10)
	pos := model.Position{X: 6, Y: 6}
	tr.RubbleCounts[1] = trial.RubbleDelta{pos: 3}
	tr.RubbleCounts[2] = trial.RubbleDelta{pos: -1}
	tr.RubbleCounts[3] = trial.RubbleDelta{pos: -2}

	v, canvas := newTestView(t, tr)

	require.NoError(t, v.AdvanceTo(2))
	// Still two blocks in the stack, one primitive.
	assert.Equal(t, 1, countKind(canvas, KindRubble))

	require.NoError(t, v.AdvanceTo(3))
	assert.Equal(t, 0, countKind(canvas, KindRubble))

	require.NoError(t, v.AdvanceTo(2))
	assert.Equal(t, 1, countKind(canvas, KindRubble))
}

func TestViewRubbleUnderflowFlagged(t *testing.T) {
	tr := testTrial(t, 10)
	tr.RubbleCounts[1] = trial.RubbleDelta{{X: 6, Y: 6}: -1}

	v, canvas := newTestView(t, tr)
	require.NoError(t, v.AdvanceTo(1))

	assert.Equal(t, 1, v.Inconsistencies())
	assert.Equal(t, 0, countKind(canvas, KindRubble))
	assert.Equal(t, 1, countKind(canvas, KindInconsistency))
}

func TestViewVictimRescueTransition(t *testing.T) {
	tr := testTrial(t, 10)
	pos := model.Position{X: 3, Y: 3}
	tr.VictimList = []model.Victim{{Type: model.VictimA, Pos: pos}}
	tr.SavedVictims[2].Add(model.Victim{Type: model.VictimA, Pos: pos})

	v, canvas := newTestView(t, tr)
	require.NoError(t, v.AdvanceTo(2))

	victims := findKind(canvas, KindVictim)
	require.Len(t, victims, 1)
	assert.Equal(t, model.VictimSafeA, victims[0].Victim)

	require.NoError(t, v.AdvanceTo(1))
	victims = findKind(canvas, KindVictim)
	require.Len(t, victims, 1)
	assert.Equal(t, model.VictimA, victims[0].Victim)
}

func TestViewSavedThenPickedUpSameTick(t *testing.T) {
	tr := testTrial(t, 10)
	pos := model.Position{X: 3, Y: 3}
	tr.VictimList = []model.Victim{{Type: model.VictimCritical, Pos: pos}}
	tr.SavedVictims[2].Add(model.Victim{Type: model.VictimCritical, Pos: pos})
	// The safe twin is carried off within the same tick: the rescue
	// redraw is skipped and the pickup removes the original block.
	tr.PickedUpVictims[2].Add(model.Victim{Type: model.VictimSafeCritical, Pos: pos})

	v, canvas := newTestView(t, tr)
	require.NoError(t, v.AdvanceTo(2))

	assert.Equal(t, 0, countKind(canvas, KindVictim))
	assert.Zero(t, v.Inconsistencies())
}

func TestViewVictimPlacement(t *testing.T) {
	tr := testTrial(t, 10)
	pos := model.Position{X: 7, Y: 2}
	tr.PlacedVictims[1].Add(model.Victim{Type: model.VictimSafeB, Pos: pos})

	v, canvas := newTestView(t, tr)
	require.NoError(t, v.AdvanceTo(1))

	victims := findKind(canvas, KindVictim)
	require.Len(t, victims, 1)
	assert.Equal(t, model.VictimSafeB, victims[0].Victim)
	assert.Equal(t, pos, victims[0].Pos)
}

func TestViewTrajectoryGrowsAndTruncates(t *testing.T) {
	tr := testTrial(t, 10)

	v, canvas := newTestView(t, tr)
	require.NoError(t, v.AdvanceTo(5))
	assert.Len(t, canvas.Path(model.Red), 6)

	require.NoError(t, v.AdvanceTo(2))
	assert.Len(t, canvas.Path(model.Red), 3)

	require.NoError(t, v.AdvanceTo(7))
	assert.Len(t, canvas.Path(model.Red), 8)
}

func TestViewRejectsOutOfRangeTick(t *testing.T) {
	tr := testTrial(t, 10)
	v, _ := newTestView(t, tr)
	assert.Error(t, v.AdvanceTo(-1))
	assert.Error(t, v.AdvanceTo(10))
}
