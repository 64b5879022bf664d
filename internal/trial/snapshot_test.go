package trial

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomcat-viz/trialviz/internal/gamemap"
	"github.com/tomcat-viz/trialviz/internal/model"
)

// newPopulatedTrial fills a short trial with at least one entry in every
// tracked sequence.
func newPopulatedTrial() *Trial {
	t := New(5)
	t.Map = &gamemap.Map{
		Grid: [][]gamemap.Cell{
			{gamemap.Wall, gamemap.Wall, gamemap.Wall},
			{gamemap.Wall, gamemap.Empty, gamemap.Door},
			{gamemap.Wall, gamemap.Wall, gamemap.Wall},
		},
		MinX: -2110, MinY: 52, MaxX: -2108, MaxY: 54,
	}
	t.Metadata = Metadata{
		TrialNumber:      "000443",
		TeamNumber:       "TM000117",
		MapBlockFilename: "Saturn_1.0_sm_with_victimsA.json",
		PlayerIDs:        []string{"P1", "P2", "P3"},
		IDs:              [model.NumPlayers]string{"P1", "P2", "P3"},
		Roles: [model.NumPlayers]model.Role{
			model.Medic, model.Engineer, model.Transporter,
		},
	}

	t.VictimList = []model.Victim{
		{Type: model.VictimA, Pos: model.Position{X: 4, Y: 9}},
		{Type: model.VictimCritical, Pos: model.Position{X: 7, Y: 2}},
	}
	t.RubbleList = []model.Position{{X: 1, Y: 1}}
	t.ThreatPlateList = []model.Position{{X: 6, Y: 6}}
	t.VictimSignalPlateList = []model.Position{{X: 2, Y: 8}}

	t.Scores = []int{0, 10, 10, 10, 60}
	t.ActiveBlackout[3] = true
	t.PlacedMarkers[1].Add(model.Marker{Type: model.MarkerSOS, Pos: model.Position{X: 3, Y: 3}})
	t.PlacedMarkers[1].Add(model.Marker{Type: model.MarkerRubble, Pos: model.Position{X: 1, Y: 1}})
	t.RemovedMarkers[2].Add(model.Marker{Type: model.MarkerSOS, Pos: model.Position{X: 3, Y: 3}})
	t.RubbleCounts[2][model.Position{X: 1, Y: 1}] = -1
	t.SavedVictims[4].Add(t.VictimList[0])
	t.PickedUpVictims[3].Add(t.VictimList[0])
	t.PlacedVictims[4].Add(t.VictimList[0])

	t.Positions[model.Red][0] = []model.Position{{X: 5, Y: 15}, {X: 6, Y: 15}}
	t.Yaws[model.Red][0] = 90.5
	t.Actions[model.Green][1] = model.ActionDestroyingRubble
	t.EquippedItems[model.Green][1] = model.ItemHammer
	t.ChatMessages[model.Blue][2].Add(model.ChatMessage{
		Sender: "blue", Addressee: "P1", Color: "blue", Text: "victim here",
	})
	t.Speech[model.Blue][2] = []string{"I found a victim"}
	return t
}

func TestSaveLoadRoundTrip(t *testing.T) {
	orig := newPopulatedTrial()
	path := filepath.Join(t.TempDir(), "snapshots", "000443.json.gz")

	require.NoError(t, orig.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, orig, got)
}

func TestWriteToReadFrom(t *testing.T) {
	orig := newPopulatedTrial()

	var buf bytes.Buffer
	require.NoError(t, orig.WriteTo(&buf))

	got, err := ReadFrom(&buf)
	require.NoError(t, err)
	assert.Equal(t, orig, got)
}

func TestSnapshotDeterministic(t *testing.T) {
	orig := newPopulatedTrial()

	var a, b bytes.Buffer
	require.NoError(t, orig.WriteTo(&a))
	require.NoError(t, orig.WriteTo(&b))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestReadFromRejectsUnknownVersion(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	require.NoError(t, json.NewEncoder(gz).Encode(map[string]any{"version": 99}))
	require.NoError(t, gz.Close())

	_, err := ReadFrom(&buf)
	require.ErrorContains(t, err, "unsupported snapshot version")
}

func TestReadFromRejectsPlainJSON(t *testing.T) {
	_, err := ReadFrom(bytes.NewReader([]byte(`{"version":1}`)))
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json.gz"))
	require.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	tr := New(0)
	assert.Equal(t, DefaultTimeSteps, tr.TimeSteps)
	assert.Len(t, tr.Scores, DefaultTimeSteps)
	assert.NotNil(t, tr.PlacedMarkers[0])
	assert.NotNil(t, tr.ChatMessages[model.Red][0])
}

func TestPositionAt(t *testing.T) {
	tr := New(3)
	_, ok := tr.PositionAt(model.Red, 0)
	assert.False(t, ok)

	tr.Positions[model.Red][1] = []model.Position{{X: 1, Y: 2}, {X: 2, Y: 2}}
	pos, ok := tr.PositionAt(model.Red, 1)
	require.True(t, ok)
	assert.Equal(t, model.Position{X: 2, Y: 2}, pos)
}
