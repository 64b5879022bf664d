package gormdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomcat-viz/trialviz/internal/database"
	"github.com/tomcat-viz/trialviz/internal/model"
	"github.com/tomcat-viz/trialviz/internal/trial"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()

	db, err := database.GetSqliteDB(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)

	b := New(db, zerolog.Nop())
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })
	return b
}

func newTestTrial(trialNumber string, timeSteps, finalScore int) *trial.Trial {
	tr := trial.New(timeSteps)
	tr.Metadata.TrialNumber = trialNumber
	tr.Metadata.TeamNumber = "TM0001"
	tr.Metadata.MapBlockFilename = "Saturn_A"
	tr.Metadata.Roles[model.Red] = model.Medic
	if timeSteps > 0 {
		tr.Scores[timeSteps-1] = finalScore
		tr.ActiveBlackout[timeSteps-1] = true
		tr.Positions[model.Red][0] = []model.Position{{X: 5, Y: 15}}
		tr.PlacedMarkers[0].Add(model.Marker{Type: model.MarkerSOS, Pos: model.Position{X: 2, Y: 3}})
	}
	return tr
}

func TestArchiveAndList(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.ArchiveTrial(ctx, newTestTrial("000123", 5, 300)))
	require.NoError(t, b.ArchiveTrial(ctx, newTestTrial("000124", 8, 450)))

	list, err := b.ListTrials(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "000124", list[0].TrialNumber, "most recent first")
	assert.Equal(t, 450, list[0].FinalScore)
	assert.Equal(t, 8, list[0].TimeSteps)
}

func TestGetTrialMetadata(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.ArchiveTrial(ctx, newTestTrial("000123", 5, 300)))

	md, err := b.GetTrialMetadata(ctx, "000123")
	require.NoError(t, err)
	assert.Equal(t, "TM0001", md.TeamNumber)
	assert.Equal(t, model.Medic, md.Roles[model.Red])

	_, err = b.GetTrialMetadata(ctx, "000999")
	assert.Error(t, err)
}

func TestRearchiveReplaces(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.ArchiveTrial(ctx, newTestTrial("000123", 5, 300)))
	require.NoError(t, b.ArchiveTrial(ctx, newTestTrial("000123", 5, 500)))

	list, err := b.ListTrials(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 500, list[0].FinalScore)

	var ticks []TickRecord
	require.NoError(t, b.db.Find(&ticks).Error)
	assert.Len(t, ticks, 5, "old tick rows should be gone")
}

func TestTickRecords(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.ArchiveTrial(ctx, newTestTrial("000123", 3, 120)))

	var ticks []TickRecord
	require.NoError(t, b.db.Order("tick").Find(&ticks).Error)
	require.Len(t, ticks, 3)

	assert.Equal(t, 0, ticks[0].Score)
	assert.False(t, ticks[0].Blackout)
	assert.Contains(t, string(ticks[0].Payload), "placedMarkers")

	assert.Equal(t, 120, ticks[2].Score)
	assert.True(t, ticks[2].Blackout)
}

func TestEmptyList(t *testing.T) {
	b := newTestBackend(t)

	list, err := b.ListTrials(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
