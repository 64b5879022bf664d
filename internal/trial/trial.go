// Package trial defines the reconstructed trial aggregate: every
// tracked quantity as a time-indexed sequence with exactly TimeSteps
// entries, plus the one-shot ground truth and trial metadata. A Trial is
// append-only while the parser builds it and read-only afterwards, so
// the map view, chat view and header view can share one instance.
package trial

import (
	"github.com/tomcat-viz/trialviz/internal/gamemap"
	"github.com/tomcat-viz/trialviz/internal/model"
)

// DefaultTimeSteps is the standard mission length in seconds.
const DefaultTimeSteps = 900

// Metadata is filled once from the trial-start and role-selected
// events.
type Metadata struct {
	TrialNumber      string                       `json:"trialNumber"`
	TeamNumber       string                       `json:"teamNumber"`
	MapBlockFilename string                       `json:"mapBlockFilename"`
	PlayerIDs        []string                     `json:"playerIds"`
	IDs              [model.NumPlayers]string     `json:"ids"`
	Roles            [model.NumPlayers]model.Role `json:"roles"`
}

// Trial holds the full reconstructed state of one mission. Index t of
// every sequence represents the state changes that became visible by the
// end of mission-second t.
type Trial struct {
	TimeSteps int
	Map       *gamemap.Map
	Metadata  Metadata

	// Ground truth, translated to grid-local coordinates.
	VictimList            []model.Victim
	RubbleList            []model.Position
	ThreatPlateList       []model.Position
	VictimSignalPlateList []model.Position

	// Team-wide sequences.
	Scores          []int
	PlacedMarkers   []MarkerSet
	RemovedMarkers  []MarkerSet
	RubbleCounts    []RubbleDelta
	ActiveBlackout  []bool
	SavedVictims    []VictimSet
	PickedUpVictims []VictimSet
	PlacedVictims   []VictimSet

	// Per-player sequences, indexed by model.PlayerColor.
	Positions     [model.NumPlayers][][]model.Position
	Yaws          [model.NumPlayers][]float64
	Actions       [model.NumPlayers][]model.Action
	EquippedItems [model.NumPlayers][]model.EquippedItem
	ChatMessages  [model.NumPlayers][]model.ChatSet
	Speech        [model.NumPlayers][][]string
}

// New allocates a Trial with every sequence already at its full
// TimeSteps length, zero-initialized. The parser writes snapshots by
// index, and ticks past an early mission stop keep their defaults.
func New(timeSteps int) *Trial {
	if timeSteps <= 0 {
		timeSteps = DefaultTimeSteps
	}

	t := &Trial{
		TimeSteps:       timeSteps,
		Scores:          make([]int, timeSteps),
		PlacedMarkers:   make([]MarkerSet, timeSteps),
		RemovedMarkers:  make([]MarkerSet, timeSteps),
		RubbleCounts:    make([]RubbleDelta, timeSteps),
		ActiveBlackout:  make([]bool, timeSteps),
		SavedVictims:    make([]VictimSet, timeSteps),
		PickedUpVictims: make([]VictimSet, timeSteps),
		PlacedVictims:   make([]VictimSet, timeSteps),
	}
	for i := 0; i < timeSteps; i++ {
		t.PlacedMarkers[i] = NewMarkerSet()
		t.RemovedMarkers[i] = NewMarkerSet()
		t.RubbleCounts[i] = make(RubbleDelta)
		t.SavedVictims[i] = NewVictimSet()
		t.PickedUpVictims[i] = NewVictimSet()
		t.PlacedVictims[i] = NewVictimSet()
	}
	for p := 0; p < model.NumPlayers; p++ {
		t.Positions[p] = make([][]model.Position, timeSteps)
		t.Yaws[p] = make([]float64, timeSteps)
		t.Actions[p] = make([]model.Action, timeSteps)
		t.EquippedItems[p] = make([]model.EquippedItem, timeSteps)
		t.ChatMessages[p] = make([]model.ChatSet, timeSteps)
		t.Speech[p] = make([][]string, timeSteps)
		for i := 0; i < timeSteps; i++ {
			t.Positions[p][i] = []model.Position{}
			t.ChatMessages[p][i] = make(model.ChatSet)
			t.Speech[p][i] = []string{}
		}
	}
	return t
}

// PositionAt returns the last known position of the player at tick t,
// i.e. the final entry of its per-tick movement list.
func (t *Trial) PositionAt(p model.PlayerColor, tick int) (model.Position, bool) {
	moves := t.Positions[p][tick]
	if len(moves) == 0 {
		return model.Position{}, false
	}
	return moves[len(moves)-1], true
}
