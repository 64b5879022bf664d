package trial

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/tomcat-viz/trialviz/internal/gamemap"
	"github.com/tomcat-viz/trialviz/internal/model"
)

// snapshotVersion is bumped whenever the snapshot layout changes.
const snapshotVersion = 1

// snapshotFile is the on-disk layout: the Trial with every set flattened
// to a sorted array so the output is deterministic and diffable.
type snapshotFile struct {
	Version   int          `json:"version"`
	TimeSteps int          `json:"timeSteps"`
	Map       *gamemap.Map `json:"map"`
	Metadata  Metadata     `json:"metadata"`

	VictimList            []model.Victim   `json:"victimList"`
	RubbleList            []model.Position `json:"rubbleList"`
	ThreatPlateList       []model.Position `json:"threatPlateList"`
	VictimSignalPlateList []model.Position `json:"victimSignalPlateList"`

	Scores          []int            `json:"scores"`
	PlacedMarkers   [][]model.Marker `json:"placedMarkers"`
	RemovedMarkers  [][]model.Marker `json:"removedMarkers"`
	RubbleCounts    [][]rubbleEntry  `json:"rubbleCounts"`
	ActiveBlackout  []bool           `json:"activeBlackout"`
	SavedVictims    [][]model.Victim `json:"savedVictims"`
	PickedUpVictims [][]model.Victim `json:"pickedUpVictims"`
	PlacedVictims   [][]model.Victim `json:"placedVictims"`

	Positions     [model.NumPlayers][][]model.Position    `json:"positions"`
	Yaws          [model.NumPlayers][]float64             `json:"yaws"`
	Actions       [model.NumPlayers][]model.Action        `json:"actions"`
	EquippedItems [model.NumPlayers][]model.EquippedItem  `json:"equippedItems"`
	Chat          [model.NumPlayers][][]model.ChatMessage `json:"chat"`
	Speech        [model.NumPlayers][][]string            `json:"speech"`
}

type rubbleEntry struct {
	Pos   model.Position `json:"pos"`
	Count int            `json:"count"`
}

// Save writes the trial as a gzip-compressed JSON snapshot, creating
// parent directories as needed. Loading the file back reproduces a
// value-equal Trial without re-parsing the message log.
func (t *Trial) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating snapshot directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}
	defer f.Close()

	if err := t.WriteTo(f); err != nil {
		return err
	}
	return f.Close()
}

// WriteTo streams the gzip JSON snapshot to w.
func (t *Trial) WriteTo(w io.Writer) error {
	gz := gzip.NewWriter(w)
	enc := json.NewEncoder(gz)
	if err := enc.Encode(t.toSnapshot()); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("flushing snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot produced by Save.
func Load(path string) (*Trial, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot file: %w", err)
	}
	defer f.Close()
	return ReadFrom(f)
}

// ReadFrom decodes a gzip JSON snapshot from r.
func ReadFrom(r io.Reader) (*Trial, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot stream: %w", err)
	}
	defer gz.Close()

	var sf snapshotFile
	if err := json.NewDecoder(gz).Decode(&sf); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if sf.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", sf.Version)
	}
	return sf.toTrial(), nil
}

func (t *Trial) toSnapshot() snapshotFile {
	sf := snapshotFile{
		Version:   snapshotVersion,
		TimeSteps: t.TimeSteps,
		Map:       t.Map,
		Metadata:  t.Metadata,

		VictimList:            t.VictimList,
		RubbleList:            t.RubbleList,
		ThreatPlateList:       t.ThreatPlateList,
		VictimSignalPlateList: t.VictimSignalPlateList,

		Scores:         t.Scores,
		ActiveBlackout: t.ActiveBlackout,

		Positions:     t.Positions,
		Yaws:          t.Yaws,
		Actions:       t.Actions,
		EquippedItems: t.EquippedItems,
		Speech:        t.Speech,
	}

	sf.PlacedMarkers = make([][]model.Marker, t.TimeSteps)
	sf.RemovedMarkers = make([][]model.Marker, t.TimeSteps)
	sf.RubbleCounts = make([][]rubbleEntry, t.TimeSteps)
	sf.SavedVictims = make([][]model.Victim, t.TimeSteps)
	sf.PickedUpVictims = make([][]model.Victim, t.TimeSteps)
	sf.PlacedVictims = make([][]model.Victim, t.TimeSteps)
	for i := 0; i < t.TimeSteps; i++ {
		sf.PlacedMarkers[i] = t.PlacedMarkers[i].Sorted()
		sf.RemovedMarkers[i] = t.RemovedMarkers[i].Sorted()
		sf.RubbleCounts[i] = sortedRubble(t.RubbleCounts[i])
		sf.SavedVictims[i] = t.SavedVictims[i].Sorted()
		sf.PickedUpVictims[i] = t.PickedUpVictims[i].Sorted()
		sf.PlacedVictims[i] = t.PlacedVictims[i].Sorted()
	}
	for p := 0; p < model.NumPlayers; p++ {
		sf.Chat[p] = make([][]model.ChatMessage, t.TimeSteps)
		for i := 0; i < t.TimeSteps; i++ {
			sf.Chat[p][i] = sortedChat(t.ChatMessages[p][i])
		}
	}
	return sf
}

func (sf *snapshotFile) toTrial() *Trial {
	t := New(sf.TimeSteps)
	t.Map = sf.Map
	t.Metadata = sf.Metadata
	t.VictimList = sf.VictimList
	t.RubbleList = sf.RubbleList
	t.ThreatPlateList = sf.ThreatPlateList
	t.VictimSignalPlateList = sf.VictimSignalPlateList

	copy(t.Scores, sf.Scores)
	copy(t.ActiveBlackout, sf.ActiveBlackout)

	for i := 0; i < t.TimeSteps && i < len(sf.PlacedMarkers); i++ {
		t.PlacedMarkers[i] = NewMarkerSet(sf.PlacedMarkers[i]...)
	}
	for i := 0; i < t.TimeSteps && i < len(sf.RemovedMarkers); i++ {
		t.RemovedMarkers[i] = NewMarkerSet(sf.RemovedMarkers[i]...)
	}
	for i := 0; i < t.TimeSteps && i < len(sf.RubbleCounts); i++ {
		for _, e := range sf.RubbleCounts[i] {
			t.RubbleCounts[i][e.Pos] = e.Count
		}
	}
	for i := 0; i < t.TimeSteps && i < len(sf.SavedVictims); i++ {
		t.SavedVictims[i] = NewVictimSet(sf.SavedVictims[i]...)
	}
	for i := 0; i < t.TimeSteps && i < len(sf.PickedUpVictims); i++ {
		t.PickedUpVictims[i] = NewVictimSet(sf.PickedUpVictims[i]...)
	}
	for i := 0; i < t.TimeSteps && i < len(sf.PlacedVictims); i++ {
		t.PlacedVictims[i] = NewVictimSet(sf.PlacedVictims[i]...)
	}

	for p := 0; p < model.NumPlayers; p++ {
		for i := 0; i < t.TimeSteps && i < len(sf.Positions[p]); i++ {
			if sf.Positions[p][i] != nil {
				t.Positions[p][i] = sf.Positions[p][i]
			}
		}
		copy(t.Yaws[p], sf.Yaws[p])
		copy(t.Actions[p], sf.Actions[p])
		copy(t.EquippedItems[p], sf.EquippedItems[p])
		for i := 0; i < t.TimeSteps && i < len(sf.Chat[p]); i++ {
			for _, m := range sf.Chat[p][i] {
				t.ChatMessages[p][i].Add(m)
			}
		}
		for i := 0; i < t.TimeSteps && i < len(sf.Speech[p]); i++ {
			if sf.Speech[p][i] != nil {
				t.Speech[p][i] = sf.Speech[p][i]
			}
		}
	}
	return t
}

func sortedRubble(d RubbleDelta) []rubbleEntry {
	out := make([]rubbleEntry, 0, len(d))
	for p, n := range d {
		out = append(out, rubbleEntry{Pos: p, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return lessPos(out[i].Pos, out[j].Pos) })
	return out
}
