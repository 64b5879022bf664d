package trial

import (
	"sort"

	"github.com/tomcat-viz/trialviz/internal/model"
)

// MarkerSet is a value-equality set of markers. The reconstructor relies
// on set membership to cancel a place/remove pair that happens inside a
// single tick.
type MarkerSet map[model.Marker]struct{}

func NewMarkerSet(markers ...model.Marker) MarkerSet {
	s := make(MarkerSet, len(markers))
	for _, m := range markers {
		s[m] = struct{}{}
	}
	return s
}

func (s MarkerSet) Add(m model.Marker)      { s[m] = struct{}{} }
func (s MarkerSet) Discard(m model.Marker)  { delete(s, m) }
func (s MarkerSet) Has(m model.Marker) bool { _, ok := s[m]; return ok }

// Clone returns an independent copy.
func (s MarkerSet) Clone() MarkerSet {
	c := make(MarkerSet, len(s))
	for m := range s {
		c[m] = struct{}{}
	}
	return c
}

// Sorted returns the markers ordered by type then position, for
// deterministic serialization.
func (s MarkerSet) Sorted() []model.Marker {
	out := make([]model.Marker, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return lessPos(out[i].Pos, out[j].Pos)
	})
	return out
}

// VictimSet is a value-equality set of victims.
type VictimSet map[model.Victim]struct{}

func NewVictimSet(victims ...model.Victim) VictimSet {
	s := make(VictimSet, len(victims))
	for _, v := range victims {
		s[v] = struct{}{}
	}
	return s
}

func (s VictimSet) Add(v model.Victim)      { s[v] = struct{}{} }
func (s VictimSet) Discard(v model.Victim)  { delete(s, v) }
func (s VictimSet) Has(v model.Victim) bool { _, ok := s[v]; return ok }

func (s VictimSet) Clone() VictimSet {
	c := make(VictimSet, len(s))
	for v := range s {
		c[v] = struct{}{}
	}
	return c
}

func (s VictimSet) Sorted() []model.Victim {
	out := make([]model.Victim, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return lessPos(out[i].Pos, out[j].Pos)
	})
	return out
}

// RubbleDelta is the signed per-position rubble change for one tick:
// negative for destroyed blocks, positive stack counts for collapses.
type RubbleDelta map[model.Position]int

func (d RubbleDelta) Clone() RubbleDelta {
	c := make(RubbleDelta, len(d))
	for p, n := range d {
		c[p] = n
	}
	return c
}

func lessPos(a, b model.Position) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}

// sortedChat orders chat messages for deterministic serialization.
func sortedChat(s model.ChatSet) []model.ChatMessage {
	out := s.Values()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sender != out[j].Sender {
			return out[i].Sender < out[j].Sender
		}
		if out[i].Addressee != out[j].Addressee {
			return out[i].Addressee < out[j].Addressee
		}
		return out[i].Text < out[j].Text
	})
	return out
}
