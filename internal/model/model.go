// Package model holds the value types shared by the trial parser, the
// scene diff engine and the storage backends. All of them are comparable
// structs: cancellation logic (a marker placed and removed within the
// same tick, a victim picked up and placed back) is implemented as set
// membership, so equality must be by semantic field, never by identity.
package model

import "fmt"

// Position is a map-local grid cell. World coordinates are translated by
// subtracting the map minima at ingestion time, so a Position is always
// grid-local.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Marker is a placed map annotation. Comparable so that a place/remove
// pair inside one tick annihilates via set difference.
type Marker struct {
	Type MarkerType `json:"type"`
	Pos  Position   `json:"pos"`
}

func (m Marker) String() string {
	return fmt.Sprintf("%s@%s", m.Type, m.Pos)
}

// Victim is a victim block on the map. A rescued victim is a new value
// with a Safe* type at the same position, not a mutation, which keeps
// the pickup/place cancellation logic identical to markers.
type Victim struct {
	Type VictimType `json:"type"`
	Pos  Position   `json:"pos"`
}

func (v Victim) String() string {
	return fmt.Sprintf("%s@%s", v.Type, v.Pos)
}

// Saved returns the safe counterpart of the victim, as created by a
// successful triage.
func (v Victim) Saved() Victim {
	return Victim{Type: v.Type.Saved(), Pos: v.Pos}
}

// ChatMessage is one delivered chat line. The per-tick chat storage is a
// set keyed on sender/addressee/text only: identical broadcast fan-out
// must collapse, and the display color is presentation data that takes
// no part in identity.
type ChatMessage struct {
	Sender    string `json:"sender"`
	Addressee string `json:"addressee"`
	Color     string `json:"color"`
	Text      string `json:"text"`
}

// Key returns the identity of the message for deduplication.
func (c ChatMessage) Key() ChatKey {
	return ChatKey{Sender: c.Sender, Addressee: c.Addressee, Text: c.Text}
}

// ChatKey is the comparable identity of a ChatMessage, excluding color.
type ChatKey struct {
	Sender    string
	Addressee string
	Text      string
}

// ChatSet is a color-insensitive set of chat messages.
type ChatSet map[ChatKey]ChatMessage

// Add inserts the message unless an identical one (ignoring color) is
// already present. The first delivery wins.
func (s ChatSet) Add(m ChatMessage) {
	k := m.Key()
	if _, ok := s[k]; !ok {
		s[k] = m
	}
}

// Values returns the messages in unspecified order.
func (s ChatSet) Values() []ChatMessage {
	out := make([]ChatMessage, 0, len(s))
	for _, m := range s {
		out = append(out, m)
	}
	return out
}
