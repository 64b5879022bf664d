// Package scene replays a reconstructed trial onto a visual canvas one
// tick at a time. The view caches the primitives it adds and removes
// per tick, so scrubbing forward into a visited tick replays the cached
// diff and scrubbing backward reverses the next tick's diff. Only the
// first visit to a tick derives anything from trial state.
package scene

import (
	"sort"

	"github.com/tomcat-viz/trialviz/internal/model"
)

// Kind discriminates visual primitives.
type Kind int

const (
	KindWall Kind = iota
	KindDoor
	KindPlayer
	KindMarker
	KindRubble
	KindVictim
	KindThreatPlate
	KindVictimSignal
	// KindInconsistency flags a removal or rescue that referenced a
	// cell with nothing on it. Playback never halts on bad state, it
	// draws the discrepancy instead.
	KindInconsistency
)

// Primitive is one drawable unit. Fields beyond Kind and Pos are only
// meaningful for the matching kind.
type Primitive struct {
	Kind   Kind              `json:"kind"`
	Pos    model.Position    `json:"pos"`
	Player model.PlayerColor `json:"player,omitempty"`
	Marker model.MarkerType  `json:"marker,omitempty"`
	Victim model.VictimType  `json:"victim,omitempty"`
}

// Handle identifies a created primitive for later show/hide calls.
type Handle int

// Canvas is the mutable display the view drives. Draw creates a
// primitive in the visible state; Show and Hide toggle an existing one.
type Canvas interface {
	Draw(p Primitive) Handle
	Show(h Handle)
	Hide(h Handle)
	SetPath(player model.PlayerColor, points []model.Position)
}

// MemCanvas is an in-memory Canvas. It backs the tests and the frame
// encoder of the playback stream server.
type MemCanvas struct {
	prims   map[Handle]Primitive
	visible map[Handle]bool
	paths   [model.NumPlayers][]model.Position
	next    Handle
}

func NewMemCanvas() *MemCanvas {
	return &MemCanvas{
		prims:   make(map[Handle]Primitive),
		visible: make(map[Handle]bool),
	}
}

func (c *MemCanvas) Draw(p Primitive) Handle {
	h := c.next
	c.next++
	c.prims[h] = p
	c.visible[h] = true
	return h
}

func (c *MemCanvas) Show(h Handle) { c.visible[h] = true }
func (c *MemCanvas) Hide(h Handle) { delete(c.visible, h) }

func (c *MemCanvas) SetPath(player model.PlayerColor, points []model.Position) {
	c.paths[player] = append(c.paths[player][:0], points...)
}

// Path returns the current trajectory of a player.
func (c *MemCanvas) Path(player model.PlayerColor) []model.Position {
	return c.paths[player]
}

// Visible returns the currently shown primitives in a deterministic
// order.
func (c *MemCanvas) Visible() []Primitive {
	handles := make([]Handle, 0, len(c.visible))
	for h := range c.visible {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	out := make([]Primitive, len(handles))
	for i, h := range handles {
		out[i] = c.prims[h]
	}
	return out
}

// VisibleCount returns how many primitives are currently shown.
func (c *MemCanvas) VisibleCount() int { return len(c.visible) }
