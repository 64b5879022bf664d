package scene

import (
	"fmt"
	"log/slog"

	"github.com/tomcat-viz/trialviz/internal/gamemap"
	"github.com/tomcat-viz/trialviz/internal/model"
	"github.com/tomcat-viz/trialviz/internal/trial"
)

// View drives a Canvas through the ticks of a reconstructed trial.
//
// Per visual category it keeps tick-indexed lists of the handles added
// and removed on first visit. Moving forward into a visited tick
// replays those lists, moving backward reverses the next tick's lists,
// so a single-tick step is O(changes in that tick) regardless of how
// often it is revisited.
type View struct {
	trial  *trial.Trial
	canvas Canvas
	logger *slog.Logger

	last int
	max  int

	addedPlayer   [][]Handle
	removedPlayer [][]Handle
	addedBlock    [][]Handle
	removedBlock  [][]Handle

	// Trajectories only grow forward and truncate backward, so one
	// accumulated point list per player plus a per-tick prefix length
	// replaces a cache of segments.
	points  [model.NumPlayers][]model.Position
	pathLen [model.NumPlayers][]int

	// Live display state at the highest visited tick. Consulted only
	// when deriving an unvisited tick, never during replay or reversal.
	markerStacks map[model.Position][]Handle
	rubbleCounts map[model.Position]int
	rubbleItems  map[model.Position]Handle
	victimItems  map[model.Position]Handle

	inconsistencies int
}

// NewView draws the static map, the ground-truth blocks and the players
// at tick 0, leaving the view positioned there.
func NewView(t *trial.Trial, canvas Canvas, logger *slog.Logger) (*View, error) {
	if t.Map == nil {
		return nil, fmt.Errorf("trial has no map")
	}
	if logger == nil {
		logger = slog.Default()
	}
	v := &View{
		trial:        t,
		canvas:       canvas,
		logger:       logger,
		markerStacks: make(map[model.Position][]Handle),
		rubbleCounts: make(map[model.Position]int),
		rubbleItems:  make(map[model.Position]Handle),
		victimItems:  make(map[model.Position]Handle),
	}

	v.drawGrid()
	v.growCaches(0)
	v.drawGroundTruth()
	v.drawPlayersAt(0)
	v.initTrajectories()

	return v, nil
}

// Tick returns the tick currently shown.
func (v *View) Tick() int { return v.last }

// Inconsistencies returns how many state discrepancies were flagged so
// far.
func (v *View) Inconsistencies() int { return v.inconsistencies }

// AdvanceTo moves the view to the given tick, applying every
// intermediate single-tick step in order.
func (v *View) AdvanceTo(tick int) error {
	if tick < 0 || tick >= v.trial.TimeSteps {
		return fmt.Errorf("tick %d out of range [0, %d)", tick, v.trial.TimeSteps)
	}
	switch {
	case tick > v.last:
		for t := v.last + 1; t <= tick; t++ {
			if t > v.max {
				v.growCaches(t)
				v.visit(t)
				v.max = t
			} else {
				v.replay(t)
			}
		}
	case tick < v.last:
		for t := v.last - 1; t >= tick; t-- {
			v.reverse(t)
		}
	}
	v.last = tick
	return nil
}

func (v *View) growCaches(tick int) {
	for len(v.addedPlayer) <= tick {
		v.addedPlayer = append(v.addedPlayer, nil)
		v.removedPlayer = append(v.removedPlayer, nil)
		v.addedBlock = append(v.addedBlock, nil)
		v.removedBlock = append(v.removedBlock, nil)
	}
}

// drawGrid renders walls and doors. They never change, so they bypass
// the tick caches.
func (v *View) drawGrid() {
	m := v.trial.Map
	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			pos := model.Position{X: x, Y: y}
			switch m.At(pos) {
			case gamemap.Wall:
				v.canvas.Draw(Primitive{Kind: KindWall, Pos: pos})
			case gamemap.Door:
				v.canvas.Draw(Primitive{Kind: KindDoor, Pos: pos})
			}
		}
	}
}

// drawGroundTruth places the one-shot victim, rubble and plate lists as
// the tick-0 baseline.
func (v *View) drawGroundTruth() {
	for _, victim := range v.trial.VictimList {
		h := v.canvas.Draw(Primitive{Kind: KindVictim, Pos: victim.Pos, Victim: victim.Type})
		v.victimItems[victim.Pos] = h
		v.addedBlock[0] = append(v.addedBlock[0], h)
	}
	for _, pos := range v.trial.RubbleList {
		if v.rubbleCounts[pos] > 0 {
			// Stacked rubble renders once with a counter.
			v.rubbleCounts[pos]++
			continue
		}
		h := v.canvas.Draw(Primitive{Kind: KindRubble, Pos: pos})
		v.rubbleCounts[pos] = 1
		v.rubbleItems[pos] = h
		v.addedBlock[0] = append(v.addedBlock[0], h)
	}
	for _, pos := range v.trial.ThreatPlateList {
		h := v.canvas.Draw(Primitive{Kind: KindThreatPlate, Pos: pos})
		v.addedBlock[0] = append(v.addedBlock[0], h)
	}
	for _, pos := range v.trial.VictimSignalPlateList {
		h := v.canvas.Draw(Primitive{Kind: KindVictimSignal, Pos: pos})
		v.addedBlock[0] = append(v.addedBlock[0], h)
	}
}

func (v *View) initTrajectories() {
	for p := 0; p < model.NumPlayers; p++ {
		player := model.PlayerColor(p)
		if pos, ok := v.trial.PositionAt(player, 0); ok {
			v.points[p] = append(v.points[p], pos)
		}
		v.pathLen[p] = append(v.pathLen[p], len(v.points[p]))
		v.canvas.SetPath(player, v.points[p])
	}
}

// visit derives an unvisited tick from trial state, recording every
// add and remove into the tick's caches.
func (v *View) visit(tick int) {
	v.extendTrajectories(tick)
	v.drawPlayersAt(tick)
	v.applyMarkers(tick)
	v.applyRubble(tick)
	v.applyVictims(tick)
}

func (v *View) replay(tick int) {
	for p := 0; p < model.NumPlayers; p++ {
		v.canvas.SetPath(model.PlayerColor(p), v.points[p][:v.pathLen[p][tick]])
	}
	for _, h := range v.removedPlayer[tick] {
		v.canvas.Hide(h)
	}
	for _, h := range v.addedPlayer[tick] {
		v.canvas.Show(h)
	}
	for _, h := range v.removedBlock[tick] {
		v.canvas.Hide(h)
	}
	for _, h := range v.addedBlock[tick] {
		v.canvas.Show(h)
	}
}

// reverse undoes tick+1, landing on tick.
func (v *View) reverse(tick int) {
	next := tick + 1
	for p := 0; p < model.NumPlayers; p++ {
		v.canvas.SetPath(model.PlayerColor(p), v.points[p][:v.pathLen[p][tick]])
	}
	for _, h := range v.addedPlayer[next] {
		v.canvas.Hide(h)
	}
	for _, h := range v.removedPlayer[next] {
		v.canvas.Show(h)
	}
	for _, h := range v.addedBlock[next] {
		v.canvas.Hide(h)
	}
	for _, h := range v.removedBlock[next] {
		v.canvas.Show(h)
	}
}

func (v *View) extendTrajectories(tick int) {
	for p := 0; p < model.NumPlayers; p++ {
		player := model.PlayerColor(p)
		if pos, ok := v.trial.PositionAt(player, tick); ok {
			v.points[p] = append(v.points[p], pos)
		}
		v.pathLen[p] = append(v.pathLen[p], len(v.points[p]))
		v.canvas.SetPath(player, v.points[p])
	}
}

func (v *View) drawPlayersAt(tick int) {
	if tick >= 1 {
		for _, h := range v.addedPlayer[tick-1] {
			v.canvas.Hide(h)
			v.removedPlayer[tick] = append(v.removedPlayer[tick], h)
		}
	}
	for p := 0; p < model.NumPlayers; p++ {
		player := model.PlayerColor(p)
		pos, ok := v.trial.PositionAt(player, tick)
		if !ok {
			continue
		}
		h := v.canvas.Draw(Primitive{Kind: KindPlayer, Pos: pos, Player: player})
		v.addedPlayer[tick] = append(v.addedPlayer[tick], h)
	}
}

// applyMarkers erases the tick's removed markers, then draws its
// placements. A placement on an occupied cell stacks a new primitive on
// top; a removal pops the top of the stack, sidestepping marker
// identity ambiguity.
func (v *View) applyMarkers(tick int) {
	for _, marker := range v.trial.RemovedMarkers[tick].Sorted() {
		stack := v.markerStacks[marker.Pos]
		if len(stack) == 0 {
			v.flagInconsistency(tick, marker.Pos, fmt.Sprintf("marker %s not found", marker))
			continue
		}
		top := stack[len(stack)-1]
		v.canvas.Hide(top)
		v.removedBlock[tick] = append(v.removedBlock[tick], top)
		if len(stack) == 1 {
			delete(v.markerStacks, marker.Pos)
		} else {
			v.markerStacks[marker.Pos] = stack[:len(stack)-1]
		}
	}
	for _, marker := range v.trial.PlacedMarkers[tick].Sorted() {
		h := v.canvas.Draw(Primitive{Kind: KindMarker, Pos: marker.Pos, Marker: marker.Type})
		v.markerStacks[marker.Pos] = append(v.markerStacks[marker.Pos], h)
		v.addedBlock[tick] = append(v.addedBlock[tick], h)
	}
}

// applyRubble folds the tick's signed deltas into the running counts.
// The primitive exists while the count is non-zero. A destroy delta for
// a cell with no rubble is a known log inconsistency; the row is
// created with the negative count so later collapses still balance.
func (v *View) applyRubble(tick int) {
	for pos, delta := range v.trial.RubbleCounts[tick] {
		if _, ok := v.rubbleCounts[pos]; ok {
			v.rubbleCounts[pos] += delta
			if v.rubbleCounts[pos] == 0 {
				if h, ok := v.rubbleItems[pos]; ok {
					v.canvas.Hide(h)
					v.removedBlock[tick] = append(v.removedBlock[tick], h)
					delete(v.rubbleItems, pos)
				}
				delete(v.rubbleCounts, pos)
			}
			continue
		}
		if delta > 0 {
			v.rubbleCounts[pos] = delta
			h := v.canvas.Draw(Primitive{Kind: KindRubble, Pos: pos})
			v.rubbleItems[pos] = h
			v.addedBlock[tick] = append(v.addedBlock[tick], h)
		} else {
			v.flagInconsistency(tick, pos, fmt.Sprintf("rubble destroyed at %s with none present", pos))
			v.rubbleCounts[pos] = delta
		}
	}
}

func (v *View) applyVictims(tick int) {
	v.applySavedVictims(tick)
	v.applyPickedUpVictims(tick)
	v.applyPlacedVictims(tick)
}

func (v *View) applySavedVictims(tick int) {
	for _, victim := range v.trial.SavedVictims[tick].Sorted() {
		// A victim saved and immediately picked up in the same tick
		// must not be redrawn as safe just to vanish again.
		if v.trial.PickedUpVictims[tick].Has(victim.Saved()) {
			continue
		}
		h, ok := v.victimItems[victim.Pos]
		if !ok {
			v.flagInconsistency(tick, victim.Pos, fmt.Sprintf("rescued victim %s not found", victim))
			continue
		}
		v.canvas.Hide(h)
		v.removedBlock[tick] = append(v.removedBlock[tick], h)

		safe := victim.Saved()
		nh := v.canvas.Draw(Primitive{Kind: KindVictim, Pos: safe.Pos, Victim: safe.Type})
		v.victimItems[safe.Pos] = nh
		v.addedBlock[tick] = append(v.addedBlock[tick], nh)
	}
}

func (v *View) applyPickedUpVictims(tick int) {
	for _, victim := range v.trial.PickedUpVictims[tick].Sorted() {
		h, ok := v.victimItems[victim.Pos]
		if !ok {
			v.flagInconsistency(tick, victim.Pos, fmt.Sprintf("picked up victim %s not found", victim))
			continue
		}
		v.canvas.Hide(h)
		v.removedBlock[tick] = append(v.removedBlock[tick], h)
		delete(v.victimItems, victim.Pos)
	}
}

func (v *View) applyPlacedVictims(tick int) {
	for _, victim := range v.trial.PlacedVictims[tick].Sorted() {
		h := v.canvas.Draw(Primitive{Kind: KindVictim, Pos: victim.Pos, Victim: victim.Type})
		v.victimItems[victim.Pos] = h
		v.addedBlock[tick] = append(v.addedBlock[tick], h)
	}
}

// flagInconsistency draws a visible discrepancy marker at the offending
// cell instead of failing playback.
func (v *View) flagInconsistency(tick int, pos model.Position, detail string) {
	v.inconsistencies++
	v.logger.Warn("Scene inconsistency", "tick", tick, "detail", detail)
	h := v.canvas.Draw(Primitive{Kind: KindInconsistency, Pos: pos})
	v.addedBlock[tick] = append(v.addedBlock[tick], h)
}
