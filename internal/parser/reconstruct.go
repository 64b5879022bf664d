package parser

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tomcat-viz/trialviz/internal/model"
	"github.com/tomcat-viz/trialviz/internal/trial"
)

// accum holds per-tick working state. Some fields reset every tick,
// some reset only when explicitly overwritten, matching the lifetime
// of the fact they track.
type accum struct {
	score     int
	positions [model.NumPlayers][]model.Position
	yaws      [model.NumPlayers]float64
	placed    trial.MarkerSet
	removed   trial.MarkerSet
	chat      [model.NumPlayers]model.ChatSet
	speech    [model.NumPlayers][]string
	actions   [model.NumPlayers]model.Action
	rubble    trial.RubbleDelta
	collapsed map[model.Position]struct{}
	blackout  bool
	saved     trial.VictimSet
	pickedUp  trial.VictimSet
	placedVic trial.VictimSet
	equipped  [model.NumPlayers]model.EquippedItem
}

func newAccum() accum {
	a := accum{
		placed:    trial.MarkerSet{},
		removed:   trial.MarkerSet{},
		rubble:    trial.RubbleDelta{},
		collapsed: map[model.Position]struct{}{},
		saved:     trial.VictimSet{},
		pickedUp:  trial.VictimSet{},
		placedVic: trial.VictimSet{},
	}
	for i := range a.chat {
		a.chat[i] = model.ChatSet{}
	}
	for i := range a.equipped {
		a.equipped[i] = model.ItemHammer
	}
	return a
}

// reconstructor replays the sorted message stream into a Trial. It is
// single-use: one instance per parse.
type reconstructor struct {
	ctx    context.Context
	p      *Parser
	logger *slog.Logger
	t      *trial.Trial
	stats  *Stats

	// participant id or playername to player index
	players map[string]int

	missionStarted bool
	nextTick       int
	acc            accum
}

func newReconstructor(ctx context.Context, p *Parser, t *trial.Trial, stats *Stats) *reconstructor {
	return &reconstructor{
		ctx:     ctx,
		p:       p,
		logger:  p.logger,
		t:       t,
		stats:   stats,
		players: make(map[string]int),
		acc:     newAccum(),
	}
}

// run processes messages in order until the mission stops, the trial
// stops or all ticks are filled.
func (r *reconstructor) run(messages []*Message) {
	for _, m := range messages {
		kind := classify(m)
		if kind == eventUnknown {
			r.stats.UnknownKinds++
			continue
		}
		r.stats.ProcessedMessages++
		r.p.countEvent(r.ctx, kind)

		if halt := r.handle(m, kind); halt {
			return
		}
		if r.nextTick >= r.t.TimeSteps {
			return
		}
	}
}

// handle dispatches one message. Phase-independent events run first;
// everything else requires the mission to have started. The returned
// bool requests a halt.
func (r *reconstructor) handle(m *Message, kind eventKind) bool {
	switch kind {
	case eventMissionState:
		return r.onMissionState(m)
	case eventTrialStart:
		r.onTrialStart(m)
		return false
	case eventTrialStop:
		return true
	case eventRoleSelected:
		r.onRoleSelected(m)
		return false
	case eventPlayerState:
		r.onPlayerState(m)
		return false
	case eventItemEquipped:
		r.onItemEquipped(m)
		return false
	}

	if !r.missionStarted {
		return false
	}

	switch kind {
	case eventScoreboard:
		r.onScoreboard(m)
	case eventMarkerPlaced:
		r.onMarker(m, true)
	case eventMarkerRemoved:
		r.onMarker(m, false)
	case eventChat:
		r.onChat(m)
	case eventVictimPickedUp:
		r.onVictimPickedUp(m)
	case eventVictimPlaced:
		r.onVictimPlaced(m)
	case eventTriage:
		r.onTriage(m)
	case eventToolUsed:
		r.onToolUsed(m)
	case eventRubbleDestroyed:
		r.onRubbleDestroyed(m)
	case eventPerturbation:
		r.onPerturbation(m)
	case eventRubbleCollapse:
		r.onRubbleCollapse(m)
	case eventTranscription:
		r.onTranscription(m)
	case eventInterventionChat:
		r.onInterventionChat(m)
	}
	return false
}

// playerIndex resolves a participant id or playername. Events for ids
// never announced in the trial start message are skipped.
func (r *reconstructor) playerIndex(id string) (int, bool) {
	idx, ok := r.players[id]
	if !ok {
		r.stats.UnknownParticipants++
		r.p.unknownParts.Add(r.ctx, 1)
		r.logger.Warn("Skipping event for unknown participant", "participantId", id)
	}
	return idx, ok
}

func (r *reconstructor) decode(m *Message, kind eventKind, dst any) bool {
	if err := m.DecodeData(dst); err != nil {
		r.logger.Warn("Skipping undecodable event", "kind", kind.String(), "error", err)
		return false
	}
	return true
}

func (r *reconstructor) translate(x, z float64) model.Position {
	return translate(r.t.Map, x, z)
}

func (r *reconstructor) onMissionState(m *Message) bool {
	var data struct {
		MissionState string `json:"mission_state"`
	}
	if !r.decode(m, eventMissionState, &data) {
		return false
	}
	if strings.EqualFold(data.MissionState, "start") {
		r.missionStarted = true
		return false
	}
	// Mission finished. Nothing else to replay.
	return true
}

func (r *reconstructor) onTrialStart(m *Message) {
	var data struct {
		MapBlockFilename string   `json:"map_block_filename"`
		TrialNumber      string   `json:"trial_number"`
		Name             string   `json:"name"`
		Subjects         []string `json:"subjects"`
		ClientInfo       []struct {
			Callsign      string `json:"callsign"`
			ParticipantID string `json:"participant_id"`
			PlayerName    string `json:"playername"`
		} `json:"client_info"`
	}
	if !r.decode(m, eventTrialStart, &data) {
		return
	}

	md := &r.t.Metadata
	md.MapBlockFilename = data.MapBlockFilename
	md.TrialNumber = data.TrialNumber
	if i := strings.Index(data.Name, "_"); i >= 0 {
		md.TeamNumber = data.Name[:i]
	} else {
		md.TeamNumber = data.Name
	}
	md.PlayerIDs = md.PlayerIDs[:0]
	for _, id := range data.Subjects {
		md.PlayerIDs = append(md.PlayerIDs, strings.TrimSpace(id))
	}

	for _, info := range data.ClientInfo {
		color, err := model.ParsePlayerColor(info.Callsign)
		if err != nil {
			r.logger.Warn("Skipping client with unknown callsign", "callsign", info.Callsign)
			continue
		}
		idx := int(color)
		r.players[info.ParticipantID] = idx
		// Some messages carry the playername instead of the id.
		r.players[info.PlayerName] = idx
		md.IDs[idx] = info.ParticipantID
	}
}

func (r *reconstructor) onRoleSelected(m *Message) {
	var data struct {
		NewRole       string `json:"new_role"`
		ParticipantID string `json:"participant_id"`
	}
	if !r.decode(m, eventRoleSelected, &data) {
		return
	}
	idx, ok := r.playerIndex(data.ParticipantID)
	if !ok {
		return
	}
	role, err := model.ParseRole(data.NewRole)
	if err != nil {
		r.logger.Warn("Ignoring unknown role", "role", data.NewRole)
		return
	}
	r.t.Metadata.Roles[idx] = role
}

type playerStateData struct {
	ParticipantID string  `json:"participant_id"`
	X             float64 `json:"x"`
	Z             float64 `json:"z"`
	Yaw           float64 `json:"yaw"`
	MissionTimer  string  `json:"mission_timer"`
}

// onPlayerState updates the player's pose in any phase and, once the
// mission is running, drives the clock from the mission timer.
func (r *reconstructor) onPlayerState(m *Message) {
	var data playerStateData
	if !r.decode(m, eventPlayerState, &data) {
		return
	}
	idx, ok := r.playerIndex(data.ParticipantID)
	if !ok {
		return
	}

	pos := r.translate(data.X, data.Z)
	r.acc.yaws[idx] = data.Yaw

	cur := r.acc.positions[idx]
	if len(cur) == 0 || cur[len(cur)-1] != pos {
		r.acc.positions[idx] = append(cur, pos)
	}

	if r.missionStarted {
		if elapsed := elapsedSeconds(data.MissionTimer, r.t.TimeSteps); elapsed >= r.nextTick {
			r.flush(elapsed)
		}
	}
}

func (r *reconstructor) onItemEquipped(m *Message) {
	var data struct {
		ParticipantID    string `json:"participant_id"`
		EquippedItemName string `json:"equippeditemname"`
	}
	if !r.decode(m, eventItemEquipped, &data) {
		return
	}
	idx, ok := r.playerIndex(data.ParticipantID)
	if !ok {
		return
	}
	item, err := model.ParseEquippedItem(data.EquippedItemName)
	if err != nil {
		r.logger.Warn("Ignoring unknown equipped item", "item", data.EquippedItemName)
		return
	}
	r.acc.equipped[idx] = item
}

func (r *reconstructor) onScoreboard(m *Message) {
	var data struct {
		Scoreboard struct {
			TeamScore int `json:"TeamScore"`
		} `json:"scoreboard"`
	}
	if !r.decode(m, eventScoreboard, &data) {
		return
	}
	r.acc.score = data.Scoreboard.TeamScore
}

// onMarker applies a place or remove event, cancelling against the
// opposite set so a place and remove inside the same tick leave no
// trace.
func (r *reconstructor) onMarker(m *Message, place bool) {
	var data struct {
		Type    string  `json:"type"`
		MarkerX float64 `json:"marker_x"`
		MarkerZ float64 `json:"marker_z"`
	}
	kind := eventMarkerRemoved
	if place {
		kind = eventMarkerPlaced
	}
	if !r.decode(m, kind, &data) {
		return
	}
	mt, err := model.ParseMarkerType(data.Type)
	if err != nil {
		r.logger.Warn("Ignoring unknown marker type", "type", data.Type)
		return
	}
	marker := model.Marker{Type: mt, Pos: r.translate(data.MarkerX, data.MarkerZ)}

	if place {
		if r.acc.removed.Has(marker) {
			r.acc.removed.Discard(marker)
		} else {
			r.acc.placed.Add(marker)
		}
	} else {
		if r.acc.placed.Has(marker) {
			r.acc.placed.Discard(marker)
		} else {
			r.acc.removed.Add(marker)
		}
	}
}

func (r *reconstructor) onChat(m *Message) {
	var data struct {
		Sender     string   `json:"sender"`
		Addressees []string `json:"addressees"`
		Text       string   `json:"text"`
	}
	if !r.decode(m, eventChat, &data) {
		return
	}
	// The text field holds the rendered chat component as nested JSON.
	var body struct {
		Color string `json:"color"`
		Text  string `json:"text"`
	}
	if err := json.Unmarshal([]byte(data.Text), &body); err != nil {
		r.logger.Warn("Skipping chat with malformed body", "error", err)
		return
	}
	color := body.Color
	if color == "yellow" {
		color = "orange"
	}
	for _, id := range data.Addressees {
		idx, ok := r.playerIndex(id)
		if !ok {
			continue
		}
		r.acc.chat[idx].Add(model.ChatMessage{
			Sender:    data.Sender,
			Addressee: id,
			Color:     color,
			Text:      body.Text,
		})
	}
}

type victimEventData struct {
	ParticipantID string  `json:"participant_id"`
	VictimX       float64 `json:"victim_x"`
	VictimZ       float64 `json:"victim_z"`
	Type          string  `json:"type"`
}

func (r *reconstructor) victimFrom(data *victimEventData) (model.Victim, bool) {
	vt, err := model.ParseVictimType(data.Type)
	if err != nil {
		r.logger.Warn("Ignoring unknown victim type", "type", data.Type)
		return model.Victim{}, false
	}
	return model.Victim{Type: vt, Pos: r.translate(data.VictimX, data.VictimZ)}, true
}

func (r *reconstructor) onVictimPickedUp(m *Message) {
	var data victimEventData
	if !r.decode(m, eventVictimPickedUp, &data) {
		return
	}
	if idx, ok := r.playerIndex(data.ParticipantID); ok {
		r.acc.actions[idx] = model.ActionCarryingVictim
	}
	victim, ok := r.victimFrom(&data)
	if !ok {
		return
	}
	// A pick-up of a victim placed earlier this tick undoes the place.
	if r.acc.placedVic.Has(victim) {
		r.acc.placedVic.Discard(victim)
	} else {
		r.acc.pickedUp.Add(victim)
	}
}

func (r *reconstructor) onVictimPlaced(m *Message) {
	var data victimEventData
	if !r.decode(m, eventVictimPlaced, &data) {
		return
	}
	if idx, ok := r.playerIndex(data.ParticipantID); ok {
		r.acc.actions[idx] = model.ActionNone
	}
	victim, ok := r.victimFrom(&data)
	if !ok {
		return
	}
	if r.acc.pickedUp.Has(victim) {
		r.acc.pickedUp.Discard(victim)
	} else {
		r.acc.placedVic.Add(victim)
	}
}

func (r *reconstructor) onTriage(m *Message) {
	var data struct {
		victimEventData
		TriageState string `json:"triage_state"`
	}
	if !r.decode(m, eventTriage, &data) {
		return
	}
	idx, ok := r.playerIndex(data.ParticipantID)
	if !ok {
		return
	}
	state := strings.ToLower(data.TriageState)
	if state == "in_progress" {
		r.acc.actions[idx] = model.ActionHealingVictim
		return
	}
	r.acc.actions[idx] = model.ActionNone
	if state == "successful" {
		if victim, ok := r.victimFrom(&data.victimEventData); ok {
			r.acc.saved.Add(victim)
		}
	}
}

func (r *reconstructor) onToolUsed(m *Message) {
	var data struct {
		ParticipantID   string `json:"participant_id"`
		ToolType        string `json:"tool_type"`
		TargetBlockType string `json:"target_block_type"`
	}
	if !r.decode(m, eventToolUsed, &data) {
		return
	}
	if !strings.EqualFold(data.ToolType, "hammer") ||
		!strings.EqualFold(data.TargetBlockType, "minecraft:gravel") {
		return
	}
	if idx, ok := r.playerIndex(data.ParticipantID); ok {
		r.acc.actions[idx] = model.ActionDestroyingRubble
	}
}

func (r *reconstructor) onRubbleDestroyed(m *Message) {
	var data struct {
		RubbleX float64 `json:"rubble_x"`
		RubbleZ float64 `json:"rubble_z"`
	}
	if !r.decode(m, eventRubbleDestroyed, &data) {
		return
	}
	pos := r.translate(data.RubbleX, data.RubbleZ)
	r.acc.rubble[pos]--
	// The cell changed, so a later collapse may legitimately refill it.
	delete(r.acc.collapsed, pos)
}

func (r *reconstructor) onPerturbation(m *Message) {
	var data struct {
		Type         string `json:"type"`
		MissionState string `json:"mission_state"`
	}
	if !r.decode(m, eventPerturbation, &data) {
		return
	}
	if strings.EqualFold(data.Type, "blackout") {
		r.acc.blackout = strings.EqualFold(data.MissionState, "start")
	}
}

func (r *reconstructor) onRubbleCollapse(m *Message) {
	var data struct {
		FromX int `json:"fromBlock_x"`
		FromY int `json:"fromBlock_y"`
		FromZ int `json:"fromBlock_z"`
		ToX   int `json:"toBlock_x"`
		ToY   int `json:"toBlock_y"`
		ToZ   int `json:"toBlock_z"`
	}
	if !r.decode(m, eventRubbleCollapse, &data) {
		return
	}
	// Stack height at every affected column.
	counts := data.ToY - data.FromY
	if counts < 0 {
		counts = -counts
	}
	counts++

	for x := data.FromX; x <= data.ToX; x++ {
		for z := data.FromZ; z <= data.ToZ; z++ {
			pos := r.t.Map.Translate(x, z)
			if _, seen := r.acc.collapsed[pos]; seen {
				continue
			}
			r.acc.rubble[pos] = counts
			r.acc.collapsed[pos] = struct{}{}
		}
	}
}

func (r *reconstructor) onTranscription(m *Message) {
	var data struct {
		ParticipantID string `json:"participant_id"`
		Text          string `json:"text"`
	}
	if !r.decode(m, eventTranscription, &data) {
		return
	}
	idx, ok := r.playerIndex(data.ParticipantID)
	if !ok {
		return
	}
	r.acc.speech[idx] = append(r.acc.speech[idx], strings.TrimSpace(data.Text))
}

func (r *reconstructor) onInterventionChat(m *Message) {
	var data struct {
		Receivers []string `json:"receivers"`
		Content   string   `json:"content"`
	}
	if !r.decode(m, eventInterventionChat, &data) {
		return
	}
	for _, id := range data.Receivers {
		idx, ok := r.playerIndex(id)
		if !ok {
			continue
		}
		r.acc.chat[idx].Add(model.ChatMessage{
			Sender:    AgentAlias,
			Addressee: id,
			Color:     "orange",
			Text:      data.Content,
		})
	}
}

// flush materializes every tick from nextTick through elapsed. A gap
// between ticks means no state observation arrived for the skipped
// seconds, so those ticks repeat the accumulated state.
func (r *reconstructor) flush(elapsed int) {
	end := elapsed
	if end > r.t.TimeSteps-1 {
		end = r.t.TimeSteps - 1
	}

	for tick := r.nextTick; tick <= end; tick++ {
		t := r.t
		t.Scores[tick] = r.acc.score
		t.PlacedMarkers[tick] = r.acc.placed.Clone()
		t.RemovedMarkers[tick] = r.acc.removed.Clone()
		t.RubbleCounts[tick] = r.acc.rubble.Clone()
		t.ActiveBlackout[tick] = r.acc.blackout
		t.SavedVictims[tick] = r.acc.saved.Clone()
		t.PickedUpVictims[tick] = r.acc.pickedUp.Clone()
		t.PlacedVictims[tick] = r.acc.placedVic.Clone()

		for p := 0; p < model.NumPlayers; p++ {
			if len(r.acc.positions[p]) == 0 {
				// No movement this tick, the player stays put.
				if tick > 0 {
					if last, ok := t.PositionAt(model.PlayerColor(p), tick-1); ok {
						t.Positions[p][tick] = []model.Position{last}
					}
				}
			} else {
				t.Positions[p][tick] = append([]model.Position(nil), r.acc.positions[p]...)
				r.acc.positions[p] = r.acc.positions[p][:0]
			}

			t.Yaws[p][tick] = r.acc.yaws[p]

			t.ChatMessages[p][tick] = cloneChat(r.acc.chat[p])
			clear(r.acc.chat[p])

			t.Speech[p][tick] = append([]string(nil), r.acc.speech[p]...)
			r.acc.speech[p] = r.acc.speech[p][:0]

			t.Actions[p][tick] = r.acc.actions[p]
			if r.acc.actions[p] != model.ActionCarryingVictim {
				// Carrying persists until the victim is placed.
				r.acc.actions[p] = model.ActionNone
			}

			t.EquippedItems[p][tick] = r.acc.equipped[p]
		}

		r.stats.TicksFilled++
	}

	r.nextTick = end + 1

	r.acc.placed = trial.MarkerSet{}
	r.acc.removed = trial.MarkerSet{}
	r.acc.rubble = trial.RubbleDelta{}
	r.acc.saved = trial.VictimSet{}
	r.acc.pickedUp = trial.VictimSet{}
	r.acc.placedVic = trial.VictimSet{}
}

func cloneChat(set model.ChatSet) model.ChatSet {
	out := make(model.ChatSet, len(set))
	for k, v := range set {
		out[k] = v
	}
	return out
}

// elapsedSeconds converts a "mm : ss" countdown into seconds since
// mission start. Malformed timers yield -1, which never advances the
// clock.
func elapsedSeconds(timer string, timeSteps int) int {
	i := strings.Index(timer, ":")
	if i < 0 {
		return -1
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(timer[:i]))
	if err != nil {
		return -1
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(timer[i+1:]))
	if err != nil {
		return -1
	}
	return timeSteps - (seconds + minutes*60)
}
