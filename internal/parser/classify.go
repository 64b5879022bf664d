package parser

import "strings"

// eventKind is the closed set of event types the reconstructor handles.
// Classification happens once at the boundary via exact matching on the
// (message_type, sub_type) pair; the reconstructor then switches
// exhaustively on the kind instead of re-examining strings.
type eventKind int

const (
	eventUnknown eventKind = iota
	eventTrialStart
	eventTrialStop
	eventMissionState
	eventRoleSelected
	eventPlayerState
	eventItemEquipped
	eventScoreboard
	eventMarkerPlaced
	eventMarkerRemoved
	eventChat
	eventVictimPickedUp
	eventVictimPlaced
	eventTriage
	eventToolUsed
	eventRubbleDestroyed
	eventPerturbation
	eventRubbleCollapse
	eventTranscription
	eventInterventionChat
)

var eventKindNames = map[eventKind]string{
	eventUnknown:          "unknown",
	eventTrialStart:       "trial_start",
	eventTrialStop:        "trial_stop",
	eventMissionState:     "mission_state",
	eventRoleSelected:     "role_selected",
	eventPlayerState:      "player_state",
	eventItemEquipped:     "item_equipped",
	eventScoreboard:       "scoreboard",
	eventMarkerPlaced:     "marker_placed",
	eventMarkerRemoved:    "marker_removed",
	eventChat:             "chat",
	eventVictimPickedUp:   "victim_picked_up",
	eventVictimPlaced:     "victim_placed",
	eventTriage:           "triage",
	eventToolUsed:         "tool_used",
	eventRubbleDestroyed:  "rubble_destroyed",
	eventPerturbation:     "perturbation",
	eventRubbleCollapse:   "rubble_collapse",
	eventTranscription:    "transcription",
	eventInterventionChat: "intervention_chat",
}

func (k eventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// classifyTable maps "message_type/sub_type" (lowercased) to a kind.
var classifyTable = map[string]eventKind{
	"trial/start":                   eventTrialStart,
	"trial/stop":                    eventTrialStop,
	"event/event:missionstate":      eventMissionState,
	"event/event:roleselected":      eventRoleSelected,
	"observation/state":             eventPlayerState,
	"event/event:itemequipped":      eventItemEquipped,
	"observation/event:scoreboard":  eventScoreboard,
	"event/event:markerplaced":      eventMarkerPlaced,
	"event/event:markerremoved":     eventMarkerRemoved,
	"chat/event:chat":               eventChat,
	"event/event:victimpickedup":    eventVictimPickedUp,
	"event/event:victimplaced":      eventVictimPlaced,
	"event/event:triage":            eventTriage,
	"event/event:toolused":          eventToolUsed,
	"event/event:rubbledestroyed":   eventRubbleDestroyed,
	"event/event:perturbation":      eventPerturbation,
	"event/event:rubblecollapse":    eventRubbleCollapse,
	"observation/asr:transcription": eventTranscription,
	"agent/intervention:chat":       eventInterventionChat,
}

// classify resolves the event kind of a message. Unrecognized pairs map
// to eventUnknown and are counted, never processed.
func classify(m *Message) eventKind {
	key := strings.ToLower(m.Header.MessageType) + "/" + strings.ToLower(m.Msg.SubType)
	if k, ok := classifyTable[key]; ok {
		return k
	}
	return eventUnknown
}
