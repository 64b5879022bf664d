package parser

// Ground-truth topics: exactly one message each is expected per log.
const (
	TopicMap              = "ground_truth/semantic_map/initialized"
	TopicVictimList       = "ground_truth/mission/victims_list"
	TopicRubbleList       = "ground_truth/mission/blockages_list"
	TopicThreatPlateList  = "ground_truth/mission/threatsign_list"
	TopicVictimSignalList = "ground_truth/mission/freezeblock_list"
)

// AgentName is the reasoning agent whose intervention messages may
// arrive without a topic field (generated locally rather than routed
// through the message bus).
const AgentName = "ASI_UAZ_TA1_ToMCAT"

// AgentAlias is the display name used for agent chat interventions.
const AgentAlias = "ToMCAT"

// watchedTopics is the closed list of topics that feed temporal
// reconstruction. Anything else in the log is ignored.
var watchedTopics = map[string]struct{}{
	"trial":                                       {},
	"observations/events/mission":                 {},
	"observations/state":                          {},
	"observations/events/scoreboard":              {},
	"observations/events/player/role_selected":    {},
	"observations/events/player/marker_placed":    {},
	"minecraft/chat":                              {},
	"observations/events/player/triage":           {},
	"observations/events/player/victim_picked_up": {},
	"observations/events/player/victim_placed":    {},
	"observations/events/player/tool_used":        {},
	"observations/events/player/marker_removed":   {},
	"observations/events/player/rubble_destroyed": {},
	"observations/events/mission/perturbation":    {},
	"observations/events/player/rubble_collapse":  {},
	"observations/events/player/itemequipped":     {},
	"agent/asr/final":                             {},
	"agent/intervention/" + AgentName + "/chat":   {},
}
