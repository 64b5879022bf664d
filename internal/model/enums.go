package model

import (
	"fmt"
	"strings"
)

// NumPlayers is the fixed trial cardinality. A trial always has exactly
// three players, identified by callsign color. Per-player data is stored
// in [NumPlayers]T arrays indexed by PlayerColor, never in dynamically
// sized collections.
const NumPlayers = 3

// PlayerColor identifies one of the three fixed player slots.
type PlayerColor int

const (
	Red PlayerColor = iota
	Green
	Blue
)

var playerColorNames = [NumPlayers]string{"red", "green", "blue"}

func (c PlayerColor) String() string {
	if c < 0 || int(c) >= NumPlayers {
		return fmt.Sprintf("PlayerColor(%d)", int(c))
	}
	return playerColorNames[c]
}

// ParsePlayerColor decodes a callsign color string. The vocabulary is
// closed; anything else is an error.
func ParsePlayerColor(s string) (PlayerColor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return Red, nil
	case "green":
		return Green, nil
	case "blue":
		return Blue, nil
	}
	return 0, fmt.Errorf("unknown player color %q", s)
}

// Role is the specialization a player selects at trial start.
type Role int

const (
	RoleUnknown Role = iota
	Medic
	Engineer
	Transporter
)

func (r Role) String() string {
	switch r {
	case Medic:
		return "medic"
	case Engineer:
		return "engineer"
	case Transporter:
		return "transporter"
	}
	return "unknown"
}

// ParseRole decodes a role-selected token, e.g.
// "transport_specialist". Exact token match against the closed
// message vocabulary.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "medical_specialist":
		return Medic, nil
	case "engineering_specialist":
		return Engineer, nil
	case "transport_specialist":
		return Transporter, nil
	}
	return RoleUnknown, fmt.Errorf("unknown role %q", s)
}

// Action is what a player is currently doing. It is tick-scoped except
// for ActionCarryingVictim, which persists until an explicit place event.
type Action int

const (
	ActionNone Action = iota
	ActionCarryingVictim
	ActionHealingVictim
	ActionDestroyingRubble
)

func (a Action) String() string {
	switch a {
	case ActionCarryingVictim:
		return "carrying_victim"
	case ActionHealingVictim:
		return "healing_victim"
	case ActionDestroyingRubble:
		return "destroying_rubble"
	}
	return "none"
}

// MarkerType is the closed set of annotation kinds players can place.
type MarkerType int

const (
	MarkerNoVictim MarkerType = iota
	MarkerVictimA
	MarkerVictimB
	MarkerRegularVictim
	MarkerCriticalVictim
	MarkerThreatRoom
	MarkerSOS
	MarkerRubble
)

var markerTypeNames = map[MarkerType]string{
	MarkerNoVictim:       "no_victim",
	MarkerVictimA:        "victim_a",
	MarkerVictimB:        "victim_b",
	MarkerRegularVictim:  "regular_victim",
	MarkerCriticalVictim: "critical_victim",
	MarkerThreatRoom:     "threat_room",
	MarkerSOS:            "sos",
	MarkerRubble:         "rubble",
}

func (m MarkerType) String() string {
	if s, ok := markerTypeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("MarkerType(%d)", int(m))
}

// Letter returns the single-character stamp drawn on the map block.
func (m MarkerType) Letter() string {
	switch m {
	case MarkerNoVictim:
		return "O"
	case MarkerVictimA:
		return "A"
	case MarkerVictimB:
		return "B"
	case MarkerRegularVictim:
		return "V"
	case MarkerCriticalVictim:
		return "C"
	case MarkerThreatRoom:
		return "T"
	case MarkerSOS:
		return "S"
	case MarkerRubble:
		return "R"
	}
	return "X"
}

// markerTokens is the closed message vocabulary for marker kinds. The
// in-game block names carry a color prefix ("red_abrasion"); the token
// is the part after the prefix.
var markerTokens = map[string]MarkerType{
	"novictim":       MarkerNoVictim,
	"abrasion":       MarkerVictimA,
	"bonedamage":     MarkerVictimB,
	"regularvictim":  MarkerRegularVictim,
	"criticalvictim": MarkerCriticalVictim,
	"threat":         MarkerThreatRoom,
	"sos":            MarkerSOS,
	"rubble":         MarkerRubble,
}

// ParseMarkerType decodes a marker payload type such as "red_abrasion"
// or "blue_sos". The color prefix and any namespace are stripped, then
// the remaining token must match exactly.
func ParseMarkerType(s string) (MarkerType, error) {
	if t, ok := markerTokens[normalizeToken(s)]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown marker type %q", s)
}

// VictimType distinguishes victim severities and their rescued
// counterparts.
type VictimType int

const (
	VictimA VictimType = iota
	VictimB
	VictimCritical
	VictimSafeA
	VictimSafeB
	VictimSafeCritical
)

var victimTypeNames = map[VictimType]string{
	VictimA:            "victim_a",
	VictimB:            "victim_b",
	VictimCritical:     "victim_c",
	VictimSafeA:        "victim_saved_a",
	VictimSafeB:        "victim_saved_b",
	VictimSafeCritical: "victim_saved_c",
}

func (v VictimType) String() string {
	if s, ok := victimTypeNames[v]; ok {
		return s
	}
	return fmt.Sprintf("VictimType(%d)", int(v))
}

// Saved maps an unsaved type to its safe counterpart. Safe types map to
// themselves.
func (v VictimType) Saved() VictimType {
	switch v {
	case VictimA:
		return VictimSafeA
	case VictimB:
		return VictimSafeB
	case VictimCritical:
		return VictimSafeCritical
	}
	return v
}

// IsSafe reports whether the victim has already been rescued.
func (v VictimType) IsSafe() bool {
	return v == VictimSafeA || v == VictimSafeB || v == VictimSafeCritical
}

// ParseVictimType decodes an event victim type ("victim_a",
// "victim_saved_c"). Full-token match only: "victim_saved_a" must never
// fall through to "victim_a", which a substring check would allow.
func ParseVictimType(s string) (VictimType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "victim_a":
		return VictimA, nil
	case "victim_b":
		return VictimB, nil
	case "victim_c":
		return VictimCritical, nil
	case "victim_saved_a":
		return VictimSafeA, nil
	case "victim_saved_b":
		return VictimSafeB, nil
	case "victim_saved_c":
		return VictimSafeCritical, nil
	}
	return 0, fmt.Errorf("unknown victim type %q", s)
}

// ParseVictimBlockType decodes the ground-truth block names used by the
// victim list topic.
func ParseVictimBlockType(s string) (VictimType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "block_victim_1":
		return VictimA, nil
	case "block_victim_1b":
		return VictimB, nil
	case "block_victim_proximity":
		return VictimCritical, nil
	}
	return 0, fmt.Errorf("unknown victim block type %q", s)
}

// EquippedItem is what a player currently holds.
type EquippedItem int

const (
	ItemHammer EquippedItem = iota
	ItemMedicalKit
	ItemStretcher
	ItemMarkerNoVictim
	ItemMarkerVictimA
	ItemMarkerVictimB
	ItemMarkerRegularVictim
	ItemMarkerCriticalVictim
	ItemMarkerThreatRoom
	ItemMarkerSOS
	ItemMarkerRubble
)

var itemNames = map[EquippedItem]string{
	ItemHammer:               "hammer",
	ItemMedicalKit:           "medical_kit",
	ItemStretcher:            "stretcher",
	ItemMarkerNoVictim:       "marker_no_victim",
	ItemMarkerVictimA:        "marker_victim_a",
	ItemMarkerVictimB:        "marker_victim_b",
	ItemMarkerRegularVictim:  "marker_regular_victim",
	ItemMarkerCriticalVictim: "marker_critical_victim",
	ItemMarkerThreatRoom:     "marker_threat_room",
	ItemMarkerSOS:            "marker_sos",
	ItemMarkerRubble:         "marker_rubble",
}

func (i EquippedItem) String() string {
	if s, ok := itemNames[i]; ok {
		return s
	}
	return fmt.Sprintf("EquippedItem(%d)", int(i))
}

// itemTokens extends the marker vocabulary with the tool item names.
var itemTokens = map[string]EquippedItem{
	"hammer":         ItemHammer,
	"medical_kit":    ItemMedicalKit,
	"stretcher":      ItemStretcher,
	"novictim":       ItemMarkerNoVictim,
	"abrasion":       ItemMarkerVictimA,
	"bonedamage":     ItemMarkerVictimB,
	"regularvictim":  ItemMarkerRegularVictim,
	"criticalvictim": ItemMarkerCriticalVictim,
	"threat":         ItemMarkerThreatRoom,
	"sos":            ItemMarkerSOS,
	"rubble":         ItemMarkerRubble,
}

// ParseEquippedItem decodes an equippeditemname payload. Namespace and
// color prefixes are stripped before the exact-token lookup.
func ParseEquippedItem(s string) (EquippedItem, error) {
	tok := normalizeToken(s)
	if i, ok := itemTokens[tok]; ok {
		return i, nil
	}
	return 0, fmt.Errorf("unknown equipped item %q", s)
}

// normalizeToken lowercases an in-game block/item name and strips the
// "namespace:" prefix, an "item_" prefix and a player color prefix,
// leaving the bare vocabulary token.
func normalizeToken(s string) string {
	tok := strings.ToLower(strings.TrimSpace(s))
	if i := strings.LastIndexByte(tok, ':'); i >= 0 {
		tok = tok[i+1:]
	}
	tok = strings.TrimPrefix(tok, "item_")
	for _, color := range playerColorNames {
		if rest, ok := strings.CutPrefix(tok, color+"_"); ok {
			// Only strip the color when something follows it. Composite
			// tokens like "medical_kit" keep their underscore.
			if rest != "" {
				tok = rest
			}
			break
		}
	}
	return tok
}
