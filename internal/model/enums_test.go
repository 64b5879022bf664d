package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVictimTypeExactTokens(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    VictimType
		wantErr bool
	}{
		{name: "regular A", input: "victim_a", want: VictimA},
		{name: "regular B", input: "victim_b", want: VictimB},
		{name: "critical", input: "victim_c", want: VictimCritical},
		// "victim_saved_a" contains "victim_a" as a substring; a
		// containment check would misclassify it.
		{name: "saved A", input: "victim_saved_a", want: VictimSafeA},
		{name: "saved B", input: "VICTIM_SAVED_B", want: VictimSafeB},
		{name: "saved critical", input: "victim_saved_c", want: VictimSafeCritical},
		{name: "unknown", input: "victim_d", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVictimType(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMarkerType(t *testing.T) {
	tests := []struct {
		input   string
		want    MarkerType
		wantErr bool
	}{
		{input: "red_novictim", want: MarkerNoVictim},
		{input: "green_abrasion", want: MarkerVictimA},
		{input: "blue_bonedamage", want: MarkerVictimB},
		{input: "red_regularvictim", want: MarkerRegularVictim},
		{input: "blue_criticalvictim", want: MarkerCriticalVictim},
		{input: "green_threat", want: MarkerThreatRoom},
		{input: "red_sos", want: MarkerSOS},
		{input: "blue_rubble", want: MarkerRubble},
		{input: "asistmod:red_sos", want: MarkerSOS},
		{input: "sos", want: MarkerSOS},
		{input: "red_", wantErr: true},
		{input: "banner", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMarkerType(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEquippedItem(t *testing.T) {
	got, err := ParseEquippedItem("asistmod:item_medical_kit")
	require.NoError(t, err)
	assert.Equal(t, ItemMedicalKit, got)

	got, err = ParseEquippedItem("HAMMER")
	require.NoError(t, err)
	assert.Equal(t, ItemHammer, got)

	got, err = ParseEquippedItem("red_sos")
	require.NoError(t, err)
	assert.Equal(t, ItemMarkerSOS, got)

	_, err = ParseEquippedItem("fishing_rod")
	require.Error(t, err)
}

func TestVictimSavedTransition(t *testing.T) {
	v := Victim{Type: VictimB, Pos: Position{X: 3, Y: 4}}
	saved := v.Saved()
	assert.Equal(t, VictimSafeB, saved.Type)
	assert.Equal(t, v.Pos, saved.Pos)
	assert.True(t, saved.Type.IsSafe())
	// Idempotent on already-safe victims.
	assert.Equal(t, saved, saved.Saved())
}

func TestChatSetDeduplicatesIgnoringColor(t *testing.T) {
	s := make(ChatSet)
	s.Add(ChatMessage{Sender: "red", Addressee: "P1", Color: "red", Text: "help"})
	s.Add(ChatMessage{Sender: "red", Addressee: "P1", Color: "orange", Text: "help"})
	s.Add(ChatMessage{Sender: "red", Addressee: "P2", Color: "red", Text: "help"})

	require.Len(t, s, 2)
	// First delivery wins, including its color.
	assert.Equal(t, "red", s[ChatKey{Sender: "red", Addressee: "P1", Text: "help"}].Color)
}

func TestParseRoleAndColor(t *testing.T) {
	r, err := ParseRole("Transport_Specialist")
	require.NoError(t, err)
	assert.Equal(t, Transporter, r)

	_, err = ParseRole("sniper")
	require.Error(t, err)

	c, err := ParsePlayerColor("Blue")
	require.NoError(t, err)
	assert.Equal(t, Blue, c)

	_, err = ParsePlayerColor("purple")
	require.Error(t, err)
}
