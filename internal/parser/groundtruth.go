package parser

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"

	"github.com/tomcat-viz/trialviz/internal/gamemap"
	"github.com/tomcat-viz/trialviz/internal/model"
)

// ErrMissingGroundTruth is returned when the semantic map message is
// absent. Every coordinate translation depends on the map bounds, so
// reconstruction cannot start without it.
var ErrMissingGroundTruth = errors.New("missing semantic map ground truth")

// GroundTruth holds the one-shot messages extracted ahead of temporal
// reconstruction.
type GroundTruth struct {
	mapMsg    *Message
	victimMsg *Message
	rubbleMsg *Message
	threatMsg *Message
	signalMsg *Message
}

// scanResult is the outcome of the single pass over the raw log.
type scanResult struct {
	groundTruth GroundTruth
	messages    []*Message
	badLines    int
	lines       int
}

// scanLog reads the newline-delimited JSON log once, captures at most
// one message per ground-truth topic (first wins), keeps watched-topic
// messages for temporal sorting and drops everything else. Lines that
// are not valid JSON are logged and skipped; they never abort the scan.
func scanLog(r io.Reader, logger *slog.Logger) (*scanResult, error) {
	res := &scanResult{}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		res.lines++
		if len(line) == 0 {
			continue
		}

		m, err := decodeMessage(line, res.lines)
		if err != nil {
			res.badLines++
			logger.Warn("Skipping bad log line", "line", res.lines, "len", len(line), "error", err)
			continue
		}

		switch m.Topic {
		case TopicMap:
			if res.groundTruth.mapMsg == nil {
				res.groundTruth.mapMsg = m
			}
		case TopicVictimList:
			if res.groundTruth.victimMsg == nil {
				res.groundTruth.victimMsg = m
			}
		case TopicRubbleList:
			if res.groundTruth.rubbleMsg == nil {
				res.groundTruth.rubbleMsg = m
			}
		case TopicThreatPlateList:
			if res.groundTruth.threatMsg == nil {
				res.groundTruth.threatMsg = m
			}
		case TopicVictimSignalList:
			if res.groundTruth.signalMsg == nil {
				res.groundTruth.signalMsg = m
			}
		case "":
			// Intervention messages generated locally have no topic.
			if m.Msg.Source == AgentName {
				res.messages = append(res.messages, m)
			}
		default:
			if _, ok := watchedTopics[m.Topic]; ok {
				res.messages = append(res.messages, m)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading trial log: %w", err)
	}

	return res, nil
}

// sortMessages orders the watched messages by header timestamp. The
// sort is stable: messages with equal timestamps keep their original
// stream order.
func sortMessages(messages []*Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].ts.Before(messages[j].ts)
	})
}

// buildMap parses the semantic map out of the ground-truth message.
func (g *GroundTruth) buildMap() (*gamemap.Map, error) {
	if g.mapMsg == nil {
		return nil, ErrMissingGroundTruth
	}
	var payload struct {
		SemanticMap json.RawMessage `json:"semantic_map"`
	}
	if err := g.mapMsg.DecodeData(&payload); err != nil {
		return nil, err
	}
	m, err := gamemap.Parse(payload.SemanticMap)
	if err != nil {
		return nil, fmt.Errorf("parsing semantic map: %w", err)
	}
	return m, nil
}

type blockEntry struct {
	X         float64 `json:"x"`
	Z         float64 `json:"z"`
	BlockType string  `json:"block_type"`
}

func translate(m *gamemap.Map, x, z float64) model.Position {
	return m.Translate(int(math.Floor(x)), int(math.Floor(z)))
}

// victimList decodes the ground-truth victim list into grid-local
// victims. Unknown block types are skipped with a warning.
func (g *GroundTruth) victimList(m *gamemap.Map, logger *slog.Logger) ([]model.Victim, error) {
	if g.victimMsg == nil {
		return nil, nil
	}
	var payload struct {
		Victims []blockEntry `json:"mission_victim_list"`
	}
	if err := g.victimMsg.DecodeData(&payload); err != nil {
		return nil, err
	}
	victims := make([]model.Victim, 0, len(payload.Victims))
	for _, e := range payload.Victims {
		vt, err := model.ParseVictimBlockType(e.BlockType)
		if err != nil {
			logger.Warn("Skipping ground-truth victim", "error", err)
			continue
		}
		victims = append(victims, model.Victim{Type: vt, Pos: translate(m, e.X, e.Z)})
	}
	return victims, nil
}

// positionList decodes a ground-truth block list (blockages, threat
// signs) into grid-local positions.
func positionList(msg *Message, m *gamemap.Map, field string) ([]model.Position, error) {
	if msg == nil {
		return nil, nil
	}
	var payload map[string][]blockEntry
	if err := msg.DecodeData(&payload); err != nil {
		return nil, err
	}
	entries := payload[field]
	positions := make([]model.Position, 0, len(entries))
	for _, e := range entries {
		positions = append(positions, translate(m, e.X, e.Z))
	}
	return positions, nil
}
