package parser

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the wire envelope every log line shares. The data payload
// stays raw until the event kind is known.
type Message struct {
	Topic  string `json:"topic"`
	Header struct {
		Timestamp   string `json:"timestamp"`
		MessageType string `json:"message_type"`
	} `json:"header"`
	Msg struct {
		SubType string `json:"sub_type"`
		Source  string `json:"source"`
	} `json:"msg"`
	Data json.RawMessage `json:"data"`

	// ts caches the parsed header timestamp, seq the original stream
	// order for stable tie-breaking.
	ts  time.Time
	seq int
}

// Timestamp returns the parsed header timestamp.
func (m *Message) Timestamp() time.Time {
	return m.ts
}

func decodeMessage(line []byte, seq int) (*Message, error) {
	var m Message
	if err := json.Unmarshal(line, &m); err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, m.Header.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("parsing header timestamp %q: %w", m.Header.Timestamp, err)
	}
	m.ts = ts
	m.seq = seq
	return &m, nil
}

// DecodeData unmarshals the event payload into dst.
func (m *Message) DecodeData(dst any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("message %s/%s has no data payload", m.Header.MessageType, m.Msg.SubType)
	}
	if err := json.Unmarshal(m.Data, dst); err != nil {
		return fmt.Errorf("decoding %s/%s data: %w", m.Header.MessageType, m.Msg.SubType, err)
	}
	return nil
}
