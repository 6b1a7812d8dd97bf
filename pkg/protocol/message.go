// Package protocol defines the WebSocket messages exchanged between capture
// agents, the focusguard server and dashboard clients.
//
// Every frame is a JSON envelope {"type", "ts", "data"} where ts is Unix
// milliseconds and data depends on type.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-focusguard/pkg/affect"
)

// MessageType names the payload carried in Data.
type MessageType string

// Agents send analysis or frame and receive ack or error. Dashboards receive
// snapshot and event. Either side may ping.
const (
	TypeAnalysis MessageType = "analysis"
	TypeFrame    MessageType = "frame"
	TypeAck      MessageType = "ack"
	TypeError    MessageType = "error"
	TypeSnapshot MessageType = "snapshot"
	TypeEvent    MessageType = "event"
	TypePing     MessageType = "ping"
	TypePong     MessageType = "pong"
)

// ErrMissingType is returned by ParseMessage for an envelope without a type.
var ErrMissingType = errors.New("protocol: missing message type")

// Message is the envelope.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage encodes data under msgType, stamped with the current time.
// A nil data leaves the payload empty.
func NewMessage(msgType MessageType, data any) (*Message, error) {
	msg := &Message{Type: msgType, Timestamp: time.Now().UnixMilli()}
	if data == nil {
		return msg, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", msgType, err)
	}
	msg.Data = raw
	return msg, nil
}

// ParseData decodes the payload into v. An empty payload leaves v untouched.
func (m *Message) ParseData(v any) error {
	if len(m.Data) == 0 {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes encodes the envelope.
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage decodes an envelope. The payload is left raw.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("protocol: parse: %w", err)
	}
	if msg.Type == "" {
		return nil, ErrMissingType
	}
	return &msg, nil
}

// AnalysisData is one Frame Analyzer result pushed by an agent. Scores is
// omitted when the analyzer produced no emotion update for the frame.
// Score values that are not numbers read as zero.
type AnalysisData struct {
	FrameID         uint64         `json:"frame_id,omitempty"`
	CapturedAt      int64          `json:"captured_at,omitempty"`
	Status          string         `json:"status"`
	Scores          affect.Reading `json:"scores,omitempty"`
	Valence         string         `json:"valence,omitempty"`
	EngagementScore *int           `json:"engagement_score,omitempty"`
}

// FrameData carries a base64 JPEG for server-side analysis.
type FrameData struct {
	FrameID    uint64 `json:"frame_id,omitempty"`
	CapturedAt int64  `json:"captured_at,omitempty"`
	Format     string `json:"format"`
	Data       string `json:"data"`
}

// AckData reports the session state after an agent's frame was ticked.
type AckData struct {
	FrameID   uint64 `json:"frame_id,omitempty"`
	Seq       uint64 `json:"seq"`
	Confirmed string `json:"confirmed_status"`
	Mode      string `json:"mode"`
	Alarm     string `json:"alarm"`
}

// ErrorData explains why a frame was rejected.
type ErrorData struct {
	FrameID uint64 `json:"frame_id,omitempty"`
	Message string `json:"message"`
}

type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
