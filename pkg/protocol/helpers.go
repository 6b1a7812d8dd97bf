package protocol

import (
	"encoding/base64"
	"time"
)

const formatJPEG = "jpeg"

func NewAnalysisMessage(data AnalysisData) (*Message, error) {
	return NewMessage(TypeAnalysis, data)
}

// NewFrameMessage base64-encodes a JPEG into a frame message.
func NewFrameMessage(jpeg []byte, frameID uint64, capturedAt time.Time) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{
		FrameID:    frameID,
		CapturedAt: capturedAt.UnixMilli(),
		Format:     formatJPEG,
		Data:       base64.StdEncoding.EncodeToString(jpeg),
	})
}

func NewAckMessage(ack AckData) (*Message, error) {
	return NewMessage(TypeAck, ack)
}

func NewErrorMessage(frameID uint64, text string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{FrameID: frameID, Message: text})
}

// NewSnapshotMessage and NewEventMessage accept any JSON-encodable value so
// the protocol does not depend on the session package.
func NewSnapshotMessage(snapshot any) (*Message, error) {
	return NewMessage(TypeSnapshot, snapshot)
}

func NewEventMessage(event any) (*Message, error) {
	return NewMessage(TypeEvent, event)
}

func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id, Timestamp: time.Now().UnixMilli()})
}

// NewPongMessage answers a ping sent at pingTS.
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

func decode[T any](m *Message) (*T, error) {
	v := new(T)
	if err := m.ParseData(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (m *Message) GetAnalysisData() (*AnalysisData, error) { return decode[AnalysisData](m) }
func (m *Message) GetFrameData() (*FrameData, error)       { return decode[FrameData](m) }
func (m *Message) GetAckData() (*AckData, error)           { return decode[AckData](m) }
func (m *Message) GetErrorData() (*ErrorData, error)       { return decode[ErrorData](m) }
func (m *Message) GetPingData() (*PingData, error)         { return decode[PingData](m) }
func (m *Message) GetPongData() (*PongData, error)         { return decode[PongData](m) }

// DecodeFrameData returns the raw JPEG bytes.
func (f *FrameData) DecodeFrameData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(f.Data)
}

// CapturedTime returns CapturedAt, or the zero time when unset.
func (a *AnalysisData) CapturedTime() time.Time {
	if a.CapturedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(a.CapturedAt)
}
