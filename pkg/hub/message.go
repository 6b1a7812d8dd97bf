// Package hub fans dashboard updates out to websocket clients. A single
// broadcaster goroutine owns the client set; each client has its own
// outbox drained by a writer goroutine.
package hub

import "github.com/teslashibe/go-focusguard/pkg/protocol"

// Message is one encoded text frame.
type Message struct {
	Data []byte

	// Key, if set, marks the message as superseding any undelivered
	// message with the same key.
	Key string
}

// FromProtocol encodes a protocol envelope. Snapshots are keyed so a slow
// client only ever holds the newest one.
func FromProtocol(msg *protocol.Message) (Message, error) {
	data, err := msg.Bytes()
	if err != nil {
		return Message{}, err
	}
	m := Message{Data: data}
	if msg.Type == protocol.TypeSnapshot {
		m.Key = string(protocol.TypeSnapshot)
	}
	return m, nil
}
