package hub

import "sync"

// outbox holds a client's undelivered messages.
type outbox struct {
	mu      sync.Mutex
	pending []Message
	closed  bool
	wake    chan struct{}
}

func newOutbox() *outbox {
	return &outbox{wake: make(chan struct{}, 1)}
}

// push queues m, first removing an undelivered message with the same key.
// It reports false when the outbox is closed or already holds limit
// messages.
func (o *outbox) push(m Message, limit int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return false
	}
	if m.Key != "" {
		for i, p := range o.pending {
			if p.Key == m.Key {
				o.pending = append(o.pending[:i], o.pending[i+1:]...)
				break
			}
		}
	}
	if len(o.pending) >= limit {
		return false
	}
	o.pending = append(o.pending, m)
	o.signal()
	return true
}

// close stops further pushes and wakes the writer. Idempotent.
func (o *outbox) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		o.signal()
	}
}

// drain takes everything queued.
func (o *outbox) drain() (msgs []Message, closed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs, o.pending = o.pending, nil
	return msgs, o.closed
}

func (o *outbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}
