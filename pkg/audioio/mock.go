package audioio

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// mockRetain is how many recent chunks a MockSink keeps for inspection.
const mockRetain = 64

// MockSink is an in-memory sink for tests and machines without audio.
// Writes are paced at playback speed like a real device.
type MockSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	closed  bool
	stopCh  chan struct{}
	recent  []AudioChunk

	chunksWritten  atomic.Int64
	samplesWritten atomic.Int64
	starts         atomic.Int64
}

// NewMockSink creates a new mock audio sink.
func NewMockSink(cfg Config, logger *slog.Logger) *MockSink {
	if logger == nil {
		logger = slog.Default()
	}

	return &MockSink{
		cfg:    cfg,
		logger: logger,
		recent: make([]AudioChunk, 0, mockRetain),
	}
}

// Start begins accepting audio.
func (m *MockSink) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if m.running {
		return nil
	}

	m.running = true
	m.stopCh = make(chan struct{})
	m.starts.Add(1)
	m.logger.Debug("mock audio sink started")

	return nil
}

// Stop halts audio acceptance and wakes any pending Write.
func (m *MockSink) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false
	close(m.stopCh)
	m.logger.Debug("mock audio sink stopped")

	return nil
}

// Write records the chunk, then sleeps for its playback duration.
func (m *MockSink) Write(ctx context.Context, chunk AudioChunk) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return io.ErrClosedPipe
	}
	if !m.running {
		m.mu.Unlock()
		return ErrNotRunning
	}
	if len(m.recent) == mockRetain {
		copy(m.recent, m.recent[1:])
		m.recent = m.recent[:mockRetain-1]
	}
	m.recent = append(m.recent, chunk)
	stopCh := m.stopCh
	m.mu.Unlock()

	m.chunksWritten.Add(1)
	m.samplesWritten.Add(int64(len(chunk.Samples)))

	d := chunk.Duration()
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stopCh:
		return nil
	case <-timer.C:
		return nil
	}
}

// Recent returns copies of the most recently written chunks, oldest first.
func (m *MockSink) Recent() []AudioChunk {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]AudioChunk, len(m.recent))
	copy(out, m.recent)
	return out
}

// Config returns the audio configuration.
func (m *MockSink) Config() Config {
	return m.cfg
}

// Name returns "mock".
func (m *MockSink) Name() string {
	return "mock"
}

// Close releases resources.
func (m *MockSink) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	return m.Stop()
}

// Stats returns sink statistics.
func (m *MockSink) Stats() SinkStats {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	return SinkStats{
		ChunksWritten:  m.chunksWritten.Load(),
		SamplesWritten: m.samplesWritten.Load(),
		Starts:         m.starts.Load(),
		Running:        running,
		Backend:        "mock",
	}
}

var _ SinkWithStats = (*MockSink)(nil)
