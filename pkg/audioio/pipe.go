package audioio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
)

// ErrNotRunning is returned by Write before Start or after Stop.
var ErrNotRunning = errors.New("audio sink not running")

// pipeSink streams raw PCM into the stdin of an external player process.
// A new process is spawned per Start so Stop can cut playback instantly.
type pipeSink struct {
	cfg     Config
	logger  *slog.Logger
	backend string
	path    string
	args    []string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	running bool
	closed  bool

	chunksWritten  atomic.Int64
	samplesWritten atomic.Int64
	starts         atomic.Int64
}

func newPipeSink(cfg Config, logger *slog.Logger, backend, player string, args []string) (*pipeSink, error) {
	path, err := exec.LookPath(player)
	if err != nil {
		return nil, fmt.Errorf("%s backend needs %q on PATH: %w", backend, player, err)
	}

	s := &pipeSink{
		cfg:     cfg,
		logger:  logger,
		backend: backend,
		path:    path,
		args:    args,
	}

	logger.Info("audio sink created",
		"backend", backend,
		"player", path,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
	)

	return s, nil
}

// Start spawns the player process.
func (s *pipeSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.Command(s.path, s.args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.path, err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.running = true
	s.starts.Add(1)

	s.logger.Debug("audio sink started", "backend", s.backend, "pid", cmd.Process.Pid)
	return nil
}

// Stop kills the player and reaps it.
func (s *pipeSink) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cmd, stdin := s.cmd, s.stdin
	s.cmd, s.stdin = nil, nil
	s.running = false
	s.mu.Unlock()

	_ = stdin.Close()
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Debug("kill audio player", "error", err)
	}
	// Wait always reports the kill signal; only the reaping matters here.
	_ = cmd.Wait()

	s.logger.Debug("audio sink stopped", "backend", s.backend)
	return nil
}

// Write blocks while the player's pipe is full, which paces the caller
// at real-time playback speed.
func (s *pipeSink) Write(ctx context.Context, chunk AudioChunk) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return io.ErrClosedPipe
	}
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	stdin := s.stdin
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := stdin.Write(chunk.Bytes()); err != nil {
		return fmt.Errorf("write to %s: %w", s.backend, err)
	}

	s.chunksWritten.Add(1)
	s.samplesWritten.Add(int64(len(chunk.Samples)))
	return nil
}

// Config returns the audio configuration.
func (s *pipeSink) Config() Config {
	return s.cfg
}

// Name returns the backend name.
func (s *pipeSink) Name() string {
	return s.backend
}

// Close stops playback and prevents restarts.
func (s *pipeSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.Stop()
}

// Stats returns sink statistics.
func (s *pipeSink) Stats() SinkStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return SinkStats{
		ChunksWritten:  s.chunksWritten.Load(),
		SamplesWritten: s.samplesWritten.Load(),
		Starts:         s.starts.Load(),
		Running:        running,
		Backend:        s.backend,
	}
}

var _ SinkWithStats = (*pipeSink)(nil)
