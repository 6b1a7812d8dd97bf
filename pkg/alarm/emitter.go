package alarm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-focusguard/pkg/audioio"
)

// ToneEmitter plays synthesized tones on an audio sink. One writer goroutine
// runs per live tone.
type ToneEmitter struct {
	sink   audioio.Sink
	tones  Tones
	logger *slog.Logger

	mu     sync.Mutex
	kind   Kind
	live   bool
	cancel context.CancelFunc
	done   chan struct{}
}

// NewToneEmitter creates an emitter over sink. The sink is started and
// stopped by the emitter.
func NewToneEmitter(sink audioio.Sink, tones Tones, logger *slog.Logger) (*ToneEmitter, error) {
	if err := tones.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ToneEmitter{
		sink:   sink,
		tones:  tones,
		logger: logger,
	}, nil
}

// Start plays the tone for kind until Stop. Starting the kind already
// playing is a no-op; starting another kind replaces it.
func (e *ToneEmitter) Start(ctx context.Context, kind Kind) error {
	tone, err := e.tones.For(kind)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.live {
		if e.kind == kind {
			return nil
		}
		if err := e.stopLocked(); err != nil {
			e.logger.Warn("stop previous tone", "kind", e.kind, "error", err)
		}
	}

	if err := e.sink.Start(ctx); err != nil {
		return fmt.Errorf("start %s sink: %w", e.sink.Name(), err)
	}

	// The tone outlives the caller's context; only Stop ends it.
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.kind = kind
	e.live = true
	e.cancel = cancel
	e.done = done

	go e.play(runCtx, tone, done)

	e.logger.Info("alarm tone started", "kind", kind, "waveform", tone.Waveform, "frequency", tone.Frequency)
	return nil
}

// Stop silences the current tone and waits for its writer to exit.
func (e *ToneEmitter) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked()
}

func (e *ToneEmitter) stopLocked() error {
	if !e.live {
		return nil
	}

	e.cancel()
	err := e.sink.Stop()
	<-e.done

	e.logger.Info("alarm tone stopped", "kind", e.kind)
	e.live = false
	e.cancel = nil
	e.done = nil
	if err != nil {
		return fmt.Errorf("stop %s sink: %w", e.sink.Name(), err)
	}
	return nil
}

// Playing returns the kind currently playing, if any.
func (e *ToneEmitter) Playing() (Kind, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.kind, e.live
}

// Close stops any tone and closes the sink.
func (e *ToneEmitter) Close() error {
	if err := e.Stop(); err != nil {
		e.logger.Warn("stop tone on close", "error", err)
	}
	return e.sink.Close()
}

func (e *ToneEmitter) play(ctx context.Context, tone Tone, done chan struct{}) {
	defer close(done)

	cfg := e.sink.Config()
	frames := cfg.BufferSize()
	if frames < 1 {
		frames = 1
	}
	s := newSynth(tone, cfg.SampleRate, cfg.Channels)

	for ctx.Err() == nil {
		chunk := audioio.AudioChunk{
			Samples:    s.render(frames),
			SampleRate: cfg.SampleRate,
			Channels:   cfg.Channels,
		}
		if err := e.sink.Write(ctx, chunk); err != nil {
			if ctx.Err() == nil {
				e.logger.Warn("alarm tone write failed", "error", err)
			}
			return
		}
	}
}

var _ Emitter = (*ToneEmitter)(nil)
