package audioio

import (
	"fmt"
	"log/slog"
)

// NewSink creates a sink for cfg. BackendAuto picks the first installed
// player for the platform.
func NewSink(cfg Config, logger *slog.Logger) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	backend := cfg.Backend
	if backend == BackendAuto {
		b, err := detectBackend()
		if err != nil {
			return nil, err
		}
		backend = b
	}

	logger.Info("creating audio sink",
		"backend", backend,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"buffer_ms", cfg.BufferDuration.Milliseconds(),
	)

	if backend == BackendMock {
		return NewMockSink(cfg, logger), nil
	}
	p, ok := players[backend]
	if !ok {
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
	return newPipeSink(cfg, logger, string(backend), p.bin, p.args(cfg))
}

// NewSinkOrMock is NewSink, falling back to a mock sink when the platform
// player is unavailable. The fallback is logged so silent alarms are visible.
func NewSinkOrMock(cfg Config, logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	sink, err := NewSink(cfg, logger)
	if err != nil {
		logger.Warn("audio output unavailable, alarms will be silent", "error", err)
		return NewMockSink(cfg, logger)
	}
	return sink
}
