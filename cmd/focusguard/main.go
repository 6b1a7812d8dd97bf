// Command focusguard watches a webcam for distraction and absence, tracks
// the user's affect mode and sounds alarm tones.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-focusguard/internal/config"
	"github.com/teslashibe/go-focusguard/internal/log"
	"github.com/teslashibe/go-focusguard/pkg/alarm"
	"github.com/teslashibe/go-focusguard/pkg/analyzer"
	"github.com/teslashibe/go-focusguard/pkg/audioio"
	"github.com/teslashibe/go-focusguard/pkg/detection"
	"github.com/teslashibe/go-focusguard/pkg/tuning"
)

// Version information (set at build time)
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:          "focusguard",
		Short:        "Focus monitor: presence debouncing, affect modes and alarm tones",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			log.Init(level)
			return cfg.Validate()
		},
	}
	rootCmd.PersistentFlags().String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		serveCmd(&cfg),
		agentCmd(&cfg),
		replayCmd(&cfg),
		sessionsCmd(&cfg),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadTuning reads the tuning file, or returns defaults when path is empty.
func loadTuning(path string) (tuning.Tuning, error) {
	t, err := tuning.Load(path)
	if err != nil {
		return tuning.Tuning{}, err
	}
	if path != "" {
		log.Info("tuning loaded", "file", path)
	}
	return t, nil
}

// newToneEmitter opens the audio sink for alarm tones. A missing player
// degrades to a silent mock sink.
func newToneEmitter(backend, device string, tones alarm.Tones, logger *slog.Logger) (*alarm.ToneEmitter, error) {
	b, err := audioio.ParseBackend(backend)
	if err != nil {
		return nil, err
	}
	acfg := audioio.DefaultConfig()
	acfg.Backend = b
	acfg.Device = device

	return alarm.NewToneEmitter(audioio.NewSinkOrMock(acfg, logger), tones, logger)
}

// buildAnalyzer assembles the frame analyzer: the remote service at url,
// optionally behind a local YOLO presence check. The returned closer
// releases the detector.
func buildAnalyzer(url, yoloModel string, logger *slog.Logger) (analyzer.Analyzer, io.Closer, error) {
	var emotion analyzer.Analyzer
	if url != "" {
		emotion = analyzer.NewHTTPClient(url, analyzer.WithLogger(logger))
	}

	if yoloModel == "" {
		if emotion == nil {
			return nil, nil, errors.New("no analyzer configured: set --analyzer-url or --yolo")
		}
		return emotion, nopCloser{}, nil
	}

	dcfg := detection.DefaultConfig()
	dcfg.ModelPath = yoloModel
	yolo, err := detection.NewYOLO(dcfg)
	if err != nil {
		return nil, nil, err
	}
	pd := detection.NewPresenceDetector(yolo, dcfg, logger)
	logger.Info("local presence detection enabled", "model", yoloModel)

	return &analyzer.Chain{Presence: pd, Emotion: emotion}, pd, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
