package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/teslashibe/go-focusguard/internal/config"
	"github.com/teslashibe/go-focusguard/internal/log"
	"github.com/teslashibe/go-focusguard/pkg/alarm"
	"github.com/teslashibe/go-focusguard/pkg/analyzer"
	"github.com/teslashibe/go-focusguard/pkg/camera"
	"github.com/teslashibe/go-focusguard/pkg/hints"
	"github.com/teslashibe/go-focusguard/pkg/ingest"
	"github.com/teslashibe/go-focusguard/pkg/journal"
	"github.com/teslashibe/go-focusguard/pkg/metrics"
	"github.com/teslashibe/go-focusguard/pkg/session"
	"github.com/teslashibe/go-focusguard/pkg/web"
)

func serveCmd(cfg *config.Config) *cobra.Command {
	var (
		withCamera bool
		framesDir  string
		staticDir  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard and ingest server",
		Long: `Serve the dashboard API, the /ws/state feed and the /ws/analyzer ingest
endpoint. With --camera (or --frames) the server also captures and
analyzes frames itself while a session is active.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			logger := log.L()

			tune, err := loadTuning(cfg.TuningFile)
			if err != nil {
				return err
			}
			table := hints.Default()
			if cfg.HintsFile != "" {
				if table, err = hints.Load(cfg.HintsFile); err != nil {
					return err
				}
			}

			emitter, err := newToneEmitter(cfg.AudioBackend, cfg.AudioDevice, tune.Tones, logger)
			if err != nil {
				return err
			}
			defer emitter.Close()

			sess := session.New(tune.Session, alarm.NewController(emitter, logger), logger)

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m := metrics.New(reg)
			sess.Subscribe(m.Observe)

			opts := []web.Option{web.WithHints(table), web.WithMetrics(reg)}

			if cfg.JournalPath != "" {
				j, err := journal.Open(cfg.JournalPath, logger)
				if err != nil {
					return err
				}
				defer j.Close()
				sess.Subscribe(j.Observe)
				opts = append(opts, web.WithJournal(j))
			}

			// Raw frames pushed by agents are analyzed here; results are not.
			var frameAnalyzer analyzer.Analyzer
			if cfg.AnalyzerURL != "" || cfg.YOLOModel != "" {
				a, closer, err := buildAnalyzer(cfg.AnalyzerURL, cfg.YOLOModel, logger)
				if err != nil {
					return err
				}
				defer closer.Close()
				frameAnalyzer = m.Instrument(a)
			}
			opts = append(opts, web.WithIngest(ingest.NewHub(sess, frameAnalyzer, logger)))

			if withCamera || framesDir != "" {
				if frameAnalyzer == nil {
					return fmt.Errorf("local capture needs an analyzer: set ANALYZER_URL or YOLO_MODEL")
				}

				var src session.FrameSource
				if framesDir != "" {
					fs, err := camera.NewFileSource(framesDir)
					if err != nil {
						return err
					}
					logger.Info("replaying frames", "dir", framesDir, "frames", fs.Len())
					src = fs
				} else {
					camCfg := camera.DefaultConfig()
					camCfg.Device = cfg.CameraDevice
					cam, err := camera.OpenWebcam(camCfg, logger)
					if err != nil {
						return err
					}
					defer cam.Close()

					mgr := camera.NewManager(camCfg)
					mgr.OnConfigChange = cam.Apply
					opts = append(opts, web.WithCamera(mgr))
					src = cam
				}

				runner := session.NewRunner(sess, src, frameAnalyzer, cfg.TickInterval, logger)
				runnerDone := make(chan struct{})
				go func() {
					defer close(runnerDone)
					runner.Follow(ctx)
				}()
				defer func() {
					cancel()
					<-runnerDone
				}()
			}

			if staticDir != "" {
				opts = append(opts, web.WithStatic(staticDir))
			}

			srv := web.NewServer(cfg.Port, sess, logger, opts...)
			err = srv.Start(ctx)

			if stopErr := sess.Stop(); stopErr != nil && !session.IsInactive(stopErr) {
				logger.Warn("session stop failed", "error", stopErr)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&cfg.Port, "port", cfg.Port, "HTTP port")
	cmd.Flags().StringVar(&cfg.AnalyzerURL, "analyzer-url", cfg.AnalyzerURL, "Frame analyzer base URL (empty disables server-side analysis)")
	cmd.Flags().StringVar(&cfg.YOLOModel, "yolo", cfg.YOLOModel, "YOLOv8 ONNX model for local presence detection")
	cmd.Flags().StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "SQLite journal path (empty disables)")
	cmd.Flags().StringVar(&cfg.CameraDevice, "device", cfg.CameraDevice, "Camera device index or path")
	cmd.Flags().DurationVar(&cfg.TickInterval, "interval", cfg.TickInterval, "Capture interval")
	cmd.Flags().BoolVar(&withCamera, "camera", false, "Capture from the local camera")
	cmd.Flags().StringVar(&framesDir, "frames", "", "Capture from a directory of JPEG files instead of a camera")
	cmd.Flags().StringVar(&staticDir, "static", "", "Serve a dashboard frontend from this directory")
	return cmd
}
