package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-focusguard/internal/config"
	"github.com/teslashibe/go-focusguard/internal/log"
	"github.com/teslashibe/go-focusguard/pkg/analyzer"
	"github.com/teslashibe/go-focusguard/pkg/camera"
	"github.com/teslashibe/go-focusguard/pkg/protocol"
)

const reconnectDelay = 2 * time.Second

func agentCmd(cfg *config.Config) *cobra.Command {
	var (
		server    string
		sessionID string
		framesDir string
		rawFrames bool
	)

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Capture and analyze frames, pushing results to a server",
		Long: `Capture webcam frames, analyze them and push the results to a focusguard
server's /ws/analyzer endpoint. With --raw the frames themselves are pushed
and the server analyzes them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := log.With("component", "agent")

			var a analyzer.Analyzer
			if !rawFrames {
				built, closer, err := buildAnalyzer(cfg.AnalyzerURL, cfg.YOLOModel, logger)
				if err != nil {
					return err
				}
				defer closer.Close()
				a = built
			}

			var src camera.Source
			if framesDir != "" {
				fs, err := camera.NewFileSource(framesDir)
				if err != nil {
					return err
				}
				src = fs
			} else {
				camCfg := camera.DefaultConfig()
				camCfg.Device = cfg.CameraDevice
				cam, err := camera.OpenWebcam(camCfg, logger)
				if err != nil {
					return err
				}
				defer cam.Close()
				src = cam
			}

			wsURL, err := analyzer.AnalyzerURL(server, sessionID)
			if err != nil {
				return err
			}
			p := analyzer.NewPusher(wsURL, logger)
			p.OnAck = func(ack *protocol.AckData) {
				logger.Debug("ack", "frame", ack.FrameID, "seq", ack.Seq, "status", ack.Confirmed, "mode", ack.Mode, "alarm", ack.Alarm)
			}
			defer p.Close()

			ticker := time.NewTicker(cfg.TickInterval)
			defer ticker.Stop()

			var lastDial time.Time
			for {
				select {
				case <-ctx.Done():
					st := p.Stats()
					logger.Info("agent stopped", "sent", st.Sent, "acked", st.Acked)
					return nil
				case <-ticker.C:
				}

				if !p.Connected() {
					if time.Since(lastDial) < reconnectDelay {
						continue
					}
					lastDial = time.Now()
					if err := p.Connect(ctx); err != nil {
						logger.Warn("connect failed", "error", err)
						continue
					}
				}

				jpeg, err := src.CaptureJPEG(ctx)
				if err != nil {
					logger.Warn("capture failed", "error", err)
					continue
				}
				at := time.Now()

				if rawFrames {
					if _, err := p.PushFrame(jpeg, at); err != nil {
						logger.Warn("push failed", "error", err)
					}
					continue
				}

				res, err := a.Analyze(ctx, jpeg)
				if err != nil {
					logger.Warn("analyze failed", "error", err)
					continue
				}
				if _, err := p.Push(res, at); err != nil {
					logger.Warn("push failed", "error", err)
				}
			}
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:"+cfg.Port, "focusguard server base URL")
	cmd.Flags().StringVar(&sessionID, "session", "", "Only feed this session (default: whichever is active)")
	cmd.Flags().StringVar(&cfg.AnalyzerURL, "analyzer-url", cfg.AnalyzerURL, "Frame analyzer base URL")
	cmd.Flags().StringVar(&cfg.YOLOModel, "yolo", cfg.YOLOModel, "YOLOv8 ONNX model for local presence detection")
	cmd.Flags().StringVar(&cfg.CameraDevice, "device", cfg.CameraDevice, "Camera device index or path")
	cmd.Flags().StringVar(&framesDir, "frames", "", "Read frames from a directory of JPEG files")
	cmd.Flags().DurationVar(&cfg.TickInterval, "interval", cfg.TickInterval, "Capture interval")
	cmd.Flags().BoolVar(&rawFrames, "raw", false, "Push raw frames for server-side analysis")
	return cmd
}
