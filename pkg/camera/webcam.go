package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoFrame is returned when the device delivers no image.
var ErrNoFrame = errors.New("camera: no frame")

// Source produces JPEG frames.
type Source interface {
	CaptureJPEG(ctx context.Context) ([]byte, error)
}

// Webcam captures frames from a local video device through OpenCV.
type Webcam struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	frame  gocv.Mat
	cfg    Config
	logger *slog.Logger
}

// OpenWebcam opens the device named in cfg and applies its settings.
func OpenWebcam(cfg Config, logger *slog.Logger) (*Webcam, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera: invalid config: %v", errs)
	}
	if logger == nil {
		logger = slog.Default()
	}

	vc, err := gocv.OpenVideoCapture(cfg.DeviceID())
	if err != nil {
		return nil, fmt.Errorf("camera: open %s: %w", cfg.Device, err)
	}

	w := &Webcam{
		cap:    vc,
		frame:  gocv.NewMat(),
		cfg:    cfg,
		logger: logger,
	}
	w.applyLocked(cfg)
	logger.Info("webcam opened", "device", cfg.Device, "width", cfg.Width, "height", cfg.Height)
	return w, nil
}

// Apply updates capture settings, reopening the device if it changed.
// It is meant for Manager.OnConfigChange.
func (w *Webcam) Apply(cfg Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap == nil {
		return ErrNoFrame
	}
	if cfg.Device != w.cfg.Device {
		vc, err := gocv.OpenVideoCapture(cfg.DeviceID())
		if err != nil {
			return fmt.Errorf("camera: open %s: %w", cfg.Device, err)
		}
		w.cap.Close()
		w.cap = vc
		w.logger.Info("webcam switched", "device", cfg.Device)
	}
	w.applyLocked(cfg)
	return nil
}

func (w *Webcam) applyLocked(cfg Config) {
	w.cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	w.cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	w.cap.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	if cfg.Brightness != 0 {
		// OpenCV expects the driver's 0..1 range
		w.cap.Set(gocv.VideoCaptureBrightness, 0.5+cfg.Brightness/2)
	}
	w.cfg = cfg
}

// CaptureJPEG grabs the next frame and encodes it as JPEG.
func (w *Webcam) CaptureJPEG(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap == nil {
		return nil, ErrNoFrame
	}
	if ok := w.cap.Read(&w.frame); !ok || w.frame.Empty() {
		return nil, ErrNoFrame
	}
	if w.cfg.Mirror {
		gocv.Flip(w.frame, &w.frame, 1)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, w.frame, []int{gocv.IMWriteJpegQuality, w.cfg.Quality})
	if err != nil {
		return nil, fmt.Errorf("camera: encode: %w", err)
	}
	defer buf.Close()

	// buf's memory belongs to OpenCV
	return append([]byte(nil), buf.GetBytes()...), nil
}

// Close releases the device.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap == nil {
		return nil
	}
	err := w.cap.Close()
	w.frame.Close()
	w.cap = nil
	return err
}

var _ Source = (*Webcam)(nil)
