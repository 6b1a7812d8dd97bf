// Package detection finds people and phones in webcam frames and turns
// them into a presence status.
package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/teslashibe/go-focusguard/pkg/presence"
)

// COCO class IDs used for presence.
const (
	ClassPerson = 0
	ClassPhone  = 67
)

// ErrInvalidImage is returned for frames that cannot be decoded.
var ErrInvalidImage = errors.New("detection: invalid image")

// Detection is one object box in pixel coordinates.
type Detection struct {
	Box        image.Rectangle
	ClassID    int
	ClassName  string
	Confidence float64
}

// Area returns the box area in pixels.
func (d Detection) Area() int {
	return d.Box.Dx() * d.Box.Dy()
}

// Detector finds objects in a JPEG frame.
type Detector interface {
	Detect(jpeg []byte) ([]Detection, error)
	Close() error
}

// Config holds the presence rules.
type Config struct {
	ModelPath        string  `yaml:"model_path" json:"model_path"`
	BaseConfidence   float32 `yaml:"base_confidence" json:"base_confidence"` // model-level cut before per-class filtering
	NMSThresh        float32 `yaml:"nms_thresh" json:"nms_thresh"`
	PersonConfidence float64 `yaml:"person_confidence" json:"person_confidence"`
	PhoneConfidence  float64 `yaml:"phone_confidence" json:"phone_confidence"`
	InputWidth       int     `yaml:"input_width" json:"input_width"`
	InputHeight      int     `yaml:"input_height" json:"input_height"`
}

// DefaultConfig returns production defaults for YOLOv8n.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/yolov8n.onnx",
		BaseConfidence:   0.3,
		NMSThresh:        0.45,
		PersonConfidence: 0.6,
		PhoneConfidence:  0.4,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return fmt.Errorf("detection: input size must be positive, got %dx%d", c.InputWidth, c.InputHeight)
	}
	for name, v := range map[string]float64{
		"base_confidence":   float64(c.BaseConfidence),
		"nms_thresh":        float64(c.NMSThresh),
		"person_confidence": c.PersonConfidence,
		"phone_confidence":  c.PhoneConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("detection: %s must be in [0,1], got %v", name, v)
		}
	}
	return nil
}

// Intersects reports whether two boxes overlap with positive area.
// Boxes that only touch along an edge do not intersect.
func Intersects(a, b image.Rectangle) bool {
	return !a.Intersect(b).Empty()
}

// Classify maps detections to a presence status: no confident person is
// no_user, a confident phone overlapping any confident person is
// mobile_detected, anything else is ok.
func Classify(dets []Detection, cfg Config) presence.Status {
	var persons, phones []image.Rectangle
	for _, d := range dets {
		switch {
		case d.ClassID == ClassPerson && d.Confidence >= cfg.PersonConfidence:
			persons = append(persons, d.Box)
		case d.ClassID == ClassPhone && d.Confidence >= cfg.PhoneConfidence:
			phones = append(phones, d.Box)
		}
	}

	if len(persons) == 0 {
		return presence.StatusNoUser
	}
	for _, p := range persons {
		for _, ph := range phones {
			if Intersects(p, ph) {
				return presence.StatusMobileDetected
			}
		}
	}
	return presence.StatusOK
}

// PresenceDetector classifies frames with a local object detector.
type PresenceDetector struct {
	detector Detector
	cfg      Config
	logger   *slog.Logger
}

// NewPresenceDetector wraps d with the presence rules in cfg.
func NewPresenceDetector(d Detector, cfg Config, logger *slog.Logger) *PresenceDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &PresenceDetector{detector: d, cfg: cfg, logger: logger}
}

// DetectPresence runs the detector on one frame and classifies the result.
func (p *PresenceDetector) DetectPresence(ctx context.Context, jpeg []byte) (presence.Status, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dets, err := p.detector.Detect(jpeg)
	if err != nil {
		return "", err
	}
	status := Classify(dets, p.cfg)
	p.logger.Debug("presence detected", "status", status, "objects", len(dets))
	return status, nil
}

// Close releases the underlying detector.
func (p *PresenceDetector) Close() error {
	return p.detector.Close()
}
