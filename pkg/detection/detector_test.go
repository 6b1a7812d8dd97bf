package detection

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/teslashibe/go-focusguard/pkg/presence"
)

func person(conf float64, r image.Rectangle) Detection {
	return Detection{Box: r, ClassID: ClassPerson, ClassName: "person", Confidence: conf}
}

func phone(conf float64, r image.Rectangle) Detection {
	return Detection{Box: r, ClassID: ClassPhone, ClassName: "cell phone", Confidence: conf}
}

func TestIntersects(t *testing.T) {
	base := image.Rect(100, 100, 300, 400)
	tests := []struct {
		name string
		b    image.Rectangle
		want bool
	}{
		{"contained", image.Rect(150, 200, 180, 260), true},
		{"partial overlap", image.Rect(280, 380, 350, 450), true},
		{"touching edge", image.Rect(300, 200, 340, 260), false},
		{"touching corner", image.Rect(300, 400, 320, 420), false},
		{"disjoint", image.Rect(500, 500, 540, 560), false},
		{"degenerate", image.Rect(150, 150, 150, 200), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Intersects(base, tt.b); got != tt.want {
				t.Errorf("Intersects() = %v, want %v", got, tt.want)
			}
			if got := Intersects(tt.b, base); got != tt.want {
				t.Errorf("Intersects() not symmetric")
			}
		})
	}
}

func TestClassify(t *testing.T) {
	cfg := DefaultConfig()
	body := image.Rect(100, 50, 400, 480)
	inHand := image.Rect(200, 300, 260, 380)
	onDesk := image.Rect(500, 400, 560, 460)

	tests := []struct {
		name string
		dets []Detection
		want presence.Status
	}{
		{"empty frame", nil, presence.StatusNoUser},
		{"weak person", []Detection{person(0.59, body)}, presence.StatusNoUser},
		{"phone only", []Detection{phone(0.9, inHand)}, presence.StatusNoUser},
		{"person", []Detection{person(0.6, body)}, presence.StatusOK},
		{"phone in hand", []Detection{person(0.8, body), phone(0.4, inHand)}, presence.StatusMobileDetected},
		{"weak phone in hand", []Detection{person(0.8, body), phone(0.39, inHand)}, presence.StatusOK},
		{"phone on desk", []Detection{person(0.8, body), phone(0.9, onDesk)}, presence.StatusOK},
		{"second person holds phone", []Detection{
			person(0.8, body),
			person(0.7, image.Rect(450, 350, 700, 480)),
			phone(0.5, onDesk),
		}, presence.StatusMobileDetected},
		{"other classes ignored", []Detection{
			person(0.8, body),
			{Box: inHand, ClassID: 41, ClassName: "cup", Confidence: 0.9},
		}, presence.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.dets, cfg); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	bad := cfg
	bad.PhoneConfidence = 1.5
	if err := bad.Validate(); err == nil {
		t.Error("expected error for confidence > 1")
	}

	bad = cfg
	bad.InputWidth = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero input width")
	}
}

type fakeDetector struct {
	dets   []Detection
	err    error
	closed bool
}

func (f *fakeDetector) Detect(jpeg []byte) ([]Detection, error) { return f.dets, f.err }
func (f *fakeDetector) Close() error                          { f.closed = true; return nil }

func TestPresenceDetector(t *testing.T) {
	fd := &fakeDetector{dets: []Detection{
		person(0.9, image.Rect(0, 0, 100, 200)),
		phone(0.8, image.Rect(40, 100, 60, 140)),
	}}
	pd := NewPresenceDetector(fd, DefaultConfig(), nil)

	status, err := pd.DetectPresence(context.Background(), []byte{0xFF, 0xD8})
	if err != nil {
		t.Fatalf("DetectPresence failed: %v", err)
	}
	if status != presence.StatusMobileDetected {
		t.Errorf("status = %s, want mobile_detected", status)
	}

	if err := pd.Close(); err != nil || !fd.closed {
		t.Error("Close should close the detector")
	}
}

func TestPresenceDetector_Errors(t *testing.T) {
	pd := NewPresenceDetector(&fakeDetector{err: ErrInvalidImage}, DefaultConfig(), nil)
	if _, err := pd.DetectPresence(context.Background(), []byte{1}); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("error = %v, want ErrInvalidImage", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pd.DetectPresence(ctx, []byte{1}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestCOCOClasses(t *testing.T) {
	if len(COCOClasses) != 80 {
		t.Fatalf("COCOClasses has %d entries, want 80", len(COCOClasses))
	}
	if COCOClasses[ClassPerson] != "person" || COCOClasses[ClassPhone] != "cell phone" {
		t.Error("presence class IDs do not match COCO names")
	}
}
