package audioio

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Backend = BackendMock
	cfg.BufferDuration = 10 * time.Millisecond
	return cfg
}

func chunkOf(cfg Config, frames int) AudioChunk {
	return AudioChunk{
		Samples:    make([]int16, frames*cfg.Channels),
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
	}
}

func TestMockSink_StartStop(t *testing.T) {
	sink := NewMockSink(testConfig(), nil)
	defer sink.Close()

	ctx := context.Background()

	if err := sink.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Starting again should be a no-op
	if err := sink.Start(ctx); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}
	if got := sink.Stats().Starts; got != 1 {
		t.Errorf("Starts = %d, want 1", got)
	}

	if err := sink.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	// Stopping again should be a no-op
	if err := sink.Stop(); err != nil {
		t.Fatalf("Second Stop failed: %v", err)
	}
	if sink.Stats().Running {
		t.Error("sink should not be running after Stop")
	}
}

func TestMockSink_WriteRequiresStart(t *testing.T) {
	cfg := testConfig()
	sink := NewMockSink(cfg, nil)
	defer sink.Close()

	err := sink.Write(context.Background(), chunkOf(cfg, 10))
	if !errors.Is(err, ErrNotRunning) {
		t.Errorf("Write before Start = %v, want ErrNotRunning", err)
	}
}

func TestMockSink_WriteIsPaced(t *testing.T) {
	cfg := testConfig()
	sink := NewMockSink(cfg, nil)
	defer sink.Close()

	ctx := context.Background()
	if err := sink.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	chunk := chunkOf(cfg, cfg.BufferSize())
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := sink.Write(ctx, chunk); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("3 writes of 10ms took %v, want paced playback", elapsed)
	}

	stats := sink.Stats()
	if stats.ChunksWritten != 3 {
		t.Errorf("ChunksWritten = %d, want 3", stats.ChunksWritten)
	}
	if stats.SamplesWritten != int64(3*len(chunk.Samples)) {
		t.Errorf("SamplesWritten = %d, want %d", stats.SamplesWritten, 3*len(chunk.Samples))
	}
	if len(sink.Recent()) != 3 {
		t.Errorf("len(Recent()) = %d, want 3", len(sink.Recent()))
	}
}

func TestMockSink_StopWakesWriter(t *testing.T) {
	cfg := testConfig()
	sink := NewMockSink(cfg, nil)
	defer sink.Close()

	ctx := context.Background()
	if err := sink.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		// ten seconds of audio
		done <- sink.Write(ctx, chunkOf(cfg, cfg.SampleRate*10))
	}()

	time.Sleep(20 * time.Millisecond)
	sink.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Write returned %v after Stop, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Write still blocked after Stop")
	}
}

func TestMockSink_RecentIsBounded(t *testing.T) {
	cfg := testConfig()
	sink := NewMockSink(cfg, nil)
	defer sink.Close()

	ctx := context.Background()
	sink.Start(ctx)

	empty := AudioChunk{SampleRate: cfg.SampleRate, Channels: cfg.Channels}
	for i := 0; i < mockRetain+10; i++ {
		if err := sink.Write(ctx, empty); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if got := len(sink.Recent()); got != mockRetain {
		t.Errorf("len(Recent()) = %d, want %d", got, mockRetain)
	}
}

func TestMockSink_Closed(t *testing.T) {
	sink := NewMockSink(testConfig(), nil)
	sink.Close()

	if err := sink.Start(context.Background()); err != io.ErrClosedPipe {
		t.Errorf("Start after Close = %v, want io.ErrClosedPipe", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestAudioChunk(t *testing.T) {
	c := AudioChunk{Samples: []int16{1, -2, 0x1234}, SampleRate: 3, Channels: 1}

	want := []byte{0x01, 0x00, 0xfe, 0xff, 0x34, 0x12}
	got := c.Bytes()
	if string(got) != string(want) {
		t.Errorf("Bytes() = %x, want %x", got, want)
	}
	if c.Duration() != time.Second {
		t.Errorf("Duration() = %v, want 1s", c.Duration())
	}
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.BufferSize() != 800 {
		t.Errorf("BufferSize() = %d, want 800", cfg.BufferSize())
	}
	if cfg.BufferBytes() != 1600 {
		t.Errorf("BufferBytes() = %d, want 1600", cfg.BufferBytes())
	}

	bad := cfg
	bad.SampleRate = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"", BackendAuto, false},
		{"mock", BackendMock, false},
		{"alsa", BackendALSA, false},
		{"pulse", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseBackend(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestNewSink_Mock(t *testing.T) {
	sink, err := NewSink(testConfig(), nil)
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}
	defer sink.Close()
	if sink.Name() != "mock" {
		t.Errorf("Name() = %q, want mock", sink.Name())
	}
}

func TestNewSinkOrMock_FallsBack(t *testing.T) {
	cfg := testConfig()
	cfg.Backend = Backend("nonexistent")
	sink := NewSinkOrMock(cfg, nil)
	defer sink.Close()
	if sink.Name() != "mock" {
		t.Errorf("Name() = %q, want mock fallback", sink.Name())
	}
}

func TestDetectBackend(t *testing.T) {
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })

	tests := []struct {
		name      string
		installed map[string]bool
		wantErr   bool
	}{
		{"nothing installed", map[string]bool{}, true},
		{"sox only", map[string]bool{"play": true}, false},
		{"both", map[string]bool{"aplay": true, "play": true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookPath = func(bin string) (string, error) {
				if tt.installed[bin] {
					return "/usr/bin/" + bin, nil
				}
				return "", errors.New("not found")
			}
			b, err := detectBackend()
			if (err != nil) != tt.wantErr {
				t.Fatalf("detectBackend() = %q, %v", b, err)
			}
			if err == nil && !tt.installed[players[b].bin] {
				t.Errorf("picked %s, whose player is not installed", b)
			}
			if got := AvailableBackends(); got[0] != BackendMock {
				t.Errorf("AvailableBackends() = %v, want mock first", got)
			}
		})
	}
}

func TestPreference(t *testing.T) {
	if got := preference("linux"); got[0] != BackendALSA {
		t.Errorf("linux prefers %v", got)
	}
	if got := preference("darwin"); len(got) != 1 || got[0] != BackendSox {
		t.Errorf("darwin prefers %v", got)
	}
}

func TestPlayerArgs(t *testing.T) {
	cfg := testConfig()
	args := players[BackendALSA].args(cfg)
	if args[len(args)-2] != "default" || args[len(args)-1] != "-" {
		t.Errorf("aplay args = %v", args)
	}
	cfg.Device = "plughw:1,0"
	args = players[BackendALSA].args(cfg)
	if args[len(args)-2] != "plughw:1,0" {
		t.Errorf("aplay device = %v", args)
	}
	if args := players[BackendSox].args(cfg); args[len(args)-1] != "-" {
		t.Errorf("play args = %v", args)
	}
}
