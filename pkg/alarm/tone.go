package alarm

import (
	"fmt"
	"math"
	"time"
)

// Waveform is the oscillator shape of a tone.
type Waveform string

const (
	WaveSine     Waveform = "sine"
	WaveSquare   Waveform = "square"
	WaveSawtooth Waveform = "sawtooth"
	WaveTriangle Waveform = "triangle"
)

// GateInterval is how often a tone's pulse pattern is re-evaluated.
const GateInterval = 50 * time.Millisecond

// Pulse is a window of a tone's period during which it is audible.
// Start is inclusive, End exclusive.
type Pulse struct {
	Start time.Duration `yaml:"start" json:"start"`
	End   time.Duration `yaml:"end" json:"end"`
}

// Tone describes one alarm sound.
type Tone struct {
	Waveform  Waveform `yaml:"waveform" json:"waveform"`
	Frequency float64  `yaml:"frequency" json:"frequency"`
	Gain      float64  `yaml:"gain" json:"gain"`

	// Period and Pulses gate the tone on and off. No pulses means continuous.
	Period time.Duration `yaml:"period" json:"period"`
	Pulses []Pulse       `yaml:"pulses" json:"pulses"`

	// Smoothing is the time constant of gain changes between gate states.
	Smoothing time.Duration `yaml:"smoothing" json:"smoothing"`
}

// Tones is the tone used for each alarm kind.
type Tones struct {
	Loud Tone `yaml:"loud" json:"loud"`
	Mild Tone `yaml:"mild" json:"mild"`
}

// DefaultTones returns the stock alarm sounds: a continuous full-volume
// 950 Hz sawtooth, and an 800 Hz triangle beeping twice every second.
func DefaultTones() Tones {
	return Tones{
		Loud: Tone{
			Waveform:  WaveSawtooth,
			Frequency: 950,
			Gain:      1.0,
		},
		Mild: Tone{
			Waveform:  WaveTriangle,
			Frequency: 800,
			Gain:      0.4,
			Period:    time.Second,
			Pulses: []Pulse{
				{Start: 0, End: 100 * time.Millisecond},
				{Start: 200 * time.Millisecond, End: 300 * time.Millisecond},
			},
			Smoothing: 20 * time.Millisecond,
		},
	}
}

// For returns the tone for kind.
func (t Tones) For(kind Kind) (Tone, error) {
	switch kind {
	case KindLoud:
		return t.Loud, nil
	case KindMild:
		return t.Mild, nil
	default:
		return Tone{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Validate checks both tones.
func (t Tones) Validate() error {
	if err := t.Loud.Validate(); err != nil {
		return fmt.Errorf("loud: %w", err)
	}
	if err := t.Mild.Validate(); err != nil {
		return fmt.Errorf("mild: %w", err)
	}
	return nil
}

// Validate checks that the tone can be synthesized.
func (t Tone) Validate() error {
	switch t.Waveform {
	case WaveSine, WaveSquare, WaveSawtooth, WaveTriangle:
	default:
		return fmt.Errorf("%w: waveform %q", ErrInvalidTone, t.Waveform)
	}
	if t.Frequency <= 0 {
		return fmt.Errorf("%w: frequency must be positive, got %v", ErrInvalidTone, t.Frequency)
	}
	if t.Gain < 0 || t.Gain > 1 {
		return fmt.Errorf("%w: gain must be within [0,1], got %v", ErrInvalidTone, t.Gain)
	}
	if len(t.Pulses) > 0 && t.Period <= 0 {
		return fmt.Errorf("%w: pulses need a positive period", ErrInvalidTone)
	}
	for i, p := range t.Pulses {
		if p.Start < 0 || p.End <= p.Start || p.End > t.Period {
			return fmt.Errorf("%w: pulse %d [%v,%v) outside period %v", ErrInvalidTone, i, p.Start, p.End, t.Period)
		}
	}
	return nil
}

// gate returns 1 when the tone is audible at offset, 0 otherwise.
func (t Tone) gate(offset time.Duration) float64 {
	if len(t.Pulses) == 0 {
		return 1
	}
	pos := offset % t.Period
	for _, p := range t.Pulses {
		if pos >= p.Start && pos < p.End {
			return 1
		}
	}
	return 0
}

// synth renders a Tone into PCM16 frames. It is not safe for concurrent use.
type synth struct {
	tone     Tone
	rate     int
	channels int

	phase  float64 // oscillator phase in [0,1)
	gain   float64 // current smoothed gain
	target float64
	alpha  float64 // per-sample smoothing factor
	frame  int64   // frames rendered so far
	gateAt int64   // next frame at which the gate is re-evaluated
}

func newSynth(t Tone, rate, channels int) *synth {
	s := &synth{
		tone:     t,
		rate:     rate,
		channels: channels,
		alpha:    1,
	}
	if t.Smoothing > 0 {
		s.alpha = 1 - math.Exp(-1/(t.Smoothing.Seconds()*float64(rate)))
	}
	s.target = t.Gain * t.gate(0)
	s.gain = s.target
	return s
}

// render produces the next n frames, interleaved across channels.
func (s *synth) render(n int) []int16 {
	out := make([]int16, n*s.channels)
	step := s.tone.Frequency / float64(s.rate)
	gateFrames := int64(GateInterval.Seconds() * float64(s.rate))
	if gateFrames < 1 {
		gateFrames = 1
	}

	for i := 0; i < n; i++ {
		if s.frame >= s.gateAt {
			offset := time.Duration(s.frame) * time.Second / time.Duration(s.rate)
			s.target = s.tone.Gain * s.tone.gate(offset)
			s.gateAt = s.frame + gateFrames
		}
		s.gain += (s.target - s.gain) * s.alpha

		v := s.gain * wave(s.tone.Waveform, s.phase)
		sample := int16(math.Round(math.Max(-1, math.Min(1, v)) * math.MaxInt16))
		for ch := 0; ch < s.channels; ch++ {
			out[i*s.channels+ch] = sample
		}

		s.phase += step
		s.phase -= math.Floor(s.phase)
		s.frame++
	}
	return out
}

// wave evaluates a unit-amplitude waveform at phase p in [0,1).
func wave(w Waveform, p float64) float64 {
	switch w {
	case WaveSquare:
		if p < 0.5 {
			return 1
		}
		return -1
	case WaveSawtooth:
		return 2*p - 1
	case WaveTriangle:
		return 1 - 4*math.Abs(p-0.5)
	default:
		return math.Sin(2 * math.Pi * p)
	}
}
