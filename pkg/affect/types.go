// Package affect turns a noisy stream of per-frame emotion scores into a
// temporally stable affect mode.
//
// The classifier keeps a short history of readings and one dwell timer per
// candidate mode. A mode is only selected once its timer has accumulated
// enough sustained signal, and modes are checked in a fixed priority order so
// urgent negative states pre-empt calmer ones.
package affect

// Mode is the discrete affect classification used to drive UI and hint behavior.
type Mode string

const (
	// ModeNeutral is the default when no dwell timer has qualified.
	ModeNeutral Mode = "neutral"

	// ModeAngryFrustrated has the highest priority.
	ModeAngryFrustrated Mode = "angry_frustrated"

	// ModeConfused is selected on a worsening surprise/fear trajectory.
	ModeConfused Mode = "confused"

	// ModeFocused requires unbroken neutral expression.
	ModeFocused Mode = "focused"

	// ModeTired is driven by sustained sadness.
	ModeTired Mode = "tired"

	// ModeCalmExploratory requires unbroken happiness or confidence.
	ModeCalmExploratory Mode = "calm_exploratory"
)

// Modes returns every mode in selection priority order, neutral last.
func Modes() []Mode {
	return []Mode{
		ModeAngryFrustrated,
		ModeConfused,
		ModeTired,
		ModeCalmExploratory,
		ModeFocused,
		ModeNeutral,
	}
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeNeutral, ModeAngryFrustrated, ModeConfused, ModeFocused, ModeTired, ModeCalmExploratory:
		return true
	default:
		return false
	}
}

// String returns the wire name of the mode.
func (m Mode) String() string {
	return string(m)
}

// AffectState is the classifier output. It is recomputed in full on every
// reading and never partially mutated.
type AffectState struct {
	Stress    float64 `json:"stress"`
	Bored     float64 `json:"bored"`
	Confused  float64 `json:"confused"`
	Confident float64 `json:"confident"`
	Mode      Mode    `json:"mode"`
}

// Timers holds one dwell accumulator (seconds) per candidate mode.
type Timers struct {
	Angry    float64 `json:"angry"`
	Tired    float64 `json:"tired"`
	Focused  float64 `json:"focused"`
	Calm     float64 `json:"calm"`
	Confused float64 `json:"confused"`
}

// State is everything the classifier carries between readings.
// It is a plain value: copying a State copies its history.
type State struct {
	History History     `json:"-"`
	Timers  Timers      `json:"timers"`
	Affect  AffectState `json:"affect"`
}

// NewState returns the initial classifier state: empty history, zero timers,
// neutral mode.
func NewState() State {
	return State{Affect: AffectState{Mode: ModeNeutral}}
}
