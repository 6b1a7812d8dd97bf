package affect

import (
	"encoding/json"
	"math"
	"strconv"
)

// Emotion labels produced by the frame analyzer.
const (
	LabelHappy     = "happy"
	LabelHappiness = "happiness"
	LabelSad       = "sad"
	LabelSadness   = "sadness"
	LabelAngry     = "angry"
	LabelAnger     = "anger"
	LabelFear      = "fear"
	LabelSurprise  = "surprise"
	LabelNeutral   = "neutral"
	LabelDisgust   = "disgust"
)

// Reading is one frame's emotion scores keyed by label.
// Labels may use either the short or the long form (happy/happiness).
type Reading map[string]float64

// Scores is a Reading with aliases resolved and missing labels set to zero.
type Scores struct {
	Happy    float64 `json:"happy"`
	Sad      float64 `json:"sad"`
	Angry    float64 `json:"angry"`
	Fear     float64 `json:"fear"`
	Surprise float64 `json:"surprise"`
	Neutral  float64 `json:"neutral"`
	Disgust  float64 `json:"disgust"`
}

// Canonical resolves aliased labels. The primary label wins when it carries a
// non-zero value, otherwise the alias is used, otherwise zero.
func (r Reading) Canonical() Scores {
	return Scores{
		Happy:    r.resolve(LabelHappy, LabelHappiness),
		Sad:      r.resolve(LabelSad, LabelSadness),
		Angry:    r.resolve(LabelAngry, LabelAnger),
		Fear:     r.resolve(LabelFear, ""),
		Surprise: r.resolve(LabelSurprise, ""),
		Neutral:  r.resolve(LabelNeutral, ""),
		Disgust:  r.resolve(LabelDisgust, ""),
	}
}

func (r Reading) resolve(primary, alias string) float64 {
	if v := finite(r[primary]); v != 0 {
		return v
	}
	if alias == "" {
		return 0
	}
	return finite(r[alias])
}

// UnmarshalJSON decodes a label map permissively. Values that are not numbers
// (null, strings that do not parse, nested objects) are dropped and therefore
// read as zero. A JSON null decodes to a nil Reading, meaning no scores.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*r = nil
		return nil
	}

	out := make(Reading, len(raw))
	for label, value := range raw {
		var f float64
		if err := json.Unmarshal(value, &f); err == nil {
			out[label] = finite(f)
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err == nil {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				out[label] = finite(f)
			}
		}
	}
	*r = out
	return nil
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
