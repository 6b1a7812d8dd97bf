package affect

import (
	"encoding/json"
	"math"
	"testing"
)

func TestReading_Canonical(t *testing.T) {
	tests := []struct {
		name string
		in   Reading
		want Scores
	}{
		{"empty", Reading{}, Scores{}},
		{"nil", nil, Scores{}},
		{"long aliases", Reading{"happiness": 0.7, "sadness": 0.2, "anger": 0.1}, Scores{Happy: 0.7, Sad: 0.2, Angry: 0.1}},
		{"primary wins", Reading{"happy": 0.2, "happiness": 0.9}, Scores{Happy: 0.2}},
		{"zero primary falls back", Reading{"happy": 0, "happiness": 0.9}, Scores{Happy: 0.9}},
		{"non-finite is zero", Reading{"fear": math.NaN(), "surprise": math.Inf(1)}, Scores{}},
		{"unknown labels ignored", Reading{"contempt": 0.8, "neutral": 0.5}, Scores{Neutral: 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Canonical(); got != tt.want {
				t.Errorf("Canonical() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestReading_UnmarshalJSONPermissive(t *testing.T) {
	data := []byte(`{"happy": 0.5, "sad": null, "anger": "0.25", "fear": {"x": 1}, "surprise": "n/a", "neutral": 0.1}`)

	var r Reading
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	got := r.Canonical()
	want := Scores{Happy: 0.5, Angry: 0.25, Neutral: 0.1}
	if got != want {
		t.Errorf("Canonical() = %+v, want %+v", got, want)
	}
}

func TestReading_UnmarshalJSONNull(t *testing.T) {
	var payload struct {
		Scores Reading `json:"scores"`
	}
	if err := json.Unmarshal([]byte(`{"scores": null}`), &payload); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if payload.Scores != nil {
		t.Errorf("Scores = %v, want nil", payload.Scores)
	}
}

func TestReading_UnmarshalJSONRejectsNonObject(t *testing.T) {
	var r Reading
	if err := json.Unmarshal([]byte(`[1,2,3]`), &r); err == nil {
		t.Error("expected an error for a non-object payload")
	}
}

func TestMode_Valid(t *testing.T) {
	for _, m := range Modes() {
		if !m.Valid() {
			t.Errorf("%s should be valid", m)
		}
	}
	if Mode("sleepy").Valid() {
		t.Error("unknown mode should not be valid")
	}
}
