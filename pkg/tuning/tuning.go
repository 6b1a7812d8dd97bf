// Package tuning loads the empirically chosen constants of the affect
// classifier, the status debouncer and the alarm tones from a YAML file.
package tuning

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/teslashibe/go-focusguard/pkg/alarm"
	"github.com/teslashibe/go-focusguard/pkg/session"
	"gopkg.in/yaml.v3"
)

// Tuning is the full set of tunable constants.
type Tuning struct {
	Session session.Config `yaml:"session" json:"session"`
	Tones   alarm.Tones    `yaml:"tones" json:"tones"`
}

// Default returns the production tuning.
func Default() Tuning {
	return Tuning{
		Session: session.DefaultConfig(),
		Tones:   alarm.DefaultTones(),
	}
}

// Validate checks every section.
func (t *Tuning) Validate() error {
	if err := t.Session.Validate(); err != nil {
		return fmt.Errorf("tuning: session: %w", err)
	}
	if err := t.Tones.Validate(); err != nil {
		return fmt.Errorf("tuning: tones: %w", err)
	}
	return nil
}

// Parse overlays YAML on the defaults: keys that are absent keep their
// default value. Unknown keys are rejected so typos do not go unnoticed.
func Parse(data []byte) (Tuning, error) {
	t := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return Tuning{}, fmt.Errorf("tuning: parse: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

// Load reads a tuning file. An empty path returns the defaults.
func Load(path string) (Tuning, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("tuning: %w", err)
	}
	return Parse(data)
}

// Marshal renders t as YAML, e.g. to seed a tuning file.
func Marshal(t Tuning) ([]byte, error) {
	return yaml.Marshal(t)
}
