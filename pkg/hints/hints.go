// Package hints maps affect modes to UI adjustments and hint policy for
// front ends.
package hints

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/teslashibe/go-focusguard/pkg/affect"
	"gopkg.in/yaml.v3"
)

//go:embed modes.yaml
var defaultTable []byte

// DefaultKey names the record used for modes without their own entry.
const DefaultKey = "default"

// UI lists presentation adjustments. Unset fields mean "leave as is".
type UI struct {
	Theme                     string   `yaml:"theme,omitempty" json:"theme,omitempty"`
	BrightnessAdjustment      *float64 `yaml:"brightness_adjustment,omitempty" json:"brightness_adjustment,omitempty"`
	FontSizeAdjustment        *float64 `yaml:"font_size_adjustment,omitempty" json:"font_size_adjustment,omitempty"`
	HidePanels                []string `yaml:"hide_panels,omitempty" json:"hide_panels,omitempty"`
	ShowPanels                []string `yaml:"show_panels,omitempty" json:"show_panels,omitempty"`
	OpenPanels                []string `yaml:"open_panels,omitempty" json:"open_panels,omitempty"`
	FocusPanel                string   `yaml:"focus_panel,omitempty" json:"focus_panel,omitempty"`
	HighlightPrimaryErrorOnly bool     `yaml:"highlight_primary_error_only,omitempty" json:"highlight_primary_error_only,omitempty"`
	DisableNotifications      bool     `yaml:"disable_notifications,omitempty" json:"disable_notifications,omitempty"`
	HighlightActiveFile       bool     `yaml:"highlight_active_file,omitempty" json:"highlight_active_file,omitempty"`
	DimInactiveTabs           bool     `yaml:"dim_inactive_tabs,omitempty" json:"dim_inactive_tabs,omitempty"`
	ShowInlineVariableValues  bool     `yaml:"show_inline_variable_values,omitempty" json:"show_inline_variable_values,omitempty"`
	HideChatPanel             bool     `yaml:"hide_chat_panel,omitempty" json:"hide_chat_panel,omitempty"`
	ReduceAnimations          bool     `yaml:"reduce_animations,omitempty" json:"reduce_animations,omitempty"`
	SlowAnimations            bool     `yaml:"slow_animations,omitempty" json:"slow_animations,omitempty"`
	MinimizeInlineHints       bool     `yaml:"minimize_inline_hints,omitempty" json:"minimize_inline_hints,omitempty"`
	IncreaseContrast          bool     `yaml:"increase_contrast,omitempty" json:"increase_contrast,omitempty"`
	IncreaseLineSpacing       bool     `yaml:"increase_line_spacing,omitempty" json:"increase_line_spacing,omitempty"`
	SoftHighlightCurrentLine  bool     `yaml:"soft_highlight_current_line,omitempty" json:"soft_highlight_current_line,omitempty"`
	HighlightCodeSmells       bool     `yaml:"highlight_code_smells,omitempty" json:"highlight_code_smells,omitempty"`
	EnableSideSuggestions     bool     `yaml:"enable_side_suggestions,omitempty" json:"enable_side_suggestions,omitempty"`
}

// Policy controls when and how hints are shown.
type Policy struct {
	AutoShow            bool     `yaml:"auto_show" json:"auto_show"`
	Tone                string   `yaml:"tone" json:"tone"`
	MaxHints            int      `yaml:"max_hints,omitempty" json:"max_hints,omitempty"`
	Style               string   `yaml:"style,omitempty" json:"style,omitempty"`
	Explanation         *bool    `yaml:"explanation,omitempty" json:"explanation,omitempty"`
	Alternatives        *bool    `yaml:"alternatives,omitempty" json:"alternatives,omitempty"`
	Examples            []string `yaml:"examples,omitempty" json:"examples,omitempty"`
	ProgressiveReveal   bool     `yaml:"progressive_reveal,omitempty" json:"progressive_reveal,omitempty"`
	Levels              []string `yaml:"levels,omitempty" json:"levels,omitempty"`
	OnRequestOnly       bool     `yaml:"on_request_only,omitempty" json:"on_request_only,omitempty"`
	SummarizeErrorFirst bool     `yaml:"summarize_error_first,omitempty" json:"summarize_error_first,omitempty"`
	DetailLevel         string   `yaml:"detail_level,omitempty" json:"detail_level,omitempty"`
	SafeSuggestionsOnly bool     `yaml:"safe_suggestions_only,omitempty" json:"safe_suggestions_only,omitempty"`
	MultipleOptions     bool     `yaml:"multiple_options,omitempty" json:"multiple_options,omitempty"`
	ShowTradeoffs       bool     `yaml:"show_tradeoffs,omitempty" json:"show_tradeoffs,omitempty"`
}

// Record is the configuration for one mode.
type Record struct {
	UI    UI     `yaml:"ui" json:"ui"`
	Hints Policy `yaml:"hints" json:"hints"`
}

// Table maps mode names to records.
type Table map[string]Record

// Default returns the built-in table.
func Default() Table {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("hints: built-in table: %v", err))
	}
	return t
}

// Parse decodes a YAML table. It must contain a default record.
func Parse(data []byte) (Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("hints: parse: %w", err)
	}
	if _, ok := t[DefaultKey]; !ok {
		return nil, fmt.Errorf("hints: missing %q record", DefaultKey)
	}
	for name := range t {
		if name != DefaultKey && !affect.Mode(name).Valid() {
			return nil, fmt.Errorf("hints: unknown mode %q", name)
		}
	}
	return t, nil
}

// Load reads a YAML table from path.
func Load(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hints: %w", err)
	}
	return Parse(data)
}

// Lookup returns the record for mode, falling back to the default record.
// ok is false only for names that are not affect modes.
func (t Table) Lookup(mode affect.Mode) (Record, bool) {
	if !mode.Valid() {
		return Record{}, false
	}
	if r, found := t[string(mode)]; found {
		return r, true
	}
	return t[DefaultKey], true
}
