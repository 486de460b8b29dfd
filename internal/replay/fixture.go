package replay

import (
	"encoding/json"
	"fmt"
	"os"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay scenario: a
// scripted sequence of utterances, injected commands, and clock
// advances, with the store distances and model replies each step
// should see.
type Fixture struct {
	Description string        `json:"description"`
	Config      FixtureConfig `json:"config"`
	Steps       []Step        `json:"steps"`
	Expected    []Expectation `json:"expected"`
}

// FixtureConfig overrides engine and execution policy for the run.
// Zero values fall back to the defaults.
type FixtureConfig struct {
	WakeTimeoutSeconds float64 `json:"wake_timeout_seconds"`
	RiskThreshold      float64 `json:"risk_threshold"`
	CooldownSeconds    float64 `json:"cooldown_seconds"`
}

// Step is one scripted input. Exactly one of Utterance, Inject, or
// AdvanceSeconds drives the step; Distances and ModelReply script the
// collaborators while it runs.
type Step struct {
	Utterance      string  `json:"utterance,omitempty"`
	Source         string  `json:"source,omitempty"`
	Inject         string  `json:"inject,omitempty"`
	AdvanceSeconds float64 `json:"advance_seconds,omitempty"`

	// Distances maps collection name to the distance of the single
	// result the scripted store returns. Absent collections return no
	// results.
	Distances map[string]float64 `json:"distances,omitempty"`

	// ModelReply is the raw text the scripted model returns if the
	// pipeline reaches inference during this step.
	ModelReply string `json:"model_reply,omitempty"`
}

// Expectation asserts engine state after a step.
type Expectation struct {
	Step     int      `json:"step"`
	Mode     string   `json:"mode"` // "active" | "dormant"
	Commands []string `json:"commands,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	for i, step := range f.Steps {
		set := 0
		if step.Utterance != "" {
			set++
		}
		if step.Inject != "" {
			set++
		}
		if step.AdvanceSeconds > 0 {
			set++
		}
		if set != 1 {
			return fmt.Errorf("step %d: exactly one of utterance, inject, or advance_seconds required", i)
		}
	}
	for _, exp := range f.Expected {
		if exp.Step < 0 || exp.Step >= len(f.Steps) {
			return fmt.Errorf("expectation references step %d of %d", exp.Step, len(f.Steps))
		}
		if exp.Mode != "" && exp.Mode != "active" && exp.Mode != "dormant" {
			return fmt.Errorf("expectation for step %d: unknown mode %q", exp.Step, exp.Mode)
		}
	}
	return nil
}

// #endregion fixture-loader
