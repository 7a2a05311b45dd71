package episode

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/trackreward/go-controller/internal/reward"
)

// #region fixture-types

// Fixture is the top-level structure of a replay fixture (JSON or YAML).
type Fixture struct {
	Description string        `json:"description" yaml:"description"`
	Track       string        `json:"track" yaml:"track"`
	Tolerance   float64       `json:"tolerance" yaml:"tolerance"`
	Steps       []FixtureStep `json:"steps" yaml:"steps"`
}

// FixtureStep is one harness parameter mapping plus the reward it should score.
type FixtureStep struct {
	StepID         string        `json:"step_id" yaml:"step_id"`
	Params         reward.Params `json:"params" yaml:"params"`
	ExpectedReward *float64      `json:"expected_reward,omitempty" yaml:"expected_reward,omitempty"`
}

// DefaultTolerance is used when a fixture does not set one.
const DefaultTolerance = 1e-9

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads a fixture file. .yaml and .yml are parsed as YAML, anything else as JSON.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if f.Tolerance <= 0 {
		f.Tolerance = DefaultTolerance
	}
	return &f, nil
}

// ToSteps decodes every fixture step into a Snapshot.
func (f *Fixture) ToSteps() ([]Step, error) {
	steps := make([]Step, len(f.Steps))
	for i, fs := range f.Steps {
		snap, err := reward.FromParams(fs.Params)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", fs.StepID, err)
		}
		steps[i] = Step{StepID: fs.StepID, Snapshot: snap}
	}
	return steps, nil
}

// Expected returns the expected reward per step; NaN marks steps without one.
func (f *Fixture) Expected() []float64 {
	out := make([]float64, len(f.Steps))
	for i, fs := range f.Steps {
		if fs.ExpectedReward == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *fs.ExpectedReward
	}
	return out
}

// FromResults builds a fixture whose expectations are the given results.
func FromResults(description, track string, results []StepResult) *Fixture {
	f := &Fixture{
		Description: description,
		Track:       track,
		Tolerance:   DefaultTolerance,
		Steps:       make([]FixtureStep, len(results)),
	}
	for i, r := range results {
		expected := r.Reward
		f.Steps[i] = FixtureStep{
			StepID:         r.StepID,
			Params:         r.Snapshot.Params(),
			ExpectedReward: &expected,
		}
	}
	return f
}

// #endregion fixture-loader
