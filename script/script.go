// Package script sequences gaits into timed routines, such as the built-in demos, and runs them
// against a base.
package script

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"go.viam.com/diffdrive/components/base/differential"
)

// A Step is one gait held for a while.
type Step struct {
	Gait differential.Gait `yaml:"gait"`
	// Speed of the gait; 0 means differential.DefaultSpeed.
	Speed int `yaml:"speed,omitempty"`
	// TurnRatio for arcs; nil means differential.DefaultTurnRatio.
	TurnRatio *float64      `yaml:"turn_ratio,omitempty"`
	Duration  time.Duration `yaml:"duration,omitempty"`
	// Pause, if set, stops the base after the step and waits this long.
	Pause   time.Duration `yaml:"pause,omitempty"`
	Message string        `yaml:"message,omitempty"`
}

// Params returns the gait parameters with defaults filled in.
func (s Step) Params() differential.GaitParameters {
	params := differential.DefaultGaitParameters()
	if s.Speed != 0 {
		params.Speed = s.Speed
	}
	if s.TurnRatio != nil {
		params.TurnRatio = *s.TurnRatio
	}
	return params
}

func (s Step) String() string {
	if s.Message != "" {
		return s.Message
	}
	if s.Gait == differential.GaitStop {
		return "stop"
	}
	params := s.Params()
	if s.Gait.UsesTurnRatio() {
		return fmt.Sprintf("%s at %d%% (ratio %.2f)", s.Gait, params.Speed, params.TurnRatio)
	}
	return fmt.Sprintf("%s at %d%%", s.Gait, params.Speed)
}

// A Script is a named list of steps.
type Script struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Layout, if set, is the drive layout the script was written for.
	Layout differential.Layout `yaml:"layout,omitempty"`
	Steps  []Step              `yaml:"steps"`
}

// Validate ensures the script can be run.
func (s *Script) Validate() error {
	if s.Name == "" {
		return errors.New("script has no name")
	}
	if s.Layout != "" {
		if err := s.Layout.Validate(); err != nil {
			return errors.Wrapf(err, "script %s", s.Name)
		}
	}
	if len(s.Steps) == 0 {
		return errors.Errorf("script %s has no steps", s.Name)
	}
	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return errors.Wrapf(err, "script %s step %d", s.Name, i)
		}
	}
	return nil
}

func (s Step) validate() error {
	if !s.Gait.Valid() {
		return errors.Errorf("unknown gait %d", int(s.Gait))
	}
	if s.Duration < 0 || s.Pause < 0 {
		return errors.New("durations cannot be negative")
	}
	if s.Gait != differential.GaitStop && s.Duration == 0 {
		return errors.Errorf("%s needs a duration", s.Gait)
	}
	return nil
}

// RequiresReverseSteer reports whether any step needs a base with reverse steer.
func (s *Script) RequiresReverseSteer() bool {
	for _, step := range s.Steps {
		if step.Gait.RequiresReverseSteer() {
			return true
		}
	}
	return false
}

// TotalDuration is how long the script runs if not interrupted.
func (s *Script) TotalDuration() time.Duration {
	var total time.Duration
	for _, step := range s.Steps {
		total += step.Duration + step.Pause
	}
	return total
}

// Parse reads a script from YAML. Unknown fields are errors.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return nil, errors.Wrap(err, "cannot parse script")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads a script from a YAML file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, errors.Wrap(err, "cannot read script")
	}
	return Parse(data)
}
