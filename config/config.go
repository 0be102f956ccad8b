// Package config defines the robot's configuration file and the environment variables that
// override it.
package config

import (
	"github.com/pkg/errors"

	"go.viam.com/diffdrive/components/base/differential"
	"go.viam.com/diffdrive/components/board"
)

// Config describes a robot: the board its motors hang off and the base driving them.
type Config struct {
	Board board.Config        `json:"board"`
	Base  differential.Config `json:"base"`
	Debug bool                `json:"debug,omitempty"`

	// ConfigFilePath is where the config was read from, if anywhere.
	ConfigFilePath string `json:"-"`
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	if err := c.Board.Validate("board"); err != nil {
		return err
	}
	if err := c.Base.Validate("base"); err != nil {
		return err
	}
	return nil
}

// PinNames returns every channel name the base uses, left motor first.
func (c *Config) PinNames() []string {
	return []string{
		c.Base.Left.Pins.Forward,
		c.Base.Left.Pins.Reverse,
		c.Base.Right.Pins.Forward,
		c.Base.Right.Pins.Reverse,
	}
}

// ErrNoConfig is returned when neither a flag nor the environment names a config file.
var ErrNoConfig = errors.New("no config file given, use --config or DIFFDRIVE_CONFIG")
