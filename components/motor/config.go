package motor

import (
	"context"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/diffdrive/components/board"
	"go.viam.com/diffdrive/logging"
)

// PinConfig names the board channels wired to the H-bridge inputs.
type PinConfig struct {
	Forward string `json:"forward"`
	Reverse string `json:"reverse"`
}

// Config describes the configuration of a motor.
type Config struct {
	Pins    PinConfig `json:"pins"`
	PWMFreq uint      `json:"pwm_freq,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.Pins.Forward == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "pins.forward")
	}
	if conf.Pins.Reverse == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "pins.reverse")
	}
	if conf.Pins.Forward == conf.Pins.Reverse {
		return utils.NewConfigValidationError(path,
			errors.Errorf("forward and reverse pins must differ, both are %q", conf.Pins.Forward))
	}
	return nil
}

// FromBoard builds a motor from the channels conf names on b.
func FromBoard(ctx context.Context, name string, b board.Board, conf Config, logger logging.Logger) (*Channel, error) {
	forward, err := b.PWMChannelByName(conf.Pins.Forward)
	if err != nil {
		return nil, errors.Wrapf(err, "motor %s forward pin", name)
	}
	reverse, err := b.PWMChannelByName(conf.Pins.Reverse)
	if err != nil {
		return nil, errors.Wrapf(err, "motor %s reverse pin", name)
	}
	return NewChannel(ctx, name, forward, reverse, conf.PWMFreq, logger.Sublogger(name))
}
