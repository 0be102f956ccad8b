//go:build linux

package gpiochip

import (
	"os"

	"github.com/mkch/gpio"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/diffdrive/logging"
)

// NewBoard returns a board opening lines on the configured chip, which must exist.
func NewBoard(conf Config, logger logging.Logger) (*Board, error) {
	if conf.Chip == "" {
		conf.Chip = DefaultChip
	}
	if _, err := os.Stat(conf.Chip); err != nil {
		return nil, errors.Wrapf(err, "no gpio chip at %s", conf.Chip)
	}
	return newBoard(conf, chipLineOpener(conf.Chip), logger), nil
}

func chipLineOpener(device string) lineOpener {
	return func(offset uint32) (outputLine, error) {
		chip, err := gpio.OpenChip(device)
		if err != nil {
			return nil, err
		}
		defer utils.UncheckedErrorFunc(chip.Close)

		// the line starts low; the motor sets its real level right after
		line, err := chip.OpenLine(offset, 0, gpio.Output, "diffdrive")
		if err != nil {
			return nil, err
		}
		return line, nil
	}
}
