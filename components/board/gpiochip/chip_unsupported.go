//go:build !linux

package gpiochip

import (
	"github.com/pkg/errors"

	"go.viam.com/diffdrive/logging"
)

// NewBoard always fails: GPIO character devices only exist on Linux.
func NewBoard(conf Config, logger logging.Logger) (*Board, error) {
	return nil, errors.New("gpiochip boards are only supported on linux")
}
