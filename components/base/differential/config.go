package differential

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/diffdrive/components/board"
	"go.viam.com/diffdrive/components/motor"
	"go.viam.com/diffdrive/logging"
)

// Layout says which pair of wheels is driven.
type Layout string

const (
	// LayoutFront drives the front wheels with a caster at the back.
	LayoutFront Layout = "front"
	// LayoutRear drives the rear wheels. It can steer by backing one wheel.
	LayoutRear Layout = "rear"
)

// ParseLayout parses "front" or "rear", ignoring case.
func ParseLayout(s string) (Layout, error) {
	l := Layout(strings.ToLower(strings.TrimSpace(s)))
	if err := l.Validate(); err != nil {
		return "", err
	}
	return l, nil
}

// Validate returns an error for unknown layouts.
func (l Layout) Validate() error {
	switch l {
	case LayoutFront, LayoutRear:
		return nil
	default:
		return errors.Errorf("unknown layout %q, expected %q or %q", string(l), LayoutFront, LayoutRear)
	}
}

// DefaultReverseSteer reports whether the layout supports reverse steer unless configured otherwise.
func (l Layout) DefaultReverseSteer() bool {
	return l == LayoutRear
}

// Config describes the configuration of a differential base.
type Config struct {
	Layout       Layout       `json:"layout"`
	ReverseSteer *bool        `json:"reverse_steer,omitempty"`
	Left         motor.Config `json:"left"`
	Right        motor.Config `json:"right"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.Layout == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "layout")
	}
	if err := conf.Layout.Validate(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if err := conf.Left.Validate(fmt.Sprintf("%s.%s", path, "left")); err != nil {
		return err
	}
	if err := conf.Right.Validate(fmt.Sprintf("%s.%s", path, "right")); err != nil {
		return err
	}
	for _, pin := range []string{conf.Left.Pins.Forward, conf.Left.Pins.Reverse} {
		if pin == conf.Right.Pins.Forward || pin == conf.Right.Pins.Reverse {
			return utils.NewConfigValidationError(path, errors.Errorf("pin %q is used by both motors", pin))
		}
	}
	return nil
}

// Options returns the controller options the config describes.
func (conf *Config) Options() Options {
	return Options{Layout: conf.Layout, ReverseSteer: conf.ReverseSteer}
}

// FromBoard builds both motors on b and a controller driving them.
func FromBoard(ctx context.Context, b board.Board, conf Config, logger logging.Logger) (*Controller, error) {
	left, err := motor.FromBoard(ctx, "left", b, conf.Left, logger)
	if err != nil {
		return nil, err
	}
	right, err := motor.FromBoard(ctx, "right", b, conf.Right, logger)
	if err != nil {
		return nil, err
	}
	return New(ctx, left, right, conf.Options(), logger)
}
