// Package board defines the PWM hardware that motor channels drive. A board hands out named
// PWM channels; what backs them (periph.io, sysfs, an in-memory fake) is up to the model.
package board

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

const (
	// MaxDuty is the highest duty value a channel accepts, the 16-bit PWM resolution ceiling.
	MaxDuty = 65535

	// DefaultPWMFreq is the frequency channels are configured with when none is given.
	DefaultPWMFreq uint = 1000
)

// A PWMChannel is a single pulse-width-modulated output line.
type PWMChannel interface {
	// SetPWMFreq sets the frequency of the output. It is called once when a motor is built.
	SetPWMFreq(ctx context.Context, freqHz uint) error

	// SetDuty writes a raw duty level, 0 (always low) through MaxDuty (always high).
	SetDuty(ctx context.Context, duty uint16) error
}

// A Board provides PWM channels by name.
type Board interface {
	// PWMChannelByName returns the named channel, or an error wrapping ErrChannelUnavailable.
	PWMChannelByName(name string) (PWMChannel, error)

	// Close releases the board's hardware.
	Close(ctx context.Context) error
}

// ErrChannelUnavailable is matched by errors.Is for any failure to acquire a PWM channel.
var ErrChannelUnavailable = errors.New("pwm channel unavailable")

// ChannelUnavailableError is returned when a board cannot hand out a channel.
type ChannelUnavailableError struct {
	Name string
	Err  error
}

// NewChannelUnavailableError returns an error for the named channel caused by cause, which may be nil.
func NewChannelUnavailableError(name string, cause error) error {
	return &ChannelUnavailableError{Name: name, Err: cause}
}

func (e *ChannelUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("pwm channel %q unavailable", e.Name)
	}
	return fmt.Sprintf("pwm channel %q unavailable: %v", e.Name, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ChannelUnavailableError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrChannelUnavailable.
func (e *ChannelUnavailableError) Is(target error) bool {
	return target == ErrChannelUnavailable
}
