// Package periph implements a board on top of the periph.io host drivers. Any pin the host
// registers with gpioreg, by name or number, can be used as a PWM channel if its driver
// supports hardware PWM.
package periph

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"go.viam.com/diffdrive/components/board"
	"go.viam.com/diffdrive/logging"
)

// Model is the name the periph board registers under.
const Model = "periph"

// A Config describes the configuration of a periph board.
type Config struct {
	// PinAliases maps the names used in motor configs to periph pin names, e.g. "left_fwd": "GPIO12".
	PinAliases map[string]string `json:"pin_aliases,omitempty"`
}

func init() {
	board.Register(Model, func(ctx context.Context, conf board.Config, logger logging.Logger) (board.Board, error) {
		attrs, err := board.NativeAttributes[Config](conf)
		if err != nil {
			return nil, err
		}
		if _, err := host.Init(); err != nil {
			return nil, errors.Wrap(err, "cannot initialize periph host drivers")
		}
		return NewBoard(*attrs, logger), nil
	})
}

// A Board resolves channels through gpioreg. The host drivers must already be loaded.
type Board struct {
	aliases map[string]string
	logger  logging.Logger

	mu       sync.Mutex
	channels map[string]*channel
}

// NewBoard returns a board resolving pins through gpioreg.
func NewBoard(conf Config, logger logging.Logger) *Board {
	return &Board{
		aliases:  conf.PinAliases,
		logger:   logger,
		channels: map[string]*channel{},
	}
}

// PWMChannelByName returns a channel driving the named pin.
func (b *Board) PWMChannelByName(name string) (board.PWMChannel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.channels[name]; ok {
		return ch, nil
	}

	pinName := name
	if alias, ok := b.aliases[name]; ok {
		pinName = alias
	}
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, board.NewChannelUnavailableError(name, errors.Errorf("no global pin found for %q", pinName))
	}

	ch := &channel{name: name, pin: pin, freq: physic.Frequency(board.DefaultPWMFreq) * physic.Hertz}
	b.channels[name] = ch
	b.logger.Debugw("resolved pwm channel", "name", name, "pin", pin.Name())
	return ch, nil
}

// Close halts every pin handed out.
func (b *Board) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs error
	for name, ch := range b.channels {
		if err := ch.pin.Halt(); err != nil {
			errs = multierr.Combine(errs, errors.Wrapf(err, "halting %s", name))
			b.logger.Warnw("failed to halt pin", "name", name, "error", err)
		}
	}
	b.channels = map[string]*channel{}
	return errs
}

type channel struct {
	name string
	pin  gpio.PinIO

	mu   sync.Mutex
	freq physic.Frequency
	duty gpio.Duty
}

// toPeriphDuty scales a 16-bit duty to periph's 24-bit range.
func toPeriphDuty(duty uint16) gpio.Duty {
	return gpio.Duty(uint64(duty) * uint64(gpio.DutyMax) / board.MaxDuty)
}

func (ch *channel) SetPWMFreq(ctx context.Context, freqHz uint) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.freq = physic.Frequency(freqHz) * physic.Hertz
	return ch.apply()
}

func (ch *channel) SetDuty(ctx context.Context, duty uint16) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.duty = toPeriphDuty(duty)
	return ch.apply()
}

// expects to already have lock acquired.
func (ch *channel) apply() error {
	if err := ch.pin.PWM(ch.duty, ch.freq); err != nil {
		return errors.Wrapf(err, "pwm on pin %s", ch.pin.Name())
	}
	return nil
}
