// Package gpiochip implements a board for plain GPIO lines on a Linux character device, indirectly
// by way of mkch's gpio package. Lines have no PWM hardware, so the duty cycle is generated in
// software by a goroutine per channel.
package gpiochip

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/diffdrive/components/board"
	"go.viam.com/diffdrive/logging"
)

const (
	// Model is the name the gpiochip board registers under.
	Model = "gpiochip"

	// DefaultChip is the character device used when the config names none.
	DefaultChip = "/dev/gpiochip0"
)

// A Config describes the configuration of a gpiochip board.
type Config struct {
	Chip string `json:"chip,omitempty"`
	// Lines maps the names used in motor configs to line offsets. Any other name must be an offset.
	Lines map[string]uint32 `json:"lines,omitempty"`
}

func init() {
	board.Register(Model, func(ctx context.Context, conf board.Config, logger logging.Logger) (board.Board, error) {
		attrs, err := board.NativeAttributes[Config](conf)
		if err != nil {
			return nil, err
		}
		b, err := NewBoard(*attrs, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	})
}

type outputLine interface {
	SetValue(value byte) error
	Close() error
}

type lineOpener func(offset uint32) (outputLine, error)

// A Board hands out software PWM channels, one per GPIO line.
type Board struct {
	lines  map[string]uint32
	open   lineOpener
	logger logging.Logger

	cancelCtx  context.Context
	cancelFunc context.CancelFunc
	workers    sync.WaitGroup

	mu       sync.Mutex
	channels map[string]*channel
}

func newBoard(conf Config, open lineOpener, logger logging.Logger) *Board {
	cancelCtx, cancelFunc := context.WithCancel(context.Background())
	return &Board{
		lines:      conf.Lines,
		open:       open,
		logger:     logger,
		cancelCtx:  cancelCtx,
		cancelFunc: cancelFunc,
		channels:   map[string]*channel{},
	}
}

func (b *Board) offset(name string) (uint32, error) {
	if offset, ok := b.lines[name]; ok {
		return offset, nil
	}
	offset, err := strconv.ParseUint(name, 10, 32)
	if err != nil {
		return 0, errors.Errorf("%q is neither a configured line nor a line offset", name)
	}
	return uint32(offset), nil
}

// PWMChannelByName opens the named line as an output, low, and returns a channel driving it.
func (b *Board) PWMChannelByName(name string) (board.PWMChannel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.channels[name]; ok {
		return ch, nil
	}
	offset, err := b.offset(name)
	if err != nil {
		return nil, board.NewChannelUnavailableError(name, err)
	}
	line, err := b.open(offset)
	if err != nil {
		return nil, board.NewChannelUnavailableError(name, err)
	}

	ch := &channel{
		name:      name,
		line:      line,
		logger:    b.logger.Sublogger(name),
		cancelCtx: b.cancelCtx,
		workers:   &b.workers,
		freqHz:    board.DefaultPWMFreq,
	}
	b.channels[name] = ch
	b.logger.Debugw("opened gpio line", "name", name, "offset", offset)
	return ch, nil
}

// Close stops every software PWM loop, drives the lines low and releases them.
func (b *Board) Close(ctx context.Context) error {
	b.cancelFunc()
	b.workers.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()

	var errs error
	for name, ch := range b.channels {
		if err := ch.close(); err != nil {
			errs = multierr.Combine(errs, errors.Wrapf(err, "closing line %s", name))
		}
	}
	b.channels = map[string]*channel{}
	return errs
}

type channel struct {
	name   string
	line   outputLine
	logger logging.Logger

	cancelCtx context.Context
	workers   *sync.WaitGroup

	mu      sync.Mutex
	freqHz  uint
	duty    uint16
	running bool
	// generation is bumped whenever a loop is stopped, so a loop still sleeping sees that it was
	// replaced even if another one has started since.
	generation uint64
}

func (ch *channel) SetPWMFreq(ctx context.Context, freqHz uint) error {
	if freqHz == 0 {
		return errors.Errorf("cannot run software pwm on %s at 0Hz", ch.name)
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.freqHz = freqHz
	return ch.update()
}

func (ch *channel) SetDuty(ctx context.Context, duty uint16) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.duty = duty
	return ch.update()
}

// update holds the line steady for a duty of 0 or MaxDuty, and otherwise makes sure a loop is
// running. It refuses once the board is closed. expects to already have lock acquired.
func (ch *channel) update() error {
	if ch.cancelCtx.Err() != nil {
		return errors.Errorf("gpio line %s is closed", ch.name)
	}
	switch {
	case ch.duty == 0:
		ch.stopLoop()
		return ch.line.SetValue(0)
	case ch.duty == board.MaxDuty:
		ch.stopLoop()
		return ch.line.SetValue(1)
	case ch.running:
		return nil
	}

	ch.running = true
	generation := ch.generation
	ch.workers.Add(1)
	utils.ManagedGo(func() {
		for ch.halfCycle(generation, true) && ch.halfCycle(generation, false) {
		}
	}, ch.workers.Done)
	return nil
}

// expects to already have lock acquired.
func (ch *channel) stopLoop() {
	if ch.running {
		ch.running = false
		ch.generation++
	}
}

// halfCycle sets the line and then waits out the high or low part of one period. It returns
// whether the loop should go on.
func (ch *channel) halfCycle(generation uint64, high bool) bool {
	var fraction float64
	var freqHz uint

	keepGoing := func() bool {
		ch.mu.Lock()
		defer ch.mu.Unlock()
		if !ch.running || ch.generation != generation {
			return false
		}
		fraction = float64(ch.duty) / board.MaxDuty
		freqHz = ch.freqHz

		var value byte
		if high {
			value = 1
		}
		// a missed toggle is not fatal; the next one may well succeed
		if err := ch.line.SetValue(value); err != nil {
			ch.logger.Debugw("failed to toggle line", "error", err)
		}
		return true
	}()
	if !keepGoing {
		return false
	}

	if !high {
		fraction = 1 - fraction
	}
	return utils.SelectContextOrWait(ch.cancelCtx, time.Duration(float64(time.Second)*fraction/float64(freqHz)))
}

func (ch *channel) close() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.stopLoop()
	return multierr.Combine(ch.line.SetValue(0), ch.line.Close())
}
