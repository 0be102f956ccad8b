// Package fake implements a fake board whose PWM channels record everything written to them.
package fake

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/diffdrive/components/board"
	"go.viam.com/diffdrive/logging"
)

// Model is the name the fake board registers under.
const Model = "fake"

// ErrWriteFailed is returned by channels of a board configured with fail_writes.
var ErrWriteFailed = errors.New("fake pwm write failed")

// A Config describes the configuration of a fake board.
type Config struct {
	// FailPins names channels the board refuses to hand out.
	FailPins []string `json:"fail_pins,omitempty"`
	// FailWrites makes every SetDuty and SetPWMFreq call return ErrWriteFailed.
	FailWrites bool `json:"fail_writes,omitempty"`
}

func init() {
	board.Register(Model, func(ctx context.Context, conf board.Config, logger logging.Logger) (board.Board, error) {
		attrs, err := board.NativeAttributes[Config](conf)
		if err != nil {
			return nil, err
		}
		return NewBoard(*attrs, logger), nil
	})
}

// A Write is one duty write seen by the board, in the order it happened.
type Write struct {
	Pin  string
	Duty uint16
}

// A Board hands out in-memory channels for any pin name not listed in FailPins.
type Board struct {
	mu         sync.Mutex
	channels   map[string]*Channel
	failPins   map[string]bool
	failWrites bool
	writes     []Write
	closeCount int
	logger     logging.Logger
}

// NewBoard returns a new fake board.
func NewBoard(conf Config, logger logging.Logger) *Board {
	return &Board{
		channels:   map[string]*Channel{},
		failPins:   lo.SliceToMap(conf.FailPins, func(pin string) (string, bool) { return pin, true }),
		failWrites: conf.FailWrites,
		logger:     logger,
	}
}

// PWMChannelByName returns the named channel, creating it on first use.
func (b *Board) PWMChannelByName(name string) (board.PWMChannel, error) {
	return b.Channel(name)
}

// Channel is PWMChannelByName returning the concrete fake channel.
func (b *Board) Channel(name string) (*Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failPins[name] {
		return nil, board.NewChannelUnavailableError(name, nil)
	}
	if ch, ok := b.channels[name]; ok {
		return ch, nil
	}
	ch := &Channel{name: name, board: b}
	b.channels[name] = ch
	return ch, nil
}

// SetFailWrites toggles write failures for every channel of the board.
func (b *Board) SetFailWrites(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failWrites = fail
}

// Writes returns every duty write made through the board so far.
func (b *Board) Writes() []Write {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Write(nil), b.writes...)
}

// ResetWrites forgets the recorded writes.
func (b *Board) ResetWrites() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes = nil
	for _, ch := range b.channels {
		ch.resetHistory()
	}
}

// CloseCount reports how many times Close was called.
func (b *Board) CloseCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeCount
}

// Close records the close.
func (b *Board) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeCount++
	b.logger.Debugw("fake board closed", "channels", len(b.channels))
	return nil
}

func (b *Board) recordWrite(pin string, duty uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWrites {
		return ErrWriteFailed
	}
	b.writes = append(b.writes, Write{Pin: pin, Duty: duty})
	return nil
}

func (b *Board) shouldFail() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failWrites
}

// A Channel reads back the same set values.
type Channel struct {
	name  string
	board *Board

	mu        sync.Mutex
	freqHz    uint
	freqCalls int
	duty      uint16
	history   []uint16
}

// SetPWMFreq sets the channel's frequency.
func (ch *Channel) SetPWMFreq(ctx context.Context, freqHz uint) error {
	if ch.board.shouldFail() {
		return ErrWriteFailed
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.freqHz = freqHz
	ch.freqCalls++
	return nil
}

// SetDuty sets the channel's duty.
func (ch *Channel) SetDuty(ctx context.Context, duty uint16) error {
	if err := ch.board.recordWrite(ch.name, duty); err != nil {
		return err
	}
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.duty = duty
	ch.history = append(ch.history, duty)
	return nil
}

// Name returns the pin name the channel was requested with.
func (ch *Channel) Name() string {
	return ch.name
}

// PWMFreq returns the last frequency set, 0 if none.
func (ch *Channel) PWMFreq() uint {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.freqHz
}

// FreqCalls returns how many times the frequency was set.
func (ch *Channel) FreqCalls() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.freqCalls
}

// Duty returns the last duty written.
func (ch *Channel) Duty() uint16 {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.duty
}

// History returns every duty written to the channel.
func (ch *Channel) History() []uint16 {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return append([]uint16(nil), ch.history...)
}

func (ch *Channel) resetHistory() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.history = nil
}
