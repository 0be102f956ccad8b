package motor

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/diffdrive/components/board"
	"go.viam.com/diffdrive/logging"
)

// A Channel is one motor's pair of PWM outputs.
type Channel struct {
	name    string
	forward board.PWMChannel
	reverse board.PWMChannel
	logger  logging.Logger

	mu    sync.Mutex
	speed int
}

// NewChannel configures both outputs at freqHz (board.DefaultPWMFreq if 0) and stops the motor.
// If any of that fails no channel is returned.
func NewChannel(
	ctx context.Context,
	name string,
	forward, reverse board.PWMChannel,
	freqHz uint,
	logger logging.Logger,
) (*Channel, error) {
	if forward == nil || reverse == nil {
		return nil, errors.Errorf("motor %s needs both a forward and a reverse output", name)
	}
	if freqHz == 0 {
		freqHz = board.DefaultPWMFreq
	}
	if err := forward.SetPWMFreq(ctx, freqHz); err != nil {
		return nil, errors.Wrapf(err, "motor %s: configuring forward output", name)
	}
	if err := reverse.SetPWMFreq(ctx, freqHz); err != nil {
		return nil, errors.Wrapf(err, "motor %s: configuring reverse output", name)
	}

	m := &Channel{
		name:    name,
		forward: forward,
		reverse: reverse,
		logger:  logger,
	}
	if err := m.Stop(ctx); err != nil {
		return nil, errors.Wrapf(err, "motor %s: initial stop", name)
	}
	return m, nil
}

// Name returns the motor's name.
func (m *Channel) Name() string {
	return m.name
}

// SetSpeed drives the motor at speed, clamped to [-MaxSpeed, MaxSpeed]. Both outputs are
// always written, even when the first write fails.
func (m *Channel) SetSpeed(ctx context.Context, speed int) error {
	speed = ClampSpeed(speed)
	duty := DutyForSpeed(speed)

	var forwardDuty, reverseDuty uint16
	switch {
	case speed > 0:
		forwardDuty = duty
	case speed < 0:
		reverseDuty = duty
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Debugw("set speed", "speed", speed, "forward_duty", forwardDuty, "reverse_duty", reverseDuty)
	m.speed = speed
	return m.write(ctx, forwardDuty, reverseDuty)
}

// Stop writes zero to both outputs.
func (m *Channel) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.speed = 0
	return m.write(ctx, 0, 0)
}

// Speed returns the last commanded speed, after clamping.
func (m *Channel) Speed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speed
}

// IsPowered returns if the motor is currently commanded to move and at what speed.
func (m *Channel) IsPowered() (bool, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speed != 0, m.speed
}

// expects to already have lock acquired.
func (m *Channel) write(ctx context.Context, forwardDuty, reverseDuty uint16) error {
	err := multierr.Combine(
		errors.Wrap(m.forward.SetDuty(ctx, forwardDuty), "forward output"),
		errors.Wrap(m.reverse.SetDuty(ctx, reverseDuty), "reverse output"),
	)
	if err != nil {
		m.logger.Warnw("motor write failed", "motor", m.name, "error", err)
		return errors.Wrapf(err, "motor %s", m.name)
	}
	return nil
}
