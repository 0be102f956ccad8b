package gpiochip

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/diffdrive/components/board"
	"go.viam.com/diffdrive/logging"
)

type fakeLine struct {
	mu     sync.Mutex
	values []byte
	closed bool
}

func (l *fakeLine) SetValue(value byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values = append(l.values, value)
	return nil
}

func (l *fakeLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *fakeLine) snapshot() ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]byte(nil), l.values...), l.closed
}

func newTestBoard(t *testing.T, conf Config) (*Board, map[uint32]*fakeLine) {
	t.Helper()
	lines := map[uint32]*fakeLine{}
	var mu sync.Mutex
	b := newBoard(conf, func(offset uint32) (outputLine, error) {
		mu.Lock()
		defer mu.Unlock()
		if offset == 99 {
			return nil, errors.New("line busy")
		}
		line := &fakeLine{}
		lines[offset] = line
		return line, nil
	}, logging.NewTestLogger(t))
	return b, lines
}

func TestPWMChannelByName(t *testing.T) {
	b, lines := newTestBoard(t, Config{Lines: map[string]uint32{"left_fwd": 5}})

	ch, err := b.PWMChannelByName("left_fwd")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lines[5], test.ShouldNotBeNil)

	again, err := b.PWMChannelByName("left_fwd")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldEqual, ch)

	_, err = b.PWMChannelByName("17")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lines[17], test.ShouldNotBeNil)

	for _, name := range []string{"left_rev", "99"} {
		_, err = b.PWMChannelByName(name)
		test.That(t, errors.Is(err, board.ErrChannelUnavailable), test.ShouldBeTrue)
	}
	test.That(t, b.Close(context.Background()), test.ShouldBeNil)
}

func TestSteadyDuty(t *testing.T) {
	ctx := context.Background()
	b, lines := newTestBoard(t, Config{})
	ch, err := b.PWMChannelByName("3")
	test.That(t, err, test.ShouldBeNil)

	test.That(t, ch.SetDuty(ctx, board.MaxDuty), test.ShouldBeNil)
	test.That(t, ch.SetDuty(ctx, 0), test.ShouldBeNil)
	values, _ := lines[3].snapshot()
	test.That(t, values, test.ShouldResemble, []byte{1, 0})

	test.That(t, ch.SetPWMFreq(ctx, 0), test.ShouldNotBeNil)
	test.That(t, b.Close(ctx), test.ShouldBeNil)
}

func TestSoftwarePWM(t *testing.T) {
	ctx := context.Background()
	b, lines := newTestBoard(t, Config{})
	ch, err := b.PWMChannelByName("4")
	test.That(t, err, test.ShouldBeNil)

	test.That(t, ch.SetPWMFreq(ctx, 1000), test.ShouldBeNil)
	test.That(t, ch.SetDuty(ctx, board.MaxDuty/2), test.ShouldBeNil)

	toggled := func() bool {
		values, _ := lines[4].snapshot()
		var highs, lows int
		for _, v := range values {
			if v == 1 {
				highs++
			} else {
				lows++
			}
		}
		return highs > 3 && lows > 3
	}
	deadline := time.Now().Add(5 * time.Second)
	for !toggled() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	test.That(t, toggled(), test.ShouldBeTrue)

	// a steady duty stops the loop before it toggles again
	test.That(t, ch.SetDuty(ctx, 0), test.ShouldBeNil)
	before, _ := lines[4].snapshot()
	test.That(t, before[len(before)-1], test.ShouldEqual, byte(0))
	time.Sleep(20 * time.Millisecond)
	after, _ := lines[4].snapshot()
	test.That(t, after, test.ShouldResemble, before)

	// restarting runs a fresh loop until the board closes
	test.That(t, ch.SetDuty(ctx, 1000), test.ShouldBeNil)
	test.That(t, b.Close(ctx), test.ShouldBeNil)
	values, closed := lines[4].snapshot()
	test.That(t, closed, test.ShouldBeTrue)
	test.That(t, values[len(values)-1], test.ShouldEqual, byte(0))
}

func TestWritesAfterClose(t *testing.T) {
	ctx := context.Background()
	b, lines := newTestBoard(t, Config{})
	ch, err := b.PWMChannelByName("6")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b.Close(ctx), test.ShouldBeNil)
	closedValues, _ := lines[6].snapshot()

	test.That(t, ch.SetDuty(ctx, board.MaxDuty/2), test.ShouldNotBeNil)
	test.That(t, ch.SetDuty(ctx, 0), test.ShouldNotBeNil)
	test.That(t, ch.SetPWMFreq(ctx, 500), test.ShouldNotBeNil)

	time.Sleep(10 * time.Millisecond)
	values, _ := lines[6].snapshot()
	test.That(t, values, test.ShouldResemble, closedValues)
}
