package fake

import (
	"context"
	"errors"
	"testing"

	"go.viam.com/test"

	"go.viam.com/diffdrive/components/board"
	"go.viam.com/diffdrive/logging"
)

func TestFakeBoard(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	b := NewBoard(Config{FailPins: []string{"bad"}}, logger)

	pwm, err := b.PWMChannelByName("12")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pwm.SetPWMFreq(ctx, 1000), test.ShouldBeNil)
	test.That(t, pwm.SetDuty(ctx, 100), test.ShouldBeNil)
	test.That(t, pwm.SetDuty(ctx, 0), test.ShouldBeNil)

	ch, err := b.Channel("12")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ch, test.ShouldEqual, pwm)
	test.That(t, ch.PWMFreq(), test.ShouldEqual, uint(1000))
	test.That(t, ch.FreqCalls(), test.ShouldEqual, 1)
	test.That(t, ch.Duty(), test.ShouldEqual, uint16(0))
	test.That(t, ch.History(), test.ShouldResemble, []uint16{100, 0})
	test.That(t, b.Writes(), test.ShouldResemble, []Write{{"12", 100}, {"12", 0}})

	b.ResetWrites()
	test.That(t, b.Writes(), test.ShouldBeEmpty)
	test.That(t, ch.History(), test.ShouldBeEmpty)

	_, err = b.PWMChannelByName("bad")
	test.That(t, errors.Is(err, board.ErrChannelUnavailable), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"bad"`)

	test.That(t, b.Close(ctx), test.ShouldBeNil)
	test.That(t, b.CloseCount(), test.ShouldEqual, 1)
}

func TestFailWrites(t *testing.T) {
	ctx := context.Background()
	b := NewBoard(Config{}, logging.NewTestLogger(t))
	ch, err := b.Channel("1")
	test.That(t, err, test.ShouldBeNil)

	b.SetFailWrites(true)
	test.That(t, ch.SetDuty(ctx, 5), test.ShouldBeError, ErrWriteFailed)
	test.That(t, ch.SetPWMFreq(ctx, 10), test.ShouldBeError, ErrWriteFailed)
	test.That(t, ch.History(), test.ShouldBeEmpty)

	b.SetFailWrites(false)
	test.That(t, ch.SetDuty(ctx, 5), test.ShouldBeNil)
	test.That(t, ch.Duty(), test.ShouldEqual, uint16(5))
}

func TestRegistered(t *testing.T) {
	logger := logging.NewTestLogger(t)
	conf := board.Config{
		Model:      Model,
		Attributes: map[string]interface{}{"fail_pins": []interface{}{"7"}, "fail_writes": "true"},
	}
	test.That(t, conf.Validate("board"), test.ShouldBeNil)

	b, err := board.New(context.Background(), conf, logger)
	test.That(t, err, test.ShouldBeNil)
	fb, ok := b.(*Board)
	test.That(t, ok, test.ShouldBeTrue)
	_, err = fb.Channel("7")
	test.That(t, errors.Is(err, board.ErrChannelUnavailable), test.ShouldBeTrue)
	ch, err := fb.Channel("8")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ch.SetDuty(context.Background(), 1), test.ShouldBeError, ErrWriteFailed)

	conf.Attributes = map[string]interface{}{"fail_pin": []interface{}{"7"}}
	_, err = board.New(context.Background(), conf, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "fail_pin")
}
