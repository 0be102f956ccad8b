package periph

import (
	"context"
	"errors"
	"testing"

	"go.viam.com/test"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"

	"go.viam.com/diffdrive/components/board"
	"go.viam.com/diffdrive/logging"
)

func registerTestPin(t *testing.T, name string) *gpiotest.Pin {
	t.Helper()
	pin := &gpiotest.Pin{N: name, Num: 99}
	test.That(t, gpioreg.Register(pin), test.ShouldBeNil)
	t.Cleanup(func() {
		test.That(t, gpioreg.Unregister(name), test.ShouldBeNil)
	})
	return pin
}

func TestToPeriphDuty(t *testing.T) {
	test.That(t, toPeriphDuty(0), test.ShouldEqual, gpio.Duty(0))
	test.That(t, toPeriphDuty(board.MaxDuty), test.ShouldEqual, gpio.DutyMax)
	test.That(t, toPeriphDuty(32767), test.ShouldEqual, gpio.Duty(8388479))
}

func TestPWMChannel(t *testing.T) {
	ctx := context.Background()
	pin := registerTestPin(t, "DIFFDRIVE_TEST_12")
	b := NewBoard(Config{PinAliases: map[string]string{"left_fwd": "DIFFDRIVE_TEST_12"}}, logging.NewTestLogger(t))

	ch, err := b.PWMChannelByName("left_fwd")
	test.That(t, err, test.ShouldBeNil)
	same, err := b.PWMChannelByName("left_fwd")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, same, test.ShouldEqual, ch)

	test.That(t, ch.SetPWMFreq(ctx, 2000), test.ShouldBeNil)
	test.That(t, pin.F, test.ShouldEqual, 2*physic.KiloHertz)
	test.That(t, pin.D, test.ShouldEqual, gpio.Duty(0))

	test.That(t, ch.SetDuty(ctx, board.MaxDuty), test.ShouldBeNil)
	test.That(t, pin.D, test.ShouldEqual, gpio.DutyMax)
	test.That(t, pin.F, test.ShouldEqual, 2*physic.KiloHertz)

	test.That(t, b.Close(ctx), test.ShouldBeNil)
}

func TestUnknownPin(t *testing.T) {
	b := NewBoard(Config{}, logging.NewTestLogger(t))
	_, err := b.PWMChannelByName("DIFFDRIVE_NO_SUCH_PIN")
	test.That(t, errors.Is(err, board.ErrChannelUnavailable), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no global pin found")
}
