package differential

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.viam.com/test"

	"go.viam.com/diffdrive/components/board"
	"go.viam.com/diffdrive/components/board/fake"
	"go.viam.com/diffdrive/components/motor"
	"go.viam.com/diffdrive/logging"
)

func testConfig(layout Layout) Config {
	return Config{
		Layout: layout,
		Left:   motor.Config{Pins: motor.PinConfig{Forward: "lf", Reverse: "lr"}},
		Right:  motor.Config{Pins: motor.PinConfig{Forward: "rf", Reverse: "rr"}},
	}
}

func newTestBase(t *testing.T, conf Config) (*Controller, *fake.Board) {
	t.Helper()
	b := fake.NewBoard(fake.Config{}, logging.NewTestLogger(t))
	c, err := FromBoard(context.Background(), b, conf, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	b.ResetWrites()
	return c, b
}

// duties returns left forward, left reverse, right forward and right reverse duties.
func duties(t *testing.T, b *fake.Board) []uint16 {
	t.Helper()
	out := make([]uint16, 0, 4)
	for _, pin := range []string{"lf", "lr", "rf", "rr"} {
		ch, err := b.Channel(pin)
		test.That(t, err, test.ShouldBeNil)
		out = append(out, ch.Duty())
	}
	return out
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)

	t.Run("stops both motors", func(t *testing.T) {
		b := fake.NewBoard(fake.Config{}, logger)
		c, err := FromBoard(ctx, b, testConfig(LayoutFront), logger)
		test.That(t, err, test.ShouldBeNil)
		for _, pin := range []string{"lf", "lr", "rf", "rr"} {
			ch, _ := b.Channel(pin)
			test.That(t, ch.PWMFreq(), test.ShouldEqual, board.DefaultPWMFreq)
			test.That(t, ch.History(), test.ShouldResemble, []uint16{0, 0})
		}
		test.That(t, c.State(), test.ShouldEqual, Stopped)
		test.That(t, c.Layout(), test.ShouldEqual, LayoutFront)
		test.That(t, c.SupportsReverseSteer(), test.ShouldBeFalse)
	})

	t.Run("unavailable channel fails construction", func(t *testing.T) {
		b := fake.NewBoard(fake.Config{FailPins: []string{"rr"}}, logger)
		c, err := FromBoard(ctx, b, testConfig(LayoutFront), logger)
		test.That(t, c, test.ShouldBeNil)
		test.That(t, errors.Is(err, board.ErrChannelUnavailable), test.ShouldBeTrue)
	})

	t.Run("failed stop fails construction", func(t *testing.T) {
		b := fake.NewBoard(fake.Config{}, logger)
		left, err := motor.FromBoard(ctx, "left", b, testConfig(LayoutFront).Left, logger)
		test.That(t, err, test.ShouldBeNil)
		right, err := motor.FromBoard(ctx, "right", b, testConfig(LayoutFront).Right, logger)
		test.That(t, err, test.ShouldBeNil)
		b.SetFailWrites(true)
		c, err := New(ctx, left, right, Options{}, logger)
		test.That(t, c, test.ShouldBeNil)
		test.That(t, errors.Is(err, fake.ErrWriteFailed), test.ShouldBeTrue)
	})

	t.Run("missing motor", func(t *testing.T) {
		_, err := New(ctx, nil, nil, Options{}, logger)
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("unknown layout", func(t *testing.T) {
		b := fake.NewBoard(fake.Config{}, logger)
		conf := testConfig("sideways")
		_, err := FromBoard(ctx, b, conf, logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "sideways")
	})
}

func TestGaits(t *testing.T) {
	ctx := context.Background()
	c, b := newTestBase(t, testConfig(LayoutRear))

	for _, tc := range []struct {
		name        string
		do          func() error
		left, right int
	}{
		{"forward", func() error { return c.Forward(ctx, 60) }, 60, 60},
		{"backward", func() error { return c.Backward(ctx, 60) }, -60, -60},
		{"turn left", func() error { return c.TurnLeft(ctx, 60) }, 0, 60},
		{"turn right", func() error { return c.TurnRight(ctx, 60) }, 60, 0},
		{"spin left", func() error { return c.SpinLeft(ctx, 50) }, -50, 50},
		{"spin right", func() error { return c.SpinRight(ctx, 50) }, 50, -50},
		{"arc left", func() error { return c.ArcLeft(ctx, 60, 0.5) }, 30, 60},
		{"arc right", func() error { return c.ArcRight(ctx, 60, 0.3) }, 60, 18},
		{"pivot left", func() error { return c.PivotLeft(ctx, 45) }, 0, 45},
		{"pivot right", func() error { return c.PivotRight(ctx, 45) }, 45, 0},
		{"turn left reverse", func() error { return c.TurnLeftReverse(ctx, 60) }, 0, -60},
		{"turn right reverse", func() error { return c.TurnRightReverse(ctx, 60) }, -60, 0},
		{"arc left reverse", func() error { return c.ArcLeftReverse(ctx, 60, 0.3) }, -18, -60},
		{"arc right reverse", func() error { return c.ArcRightReverse(ctx, 60, 0.3) }, -60, -18},
		{"clamped", func() error { return c.Forward(ctx, 250) }, 100, 100},
	} {
		t.Run(tc.name, func(t *testing.T) {
			test.That(t, tc.do(), test.ShouldBeNil)
			left, right := c.Speeds()
			test.That(t, left, test.ShouldEqual, tc.left)
			test.That(t, right, test.ShouldEqual, tc.right)
			test.That(t, c.State(), test.ShouldEqual, Moving)
			test.That(t, c.IsMoving(), test.ShouldBeTrue)

			d := duties(t, b)
			test.That(t, d[0] == 0 || d[1] == 0, test.ShouldBeTrue)
			test.That(t, d[2] == 0 || d[3] == 0, test.ShouldBeTrue)
		})
	}
}

func TestMoveOverwrites(t *testing.T) {
	ctx := context.Background()
	c, b := newTestBase(t, testConfig(LayoutFront))

	test.That(t, c.Move(ctx, 80, 80), test.ShouldBeNil)
	test.That(t, c.Move(ctx, -20, 0), test.ShouldBeNil)
	left, right := c.Speeds()
	test.That(t, left, test.ShouldEqual, -20)
	test.That(t, right, test.ShouldEqual, 0)
	test.That(t, duties(t, b), test.ShouldResemble, []uint16{0, 13107, 0, 0})
	test.That(t, c.State(), test.ShouldEqual, Moving)

	test.That(t, c.Stop(ctx), test.ShouldBeNil)
	test.That(t, duties(t, b), test.ShouldResemble, []uint16{0, 0, 0, 0})
	test.That(t, c.State(), test.ShouldEqual, Stopped)
	test.That(t, c.State().String(), test.ShouldEqual, "stopped")

	// stopping a stopped base writes zeros again
	b.ResetWrites()
	test.That(t, c.Stop(ctx), test.ShouldBeNil)
	test.That(t, len(b.Writes()), test.ShouldEqual, 4)
}

func TestDoStop(t *testing.T) {
	ctx := context.Background()
	c, b := newTestBase(t, testConfig(LayoutFront))
	test.That(t, c.Do(ctx, GaitSpinLeft, DefaultGaitParameters()), test.ShouldBeNil)
	test.That(t, c.State().String(), test.ShouldEqual, "moving")
	test.That(t, c.Do(ctx, GaitStop, GaitParameters{Speed: 90}), test.ShouldBeNil)
	test.That(t, duties(t, b), test.ShouldResemble, []uint16{0, 0, 0, 0})

	test.That(t, c.Do(ctx, Gait(100), DefaultGaitParameters()), test.ShouldNotBeNil)
}

func TestReverseSteer(t *testing.T) {
	ctx := context.Background()
	on, off := true, false

	for _, tc := range []struct {
		name      string
		layout    Layout
		override  *bool
		supported bool
	}{
		{"front", LayoutFront, nil, false},
		{"rear", LayoutRear, nil, true},
		{"front with override", LayoutFront, &on, true},
		{"rear with override", LayoutRear, &off, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			conf := testConfig(tc.layout)
			conf.ReverseSteer = tc.override
			c, b := newTestBase(t, conf)
			test.That(t, c.SupportsReverseSteer(), test.ShouldEqual, tc.supported)

			test.That(t, c.Forward(ctx, 40), test.ShouldBeNil)
			b.ResetWrites()

			err := c.ArcLeftReverse(ctx, 60, 0.3)
			if tc.supported {
				test.That(t, err, test.ShouldBeNil)
				left, right := c.Speeds()
				test.That(t, left, test.ShouldEqual, -18)
				test.That(t, right, test.ShouldEqual, -60)
				return
			}
			test.That(t, errors.Is(err, ErrReverseSteerUnsupported), test.ShouldBeTrue)
			test.That(t, err.Error(), test.ShouldContainSubstring, "arc-left-reverse")
			// motors are left as they were
			test.That(t, b.Writes(), test.ShouldBeEmpty)
			left, right := c.Speeds()
			test.That(t, left, test.ShouldEqual, 40)
			test.That(t, right, test.ShouldEqual, 40)

			for _, do := range []func() error{
				func() error { return c.TurnLeftReverse(ctx, 60) },
				func() error { return c.TurnRightReverse(ctx, 60) },
				func() error { return c.ArcRightReverse(ctx, 60, 0.5) },
			} {
				test.That(t, errors.Is(do(), ErrReverseSteerUnsupported), test.ShouldBeTrue)
			}
		})
	}
}

func TestFailedMoveStops(t *testing.T) {
	ctx := context.Background()
	c, b := newTestBase(t, testConfig(LayoutFront))
	test.That(t, c.Forward(ctx, 60), test.ShouldBeNil)

	b.SetFailWrites(true)
	err := c.SpinLeft(ctx, 60)
	test.That(t, errors.Is(err, fake.ErrWriteFailed), test.ShouldBeTrue)
	test.That(t, c.State(), test.ShouldEqual, Stopped)

	b.SetFailWrites(false)
	test.That(t, c.Close(ctx), test.ShouldBeNil)
	test.That(t, duties(t, b), test.ShouldResemble, []uint16{0, 0, 0, 0})
}

func TestConcurrentMovesStayPaired(t *testing.T) {
	ctx := context.Background()
	c, b := newTestBase(t, testConfig(LayoutFront))

	var wg sync.WaitGroup
	for i := 1; i <= 6; i++ {
		wg.Add(1)
		go func(speed int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				test.That(t, c.Move(ctx, speed*10, speed*10), test.ShouldBeNil)
				test.That(t, c.Stop(ctx), test.ShouldBeNil)
			}
		}(i)
	}
	wg.Wait()

	writes := b.Writes()
	test.That(t, len(writes), test.ShouldEqual, 6*25*2*4)
	for i := 0; i < len(writes); i += 4 {
		group := writes[i : i+4]
		test.That(t, group[0].Pin, test.ShouldEqual, "lf")
		test.That(t, group[3].Pin, test.ShouldEqual, "rr")
		test.That(t, group[0].Duty, test.ShouldEqual, group[2].Duty)
	}
}

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		modify func(*Config)
		err    string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing layout", func(c *Config) { c.Layout = "" }, `"layout" is required`},
		{"bad layout", func(c *Config) { c.Layout = "middle" }, `unknown layout "middle"`},
		{"bad left", func(c *Config) { c.Left.Pins.Forward = "" }, `"base.left"`},
		{"bad right", func(c *Config) { c.Right.Pins.Reverse = "" }, `"base.right"`},
		{"shared pin", func(c *Config) { c.Right.Pins.Forward = "lr" }, `pin "lr" is used by both motors`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			conf := testConfig(LayoutRear)
			tc.modify(&conf)
			err := conf.Validate("base")
			if tc.err == "" {
				test.That(t, err, test.ShouldBeNil)
				return
			}
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.err)
		})
	}
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout(" REAR")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, l, test.ShouldEqual, LayoutRear)
	test.That(t, l.DefaultReverseSteer(), test.ShouldBeTrue)
	test.That(t, LayoutFront.DefaultReverseSteer(), test.ShouldBeFalse)

	_, err = ParseLayout("tank")
	test.That(t, err, test.ShouldNotBeNil)
}
