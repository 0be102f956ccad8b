// Package differential implements a two-wheeled differential drive base. Each gait is a pair of
// signed wheel speeds derived from one speed and, for arcs, a turn ratio. Front-wheel and
// rear-wheel drive robots share the same controller; they differ only in whether gaits that
// steer by reversing a wheel are allowed.
package differential

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/diffdrive/components/motor"
	"go.viam.com/diffdrive/logging"
)

// ErrReverseSteerUnsupported is returned for reverse-steer gaits on a controller without reverse steer.
var ErrReverseSteerUnsupported = errors.New("reverse steer gaits are not supported by this base")

// State is whether the base is commanded to move.
type State int

const (
	// Stopped means both wheels are commanded to zero.
	Stopped State = iota
	// Moving means at least one wheel is commanded to a non-zero speed.
	Moving
)

func (s State) String() string {
	if s == Moving {
		return "moving"
	}
	return "stopped"
}

// Options configure a controller.
type Options struct {
	Layout Layout
	// ReverseSteer overrides the layout's default when set.
	ReverseSteer *bool
}

// A Controller drives a left and a right motor together.
type Controller struct {
	left         *motor.Channel
	right        *motor.Channel
	layout       Layout
	reverseSteer bool
	logger       logging.Logger

	mu sync.Mutex
}

// New returns a controller for the two motors, stopping both first. If the stop fails the
// controller is not returned.
func New(ctx context.Context, left, right *motor.Channel, opts Options, logger logging.Logger) (*Controller, error) {
	if left == nil || right == nil {
		return nil, errors.New("a differential base needs both a left and a right motor")
	}
	layout := opts.Layout
	if layout == "" {
		layout = LayoutFront
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	reverseSteer := layout.DefaultReverseSteer()
	if opts.ReverseSteer != nil {
		reverseSteer = *opts.ReverseSteer
	}

	c := &Controller{
		left:         left,
		right:        right,
		layout:       layout,
		reverseSteer: reverseSteer,
		logger:       logger,
	}
	if err := c.Stop(ctx); err != nil {
		return nil, errors.Wrap(err, "cannot stop motors of new base")
	}
	logger.Debugw("differential base ready", "layout", layout, "reverse_steer", reverseSteer)
	return c, nil
}

// Layout returns which wheels are driven.
func (c *Controller) Layout() Layout {
	return c.layout
}

// SupportsReverseSteer reports whether gaits that steer by reversing a wheel are allowed.
func (c *Controller) SupportsReverseSteer() bool {
	return c.reverseSteer
}

// Move sets each wheel's speed. If either write fails the base is stopped and the errors are
// returned together.
func (c *Controller) Move(ctx context.Context, left, right int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debugw("move", "left", left, "right", right)
	err := multierr.Combine(
		c.left.SetSpeed(ctx, left),
		c.right.SetSpeed(ctx, right),
	)
	if err != nil {
		return multierr.Combine(err, c.stop(ctx))
	}
	return nil
}

// Do performs any gait.
func (c *Controller) Do(ctx context.Context, gait Gait, params GaitParameters) error {
	if !gait.Valid() {
		return errors.Errorf("unknown gait %d", int(gait))
	}
	if gait == GaitStop {
		return c.Stop(ctx)
	}
	if gait.RequiresReverseSteer() && !c.reverseSteer {
		return errors.Wrapf(ErrReverseSteerUnsupported, "%s on %s drive", gait, c.layout)
	}
	left, right := WheelSpeeds(gait, params)
	c.logger.Debugw("gait", "gait", gait.String(), "speed", params.Speed, "turn_ratio", params.TurnRatio)
	return c.Move(ctx, left, right)
}

func (c *Controller) doSpeed(ctx context.Context, gait Gait, speed int) error {
	return c.Do(ctx, gait, GaitParameters{Speed: speed})
}

func (c *Controller) doArc(ctx context.Context, gait Gait, speed int, ratio float64) error {
	return c.Do(ctx, gait, GaitParameters{Speed: speed, TurnRatio: ratio})
}

// Forward drives both wheels forward.
func (c *Controller) Forward(ctx context.Context, speed int) error {
	return c.doSpeed(ctx, GaitForward, speed)
}

// Backward drives both wheels backward.
func (c *Controller) Backward(ctx context.Context, speed int) error {
	return c.doSpeed(ctx, GaitBackward, speed)
}

// TurnLeft drives only the right wheel.
func (c *Controller) TurnLeft(ctx context.Context, speed int) error {
	return c.doSpeed(ctx, GaitTurnLeft, speed)
}

// TurnRight drives only the left wheel.
func (c *Controller) TurnRight(ctx context.Context, speed int) error {
	return c.doSpeed(ctx, GaitTurnRight, speed)
}

// SpinLeft turns in place counter-clockwise.
func (c *Controller) SpinLeft(ctx context.Context, speed int) error {
	return c.doSpeed(ctx, GaitSpinLeft, speed)
}

// SpinRight turns in place clockwise.
func (c *Controller) SpinRight(ctx context.Context, speed int) error {
	return c.doSpeed(ctx, GaitSpinRight, speed)
}

// ArcLeft drives the left wheel at speed*ratio and the right wheel at speed.
func (c *Controller) ArcLeft(ctx context.Context, speed int, ratio float64) error {
	return c.doArc(ctx, GaitArcLeft, speed, ratio)
}

// ArcRight drives the left wheel at speed and the right wheel at speed*ratio.
func (c *Controller) ArcRight(ctx context.Context, speed int, ratio float64) error {
	return c.doArc(ctx, GaitArcRight, speed, ratio)
}

// PivotLeft is TurnLeft.
func (c *Controller) PivotLeft(ctx context.Context, speed int) error {
	return c.doSpeed(ctx, GaitPivotLeft, speed)
}

// PivotRight is TurnRight.
func (c *Controller) PivotRight(ctx context.Context, speed int) error {
	return c.doSpeed(ctx, GaitPivotRight, speed)
}

// TurnLeftReverse backs the right wheel with the left wheel still.
func (c *Controller) TurnLeftReverse(ctx context.Context, speed int) error {
	return c.doSpeed(ctx, GaitTurnLeftReverse, speed)
}

// TurnRightReverse backs the left wheel with the right wheel still.
func (c *Controller) TurnRightReverse(ctx context.Context, speed int) error {
	return c.doSpeed(ctx, GaitTurnRightReverse, speed)
}

// ArcLeftReverse backs up along a left arc.
func (c *Controller) ArcLeftReverse(ctx context.Context, speed int, ratio float64) error {
	return c.doArc(ctx, GaitArcLeftReverse, speed, ratio)
}

// ArcRightReverse backs up along a right arc.
func (c *Controller) ArcRightReverse(ctx context.Context, speed int, ratio float64) error {
	return c.doArc(ctx, GaitArcRightReverse, speed, ratio)
}

// Stop writes zero to every output of both motors. Both motors are stopped even if the
// first fails.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop(ctx)
}

// expects to already have lock acquired.
func (c *Controller) stop(ctx context.Context) error {
	return multierr.Combine(
		c.left.Stop(ctx),
		c.right.Stop(ctx),
	)
}

// Speeds returns the commanded left and right speeds.
func (c *Controller) Speeds() (left, right int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.left.Speed(), c.right.Speed()
}

// State returns Moving if either wheel is commanded to move.
func (c *Controller) State() State {
	left, right := c.Speeds()
	if left != 0 || right != 0 {
		return Moving
	}
	return Stopped
}

// IsMoving reports whether State is Moving.
func (c *Controller) IsMoving() bool {
	return c.State() == Moving
}

// Close stops the base.
func (c *Controller) Close(ctx context.Context) error {
	return c.Stop(ctx)
}
