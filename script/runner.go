package script

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/diffdrive/components/base/differential"
	"go.viam.com/diffdrive/logging"
	"go.viam.com/diffdrive/operation"
)

// A Base is what a script drives.
type Base interface {
	Do(ctx context.Context, gait differential.Gait, params differential.GaitParameters) error
	Stop(ctx context.Context) error
}

// A Runner runs one script at a time on a base. Starting a script cancels the one running.
type Runner struct {
	// Progress, if set, is called before each step starts.
	Progress func(index int, step Step)

	base   Base
	logger logging.Logger
	opMgr  *operation.SingleOperationManager
	runMu  sync.Mutex
}

// NewRunner returns a runner timing steps with clk, or the wall clock if clk is nil.
func NewRunner(base Base, clk clock.Clock, logger logging.Logger) *Runner {
	return &Runner{
		base:   base,
		logger: logger,
		opMgr:  &operation.SingleOperationManager{Clock: clk},
	}
}

// Run executes the script. Whatever happens, the base is stopped before Run returns. If ctx
// is cancelled, or another script or Cancel preempts this one, the returned error wraps
// context.Canceled.
func (r *Runner) Run(ctx context.Context, s *Script) (err error) {
	if err := s.Validate(); err != nil {
		return err
	}

	// the previous run must finish stopping before this one moves the base
	r.opMgr.CancelRunning(ctx)
	r.runMu.Lock()
	defer r.runMu.Unlock()

	ctx, done := r.opMgr.New(ctx)
	defer done()

	id, _ := operation.ID(ctx)
	logger := r.logger.Sublogger(s.Name)
	logger.Infow("running script", "run", id.String(), "steps", len(s.Steps), "duration", s.TotalDuration().String())

	defer func() {
		if stopErr := r.base.Stop(context.WithoutCancel(ctx)); stopErr != nil {
			err = multierr.Combine(err, errors.Wrap(stopErr, "cannot stop base after script"))
		}
		if err != nil {
			logger.Warnw("script ended early", "run", id.String(), "error", err)
			return
		}
		logger.Infow("script finished", "run", id.String())
	}()

	for i, step := range s.Steps {
		if ctx.Err() != nil {
			return errors.Wrapf(ctx.Err(), "script %s interrupted before step %d", s.Name, i)
		}
		if r.Progress != nil {
			r.Progress(i, step)
		}
		logger.Debugw("step", "run", id.String(), "index", i, "step", step.String())

		if step.Gait == differential.GaitStop {
			err = r.base.Stop(ctx)
		} else {
			err = r.base.Do(ctx, step.Gait, step.Params())
		}
		if err != nil {
			return errors.Wrapf(err, "script %s step %d (%s)", s.Name, i, step)
		}
		if !r.opMgr.Wait(ctx, step.Duration) {
			return errors.Wrapf(ctx.Err(), "script %s interrupted during step %d", s.Name, i)
		}

		if step.Pause > 0 {
			if err := r.base.Stop(ctx); err != nil {
				return errors.Wrapf(err, "script %s step %d (%s)", s.Name, i, step)
			}
			if !r.opMgr.Wait(ctx, step.Pause) {
				return errors.Wrapf(ctx.Err(), "script %s interrupted after step %d", s.Name, i)
			}
		}
	}
	return nil
}

// Running reports whether a script is running.
func (r *Runner) Running() bool {
	return r.opMgr.OpRunning()
}

// Cancel interrupts the running script, if any, waits for it to return, and stops the base.
func (r *Runner) Cancel(ctx context.Context) error {
	r.opMgr.CancelRunning(ctx)
	r.runMu.Lock()
	defer r.runMu.Unlock()
	return r.base.Stop(ctx)
}
