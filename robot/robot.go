// Package robot assembles a board and a differential base from a config and owns their lifetime.
package robot

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/diffdrive/components/base/differential"
	"go.viam.com/diffdrive/components/board"
	"go.viam.com/diffdrive/components/board/fake"
	// register all board models.
	_ "go.viam.com/diffdrive/components/board/register"
	"go.viam.com/diffdrive/config"
	"go.viam.com/diffdrive/logging"
	"go.viam.com/diffdrive/script"
)

// A Robot is a board with a differential base on it.
type Robot struct {
	config *config.Config
	board  board.Board
	base   *differential.Controller
	logger logging.Logger

	mu     sync.Mutex
	closed bool
}

// New builds the board and the base described by cfg. If anything fails, whatever was built is
// closed again and no robot is returned.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (_ *Robot, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b, err := board.New(ctx, cfg.Board, logger.Sublogger("board"))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			err = multierr.Combine(err, b.Close(ctx))
		}
	}()

	base, err := differential.FromBoard(ctx, b, cfg.Base, logger.Sublogger("base"))
	if err != nil {
		return nil, errors.Wrap(err, "cannot create base")
	}

	logger.Infow("robot ready",
		"board", cfg.Board.Model,
		"layout", base.Layout(),
		"reverse_steer", base.SupportsReverseSteer())
	return &Robot{
		config: cfg,
		board:  b,
		base:   base,
		logger: logger,
	}, nil
}

// FromConfigPath reads the config at path and builds a robot from it, simulated if asked. A
// config with debug set turns logger up to debug.
func FromConfigPath(ctx context.Context, path string, simulate bool, logger logging.Logger) (*Robot, error) {
	cfg, err := config.Read(path, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		logger.SetLevel(logging.DEBUG)
	}
	if simulate {
		cfg = Simulated(cfg)
	}
	return New(ctx, cfg, logger)
}

// Simulated returns a copy of cfg whose board is a fake one with the same pin names.
func Simulated(cfg *config.Config) *config.Config {
	cpy := *cfg
	cpy.Board = board.Config{Model: fake.Model}
	return &cpy
}

// Config returns the config the robot was built from.
func (r *Robot) Config() *config.Config {
	return r.config
}

// Board returns the robot's board.
func (r *Robot) Board() board.Board {
	return r.board
}

// Base returns the robot's base.
func (r *Robot) Base() *differential.Controller {
	return r.base
}

// CheckScript returns an error if the base cannot perform every step of s.
func (r *Robot) CheckScript(s *script.Script) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.RequiresReverseSteer() && !r.base.SupportsReverseSteer() {
		return errors.Wrapf(differential.ErrReverseSteerUnsupported,
			"script %s needs reverse steer but the %s drive base does not have it", s.Name, r.base.Layout())
	}
	if s.Layout != "" && s.Layout != r.base.Layout() {
		r.logger.Warnw("script was written for another layout",
			"script", s.Name, "script_layout", s.Layout, "layout", r.base.Layout())
	}
	return nil
}

// NewRunner returns a script runner for the robot's base.
func (r *Robot) NewRunner(clk clock.Clock) *script.Runner {
	return script.NewRunner(r.base, clk, r.logger.Sublogger("script"))
}

// Close stops the base and then closes the board. It is safe to call more than once.
func (r *Robot) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	return multierr.Combine(
		errors.Wrap(r.base.Close(ctx), "cannot stop base"),
		errors.Wrap(r.board.Close(ctx), "cannot close board"),
	)
}
