package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"go.viam.com/utils"

	"go.viam.com/diffdrive/components/base/differential"
	"go.viam.com/diffdrive/config"
	"go.viam.com/diffdrive/logging"
	"go.viam.com/diffdrive/robot"
	"go.viam.com/diffdrive/script"
)

const defaultHold = time.Second

type globalArgs struct {
	ConfigPath string
	Debug      bool
	Simulate   bool
}

// parseGlobalArgs reads the global flags, falling back to the environment for any flag not given.
// A boolean set in either place is on.
func parseGlobalArgs(c *cli.Context) (globalArgs, error) {
	env, err := config.ReadEnv()
	if err != nil {
		return globalArgs{}, err
	}
	args := globalArgs{
		ConfigPath: env.ConfigPath,
		Debug:      env.Debug,
		Simulate:   env.Simulate,
	}
	if path := c.String(flagConfig); path != "" {
		args.ConfigPath = path
	}
	args.Debug = args.Debug || c.Bool(flagDebug)
	args.Simulate = args.Simulate || c.Bool(flagSimulate)
	return args, nil
}

func newLogger(out io.Writer, debug bool) logging.Logger {
	logger := logging.NewBlankLogger("diffdrive")
	logger.AddAppender(logging.NewWriterAppender(zapcore.AddSync(out)))
	if !debug {
		logger.SetLevel(logging.INFO)
	}
	return logger
}

// withRobot builds the configured robot and calls fn with a context that is cancelled on
// SIGINT or SIGTERM. The robot is closed, and so its base stopped, however fn returns.
func withRobot(c *cli.Context, fn func(ctx context.Context, r *robot.Robot) error) (err error) {
	args, err := parseGlobalArgs(c)
	if err != nil {
		return err
	}
	if args.ConfigPath == "" {
		return config.ErrNoConfig
	}
	logger := newLogger(c.App.ErrWriter, args.Debug)

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	r, err := robot.FromConfigPath(ctx, args.ConfigPath, args.Simulate, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, r.Close(context.WithoutCancel(ctx)))
	}()
	return fn(ctx, r)
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// hold lets the base keep moving for dur, or until ctx is done, and then stops it.
func hold(ctx context.Context, w io.Writer, base *differential.Controller, dur time.Duration) error {
	if !utils.SelectContextOrWait(ctx, dur) {
		printf(w, "interrupted, stopping")
	}
	return base.Stop(context.WithoutCancel(ctx))
}

// GaitAction drives the named gait for --duration.
func GaitAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.Errorf("expected one gait name, one of %v", differential.Gaits())
	}
	gait, err := differential.ParseGait(c.Args().First())
	if err != nil {
		return err
	}
	params := differential.GaitParameters{
		Speed:     c.Int(flagSpeed),
		TurnRatio: c.Float64(flagRatio),
	}
	dur := c.Duration(flagDuration)

	return withRobot(c, func(ctx context.Context, r *robot.Robot) error {
		base := r.Base()
		if err := base.Do(ctx, gait, params); err != nil {
			return err
		}
		left, right := base.Speeds()
		printf(c.App.Writer, "%s: left %d right %d for %s", gait, left, right, dur)
		return hold(ctx, c.App.Writer, base, dur)
	})
}

// MoveAction sets the left and right wheel speeds for --duration.
func MoveAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("expected a left and a right speed")
	}
	left, err := strconv.Atoi(c.Args().Get(0))
	if err != nil {
		return errors.Wrap(err, "invalid left speed")
	}
	right, err := strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return errors.Wrap(err, "invalid right speed")
	}
	dur := c.Duration(flagDuration)

	return withRobot(c, func(ctx context.Context, r *robot.Robot) error {
		base := r.Base()
		if err := base.Move(ctx, left, right); err != nil {
			return err
		}
		left, right := base.Speeds()
		printf(c.App.Writer, "move: left %d right %d for %s", left, right, dur)
		return hold(ctx, c.App.Writer, base, dur)
	})
}

// StopAction stops both motors.
func StopAction(c *cli.Context) error {
	return withRobot(c, func(ctx context.Context, r *robot.Robot) error {
		if err := r.Base().Stop(ctx); err != nil {
			return err
		}
		printf(c.App.Writer, "stopped")
		return nil
	})
}

// loadScript returns the script in a .yaml or .yml file, or else the built-in script of that name.
func loadScript(name string) (*script.Script, error) {
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return script.Load(name)
	default:
		return script.Builtin(name)
	}
}

// RunAction runs a script, printing each step as it starts.
func RunAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.Errorf("expected one script, a YAML file or one of %v", script.BuiltinNames())
	}
	s, err := loadScript(c.Args().First())
	if err != nil {
		return err
	}

	return withRobot(c, func(ctx context.Context, r *robot.Robot) error {
		if err := r.CheckScript(s); err != nil {
			return err
		}
		runner := r.NewRunner(nil)
		runner.Progress = progressPrinter(c.App.Writer, s)

		printf(c.App.Writer, "running %s (%s)", s.Name, s.TotalDuration())
		err := runner.Run(ctx, s)
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			printf(c.App.Writer, "interrupted, stopped")
			return nil
		}
		if err != nil {
			return err
		}
		printf(c.App.Writer, "%s done", s.Name)
		return nil
	})
}

// ScriptsAction prints a table of the built-in scripts.
func ScriptsAction(c *cli.Context) error {
	out, err := scriptsTable()
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", out)
	return nil
}

// GaitsAction prints a table of the gaits and the wheel speeds they produce at the default speed.
func GaitsAction(c *cli.Context) error {
	printf(c.App.Writer, "%s", gaitsTable())
	return nil
}

// ConsoleAction opens an interactive shell on the robot. The base is stopped when the shell exits.
func ConsoleAction(c *cli.Context) error {
	return withRobot(c, func(ctx context.Context, r *robot.Robot) error {
		return runConsole(ctx, r, c.App.Writer)
	})
}
