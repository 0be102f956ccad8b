package cli

import (
	"context"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/abiosoft/ishell"
	"github.com/pkg/errors"

	"go.viam.com/diffdrive/components/base/differential"
	"go.viam.com/diffdrive/robot"
)

// console holds the state shared by the commands of the interactive shell. At most one script
// runs at a time, in the background; any other drive command cancels it first.
type console struct {
	ctx   context.Context
	robot *robot.Robot
	out   io.Writer

	mu        sync.Mutex
	cancelRun context.CancelFunc
	running   string
	wg        sync.WaitGroup
}

func newConsole(ctx context.Context, r *robot.Robot, out io.Writer) *console {
	return &console{ctx: ctx, robot: r, out: out}
}

func runConsole(ctx context.Context, r *robot.Robot, out io.Writer) error {
	con := newConsole(ctx, r, out)

	shell := ishell.New()
	shell.SetOut(out)
	shell.SetPrompt("diffdrive> ")
	for _, cmd := range con.commands() {
		shell.AddCmd(cmd)
	}
	shell.Interrupt(func(c *ishell.Context, count int, input string) {
		if err := con.stop(); err != nil {
			c.Println("Error:", err)
		}
		if count > 1 {
			c.Stop()
			return
		}
		c.Println("stopped, press ctrl-c again to exit")
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			shell.Close()
		case <-done:
		}
	}()

	base := r.Base()
	shell.Println("diffdrive console,", base.Layout(), "drive, reverse steer", yesNo(base.SupportsReverseSteer()))
	shell.Println("type help for commands")
	shell.Run()

	return con.stop()
}

func (con *console) commands() []*ishell.Cmd {
	cmds := make([]*ishell.Cmd, 0, len(differential.Gaits())+6)
	for _, g := range differential.Gaits() {
		if g == differential.GaitStop {
			continue
		}
		help := "[speed] drive " + g.String()
		if g.UsesTurnRatio() {
			help = "[speed] [ratio] drive " + g.String()
		}
		if g.RequiresReverseSteer() {
			help += " (reverse steer only)"
		}
		gait := g
		cmds = append(cmds, &ishell.Cmd{
			Name: g.String(),
			Help: help,
			Func: func(c *ishell.Context) {
				c.Err(con.drive(gait, c.Args))
			},
		})
	}

	return append(cmds,
		&ishell.Cmd{
			Name: "move",
			Help: "<left> <right> set both wheel speeds",
			Func: func(c *ishell.Context) {
				c.Err(con.move(c.Args))
			},
		},
		&ishell.Cmd{
			Name: "stop",
			Help: "stop the base and any running script",
			Func: func(c *ishell.Context) {
				c.Err(con.stop())
			},
		},
		&ishell.Cmd{
			Name: "run",
			Help: "<script|file.yaml> run a script in the background",
			Func: func(c *ishell.Context) {
				c.Err(con.run(c.Args))
			},
		},
		&ishell.Cmd{
			Name: "state",
			Help: "show the wheel speeds",
			Func: func(c *ishell.Context) {
				c.Println(con.state())
			},
		},
		&ishell.Cmd{
			Name: "scripts",
			Help: "list the built-in scripts",
			Func: func(c *ishell.Context) {
				out, err := scriptsTable()
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(out)
			},
		},
		&ishell.Cmd{
			Name: "gaits",
			Help: "list the gaits",
			Func: func(c *ishell.Context) {
				c.Println(gaitsTable())
			},
		},
	)
}

// gaitParams parses the optional speed and turn ratio arguments of a gait command.
func gaitParams(g differential.Gait, args []string) (differential.GaitParameters, error) {
	params := differential.DefaultGaitParameters()
	maxArgs := 1
	if g.UsesTurnRatio() {
		maxArgs = 2
	}
	if len(args) > maxArgs {
		return params, errors.Errorf("%s takes at most %d arguments", g, maxArgs)
	}
	if len(args) > 0 {
		speed, err := strconv.Atoi(args[0])
		if err != nil {
			return params, errors.Wrap(err, "invalid speed")
		}
		params.Speed = speed
	}
	if len(args) > 1 {
		ratio, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return params, errors.Wrap(err, "invalid turn ratio")
		}
		params.TurnRatio = ratio
	}
	return params, nil
}

func (con *console) drive(g differential.Gait, args []string) error {
	params, err := gaitParams(g, args)
	if err != nil {
		return err
	}
	con.cancelScript()
	base := con.robot.Base()
	if err := base.Do(con.ctx, g, params); err != nil {
		return err
	}
	printf(con.out, "%s", con.state())
	return nil
}

func (con *console) move(args []string) error {
	if len(args) != 2 {
		return errors.New("expected a left and a right speed")
	}
	left, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Wrap(err, "invalid left speed")
	}
	right, err := strconv.Atoi(args[1])
	if err != nil {
		return errors.Wrap(err, "invalid right speed")
	}
	con.cancelScript()
	if err := con.robot.Base().Move(con.ctx, left, right); err != nil {
		return err
	}
	printf(con.out, "%s", con.state())
	return nil
}

func (con *console) stop() error {
	con.cancelScript()
	return con.robot.Base().Stop(context.WithoutCancel(con.ctx))
}

// run starts a script in the background, cancelling any script already running.
func (con *console) run(args []string) error {
	if len(args) != 1 {
		return errors.New("expected one script name or file")
	}
	s, err := loadScript(args[0])
	if err != nil {
		return err
	}
	if err := con.robot.CheckScript(s); err != nil {
		return err
	}
	con.cancelScript()

	runner := con.robot.NewRunner(nil)
	runner.Progress = progressPrinter(con.out, s)
	runCtx, cancel := context.WithCancel(con.ctx)

	con.mu.Lock()
	con.cancelRun = cancel
	con.running = s.Name
	con.mu.Unlock()

	con.wg.Add(1)
	go func() {
		defer con.wg.Done()
		defer cancel()
		err := runner.Run(runCtx, s)

		con.mu.Lock()
		if con.running == s.Name {
			con.running = ""
		}
		con.mu.Unlock()

		switch {
		case errors.Is(err, context.Canceled):
			printf(con.out, "%s cancelled", s.Name)
		case err != nil:
			printf(con.out, "%s failed: %v", s.Name, err)
		default:
			printf(con.out, "%s done", s.Name)
		}
	}()
	return nil
}

// cancelScript cancels the background script, if any, and waits for it to stop the base.
func (con *console) cancelScript() {
	con.mu.Lock()
	cancel := con.cancelRun
	con.cancelRun = nil
	con.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	con.wg.Wait()
}

func (con *console) state() string {
	base := con.robot.Base()
	left, right := base.Speeds()

	var sb strings.Builder
	sb.WriteString(base.State().String())
	if base.IsMoving() {
		sb.WriteString(": left " + strconv.Itoa(left) + " right " + strconv.Itoa(right))
	}
	con.mu.Lock()
	if con.running != "" {
		sb.WriteString(", running " + con.running)
	}
	con.mu.Unlock()
	return sb.String()
}
