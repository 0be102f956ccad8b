// Package cli contains the diffdrive command line: one-shot drive commands, scripts and an
// interactive console.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/diffdrive/components/base/differential"
)

const (
	flagConfig   = "config"
	flagDebug    = "debug"
	flagSimulate = "simulate"
	flagSpeed    = "speed"
	flagRatio    = "ratio"
	flagDuration = "duration"
)

func durationFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:    flagDuration,
		Aliases: []string{"d"},
		Value:   defaultHold,
		Usage:   "how long to drive before stopping",
	}
}

// NewApp returns a new app with the diffdrive commands, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "diffdrive",
		Usage:           "drive a two-motor differential base",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE` (default $DIFFDRIVE_CONFIG)",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  flagSimulate,
				Usage: "drive an in-memory board instead of the configured one",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "gait",
				Usage:     "drive one gait for a while, then stop",
				ArgsUsage: "<gait>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    flagSpeed,
						Aliases: []string{"s"},
						Value:   differential.DefaultSpeed,
						Usage:   "speed of the gait, 0 to 100",
					},
					&cli.Float64Flag{
						Name:    flagRatio,
						Aliases: []string{"r"},
						Value:   differential.DefaultTurnRatio,
						Usage:   "turn ratio of arcs, 0 to 1",
					},
					durationFlag(),
				},
				Action: GaitAction,
			},
			{
				Name:      "move",
				Usage:     "set both wheel speeds for a while, then stop",
				ArgsUsage: "[--] <left> <right>",
				Flags:     []cli.Flag{durationFlag()},
				Action:    MoveAction,
			},
			{
				Name:   "stop",
				Usage:  "stop both motors",
				Action: StopAction,
			},
			{
				Name:      "run",
				Usage:     "run a built-in script or a YAML script file",
				ArgsUsage: "<script|file.yaml>",
				Action:    RunAction,
			},
			{
				Name:   "scripts",
				Usage:  "list the built-in scripts",
				Action: ScriptsAction,
			},
			{
				Name:   "gaits",
				Usage:  "list the gaits",
				Action: GaitsAction,
			},
			{
				Name:   "console",
				Usage:  "drive the base from an interactive shell",
				Action: ConsoleAction,
			},
		},
	}
}
