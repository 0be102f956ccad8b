package script

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/diffdrive/components/base/differential"
)

func ratio(r float64) *float64 {
	return &r
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func drive(gait differential.Gait, speed int, dur, pause float64, msg string) Step {
	return Step{Gait: gait, Speed: speed, Duration: seconds(dur), Pause: seconds(pause), Message: msg}
}

func arc(gait differential.Gait, speed int, r, dur, pause float64, msg string) Step {
	step := drive(gait, speed, dur, pause, msg)
	step.TurnRatio = ratio(r)
	return step
}

func stop(msg string) Step {
	return Step{Gait: differential.GaitStop, Message: msg}
}

func repeat(n int, steps ...Step) []Step {
	var out []Step
	for i := 0; i < n; i++ {
		out = append(out, steps...)
	}
	return out
}

var builtins = map[string]func() *Script{
	"demo": func() *Script {
		return &Script{
			Name:        "demo",
			Description: "every front-drive gait in turn",
			Layout:      differential.LayoutFront,
			Steps: []Step{
				drive(differential.GaitForward, 60, 2, 1, "forward"),
				drive(differential.GaitBackward, 60, 2, 1, "backward"),
				drive(differential.GaitTurnLeft, 60, 1.5, 1, "turn left"),
				drive(differential.GaitTurnRight, 60, 1.5, 1, "turn right"),
				drive(differential.GaitSpinLeft, 50, 1.5, 1, "spin left"),
				drive(differential.GaitSpinRight, 50, 1.5, 1, "spin right"),
				arc(differential.GaitArcLeft, 60, 0.6, 2, 1, "gentle arc left"),
				arc(differential.GaitArcRight, 60, 0.3, 2, 1, "sharp arc right"),
			},
		}
	},
	"figure-eight": func() *Script {
		return &Script{
			Name:        "figure-eight",
			Description: "two opposite arcs back to back",
			Layout:      differential.LayoutFront,
			Steps: []Step{
				arc(differential.GaitArcRight, 60, 0.4, 4, 0, "first loop"),
				arc(differential.GaitArcLeft, 60, 0.4, 4, 0, "second loop"),
				stop("figure eight complete"),
			},
		}
	},
	"obstacle-avoidance": func() *Script {
		return &Script{
			Name:        "obstacle-avoidance",
			Description: "drive, spin away from an imagined obstacle, repeat",
			Layout:      differential.LayoutFront,
			Steps: repeat(3,
				drive(differential.GaitForward, 60, 2, 0.3, "moving forward"),
				drive(differential.GaitSpinRight, 50, 1, 0.3, "obstacle detected, turning"),
			),
		}
	},
	"rear-demo": func() *Script {
		return &Script{
			Name:        "rear-demo",
			Description: "every rear-drive gait in turn, including reverse steering",
			Layout:      differential.LayoutRear,
			Steps: []Step{
				drive(differential.GaitForward, 60, 2, 1, "forward"),
				drive(differential.GaitBackward, 60, 2, 1, "backward"),
				drive(differential.GaitTurnLeft, 60, 1.5, 1, "turn left going forward"),
				drive(differential.GaitTurnRight, 60, 1.5, 1, "turn right going forward"),
				drive(differential.GaitTurnLeftReverse, 60, 1.5, 1, "turn left going backward"),
				drive(differential.GaitTurnRightReverse, 60, 1.5, 1, "turn right going backward"),
				drive(differential.GaitSpinLeft, 50, 1.5, 1, "spin left"),
				drive(differential.GaitSpinRight, 50, 1.5, 1, "spin right"),
				arc(differential.GaitArcLeft, 60, 0.4, 2, 1, "arc left"),
				arc(differential.GaitArcLeftReverse, 60, 0.3, 2, 1, "arc left backing up"),
			},
		}
	},
	"parallel-parking": func() *Script {
		return &Script{
			Name:        "parallel-parking",
			Description: "back into a space on the right",
			Layout:      differential.LayoutRear,
			Steps: []Step{
				drive(differential.GaitForward, 50, 1.5, 0.5, "pull alongside the space"),
				drive(differential.GaitTurnRightReverse, 50, 1.5, 0.5, "back in to the right"),
				drive(differential.GaitTurnLeftReverse, 50, 1, 0.5, "straighten out"),
				drive(differential.GaitBackward, 50, 1, 0, "settle into the space"),
				stop("parked"),
			},
		}
	},
	"three-point-turn": func() *Script {
		return &Script{
			Name:        "three-point-turn",
			Description: "turn around in a narrow lane",
			Layout:      differential.LayoutRear,
			Steps: []Step{
				arc(differential.GaitArcRight, 50, 0.2, 2, 0.5, "swing right"),
				arc(differential.GaitArcLeftReverse, 50, 0.2, 2, 0.5, "back left"),
				drive(differential.GaitForward, 50, 1.5, 0, "drive away"),
				stop("turn complete"),
			},
		}
	},
	"navigation": func() *Script {
		return &Script{
			Name:        "navigation",
			Description: "drive a square-ish loop turning by backing up",
			Layout:      differential.LayoutRear,
			Steps: repeat(3,
				drive(differential.GaitForward, 60, 2, 0.3, "straight segment"),
				drive(differential.GaitTurnRightReverse, 55, 1.2, 0.3, "reverse turn at the corner"),
			),
		}
	},
}

// BuiltinNames returns the names of the built-in scripts, sorted.
func BuiltinNames() []string {
	names := lo.Keys(builtins)
	sort.Strings(names)
	return names
}

// Builtin returns a fresh copy of the named built-in script.
func Builtin(name string) (*Script, error) {
	build, ok := builtins[name]
	if !ok {
		return nil, errors.Errorf("no built-in script named %q, expected one of %v", name, BuiltinNames())
	}
	return build(), nil
}
