package differential

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const (
	// DefaultSpeed is the speed gaits use when the caller gives none.
	DefaultSpeed = 50
	// DefaultTurnRatio is the inner wheel's share of the outer wheel's speed in an arc.
	DefaultTurnRatio = 0.5
)

// A Gait is a named way of splitting one speed across the two wheels.
type Gait int

// The gaits a controller can perform.
const (
	GaitStop Gait = iota
	GaitForward
	GaitBackward
	GaitTurnLeft
	GaitTurnRight
	GaitSpinLeft
	GaitSpinRight
	GaitArcLeft
	GaitArcRight
	GaitPivotLeft
	GaitPivotRight
	GaitTurnLeftReverse
	GaitTurnRightReverse
	GaitArcLeftReverse
	GaitArcRightReverse
)

// GaitParameters parameterizes every gait. TurnRatio only matters for arcs.
type GaitParameters struct {
	Speed     int
	TurnRatio float64
}

// DefaultGaitParameters returns DefaultSpeed and DefaultTurnRatio.
func DefaultGaitParameters() GaitParameters {
	return GaitParameters{Speed: DefaultSpeed, TurnRatio: DefaultTurnRatio}
}

type gaitInfo struct {
	name         string
	reverseSteer bool
	usesRatio    bool
	wheels       func(s int, r float64) (left, right int)
}

func arcInner(s int, r float64) int {
	return int(float64(s) * r)
}

var gaitTable = []gaitInfo{
	GaitStop:     {"stop", false, false, func(int, float64) (int, int) { return 0, 0 }},
	GaitForward:  {"forward", false, false, func(s int, _ float64) (int, int) { return s, s }},
	GaitBackward: {"backward", false, false, func(s int, _ float64) (int, int) { return -s, -s }},
	GaitTurnLeft: {"turn-left", false, false, func(s int, _ float64) (int, int) { return 0, s }},
	GaitTurnRight: {
		"turn-right", false, false, func(s int, _ float64) (int, int) { return s, 0 },
	},
	GaitSpinLeft:  {"spin-left", false, false, func(s int, _ float64) (int, int) { return -s, s }},
	GaitSpinRight: {"spin-right", false, false, func(s int, _ float64) (int, int) { return s, -s }},
	GaitArcLeft:   {"arc-left", false, true, func(s int, r float64) (int, int) { return arcInner(s, r), s }},
	GaitArcRight:  {"arc-right", false, true, func(s int, r float64) (int, int) { return s, arcInner(s, r) }},
	// pivots keep the inner wheel still, the same as a plain turn
	GaitPivotLeft:  {"pivot-left", false, false, func(s int, _ float64) (int, int) { return 0, s }},
	GaitPivotRight: {"pivot-right", false, false, func(s int, _ float64) (int, int) { return s, 0 }},
	GaitTurnLeftReverse: {
		"turn-left-reverse", true, false, func(s int, _ float64) (int, int) { return 0, -s },
	},
	GaitTurnRightReverse: {
		"turn-right-reverse", true, false, func(s int, _ float64) (int, int) { return -s, 0 },
	},
	GaitArcLeftReverse: {
		"arc-left-reverse", true, true, func(s int, r float64) (int, int) { return arcInner(-s, r), -s },
	},
	GaitArcRightReverse: {
		"arc-right-reverse", true, true, func(s int, r float64) (int, int) { return -s, arcInner(-s, r) },
	},
}

// Gaits returns every gait, in declaration order.
func Gaits() []Gait {
	return lo.Times(len(gaitTable), func(i int) Gait { return Gait(i) })
}

// Valid reports whether g is a known gait.
func (g Gait) Valid() bool {
	return g >= 0 && int(g) < len(gaitTable)
}

func (g Gait) String() string {
	if !g.Valid() {
		return "unknown"
	}
	return gaitTable[g].name
}

// RequiresReverseSteer reports whether the gait drives a wheel backwards to steer, which
// only controllers supporting reverse steer accept.
func (g Gait) RequiresReverseSteer() bool {
	return g.Valid() && gaitTable[g].reverseSteer
}

// UsesTurnRatio reports whether GaitParameters.TurnRatio affects the gait.
func (g Gait) UsesTurnRatio() bool {
	return g.Valid() && gaitTable[g].usesRatio
}

// ParseGait parses a gait name such as "arc-left-reverse". Case is ignored and
// underscores are accepted in place of dashes.
func ParseGait(name string) (Gait, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	for i, info := range gaitTable {
		if info.name == normalized {
			return Gait(i), nil
		}
	}
	return GaitStop, errors.Errorf("unknown gait %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (g Gait) MarshalText() ([]byte, error) {
	if !g.Valid() {
		return nil, errors.Errorf("unknown gait %d", int(g))
	}
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Gait) UnmarshalText(text []byte) error {
	parsed, err := ParseGait(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// UnmarshalYAML parses gait names in YAML documents.
func (g *Gait) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	return g.UnmarshalText([]byte(name))
}

// MarshalYAML writes the gait's name.
func (g Gait) MarshalYAML() (interface{}, error) {
	text, err := g.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(text), nil
}

// ClampTurnRatio limits a turn ratio to [0, 1]. NaN becomes 0.
func ClampTurnRatio(ratio float64) float64 {
	if math.IsNaN(ratio) {
		return 0
	}
	return lo.Clamp(ratio, 0, 1)
}

// WheelSpeeds returns the left and right speeds a gait commands. Speeds are not clamped here;
// the motor channels clamp them.
func WheelSpeeds(g Gait, params GaitParameters) (left, right int) {
	if !g.Valid() {
		return 0, 0
	}
	return gaitTable[g].wheels(params.Speed, ClampTurnRatio(params.TurnRatio))
}
