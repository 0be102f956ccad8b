// Package motor drives a single DC motor through an H-bridge with one PWM input per direction.
// Speed is a signed percentage: positive drives the forward input, negative the reverse input,
// and the other input is always held at zero.
package motor

import (
	"github.com/samber/lo"

	"go.viam.com/diffdrive/components/board"
)

// MaxSpeed is the magnitude of the fastest speed in either direction.
const MaxSpeed = 100

// ClampSpeed limits speed to [-MaxSpeed, MaxSpeed].
func ClampSpeed(speed int) int {
	return lo.Clamp(speed, -MaxSpeed, MaxSpeed)
}

// DutyForSpeed returns the duty level for the magnitude of speed after clamping,
// rounded down.
func DutyForSpeed(speed int) uint16 {
	speed = ClampSpeed(speed)
	if speed < 0 {
		speed = -speed
	}
	return uint16(speed * board.MaxDuty / MaxSpeed)
}
