package robot

import "math"

// MaxSpeed is the largest normalized wheel speed.
const MaxSpeed = 100

// Below this wheel angle (radians) tan(x) is replaced by x. The relative
// error stays under 0.34% at 0.1 rad.
const smallAngleRad = 0.1

const degToRad = math.Pi / 180

// Geometry holds the chassis dimensions used by the drive model. Units do
// not matter as long as both use the same one.
type Geometry struct {
	Wheelbase  float64 `json:"wheelbase" yaml:"wheelbase"`     // distance between the axles
	TrackWidth float64 `json:"track_width" yaml:"track_width"` // distance between the rear wheels
}

// DefaultGeometry is the chassis the car was built with.
var DefaultGeometry = Geometry{Wheelbase: 19, TrackWidth: 15}

// DriveCommand holds the rear wheel speeds for one control period, in the
// drive motor frame and within [-MaxSpeed, MaxSpeed].
//
// Scale is the factor both speeds were divided by to stay within range,
// 1 when no wheel saturated.
type DriveCommand struct {
	Left  float64
	Right float64
	Scale float64
}

// Straight returns equal wheel speeds for an operator speed.
func Straight(baseSpeed float64) DriveCommand {
	s := ToDriveFrame(clampSpeed(baseSpeed))
	return DriveCommand{Left: s, Right: s, Scale: 1}
}

// WheelSpeeds computes the rear wheel speeds for an operator speed and the
// current steering angle (steering motor frame, degrees).
//
// The inside wheel slows down and the outside wheel speeds up according to
// the turning radius of the front wheels. When one side exceeds MaxSpeed
// both sides are divided by the same factor so the turning radius is kept.
//
// A zero divider yields straight-line speeds; Vehicle.Run refuses to drive
// with a turned steering and no divider.
func WheelSpeeds(baseSpeed, steeringAngle float64, g Geometry, divider float64) DriveCommand {
	if divider == 0 || g.Wheelbase == 0 {
		return Straight(baseSpeed)
	}
	s := ToDriveFrame(clampSpeed(baseSpeed))

	x := steeringAngle / divider * degToRad
	t := x
	if math.Abs(x) >= smallAngleRad {
		t = math.Tan(x)
	}
	turn := g.TrackWidth * t / (2 * g.Wheelbase)

	cmd := DriveCommand{
		Left:  (1 - turn) * s,
		Right: (1 + turn) * s,
		Scale: 1,
	}
	switch {
	case math.Abs(cmd.Left) > MaxSpeed:
		cmd.Scale = math.Abs(cmd.Left / MaxSpeed)
	case math.Abs(cmd.Right) > MaxSpeed:
		cmd.Scale = math.Abs(cmd.Right / MaxSpeed)
	}
	cmd.Left /= cmd.Scale
	cmd.Right /= cmd.Scale
	return cmd
}

func clampSpeed(s float64) float64 {
	return math.Max(-MaxSpeed, math.Min(MaxSpeed, s))
}
