// Package sim simulates the car on a straight line so the control loop can
// run without hardware.
package sim

import (
	"context"
	"math"
	"time"

	"github.com/gwillem/linefollower/pkg/robot"
)

// Track is a car on a flat surface whose left half (x < 0) is dark and
// whose right half is light. The sensor sits on the car's rear axle centre.
// Time advances by Step on every light sensor read.
type Track struct {
	Light, Dark int
	EdgeWidth   float64 // width of the intensity ramp across the edge
	Geometry    robot.Geometry
	Divider     float64       // steering motor degrees per wheel degree
	TopSpeed    float64       // distance per second at speed 100
	Step        time.Duration // simulated time per sensor read
	StopAfter   int           // touch sensor triggers after this many polls, 0 never

	// X is the lateral offset from the edge, Heading the angle from the
	// edge direction in radians, positive to the right.
	X, Y, Heading float64

	speed      float64 // operator frame
	wheelAngle float64 // operator frame, degrees
	polls      int
	confirms   int
	onTrack    bool

	Moves  []int // steering commands received
	Drives []robot.DriveCommand
	LEDs   int // indicator toggles
}

// NewTrack returns a track matching the default chassis, starting slightly
// off the edge on the light side.
func NewTrack() *Track {
	return &Track{
		Light:     80,
		Dark:      10,
		EdgeWidth: 4,
		Geometry:  robot.DefaultGeometry,
		Divider:   24,
		TopSpeed:  40,
		Step:      10 * time.Millisecond,
		X:         1,
		onTrack:   true,
	}
}

// Devices returns the simulated collaborators.
func (t *Track) Devices() robot.Devices {
	return robot.Devices{
		Light:     t,
		Touch:     t,
		Drive:     t,
		Steering:  t,
		Indicator: t,
		Confirm:   t,
	}
}

// Intensity returns the reflected light at lateral offset x.
func (t *Track) Intensity(x float64) int {
	w := t.EdgeWidth
	if w <= 0 {
		w = 1
	}
	f := (x + w/2) / w
	f = math.Max(0, math.Min(1, f))
	f = f * f * (3 - 2*f)
	return t.Dark + int(math.Round(f*float64(t.Light-t.Dark)))
}

// ReadIntensity advances the simulation one step and reads the sensor.
func (t *Track) ReadIntensity(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t.advance(t.Step.Seconds())
	return t.Intensity(t.X), nil
}

func (t *Track) advance(dt float64) {
	if !t.onTrack || dt <= 0 {
		return
	}
	v := t.speed / robot.MaxSpeed * t.TopSpeed
	if t.Geometry.Wheelbase > 0 {
		t.Heading += v * math.Tan(t.wheelAngle*math.Pi/180) / t.Geometry.Wheelbase * dt
	}
	t.X += v * math.Sin(t.Heading) * dt
	t.Y += v * math.Cos(t.Heading) * dt
}

// IsTriggered reports a press once StopAfter polls have happened.
func (t *Track) IsTriggered(context.Context) (bool, error) {
	t.polls++
	return t.StopAfter > 0 && t.polls > t.StopAfter, nil
}

// Drive sets the car speed from the mean of both wheels.
func (t *Track) Drive(_ context.Context, cmd robot.DriveCommand) error {
	if !t.onTrack {
		// back from calibration: put the car on the edge
		t.X, t.Heading, t.onTrack = 1, 0, true
	}
	t.Drives = append(t.Drives, cmd)
	t.speed = robot.ToDriveFrame((cmd.Left + cmd.Right) / 2)
	if math.Abs(t.speed) > robot.MaxSpeed {
		t.speed = math.Copysign(robot.MaxSpeed, t.speed)
	}
	return nil
}

// Stop halts the car.
func (t *Track) Stop(context.Context) error {
	t.speed = 0
	return nil
}

// MoveTo turns the front wheels; angle is in the steering motor frame.
func (t *Track) MoveTo(_ context.Context, angle int, _ int) error {
	t.Moves = append(t.Moves, angle)
	div := t.Divider
	if div == 0 {
		div = 1
	}
	t.wheelAngle = float64(robot.ToSteeringFrame(angle)) / div
	return nil
}

// SetIndicator counts indicator changes.
func (t *Track) SetIndicator(context.Context, bool) error {
	t.LEDs++
	return nil
}

// WaitForConfirm moves the sensor over the light surface on the first
// confirm, the dark one on the second, and so on.
func (t *Track) WaitForConfirm(ctx context.Context, _ string) error {
	t.confirms++
	t.onTrack = false
	if t.confirms%2 == 1 {
		t.X = 2 * t.EdgeWidth
	} else {
		t.X = -2 * t.EdgeWidth
	}
	return ctx.Err()
}

// Clock is a simulated clock that never blocks.
type Clock struct {
	T time.Time
}

// NewClock returns a clock starting at a fixed instant.
func NewClock() *Clock {
	return &Clock{T: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the simulated time.
func (c *Clock) Now() time.Time { return c.T }

// Sleep advances the simulated time.
func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	c.T = c.T.Add(d)
	return ctx.Err()
}
