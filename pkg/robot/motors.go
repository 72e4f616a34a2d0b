// Package robot models a line following car: its steering, its differential
// rear drive, the light sensor calibration and the devices behind them.
package robot

import (
	"context"
	"time"
)

// MotorName identifies a motor on the car.
type MotorName string

// Motor names for the car.
const (
	LeftMotor     MotorName = "left"
	RightMotor    MotorName = "right"
	SteeringMotor MotorName = "steering"
)

// AllMotors returns all motor names in order.
func AllMotors() []MotorName {
	return []MotorName{
		LeftMotor,
		RightMotor,
		SteeringMotor,
	}
}

// LightSensor reads the reflected light intensity under the car.
type LightSensor interface {
	ReadIntensity(ctx context.Context) (int, error)
}

// TouchSensor is the stop button polled once per control period.
type TouchSensor interface {
	IsTriggered(ctx context.Context) (bool, error)
}

// DriveMotors drives the two rear wheels. Speeds are in the drive motor
// frame, normalized to [-100, 100]. Drive must not block.
type DriveMotors interface {
	Drive(ctx context.Context, cmd DriveCommand) error
	Stop(ctx context.Context) error
}

// SteeringActuator moves the steering motor to an absolute angle in
// degrees, in the steering motor frame.
type SteeringActuator interface {
	MoveTo(ctx context.Context, angle int, speed int) error
}

// AngleReader is implemented by steering actuators that can report their
// position, in degrees in the steering motor frame.
type AngleReader interface {
	Angle(ctx context.Context) (int, error)
}

// Indicator is the LED toggled while sampling during calibration.
type Indicator interface {
	SetIndicator(ctx context.Context, on bool) error
}

// Confirmer blocks until the operator confirms, or ctx is done.
type Confirmer interface {
	WaitForConfirm(ctx context.Context, prompt string) error
}

// Announcer gives fire-and-forget feedback to the operator.
type Announcer interface {
	Announce(msg string)
}

// Clock is the time source of the control core. All waiting goes through
// Sleep so that tests can run without real sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep waits for d or until ctx is done.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Devices bundles the collaborators the control core talks to.
type Devices struct {
	Light     LightSensor
	Touch     TouchSensor
	Drive     DriveMotors
	Steering  SteeringActuator
	Indicator Indicator
	Confirm   Confirmer
	Announcer Announcer
}

// NopAnnouncer drops every message.
type NopAnnouncer struct{}

// Announce does nothing.
func (NopAnnouncer) Announce(string) {}

// NopIndicator ignores indicator changes.
type NopIndicator struct{}

// SetIndicator does nothing.
func (NopIndicator) SetIndicator(context.Context, bool) error { return nil }
