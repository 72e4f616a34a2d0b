package robot

import (
	"context"
	"errors"
	"fmt"

	"github.com/gwillem/linefollower/pkg/pid"
)

// Vehicle holds the state of one car for the duration of a run: its PID
// controller, its steering, its chassis geometry and the light sensor
// references. It is owned by a single control loop and is not safe for
// concurrent use.
type Vehicle struct {
	Name     string
	PID      *pid.Controller
	Steering *Steering
	Geometry Geometry

	drive DriveMotors

	light, dark       int
	hasLight, hasDark bool
}

// NewVehicle returns a vehicle with zero PID gains and the default geometry.
func NewVehicle(name string, drive DriveMotors, steering SteeringActuator) *Vehicle {
	return &Vehicle{
		Name:     name,
		PID:      pid.New(0, 0, 0),
		Steering: NewSteering(steering),
		Geometry: DefaultGeometry,
		drive:    drive,
	}
}

// SetZone stores the reference intensity for a zone.
func (v *Vehicle) SetZone(zone Zone, value int) {
	switch zone {
	case Light:
		v.light, v.hasLight = value, true
	case Dark:
		v.dark, v.hasDark = value, true
	}
}

// ClearZone forgets the reference intensity for a zone.
func (v *Vehicle) ClearZone(zone Zone) {
	switch zone {
	case Light:
		v.light, v.hasLight = 0, false
	case Dark:
		v.dark, v.hasDark = 0, false
	}
}

// Zone returns the reference intensity for a zone and whether it is set.
func (v *Vehicle) Zone(zone Zone) (int, bool) {
	switch zone {
	case Light:
		return v.light, v.hasLight
	case Dark:
		return v.dark, v.hasDark
	}
	return 0, false
}

// SetCalibration stores both references.
func (v *Vehicle) SetCalibration(light, dark int) {
	v.SetZone(Light, light)
	v.SetZone(Dark, dark)
}

// Threshold returns the midpoint between the light and dark references, or
// ErrNotCalibrated when either is missing.
func (v *Vehicle) Threshold() (int, error) {
	if !v.hasLight || !v.hasDark {
		return 0, ErrNotCalibrated
	}
	return Threshold(v.light, v.dark), nil
}

// CheckDivider returns ErrDividerUnset when the steering is allowed to turn
// but no divider is configured.
func (v *Vehicle) CheckDivider() error {
	if v.Steering.MaxAngle() > 0 && v.Steering.Divider() == 0 {
		return ErrDividerUnset
	}
	return nil
}

// Command returns the wheel speeds Run would issue, without driving.
func (v *Vehicle) Command(speed float64, differential bool) (DriveCommand, error) {
	if !differential {
		return Straight(speed), nil
	}
	angle := v.Steering.Angle()
	if angle != 0 && v.Steering.Divider() == 0 {
		return DriveCommand{}, ErrDividerUnset
	}
	return WheelSpeeds(speed, float64(angle), v.Geometry, v.Steering.Divider()), nil
}

// Run drives the rear wheels at an operator speed in [-100, 100]. With
// differential set, the wheel speeds follow the current steering angle.
func (v *Vehicle) Run(ctx context.Context, speed float64, differential bool) (DriveCommand, error) {
	cmd, err := v.Command(speed, differential)
	if err != nil {
		return DriveCommand{}, err
	}
	if err := v.drive.Drive(ctx, cmd); err != nil {
		return cmd, fmt.Errorf("drive: %w", err)
	}
	return cmd, nil
}

// Stop stops both rear motors and re-centres the steering.
func (v *Vehicle) Stop(ctx context.Context) error {
	var errs []error
	if err := v.drive.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop drive: %w", err))
	}
	if err := v.Steering.Turn(ctx, 0, 100); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
