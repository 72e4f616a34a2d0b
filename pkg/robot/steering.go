package robot

import (
	"context"
	"fmt"
)

// Steering tracks the front steering motor. Commands are clamped to the
// maximum angle and only sent to the motor when they change.
type Steering struct {
	motor SteeringActuator

	angle         int     // last requested angle, steering motor frame
	maxAngle      int     // largest motor angle either way, degrees
	divider       float64 // motor degrees per wheel degree, 0 when unset
	lastCommanded int
	issued        bool
	commands      int
}

// NewSteering returns a steering with a zero max angle, which keeps the
// wheels straight until SetMaxAngle is called.
func NewSteering(motor SteeringActuator) *Steering {
	return &Steering{motor: motor}
}

// SetMaxAngle sets the largest motor angle either way.
func (s *Steering) SetMaxAngle(angle int) {
	if angle < 0 {
		angle = -angle
	}
	s.maxAngle = angle
}

// MaxAngle returns the largest motor angle either way.
func (s *Steering) MaxAngle() int {
	return s.maxAngle
}

// SetDivider sets the ratio between the motor angle and the wheel angle.
func (s *Steering) SetDivider(d float64) {
	s.divider = d
}

// Divider returns the ratio between the motor angle and the wheel angle,
// 0 when it has not been configured.
func (s *Steering) Divider() float64 {
	return s.divider
}

// Angle returns the last requested angle in the steering motor frame. It is
// updated by every Turn, even when no motor command was sent.
func (s *Steering) Angle() int {
	return s.angle
}

// LastCommanded returns the last angle actually sent to the motor.
func (s *Steering) LastCommanded() int {
	return s.lastCommanded
}

// Commands returns how many commands were sent to the motor.
func (s *Steering) Commands() int {
	return s.commands
}

// Turn steers to angle (operator frame: positive is right). Out of range
// angles are saturated to the max angle, never rejected.
func (s *Steering) Turn(ctx context.Context, angle, speed int) error {
	if angle > s.maxAngle {
		angle = s.maxAngle
	} else if angle < -s.maxAngle {
		angle = -s.maxAngle
	}
	commanded := ToSteeringFrame(angle)
	s.angle = commanded

	if s.issued && commanded == s.lastCommanded {
		return nil
	}
	if err := s.motor.MoveTo(ctx, commanded, speed); err != nil {
		return fmt.Errorf("move steering to %d: %w", commanded, err)
	}
	s.lastCommanded = commanded
	s.issued = true
	s.commands++
	return nil
}

// Sweep turns to angle, then to -angle, then back to the centre, calling
// pause at each of the two stops. The max angle is raised to reach angle
// for the sweep and restored afterwards.
func (s *Steering) Sweep(ctx context.Context, angle, speed int, pause func(ctx context.Context) error) error {
	saved := s.maxAngle
	defer func() { s.maxAngle = saved }()
	if reach := max(angle, -angle); reach > s.maxAngle {
		s.maxAngle = reach
	}

	for _, a := range []int{angle, -angle} {
		if err := s.Turn(ctx, a, speed); err != nil {
			return err
		}
		if pause != nil {
			if err := pause(ctx); err != nil {
				return err
			}
		}
	}
	return s.Turn(ctx, 0, speed)
}

// ActualAngle returns the motor position in the steering motor frame when
// the actuator can report it, and the last commanded angle otherwise.
func (s *Steering) ActualAngle(ctx context.Context) (int, error) {
	r, ok := s.motor.(AngleReader)
	if !ok {
		return s.lastCommanded, nil
	}
	angle, err := r.Angle(ctx)
	if err != nil {
		return 0, fmt.Errorf("read steering angle: %w", err)
	}
	return angle, nil
}
