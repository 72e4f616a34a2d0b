package hw

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/linefollower/pkg/robot"
)

// StepsPerRevolution is the resolution of an STS servo.
const StepsPerRevolution = 4096

// SteeringServo is the steering motor: a single Feetech servo whose
// centre position keeps the front wheels straight.
type SteeringServo struct {
	bus    *feetech.Bus
	group  *feetech.ServoGroup
	id     int
	center int
}

// OpenSteering opens the servo bus and checks that the steering servo
// answers.
func OpenSteering(ctx context.Context, cfg robot.SteeringConfig) (*SteeringServo, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: cfg.BaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	scanCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	found, err := bus.Scan(scanCtx, cfg.ServoID, cfg.ServoID)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("scan servo %d: %w", cfg.ServoID, err)
	}
	if len(found) == 0 {
		bus.Close()
		return nil, fmt.Errorf("no servo with id %d on %s", cfg.ServoID, cfg.Port)
	}

	s := &SteeringServo{
		bus:    bus,
		group:  feetech.NewServoGroupByIDs(bus, cfg.ServoID),
		id:     cfg.ServoID,
		center: cfg.Center,
	}
	if err := s.group.EnableAll(ctx); err != nil {
		bus.Close()
		return nil, fmt.Errorf("enable servo: %w", err)
	}
	return s, nil
}

// Close releases the servo and closes the bus.
func (s *SteeringServo) Close() error {
	s.group.DisableAll(context.Background())
	return s.bus.Close()
}

// MoveTo turns the servo to angle degrees from the centre. The servo
// runs at its configured speed, so speed is ignored.
func (s *SteeringServo) MoveTo(ctx context.Context, angle int, _ int) error {
	if err := s.group.SetPositions(ctx, feetech.PositionMap{s.id: ToSteps(s.center, angle)}); err != nil {
		return fmt.Errorf("write position: %w", err)
	}
	return nil
}

// Angle reads the servo position in degrees from the centre.
func (s *SteeringServo) Angle(ctx context.Context) (int, error) {
	positions, err := s.group.Positions(ctx)
	if err != nil {
		return 0, fmt.Errorf("read position: %w", err)
	}
	raw, ok := positions[s.id]
	if !ok {
		return 0, fmt.Errorf("servo %d did not answer", s.id)
	}
	return ToDegrees(s.center, raw), nil
}

// ToSteps converts degrees from the centre to a raw servo position,
// limited to one revolution.
func ToSteps(center, angle int) int {
	raw := center + int(math.Round(float64(angle)*StepsPerRevolution/360))
	return max(0, min(StepsPerRevolution-1, raw))
}

// ToDegrees converts a raw servo position to degrees from the centre.
func ToDegrees(center, raw int) int {
	return int(math.Round(float64(raw-center) * 360 / StepsPerRevolution))
}
