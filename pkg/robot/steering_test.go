package robot

import (
	"context"
	"errors"
	"testing"
)

func TestSteering_Clamp(t *testing.T) {
	motor := &fakeSteeringMotor{}
	s := NewSteering(motor)
	s.SetMaxAngle(720)
	ctx := context.Background()

	tests := []struct {
		angle    int
		expected int
	}{
		{800, -720},  // clamped right
		{-800, 720},  // clamped left
		{100, -100},  // in range, motor frame
		{-720, 720},  // at the limit
		{0, 0},       // centered
		{5000, -720}, // far out of range
	}

	for _, tt := range tests {
		if err := s.Turn(ctx, tt.angle, 100); err != nil {
			t.Fatalf("Turn(%d): %v", tt.angle, err)
		}
		if s.Angle() != tt.expected {
			t.Errorf("Turn(%d) angle = %d, want %d", tt.angle, s.Angle(), tt.expected)
		}
		if abs(s.Angle()) > s.MaxAngle() {
			t.Errorf("Turn(%d) angle %d exceeds max %d", tt.angle, s.Angle(), s.MaxAngle())
		}
	}
}

func TestSteering_ClampScenario(t *testing.T) {
	motor := &fakeSteeringMotor{}
	s := NewSteering(motor)
	s.SetMaxAngle(720)

	if err := s.Turn(context.Background(), 800, 100); err != nil {
		t.Fatal(err)
	}

	if s.Angle() != -720 {
		t.Errorf("Angle() = %d, want -720", s.Angle())
	}
	if len(motor.moves) != 1 || motor.moves[0] != -720 {
		t.Errorf("motor moves = %v, want [-720]", motor.moves)
	}
}

func TestSteering_Dedup(t *testing.T) {
	motor := &fakeSteeringMotor{}
	s := NewSteering(motor)
	s.SetMaxAngle(90)
	ctx := context.Background()

	s.Turn(ctx, 30, 100)
	s.Turn(ctx, 30, 100)
	if len(motor.moves) != 1 {
		t.Fatalf("two identical turns issued %d commands, want 1", len(motor.moves))
	}

	// different inputs that clamp to the same angle are also deduplicated
	s.Turn(ctx, 200, 100)
	s.Turn(ctx, 300, 100)
	if len(motor.moves) != 2 {
		t.Errorf("clamped duplicates issued %d commands, want 2", len(motor.moves))
	}
	if s.Commands() != 2 {
		t.Errorf("Commands() = %d, want 2", s.Commands())
	}
	if s.LastCommanded() != -90 {
		t.Errorf("LastCommanded() = %d, want -90", s.LastCommanded())
	}
}

func TestSteering_FirstCommandAlwaysIssued(t *testing.T) {
	motor := &fakeSteeringMotor{}
	s := NewSteering(motor)

	s.Turn(context.Background(), 0, 100)
	if len(motor.moves) != 1 {
		t.Errorf("first Turn(0) issued %d commands, want 1", len(motor.moves))
	}
}

func TestSteering_ZeroMaxAngleKeepsStraight(t *testing.T) {
	motor := &fakeSteeringMotor{}
	s := NewSteering(motor)

	s.Turn(context.Background(), 45, 100)
	if s.Angle() != 0 {
		t.Errorf("Angle() = %d with zero max angle, want 0", s.Angle())
	}
}

func TestSteering_FailedMoveIsRetried(t *testing.T) {
	motor := &fakeSteeringMotor{err: errors.New("bus timeout")}
	s := NewSteering(motor)
	s.SetMaxAngle(90)
	ctx := context.Background()

	if err := s.Turn(ctx, 10, 100); err == nil {
		t.Fatal("Turn should return the motor error")
	}
	if s.Angle() != -10 {
		t.Errorf("Angle() = %d after failed move, want -10", s.Angle())
	}

	motor.err = nil
	if err := s.Turn(ctx, 10, 100); err != nil {
		t.Fatal(err)
	}
	if len(motor.moves) != 1 {
		t.Errorf("retry issued %d commands, want 1", len(motor.moves))
	}
}

func TestSteering_NegativeMaxAngle(t *testing.T) {
	s := NewSteering(&fakeSteeringMotor{})
	s.SetMaxAngle(-360)
	if s.MaxAngle() != 360 {
		t.Errorf("MaxAngle() = %d, want 360", s.MaxAngle())
	}
}

func TestSteering_SweepBothWays(t *testing.T) {
	motor := &fakeSteeringMotor{}
	s := NewSteering(motor)
	s.SetMaxAngle(90)

	var stops []int
	pause := func(context.Context) error {
		stops = append(stops, s.Angle())
		return nil
	}
	if err := s.Sweep(context.Background(), 300, 100, pause); err != nil {
		t.Fatal(err)
	}

	wantMoves := []int{-300, 300, 0}
	if len(motor.moves) != len(wantMoves) {
		t.Fatalf("motor moves = %v, want %v", motor.moves, wantMoves)
	}
	for i, want := range wantMoves {
		if motor.moves[i] != want {
			t.Errorf("move %d = %d, want %d", i, motor.moves[i], want)
		}
	}
	if len(stops) != 2 || stops[0] != -300 || stops[1] != 300 {
		t.Errorf("angles at the stops = %v, want [-300 300]", stops)
	}
	if s.MaxAngle() != 90 {
		t.Errorf("MaxAngle() after sweep = %d, want 90", s.MaxAngle())
	}
	if s.Angle() != 0 {
		t.Errorf("Angle() after sweep = %d, want 0", s.Angle())
	}
}

func TestSteering_SweepStopsOnError(t *testing.T) {
	motor := &fakeSteeringMotor{}
	s := NewSteering(motor)
	s.SetMaxAngle(720)

	cancelled := errors.New("operator cancelled")
	err := s.Sweep(context.Background(), 100, 100, func(context.Context) error { return cancelled })
	if !errors.Is(err, cancelled) {
		t.Fatalf("Sweep() = %v, want the pause error", err)
	}
	if len(motor.moves) != 1 {
		t.Errorf("motor moves = %v, want only the first stop", motor.moves)
	}
	if s.MaxAngle() != 720 {
		t.Errorf("MaxAngle() = %d, want 720", s.MaxAngle())
	}
}

func TestSteering_ActualAngle(t *testing.T) {
	ctx := context.Background()

	s := NewSteering(&fakeSteeringMotor{})
	s.SetMaxAngle(90)
	s.Turn(ctx, 30, 100)
	if got, err := s.ActualAngle(ctx); err != nil || got != -30 {
		t.Errorf("ActualAngle() without a position reader = %d, %v, want -30", got, err)
	}

	reader := &fakeReadingMotor{position: -28}
	s = NewSteering(reader)
	if got, err := s.ActualAngle(ctx); err != nil || got != -28 {
		t.Errorf("ActualAngle() = %d, %v, want -28", got, err)
	}

	reader.err = errors.New("no reply")
	if _, err := s.ActualAngle(ctx); err == nil {
		t.Error("ActualAngle() should return the read error")
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
