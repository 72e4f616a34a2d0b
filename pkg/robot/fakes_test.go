package robot

import (
	"context"
	"time"
)

type fakeSteeringMotor struct {
	moves []int
	err   error
}

func (m *fakeSteeringMotor) MoveTo(_ context.Context, angle int, _ int) error {
	if m.err != nil {
		return m.err
	}
	m.moves = append(m.moves, angle)
	return nil
}

type fakeReadingMotor struct {
	fakeSteeringMotor
	position int
}

func (m *fakeReadingMotor) Angle(context.Context) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.position, nil
}

type fakeDrive struct {
	commands []DriveCommand
	stops    int
}

func (d *fakeDrive) Drive(_ context.Context, cmd DriveCommand) error {
	d.commands = append(d.commands, cmd)
	return nil
}

func (d *fakeDrive) Stop(context.Context) error {
	d.stops++
	return nil
}

type fakeSensor struct {
	readings []int
	next     int
}

func (s *fakeSensor) ReadIntensity(context.Context) (int, error) {
	r := s.readings[s.next%len(s.readings)]
	s.next++
	return r, nil
}

type fakeIndicator struct {
	toggles []bool
}

func (i *fakeIndicator) SetIndicator(_ context.Context, on bool) error {
	i.toggles = append(i.toggles, on)
	return nil
}

type fakeConfirmer struct {
	prompts []string
}

func (c *fakeConfirmer) WaitForConfirm(_ context.Context, prompt string) error {
	c.prompts = append(c.prompts, prompt)
	return nil
}

type recordingAnnouncer struct {
	messages []string
}

func (a *recordingAnnouncer) Announce(msg string) {
	a.messages = append(a.messages, msg)
}

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}
