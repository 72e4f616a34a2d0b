// Package follower provides the line following control loop.
package follower

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gwillem/linefollower/pkg/robot"
	"github.com/gwillem/linefollower/pkg/telemetry"
)

// ErrAlreadyRunning is returned when Launch or Begin is called on a running loop.
var ErrAlreadyRunning = errors.New("already running")

// Phase is the lifecycle stage of a run.
type Phase int

const (
	Idle Phase = iota
	Running
	Stopped
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is a snapshot of one control period.
type State struct {
	Phase     Phase
	Feedback  int
	Setpoint  float64
	Output    float64
	Angle     int
	Drive     robot.DriveCommand
	Timestamp time.Time
	Error     error
}

// Summary describes a finished run.
type Summary struct {
	Loops     int
	Elapsed   time.Duration
	Frequency float64 // control periods per second
	Samples   int
	Dropped   int
	RunID     string
}

// Config holds configuration for the controller.
type Config struct {
	Speed          int           // operator speed in [-100, 100]
	Tick           time.Duration // pause between two control periods
	SampleInterval time.Duration // PID sample interval
	SteeringSpeed  int
	Reissue        bool // re-send the drive command every period, even unchanged
	Measures       bool // record telemetry
	MaxSamples     int
}

// DefaultConfig returns the settings the car was tuned with.
func DefaultConfig() Config {
	return Config{
		Speed:          50,
		Tick:           10 * time.Millisecond,
		SampleInterval: 10 * time.Millisecond,
		SteeringSpeed:  100,
		Reissue:        true,
		MaxSamples:     telemetry.DefaultMaxSamples,
	}
}

// ConfigFrom builds a controller configuration from the car configuration.
func ConfigFrom(cfg *robot.Config) Config {
	c := DefaultConfig()
	c.Speed = cfg.Run.Speed
	c.Tick = cfg.Run.Tick()
	c.SampleInterval = cfg.PID.SampleInterval()
	c.Reissue = cfg.Run.ReissueDrive()
	c.Measures = cfg.Run.Measures
	c.MaxSamples = cfg.Run.MaxSamples
	return c
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock.
func WithClock(clock robot.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithSink stores telemetry in sink at the end of a run.
func WithSink(sink telemetry.Sink) Option {
	return func(c *Controller) { c.sink = sink }
}

// WithCalibrator calibrates the light sensor on launch when needed.
func WithCalibrator(cal *robot.Calibrator) Option {
	return func(c *Controller) { c.calibrator = cal }
}

// Controller runs the line following loop: read the light sensor, update
// the PID, steer, drive, and repeat until the touch sensor is pressed.
//
// The vehicle is owned by the controller for the duration of a run.
type Controller struct {
	vehicle    *robot.Vehicle
	light      robot.LightSensor
	touch      robot.TouchSensor
	calibrator *robot.Calibrator
	sink       telemetry.Sink
	clock      robot.Clock
	cfg        Config

	mu      sync.RWMutex
	phase   Phase
	stateCh chan State
	logCh   chan string

	start  time.Time
	loops  int
	buffer *telemetry.Buffer
	record telemetry.Record
	last   State
}

// New creates a controller for v using the light and touch sensors from d.
func New(v *robot.Vehicle, d robot.Devices, cfg Config, opts ...Option) *Controller {
	if cfg.SteeringSpeed == 0 {
		cfg.SteeringSpeed = 100
	}
	c := &Controller{
		vehicle: v,
		light:   d.Light,
		touch:   d.Touch,
		clock:   robot.SystemClock{},
		cfg:     cfg,
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
		buffer:  telemetry.NewBuffer(cfg.MaxSamples),
	}
	for _, opt := range opts {
		opt(c)
	}
	v.PID.WithClock(c.clock.Now)
	return c
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Phase returns the current lifecycle stage.
func (c *Controller) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// Config returns the controller configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Record returns the telemetry of the last run.
func (c *Controller) Record() telemetry.Record {
	return c.record
}

func (c *Controller) setPhase(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", c.clock.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Launch runs the loop until the touch sensor is pressed, ctx is done or a
// device fails. The car is always stopped before Launch returns.
func (c *Controller) Launch(ctx context.Context) (Summary, error) {
	if err := c.Begin(ctx); err != nil {
		return Summary{}, err
	}

	var runErr error
	for runErr == nil {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		done, err := c.Terminated(ctx)
		if err != nil {
			runErr = err
			break
		}
		if done {
			break
		}
		if err := c.Step(ctx); err != nil {
			runErr = err
			break
		}
		runErr = c.clock.Sleep(ctx, c.cfg.Tick)
	}

	if runErr != nil {
		c.log("Stopping: %v", runErr)
	}

	// ctx may already be cancelled, stopping the car must not depend on it
	summary, err := c.Finish(context.WithoutCancel(ctx))
	return summary, errors.Join(runErr, err)
}

// Begin moves the loop from idle to running. It calibrates the light sensor
// first when no threshold is known, sets the PID setpoint and starts the
// rear motors.
func (c *Controller) Begin(ctx context.Context) error {
	c.mu.Lock()
	if c.phase == Running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.mu.Unlock()

	v := c.vehicle
	threshold, err := v.Threshold()
	if errors.Is(err, robot.ErrNotCalibrated) && c.calibrator != nil {
		c.log("No threshold, calibrating first")
		threshold, err = c.calibrator.Run(ctx, v)
	}
	if err != nil {
		return fmt.Errorf("threshold: %w", err)
	}
	if err := v.CheckDivider(); err != nil {
		return err
	}

	v.PID.SetSetpoint(float64(threshold))
	v.PID.SetSampleInterval(c.cfg.SampleInterval)
	v.PID.Reset()

	c.loops = 0
	c.start = c.clock.Now()
	c.buffer.Reset()
	if c.cfg.Measures {
		c.record = telemetry.NewRecord(v.Name, c.start)
		c.record.Kp, c.record.Ki, c.record.Kd = v.PID.Gains()
		c.record.Threshold = threshold
	}

	cmd, err := v.Run(ctx, float64(c.cfg.Speed), true)
	if err != nil {
		return err
	}

	c.setPhase(Running)
	c.last = State{Phase: Running, Setpoint: float64(threshold), Drive: cmd, Timestamp: c.start}
	c.log("Following the line at speed %d, setpoint %d", c.cfg.Speed, threshold)
	return nil
}

// Terminated polls the touch sensor.
func (c *Controller) Terminated(ctx context.Context) (bool, error) {
	if c.touch == nil {
		return false, nil
	}
	pressed, err := c.touch.IsTriggered(ctx)
	if err != nil {
		return false, fmt.Errorf("read touch sensor: %w", err)
	}
	return pressed, nil
}

// Step advances the loop by one control period without sleeping.
func (c *Controller) Step(ctx context.Context) error {
	v := c.vehicle
	st := c.last

	cmd, err := v.Command(float64(c.cfg.Speed), true)
	if err != nil {
		return err
	}
	// without Reissue only changed wheel speeds are sent
	if c.cfg.Reissue || cmd != st.Drive {
		if cmd, err = v.Run(ctx, float64(c.cfg.Speed), true); err != nil {
			return err
		}
		st.Drive = cmd
	}

	feedback, err := c.light.ReadIntensity(ctx)
	if err != nil {
		return fmt.Errorf("read light sensor: %w", err)
	}
	now := c.clock.Now()
	c.loops++

	output := v.PID.Update(float64(feedback))
	if err := v.Steering.Turn(ctx, int(math.Round(output)), c.cfg.SteeringSpeed); err != nil {
		return err
	}

	if c.cfg.Measures {
		c.buffer.Add(telemetry.Sample{
			T:        now.Sub(c.start).Seconds(),
			Feedback: feedback,
			Output:   output,
			Angle:    v.Steering.Angle(),
		})
	}

	st.Phase = Running
	st.Feedback = feedback
	st.Setpoint = v.PID.Setpoint()
	st.Output = output
	st.Angle = v.Steering.Angle()
	st.Timestamp = now
	c.last = st
	c.sendState(st)
	return nil
}

// Finish stops the car, reports the loop frequency and stores the
// telemetry when enabled.
func (c *Controller) Finish(ctx context.Context) (Summary, error) {
	var errs []error
	if err := c.vehicle.Stop(ctx); err != nil {
		errs = append(errs, err)
	}

	elapsed := c.clock.Now().Sub(c.start)
	summary := Summary{Loops: c.loops, Elapsed: elapsed}
	if elapsed > 0 {
		summary.Frequency = float64(c.loops) / elapsed.Seconds()
		c.log("Loop frequency: %.2f Hz over %s", summary.Frequency, elapsed.Round(time.Millisecond))
	}

	if c.cfg.Measures {
		c.record.Samples = c.buffer.Samples()
		c.record.Dropped = c.buffer.Dropped()
		summary.Samples = len(c.record.Samples)
		summary.Dropped = c.record.Dropped
		summary.RunID = c.record.RunID
		if c.sink != nil {
			if err := c.sink.Persist(ctx, c.record); err != nil {
				errs = append(errs, fmt.Errorf("persist telemetry: %w", err))
			} else {
				c.log("Saved %d samples", summary.Samples)
			}
		}
	}

	c.setPhase(Stopped)
	c.last.Phase = Stopped
	c.last.Timestamp = c.clock.Now()
	c.sendState(c.last)
	c.log("Line follower stopped")
	return summary, errors.Join(errs...)
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		select {
		case c.stateCh <- s:
		default:
		}
	}
}
