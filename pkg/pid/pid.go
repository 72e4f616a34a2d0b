// Package pid provides a sample-rate limited PID controller.
package pid

import (
	"time"
)

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

// Controller is a PID controller that only recomputes its output once the
// sample interval has elapsed since the previous update. Calls in between
// return the previous output unchanged.
type Controller struct {
	Kp, Ki, Kd float64

	setpoint       float64
	sampleInterval time.Duration

	// optional bounds, disabled when zero
	windupGuard float64
	outputMin   float64
	outputMax   float64

	now        Clock
	lastUpdate time.Time
	lastError  float64
	integral   float64
	output     float64
}

// New returns a controller with the given gains and no sample interval.
func New(kp, ki, kd float64) *Controller {
	return &Controller{
		Kp:  kp,
		Ki:  ki,
		Kd:  kd,
		now: time.Now,
	}
}

// WithClock replaces the time source.
func (c *Controller) WithClock(now Clock) *Controller {
	c.now = now
	return c
}

// WithWindupGuard bounds the integral accumulator to [-guard, guard].
// A guard of 0 leaves the accumulator unbounded.
func (c *Controller) WithWindupGuard(guard float64) *Controller {
	if guard < 0 {
		guard = -guard
	}
	c.windupGuard = guard
	return c
}

// WithOutputLimits clamps the output to [min, max]. Equal limits disable clamping.
func (c *Controller) WithOutputLimits(min, max float64) *Controller {
	if min > max {
		min, max = max, min
	}
	c.outputMin = min
	c.outputMax = max
	return c
}

// WindupGuard returns the integral bound, 0 when unbounded.
func (c *Controller) WindupGuard() float64 {
	return c.windupGuard
}

// OutputLimits returns the output clamp. Equal values mean no clamping.
func (c *Controller) OutputLimits() (min, max float64) {
	return c.outputMin, c.outputMax
}

// Configure sets the three gains.
func (c *Controller) Configure(kp, ki, kd float64) {
	c.Kp, c.Ki, c.Kd = kp, ki, kd
}

// Gains returns Kp, Ki and Kd.
func (c *Controller) Gains() (kp, ki, kd float64) {
	return c.Kp, c.Ki, c.Kd
}

// SetSetpoint sets the target feedback value.
func (c *Controller) SetSetpoint(v float64) {
	c.setpoint = v
}

// Setpoint returns the target feedback value.
func (c *Controller) Setpoint() float64 {
	return c.setpoint
}

// SetSampleInterval sets the minimum time between two output updates.
func (c *Controller) SetSampleInterval(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.sampleInterval = d
}

// SampleInterval returns the minimum time between two output updates.
func (c *Controller) SampleInterval() time.Duration {
	return c.sampleInterval
}

// Output returns the last computed output.
func (c *Controller) Output() float64 {
	return c.output
}

// Integral returns the current integral accumulator.
func (c *Controller) Integral() float64 {
	return c.integral
}

// Reset clears the accumulated state but keeps gains, setpoint and bounds.
func (c *Controller) Reset() {
	c.lastUpdate = time.Time{}
	c.lastError = 0
	c.integral = 0
	c.output = 0
}

// Update feeds a new measurement and returns the controller output.
//
// The first call uses dt = 0. Whenever dt is 0 the derivative term is
// omitted and the output is recomputed from the proportional and integral
// terms only.
func (c *Controller) Update(feedback float64) float64 {
	now := c.now()
	err := c.setpoint - feedback

	var dt float64
	if !c.lastUpdate.IsZero() {
		elapsed := now.Sub(c.lastUpdate)
		if elapsed < c.sampleInterval {
			return c.output
		}
		dt = elapsed.Seconds()
		if dt < 0 {
			dt = 0
		}
	}

	c.integral += err * dt
	if c.windupGuard > 0 {
		c.integral = clamp(c.integral, -c.windupGuard, c.windupGuard)
	}

	var derivative float64
	if dt > 0 {
		derivative = (err - c.lastError) / dt
	}

	output := c.Kp*err + c.Ki*c.integral + c.Kd*derivative

	if c.outputMin != c.outputMax {
		clamped := clamp(output, c.outputMin, c.outputMax)
		if clamped != output && dt > 0 {
			// roll back the last integration step while saturated
			c.integral -= err * dt
		}
		output = clamped
	}

	c.output = output
	c.lastError = err
	c.lastUpdate = now
	return c.output
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
