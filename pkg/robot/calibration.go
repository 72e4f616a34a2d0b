package robot

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Zone is one of the two surfaces the light sensor is calibrated on.
type Zone int

const (
	Light Zone = iota + 1
	Dark
)

func (z Zone) String() string {
	switch z {
	case Light:
		return "light"
	case Dark:
		return "dark"
	default:
		return fmt.Sprintf("Zone(%d)", int(z))
	}
}

// Title returns the zone name capitalised for announcements.
func (z Zone) Title() string {
	name := z.String()
	return strings.ToUpper(name[:1]) + name[1:]
}

// ParseZone converts a zone name into a Zone.
func ParseZone(value string) (Zone, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "light":
		return Light, nil
	case "dark":
		return Dark, nil
	default:
		return 0, fmt.Errorf("unknown zone %q", value)
	}
}

const (
	// SamplesPerZone is the number of readings averaged per zone.
	SamplesPerZone = 5

	// DwellTime is the pause before and after each reading.
	DwellTime = 200 * time.Millisecond
)

// Average returns floor(sum(samples) / len(samples)), or 0 for no samples.
func Average(samples []int) int {
	if len(samples) == 0 {
		return 0
	}
	sum := 0
	for _, s := range samples {
		sum += s
	}
	return floorDiv(sum, len(samples))
}

// Threshold returns the midpoint between the two references, floored.
func Threshold(light, dark int) int {
	return floorDiv(light+dark, 2)
}

func floorDiv(a, b int) int {
	return int(math.Floor(float64(a) / float64(b)))
}

// Calibrator runs the two phase light sensor calibration. Each phase waits
// for the operator to confirm, then blinks the indicator while taking
// SamplesPerZone readings.
type Calibrator struct {
	sensor    LightSensor
	indicator Indicator
	confirm   Confirmer
	announcer Announcer
	clock     Clock

	samples int
	dwell   time.Duration
}

// NewCalibrator returns a calibrator using the light sensor, indicator,
// confirm signal and announcer from d.
func NewCalibrator(d Devices, clock Clock) *Calibrator {
	c := &Calibrator{
		sensor:    d.Light,
		indicator: d.Indicator,
		confirm:   d.Confirm,
		announcer: d.Announcer,
		clock:     clock,
		samples:   SamplesPerZone,
		dwell:     DwellTime,
	}
	if c.indicator == nil {
		c.indicator = NopIndicator{}
	}
	if c.announcer == nil {
		c.announcer = NopAnnouncer{}
	}
	if c.clock == nil {
		c.clock = SystemClock{}
	}
	return c
}

// SampleZone takes the readings for one zone and returns their average
// along with the raw readings.
func (c *Calibrator) SampleZone(ctx context.Context) (int, []int, error) {
	if err := c.indicator.SetIndicator(ctx, false); err != nil {
		return 0, nil, fmt.Errorf("indicator off: %w", err)
	}

	measures := make([]int, 0, c.samples)
	for i := 0; i < c.samples; i++ {
		if err := c.indicator.SetIndicator(ctx, true); err != nil {
			return 0, nil, fmt.Errorf("indicator on: %w", err)
		}
		if err := c.clock.Sleep(ctx, c.dwell); err != nil {
			return 0, nil, err
		}
		m, err := c.sensor.ReadIntensity(ctx)
		if err != nil {
			return 0, nil, fmt.Errorf("read intensity: %w", err)
		}
		measures = append(measures, m)
		if err := c.indicator.SetIndicator(ctx, false); err != nil {
			return 0, nil, fmt.Errorf("indicator off: %w", err)
		}
		if err := c.clock.Sleep(ctx, c.dwell); err != nil {
			return 0, nil, err
		}
	}
	return Average(measures), measures, nil
}

// CalibrateZone clears the zone on v, waits for the operator to confirm,
// then samples and stores the new reference.
func (c *Calibrator) CalibrateZone(ctx context.Context, v *Vehicle, zone Zone) (int, error) {
	v.ClearZone(zone)

	prompt := fmt.Sprintf("Place the sensor over the %s surface and confirm to start.", zone)
	if c.confirm != nil {
		if err := c.confirm.WaitForConfirm(ctx, prompt); err != nil {
			return 0, fmt.Errorf("confirm %s: %w", zone, err)
		}
	}

	avg, _, err := c.SampleZone(ctx)
	if err != nil {
		return 0, fmt.Errorf("calibrate %s: %w", zone, err)
	}
	v.SetZone(zone, avg)
	c.announcer.Announce(fmt.Sprintf("%s surface: %d", zone.Title(), avg))
	return avg, nil
}

// Run calibrates the light zone, then the dark zone, and returns the
// resulting threshold.
func (c *Calibrator) Run(ctx context.Context, v *Vehicle) (int, error) {
	c.announcer.Announce("Calibrating the light sensor.")

	for _, zone := range []Zone{Light, Dark} {
		if _, err := c.CalibrateZone(ctx, v, zone); err != nil {
			return 0, err
		}
	}

	threshold, err := v.Threshold()
	if err != nil {
		return 0, err
	}
	if v.Name != "" {
		c.announcer.Announce(fmt.Sprintf("Calibration of %s done", v.Name))
	} else {
		c.announcer.Announce("Calibration done")
	}
	c.announcer.Announce(fmt.Sprintf("The setpoint is %d", threshold))
	return threshold, nil
}
