package robot

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAverage(t *testing.T) {
	tests := []struct {
		samples  []int
		expected int
	}{
		{[]int{10, 12, 11, 9, 13}, 11},
		{[]int{80, 80, 80, 80, 81}, 80}, // 401/5 floors
		{[]int{1, 2}, 1},
		{[]int{7}, 7},
		{nil, 0},
	}

	for _, tt := range tests {
		if got := Average(tt.samples); got != tt.expected {
			t.Errorf("Average(%v) = %d, want %d", tt.samples, got, tt.expected)
		}
	}
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		light, dark int
		expected    int
	}{
		{80, 20, 50},
		{81, 20, 50},
		{5, 0, 2},
		{0, 0, 0},
	}

	for _, tt := range tests {
		if got := Threshold(tt.light, tt.dark); got != tt.expected {
			t.Errorf("Threshold(%d, %d) = %d, want %d", tt.light, tt.dark, got, tt.expected)
		}
	}
}

func TestParseZone(t *testing.T) {
	for _, name := range []string{"light", " Dark "} {
		z, err := ParseZone(name)
		if err != nil {
			t.Errorf("ParseZone(%q): %v", name, err)
		}
		if z.String() == "" {
			t.Errorf("ParseZone(%q) = %v", name, z)
		}
	}
	if _, err := ParseZone("grey"); err == nil {
		t.Error("ParseZone(grey) should fail")
	}
}

func newTestCalibrator(readings []int) (*Calibrator, *fakeIndicator, *fakeConfirmer, *fakeClock) {
	ind := &fakeIndicator{}
	conf := &fakeConfirmer{}
	clk := &fakeClock{}
	c := NewCalibrator(Devices{
		Light:     &fakeSensor{readings: readings},
		Indicator: ind,
		Confirm:   conf,
		Announcer: &recordingAnnouncer{},
	}, clk)
	return c, ind, conf, clk
}

func TestCalibrator_SampleZone(t *testing.T) {
	c, ind, _, clk := newTestCalibrator([]int{10, 12, 11, 9, 13})

	avg, samples, err := c.SampleZone(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if avg != 11 {
		t.Errorf("average = %d, want 11", avg)
	}
	if len(samples) != SamplesPerZone {
		t.Errorf("took %d samples, want %d", len(samples), SamplesPerZone)
	}

	// one dwell before and one after every reading
	if len(clk.sleeps) != 2*SamplesPerZone {
		t.Errorf("slept %d times, want %d", len(clk.sleeps), 2*SamplesPerZone)
	}
	for _, d := range clk.sleeps {
		if d != DwellTime {
			t.Errorf("dwell = %v, want %v", d, DwellTime)
		}
	}

	// initial off, then on/off per sample
	if len(ind.toggles) != 1+2*SamplesPerZone {
		t.Errorf("indicator toggled %d times, want %d", len(ind.toggles), 1+2*SamplesPerZone)
	}
	if last := ind.toggles[len(ind.toggles)-1]; last {
		t.Error("indicator left on after sampling")
	}
}

func TestCalibrator_Run(t *testing.T) {
	readings := []int{80, 80, 80, 80, 80, 20, 20, 20, 20, 20}
	c, _, conf, clk := newTestCalibrator(readings)
	v := NewVehicle("sup3r", &fakeDrive{}, &fakeSteeringMotor{})

	threshold, err := c.Run(context.Background(), v)
	if err != nil {
		t.Fatal(err)
	}
	if threshold != 50 {
		t.Errorf("threshold = %d, want 50", threshold)
	}
	if light, _ := v.Zone(Light); light != 80 {
		t.Errorf("light = %d, want 80", light)
	}
	if dark, _ := v.Zone(Dark); dark != 20 {
		t.Errorf("dark = %d, want 20", dark)
	}
	if len(conf.prompts) != 2 {
		t.Errorf("confirm asked %d times, want 2", len(conf.prompts))
	}
	if got := time.Duration(len(clk.sleeps)) * DwellTime; got != 4*time.Second {
		t.Errorf("calibration dwelled %v, want 4s", got)
	}
}

func TestCalibrator_AnnouncesSurface(t *testing.T) {
	announcer := &recordingAnnouncer{}
	c := NewCalibrator(Devices{
		Light:     &fakeSensor{readings: []int{80}},
		Announcer: announcer,
	}, &fakeClock{})
	v := NewVehicle("", &fakeDrive{}, &fakeSteeringMotor{})

	if _, err := c.CalibrateZone(context.Background(), v, Light); err != nil {
		t.Fatal(err)
	}
	want := "Light surface: 80"
	if n := len(announcer.messages); n == 0 || announcer.messages[n-1] != want {
		t.Errorf("announced %q, want last %q", announcer.messages, want)
	}
	if got := Dark.Title(); got != "Dark" {
		t.Errorf("Dark.Title() = %q, want Dark", got)
	}
}

func TestCalibrator_RerunClearsZone(t *testing.T) {
	c, _, _, _ := newTestCalibrator([]int{30})
	v := NewVehicle("", &fakeDrive{}, &fakeSteeringMotor{})
	v.SetCalibration(80, 20)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.CalibrateZone(ctx, v, Light); !errors.Is(err, context.Canceled) {
		t.Fatalf("CalibrateZone with cancelled ctx = %v, want context.Canceled", err)
	}
	if _, err := v.Threshold(); !errors.Is(err, ErrNotCalibrated) {
		t.Errorf("Threshold() after interrupted calibration = %v, want ErrNotCalibrated", err)
	}
}

func TestCalibrator_RepeatPhase(t *testing.T) {
	c, _, _, _ := newTestCalibrator([]int{40})
	v := NewVehicle("", &fakeDrive{}, &fakeSteeringMotor{})
	v.SetCalibration(80, 20)

	if _, err := c.CalibrateZone(context.Background(), v, Dark); err != nil {
		t.Fatal(err)
	}
	if got, _ := v.Threshold(); got != 60 {
		t.Errorf("Threshold() = %d, want 60", got)
	}
}
