package robot

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.PID.SampleInterval() != 10*time.Millisecond {
		t.Errorf("SampleInterval() = %v, want 10ms", cfg.PID.SampleInterval())
	}
	if cfg.Run.Tick() != 10*time.Millisecond {
		t.Errorf("Tick() = %v, want 10ms", cfg.Run.Tick())
	}
	if !cfg.Run.ReissueDrive() {
		t.Error("ReissueDrive() should default to true")
	}
	if cfg.Geometry != DefaultGeometry {
		t.Errorf("Geometry = %+v, want %+v", cfg.Geometry, DefaultGeometry)
	}
	if cfg.Calibration.IsCalibrated() {
		t.Error("default config should not be calibrated")
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	light, dark := 80, 20
	cfg := DefaultConfig()
	cfg.Name = "sup3r"
	cfg.Steering.MaxAngle = 720
	cfg.Steering.Divider = 24
	cfg.PID.Kp = 3.5
	cfg.Calibration = CalibrationConfig{Light: &light, Dark: &dark}

	for _, name := range []string{"car.json", "car.yaml"} {
		path := filepath.Join(t.TempDir(), name)
		if err := cfg.SaveTo(path); err != nil {
			t.Fatalf("SaveTo(%s): %v", name, err)
		}
		if !ConfigExists(path) {
			t.Fatalf("ConfigExists(%s) = false", name)
		}

		got, err := LoadConfigFrom(path)
		if err != nil {
			t.Fatalf("LoadConfigFrom(%s): %v", name, err)
		}
		if got.Name != "sup3r" || got.Steering.MaxAngle != 720 || got.Steering.Divider != 24 || got.PID.Kp != 3.5 {
			t.Errorf("%s: loaded %+v", name, got)
		}
		if !got.Calibration.IsCalibrated() || *got.Calibration.Light != 80 || *got.Calibration.Dark != 20 {
			t.Errorf("%s: calibration %+v", name, got.Calibration)
		}
	}
}

func TestLoadConfigFrom_AppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	if err := os.WriteFile(path, []byte(`{"pid": {"kp": 2}}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PID.Kp != 2 {
		t.Errorf("Kp = %f, want 2", cfg.PID.Kp)
	}
	if cfg.Run.Speed != 50 || cfg.PID.Guard() != DefaultWindupGuard || cfg.Steering.Center != 2048 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfigFrom_WindupGuard(t *testing.T) {
	tests := []struct {
		name string
		json string
		want float64
	}{
		{"unset uses default", `{"pid": {"kp": 2}}`, DefaultWindupGuard},
		{"zero disables", `{"pid": {"windup_guard": 0}}`, 0},
		{"explicit", `{"pid": {"windup_guard": 5}}`, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pid.json")
			if err := os.WriteFile(path, []byte(tt.json), 0644); err != nil {
				t.Fatal(err)
			}
			cfg, err := LoadConfigFrom(path)
			if err != nil {
				t.Fatal(err)
			}

			v := NewVehicle("", &fakeDrive{}, &fakeSteeringMotor{})
			cfg.Apply(v)
			if got := v.PID.WindupGuard(); got != tt.want {
				t.Errorf("WindupGuard() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestConfig_ApplyClearsOutputLimits(t *testing.T) {
	v := NewVehicle("", &fakeDrive{}, &fakeSteeringMotor{})
	cfg := DefaultConfig()

	cfg.PID.OutputLimit = 50
	cfg.Apply(v)
	if lo, hi := v.PID.OutputLimits(); lo != -50 || hi != 50 {
		t.Fatalf("OutputLimits() = %f, %f, want -50, 50", lo, hi)
	}

	cfg.PID.OutputLimit = 0
	cfg.Apply(v)
	if lo, hi := v.PID.OutputLimits(); lo != hi {
		t.Errorf("OutputLimits() after clearing = %f, %f, want no clamp", lo, hi)
	}
}

func TestConfig_ApplyCapture(t *testing.T) {
	light, dark := 70, 10
	cfg := DefaultConfig()
	cfg.Steering.MaxAngle = 360
	cfg.Steering.Divider = 12
	cfg.PID.Kp, cfg.PID.Ki, cfg.PID.Kd = 1, 2, 3
	cfg.Calibration = CalibrationConfig{Light: &light, Dark: &dark}

	v := NewVehicle("", &fakeDrive{}, &fakeSteeringMotor{})
	cfg.Apply(v)

	if v.Steering.MaxAngle() != 360 || v.Steering.Divider() != 12 {
		t.Errorf("steering = %d / %f", v.Steering.MaxAngle(), v.Steering.Divider())
	}
	if th, err := v.Threshold(); err != nil || th != 40 {
		t.Errorf("Threshold() = %d, %v, want 40", th, err)
	}

	v.PID.Configure(4, 5, 6)
	v.ClearZone(Dark)
	cfg.Capture(v)

	if cfg.PID.Kp != 4 || cfg.PID.Ki != 5 || cfg.PID.Kd != 6 {
		t.Errorf("captured gains = %+v", cfg.PID)
	}
	if cfg.Calibration.Dark != nil {
		t.Errorf("captured dark = %d, want nil", *cfg.Calibration.Dark)
	}
}

func TestConvention(t *testing.T) {
	if ToDriveFrame(40) != -40 {
		t.Errorf("ToDriveFrame(40) = %f, want -40", ToDriveFrame(40))
	}
	if ToSteeringFrame(15) != -15 {
		t.Errorf("ToSteeringFrame(15) = %d, want -15", ToSteeringFrame(15))
	}
}
