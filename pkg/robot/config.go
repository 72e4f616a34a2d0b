package robot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultConfigFile = "linefollower.json"

// Config holds the car configuration
type Config struct {
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Board       BoardConfig       `json:"board" yaml:"board"`
	Steering    SteeringConfig    `json:"steering" yaml:"steering"`
	Geometry    Geometry          `json:"geometry" yaml:"geometry"`
	PID         PIDConfig         `json:"pid" yaml:"pid"`
	Calibration CalibrationConfig `json:"calibration" yaml:"calibration"`
	Run         RunConfig         `json:"run" yaml:"run"`
}

// BoardConfig holds the serial connection to the base board driving the
// rear motors, the light and touch sensors and the LEDs
type BoardConfig struct {
	Port     string `json:"port" yaml:"port"`
	BaudRate int    `json:"baud_rate" yaml:"baud_rate"`
}

// SteeringConfig holds the steering servo connection and its limits
type SteeringConfig struct {
	Port     string  `json:"port" yaml:"port"`
	BaudRate int     `json:"baud_rate" yaml:"baud_rate"`
	ServoID  int     `json:"servo_id" yaml:"servo_id"`
	Center   int     `json:"center" yaml:"center"`       // raw servo position for straight wheels
	MaxAngle int     `json:"max_angle" yaml:"max_angle"` // motor degrees
	Divider  float64 `json:"divider" yaml:"divider"`     // motor degrees per wheel degree
}

// PIDConfig holds the controller gains and bounds
type PIDConfig struct {
	Kp               float64  `json:"kp" yaml:"kp"`
	Ki               float64  `json:"ki" yaml:"ki"`
	Kd               float64  `json:"kd" yaml:"kd"`
	SampleIntervalMS int      `json:"sample_interval_ms" yaml:"sample_interval_ms"`
	WindupGuard      *float64 `json:"windup_guard,omitempty" yaml:"windup_guard,omitempty"`
	OutputLimit      float64  `json:"output_limit,omitempty" yaml:"output_limit,omitempty"`
}

// CalibrationConfig holds the light sensor references, nil when not measured
type CalibrationConfig struct {
	Light *int `json:"light,omitempty" yaml:"light,omitempty"`
	Dark  *int `json:"dark,omitempty" yaml:"dark,omitempty"`
}

// RunConfig holds the line follower run settings
type RunConfig struct {
	Speed         int    `json:"speed" yaml:"speed"`
	TickMS        int    `json:"tick_ms" yaml:"tick_ms"`
	Reissue       *bool  `json:"reissue,omitempty" yaml:"reissue,omitempty"`
	Measures      bool   `json:"measures" yaml:"measures"`
	MaxSamples    int    `json:"max_samples" yaml:"max_samples"`
	TelemetryPath string `json:"telemetry_path" yaml:"telemetry_path"`
}

// IsCalibrated returns true if both light sensor references are set
func (c *CalibrationConfig) IsCalibrated() bool {
	return c.Light != nil && c.Dark != nil
}

// SampleInterval returns the PID sample interval
func (p PIDConfig) SampleInterval() time.Duration {
	return time.Duration(p.SampleIntervalMS) * time.Millisecond
}

// Tick returns the control period
func (r RunConfig) Tick() time.Duration {
	return time.Duration(r.TickMS) * time.Millisecond
}

// DefaultWindupGuard bounds the integral when the configuration leaves it unset
const DefaultWindupGuard = 20

// Guard returns the integral windup guard. An explicit 0 disables it.
func (p PIDConfig) Guard() float64 {
	if p.WindupGuard == nil {
		return DefaultWindupGuard
	}
	return *p.WindupGuard
}

// ReissueDrive reports whether the drive command is re-sent every period
func (r RunConfig) ReissueDrive() bool {
	return r.Reissue == nil || *r.Reissue
}

// DefaultConfig returns a configuration with every default applied
func DefaultConfig() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Board.BaudRate == 0 {
		c.Board.BaudRate = 115200
	}
	if c.Steering.BaudRate == 0 {
		c.Steering.BaudRate = 1_000_000
	}
	if c.Steering.ServoID == 0 {
		c.Steering.ServoID = 1
	}
	if c.Steering.Center == 0 {
		c.Steering.Center = 2048
	}
	if c.Geometry.Wheelbase == 0 {
		c.Geometry.Wheelbase = DefaultGeometry.Wheelbase
	}
	if c.Geometry.TrackWidth == 0 {
		c.Geometry.TrackWidth = DefaultGeometry.TrackWidth
	}
	if c.PID.SampleIntervalMS == 0 {
		c.PID.SampleIntervalMS = 10
	}
	if c.Run.Speed == 0 {
		c.Run.Speed = 50
	}
	if c.Run.TickMS == 0 {
		c.Run.TickMS = 10
	}
	if c.Run.MaxSamples == 0 {
		c.Run.MaxSamples = 60_000
	}
	if c.Run.TelemetryPath == "" {
		c.Run.TelemetryPath = "telemetry.json"
	}
}

// Apply copies the configuration into v
func (c *Config) Apply(v *Vehicle) {
	if c.Name != "" {
		v.Name = c.Name
	}
	v.Geometry = c.Geometry
	v.Steering.SetMaxAngle(c.Steering.MaxAngle)
	v.Steering.SetDivider(c.Steering.Divider)
	v.PID.Configure(c.PID.Kp, c.PID.Ki, c.PID.Kd)
	v.PID.SetSampleInterval(c.PID.SampleInterval())
	v.PID.WithWindupGuard(c.PID.Guard())
	// a zero limit gives equal bounds, which clears any earlier clamp
	v.PID.WithOutputLimits(-c.PID.OutputLimit, c.PID.OutputLimit)
	if c.Calibration.Light != nil {
		v.SetZone(Light, *c.Calibration.Light)
	}
	if c.Calibration.Dark != nil {
		v.SetZone(Dark, *c.Calibration.Dark)
	}
}

// Capture copies the tunable state of v back into the configuration
func (c *Config) Capture(v *Vehicle) {
	c.Steering.MaxAngle = v.Steering.MaxAngle()
	c.Steering.Divider = v.Steering.Divider()
	c.PID.Kp, c.PID.Ki, c.PID.Kd = v.PID.Gains()
	c.Calibration = CalibrationConfig{}
	if light, ok := v.Zone(Light); ok {
		c.Calibration.Light = &light
	}
	if dark, ok := v.Zone(Dark); ok {
		c.Calibration.Dark = &dark
	}
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. Files ending in
// .yml or .yaml are read as YAML, anything else as JSON.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the config file exists
func ConfigExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}
