// Package telemetry records the light sensor feedback of a run and stores
// it once the run is over.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxSamples keeps ten minutes of data at 100 Hz.
const DefaultMaxSamples = 60_000

// Sample is one control period worth of data.
type Sample struct {
	T        float64 `json:"t"` // seconds since the start of the run
	Feedback int     `json:"feedback"`
	Output   float64 `json:"output"`
	Angle    int     `json:"angle"`
}

// Record is everything stored for one run.
type Record struct {
	RunID     string    `json:"run_id"`
	Name      string    `json:"name,omitempty"`
	Started   time.Time `json:"started"`
	Kp        float64   `json:"kp"`
	Ki        float64   `json:"ki"`
	Kd        float64   `json:"kd"`
	Threshold int       `json:"threshold"`
	Samples   []Sample  `json:"samples"`
	Dropped   int       `json:"dropped,omitempty"`
}

// NewRecord returns a record with a fresh run id.
func NewRecord(name string, started time.Time) Record {
	return Record{
		RunID:   uuid.NewString(),
		Name:    name,
		Started: started,
	}
}

// Buffer keeps the most recent samples of a run, up to a fixed count.
type Buffer struct {
	samples []Sample
	start   int
	max     int
	dropped int
}

// NewBuffer returns a buffer holding at most max samples. A max of 0 or
// less uses DefaultMaxSamples.
func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = DefaultMaxSamples
	}
	return &Buffer{max: max}
}

// Add appends a sample, overwriting the oldest one when full.
func (b *Buffer) Add(s Sample) {
	if len(b.samples) < b.max {
		b.samples = append(b.samples, s)
		return
	}
	b.samples[b.start] = s
	b.start = (b.start + 1) % b.max
	b.dropped++
}

// Len returns the number of samples held.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Dropped returns how many samples were overwritten.
func (b *Buffer) Dropped() int {
	return b.dropped
}

// Samples returns the held samples, oldest first.
func (b *Buffer) Samples() []Sample {
	out := make([]Sample, 0, len(b.samples))
	out = append(out, b.samples[b.start:]...)
	out = append(out, b.samples[:b.start]...)
	return out
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.samples = b.samples[:0]
	b.start = 0
	b.dropped = 0
}

// Sink stores a finished run.
type Sink interface {
	Persist(ctx context.Context, rec Record) error
}

// FileSink writes each record as indented JSON to Path, replacing the file.
type FileSink struct {
	Path string
}

// Persist writes rec to the sink's file.
func (s FileSink) Persist(_ context.Context, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode telemetry: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0644); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}
	return nil
}

// Load reads a record written by FileSink.
func Load(path string) (Record, error) {
	var rec Record
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("read telemetry: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parse telemetry: %w", err)
	}
	return rec, nil
}
