package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBuffer_KeepsNewest(t *testing.T) {
	b := NewBuffer(3)
	for i := 0; i < 5; i++ {
		b.Add(Sample{T: float64(i), Feedback: i})
	}

	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}
	if b.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", b.Dropped())
	}

	got := b.Samples()
	for i, s := range got {
		if s.Feedback != i+2 {
			t.Errorf("Samples()[%d].Feedback = %d, want %d", i, s.Feedback, i+2)
		}
	}

	b.Reset()
	if b.Len() != 0 || b.Dropped() != 0 {
		t.Errorf("after Reset Len=%d Dropped=%d", b.Len(), b.Dropped())
	}
}

func TestBuffer_DefaultMax(t *testing.T) {
	b := NewBuffer(0)
	if b.max != DefaultMaxSamples {
		t.Errorf("max = %d, want %d", b.max, DefaultMaxSamples)
	}
}

func TestFileSink_PersistLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	rec := NewRecord("sup3r", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	rec.Kp, rec.Ki, rec.Kd = 2, 0.1, 0.5
	rec.Threshold = 50
	rec.Samples = []Sample{{T: 0, Feedback: 48}, {T: 0.01, Feedback: 52, Output: -4, Angle: 4}}

	if err := (FileSink{Path: path}).Persist(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.RunID == "" || got.RunID != rec.RunID {
		t.Errorf("RunID = %q, want %q", got.RunID, rec.RunID)
	}
	if got.Threshold != 50 || got.Kp != 2 || len(got.Samples) != 2 {
		t.Errorf("loaded %+v", got)
	}
	if !got.Started.Equal(rec.Started) {
		t.Errorf("Started = %v, want %v", got.Started, rec.Started)
	}
}

func TestNewRecord_UniqueRunID(t *testing.T) {
	a := NewRecord("", time.Now())
	b := NewRecord("", time.Now())
	if a.RunID == b.RunID {
		t.Errorf("two records share run id %q", a.RunID)
	}
}

func TestPlotPNG(t *testing.T) {
	rec := NewRecord("", time.Now())
	rec.Threshold = 50
	for i := 0; i < 100; i++ {
		rec.Samples = append(rec.Samples, Sample{T: float64(i) / 100, Feedback: 40 + i%20})
	}

	path := filepath.Join(t.TempDir(), "plots", "run.png")
	if err := PlotPNG(rec, path); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("empty png")
	}
}

func TestPlotPNG_NoSamples(t *testing.T) {
	if err := PlotPNG(Record{}, filepath.Join(t.TempDir(), "x.png")); err == nil {
		t.Error("PlotPNG without samples should fail")
	}
}
