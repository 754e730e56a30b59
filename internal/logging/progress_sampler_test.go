package logging

import (
	"math"
	"testing"
)

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name    string
		buckets int
		want    int
	}{
		{"default for zero", 0, 20},
		{"default for negative", -3, 20},
		{"custom", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.buckets)
			if s.buckets != tt.want {
				t.Errorf("buckets = %d, want %d", s.buckets, tt.want)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSamplerNilAlwaysLogs(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(0.5, "A") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	if s.Passes() != 0 {
		t.Error("nil sampler should report zero passes")
	}
}

func TestProgressSamplerBucketsAndSegments(t *testing.T) {
	s := NewProgressSampler(10)

	steps := []struct {
		progress float64
		segment  string
		want     bool
	}{
		{0, "Exposition", true},
		{0.04, "Exposition", false},
		{0.12, "Exposition", true},
		{0.13, "Development", true},
		{0.14, "  Development ", false},
		{math.NaN(), "Development", false},
		{0.999, "Recapitulation", true},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.progress, step.segment); got != step.want {
			t.Fatalf("step %d (%v, %q): got %v, want %v", i, step.progress, step.segment, got, step.want)
		}
	}
}

func TestProgressSamplerCountsLoopWraps(t *testing.T) {
	s := NewProgressSampler(10)
	for pass := 0; pass < 2; pass++ {
		for i := 0; i < 10; i++ {
			s.ShouldLog(float64(i)/10, "")
		}
	}
	if s.Passes() != 1 {
		t.Fatalf("expected 1 wrap, got %d", s.Passes())
	}
	if !s.ShouldLog(0.01, "") {
		t.Error("wrapping to the start of the loop should log")
	}
	if s.ShouldLog(0.05, "") {
		t.Error("same bucket after wrap should not log")
	}
	if s.Passes() != 2 {
		t.Fatalf("expected 2 wraps, got %d", s.Passes())
	}
}
