package logging

import (
	"math"
	"strings"
)

// ProgressSampler thins per-frame loop progress down to one line per bucket.
// It emits when the cursor enters a new bucket, when the segment label
// changes, and when the loop wraps back to the start.
type ProgressSampler struct {
	buckets     int
	lastBucket  int
	lastSegment string
	passes      int
}

// NewProgressSampler splits one loop pass into buckets equal slices; values
// below 1 use 20 (every 5%).
func NewProgressSampler(buckets int) *ProgressSampler {
	if buckets < 1 {
		buckets = 20
	}
	return &ProgressSampler{buckets: buckets, lastBucket: -1}
}

// ShouldLog reports whether the frame at progress (a loop fraction in
// [0, 1)) inside segment deserves a line. A nil sampler logs everything.
func (s *ProgressSampler) ShouldLog(progress float64, segment string) bool {
	if s == nil {
		return true
	}
	emit := false
	if segment = strings.TrimSpace(segment); segment != "" && segment != s.lastSegment {
		s.lastSegment = segment
		emit = true
	}
	if math.IsNaN(progress) || progress < 0 {
		return emit
	}
	bucket := min(int(progress*float64(s.buckets)), s.buckets-1)
	switch {
	case bucket > s.lastBucket:
		emit = true
	case bucket < s.lastBucket:
		s.passes++
		emit = true
	}
	s.lastBucket = bucket
	return emit
}

// Passes returns how many times the loop has wrapped since construction.
func (s *ProgressSampler) Passes() int {
	if s == nil {
		return 0
	}
	return s.passes
}
