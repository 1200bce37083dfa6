package logging

import "strings"

// ProgressSampler rate-limits download progress logging. Events pass through
// when the download state changes or when progress crosses into a new
// percentage bucket; everything in between stays quiet.
type ProgressSampler struct {
	bucketSize float64
	lastState  string
	lastBucket int
}

// NewProgressSampler returns a sampler with the given bucket width in
// percentage points. Widths of zero or below fall back to 5.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress event carries new information. A
// negative percent means the total size is unknown and only state changes
// count. A nil sampler never suppresses.
func (s *ProgressSampler) ShouldLog(percent float64, state string) bool {
	if s == nil {
		return true
	}
	emit := s.observeState(state)
	if percent >= 0 {
		if bucket := s.bucketFor(percent); bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// observeState records the state and reports whether it changed. A change
// rewinds the bucket cursor so the new state logs its first progress sample.
func (s *ProgressSampler) observeState(state string) bool {
	state = strings.TrimSpace(state)
	if state == "" || state == s.lastState {
		return false
	}
	s.lastState = state
	s.lastBucket = -1
	return true
}

func (s *ProgressSampler) bucketFor(percent float64) int {
	if percent >= 100 {
		percent = 100
	}
	return int(percent / s.bucketSize)
}

// Reset clears the sampler so the next event always logs.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastState = ""
	s.lastBucket = -1
}
