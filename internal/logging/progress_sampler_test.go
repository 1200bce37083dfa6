package logging

import "testing"

func TestProgressSamplerBucketWidthDefaults(t *testing.T) {
	for _, tc := range []struct {
		name  string
		width float64
		want  float64
	}{
		{"zero falls back", 0, 5},
		{"negative falls back", -2, 5},
		{"explicit width kept", 10, 10},
		{"fine-grained width kept", 1, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := NewProgressSampler(tc.width)
			if s.bucketSize != tc.want {
				t.Fatalf("bucketSize = %v, want %v", s.bucketSize, tc.want)
			}
			if s.lastBucket != -1 {
				t.Fatalf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSamplerNilReceiver(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(42, "active") {
		t.Fatal("nil sampler must not suppress")
	}
	s.Reset()
}

func TestProgressSamplerEmitsOnStateTransitions(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(0, "active") {
		t.Fatal("initial state should emit")
	}
	if s.ShouldLog(0, "active") {
		t.Fatal("repeat of same state and bucket should stay quiet")
	}
	if !s.ShouldLog(0, "paused") {
		t.Fatal("transition to paused should emit")
	}
	if s.lastState != "paused" {
		t.Fatalf("lastState = %q, want paused", s.lastState)
	}
	if s.ShouldLog(0, "  paused  ") {
		t.Fatal("padded state should compare equal after trimming")
	}
}

func TestProgressSamplerBucketCrossings(t *testing.T) {
	s := NewProgressSampler(5)
	steps := []struct {
		percent float64
		want    bool
	}{
		{0, true},
		{3, false},
		{5, true},
		{7, false},
		{10, true},
	}
	for _, step := range steps {
		if got := s.ShouldLog(step.percent, "active"); got != step.want {
			t.Fatalf("ShouldLog(%v) = %v, want %v", step.percent, got, step.want)
		}
	}
}

func TestProgressSamplerUnknownTotals(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog(-1, "waiting") {
		t.Fatal("state change should emit even without a percentage")
	}
	if s.ShouldLog(-1, "waiting") {
		t.Fatal("unknown percentage alone should not emit")
	}
}

func TestProgressSamplerCapsAtOneHundred(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(95, "active")
	if !s.ShouldLog(100, "active") {
		t.Fatal("reaching 100 percent should emit")
	}
	if s.ShouldLog(105, "active") {
		t.Fatal("overshoot past 100 percent should reuse the final bucket")
	}
}

func TestProgressSamplerStateChangeRewindsBucket(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "active")
	s.ShouldLog(0, "paused")
	if !s.ShouldLog(10, "paused") {
		t.Fatal("bucket cursor should rewind when the state changes")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "active")
	s.Reset()
	if s.lastState != "" || s.lastBucket != -1 {
		t.Fatalf("reset left state %q bucket %d", s.lastState, s.lastBucket)
	}
	if !s.ShouldLog(50, "active") {
		t.Fatal("first event after reset should emit")
	}
}

func TestProgressSamplerBucketWidths(t *testing.T) {
	t.Run("one percent", func(t *testing.T) {
		s := NewProgressSampler(1)
		s.ShouldLog(0, "active")
		if !s.ShouldLog(1, "active") {
			t.Fatal("next whole percent should emit with 1 percent buckets")
		}
		if s.ShouldLog(1.5, "active") {
			t.Fatal("fraction inside the current bucket should stay quiet")
		}
		if !s.ShouldLog(2, "active") {
			t.Fatal("next bucket boundary should emit")
		}
	})
	t.Run("quarter buckets", func(t *testing.T) {
		s := NewProgressSampler(25)
		s.ShouldLog(0, "active")
		for _, tc := range []struct {
			percent float64
			want    bool
		}{{20, false}, {25, true}, {49, false}, {50, true}} {
			if got := s.ShouldLog(tc.percent, "active"); got != tc.want {
				t.Fatalf("ShouldLog(%v) = %v, want %v", tc.percent, got, tc.want)
			}
		}
	})
}
