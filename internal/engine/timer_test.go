package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/bluebook-labs/satprep/internal/testbank"
)

func TestFormatClock(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{59 * time.Second, "00:59"},
		{32 * time.Minute, "32:00"},
		{34*time.Minute + 5*time.Second, "34:05"},
	}
	for _, c := range cases {
		if got := FormatClock(c.d); got != c.want {
			t.Errorf("FormatClock(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}

func TestTimerExpiryFiresOnce(t *testing.T) {
	var fired int32
	tm := NewModuleTimer(20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	tm.Start()
	time.Sleep(80 * time.Millisecond)
	if n := atomic.LoadInt32(&fired); n != 1 {
		t.Fatalf("expiry fired %d times, want 1", n)
	}
	if !tm.Expired() {
		t.Fatalf("timer not expired")
	}
	if tm.Remaining() != 0 {
		t.Fatalf("remaining = %v after expiry, want 0", tm.Remaining())
	}
}

func TestTimerStopPreventsExpiry(t *testing.T) {
	var fired int32
	tm := NewModuleTimer(20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	tm.Start()
	tm.Stop()
	time.Sleep(60 * time.Millisecond)
	if n := atomic.LoadInt32(&fired); n != 0 {
		t.Fatalf("expiry fired %d times after Stop, want 0", n)
	}
}

func TestTimerPauseFreezesRemaining(t *testing.T) {
	tm := NewModuleTimer(time.Hour, nil)
	tm.Start()
	tm.Pause()
	r1 := tm.Remaining()
	time.Sleep(30 * time.Millisecond)
	r2 := tm.Remaining()
	if r1 != r2 {
		t.Fatalf("remaining drifted while paused: %v -> %v", r1, r2)
	}
}

func TestModuleExpiryForcesReviewExactlyOnce(t *testing.T) {
	set := buildSet([4]int{2, 0, 0, 0})
	s, err := NewSession(set, Options{
		Durations: [testbank.ModuleCount]time.Duration{30 * time.Millisecond, time.Hour, time.Hour, time.Hour},
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Teardown()

	deadline := time.Now().Add(time.Second)
	for s.Phase() != PhaseReview {
		if time.Now().After(deadline) {
			t.Fatalf("expiry never forced review")
		}
		time.Sleep(5 * time.Millisecond)
	}
	// Same transition as a manual finish: review, with answers editable only
	// via confirm. No further countdown may run.
	if got := s.View().Clock; got != "00:00" {
		t.Fatalf("clock = %s after expiry, want 00:00", got)
	}
	// Re-entry after expiry is rejected.
	if err := s.Jump(0); err != ErrModuleExpired {
		t.Fatalf("Jump after expiry err = %v, want ErrModuleExpired", err)
	}
	if err := s.ConfirmModule(); err != nil {
		t.Fatalf("ConfirmModule after expiry: %v", err)
	}
	if s.Phase() != PhaseFinished {
		t.Fatalf("phase = %s, want finished", s.Phase())
	}
}

func TestTeardownDiscardsPendingExpiry(t *testing.T) {
	set := buildSet([4]int{1, 0, 0, 0})
	var completed int32
	s, err := NewSession(set, Options{
		Durations:  [testbank.ModuleCount]time.Duration{20 * time.Millisecond, time.Hour, time.Hour, time.Hour},
		OnComplete: func(Snapshot) { atomic.AddInt32(&completed, 1) },
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	s.Teardown()
	time.Sleep(60 * time.Millisecond)
	if s.Phase() != PhaseQuestion {
		t.Fatalf("torn-down session still transitioned to %s", s.Phase())
	}
	if atomic.LoadInt32(&completed) != 0 {
		t.Fatalf("completion fired after teardown")
	}
}
