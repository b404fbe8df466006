package engine

import (
	"fmt"
	"sync"
	"time"
)

// ModuleTimer is a pausable countdown for one module. Expiry fires the
// callback at most once; Stop is terminal and idempotent.
type ModuleTimer struct {
	mu        sync.Mutex
	remaining time.Duration
	deadline  time.Time
	timer     *time.Timer
	running   bool
	expired   bool
	stopped   bool
	onExpire  func()
}

func NewModuleTimer(d time.Duration, onExpire func()) *ModuleTimer {
	return &ModuleTimer{remaining: d, onExpire: onExpire}
}

// Start begins (or resumes) the countdown from the remaining duration.
func (t *ModuleTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running || t.expired || t.stopped {
		return
	}
	t.deadline = time.Now().Add(t.remaining)
	t.running = true
	t.timer = time.AfterFunc(t.remaining, t.fire)
}

// Pause freezes the countdown, keeping the remaining duration.
func (t *ModuleTimer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.timer.Stop()
	t.running = false
	if rem := time.Until(t.deadline); rem > 0 {
		t.remaining = rem
	} else {
		t.remaining = 0
	}
}

// Stop terminates the timer. No further expiry can fire.
func (t *ModuleTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.running = false
}

func (t *ModuleTimer) fire() {
	t.mu.Lock()
	if t.stopped || t.expired {
		t.mu.Unlock()
		return
	}
	t.expired = true
	t.running = false
	t.remaining = 0
	cb := t.onExpire
	t.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (t *ModuleTimer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired
}

// Remaining returns the time left on the countdown.
func (t *ModuleTimer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.expired {
		return 0
	}
	if !t.running {
		return t.remaining
	}
	rem := time.Until(t.deadline)
	if rem < 0 {
		return 0
	}
	return rem
}

// FormatClock renders a duration as MM:SS, floored to whole seconds.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
