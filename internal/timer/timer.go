// Package timer provides the countdown that drives a round's answer window.
//
// Remaining time is always derived from a wall-clock delta against the start
// origin, never accumulated per tick, so a delayed or throttled tick cannot
// drift the countdown.
package timer

import (
	"fmt"
	"sync"
	"time"
)

const defaultInterval = time.Second

type Option func(*Timer)

// WithInterval sets the nominal tick interval.
func WithInterval(d time.Duration) Option {
	return func(t *Timer) { t.interval = d }
}

// WithClock replaces the wall clock, used by tests to simulate time.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// WithOnTick registers a callback invoked with the remaining time on every
// tick.
func WithOnTick(f func(remaining time.Duration)) Option {
	return func(t *Timer) { t.onTick = f }
}

// WithOnComplete registers a callback invoked exactly once when the
// countdown reaches zero.
func WithOnComplete(f func()) Option {
	return func(t *Timer) { t.onComplete = f }
}

// Timer is a pausable, resettable countdown.
type Timer struct {
	mu        sync.Mutex
	initial   time.Duration
	remaining time.Duration
	origin    time.Time
	running   bool
	paused    bool
	completed bool
	stop      chan struct{}

	interval   time.Duration
	now        func() time.Time
	onTick     func(time.Duration)
	onComplete func()
}

func New(duration time.Duration, opts ...Option) *Timer {
	t := &Timer{
		initial:   duration,
		remaining: duration,
		interval:  defaultInterval,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins (or restarts after Pause-free stop) the countdown. Starting a
// completed timer with no time left is a no-op; callers must Reset first.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.running || t.remaining <= 0 {
		t.mu.Unlock()
		return
	}
	t.origin = t.now().Add(-(t.initial - t.remaining))
	t.running = true
	t.paused = false
	t.stop = make(chan struct{})
	stop := t.stop
	t.mu.Unlock()

	go t.loop(stop)
}

func (t *Timer) loop(stop chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.tick()
		}
	}
}

// tick recomputes the remaining time and fires callbacks. It is driven by
// the internal ticker but safe to call directly.
func (t *Timer) tick() {
	t.mu.Lock()
	if !t.running || t.paused {
		t.mu.Unlock()
		return
	}

	remaining := t.initial - t.now().Sub(t.origin)
	if remaining < 0 {
		remaining = 0
	}
	t.remaining = remaining

	onTick := t.onTick
	var onComplete func()
	if remaining == 0 && !t.completed {
		t.completed = true
		t.running = false
		t.stopLocked()
		onComplete = t.onComplete
	}
	t.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	if onComplete != nil {
		onComplete()
	}
}

// Pause freezes the remaining time.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running || t.paused {
		return
	}
	remaining := t.initial - t.now().Sub(t.origin)
	if remaining < 0 {
		remaining = 0
	}
	t.remaining = remaining
	t.paused = true
}

// Resume re-anchors the origin so total elapsed time is preserved.
func (t *Timer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running || !t.paused {
		return
	}
	t.origin = t.now().Add(-(t.initial - t.remaining))
	t.paused = false
}

// Reset cancels any pending completion and restores the initial duration.
func (t *Timer) Reset() {
	t.ResetTo(t.initial)
}

// ResetTo is Reset with a new duration.
func (t *Timer) ResetTo(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.initial = duration
	t.remaining = duration
	t.running = false
	t.paused = false
	t.completed = false
}

func (t *Timer) stopLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

// Remaining reports the time left, recomputed from the clock while running.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running && !t.paused {
		remaining := t.initial - t.now().Sub(t.origin)
		if remaining < 0 {
			remaining = 0
		}
		return remaining
	}
	return t.remaining
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Timer) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

func (t *Timer) Completed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

// Format renders a duration as m:ss for display.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
