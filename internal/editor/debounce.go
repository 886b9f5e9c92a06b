package editor

import (
	"sync"
	"time"
)

// Debouncer runs a callback once after a quiet period. Each Trigger
// cancels the pending run and schedules a new one.
//
// Thread-safety: All methods are safe for concurrent use. The callback runs
// on a timer goroutine, or on the caller's goroutine for Flush.
type Debouncer struct {
	mu       sync.Mutex
	delay    time.Duration
	timer    *time.Timer
	pending  bool
	closed   bool
	seq      uint64 // invalidates stale timer callbacks
	callback func()
}

// NewDebouncer creates a debouncer that runs callback delay after the
// last Trigger.
func NewDebouncer(delay time.Duration, callback func()) *Debouncer {
	return &Debouncer{
		delay:    delay,
		callback: callback,
	}
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger schedules the callback. It returns false once the debouncer is
// closed.
func (d *Debouncer) Trigger() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}

	d.pending = true
	d.seq++
	seq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.fire(seq)
	})
	return true
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if !d.pending || d.seq != seq || d.closed {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.callback()
}

// Flush runs the callback now if a run is pending and cancels the timer.
// It reports whether the callback ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	d.stopLocked()
	if !d.pending || d.closed {
		d.mu.Unlock()
		return false
	}
	d.pending = false
	d.mu.Unlock()

	d.callback()
	return true
}

// Cancel drops the pending run.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.pending = false
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Close cancels the pending run. No callback starts after Close returns.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.pending = false
	d.closed = true
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}
