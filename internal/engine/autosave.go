package engine

import (
	"sync"
	"time"
)

// Debouncer is a single-slot delayed task scheduler. Scheduling replaces any
// pending task; at most one task runs at a time.
type Debouncer struct {
	mu      sync.Mutex
	runMu   sync.Mutex
	timer   *time.Timer
	pending func()
	gen     uint64
}

func NewDebouncer() *Debouncer { return &Debouncer{} }

// Schedule cancels the pending task, if any, and arms fn to run after delay.
func (d *Debouncer) Schedule(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending = fn
	d.timer = time.AfterFunc(delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()
	d.run(fn)
}

func (d *Debouncer) run(fn func()) {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	fn()
}

// take disarms the slot and returns the task that was pending.
func (d *Debouncer) take() func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	fn := d.pending
	d.pending = nil
	return fn
}

// Cancel drops the pending task without running it. It reports whether a task was pending.
func (d *Debouncer) Cancel() bool {
	return d.take() != nil
}

// Flush runs the pending task now, on the caller's goroutine.
func (d *Debouncer) Flush() bool {
	fn := d.take()
	if fn == nil {
		return false
	}
	d.run(fn)
	return true
}

// Pending reports whether a task is armed.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
