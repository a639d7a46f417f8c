package voice

import (
	"sync"
	"time"
)

// Debouncer runs the most recently triggered function once a quiet period has
// passed without another trigger.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
	fn    func()
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger replaces the pending function and restarts the quiet period.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.fn = fn
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) take(gen uint64) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen || d.fn == nil {
		return nil
	}
	fn := d.fn
	d.fn = nil
	d.timer = nil
	return fn
}

func (d *Debouncer) fire(gen uint64) {
	if fn := d.take(gen); fn != nil {
		fn()
	}
}

// Pending reports whether a function is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}

// Flush runs the pending function now. It reports whether one ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()

	fn := d.take(gen)
	if fn == nil {
		return false
	}
	fn()
	return true
}

// Stop drops the pending function. It reports whether one was dropped.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	dropped := d.fn != nil
	d.fn = nil
	return dropped
}
