package counting

import (
	"sync"
	"time"
)

// DraftDebounce is the quiet period after the last observation before
// the draft snapshot is written.
const DraftDebounce = time.Second

// Timer is the stoppable handle returned by a Scheduler.
type Timer interface {
	Stop() bool
}

// Scheduler abstracts time.AfterFunc so tests can fire the debounce
// deterministically.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// RealScheduler returns the wall-clock scheduler.
func RealScheduler() Scheduler {
	return realScheduler{}
}

// Debouncer coalesces bursts of calls into one trailing invocation of
// fn. Each Trigger pushes the deadline out; only the last burst member
// actually runs fn.
type Debouncer struct {
	mu        sync.Mutex
	scheduler Scheduler
	delay     time.Duration
	timer     Timer
	fn        func()
}

// NewDebouncer creates a debouncer calling fn after delay of quiet.
func NewDebouncer(scheduler Scheduler, delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{
		scheduler: scheduler,
		delay:     delay,
		fn:        fn,
	}
}

// Trigger schedules (or reschedules) the trailing call.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.scheduler.AfterFunc(d.delay, d.fn)
}

// Cancel drops any pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
