package counting

import (
	"testing"
	"time"
)

type fakeTimer struct {
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := t.stopped
	t.stopped = true
	return !was
}

// fakeScheduler records scheduled callbacks and fires them on demand.
type fakeScheduler struct {
	timers []*fakeTimer
	fns    []func()
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	timer := &fakeTimer{}
	s.timers = append(s.timers, timer)
	s.fns = append(s.fns, fn)
	return timer
}

// Fire runs every scheduled callback whose timer was not stopped.
func (s *fakeScheduler) Fire() {
	for i, timer := range s.timers {
		if !timer.stopped {
			timer.stopped = true
			s.fns[i]()
		}
	}
}

func (s *fakeScheduler) pending() int {
	n := 0
	for _, timer := range s.timers {
		if !timer.stopped {
			n++
		}
	}
	return n
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	sched := &fakeScheduler{}
	calls := 0
	d := NewDebouncer(sched, time.Second, func() { calls++ })

	d.Trigger()
	d.Trigger()
	d.Trigger()

	if got := sched.pending(); got != 1 {
		t.Fatalf("pending timers = %d, want 1 (earlier ones stopped)", got)
	}

	sched.Fire()
	if calls != 1 {
		t.Errorf("fn ran %d times, want 1", calls)
	}
}

func TestDebouncerRunsAgainAfterQuiet(t *testing.T) {
	sched := &fakeScheduler{}
	calls := 0
	d := NewDebouncer(sched, time.Second, func() { calls++ })

	d.Trigger()
	sched.Fire()
	d.Trigger()
	sched.Fire()

	if calls != 2 {
		t.Errorf("fn ran %d times, want 2", calls)
	}
}

func TestDebouncerCancel(t *testing.T) {
	sched := &fakeScheduler{}
	calls := 0
	d := NewDebouncer(sched, time.Second, func() { calls++ })

	d.Trigger()
	d.Cancel()
	sched.Fire()

	if calls != 0 {
		t.Errorf("fn ran %d times after cancel, want 0", calls)
	}

	// Cancel with nothing pending is a no-op.
	d.Cancel()
}
