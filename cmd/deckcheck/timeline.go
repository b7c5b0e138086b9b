package main

import (
	"time"

	"github.com/benbjohnson/clock"
)

// ============================================================================
// Timeline: deterministic single-threaded timer queue
// ============================================================================
//
// All per-control deferred work (hold ticks, auto-reverts, render flushes)
// lives on one timeline owned by the daemon goroutine. Timers are plain
// records, not goroutines: the daemon loop asks the timeline to fire whatever
// is due, then sleeps until the next deadline. That keeps every callback on
// the loop goroutine, so control state needs no locking, and lets tests drive
// the whole thing on a mock clock.
//
// A timer handle is cancelable at any point; once stopped it never fires
// again. Stale handles (stopped or already fired one-shots) are compacted out
// of the queue on the next Fire pass.
// ============================================================================

// timerFunc runs when a timer comes due. now is the loop's notion of current
// time at the moment of firing.
type timerFunc func(now time.Time)

// timer is a handle to scheduled work on a timeline.
type timer struct {
	when    time.Time
	period  time.Duration // 0 for one-shot
	fn      timerFunc
	stopped bool
}

// Stop cancels the timer. Safe to call repeatedly and after the timer fired.
func (t *timer) Stop() {
	t.stopped = true
}

// timeline schedules timers against an injectable clock. Not safe for
// concurrent use: every method must be called from the daemon goroutine.
type timeline struct {
	clock  clock.Clock
	timers []*timer
}

func newTimeline(c clock.Clock) *timeline {
	return &timeline{clock: c}
}

// After schedules fn to run once, d from now.
func (tl *timeline) After(d time.Duration, fn timerFunc) *timer {
	t := &timer{when: tl.clock.Now().Add(d), fn: fn}
	tl.timers = append(tl.timers, t)
	return t
}

// Every schedules fn to run repeatedly at the given period, first firing one
// period from now. The returned handle stops the recurrence.
func (tl *timeline) Every(period time.Duration, fn timerFunc) *timer {
	t := &timer{when: tl.clock.Now().Add(period), period: period, fn: fn}
	tl.timers = append(tl.timers, t)
	return t
}

// Fire runs every timer due at or before now, in deadline order, then
// compacts the queue. Returns the wait until the next deadline, or a
// negative duration if nothing is scheduled.
func (tl *timeline) Fire(now time.Time) time.Duration {
	for {
		idx := -1
		for i, t := range tl.timers {
			if t.stopped || t.when.After(now) {
				continue
			}
			if idx < 0 || t.when.Before(tl.timers[idx].when) {
				idx = i
			}
		}
		if idx < 0 {
			break
		}

		t := tl.timers[idx]
		if t.period > 0 {
			// Reschedule before the callback so the callback can Stop it.
			// A loop that fell behind skips missed periods rather than
			// firing a burst of catch-up ticks.
			t.when = t.when.Add(t.period)
			for !t.when.After(now) {
				t.when = t.when.Add(t.period)
			}
		} else {
			t.stopped = true
		}
		t.fn(now)
	}

	// Compact stale handles and find the next deadline.
	live := tl.timers[:0]
	var next time.Time
	for _, t := range tl.timers {
		if t.stopped {
			continue
		}
		live = append(live, t)
		if next.IsZero() || t.when.Before(next) {
			next = t.when
		}
	}
	tl.timers = live

	if next.IsZero() {
		return -1
	}
	return next.Sub(now)
}

// Next reports the earliest pending deadline, if any.
func (tl *timeline) Next() (time.Time, bool) {
	var next time.Time
	for _, t := range tl.timers {
		if t.stopped {
			continue
		}
		if next.IsZero() || t.when.Before(next) {
			next = t.when
		}
	}
	return next, !next.IsZero()
}
