package main

import "time"

// ============================================================================
// Coalescing render throttle
// ============================================================================
//
// A control may request redraws far faster than the hardware can usefully
// display them (a fast dial spin delivers an event per detent). The throttle
// guarantees at most one draw per control per renderInterval while never
// losing the freshest snapshot:
//
//   - first request in a quiet period draws immediately (leading edge)
//   - requests inside the interval collapse into one deferred draw at the
//     interval boundary, carrying the last snapshot seen (trailing edge)
//
// This is a throttle, not a debounce: a continuous stream of requests still
// produces a steady draw cadence instead of starving the display.
//
// Counters and state mutation are never coalesced, only the rendered output.
// ============================================================================

type renderThrottle struct {
	interval time.Duration
	tl       *timeline
	entries  map[string]*throttleEntry
}

type throttleEntry struct {
	lastDraw time.Time
	hasDrawn bool
	flush    *timer // pending trailing draw, nil when none
	pending  func() // freshest draw closure, only set while flush != nil
}

func newRenderThrottle(tl *timeline, interval time.Duration) *renderThrottle {
	return &renderThrottle{
		interval: interval,
		tl:       tl,
		entries:  make(map[string]*throttleEntry),
	}
}

// Request asks for the control identified by id to be redrawn. draw must be a
// self-contained closure over the snapshot to render; it runs either
// immediately or at the trailing flush, on the daemon goroutine.
func (rt *renderThrottle) Request(id string, draw func()) {
	e := rt.entries[id]
	if e == nil {
		e = &throttleEntry{}
		rt.entries[id] = e
	}

	// A flush is already scheduled: just refresh the snapshot it will carry.
	if e.flush != nil {
		e.pending = draw
		return
	}

	now := rt.tl.clock.Now()
	if !e.hasDrawn || now.Sub(e.lastDraw) >= rt.interval {
		e.lastDraw = now
		e.hasDrawn = true
		draw()
		return
	}

	// Inside the interval: defer exactly one flush for the remaining time.
	e.pending = draw
	e.flush = rt.tl.After(rt.interval-now.Sub(e.lastDraw), func(now time.Time) {
		pending := e.pending
		e.flush = nil
		e.pending = nil
		e.lastDraw = now
		if pending != nil {
			pending()
		}
	})
}

// Cancel drops the entry for id, including any pending flush. No draw fires
// for id afterward unless Request is called again.
func (rt *renderThrottle) Cancel(id string) {
	e := rt.entries[id]
	if e == nil {
		return
	}
	if e.flush != nil {
		e.flush.Stop()
	}
	delete(rt.entries, id)
}
