package main

import "time"

// ============================================================================
// Key interaction state machine
// ============================================================================
//
// Per-key visual lifecycle: idle -> down -> {hold | up} -> idle. "down" and
// "hold" are the same physical state distinguished only by elapsed time; a
// recurring tick promotes the display to "hold" once the press has lasted
// holdThreshold and keeps the live timer counting up. A short press flashes
// "up" and auto-reverts to idle; a long press freezes the hold display until
// the next press.
//
// Timer discipline: at most one hold tick and one revert timer exist per key.
// Every transition that invalidates them (press, release, removal) goes
// through cancelTimers, so a stale callback can never race a new gesture.
// ============================================================================

// keyState is the per-key record, created lazily on first observation and
// discarded on willDisappear. Counters never reset while the key is live.
type keyState struct {
	downs int
	ups   int

	// holdStart is non-zero exactly while the key is physically down.
	holdStart time.Time

	// lastHold is the duration of the most recently completed press;
	// hasHold is false until the first release.
	lastHold time.Duration
	hasHold  bool

	holdTick *timer
	revert   *timer
}

// cancelTimers stops both timer kinds. Called on every press, on release
// (hold tick only would suffice, but stopping both is harmless), and on
// removal.
func (k *keyState) cancelTimers() {
	if k.holdTick != nil {
		k.holdTick.Stop()
		k.holdTick = nil
	}
	if k.revert != nil {
		k.revert.Stop()
		k.revert = nil
	}
}

// keyFor returns the live state for a key context, creating it on first
// observation.
func (p *Probe) keyFor(id string) *keyState {
	k := p.keys[id]
	if k == nil {
		k = &keyState{}
		p.keys[id] = k
	}
	return k
}

func (p *Probe) handleKeyAppear(id string) {
	k := p.keyFor(id)
	p.renderKey(id, k, keyPhaseIdle, time.Time{})
}

func (p *Probe) handleKeyDown(id string, now time.Time) {
	k := p.keyFor(id)
	k.cancelTimers()

	k.downs++
	k.holdStart = now
	k.hasHold = false

	p.renderKey(id, k, keyPhaseDown, now)

	k.holdTick = p.tl.Every(holdTickPeriod, func(now time.Time) {
		if k.holdStart.IsZero() {
			// Released between scheduling and firing; the release path has
			// already stopped this timer, tolerate the stray tick.
			return
		}
		if now.Sub(k.holdStart) >= holdThreshold {
			p.renderKey(id, k, keyPhaseHold, now)
		}
	})
}

func (p *Probe) handleKeyUp(id string, now time.Time) {
	k := p.keyFor(id)

	if k.holdTick != nil {
		k.holdTick.Stop()
		k.holdTick = nil
	}

	var held time.Duration
	if !k.holdStart.IsZero() {
		held = now.Sub(k.holdStart)
	}
	k.lastHold = held
	k.hasHold = true
	k.ups++
	k.holdStart = time.Time{}

	if held >= holdThreshold {
		// Long press: freeze the hold display. It stays up until the next
		// press, so no revert is scheduled.
		p.renderKey(id, k, keyPhaseHold, now)
		return
	}

	p.renderKey(id, k, keyPhaseUp, now)
	k.revert = p.tl.After(revertDelay, func(now time.Time) {
		k.revert = nil
		p.renderKey(id, k, keyPhaseIdle, now)
	})
}

// renderKey snapshots the key's visual state and hands the draw to the
// throttle. The snapshot is taken here, not at flush time, so the flush
// always carries exactly what this transition decided to show.
func (p *Probe) renderKey(id string, k *keyState, phase keyPhase, now time.Time) {
	f := keyFace{
		Phase: phase,
		Title: "KEY",
		Downs: k.downs,
		Ups:   k.ups,
	}

	switch phase {
	case keyPhaseHold:
		if !k.holdStart.IsZero() {
			// Live hold: the tick keeps this counting up.
			f.HoldSecs = now.Sub(k.holdStart).Seconds()
			f.ShowHold = true
		} else if k.hasHold {
			// Frozen after a long release.
			f.HoldSecs = k.lastHold.Seconds()
			f.ShowHold = true
		}
	case keyPhaseUp:
		if k.hasHold {
			f.HoldSecs = k.lastHold.Seconds()
			f.ShowHold = true
		}
	}

	p.throttle.Request(id, func() {
		p.deck.SetImage(id, buildKeyImage(f))
	})
}
