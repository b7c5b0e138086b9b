package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// ============================================================================
// Daemon loop
// ============================================================================
//
// The Probe owns every per-control record and the timeline they schedule
// against. Everything runs on one goroutine: Run drains the event channel and
// fires due timers, so event handling, hold ticks, reverts, and render
// flushes are serialized with no locks. Events for a given control are
// handled strictly in arrival order; only rendered output is coalesced.
//
// The clock is injected so tests drive the loop on simulated time by calling
// Handle and timeline.Fire directly.
// ============================================================================

// Dispatcher is the outbound boundary to the deck host. Calls are
// fire-and-forget: implementations log failures and never block or report
// them back; a failed transmit is the transport's concern, not the core's.
type Dispatcher interface {
	SetImage(context string, image string)
	SetFeedback(context string, feedback FeedbackPayload)
	SetFeedbackLayout(context string, layout string)
	SetTriggerDescription(context string, desc TriggerDescription)
}

// FeedbackPayload addresses items of the installed touch-strip layout.
type FeedbackPayload struct {
	Canvas string `json:"canvas"`
}

// TriggerDescription is the static per-dial interaction description shown by
// the host UI.
type TriggerDescription struct {
	Rotate    string `json:"rotate,omitempty"`
	Push      string `json:"push,omitempty"`
	Touch     string `json:"touch,omitempty"`
	LongTouch string `json:"longTouch,omitempty"`
}

// Probe is the diagnostic core: per-control state machines plus their render
// scheduling.
type Probe struct {
	clock    clock.Clock
	tl       *timeline
	throttle *renderThrottle
	deck     Dispatcher
	logger   *slog.Logger

	// Key and dial contexts are disjoint identity spaces; a context never
	// moves between the two maps.
	keys  map[string]*keyState
	dials map[string]*dialState
}

// NewProbe builds a Probe rendering through deck. Pass clock.New() in
// production; tests pass clock.NewMock().
func NewProbe(deck Dispatcher, c clock.Clock, logger *slog.Logger) *Probe {
	tl := newTimeline(c)
	return &Probe{
		clock:    c,
		tl:       tl,
		throttle: newRenderThrottle(tl, renderInterval),
		deck:     deck,
		logger:   logger,
		keys:     make(map[string]*keyState),
		dials:    make(map[string]*dialState),
	}
}

// Handle applies one host event. Must be called from the daemon goroutine.
func (p *Probe) Handle(ev DeckEvent) {
	now := p.clock.Now()

	switch e := ev.(type) {
	case WillAppear:
		if e.Controller == controllerEncoder {
			p.handleDialAppear(e.Context, e.Column, e.HasColumn)
		} else {
			p.handleKeyAppear(e.Context)
		}

	case WillDisappear:
		p.remove(e.Context)

	case KeyDown:
		p.handleKeyDown(e.Context, now)

	case KeyUp:
		p.handleKeyUp(e.Context, now)

	case DialDown:
		p.handleDialDown(e.Context)

	case DialUp:
		p.handleDialUp(e.Context)

	case DialRotate:
		p.handleDialRotate(e.Context, e.Ticks)

	case TouchTap:
		p.handleTouchTap(e.Context, e.X, e.Y, e.Hold)

	default:
		p.logger.Debug("ignoring unhandled event", "event", ev)
	}
}

// remove discards all state for a control and cancels its outstanding
// timers. After this returns no draw targeting the context can fire until
// the control reappears.
func (p *Probe) remove(id string) {
	if k := p.keys[id]; k != nil {
		k.cancelTimers()
		delete(p.keys, id)
	}
	delete(p.dials, id)
	p.throttle.Cancel(id)
}

// Run drains events and fires timers until ctx is canceled or the event
// channel closes.
func (p *Probe) Run(ctx context.Context, events <-chan DeckEvent) {
	for {
		wait := p.tl.Fire(p.clock.Now())

		var wake <-chan time.Time
		if wait >= 0 {
			wake = p.clock.After(wait)
		}

		select {
		case <-ctx.Done():
			p.logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				p.logger.Info("daemon stopping (events channel closed)")
				return
			}
			p.Handle(ev)

		case <-wake:
			// Loop; due timers fire at the top.
		}
	}
}
