package main

import (
	"fmt"
	"math"
	"strconv"
)

// ============================================================================
// Dial / touch interaction state machine
// ============================================================================
//
// Dials have no gesture lifecycle beyond "what happened last": every event
// independently bumps its counters, reclassifies the accent, and requests a
// redraw with a fresh label. All dial renders funnel through the throttle;
// a fast spin delivers an event per detent and the trailing flush keeps the
// display honest without redrawing per detent.
// ============================================================================

// dialState is the per-dial record, created lazily on first observation and
// discarded on willDisappear. Counters never reset while the dial is live.
type dialState struct {
	presses int
	touches int

	// rotateMag accumulates |ticks|; netTicks is the signed running sum.
	rotateMag int
	netTicks  int

	// Last tap marker, in canvas coordinates. Persists across renders until
	// the next tap; non-tap events never clear it.
	hasTap  bool
	tapX    float64
	tapY    float64
	tapHold bool

	// columnOffset shifts the background pattern phase; set once at
	// appearance from the dial's column index. Purely cosmetic.
	columnOffset int

	lastKind inputKind
}

// dialFor returns the live state for a dial context, creating it on first
// observation.
func (p *Probe) dialFor(id string) *dialState {
	d := p.dials[id]
	if d == nil {
		d = &dialState{}
		p.dials[id] = d
	}
	return d
}

func (p *Probe) handleDialAppear(id string, column int, hasColumn bool) {
	d := p.dialFor(id)
	if hasColumn {
		d.columnOffset = column * dialCanvasW
	}

	// One-time registration, outside the render loop.
	p.deck.SetFeedbackLayout(id, feedbackLayout)
	p.deck.SetTriggerDescription(id, TriggerDescription{
		Rotate:    "Count ticks",
		Push:      "Count presses",
		Touch:     "Mark tap point",
		LongTouch: "Mark hold point",
	})

	p.renderDial(id, d, "READY")
}

func (p *Probe) handleDialDown(id string) {
	d := p.dialFor(id)
	d.presses++
	d.lastKind = kindPress
	p.renderDial(id, d, "PRESS")
}

func (p *Probe) handleDialUp(id string) {
	d := p.dialFor(id)
	d.lastKind = kindRelease
	p.renderDial(id, d, "RELEASE")
}

func (p *Probe) handleDialRotate(id string, ticks int) {
	d := p.dialFor(id)
	if ticks < 0 {
		d.rotateMag -= ticks
	} else {
		d.rotateMag += ticks
	}
	d.netTicks += ticks
	d.lastKind = kindRotate
	p.renderDial(id, d, "ROT "+formatTicks(d.netTicks))
}

func (p *Probe) handleTouchTap(id string, rawX, rawY float64, hold bool) {
	d := p.dialFor(id)
	d.touches++

	d.tapX = normalizeTapCoord(rawX, dialCanvasW)
	d.tapY = normalizeTapCoord(rawY, dialCanvasH)
	d.hasTap = true
	d.tapHold = hold

	label := "TAP"
	d.lastKind = kindTap
	if hold {
		label = "HOLD"
		d.lastKind = kindHold
	}

	// The label carries the raw coordinates as reported, rounded, not the
	// scaled point: when a tester compares against the host's own logs the
	// numbers must match.
	label = fmt.Sprintf("%s %d,%d", label, roundCoord(rawX), roundCoord(rawY))
	p.renderDial(id, d, label)
}

// renderDial snapshots the dial's visual state and hands the draw to the
// throttle with the given label.
func (p *Probe) renderDial(id string, d *dialState, label string) {
	f := dialFace{
		Label:        label,
		Kind:         d.lastKind,
		Presses:      d.presses,
		RotateMag:    d.rotateMag,
		Touches:      d.touches,
		HasDot:       d.hasTap,
		DotX:         d.tapX,
		DotY:         d.tapY,
		DotHold:      d.tapHold,
		ColumnOffset: d.columnOffset,
	}
	p.throttle.Request(id, func() {
		p.deck.SetFeedback(id, FeedbackPayload{Canvas: buildDialImage(f)})
	})
}

// normalizeTapCoord maps a raw tap coordinate onto the canvas. The host
// reports either normalized fractions or absolute pixels depending on
// firmware; a value at or below 1 is treated as a fraction of extent and
// anything larger as pixels. The boundary case (a real tap at pixel 1 or
// below) is ambiguous by construction and resolved in favor of the
// fraction reading.
func normalizeTapCoord(raw, extent float64) float64 {
	if !isFinite(raw) {
		return 0
	}
	if raw <= 1 {
		return raw * extent
	}
	return raw
}

// roundCoord rounds a raw coordinate for display, substituting 0 for
// non-finite input.
func roundCoord(v float64) int {
	if !isFinite(v) {
		return 0
	}
	return int(math.Round(v))
}

// formatTicks renders a signed net tick count with an explicit sign; zero
// renders as plain "0".
func formatTicks(net int) string {
	if net > 0 {
		return "+" + strconv.Itoa(net)
	}
	return strconv.Itoa(net)
}
