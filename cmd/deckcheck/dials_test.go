package main

import (
	"math"
	"strings"
	"testing"
	"time"
)

// TestDial_AppearRegistersAndRendersReady tests the one-time appearance
// work: layout selection, trigger description, and the READY render.
func TestDial_AppearRegistersAndRendersReady(t *testing.T) {
	p, _, deck := newTestProbe(t)

	p.Handle(WillAppear{Context: "d", Controller: controllerEncoder, Column: 3, HasColumn: true})

	if len(deck.layouts) != 1 || deck.layouts[0].layout != feedbackLayout {
		t.Fatalf("expected one layout registration of %q, got %v", feedbackLayout, deck.layouts)
	}
	if len(deck.triggers) != 1 || deck.triggers[0] != "d" {
		t.Fatalf("expected one trigger description for d, got %v", deck.triggers)
	}

	want := buildDialImage(dialFace{Label: "READY", Kind: kindIdle, ColumnOffset: 3 * dialCanvasW})
	if len(deck.feedbacks) != 1 {
		t.Fatalf("expected 1 render at appearance, got %d", len(deck.feedbacks))
	}
	if deck.feedbacks[0].feedback.Canvas != want {
		t.Error("expected the READY face with zero counters and column 3 pattern phase")
	}
}

// TestDial_RotateAccumulation tests magnitude/net accumulation and the
// signed label, including the zero case.
func TestDial_RotateAccumulation(t *testing.T) {
	p, mc, deck := newTestProbe(t)
	p.Handle(WillAppear{Context: "d", Controller: controllerEncoder})
	advance(p, mc, 100*time.Millisecond)

	p.Handle(DialRotate{Context: "d", Ticks: 3})
	p.Handle(DialRotate{Context: "d", Ticks: -1})
	advance(p, mc, 100*time.Millisecond) // flush the coalesced render

	d := p.dials["d"]
	if d.rotateMag != 4 {
		t.Errorf("expected rotateMag=4, got %d", d.rotateMag)
	}
	if d.netTicks != 2 {
		t.Errorf("expected netTicks=2, got %d", d.netTicks)
	}

	want := buildDialImage(dialFace{Label: "ROT +2", Kind: kindRotate, RotateMag: 4})
	last := deck.feedbacks[len(deck.feedbacks)-1]
	if last.feedback.Canvas != want {
		t.Error("expected the flushed render to carry label ROT +2 with magnitude 4")
	}

	// Spin back through zero into negative territory.
	p.Handle(DialRotate{Context: "d", Ticks: -2})
	advance(p, mc, 100*time.Millisecond)
	if d.netTicks != 0 || d.rotateMag != 6 {
		t.Errorf("expected netTicks=0 rotateMag=6, got %d/%d", d.netTicks, d.rotateMag)
	}
	want = buildDialImage(dialFace{Label: "ROT 0", Kind: kindRotate, RotateMag: 6})
	last = deck.feedbacks[len(deck.feedbacks)-1]
	if last.feedback.Canvas != want {
		t.Error("expected net zero to render as plain ROT 0")
	}

	p.Handle(DialRotate{Context: "d", Ticks: -5})
	advance(p, mc, 100*time.Millisecond)
	want = buildDialImage(dialFace{Label: "ROT -5", Kind: kindRotate, RotateMag: 11})
	last = deck.feedbacks[len(deck.feedbacks)-1]
	if last.feedback.Canvas != want {
		t.Error("expected negative net to render with explicit minus")
	}
}

// TestDial_PressAndRelease tests press counting and accent classification.
func TestDial_PressAndRelease(t *testing.T) {
	p, mc, deck := newTestProbe(t)
	p.Handle(WillAppear{Context: "d", Controller: controllerEncoder})
	advance(p, mc, 100*time.Millisecond)

	p.Handle(DialDown{Context: "d"})
	advance(p, mc, 100*time.Millisecond)
	p.Handle(DialUp{Context: "d"})
	advance(p, mc, 100*time.Millisecond)

	d := p.dials["d"]
	if d.presses != 1 {
		t.Errorf("expected presses=1, got %d", d.presses)
	}

	want := buildDialImage(dialFace{Label: "RELEASE", Kind: kindRelease, Presses: 1})
	last := deck.feedbacks[len(deck.feedbacks)-1]
	if last.feedback.Canvas != want {
		t.Error("expected RELEASE face with presses=1")
	}
}

// TestDial_TapNormalizedCoordinates tests the fraction reading: (0.5, 0.5)
// on the 200x100 canvas lands the dot center at (100, 50).
func TestDial_TapNormalizedCoordinates(t *testing.T) {
	p, mc, deck := newTestProbe(t)
	p.Handle(WillAppear{Context: "d", Controller: controllerEncoder})
	advance(p, mc, 100*time.Millisecond)

	p.Handle(TouchTap{Context: "d", X: 0.5, Y: 0.5})
	advance(p, mc, 100*time.Millisecond)

	d := p.dials["d"]
	if d.tapX != 100 || d.tapY != 50 {
		t.Errorf("expected dot at (100,50), got (%v,%v)", d.tapX, d.tapY)
	}

	// Label uses the rounded raw coordinates, not the scaled point.
	want := buildDialImage(dialFace{
		Label: "TAP 1,1", Kind: kindTap, Touches: 1,
		HasDot: true, DotX: 100, DotY: 50,
	})
	last := deck.feedbacks[len(deck.feedbacks)-1]
	if last.feedback.Canvas != want {
		t.Error("expected TAP face with raw-coordinate label and scaled dot")
	}
}

// TestDial_TapAbsoluteCoordinatesClamped tests the pixel reading and the
// edge clamp: a tap at (195, 5) keeps the dot fully inside the canvas.
func TestDial_TapAbsoluteCoordinatesClamped(t *testing.T) {
	p, mc, deck := newTestProbe(t)
	p.Handle(WillAppear{Context: "d", Controller: controllerEncoder})
	advance(p, mc, 100*time.Millisecond)

	p.Handle(TouchTap{Context: "d", X: 195, Y: 5, Hold: true})
	advance(p, mc, 100*time.Millisecond)

	d := p.dials["d"]
	if d.tapX != 195 || d.tapY != 5 {
		t.Errorf("expected raw pixel point stored, got (%v,%v)", d.tapX, d.tapY)
	}

	last := deck.feedbacks[len(deck.feedbacks)-1]
	svg := decodeImage(t, last.feedback.Canvas)
	if !strings.Contains(svg, `cx="193"`) || !strings.Contains(svg, `cy="7"`) {
		t.Error("expected the dot center clamped to (193,7)")
	}
	if !strings.Contains(svg, "HOLD 195,5") {
		t.Error("expected the HOLD label with the raw coordinates")
	}
}

// TestDial_TapPersistsAcrossOtherEvents tests that the dot survives
// non-tap events until the next tap overwrites it.
func TestDial_TapPersistsAcrossOtherEvents(t *testing.T) {
	p, mc, deck := newTestProbe(t)
	p.Handle(WillAppear{Context: "d", Controller: controllerEncoder})
	advance(p, mc, 100*time.Millisecond)

	p.Handle(TouchTap{Context: "d", X: 0.25, Y: 0.5})
	advance(p, mc, 100*time.Millisecond)
	p.Handle(DialDown{Context: "d"})
	advance(p, mc, 100*time.Millisecond)

	want := buildDialImage(dialFace{
		Label: "PRESS", Kind: kindPress, Presses: 1, Touches: 1,
		HasDot: true, DotX: 50, DotY: 50,
	})
	last := deck.feedbacks[len(deck.feedbacks)-1]
	if last.feedback.Canvas != want {
		t.Error("expected the press render to keep the previous tap dot")
	}

	// A later tap moves the dot.
	p.Handle(TouchTap{Context: "d", X: 0.75, Y: 0.5})
	advance(p, mc, 100*time.Millisecond)
	d := p.dials["d"]
	if d.tapX != 150 {
		t.Errorf("expected the new tap to overwrite the dot, got x=%v", d.tapX)
	}
}

// TestNormalizeTapCoord pins the dual-interpretation heuristic, including
// the boundary and non-finite inputs.
func TestNormalizeTapCoord(t *testing.T) {
	cases := []struct {
		raw    float64
		extent float64
		want   float64
	}{
		{0.5, 200, 100}, // fraction
		{0, 200, 0},     // fraction, origin
		{1, 200, 200},   // boundary reads as fraction
		{1.5, 200, 1.5}, // pixels
		{195, 200, 195}, // pixels
	}
	for _, c := range cases {
		if got := normalizeTapCoord(c.raw, c.extent); got != c.want {
			t.Errorf("normalizeTapCoord(%v, %v) = %v, want %v", c.raw, c.extent, got, c.want)
		}
	}

	if got := normalizeTapCoord(math.NaN(), 200); got != 0 {
		t.Errorf("expected NaN to normalize to 0, got %v", got)
	}
	if got := normalizeTapCoord(math.Inf(1), 200); got != 0 {
		t.Errorf("expected +Inf to normalize to 0, got %v", got)
	}
}
