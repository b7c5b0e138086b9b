package main

import (
	"encoding/base64"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

// mockDeck is a test double for the Dispatcher boundary. It records every
// outbound call with the mock clock's timestamp.
type mockDeck struct {
	clock clock.Clock

	images    []imageCall
	feedbacks []feedbackCall
	layouts   []layoutCall
	triggers  []string
}

type imageCall struct {
	context string
	image   string
	at      time.Time
}

type feedbackCall struct {
	context  string
	feedback FeedbackPayload
	at       time.Time
}

type layoutCall struct {
	context string
	layout  string
}

func (m *mockDeck) SetImage(context string, image string) {
	m.images = append(m.images, imageCall{context: context, image: image, at: m.clock.Now()})
}

func (m *mockDeck) SetFeedback(context string, feedback FeedbackPayload) {
	m.feedbacks = append(m.feedbacks, feedbackCall{context: context, feedback: feedback, at: m.clock.Now()})
}

func (m *mockDeck) SetFeedbackLayout(context string, layout string) {
	m.layouts = append(m.layouts, layoutCall{context: context, layout: layout})
}

func (m *mockDeck) SetTriggerDescription(context string, desc TriggerDescription) {
	m.triggers = append(m.triggers, context)
}

// newTestProbe builds a Probe on a mock clock with a recording dispatcher.
func newTestProbe(t *testing.T) (*Probe, *clock.Mock, *mockDeck) {
	t.Helper()
	mc := clock.NewMock()
	deck := &mockDeck{clock: mc}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewProbe(deck, mc, logger), mc, deck
}

// advance moves simulated time forward by d, firing every timeline deadline
// on the way, exactly as the run loop would.
func advance(p *Probe, mc *clock.Mock, d time.Duration) {
	deadline := mc.Now().Add(d)
	for {
		p.tl.Fire(mc.Now())
		next, ok := p.tl.Next()
		if !ok || next.After(deadline) {
			break
		}
		mc.Set(next)
	}
	mc.Set(deadline)
	p.tl.Fire(mc.Now())
}

// decodeImage unwraps an SVG data URI back to markup for assertions.
func decodeImage(t *testing.T, dataURI string) string {
	t.Helper()
	const prefix = "data:image/svg+xml;base64,"
	if !strings.HasPrefix(dataURI, prefix) {
		t.Fatalf("expected SVG data URI, got %q", dataURI)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURI, prefix))
	if err != nil {
		t.Fatalf("image payload is not valid base64: %v", err)
	}
	return string(raw)
}

// TestProbe_AppearRoutesByController tests that willAppear creates key state
// for keypads and dial state for encoders, never both.
func TestProbe_AppearRoutesByController(t *testing.T) {
	p, _, deck := newTestProbe(t)

	p.Handle(WillAppear{Context: "key-1", Controller: controllerKeypad})
	p.Handle(WillAppear{Context: "dial-1", Controller: controllerEncoder, Column: 2, HasColumn: true})

	if _, ok := p.keys["key-1"]; !ok {
		t.Error("expected key state for key-1")
	}
	if _, ok := p.dials["key-1"]; ok {
		t.Error("keypad context must not create dial state")
	}
	if _, ok := p.dials["dial-1"]; !ok {
		t.Error("expected dial state for dial-1")
	}

	if len(deck.images) != 1 {
		t.Errorf("expected 1 key render, got %d", len(deck.images))
	}
	if len(deck.feedbacks) != 1 {
		t.Errorf("expected 1 dial render, got %d", len(deck.feedbacks))
	}
}

// TestProbe_AppearWithoutController tests that hosts omitting the controller
// field get key handling.
func TestProbe_AppearWithoutController(t *testing.T) {
	p, _, _ := newTestProbe(t)

	ev, err := ParseDeckEvent([]byte(`{"event":"willAppear","context":"k"}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	p.Handle(ev)

	if _, ok := p.keys["k"]; !ok {
		t.Error("expected key state for controller-less willAppear")
	}
}

// TestProbe_RemovalCancelsEverything tests that no render targeting a
// removed control fires, even with timers outstanding at removal time.
func TestProbe_RemovalCancelsEverything(t *testing.T) {
	p, mc, deck := newTestProbe(t)

	p.Handle(WillAppear{Context: "key-1", Controller: controllerKeypad})
	advance(p, mc, 100*time.Millisecond)

	// Leave a hold tick running and a throttled dial flush pending.
	p.Handle(KeyDown{Context: "key-1"})
	p.Handle(WillAppear{Context: "dial-1", Controller: controllerEncoder})
	p.Handle(DialRotate{Context: "dial-1", Ticks: 1})
	p.Handle(DialRotate{Context: "dial-1", Ticks: 1}) // coalesced, flush pending

	images := len(deck.images)
	feedbacks := len(deck.feedbacks)

	p.Handle(WillDisappear{Context: "key-1"})
	p.Handle(WillDisappear{Context: "dial-1"})

	advance(p, mc, 10*time.Second)

	if len(deck.images) != images {
		t.Errorf("key rendered after removal: %d -> %d", images, len(deck.images))
	}
	if len(deck.feedbacks) != feedbacks {
		t.Errorf("dial rendered after removal: %d -> %d", feedbacks, len(deck.feedbacks))
	}
	if _, ok := p.keys["key-1"]; ok {
		t.Error("key state not discarded")
	}
	if _, ok := p.dials["dial-1"]; ok {
		t.Error("dial state not discarded")
	}
}

// TestProbe_StrayEventsAfterRemovalAreHarmless tests that events for a
// removed (or never-seen) control recreate fresh state instead of crashing.
func TestProbe_StrayEventsAfterRemovalAreHarmless(t *testing.T) {
	p, mc, _ := newTestProbe(t)

	p.Handle(WillAppear{Context: "key-1", Controller: controllerKeypad})
	p.Handle(WillDisappear{Context: "key-1"})
	advance(p, mc, 50*time.Millisecond)

	// A late keyUp for the removed control: tolerated, counts from zero.
	p.Handle(KeyUp{Context: "key-1"})

	k := p.keys["key-1"]
	if k == nil {
		t.Fatal("expected lazily recreated key state")
	}
	if k.downs != 0 || k.ups != 1 {
		t.Errorf("expected downs=0 ups=1, got downs=%d ups=%d", k.downs, k.ups)
	}
}
