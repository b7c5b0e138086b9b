package main

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ============================================================================
// Deck host events
// ============================================================================
// The deck host delivers one JSON object per interaction on the plugin
// websocket. Each carries an event name, the opaque per-control context, and
// an event-specific payload. Key contexts and dial contexts are disjoint
// identity spaces; the daemon never compares one against the other.
// ============================================================================

// DeckEvent is a marker interface for all inbound host events.
type DeckEvent interface {
	deckEvent()
}

// Controller names as reported in willAppear payloads.
const (
	controllerKeypad  = "Keypad"
	controllerEncoder = "Encoder"
)

// WillAppear indicates a control became visible and is now live.
type WillAppear struct {
	Context    string
	Controller string // controllerKeypad or controllerEncoder
	Column     int
	HasColumn  bool
}

func (WillAppear) deckEvent() {}

// WillDisappear indicates a control is no longer visible; all of its state
// and timers must be discarded.
type WillDisappear struct {
	Context string
}

func (WillDisappear) deckEvent() {}

// KeyDown indicates a key was physically pressed.
type KeyDown struct {
	Context string
}

func (KeyDown) deckEvent() {}

// KeyUp indicates a key was physically released.
type KeyUp struct {
	Context string
}

func (KeyUp) deckEvent() {}

// DialDown indicates a dial was pressed in.
type DialDown struct {
	Context string
}

func (DialDown) deckEvent() {}

// DialUp indicates a pressed dial was released.
type DialUp struct {
	Context string
}

func (DialUp) deckEvent() {}

// DialRotate carries signed detent ticks from a dial rotation.
type DialRotate struct {
	Context string
	Ticks   int
	Pressed bool
}

func (DialRotate) deckEvent() {}

// TouchTap carries a tap (or long touch) on a dial's touch-strip segment.
//
// The host reports coordinates in two shapes depending on firmware: either
// normalized fractions in [0,1] or absolute pixels. The dial state machine
// resolves the ambiguity; the raw values are passed through untouched here.
type TouchTap struct {
	Context string
	X, Y    float64
	Hold    bool
}

func (TouchTap) deckEvent() {}

// ============================================================================
// JSON decoding
// ============================================================================

// errUnknownDeckEvent marks host events this plugin does not consume (for
// example applicationDidLaunch). The reader skips them quietly.
var errUnknownDeckEvent = errors.New("unknown deck event")

// deckEnvelope is the wire envelope for inbound host messages.
type deckEnvelope struct {
	Event   string          `json:"event"`
	Context string          `json:"context"`
	Device  string          `json:"device,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type coordinatesPayload struct {
	Column int `json:"column"`
	Row    int `json:"row"`
}

type appearPayload struct {
	Controller  string              `json:"controller"`
	Coordinates *coordinatesPayload `json:"coordinates"`
}

type rotatePayload struct {
	Ticks   int  `json:"ticks"`
	Pressed bool `json:"pressed"`
}

type touchPayload struct {
	TapPos []float64 `json:"tapPos"`
	Hold   bool      `json:"hold"`
}

// ParseDeckEvent deserializes a host JSON frame into a concrete DeckEvent.
//
// Events the plugin does not consume return errUnknownDeckEvent (wrapped);
// callers should skip those rather than treat them as failures.
func ParseDeckEvent(data []byte) (DeckEvent, error) {
	var env deckEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Event {
	case "willAppear":
		var p appearPayload
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				return nil, fmt.Errorf("unmarshal willAppear payload: %w", err)
			}
		}
		ev := WillAppear{
			Context:    env.Context,
			Controller: p.Controller,
		}
		if p.Controller == "" {
			// Older hosts omit the controller field; those only have keys.
			ev.Controller = controllerKeypad
		}
		if p.Coordinates != nil {
			ev.Column = p.Coordinates.Column
			ev.HasColumn = true
		}
		return ev, nil

	case "willDisappear":
		return WillDisappear{Context: env.Context}, nil

	case "keyDown":
		return KeyDown{Context: env.Context}, nil

	case "keyUp":
		return KeyUp{Context: env.Context}, nil

	case "dialDown":
		return DialDown{Context: env.Context}, nil

	case "dialUp":
		return DialUp{Context: env.Context}, nil

	case "dialRotate":
		var p rotatePayload
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				return nil, fmt.Errorf("unmarshal dialRotate payload: %w", err)
			}
		}
		return DialRotate{Context: env.Context, Ticks: p.Ticks, Pressed: p.Pressed}, nil

	case "touchTap":
		var p touchPayload
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				return nil, fmt.Errorf("unmarshal touchTap payload: %w", err)
			}
		}
		ev := TouchTap{Context: env.Context, Hold: p.Hold}
		if len(p.TapPos) >= 2 {
			ev.X = p.TapPos[0]
			ev.Y = p.TapPos[1]
		}
		return ev, nil

	default:
		return nil, fmt.Errorf("%w: %q", errUnknownDeckEvent, env.Event)
	}
}
