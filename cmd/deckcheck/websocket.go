package main

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// Deck host websocket client
// ============================================================================
//
// The host launches the plugin with a localhost port and a registration
// token; the plugin dials back, registers, and from then on receives one
// JSON frame per hardware interaction and sends image frames the other way.
//
// Outbound sends are fire-and-forget by design: a failed transmit is logged
// and dropped, never retried or surfaced to the state machines. The host
// tears the socket down when the plugin should exit, which surfaces as a
// read error in ReadEvents.
// ============================================================================

// outboundFrame is the wire envelope for plugin-to-host messages.
type outboundFrame struct {
	Event   string `json:"event"`
	UUID    string `json:"uuid,omitempty"`
	Context string `json:"context,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

type setImagePayload struct {
	Image string `json:"image"`
	// Target 0 addresses both the hardware display and the host's preview.
	Target int `json:"target"`
}

type setFeedbackLayoutPayload struct {
	Layout string `json:"layout"`
}

// DeckClient manages the websocket session with the deck host.
type DeckClient struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	logger *slog.Logger
}

// DialDeck connects to the host's plugin socket on the given localhost port.
func DialDeck(port int, handshakeTimeout time.Duration, logger *slog.Logger) (*DeckClient, error) {
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid deck port: %d", port)
	}

	d := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	url := fmt.Sprintf("ws://127.0.0.1:%d", port)
	conn, _, err := d.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial deck host: %w", err)
	}

	logger.Info("connected to deck host", "url", url)
	return &DeckClient{conn: conn, logger: logger}, nil
}

// Register performs the one-time plugin registration handshake. event and
// uuid are the values the host passed on the command line.
func (c *DeckClient) Register(event, uuid string) error {
	if event == "" || uuid == "" {
		return errors.New("register: missing event or uuid")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(outboundFrame{Event: event, UUID: uuid}); err != nil {
		return fmt.Errorf("register with deck host: %w", err)
	}
	return nil
}

// send serializes one outbound frame. Failures are logged and dropped.
func (c *DeckClient) send(f outboundFrame) {
	c.mu.Lock()
	err := c.conn.WriteJSON(f)
	c.mu.Unlock()
	if err != nil {
		c.logger.Warn("dropping outbound frame", "event", f.Event, "context", f.Context, "error", err)
	}
}

func (c *DeckClient) SetImage(context string, image string) {
	c.send(outboundFrame{
		Event:   "setImage",
		Context: context,
		Payload: setImagePayload{Image: image},
	})
}

func (c *DeckClient) SetFeedback(context string, feedback FeedbackPayload) {
	c.send(outboundFrame{
		Event:   "setFeedback",
		Context: context,
		Payload: feedback,
	})
}

func (c *DeckClient) SetFeedbackLayout(context string, layout string) {
	c.send(outboundFrame{
		Event:   "setFeedbackLayout",
		Context: context,
		Payload: setFeedbackLayoutPayload{Layout: layout},
	})
}

func (c *DeckClient) SetTriggerDescription(context string, desc TriggerDescription) {
	c.send(outboundFrame{
		Event:   "setTriggerDescription",
		Context: context,
		Payload: desc,
	})
}

// ReadEvents pumps inbound frames into events until the socket closes.
// Frames this plugin does not consume are skipped; malformed frames are
// logged and skipped. Returns the terminal read error.
func (c *DeckClient) ReadEvents(events chan<- DeckEvent) error {
	defer close(events)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read deck event: %w", err)
		}

		ev, err := ParseDeckEvent(msg)
		if err != nil {
			if errors.Is(err, errUnknownDeckEvent) {
				c.logger.Debug("skipping event", "error", err)
			} else {
				c.logger.Warn("malformed deck event", "error", err)
			}
			continue
		}
		events <- ev
	}
}

// Close tears the session down.
func (c *DeckClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Best-effort clean close; the host treats an abrupt close the same way.
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.conn.Close()
}
