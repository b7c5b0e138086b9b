// decksim is a stand-in deck host for exercising the deckcheck plugin
// without hardware. It listens for the plugin's websocket connection, waits
// for the registration frame, then drives a scripted interaction scenario
// (key taps, a long hold, dial spins, touch taps) while logging every image
// frame the plugin sends back.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

const (
	keyContext  = "sim-key-0"
	dialContext = "sim-dial-0"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// frame is the host-to-plugin event envelope.
type frame struct {
	Event   string `json:"event"`
	Context string `json:"context,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// step is one beat of the scripted scenario.
type step struct {
	delay time.Duration
	frame frame
}

func scenario() []step {
	coords := func(col int) map[string]any {
		return map[string]any{"column": col, "row": 0}
	}
	return []step{
		{0, frame{Event: "willAppear", Context: keyContext,
			Payload: map[string]any{"controller": "Keypad", "coordinates": coords(0)}}},
		{0, frame{Event: "willAppear", Context: dialContext,
			Payload: map[string]any{"controller": "Encoder", "coordinates": coords(1)}}},

		// Two quick key taps, then a long hold.
		{300 * time.Millisecond, frame{Event: "keyDown", Context: keyContext}},
		{120 * time.Millisecond, frame{Event: "keyUp", Context: keyContext}},
		{400 * time.Millisecond, frame{Event: "keyDown", Context: keyContext}},
		{150 * time.Millisecond, frame{Event: "keyUp", Context: keyContext}},
		{500 * time.Millisecond, frame{Event: "keyDown", Context: keyContext}},
		{900 * time.Millisecond, frame{Event: "keyUp", Context: keyContext}},

		// Dial press, a fast spin each way, then touch taps.
		{400 * time.Millisecond, frame{Event: "dialDown", Context: dialContext}},
		{150 * time.Millisecond, frame{Event: "dialUp", Context: dialContext}},
		{200 * time.Millisecond, frame{Event: "dialRotate", Context: dialContext,
			Payload: map[string]any{"ticks": 3}}},
		{10 * time.Millisecond, frame{Event: "dialRotate", Context: dialContext,
			Payload: map[string]any{"ticks": 2}}},
		{10 * time.Millisecond, frame{Event: "dialRotate", Context: dialContext,
			Payload: map[string]any{"ticks": -1}}},
		{300 * time.Millisecond, frame{Event: "touchTap", Context: dialContext,
			Payload: map[string]any{"tapPos": []float64{0.5, 0.5}, "hold": false}}},
		{400 * time.Millisecond, frame{Event: "touchTap", Context: dialContext,
			Payload: map[string]any{"tapPos": []float64{195, 5}, "hold": true}}},

		// Let the key's revert timer play out, then retire the controls.
		{2500 * time.Millisecond, frame{Event: "willDisappear", Context: keyContext}},
		{0, frame{Event: "willDisappear", Context: dialContext}},
	}
}

func main() {
	var (
		listen = flag.String("listen", "127.0.0.1:9555", "Listen address for the plugin websocket")
		loop   = flag.Bool("loop", false, "Replay the scenario until interrupted")
	)
	flag.Parse()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		servePlugin(conn, *loop)
	})

	log.Printf("decksim listening on %s (point deckcheck at this port)", *listen)

	srv := &http.Server{Addr: *listen}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen failed: %v", err)
		}
	}()

	<-sigc
	log.Printf("shutting down")
	srv.Close()
}

func servePlugin(conn *websocket.Conn, loop bool) {
	// First frame must be the registration.
	var reg struct {
		Event string `json:"event"`
		UUID  string `json:"uuid"`
	}
	if err := conn.ReadJSON(&reg); err != nil {
		log.Printf("registration read failed: %v", err)
		return
	}
	log.Printf("plugin registered: event=%q uuid=%q", reg.Event, reg.UUID)

	var writeMu sync.Mutex
	sendFrame := func(f frame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(f)
	}

	// Log whatever the plugin sends back, summarized.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			logOutbound(msg)
		}
	}()

	for {
		for _, s := range scenario() {
			select {
			case <-done:
				log.Printf("plugin disconnected")
				return
			case <-time.After(s.delay):
			}
			log.Printf(">> %s %s", s.frame.Event, s.frame.Context)
			if err := sendFrame(s.frame); err != nil {
				log.Printf("send failed: %v", err)
				return
			}
		}
		if !loop {
			break
		}
	}

	// Keep the session open so trailing renders are observed.
	select {
	case <-done:
	case <-time.After(3 * time.Second):
	}
	log.Printf("scenario complete")
}

func logOutbound(msg []byte) {
	var f struct {
		Event   string          `json:"event"`
		Context string          `json:"context"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(msg, &f); err != nil {
		log.Printf("<< unparseable frame: %s", msg)
		return
	}

	switch f.Event {
	case "setImage", "setFeedback":
		log.Printf("<< %s %s (%d byte payload)", f.Event, f.Context, len(f.Payload))
	default:
		log.Printf("<< %s %s %s", f.Event, f.Context, f.Payload)
	}
}
