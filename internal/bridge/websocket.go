package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// lightAction is the control frame written back to the sensor side.
type lightAction struct {
	Type string `json:"type"`
	Room string `json:"room"`
	On   bool   `json:"on"`
}

// WebsocketBridge receives telemetry frames over a websocket and writes
// light-control actions back on the same connection. Lost connections are
// redialled with capped backoff.
type WebsocketBridge struct {
	url    string
	logger *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	handler TelemetryHandler
	cancel  context.CancelFunc
}

// NewWebsocket builds a bridge for the given websocket URL and starts its
// read loop.
func NewWebsocket(url string, logger *slog.Logger) *WebsocketBridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &WebsocketBridge{url: url, logger: logger.With("component", "bridge")}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	go b.run(ctx)
	return b
}

// OnTelemetry registers the handler invoked for every incoming sample.
func (b *WebsocketBridge) OnTelemetry(handler TelemetryHandler) {
	b.mu.Lock()
	b.handler = handler
	b.mu.Unlock()
}

// TriggerLight writes a light-control action. It fails when the bridge is
// currently disconnected.
func (b *WebsocketBridge) TriggerLight(room string, on bool) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("bridge: not connected")
	}
	return conn.WriteJSON(lightAction{Type: "light", Room: room, On: on})
}

// Close stops the read loop and drops the connection.
func (b *WebsocketBridge) Close() error {
	b.cancel()
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (b *WebsocketBridge) run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.url, nil)
		if err != nil {
			b.logger.Warn("sensor bridge dial failed", "url", b.url, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}

		backoff = time.Second
		b.mu.Lock()
		b.conn = conn
		b.mu.Unlock()
		b.logger.Info("sensor bridge connected", "url", b.url)

		b.readLoop(conn)

		b.mu.Lock()
		if b.conn == conn {
			b.conn = nil
		}
		b.mu.Unlock()
		conn.Close()
	}
}

func (b *WebsocketBridge) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			b.logger.Warn("sensor bridge read failed", "error", err)
			return
		}

		var sample Sample
		if err := json.Unmarshal(data, &sample); err != nil {
			b.logger.Warn("discarding malformed telemetry frame", "error", err)
			continue
		}
		if sample.At.IsZero() {
			sample.At = time.Now()
		}

		b.mu.Lock()
		handler := b.handler
		b.mu.Unlock()
		if handler != nil {
			handler(sample)
		}
	}
}
