package httpapi

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/example/roomboard/internal/application"
	"github.com/example/roomboard/internal/bridge"
	"github.com/example/roomboard/internal/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type streamHandler struct {
	app    *application.App
	logger *slog.Logger
}

// streamEvent is the envelope for every message pushed over the event socket.
type streamEvent struct {
	Type    string             `json:"type"`
	State   *roomStateResponse `json:"state,omitempty"`
	Kind    string             `json:"kind,omitempty"`
	Message string             `json:"message,omitempty"`
	Filter  string             `json:"filter,omitempty"`
	Sample  *bridge.Sample     `json:"sample,omitempty"`
}

// serve upgrades the connection and relays room-state changes, notifications,
// filter changes and telemetry until the client goes away. Events are funneled
// through a buffered channel so publishers never block on a slow socket; a
// client that falls too far behind is dropped.
func (h *streamHandler) serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events := make(chan streamEvent, 64)
	closed := make(chan struct{})
	var closeOnce sync.Once
	shutdown := func() { closeOnce.Do(func() { close(closed) }) }

	push := func(event streamEvent) {
		select {
		case events <- event:
		case <-closed:
		default:
			// Slow consumer; closing wakes the write loop.
			shutdown()
		}
	}

	releaseStates := h.app.Scheduler.Subscribe(func(state engine.RoomState) {
		resp := stateResponse(state)
		push(streamEvent{Type: "room_state", State: &resp})
	})
	defer releaseStates()

	releaseNotices := h.app.Notifier.Subscribe(func(n application.Notification) {
		push(streamEvent{Type: "notification", Kind: string(n.Kind), Message: n.Message})
	})
	defer releaseNotices()

	releaseFilter := h.app.Filter.Subscribe(func(filter string) {
		push(streamEvent{Type: "filter", Filter: filter})
	})
	defer releaseFilter()

	releaseTelemetry := h.app.SubscribeTelemetry(func(sample bridge.Sample) {
		s := sample
		push(streamEvent{Type: "telemetry", Sample: &s})
	})
	defer releaseTelemetry()

	// Snapshot so a fresh client renders without waiting for the next tick.
	for _, state := range h.app.RoomStates() {
		resp := stateResponse(state)
		push(streamEvent{Type: "room_state", State: &resp})
	}

	go func() {
		defer shutdown()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event := <-events:
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-closed:
			return
		}
	}
}
