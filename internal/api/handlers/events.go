package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/narvanalabs/boardroom/internal/api/middleware"
	"github.com/narvanalabs/boardroom/internal/events"
)

const (
	eventWriteWait  = 10 * time.Second
	eventPongWait   = 60 * time.Second
	eventPingPeriod = eventPongWait * 9 / 10
)

// EventsHandler streams invitation and membership events to the signed-in
// user over a websocket.
type EventsHandler struct {
	broker   *events.Broker
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(broker *events.Broker, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		broker: broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Stream handles GET /v1/events/ws. Each event is sent as one JSON text
// message. Client messages are ignored apart from keeping the connection
// alive.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket", "error", err, "user_id", userID)
		return
	}
	defer conn.Close()

	sub := h.broker.Subscribe(userID)
	defer h.broker.Unsubscribe(sub)

	h.logger.Debug("event stream opened", "user_id", userID, "subscriber_id", sub.ID)

	// The read loop only services control frames and notices disconnects.
	done := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(eventPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventPongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(eventPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("event stream write failed", "error", err, "user_id", userID)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
