package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/example/room-reservations/internal/notify"
)

// EventsHandler upgrades authenticated requests to websocket connections fed
// by the change notification hub.
type EventsHandler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewEventsHandler constructs the handler.
func NewEventsHandler(hub *notify.Hub, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The session middleware already authenticated the request; the
			// token, not the Origin header, is the trust boundary here.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: defaultLogger(logger),
	}
}

// Serve upgrades the connection and hands it to the hub.
func (h *EventsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.hub == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	h.hub.Attach(conn, h.logger)
}
