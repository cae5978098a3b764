package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luma-agent/luma/internal/model"
)

// wsEvent is a control frame on the WebSocket mirror.
type wsEvent struct {
	Event string `json:"event"`
	Error string `json:"error,omitempty"`
}

// errTurnWrite marks a failed frame write; the connection is dropped.
var errTurnWrite = errors.New("server: websocket write failed")

// HandleWebSocket handles GET /ws, a WebSocket mirror of the stream
// endpoint. The client sends {"input","thread_id"} frames; for each, the
// server sends every state followed by {"event":"done"}. A connection
// carries any number of turns.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.requireAssistant(w, r) {
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		h.logger.Debug("websocket: upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	// The server's read and write timeouts survive the hijack; turns and
	// idle time between them are unbounded.
	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})
	if h.maxRequestBodyBytes > 0 {
		conn.SetReadLimit(h.maxRequestBodyBytes)
	}

	ctx := r.Context()
	for {
		var req model.AgentRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket: read failed", "error", err)
			}
			return
		}
		if err := req.Validate(); err != nil {
			if conn.WriteJSON(wsEvent{Event: "error", Error: err.Error()}) != nil {
				return
			}
			continue
		}

		err := h.assistant.Stream(ctx, req.Input, req.ThreadID, func(state model.AgentState) error {
			if err := conn.WriteJSON(state); err != nil {
				return errors.Join(errTurnWrite, err)
			}
			return nil
		})
		switch {
		case err == nil:
		case errors.Is(err, errTurnWrite), errors.Is(err, context.Canceled):
			return
		default:
			h.logger.Warn("websocket: turn failed",
				"error", err,
				"request_id", RequestIDFromContext(ctx),
			)
			if conn.WriteJSON(wsEvent{Event: "error", Error: "agent turn failed"}) != nil {
				return
			}
		}
		if err := conn.WriteJSON(wsEvent{Event: "done"}); err != nil {
			return
		}
	}
}

// checkOrigin admits same-host pages, non-browser clients and the
// configured CORS origins.
func (h *Handlers) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(h.allowedOrigins, "*") || slices.Contains(h.allowedOrigins, origin) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
