package stream

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ashureev/genomics-xai/internal/identity"
	"github.com/ashureev/genomics-xai/internal/workspace"
)

const writeTimeout = 10 * time.Second

// WebSocketHandler streams workspace events to the browser. The first message
// is always a navigation snapshot; panel and transcript events follow.
type WebSocketHandler struct {
	hub           *Hub
	workspaces    *workspace.Manager
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(hub *Hub, workspaces *workspace.Manager, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		workspaces:    workspaces,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := workspace.Key{
		UserID:    identity.UserIDFromContext(r.Context()),
		SessionID: identity.SessionIDFromContext(r.Context()),
	}
	slog.Info("Panel stream request", "user_id", key.UserID, "session_id", key.SessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", key.UserID)
		return
	}

	sub := h.hub.Subscribe(key)
	defer h.hub.Unsubscribe(key, sub)

	// The client never sends anything; CloseRead handles control frames and
	// cancels ctx once the peer goes away.
	ctx := conn.CloseRead(r.Context())

	snap := h.workspaces.Get(key).Snapshot()
	if err := h.write(ctx, conn, workspace.Event{Type: workspace.EventNavigation, Navigation: &snap}); err != nil {
		slog.Debug("Failed to send initial snapshot", "error", err, "user_id", key.UserID)
		conn.CloseNow()
		return
	}

	for {
		select {
		case ev := <-sub.Events():
			if err := h.write(ctx, conn, ev); err != nil {
				if ctx.Err() == nil {
					slog.Debug("Panel stream write error", "error", err, "user_id", key.UserID)
				}
				conn.CloseNow()
				return
			}
		case <-sub.Done():
			_ = conn.Close(websocket.StatusNormalClosure, sub.Reason())
			slog.Info("Panel stream ended", "user_id", key.UserID, "session_id", key.SessionID)
			return
		case <-ctx.Done():
			slog.Debug("Panel stream closed by client", "user_id", key.UserID, "session_id", key.SessionID)
			conn.CloseNow()
			return
		}
	}
}

func (h *WebSocketHandler) write(ctx context.Context, conn *websocket.Conn, ev workspace.Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
