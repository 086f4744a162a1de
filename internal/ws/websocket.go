// Package ws upgrades room connections and feeds inbound frames into the
// orchestrator.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/pairup-labs/pairup/internal/domain"
	"github.com/pairup-labs/pairup/internal/hub"
	"github.com/pairup-labs/pairup/internal/orchestrator"
	"github.com/pairup-labs/pairup/internal/room"
)

// WebSocketHandler handles WebSocket-based room sessions.
type WebSocketHandler struct {
	rooms         *room.Store
	hub           *hub.Hub
	orch          *orchestrator.Orchestrator
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(rooms *room.Store, h *hub.Hub, orch *orchestrator.Orchestrator, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		rooms:         rooms,
		hub:           h,
		orch:          orch,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsMessage represents an inbound WebSocket frame.
type wsMessage struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	QuestionID string `json:"question_id,omitempty"`
	Value      string `json:"value,omitempty"`
	Action     string `json:"action,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room_id")
	participantID := r.URL.Query().Get("participant_id")
	slog.Info("WebSocket connection request", "room_id", roomID, "participant_id", participantID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	rm, err := h.rooms.Get(roomID)
	if err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	p := rm.Participant(participantID)
	if p == nil {
		http.Error(w, "not a room member", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "room_id", roomID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "room_id", roomID)
		}
	}()

	h.hub.Register(roomID, participantID, ws)
	defer h.hub.Unregister(roomID, participantID, ws)

	pctx := orchestrator.Ctx{RoomID: roomID, ParticipantID: participantID, Name: p.Name}
	h.orch.ConnectionOpened(pctx)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.readLoop(ctx, ws, pctx)
	slog.Info("Room session ended", "room_id", roomID, "participant_id", participantID)
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

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, pctx orchestrator.Ctx) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "participant_id", pctx.ParticipantID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "participant_id", pctx.ParticipantID)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			// Bare text frames count as chat messages.
			msg = wsMessage{Type: "message", Text: string(message)}
		}

		switch msg.Type {
		case "message":
			if err := h.orch.HandleMessage(ctx, pctx, msg.Text); err != nil {
				slog.Warn("Failed to handle message", "error", err, "room_id", pctx.RoomID)
			}
		case "answer":
			if err := h.orch.SubmitAnswer(ctx, pctx, msg.QuestionID, msg.Value); err != nil {
				slog.Warn("Failed to record answer", "error", err, "room_id", pctx.RoomID, "question_id", msg.QuestionID)
				var dup *domain.DuplicateAnswerError
				if errors.As(err, &dup) {
					// Echo the recorded value so the client can fall back
					// to it instead of retrying blindly.
					h.writeJSON(ws, map[string]string{
						"type":        "error",
						"message":     "question already answered",
						"question_id": dup.QuestionID,
						"value":       dup.Value,
					})
					continue
				}
				h.writeJSON(ws, map[string]string{"type": "error", "message": "answer rejected"})
			}
		case "choose_action":
			if err := h.orch.ChooseAction(ctx, pctx, msg.Action, msg.Text); err != nil {
				// The orchestrator already pushed a user-visible error event.
				slog.Info("Action proposal rejected", "error", err, "room_id", pctx.RoomID, "action", msg.Action)
			}
		case "ping":
			h.writeJSON(ws, map[string]string{"type": "pong"})
		default:
			slog.Debug("Ignoring unknown frame type", "type", msg.Type, "room_id", pctx.RoomID)
		}
	}
}

func (h *WebSocketHandler) writeJSON(ws *websocket.Conn, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := ws.Write(context.Background(), websocket.MessageText, data); err != nil {
		slog.Debug("Failed to write frame", "error", err)
	}
}
