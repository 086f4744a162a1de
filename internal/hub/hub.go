// Package hub tracks live WebSocket connections per room and participant and
// delivers targeted and broadcast push events.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
	"github.com/pairup-labs/pairup/internal/domain"
)

// RoomEmptyFunc is invoked after the last connection of a room unregisters.
type RoomEmptyFunc func(roomID string)

// Hub manages active WebSocket connections. Delivery is best-effort: writes
// to a connection that is no longer open are dropped, never queued.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn // roomID -> participantID -> conn

	onRoomEmpty RoomEmptyFunc
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{active: make(map[string]map[string]*websocket.Conn)}
}

// SetOnRoomEmpty installs the callback fired when a room loses its last
// connection.
func (h *Hub) SetOnRoomEmpty(fn RoomEmptyFunc) {
	h.onRoomEmpty = fn
}

// Register adds a connection for a room participant, replacing any previous
// connection for the same participant.
func (h *Hub) Register(roomID, participantID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.active[roomID]; !exists {
		h.active[roomID] = make(map[string]*websocket.Conn)
	}
	if existing, exists := h.active[roomID][participantID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "connection replaced")
	}
	h.active[roomID][participantID] = conn
	slog.Info("Connection registered", "room_id", roomID, "participant_id", participantID)
}

// Unregister removes a connection. The room-empty callback fires outside the
// lock when this was the room's last connection.
func (h *Hub) Unregister(roomID, participantID string, conn *websocket.Conn) {
	h.mu.Lock()
	empty := false
	if conns, ok := h.active[roomID]; ok {
		if current, exists := conns[participantID]; exists && current == conn {
			delete(conns, participantID)
			if len(conns) == 0 {
				delete(h.active, roomID)
				empty = true
			}
			slog.Info("Connection unregistered", "room_id", roomID, "participant_id", participantID)
		}
	}
	onEmpty := h.onRoomEmpty
	h.mu.Unlock()

	if empty && onEmpty != nil {
		onEmpty(roomID)
	}
}

// HasConnections reports whether any connection is registered for the room.
func (h *Hub) HasConnections(roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[roomID]) > 0
}

// SendToParticipant delivers an event to one participant's connection.
func (h *Hub) SendToParticipant(roomID, participantID string, ev domain.Event) {
	h.mu.RLock()
	conn := h.active[roomID][participantID]
	h.mu.RUnlock()
	if conn == nil {
		slog.Debug("Drop event for absent connection", "room_id", roomID, "participant_id", participantID, "type", ev.Type)
		return
	}
	writeEvent(conn, roomID, participantID, ev)
}

// BroadcastToRoom delivers an event to every connection in the room.
func (h *Hub) BroadcastToRoom(roomID string, ev domain.Event) {
	for pid, conn := range h.snapshot(roomID) {
		writeEvent(conn, roomID, pid, ev)
	}
}

// BroadcastExcept delivers an event to every room connection but one.
func (h *Hub) BroadcastExcept(roomID, exceptParticipantID string, ev domain.Event) {
	for pid, conn := range h.snapshot(roomID) {
		if pid == exceptParticipantID {
			continue
		}
		writeEvent(conn, roomID, pid, ev)
	}
}

// CloseRoom forcefully closes every connection of a room.
func (h *Hub) CloseRoom(roomID string) {
	h.mu.Lock()
	conns := h.active[roomID]
	delete(h.active, roomID)
	h.mu.Unlock()

	for pid, conn := range conns {
		_ = conn.Close(websocket.StatusNormalClosure, "room closed")
		slog.Info("Connection closed", "room_id", roomID, "participant_id", pid)
	}
}

// snapshot copies the room's connection map so writes happen outside the lock.
func (h *Hub) snapshot(roomID string) map[string]*websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := h.active[roomID]
	out := make(map[string]*websocket.Conn, len(conns))
	for pid, c := range conns {
		out[pid] = c
	}
	return out
}

func writeEvent(conn *websocket.Conn, roomID, participantID string, ev domain.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to marshal push event", "type", ev.Type, "error", err)
		return
	}
	if err := conn.Write(context.Background(), websocket.MessageText, data); err != nil {
		slog.Debug("Push write failed", "room_id", roomID, "participant_id", participantID, "type", ev.Type, "error", err)
	}
}
