// Package room provides the in-memory registry of paired sessions.
package room

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pairup-labs/pairup/internal/domain"
)

// ErrNotFound indicates the room ID is unknown.
var ErrNotFound = errors.New("room not found")

// Store is the process-local registry of Room entities. Rooms live only in
// memory; the registry is the single source of truth for active sessions.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room
}

// NewStore creates an empty room registry.
func NewStore() *Store {
	return &Store{rooms: make(map[string]*domain.Room)}
}

// Create registers a new room with its first participant and returns it.
// Room IDs are short shareable codes.
func (s *Store) Create(first *domain.Participant) *domain.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := newRoomID()
	for s.rooms[id] != nil {
		id = newRoomID()
	}
	r := domain.NewRoom(id, first)
	s.rooms[id] = r
	slog.Info("Room created", "room_id", id, "participant_id", first.ID)
	return r
}

// Join adds a second participant to an existing room.
func (s *Store) Join(roomID string, p *domain.Participant) (*domain.Room, error) {
	r, ok := s.lookup(roomID)
	if !ok {
		return nil, ErrNotFound
	}
	if err := r.Join(p); err != nil {
		return nil, err
	}
	slog.Info("Participant joined", "room_id", roomID, "participant_id", p.ID)
	return r, nil
}

// Get returns the room with the given ID, or ErrNotFound.
func (s *Store) Get(roomID string) (*domain.Room, error) {
	r, ok := s.lookup(roomID)
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

// Delete removes a room from the registry.
func (s *Store) Delete(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
}

// InertRooms returns rooms whose last connection closed before the cutoff.
func (s *Store) InertRooms(cutoffOlderThan func(*domain.Room) bool) []*domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Room
	for _, r := range s.rooms {
		if cutoffOlderThan(r) {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of registered rooms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

func (s *Store) lookup(roomID string) (*domain.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[strings.TrimSpace(roomID)]
	return r, ok
}

func newRoomID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}
