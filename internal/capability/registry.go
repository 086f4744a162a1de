// Package capability maintains the process-wide set of remote operations the
// conversational responder may invoke.
package capability

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
)

// InvokeFunc executes a remote operation with JSON-object arguments and
// returns its textual result.
type InvokeFunc func(ctx context.Context, args map[string]any) (string, error)

// Entry is one invocable remote operation.
type Entry struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Invoke      InvokeFunc
	// Scope tags the room that merged the entry. Entries outlive their room:
	// the tag is informational, not ownership.
	Scope string
}

// Registry is the shared, process-wide capability set. It is intentionally
// not isolated per room: two rooms authorizing the same provider merge into
// one list, and same-name entries replace rather than accumulate so the
// responder never sees duplicate declarations.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	conns   map[string]io.Closer // roomID -> live remote connection
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]io.Closer)}
}

// Merge inserts entries, replacing any existing entry with the same name
// (last writer wins by name) and appending the rest in order.
func (r *Registry) Merge(entries []Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		replaced := false
		for i := range r.entries {
			if r.entries[i].Name == e.Name {
				r.entries[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			r.entries = append(r.entries, e)
		}
	}
	slog.Info("Capabilities merged", "added", len(entries), "total", len(r.entries))
}

// Snapshot returns a copy of the current entry list.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Find returns the entry with the given name, or false.
func (r *Registry) Find(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// TrackConnection records the live remote connection behind a room's merged
// capabilities so Disconnect can tear it down later.
func (r *Registry) TrackConnection(roomID string, conn io.Closer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.conns[roomID]; ok && old != conn {
		if err := old.Close(); err != nil {
			slog.Debug("Failed to close replaced capability connection", "room_id", roomID, "error", err)
		}
	}
	r.conns[roomID] = conn
}

// Disconnect tears down the remote connection owned by the room. It is
// idempotent and swallows close errors; merged entries stay in the registry.
func (r *Registry) Disconnect(roomID string) {
	r.mu.Lock()
	conn, ok := r.conns[roomID]
	delete(r.conns, roomID)
	r.mu.Unlock()
	if !ok {
		return
	}
	if err := conn.Close(); err != nil {
		slog.Debug("Capability connection close failed", "room_id", roomID, "error", err)
	}
}
