// Package orchestrator composes the session store, quiz tracker, scoring
// engine, portrait gateway, joint-decision coordinator, capability registry,
// and connection fan-out into the per-event processing flow.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pairup-labs/pairup/internal/capability"
	"github.com/pairup-labs/pairup/internal/decision"
	"github.com/pairup-labs/pairup/internal/domain"
	"github.com/pairup-labs/pairup/internal/hub"
	"github.com/pairup-labs/pairup/internal/portrait"
	"github.com/pairup-labs/pairup/internal/responder"
	"github.com/pairup-labs/pairup/internal/room"
	"github.com/pairup-labs/pairup/internal/store"
)

// historyLimit caps the per-room conversation history handed to the
// responder.
const historyLimit = 20

// Ctx identifies the participant interaction an inbound event belongs to.
// It is threaded explicitly through every call on the processing path so
// concurrent events never share ambient state.
type Ctx struct {
	RoomID        string
	ParticipantID string
	Name          string
}

// Orchestrator routes inbound participant events through the workflow.
type Orchestrator struct {
	rooms     *room.Store
	hub       *hub.Hub
	coord     *decision.Coordinator
	portraits *portrait.Gateway
	registry  *capability.Registry
	resp      responder.Responder
	repo      store.Repository

	artworkWait time.Duration

	// Ephemeral room-scoped trackers. Cleared when a room's last connection
	// closes so a reconnect starts clean; the Room entity itself is not.
	mu        sync.Mutex
	revealed  map[string]bool
	histories map[string][]responder.Turn
}

// Config bundles orchestrator construction dependencies.
type Config struct {
	Rooms       *room.Store
	Hub         *hub.Hub
	Coordinator *decision.Coordinator
	Portraits   *portrait.Gateway
	Registry    *capability.Registry
	Responder   responder.Responder
	Repo        store.Repository
	ArtworkWait time.Duration
}

// New builds an orchestrator and installs the room-empty hook on the hub.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		rooms:       cfg.Rooms,
		hub:         cfg.Hub,
		coord:       cfg.Coordinator,
		portraits:   cfg.Portraits,
		registry:    cfg.Registry,
		resp:        cfg.Responder,
		repo:        cfg.Repo,
		artworkWait: cfg.ArtworkWait,
		revealed:    make(map[string]bool),
		histories:   make(map[string][]responder.Turn),
	}
	if o.artworkWait <= 0 {
		o.artworkWait = 5 * time.Second
	}
	cfg.Hub.SetOnRoomEmpty(o.onRoomEmpty)
	return o
}

// ConnectionOpened marks the room live again after a reconnect.
func (o *Orchestrator) ConnectionOpened(pctx Ctx) {
	r, err := o.rooms.Get(pctx.RoomID)
	if err != nil {
		return
	}
	r.MarkLive()
}

// onRoomEmpty clears room-scoped ephemeral trackers when the last connection
// closes. In-flight background work is abandoned, not canceled, and registry
// entries are not owned by the room.
func (o *Orchestrator) onRoomEmpty(roomID string) {
	o.mu.Lock()
	delete(o.revealed, roomID)
	delete(o.histories, roomID)
	o.mu.Unlock()

	o.coord.ClearPending(roomID)

	if r, err := o.rooms.Get(roomID); err == nil {
		r.MarkInert(time.Now())
	}
	slog.Info("Room went inert", "room_id", roomID)
}

// ArchiveRoom persists a finished room; wired as the reaper's archive hook.
func (o *Orchestrator) ArchiveRoom(ctx context.Context, r *domain.Room) {
	if o.repo == nil {
		return
	}
	a, b := r.Participants()
	if a == nil || b == nil {
		return
	}
	rec := &store.MatchRecord{
		RoomID:       r.ID,
		ParticipantA: a.ID,
		ParticipantB: b.ID,
		CreatedAt:    r.CreatedAt,
	}
	if res := r.Score(); res != nil {
		rec.Percent = res.Percent
	}
	rec.Action, rec.ChosenBy = r.ChosenAction()
	if err := o.repo.ArchiveMatch(ctx, rec); err != nil {
		slog.Warn("Failed to archive match", "room_id", r.ID, "error", err)
	}
	o.registry.Disconnect(r.ID)
}

func (o *Orchestrator) appendHistory(roomID string, turn responder.Turn) []responder.Turn {
	o.mu.Lock()
	defer o.mu.Unlock()
	h := append(o.histories[roomID], turn)
	if len(h) > historyLimit {
		h = h[len(h)-historyLimit:]
	}
	o.histories[roomID] = h
	out := make([]responder.Turn, len(h))
	copy(out, h)
	return out
}
