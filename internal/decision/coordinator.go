// Package decision enforces the first-writer-wins joint action lock and the
// deferred-authorization handshake that may pause a chosen action until an
// external OAuth flow completes.
package decision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pairup-labs/pairup/internal/authz"
	"github.com/pairup-labs/pairup/internal/capability"
	"github.com/pairup-labs/pairup/internal/domain"
	"github.com/pairup-labs/pairup/internal/hub"
)

var (
	// ErrUnknownAction indicates the proposed action key is not in the set.
	ErrUnknownAction = errors.New("unknown action")
	// ErrAuthorizationPending indicates a deferred request is already stashed
	// for the room. A second attempt is rejected rather than overwriting it.
	ErrAuthorizationPending = errors.New("authorization already pending for room")
	// ErrAuthorizationFailed indicates the provider produced no URL.
	ErrAuthorizationFailed = errors.New("authorization unavailable")
)

// PendingRequest is the single-slot stash for a message deferred until the
// room's authorization completes.
type PendingRequest struct {
	ParticipantID string
	Name          string
	Text          string
}

// Outcome reports how a proposal was handled.
type Outcome int

const (
	// OutcomeProceed means the action locked and processing may continue.
	OutcomeProceed Outcome = iota
	// OutcomeDeferred means the action locked but processing waits for
	// authorization.
	OutcomeDeferred
)

// Coordinator drives joint-action proposals for all rooms.
type Coordinator struct {
	provider  authz.Provider
	connector capability.Connector
	registry  *capability.Registry
	hub       *hub.Hub

	mu      sync.Mutex
	pending map[string]*PendingRequest
}

// NewCoordinator builds a coordinator.
func NewCoordinator(provider authz.Provider, connector capability.Connector, registry *capability.Registry, h *hub.Hub) *Coordinator {
	return &Coordinator{
		provider:  provider,
		connector: connector,
		registry:  registry,
		hub:       h,
		pending:   make(map[string]*PendingRequest),
	}
}

// Propose attempts to lock the joint action for the room. On success it
// announces the choice to both participants and either clears the message to
// continue through normal processing (OutcomeProceed) or stashes it until
// authorization completes (OutcomeDeferred).
//
// A rejected proposal returns *domain.ConflictError carrying the winning
// value so the caller can tell the client to proceed with that choice.
func (c *Coordinator) Propose(ctx context.Context, room *domain.Room, participantID, name, actionKey, text string) (Outcome, error) {
	action, ok := ActionByKey(actionKey)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAction, actionKey)
	}

	c.mu.Lock()
	_, hasPending := c.pending[room.ID]
	c.mu.Unlock()
	if hasPending {
		return 0, ErrAuthorizationPending
	}

	// When authorization is needed, resolve the consent URL before locking
	// the action: a provider failure must abort the attempt without leaving
	// the room committed to an action it cannot carry out.
	var creds authz.Credentials
	var hasCreds bool
	var authURL string
	if action.RequiresAuth {
		if c.provider == nil {
			return 0, fmt.Errorf("%w: no provider configured", ErrAuthorizationFailed)
		}
		creds, hasCreds = c.provider.CredentialsFor(room.ID)
		if !hasCreds {
			url, err := c.provider.AuthorizationURL(ctx, room.ID)
			if err != nil {
				slog.Error("Authorization URL unavailable", "room_id", room.ID, "error", err)
				return 0, fmt.Errorf("%w: %v", ErrAuthorizationFailed, err)
			}
			authURL = url
		}
	}

	if err := room.Choose(action.Key, participantID); err != nil {
		return 0, err
	}
	slog.Info("Joint action locked", "room_id", room.ID, "action", action.Key, "chosen_by", participantID)
	c.hub.BroadcastToRoom(room.ID, domain.Event{
		Type:     domain.EventActionChosen,
		Action:   action.Key,
		ChosenBy: participantID,
	})

	if !action.RequiresAuth {
		return OutcomeProceed, nil
	}
	if hasCreds {
		c.connectAndMerge(ctx, room, action.Key, creds)
		return OutcomeProceed, nil
	}

	c.mu.Lock()
	c.pending[room.ID] = &PendingRequest{ParticipantID: participantID, Name: name, Text: text}
	c.mu.Unlock()

	c.hub.BroadcastToRoom(room.ID, domain.Event{
		Type: domain.EventAuthorizationRequired,
		URL:  authURL,
	})
	return OutcomeDeferred, nil
}

// CompleteAuthorization handles the provider's out-of-band callback: it
// exchanges the code, connects the now-authorized capability source for the
// chosen action, and pops the stashed request for replay. When no stash
// exists the notification only stores credentials and returns nil.
func (c *Coordinator) CompleteAuthorization(ctx context.Context, room *domain.Room, code string) (*PendingRequest, error) {
	if c.provider == nil {
		return nil, ErrAuthorizationFailed
	}
	creds, err := c.provider.Exchange(ctx, code, room.ID)
	if err != nil {
		return nil, fmt.Errorf("complete authorization for room %s: %w", room.ID, err)
	}

	c.mu.Lock()
	pending := c.pending[room.ID]
	delete(c.pending, room.ID)
	c.mu.Unlock()

	if pending == nil {
		slog.Info("Authorization completed with no pending request", "room_id", room.ID)
		return nil, nil
	}

	action, _ := room.ChosenAction()
	c.connectAndMerge(ctx, room, action, creds)

	c.hub.BroadcastToRoom(room.ID, domain.Event{Type: domain.EventAuthorizationComplete})
	return pending, nil
}

// HasPending reports whether the room has a stashed deferred request.
func (c *Coordinator) HasPending(roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[roomID] != nil
}

// ClearPending drops the room's stash; used when the room's last connection
// closes so a later reconnect starts clean.
func (c *Coordinator) ClearPending(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, roomID)
}

// connectAndMerge discovers the provider's operations and merges them into
// the shared registry. Failures degrade to the built-in operation set.
func (c *Coordinator) connectAndMerge(ctx context.Context, room *domain.Room, actionKey string, creds authz.Credentials) {
	entries, conn, err := c.connector.Connect(ctx, room.ID, actionKey, creds)
	if err != nil {
		slog.Warn("Capability connect failed, continuing with built-ins", "room_id", room.ID, "action", actionKey, "error", err)
		return
	}
	c.registry.Merge(entries)
	c.registry.TrackConnection(room.ID, conn)
}
