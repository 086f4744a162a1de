package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pairup-labs/pairup/internal/decision"
	"github.com/pairup-labs/pairup/internal/domain"
)

// ChooseAction runs a participant's action pick through the joint-decision
// coordinator. When the pick requires authorization the accompanying text is
// stashed and replayed after the OAuth callback; otherwise it flows straight
// into normal message processing.
func (o *Orchestrator) ChooseAction(ctx context.Context, pctx Ctx, actionKey, text string) error {
	r, err := o.rooms.Get(pctx.RoomID)
	if err != nil {
		return err
	}
	if !r.IsMember(pctx.ParticipantID) {
		return domain.ErrNotMember
	}
	r.MarkLive()

	outcome, err := o.coord.Propose(ctx, r, pctx.ParticipantID, pctx.Name, actionKey, text)
	if err != nil {
		var conflict *domain.ConflictError
		switch {
		case errors.As(err, &conflict):
			o.hub.SendToParticipant(r.ID, pctx.ParticipantID, domain.ErrorEvent(
				fmt.Sprintf("Your partner already locked in %q. You're going with that.", conflict.Action)))
		case errors.Is(err, decision.ErrAuthorizationPending):
			o.hub.SendToParticipant(r.ID, pctx.ParticipantID, domain.ErrorEvent(
				"An authorization is already in progress. Finish it before picking again."))
		case errors.Is(err, decision.ErrUnknownAction):
			o.hub.SendToParticipant(r.ID, pctx.ParticipantID, domain.ErrorEvent(
				fmt.Sprintf("Unknown action %q.", actionKey)))
		default:
			o.hub.SendToParticipant(r.ID, pctx.ParticipantID, domain.ErrorEvent(
				"Couldn't start authorization. Try again."))
		}
		return err
	}

	if outcome == decision.OutcomeDeferred {
		slog.Info("Action deferred on authorization", "room_id", r.ID, "action", actionKey)
		return nil
	}
	if text != "" {
		o.processMessage(ctx, pctx, r, text)
	}
	return nil
}

// AuthorizationCallback finishes an OAuth flow and replays the stashed
// request, exactly once, through normal message processing.
func (o *Orchestrator) AuthorizationCallback(ctx context.Context, roomID, code string) error {
	r, err := o.rooms.Get(roomID)
	if err != nil {
		return err
	}

	pending, err := o.coord.CompleteAuthorization(ctx, r, code)
	if err != nil {
		o.hub.BroadcastToRoom(roomID, domain.ErrorEvent("Authorization failed. Pick the action again to retry."))
		return err
	}
	if pending == nil {
		// Credentials stored, nothing stashed to replay.
		return nil
	}

	pctx := Ctx{RoomID: roomID, ParticipantID: pending.ParticipantID, Name: pending.Name}
	if pending.Text != "" {
		o.processMessage(ctx, pctx, r, pending.Text)
	}
	return nil
}
