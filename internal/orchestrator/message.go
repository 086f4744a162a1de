package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pairup-labs/pairup/internal/domain"
	"github.com/pairup-labs/pairup/internal/responder"
)

// HandleMessage processes a free-form chat message from a participant.
func (o *Orchestrator) HandleMessage(ctx context.Context, pctx Ctx, text string) error {
	r, err := o.rooms.Get(pctx.RoomID)
	if err != nil {
		return err
	}
	if !r.IsMember(pctx.ParticipantID) {
		return domain.ErrNotMember
	}
	r.MarkLive()
	o.processMessage(ctx, pctx, r, text)
	return nil
}

// processMessage runs one responder round trip and delivers the reply.
// Replies stay private to the sender until the room locks a joint action;
// after the lock both participants see the whole exchange.
func (o *Orchestrator) processMessage(ctx context.Context, pctx Ctx, r *domain.Room, text string) {
	history := o.appendHistory(r.ID, responder.Turn{
		Role:    "user",
		Content: fmt.Sprintf("%s: %s", pctx.Name, text),
	})

	reply := o.generateReply(ctx, pctx, r, text, history)
	o.appendHistory(r.ID, responder.Turn{Role: "assistant", Content: reply})

	ev := domain.Event{Type: domain.EventReply, Text: reply, Who: pctx.ParticipantID}
	if action, _ := r.ChosenAction(); action != "" {
		o.hub.BroadcastToRoom(r.ID, ev)
		return
	}
	o.hub.SendToParticipant(r.ID, pctx.ParticipantID, ev)
}

func (o *Orchestrator) generateReply(ctx context.Context, pctx Ctx, r *domain.Room, text string, history []responder.Turn) string {
	if o.resp == nil {
		return "The planning assistant is offline right now. Keep answering together and try again in a bit."
	}

	entries := o.registry.Snapshot()
	tools := make([]responder.ToolDecl, 0, len(entries))
	for _, e := range entries {
		tools = append(tools, responder.ToolDecl{
			Name:        e.Name,
			Description: e.Description,
			InputSchema: e.InputSchema,
		})
	}

	rep, err := o.resp.Reply(ctx, responder.Request{
		RoomID:        r.ID,
		ParticipantID: pctx.ParticipantID,
		Message:       text,
		SystemNote:    o.systemNote(r),
		History:       history,
		Tools:         tools,
		InvokeTool:    o.invokeCapability,
	})
	if err != nil {
		slog.Error("Responder reply failed", "room_id", r.ID, "error", err)
		return "I couldn't come up with a reply just now. Try rephrasing?"
	}
	if len(rep.ToolsUsed) > 0 {
		slog.Info("Responder used capabilities", "room_id", r.ID, "tools", rep.ToolsUsed)
	}
	return rep.Text
}

// systemNote summarizes room state so the responder stays grounded without
// holding its own session memory.
func (o *Orchestrator) systemNote(r *domain.Room) string {
	var parts []string
	parts = append(parts, "You are a warm, concise date-night planning assistant for a couple.")
	a, b := r.Participants()
	if a != nil && b != nil {
		parts = append(parts, fmt.Sprintf("Participants: %s and %s.", a.Name, b.Name))
	}
	if res := r.Score(); res != nil {
		parts = append(parts, fmt.Sprintf("Their compatibility score is %d%%.", res.Percent))
	}
	if action, chosenBy := r.ChosenAction(); action != "" {
		parts = append(parts, fmt.Sprintf("They committed to %q (picked by %s); help them carry it out.", action, chosenBy))
	}
	return strings.Join(parts, " ")
}

// invokeCapability resolves a responder tool call against the registry.
func (o *Orchestrator) invokeCapability(ctx context.Context, name string, args map[string]any) (string, error) {
	entry, ok := o.registry.Find(name)
	if !ok {
		return "", fmt.Errorf("unknown capability %q", name)
	}
	return entry.Invoke(ctx, args)
}
