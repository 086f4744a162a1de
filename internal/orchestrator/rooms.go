package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pairup-labs/pairup/internal/domain"
	"github.com/pairup-labs/pairup/internal/portrait"
	"github.com/pairup-labs/pairup/internal/quiz"
	"github.com/pairup-labs/pairup/internal/store"
)

// ErrInvalidUpload indicates the selfie payload was rejected.
var ErrInvalidUpload = errors.New("invalid upload")

// maxSelfieBytes bounds selfie uploads.
const maxSelfieBytes = 8 << 20 // 8MB

// CreateRoom registers a room for its first participant.
func (o *Orchestrator) CreateRoom(participantID, name, contact string) *domain.Room {
	r := o.rooms.Create(&domain.Participant{ID: participantID, Name: name, Contact: contact})
	o.persistProfile(participantID, name, contact, r.ID)
	return r
}

// JoinRoom adds the second participant and announces them to the partner.
func (o *Orchestrator) JoinRoom(roomID, participantID, name, contact string) (*domain.Room, error) {
	r, err := o.rooms.Join(roomID, &domain.Participant{ID: participantID, Name: name, Contact: contact})
	if err != nil {
		return nil, err
	}
	o.persistProfile(participantID, name, contact, r.ID)
	o.hub.BroadcastExcept(r.ID, participantID, domain.Event{
		Type: domain.EventPartnerJoined,
		Who:  participantID,
		Name: name,
	})
	return r, nil
}

// SubmitAnswer records a quiz answer, pushes progress to the room, and
// triggers the reveal when both participants just completed.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, pctx Ctx, questionID, value string) error {
	r, err := o.rooms.Get(pctx.RoomID)
	if err != nil {
		return err
	}
	if err := quiz.Submit(r, pctx.ParticipantID, questionID, value); err != nil {
		return err
	}
	slog.Info("Answer recorded", "room_id", pctx.RoomID, "participant_id", pctx.ParticipantID, "question_id", questionID)

	o.hub.BroadcastToRoom(r.ID, domain.Event{
		Type:       domain.EventProgressUpdate,
		Completion: r.AnswerCounts(),
	})

	o.maybeReveal(ctx, r)
	return nil
}

// NextQuestion returns the participant's next unanswered question, or nil.
func (o *Orchestrator) NextQuestion(pctx Ctx) (*quiz.Question, error) {
	r, err := o.rooms.Get(pctx.RoomID)
	if err != nil {
		return nil, err
	}
	a, b := r.ParticipantsSnapshot()
	var p *domain.Participant
	switch {
	case a != nil && a.ID == pctx.ParticipantID:
		p = a
	case b != nil && b.ID == pctx.ParticipantID:
		p = b
	default:
		return nil, domain.ErrNotMember
	}
	return quiz.NextQuestion(p), nil
}

// UploadSelfie stores a participant photo and kicks off portrait generation
// the moment both photos are present. Generation runs concurrently with the
// quiz so the portrait is often ready before scoring completes.
func (o *Orchestrator) UploadSelfie(pctx Ctx, data []byte, mimeType string) error {
	if len(data) == 0 || len(data) > maxSelfieBytes {
		return fmt.Errorf("%w: %d bytes", ErrInvalidUpload, len(data))
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return fmt.Errorf("%w: unsupported type %s", ErrInvalidUpload, mimeType)
	}

	r, err := o.rooms.Get(pctx.RoomID)
	if err != nil {
		return err
	}
	if err := r.SetSelfie(pctx.ParticipantID, &domain.Selfie{Data: data, MIME: mimeType}); err != nil {
		return err
	}
	o.hub.BroadcastToRoom(r.ID, domain.Event{
		Type: domain.EventAssetUploaded,
		Who:  pctx.ParticipantID,
	})

	if selfieA, selfieB, ok := r.BothSelfies(); ok {
		o.portraits.Request(r, portrait.GenerateRequest{
			RoomID:  r.ID,
			SelfieA: selfieA,
			SelfieB: selfieB,
			Prompt:  portraitPrompt(r),
		})
	}
	return nil
}

// portraitPrompt composes the generation prompt from whatever quiz answers
// exist so far; the portrait starts before the quiz finishes.
func portraitPrompt(r *domain.Room) string {
	a, b := r.ParticipantsSnapshot()
	var b1 strings.Builder
	b1.WriteString("A warm illustrated portrait of a couple on a date night")
	if a != nil {
		if v := a.AnswerValue("q3_ambiance"); v != "" {
			b1.WriteString(", " + domain.NormalizeAnswer(v) + " atmosphere")
		}
	}
	if b != nil {
		if v := b.AnswerValue("q2_activity"); v != "" {
			b1.WriteString(", " + domain.NormalizeAnswer(v) + " in the background")
		}
	}
	b1.WriteString(".")
	return b1.String()
}

// persistProfile writes the profile asynchronously with its own timeout so a
// slow disk never blocks the inbound event.
func (o *Orchestrator) persistProfile(participantID, name, contact, roomID string) {
	if o.repo == nil {
		return
	}
	go func() {
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.repo.UpsertProfile(saveCtx, &store.Profile{
			ParticipantID: participantID,
			Name:          name,
			Contact:       contact,
			LastRoomID:    roomID,
		}); err != nil {
			slog.Warn("Failed to persist profile", "participant_id", participantID, "error", err)
		}
	}()
}
