package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pairup-labs/pairup/internal/domain"
	"github.com/pairup-labs/pairup/internal/orchestrator"
	"github.com/pairup-labs/pairup/internal/quiz"
	"github.com/pairup-labs/pairup/internal/room"
)

// maxUploadBody bounds a selfie upload request body.
const maxUploadBody = 8 << 20

// RoomHandler handles room lifecycle endpoints.
type RoomHandler struct {
	*Handler
	orch *orchestrator.Orchestrator
}

// NewRoomHandler creates a new room handler.
func NewRoomHandler(base *Handler, orch *orchestrator.Orchestrator) *RoomHandler {
	return &RoomHandler{Handler: base, orch: orch}
}

// RegisterRoutes registers room routes.
func (h *RoomHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/rooms", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Post("/{roomID}/join", h.Join)
		r.Post("/{roomID}/answers", h.SubmitAnswer)
		r.Post("/{roomID}/selfie", h.UploadSelfie)
		r.Get("/{roomID}/question", h.NextQuestion)
	})
}

type participantRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

// Create opens a new room for its first participant.
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req participantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		Error(w, http.StatusBadRequest, "name is required")
		return
	}

	participantID := uuid.NewString()
	rm := h.orch.CreateRoom(participantID, strings.TrimSpace(req.Name), strings.TrimSpace(req.Contact))
	slog.Info("Room created", "room_id", rm.ID, "participant_id", participantID)

	JSON(w, http.StatusCreated, map[string]interface{}{
		"room_id":        rm.ID,
		"participant_id": participantID,
		"questions":      quiz.Questions,
	})
}

// Join adds the second participant to an existing room.
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	var req participantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		Error(w, http.StatusBadRequest, "name is required")
		return
	}

	participantID := uuid.NewString()
	rm, err := h.orch.JoinRoom(roomID, participantID, strings.TrimSpace(req.Name), strings.TrimSpace(req.Contact))
	if err != nil {
		writeJoinError(w, roomID, err)
		return
	}

	partnerName := ""
	if p := rm.Partner(participantID); p != nil {
		partnerName = p.Name
	}
	slog.Info("Room joined", "room_id", roomID, "participant_id", participantID)

	JSON(w, http.StatusOK, map[string]interface{}{
		"room_id":        rm.ID,
		"participant_id": participantID,
		"partner_name":   partnerName,
		"questions":      quiz.Questions,
	})
}

// writeJoinError maps a join failure to its HTTP status.
func writeJoinError(w http.ResponseWriter, roomID string, err error) {
	switch {
	case errors.Is(err, room.ErrNotFound):
		Error(w, http.StatusNotFound, "room not found")
	case errors.Is(err, domain.ErrRoomFull):
		Error(w, http.StatusConflict, "room is full")
	case errors.Is(err, domain.ErrAlreadyJoined):
		Error(w, http.StatusConflict, "already in this room")
	default:
		slog.Error("Failed to join room", "room_id", roomID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to join room")
	}
}

type answerRequest struct {
	ParticipantID string `json:"participant_id"`
	QuestionID    string `json:"question_id"`
	Value         string `json:"value"`
}

// SubmitAnswer records a quiz answer over plain HTTP, mirroring the
// websocket answer frame for clients without a live connection.
func (h *RoomHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pctx := orchestrator.Ctx{RoomID: roomID, ParticipantID: req.ParticipantID}
	err := h.orch.SubmitAnswer(r.Context(), pctx, req.QuestionID, req.Value)
	if err != nil {
		switch {
		case errors.Is(err, room.ErrNotFound):
			Error(w, http.StatusNotFound, "room not found")
		case errors.Is(err, domain.ErrNotMember):
			Error(w, http.StatusForbidden, "not a room member")
		case errors.Is(err, quiz.ErrUnknownQuestion):
			Error(w, http.StatusBadRequest, "unknown question")
		case errors.Is(err, domain.ErrDuplicateAnswer):
			payload := map[string]string{"error": "question already answered"}
			var dup *domain.DuplicateAnswerError
			if errors.As(err, &dup) {
				payload["question_id"] = dup.QuestionID
				payload["value"] = dup.Value
			}
			JSON(w, http.StatusConflict, payload)
		default:
			slog.Error("Failed to record answer", "room_id", roomID, "error", err)
			Error(w, http.StatusInternalServerError, "failed to record answer")
		}
		return
	}

	JSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// NextQuestion returns the participant's next unanswered question.
func (h *RoomHandler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	participantID := r.URL.Query().Get("participant_id")

	q, err := h.orch.NextQuestion(orchestrator.Ctx{RoomID: roomID, ParticipantID: participantID})
	if err != nil {
		switch {
		case errors.Is(err, room.ErrNotFound):
			Error(w, http.StatusNotFound, "room not found")
		case errors.Is(err, domain.ErrNotMember):
			Error(w, http.StatusForbidden, "not a room member")
		default:
			Error(w, http.StatusInternalServerError, "failed to load question")
		}
		return
	}
	if q == nil {
		JSON(w, http.StatusOK, map[string]interface{}{"done": true})
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"question": q})
}

// UploadSelfie accepts a raw image body for the participant's photo.
func (h *RoomHandler) UploadSelfie(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	participantID := r.URL.Query().Get("participant_id")

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBody+1))
	if err != nil {
		Error(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	pctx := orchestrator.Ctx{RoomID: roomID, ParticipantID: participantID}
	err = h.orch.UploadSelfie(pctx, data, r.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, room.ErrNotFound):
			Error(w, http.StatusNotFound, "room not found")
		case errors.Is(err, domain.ErrNotMember):
			Error(w, http.StatusForbidden, "not a room member")
		case errors.Is(err, orchestrator.ErrInvalidUpload):
			Error(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("Failed to store selfie", "room_id", roomID, "error", err)
			Error(w, http.StatusInternalServerError, "failed to store selfie")
		}
		return
	}

	JSON(w, http.StatusOK, map[string]string{"status": "uploaded"})
}
