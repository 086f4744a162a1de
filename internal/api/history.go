package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pairup-labs/pairup/internal/store"
)

// HistoryHandler serves read-only views over the persisted archive.
type HistoryHandler struct {
	repo store.Repository
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(repo store.Repository) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

// RegisterRoutes registers archive read routes.
func (h *HistoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/matches", h.RecentMatches)
	r.Get("/api/participants/{participantID}/profile", h.Profile)
}

type matchView struct {
	RoomID     string    `json:"room_id"`
	Percent    int       `json:"percent"`
	Action     string    `json:"action,omitempty"`
	ChosenBy   string    `json:"chosen_by,omitempty"`
	ArchivedAt time.Time `json:"archived_at"`
}

// RecentMatches lists the newest archived matches.
func (h *HistoryHandler) RecentMatches(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		Error(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	records, err := h.repo.RecentMatches(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list recent matches", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list matches")
		return
	}

	views := make([]matchView, 0, len(records))
	for _, rec := range records {
		views = append(views, matchView{
			RoomID:     rec.RoomID,
			Percent:    rec.Percent,
			Action:     rec.Action,
			ChosenBy:   rec.ChosenBy,
			ArchivedAt: rec.ArchivedAt,
		})
	}
	JSON(w, http.StatusOK, map[string]interface{}{"matches": views})
}

// Profile returns a participant's persisted contact record.
func (h *HistoryHandler) Profile(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		Error(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}

	participantID := chi.URLParam(r, "participantID")
	profile, err := h.repo.GetProfile(r.Context(), participantID)
	if err != nil {
		slog.Error("Failed to load profile", "participant_id", participantID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if profile == nil {
		Error(w, http.StatusNotFound, "profile not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"participant_id": profile.ParticipantID,
		"name":           profile.Name,
		"contact":        profile.Contact,
		"last_room_id":   profile.LastRoomID,
		"updated_at":     profile.UpdatedAt,
	})
}
