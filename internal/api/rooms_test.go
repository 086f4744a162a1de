//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pairup-labs/pairup/internal/capability"
	"github.com/pairup-labs/pairup/internal/decision"
	"github.com/pairup-labs/pairup/internal/domain"
	"github.com/pairup-labs/pairup/internal/hub"
	"github.com/pairup-labs/pairup/internal/orchestrator"
	"github.com/pairup-labs/pairup/internal/portrait"
	"github.com/pairup-labs/pairup/internal/room"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	h := hub.New()
	reg := capability.NewRegistry()
	orch := orchestrator.New(orchestrator.Config{
		Rooms:       room.NewStore(),
		Hub:         h,
		Coordinator: decision.NewCoordinator(nil, nil, reg, h),
		Portraits:   portrait.NewGateway(nil, time.Second),
		Registry:    reg,
	})

	base := NewHandler("")
	r := chi.NewRouter()
	NewRoomHandler(base, orch).RegisterRoutes(r)
	NewAuthHandler(base, orch).RegisterRoutes(r)
	NewHealthHandler(nil).RegisterHealth(r)
	return r
}

func doJSON(t *testing.T, router chi.Router, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var decoded map[string]interface{}
	if rr.Body.Len() > 0 {
		if err := json.NewDecoder(rr.Body).Decode(&decoded); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rr, decoded
}

func createRoom(t *testing.T, router chi.Router, name string) (roomID, participantID string) {
	t.Helper()
	rr, resp := doJSON(t, router, http.MethodPost, "/api/rooms/", map[string]string{"name": name})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create room: status %d, body %s", rr.Code, rr.Body.String())
	}
	return resp["room_id"].(string), resp["participant_id"].(string)
}

func TestCreateRoom(t *testing.T) {
	router := newTestRouter(t)

	rr, resp := doJSON(t, router, http.MethodPost, "/api/rooms/", map[string]string{
		"name":    "Ada",
		"contact": "ada@example.com",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if resp["room_id"] == "" || resp["participant_id"] == "" {
		t.Errorf("missing identifiers in response: %v", resp)
	}
	questions, ok := resp["questions"].([]interface{})
	if !ok || len(questions) != 6 {
		t.Errorf("expected 6 questions in response, got %v", resp["questions"])
	}
}

func TestCreateRoom_MissingName(t *testing.T) {
	router := newTestRouter(t)

	rr, _ := doJSON(t, router, http.MethodPost, "/api/rooms/", map[string]string{"contact": "x@y.z"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestJoinRoom(t *testing.T) {
	router := newTestRouter(t)
	roomID, _ := createRoom(t, router, "Ada")

	rr, resp := doJSON(t, router, http.MethodPost, "/api/rooms/"+roomID+"/join", map[string]string{"name": "Ben"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if resp["partner_name"] != "Ada" {
		t.Errorf("partner_name = %v, want Ada", resp["partner_name"])
	}
}

func TestJoinRoom_NotFound(t *testing.T) {
	router := newTestRouter(t)

	rr, _ := doJSON(t, router, http.MethodPost, "/api/rooms/NOPE/join", map[string]string{"name": "Ben"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestJoinRoom_Full(t *testing.T) {
	router := newTestRouter(t)
	roomID, _ := createRoom(t, router, "Ada")

	if rr, _ := doJSON(t, router, http.MethodPost, "/api/rooms/"+roomID+"/join", map[string]string{"name": "Ben"}); rr.Code != http.StatusOK {
		t.Fatalf("second join failed: %d", rr.Code)
	}
	rr, _ := doJSON(t, router, http.MethodPost, "/api/rooms/"+roomID+"/join", map[string]string{"name": "Cleo"})
	if rr.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rr.Code)
	}
}

func TestSubmitAnswer(t *testing.T) {
	router := newTestRouter(t)
	roomID, pid := createRoom(t, router, "Ada")

	body := map[string]string{"participant_id": pid, "question_id": "q1_cuisine", "value": "Italian"}
	rr, _ := doJSON(t, router, http.MethodPost, "/api/rooms/"+roomID+"/answers", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	// Same question again is rejected, answers are immutable. The conflict
	// body carries the recorded value so clients can self-correct.
	body["value"] = "Thai"
	rr, resp := doJSON(t, router, http.MethodPost, "/api/rooms/"+roomID+"/answers", body)
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate answer status = %d, want 409", rr.Code)
	}
	if resp["question_id"] != "q1_cuisine" || resp["value"] != "Italian" {
		t.Errorf("conflict body must carry the recorded value, got %v", resp)
	}
}

func TestJoinErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown room", room.ErrNotFound, http.StatusNotFound},
		{"room full", domain.ErrRoomFull, http.StatusConflict},
		{"already joined", domain.ErrAlreadyJoined, http.StatusConflict},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeJoinError(rr, "ROOM1", tt.err)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestSubmitAnswer_UnknownQuestion(t *testing.T) {
	router := newTestRouter(t)
	roomID, pid := createRoom(t, router, "Ada")

	rr, _ := doJSON(t, router, http.MethodPost, "/api/rooms/"+roomID+"/answers", map[string]string{
		"participant_id": pid, "question_id": "q9_bogus", "value": "x",
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestSubmitAnswer_NonMember(t *testing.T) {
	router := newTestRouter(t)
	roomID, _ := createRoom(t, router, "Ada")

	rr, _ := doJSON(t, router, http.MethodPost, "/api/rooms/"+roomID+"/answers", map[string]string{
		"participant_id": "stranger", "question_id": "q1_cuisine", "value": "x",
	})
	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rr.Code)
	}
}

func TestNextQuestion(t *testing.T) {
	router := newTestRouter(t)
	roomID, pid := createRoom(t, router, "Ada")

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/"+roomID+"/question?participant_id="+pid, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "q1_cuisine") {
		t.Errorf("expected first question, got %s", rr.Body.String())
	}
}

func TestUploadSelfie(t *testing.T) {
	router := newTestRouter(t)
	roomID, pid := createRoom(t, router, "Ada")

	req := httptest.NewRequest(http.MethodPost, "/api/rooms/"+roomID+"/selfie?participant_id="+pid,
		bytes.NewReader([]byte{0x89, 0x50, 0x4E, 0x47}))
	req.Header.Set("Content-Type", "image/png")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
}

func TestUploadSelfie_BadContentType(t *testing.T) {
	router := newTestRouter(t)
	roomID, pid := createRoom(t, router, "Ada")

	req := httptest.NewRequest(http.MethodPost, "/api/rooms/"+roomID+"/selfie?participant_id="+pid,
		strings.NewReader("not an image"))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestAuthCallback_MissingParams(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHealth_NoDatabase(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "healthy") {
		t.Errorf("body = %s", rr.Body.String())
	}
}
