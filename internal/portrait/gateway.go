// Package portrait runs background couple-portrait generation. Requests are
// fire-and-forget: the gateway resolves each room's job handle asynchronously
// while the quiz workflow continues, and the reveal performs a bounded wait.
package portrait

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pairup-labs/pairup/internal/domain"
)

// ErrNoGenerator indicates no backend is configured for portrait rendering.
var ErrNoGenerator = errors.New("no portrait generator configured")

// Generator produces a portrait image from the two selfies.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*domain.Artwork, error)
}

// GenerateRequest carries the raw inputs for one portrait.
type GenerateRequest struct {
	RoomID  string
	SelfieA *domain.Selfie
	SelfieB *domain.Selfie
	Prompt  string
}

// Gateway coordinates per-room generation jobs.
type Gateway struct {
	generator Generator
	timeout   time.Duration
}

// NewGateway builds a gateway around a generator backend.
func NewGateway(generator Generator, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Gateway{generator: generator, timeout: timeout}
}

// Request starts generation for the room unless a job is already attached.
// It updates the room's state to in-progress immediately and resolves the
// handle from a background goroutine. On failure the job becomes failed and
// consumers proceed without the artwork.
func (g *Gateway) Request(room *domain.Room, req GenerateRequest) {
	if room.PortraitJob() != nil {
		return
	}
	job := domain.NewPortraitJob()
	room.SetPortraitJob(job)
	if g.generator == nil {
		job.Fail(ErrNoGenerator)
		return
	}
	slog.Info("Portrait generation requested", "room_id", room.ID)

	go func() {
		// Detached from the requesting event: the job outlives the inbound
		// message that triggered it.
		ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
		defer cancel()

		art, err := g.generator.Generate(ctx, req)
		if err != nil {
			slog.Warn("Portrait generation failed", "room_id", room.ID, "error", err)
			job.Fail(err)
			return
		}
		slog.Info("Portrait ready", "room_id", room.ID, "bytes", len(art.Data))
		job.Complete(art)
	}()
}

// State returns the room's generation state.
func (g *Gateway) State(room *domain.Room) domain.AssetState {
	job := room.PortraitJob()
	if job == nil {
		return domain.AssetNotStarted
	}
	return job.State()
}
