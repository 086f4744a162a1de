package portrait

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pairup-labs/pairup/internal/domain"
)

type stubGenerator struct {
	delay time.Duration
	art   *domain.Artwork
	err   error
	calls chan GenerateRequest
}

func (s *stubGenerator) Generate(ctx context.Context, req GenerateRequest) (*domain.Artwork, error) {
	if s.calls != nil {
		s.calls <- req
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.art, s.err
}

func testRoom() *domain.Room {
	return domain.NewRoom("room1", &domain.Participant{ID: "p1"})
}

func TestGateway_RequestResolvesJob(t *testing.T) {
	art := &domain.Artwork{Data: []byte("png"), MIME: "image/png"}
	g := NewGateway(&stubGenerator{art: art}, time.Second)
	room := testRoom()

	g.Request(room, GenerateRequest{RoomID: room.ID, Prompt: "a cozy dinner"})

	job := room.PortraitJob()
	if job == nil {
		t.Fatal("expected job handle on room")
	}
	got := job.Wait(context.Background(), time.Second)
	if got == nil || string(got.Data) != "png" {
		t.Fatalf("expected artwork, got %+v", got)
	}
	if g.State(room) != domain.AssetReady {
		t.Errorf("expected ready state, got %s", g.State(room))
	}
}

func TestGateway_FailureDegradesGracefully(t *testing.T) {
	g := NewGateway(&stubGenerator{err: errors.New("upstream down")}, time.Second)
	room := testRoom()

	g.Request(room, GenerateRequest{RoomID: room.ID})

	job := room.PortraitJob()
	if got := job.Wait(context.Background(), time.Second); got != nil {
		t.Fatalf("expected nil artwork on failure, got %+v", got)
	}
	if g.State(room) != domain.AssetFailed {
		t.Errorf("expected failed state, got %s", g.State(room))
	}
}

func TestGateway_RequestIsIdempotent(t *testing.T) {
	calls := make(chan GenerateRequest, 4)
	g := NewGateway(&stubGenerator{art: &domain.Artwork{}, calls: calls}, time.Second)
	room := testRoom()

	g.Request(room, GenerateRequest{RoomID: room.ID})
	first := room.PortraitJob()
	g.Request(room, GenerateRequest{RoomID: room.ID})

	if room.PortraitJob() != first {
		t.Error("second request must not replace the job handle")
	}
	<-calls
	select {
	case <-calls:
		t.Error("generator invoked twice for one room")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestGateway_StateNotStarted(t *testing.T) {
	g := NewGateway(&stubGenerator{}, time.Second)
	if got := g.State(testRoom()); got != domain.AssetNotStarted {
		t.Errorf("expected not_started, got %s", got)
	}
}

func TestJob_WaitTimesOut(t *testing.T) {
	g := NewGateway(&stubGenerator{delay: time.Second, art: &domain.Artwork{}}, 2*time.Second)
	room := testRoom()
	g.Request(room, GenerateRequest{RoomID: room.ID})

	start := time.Now()
	got := room.PortraitJob().Wait(context.Background(), 50*time.Millisecond)
	if got != nil {
		t.Error("expected nil artwork before generation finished")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("bounded wait took too long: %s", elapsed)
	}
}
