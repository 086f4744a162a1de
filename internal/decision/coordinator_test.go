package decision

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/pairup-labs/pairup/internal/authz"
	"github.com/pairup-labs/pairup/internal/capability"
	"github.com/pairup-labs/pairup/internal/domain"
	"github.com/pairup-labs/pairup/internal/hub"
)

type fakeProvider struct {
	urlErr      error
	exchangeErr error
	creds       map[string]authz.Credentials
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{creds: make(map[string]authz.Credentials)}
}

func (f *fakeProvider) AuthorizationURL(_ context.Context, roomID string) (string, error) {
	if f.urlErr != nil {
		return "", f.urlErr
	}
	return "https://auth.example.com/consent?state=" + roomID, nil
}

func (f *fakeProvider) Exchange(_ context.Context, code, roomID string) (authz.Credentials, error) {
	if f.exchangeErr != nil {
		return authz.Credentials{}, f.exchangeErr
	}
	c := authz.Credentials{AccessToken: "tok-" + code}
	f.creds[roomID] = c
	return c, nil
}

func (f *fakeProvider) HasCredentials(roomID string) bool {
	_, ok := f.creds[roomID]
	return ok
}

func (f *fakeProvider) CredentialsFor(roomID string) (authz.Credentials, bool) {
	c, ok := f.creds[roomID]
	return c, ok
}

type fakeConnector struct {
	entries  []capability.Entry
	err      error
	connects int
}

func (f *fakeConnector) Connect(_ context.Context, roomID, category string, _ authz.Credentials) ([]capability.Entry, io.Closer, error) {
	f.connects++
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.entries, io.NopCloser(nil), nil
}

func testSetup() (*Coordinator, *fakeProvider, *fakeConnector, *capability.Registry, *domain.Room) {
	provider := newFakeProvider()
	connector := &fakeConnector{entries: []capability.Entry{{Name: "menu_search"}}}
	registry := capability.NewRegistry()
	coord := NewCoordinator(provider, connector, registry, hub.New())

	room := domain.NewRoom("ROOM1", &domain.Participant{ID: "p1", Name: "Alex"})
	if err := room.Join(&domain.Participant{ID: "p2", Name: "Sam"}); err != nil {
		panic(err)
	}
	return coord, provider, connector, registry, room
}

func TestPropose_FirstWriterWins(t *testing.T) {
	coord, _, _, _, room := testSetup()
	ctx := context.Background()

	if _, err := coord.Propose(ctx, room, "p1", "Alex", "movie_night", "movie please"); err != nil {
		t.Fatalf("first propose: %v", err)
	}

	_, err := coord.Propose(ctx, room, "p2", "Sam", "cook_together", "let's cook")
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Action != "movie_night" || conflict.ChosenBy != "p1" {
		t.Errorf("conflict should report the winner, got %+v", conflict)
	}
}

func TestPropose_UnknownAction(t *testing.T) {
	coord, _, _, _, room := testSetup()
	if _, err := coord.Propose(context.Background(), room, "p1", "Alex", "skydiving", "!"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
	if action, _ := room.ChosenAction(); action != "" {
		t.Errorf("unknown action must not lock, got %q", action)
	}
}

func TestPropose_NoAuthActionProceeds(t *testing.T) {
	coord, _, connector, _, room := testSetup()
	out, err := coord.Propose(context.Background(), room, "p1", "Alex", "movie_night", "movie")
	if err != nil {
		t.Fatal(err)
	}
	if out != OutcomeProceed {
		t.Errorf("expected proceed, got %v", out)
	}
	if connector.connects != 0 {
		t.Error("no-auth action must not connect capabilities")
	}
}

func TestPropose_DefersWhenUnauthorized(t *testing.T) {
	coord, _, _, _, room := testSetup()
	out, err := coord.Propose(context.Background(), room, "p1", "Alex", "order_in", "order dinner")
	if err != nil {
		t.Fatal(err)
	}
	if out != OutcomeDeferred {
		t.Errorf("expected deferred, got %v", out)
	}
	if !coord.HasPending(room.ID) {
		t.Error("expected a stashed pending request")
	}
}

func TestPropose_AuthorizedConnectsImmediately(t *testing.T) {
	coord, provider, connector, registry, room := testSetup()
	provider.creds[room.ID] = authz.Credentials{AccessToken: "t"}

	out, err := coord.Propose(context.Background(), room, "p1", "Alex", "order_in", "order dinner")
	if err != nil {
		t.Fatal(err)
	}
	if out != OutcomeProceed {
		t.Errorf("expected proceed with held credentials, got %v", out)
	}
	if connector.connects != 1 {
		t.Errorf("expected one capability connect, got %d", connector.connects)
	}
	if _, ok := registry.Find("menu_search"); !ok {
		t.Error("expected merged capability entry")
	}
}

func TestPropose_AuthURLFailureReportsWithoutStash(t *testing.T) {
	coord, provider, _, _, room := testSetup()
	provider.urlErr = errors.New("provider down")

	_, err := coord.Propose(context.Background(), room, "p1", "Alex", "order_in", "order")
	if !errors.Is(err, ErrAuthorizationFailed) {
		t.Fatalf("expected ErrAuthorizationFailed, got %v", err)
	}
	if coord.HasPending(room.ID) {
		t.Error("failed URL retrieval must not stash a pending request")
	}
	if action, _ := room.ChosenAction(); action != "" {
		t.Errorf("failed URL retrieval must not lock the action, got %q", action)
	}
}

func TestCompleteAuthorization_ReplaysStashOnce(t *testing.T) {
	coord, _, connector, registry, room := testSetup()
	ctx := context.Background()

	if _, err := coord.Propose(ctx, room, "p1", "Alex", "order_in", "order dinner"); err != nil {
		t.Fatal(err)
	}

	pending, err := coord.CompleteAuthorization(ctx, room, "code123")
	if err != nil {
		t.Fatal(err)
	}
	if pending == nil {
		t.Fatal("expected the stashed request back")
	}
	if pending.ParticipantID != "p1" || pending.Text != "order dinner" {
		t.Errorf("wrong stash returned: %+v", pending)
	}
	if connector.connects != 1 {
		t.Errorf("expected capability connect on completion, got %d", connector.connects)
	}
	if _, ok := registry.Find("menu_search"); !ok {
		t.Error("expected merged capabilities after completion")
	}

	// A second callback has nothing left to replay.
	again, err := coord.CompleteAuthorization(ctx, room, "code456")
	if err != nil {
		t.Fatal(err)
	}
	if again != nil {
		t.Error("second completion must be a no-op for replay")
	}
}

func TestCompleteAuthorization_NoStashIsNoop(t *testing.T) {
	coord, provider, connector, _, room := testSetup()

	pending, err := coord.CompleteAuthorization(context.Background(), room, "code123")
	if err != nil {
		t.Fatal(err)
	}
	if pending != nil {
		t.Error("expected nil pending without a stash")
	}
	if !provider.HasCredentials(room.ID) {
		t.Error("credentials should still be stored")
	}
	if connector.connects != 0 {
		t.Error("no-op completion must not connect capabilities")
	}
}

func TestCompleteAuthorization_ExchangeFailure(t *testing.T) {
	coord, provider, _, _, room := testSetup()
	provider.exchangeErr = errors.New("bad code")

	if _, err := coord.CompleteAuthorization(context.Background(), room, "nope"); err == nil {
		t.Error("expected exchange error")
	}
}

func TestPropose_RejectedWhilePending(t *testing.T) {
	coord, _, _, _, room := testSetup()
	ctx := context.Background()

	if _, err := coord.Propose(ctx, room, "p1", "Alex", "order_in", "order"); err != nil {
		t.Fatal(err)
	}
	_, err := coord.Propose(ctx, room, "p1", "Alex", "order_in", "order again")
	if !errors.Is(err, ErrAuthorizationPending) {
		t.Errorf("expected ErrAuthorizationPending, got %v", err)
	}
}

func TestClearPending(t *testing.T) {
	coord, _, _, _, room := testSetup()
	if _, err := coord.Propose(context.Background(), room, "p1", "Alex", "order_in", "order"); err != nil {
		t.Fatal(err)
	}
	coord.ClearPending(room.ID)
	if coord.HasPending(room.ID) {
		t.Error("expected stash cleared")
	}
}

func TestCapabilityConnectFailureDegrades(t *testing.T) {
	coord, provider, connector, registry, room := testSetup()
	provider.creds[room.ID] = authz.Credentials{AccessToken: "t"}
	connector.err = errors.New("mcp unreachable")

	out, err := coord.Propose(context.Background(), room, "p1", "Alex", "dine_out", "book us a table")
	if err != nil {
		t.Fatalf("connect failure must not fail the proposal: %v", err)
	}
	if out != OutcomeProceed {
		t.Errorf("expected proceed with built-ins only, got %v", out)
	}
	if got := len(registry.Snapshot()); got != 0 {
		t.Errorf("expected no merged entries, got %d", got)
	}
}
