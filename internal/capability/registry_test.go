package capability

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

func entry(name, scope, result string) Entry {
	return Entry{
		Name:        name,
		Description: "test " + name,
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Scope:       scope,
		Invoke: func(ctx context.Context, args map[string]any) (string, error) {
			return result, nil
		},
	}
}

func TestRegistry_MergeReplacesByName(t *testing.T) {
	r := NewRegistry()
	r.Merge([]Entry{entry("x", "room1", "v1")})
	r.Merge([]Entry{entry("x", "room2", "v2")})

	snap := r.Snapshot()
	count := 0
	for _, e := range snap {
		if e.Name == "x" {
			count++
			out, err := e.Invoke(context.Background(), nil)
			if err != nil {
				t.Fatal(err)
			}
			if out != "v2" {
				t.Errorf("expected replacement contract v2, got %q", out)
			}
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one entry named x, got %d", count)
	}
}

func TestRegistry_MergeAppendsNewNames(t *testing.T) {
	r := NewRegistry()
	r.Merge([]Entry{entry("a", "room1", "1"), entry("b", "room1", "2")})
	r.Merge([]Entry{entry("c", "room2", "3")})

	if got := len(r.Snapshot()); got != 3 {
		t.Errorf("expected 3 entries, got %d", got)
	}
}

func TestRegistry_SnapshotIsCopy(t *testing.T) {
	r := NewRegistry()
	r.Merge([]Entry{entry("a", "room1", "1")})
	snap := r.Snapshot()
	snap[0].Name = "mutated"

	if _, ok := r.Find("a"); !ok {
		t.Error("mutating a snapshot must not affect the registry")
	}
}

type fakeCloser struct {
	mu     sync.Mutex
	closed int
	err    error
}

func (f *fakeCloser) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return f.err
}

func TestRegistry_DisconnectIdempotentAndSwallowsErrors(t *testing.T) {
	r := NewRegistry()
	conn := &fakeCloser{err: errors.New("boom")}
	r.TrackConnection("room1", conn)

	r.Disconnect("room1")
	r.Disconnect("room1") // no tracked connection anymore; must be a no-op
	r.Disconnect("never-seen")

	if conn.closed != 1 {
		t.Errorf("expected exactly one close, got %d", conn.closed)
	}
}

func TestRegistry_DisconnectKeepsEntries(t *testing.T) {
	r := NewRegistry()
	r.Merge([]Entry{entry("a", "room1", "1")})
	r.TrackConnection("room1", &fakeCloser{})

	r.Disconnect("room1")
	if got := len(r.Snapshot()); got != 1 {
		t.Errorf("entries must outlive the room connection, got %d", got)
	}
}

func TestRegistry_TrackConnectionReplacesOld(t *testing.T) {
	r := NewRegistry()
	first := &fakeCloser{}
	second := &fakeCloser{}
	r.TrackConnection("room1", first)
	r.TrackConnection("room1", second)

	if first.closed != 1 {
		t.Errorf("replaced connection should be closed, got %d closes", first.closed)
	}
	if second.closed != 0 {
		t.Errorf("new connection should stay open, got %d closes", second.closed)
	}
}

func TestRegistry_ConcurrentMerge(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Merge([]Entry{entry("shared", "roomX", "v")})
			r.Snapshot()
		}()
	}
	wg.Wait()

	count := 0
	for _, e := range r.Snapshot() {
		if e.Name == "shared" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected one entry after concurrent merges, got %d", count)
	}
}
