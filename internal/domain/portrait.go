package domain

import (
	"context"
	"sync"
	"time"
)

// AssetState tracks background portrait generation for a room.
type AssetState string

const (
	// AssetNotStarted means generation was never requested.
	AssetNotStarted AssetState = "not_started"
	// AssetInProgress means a generation request is in flight.
	AssetInProgress AssetState = "in_progress"
	// AssetReady means the portrait is available.
	AssetReady AssetState = "ready"
	// AssetFailed means generation failed; consumers proceed without it.
	AssetFailed AssetState = "failed"
)

// Artwork is a generated couple portrait.
type Artwork struct {
	Data []byte `json:"-"`
	MIME string `json:"mime"`
}

// PortraitJob is the future-like handle for one room's background portrait
// generation. The reveal transition performs a bounded wait on it instead of
// relying on unstructured background mutation.
type PortraitJob struct {
	mu      sync.Mutex
	state   AssetState
	artwork *Artwork
	err     error
	done    chan struct{}
}

// NewPortraitJob returns an in-progress job handle.
func NewPortraitJob() *PortraitJob {
	return &PortraitJob{
		state: AssetInProgress,
		done:  make(chan struct{}),
	}
}

// Complete resolves the job with the generated artwork.
func (j *PortraitJob) Complete(art *Artwork) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != AssetInProgress {
		return
	}
	j.state = AssetReady
	j.artwork = art
	close(j.done)
}

// Fail resolves the job with an error.
func (j *PortraitJob) Fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != AssetInProgress {
		return
	}
	j.state = AssetFailed
	j.err = err
	close(j.done)
}

// State returns the current job state.
func (j *PortraitJob) State() AssetState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Result returns the artwork and error after resolution.
func (j *PortraitJob) Result() (*Artwork, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.artwork, j.err
}

// Wait blocks until the job resolves, the timeout elapses, or the context is
// canceled. It returns the artwork when the job completed successfully within
// the bound, and nil otherwise.
func (j *PortraitJob) Wait(ctx context.Context, timeout time.Duration) *Artwork {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-j.done:
		art, _ := j.Result()
		return art
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return nil
	}
}
