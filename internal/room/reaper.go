package room

import (
	"context"
	"log/slog"
	"time"

	"github.com/pairup-labs/pairup/internal/domain"
)

const reaperInterval = 5 * time.Minute

// ArchiveFunc persists a finished room before it is reaped. Failures are
// logged, not fatal: the room is deleted either way.
type ArchiveFunc func(ctx context.Context, r *domain.Room)

// StartReaper runs a background goroutine that periodically deletes rooms
// whose last live connection closed more than ttl ago.
func StartReaper(ctx context.Context, store *Store, ttl time.Duration, archive ArchiveFunc) {
	ticker := time.NewTicker(reaperInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Room reaper started", "interval", reaperInterval, "ttl", ttl)
		for {
			select {
			case <-ticker.C:
				reapInertRooms(ctx, store, ttl, archive)
			case <-ctx.Done():
				slog.Info("Room reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func reapInertRooms(ctx context.Context, store *Store, ttl time.Duration, archive ArchiveFunc) {
	cutoff := time.Now().Add(-ttl)
	expired := store.InertRooms(func(r *domain.Room) bool {
		since := r.InertSince()
		return !since.IsZero() && since.Before(cutoff)
	})
	if len(expired) == 0 {
		return
	}

	slog.Info("Room reaper found inert rooms", "count", len(expired))
	for _, r := range expired {
		if archive != nil {
			archive(ctx, r)
		}
		store.Delete(r.ID)
		slog.Info("Room reaped", "room_id", r.ID)
	}
}
