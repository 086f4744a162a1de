// Package store provides best-effort persistence for participant profiles
// and finished matches. Rooms themselves live only in memory; this archive is
// a write-behind record, not a source of truth.
package store

import (
	"context"
	"time"
)

// Profile is a participant's persisted contact record.
type Profile struct {
	ParticipantID string
	Name          string
	Contact       string
	LastRoomID    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MatchRecord archives one finished room.
type MatchRecord struct {
	RoomID       string
	ParticipantA string
	ParticipantB string
	Percent      int
	Action       string
	ChosenBy     string
	CreatedAt    time.Time
	ArchivedAt   time.Time
}

// Repository persists profiles and match history.
type Repository interface {
	// UpsertProfile creates or updates a participant profile.
	UpsertProfile(ctx context.Context, p *Profile) error

	// GetProfile retrieves a profile, or nil when absent.
	GetProfile(ctx context.Context, participantID string) (*Profile, error)

	// ArchiveMatch records a finished room.
	ArchiveMatch(ctx context.Context, rec *MatchRecord) error

	// RecentMatches lists the newest archived matches.
	RecentMatches(ctx context.Context, limit int) ([]*MatchRecord, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
