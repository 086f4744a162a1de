package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pairup-labs/pairup/internal/shared"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for better concurrency between handlers and the reaper.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS profiles (
		participant_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		contact TEXT,
		last_room_id TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS matches (
		room_id TEXT PRIMARY KEY,
		participant_a TEXT NOT NULL,
		participant_b TEXT NOT NULL,
		percent INTEGER NOT NULL,
		action TEXT,
		chosen_by TEXT,
		created_at INTEGER NOT NULL,
		archived_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_matches_archived ON matches(archived_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertProfile creates or updates a participant profile.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, p *Profile) error {
	query := `
	INSERT INTO profiles (participant_id, name, contact, last_room_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(participant_id) DO UPDATE SET
		name = excluded.name,
		contact = excluded.contact,
		last_room_id = excluded.last_room_id,
		updated_at = excluded.updated_at`

	now := time.Now()
	created := p.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err := s.db.ExecContext(ctx, query,
		p.ParticipantID, p.Name, p.Contact, p.LastRoomID,
		created.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile, or nil when absent.
func (s *SQLiteStore) GetProfile(ctx context.Context, participantID string) (*Profile, error) {
	query := `
		SELECT participant_id, name, contact, last_room_id, created_at, updated_at
		FROM profiles WHERE participant_id = ?`

	row := s.db.QueryRowContext(ctx, query, participantID)

	var p Profile
	var contact, lastRoom sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(&p.ParticipantID, &p.Name, &contact, &lastRoom, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}

	p.Contact = contact.String
	p.LastRoomID = lastRoom.String
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)
	return &p, nil
}

// ArchiveMatch records a finished room. Re-archiving the same room updates
// the row.
func (s *SQLiteStore) ArchiveMatch(ctx context.Context, rec *MatchRecord) error {
	query := `
	INSERT INTO matches (room_id, participant_a, participant_b, percent, action, chosen_by, created_at, archived_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(room_id) DO UPDATE SET
		percent = excluded.percent,
		action = excluded.action,
		chosen_by = excluded.chosen_by,
		archived_at = excluded.archived_at`

	archived := rec.ArchivedAt
	if archived.IsZero() {
		archived = time.Now()
	}

	// The reaper archives while handlers write profiles; retry on
	// SQLITE_BUSY with exponential backoff.
	const maxRetries = 3
	baseDelay := 50 * time.Millisecond
	var err error
	for i := 0; i < maxRetries; i++ {
		_, err = s.db.ExecContext(ctx, query,
			rec.RoomID, rec.ParticipantA, rec.ParticipantB, rec.Percent,
			rec.Action, rec.ChosenBy, rec.CreatedAt.Unix(), archived.Unix(),
		)
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("Database locked during match archive, retrying", "room_id", rec.RoomID, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("archive match: %w", err)
}

// RecentMatches lists the newest archived matches.
func (s *SQLiteStore) RecentMatches(ctx context.Context, limit int) ([]*MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT room_id, participant_a, participant_b, percent, action, chosen_by, created_at, archived_at
		FROM matches ORDER BY archived_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent matches: %w", err)
	}
	defer rows.Close()

	var out []*MatchRecord
	for rows.Next() {
		var rec MatchRecord
		var action, chosenBy sql.NullString
		var createdAt, archivedAt int64
		if err := rows.Scan(&rec.RoomID, &rec.ParticipantA, &rec.ParticipantB,
			&rec.Percent, &action, &chosenBy, &createdAt, &archivedAt); err != nil {
			return nil, fmt.Errorf("scan match row: %w", err)
		}
		rec.Action = action.String
		rec.ChosenBy = chosenBy.String
		rec.CreatedAt = time.Unix(createdAt, 0)
		rec.ArchivedAt = time.Unix(archivedAt, 0)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
