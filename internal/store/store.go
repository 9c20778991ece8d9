// Package store is the persistence gateway for rooms and recordings. It exposes
// entity-shaped operations and hides which relational database backs them.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/soundtech/meeting-backend/internal/models"
	"github.com/soundtech/meeting-backend/pkg/database"
)

// activeRecordingIndex is the partial unique index enforcing one active recording per room.
const activeRecordingIndex = "uq_recordings_active_room"

// Store persists rooms and recordings.
//
// Lookups of absent rows return an apperr.ErrNotFound error. CreateRecording returns
// apperr.ErrConflict when the room already has an active recording. All other database
// failures are apperr.ErrStorage.
type Store interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id string) (*models.Room, error)

	CreateRecording(ctx context.Context, rec *models.Recording) error
	GetRecording(ctx context.Context, id string) (*models.Recording, error)
	// FindActiveRecording returns nil, nil when the room has no active recording.
	FindActiveRecording(ctx context.Context, roomID string) (*models.Recording, error)
	// StopRecording moves an active recording to stopped. It reports false when no
	// active row with that id exists.
	StopRecording(ctx context.Context, id string, endTime time.Time) (bool, error)
	// ListRecordings returns one page ordered by start time, most recent first.
	ListRecordings(ctx context.Context, limit, offset int) ([]models.RecordingListing, error)
	// DeleteRecording reports false when the row did not exist.
	DeleteRecording(ctx context.Context, id string) (bool, error)

	Close() error
}

// Open connects to the database named by dsn and applies migrations.
// postgres:// and postgresql:// URLs select PostgreSQL; sqlite://path or a bare
// file path selects SQLite.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		pool, err := database.NewPostgresPool(ctx, dsn, logger)
		if err != nil {
			return nil, err
		}
		if err := database.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return NewPostgres(pool), nil
	default:
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return nil, fmt.Errorf("database location is empty")
		}
		db, err := database.OpenSQLite(ctx, path, logger)
		if err != nil {
			return nil, err
		}
		if err := database.MigrateSQLite(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return NewSQLite(db), nil
	}
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Postgres)(nil)
)
