package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soundtech/meeting-backend/internal/models"
	"github.com/soundtech/meeting-backend/pkg/apperr"
)

const pgUniqueViolation = "23505"

// Postgres implements Store on a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a connected, migrated pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// CreateRoom inserts a room.
func (p *Postgres) CreateRoom(ctx context.Context, room *models.Room) error {
	const q = `INSERT INTO rooms (id, name, created_at, status) VALUES ($1, $2, $3, $4)`
	if _, err := p.pool.Exec(ctx, q, room.ID, room.Name, room.CreatedAt, room.Status); err != nil {
		return apperr.Storage("failed to create room", err)
	}
	return nil
}

// GetRoom returns a room by ID.
func (p *Postgres) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	const q = `SELECT id, name, created_at, status FROM rooms WHERE id = $1`
	var room models.Room
	err := p.pool.QueryRow(ctx, q, id).Scan(&room.ID, &room.Name, &room.CreatedAt, &room.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("room not found")
	}
	if err != nil {
		return nil, apperr.Storage("failed to load room", err)
	}
	return &room, nil
}

// CreateRecording inserts a recording row.
func (p *Postgres) CreateRecording(ctx context.Context, rec *models.Recording) error {
	const q = `INSERT INTO recordings (` + recordingColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := p.pool.Exec(ctx, q, rec.ID, rec.RoomID, rec.FilePath, rec.StartTime, rec.EndTime, rec.Status)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == activeRecordingIndex {
			return apperr.Conflict("recording already in progress")
		}
		return apperr.Storage("failed to create recording", err)
	}
	return nil
}

// GetRecording returns a recording by ID.
func (p *Postgres) GetRecording(ctx context.Context, id string) (*models.Recording, error) {
	const q = `SELECT ` + recordingColumns + ` FROM recordings WHERE id = $1`
	var rec models.Recording
	err := p.pool.QueryRow(ctx, q, id).Scan(&rec.ID, &rec.RoomID, &rec.FilePath, &rec.StartTime, &rec.EndTime, &rec.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("recording not found")
	}
	if err != nil {
		return nil, apperr.Storage("failed to load recording", err)
	}
	return &rec, nil
}

// FindActiveRecording returns the room's active recording if any.
func (p *Postgres) FindActiveRecording(ctx context.Context, roomID string) (*models.Recording, error) {
	const q = `SELECT ` + recordingColumns + ` FROM recordings WHERE room_id = $1 AND status = $2 LIMIT 1`
	var rec models.Recording
	err := p.pool.QueryRow(ctx, q, roomID, models.RecordingStatusRecording).
		Scan(&rec.ID, &rec.RoomID, &rec.FilePath, &rec.StartTime, &rec.EndTime, &rec.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("failed to load active recording", err)
	}
	return &rec, nil
}

// StopRecording sets end_time and status = stopped on an active recording.
func (p *Postgres) StopRecording(ctx context.Context, id string, endTime time.Time) (bool, error) {
	const q = `UPDATE recordings SET end_time = $1, status = $2 WHERE id = $3 AND status = $4`
	tag, err := p.pool.Exec(ctx, q, endTime, models.RecordingStatusStopped, id, models.RecordingStatusRecording)
	if err != nil {
		return false, apperr.Storage("failed to stop recording", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListRecordings returns a page of recordings joined with their room names.
func (p *Postgres) ListRecordings(ctx context.Context, limit, offset int) ([]models.RecordingListing, error) {
	const q = `SELECT r.id, r.room_id, r.file_path, r.start_time, r.end_time, r.status, COALESCE(rm.name, '')
		FROM recordings r
		LEFT JOIN rooms rm ON r.room_id = rm.id
		ORDER BY r.start_time DESC NULLS LAST, r.id DESC
		LIMIT $1 OFFSET $2`
	rows, err := p.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, apperr.Storage("failed to list recordings", err)
	}
	defer rows.Close()

	var list []models.RecordingListing
	for rows.Next() {
		var item models.RecordingListing
		if err := rows.Scan(&item.ID, &item.RoomID, &item.FilePath, &item.StartTime, &item.EndTime, &item.Status, &item.RoomName); err != nil {
			return nil, apperr.Storage("failed to list recordings", err)
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("failed to list recordings", err)
	}
	return list, nil
}

// DeleteRecording removes a recording row.
func (p *Postgres) DeleteRecording(ctx context.Context, id string) (bool, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM recordings WHERE id = $1`, id)
	if err != nil {
		return false, apperr.Storage("failed to delete recording", err)
	}
	return tag.RowsAffected() > 0, nil
}
