package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/soundtech/meeting-backend/internal/models"
	"github.com/soundtech/meeting-backend/pkg/apperr"
)

// timeLayout is fixed-width so TEXT ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const recordingColumns = `id, room_id, file_path, start_time, end_time, status`

// SQLite implements Store on database/sql with the modernc driver.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an open, migrated database.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateRoom inserts a room.
func (s *SQLite) CreateRoom(ctx context.Context, room *models.Room) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (id, name, created_at, status) VALUES (?, ?, ?, ?)`,
		room.ID, room.Name, formatTime(room.CreatedAt), room.Status)
	if err != nil {
		return apperr.Storage("failed to create room", err)
	}
	return nil
}

// GetRoom returns a room by ID.
func (s *SQLite) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	var (
		room    models.Room
		created string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, name, created_at, status FROM rooms WHERE id = ?`, id).
		Scan(&room.ID, &room.Name, &created, &room.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("room not found")
	}
	if err != nil {
		return nil, apperr.Storage("failed to load room", err)
	}
	room.CreatedAt, err = parseTime(created)
	if err != nil {
		return nil, apperr.Storage("failed to load room", err)
	}
	return &room, nil
}

// CreateRecording inserts a recording row.
func (s *SQLite) CreateRecording(ctx context.Context, rec *models.Recording) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings (`+recordingColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RoomID, rec.FilePath, nullableTime(rec.StartTime), nullableTime(rec.EndTime), rec.Status)
	if err != nil {
		if isActiveRecordingViolation(err) {
			return apperr.Conflict("recording already in progress")
		}
		return apperr.Storage("failed to create recording", err)
	}
	return nil
}

// GetRecording returns a recording by ID.
func (s *SQLite) GetRecording(ctx context.Context, id string) (*models.Recording, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("recording not found")
	}
	if err != nil {
		return nil, apperr.Storage("failed to load recording", err)
	}
	return rec, nil
}

// FindActiveRecording returns the room's active recording if any.
func (s *SQLite) FindActiveRecording(ctx context.Context, roomID string) (*models.Recording, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE room_id = ? AND status = ? LIMIT 1`,
		roomID, models.RecordingStatusRecording)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("failed to load active recording", err)
	}
	return rec, nil
}

// StopRecording sets end_time and status = stopped on an active recording.
func (s *SQLite) StopRecording(ctx context.Context, id string, endTime time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recordings SET end_time = ?, status = ? WHERE id = ? AND status = ?`,
		formatTime(endTime), models.RecordingStatusStopped, id, models.RecordingStatusRecording)
	if err != nil {
		return false, apperr.Storage("failed to stop recording", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Storage("failed to stop recording", err)
	}
	return n > 0, nil
}

// ListRecordings returns a page of recordings joined with their room names.
func (s *SQLite) ListRecordings(ctx context.Context, limit, offset int) ([]models.RecordingListing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.room_id, r.file_path, r.start_time, r.end_time, r.status, COALESCE(rm.name, '')
		 FROM recordings r
		 LEFT JOIN rooms rm ON r.room_id = rm.id
		 ORDER BY r.start_time DESC, r.id DESC
		 LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, apperr.Storage("failed to list recordings", err)
	}
	defer rows.Close()

	var list []models.RecordingListing
	for rows.Next() {
		var (
			item       models.RecordingListing
			start, end sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.RoomID, &item.FilePath, &start, &end, &item.Status, &item.RoomName); err != nil {
			return nil, apperr.Storage("failed to list recordings", err)
		}
		if item.StartTime, err = parseNullableTime(start); err != nil {
			return nil, apperr.Storage("failed to list recordings", err)
		}
		if item.EndTime, err = parseNullableTime(end); err != nil {
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
func (s *SQLite) DeleteRecording(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return false, apperr.Storage("failed to delete recording", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Storage("failed to delete recording", err)
	}
	return n > 0, nil
}

func scanRecording(row *sql.Row) (*models.Recording, error) {
	var (
		rec        models.Recording
		start, end sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.RoomID, &rec.FilePath, &start, &end, &rec.Status); err != nil {
		return nil, err
	}
	var err error
	if rec.StartTime, err = parseNullableTime(start); err != nil {
		return nil, err
	}
	if rec.EndTime, err = parseNullableTime(end); err != nil {
		return nil, err
	}
	return &rec, nil
}

func isActiveRecordingViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) || se.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return false
	}
	return strings.Contains(se.Error(), "recordings.room_id")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullableTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
