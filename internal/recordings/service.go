// Package recordings runs the per-room recording state machine and keeps
// recording rows and their media blobs in step.
package recordings

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soundtech/meeting-backend/internal/models"
	"github.com/soundtech/meeting-backend/internal/store"
	"github.com/soundtech/meeting-backend/pkg/apperr"
	"github.com/soundtech/meeting-backend/pkg/storage"
)

// Room events published by the manager.
const (
	EventRecordingStarted  = "recording_started"
	EventRecordingStopped  = "recording_stopped"
	EventRecordingUploaded = "recording_uploaded"
	EventRecordingDeleted  = "recording_deleted"
)

// UnknownRoomID is recorded for uploads that do not name a room.
const UnknownRoomID = "unknown"

// DefaultPageSize is the number of rows fetched per list query.
const DefaultPageSize = 100

// Events receives recording state changes.
type Events interface {
	RecordingChanged(ctx context.Context, event string, rec *models.Recording)
}

// Reclaimer takes blobs that could not be deleted inline.
type Reclaimer interface {
	EnqueueBlobReclaim(ctx context.Context, recordingID, key string) error
}

// Manager is the recording session manager.
type Manager struct {
	store      store.Store
	media      storage.MediaStore
	containers storage.Containers
	locks      *roomLocks
	events     Events
	reclaim    Reclaimer
	logger     *zap.Logger
	now        func() time.Time
	pageSize   int
}

// NewManager creates a recording session manager.
func NewManager(st store.Store, media storage.MediaStore, containers storage.Containers, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:      st,
		media:      media,
		containers: containers,
		locks:      newRoomLocks(),
		logger:     logger,
		now:        time.Now,
		pageSize:   DefaultPageSize,
	}
}

// SetEventPublisher sets the optional room event sink.
func (m *Manager) SetEventPublisher(e Events) { m.events = e }

// SetReclaimQueue sets the optional queue for blobs whose inline delete failed.
func (m *Manager) SetReclaimQueue(r Reclaimer) { m.reclaim = r }

// SetClock overrides the time source.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// SetPageSize sets how many rows each list query fetches.
func (m *Manager) SetPageSize(n int) {
	if n > 0 {
		m.pageSize = n
	}
}

func (m *Manager) publish(ctx context.Context, event string, rec *models.Recording) {
	if m.events != nil {
		m.events.RecordingChanged(ctx, event, rec)
	}
}

// StartRecording opens a recording for an existing room. It fails with a conflict
// while another recording in the room is active.
func (m *Manager) StartRecording(ctx context.Context, roomID string) (*models.Recording, error) {
	if roomID == "" {
		return nil, apperr.InvalidArgument("room id is required")
	}
	if _, err := m.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	unlock := m.locks.lock(roomID)
	defer unlock()

	active, err := m.store.FindActiveRecording(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, apperr.Conflict("recording already in progress")
	}

	now := m.now().UTC()
	id := uuid.NewString()
	rec := &models.Recording{
		ID:        id,
		RoomID:    roomID,
		FilePath:  storage.RecordingKey(id),
		StartTime: &now,
		Status:    models.RecordingStatusRecording,
	}
	if err := m.store.CreateRecording(ctx, rec); err != nil {
		return nil, err
	}
	m.logger.Info("recording started", zap.String("room_id", roomID), zap.String("recording_id", id))
	m.publish(ctx, EventRecordingStarted, rec)
	return rec, nil
}

// StopRecording closes the active recording recordingID of roomID. Stopping a
// recording that is no longer active is a conflict.
func (m *Manager) StopRecording(ctx context.Context, roomID, recordingID string) (*models.Recording, error) {
	if recordingID == "" {
		return nil, apperr.InvalidArgument("recording_id is required")
	}
	rec, err := m.store.GetRecording(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	if roomID != "" && rec.RoomID != roomID {
		return nil, apperr.NotFound("recording not found")
	}

	unlock := m.locks.lock(rec.RoomID)
	defer unlock()

	if !rec.Active() {
		return nil, apperr.Conflict("recording is not active")
	}
	now := m.now().UTC()
	stopped, err := m.store.StopRecording(ctx, recordingID, now)
	if err != nil {
		return nil, err
	}
	if !stopped {
		return nil, apperr.Conflict("recording is not active")
	}
	rec.EndTime = &now
	rec.Status = models.RecordingStatusStopped

	m.logger.Info("recording stopped", zap.String("room_id", rec.RoomID), zap.String("recording_id", rec.ID))
	m.publish(ctx, EventRecordingStopped, rec)
	return rec, nil
}

// GetRecording returns a recording by ID.
func (m *Manager) GetRecording(ctx context.Context, recordingID string) (*models.Recording, error) {
	if recordingID == "" {
		return nil, apperr.InvalidArgument("recording id is required")
	}
	return m.store.GetRecording(ctx, recordingID)
}

// UploadRecording stores a client-captured file and records it as completed.
// filename only contributes its extension, which must be an allowed container.
func (m *Manager) UploadRecording(ctx context.Context, roomID, subjectID string, r io.Reader, filename string) (*models.Recording, int64, error) {
	if r == nil || strings.TrimSpace(filename) == "" {
		return nil, 0, apperr.InvalidArgument("no file selected")
	}
	ext, ok := m.containers.Match(filename)
	if !ok {
		return nil, 0, apperr.InvalidArgument("invalid file type")
	}
	if roomID == "" {
		roomID = UnknownRoomID
	}

	key := storage.UploadKey(strings.ReplaceAll(uuid.NewString(), "-", ""), ext)
	size, err := m.media.Save(ctx, key, r)
	if err != nil {
		return nil, 0, apperr.Storage("failed to save recording", err)
	}

	now := m.now().UTC()
	rec := &models.Recording{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		FilePath:  key,
		StartTime: &now,
		EndTime:   &now,
		Status:    models.RecordingStatusCompleted,
	}
	if err := m.store.CreateRecording(ctx, rec); err != nil {
		m.dropBlob(ctx, rec.ID, key)
		return nil, 0, err
	}

	m.logger.Info("recording uploaded",
		zap.String("room_id", roomID),
		zap.String("recording_id", rec.ID),
		zap.String("user_id", subjectID),
		zap.Int64("size", size))
	m.publish(ctx, EventRecordingUploaded, rec)
	return rec, size, nil
}

// ListRecordings yields every recording, most recent start first, with its room
// name and the current state of its blob. Each range over the result queries the
// store again.
func (m *Manager) ListRecordings(ctx context.Context) iter.Seq2[models.RecordingListing, error] {
	return func(yield func(models.RecordingListing, error) bool) {
		for offset := 0; ; offset += m.pageSize {
			page, err := m.store.ListRecordings(ctx, m.pageSize, offset)
			if err != nil {
				yield(models.RecordingListing{}, err)
				return
			}
			for _, item := range page {
				item.FileExists, item.FileSize = m.blobState(ctx, item.FilePath)
				if !yield(item, nil) {
					return
				}
			}
			if len(page) < m.pageSize {
				return
			}
		}
	}
}

func (m *Manager) blobState(ctx context.Context, key string) (bool, int64) {
	if key == "" {
		return false, 0
	}
	size, err := m.media.SizeOf(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotExist) {
			m.logger.Warn("stat recording blob failed", zap.String("path", key), zap.Error(err))
		}
		return false, 0
	}
	return true, size
}

// DeleteRecording removes the row, then the blob. Blob failures are logged and
// handed to the reclaim queue when one is set.
func (m *Manager) DeleteRecording(ctx context.Context, recordingID string) error {
	if recordingID == "" {
		return apperr.InvalidArgument("recording id is required")
	}
	rec, err := m.store.GetRecording(ctx, recordingID)
	if err != nil {
		return err
	}
	deleted, err := m.store.DeleteRecording(ctx, recordingID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound("recording not found")
	}

	m.dropBlob(ctx, rec.ID, rec.FilePath)
	m.logger.Info("recording deleted", zap.String("room_id", rec.RoomID), zap.String("recording_id", rec.ID))
	m.publish(ctx, EventRecordingDeleted, rec)
	return nil
}

func (m *Manager) dropBlob(ctx context.Context, recordingID, key string) {
	if key == "" {
		return
	}
	err := m.media.Delete(ctx, key)
	if err == nil {
		return
	}
	m.logger.Warn("delete recording blob failed", zap.String("recording_id", recordingID), zap.String("path", key), zap.Error(err))
	if m.reclaim == nil {
		return
	}
	if err := m.reclaim.EnqueueBlobReclaim(context.WithoutCancel(ctx), recordingID, key); err != nil {
		m.logger.Error("enqueue blob reclaim failed", zap.String("recording_id", recordingID), zap.String("path", key), zap.Error(err))
	}
}

// DownloadRecording opens the blob of a recording. The caller closes the reader.
func (m *Manager) DownloadRecording(ctx context.Context, recordingID string) (io.ReadCloser, int64, *models.Recording, error) {
	rec, err := m.GetRecording(ctx, recordingID)
	if err != nil {
		return nil, 0, nil, err
	}
	rc, size, err := m.media.Open(ctx, rec.FilePath)
	if errors.Is(err, storage.ErrNotExist) {
		return nil, 0, nil, apperr.NotFound("recording file not found")
	}
	if err != nil {
		return nil, 0, nil, apperr.Storage("failed to open recording", err)
	}
	return rc, size, rec, nil
}
