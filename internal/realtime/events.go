package realtime

import (
	"errors"
	"fmt"
	"time"

	"github.com/soundtech/meeting-backend/internal/models"
)

// RecordingEvent is a recording state change pushed to the clients of its room.
type RecordingEvent struct {
	Event       string     `json:"event"`
	RoomID      string     `json:"room_id"`
	RecordingID string     `json:"recording_id"`
	Status      string     `json:"status"`
	FilePath    string     `json:"file_path,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	At          time.Time  `json:"at"`
}

// NewRecordingEvent describes rec after event happened to it.
func NewRecordingEvent(event string, rec *models.Recording, at time.Time) RecordingEvent {
	return RecordingEvent{
		Event:       event,
		RoomID:      rec.RoomID,
		RecordingID: rec.ID,
		Status:      rec.Status,
		FilePath:    rec.FilePath,
		StartTime:   rec.StartTime,
		EndTime:     rec.EndTime,
		At:          at.UTC(),
	}
}

func (e RecordingEvent) validate(roomID string) error {
	if e.Event == "" || e.RecordingID == "" {
		return errors.New("recording event missing event or recording id")
	}
	if e.RoomID != roomID {
		return fmt.Errorf("recording event for room %q on room %q", e.RoomID, roomID)
	}
	return nil
}
