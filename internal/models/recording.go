package models

import "time"

// RecordingStatus represents recording lifecycle.
const (
	RecordingStatusRecording = "recording"
	RecordingStatusStopped   = "stopped"
	RecordingStatusCompleted = "completed"
)

// Recording is one capture session's metadata plus the media store key of its blob.
// RoomID is a weak reference: rooms are never checked on read.
type Recording struct {
	ID        string     `json:"id"`
	RoomID    string     `json:"room_id"`
	FilePath  string     `json:"file_path"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Status    string     `json:"status"`
}

// Active reports whether the recording is still capturing.
func (r *Recording) Active() bool { return r.Status == RecordingStatusRecording }

// RecordingListing is a recording joined with its room name and the current state of its blob.
type RecordingListing struct {
	Recording
	RoomName   string `json:"room_name"`
	FileExists bool   `json:"file_exists"`
	FileSize   int64  `json:"file_size"`
}
