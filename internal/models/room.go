package models

import "time"

// Room status values. Closed is not produced by any current operation.
const (
	RoomStatusActive = "active"
	RoomStatusClosed = "closed"
)

// Room is a named communication channel that recordings attach to.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"`
}
