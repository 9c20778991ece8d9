// Package realtime pushes recording events to the WebSocket clients of a room.
// With Redis configured, events travel through pub/sub so every instance delivers them.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/soundtech/meeting-backend/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// RedisPublisher publishes recording events for cross-instance delivery.
type RedisPublisher interface {
	PublishRecordingEvent(ctx context.Context, ev RecordingEvent) error
}

// RedisSubscriber subscribes to a room's recording events.
type RedisSubscriber interface {
	SubscribeRoom(roomID string, handler func(RecordingEvent)) (cancel func(), err error)
}

// Hub maintains room_id -> set of connections.
type Hub struct {
	rooms    map[string]map[string]*Client
	subs     map[string]func()
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
	now      func() time.Time
}

// NewHub creates a hub. pub and sub may be nil for single-instance delivery.
func NewHub(logger *zap.Logger, pub RedisPublisher, sub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redis:    pub,
		redisSub: sub,
		now:      time.Now,
	}
}

// Register adds a client to its room and subscribes to the room channel for the first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[c.RoomID] == nil {
		h.rooms[c.RoomID] = make(map[string]*Client)
		if h.redisSub != nil {
			roomID := c.RoomID
			cancel, err := h.redisSub.SubscribeRoom(roomID, func(ev RecordingEvent) {
				h.Broadcast(roomID, ev.Event, ev)
			})
			if err != nil {
				h.logger.Warn("room subscribe failed", zap.String("room_id", roomID), zap.Error(err))
			} else {
				h.subs[roomID] = cancel
			}
		}
	}
	h.rooms[c.RoomID][c.ID] = c
	h.logger.Debug("client joined room", zap.String("client_id", c.ID), zap.String("room_id", c.RoomID))
}

// Unregister removes a client and closes its send queue. The room subscription ends with the last client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.rooms[c.RoomID]
	if !ok {
		return
	}
	if _, ok := m[c.ID]; !ok {
		return
	}
	delete(m, c.ID)
	close(c.send)
	if len(m) == 0 {
		delete(h.rooms, c.RoomID)
		if cancel, ok := h.subs[c.RoomID]; ok {
			cancel()
			delete(h.subs, c.RoomID)
		}
	}
	h.logger.Debug("client left room", zap.String("client_id", c.ID), zap.String("room_id", c.RoomID))
}

// Broadcast sends a message to the clients of a room on this instance.
// Slow clients whose buffer is full miss the message.
func (h *Hub) Broadcast(roomID, event string, payload any) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("encode room event failed", zap.String("event", event), zap.Error(err))
		return
	}
	msg := Message{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[roomID] {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// RecordingChanged delivers a recording event to every client of the recording's room.
// With Redis it only publishes, and the subscription of each instance performs the broadcast.
func (h *Hub) RecordingChanged(ctx context.Context, event string, rec *models.Recording) {
	ev := NewRecordingEvent(event, rec, h.now())
	if h.redis == nil {
		h.Broadcast(ev.RoomID, ev.Event, ev)
		return
	}
	if err := h.redis.PublishRecordingEvent(ctx, ev); err != nil {
		h.logger.Warn("publish recording event failed, delivering locally",
			zap.String("room_id", ev.RoomID), zap.String("recording_id", ev.RecordingID), zap.Error(err))
		h.Broadcast(ev.RoomID, ev.Event, ev)
	}
}

// Count returns the number of clients connected to a room on this instance.
func (h *Hub) Count(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func encode(payload any) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	return json.Marshal(payload)
}
