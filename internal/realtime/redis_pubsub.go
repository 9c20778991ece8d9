package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// RecordingChannel is the Redis channel carrying a room's recording events.
func RecordingChannel(roomID string) string {
	return "room:" + roomID + ":recordings"
}

// RedisPubSub carries recording events between instances over Redis pub/sub.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPubSub creates the Redis recording event bridge.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPubSub{client: client, logger: logger}
}

// PublishRecordingEvent publishes ev on its room's channel. The publish outlives
// cancellation of ctx so a finished request still notifies other instances.
func (r *RedisPubSub) PublishRecordingEvent(ctx context.Context, ev RecordingEvent) error {
	if ev.RoomID == "" {
		return errors.New("recording event without room id")
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, RecordingChannel(ev.RoomID), body).Err(); err != nil {
		return fmt.Errorf("publish %s for recording %s: %w", ev.Event, ev.RecordingID, err)
	}
	return nil
}

// SubscribeRoom calls handler with each recording event of the room until cancel is called.
// Messages that do not decode to an event of this room are dropped.
func (r *RedisPubSub) SubscribeRoom(roomID string, handler func(RecordingEvent)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, RecordingChannel(roomID))
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe room %s: %w", roomID, err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ev, err := decodeRecordingEvent(roomID, msg.Payload)
				if err != nil {
					r.logger.Warn("dropping recording event", zap.String("room_id", roomID), zap.Error(err))
					continue
				}
				handler(ev)
			}
		}
	}()
	return cancelCtx, nil
}

func decodeRecordingEvent(roomID, payload string) (RecordingEvent, error) {
	var ev RecordingEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return RecordingEvent{}, fmt.Errorf("decode: %w", err)
	}
	if err := ev.validate(roomID); err != nil {
		return RecordingEvent{}, err
	}
	return ev, nil
}
