package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundtech/meeting-backend/internal/models"
	"github.com/soundtech/meeting-backend/pkg/apperr"
)

func newServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	lookup := func(_ context.Context, roomID string) error {
		if roomID == "standup" {
			return nil
		}
		return apperr.NotFound("room not found")
	}
	r := gin.New()
	r.GET("/rooms/:id/events", ServeWs(hub, NewUpgrader([]string{"*"}), lookup, nil))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, roomID string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/rooms/" + roomID + "/events"
	return websocket.DefaultDialer.Dial(url, nil)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func recording(id, roomID, status string) *models.Recording {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return &models.Recording{ID: id, RoomID: roomID, FilePath: "recordings/" + id + ".mp4", StartTime: &start, Status: status}
}

func TestRecordingChangedReachesRoomClients(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	srv := newServer(t, hub)

	conn, _, err := dial(t, srv, "standup")
	require.NoError(t, err)
	defer conn.Close()

	hello := readMessage(t, conn)
	assert.Equal(t, EventConnected, hello.Event)
	require.Eventually(t, func() bool { return hub.Count("standup") == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	hub.RecordingChanged(ctx, "recording_started", recording("x", "other", models.RecordingStatusRecording))
	hub.RecordingChanged(ctx, "recording_started", recording("rec-1", "standup", models.RecordingStatusRecording))

	msg := readMessage(t, conn)
	assert.Equal(t, "recording_started", msg.Event)
	var ev RecordingEvent
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	assert.Equal(t, "rec-1", ev.RecordingID)
	assert.Equal(t, "standup", ev.RoomID)
	assert.Equal(t, models.RecordingStatusRecording, ev.Status)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Count("standup") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestUnknownRoomRejected(t *testing.T) {
	srv := newServer(t, NewHub(nil, nil, nil))

	_, resp, err := dial(t, srv, "ghost")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// loopback stands in for Redis: publishes go to every subscriber of the channel.
// Payloads are JSON-encoded and decoded like the Redis bridge does.
type loopback struct {
	mu        sync.Mutex
	subs      map[string][]func(RecordingEvent)
	published int
}

func (l *loopback) PublishRecordingEvent(_ context.Context, ev RecordingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.published++
	handlers := append([]func(RecordingEvent){}, l.subs[ev.RoomID]...)
	l.mu.Unlock()
	for _, h := range handlers {
		decoded, err := decodeRecordingEvent(ev.RoomID, string(body))
		if err != nil {
			return err
		}
		h(decoded)
	}
	return nil
}

func (l *loopback) SubscribeRoom(roomID string, handler func(RecordingEvent)) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.subs == nil {
		l.subs = make(map[string][]func(RecordingEvent))
	}
	l.subs[roomID] = append(l.subs[roomID], handler)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, roomID)
	}, nil
}

func TestPublishThroughBridgeDeliversOnce(t *testing.T) {
	bridge := &loopback{}
	hub := NewHub(nil, bridge, bridge)
	srv := newServer(t, hub)

	conn, _, err := dial(t, srv, "standup")
	require.NoError(t, err)
	defer conn.Close()
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.Count("standup") == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	hub.RecordingChanged(ctx, "recording_stopped", recording("rec-1", "standup", models.RecordingStatusStopped))
	hub.RecordingChanged(ctx, "recording_deleted", recording("rec-1", "standup", models.RecordingStatusStopped))

	msg := readMessage(t, conn)
	assert.Equal(t, "recording_stopped", msg.Event)
	var ev RecordingEvent
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	assert.Equal(t, "rec-1", ev.RecordingID)
	assert.Equal(t, models.RecordingStatusStopped, ev.Status)
	assert.Equal(t, "recording_deleted", readMessage(t, conn).Event)
	bridge.mu.Lock()
	defer bridge.mu.Unlock()
	assert.Equal(t, 2, bridge.published)
}

func TestDecodeRecordingEvent(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	valid, err := json.Marshal(NewRecordingEvent("recording_started", recording("rec-1", "standup", models.RecordingStatusRecording), at))
	require.NoError(t, err)

	ev, err := decodeRecordingEvent("standup", string(valid))
	require.NoError(t, err)
	assert.Equal(t, "recording_started", ev.Event)
	assert.Equal(t, "rec-1", ev.RecordingID)
	assert.Equal(t, "recordings/rec-1.mp4", ev.FilePath)
	assert.True(t, at.Equal(ev.At))

	cases := map[string]string{
		"other room":    string(valid),
		"not json":      "{",
		"missing event": `{"room_id":"standup","recording_id":"rec-1"}`,
		"missing id":    `{"event":"recording_started","room_id":"standup"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			roomID := "standup"
			if name == "other room" {
				roomID = "retro"
			}
			_, err := decodeRecordingEvent(roomID, payload)
			assert.Error(t, err)
		})
	}
}

func TestRecordingChannel(t *testing.T) {
	assert.Equal(t, "room:standup:recordings", RecordingChannel("standup"))
}
