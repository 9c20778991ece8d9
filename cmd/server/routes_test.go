package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/soundtech/meeting-backend/config"
	"github.com/soundtech/meeting-backend/internal/realtime"
	"github.com/soundtech/meeting-backend/internal/recordings"
	"github.com/soundtech/meeting-backend/internal/rooms"
	"github.com/soundtech/meeting-backend/internal/testsupport"
	"github.com/soundtech/meeting-backend/pkg/storage"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := testsupport.MustOpenStore(t)
	containers, err := storage.ParseContainers(storage.DefaultContainers)
	require.NoError(t, err)

	roomSvc := rooms.NewService(st, testsupport.NewIssuer(t), nil)
	recMgr := recordings.NewManager(st, testsupport.NewMediaStore(t), containers, nil)
	hub := realtime.NewHub(nil, nil, nil)
	recMgr.SetEventPublisher(hub)

	return newRouter(routerDeps{
		server:     config.ServerConfig{CORSAllowedOrigins: "*"},
		rooms:      rooms.NewHandler(roomSvc, nil),
		recordings: recordings.NewHandler(recMgr, 1<<20, nil),
		events: realtime.ServeWs(hub, realtime.NewUpgrader([]string{"*"}), func(ctx context.Context, id string) error {
			_, err := roomSvc.GetRoom(ctx, id)
			return err
		}, nil),
	}, zap.NewNop())
}

func call(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoomRecordingFlowOnBothPrefixes(t *testing.T) {
	r := testRouter(t)

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/health", "").Code)

	w := call(r, http.MethodPost, "/rooms", `{"room_name":"standup"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created rooms.CreateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	roomID := created.RoomID

	w = call(r, http.MethodPost, "/api/v1/rooms/"+roomID+"/record/start", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusConflict, call(r, http.MethodPost, "/rooms/"+roomID+"/record/start", "").Code)

	w = call(r, http.MethodGet, "/api/v1/recordings/list", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list recordings.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Recordings, 1)
	assert.Equal(t, "standup", list.Recordings[0].RoomName)

	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, "/rooms/"+roomID+"x/events", "").Code)
}
