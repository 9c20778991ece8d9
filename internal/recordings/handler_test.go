package recordings_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundtech/meeting-backend/internal/recordings"
	"github.com/soundtech/meeting-backend/internal/testsupport"
)

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func newRouter(t *testing.T, maxUpload int64) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	r := gin.New()
	h := recordings.NewHandler(f.mgr, maxUpload, nil)
	h.Routes(r.Group(""))
	h.Routes(r.Group("/api/v1"))
	return r, f
}

func do(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func uploadRequest(t *testing.T, path, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile(recordings.UploadField, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandlerUploadDownloadDelete(t *testing.T) {
	r, _ := newRouter(t, 0)
	payload := testsupport.Payload(200_000)

	w, env := do(r, uploadRequest(t, "/api/v1/recordings/upload", "clip.mp4", payload, map[string]string{"room_id": "r9", "user_id": "42"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var up recordings.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &up))
	assert.Equal(t, "r9", up.RoomID)
	assert.Equal(t, int64(len(payload)), up.FileSize)

	w, _ = do(r, httptest.NewRequest(http.MethodGet, "/recordings/"+up.RecordingID+"/download", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, bytes.Equal(payload, w.Body.Bytes()))

	w, env = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/recordings/list", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list recordings.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Recordings, 1)
	assert.True(t, list.Recordings[0].FileExists)

	w, _ = do(r, httptest.NewRequest(http.MethodDelete, "/recordings/"+up.RecordingID, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	w, env = do(r, httptest.NewRequest(http.MethodGet, "/recordings/"+up.RecordingID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "recording not found", env.Error)
	w, _ = do(r, httptest.NewRequest(http.MethodDelete, "/recordings/"+up.RecordingID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerUploadRejections(t *testing.T) {
	r, _ := newRouter(t, 1024)

	w, env := do(r, uploadRequest(t, "/recordings/upload", "clip.exe", []byte("MZ"), nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "invalid file type", env.Error)

	w, _ = do(r, uploadRequest(t, "/recordings/upload", "big.mp4", testsupport.Payload(4096), nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/recordings/upload", nil)
	w, env = do(r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no file uploaded", env.Error)
}

func TestHandlerStartStop(t *testing.T) {
	r, f := newRouter(t, 0)
	f.room(t, "standup", "Standup")

	w, _ := do(r, httptest.NewRequest(http.MethodPost, "/rooms/standup/record/start", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var started recordings.StartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	assert.Equal(t, "recording", started.Status)

	w, _ = do(r, httptest.NewRequest(http.MethodPost, "/api/v1/rooms/standup/record/start", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = do(r, httptest.NewRequest(http.MethodPost, "/rooms/ghost/record/start", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(r, httptest.NewRequest(http.MethodPost, "/rooms/standup/record/stop", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	stop := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/rooms/standup/record/stop",
			bytes.NewBufferString(`{"recording_id":"`+started.RecordingID+`"}`))
		req.Header.Set("Content-Type", "application/json")
		w, _ := do(r, req)
		return w
	}
	assert.Equal(t, http.StatusOK, stop().Code)
	assert.Equal(t, http.StatusConflict, stop().Code)
}

func TestHandlerReturnsFieldsAtTopLevel(t *testing.T) {
	r, f := newRouter(t, 0)
	f.room(t, "standup", "Standup")

	w, _ := do(r, httptest.NewRequest(http.MethodPost, "/api/v1/rooms/standup/record/start", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "standup", body["room_id"])
	assert.NotEmpty(t, body["recording_id"])
	assert.NotContains(t, body, "data")

	w, _ = do(r, uploadRequest(t, "/api/v1/recordings/upload", "clip.mp4", []byte("data"), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["recording_id"])
	assert.Equal(t, float64(4), body["file_size"])
}
