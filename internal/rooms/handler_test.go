package rooms_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundtech/meeting-backend/internal/rooms"
	"github.com/soundtech/meeting-backend/internal/testsupport"
	"github.com/soundtech/meeting-backend/internal/token"
)

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := rooms.NewService(testsupport.MustOpenStore(t), testsupport.NewIssuer(t), nil)
	r := gin.New()
	rooms.NewHandler(svc, nil).Routes(r.Group("/api/v1"))
	return r
}

func post(r http.Handler, path, body string) (*httptest.ResponseRecorder, envelope) {
	var rd *bytes.Buffer
	if body != "" {
		rd = bytes.NewBufferString(body)
	} else {
		rd = &bytes.Buffer{}
	}
	req := httptest.NewRequest(http.MethodPost, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestCreateAndJoinOverHTTP(t *testing.T) {
	r := newRouter(t)

	w, env := post(r, "/api/v1/rooms", `{"room_name":"standup","user_id":42}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var created rooms.CreateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "standup", created.Name)
	assert.Equal(t, "test-app", created.AppID)
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, token.RoleHost, created.Role)

	w, env = post(r, "/api/v1/rooms/"+created.RoomID+"/join", `{"user_id":"7","role":"audience"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var joined rooms.JoinResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &joined))
	assert.Equal(t, created.RoomID, joined.RoomID)
	assert.Equal(t, token.RoleAudience, joined.Role)

	w, env = post(r, "/api/v1/rooms/nope/join", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "room not found", env.Error)
}

func TestCreateWithoutBody(t *testing.T) {
	r := newRouter(t)

	w, _ := post(r, "/api/v1/rooms", "")
	require.Equal(t, http.StatusOK, w.Code)
	var created rooms.CreateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Regexp(t, `^room_`, created.Name)
}

func TestCreateRejectsBadInput(t *testing.T) {
	r := newRouter(t)

	w, _ := post(r, "/api/v1/rooms", `{"room_name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = post(r, "/api/v1/rooms", `{"role":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateReturnsFieldsAtTopLevel(t *testing.T) {
	r := newRouter(t)

	w, _ := post(r, "/api/v1/rooms", `{"room_name":"test_room","user_id":123456}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["room_id"])
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "test_room", body["room_name"])
	assert.NotContains(t, body, "data")
}
