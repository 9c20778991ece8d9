package recordings

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/soundtech/meeting-backend/internal/models"
	"github.com/soundtech/meeting-backend/pkg/apperr"
	"github.com/soundtech/meeting-backend/pkg/response"
	"github.com/soundtech/meeting-backend/pkg/storage"
)

// UploadField is the multipart field carrying the recording file.
const UploadField = "recording"

// StopRequest is the body for POST /rooms/:id/record/stop.
type StopRequest struct {
	RecordingID string `json:"recording_id"`
}

// StartResponse is returned by POST /rooms/:id/record/start.
type StartResponse struct {
	RecordingID string     `json:"recording_id"`
	RoomID      string     `json:"room_id"`
	Status      string     `json:"status"`
	StartTime   *time.Time `json:"start_time"`
	Message     string     `json:"message"`
}

// StopResponse is returned by POST /rooms/:id/record/stop.
type StopResponse struct {
	RecordingID string     `json:"recording_id"`
	Status      string     `json:"status"`
	EndTime     *time.Time `json:"end_time"`
	Message     string     `json:"message"`
}

// UploadResponse is returned by POST /recordings/upload.
type UploadResponse struct {
	RecordingID string `json:"recording_id"`
	RoomID      string `json:"room_id"`
	FilePath    string `json:"file_path"`
	FileSize    int64  `json:"file_size"`
	Message     string `json:"message"`
}

// ListResponse is returned by GET /recordings.
type ListResponse struct {
	Recordings []models.RecordingListing `json:"recordings"`
}

// RecordingResponse is returned by GET /recordings/:id.
type RecordingResponse struct {
	Recording *models.Recording `json:"recording"`
}

// Handler handles recording HTTP endpoints.
type Handler struct {
	mgr            *Manager
	logger         *zap.Logger
	maxUploadBytes int64
}

// NewHandler creates a recordings handler. maxUploadBytes <= 0 disables the body limit.
func NewHandler(mgr *Manager, maxUploadBytes int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{mgr: mgr, logger: logger, maxUploadBytes: maxUploadBytes}
}

// Routes mounts the recording endpoints on rg.
func (h *Handler) Routes(rg *gin.RouterGroup) {
	rg.POST("/rooms/:id/record/start", h.Start)
	rg.POST("/rooms/:id/record/stop", h.Stop)
	rg.GET("/recordings", h.List)
	rg.GET("/recordings/list", h.List)
	rg.POST("/recordings/upload", h.Upload)
	rg.GET("/recordings/:id", h.Get)
	rg.GET("/recordings/:id/download", h.Download)
	rg.DELETE("/recordings/:id", h.Delete)
}

// Start handles POST /rooms/:id/record/start.
func (h *Handler) Start(c *gin.Context) {
	rec, err := h.mgr.StartRecording(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "start recording", err)
		return
	}
	response.OK(c, StartResponse{
		RecordingID: rec.ID,
		RoomID:      rec.RoomID,
		Status:      rec.Status,
		StartTime:   rec.StartTime,
		Message:     "Recording started",
	})
}

// Stop handles POST /rooms/:id/record/stop.
func (h *Handler) Stop(c *gin.Context) {
	var req StopRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	rec, err := h.mgr.StopRecording(c.Request.Context(), c.Param("id"), req.RecordingID)
	if err != nil {
		h.fail(c, "stop recording", err)
		return
	}
	response.OK(c, StopResponse{
		RecordingID: rec.ID,
		Status:      rec.Status,
		EndTime:     rec.EndTime,
		Message:     "Recording stopped",
	})
}

// Get handles GET /recordings/:id.
func (h *Handler) Get(c *gin.Context) {
	rec, err := h.mgr.GetRecording(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get recording", err)
		return
	}
	response.OK(c, RecordingResponse{Recording: rec})
}

// List handles GET /recordings.
func (h *Handler) List(c *gin.Context) {
	out := ListResponse{Recordings: []models.RecordingListing{}}
	for item, err := range h.mgr.ListRecordings(c.Request.Context()) {
		if err != nil {
			h.fail(c, "list recordings", err)
			return
		}
		out.Recordings = append(out.Recordings, item)
	}
	response.OK(c, out)
}

// Upload handles POST /recordings/upload with a multipart "recording" file and
// optional room_id and user_id fields.
func (h *Handler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	fh, err := c.FormFile(UploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.BadRequest(c, fmt.Sprintf("file exceeds %d bytes", tooLarge.Limit))
			return
		}
		response.BadRequest(c, "no file uploaded")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, "upload recording", apperr.Storage("failed to read upload", err))
		return
	}
	defer f.Close()

	rec, size, err := h.mgr.UploadRecording(c.Request.Context(),
		c.PostForm("room_id"), c.DefaultPostForm("user_id", models.DefaultSubjectID), f, fh.Filename)
	if err != nil {
		h.fail(c, "upload recording", err)
		return
	}
	response.OK(c, UploadResponse{
		RecordingID: rec.ID,
		RoomID:      rec.RoomID,
		FilePath:    rec.FilePath,
		FileSize:    size,
		Message:     "Recording uploaded successfully",
	})
}

// Download handles GET /recordings/:id/download.
func (h *Handler) Download(c *gin.Context) {
	rc, size, rec, err := h.mgr.DownloadRecording(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "download recording", err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, size, storage.ContentTypeForKey(rec.FilePath), rc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, path.Base(rec.FilePath)),
	})
}

// Delete handles DELETE /recordings/:id.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.mgr.DeleteRecording(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "delete recording", err)
		return
	}
	response.OK(c, gin.H{"message": "Recording deleted"})
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if !apperr.IsClientError(err) {
		h.logger.Error(op+" failed", zap.Error(err), zap.String("path", c.FullPath()), zap.String("id", c.Param("id")))
	}
	response.Error(c, err)
}
