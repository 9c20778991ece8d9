package rooms

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/soundtech/meeting-backend/internal/models"
	"github.com/soundtech/meeting-backend/internal/token"
	"github.com/soundtech/meeting-backend/pkg/apperr"
	"github.com/soundtech/meeting-backend/pkg/response"
)

// CreateRequest is the body for POST /rooms.
type CreateRequest struct {
	Name   string           `json:"room_name"`
	UserID models.SubjectID `json:"user_id"`
	Role   string           `json:"role"`
}

// JoinRequest is the body for POST /rooms/:id/join.
type JoinRequest struct {
	UserID models.SubjectID `json:"user_id"`
	Role   string           `json:"role"`
}

// CreateResponse is returned by POST /rooms.
type CreateResponse struct {
	RoomID    string     `json:"room_id"`
	Name      string     `json:"room_name"`
	Token     string     `json:"token"`
	AppID     string     `json:"app_id"`
	Role      token.Role `json:"role"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// JoinResponse is returned by POST /rooms/:id/join.
type JoinResponse struct {
	RoomID    string     `json:"room_id"`
	Token     string     `json:"token"`
	AppID     string     `json:"app_id"`
	Role      token.Role `json:"role"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Handler handles room HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a rooms handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the room endpoints on rg.
func (h *Handler) Routes(rg *gin.RouterGroup) {
	rg.POST("/rooms", h.Create)
	rg.POST("/rooms/:id/join", h.Join)
}

// Create handles POST /rooms. An empty body is accepted.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	role, err := token.ParseRole(req.Role)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	room, tok, err := h.svc.CreateRoom(c.Request.Context(), req.Name, req.UserID.OrDefault(), role)
	if err != nil {
		h.fail(c, "create room", err)
		return
	}
	response.OK(c, CreateResponse{
		RoomID:    room.ID,
		Name:      room.Name,
		Token:     tok.Value,
		AppID:     tok.AppID,
		Role:      tok.Role,
		ExpiresAt: tok.ExpiresAt,
	})
}

// Join handles POST /rooms/:id/join.
func (h *Handler) Join(c *gin.Context) {
	var req JoinRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	role, err := token.ParseRole(req.Role)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	roomID := c.Param("id")
	tok, err := h.svc.JoinRoom(c.Request.Context(), roomID, req.UserID.OrDefault(), role)
	if err != nil {
		h.fail(c, "join room", err)
		return
	}
	response.OK(c, JoinResponse{
		RoomID:    roomID,
		Token:     tok.Value,
		AppID:     tok.AppID,
		Role:      tok.Role,
		ExpiresAt: tok.ExpiresAt,
	})
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if !apperr.IsClientError(err) {
		h.logger.Error(op+" failed", zap.Error(err), zap.String("room_id", c.Param("id")))
	}
	response.Error(c, err)
}
