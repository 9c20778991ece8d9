package main

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/soundtech/meeting-backend/config"
	"github.com/soundtech/meeting-backend/internal/middleware"
	"github.com/soundtech/meeting-backend/internal/recordings"
	"github.com/soundtech/meeting-backend/internal/rooms"
	"github.com/soundtech/meeting-backend/pkg/response"
)

// multipartMemory is how much of an upload is buffered in memory before spilling to disk.
const multipartMemory = 8 << 20

type routerDeps struct {
	server     config.ServerConfig
	rooms      *rooms.Handler
	recordings *recordings.Handler
	events     gin.HandlerFunc
}

// newRouter mounts every endpoint at the root and under /api/v1.
func newRouter(d routerDeps, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = multipartMemory
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(d.server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	for _, prefix := range []string{"", "/api/v1"} {
		api := router.Group(prefix)
		d.rooms.Routes(api)
		d.recordings.Routes(api)
		api.GET("/rooms/:id/events", d.events)
	}
	return router
}
