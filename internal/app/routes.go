package app

import (
	"github.com/gin-gonic/gin"

	"github.com/edgeroom/core/internal/modules/incident"
	"github.com/edgeroom/core/internal/modules/live"
	"github.com/edgeroom/core/internal/modules/room"
	"github.com/edgeroom/core/internal/pkg/response"
)

func (a *App) registerRoutes(dir *live.Directory) {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"ok": true})
	})

	roomSvc := room.NewService(a.db)
	room.NewHandler(roomSvc, a.fanout, a.logger).RegisterRoutes(api)

	incidentSvc := incident.NewService(a.db, a.logger)
	incident.NewHandler(incidentSvc, roomSvc, a.fanout, a.logger).RegisterRoutes(api)

	live.NewHandler(dir, a.fanout, a.logger).RegisterRoutes(api)
}
