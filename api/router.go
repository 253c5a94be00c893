package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/plexport/api/handler"
	"github.com/use-agent/plexport/api/middleware"
	"github.com/use-agent/plexport/config"
	"github.com/use-agent/plexport/controller"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(ctrl *controller.Controller, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(ctrl, startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Trigger + session log
	protected.POST("/export", handler.PostExport(ctrl, cfg))
	protected.GET("/export/log", handler.GetLog(ctrl))

	// Run history
	protected.GET("/exports", handler.ListExports(ctrl))
	protected.GET("/exports/:id", handler.GetExport(ctrl))
	protected.GET("/exports/:id/download", handler.DownloadExport(ctrl))

	return r
}
