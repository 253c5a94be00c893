package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/plexport/controller"
	"github.com/use-agent/plexport/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Status is "running" while an export holds the trigger, "idle" otherwise.
func Health(ctrl *controller.Controller, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		enabled := ctrl.Enabled()

		status := "idle"
		if !enabled {
			status = "running"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Enabled: enabled,
			Version: Version,
		})
	}
}
