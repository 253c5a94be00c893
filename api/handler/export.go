package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/plexport/config"
	"github.com/use-agent/plexport/controller"
	"github.com/use-agent/plexport/models"
)

// PostExport returns a handler for POST /api/v1/export.
//
// The body is optional; unset fields fall back to the configured target,
// CDP URL and output directory. The run continues after the response is sent.
func PostExport(ctrl *controller.Controller, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ExportRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, models.ExportResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults(cfg.Scraper.TargetURL, cfg.Browser.CDPURL, cfg.Extractor.OutputDir)

		run, err := ctrl.Start(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusAccepted, models.ExportResponse{Success: true, Run: run})
	}
}

// GetLog returns a handler for GET /api/v1/export/log.
func GetLog(ctrl *controller.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.LogResponse{
			Enabled: ctrl.Enabled(),
			Entries: ctrl.Log(),
		})
	}
}

// ListExports returns a handler for GET /api/v1/exports.
func ListExports(ctrl *controller.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.RunListResponse{Runs: ctrl.Runs()})
	}
}

// GetExport returns a handler for GET /api/v1/exports/:id.
func GetExport(ctrl *controller.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, ok := ctrl.Run(c.Param("id"))
		if !ok {
			respondError(c, errRunNotFound)
			return
		}
		c.JSON(http.StatusOK, models.ExportResponse{Success: true, Run: run})
	}
}

// DownloadExport returns a handler for GET /api/v1/exports/:id/download.
// It serves the CSV of a completed run as an attachment.
func DownloadExport(ctrl *controller.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, ok := ctrl.Run(c.Param("id"))
		if !ok {
			respondError(c, errRunNotFound)
			return
		}
		if run.State != models.RunCompleted || run.Path == "" {
			respondError(c, models.NewExportError(models.ErrCodeBusy, "export has no file: state is "+string(run.State), nil))
			return
		}
		c.FileAttachment(run.Path, run.Filename)
	}
}

var errRunNotFound = models.NewExportError(models.ErrCodeNotFound, "export run not found", nil)

// respondError maps an ExportError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	var exportErr *models.ExportError
	if !errors.As(err, &exportErr) {
		exportErr = models.NewExportError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(exportErr), models.ExportResponse{
		Success: false,
		Error:   &models.ErrorDetail{Code: exportErr.Code, Message: exportErr.UserMessage()},
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ExportError) int {
	switch e.Code {
	case models.ErrCodeBusy:
		return http.StatusConflict // 409
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeInjection, models.ErrCodeNavigation, models.ErrCodeBrowserCrash:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
