package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/hermes-playout/internal/logger"
	"github.com/stwalsh4118/hermes-playout/internal/playout"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error    string   `json:"error"`
	Message  string   `json:"message,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// writePlayoutError maps service errors onto HTTP statuses
func writePlayoutError(c *gin.Context, err error) {
	writeBuildError(c, err, nil)
}

// writeBuildError is writePlayoutError for a failed build. Schedule and stall failures
// carry the build's warnings so the operator sees why the build failed.
func writeBuildError(c *gin.Context, err error, warnings []string) {
	switch {
	case errors.Is(err, playout.ErrChannelNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "channel_not_found",
			Message: "Channel not found",
		})
	case errors.Is(err, playout.ErrInvalidBuildMode), errors.Is(err, playout.ErrInvalidWindow):
		badRequest(c, "invalid_request", err.Error())
	case playout.IsConfigurationError(err):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:    "invalid_schedule",
			Message:  err.Error(),
			Warnings: warnings,
		})
	case playout.IsStalled(err):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:    "scheduler_stalled",
			Message:  err.Error(),
			Warnings: warnings,
		})
	default:
		_ = c.Error(err)
		logger.Log.Error().
			Err(err).
			Str("path", c.Request.URL.Path).
			Msg("Playout request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to process playout request",
		})
	}
}
