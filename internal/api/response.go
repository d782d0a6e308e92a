package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ironsheep/inertia-heatmap/internal/analysis"
	"github.com/ironsheep/inertia-heatmap/internal/heatmap"
	"github.com/ironsheep/inertia-heatmap/internal/render"
	"github.com/ironsheep/inertia-heatmap/internal/session"
)

// Response represents a standard API response
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error sends an error response
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Fail maps err to an HTTP status and sends it, recording err on the context
// for the request logger.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	Error(c, StatusFor(err), err.Error())
}

// StatusFor returns the HTTP status for a pipeline error.
func StatusFor(err error) int {
	var apiErr *analysis.APIError
	switch {
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, analysis.ErrEmptyImageURL),
		errors.Is(err, analysis.ErrInvalidImageURL),
		errors.Is(err, heatmap.ErrInvalidMatrixShape),
		errors.Is(err, heatmap.ErrInvalidScaleFactor),
		errors.Is(err, heatmap.ErrInvalidIntensity),
		errors.Is(err, render.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.As(err, &apiErr), errors.Is(err, analysis.ErrMissingHeatmapData):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
