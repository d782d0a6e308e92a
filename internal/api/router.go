// Package api exposes the inertia analysis pipeline over HTTP with gin.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ironsheep/inertia-heatmap/internal/logging"
	"github.com/ironsheep/inertia-heatmap/internal/session"
)

// Options configures the router.
type Options struct {
	Analyzer *session.Analyzer
	Logger   *slog.Logger
	Version  string
}

// SetupRouter builds the gin engine with all routes registered.
func SetupRouter(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	r := gin.New()
	r.Use(gin.Recovery(), Logger(opts.Logger), CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Inertia heatmap API is running",
			"version": opts.Version,
		})
	})

	h := NewHeatmapHandler(opts.Analyzer)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/analyze", h.Analyze)
		v1.POST("/sample", h.Sample)
		v1.GET("/status", h.Status)
	}

	return r
}
