package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ironsheep/inertia-heatmap/internal/heatmap"
	"github.com/ironsheep/inertia-heatmap/internal/session"
)

// HeatmapHandler handles HTTP requests for inertia analysis.
type HeatmapHandler struct {
	analyzer *session.Analyzer
}

// NewHeatmapHandler creates a new heatmap handler
func NewHeatmapHandler(analyzer *session.Analyzer) *HeatmapHandler {
	return &HeatmapHandler{analyzer: analyzer}
}

// Analyze handles POST /api/v1/analyze
func (h *HeatmapHandler) Analyze(c *gin.Context) {
	var req session.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	res, err := h.analyzer.Run(c.Request.Context(), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, res)
}

// SampleRequest is the body of POST /api/v1/sample. Unset scale factors are 1.
type SampleRequest struct {
	HeatmapData heatmap.IntensityMatrix `json:"heatmap_data"`
	ScaleX      *float64                `json:"scale_x"`
	ScaleY      *float64                `json:"scale_y"`
}

// Sample handles POST /api/v1/sample
func (h *HeatmapHandler) Sample(c *gin.Context) {
	var req SampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	scale := heatmap.ScaleFactors{X: 1, Y: 1}
	if req.ScaleX != nil {
		scale.X = *req.ScaleX
	}
	if req.ScaleY != nil {
		scale.Y = *req.ScaleY
	}

	ds, err := heatmap.SampleDataset(req.HeatmapData, scale)
	if err != nil {
		Fail(c, err)
		return
	}

	rows, cols := len(req.HeatmapData), len(req.HeatmapData[0])
	Success(c, gin.H{
		"step":    heatmap.Step(rows, cols),
		"count":   len(ds.Data),
		"dataset": ds,
	})
}

// Status handles GET /api/v1/status
func (h *HeatmapHandler) Status(c *gin.Context) {
	Success(c, h.analyzer.Status())
}
