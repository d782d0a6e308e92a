package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/inertia-heatmap/internal/heatmap"
	"github.com/ironsheep/inertia-heatmap/internal/imaging"
	"github.com/ironsheep/inertia-heatmap/internal/render"
	"github.com/ironsheep/inertia-heatmap/internal/session"
)

// errNoAnalyzer is returned by heatmap_analyze when the server was built
// without an analysis pipeline.
var errNoAnalyzer = errors.New("analysis is not configured")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "heatmap_analyze").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Debug("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	case "heatmap_analyze":
		return s.handleHeatmapAnalyze(ctx, args)
	case "heatmap_sample":
		return s.handleHeatmapSample(args)
	case "heatmap_render":
		return s.handleHeatmapRender(ctx, args)
	case "image_dimensions":
		return s.handleImageDimensions(ctx, args)
	case "heatmap_status":
		return s.handleHeatmapStatus()
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// renderArgs carries optional overrides of the server's render settings.
type renderArgs struct {
	Radius     *int                  `json:"radius"`
	MaxOpacity *float64              `json:"max_opacity"`
	MinOpacity *float64              `json:"min_opacity"`
	Blur       *float64              `json:"blur"`
	Gradient   []render.GradientStop `json:"gradient"`
}

func (a renderArgs) apply(base render.Config) render.Config {
	if a.Radius != nil {
		base.Radius = *a.Radius
	}
	if a.MaxOpacity != nil {
		base.MaxOpacity = *a.MaxOpacity
	}
	if a.MinOpacity != nil {
		base.MinOpacity = *a.MinOpacity
	}
	if a.Blur != nil {
		base.Blur = *a.Blur
	}
	if len(a.Gradient) > 0 {
		base.Gradient = a.Gradient
	}
	return base
}

// === Analysis Handlers ===

type heatmapAnalyzeArgs struct {
	ImageURL       string `json:"image_url"`
	DisplayWidth   int    `json:"display_width"`
	IncludeOverlay bool   `json:"include_overlay"`
	renderArgs
}

func (s *Server) handleHeatmapAnalyze(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a heatmapAnalyzeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if s.analyzer == nil {
		return nil, errNoAnalyzer
	}

	cfg := a.renderArgs.apply(s.render)
	return s.analyzer.Run(ctx, session.Request{
		ImageURL:       a.ImageURL,
		DisplayWidth:   a.DisplayWidth,
		IncludeOverlay: a.IncludeOverlay,
		Render:         &cfg,
	})
}

type heatmapSampleArgs struct {
	HeatmapData heatmap.IntensityMatrix `json:"heatmap_data"`
	ScaleX      *float64                `json:"scale_x"`
	ScaleY      *float64                `json:"scale_y"`
}

// scale returns the requested factors, 1.0 on any axis left unset.
func (a heatmapSampleArgs) scale() heatmap.ScaleFactors {
	s := heatmap.ScaleFactors{X: 1, Y: 1}
	if a.ScaleX != nil {
		s.X = *a.ScaleX
	}
	if a.ScaleY != nil {
		s.Y = *a.ScaleY
	}
	return s
}

// SampleResult is the heatmap_sample output.
type SampleResult struct {
	Rows    int             `json:"rows"`
	Columns int             `json:"columns"`
	Step    int             `json:"step"`
	Count   int             `json:"count"`
	Dataset heatmap.Dataset `json:"dataset"`
}

func (s *Server) handleHeatmapSample(args json.RawMessage) (interface{}, error) {
	var a heatmapSampleArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	ds, err := heatmap.SampleDataset(a.HeatmapData, a.scale())
	if err != nil {
		return nil, err
	}
	rows, cols := len(a.HeatmapData), len(a.HeatmapData[0])
	return &SampleResult{
		Rows:    rows,
		Columns: cols,
		Step:    heatmap.Step(rows, cols),
		Count:   len(ds.Data),
		Dataset: ds,
	}, nil
}

// === Rendering Handlers ===

type heatmapRenderArgs struct {
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	Dataset  heatmap.Dataset `json:"dataset"`
	ImageURL string          `json:"image_url"`
	renderArgs
}

func (s *Server) handleHeatmapRender(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a heatmapRenderArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Dataset.Max == 0 && a.Dataset.Min == 0 {
		a.Dataset.Max = heatmap.MaxValue
	}

	r, err := render.New(a.Width, a.Height, a.renderArgs.apply(s.render))
	if err != nil {
		return nil, err
	}
	r.SetData(a.Dataset)

	if a.ImageURL == "" {
		return imaging.EncodePNG(r.Image())
	}
	img, err := s.cache.Load(ctx, a.ImageURL)
	if err != nil {
		return nil, err
	}
	return imaging.EncodePNG(r.Composite(img))
}

// === Image Handlers ===

type imageDimensionsArgs struct {
	ImageURL     string `json:"image_url"`
	DisplayWidth int    `json:"display_width"`
}

func (s *Server) handleImageDimensions(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageDimensionsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.ImageURL == "" {
		return nil, fmt.Errorf("image_url is required")
	}
	if a.DisplayWidth == 0 {
		a.DisplayWidth = s.displayWidth
	}
	return imaging.GetDimensions(ctx, s.cache, a.ImageURL, a.DisplayWidth)
}

// === Status Handlers ===

func (s *Server) handleHeatmapStatus() (interface{}, error) {
	if s.analyzer == nil {
		return nil, errNoAnalyzer
	}
	return s.analyzer.Status(), nil
}
