package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// renderProperties are the optional overlay settings shared by tools that paint.
func renderProperties() map[string]interface{} {
	return map[string]interface{}{
		"radius": map[string]interface{}{
			"type":        "integer",
			"description": "Point radius in display pixels. Default 20",
		},
		"max_opacity": map[string]interface{}{
			"type":        "number",
			"description": "Maximum overlay opacity (0-1). Default 0.6",
		},
		"min_opacity": map[string]interface{}{
			"type":        "number",
			"description": "Minimum opacity of painted pixels (0-1). Default 0",
		},
		"blur": map[string]interface{}{
			"type":        "number",
			"description": "Soft fraction of each point's radius (0-1). Default 0.75",
		},
		"gradient": map[string]interface{}{
			"type":        "array",
			"description": "Color stops as {offset, color}; offsets increasing within (0,1], colors as #RRGGBB",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"offset": map[string]interface{}{"type": "number"},
					"color":  map[string]interface{}{"type": "string"},
				},
				"required": []string{"offset", "color"},
			},
		},
	}
}

func withRenderProperties(props map[string]interface{}) map[string]interface{} {
	for k, v := range renderProperties() {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "heatmap_analyze",
			Description: "Send an image URL to the saliency analysis service and return the inertia heatmap: low-saliency regions become high heat. Returns display size, scale factors, sampling step and the weighted point dataset, optionally with the overlay composited onto the image as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withRenderProperties(map[string]interface{}{
					"image_url": map[string]interface{}{
						"type":        "string",
						"description": "Absolute http(s) URL of the image to analyse",
					},
					"display_width": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum display width; wider images are scaled down proportionally. Default: server setting",
					},
					"include_overlay": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return the heatmap composited onto the image as base64 PNG. Default false",
						"default":     false,
					},
				}),
				"required": []string{"image_url"},
			},
		},
		{
			Name:        "heatmap_sample",
			Description: "Convert a saliency matrix (rows of 0-255 integers) into weighted display-space heatmap points using stride sampling, value inversion and the visibility threshold.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"heatmap_data": map[string]interface{}{
						"type":        "array",
						"description": "Rectangular matrix of saliency scores, indexed [row][column]",
						"items": map[string]interface{}{
							"type":  "array",
							"items": map[string]interface{}{"type": "integer"},
						},
					},
					"scale_x": map[string]interface{}{
						"type":        "number",
						"description": "Displayed/natural width ratio. Default 1.0",
						"default":     1.0,
					},
					"scale_y": map[string]interface{}{
						"type":        "number",
						"description": "Displayed/natural height ratio. Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"heatmap_data"},
			},
		},
		{
			Name:        "heatmap_render",
			Description: "Paint a heatmap dataset onto a canvas of the given size and return it as base64 PNG. When image_url is given the overlay is composited onto that image scaled to the canvas.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withRenderProperties(map[string]interface{}{
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Canvas width in pixels",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Canvas height in pixels",
					},
					"dataset": map[string]interface{}{
						"type":        "object",
						"description": "Dataset as {min, max, data: [{x, y, value}]}",
					},
					"image_url": map[string]interface{}{
						"type":        "string",
						"description": "Optional image URL or path to composite under the overlay",
					},
				}),
				"required": []string{"width", "height", "dataset"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the natural width and height of an image, the size it is displayed at for a maximum display width, and the resulting scale factors.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_url": map[string]interface{}{
						"type":        "string",
						"description": "Image URL or absolute file path",
					},
					"display_width": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum display width. Default: server setting",
					},
				},
				"required": []string{"image_url"},
			},
		},
		{
			Name:        "heatmap_status",
			Description: "Report the state of the most recent analysis: idle, analyzing, completed or failed, with a message.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
