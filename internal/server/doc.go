// Package server implements the MCP (Model Context Protocol) server for inertia heatmaps.
//
// The server exposes the analysis pipeline as JSON-RPC 2.0 tools so an MCP
// client can ask where an image is visually quiet: the saliency service scores
// every pixel, the sampler inverts and thins those scores into weighted points,
// and the renderer paints them over the image.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - heatmap_analyze: Full run for an image URL (service call, sampling, optional overlay)
//   - heatmap_sample: Sample a caller-supplied matrix into display-space points
//   - heatmap_render: Paint a dataset, optionally over an image
//   - image_dimensions: Natural size, display size and scale factors
//   - heatmap_status: State of the latest analysis
//
// heatmap_analyze is serialised by the session.Analyzer; a call made while
// another run is active fails with "an analysis is already in progress".
//
// # Image Caching
//
// Images loaded by heatmap_render and image_dimensions are cached by source
// for the lifetime of the process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(server.Options{Analyzer: analyzer, Cache: cache})
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
