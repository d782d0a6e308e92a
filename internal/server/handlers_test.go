package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/inertia-heatmap/internal/analysis"
	"github.com/ironsheep/inertia-heatmap/internal/heatmap"
	"github.com/ironsheep/inertia-heatmap/internal/imaging"
	"github.com/ironsheep/inertia-heatmap/internal/session"
)

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "handler-test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool sends a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()

	params, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  params,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeToolResult unmarshals the text content of a successful tool call into v.
func decodeToolResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", content)
	}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), v); err != nil {
		t.Fatalf("failed to decode tool result: %v", err)
	}
}

func decodePNG(t *testing.T, res imaging.PNGResult) image.Image {
	t.Helper()

	raw, err := base64.StdEncoding.DecodeString(res.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("invalid png: %v", err)
	}
	return img
}

func TestHandleToolsCall_HeatmapSample(t *testing.T) {
	s := New(Options{})

	resp := callTool(t, s, "heatmap_sample", map[string]interface{}{
		"heatmap_data": [][]int{{0, 255}, {255, 0}},
	})

	var res SampleResult
	decodeToolResult(t, resp, &res)

	if res.Rows != 2 || res.Columns != 2 || res.Step != 1 {
		t.Errorf("shape: got %dx%d step %d", res.Rows, res.Columns, res.Step)
	}
	want := []heatmap.WeightedPoint{{X: 0, Y: 0, Value: 255}, {X: 1, Y: 1, Value: 255}}
	if res.Count != len(want) || len(res.Dataset.Data) != len(want) {
		t.Fatalf("points: got %+v", res.Dataset.Data)
	}
	for i := range want {
		if res.Dataset.Data[i] != want[i] {
			t.Errorf("point %d: got %+v, want %+v", i, res.Dataset.Data[i], want[i])
		}
	}
	if res.Dataset.Min != 0 || res.Dataset.Max != 255 {
		t.Errorf("dataset range: got %d-%d", res.Dataset.Min, res.Dataset.Max)
	}
}

func TestHandleToolsCall_HeatmapSampleScaled(t *testing.T) {
	s := New(Options{})

	resp := callTool(t, s, "heatmap_sample", map[string]interface{}{
		"heatmap_data": [][]int{{0, 0, 0, 0}, {0, 0, 0, 0}},
		"scale_x":      0.5,
		"scale_y":      0.5,
	})

	var res SampleResult
	decodeToolResult(t, resp, &res)

	if res.Count != 8 {
		t.Fatalf("count: got %d, want 8", res.Count)
	}
	// Column 3 maps to floor(1.5)
	if last := res.Dataset.Data[7]; last.X != 1 || last.Y != 0 {
		t.Errorf("last point: got %+v, want (1,0)", last)
	}
}

func TestHandleToolsCall_HeatmapSampleErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]interface{}
		wantMsg string
	}{
		{"empty matrix", map[string]interface{}{"heatmap_data": [][]int{}}, "matrix"},
		{"ragged matrix", map[string]interface{}{"heatmap_data": [][]int{{1, 2}, {3}}}, "matrix"},
		{"out of range", map[string]interface{}{"heatmap_data": [][]int{{1, 300}}}, "intensity"},
		{"negative scale", map[string]interface{}{"heatmap_data": [][]int{{1}}, "scale_x": -1.0}, "scale"},
		{"explicit zero scale", map[string]interface{}{"heatmap_data": [][]int{{1}}, "scale_y": 0.0}, "scale"},
	}

	s := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "heatmap_sample", tt.args)
			if resp.Error == nil {
				t.Fatal("expected error response")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("Error.Code: got %d, want -32000", resp.Error.Code)
			}
			if data, _ := resp.Error.Data.(string); !strings.Contains(data, tt.wantMsg) {
				t.Errorf("Error.Data: got %q, want mention of %q", data, tt.wantMsg)
			}
		})
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := New(Options{DisplayWidth: 800})
	imgPath := createTestImageFile(t, 1600, 800, color.White)

	resp := callTool(t, s, "image_dimensions", map[string]interface{}{"image_url": imgPath})

	var res imaging.DimensionsResult
	decodeToolResult(t, resp, &res)

	if res.Natural != (heatmap.Dimensions{Width: 1600, Height: 800}) {
		t.Errorf("Natural: got %+v", res.Natural)
	}
	if res.Display != (heatmap.Dimensions{Width: 800, Height: 400}) {
		t.Errorf("Display: got %+v", res.Display)
	}
	if res.Scale.X != 0.5 || res.Scale.Y != 0.5 {
		t.Errorf("Scale: got %+v", res.Scale)
	}

	// An explicit width overrides the server default
	resp = callTool(t, s, "image_dimensions", map[string]interface{}{"image_url": imgPath, "display_width": 3200})
	decodeToolResult(t, resp, &res)
	if res.Display != res.Natural {
		t.Errorf("narrow image should keep its size, got %+v", res.Display)
	}
}

func TestHandleToolsCall_ImageDimensionsMissing(t *testing.T) {
	s := New(Options{})

	for _, args := range []map[string]interface{}{
		{},
		{"image_url": filepath.Join(t.TempDir(), "missing.png")},
	} {
		if resp := callTool(t, s, "image_dimensions", args); resp.Error == nil {
			t.Errorf("args %v: expected error", args)
		}
	}
}

func TestHandleToolsCall_HeatmapRender(t *testing.T) {
	s := New(Options{})

	resp := callTool(t, s, "heatmap_render", map[string]interface{}{
		"width":  40,
		"height": 30,
		"radius": 5,
		"dataset": heatmap.Dataset{
			Min:  0,
			Max:  255,
			Data: []heatmap.WeightedPoint{{X: 20, Y: 15, Value: 255}},
		},
	})

	var res imaging.PNGResult
	decodeToolResult(t, resp, &res)

	if res.Width != 40 || res.Height != 30 || res.MimeType != "image/png" {
		t.Errorf("result: got %dx%d %s", res.Width, res.Height, res.MimeType)
	}

	img := decodePNG(t, res)
	if _, _, _, a := img.At(20, 15).RGBA(); a == 0 {
		t.Error("point center should be painted")
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Error("corner far from the point should stay transparent")
	}
}

func TestHandleToolsCall_HeatmapRenderOverImage(t *testing.T) {
	s := New(Options{})
	imgPath := createTestImageFile(t, 80, 60, color.White)

	resp := callTool(t, s, "heatmap_render", map[string]interface{}{
		"width":     40,
		"height":    30,
		"image_url": imgPath,
		"dataset":   heatmap.Dataset{Max: 255},
	})

	var res imaging.PNGResult
	decodeToolResult(t, resp, &res)

	img := decodePNG(t, res)
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Errorf("composite size: got %v", img.Bounds())
	}
	r, g, b, a := img.At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 || a>>8 != 255 {
		t.Errorf("empty dataset should leave the base image untouched, got %d %d %d %d", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestHandleToolsCall_HeatmapRenderErrors(t *testing.T) {
	s := New(Options{})

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"zero width", map[string]interface{}{"width": 0, "height": 10, "dataset": heatmap.Dataset{}}},
		{"huge canvas", map[string]interface{}{"width": int64(1) << 32, "height": int64(1) << 32, "dataset": heatmap.Dataset{}}},
		{"bad opacity", map[string]interface{}{"width": 10, "height": 10, "max_opacity": 1.5, "dataset": heatmap.Dataset{}}},
		{"bad gradient", map[string]interface{}{
			"width": 10, "height": 10, "dataset": heatmap.Dataset{},
			"gradient": []map[string]interface{}{{"offset": 0.5, "color": "not-a-color"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := callTool(t, s, "heatmap_render", tt.args); resp.Error == nil {
				t.Error("expected error response")
			}
		})
	}
}

func TestHandleToolsCall_HeatmapAnalyze(t *testing.T) {
	var imgBuf bytes.Buffer
	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for i := range src.Pix {
		src.Pix[i] = 255
	}
	if err := png.Encode(&imgBuf, src); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(imgBuf.Bytes())
	}))
	defer images.Close()

	var gotURL string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req analysis.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotURL = req.ImageURL
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"heatmap_data":[[255,255,0,255],[255,255,255,255]]}`))
	}))
	defer api.Close()

	cache := imaging.NewImageCache(images.Client())
	analyzer := session.NewAnalyzer(analysis.NewClient(api.URL, 5*time.Second), cache, session.Options{})
	s := New(Options{Analyzer: analyzer, Cache: cache})

	resp := callTool(t, s, "heatmap_analyze", map[string]interface{}{
		"image_url":       "  " + images.URL + "/photo.png ",
		"include_overlay": true,
		"radius":          2,
	})

	var res session.Result
	decodeToolResult(t, resp, &res)

	if gotURL != images.URL+"/photo.png" {
		t.Errorf("service saw url %q", gotURL)
	}
	if len(res.Dataset.Data) != 1 || res.Dataset.Data[0] != (heatmap.WeightedPoint{X: 2, Y: 0, Value: 255}) {
		t.Errorf("points: got %+v", res.Dataset.Data)
	}
	if res.Overlay == nil || res.Overlay.Width != 4 || res.Overlay.Height != 2 {
		t.Errorf("overlay: got %+v", res.Overlay)
	}

	resp = callTool(t, s, "heatmap_status", nil)
	var st session.Status
	decodeToolResult(t, resp, &st)
	if st.State != session.StateCompleted || st.RunID != res.RunID {
		t.Errorf("status: got %+v", st)
	}
}

func TestHandleToolsCall_HeatmapAnalyzeServiceError(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"image could not be downloaded"}`))
	}))
	defer api.Close()

	analyzer := session.NewAnalyzer(analysis.NewClient(api.URL, 5*time.Second), imaging.NewImageCache(nil), session.Options{})
	s := New(Options{Analyzer: analyzer})

	resp := callTool(t, s, "heatmap_analyze", map[string]interface{}{"image_url": "https://example.com/a.png"})
	if resp.Error == nil {
		t.Fatal("expected error response")
	}
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, "image could not be downloaded") {
		t.Errorf("Error.Data: got %q", data)
	}

	var st session.Status
	decodeToolResult(t, callTool(t, s, "heatmap_status", nil), &st)
	if st.State != session.StateFailed {
		t.Errorf("status: got %s, want failed", st.State)
	}
}

func TestHandleToolsCall_NoAnalyzer(t *testing.T) {
	s := New(Options{})

	for _, name := range []string{"heatmap_analyze", "heatmap_status"} {
		resp := callTool(t, s, name, map[string]interface{}{"image_url": "https://example.com/a.png"})
		if resp.Error == nil {
			t.Errorf("%s: expected error without analyzer", name)
		}
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := New(Options{})

	resp := callTool(t, s, "image_ocr_full", map[string]interface{}{})
	if resp.Error == nil {
		t.Fatal("expected error response")
	}
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, "unknown tool") {
		t.Errorf("Error.Data: got %q", data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New(Options{})

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp == nil || resp.Error == nil {
		t.Fatal("expected error response")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error.Code: got %d, want -32602", resp.Error.Code)
	}
}

func TestRenderArgs_Apply(t *testing.T) {
	s := New(Options{})
	radius := 7
	blur := 0.0

	cfg := renderArgs{Radius: &radius, Blur: &blur}.apply(s.render)
	if cfg.Radius != 7 || cfg.Blur != 0 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.MaxOpacity != s.render.MaxOpacity || len(cfg.Gradient) != len(s.render.Gradient) {
		t.Errorf("unset fields should keep server values: %+v", cfg)
	}
}
