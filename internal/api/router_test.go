package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ironsheep/inertia-heatmap/internal/analysis"
	"github.com/ironsheep/inertia-heatmap/internal/heatmap"
	"github.com/ironsheep/inertia-heatmap/internal/logging"
	"github.com/ironsheep/inertia-heatmap/internal/render"
	"github.com/ironsheep/inertia-heatmap/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSource struct {
	matrix  heatmap.IntensityMatrix
	err     error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeSource) Analyze(ctx context.Context, imageURL string) (heatmap.IntensityMatrix, error) {
	if f.entered != nil {
		close(f.entered)
		<-f.release
	}
	return f.matrix, f.err
}

type fakeLoader struct{}

func (fakeLoader) Load(ctx context.Context, source string) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 4, 2)), nil
}

func newRouter(src *fakeSource) *gin.Engine {
	return SetupRouter(Options{
		Analyzer: session.NewAnalyzer(src, fakeLoader{}, session.Options{}),
		Version:  "test",
	})
}

// do sends a request and decodes the envelope.
func do(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp Response
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response body %q: %v", w.Body.String(), err)
		}
	}
	return w, resp
}

func TestHealth(t *testing.T) {
	r := newRouter(&fakeSource{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body: got %v", body)
	}
}

func TestCORS_Preflight(t *testing.T) {
	r := newRouter(&fakeSource{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/analyze", nil))

	if w.Code != http.StatusNoContent {
		t.Errorf("status: got %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin: got %q", got)
	}
}

func TestAnalyze(t *testing.T) {
	r := newRouter(&fakeSource{matrix: heatmap.IntensityMatrix{{255, 0, 255, 255}, {255, 255, 255, 255}}})

	w, resp := do(t, r, http.MethodPost, "/api/v1/analyze", `{"image_url":"https://example.com/a.png"}`)
	if w.Code != http.StatusOK || resp.Code != 0 {
		t.Fatalf("got %d %+v", w.Code, resp)
	}

	raw, _ := json.Marshal(resp.Data)
	var res session.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		t.Fatalf("invalid result: %v", err)
	}
	if len(res.Dataset.Data) != 1 || res.Dataset.Data[0] != (heatmap.WeightedPoint{X: 1, Y: 0, Value: 255}) {
		t.Errorf("points: got %+v", res.Dataset.Data)
	}
	if res.Display != (heatmap.Dimensions{Width: 4, Height: 2}) {
		t.Errorf("display: got %+v", res.Display)
	}

	_, resp = do(t, r, http.MethodGet, "/api/v1/status", "")
	status := resp.Data.(map[string]interface{})
	if status["state"] != string(session.StateCompleted) || status["run_id"] != res.RunID {
		t.Errorf("status: got %v", status)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name   string
		src    *fakeSource
		body   string
		status int
	}{
		{"malformed body", &fakeSource{}, `{"image_url":`, http.StatusBadRequest},
		{"empty url", &fakeSource{}, `{"image_url":"  "}`, http.StatusBadRequest},
		{"relative url", &fakeSource{}, `{"image_url":"/a.png"}`, http.StatusBadRequest},
		{
			"service error",
			&fakeSource{err: &analysis.APIError{StatusCode: 500, Message: "model crashed"}},
			`{"image_url":"https://example.com/a.png"}`,
			http.StatusBadGateway,
		},
		{
			"ragged matrix",
			&fakeSource{matrix: heatmap.IntensityMatrix{{1, 2}, {3}}},
			`{"image_url":"https://example.com/a.png"}`,
			http.StatusBadRequest,
		},
		{
			"bad render config",
			&fakeSource{matrix: heatmap.IntensityMatrix{{1, 2}}},
			`{"image_url":"https://example.com/a.png","include_overlay":true,"render":{"radius":5,"max_opacity":3}}`,
			http.StatusBadRequest,
		},
		{
			"network failure",
			&fakeSource{err: errors.New("connection refused")},
			`{"image_url":"https://example.com/a.png"}`,
			http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := do(t, newRouter(tt.src), http.MethodPost, "/api/v1/analyze", tt.body)
			if w.Code != tt.status {
				t.Errorf("status: got %d, want %d (%s)", w.Code, tt.status, resp.Message)
			}
			if resp.Code != tt.status || resp.Message == "" {
				t.Errorf("envelope: got %+v", resp)
			}
		})
	}
}

func TestAnalyze_Busy(t *testing.T) {
	src := &fakeSource{
		matrix:  heatmap.IntensityMatrix{{0}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	r := newRouter(src)

	done := make(chan int, 1)
	go func() {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(`{"image_url":"https://example.com/a.png"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		done <- w.Code
	}()

	select {
	case <-src.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first request never reached the analysis service")
	}

	w, resp := do(t, r, http.MethodPost, "/api/v1/analyze", `{"image_url":"https://example.com/b.png"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("second request: got %d, want 409 (%s)", w.Code, resp.Message)
	}

	close(src.release)
	if code := <-done; code != http.StatusOK {
		t.Errorf("first request: got %d, want 200", code)
	}
}

func TestSample(t *testing.T) {
	r := newRouter(&fakeSource{})

	w, resp := do(t, r, http.MethodPost, "/api/v1/sample", `{"heatmap_data":[[0,5],[250,255]],"scale_x":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d (%s)", w.Code, resp.Message)
	}

	data := resp.Data.(map[string]interface{})
	if data["step"] != float64(1) || data["count"] != float64(2) {
		t.Errorf("data: got %v", data)
	}

	raw, _ := json.Marshal(data["dataset"])
	var ds heatmap.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		t.Fatalf("invalid dataset: %v", err)
	}
	want := []heatmap.WeightedPoint{{X: 0, Y: 0, Value: 255}, {X: 2, Y: 0, Value: 250}}
	for i := range want {
		if i >= len(ds.Data) || ds.Data[i] != want[i] {
			t.Errorf("point %d: got %+v, want %+v", i, ds.Data, want[i])
		}
	}
}

func TestSample_Errors(t *testing.T) {
	r := newRouter(&fakeSource{})

	for _, body := range []string{
		`not json`,
		`{"heatmap_data":[]}`,
		`{"heatmap_data":[[1,2],[3]]}`,
		`{"heatmap_data":[[1,-4]]}`,
		`{"heatmap_data":[[1]],"scale_y":0}`,
	} {
		t.Run(body, func(t *testing.T) {
			w, resp := do(t, r, http.MethodPost, "/api/v1/sample", body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400 (%s)", w.Code, resp.Message)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{session.ErrBusy, http.StatusConflict},
		{fmt.Errorf("analysis: %w", analysis.ErrEmptyImageURL), http.StatusBadRequest},
		{fmt.Errorf("sample: %w", heatmap.ErrInvalidScaleFactor), http.StatusBadRequest},
		{fmt.Errorf("render: %w", render.ErrInvalidConfig), http.StatusBadRequest},
		{fmt.Errorf("analysis: %w", &analysis.APIError{StatusCode: 404, Message: "x"}), http.StatusBadGateway},
		{analysis.ErrMissingHeatmapData, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v): got %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestLogger_RecordsErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New("debug", &buf)
	r := SetupRouter(Options{
		Analyzer: session.NewAnalyzer(&fakeSource{}, fakeLoader{}, session.Options{}),
		Logger:   logger,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(`{"image_url":""}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if !strings.Contains(out, "path=/api/v1/analyze") || !strings.Contains(out, "status=400") {
		t.Errorf("log line missing request fields: %s", out)
	}
	if !strings.Contains(out, "image URL is required") {
		t.Errorf("log line missing error: %s", out)
	}
}
