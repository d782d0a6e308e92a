// Package analysis talks to the remote saliency analysis service.
//
// The service accepts {"image_url": "..."} and answers with
// {"heatmap_data": [[...]]} on success or {"error": "..."} on failure.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ironsheep/inertia-heatmap/internal/heatmap"
	"github.com/ironsheep/inertia-heatmap/internal/logging"
)

// DefaultEndpoint is the public inertia analysis service.
const DefaultEndpoint = "https://analizador-inercia-backend.onrender.com/analizar-inercia"

// maxResponseBytes caps the decoded response body. A 4000x3000 matrix of
// three-digit values is roughly 50 MB of JSON.
const maxResponseBytes = 256 << 20

var (
	// ErrEmptyImageURL is returned when the image URL is blank after trimming.
	ErrEmptyImageURL = errors.New("image URL is required")

	// ErrInvalidImageURL is returned when the image URL is not an absolute http(s) URL.
	ErrInvalidImageURL = errors.New("invalid image URL")

	// ErrMissingHeatmapData is returned when a successful response has no matrix.
	ErrMissingHeatmapData = errors.New("response has no heatmap data")
)

// APIError is a non-2xx answer from the analysis service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("analysis service returned %d: %s", e.StatusCode, e.Message)
}

// Request is the body sent to the analysis service.
type Request struct {
	ImageURL string `json:"image_url"`
}

// Response is the body returned by the analysis service.
type Response struct {
	HeatmapData heatmap.IntensityMatrix `json:"heatmap_data,omitempty"`
	Error       string                  `json:"error,omitempty"`
}

// Client posts image URLs to the analysis service.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the given endpoint. An empty endpoint
// selects DefaultEndpoint.
func NewClient(endpoint string, timeout time.Duration, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the analysis service URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// NormalizeImageURL trims whitespace and checks that raw is an absolute
// http or https URL.
func NormalizeImageURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmptyImageURL
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImageURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrInvalidImageURL, trimmed)
	}
	return trimmed, nil
}

// Analyze requests the saliency matrix for imageURL.
//
// The URL is validated before any request is made. Non-2xx responses are
// returned as *APIError carrying the service's error message, or "server
// error" when the body has none. The matrix itself is not validated here;
// heatmap.Sample does that.
func (c *Client) Analyze(ctx context.Context, imageURL string) (heatmap.IntensityMatrix, error) {
	imageURL, err := NormalizeImageURL(imageURL)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(Request{ImageURL: imageURL})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("analysis response",
		"endpoint", c.endpoint,
		"status", resp.StatusCode,
		"elapsed", time.Since(start))

	var out Response
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Error
		if decodeErr != nil || msg == "" {
			msg = "server error"
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", decodeErr)
	}
	if len(out.HeatmapData) == 0 {
		if out.Error != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: out.Error}
		}
		return nil, ErrMissingHeatmapData
	}

	return out.HeatmapData, nil
}
