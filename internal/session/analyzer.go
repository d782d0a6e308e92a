// Package session runs one inertia analysis end to end.
//
// An Analyzer fetches the saliency matrix for an image URL, loads the image
// to learn its natural size, works out the display size and scale factors,
// samples the matrix into heatmap points and paints them with a renderer
// created for that run alone. At most one run is in flight per Analyzer; a
// concurrent Run fails immediately with ErrBusy.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/inertia-heatmap/internal/analysis"
	"github.com/ironsheep/inertia-heatmap/internal/heatmap"
	"github.com/ironsheep/inertia-heatmap/internal/imaging"
	"github.com/ironsheep/inertia-heatmap/internal/logging"
	"github.com/ironsheep/inertia-heatmap/internal/render"
)

// ErrBusy is returned when another analysis is still running.
var ErrBusy = errors.New("an analysis is already in progress")

// MatrixSource returns the saliency matrix for an image URL.
type MatrixSource interface {
	Analyze(ctx context.Context, imageURL string) (heatmap.IntensityMatrix, error)
}

// ImageLoader returns the decoded image for a source URL or path.
type ImageLoader interface {
	Load(ctx context.Context, source string) (image.Image, error)
}

// Request describes one analysis run.
type Request struct {
	// ImageURL is the image to analyse. Surrounding whitespace is ignored.
	ImageURL string `json:"image_url"`

	// DisplayWidth caps the rendered width. Zero uses the Analyzer default;
	// a negative value keeps the natural width.
	DisplayWidth int `json:"display_width,omitempty"`

	// Render overrides the Analyzer's render settings when non-nil.
	Render *render.Config `json:"render,omitempty"`

	// IncludeOverlay adds the composited PNG to the result.
	IncludeOverlay bool `json:"include_overlay,omitempty"`
}

// Result is the outcome of a successful run.
type Result struct {
	RunID    string               `json:"run_id"`
	ImageURL string               `json:"image_url"`
	Natural  heatmap.Dimensions   `json:"natural"`
	Display  heatmap.Dimensions   `json:"display"`
	Scale    heatmap.ScaleFactors `json:"scale"`
	Step     int                  `json:"step"`
	Dataset  heatmap.Dataset      `json:"dataset"`
	Overlay  *imaging.PNGResult   `json:"overlay,omitempty"`
	Elapsed  string               `json:"elapsed"`

	// Composite is the decoded form of Overlay.
	Composite *image.NRGBA `json:"-"`
}

// Options configures an Analyzer.
type Options struct {
	DisplayWidth int
	Render       render.Config
	Logger       *slog.Logger
}

// Analyzer serialises analysis runs and reports their status.
type Analyzer struct {
	source MatrixSource
	loader ImageLoader
	opts   Options
	logger *slog.Logger

	run    sync.Mutex
	mu     sync.RWMutex
	status Status
}

// NewAnalyzer creates an Analyzer. A nil Options.Logger discards logs and a
// zero Options.Render uses render.DefaultConfig.
func NewAnalyzer(source MatrixSource, loader ImageLoader, opts Options) *Analyzer {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Render.Radius == 0 && opts.Render.MaxOpacity == 0 && len(opts.Render.Gradient) == 0 {
		opts.Render = render.DefaultConfig()
	}
	return &Analyzer{
		source: source,
		loader: loader,
		opts:   opts,
		logger: opts.Logger,
		status: Status{State: StateIdle, Message: StateIdle.DefaultMessage()},
	}
}

// Status returns the latest run status.
func (a *Analyzer) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

func (a *Analyzer) setStatus(s Status) {
	s.UpdatedAt = time.Now().UTC()
	a.mu.Lock()
	a.status = s
	a.mu.Unlock()
}

// Run performs one analysis.
//
// Errors from every stage are returned unchanged (wrapped with the stage
// name) so callers can match analysis.ErrEmptyImageURL, *analysis.APIError,
// heatmap.ErrInvalidMatrixShape and the rest with errors.Is and errors.As.
func (a *Analyzer) Run(ctx context.Context, req Request) (*Result, error) {
	if !a.run.TryLock() {
		return nil, ErrBusy
	}
	defer a.run.Unlock()

	imageURL, err := analysis.NormalizeImageURL(req.ImageURL)
	if err != nil {
		a.setStatus(Status{State: StateFailed, Message: err.Error()})
		return nil, err
	}

	runID := uuid.NewString()
	log := a.logger.With("run_id", runID, "image_url", imageURL)
	start := time.Now()

	a.setStatus(Status{State: StateAnalyzing, Message: StateAnalyzing.DefaultMessage(), RunID: runID})
	log.Info("analysis started")

	result, err := a.execute(ctx, log, runID, imageURL, req)
	if err != nil {
		a.setStatus(Status{State: StateFailed, Message: err.Error(), RunID: runID})
		log.Warn("analysis failed", "error", err, "elapsed", time.Since(start))
		return nil, err
	}

	result.Elapsed = time.Since(start).Round(time.Millisecond).String()
	a.setStatus(Status{State: StateCompleted, Message: StateCompleted.DefaultMessage(), RunID: runID})
	log.Info("analysis completed",
		"points", len(result.Dataset.Data),
		"step", result.Step,
		"display", fmt.Sprintf("%dx%d", result.Display.Width, result.Display.Height),
		"elapsed", result.Elapsed)
	return result, nil
}

func (a *Analyzer) execute(ctx context.Context, log *slog.Logger, runID, imageURL string, req Request) (*Result, error) {
	matrix, err := a.source.Analyze(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	rows, cols, err := matrix.Shape()
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	log.Debug("matrix received", "rows", rows, "cols", cols)

	img, err := a.loader.Load(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}

	width := req.DisplayWidth
	if width == 0 {
		width = a.opts.DisplayWidth
	}
	natural := imaging.NaturalSize(img)
	display := imaging.FitDisplay(natural, width)
	scale, err := heatmap.ScaleFactorsFor(natural, display)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	if natural.Width != cols || natural.Height != rows {
		log.Warn("matrix size differs from image size",
			"matrix", fmt.Sprintf("%dx%d", cols, rows),
			"image", fmt.Sprintf("%dx%d", natural.Width, natural.Height))
	}

	ds, err := heatmap.SampleDataset(matrix, scale)
	if err != nil {
		return nil, fmt.Errorf("sample: %w", err)
	}

	result := &Result{
		RunID:    runID,
		ImageURL: imageURL,
		Natural:  natural,
		Display:  display,
		Scale:    scale,
		Step:     heatmap.Step(rows, cols),
		Dataset:  ds,
	}

	if req.IncludeOverlay {
		cfg := a.opts.Render
		if req.Render != nil {
			cfg = *req.Render
		}
		composite, err := PaintImage(img, display, ds, cfg)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		overlay, err := imaging.EncodePNG(composite)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		result.Composite = composite
		result.Overlay = overlay
	}

	return result, nil
}

// PaintImage renders ds over img at the display size using a renderer that
// lives only for this call.
func PaintImage(img image.Image, display heatmap.Dimensions, ds heatmap.Dataset, cfg render.Config) (*image.NRGBA, error) {
	r, err := render.New(display.Width, display.Height, cfg)
	if err != nil {
		return nil, err
	}
	r.SetData(ds)
	return r.Composite(img), nil
}
