// Package render paints heatmap datasets as translucent color overlays.
//
// A Renderer is owned by a single analysis run: create it with New for the
// display size of the image, hand it the sampled dataset with SetData, then
// read the colored layer with Image or the finished picture with Composite.
// Nothing is shared between renderers.
//
// Painting happens in two layers. The intensity layer accumulates one radial
// stamp per point using source-over alpha compositing, so overlapping points
// saturate towards 1 instead of overflowing. The intensity layer is smoothed
// with a Gaussian blur and then mapped through a 256-entry palette built from
// the gradient stops.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/inertia-heatmap/internal/heatmap"
)

// maxPixels bounds the renderer canvas.
const maxPixels = 40_000_000

// minWeight keeps low-value points faintly visible.
const minWeight = 0.01

// ErrInvalidSize is returned by New for empty or oversized canvases.
var ErrInvalidSize = errors.New("invalid canvas size")

// Renderer paints one dataset onto a width x height canvas.
type Renderer struct {
	width, height int
	cfg           Config
	palette       [256]color.NRGBA
	intensity     []float64
	layer         *image.NRGBA
	points        int
}

// New creates a renderer for a canvas of the given display size.
//
// Zero Radius and empty Gradient fields are filled from DefaultConfig; the
// result must pass Config.Validate.
func New(width, height int, cfg Config) (*Renderer, error) {
	if width <= 0 || height <= 0 || width > maxPixels/height {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Renderer{
		width:     width,
		height:    height,
		cfg:       cfg,
		intensity: make([]float64, width*height),
		layer:     image.NewNRGBA(image.Rect(0, 0, width, height)),
	}
	r.palette = buildPalette(cfg.Gradient)
	return r, nil
}

// Width returns the canvas width.
func (r *Renderer) Width() int { return r.width }

// Height returns the canvas height.
func (r *Renderer) Height() int { return r.height }

// Config returns the effective configuration.
func (r *Renderer) Config() Config { return r.cfg }

// Points returns how many points the last SetData painted.
func (r *Renderer) Points() int { return r.points }

// SetData clears the canvas and paints every point in ds.
//
// Points outside the canvas still contribute to the pixels their radius
// reaches. Values are normalised against ds.Min and ds.Max.
func (r *Renderer) SetData(ds heatmap.Dataset) {
	for i := range r.intensity {
		r.intensity[i] = 0
	}
	span := float64(ds.Max - ds.Min)

	for _, p := range ds.Data {
		w := 1.0
		if span > 0 {
			w = float64(p.Value-ds.Min) / span
		}
		if w < minWeight {
			w = minWeight
		}
		if w > 1 {
			w = 1
		}
		r.stamp(p.X, p.Y, w)
	}
	r.points = len(ds.Data)

	r.smooth()
	r.colorize()
}

// stamp merges one radial point into the intensity layer.
func (r *Renderer) stamp(cx, cy int, weight float64) {
	radius := float64(r.cfg.Radius)
	inner := (1 - r.cfg.Blur) * radius

	x0, x1 := max(cx-r.cfg.Radius, 0), min(cx+r.cfg.Radius, r.width-1)
	y0, y1 := max(cy-r.cfg.Radius, 0), min(cy+r.cfg.Radius, r.height-1)

	for y := y0; y <= y1; y++ {
		dy := float64(y - cy)
		row := y * r.width
		for x := x0; x <= x1; x++ {
			dx := float64(x - cx)
			d := math.Sqrt(dx*dx + dy*dy)
			if d > radius {
				continue
			}
			falloff := 1.0
			if d > inner {
				falloff = (radius - d) / (radius - inner)
			}
			a := weight * falloff
			if a <= 0 {
				continue
			}
			dst := r.intensity[row+x]
			r.intensity[row+x] = a + dst*(1-a)
		}
	}
}

// smooth blurs the intensity layer by a quarter of the soft radius.
func (r *Renderer) smooth() {
	sigma := r.cfg.Blur * float64(r.cfg.Radius) / 4
	if sigma <= 0.5 {
		return
	}

	gray := image.NewGray(image.Rect(0, 0, r.width, r.height))
	for i, v := range r.intensity {
		gray.Pix[i] = uint8(math.Round(v * 255))
	}

	blurred := blur.Gaussian(gray, sigma)
	for y := 0; y < r.height; y++ {
		for x := 0; x < r.width; x++ {
			// Gray converts to equal R, G and B channels.
			r.intensity[y*r.width+x] = float64(blurred.Pix[blurred.PixOffset(x, y)]) / 255
		}
	}
}

// colorize maps the intensity layer through the palette into the NRGBA layer.
func (r *Renderer) colorize() {
	maxA := r.cfg.MaxOpacity * 255
	minA := r.cfg.MinOpacity * 255

	for i, v := range r.intensity {
		off := i * 4
		a := v * 255
		if a < 1 {
			r.layer.Pix[off+0] = 0
			r.layer.Pix[off+1] = 0
			r.layer.Pix[off+2] = 0
			r.layer.Pix[off+3] = 0
			continue
		}

		c := r.palette[int(math.Min(a, 255))]
		switch {
		case a > maxA:
			a = maxA
		case a < minA:
			a = minA
		}

		r.layer.Pix[off+0] = c.R
		r.layer.Pix[off+1] = c.G
		r.layer.Pix[off+2] = c.B
		r.layer.Pix[off+3] = uint8(math.Round(a))
	}
}

// Image returns the colored overlay layer. The image is owned by the
// renderer and is repainted by the next SetData.
func (r *Renderer) Image() *image.NRGBA {
	return r.layer
}

// Composite resizes base to the canvas size and draws the overlay on top.
func (r *Renderer) Composite(base image.Image) *image.NRGBA {
	var bg *image.NRGBA
	b := base.Bounds()
	if b.Dx() == r.width && b.Dy() == r.height {
		bg = imaging.Clone(base)
	} else {
		bg = imaging.Resize(base, r.width, r.height, imaging.Lanczos)
	}
	return imaging.Overlay(bg, r.layer, image.Pt(0, 0), 1.0)
}

// buildPalette samples the gradient at 256 evenly spaced offsets. Offsets
// below the first stop take the first stop's color.
func buildPalette(stops []GradientStop) [256]color.NRGBA {
	colors := make([]colorful.Color, len(stops))
	for i, s := range stops {
		// Validated by Config.Validate.
		colors[i], _ = colorful.Hex(s.Color)
	}

	var palette [256]color.NRGBA
	for i := range palette {
		t := float64(i) / 255
		c := colors[len(colors)-1]
		for k := range stops {
			if t <= stops[k].Offset {
				if k == 0 {
					c = colors[0]
				} else {
					lo, hi := stops[k-1].Offset, stops[k].Offset
					c = colors[k-1].BlendRgb(colors[k], (t-lo)/(hi-lo))
				}
				break
			}
		}
		cr, cg, cb := c.Clamped().RGB255()
		palette[i] = color.NRGBA{R: cr, G: cg, B: cb, A: 255}
	}
	return palette
}
