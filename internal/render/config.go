package render

import (
	"errors"
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidConfig is returned by Config.Validate and New.
var ErrInvalidConfig = errors.New("invalid render config")

// GradientStop maps a normalised intensity (0-1] to a color.
type GradientStop struct {
	Offset float64 `json:"offset"`
	Color  string  `json:"color"`
}

// Config controls how a dataset is painted.
type Config struct {
	// Radius is the influence radius of one point, in display pixels.
	Radius int `json:"radius"`

	// MaxOpacity caps the alpha of the colored layer (0-1).
	MaxOpacity float64 `json:"max_opacity"`

	// MinOpacity is the floor alpha for any painted pixel (0-1).
	MinOpacity float64 `json:"min_opacity"`

	// Blur is the soft fraction of each point's radius (0-1). 0 paints hard
	// discs; 1 fades linearly from the center.
	Blur float64 `json:"blur"`

	// Gradient colors the intensity layer. Stops must be sorted by offset.
	Gradient []GradientStop `json:"gradient,omitempty"`
}

// DefaultGradient is blue through green and yellow to red.
func DefaultGradient() []GradientStop {
	return []GradientStop{
		{Offset: 0.25, Color: "#0000ff"},
		{Offset: 0.55, Color: "#00ff00"},
		{Offset: 0.85, Color: "#ffff00"},
		{Offset: 1.0, Color: "#ff0000"},
	}
}

// DefaultConfig returns the overlay settings used by the web front-end.
func DefaultConfig() Config {
	return Config{
		Radius:     20,
		MaxOpacity: 0.6,
		MinOpacity: 0,
		Blur:       0.75,
		Gradient:   DefaultGradient(),
	}
}

// WithDefaults fills a zero Radius and an empty Gradient from DefaultConfig.
// Opacities and blur are taken as given because zero is meaningful for them.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Radius == 0 {
		c.Radius = d.Radius
	}
	if len(c.Gradient) == 0 {
		c.Gradient = d.Gradient
	}
	return c
}

// Validate checks ranges and gradient syntax.
func (c Config) Validate() error {
	if c.Radius <= 0 {
		return fmt.Errorf("%w: radius must be positive, got %d", ErrInvalidConfig, c.Radius)
	}
	if !inUnit(c.MaxOpacity) {
		return fmt.Errorf("%w: max_opacity %v outside 0-1", ErrInvalidConfig, c.MaxOpacity)
	}
	if !inUnit(c.MinOpacity) {
		return fmt.Errorf("%w: min_opacity %v outside 0-1", ErrInvalidConfig, c.MinOpacity)
	}
	if c.MinOpacity > c.MaxOpacity {
		return fmt.Errorf("%w: min_opacity %v above max_opacity %v", ErrInvalidConfig, c.MinOpacity, c.MaxOpacity)
	}
	if !inUnit(c.Blur) {
		return fmt.Errorf("%w: blur %v outside 0-1", ErrInvalidConfig, c.Blur)
	}
	if len(c.Gradient) == 0 {
		return fmt.Errorf("%w: gradient has no stops", ErrInvalidConfig)
	}
	prev := 0.0
	for i, s := range c.Gradient {
		if (i > 0 && !(s.Offset > prev)) || !(s.Offset > 0 && s.Offset <= 1) {
			return fmt.Errorf("%w: gradient stop %d offset %v must be increasing within (0,1]", ErrInvalidConfig, i, s.Offset)
		}
		if _, err := colorful.Hex(s.Color); err != nil {
			return fmt.Errorf("%w: gradient stop %d color %q: %v", ErrInvalidConfig, i, s.Color, err)
		}
		prev = s.Offset
	}
	return nil
}

// inUnit reports whether v lies in [0,1]. NaN is outside.
func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
