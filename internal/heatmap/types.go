package heatmap

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MinValue and MaxValue bound both raw intensities and emitted point values.
	MinValue = 0
	MaxValue = 255

	// VisibilityThreshold is the largest emitted value that is still dropped.
	VisibilityThreshold = 10

	// TargetPointBudget is the approximate number of cells visited per matrix.
	TargetPointBudget = 5000
)

var (
	// ErrInvalidMatrixShape is returned for empty or non-rectangular matrices.
	ErrInvalidMatrixShape = errors.New("invalid matrix shape")

	// ErrInvalidScaleFactor is returned for non-positive or non-finite scale factors.
	ErrInvalidScaleFactor = errors.New("invalid scale factor")

	// ErrInvalidIntensity is returned when a matrix cell is outside [0, 255].
	ErrInvalidIntensity = errors.New("invalid intensity")
)

// IntensityMatrix holds one saliency score per pixel, indexed [row][column].
type IntensityMatrix [][]int

// Shape returns the row and column counts of a rectangular matrix.
//
// It fails with ErrInvalidMatrixShape if the matrix is empty, has empty rows,
// or has rows of unequal length.
func (m IntensityMatrix) Shape() (rows, cols int, err error) {
	if len(m) == 0 {
		return 0, 0, fmt.Errorf("%w: matrix has no rows", ErrInvalidMatrixShape)
	}
	cols = len(m[0])
	if cols == 0 {
		return 0, 0, fmt.Errorf("%w: row 0 is empty", ErrInvalidMatrixShape)
	}
	for i, row := range m {
		if len(row) != cols {
			return 0, 0, fmt.Errorf("%w: row %d has %d columns, want %d",
				ErrInvalidMatrixShape, i, len(row), cols)
		}
	}
	return len(m), cols, nil
}

// Validate checks the matrix shape and that every cell is within [0, 255].
func (m IntensityMatrix) Validate() error {
	if _, _, err := m.Shape(); err != nil {
		return err
	}
	for y, row := range m {
		for x, v := range row {
			if v < MinValue || v > MaxValue {
				return fmt.Errorf("%w: cell (%d,%d) is %d, want %d-%d",
					ErrInvalidIntensity, x, y, v, MinValue, MaxValue)
			}
		}
	}
	return nil
}

// ScaleFactors is the displayed/natural dimension ratio on each axis.
type ScaleFactors struct {
	X float64 `json:"scale_x"`
	Y float64 `json:"scale_y"`
}

// Validate rejects zero, negative, NaN and infinite components.
func (s ScaleFactors) Validate() error {
	if !validFactor(s.X) {
		return fmt.Errorf("%w: scale_x is %v", ErrInvalidScaleFactor, s.X)
	}
	if !validFactor(s.Y) {
		return fmt.Errorf("%w: scale_y is %v", ErrInvalidScaleFactor, s.Y)
	}
	return nil
}

func validFactor(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// Dimensions is a width and height in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ScaleFactorsFor derives scale factors from natural and displayed image sizes.
func ScaleFactorsFor(natural, display Dimensions) (ScaleFactors, error) {
	if natural.Width <= 0 || natural.Height <= 0 {
		return ScaleFactors{}, fmt.Errorf("%w: natural size %dx%d",
			ErrInvalidScaleFactor, natural.Width, natural.Height)
	}
	s := ScaleFactors{
		X: float64(display.Width) / float64(natural.Width),
		Y: float64(display.Height) / float64(natural.Height),
	}
	if err := s.Validate(); err != nil {
		return ScaleFactors{}, err
	}
	return s, nil
}

// WeightedPoint is a heatmap point in display coordinates.
type WeightedPoint struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Value int `json:"value"`
}

// Dataset is the structure handed to a heatmap renderer.
type Dataset struct {
	Min  int             `json:"min"`
	Max  int             `json:"max"`
	Data []WeightedPoint `json:"data"`
}

// NewDataset wraps points with the fixed 0-255 value range.
func NewDataset(points []WeightedPoint) Dataset {
	if points == nil {
		points = []WeightedPoint{}
	}
	return Dataset{Min: MinValue, Max: MaxValue, Data: points}
}
