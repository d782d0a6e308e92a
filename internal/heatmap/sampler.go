package heatmap

import "math"

// Step returns the sampling stride for a rows x cols matrix.
//
// The stride is ceil(sqrt(rows*cols / TargetPointBudget)) and never below 1.
func Step(rows, cols int) int {
	total := float64(rows) * float64(cols)
	step := int(math.Ceil(math.Sqrt(total / TargetPointBudget)))
	if step < 1 {
		return 1
	}
	return step
}

// Sample converts a saliency matrix into display-space heatmap points.
//
// Rows and columns are visited at stride Step(rows, cols). Each visited cell
// is inverted (255 - raw); values at or below VisibilityThreshold are dropped
// and the rest are mapped to floor(column*scale.X), floor(row*scale.Y).
// Points are returned in row-major scan order.
//
// The result is never partial: any invalid input returns a nil slice and an
// error wrapping ErrInvalidMatrixShape, ErrInvalidScaleFactor or
// ErrInvalidIntensity.
func Sample(matrix IntensityMatrix, scale ScaleFactors) ([]WeightedPoint, error) {
	if err := matrix.Validate(); err != nil {
		return nil, err
	}
	if err := scale.Validate(); err != nil {
		return nil, err
	}

	rows, cols := len(matrix), len(matrix[0])
	step := Step(rows, cols)

	points := make([]WeightedPoint, 0, ((rows+step-1)/step)*((cols+step-1)/step))
	for y := 0; y < rows; y += step {
		row := matrix[y]
		for x := 0; x < cols; x += step {
			value := MaxValue - row[x]
			if value <= VisibilityThreshold {
				continue
			}
			points = append(points, WeightedPoint{
				X:     int(math.Floor(float64(x) * scale.X)),
				Y:     int(math.Floor(float64(y) * scale.Y)),
				Value: value,
			})
		}
	}
	return points, nil
}

// SampleDataset runs Sample and wraps the points in a Dataset.
func SampleDataset(matrix IntensityMatrix, scale ScaleFactors) (Dataset, error) {
	points, err := Sample(matrix, scale)
	if err != nil {
		return Dataset{}, err
	}
	return NewDataset(points), nil
}
