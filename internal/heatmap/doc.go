// Package heatmap converts saliency matrices into weighted heatmap points.
//
// The analysis service returns one saliency score per pixel at the source
// image's natural resolution. This package samples that matrix at a stride
// that keeps the output near TargetPointBudget points, inverts each score
// (low saliency is high "inertia" heat), drops samples at or below the
// visibility threshold, and maps the survivors into display coordinates.
//
// # Coordinate System
//
// Matrix coordinates are (column, row) with (0,0) at the top-left, the same
// convention as the rest of the module. Display coordinates are
//
//	x = floor(column * scale.X)
//	y = floor(row * scale.Y)
//
// where scale is the displayed/natural dimension ratio per axis.
//
// # Output Size
//
// For a matrix with N cells the stride is ceil(sqrt(N / TargetPointBudget)),
// so a 4000x3000 matrix is sampled every 49 cells on both axes and yields at
// most 82 * 62 = 5084 candidates. Small matrices are sampled at stride 1.
//
// # Error Handling
//
// Sample fails fast and never returns partial output:
//   - ErrInvalidMatrixShape: empty matrix, empty rows, or ragged rows
//   - ErrInvalidScaleFactor: non-positive, NaN or infinite scale components
//   - ErrInvalidIntensity: a cell outside [0, 255]
//
// All errors wrap one of these sentinels and can be matched with errors.Is.
//
// # Thread Safety
//
// Every function in this package is pure. Calls are independent and may run
// concurrently.
package heatmap
