// Package imaging loads source images and works out how they are displayed.
//
// Images come from http(s) URLs or local files and are decoded with the
// standard PNG, JPEG and GIF decoders plus golang.org/x/image/webp. All
// coordinates use the convention where (0,0) is at the top-left corner, X
// increases rightward, and Y increases downward.
//
// # Natural and Display Sizes
//
// The analysis service reports saliency at the image's natural resolution,
// but clients usually show the image smaller. FitDisplay applies the
// "max-width: 100%" rule: an image wider than the available width is scaled
// down proportionally, a narrower one keeps its natural size. The ratio of
// the two sizes is what the heatmap sampler uses to map matrix cells to
// display pixels.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Decoded images are never
// mutated by this module, so a cached image may be shared between runs.
//
// # Error Handling
//
// Functions return errors for:
//   - File I/O and HTTP failures during image loading
//   - Non-2xx HTTP responses
//   - Undecodable image data
//   - Encoding errors during image output
package imaging
