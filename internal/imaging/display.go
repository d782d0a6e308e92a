package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/ironsheep/inertia-heatmap/internal/heatmap"
)

// NaturalSize returns the intrinsic pixel size of img.
func NaturalSize(img image.Image) heatmap.Dimensions {
	b := img.Bounds()
	return heatmap.Dimensions{Width: b.Dx(), Height: b.Dy()}
}

// FitDisplay returns the size an image is shown at when its width is capped
// at maxWidth, preserving aspect ratio. Images already narrower than maxWidth
// keep their natural size, as does any maxWidth <= 0.
func FitDisplay(natural heatmap.Dimensions, maxWidth int) heatmap.Dimensions {
	if maxWidth <= 0 || natural.Width <= maxWidth || natural.Width <= 0 {
		return natural
	}
	ratio := float64(maxWidth) / float64(natural.Width)
	h := int(float64(natural.Height) * ratio)
	if h < 1 {
		h = 1
	}
	return heatmap.Dimensions{Width: maxWidth, Height: h}
}

// PNGResult is an encoded image ready to return to a client.
type PNGResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as a base64 PNG.
func EncodePNG(img image.Image) (*PNGResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &PNGResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
