package imaging

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	_ "golang.org/x/image/webp" // Register WebP format decoder

	"github.com/ironsheep/inertia-heatmap/internal/heatmap"
)

// maxImageBytes caps how much of a remote image body is read.
const maxImageBytes = 64 << 20

// ImageCache provides thread-safe caching of loaded images to avoid redundant
// downloads and disk reads.
//
// The cache stores decoded image.Image objects keyed by their source string,
// which is either an http(s) URL or a file path. Once an image is loaded,
// subsequent Load() calls for the same source return the cached copy.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or
// Clear(). A long-running server analysing many distinct URLs should evict
// entries once a run no longer needs them.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
	client *http.Client
}

// NewImageCache creates an empty cache that fetches remote images with client.
// A nil client selects http.DefaultClient.
func NewImageCache(client *http.Client) *ImageCache {
	if client == nil {
		client = http.DefaultClient
	}
	return &ImageCache{
		images: make(map[string]image.Image),
		client: client,
	}
}

// IsRemote reports whether source is an http or https URL.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Load retrieves an image from the cache or loads it if not cached.
//
// Remote sources are fetched with GET; anything else is opened as a file.
// Supported formats are PNG, JPEG, GIF and WebP.
//
// # Errors
//
//   - the file does not exist or the HTTP request fails
//   - the server answers with a non-2xx status
//   - the content is not a decodable image
func (c *ImageCache) Load(ctx context.Context, source string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[source]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	var (
		img image.Image
		err error
	)
	if IsRemote(source) {
		img, err = c.fetch(ctx, source)
	} else {
		img, err = decodeFile(source)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[source] = img
	c.mu.Unlock()

	return img, nil
}

func (c *ImageCache) fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch image: %s returned %d", url, resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its source.
// If the source is not cached, this method does nothing.
func (c *ImageCache) Evict(source string) {
	c.mu.Lock()
	delete(c.images, source)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// DimensionsResult contains the natural size of an image and, when a display
// width was requested, the size it is shown at.
type DimensionsResult struct {
	// Natural is the intrinsic pixel size of the image.
	Natural heatmap.Dimensions `json:"natural"`

	// Display is the rendered size after FitDisplay.
	Display heatmap.Dimensions `json:"display"`

	// Scale is Display divided by Natural on each axis.
	Scale heatmap.ScaleFactors `json:"scale"`
}

// GetDimensions loads an image and reports its natural and display sizes.
//
// maxWidth follows FitDisplay: zero or negative keeps the natural size.
func GetDimensions(ctx context.Context, cache *ImageCache, source string, maxWidth int) (*DimensionsResult, error) {
	img, err := cache.Load(ctx, source)
	if err != nil {
		return nil, err
	}

	natural := NaturalSize(img)
	display := FitDisplay(natural, maxWidth)
	scale, err := heatmap.ScaleFactorsFor(natural, display)
	if err != nil {
		return nil, err
	}

	return &DimensionsResult{
		Natural: natural,
		Display: display,
		Scale:   scale,
	}, nil
}
