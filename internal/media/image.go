package media

import (
	"fmt"
	"image"
	"math"
	"os"

	// Header decoders for DecodeConfig
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"media-picker/internal/logging"
)

const (
	// MaxImageDimension is the maximum width or height decoded at full size.
	// Larger images are downscaled right after decode.
	MaxImageDimension = 4096

	// MaxImagePixels caps width*height (about 80MB as RGBA).
	MaxImagePixels = 20_000_000
)

// Dimensions holds image width and height
type Dimensions struct {
	Width  int
	Height int
}

// GetImageDimensions reads only the image header to obtain its bounds.
func GetImageDimensions(path string) (*Dimensions, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, err
	}

	return &Dimensions{Width: config.Width, Height: config.Height}, nil
}

// LoadImageConstrained decodes the image at path with EXIF auto-orientation,
// downscaling it when it exceeds maxDimension or maxPixels.
func LoadImageConstrained(path string, maxDimension, maxPixels int) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	tw, th := constrain(w, h, maxDimension, maxPixels)
	if tw == w && th == h {
		return img, nil
	}

	logging.Debug("Constraining large image %s from %dx%d to %dx%d", path, w, h, tw, th)
	return imaging.Resize(img, tw, th, imaging.Lanczos), nil
}

// constrain scales w x h down to fit maxDimension and maxPixels, keeping the
// aspect ratio.
func constrain(w, h, maxDimension, maxPixels int) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}

	if w > maxDimension || h > maxDimension {
		if w > h {
			h = h * maxDimension / w
			w = maxDimension
		} else {
			w = w * maxDimension / h
			h = maxDimension
		}
	}

	if w*h > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(w*h))
		w = int(float64(w) * scale)
		h = int(float64(h) * scale)
	}

	return max(w, 1), max(h, 1)
}
