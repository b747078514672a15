package media

import (
	"bufio"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// ThumbnailQuality is the JPEG quality of cached thumbnails.
const ThumbnailQuality = 80

// WriteThumbnail fits img within size x size and writes it as JPEG to dst.
// The file is written under a temporary name and renamed into place so
// readers never observe a partial thumbnail.
func WriteThumbnail(img image.Image, size int, dst string) error {
	thumb := imaging.Fit(img, size, size, imaging.Lanczos)

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".thumb-*")
	if err != nil {
		return fmt.Errorf("create thumbnail: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := jpeg.Encode(w, thumb, &jpeg.Options{Quality: ThumbnailQuality}); err != nil {
		tmp.Close()
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write thumbnail: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write thumbnail: %w", err)
	}

	return os.Rename(tmp.Name(), dst)
}
