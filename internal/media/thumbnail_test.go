package media

import (
	"image"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteThumbnail(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "thumb_abc.jpg")

	if err := WriteThumbnail(image.NewRGBA(image.Rect(0, 0, 640, 360)), 128, dst); err != nil {
		t.Fatalf("WriteThumbnail() error = %v", err)
	}

	dims, err := GetImageDimensions(dst)
	if err != nil {
		t.Fatalf("thumbnail unreadable: %v", err)
	}
	if dims.Width != 128 || dims.Height != 72 {
		t.Errorf("thumbnail = %dx%d, want 128x72", dims.Width, dims.Height)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestWriteThumbnailMissingDir(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "nope", "thumb.jpg")
	if err := WriteThumbnail(image.NewRGBA(image.Rect(0, 0, 10, 10)), 128, dst); err == nil {
		t.Error("WriteThumbnail() into a missing directory should fail")
	}
}
