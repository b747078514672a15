package extract

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"media-picker/internal/cache"
	"media-picker/internal/media"
	"media-picker/internal/probe"
	"media-picker/internal/repository"
)

type fakeProber struct {
	info *probe.Info
	err  error
}

func (f *fakeProber) Probe(ctx context.Context, path string) (*probe.Info, error) {
	return f.info, f.err
}

type fakeTier struct {
	name  string
	img   image.Image
	err   error
	calls int
}

func (f *fakeTier) Name() string    { return f.name }
func (f *fakeTier) Supported() bool { return true }

func (f *fakeTier) Generate(ctx context.Context, entry *cache.Entry, size int) (image.Image, error) {
	f.calls++
	return f.img, f.err
}

type fakeLoader struct {
	size int
}

func (f *fakeLoader) LoadThumbnail(ctx context.Context, ref repository.Reference, size int) (image.Image, error) {
	f.size = size
	return image.NewRGBA(image.Rect(0, 0, size, size/2)), nil
}

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	path := filepath.Join(dir, "abc_0.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func videoEntry(t *testing.T, dir string) *cache.Entry {
	t.Helper()

	path := filepath.Join(dir, "feedface00000000_0.mp4")
	if err := os.WriteFile(path, []byte("not really a video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return &cache.Entry{
		Ref:  repository.Reference{URI: "content://media/external/videos/media/1"},
		Hash: "feedface00000000",
		Path: path,
		Ext:  "mp4",
	}
}

func TestExtractImage(t *testing.T) {
	dir := t.TempDir()
	entry := &cache.Entry{Path: writePNG(t, dir, 30, 20), Ext: "png"}

	md := New(dir).Extract(context.Background(), entry, "image/png")
	if md.Width == nil || md.Height == nil {
		t.Fatalf("Extract(png) = %+v, want dimensions", md)
	}
	if *md.Width != 30 || *md.Height != 20 {
		t.Errorf("dimensions = %dx%d, want 30x20", *md.Width, *md.Height)
	}
	if md.Duration != nil || md.Thumbnail != nil {
		t.Errorf("image got video fields: %+v", md)
	}
}

func TestExtractUnreadableImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x_0.jpg")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	md := New(dir).Extract(context.Background(), &cache.Entry{Path: path}, "image/jpeg")
	if md.Width != nil || md.Height != nil {
		t.Errorf("Extract(garbage) = %+v, want no dimensions", md)
	}
}

func TestExtractOther(t *testing.T) {
	md := New(t.TempDir()).Extract(context.Background(), &cache.Entry{Path: "/nope"}, "application/octet-stream")
	if md != (Metadata{}) {
		t.Errorf("Extract(other) = %+v, want empty", md)
	}
}

func TestExtractVideo(t *testing.T) {
	dir := t.TempDir()
	entry := videoEntry(t, dir)

	duration, w, h := 2.5, 640, 360
	prober := &fakeProber{info: &probe.Info{Duration: &duration, Width: &w, Height: &h}}
	failing := &fakeTier{name: "repository", err: errors.New("no thumbnail service")}
	frames := &fakeTier{name: "frame", img: image.NewRGBA(image.Rect(0, 0, 640, 360))}

	e := New(dir, WithProber(prober), WithTiers(failing, frames))
	md := e.Extract(context.Background(), entry, "video/mp4")

	if md.Duration == nil || *md.Duration != 2.5 {
		t.Errorf("Duration = %v, want 2.5", md.Duration)
	}
	if md.Width == nil || *md.Width != 640 || md.Height == nil || *md.Height != 360 {
		t.Errorf("dimensions = %v x %v, want 640x360", md.Width, md.Height)
	}
	if md.Thumbnail == nil {
		t.Fatal("Thumbnail = nil, want a uri")
	}
	if failing.calls != 1 || frames.calls != 1 {
		t.Errorf("tier calls = %d, %d, want 1, 1", failing.calls, frames.calls)
	}

	thumb := strings.TrimPrefix(*md.Thumbnail, "file://")
	if thumb != e.ThumbnailPath(entry.Hash) {
		t.Errorf("Thumbnail = %s, want %s", thumb, e.ThumbnailPath(entry.Hash))
	}
	dims, err := media.GetImageDimensions(thumb)
	if err != nil {
		t.Fatalf("thumbnail unreadable: %v", err)
	}
	if dims.Width != DefaultThumbnailSize || dims.Height != 72 {
		t.Errorf("thumbnail = %dx%d, want %dx72", dims.Width, dims.Height, DefaultThumbnailSize)
	}

	again := e.Extract(context.Background(), entry, "video/mp4")
	if again.Thumbnail == nil || *again.Thumbnail != *md.Thumbnail {
		t.Errorf("cached Thumbnail = %v, want %s", again.Thumbnail, *md.Thumbnail)
	}
	if frames.calls != 1 {
		t.Errorf("cached thumbnail regenerated: %d calls", frames.calls)
	}
}

func TestExtractVideoWithoutMetadata(t *testing.T) {
	dir := t.TempDir()
	entry := videoEntry(t, dir)

	prober := &fakeProber{err: probe.ErrUnavailable}
	failing := &fakeTier{name: "frame", err: errors.New("decode failed")}

	md := New(dir, WithProber(prober), WithTiers(failing)).Extract(context.Background(), entry, "video/quicktime")
	if md != (Metadata{}) {
		t.Errorf("Extract() = %+v, want empty", md)
	}
	if _, err := os.Stat(filepath.Join(dir, "thumb_"+entry.Hash+".jpg")); !os.IsNotExist(err) {
		t.Errorf("thumbnail written despite failure: %v", err)
	}
}

func TestExtractVideoPartialContainer(t *testing.T) {
	dir := t.TempDir()
	entry := videoEntry(t, dir)

	duration := 10.0
	prober := &fakeProber{info: &probe.Info{Duration: &duration}}

	md := New(dir, WithProber(prober)).Extract(context.Background(), entry, "video/mp4")
	if md.Duration == nil || *md.Duration != 10 {
		t.Errorf("Duration = %v, want 10", md.Duration)
	}
	if md.Width != nil || md.Height != nil {
		t.Errorf("absent dimensions were defaulted: %v x %v", md.Width, md.Height)
	}
}

func TestRepositoryTierUsesSize(t *testing.T) {
	dir := t.TempDir()
	entry := videoEntry(t, dir)
	loader := &fakeLoader{}

	e := New(dir, WithThumbnailSize(96), WithTiers(TiersFor(TierModern, loader, nil)...))
	md := e.Extract(context.Background(), entry, "video/mp4")
	if md.Thumbnail == nil {
		t.Fatal("Thumbnail = nil")
	}
	if loader.size != 96 {
		t.Errorf("LoadThumbnail size = %d, want 96", loader.size)
	}
}

func TestTiersFor(t *testing.T) {
	loader := &fakeLoader{}
	frames := &FrameTier{Frames: func(context.Context, string) (image.Image, error) { return nil, nil }}

	tests := []struct {
		name   string
		tier   Tier
		loader repository.ThumbnailLoader
		want   []string
	}{
		{"modern", TierModern, loader, []string{"repository", "frame"}},
		{"modern without loader", TierModern, nil, []string{"frame"}},
		{"legacy", TierLegacy, loader, []string{"frame"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, tier := range TiersFor(tt.tier, tt.loader, frames) {
				got = append(got, tier.Name())
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("TiersFor(%s) = %v, want %v", tt.tier, got, tt.want)
			}
		})
	}
}

func TestFrameTierRejectsNilFrame(t *testing.T) {
	tier := &FrameTier{Frames: func(context.Context, string) (image.Image, error) { return nil, nil }}
	if !tier.Supported() {
		t.Fatal("Supported() = false")
	}
	if _, err := tier.Generate(context.Background(), &cache.Entry{Path: "/x"}, 128); err == nil {
		t.Error("Generate() expected error for nil frame")
	}
}
