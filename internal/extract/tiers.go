package extract

import (
	"context"
	"errors"
	"image"

	"media-picker/internal/cache"
	"media-picker/internal/media"
	"media-picker/internal/memory"
	"media-picker/internal/repository"
)

// ThumbnailTier is one capability tier for thumbnail synthesis.
type ThumbnailTier interface {
	Name() string
	// Supported reports whether this tier can run in the current
	// environment.
	Supported() bool
	Generate(ctx context.Context, entry *cache.Entry, size int) (image.Image, error)
}

// RepositoryTier asks the repository's native thumbnail service for a
// small image of the original reference.
type RepositoryTier struct {
	Loader repository.ThumbnailLoader
}

func (t *RepositoryTier) Name() string { return "repository" }

func (t *RepositoryTier) Supported() bool { return t.Loader != nil }

func (t *RepositoryTier) Generate(ctx context.Context, entry *cache.Entry, size int) (image.Image, error) {
	return t.Loader.LoadThumbnail(ctx, entry.Ref, size)
}

// FrameTier decodes a frame from the cached file itself.
type FrameTier struct {
	Gate      *memory.Gate
	Available func() bool
	Frames    func(ctx context.Context, path string) (image.Image, error)
}

// NewFrameTier returns a FrameTier that extracts frames with ffmpeg,
// waiting on gate before each decode.
func NewFrameTier(gate *memory.Gate) *FrameTier {
	return &FrameTier{Gate: gate, Available: media.FFmpegAvailable, Frames: media.ExtractFrame}
}

func (t *FrameTier) Name() string { return "frame" }

func (t *FrameTier) Supported() bool {
	return t.Frames != nil && (t.Available == nil || t.Available())
}

func (t *FrameTier) Generate(ctx context.Context, entry *cache.Entry, _ int) (image.Image, error) {
	if err := t.Gate.Wait(ctx); err != nil {
		return nil, err
	}
	img, err := t.Frames(ctx, entry.Path)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, errors.New("no frame decoded")
	}
	return img, nil
}

// Tier names the platform capability tier.
type Tier string

const (
	// TierModern has a native repository thumbnail service.
	TierModern Tier = "modern"
	// TierLegacy can only decode frames from local files.
	TierLegacy Tier = "legacy"
)

// TiersFor returns the thumbnail tiers available on tier. The repository
// tier is used only on modern platforms and only when loader is non-nil,
// with frame decoding as the fallback.
func TiersFor(tier Tier, loader repository.ThumbnailLoader, frames *FrameTier) []ThumbnailTier {
	var tiers []ThumbnailTier
	if tier == TierModern && loader != nil {
		tiers = append(tiers, &RepositoryTier{Loader: loader})
	}
	if frames != nil {
		tiers = append(tiers, frames)
	}
	return tiers
}
