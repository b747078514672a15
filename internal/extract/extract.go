package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"media-picker/internal/cache"
	"media-picker/internal/logging"
	"media-picker/internal/media"
	"media-picker/internal/metrics"
	"media-picker/internal/probe"
)

// DefaultThumbnailSize is the bounded edge of video thumbnails.
const DefaultThumbnailSize = 128

// Metadata is the partial record produced for one item. Nil fields were
// not determined and are omitted from the record.
type Metadata struct {
	Width     *int
	Height    *int
	Duration  *float64
	Thumbnail *string
}

// Prober reads container metadata from a local video file.
type Prober interface {
	Probe(ctx context.Context, path string) (*probe.Info, error)
}

// Extractor derives dimensions, duration and thumbnails for cached items.
type Extractor struct {
	dir    string
	size   int
	prober Prober
	tiers  []ThumbnailTier
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithProber sets the container metadata reader for videos.
func WithProber(p Prober) Option {
	return func(e *Extractor) { e.prober = p }
}

// WithTiers sets the thumbnail tiers, tried in order.
func WithTiers(tiers ...ThumbnailTier) Option {
	return func(e *Extractor) { e.tiers = tiers }
}

// WithThumbnailSize sets the bounded edge of generated thumbnails.
func WithThumbnailSize(size int) Option {
	return func(e *Extractor) {
		if size > 0 {
			e.size = size
		}
	}
}

// New returns an Extractor that caches thumbnails in dir.
func New(dir string, opts ...Option) *Extractor {
	e := &Extractor{dir: dir, size: DefaultThumbnailSize}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ThumbnailSize returns the bounded edge used for thumbnails.
func (e *Extractor) ThumbnailSize() int {
	return e.size
}

// Extract returns what can be learned about entry given its MIME type.
// Failures only leave fields unset.
func (e *Extractor) Extract(ctx context.Context, entry *cache.Entry, mime string) Metadata {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return e.image(entry)
	case strings.HasPrefix(mime, "video/"):
		md := e.video(ctx, entry)
		md.Thumbnail = e.thumbnail(ctx, entry)
		return md
	default:
		return Metadata{}
	}
}

func (e *Extractor) image(entry *cache.Entry) Metadata {
	dims, err := media.GetImageDimensions(entry.Path)
	if err != nil {
		logging.Debug("Header decode failed for %s, trying libvips: %v", entry.Path, err)
		dims, err = media.VipsDimensions(entry.Path)
	}
	if err != nil {
		metrics.MetadataReadsTotal.WithLabelValues("image", "error").Inc()
		logging.Debug("No dimensions for %s: %v", entry.Path, err)
		return Metadata{}
	}

	metrics.MetadataReadsTotal.WithLabelValues("image", "success").Inc()
	w, h := dims.Width, dims.Height
	return Metadata{Width: &w, Height: &h}
}

func (e *Extractor) video(ctx context.Context, entry *cache.Entry) Metadata {
	if e.prober == nil {
		return Metadata{}
	}

	info, err := e.prober.Probe(ctx, entry.Path)
	if err != nil {
		metrics.MetadataReadsTotal.WithLabelValues("video", "error").Inc()
		logging.Debug("No container metadata for %s: %v", entry.Path, err)
		return Metadata{}
	}

	metrics.MetadataReadsTotal.WithLabelValues("video", "success").Inc()
	return Metadata{Width: info.Width, Height: info.Height, Duration: info.Duration}
}

// ThumbnailPath returns the cached thumbnail location for a content hash.
func (e *Extractor) ThumbnailPath(hash string) string {
	return filepath.Join(e.dir, "thumb_"+hash+".jpg")
}

func (e *Extractor) thumbnail(ctx context.Context, entry *cache.Entry) *string {
	path := e.ThumbnailPath(entry.Hash)
	if _, err := os.Stat(path); err == nil {
		metrics.ThumbnailsTotal.WithLabelValues("cache", "cached").Inc()
		uri := cache.FileURI(path)
		return &uri
	}

	for _, tier := range e.tiers {
		if !tier.Supported() {
			continue
		}

		timer := prometheus.NewTimer(metrics.ThumbnailDuration.WithLabelValues(tier.Name()))
		img, err := tier.Generate(ctx, entry, e.size)
		if err == nil {
			err = media.WriteThumbnail(img, e.size, path)
		}
		timer.ObserveDuration()

		if err != nil {
			metrics.ThumbnailsTotal.WithLabelValues(tier.Name(), "error").Inc()
			logging.Debug("Thumbnail tier %s failed for %s: %v", tier.Name(), entry.Ref, err)
			continue
		}

		metrics.ThumbnailsTotal.WithLabelValues(tier.Name(), "success").Inc()
		uri := cache.FileURI(path)
		return &uri
	}

	logging.Debug("No thumbnail for %s", entry.Ref)
	return nil
}
