package normalize

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"media-picker/internal/cache"
	"media-picker/internal/exifmeta"
	"media-picker/internal/logging"
	"media-picker/internal/media"
	"media-picker/internal/mediatypes"
	"media-picker/internal/memory"
	"media-picker/internal/metrics"
)

// Quality is the JPEG quality of HEIC derivatives.
const Quality = 95

// JPEGMime is the MIME type reported for a converted item.
const JPEGMime = "image/jpeg"

// Transcoder is one capability tier able to decode a still image and
// re-encode it as JPEG.
type Transcoder interface {
	Name() string
	Available() bool
	EncodeJPEG(ctx context.Context, src string, quality int) ([]byte, error)
}

// VipsTranscoder decodes through libvips and keeps embedded metadata.
type VipsTranscoder struct{}

func (VipsTranscoder) Name() string    { return "vips" }
func (VipsTranscoder) Available() bool { return media.IsVipsAvailable() }

func (VipsTranscoder) EncodeJPEG(_ context.Context, src string, quality int) ([]byte, error) {
	return media.VipsEncodeJPEG(src, quality)
}

// FFmpegTranscoder decodes through ffmpeg. Metadata is not carried over.
type FFmpegTranscoder struct{}

func (FFmpegTranscoder) Name() string    { return "ffmpeg" }
func (FFmpegTranscoder) Available() bool { return media.FFmpegAvailable() }

func (FFmpegTranscoder) EncodeJPEG(ctx context.Context, src string, quality int) ([]byte, error) {
	return media.FFmpegEncodeJPEG(ctx, src, quality)
}

// DefaultTiers returns the transcoders in preference order.
func DefaultTiers() []Transcoder {
	return []Transcoder{VipsTranscoder{}, FFmpegTranscoder{}}
}

// Normalizer replaces cached HEIC/HEIF content with a JPEG derivative.
type Normalizer struct {
	tiers []Transcoder
	gate  *memory.Gate
}

// New returns a Normalizer trying tiers in order. gate may be nil.
func New(gate *memory.Gate, tiers ...Transcoder) *Normalizer {
	return &Normalizer{tiers: tiers, gate: gate}
}

// DerivativePath returns the path of the JPEG derivative of a cache file.
func DerivativePath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".jpg"
}

// Normalize converts entry when mime or its extension denotes HEIC/HEIF
// and returns the entry and MIME type to use from here on. Other content is
// returned unchanged.
//
// When no tier can decode the file, the original bytes pass through and
// no error is returned. An error means the derivative could not be
// written.
func (n *Normalizer) Normalize(ctx context.Context, entry *cache.Entry, mime string) (*cache.Entry, string, error) {
	if !mediatypes.IsHEIC(mime, entry.Ext) {
		return entry, mime, nil
	}

	dst := DerivativePath(entry.Path)

	if info, err := os.Stat(dst); err == nil {
		removeOriginal(entry.Path)
		metrics.NormalizeTotal.WithLabelValues("converted", "cached").Inc()
		return derived(entry, dst, info.Size()), JPEGMime, nil
	}

	if err := n.gate.Wait(ctx); err != nil {
		return entry, mime, err
	}

	start := time.Now()
	data, tier, err := n.encode(ctx, entry.Path)
	if err != nil {
		logging.Warn("HEIC conversion failed for %s, passing original through: %v", entry.Path, err)
		metrics.NormalizeTotal.WithLabelValues("passthrough", "none").Inc()
		return entry, mime, nil
	}
	metrics.NormalizeDuration.Observe(time.Since(start).Seconds())

	if err := writeAtomic(dst, data); err != nil {
		metrics.NormalizeTotal.WithLabelValues("error", tier).Inc()
		return entry, mime, err
	}

	if err := exifmeta.CopyOrientation(entry.Path, dst); err != nil {
		logging.Debug("Orientation not copied to %s: %v", dst, err)
	}

	removeOriginal(entry.Path)
	metrics.NormalizeTotal.WithLabelValues("converted", tier).Inc()

	info, err := os.Stat(dst)
	if err != nil {
		return entry, mime, err
	}

	logging.Debug("Converted %s to %s via %s", filepath.Base(entry.Path), filepath.Base(dst), tier)
	return derived(entry, dst, info.Size()), JPEGMime, nil
}

func (n *Normalizer) encode(ctx context.Context, src string) ([]byte, string, error) {
	var errs []error
	for _, t := range n.tiers {
		if !t.Available() {
			continue
		}
		data, err := t.EncodeJPEG(ctx, src, Quality)
		if err == nil && len(data) > 0 {
			return data, t.Name(), nil
		}
		if err == nil {
			err = errors.New("empty output")
		}
		errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
	}
	if len(errs) == 0 {
		return nil, "", errors.New("no transcoder available")
	}
	return nil, "", errors.Join(errs...)
}

func derived(entry *cache.Entry, path string, size int64) *cache.Entry {
	out := *entry
	out.Path = path
	out.FileName = filepath.Base(path)
	out.Size = size
	out.Ext = "jpg"
	return &out
}

func removeOriginal(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Warn("failed to remove converted original %s: %v", path, err)
	}
}

func writeAtomic(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".heic-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
