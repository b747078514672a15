package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"media-picker/internal/filesystem"
	"media-picker/internal/logging"
	"media-picker/internal/metrics"
	"media-picker/internal/repository"
)

// DefaultExt is used when a reference declares no usable display name.
const DefaultExt = "dat"

// Entry is a materialized, locally owned copy of a reference's bytes.
type Entry struct {
	Ref          repository.Reference
	Ordinal      int
	Hash         string
	Path         string
	FileName     string
	Size         int64
	Ext          string
	DeclaredMime string
}

// URI returns the file:// URI of the cached copy.
func (e *Entry) URI() string {
	return FileURI(e.Path)
}

// FileURI turns an absolute path into a file:// URI.
func FileURI(path string) string {
	return "file://" + path
}

// Materializer copies repository content into the cache directory.
type Materializer struct {
	repo repository.Repository
	dir  string
}

// New returns a Materializer writing into dir.
func New(repo repository.Repository, dir string) *Materializer {
	return &Materializer{repo: repo, dir: dir}
}

// Dir returns the cache directory.
func (m *Materializer) Dir() string {
	return m.dir
}

// Hash returns the stable content identity of ref: the first 8 bytes of
// the BLAKE2b-256 digest of its URI, hex encoded.
func Hash(ref repository.Reference) string {
	sum := blake2b.Sum256([]byte(ref.URI))
	return hex.EncodeToString(sum[:8])
}

// ExtFromName returns the extension of a display name (text after the last
// dot, which must not be the first character), or DefaultExt.
func ExtFromName(name string) string {
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return DefaultExt
	}
	return strings.ToLower(name[i+1:])
}

// FileName returns the cache file name for a hash, ordinal and extension.
func FileName(hash string, ordinal int, ext string) string {
	return fmt.Sprintf("%s_%d.%s", hash, ordinal, ext)
}

// Materialize copies ref into the cache as the item at ordinal. An existing
// file with the same name is treated as authoritative and not copied again.
// Declared name and size come from the repository when it reports them and
// from the cached file otherwise.
func (m *Materializer) Materialize(ctx context.Context, ref repository.Reference, ordinal int) (*Entry, error) {
	start := time.Now()
	defer func() {
		metrics.MaterializeDuration.Observe(time.Since(start).Seconds())
	}()

	details, err := m.repo.Describe(ctx, ref)
	if err != nil {
		logging.Debug("No declared metadata for %s: %v", ref, err)
		details = repository.Details{}
	}

	hash := Hash(ref)
	ext := ExtFromName(details.DisplayName)
	path := filepath.Join(m.dir, FileName(hash, ordinal, ext))

	if _, err := os.Stat(path); err == nil {
		metrics.MaterializeTotal.WithLabelValues("cache_hit").Inc()
		logging.Debug("Cache hit for %s at %s", ref, path)
	} else {
		n, err := m.copy(ctx, ref, path)
		if err != nil {
			metrics.MaterializeTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.MaterializeTotal.WithLabelValues("copied").Inc()
		metrics.MaterializeBytes.Add(float64(n))
	}

	entry := &Entry{
		Ref:          ref,
		Ordinal:      ordinal,
		Hash:         hash,
		Path:         path,
		FileName:     details.DisplayName,
		Size:         details.Size,
		Ext:          ext,
		DeclaredMime: details.MimeType,
	}

	if entry.FileName == "" {
		entry.FileName = filepath.Base(path)
	}
	if entry.Size <= 0 {
		info, err := filesystem.StatWithRetry(ctx, path, filesystem.DefaultRetryConfig())
		if err != nil {
			return nil, err
		}
		entry.Size = info.Size()
	}

	return entry, nil
}

// copy streams ref into path. A failed copy removes the partial file.
func (m *Materializer) copy(ctx context.Context, ref repository.Reference, path string) (int64, error) {
	src, err := m.repo.Open(ctx, ref)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			logging.Warn("failed to remove partial cache file %s: %v", path, rmErr)
		}
		return 0, err
	}

	logging.Debug("Materialized %s into %s (%d bytes)", ref, path, n)
	return n, nil
}

// Size returns the total size of the cache directory.
func (m *Materializer) Size() (int64, error) {
	return filesystem.DirSize(m.dir)
}

// Clear removes every cached file and returns how many bytes were freed.
func (m *Materializer) Clear() (int64, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	var freed int64
	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(m.dir, e.Name())
		info, err := e.Info()
		if err == nil {
			freed += info.Size()
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	logging.Info("Cleared %d bytes from cache %s", freed, m.dir)
	return freed, errors.Join(errs...)
}
