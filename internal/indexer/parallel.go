package indexer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"media-picker/internal/logging"
	"media-picker/internal/mediastore"
	"media-picker/internal/mediatypes"
	"media-picker/internal/repository"
	workerpkg "media-picker/internal/workers"
)

// PendingPrefix marks files still being written by their producer. They
// are indexed with is_pending set.
const PendingPrefix = ".pending-"

// ParallelWalkerConfig configures the parallel directory walker
type ParallelWalkerConfig struct {
	// NumWorkers is the number of parallel workers
	NumWorkers int
	// BatchSize is the number of results committed per transaction
	BatchSize int
	// ChannelBuffer is the size of the job and result channel buffers
	ChannelBuffer int
	// SkipHidden skips entries starting with "."
	SkipHidden bool
}

// DefaultParallelWalkerConfig returns NFS-safe defaults. Hidden entries are
// walked; filtering them is left to the query engine.
func DefaultParallelWalkerConfig(workers int) ParallelWalkerConfig {
	if workers <= 0 {
		workers = workerpkg.ForMixed(0)
	}
	return ParallelWalkerConfig{
		NumWorkers:    workers,
		BatchSize:     500,
		ChannelBuffer: 1000,
	}
}

// CaptureTimeFunc returns the capture time of the media file at path.
type CaptureTimeFunc func(ctx context.Context, path string) (time.Time, error)

type fileJob struct {
	path string
	info os.FileInfo
}

// walkResult is either a changed item to upsert or an unchanged path to
// touch.
type walkResult struct {
	item      *mediastore.Item
	unchanged string
}

// ParallelWalker walks the media tree and classifies files on a fixed set
// of workers.
type ParallelWalker struct {
	config    ParallelWalkerConfig
	mediaDir  string
	known     map[string]mediastore.Fingerprint
	imageTime CaptureTimeFunc
	videoTime CaptureTimeFunc

	jobs    chan fileJob
	results chan walkResult
	wg      sync.WaitGroup

	filesProcessed atomic.Int64
	filesChanged   atomic.Int64
	errorsCount    atomic.Int64
}

// NewParallelWalker creates a walker. known holds the fingerprints of the
// current index; files matching them are reported unchanged.
func NewParallelWalker(mediaDir string, config ParallelWalkerConfig, known map[string]mediastore.Fingerprint, imageTime, videoTime CaptureTimeFunc) *ParallelWalker {
	return &ParallelWalker{
		config:    config,
		mediaDir:  mediaDir,
		known:     known,
		imageTime: imageTime,
		videoTime: videoTime,
		jobs:      make(chan fileJob, config.ChannelBuffer),
		results:   make(chan walkResult, config.ChannelBuffer),
	}
}

// Walk walks the tree and returns every media file found.
func (pw *ParallelWalker) Walk(ctx context.Context) ([]walkResult, error) {
	logging.Debug("Starting parallel walk of %s with %d workers", pw.mediaDir, pw.config.NumWorkers)
	start := time.Now()

	for i := 0; i < pw.config.NumWorkers; i++ {
		pw.wg.Add(1)
		go pw.worker(ctx)
	}

	var all []walkResult
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for r := range pw.results {
			all = append(all, r)
		}
	}()

	err := pw.walkAndEnqueue(ctx)

	close(pw.jobs)
	pw.wg.Wait()
	close(pw.results)
	<-collected

	logging.Info("Parallel walk complete: %d files (%d changed) in %v (errors: %d)",
		pw.filesProcessed.Load(), pw.filesChanged.Load(), time.Since(start), pw.errorsCount.Load())

	if err == nil {
		err = ctx.Err()
	}
	return all, err
}

func (pw *ParallelWalker) walkAndEnqueue(ctx context.Context) error {
	return filepath.WalkDir(pw.mediaDir, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return fs.SkipAll
		}

		if err != nil {
			if path == pw.mediaDir {
				return err
			}
			logging.Warn("Error accessing path %s: %v", path, err)
			pw.errorsCount.Add(1)
			return nil
		}

		if path != pw.mediaDir && pw.config.SkipHidden && strings.HasPrefix(d.Name(), ".") &&
			!strings.HasPrefix(d.Name(), PendingPrefix) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		if mediatypes.GetFileType(filepath.Ext(d.Name())) == mediatypes.FileTypeOther {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logging.Warn("Error getting info for %s: %v", path, err)
			pw.errorsCount.Add(1)
			return nil
		}

		select {
		case pw.jobs <- fileJob{path: path, info: info}:
		case <-ctx.Done():
			return fs.SkipAll
		}
		return nil
	})
}

func (pw *ParallelWalker) worker(ctx context.Context) {
	defer pw.wg.Done()

	for job := range pw.jobs {
		if ctx.Err() != nil {
			continue
		}

		r := pw.processFile(ctx, job)
		pw.filesProcessed.Add(1)
		if r.item != nil {
			pw.filesChanged.Add(1)
		}
		pw.results <- r
	}
}

func (pw *ParallelWalker) processFile(ctx context.Context, job fileJob) walkResult {
	size := job.info.Size()
	modified := job.info.ModTime().Unix()

	if fp, ok := pw.known[job.path]; ok && fp.Size == size && fp.DateModified == modified {
		return walkResult{unchanged: job.path}
	}

	name := job.info.Name()
	ext := filepath.Ext(name)

	item := &mediastore.Item{
		Path:         job.path,
		DisplayName:  strings.TrimPrefix(name, PendingPrefix),
		Size:         size,
		MimeType:     mediatypes.GetMimeType(ext),
		DateModified: modified,
		Pending:      strings.HasPrefix(name, PendingPrefix),
	}

	captureTime := pw.imageTime
	item.Collection = repository.Images
	if mediatypes.GetFileType(ext) == mediatypes.FileTypeVideo {
		captureTime = pw.videoTime
		item.Collection = repository.Videos
	}

	if captureTime != nil && !item.Pending {
		if t, err := captureTime(ctx, job.path); err == nil && t.Unix() > 0 {
			item.DateTaken = t.UnixMilli()
		} else if err != nil {
			logging.Debug("No capture time for %s: %v", job.path, err)
		}
	}

	return walkResult{item: item}
}

// Stats returns processed, changed and error counts
func (pw *ParallelWalker) Stats() (files, changed, errors int64) {
	return pw.filesProcessed.Load(), pw.filesChanged.Load(), pw.errorsCount.Load()
}
