package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"media-picker/internal/logging"
	"media-picker/internal/mediastore"
	"media-picker/internal/metrics"
)

// ErrAlreadyRunning is returned by Index while another run is in progress.
var ErrAlreadyRunning = errors.New("index already in progress")

// Default debounce window for watch events
const defaultDebounce = 2 * time.Second

// Indexer keeps the media store in sync with the media directory.
type Indexer struct {
	store     *mediastore.Store
	mediaDir  string
	interval  time.Duration
	debounce  time.Duration
	watch     bool
	config    ParallelWalkerConfig
	imageTime CaptureTimeFunc
	videoTime CaptureTimeFunc

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu      sync.Mutex
	running bool
	last    RunStats
	lastErr error

	onComplete func(RunStats)
}

// RunStats summarizes one indexing run.
type RunStats struct {
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Files     int64         `json:"files"`
	Changed   int64         `json:"changed"`
	Pruned    int64         `json:"pruned"`
	Errors    int64         `json:"errors"`
}

// Status is the indexer state reported by the health endpoint.
type Status struct {
	Running   bool      `json:"running"`
	LastRun   *RunStats `json:"lastRun,omitempty"`
	LastError string    `json:"lastError,omitempty"`
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithCaptureTime sets how capture times are read for images and videos.
func WithCaptureTime(image, video CaptureTimeFunc) Option {
	return func(idx *Indexer) {
		idx.imageTime = image
		idx.videoTime = video
	}
}

// WithWalkerConfig overrides the parallel walker configuration.
func WithWalkerConfig(config ParallelWalkerConfig) Option {
	return func(idx *Indexer) { idx.config = config }
}

// WithWatch enables fsnotify-driven re-indexing.
func WithWatch(enabled bool) Option {
	return func(idx *Indexer) { idx.watch = enabled }
}

// WithDebounce sets how long watch events must be quiet before a run.
func WithDebounce(d time.Duration) Option {
	return func(idx *Indexer) {
		if d > 0 {
			idx.debounce = d
		}
	}
}

// WithOnComplete registers a callback invoked after each successful run.
func WithOnComplete(fn func(RunStats)) Option {
	return func(idx *Indexer) { idx.onComplete = fn }
}

// New creates an Indexer. A zero interval disables periodic runs.
func New(store *mediastore.Store, mediaDir string, interval time.Duration, opts ...Option) *Indexer {
	idx := &Indexer{
		store:    store,
		mediaDir: mediaDir,
		interval: interval,
		debounce: defaultDebounce,
		config:   DefaultParallelWalkerConfig(0),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Start runs an initial index in the background, then re-indexes on the
// configured interval and, when enabled, on filesystem events.
func (idx *Indexer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-idx.stop
		cancel()
	}()

	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		logging.Info("Starting initial index in background...")
		if _, err := idx.Index(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("Initial index error: %v", err)
		}
	}()

	if idx.interval > 0 {
		idx.wg.Add(1)
		go idx.periodic(ctx)
	}

	if idx.watch {
		idx.wg.Add(1)
		go idx.watchLoop(ctx)
	}
}

// Stop stops background indexing and waits for it to exit.
func (idx *Indexer) Stop() {
	idx.stopOnce.Do(func() { close(idx.stop) })
	idx.wg.Wait()
}

func (idx *Indexer) periodic(ctx context.Context) {
	defer idx.wg.Done()

	ticker := time.NewTicker(idx.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := idx.Index(ctx); err != nil && !errors.Is(err, ErrAlreadyRunning) {
				logging.Error("Periodic index error: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// IsRunning reports whether a run is in progress.
func (idx *Indexer) IsRunning() bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.running
}

// Status returns the current state and the last completed run.
func (idx *Indexer) Status() Status {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	st := Status{Running: idx.running}
	if !idx.last.StartedAt.IsZero() {
		last := idx.last
		st.LastRun = &last
	}
	if idx.lastErr != nil {
		st.LastError = idx.lastErr.Error()
	}
	return st
}

func (idx *Indexer) tryStart() bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.running {
		return false
	}
	idx.running = true
	return true
}

func (idx *Indexer) finish(stats RunStats, err error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.running = false
	idx.lastErr = err
	if err == nil {
		idx.last = stats
	}
}

// Index walks the media directory once, upserting new and changed files,
// touching unchanged ones and pruning files that disappeared.
func (idx *Indexer) Index(ctx context.Context) (stats RunStats, err error) {
	if !idx.tryStart() {
		return RunStats{}, ErrAlreadyRunning
	}
	defer func() { idx.finish(stats, err) }()

	metrics.IndexerIsRunning.Set(1)
	defer metrics.IndexerIsRunning.Set(0)
	metrics.IndexerRunsTotal.Inc()

	stats.StartedAt = time.Now()
	logging.Info("Starting media indexing of %s", idx.mediaDir)

	known, err := idx.store.Fingerprints(ctx)
	if err != nil {
		metrics.IndexerErrors.Inc()
		return stats, fmt.Errorf("load fingerprints: %w", err)
	}

	walker := NewParallelWalker(idx.mediaDir, idx.config, known, idx.imageTime, idx.videoTime)
	results, err := walker.Walk(ctx)
	stats.Files, stats.Changed, stats.Errors = walker.Stats()
	if err != nil {
		metrics.IndexerErrors.Inc()
		return stats, fmt.Errorf("walk %s: %w", idx.mediaDir, err)
	}

	if err = idx.commit(results, stats.StartedAt); err != nil {
		metrics.IndexerErrors.Inc()
		return stats, err
	}

	if stats.Pruned, err = idx.prune(stats.StartedAt); err != nil {
		metrics.IndexerErrors.Inc()
		return stats, fmt.Errorf("prune: %w", err)
	}

	if err := idx.store.SetLastIndexRun(ctx, time.Now()); err != nil {
		logging.Warn("Failed to record last index run: %v", err)
	}

	stats.Duration = time.Since(stats.StartedAt)
	metrics.IndexerLastRunDuration.Set(stats.Duration.Seconds())
	metrics.IndexerFilesProcessed.Add(float64(stats.Files))
	metrics.IndexerFilesPruned.Add(float64(stats.Pruned))

	logging.Info("Indexing complete: %d files, %d changed, %d pruned in %v",
		stats.Files, stats.Changed, stats.Pruned, stats.Duration)

	if idx.onComplete != nil {
		idx.onComplete(stats)
	}
	return stats, nil
}

// commit writes walk results in batches. A failed batch is rolled back and
// aborts the run so that prune never sees a partially touched index.
func (idx *Indexer) commit(results []walkResult, seen time.Time) error {
	batchSize := max(idx.config.BatchSize, 1)

	for i := 0; i < len(results); i += batchSize {
		batch := results[i:min(i+batchSize, len(results))]

		tx, err := idx.store.BeginBatch()
		if err != nil {
			return fmt.Errorf("begin batch: %w", err)
		}

		for _, r := range batch {
			if r.item != nil {
				err = idx.store.Upsert(tx, r.item, seen)
			} else {
				err = idx.store.Touch(tx, r.unchanged, seen)
			}
			if err != nil {
				break
			}
		}

		if err := idx.store.EndBatch(tx, err); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}
	return nil
}

func (idx *Indexer) prune(before time.Time) (int64, error) {
	tx, err := idx.store.BeginBatch()
	if err != nil {
		return 0, err
	}
	n, err := idx.store.DeleteMissing(tx, before)
	if err := idx.store.EndBatch(tx, err); err != nil {
		return 0, err
	}
	if n > 0 {
		logging.Info("Pruned %d missing files from the index", n)
	}
	return n, nil
}
