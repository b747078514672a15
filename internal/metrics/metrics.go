package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_picker_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Repository database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_db_queries_total",
			Help: "Total number of media store queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_picker_db_query_duration_seconds",
			Help:    "Media store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_picker_db_transaction_duration_seconds",
			Help:    "Media store batch transaction duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	MediaItemsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_picker_media_items",
			Help: "Number of indexed media items by collection",
		},
		[]string{"collection"},
	)

	MediaPendingTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_media_pending_items",
			Help: "Number of indexed items still pending",
		},
	)

	CacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_cache_size_bytes",
			Help: "Total size of the local media cache directory",
		},
	)
)

// Indexer metrics
var (
	IndexerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_picker_indexer_runs_total",
			Help: "Total number of indexer runs",
		},
	)

	IndexerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_indexer_last_run_duration_seconds",
			Help: "Duration of the last indexer run in seconds",
		},
	)

	IndexerFilesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_picker_indexer_files_processed_total",
			Help: "Total number of files processed by the indexer",
		},
	)

	IndexerFilesPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_picker_indexer_files_pruned_total",
			Help: "Total number of index rows removed because the file disappeared",
		},
	)

	IndexerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_picker_indexer_errors_total",
			Help: "Total number of indexer errors",
		},
	)

	IndexerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_indexer_running",
			Help: "Whether the indexer is currently running (1 = running, 0 = idle)",
		},
	)

	IndexerWatchEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_indexer_watch_events_total",
			Help: "Filesystem notifications received by the indexer watcher",
		},
		[]string{"op"},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_filesystem_retry_attempts_total",
			Help: "Retries caused by stale NFS file handles",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_filesystem_retry_failures_total",
			Help: "Operations that still failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_filesystem_stale_errors_total",
			Help: "ESTALE errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_picker_filesystem_retry_duration_seconds",
			Help:    "Total time spent in a retried filesystem operation",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Worker pool metrics
var (
	WorkerPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_worker_pool_size",
			Help: "Number of goroutines in the shared worker pool",
		},
	)

	WorkerPoolActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_worker_pool_active",
			Help: "Number of tasks currently executing",
		},
	)

	WorkerPoolQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_worker_pool_queue_depth",
			Help: "Number of tasks waiting for a worker",
		},
	)

	WorkerPoolTasksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_picker_worker_pool_tasks_total",
			Help: "Total number of completed tasks",
		},
	)

	WorkerPoolPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_picker_worker_pool_panics_total",
			Help: "Tasks that panicked and were recovered",
		},
	)
)

// Materializer metrics
var (
	MaterializeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_materialize_total",
			Help: "Materialization attempts by result",
		},
		[]string{"result"}, // copied, cache_hit, error
	)

	MaterializeBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_picker_materialize_bytes_total",
			Help: "Bytes copied from the repository into the cache",
		},
	)

	MaterializeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_picker_materialize_duration_seconds",
			Help:    "Time spent copying one reference into the cache",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		},
	)
)

// Normalizer metrics
var (
	NormalizeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_normalize_total",
			Help: "HEIC/HEIF normalization outcomes",
		},
		[]string{"result", "tier"}, // converted, passthrough, error
	)

	NormalizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_picker_normalize_duration_seconds",
			Help:    "Time spent transcoding HEIC/HEIF to JPEG",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)

// Extractor metrics
var (
	MetadataReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_metadata_reads_total",
			Help: "Metadata extraction attempts by media kind and result",
		},
		[]string{"kind", "result"},
	)

	ThumbnailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_thumbnails_total",
			Help: "Thumbnail synthesis attempts by tier and result",
		},
		[]string{"tier", "result"}, // success, error, cached
	)

	ThumbnailDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_picker_thumbnail_duration_seconds",
			Help:    "Thumbnail synthesis duration by tier",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"tier"},
	)
)

// Query engine metrics
var (
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_picker_query_duration_seconds",
			Help:    "Media index query duration by requested media type",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"media_type"},
	)

	QueryCandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_query_candidates_total",
			Help: "Candidates accepted from each collection",
		},
		[]string{"collection"},
	)

	QueryFilteredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_query_filtered_total",
			Help: "Rows dropped before merge by reason",
		},
		[]string{"reason"}, // hidden, pending
	)
)

// Orchestrator metrics
var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_picker_runs_total",
			Help: "Pipeline runs by command and outcome",
		},
		[]string{"command", "outcome"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_picker_run_duration_seconds",
			Help:    "Processing duration of a pipeline run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"command"},
	)

	ItemErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_picker_item_errors_total",
			Help: "Per-item failures recorded in run error logs",
		},
	)

	PendingPermissionRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_pending_permission_requests",
			Help: "Listing requests suspended on a permission outcome",
		},
	)

	PickerSessionOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_picker_session_open",
			Help: "Whether a picker session is open (1) or not (0)",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_picker_memory_paused",
			Help: "Whether decode work is paused for memory pressure (1) or not (0)",
		},
	)
)
