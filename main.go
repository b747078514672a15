package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"media-picker/internal/cache"
	"media-picker/internal/exifmeta"
	"media-picker/internal/extract"
	"media-picker/internal/filesystem"
	"media-picker/internal/handlers"
	"media-picker/internal/indexer"
	"media-picker/internal/logging"
	"media-picker/internal/media"
	"media-picker/internal/mediastore"
	"media-picker/internal/mediatypes"
	"media-picker/internal/memory"
	"media-picker/internal/metrics"
	"media-picker/internal/middleware"
	"media-picker/internal/normalize"
	"media-picker/internal/orchestrator"
	"media-picker/internal/pipeline"
	"media-picker/internal/probe"
	"media-picker/internal/query"
	"media-picker/internal/resolver"
	"media-picker/internal/startup"
	"media-picker/internal/tracing"
	"media-picker/internal/workers"
)

func main() {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"media":    config.MediaDir,
		"cache":    config.CacheDir,
		"database": config.DatabaseDir,
	}))

	startup.LogMemoryConfig(memory.ApplyLimit(config.MemoryLimit, config.MemoryRatio))
	gate := memory.NewGate(memory.DefaultConfig())
	gate.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Setup(ctx, config.OTLPEndpoint, startup.Version)
	if err != nil {
		startup.LogFatal("Tracing setup failed: %v", err)
	}

	if err := media.InitVips(); err != nil {
		logging.Warn("libvips unavailable, HEIC falls back to ffmpeg: %v", err)
	}

	// Repository index
	repoStart := time.Now()
	store, err := mediastore.New(ctx, config.DatabasePath, mediastore.WithFrameSource(media.ExtractFrame))
	if err != nil {
		startup.LogFatal("Failed to open repository index: %v", err)
	}
	startup.LogRepositoryInit(config.DatabasePath, time.Since(repoStart))

	prober := probe.New()

	startup.LogIndexerInit(config.IndexInterval, config.WatchEnabled)
	idx := indexer.New(store, config.MediaDir, config.IndexInterval,
		indexer.WithCaptureTime(imageCaptureTime, videoCaptureTime(prober)),
		indexer.WithWalkerConfig(indexer.DefaultParallelWalkerConfig(config.Workers)),
		indexer.WithWatch(config.WatchEnabled),
	)
	idx.Start(ctx)
	startup.LogIndexerStarted()

	// Acquisition pipeline
	tier := extract.Tier(config.CapabilityTier)
	thumbTiers := extract.TiersFor(tier, store, extract.NewFrameTier(gate))
	materializer := cache.New(store, config.CacheDir)
	pipe := pipeline.New(
		materializer,
		resolver.New(),
		normalize.New(gate, normalize.DefaultTiers()...),
		extract.New(config.CacheDir,
			extract.WithProber(prober),
			extract.WithTiers(thumbTiers...),
			extract.WithThumbnailSize(config.ThumbnailSize),
		),
	)

	workerCount := config.Workers
	if workerCount == 0 {
		workerCount = workers.ForIO(0)
	}
	pool := workers.NewPool(workerCount, workerCount*4)
	loop := orchestrator.NewLoop(64)
	picker := orchestrator.NewChannelPicker()

	var granted []orchestrator.Capability
	if config.PermissionsGranted {
		granted = orchestrator.CapabilitiesFor(tier, mediatypes.MediaAll)
	}

	orch := orchestrator.New(orchestrator.Config{
		Pool:      pool,
		Loop:      loop,
		Pipeline:  pipe,
		Query:     query.New(store, query.WithRoot(config.MediaDir)),
		Picker:    picker,
		Busy:      &orchestrator.CountingIndicator{},
		Requester: orchestrator.LogRequester{},
		Tier:      tier,
		CacheDir:  config.CacheDir,
		Granted:   granted,
	})

	startup.LogPipelineInit(startup.PipelineInfo{
		Tier:           string(tier),
		Workers:        workerCount,
		ThumbnailSize:  config.ThumbnailSize,
		VipsAvailable:  media.IsVipsAvailable(),
		FFmpeg:         config.FFmpegAvailable,
		FFprobe:        config.FFprobeAvailable,
		PreGranted:     capabilityNames(granted),
		ThumbnailTiers: tierNames(thumbTiers),
	})

	metrics.InitializeMetrics()
	collector := metrics.NewCollector(&statsAdapter{store: store, cache: materializer}, time.Minute)
	collector.Start()

	h := handlers.New(ctx, orch, picker, idx, store)
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.RequestID(
		middleware.Logger(loggingConfig)(
			middleware.Compression(middleware.DefaultCompressionConfig())(router),
		),
	)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		// getMedias and getLastMedias are long-polls held open until the
		// picker or a permission request is resolved.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = startMetricsServer(config.MetricsPort, h)
	}

	go handleShutdown(srv, metricsSrv, func() {
		startup.LogShutdownStep("Stopping indexer")
		idx.Stop()
		startup.LogShutdownStepComplete("Indexer stopped")

		startup.LogShutdownStep("Draining worker pool")
		pool.Close()
		loop.Close()
		startup.LogShutdownStepComplete("Worker pool drained")

		collector.Stop()
		gate.Stop()
		cancel()

		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logging.Warn("Trace flush error: %v", err)
		}

		if err := store.Close(); err != nil {
			logging.Warn("Repository close error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Repository index closed")
		}
		media.ShutdownVips()
	})

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Tracing, middleware.Metrics(middleware.DefaultMetricsConfig()))
	h.RegisterRoutes(r)
	return r
}

func startMetricsServer(port string, h *handlers.Handlers) *http.Server {
	mr := mux.NewRouter()
	mr.Handle("/metrics", h.MetricsHandler()).Methods(http.MethodGet)
	mr.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet, http.MethodHead)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mr,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()
	return srv
}

func handleShutdown(srv, metricsSrv *http.Server, cleanup func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}

	cleanup()
	startup.LogShutdownComplete()
}

// imageCaptureTime reads DateTimeOriginal (or DateTime) from EXIF.
func imageCaptureTime(_ context.Context, path string) (time.Time, error) {
	return exifmeta.DateTaken(path)
}

// videoCaptureTime reads the container creation_time through ffprobe.
func videoCaptureTime(p *probe.Prober) indexer.CaptureTimeFunc {
	return func(ctx context.Context, path string) (time.Time, error) {
		if !p.Available() {
			return time.Time{}, probe.ErrUnavailable
		}
		info, err := p.Probe(ctx, path)
		if err != nil {
			return time.Time{}, err
		}
		return info.CreationTime, nil
	}
}

func capabilityNames(caps []orchestrator.Capability) []string {
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = string(c)
	}
	return names
}

func tierNames(tiers []extract.ThumbnailTier) []string {
	names := make([]string, 0, len(tiers))
	for _, t := range tiers {
		names = append(names, t.Name())
	}
	return names
}
