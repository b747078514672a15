// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration is read by [Load] through viper from the environment, after
// an optional .env file (path in ENV_FILE) has been loaded with godotenv.
// The resulting [Config] is checked with validator tags. Supported keys:
//
//   - MEDIA_DIR: Root indexed into the repository (default: /media)
//   - CACHE_DIR: Process-scoped cache namespace (default: /cache)
//   - DATABASE_DIR: Repository index database directory (default: /database)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - INDEX_INTERVAL: Full re-index interval as Go duration (default: 30m)
//   - WATCH_ENABLED: Re-index on filesystem events (default: true)
//   - CAPABILITY_TIER: modern or legacy platform tier (default: modern)
//   - PERMISSIONS_GRANTED: Read capability granted at startup (default: false)
//   - THUMBNAIL_SIZE: Bounded edge of video thumbnails (default: 128)
//   - WORKERS: Worker pool size, 0 for automatic (default: 0)
//   - LOG_LEVEL / LOG_FORMAT: See the logging package
//   - LOG_HEALTH_CHECKS: Log health check requests (default: false)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: Trace export endpoint (default: none)
//   - MEMORY_LIMIT / MEMORY_RATIO: Container limit and Go heap share
//
// Malformed durations, booleans and numbers fall back to their defaults
// with a warning.
//
// # Directory Setup
//
//   - Database directory: Required, must be writable
//   - Cache directory: Required, must be writable
//   - Media directory: Checked but not required (should be mounted)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
