// Package main provides the entry point for the media picker service.
//
// The service acquires media from a local media repository into a
// process-scoped cache and answers getMedias, getLastMedias and
// getExifForKey over HTTP. Every item flows through the same pipeline:
// materialize into the cache, resolve its MIME type, convert HEIC/HEIF to
// JPEG, then read dimensions, duration and a video thumbnail.
//
// # Application Lifecycle
//
//  1. Configuration Loading: .env file, environment, validation, directories
//  2. Memory Configuration: GOMEMLIMIT and the decode gate
//  3. Tracing: OTLP/HTTP export when OTEL_EXPORTER_OTLP_ENDPOINT is set
//  4. Repository Index: sqlite database of the media directory
//  5. Indexer: initial walk, then interval and fsnotify-driven runs
//  6. Pipeline: cache, resolver, normalizer and extractor for the
//     configured capability tier
//  7. Orchestrator: worker pool, callback loop, picker and permissions
//  8. HTTP Servers: command surface and, optionally, metrics
//  9. Graceful Shutdown: SIGINT/SIGTERM stop the servers, drain the pool
//     and flush traces
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 8080): the JSON command surface under
//     /api, plus /health and /version
//  2. Metrics Server (default port 9090, optional): /metrics and /health
//
// See the startup package for the supported environment variables.
package main
