// Package metrics declares the Prometheus series exported by the media
// picker service.
//
// Series are registered at package init through promauto and grouped by
// subsystem: HTTP, media store, indexer, filesystem retry, worker pool,
// and one group per pipeline stage (materialize, normalize, extract, query,
// orchestrator). Call InitializeMetrics once at startup so labelled series
// appear before their first observation.
package metrics
