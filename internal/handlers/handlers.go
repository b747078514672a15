package handlers

import (
	"context"
	"time"

	"media-picker/internal/indexer"
	"media-picker/internal/mediastore"
	"media-picker/internal/orchestrator"
	"media-picker/internal/pipeline"
	"media-picker/internal/repository"
)

// Commands is the orchestrator surface the handlers dispatch to.
type Commands interface {
	GetMedias(ctx context.Context, opts orchestrator.PickOptions) ([]pipeline.MediaRecord, error)
	GetLastMedias(ctx context.Context, caller string, opts orchestrator.ListOptions, onSuspend func(token string)) ([]pipeline.MediaRecord, error)
	Pending() []orchestrator.Suspended
	ResolvePermission(token string, granted bool) error
	GetExifForKey(ctx context.Context, fileURI, key string) (*string, error)
	GetExifAll(ctx context.Context, fileURI string) (map[string]string, error)
}

// PickerSessions is the picker UI side of an open getMedias call.
type PickerSessions interface {
	Current() (orchestrator.Session, bool)
	Complete(refs []repository.Reference) error
	Cancel() error
}

// Reindexer runs indexing passes over the media directory.
type Reindexer interface {
	Index(ctx context.Context) (indexer.RunStats, error)
	IsRunning() bool
	Status() indexer.Status
}

// StatsSource reports repository counts for the health endpoint.
type StatsSource interface {
	Stats(ctx context.Context) (mediastore.Stats, error)
}

// Handlers serves the command surface.
type Handlers struct {
	commands  Commands
	picker    PickerSessions
	indexer   Reindexer
	stats     StatsSource
	startedAt time.Time

	// background is the parent context of re-index runs started over HTTP.
	background context.Context
}

// New creates Handlers. indexer and stats may be nil, which disables
// re-indexing and repository counts.
func New(ctx context.Context, commands Commands, picker PickerSessions, idx Reindexer, stats StatsSource) *Handlers {
	return &Handlers{
		commands:   commands,
		picker:     picker,
		indexer:    idx,
		stats:      stats,
		startedAt:  time.Now(),
		background: ctx,
	}
}
