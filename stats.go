package main

import (
	"context"
	"time"

	"media-picker/internal/logging"
	"media-picker/internal/mediastore"
	"media-picker/internal/metrics"
)

type repositoryStats interface {
	Stats(ctx context.Context) (mediastore.Stats, error)
}

type cacheSizer interface {
	Size() (int64, error)
}

// statsAdapter feeds repository counts and the cache size to the metrics
// collector.
type statsAdapter struct {
	store repositoryStats
	cache cacheSizer
}

// GetStats implements metrics.StatsProvider
func (a *statsAdapter) GetStats() metrics.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out metrics.Stats
	if st, err := a.store.Stats(ctx); err != nil {
		logging.Debug("metrics: repository stats unavailable: %v", err)
	} else {
		out.Images, out.Videos, out.Pending = st.Images, st.Videos, st.Pending
	}

	if size, err := a.cache.Size(); err != nil {
		logging.Debug("metrics: cache size unavailable: %v", err)
	} else {
		out.CacheSize = size
	}
	return out
}
