package metrics

import (
	"time"

	"media-picker/internal/logging"
)

// StatsProvider reports repository and cache totals.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current totals
type Stats struct {
	Images    int
	Videos    int
	Pending   int
	CacheSize int64
}

// Collector periodically copies StatsProvider totals into gauges.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the collection loop
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	MediaItemsTotal.WithLabelValues("images").Set(float64(stats.Images))
	MediaItemsTotal.WithLabelValues("videos").Set(float64(stats.Videos))
	MediaPendingTotal.Set(float64(stats.Pending))
	CacheSizeBytes.Set(float64(stats.CacheSize))

	logging.Debug("Metrics collected: images=%d, videos=%d, pending=%d, cache=%d bytes",
		stats.Images, stats.Videos, stats.Pending, stats.CacheSize)
}
