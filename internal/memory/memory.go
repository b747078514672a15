package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"media-picker/internal/logging"
	"media-picker/internal/metrics"
)

// Config holds decode gate configuration
type Config struct {
	// LimitBytes is the soft heap limit (0 = use GOMEMLIMIT, or no gating)
	LimitBytes int64

	// ResumeMark is the usage ratio below which a closed gate reopens (0.0-1.0)
	ResumeMark float64

	// PauseMark is the usage ratio at which the gate closes (0.0-1.0)
	PauseMark float64

	// CheckInterval is how often heap usage is sampled
	CheckInterval time.Duration
}

// DefaultConfig returns the gate defaults
func DefaultConfig() Config {
	return Config{
		ResumeMark:    0.7,
		PauseMark:     0.85,
		CheckInterval: 2 * time.Second,
	}
}

// Gate holds full-image decodes back while the heap is near its limit.
// HEIC transcodes and frame extraction call Wait before allocating a
// full bitmap.
type Gate struct {
	config   Config
	limit    int64
	alloc    func() uint64
	stopOnce sync.Once
	stop     chan struct{}

	mu     sync.RWMutex
	closed bool
	open   chan struct{}
}

// NewGate creates a gate. With no limit configured Wait never blocks.
func NewGate(config Config) *Gate {
	limit := config.LimitBytes
	if limit == 0 {
		if l := debug.SetMemoryLimit(-1); l > 0 && l < 1<<62 {
			limit = l
			logging.Info("Decode gate using GOMEMLIMIT: %s", formatBytes(limit))
		}
	}
	if limit == 0 {
		logging.Debug("Decode gate: no memory limit configured, gating disabled")
	}

	return &Gate{
		config: config,
		limit:  limit,
		alloc:  heapAlloc,
		stop:   make(chan struct{}),
		open:   make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Start samples heap usage in the background until Stop.
func (g *Gate) Start() {
	if g.limit == 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(g.config.CheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				g.check()
			case <-g.stop:
				return
			}
		}
	}()
}

// Stop ends sampling and releases every waiter.
func (g *Gate) Stop() {
	g.stopOnce.Do(func() { close(g.stop) })
}

func (g *Gate) check() {
	usage := float64(g.alloc()) / float64(g.limit)
	metrics.MemoryUsageRatio.Set(usage)

	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case usage >= g.config.PauseMark && !g.closed:
		logging.Warn("Memory critical (%.1f%% of limit), holding decodes", usage*100)
		g.closed = true
		metrics.MemoryPaused.Set(1)
		go runtime.GC()
	case usage < g.config.ResumeMark && g.closed:
		logging.Info("Memory recovered (%.1f%% of limit), resuming decodes", usage*100)
		g.closed = false
		metrics.MemoryPaused.Set(0)
		close(g.open)
		g.open = make(chan struct{})
	}
}

// Wait blocks while the gate is closed. It returns ctx.Err() if ctx ends
// first, and nil once decoding may proceed or the gate is stopped.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil {
		return nil
	}

	g.mu.RLock()
	if !g.closed {
		g.mu.RUnlock()
		return nil
	}
	open := g.open
	g.mu.RUnlock()

	select {
	case <-open:
		return nil
	case <-g.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Closed reports whether decodes are currently held.
func (g *Gate) Closed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.closed
}
