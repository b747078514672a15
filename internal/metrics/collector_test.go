package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeStats struct{ stats Stats }

func (f fakeStats) GetStats() Stats { return f.stats }

func TestCollectorCollect(t *testing.T) {
	c := NewCollector(fakeStats{Stats{Images: 12, Videos: 3, Pending: 1, CacheSize: 4096}}, time.Hour)
	c.collect()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"images", testutil.ToFloat64(MediaItemsTotal.WithLabelValues("images")), 12},
		{"videos", testutil.ToFloat64(MediaItemsTotal.WithLabelValues("videos")), 3},
		{"pending", testutil.ToFloat64(MediaPendingTotal), 1},
		{"cache size", testutil.ToFloat64(CacheSizeBytes), 4096},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s gauge = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, time.Hour)
	c.collect()
}

func TestCollectorStartStop(t *testing.T) {
	c := NewCollector(fakeStats{Stats{Images: 1}}, 10*time.Millisecond)
	c.Start()
	time.Sleep(30 * time.Millisecond)
	c.Stop()
}

func TestInitializeMetrics(t *testing.T) {
	InitializeMetrics()

	if n := testutil.CollectAndCount(RunsTotal); n < 15 {
		t.Errorf("RunsTotal series = %d, want at least 15", n)
	}
	if n := testutil.CollectAndCount(MaterializeTotal); n != 3 {
		t.Errorf("MaterializeTotal series = %d, want 3", n)
	}
}
