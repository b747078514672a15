package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-picker/internal/indexer"
	"media-picker/internal/logging"
	"media-picker/internal/mediastore"
	"media-picker/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	Indexer    *indexer.Status   `json:"indexer,omitempty"`
	Repository *mediastore.Stats `json:"repository,omitempty"`

	PickerOpen         bool `json:"pickerOpen"`
	PendingPermissions int  `json:"pendingPermissions"`

	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck reports liveness with a summary of the pipeline state. It
// answers 200 even when degraded; the repository may be empty or still
// indexing and commands still work against it.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       time.Since(h.startedAt).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if h.picker != nil {
		_, response.PickerOpen = h.picker.Current()
	}
	if h.commands != nil {
		response.PendingPermissions = len(h.commands.Pending())
	}

	if h.indexer != nil {
		st := h.indexer.Status()
		response.Indexer = &st
		if st.LastError != "" {
			response.Status = statusDegraded
		}
	}

	if h.stats != nil {
		if stats, err := h.stats.Stats(r.Context()); err != nil {
			logging.Warn("Health check could not read repository stats: %v", err)
			response.Status = statusDegraded
		} else {
			response.Repository = &stats
		}
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	respondJSON(w, http.StatusOK, response)
}
