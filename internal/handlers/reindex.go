package handlers

import (
	"errors"
	"net/http"

	"media-picker/internal/indexer"
	"media-picker/internal/logging"
)

// TriggerReindex starts an indexing pass in the background.
func (h *Handlers) TriggerReindex(w http.ResponseWriter, _ *http.Request) {
	if h.indexer == nil {
		writeJSONError(w, "indexing is not available", http.StatusServiceUnavailable)
		return
	}
	if h.indexer.IsRunning() {
		writeJSONError(w, indexer.ErrAlreadyRunning.Error(), http.StatusConflict)
		return
	}

	go func() {
		if _, err := h.indexer.Index(h.background); err != nil {
			if errors.Is(err, indexer.ErrAlreadyRunning) {
				logging.Debug("Re-index request raced with a running pass")
				return
			}
			logging.Error("Re-index failed: %v", err)
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}
