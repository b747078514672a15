package handlers

import (
	"errors"
	"net/http"

	"media-picker/internal/exifmeta"
	"media-picker/internal/orchestrator"
)

type exifValue struct {
	Value *string `json:"value"`
}

// GetExifForKey returns one embedded metadata value of a cached file.
// A tag the file does not carry is {"value": null}.
func (h *Handlers) GetExifForKey(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	value, err := h.commands.GetExifForKey(r.Context(), q.Get("uri"), q.Get("key"))
	if err != nil {
		writeJSONError(w, err.Error(), exifStatus(err))
		return
	}
	respondJSON(w, http.StatusOK, exifValue{Value: value})
}

// GetExifAll returns every embedded metadata tag of a cached file.
func (h *Handlers) GetExifAll(w http.ResponseWriter, r *http.Request) {
	tags, err := h.commands.GetExifAll(r.Context(), r.URL.Query().Get("uri"))
	if err != nil {
		writeJSONError(w, err.Error(), exifStatus(err))
		return
	}
	if tags == nil {
		tags = map[string]string{}
	}
	respondJSON(w, http.StatusOK, tags)
}

func exifStatus(err error) int {
	if errors.Is(err, exifmeta.ErrURIRequired) || errors.Is(err, exifmeta.ErrKeyRequired) {
		return http.StatusBadRequest
	}
	if errors.Is(err, orchestrator.ErrOutsideCache) {
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}
