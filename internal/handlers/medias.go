package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"media-picker/internal/logging"
	"media-picker/internal/orchestrator"
	"media-picker/internal/pipeline"
)

// CallerHeader identifies the caller whose listing requests are serialized
// against each other.
const CallerHeader = "X-Caller-ID"

const defaultCaller = "default"

// GetMedias opens a picker session and answers once it has been completed
// through the picker routes and the selection has been processed.
func (h *Handlers) GetMedias(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := decodeBody(r, &raw); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts, _ := orchestrator.ParsePickOptions(raw)
	records, err := h.commands.GetMedias(r.Context(), opts)
	writeRecords(w, r, "getMedias", records, err)
}

// GetLastMedias lists the most recent media. When the read capability is
// missing the request is held open until the permission is resolved through
// the permissions routes.
func (h *Handlers) GetLastMedias(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := decodeBody(r, &raw); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	caller := strings.TrimSpace(r.Header.Get(CallerHeader))
	if caller == "" {
		caller = defaultCaller
	}

	opts, _ := orchestrator.ParseListOptions(raw)
	records, err := h.commands.GetLastMedias(r.Context(), caller, opts, func(token string) {
		logging.Info("getLastMedias for %s is waiting on permission request %s", caller, token)
	})
	writeRecords(w, r, "getLastMedias", records, err)
}

func writeRecords(w http.ResponseWriter, r *http.Request, command string, records []pipeline.MediaRecord, err error) {
	if err != nil {
		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			logging.Debug("%s: client went away", command)
			return
		}
		writeJSONError(w, err.Error(), statusFor(err))
		return
	}
	if records == nil {
		records = []pipeline.MediaRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrPickerOpen):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, orchestrator.ErrUnknownToken), errors.Is(err, orchestrator.ErrNoSession):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
