package handlers

import (
	"net/http"
	"strings"

	"media-picker/internal/orchestrator"
	"media-picker/internal/repository"
)

// GetPickerSession returns the open picker session, if any.
func (h *Handlers) GetPickerSession(w http.ResponseWriter, _ *http.Request) {
	session, ok := h.picker.Current()
	if !ok {
		writeJSONError(w, orchestrator.ErrNoSession.Error(), http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

type selectionRequest struct {
	URIs []string `json:"uris"`
}

// CompletePickerSession submits the user's selection, in selection order.
func (h *Handlers) CompletePickerSession(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	refs := make([]repository.Reference, 0, len(req.URIs))
	for _, uri := range req.URIs {
		uri = strings.TrimSpace(uri)
		if uri == "" {
			writeJSONError(w, "selection contains an empty uri", http.StatusBadRequest)
			return
		}
		refs = append(refs, repository.Reference{URI: uri})
	}

	if err := h.picker.Complete(refs); err != nil {
		writeJSONError(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelPickerSession closes the open session with an empty selection.
func (h *Handlers) CancelPickerSession(w http.ResponseWriter, _ *http.Request) {
	if err := h.picker.Cancel(); err != nil {
		writeJSONError(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
