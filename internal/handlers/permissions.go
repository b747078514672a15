package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"media-picker/internal/orchestrator"
)

// ListPermissionRequests returns the suspended listing requests, oldest
// first.
func (h *Handlers) ListPermissionRequests(w http.ResponseWriter, _ *http.Request) {
	pending := h.commands.Pending()
	if pending == nil {
		pending = []orchestrator.Suspended{}
	}
	respondJSON(w, http.StatusOK, pending)
}

type permissionOutcome struct {
	Granted *bool `json:"granted"`
}

// ResolvePermission reports the outcome of a permission request. Each
// token can be resolved once.
func (h *Handlers) ResolvePermission(w http.ResponseWriter, r *http.Request) {
	var req permissionOutcome
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Granted == nil {
		writeJSONError(w, "granted is required", http.StatusBadRequest)
		return
	}

	if err := h.commands.ResolvePermission(mux.Vars(r)["token"], *req.Granted); err != nil {
		writeJSONError(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
