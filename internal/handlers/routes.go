package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes adds the command surface to r.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet, http.MethodHead).Name("health")
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet).Name("version")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/medias", h.GetMedias).Methods(http.MethodPost).Name("getMedias")
	api.HandleFunc("/medias/last", h.GetLastMedias).Methods(http.MethodPost).Name("getLastMedias")

	api.HandleFunc("/picker", h.GetPickerSession).Methods(http.MethodGet).Name("pickerSession")
	api.HandleFunc("/picker/selection", h.CompletePickerSession).Methods(http.MethodPost).Name("pickerSelection")
	api.HandleFunc("/picker/cancel", h.CancelPickerSession).Methods(http.MethodPost).Name("pickerCancel")

	api.HandleFunc("/permissions", h.ListPermissionRequests).Methods(http.MethodGet).Name("permissions")
	api.HandleFunc("/permissions/{token}", h.ResolvePermission).Methods(http.MethodPost).Name("permissionOutcome")

	api.HandleFunc("/exif", h.GetExifForKey).Methods(http.MethodGet).Name("getExifForKey")
	api.HandleFunc("/exif/all", h.GetExifAll).Methods(http.MethodGet).Name("getExifAll")

	api.HandleFunc("/reindex", h.TriggerReindex).Methods(http.MethodPost).Name("reindex")
}
