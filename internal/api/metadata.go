package api

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// MetadataKeys handles GET /api/metadata/keys.
func (h *Handler) MetadataKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.query.Keys(r.Context())
	if err != nil {
		writeError(w, err, "metadata keys")
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: keys})
}

// MetadataValues handles GET /api/metadata/values/{key}.
func (h *Handler) MetadataValues(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil || key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("key is required"))
		return
	}
	values, err := h.query.Values(r.Context(), key)
	if err != nil {
		writeError(w, err, "metadata values", slog.String("key", key))
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: values})
}
