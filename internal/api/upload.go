package api

import (
	"net/http"

	"github.com/ashureev/chatkeep/internal/media"
	"github.com/go-chi/chi/v5"
)

// UploadHandler issues media upload credentials. It needs no authentication.
type UploadHandler struct {
	signer *media.Signer
}

// NewUploadHandler creates an upload handler. A nil signer disables uploads.
func NewUploadHandler(signer *media.Signer) *UploadHandler {
	return &UploadHandler{signer: signer}
}

// RegisterRoutes registers the upload route.
func (h *UploadHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/upload", h.GetUploadAuth)
}

// GetUploadAuth returns fresh signed upload parameters.
func (h *UploadHandler) GetUploadAuth(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		Error(w, http.StatusServiceUnavailable, "media uploads are not configured")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	JSON(w, http.StatusOK, h.signer.AuthenticationParameters())
}
