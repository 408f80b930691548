package analytics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/opsdesk/incident-desk/internal/pkg/httputil"
)

// Handler handles HTTP requests for the analytics module.
type Handler struct {
	service *Service
}

// NewHandler creates a new analytics handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers analytics routes (admin only).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/analytics/summary", h.GetSummary)
}

// GetSummary handles GET /analytics/summary.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	httputil.Success(w, http.StatusOK, h.service.Summarize(r.Context()))
}
