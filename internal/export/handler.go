package export

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opsdesk/incident-desk/internal/domain"
)

// IncidentLister provides the incidents to export.
type IncidentLister interface {
	List() []domain.Incident
}

// Handler handles CSV export requests.
type Handler struct {
	store IncidentLister
}

// NewHandler creates a new export handler.
func NewHandler(store IncidentLister) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes registers export routes (admin only).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/incidents/export", h.ExportCSV)
}

// ExportCSV handles GET /incidents/export.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", Filename(time.Now())))

	if err := WriteCSV(w, h.store.List()); err != nil {
		// Headers are already written, nothing to do but log
		slog.Error("csv export failed", "error", err)
	}
}
