package incidents

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/opsdesk/incident-desk/internal/domain"
	"github.com/opsdesk/incident-desk/internal/pkg/httputil"
)

// Handler handles HTTP requests for the incidents module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers incident routes. All routes require an
// authenticated user; listing all incidents requires the admin role.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents", func(r chi.Router) {
		r.Post("/", h.ReportIncident)
		r.Get("/my", h.ListMyIncidents)
		r.Get("/{id}", h.GetIncident)
		r.Post("/{id}/assign", h.AssignTeam)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.Post("/{id}/resolve", h.ResolveIncident)

		r.Group(func(r chi.Router) {
			r.Use(httputil.RequireRole(domain.RoleAdmin))
			r.Get("/", h.ListIncidents)
		})
	})
}

// ReportIncidentRequest represents the request body for reporting an incident.
type ReportIncidentRequest struct {
	ClientTicketNumber string     `json:"client_ticket_number" validate:"max=64"`
	Category           string     `json:"category" validate:"required,oneof=system network radar radio camera laboratory other"`
	Description        string     `json:"description" validate:"required,min=1,max=4000"`
	IsRecurring        bool       `json:"is_recurring"`
	Location           string     `json:"location" validate:"required,min=1,max=255"`
	ReportedAt         *time.Time `json:"reported_at"`
}

// AssignTeamRequest represents the request body for assigning a team.
type AssignTeamRequest struct {
	Team        string                  `json:"team" validate:"required"`
	Notes       string                  `json:"notes" validate:"max=4000"`
	Attachments []domain.FileAttachment `json:"attachments"`
}

// UpdateStatusRequest represents the request body for a status transition.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_progress resolved"`
}

// ReportIncident handles POST /incidents.
func (h *Handler) ReportIncident(w http.ResponseWriter, r *http.Request) {
	var req ReportIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	input := ReportIncidentInput{
		ClientTicketNumber: req.ClientTicketNumber,
		Category:           domain.IncidentCategory(req.Category),
		Description:        req.Description,
		IsRecurring:        req.IsRecurring,
		Location:           req.Location,
		ReportedAt:         req.ReportedAt,
	}

	inc, err := h.service.ReportIncident(r.Context(), input, httputil.GetUsername(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, inc)
}

// ListIncidents handles GET /incidents (admin only).
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	httputil.Success(w, http.StatusOK, h.service.ListIncidents(r.Context()))
}

// ListMyIncidents handles GET /incidents/my.
func (h *Handler) ListMyIncidents(w http.ResponseWriter, r *http.Request) {
	username := httputil.GetUsername(r.Context())
	httputil.Success(w, http.StatusOK, h.service.ListUserIncidents(r.Context(), username))
}

// GetIncident handles GET /incidents/{id}.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	inc, err := h.service.GetIncident(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	// Non-admin users may only read their own incidents.
	if httputil.GetRole(r.Context()) != domain.RoleAdmin && inc.ReportedBy != httputil.GetUsername(r.Context()) {
		httputil.Error(w, http.StatusForbidden, "forbidden")
		return
	}

	httputil.Success(w, http.StatusOK, inc)
}

// AssignTeam handles POST /incidents/{id}/assign.
func (h *Handler) AssignTeam(w http.ResponseWriter, r *http.Request) {
	var req AssignTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	inc, err := h.service.AssignTeam(r.Context(), chi.URLParam(r, "id"), AssignTeamInput{
		Team:        domain.ResponsibleTeam(req.Team),
		Notes:       req.Notes,
		Attachments: req.Attachments,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, inc)
}

// UpdateStatus handles PATCH /incidents/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	inc, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), domain.IncidentStatus(req.Status))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, inc)
}

// ResolveIncident handles POST /incidents/{id}/resolve.
func (h *Handler) ResolveIncident(w http.ResponseWriter, r *http.Request) {
	inc, err := h.service.ResolveIncident(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	httputil.Success(w, http.StatusOK, inc)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	var transitionErr *domain.InvalidTransitionError
	switch {
	case errors.Is(err, ErrIncidentNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidCategory), errors.Is(err, ErrInvalidTeam), errors.Is(err, ErrInvalidStatus):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &transitionErr), errors.Is(err, ErrAlreadyResolved):
		httputil.Error(w, http.StatusConflict, err.Error())
	default:
		slog.Error("internal error", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}
