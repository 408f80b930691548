// Package incidents implements the incident lifecycle: reporting, team
// assignment, status transitions and resolution.
package incidents

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/opsdesk/incident-desk/internal/domain"
	"github.com/opsdesk/incident-desk/internal/pkg/ctxlog"
	"github.com/opsdesk/incident-desk/internal/store"
)

// Store is the incident persistence surface the service depends on.
type Store interface {
	List() []domain.Incident
	Get(id string) (domain.Incident, error)
	Append(ctx context.Context, inc domain.Incident) error
	Update(ctx context.Context, id string, fn func(*domain.Incident) error) (domain.Incident, error)
}

// Notifier receives lifecycle events for outbound notification delivery.
type Notifier interface {
	IncidentReported(ctx context.Context, inc domain.Incident)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) IncidentReported(context.Context, domain.Incident) {}

// Service implements incident business logic.
type Service struct {
	store    Store
	notifier Notifier
	now      func() time.Time
	randInt  func(n int) int
}

// Option customizes a Service. Used by tests to pin time and randomness.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRandInt overrides the random suffix source for ticket numbers.
func WithRandInt(fn func(n int) int) Option {
	return func(s *Service) { s.randInt = fn }
}

// NewService creates a new incident service.
func NewService(st Store, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		store:    st,
		notifier: notifier,
		now:      time.Now,
		randInt:  rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReportIncidentInput holds data for reporting a new incident.
type ReportIncidentInput struct {
	ClientTicketNumber string
	Category           domain.IncidentCategory
	Description        string
	IsRecurring        bool
	Location           string
	ReportedAt         *time.Time // Defaults to now when nil
}

// ReportIncident registers a new incident in Open status and assigns it an
// internal ticket number.
func (s *Service) ReportIncident(ctx context.Context, input ReportIncidentInput, reportedBy string) (domain.Incident, error) {
	if !input.Category.IsValid() {
		return domain.Incident{}, fmt.Errorf("%w: %s", ErrInvalidCategory, input.Category)
	}

	now := s.now()
	reportedAt := now
	if input.ReportedAt != nil {
		reportedAt = *input.ReportedAt
	}

	inc := domain.Incident{
		ID:                   uuid.New().String(),
		ClientTicketNumber:   input.ClientTicketNumber,
		InternalTicketNumber: TicketNumber(now, s.randInt(1000)),
		Category:             input.Category,
		Description:          input.Description,
		IsRecurring:          input.IsRecurring,
		ReportedBy:           reportedBy,
		Location:             input.Location,
		ReportedAt:           reportedAt,
		OpenedAt:             now,
		Status:               domain.IncidentStatusOpen,
		TeamHistory:          []domain.TeamAssignment{},
	}

	if err := s.store.Append(ctx, inc); err != nil {
		return domain.Incident{}, fmt.Errorf("append incident: %w", err)
	}

	ctxlog.FromContext(ctx).Info("incident reported",
		"incident_id", inc.ID,
		"ticket", inc.InternalTicketNumber,
		"category", inc.Category,
		"reported_by", reportedBy)

	s.notifier.IncidentReported(ctx, inc)

	return inc, nil
}

// UpdateStatus applies a status transition to an incident. Backward
// transitions are rejected. The first transition into Resolved stamps
// closed_at, records the resolving team and closes the open team history
// entry.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.IncidentStatus) (domain.Incident, error) {
	if !status.IsValid() {
		return domain.Incident{}, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	now := s.now()
	updated, err := s.store.Update(ctx, id, func(inc *domain.Incident) error {
		if !inc.Status.CanTransitionTo(status) {
			return &domain.InvalidTransitionError{From: inc.Status, To: status}
		}

		inc.Status = status

		if status == domain.IncidentStatusResolved && inc.ClosedAt == nil {
			closed := now
			inc.ClosedAt = &closed
			inc.ResolvingTeam = inc.CurrentTeam
			for i := len(inc.TeamHistory) - 1; i >= 0; i-- {
				if inc.TeamHistory[i].ResolvedAt == nil {
					resolved := now
					inc.TeamHistory[i].ResolvedAt = &resolved
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return domain.Incident{}, s.mapStoreErr(err)
	}

	ctxlog.FromContext(ctx).Info("incident status updated",
		"incident_id", id,
		"status", status)

	return updated, nil
}

// AssignTeamInput holds data for assigning an incident to a team.
type AssignTeamInput struct {
	Team        domain.ResponsibleTeam
	Notes       string
	Attachments []domain.FileAttachment
}

// AssignTeam appends a team assignment to the incident history and makes the
// team current. Assigning a team to an Open incident moves it to InProgress.
func (s *Service) AssignTeam(ctx context.Context, id string, input AssignTeamInput) (domain.Incident, error) {
	if !input.Team.IsValid() {
		return domain.Incident{}, fmt.Errorf("%w: %s", ErrInvalidTeam, input.Team)
	}

	now := s.now()
	updated, err := s.store.Update(ctx, id, func(inc *domain.Incident) error {
		if inc.IsResolved() {
			return ErrAlreadyResolved
		}

		team := input.Team
		notes := input.Notes
		if notes == "" {
			notes = fmt.Sprintf("Assigned to %s", team)
		}
		inc.TeamHistory = append(inc.TeamHistory, domain.TeamAssignment{
			Team:        team,
			AssignedAt:  now,
			Notes:       notes,
			Attachments: input.Attachments,
		})
		inc.CurrentTeam = &team

		if inc.Status == domain.IncidentStatusOpen {
			inc.Status = domain.IncidentStatusInProgress
		}
		return nil
	})
	if err != nil {
		return domain.Incident{}, s.mapStoreErr(err)
	}

	ctxlog.FromContext(ctx).Info("incident assigned",
		"incident_id", id,
		"team", input.Team)

	return updated, nil
}

// ResolveIncident transitions an incident to Resolved.
func (s *Service) ResolveIncident(ctx context.Context, id string) (domain.Incident, error) {
	return s.UpdateStatus(ctx, id, domain.IncidentStatusResolved)
}

// GetIncident retrieves a single incident by ID.
func (s *Service) GetIncident(_ context.Context, id string) (domain.Incident, error) {
	inc, err := s.store.Get(id)
	if err != nil {
		return domain.Incident{}, s.mapStoreErr(err)
	}
	return inc, nil
}

// ListIncidents returns all incidents.
func (s *Service) ListIncidents(context.Context) []domain.Incident {
	return s.store.List()
}

// ListUserIncidents returns incidents reported by the given user.
func (s *Service) ListUserIncidents(_ context.Context, reportedBy string) []domain.Incident {
	all := s.store.List()
	out := make([]domain.Incident, 0, len(all))
	for _, inc := range all {
		if inc.ReportedBy == reportedBy {
			out = append(out, inc)
		}
	}
	return out
}

func (s *Service) mapStoreErr(err error) error {
	if errors.Is(err, store.ErrIncidentNotFound) {
		return ErrIncidentNotFound
	}
	return err
}
