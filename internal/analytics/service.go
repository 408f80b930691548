// Package analytics computes aggregate statistics over the incident list.
package analytics

import (
	"context"
	"time"

	"github.com/opsdesk/incident-desk/internal/domain"
)

// IncidentLister provides the incidents to aggregate.
type IncidentLister interface {
	List() []domain.Incident
}

// Summary is the aggregate report returned to dashboards.
type Summary struct {
	Total      int            `json:"total"`
	Open       int            `json:"open"`
	InProgress int            `json:"in_progress"`
	Resolved   int            `json:"resolved"`
	Recurring  int            `json:"recurring"`

	ByCategory      map[domain.IncidentCategory]int `json:"by_category"`
	ByLocation      map[string]int                  `json:"by_location"`
	ByCurrentTeam   map[domain.ResponsibleTeam]int  `json:"by_current_team"`
	ByResolvingTeam map[domain.ResponsibleTeam]int  `json:"by_resolving_team"`

	SLA SLAStats `json:"sla"`
}

// SLAStats summarizes resolution performance against the 4 hour target.
type SLAStats struct {
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
	Breaches           int     `json:"breaches"`
	BreachPercentage   float64 `json:"breach_percentage"`
}

// Service computes analytics over incidents.
type Service struct {
	store     IncidentLister
	slaTarget time.Duration
	now       func() time.Time
}

// NewService creates a new analytics service.
func NewService(store IncidentLister, slaTarget time.Duration) *Service {
	if slaTarget == 0 {
		slaTarget = 4 * time.Hour
	}
	return &Service{
		store:     store,
		slaTarget: slaTarget,
		now:       time.Now,
	}
}

// Summarize builds the aggregate report. Unresolved incidents count against
// the SLA once their age passes the target.
func (s *Service) Summarize(context.Context) Summary {
	incidents := s.store.List()
	now := s.now()

	summary := Summary{
		Total:           len(incidents),
		ByCategory:      make(map[domain.IncidentCategory]int),
		ByLocation:      make(map[string]int),
		ByCurrentTeam:   make(map[domain.ResponsibleTeam]int),
		ByResolvingTeam: make(map[domain.ResponsibleTeam]int),
	}

	var resolutionTotal time.Duration
	var resolvedCount int

	for _, inc := range incidents {
		switch inc.Status {
		case domain.IncidentStatusOpen:
			summary.Open++
		case domain.IncidentStatusInProgress:
			summary.InProgress++
		case domain.IncidentStatusResolved:
			summary.Resolved++
		}

		if inc.IsRecurring {
			summary.Recurring++
		}

		summary.ByCategory[inc.Category]++
		if inc.Location != "" {
			summary.ByLocation[inc.Location]++
		}
		if !inc.IsResolved() && inc.CurrentTeam != nil {
			summary.ByCurrentTeam[*inc.CurrentTeam]++
		}
		if inc.ResolvingTeam != nil {
			summary.ByResolvingTeam[*inc.ResolvingTeam]++
		}

		if inc.IsResolved() && inc.ClosedAt != nil {
			resolution := inc.ClosedAt.Sub(inc.OpenedAt)
			resolutionTotal += resolution
			resolvedCount++
			if resolution > s.slaTarget {
				summary.SLA.Breaches++
			}
		} else if now.Sub(inc.OpenedAt) > s.slaTarget {
			summary.SLA.Breaches++
		}
	}

	if resolvedCount > 0 {
		summary.SLA.AvgResolutionHours = resolutionTotal.Hours() / float64(resolvedCount)
	}
	if summary.Total > 0 {
		summary.SLA.BreachPercentage = float64(summary.SLA.Breaches) / float64(summary.Total) * 100
	}

	return summary
}
