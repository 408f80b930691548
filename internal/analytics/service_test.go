package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/opsdesk/incident-desk/internal/domain"
	"github.com/stretchr/testify/assert"
)

type fakeLister struct {
	incidents []domain.Incident
}

func (f *fakeLister) List() []domain.Incident { return f.incidents }

func resolvedIncident(category domain.IncidentCategory, location string, team domain.ResponsibleTeam, opened time.Time, resolution time.Duration) domain.Incident {
	closed := opened.Add(resolution)
	return domain.Incident{
		Category:      category,
		Location:      location,
		OpenedAt:      opened,
		ClosedAt:      &closed,
		Status:        domain.IncidentStatusResolved,
		ResolvingTeam: &team,
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	opened := now.Add(-24 * time.Hour)
	technicians := domain.TeamTechnicians

	lister := &fakeLister{incidents: []domain.Incident{
		resolvedIncident(domain.CategoryNetwork, "Nicosia HQ", domain.TeamTechnicians, opened, time.Hour),
		resolvedIncident(domain.CategoryNetwork, "Nicosia HQ", domain.TeamEngineering, opened, 6*time.Hour),
		{
			Category: domain.CategorySystem,
			Location: "DC-1",
			OpenedAt: now.Add(-30 * time.Minute),
			Status:   domain.IncidentStatusOpen,
		},
		{
			Category:    domain.CategoryRadar,
			Location:    "Radar Site A",
			OpenedAt:    now.Add(-5 * time.Hour),
			Status:      domain.IncidentStatusInProgress,
			IsRecurring: true,
			CurrentTeam: &technicians,
		},
	}}

	svc := NewService(lister, 4*time.Hour)
	svc.now = func() time.Time { return now }

	summary := svc.Summarize(context.Background())

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 1, summary.Open)
	assert.Equal(t, 1, summary.InProgress)
	assert.Equal(t, 2, summary.Resolved)
	assert.Equal(t, 1, summary.Recurring)

	assert.Equal(t, 2, summary.ByCategory[domain.CategoryNetwork])
	assert.Equal(t, 2, summary.ByLocation["Nicosia HQ"])
	assert.Equal(t, 1, summary.ByResolvingTeam[domain.TeamTechnicians])

	// Only the unresolved radar incident has a current team assignment.
	assert.Equal(t, map[domain.ResponsibleTeam]int{domain.TeamTechnicians: 1}, summary.ByCurrentTeam)

	// One slow resolution and one unresolved past the target
	assert.Equal(t, 2, summary.SLA.Breaches)
	assert.InDelta(t, 50.0, summary.SLA.BreachPercentage, 0.01)
	assert.InDelta(t, 3.5, summary.SLA.AvgResolutionHours, 0.01)
}

func TestSummarize_Empty(t *testing.T) {
	svc := NewService(&fakeLister{}, 0)

	summary := svc.Summarize(context.Background())

	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0.0, summary.SLA.AvgResolutionHours)
	assert.Equal(t, 0.0, summary.SLA.BreachPercentage)
}
