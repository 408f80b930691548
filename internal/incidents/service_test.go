package incidents

import (
	"context"
	"testing"
	"time"

	"github.com/opsdesk/incident-desk/internal/domain"
	"github.com/opsdesk/incident-desk/internal/kv"
	"github.com/opsdesk/incident-desk/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	reported []domain.Incident
}

func (n *recordingNotifier) IncidentReported(_ context.Context, inc domain.Incident) {
	n.reported = append(n.reported, inc)
}

func newTestService(t *testing.T, now time.Time) (*Service, *recordingNotifier) {
	t.Helper()

	st, err := store.Open(context.Background(), kv.NewMemory())
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	svc := NewService(st, notifier,
		WithClock(func() time.Time { return now }),
		WithRandInt(func(int) int { return 42 }),
	)
	return svc, notifier
}

func TestReportIncident(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	svc, notifier := newTestService(t, now)

	inc, err := svc.ReportIncident(context.Background(), ReportIncidentInput{
		ClientTicketNumber: "CLIENT-010",
		Category:           domain.CategoryNetwork,
		Description:        "Switch unreachable",
		Location:           "Nicosia HQ",
	}, "jdoe")
	require.NoError(t, err)

	assert.NotEmpty(t, inc.ID)
	assert.Equal(t, domain.IncidentStatusOpen, inc.Status)
	assert.Equal(t, "jdoe", inc.ReportedBy)
	assert.True(t, inc.OpenedAt.Equal(now))
	assert.True(t, inc.ReportedAt.Equal(now))
	assert.Nil(t, inc.ClosedAt)
	assert.Nil(t, inc.CurrentTeam)
	assert.Empty(t, inc.TeamHistory)
	assert.Regexp(t, `^CY-\d{6}-042$`, inc.InternalTicketNumber)

	require.Len(t, notifier.reported, 1)
	assert.Equal(t, inc.ID, notifier.reported[0].ID)

	stored, err := svc.GetIncident(context.Background(), inc.ID)
	require.NoError(t, err)
	assert.Equal(t, inc.InternalTicketNumber, stored.InternalTicketNumber)
}

func TestReportIncident_DuplicateInputDistinctTickets(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	st, err := store.Open(context.Background(), kv.NewMemory())
	require.NoError(t, err)

	suffix := 0
	svc := NewService(st, &recordingNotifier{},
		WithClock(func() time.Time { return now }),
		WithRandInt(func(int) int { suffix++; return suffix }),
	)

	input := ReportIncidentInput{
		ClientTicketNumber: "CLIENT-010",
		Category:           domain.CategoryNetwork,
		Description:        "Switch unreachable",
		Location:           "Nicosia HQ",
	}

	first, err := svc.ReportIncident(context.Background(), input, "jdoe")
	require.NoError(t, err)
	second, err := svc.ReportIncident(context.Background(), input, "jdoe")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.InternalTicketNumber, second.InternalTicketNumber)
}

func TestReportIncident_ExplicitReportedAt(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)

	earlier := now.Add(-3 * time.Hour)
	inc, err := svc.ReportIncident(context.Background(), ReportIncidentInput{
		Category:    domain.CategoryRadar,
		Description: "Sweep gaps",
		Location:    "Radar Site A",
		ReportedAt:  &earlier,
	}, "jdoe")
	require.NoError(t, err)

	assert.True(t, inc.ReportedAt.Equal(earlier))
	assert.True(t, inc.OpenedAt.Equal(now))
}

func TestReportIncident_InvalidCategory(t *testing.T) {
	svc, notifier := newTestService(t, time.Now())

	_, err := svc.ReportIncident(context.Background(), ReportIncidentInput{
		Category:    "submarine",
		Description: "x",
		Location:    "y",
	}, "jdoe")

	assert.ErrorIs(t, err, ErrInvalidCategory)
	assert.Empty(t, notifier.reported)
}

func TestAssignTeam_PromotesOpenToInProgress(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)

	inc, err := svc.ReportIncident(context.Background(), ReportIncidentInput{
		Category:    domain.CategorySystem,
		Description: "Disk full",
		Location:    "DC-1",
	}, "jdoe")
	require.NoError(t, err)

	updated, err := svc.AssignTeam(context.Background(), inc.ID, AssignTeamInput{
		Team:  domain.TeamTechnicians,
		Notes: "first look",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.IncidentStatusInProgress, updated.Status)
	require.NotNil(t, updated.CurrentTeam)
	assert.Equal(t, domain.TeamTechnicians, *updated.CurrentTeam)
	require.Len(t, updated.TeamHistory, 1)
	assert.Equal(t, domain.TeamTechnicians, updated.TeamHistory[0].Team)
	assert.Equal(t, "first look", updated.TeamHistory[0].Notes)
	assert.Nil(t, updated.TeamHistory[0].ResolvedAt)
}

func TestAssignTeam_DefaultsNotes(t *testing.T) {
	svc, _ := newTestService(t, time.Now())

	inc, err := svc.ReportIncident(context.Background(), ReportIncidentInput{
		Category:    domain.CategoryRadio,
		Description: "Static on channel 2",
		Location:    "Tower",
	}, "jdoe")
	require.NoError(t, err)

	updated, err := svc.AssignTeam(context.Background(), inc.ID, AssignTeamInput{Team: domain.TeamEngineering})
	require.NoError(t, err)

	require.Len(t, updated.TeamHistory, 1)
	assert.Equal(t, "Assigned to Engineering", updated.TeamHistory[0].Notes)
}

func TestAssignTeam_AppendsHistory(t *testing.T) {
	svc, _ := newTestService(t, time.Now())

	inc, err := svc.ReportIncident(context.Background(), ReportIncidentInput{
		Category:    domain.CategoryCamera,
		Description: "Feed frozen",
		Location:    "Gate 3",
	}, "jdoe")
	require.NoError(t, err)

	_, err = svc.AssignTeam(context.Background(), inc.ID, AssignTeamInput{Team: domain.TeamTechnicians})
	require.NoError(t, err)

	updated, err := svc.AssignTeam(context.Background(), inc.ID, AssignTeamInput{Team: domain.TeamEngineering})
	require.NoError(t, err)

	require.Len(t, updated.TeamHistory, 2)
	assert.Equal(t, domain.TeamEngineering, updated.TeamHistory[1].Team)
	assert.Equal(t, domain.TeamEngineering, *updated.CurrentTeam)
	// Still in progress, no promotion side effects beyond the first assignment
	assert.Equal(t, domain.IncidentStatusInProgress, updated.Status)
}

func TestAssignTeam_ResolvedIncidentRejected(t *testing.T) {
	svc, _ := newTestService(t, time.Now())

	inc, err := svc.ReportIncident(context.Background(), ReportIncidentInput{
		Category:    domain.CategoryRadio,
		Description: "Static on channel 2",
		Location:    "Tower",
	}, "jdoe")
	require.NoError(t, err)

	_, err = svc.AssignTeam(context.Background(), inc.ID, AssignTeamInput{Team: domain.TeamTechnicians})
	require.NoError(t, err)
	_, err = svc.ResolveIncident(context.Background(), inc.ID)
	require.NoError(t, err)

	_, err = svc.AssignTeam(context.Background(), inc.ID, AssignTeamInput{Team: domain.TeamEngineering})
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestResolveIncident_SideEffects(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)

	inc, err := svc.ReportIncident(context.Background(), ReportIncidentInput{
		Category:    domain.CategoryLaboratory,
		Description: "Calibration drift",
		Location:    "Lab 2",
	}, "jdoe")
	require.NoError(t, err)

	_, err = svc.AssignTeam(context.Background(), inc.ID, AssignTeamInput{Team: domain.TeamEngineering})
	require.NoError(t, err)

	resolved, err := svc.ResolveIncident(context.Background(), inc.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.IncidentStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ClosedAt)
	assert.True(t, resolved.ClosedAt.Equal(now))
	require.NotNil(t, resolved.ResolvingTeam)
	assert.Equal(t, domain.TeamEngineering, *resolved.ResolvingTeam)
	require.Len(t, resolved.TeamHistory, 1)
	require.NotNil(t, resolved.TeamHistory[0].ResolvedAt)
	assert.True(t, resolved.TeamHistory[0].ResolvedAt.Equal(now))
}

func TestResolveIncident_Idempotent(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)

	inc, err := svc.ReportIncident(context.Background(), ReportIncidentInput{
		Category:    domain.CategorySystem,
		Description: "Crash loop",
		Location:    "DC-1",
	}, "jdoe")
	require.NoError(t, err)

	first, err := svc.ResolveIncident(context.Background(), inc.ID)
	require.NoError(t, err)

	again, err := svc.ResolveIncident(context.Background(), inc.ID)
	require.NoError(t, err)

	// closed_at is stamped once
	assert.True(t, again.ClosedAt.Equal(*first.ClosedAt))
}

func TestUpdateStatus_BackwardTransitionRejected(t *testing.T) {
	svc, _ := newTestService(t, time.Now())

	inc, err := svc.ReportIncident(context.Background(), ReportIncidentInput{
		Category:    domain.CategoryNetwork,
		Description: "Packet loss",
		Location:    "DC-2",
	}, "jdoe")
	require.NoError(t, err)

	_, err = svc.ResolveIncident(context.Background(), inc.ID)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), inc.ID, domain.IncidentStatusOpen)
	var transitionErr *domain.InvalidTransitionError
	assert.ErrorAs(t, err, &transitionErr)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc, _ := newTestService(t, time.Now())

	_, err := svc.UpdateStatus(context.Background(), "missing", domain.IncidentStatusResolved)
	assert.ErrorIs(t, err, ErrIncidentNotFound)
}

func TestListUserIncidents(t *testing.T) {
	svc, _ := newTestService(t, time.Now())

	_, err := svc.ReportIncident(context.Background(), ReportIncidentInput{
		Category:    domain.CategoryOther,
		Description: "Door sensor",
		Location:    "Gate 1",
	}, "alice")
	require.NoError(t, err)
	_, err = svc.ReportIncident(context.Background(), ReportIncidentInput{
		Category:    domain.CategoryOther,
		Description: "Badge reader",
		Location:    "Gate 2",
	}, "bob")
	require.NoError(t, err)

	mine := svc.ListUserIncidents(context.Background(), "alice")
	require.Len(t, mine, 1)
	assert.Equal(t, "Door sensor", mine[0].Description)
}
