package store

import (
	"time"

	"github.com/opsdesk/incident-desk/internal/domain"
)

// SeedIncidents returns the built-in sample set used when no snapshot
// exists yet: five incidents spanning every status, with timestamps
// relative to now.
func SeedIncidents(now time.Time) []domain.Incident {
	day := 24 * time.Hour

	engineering := domain.TeamEngineering
	technicians := domain.TeamTechnicians
	nedeco := domain.TeamNedeco

	closed2 := now.Add(-2 * day)
	closed12 := now.Add(-12 * day)

	return []domain.Incident{
		{
			ID:                   "seed-1",
			ClientTicketNumber:   "CLIENT-001",
			InternalTicketNumber: "CY-123456-001",
			Category:             domain.CategorySystem,
			Description:          "Server not responding to requests",
			ReportedBy:           "John Doe",
			Location:             "Nicosia HQ",
			ReportedAt:           now.Add(-5 * day),
			OpenedAt:             now.Add(-5 * day),
			Status:               domain.IncidentStatusInProgress,
			TeamHistory: []domain.TeamAssignment{
				{Team: domain.TeamTechnicians, AssignedAt: now.Add(-5 * day), Notes: "Initial assignment"},
				{Team: domain.TeamEngineering, AssignedAt: now.Add(-3 * day), Notes: "Escalated to engineering for software issue"},
			},
			CurrentTeam: &engineering,
		},
		{
			ID:                   "seed-2",
			ClientTicketNumber:   "CLIENT-002",
			InternalTicketNumber: "CY-123456-002",
			Category:             domain.CategoryNetwork,
			Description:          "Network latency in east wing",
			IsRecurring:          true,
			ReportedBy:           "Jane Smith",
			Location:             "Larnaca Airport",
			ReportedAt:           now.Add(-10 * day),
			OpenedAt:             now.Add(-10 * day),
			ClosedAt:             &closed2,
			Status:               domain.IncidentStatusResolved,
			TeamHistory: []domain.TeamAssignment{
				{Team: domain.TeamTechnicians, AssignedAt: now.Add(-10 * day), Notes: "Initial troubleshooting"},
				{Team: domain.TeamThirdParty, AssignedAt: now.Add(-8 * day), Notes: "Referred to ISP"},
				{Team: domain.TeamTechnicians, AssignedAt: now.Add(-4 * day), Notes: "Confirmation of fix", ResolvedAt: &closed2},
			},
			CurrentTeam:   &technicians,
			ResolvingTeam: &technicians,
		},
		{
			ID:                   "seed-3",
			ClientTicketNumber:   "CLIENT-003",
			InternalTicketNumber: "CY-123456-003",
			Category:             domain.CategoryRadar,
			Description:          "Calibration issues with radar station 2",
			ReportedBy:           "Mike Johnson",
			Location:             "Remote Site A",
			ReportedAt:           now.Add(-2 * day),
			OpenedAt:             now.Add(-2 * day),
			Status:               domain.IncidentStatusOpen,
			TeamHistory:          []domain.TeamAssignment{},
		},
		{
			ID:                   "seed-4",
			ClientTicketNumber:   "CLIENT-004",
			InternalTicketNumber: "CY-123456-004",
			Category:             domain.CategoryRadio,
			Description:          "Interference on emergency channel",
			IsRecurring:          true,
			ReportedBy:           "Sarah Palmer",
			Location:             "Paphos Airport",
			ReportedAt:           now.Add(-15 * day),
			OpenedAt:             now.Add(-15 * day),
			ClosedAt:             &closed12,
			Status:               domain.IncidentStatusResolved,
			TeamHistory: []domain.TeamAssignment{
				{Team: domain.TeamTechnicians, AssignedAt: now.Add(-15 * day), Notes: "Initial diagnosis"},
				{Team: domain.TeamNedeco, AssignedAt: now.Add(-14 * day), Notes: "Specialist equipment repair", ResolvedAt: &closed12},
			},
			CurrentTeam:   &nedeco,
			ResolvingTeam: &nedeco,
		},
		{
			ID:                   "seed-5",
			ClientTicketNumber:   "CLIENT-005",
			InternalTicketNumber: "CY-123456-005",
			Category:             domain.CategorySystem,
			Description:          "Database connection timeout",
			ReportedBy:           "Alex Wong",
			Location:             "Nicosia HQ",
			ReportedAt:           now.Add(-day),
			OpenedAt:             now.Add(-day),
			Status:               domain.IncidentStatusInProgress,
			TeamHistory: []domain.TeamAssignment{
				{Team: domain.TeamTechnicians, AssignedAt: now.Add(-day), Notes: "Initial troubleshooting"},
				{Team: domain.TeamEngineering, AssignedAt: now.Add(-12 * time.Hour), Notes: "Escalated to DB team"},
			},
			CurrentTeam: &engineering,
		},
	}
}
