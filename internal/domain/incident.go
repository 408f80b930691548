package domain

import (
	"fmt"
	"time"
)

// IncidentStatus represents the lifecycle state of an incident.
type IncidentStatus string

// Incident statuses.
const (
	IncidentStatusOpen       IncidentStatus = "open"
	IncidentStatusInProgress IncidentStatus = "in_progress"
	IncidentStatusResolved   IncidentStatus = "resolved"
)

// IsValid checks if the incident status is valid.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusOpen, IncidentStatusInProgress, IncidentStatusResolved:
		return true
	}
	return false
}

// CanTransitionTo reports whether a transition from s to next is allowed.
// Resolved is terminal: backward transitions are rejected rather than
// silently applied.
func (s IncidentStatus) CanTransitionTo(next IncidentStatus) bool {
	if !next.IsValid() {
		return false
	}
	switch s {
	case IncidentStatusOpen:
		return true
	case IncidentStatusInProgress:
		return next != IncidentStatusOpen
	case IncidentStatusResolved:
		return next == IncidentStatusResolved
	}
	return false
}

// IncidentCategory classifies the affected equipment or system.
// The set is closed with Other as the escape hatch; location stays free text.
type IncidentCategory string

// Incident categories.
const (
	CategorySystem     IncidentCategory = "system"
	CategoryNetwork    IncidentCategory = "network"
	CategoryRadar      IncidentCategory = "radar"
	CategoryRadio      IncidentCategory = "radio"
	CategoryCamera     IncidentCategory = "camera"
	CategoryLaboratory IncidentCategory = "laboratory"
	CategoryOther      IncidentCategory = "other"
)

// IsValid checks if the category is valid.
func (c IncidentCategory) IsValid() bool {
	switch c {
	case CategorySystem, CategoryNetwork, CategoryRadar, CategoryRadio,
		CategoryCamera, CategoryLaboratory, CategoryOther:
		return true
	}
	return false
}

// ResponsibleTeam identifies a team that can hold an incident.
type ResponsibleTeam string

// Responsible teams.
const (
	TeamTechnicians ResponsibleTeam = "Technicians"
	TeamEngineering ResponsibleTeam = "Engineering"
	TeamThirdParty  ResponsibleTeam = "Third Party"
	TeamNedeco      ResponsibleTeam = "Nedeco"
)

// IsValid checks if the team is valid.
func (t ResponsibleTeam) IsValid() bool {
	switch t {
	case TeamTechnicians, TeamEngineering, TeamThirdParty, TeamNedeco:
		return true
	}
	return false
}

// TeamAssignment records handing an incident to a responsible team.
// ResolvedAt is set on the last entry exactly when the incident resolves.
type TeamAssignment struct {
	Team        ResponsibleTeam  `json:"team"`
	AssignedAt  time.Time        `json:"assigned_at"`
	ResolvedAt  *time.Time       `json:"resolved_at,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	Attachments []FileAttachment `json:"attachments,omitempty"`
}

// Incident represents a reported operational problem tracked to resolution.
type Incident struct {
	ID                   string           `json:"id"`
	ClientTicketNumber   string           `json:"client_ticket_number,omitempty"`
	InternalTicketNumber string           `json:"internal_ticket_number"`
	Category             IncidentCategory `json:"category"`
	Description          string           `json:"description"`
	IsRecurring          bool             `json:"is_recurring"`
	ReportedBy           string           `json:"reported_by"`
	Location             string           `json:"location"`
	ReportedAt           time.Time        `json:"reported_at"`
	OpenedAt             time.Time        `json:"opened_at"`
	ClosedAt             *time.Time       `json:"closed_at,omitempty"`
	Status               IncidentStatus   `json:"status"`
	TeamHistory          []TeamAssignment `json:"team_history"`
	CurrentTeam          *ResponsibleTeam `json:"current_team,omitempty"`
	ResolvingTeam        *ResponsibleTeam `json:"resolving_team,omitempty"`
}

// IsResolved returns true if the incident reached its terminal state.
func (i *Incident) IsResolved() bool {
	return i.Status == IncidentStatusResolved
}

// TeamMovement renders the team history as an arrow-joined trail,
// e.g. "Technicians → Engineering".
func (i *Incident) TeamMovement() string {
	var s string
	for idx, ta := range i.TeamHistory {
		if idx > 0 {
			s += " → "
		}
		s += string(ta.Team)
	}
	return s
}

// InvalidTransitionError reports a status change that violates the
// incident state machine.
type InvalidTransitionError struct {
	From IncidentStatus
	To   IncidentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}
