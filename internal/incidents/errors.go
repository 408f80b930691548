package incidents

import "errors"

var (
	// ErrIncidentNotFound is returned when the requested incident does not exist.
	ErrIncidentNotFound = errors.New("incident not found")
	// ErrInvalidCategory is returned when the category is not a known value.
	ErrInvalidCategory = errors.New("invalid incident category")
	// ErrInvalidTeam is returned when the team is not a known responsible team.
	ErrInvalidTeam = errors.New("invalid responsible team")
	// ErrInvalidStatus is returned when the status is not a known value.
	ErrInvalidStatus = errors.New("invalid incident status")
	// ErrAlreadyResolved is returned when mutating an incident that is already resolved.
	ErrAlreadyResolved = errors.New("incident already resolved")
)
