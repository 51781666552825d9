package domain

import "time"

// StatusHistoryEntry is an immutable record of one status transition.
// Entries are appended once per successful transition and never mutated.
type StatusHistoryEntry struct {
	ID             string
	ApplicationID  string
	PreviousStatus ApplicationStatus
	NewStatus      ApplicationStatus
	ChangedByType  SubjectType
	ChangedByID    *string
	Notes          *string
	CreatedAt      time.Time
}
