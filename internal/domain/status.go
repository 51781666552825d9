package domain

// ApplicationStatus enumerates lifecycle states for applications.
type ApplicationStatus string

const (
	StatusDraft              ApplicationStatus = "DRAFT"
	StatusSubmitted          ApplicationStatus = "SUBMITTED"
	StatusUnderReview        ApplicationStatus = "UNDER_REVIEW"
	StatusDocumentsRequested ApplicationStatus = "DOCUMENTS_REQUESTED"
	StatusApproved           ApplicationStatus = "APPROVED"
	StatusDenied             ApplicationStatus = "DENIED"
	StatusWithdrawn          ApplicationStatus = "WITHDRAWN"
)

// allowedTransitions is the single legal state machine for an application.
// APPROVED, DENIED and WITHDRAWN are terminal.
var allowedTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusDraft:              {StatusSubmitted, StatusWithdrawn},
	StatusSubmitted:          {StatusUnderReview, StatusDocumentsRequested, StatusWithdrawn},
	StatusUnderReview:        {StatusDocumentsRequested, StatusApproved, StatusDenied},
	StatusDocumentsRequested: {StatusUnderReview, StatusWithdrawn},
	StatusApproved:           {},
	StatusDenied:             {},
	StatusWithdrawn:          {},
}

// IsValidTransition reports whether current may legally move to next.
// Unknown statuses yield false.
func IsValidTransition(current, next ApplicationStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// TransitionsFrom returns the statuses reachable from current in one step.
func TransitionsFrom(current ApplicationStatus) []ApplicationStatus {
	targets := allowedTransitions[current]
	out := make([]ApplicationStatus, len(targets))
	copy(out, targets)
	return out
}

// AllStatuses lists every known application status.
func AllStatuses() []ApplicationStatus {
	return []ApplicationStatus{
		StatusDraft,
		StatusSubmitted,
		StatusUnderReview,
		StatusDocumentsRequested,
		StatusApproved,
		StatusDenied,
		StatusWithdrawn,
	}
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(status ApplicationStatus) bool {
	targets, known := allowedTransitions[status]
	return known && len(targets) == 0
}

// IsKnownStatus reports whether the value is one of the defined statuses.
func IsKnownStatus(status ApplicationStatus) bool {
	_, ok := allowedTransitions[status]
	return ok
}
