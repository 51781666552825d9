package domain

// SubjectType differentiates borrower vs officer tokens.
type SubjectType string

const (
	SubjectTypeBorrower SubjectType = "BORROWER"
	SubjectTypeOfficer  SubjectType = "OFFICER"
)

// Actor identifies the caller of a status update, with its role already
// resolved at the boundary.
type Actor struct {
	SubjectType SubjectType
	ID          string
	Role        *OfficerRole
}

// IsElevated reports whether the actor holds a reviewer role.
func (a Actor) IsElevated() bool {
	return a.SubjectType == SubjectTypeOfficer && a.Role != nil
}
