package domain

import "time"

// OfficerRole enumerates internal reviewer roles.
type OfficerRole string

const (
	OfficerRoleLoanOfficer OfficerRole = "LOAN_OFFICER"
	OfficerRoleAdmin       OfficerRole = "ADMIN"
)

// Officer models a loan officer or administrator.
type Officer struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         OfficerRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
