package dto

import (
	"time"

	"github.com/spec-kit/mortgage-service/internal/domain"
)

// ApplicationRequest payload for create and draft edits.
type ApplicationRequest struct {
	BorrowerName     string                  `json:"borrower_name"`
	Email            string                  `json:"email"`
	Phone            string                  `json:"phone"`
	SSNLast4         string                  `json:"ssn_last4"`
	AnnualIncome     float64                 `json:"annual_income"`
	EmploymentStatus domain.EmploymentStatus `json:"employment_status"`
	Employer         string                  `json:"employer"`

	PropertyAddress    string              `json:"property_address"`
	PropertyType       domain.PropertyType `json:"property_type"`
	EstimatedValue     float64             `json:"estimated_value"`
	LoanAmount         float64             `json:"loan_amount"`
	LoanType           domain.LoanType     `json:"loan_type"`
	DownPaymentPercent float64             `json:"down_payment_percent"`

	Notes *string `json:"notes"`
}

// UpdateStatusRequest payload for status transitions.
type UpdateStatusRequest struct {
	Status domain.ApplicationStatus `json:"status"`
	Notes  *string                  `json:"notes"`
}

// ApplicationSummary response.
type ApplicationSummary struct {
	ID          string                   `json:"id"`
	ExternalKey string                   `json:"external_key"`
	Status      domain.ApplicationStatus `json:"status"`
	LoanAmount  float64                  `json:"loan_amount"`
	LoanType    domain.LoanType          `json:"loan_type"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// ApplicationDetailResponse provides full application info.
type ApplicationDetailResponse struct {
	ID          string                   `json:"id"`
	ExternalKey string                   `json:"external_key"`
	BorrowerID  string                   `json:"borrower_id"`
	Status      domain.ApplicationStatus `json:"status"`

	BorrowerName     string                  `json:"borrower_name"`
	Email            string                  `json:"email"`
	Phone            string                  `json:"phone"`
	SSNLast4         string                  `json:"ssn_last4"`
	AnnualIncome     float64                 `json:"annual_income"`
	EmploymentStatus domain.EmploymentStatus `json:"employment_status"`
	Employer         string                  `json:"employer"`

	PropertyAddress    string              `json:"property_address"`
	PropertyType       domain.PropertyType `json:"property_type"`
	EstimatedValue     float64             `json:"estimated_value"`
	LoanAmount         float64             `json:"loan_amount"`
	LoanType           domain.LoanType     `json:"loan_type"`
	DownPaymentPercent float64             `json:"down_payment_percent"`

	Notes     *string                 `json:"notes"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
	History   []StatusHistoryResponse `json:"history"`
}

// StatusHistoryResponse represents one transition entry.
type StatusHistoryResponse struct {
	ID             string                   `json:"id"`
	PreviousStatus domain.ApplicationStatus `json:"previous_status"`
	NewStatus      domain.ApplicationStatus `json:"new_status"`
	ChangedByType  domain.SubjectType       `json:"changed_by_type"`
	ChangedByID    *string                  `json:"changed_by_id"`
	Notes          *string                  `json:"notes"`
	CreatedAt      time.Time                `json:"created_at"`
}
