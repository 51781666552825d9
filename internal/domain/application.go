package domain

import "time"

// LoanType enumerates supported mortgage products.
type LoanType string

const (
	LoanTypeConventional LoanType = "CONVENTIONAL"
	LoanTypeFHA          LoanType = "FHA"
	LoanTypeVA           LoanType = "VA"
	LoanTypeJumbo        LoanType = "JUMBO"
)

// PropertyType enumerates financed property categories.
type PropertyType string

const (
	PropertyTypeSingleFamily PropertyType = "SINGLE_FAMILY"
	PropertyTypeCondo        PropertyType = "CONDO"
	PropertyTypeTownhouse    PropertyType = "TOWNHOUSE"
	PropertyTypeMultiFamily  PropertyType = "MULTI_FAMILY"
)

// EmploymentStatus describes the borrower's income source.
type EmploymentStatus string

const (
	EmploymentStatusEmployed     EmploymentStatus = "EMPLOYED"
	EmploymentStatusSelfEmployed EmploymentStatus = "SELF_EMPLOYED"
	EmploymentStatusRetired      EmploymentStatus = "RETIRED"
	EmploymentStatusUnemployed   EmploymentStatus = "UNEMPLOYED"
)

// Application is the aggregate for one mortgage request.
type Application struct {
	ID          string
	ExternalKey string
	BorrowerID  string
	Status      ApplicationStatus

	BorrowerName     string
	Email            string
	Phone            string
	SSNLast4         string
	AnnualIncome     float64
	EmploymentStatus EmploymentStatus
	Employer         string

	PropertyAddress    string
	PropertyType       PropertyType
	EstimatedValue     float64
	LoanAmount         float64
	LoanType           LoanType
	DownPaymentPercent float64

	Notes     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
