package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/mortgage-service/internal/domain"
)

// ErrStatusConflict signals a lost optimistic-concurrency race: the guarded
// status no longer matched the expected value at write time.
var ErrStatusConflict = errors.New("application status changed concurrently")

// ApplicationFilter captures listing parameters.
type ApplicationFilter struct {
	BorrowerID  *string
	Statuses    []domain.ApplicationStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// ApplicationRepository encapsulates application persistence.
type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.Application) error
	UpdateFields(ctx context.Context, app *domain.Application) error
	UpdateStatus(ctx context.Context, id string, expected, next domain.ApplicationStatus) (time.Time, error)
	GetByID(ctx context.Context, id string) (*domain.Application, error)
	GetByExternalKey(ctx context.Context, key string) (*domain.Application, error)
	ListByBorrower(ctx context.Context, borrowerID string, limit, offset int) ([]domain.Application, error)
	ListByStatus(ctx context.Context, status domain.ApplicationStatus, limit, offset int) ([]domain.Application, error)
	ListWithFilter(ctx context.Context, filter ApplicationFilter) ([]domain.Application, error)
}

type applicationRepository struct {
	pool *pgxpool.Pool
}

// NewApplicationRepository instantiates repository.
func NewApplicationRepository(pool *pgxpool.Pool) ApplicationRepository {
	return &applicationRepository{pool: pool}
}

const applicationColumns = `id, external_key, borrower_user_id, status,
               borrower_name, email, phone, ssn_last4, annual_income, employment_status, employer,
               property_address, property_type, estimated_value, loan_amount, loan_type, down_payment_percent,
               notes, created_at, updated_at`

func (r *applicationRepository) Create(ctx context.Context, app *domain.Application) error {
	const query = `
        INSERT INTO applications (external_key, borrower_user_id, status,
            borrower_name, email, phone, ssn_last4, annual_income, employment_status, employer,
            property_address, property_type, estimated_value, loan_amount, loan_type, down_payment_percent, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		app.ExternalKey,
		app.BorrowerID,
		app.Status,
		app.BorrowerName,
		app.Email,
		app.Phone,
		app.SSNLast4,
		app.AnnualIncome,
		app.EmploymentStatus,
		app.Employer,
		app.PropertyAddress,
		app.PropertyType,
		app.EstimatedValue,
		app.LoanAmount,
		app.LoanType,
		app.DownPaymentPercent,
		app.Notes,
	).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)
}

// UpdateFields persists borrower and property attributes. The status column
// is deliberately not touched here; it may only change through UpdateStatus.
func (r *applicationRepository) UpdateFields(ctx context.Context, app *domain.Application) error {
	const query = `
        UPDATE applications SET borrower_name=$1, email=$2, phone=$3, ssn_last4=$4, annual_income=$5,
            employment_status=$6, employer=$7, property_address=$8, property_type=$9, estimated_value=$10,
            loan_amount=$11, loan_type=$12, down_payment_percent=$13, notes=$14, updated_at=NOW()
        WHERE id=$15
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		app.BorrowerName,
		app.Email,
		app.Phone,
		app.SSNLast4,
		app.AnnualIncome,
		app.EmploymentStatus,
		app.Employer,
		app.PropertyAddress,
		app.PropertyType,
		app.EstimatedValue,
		app.LoanAmount,
		app.LoanType,
		app.DownPaymentPercent,
		app.Notes,
		app.ID,
	).Scan(&app.UpdatedAt)
	return err
}

// UpdateStatus performs the conditional write guarded by the expected current
// status. When the guard fails the caller gets ErrStatusConflict if the row
// still exists, pgx.ErrNoRows otherwise.
func (r *applicationRepository) UpdateStatus(ctx context.Context, id string, expected, next domain.ApplicationStatus) (time.Time, error) {
	const query = `
        UPDATE applications SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3
        RETURNING updated_at`
	var updatedAt time.Time
	err := r.pool.QueryRow(ctx, query, next, id, expected).Scan(&updatedAt)
	if err == nil {
		return updatedAt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, err
	}

	var exists bool
	if checkErr := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE id=$1)`, id).Scan(&exists); checkErr != nil {
		return time.Time{}, checkErr
	}
	if exists {
		return time.Time{}, ErrStatusConflict
	}
	return time.Time{}, pgx.ErrNoRows
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE id=$1`, applicationColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *applicationRepository) GetByExternalKey(ctx context.Context, key string) (*domain.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE external_key=$1`, applicationColumns)
	return r.fetchSingle(ctx, query, key)
}

func (r *applicationRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Application, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	return scanApplication(row)
}

func (r *applicationRepository) ListByBorrower(ctx context.Context, borrowerID string, limit, offset int) ([]domain.Application, error) {
	return r.ListWithFilter(ctx, ApplicationFilter{
		BorrowerID: &borrowerID,
		Limit:      limit,
		Offset:     offset,
	})
}

func (r *applicationRepository) ListByStatus(ctx context.Context, status domain.ApplicationStatus, limit, offset int) ([]domain.Application, error) {
	return r.ListWithFilter(ctx, ApplicationFilter{
		Statuses: []domain.ApplicationStatus{status},
		Limit:    limit,
		Offset:   offset,
	})
}

func (r *applicationRepository) ListWithFilter(ctx context.Context, filter ApplicationFilter) ([]domain.Application, error) {
	base := fmt.Sprintf(`SELECT %s FROM applications`, applicationColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.BorrowerID != nil {
		args = append(args, *filter.BorrowerID)
		clauses = append(clauses, fmt.Sprintf("borrower_user_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanApplications(rows)
}

func scanApplication(row pgx.Row) (*domain.Application, error) {
	var app domain.Application
	if err := row.Scan(
		&app.ID,
		&app.ExternalKey,
		&app.BorrowerID,
		&app.Status,
		&app.BorrowerName,
		&app.Email,
		&app.Phone,
		&app.SSNLast4,
		&app.AnnualIncome,
		&app.EmploymentStatus,
		&app.Employer,
		&app.PropertyAddress,
		&app.PropertyType,
		&app.EstimatedValue,
		&app.LoanAmount,
		&app.LoanType,
		&app.DownPaymentPercent,
		&app.Notes,
		&app.CreatedAt,
		&app.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &app, nil
}

func scanApplications(rows pgx.Rows) ([]domain.Application, error) {
	var result []domain.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *app)
	}
	return result, rows.Err()
}
