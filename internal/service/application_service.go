package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/mortgage-service/internal/domain"
	"github.com/spec-kit/mortgage-service/internal/events"
	"github.com/spec-kit/mortgage-service/internal/observability"
	"github.com/spec-kit/mortgage-service/internal/repository"
	apperrors "github.com/spec-kit/mortgage-service/pkg/util"
)

// ApplicationService coordinates mortgage application workflows.
type ApplicationService struct {
	applications repository.ApplicationRepository
	history      repository.StatusHistoryRepository
	publisher    events.Publisher
	logger       *zap.Logger
}

// ApplicationDependencies bundles collaborators for the service.
type ApplicationDependencies struct {
	ApplicationRepo repository.ApplicationRepository
	HistoryRepo     repository.StatusHistoryRepository
	Publisher       events.Publisher
	Logger          *zap.Logger
}

// ApplicationInput describes borrower-editable application fields.
type ApplicationInput struct {
	BorrowerName     string
	Email            string
	Phone            string
	SSNLast4         string
	AnnualIncome     float64
	EmploymentStatus domain.EmploymentStatus
	Employer         string

	PropertyAddress    string
	PropertyType       domain.PropertyType
	EstimatedValue     float64
	LoanAmount         float64
	LoanType           domain.LoanType
	DownPaymentPercent float64

	Notes *string
}

// ApplicationListFilter describes borrower listing filters.
type ApplicationListFilter struct {
	Statuses    []domain.ApplicationStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// statuses a borrower may request on their own application; everything else
// requires an elevated role.
var borrowerRequestable = map[domain.ApplicationStatus]bool{
	domain.StatusSubmitted: true,
	domain.StatusWithdrawn: true,
}

// NewApplicationService constructs the service.
func NewApplicationService(deps ApplicationDependencies) *ApplicationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{
		applications: deps.ApplicationRepo,
		history:      deps.HistoryRepo,
		publisher:    deps.Publisher,
		logger:       logger,
	}
}

// CreateApplication creates a DRAFT application for a borrower.
func (s *ApplicationService) CreateApplication(ctx context.Context, borrower *domain.User, input ApplicationInput) (*domain.Application, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	app := &domain.Application{
		ExternalKey: generateApplicationKey(),
		BorrowerID:  borrower.ID,
		Status:      domain.StatusDraft,

		BorrowerName:     strings.TrimSpace(input.BorrowerName),
		Email:            strings.TrimSpace(input.Email),
		Phone:            strings.TrimSpace(input.Phone),
		SSNLast4:         strings.TrimSpace(input.SSNLast4),
		AnnualIncome:     input.AnnualIncome,
		EmploymentStatus: input.EmploymentStatus,
		Employer:         strings.TrimSpace(input.Employer),

		PropertyAddress:    strings.TrimSpace(input.PropertyAddress),
		PropertyType:       input.PropertyType,
		EstimatedValue:     input.EstimatedValue,
		LoanAmount:         input.LoanAmount,
		LoanType:           input.LoanType,
		DownPaymentPercent: input.DownPaymentPercent,
		Notes:              input.Notes,
	}
	if app.BorrowerName == "" {
		app.BorrowerName = borrower.Name
	}
	if app.Email == "" {
		app.Email = borrower.Email
	}

	if err := s.applications.Create(ctx, app); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:          events.EventApplicationCreated,
		ApplicationID: app.ID,
		BorrowerID:    app.BorrowerID,
		Actor:         borrowerActor(borrower.ID),
		Payload: events.ApplicationCreatedPayload{
			LoanAmount: app.LoanAmount,
			LoanType:   app.LoanType,
		},
	})
	return app, nil
}

// ListBorrowerApplications returns paginated applications owned by a borrower.
func (s *ApplicationService) ListBorrowerApplications(ctx context.Context, borrowerID string, filter ApplicationListFilter) ([]domain.Application, error) {
	return s.applications.ListWithFilter(ctx, repository.ApplicationFilter{
		BorrowerID:  &borrowerID,
		Statuses:    filter.Statuses,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
}

// ListByStatus returns applications in a given status for reviewer queues.
func (s *ApplicationService) ListByStatus(ctx context.Context, status domain.ApplicationStatus, limit, offset int) ([]domain.Application, error) {
	if !domain.IsKnownStatus(status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}
	return s.applications.ListByStatus(ctx, status, limit, offset)
}

// GetApplicationForBorrower fetches an application ensuring ownership.
func (s *ApplicationService) GetApplicationForBorrower(ctx context.Context, borrowerID, applicationID string) (*domain.Application, []domain.StatusHistoryEntry, error) {
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, nil, err
	}
	if app.BorrowerID != borrowerID {
		return nil, nil, apperrors.NewForbidden("not the application owner")
	}
	history, err := s.history.ListByApplication(ctx, app.ID, 100, 0)
	if err != nil {
		return nil, nil, err
	}
	return app, history, nil
}

// GetApplicationForOfficer fetches any application for review.
func (s *ApplicationService) GetApplicationForOfficer(ctx context.Context, applicationID string) (*domain.Application, []domain.StatusHistoryEntry, error) {
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, nil, err
	}
	history, err := s.history.ListByApplication(ctx, app.ID, 100, 0)
	if err != nil {
		return nil, nil, err
	}
	return app, history, nil
}

// UpdateDraft edits borrower and property fields while the application is
// still in DRAFT.
func (s *ApplicationService) UpdateDraft(ctx context.Context, borrowerID, applicationID string, input ApplicationInput) (*domain.Application, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.BorrowerID != borrowerID {
		return nil, apperrors.NewForbidden("not the application owner")
	}
	if app.Status != domain.StatusDraft {
		return nil, apperrors.NewValidationError("only DRAFT applications can be edited",
			map[string]any{"status": app.Status})
	}

	applyInput(app, input)
	if err := s.applications.UpdateFields(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// UpdateStatus moves an application to a new status, subject to the
// transition table and the caller's role, guarded by a conditional write.
// On a Conflict the caller must re-read and resubmit; no automatic retry.
func (s *ApplicationService) UpdateStatus(ctx context.Context, actor domain.Actor, applicationID string, newStatus domain.ApplicationStatus, notes *string) (*domain.Application, error) {
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if err := authorizeTransition(actor, app, newStatus); err != nil {
		return nil, err
	}

	if !domain.IsValidTransition(app.Status, newStatus) {
		return nil, apperrors.NewInvalidTransition(string(app.Status), string(newStatus))
	}

	previous := app.Status
	updatedAt, err := s.applications.UpdateStatus(ctx, app.ID, previous, newStatus)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			return nil, apperrors.NewConflict("application status changed concurrently",
				map[string]any{"expected": previous})
		case errors.Is(err, pgx.ErrNoRows):
			return nil, apperrors.NewNotFound("application", map[string]any{"id": applicationID})
		default:
			return nil, err
		}
	}
	app.Status = newStatus
	app.UpdatedAt = updatedAt
	observability.StatusTransitionsTotal.WithLabelValues(string(previous), string(newStatus)).Inc()

	// Best-effort: the status write is already committed, a history failure
	// must not undo it.
	s.recordStatusChange(ctx, actor, app.ID, previous, newStatus, notes)

	event := events.Event{
		Type:          events.EventStatusChanged,
		ApplicationID: app.ID,
		BorrowerID:    app.BorrowerID,
		Actor:         actorFor(actor),
		Payload: events.StatusChangedPayload{
			PreviousStatus: previous,
			NewStatus:      newStatus,
			Notes:          derefOrEmpty(notes),
		},
	}
	if err := s.publishEvent(ctx, event); err != nil {
		return nil, apperrors.NewPublishFailure(err)
	}
	return app, nil
}

// Withdraw is the borrower-facing wrapper over UpdateStatus.
func (s *ApplicationService) Withdraw(ctx context.Context, borrowerID, applicationID string, notes *string) (*domain.Application, error) {
	actor := domain.Actor{SubjectType: domain.SubjectTypeBorrower, ID: borrowerID}
	return s.UpdateStatus(ctx, actor, applicationID, domain.StatusWithdrawn, notes)
}

func (s *ApplicationService) load(ctx context.Context, applicationID string) (*domain.Application, error) {
	app, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("application", map[string]any{"id": applicationID})
		}
		return nil, err
	}
	return app, nil
}

func authorizeTransition(actor domain.Actor, app *domain.Application, newStatus domain.ApplicationStatus) error {
	if actor.IsElevated() {
		return nil
	}
	if actor.SubjectType != domain.SubjectTypeBorrower {
		return apperrors.NewForbidden("unknown actor")
	}
	if app.BorrowerID != actor.ID {
		return apperrors.NewForbidden("not the application owner")
	}
	if !borrowerRequestable[newStatus] {
		return apperrors.NewForbidden("status requires a loan officer")
	}
	return nil
}

func (s *ApplicationService) recordStatusChange(ctx context.Context, actor domain.Actor, applicationID string, previous, next domain.ApplicationStatus, notes *string) {
	actorID := actor.ID
	entry := &domain.StatusHistoryEntry{
		ApplicationID:  applicationID,
		PreviousStatus: previous,
		NewStatus:      next,
		ChangedByType:  actor.SubjectType,
		ChangedByID:    &actorID,
		Notes:          notes,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Error("failed to append status history",
			zap.String("application_id", applicationID),
			zap.String("previous_status", string(previous)),
			zap.String("new_status", string(next)),
			zap.Error(err))
	}
}

func (s *ApplicationService) publishEvent(ctx context.Context, event events.Event) error {
	if s.publisher == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return s.publisher.Publish(ctx, event)
}

func validateInput(input ApplicationInput) error {
	details := map[string]any{}
	if input.AnnualIncome < 0 {
		details["annual_income"] = "must not be negative"
	}
	if input.LoanAmount < 0 {
		details["loan_amount"] = "must not be negative"
	}
	if input.EstimatedValue < 0 {
		details["estimated_value"] = "must not be negative"
	}
	if input.DownPaymentPercent < 0 || input.DownPaymentPercent > 100 {
		details["down_payment_percent"] = "must be between 0 and 100"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid application fields", details)
	}
	return nil
}

func applyInput(app *domain.Application, input ApplicationInput) {
	app.BorrowerName = strings.TrimSpace(input.BorrowerName)
	app.Email = strings.TrimSpace(input.Email)
	app.Phone = strings.TrimSpace(input.Phone)
	app.SSNLast4 = strings.TrimSpace(input.SSNLast4)
	app.AnnualIncome = input.AnnualIncome
	app.EmploymentStatus = input.EmploymentStatus
	app.Employer = strings.TrimSpace(input.Employer)
	app.PropertyAddress = strings.TrimSpace(input.PropertyAddress)
	app.PropertyType = input.PropertyType
	app.EstimatedValue = input.EstimatedValue
	app.LoanAmount = input.LoanAmount
	app.LoanType = input.LoanType
	app.DownPaymentPercent = input.DownPaymentPercent
	app.Notes = input.Notes
}

func generateApplicationKey() string {
	return "MTG-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func borrowerActor(borrowerID string) events.Actor {
	return events.Actor{
		Type:       domain.SubjectTypeBorrower,
		BorrowerID: &borrowerID,
	}
}

func officerActor(officerID string) events.Actor {
	return events.Actor{
		Type:      domain.SubjectTypeOfficer,
		OfficerID: &officerID,
	}
}

func actorFor(actor domain.Actor) events.Actor {
	switch actor.SubjectType {
	case domain.SubjectTypeOfficer:
		return officerActor(actor.ID)
	default:
		return borrowerActor(actor.ID)
	}
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
