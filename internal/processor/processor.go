package processor

import (
	"context"
	"errors"
	"math/rand"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/mortgage-service/internal/domain"
	"github.com/spec-kit/mortgage-service/internal/events"
	"github.com/spec-kit/mortgage-service/internal/observability"
	"github.com/spec-kit/mortgage-service/internal/repository"
)

// PreValidationResult captures the SUBMITTED pre-checks. A failed check is
// logged; it never blocks or reverses the transition.
type PreValidationResult struct {
	Passed                bool `json:"passed"`
	IncomePositive        bool `json:"income_positive"`
	LoanAmountPositive    bool `json:"loan_amount_positive"`
	DownPaymentInRange    bool `json:"down_payment_in_range"`
	BorrowerFieldsPresent bool `json:"borrower_fields_present"`
}

// Processor reacts to status-change events with status-specific side work.
type Processor struct {
	applications repository.ApplicationRepository
	dedupe       Deduper
	logger       *zap.Logger

	// creditScore is swappable in tests; the default draws a bounded
	// random score.
	creditScore func() int
}

// New builds the processor. The deduper is optional; without it every
// delivery is treated as the first.
func New(applications repository.ApplicationRepository, dedupe Deduper, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		applications: applications,
		dedupe:       dedupe,
		logger:       logger,
		creditScore: func() int {
			return 300 + rand.Intn(551)
		},
	}
}

// HandleMessage decodes one queued status-change event and dispatches it.
func (p *Processor) HandleMessage(ctx context.Context, body []byte) error {
	event, payload, err := events.DecodeStatusChanged(body)
	if err != nil {
		return err
	}
	if event.Type != events.EventStatusChanged {
		p.logger.Debug("ignoring event", zap.String("event_type", string(event.Type)))
		return nil
	}

	if p.dedupe != nil && event.ID != "" {
		first, err := p.dedupe.FirstDelivery(ctx, event.ID)
		if err != nil {
			// Dedupe is best-effort; degrade to at-least-once.
			p.logger.Warn("dedupe check failed", zap.String("event_id", event.ID), zap.Error(err))
		} else if !first {
			p.logger.Info("skipping duplicate delivery", zap.String("event_id", event.ID))
			observability.ProcessorEventsTotal.WithLabelValues(string(payload.NewStatus), "duplicate").Inc()
			return nil
		}
	}

	if err := p.dispatch(ctx, event, payload); err != nil {
		observability.ProcessorEventsTotal.WithLabelValues(string(payload.NewStatus), "error").Inc()
		return err
	}
	observability.ProcessorEventsTotal.WithLabelValues(string(payload.NewStatus), "ok").Inc()
	return nil
}

func (p *Processor) dispatch(ctx context.Context, event events.Event, payload events.StatusChangedPayload) error {
	switch payload.NewStatus {
	case domain.StatusSubmitted:
		return p.preValidate(ctx, event)
	case domain.StatusUnderReview:
		p.runCreditCheck(event)
		return nil
	case domain.StatusApproved:
		p.logger.Info("application ready for closing",
			zap.String("application_id", event.ApplicationID),
			zap.String("borrower_id", event.BorrowerID))
		return nil
	default:
		p.logger.Info("no processor action for status",
			zap.String("application_id", event.ApplicationID),
			zap.String("status", string(payload.NewStatus)))
		return nil
	}
}

func (p *Processor) preValidate(ctx context.Context, event events.Event) error {
	app, err := p.applications.GetByID(ctx, event.ApplicationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			p.logger.Warn("application missing for pre-validation",
				zap.String("application_id", event.ApplicationID))
			return nil
		}
		return err
	}

	result := Validate(app)
	p.logger.Info("pre-validation completed",
		zap.String("application_id", app.ID),
		zap.Bool("passed", result.Passed),
		zap.Bool("income_positive", result.IncomePositive),
		zap.Bool("loan_amount_positive", result.LoanAmountPositive),
		zap.Bool("down_payment_in_range", result.DownPaymentInRange),
		zap.Bool("borrower_fields_present", result.BorrowerFieldsPresent))
	return nil
}

// Validate runs the SUBMITTED pre-checks over an application.
func Validate(app *domain.Application) PreValidationResult {
	result := PreValidationResult{
		IncomePositive:        app.AnnualIncome > 0,
		LoanAmountPositive:    app.LoanAmount > 0,
		DownPaymentInRange:    app.DownPaymentPercent >= 0 && app.DownPaymentPercent <= 100,
		BorrowerFieldsPresent: strings.TrimSpace(app.BorrowerName) != "" && strings.TrimSpace(app.Email) != "",
	}
	result.Passed = result.IncomePositive &&
		result.LoanAmountPositive &&
		result.DownPaymentInRange &&
		result.BorrowerFieldsPresent
	return result
}

func (p *Processor) runCreditCheck(event events.Event) {
	score := p.creditScore()
	p.logger.Info("credit check completed",
		zap.String("application_id", event.ApplicationID),
		zap.Int("score", score),
		zap.String("rating", RateCreditScore(score)))
}

// RateCreditScore maps a score to a qualitative rating.
func RateCreditScore(score int) string {
	switch {
	case score >= 750:
		return "excellent"
	case score >= 670:
		return "good"
	case score >= 580:
		return "fair"
	default:
		return "poor"
	}
}
