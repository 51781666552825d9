package processor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/mortgage-service/internal/domain"
	"github.com/spec-kit/mortgage-service/internal/events"
	"github.com/spec-kit/mortgage-service/internal/repository"
)

type stubApplicationRepo struct {
	app       *domain.Application
	getErr    error
	getCalled int
}

func (s *stubApplicationRepo) Create(context.Context, *domain.Application) error { return nil }
func (s *stubApplicationRepo) UpdateFields(context.Context, *domain.Application) error {
	return nil
}
func (s *stubApplicationRepo) UpdateStatus(context.Context, string, domain.ApplicationStatus, domain.ApplicationStatus) (time.Time, error) {
	return time.Time{}, nil
}
func (s *stubApplicationRepo) GetByID(context.Context, string) (*domain.Application, error) {
	s.getCalled++
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.app, nil
}
func (s *stubApplicationRepo) GetByExternalKey(context.Context, string) (*domain.Application, error) {
	return nil, pgx.ErrNoRows
}
func (s *stubApplicationRepo) ListByBorrower(context.Context, string, int, int) ([]domain.Application, error) {
	return nil, nil
}
func (s *stubApplicationRepo) ListByStatus(context.Context, domain.ApplicationStatus, int, int) ([]domain.Application, error) {
	return nil, nil
}
func (s *stubApplicationRepo) ListWithFilter(context.Context, repository.ApplicationFilter) ([]domain.Application, error) {
	return nil, nil
}

func encodeEvent(t *testing.T, event events.Event) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return data
}

func statusChanged(id string, from, to domain.ApplicationStatus) events.Event {
	return events.Event{
		ID:            id,
		Type:          events.EventStatusChanged,
		ApplicationID: "app-1",
		BorrowerID:    "user-1",
		Timestamp:     time.Now(),
		Payload:       events.StatusChangedPayload{PreviousStatus: from, NewStatus: to},
	}
}

func TestValidate(t *testing.T) {
	base := domain.Application{
		BorrowerName:       "Jane Doe",
		Email:              "jane@example.com",
		AnnualIncome:       95000,
		LoanAmount:         350000,
		DownPaymentPercent: 20,
	}

	t.Run("all checks pass", func(t *testing.T) {
		app := base
		result := Validate(&app)
		assert.True(t, result.Passed)
		assert.True(t, result.IncomePositive)
		assert.True(t, result.LoanAmountPositive)
		assert.True(t, result.DownPaymentInRange)
		assert.True(t, result.BorrowerFieldsPresent)
	})

	t.Run("non-positive income fails without error", func(t *testing.T) {
		app := base
		app.AnnualIncome = 0
		result := Validate(&app)
		assert.False(t, result.Passed)
		assert.False(t, result.IncomePositive)
		assert.True(t, result.LoanAmountPositive)
	})

	t.Run("missing borrower fields fail", func(t *testing.T) {
		app := base
		app.BorrowerName = "  "
		result := Validate(&app)
		assert.False(t, result.Passed)
		assert.False(t, result.BorrowerFieldsPresent)
	})

	t.Run("down payment over 100 fails", func(t *testing.T) {
		app := base
		app.DownPaymentPercent = 101
		result := Validate(&app)
		assert.False(t, result.Passed)
		assert.False(t, result.DownPaymentInRange)
	})
}

func TestHandleMessageSubmittedRunsPreValidation(t *testing.T) {
	repo := &stubApplicationRepo{app: &domain.Application{
		ID:           "app-1",
		BorrowerName: "Jane Doe",
		Email:        "jane@example.com",
		AnnualIncome: -5,
		LoanAmount:   350000,
	}}
	p := New(repo, nil, nil)

	body := encodeEvent(t, statusChanged("evt-1", domain.StatusDraft, domain.StatusSubmitted))
	// Failed checks are logged only, never an error.
	require.NoError(t, p.HandleMessage(context.Background(), body))
	assert.Equal(t, 1, repo.getCalled)
}

func TestHandleMessageSubmittedMissingApplication(t *testing.T) {
	repo := &stubApplicationRepo{getErr: pgx.ErrNoRows}
	p := New(repo, nil, nil)

	body := encodeEvent(t, statusChanged("evt-1", domain.StatusDraft, domain.StatusSubmitted))
	require.NoError(t, p.HandleMessage(context.Background(), body))
}

func TestHandleMessageUnderReviewRunsCreditCheck(t *testing.T) {
	p := New(&stubApplicationRepo{}, nil, nil)
	var scored bool
	p.creditScore = func() int {
		scored = true
		return 720
	}

	body := encodeEvent(t, statusChanged("evt-1", domain.StatusSubmitted, domain.StatusUnderReview))
	require.NoError(t, p.HandleMessage(context.Background(), body))
	assert.True(t, scored)
}

func TestHandleMessageNoOpStatuses(t *testing.T) {
	repo := &stubApplicationRepo{}
	p := New(repo, nil, nil)

	for _, to := range []domain.ApplicationStatus{domain.StatusDenied, domain.StatusWithdrawn, domain.StatusDocumentsRequested} {
		body := encodeEvent(t, statusChanged("evt-"+string(to), domain.StatusUnderReview, to))
		require.NoError(t, p.HandleMessage(context.Background(), body))
	}
	assert.Zero(t, repo.getCalled)
}

func TestHandleMessageIgnoresOtherEventTypes(t *testing.T) {
	repo := &stubApplicationRepo{}
	p := New(repo, nil, nil)

	event := events.Event{ID: "evt-1", Type: events.EventApplicationCreated, ApplicationID: "app-1"}
	require.NoError(t, p.HandleMessage(context.Background(), encodeEvent(t, event)))
	assert.Zero(t, repo.getCalled)
}

func TestHandleMessageRejectsMalformedBody(t *testing.T) {
	p := New(&stubApplicationRepo{}, nil, nil)
	require.Error(t, p.HandleMessage(context.Background(), []byte("{not json")))
}

func TestHandleMessageDeduplicatesRedelivery(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &stubApplicationRepo{app: &domain.Application{
		ID:           "app-1",
		BorrowerName: "Jane Doe",
		Email:        "jane@example.com",
		AnnualIncome: 95000,
		LoanAmount:   350000,
	}}
	p := New(repo, NewRedisDeduper(client, time.Minute), nil)

	body := encodeEvent(t, statusChanged("evt-dup", domain.StatusDraft, domain.StatusSubmitted))
	require.NoError(t, p.HandleMessage(context.Background(), body))
	require.NoError(t, p.HandleMessage(context.Background(), body))

	// Only the first delivery did the work.
	assert.Equal(t, 1, repo.getCalled)
}

func TestHandleMessageDedupeOutageDegradesToAtLeastOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close() // simulate a redis outage

	repo := &stubApplicationRepo{app: &domain.Application{
		ID:           "app-1",
		BorrowerName: "Jane Doe",
		Email:        "jane@example.com",
		AnnualIncome: 95000,
		LoanAmount:   350000,
	}}
	p := New(repo, NewRedisDeduper(client, time.Minute), nil)

	body := encodeEvent(t, statusChanged("evt-outage", domain.StatusDraft, domain.StatusSubmitted))
	require.NoError(t, p.HandleMessage(context.Background(), body))
	require.NoError(t, p.HandleMessage(context.Background(), body))
	assert.Equal(t, 2, repo.getCalled)
}

func TestRateCreditScore(t *testing.T) {
	cases := []struct {
		score  int
		rating string
	}{
		{300, "poor"},
		{579, "poor"},
		{580, "fair"},
		{669, "fair"},
		{670, "good"},
		{749, "good"},
		{750, "excellent"},
		{850, "excellent"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.rating, RateCreditScore(tc.score), "score %d", tc.score)
	}
}

func TestDefaultCreditScoreBounds(t *testing.T) {
	p := New(&stubApplicationRepo{}, nil, nil)
	for i := 0; i < 1000; i++ {
		score := p.creditScore()
		require.GreaterOrEqual(t, score, 300)
		require.LessOrEqual(t, score, 850)
	}
}
