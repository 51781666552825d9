package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/mortgage-service/internal/domain"
)

// StatusHistoryRepository stores the append-only transition trail.
type StatusHistoryRepository interface {
	Create(ctx context.Context, entry *domain.StatusHistoryEntry) error
	ListByApplication(ctx context.Context, applicationID string, limit, offset int) ([]domain.StatusHistoryEntry, error)
}

type statusHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewStatusHistoryRepository builds repository.
func NewStatusHistoryRepository(pool *pgxpool.Pool) StatusHistoryRepository {
	return &statusHistoryRepository{pool: pool}
}

func (r *statusHistoryRepository) Create(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	const query = `
        INSERT INTO application_status_history (application_id, previous_status, new_status, changed_by_type, changed_by_id, notes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.ApplicationID,
		entry.PreviousStatus,
		entry.NewStatus,
		entry.ChangedByType,
		entry.ChangedByID,
		entry.Notes,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *statusHistoryRepository) ListByApplication(ctx context.Context, applicationID string, limit, offset int) ([]domain.StatusHistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, application_id, previous_status, new_status, changed_by_type, changed_by_id, notes, created_at
        FROM application_status_history WHERE application_id=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, applicationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusHistoryEntry
	for rows.Next() {
		var entry domain.StatusHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ApplicationID,
			&entry.PreviousStatus,
			&entry.NewStatus,
			&entry.ChangedByType,
			&entry.ChangedByID,
			&entry.Notes,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
