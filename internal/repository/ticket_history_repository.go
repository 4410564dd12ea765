package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-insight/internal/domain"
)

// TicketHistoryRepository stores status transition audit entries.
type TicketHistoryRepository interface {
	Create(ctx context.Context, entry *domain.HistoryEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.HistoryEntry, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, entry *domain.HistoryEntry) error {
	const query = `
        INSERT INTO ticket_history (id, ticket_id, old_status, new_status, user_id, reason, changed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.TicketID,
		entry.OldStatus,
		entry.NewStatus,
		entry.UserID,
		entry.Reason,
		entry.ChangedAt,
	)
	return err
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.HistoryEntry, error) {
	const query = `
        SELECT h.id, h.ticket_id, h.old_status, h.new_status, h.user_id, h.reason, h.changed_at,
               u.full_name, u.email, u.role
        FROM ticket_history h
        JOIN users u ON u.id = h.user_id
        WHERE h.ticket_id=$1 ORDER BY h.changed_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HistoryEntry
	for rows.Next() {
		var (
			entry domain.HistoryEntry
			actor domain.User
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.UserID,
			&entry.Reason,
			&entry.ChangedAt,
			&actor.FullName,
			&actor.Email,
			&actor.Role,
		); err != nil {
			return nil, err
		}
		actor.ID = entry.UserID
		entry.User = &actor
		result = append(result, entry)
	}
	return result, rows.Err()
}
