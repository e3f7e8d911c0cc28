package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ownerdesk/ticket-engine/internal/domain"
)

// TimelineRepository is the append-only ticket activity log.
type TimelineRepository interface {
	Append(ctx context.Context, entry *domain.TimelineEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TimelineEntry, error)
}

type timelineRepository struct {
	pool *pgxpool.Pool
}

// NewTimelineRepository builds repository.
func NewTimelineRepository(pool *pgxpool.Pool) TimelineRepository {
	return &timelineRepository{pool: pool}
}

func (r *timelineRepository) Append(ctx context.Context, entry *domain.TimelineEntry) error {
	const query = `
        INSERT INTO timeline_entries (id, ticket_id, envelope_id, type, visibility, author_id, author_type, subject, content, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		entry.ID,
		entry.TicketID,
		entry.EnvelopeID,
		entry.Type,
		entry.Visibility,
		entry.AuthorID,
		entry.AuthorType,
		entry.Subject,
		entry.Content,
		entry.CreatedAt,
	)
	return err
}

func (r *timelineRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TimelineEntry, error) {
	const query = `
        SELECT id, ticket_id, envelope_id, type, visibility, author_id, author_type, subject, content, created_at
        FROM timeline_entries WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TimelineEntry
	for rows.Next() {
		var entry domain.TimelineEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.EnvelopeID,
			&entry.Type,
			&entry.Visibility,
			&entry.AuthorID,
			&entry.AuthorType,
			&entry.Subject,
			&entry.Content,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
