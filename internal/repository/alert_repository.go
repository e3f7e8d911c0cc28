package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ownerdesk/ticket-engine/internal/domain"
)

// AlertRepository persists alerts. CreateIfAbsent is the atomic check-then-create
// over unacknowledged (ticket, condition, level) tuples.
type AlertRepository interface {
	CreateIfAbsent(ctx context.Context, alert *domain.Alert) (bool, error)
	GetActive(ctx context.Context, ticketID string, condition domain.AlertCondition, level int) (*domain.Alert, error)
	GetByID(ctx context.Context, id string) (*domain.Alert, error)
	Acknowledge(ctx context.Context, id, agentID string, at time.Time) (bool, error)
	ListActiveForRecipient(ctx context.Context, agentID string) ([]domain.Alert, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Alert, error)
}

type alertRepository struct {
	pool *pgxpool.Pool
}

// NewAlertRepository builds repository.
func NewAlertRepository(pool *pgxpool.Pool) AlertRepository {
	return &alertRepository{pool: pool}
}

const alertColumns = `id, ticket_id, condition, level, triggered_at, acknowledged_at, acknowledged_by, recipients_notified`

func (r *alertRepository) CreateIfAbsent(ctx context.Context, alert *domain.Alert) (bool, error) {
	const query = `
        INSERT INTO alerts (id, ticket_id, condition, level, triggered_at, recipients_notified)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (ticket_id, condition, level) WHERE acknowledged_at IS NULL DO NOTHING`
	recipients := alert.RecipientsNotified
	if recipients == nil {
		recipients = []string{}
	}
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		alert.ID,
		alert.TicketID,
		alert.Condition,
		alert.Level,
		alert.TriggeredAt,
		recipients,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// GetActive returns nil, nil when no unacknowledged alert exists.
func (r *alertRepository) GetActive(ctx context.Context, ticketID string, condition domain.AlertCondition, level int) (*domain.Alert, error) {
	const query = `SELECT ` + alertColumns + ` FROM alerts
        WHERE ticket_id=$1 AND condition=$2 AND level=$3 AND acknowledged_at IS NULL`
	alert, err := scanAlert(conn(ctx, r.pool).QueryRow(ctx, query, ticketID, condition, level))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return alert, err
}

func (r *alertRepository) GetByID(ctx context.Context, id string) (*domain.Alert, error) {
	return scanAlert(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id=$1`, id))
}

func (r *alertRepository) Acknowledge(ctx context.Context, id, agentID string, at time.Time) (bool, error) {
	const query = `UPDATE alerts SET acknowledged_at=$1, acknowledged_by=$2 WHERE id=$3 AND acknowledged_at IS NULL`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, at, agentID, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *alertRepository) ListActiveForRecipient(ctx context.Context, agentID string) ([]domain.Alert, error) {
	return r.list(ctx, `SELECT `+alertColumns+` FROM alerts
        WHERE acknowledged_at IS NULL AND $1 = ANY(recipients_notified) ORDER BY triggered_at DESC`, agentID)
}

func (r *alertRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Alert, error) {
	return r.list(ctx, `SELECT `+alertColumns+` FROM alerts WHERE ticket_id=$1 ORDER BY triggered_at ASC`, ticketID)
}

func (r *alertRepository) list(ctx context.Context, query string, args ...any) ([]domain.Alert, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *alert)
	}
	return result, rows.Err()
}

func scanAlert(row pgx.Row) (*domain.Alert, error) {
	var alert domain.Alert
	if err := row.Scan(
		&alert.ID,
		&alert.TicketID,
		&alert.Condition,
		&alert.Level,
		&alert.TriggeredAt,
		&alert.AcknowledgedAt,
		&alert.AcknowledgedBy,
		&alert.RecipientsNotified,
	); err != nil {
		return nil, err
	}
	return &alert, nil
}
