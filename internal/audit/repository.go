package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/mlucero/catering-orders/internal/domain"
)

// Entry is one recorded order event.
type Entry struct {
	ID         int64     `json:"id"`
	EventID    string    `json:"event_id"`
	OrderID    int64     `json:"order_id"`
	Action     string    `json:"action"`
	RecordedAt time.Time `json:"recorded_at"`
}

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record appends the event to the audit trail. Redelivered events are
// deduplicated on event_id, so recording is idempotent.
func (r *AuditRepository) Record(ctx context.Context, event domain.OrderEvent, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_audit (event_id, order_id, action, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id) DO NOTHING
	`, event.EventID, event.OrderID, event.Action, string(payload))
	return err
}

func (r *AuditRepository) ListByOrder(ctx context.Context, orderID int64) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, order_id, action, recorded_at
		FROM order_audit
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EventID, &e.OrderID, &e.Action, &e.RecordedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
