package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/mlucero/catering-orders/internal/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// rawOrNull keeps the stored blob valid JSON even when the caller omitted
// the field, so reads always round-trip.
func rawOrNull(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}

// Create persists the order in a single insert and fills in the
// server-assigned id and creation timestamp.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO orders (
			client_id, event_date, delivery_date, delivery_time,
			is_delivery_enabled, delivery_address, observations, products_json,
			subtotal, shipping, total_net, deposit, balance,
			anticipo_pagado, pendiente_pagado
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, order_date
	`,
		order.ClientID, order.EventDate, order.DeliveryDate, order.DeliveryTime,
		order.DeliveryEnabled, order.DeliveryAddress,
		rawOrNull(order.Observations), rawOrNull(order.Items),
		order.Subtotal, order.Shipping, order.TotalNet, order.Deposit, order.Balance,
		order.DepositPaid, order.BalancePaid,
	).Scan(&order.ID, &order.CreatedAt)
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, client_id, event_date, delivery_date, delivery_time,
			is_delivery_enabled, delivery_address, observations, products_json,
			subtotal, shipping, total_net, deposit, balance,
			anticipo_pagado, pendiente_pagado, order_date
		FROM orders
		WHERE id = $1
	`, id).Scan(
		&order.ID, &order.ClientID, &order.EventDate, &order.DeliveryDate,
		&order.DeliveryTime, &order.DeliveryEnabled, &order.DeliveryAddress,
		&order.Observations, &order.Items,
		&order.Subtotal, &order.Shipping, &order.TotalNet, &order.Deposit,
		&order.Balance, &order.DepositPaid, &order.BalancePaid, &order.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return order, nil
}

// List returns all orders joined with their client's identity. Orders whose
// client row is gone are omitted, matching the inner join the store has
// always used.
func (r *OrderRepository) List(ctx context.Context) ([]domain.OrderSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.client_id, o.event_date, o.delivery_date, o.delivery_time,
			o.is_delivery_enabled, o.delivery_address, o.observations, o.products_json,
			o.subtotal, o.shipping, o.total_net, o.deposit, o.balance,
			o.anticipo_pagado, o.pendiente_pagado, o.order_date,
			c.name, c.phone, c.email
		FROM orders o
		JOIN clients c ON o.client_id = c.id
		ORDER BY o.id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	summaries := []domain.OrderSummary{}
	for rows.Next() {
		var s domain.OrderSummary
		if err := rows.Scan(
			&s.ID, &s.ClientID, &s.EventDate, &s.DeliveryDate, &s.DeliveryTime,
			&s.DeliveryEnabled, &s.DeliveryAddress, &s.Observations, &s.Items,
			&s.Subtotal, &s.Shipping, &s.TotalNet, &s.Deposit, &s.Balance,
			&s.DepositPaid, &s.BalancePaid, &s.CreatedAt,
			&s.ClientName, &s.ClientPhone, &s.ClientEmail,
		); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

// Update replaces every mutable field except the two payment flags and the
// creation timestamp. Those columns are deliberately absent from the
// statement so a routine edit can never clobber payment state.
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET
			client_id = $1, event_date = $2, delivery_date = $3, delivery_time = $4,
			is_delivery_enabled = $5, delivery_address = $6,
			observations = $7, products_json = $8,
			subtotal = $9, shipping = $10, total_net = $11, deposit = $12, balance = $13
		WHERE id = $14
	`,
		order.ClientID, order.EventDate, order.DeliveryDate, order.DeliveryTime,
		order.DeliveryEnabled, order.DeliveryAddress,
		rawOrNull(order.Observations), rawOrNull(order.Items),
		order.Subtotal, order.Shipping, order.TotalNet, order.Deposit, order.Balance,
		order.ID,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// UpdatePayment sets whichever flags the update carries, in one statement.
func (r *OrderRepository) UpdatePayment(ctx context.Context, id int64, update domain.PaymentUpdate) (bool, error) {
	if update.Empty() {
		return false, errors.New("no payment status provided")
	}

	var (
		result sql.Result
		err    error
	)

	switch {
	case update.DepositPaid != nil && update.BalancePaid != nil:
		result, err = r.db.ExecContext(ctx, `
			UPDATE orders SET anticipo_pagado = $1, pendiente_pagado = $2
			WHERE id = $3
		`, *update.DepositPaid, *update.BalancePaid, id)
	case update.DepositPaid != nil:
		result, err = r.db.ExecContext(ctx, `
			UPDATE orders SET anticipo_pagado = $1
			WHERE id = $2
		`, *update.DepositPaid, id)
	case update.BalancePaid != nil:
		result, err = r.db.ExecContext(ctx, `
			UPDATE orders SET pendiente_pagado = $1
			WHERE id = $2
		`, *update.BalancePaid, id)
	}
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM orders WHERE id = $1
	`, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}
