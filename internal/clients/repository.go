package clients

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/mlucero/catering-orders/internal/domain"
)

// ErrDuplicateEmail is returned when a client email is already taken.
// NULL emails never collide; the constraint only applies when present.
var ErrDuplicateEmail = errors.New("client with this email already exists")

type ClientRepository struct {
	db *sql.DB
}

func NewClientRepository(db *sql.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) List(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, phone, email
		FROM clients
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	clients := []domain.Client{}
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return clients, nil
}

func (r *ClientRepository) Create(ctx context.Context, client *domain.Client) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO clients (name, phone, email)
		VALUES ($1, $2, $3)
		RETURNING id
	`, client.Name, client.Phone, client.Email).Scan(&client.ID)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *ClientRepository) Update(ctx context.Context, client *domain.Client) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE clients SET name = $1, phone = $2, email = $3
		WHERE id = $4
	`, client.Name, client.Phone, client.Email, client.ID)
	if isUniqueViolation(err) {
		return false, ErrDuplicateEmail
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

func (r *ClientRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM clients WHERE id = $1
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

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
