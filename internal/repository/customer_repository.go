package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Raymond9734/storefront-outreach/internal/models"
)

// CustomerRepository reads customer order history from the catalog's orders table.
// It is read-only: customers and orders are owned by the storefront.
type CustomerRepository interface {
	ListHistories(ctx context.Context, tenantID string) ([]*models.CustomerHistory, error)
}

// customerRepository implements CustomerRepository using PostgreSQL
type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepository{db: db}
}

// ListHistories returns one row per distinct customer contact with at least one
// order, ordered by first order time. The name is taken from the latest order.
func (r *customerRepository) ListHistories(ctx context.Context, tenantID string) ([]*models.CustomerHistory, error) {
	query := `
		SELECT
			customer_phone,
			(ARRAY_AGG(customer_name ORDER BY created_at DESC))[1] AS customer_name,
			MIN(created_at) AS first_order_at,
			ARRAY_AGG(DISTINCT status) AS statuses
		FROM orders
		WHERE tenant_id = $1 AND customer_phone <> ''
		GROUP BY customer_phone
		ORDER BY first_order_at ASC, customer_phone ASC`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list customer histories: %w", err)
	}
	defer rows.Close()

	histories := []*models.CustomerHistory{}
	for rows.Next() {
		h := &models.CustomerHistory{}
		err := rows.Scan(
			&h.Contact,
			&h.Name,
			&h.FirstOrderAt,
			pq.Array(&h.OrderStatuses),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer history: %w", err)
		}
		histories = append(histories, h)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customer histories: %w", err)
	}

	return histories, nil
}
