package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Raymond9734/storefront-outreach/internal/models"
)

// PaymentRepository defines the interface for payment data access
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*models.Payment, error)
	CountCompleted(ctx context.Context, tenantID string) (int, error)
	// Finalize moves a pending payment to completed or failed
	Finalize(ctx context.Context, payment *models.Payment) error
}

// paymentRepository implements PaymentRepository using PostgreSQL
type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sql.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, tenant_id, amount, original_amount, discount_percent, voucher_code, currency,
	status, transaction_id, payment_method, paid_at, error_message, created_at`

// Create inserts a new payment
func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (id, tenant_id, amount, original_amount, discount_percent, voucher_code,
			currency, status, transaction_id, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		payment.ID,
		payment.TenantID,
		payment.Amount,
		payment.OriginalAmount,
		payment.DiscountPercent,
		payment.VoucherCode,
		payment.Currency,
		payment.Status,
		payment.TransactionID,
		payment.PaymentMethod,
	).Scan(&payment.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByTransactionID retrieves a payment by its provider transaction ID
func (r *paymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`

	payment, err := scanPayment(r.db.QueryRowContext(ctx, query, transactionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("payment with transaction %s not found", transactionID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return payment, nil
}

// ListByTenant retrieves the payment history of a tenant, newest first
func (r *paymentRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE tenant_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := []*models.Payment{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, payment)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}

	return payments, nil
}

// CountCompleted returns how many completed payments a tenant has
func (r *paymentRepository) CountCompleted(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM payments WHERE tenant_id = $1 AND status = 'completed'`,
		tenantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed payments: %w", err)
	}
	return count, nil
}

// Finalize records the provider outcome of a pending payment
func (r *paymentRepository) Finalize(ctx context.Context, payment *models.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, paid_at = $2, error_message = $3
		WHERE transaction_id = $4 AND status = 'pending'`

	result, err := r.db.ExecContext(ctx, query, payment.Status, payment.PaidAt, payment.ErrorMessage, payment.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to finalize payment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return models.ErrInvalidStateWithMsg(
			fmt.Sprintf("payment with transaction %s is not pending", payment.TransactionID),
		)
	}

	return nil
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	payment := &models.Payment{}

	err := row.Scan(
		&payment.ID,
		&payment.TenantID,
		&payment.Amount,
		&payment.OriginalAmount,
		&payment.DiscountPercent,
		&payment.VoucherCode,
		&payment.Currency,
		&payment.Status,
		&payment.TransactionID,
		&payment.PaymentMethod,
		&payment.PaidAt,
		&payment.ErrorMessage,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return payment, nil
}
