package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Raymond9734/storefront-outreach/internal/models"
)

// VoucherRepository defines the interface for voucher lookups
type VoucherRepository interface {
	GetByCode(ctx context.Context, code string) (*models.Voucher, error)
}

// voucherRepository implements VoucherRepository using PostgreSQL
type voucherRepository struct {
	db *sql.DB
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *sql.DB) VoucherRepository {
	return &voucherRepository{db: db}
}

// GetByCode retrieves a voucher by its normalized code
func (r *voucherRepository) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	query := `SELECT code, discount_percent, valid FROM vouchers WHERE code = $1`

	voucher := &models.Voucher{}
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&voucher.Code,
		&voucher.DiscountPercent,
		&voucher.Valid,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFoundWithMsg(fmt.Sprintf("voucher %s not found", code))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}

	return voucher, nil
}
