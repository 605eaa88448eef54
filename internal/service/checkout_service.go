package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Raymond9734/storefront-outreach/internal/cache"
	"github.com/Raymond9734/storefront-outreach/internal/metrics"
	"github.com/Raymond9734/storefront-outreach/internal/models"
	"github.com/Raymond9734/storefront-outreach/internal/repository"
)

// CheckoutService prices paid plan checkouts and applies their outcome
type CheckoutService interface {
	Lookup(ctx context.Context, code string) (*VoucherLookup, error)
	ComputeCheckout(ctx context.Context, tenantID string, baseAmount float64, voucherCode *string) (*CheckoutQuote, error)
	StartCheckout(ctx context.Context, tenantID string, req *StartCheckoutRequest) (*CheckoutResult, error)
	HandleCallback(ctx context.Context, req *PaymentCallbackRequest) (*models.Payment, error)
	ListPayments(ctx context.Context, tenantID string) ([]*models.Payment, error)
}

// CheckoutConfig holds the paid plan offer
type CheckoutConfig struct {
	PlanPrice       float64
	Currency        string
	CheckoutBaseURL string
	PaymentMethod   string
	VoucherCacheTTL time.Duration
}

type checkoutService struct {
	paymentRepo repository.PaymentRepository
	voucherRepo repository.VoucherRepository
	cache       cache.Client
	subs        SubscriptionService
	metrics     *metrics.Metrics
	cfg         CheckoutConfig
	now         func() time.Time
	logger      *slog.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	paymentRepo repository.PaymentRepository,
	voucherRepo repository.VoucherRepository,
	cacheClient cache.Client,
	subs SubscriptionService,
	m *metrics.Metrics,
	cfg CheckoutConfig,
	logger *slog.Logger,
) CheckoutService {
	if cacheClient == nil {
		cacheClient = cache.NewNoop()
	}
	return &checkoutService{
		paymentRepo: paymentRepo,
		voucherRepo: voucherRepo,
		cache:       cacheClient,
		subs:        subs,
		metrics:     m,
		cfg:         cfg,
		now:         time.Now,
		logger:      logger,
	}
}

// Lookup validates a voucher code. Unknown codes are reported as invalid, not as errors.
func (s *checkoutService) Lookup(ctx context.Context, code string) (*VoucherLookup, error) {
	code = models.NormalizeVoucherCode(code)
	if code == "" {
		return &VoucherLookup{Valid: false}, nil
	}

	if cached, found, err := s.cache.GetVoucher(ctx, code); err != nil {
		s.logger.Warn("voucher cache read failed",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
	} else if found {
		return toLookup(cached), nil
	}

	voucher, err := s.voucherRepo.GetByCode(ctx, code)
	if errors.Is(err, models.ErrNotFound) {
		voucher = &models.Voucher{Code: code, Valid: false}
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up voucher: %w", err)
	}

	if err := s.cache.SetVoucher(ctx, voucher, s.cfg.VoucherCacheTTL); err != nil {
		s.logger.Warn("voucher cache write failed",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
	}

	return toLookup(voucher), nil
}

func toLookup(v *models.Voucher) *VoucherLookup {
	if !v.Valid {
		return &VoucherLookup{Valid: false}
	}
	return &VoucherLookup{Valid: true, DiscountPercent: models.ClampPercent(v.DiscountPercent)}
}

// ComputeCheckout prices a checkout. A voucher discount only applies while the
// tenant has no completed payment yet.
func (s *checkoutService) ComputeCheckout(ctx context.Context, tenantID string, baseAmount float64, voucherCode *string) (*CheckoutQuote, error) {
	if baseAmount < 0 {
		return nil, models.ErrInvalidInput("amount cannot be negative")
	}

	base := decimal.NewFromFloat(baseAmount).Round(2)
	quote := &CheckoutQuote{
		Amount:         base.InexactFloat64(),
		OriginalAmount: base.InexactFloat64(),
	}

	if voucherCode == nil || models.NormalizeVoucherCode(*voucherCode) == "" {
		return quote, nil
	}

	completed, err := s.paymentRepo.CountCompleted(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}
	if completed > 0 {
		return quote, nil
	}

	lookup, err := s.Lookup(ctx, *voucherCode)
	if err != nil {
		return nil, err
	}
	if !lookup.Valid || lookup.DiscountPercent == 0 {
		return quote, nil
	}

	discount := base.Mul(decimal.NewFromInt(int64(lookup.DiscountPercent))).Div(decimal.NewFromInt(100)).Round(2)
	code := models.NormalizeVoucherCode(*voucherCode)

	quote.DiscountPercent = lookup.DiscountPercent
	quote.DiscountAmount = discount.InexactFloat64()
	quote.Amount = base.Sub(discount).InexactFloat64()
	quote.VoucherCode = &code

	return quote, nil
}

// StartCheckout prices the plan and records a pending payment for it
func (s *checkoutService) StartCheckout(ctx context.Context, tenantID string, req *StartCheckoutRequest) (*CheckoutResult, error) {
	quote, err := s.ComputeCheckout(ctx, tenantID, s.cfg.PlanPrice, req.VoucherCode)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		Amount:          quote.Amount,
		OriginalAmount:  quote.OriginalAmount,
		DiscountPercent: quote.DiscountPercent,
		VoucherCode:     quote.VoucherCode,
		Currency:        s.cfg.Currency,
		Status:          models.PaymentStatusPending,
		TransactionID:   uuid.NewString(),
		PaymentMethod:   s.cfg.PaymentMethod,
	}

	// The payer sees the payment ID only; the transaction ID stays between us and the provider
	checkoutURL, err := url.JoinPath(s.cfg.CheckoutBaseURL, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to build checkout url: %w", err)
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		s.logger.Error("failed to create payment",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to start checkout: %w", err)
	}

	s.metrics.ObserveCheckout(quote.DiscountPercent > 0)

	s.logger.Info("checkout started",
		slog.String("tenant_id", tenantID),
		slog.String("transaction_id", payment.TransactionID),
		slog.Float64("amount", quote.Amount),
		slog.Int("discount_percent", quote.DiscountPercent),
	)

	return &CheckoutResult{
		Amount:          quote.Amount,
		OriginalAmount:  quote.OriginalAmount,
		DiscountPercent: quote.DiscountPercent,
		DiscountAmount:  quote.DiscountAmount,
		VoucherCode:     quote.VoucherCode,
		CheckoutURL:     checkoutURL,
		Currency:        payment.Currency,
	}, nil
}

// HandleCallback finalizes a pending payment. A completed payment activates the
// subscription; a failed one is surfaced as a PaymentError and leaves it untouched.
func (s *checkoutService) HandleCallback(ctx context.Context, req *PaymentCallbackRequest) (*models.Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payment, err := s.paymentRepo.GetByTransactionID(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}

	if payment.IsFinal() {
		return nil, models.ErrInvalidStateWithMsg(
			fmt.Sprintf("payment with transaction %s is already %s", payment.TransactionID, payment.Status),
		)
	}

	payment.Status = req.Status
	if req.Status == models.PaymentStatusCompleted {
		now := s.now()
		payment.PaidAt = &now
	} else {
		reason := "payment failed"
		if req.ErrorMessage != nil && *req.ErrorMessage != "" {
			reason = *req.ErrorMessage
		}
		payment.ErrorMessage = &reason
	}

	// Finalize only succeeds once per payment, so activation runs at most once
	if err := s.paymentRepo.Finalize(ctx, payment); err != nil {
		return nil, err
	}

	if payment.Status == models.PaymentStatusFailed {
		s.logger.Warn("payment failed",
			slog.String("tenant_id", payment.TenantID),
			slog.String("transaction_id", payment.TransactionID),
			slog.String("reason", *payment.ErrorMessage),
		)
		return nil, models.ErrPaymentWithMsg(*payment.ErrorMessage)
	}

	if _, err := s.subs.Activate(ctx, payment.TenantID); err != nil {
		s.logger.Error("payment completed but subscription activation failed",
			slog.String("tenant_id", payment.TenantID),
			slog.String("transaction_id", payment.TransactionID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("payment completed",
		slog.String("tenant_id", payment.TenantID),
		slog.String("transaction_id", payment.TransactionID),
	)

	return payment, nil
}

// ListPayments returns the payment history of a tenant
func (s *checkoutService) ListPayments(ctx context.Context, tenantID string) ([]*models.Payment, error) {
	payments, err := s.paymentRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
