package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raymond9734/storefront-outreach/internal/metrics"
	"github.com/Raymond9734/storefront-outreach/internal/models"
)

type checkoutFixture struct {
	svc      CheckoutService
	payments *mockPaymentRepository
	vouchers *mockVoucherRepository
	cache    *mockCache
	subs     *mockSubscriptionRepository
	metrics  *metrics.Metrics
}

func newCheckoutFixture() *checkoutFixture {
	payments := &mockPaymentRepository{}
	vouchers := &mockVoucherRepository{vouchers: map[string]*models.Voucher{
		"AHMED20": {Code: "AHMED20", DiscountPercent: 20, Valid: true},
		"OLD50":   {Code: "OLD50", DiscountPercent: 50, Valid: false},
		"GREEDY":  {Code: "GREEDY", DiscountPercent: 150, Valid: true},
		"THIRD":   {Code: "THIRD", DiscountPercent: 33, Valid: true},
	}}
	c := newMockCache()
	subRepo := newMockSubscriptionRepository()
	m := metrics.New(prometheus.NewRegistry())

	subs := NewSubscriptionService(subRepo, SubscriptionConfig{Tier: "pro", TrialDays: 14, PeriodDays: 30}, testLogger())
	svc := NewCheckoutService(payments, vouchers, c, subs, m, CheckoutConfig{
		PlanPrice:       800,
		Currency:        "EGP",
		CheckoutBaseURL: "https://pay.example.com/checkout",
		PaymentMethod:   "card",
		VoucherCacheTTL: time.Minute,
	}, testLogger())

	return &checkoutFixture{svc: svc, payments: payments, vouchers: vouchers, cache: c, subs: subRepo, metrics: m}
}

func code(s string) *string { return &s }

func TestCheckoutService_Lookup(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	tests := []struct {
		code string
		want VoucherLookup
	}{
		{"AHMED20", VoucherLookup{Valid: true, DiscountPercent: 20}},
		{" ahmed20 ", VoucherLookup{Valid: true, DiscountPercent: 20}},
		{"DOESNOTEXIST", VoucherLookup{Valid: false}},
		{"OLD50", VoucherLookup{Valid: false}},
		{"GREEDY", VoucherLookup{Valid: true, DiscountPercent: 100}},
		{"", VoucherLookup{Valid: false}},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := f.svc.Lookup(ctx, tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestCheckoutService_LookupUsesCache(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	_, err := f.svc.Lookup(ctx, "DOESNOTEXIST")
	require.NoError(t, err)
	_, err = f.svc.Lookup(ctx, "DOESNOTEXIST")
	require.NoError(t, err)
	assert.Equal(t, 1, f.vouchers.calls)

	f.cache.getErr = errors.New("redis down")
	got, err := f.svc.Lookup(ctx, "AHMED20")
	require.NoError(t, err)
	assert.True(t, got.Valid)
}

func TestCheckoutService_ComputeCheckout_FirstPayment(t *testing.T) {
	f := newCheckoutFixture()

	quote, err := f.svc.ComputeCheckout(context.Background(), "tenant-1", 800, code("AHMED20"))
	require.NoError(t, err)
	assert.Equal(t, 640.0, quote.Amount)
	assert.Equal(t, 800.0, quote.OriginalAmount)
	assert.Equal(t, 20, quote.DiscountPercent)
	assert.Equal(t, 160.0, quote.DiscountAmount)
	require.NotNil(t, quote.VoucherCode)
	assert.Equal(t, "AHMED20", *quote.VoucherCode)
}

func TestCheckoutService_ComputeCheckout_NoDiscount(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	for _, c := range []*string{nil, code(""), code("DOESNOTEXIST"), code("OLD50")} {
		quote, err := f.svc.ComputeCheckout(ctx, "tenant-1", 800, c)
		require.NoError(t, err)
		assert.Equal(t, 0, quote.DiscountPercent)
		assert.Equal(t, 800.0, quote.Amount)
		assert.Nil(t, quote.VoucherCode)
	}

	_, err := f.svc.ComputeCheckout(ctx, "tenant-1", -1, nil)
	assert.Equal(t, models.CodeInvalidInput, models.ErrorCode(err))
}

func TestCheckoutService_ComputeCheckout_Rounding(t *testing.T) {
	f := newCheckoutFixture()

	quote, err := f.svc.ComputeCheckout(context.Background(), "tenant-1", 99.99, code("THIRD"))
	require.NoError(t, err)
	assert.Equal(t, 33.0, quote.DiscountAmount)
	assert.Equal(t, 66.99, quote.Amount)
}

func TestCheckoutService_ComputeCheckout_VoucherOnlyOnFirstPayment(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	require.NoError(t, f.payments.Create(ctx, &models.Payment{
		TenantID:      "tenant-1",
		Status:        models.PaymentStatusCompleted,
		TransactionID: "tx-0",
	}))

	quote, err := f.svc.ComputeCheckout(ctx, "tenant-1", 800, code("AHMED20"))
	require.NoError(t, err)
	assert.Equal(t, 0, quote.DiscountPercent)
	assert.Equal(t, 800.0, quote.Amount)

	// another tenant still gets it
	quote, err = f.svc.ComputeCheckout(ctx, "tenant-2", 800, code("AHMED20"))
	require.NoError(t, err)
	assert.Equal(t, 640.0, quote.Amount)
}

func TestCheckoutService_StartCheckoutAndComplete(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	result, err := f.svc.StartCheckout(ctx, "tenant-1", &StartCheckoutRequest{VoucherCode: code("ahmed20")})
	require.NoError(t, err)
	assert.Equal(t, 640.0, result.Amount)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Checkouts.WithLabelValues("true")))

	pending := f.payments.last()
	assert.Equal(t, models.PaymentStatusPending, pending.Status)
	assert.Equal(t, "EGP", pending.Currency)
	assert.Equal(t, "https://pay.example.com/checkout/"+pending.ID, result.CheckoutURL)
	assert.NotContains(t, result.CheckoutURL, pending.TransactionID)

	txID := pending.TransactionID

	payment, err := f.svc.HandleCallback(ctx, &PaymentCallbackRequest{
		TransactionID: txID,
		Status:        models.PaymentStatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
	assert.NotNil(t, payment.PaidAt)
	assert.Equal(t, models.SubscriptionStatusActive, f.subs.stored("tenant-1").Status)

	// completed payments are immutable
	_, err = f.svc.HandleCallback(ctx, &PaymentCallbackRequest{
		TransactionID: txID,
		Status:        models.PaymentStatusFailed,
	})
	assert.Equal(t, models.CodeInvalidState, models.ErrorCode(err))

	// the voucher no longer applies
	again, err := f.svc.StartCheckout(ctx, "tenant-1", &StartCheckoutRequest{VoucherCode: code("AHMED20")})
	require.NoError(t, err)
	assert.Equal(t, 800.0, again.Amount)
}

func TestCheckoutService_FailedCallbackLeavesSubscription(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	_, err := f.svc.StartCheckout(ctx, "tenant-1", &StartCheckoutRequest{})
	require.NoError(t, err)
	txID := f.payments.last().TransactionID

	_, err = f.svc.HandleCallback(ctx, &PaymentCallbackRequest{
		TransactionID: txID,
		Status:        models.PaymentStatusFailed,
		ErrorMessage:  code("card declined"),
	})
	require.Error(t, err)
	assert.Equal(t, models.CodePaymentError, models.ErrorCode(err))
	assert.Contains(t, err.Error(), "card declined")
	assert.Nil(t, f.subs.stored("tenant-1"))

	stored, _ := f.payments.GetByTransactionID(ctx, txID)
	assert.Equal(t, models.PaymentStatusFailed, stored.Status)
}

func TestCheckoutService_CallbackValidation(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	_, err := f.svc.HandleCallback(ctx, &PaymentCallbackRequest{Status: "completed"})
	assert.Equal(t, models.CodeInvalidInput, models.ErrorCode(err))

	_, err = f.svc.HandleCallback(ctx, &PaymentCallbackRequest{TransactionID: "tx", Status: "refunded"})
	assert.Equal(t, models.CodeInvalidInput, models.ErrorCode(err))

	_, err = f.svc.HandleCallback(ctx, &PaymentCallbackRequest{TransactionID: "unknown", Status: "completed"})
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}
