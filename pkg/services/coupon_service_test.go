package services

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posfloor/maitre/pkg/bus"
	"github.com/posfloor/maitre/pkg/models"
	"github.com/posfloor/maitre/pkg/store"
)

type couponFixture struct {
	svc   *CouponService
	store store.Store
	clock *testclock.Clock
	sync  *recordingSync
	audit *recordingAudit
}

func newCouponFixture(t *testing.T) *couponFixture {
	t.Helper()

	st := store.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })

	clk := testclock.NewClock(testStart)
	sync := &recordingSync{}
	trail := &recordingAudit{}

	return &couponFixture{
		svc:   NewCouponService(st, clk, bus.New(), trail, sync),
		store: st,
		clock: clk,
		sync:  sync,
		audit: trail,
	}
}

func percentCoupon(code string, value float64) models.CreateCouponRequest {
	return models.CreateCouponRequest{
		Code:          code,
		DiscountType:  models.DiscountPercent,
		DiscountValue: value,
		ValidFrom:     testStart.Add(-time.Hour),
		ValidUntil:    testStart.Add(30 * 24 * time.Hour),
	}
}

func TestCreateCoupon(t *testing.T) {
	f := newCouponFixture(t)
	ctx := context.Background()

	c, err := f.svc.CreateCoupon(ctx, testActor(), percentCoupon("verao10", 10))
	require.NoError(t, err)
	assert.Equal(t, "VERAO10", c.Code)
	assert.True(t, c.Active)
	assert.Equal(t, 1, c.Version)
	assert.Len(t, f.audit.byAction("COUPON_CREATE"), 1)

	// Codes are case-insensitive and unique per store.
	_, err = f.svc.CreateCoupon(ctx, testActor(), percentCoupon("Verao10", 20))
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateCouponValidation(t *testing.T) {
	f := newCouponFixture(t)
	ctx := context.Background()

	for _, tc := range []struct {
		name   string
		mutate func(*models.CreateCouponRequest)
	}{
		{"empty code", func(r *models.CreateCouponRequest) { r.Code = "  " }},
		{"zero percent", func(r *models.CreateCouponRequest) { r.DiscountValue = 0 }},
		{"percent over 100", func(r *models.CreateCouponRequest) { r.DiscountValue = 120 }},
		{"zero fixed", func(r *models.CreateCouponRequest) {
			r.DiscountType = models.DiscountFixed
			r.DiscountValue = 0
		}},
		{"unknown type", func(r *models.CreateCouponRequest) { r.DiscountType = "BOGOF" }},
		{"missing window", func(r *models.CreateCouponRequest) { r.ValidFrom = time.Time{} }},
		{"inverted window", func(r *models.CreateCouponRequest) { r.ValidUntil = r.ValidFrom.Add(-time.Hour) }},
		{"negative cap", func(r *models.CreateCouponRequest) { r.MaxRedemptions = -1 }},
		{"negative minimum", func(r *models.CreateCouponRequest) { r.MinOrderAmount = -10 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := percentCoupon("TEST", 10)
			tc.mutate(&req)
			_, err := f.svc.CreateCoupon(ctx, testActor(), req)
			assert.True(t, IsValidationError(err), "got %v", err)
		})
	}
}

func TestValidateCoupon(t *testing.T) {
	f := newCouponFixture(t)
	ctx := context.Background()

	// Unknown codes are a lookup result, not an error: terminals probe
	// codes typed by customers all the time.
	v, err := f.svc.Validate(ctx, "store-1", "NOPE", 100)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, "coupon not found", v.Reason)

	c, err := f.svc.CreateCoupon(ctx, testActor(), percentCoupon("VERAO10", 10))
	require.NoError(t, err)

	v, err = f.svc.Validate(ctx, "store-1", "verao10", 200)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, c.ID, v.CouponID)
	assert.Equal(t, 20.0, v.Discount)

	// A fixed discount never exceeds the order amount.
	fixed := percentCoupon("FIXO50", 50)
	fixed.DiscountType = models.DiscountFixed
	_, err = f.svc.CreateCoupon(ctx, testActor(), fixed)
	require.NoError(t, err)
	v, err = f.svc.Validate(ctx, "store-1", "FIXO50", 30)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, 30.0, v.Discount)

	minOrder := percentCoupon("GRANDE", 15)
	minOrder.MinOrderAmount = 100
	small, err := f.svc.CreateCoupon(ctx, testActor(), minOrder)
	require.NoError(t, err)
	v, err = f.svc.Validate(ctx, "store-1", "GRANDE", 80)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Contains(t, v.Reason, "below minimum")
	assert.Equal(t, small.ID, v.CouponID)

	future := percentCoupon("NATAL", 25)
	future.ValidFrom = testStart.Add(24 * time.Hour)
	future.ValidUntil = testStart.Add(48 * time.Hour)
	_, err = f.svc.CreateCoupon(ctx, testActor(), future)
	require.NoError(t, err)
	v, err = f.svc.Validate(ctx, "store-1", "NATAL", 100)
	require.NoError(t, err)
	assert.Equal(t, "coupon is not yet valid", v.Reason)

	// The window opens and later closes as the clock moves.
	f.clock.Advance(24 * time.Hour)
	v, err = f.svc.Validate(ctx, "store-1", "NATAL", 100)
	require.NoError(t, err)
	assert.True(t, v.Valid)

	f.clock.Advance(25 * time.Hour)
	v, err = f.svc.Validate(ctx, "store-1", "NATAL", 100)
	require.NoError(t, err)
	assert.Equal(t, "coupon has expired", v.Reason)
}

func TestRedeemCoupon(t *testing.T) {
	f := newCouponFixture(t)
	ctx := context.Background()

	limited := percentCoupon("DOIS", 10)
	limited.MaxRedemptions = 2
	c, err := f.svc.CreateCoupon(ctx, testActor(), limited)
	require.NoError(t, err)

	r1, err := f.svc.Redeem(ctx, testActor(), models.RedeemCouponRequest{
		Code: "dois", OrderID: "order-1", OrderAmount: 150,
	})
	require.NoError(t, err)
	assert.Equal(t, c.ID, r1.CouponID)
	assert.Equal(t, 15.0, r1.AmountDiscounted)
	assert.Equal(t, "ana", r1.UserID)
	assert.Equal(t, testStart, r1.RedeemedAt)

	f.clock.Advance(time.Hour)
	r2, err := f.svc.Redeem(ctx, testActor(), models.RedeemCouponRequest{
		Code: "DOIS", OrderID: "order-2", OrderAmount: 80,
	})
	require.NoError(t, err)

	// The cap is enforced inside the same critical section that counts.
	_, err = f.svc.Redeem(ctx, testActor(), models.RedeemCouponRequest{
		Code: "DOIS", OrderID: "order-3", OrderAmount: 60,
	})
	require.True(t, IsBusinessError(err))
	assert.Contains(t, err.Error(), "limit reached")

	current, err := f.svc.GetCoupon(ctx, "store-1", c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, current.RedemptionCount)

	v, err := f.svc.Validate(ctx, "store-1", "DOIS", 60)
	require.NoError(t, err)
	assert.False(t, v.Valid)

	history, err := f.svc.ListRedemptions(ctx, "store-1", c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, r2.ID, history[0].ID)
	assert.Equal(t, r1.ID, history[1].ID)

	_, err = f.svc.Redeem(ctx, testActor(), models.RedeemCouponRequest{Code: "NOPE", OrderAmount: 10})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Redeem(ctx, testActor(), models.RedeemCouponRequest{Code: "DOIS", OrderAmount: -1})
	assert.True(t, IsValidationError(err))
}

func TestDeactivateCoupon(t *testing.T) {
	f := newCouponFixture(t)
	ctx := context.Background()

	c, err := f.svc.CreateCoupon(ctx, testActor(), percentCoupon("VERAO10", 10))
	require.NoError(t, err)
	_, err = f.svc.CreateCoupon(ctx, testActor(), percentCoupon("INVERNO", 20))
	require.NoError(t, err)

	off, err := f.svc.Deactivate(ctx, testActor(), c.ID)
	require.NoError(t, err)
	assert.False(t, off.Active)

	v, err := f.svc.Validate(ctx, "store-1", "VERAO10", 100)
	require.NoError(t, err)
	assert.Equal(t, "coupon is not active", v.Reason)

	_, err = f.svc.Redeem(ctx, testActor(), models.RedeemCouponRequest{Code: "VERAO10", OrderAmount: 100})
	assert.True(t, IsBusinessError(err))

	// Deactivating again is a no-op, not an error.
	_, err = f.svc.Deactivate(ctx, testActor(), c.ID)
	require.NoError(t, err)
	assert.Len(t, f.audit.byAction("COUPON_DEACTIVATE"), 1)

	all, err := f.svc.ListCoupons(ctx, "store-1", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := f.svc.ListCoupons(ctx, "store-1", true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "INVERNO", active[0].Code)
}
