package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/posfloor/maitre/pkg/audit"
	"github.com/posfloor/maitre/pkg/bus"
	"github.com/posfloor/maitre/pkg/models"
	"github.com/posfloor/maitre/pkg/store"
)

// CouponService manages discount codes. Redemption counting serializes
// on one mutex so a nearly-exhausted coupon cannot be redeemed past its
// limit by two terminals at once.
type CouponService struct {
	store  store.Store
	clock  clock.Clock
	bus    *bus.Bus
	audit  AuditTrail
	sync   SyncPublisher
	logger *slog.Logger

	mu sync.Mutex
}

// NewCouponService creates a new CouponService
func NewCouponService(st store.Store, clk clock.Clock, evts *bus.Bus, trail AuditTrail, sync SyncPublisher) *CouponService {
	return &CouponService{
		store:  st,
		clock:  clk,
		bus:    evts,
		audit:  trail,
		sync:   sync,
		logger: slog.Default().With("component", "coupon_service"),
	}
}

// CreateCoupon registers a new code. Codes are uppercased and unique
// per store.
func (s *CouponService) CreateCoupon(ctx context.Context, actor Actor, req models.CreateCouponRequest) (*models.Coupon, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, NewValidationError("code", "required")
	}
	switch req.DiscountType {
	case models.DiscountPercent:
		if req.DiscountValue <= 0 || req.DiscountValue > 100 {
			return nil, NewValidationError("discount_value", "percent discount must be between 0 and 100")
		}
	case models.DiscountFixed:
		if req.DiscountValue <= 0 {
			return nil, NewValidationError("discount_value", "must be positive")
		}
	default:
		return nil, NewValidationError("discount_type", fmt.Sprintf("invalid discount type %q", req.DiscountType))
	}
	if req.ValidFrom.IsZero() || req.ValidUntil.IsZero() {
		return nil, NewValidationError("valid_from", "validity window required")
	}
	if !req.ValidUntil.After(req.ValidFrom) {
		return nil, NewValidationError("valid_until", "must be after valid_from")
	}
	if req.MaxRedemptions < 0 {
		return nil, NewValidationError("max_redemptions", "must not be negative")
	}
	if req.MinOrderAmount < 0 {
		return nil, NewValidationError("min_order_amount", "must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, err := s.findByCode(ctx, actor.StoreID, code); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrAlreadyExists
	}

	c := &models.Coupon{
		Code:           code,
		Description:    req.Description,
		DiscountType:   req.DiscountType,
		DiscountValue:  req.DiscountValue,
		ValidFrom:      req.ValidFrom.UTC(),
		ValidUntil:     req.ValidUntil.UTC(),
		MaxRedemptions: req.MaxRedemptions,
		MinOrderAmount: req.MinOrderAmount,
		Active:         true,
	}
	c.Init(uuid.NewString(), actor.StoreID, s.clock.Now().UTC())

	if err := putDoc(ctx, s.store, store.ColCoupons, c.ID, c); err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(TopicCouponCreated, c)
	}
	s.auditCoupon(actor, "COUPON_CREATE", c, audit.SeverityInfo,
		fmt.Sprintf("Created coupon %s (%s %.2f)", c.Code, c.DiscountType, c.DiscountValue))
	s.publishCouponSync(actor, models.SyncCreate, c)
	return c, nil
}

// GetCoupon returns one coupon of the store.
func (s *CouponService) GetCoupon(ctx context.Context, storeID, id string) (*models.Coupon, error) {
	var c models.Coupon
	if err := getDoc(ctx, s.store, store.ColCoupons, id, &c); err != nil {
		return nil, err
	}
	if c.StoreID != storeID {
		return nil, ErrNotFound
	}
	return &c, nil
}

// ListCoupons returns the store's coupons, optionally only active ones,
// ordered by code.
func (s *CouponService) ListCoupons(ctx context.Context, storeID string, activeOnly bool) ([]*models.Coupon, error) {
	filter := store.Filter{"store_id": storeID}
	if activeOnly {
		filter["active"] = true
	}
	docs, err := s.store.Query(ctx, store.ColCoupons, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	coupons := make([]*models.Coupon, 0, len(docs))
	for _, doc := range docs {
		var c models.Coupon
		if err := store.FromDocument(doc, &c); err != nil {
			s.logger.Warn("Skipping undecodable coupon document", "error", err)
			continue
		}
		coupons = append(coupons, &c)
	}
	sort.Slice(coupons, func(i, j int) bool { return coupons[i].Code < coupons[j].Code })
	return coupons, nil
}

// Validate checks a code against an order amount. An unknown or
// unusable code is a negative validation, not an error.
func (s *CouponService) Validate(ctx context.Context, storeID, code string, orderAmount float64) (*models.CouponValidation, error) {
	c, err := s.findByCode(ctx, storeID, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return &models.CouponValidation{Valid: false, Reason: "coupon not found"}, nil
	}
	if reason := s.usable(c, orderAmount); reason != "" {
		return &models.CouponValidation{Valid: false, Reason: reason, CouponID: c.ID}, nil
	}
	return &models.CouponValidation{
		Valid:    true,
		CouponID: c.ID,
		Discount: c.Discount(orderAmount),
	}, nil
}

// Redeem applies a coupon to an order, increments its redemption count,
// and records the redemption.
func (s *CouponService) Redeem(ctx context.Context, actor Actor, req models.RedeemCouponRequest) (*models.CouponRedemption, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if req.OrderAmount < 0 {
		return nil, NewValidationError("order_amount", "must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.findByCode(ctx, actor.StoreID, strings.ToUpper(strings.TrimSpace(req.Code)))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	if reason := s.usable(c, req.OrderAmount); reason != "" {
		return nil, NewBusinessError("%s", reason)
	}

	now := s.clock.Now().UTC()
	redemption := &models.CouponRedemption{
		ID:               uuid.NewString(),
		CouponID:         c.ID,
		OrderID:          req.OrderID,
		AmountDiscounted: c.Discount(req.OrderAmount),
		RedeemedAt:       now,
		UserID:           actor.UserID,
		StoreID:          actor.StoreID,
	}

	c.RedemptionCount++
	c.Touch(now)
	if err := putDoc(ctx, s.store, store.ColCoupons, c.ID, c); err != nil {
		return nil, err
	}
	if err := putDoc(ctx, s.store, store.ColCouponRedemptions, redemption.ID, redemption); err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(TopicCouponRedeemed, redemption)
	}
	s.auditCoupon(actor, "COUPON_REDEEM", c, audit.SeverityInfo,
		fmt.Sprintf("Redeemed %s for %.2f off order %s (%d/%s used)",
			c.Code, redemption.AmountDiscounted, req.OrderID,
			c.RedemptionCount, redemptionCap(c)))
	s.publishCouponSync(actor, models.SyncUpdate, c)

	s.logger.Info("Coupon redeemed",
		"code", c.Code, "discount", redemption.AmountDiscounted, "order_id", req.OrderID)
	return redemption, nil
}

// Deactivate retires a coupon.
func (s *CouponService) Deactivate(ctx context.Context, actor Actor, id string) (*models.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.GetCoupon(ctx, actor.StoreID, id)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return c, nil
	}

	c.Active = false
	c.Touch(s.clock.Now().UTC())
	if err := putDoc(ctx, s.store, store.ColCoupons, c.ID, c); err != nil {
		return nil, err
	}

	s.auditCoupon(actor, "COUPON_DEACTIVATE", c, audit.SeverityInfo,
		fmt.Sprintf("Deactivated coupon %s", c.Code))
	s.publishCouponSync(actor, models.SyncUpdate, c)
	return c, nil
}

// ListRedemptions returns a coupon's redemption history, newest first.
func (s *CouponService) ListRedemptions(ctx context.Context, storeID, couponID string) ([]*models.CouponRedemption, error) {
	if _, err := s.GetCoupon(ctx, storeID, couponID); err != nil {
		return nil, err
	}
	docs, err := s.store.Query(ctx, store.ColCouponRedemptions, store.Filter{
		"store_id":  storeID,
		"coupon_id": couponID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list redemptions: %w", err)
	}
	redemptions := make([]*models.CouponRedemption, 0, len(docs))
	for _, doc := range docs {
		var r models.CouponRedemption
		if err := store.FromDocument(doc, &r); err != nil {
			continue
		}
		redemptions = append(redemptions, &r)
	}
	sort.Slice(redemptions, func(i, j int) bool { return redemptions[i].RedeemedAt.After(redemptions[j].RedeemedAt) })
	return redemptions, nil
}

// usable reports why a coupon cannot be applied, or "" when it can.
func (s *CouponService) usable(c *models.Coupon, orderAmount float64) string {
	if !c.Active {
		return "coupon is not active"
	}
	now := s.clock.Now().UTC()
	if now.Before(c.ValidFrom) {
		return "coupon is not yet valid"
	}
	if now.After(c.ValidUntil) {
		return "coupon has expired"
	}
	if c.MaxRedemptions > 0 && c.RedemptionCount >= c.MaxRedemptions {
		return "coupon redemption limit reached"
	}
	if orderAmount < c.MinOrderAmount {
		return fmt.Sprintf("order amount below minimum %.2f", c.MinOrderAmount)
	}
	return ""
}

func (s *CouponService) findByCode(ctx context.Context, storeID, code string) (*models.Coupon, error) {
	if code == "" {
		return nil, nil
	}
	docs, err := s.store.Query(ctx, store.ColCoupons, store.Filter{
		"store_id": storeID,
		"code":     code,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up coupon code: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var c models.Coupon
	if err := store.FromDocument(docs[0], &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func redemptionCap(c *models.Coupon) string {
	if c.MaxRedemptions == 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", c.MaxRedemptions)
}

func (s *CouponService) publishCouponSync(actor Actor, msgType models.SyncMessageType, c *models.Coupon) {
	if s.sync == nil {
		return
	}
	s.sync.Publish(actor.TerminalID, actor.UserID, models.SyncMessage{
		Type:     msgType,
		Entity:   "coupon",
		EntityID: c.ID,
		Data:     syncData(c),
	})
}

func (s *CouponService) auditCoupon(actor Actor, action string, c *models.Coupon, severity audit.Severity, description string) {
	if s.audit == nil {
		return
	}
	s.audit.Log(audit.Entry{
		Action:      action,
		EntityType:  "coupon",
		EntityID:    c.ID,
		UserID:      actor.UserID,
		TerminalID:  actor.TerminalID,
		Severity:    severity,
		Description: description,
		NewValue:    map[string]any{"active": c.Active, "redemption_count": c.RedemptionCount},
	})
}
