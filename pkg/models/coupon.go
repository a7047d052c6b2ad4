package models

import "time"

// DiscountType selects how a coupon's value is applied.
type DiscountType string

const (
	DiscountPercent DiscountType = "PERCENT"
	DiscountFixed   DiscountType = "FIXED"
)

// Coupon is a discount code. Codes are uppercase and unique per store.
type Coupon struct {
	Entity

	Code            string       `json:"code"`
	Description     string       `json:"description,omitempty"`
	DiscountType    DiscountType `json:"discount_type"`
	DiscountValue   float64      `json:"discount_value"`
	ValidFrom       time.Time    `json:"valid_from"`
	ValidUntil      time.Time    `json:"valid_until"`
	MaxRedemptions  int          `json:"max_redemptions,omitempty"` // 0 = unlimited
	RedemptionCount int          `json:"redemption_count"`
	MinOrderAmount  float64      `json:"min_order_amount,omitempty"`
	Active          bool         `json:"active"`
}

// Discount computes the discount a coupon grants on an order amount.
func (c *Coupon) Discount(orderAmount float64) float64 {
	switch c.DiscountType {
	case DiscountPercent:
		return orderAmount * c.DiscountValue / 100
	case DiscountFixed:
		if c.DiscountValue > orderAmount {
			return orderAmount
		}
		return c.DiscountValue
	}
	return 0
}

// CouponRedemption records one use of a coupon.
type CouponRedemption struct {
	ID               string    `json:"id"`
	CouponID         string    `json:"coupon_id"`
	OrderID          string    `json:"order_id,omitempty"`
	AmountDiscounted float64   `json:"amount_discounted"`
	RedeemedAt       time.Time `json:"redeemed_at"`
	UserID           string    `json:"user_id,omitempty"`
	StoreID          string    `json:"store_id"`
}

// CreateCouponRequest contains fields for creating a coupon.
type CreateCouponRequest struct {
	Code           string       `json:"code"`
	Description    string       `json:"description,omitempty"`
	DiscountType   DiscountType `json:"discount_type"`
	DiscountValue  float64      `json:"discount_value"`
	ValidFrom      time.Time    `json:"valid_from"`
	ValidUntil     time.Time    `json:"valid_until"`
	MaxRedemptions int          `json:"max_redemptions,omitempty"`
	MinOrderAmount float64      `json:"min_order_amount,omitempty"`
}

// CouponValidation is the result of validating a code against an order.
type CouponValidation struct {
	Valid    bool    `json:"valid"`
	Reason   string  `json:"reason,omitempty"`
	CouponID string  `json:"coupon_id,omitempty"`
	Discount float64 `json:"discount"`
}

// RedeemCouponRequest applies a coupon to an order.
type RedeemCouponRequest struct {
	Code        string  `json:"code"`
	OrderID     string  `json:"order_id,omitempty"`
	OrderAmount float64 `json:"order_amount"`
}
