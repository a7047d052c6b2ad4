package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/posfloor/maitre/pkg/models"
)

// createCouponHandler handles POST /api/v1/coupons.
func (s *Server) createCouponHandler(c *echo.Context) error {
	var req models.CreateCouponRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	coupon, err := s.couponService.CreateCoupon(c.Request().Context(), extractActor(c), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, coupon)
}

// listCouponsHandler handles GET /api/v1/coupons.
// active_only=true filters to currently active coupons.
func (s *Server) listCouponsHandler(c *echo.Context) error {
	activeOnly := c.QueryParam("active_only") == "true"

	coupons, err := s.couponService.ListCoupons(c.Request().Context(), extractStore(c), activeOnly)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, coupons)
}

// getCouponHandler handles GET /api/v1/coupons/:id.
func (s *Server) getCouponHandler(c *echo.Context) error {
	coupon, err := s.couponService.GetCoupon(c.Request().Context(), extractStore(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, coupon)
}

// validateCouponHandler handles GET /api/v1/coupons/validate.
// Always 200: an unusable coupon is a result, not an error.
func (s *Server) validateCouponHandler(c *echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code query parameter is required")
	}
	orderAmount := 0.0
	if raw := c.QueryParam("order_amount"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid order_amount")
		}
		orderAmount = v
	}

	result, err := s.couponService.Validate(c.Request().Context(), extractStore(c), code, orderAmount)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// redeemCouponHandler handles POST /api/v1/coupons/redeem.
func (s *Server) redeemCouponHandler(c *echo.Context) error {
	var req models.RedeemCouponRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	redemption, err := s.couponService.Redeem(c.Request().Context(), extractActor(c), req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, redemption)
}

// listCouponRedemptionsHandler handles GET /api/v1/coupons/:id/redemptions.
func (s *Server) listCouponRedemptionsHandler(c *echo.Context) error {
	redemptions, err := s.couponService.ListRedemptions(c.Request().Context(), extractStore(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(http.StatusOK, redemptions)
}

// deactivateCouponHandler handles DELETE /api/v1/coupons/:id.
// Deactivation is a soft delete; redemption history stays queryable.
func (s *Server) deactivateCouponHandler(c *echo.Context) error {
	_, err := s.couponService.Deactivate(c.Request().Context(), extractActor(c), c.Param("id"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
