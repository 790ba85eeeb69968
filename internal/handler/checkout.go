package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"charity-market/internal/dto"
	"charity-market/internal/middleware"
	"charity-market/internal/service"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
}

func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

func (h *CheckoutHandler) CreateIntent(c echo.Context) error {
	ctx := c.Request().Context()

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "authenticate or send X-Session-Id")
	}

	var req dto.CheckoutIntentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if req.ShippingAddress.Address == "" || req.ContactInfo.Name == "" || req.ContactInfo.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "shipping address and contact name/email are required")
	}

	intent, err := h.checkoutService.CreateCheckoutIntent(ctx, identity,
		service.ShippingAddress{
			Address:    req.ShippingAddress.Address,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
			Latitude:   req.ShippingAddress.Latitude,
			Longitude:  req.ShippingAddress.Longitude,
		},
		service.ContactInfo{
			Name:  req.ContactInfo.Name,
			Email: req.ContactInfo.Email,
			Phone: req.ContactInfo.Phone,
		})
	middleware.RecordCheckoutOperation("create_intent", err == nil)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.CheckoutIntentResponse{
		ClientSecret: intent.ClientSecret,
		OrderID:      intent.OrderID,
		OrderNumber:  intent.OrderNumber,
		Total:        intent.Total,
		Breakdown: dto.CheckoutBreakdown{
			Subtotal: intent.Subtotal,
			Taxes:    intent.Taxes,
			Shipping: intent.Shipping,
		},
	})
}

func (h *CheckoutHandler) ConfirmPayment(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ConfirmPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if req.OrderID == "" || req.PaymentIntentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "orderId and paymentIntentId are required")
	}

	detail, err := h.checkoutService.ConfirmPayment(ctx, req.OrderID, req.PaymentIntentID)
	middleware.RecordCheckoutOperation("confirm_payment", err == nil)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orderResponse(detail))
}

// Webhook receives gateway events. Non-2xx responses make the gateway
// re-deliver, which is safe because processing is idempotent.
func (h *CheckoutHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	err = h.checkoutService.HandleWebhook(ctx, body, c.Request().Header.Get("Stripe-Signature"))
	middleware.RecordCheckoutOperation("webhook", err == nil)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
