package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"charity-market/internal/dto"
	"charity-market/internal/middleware"
	"charity-market/internal/service"
)

type CartHandler struct {
	cartService service.CartService
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "authenticate or send X-Session-Id")
	}

	detail, err := h.cartService.Get(ctx, identity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cartResponse(detail))
}

func (h *CartHandler) AddItem(c echo.Context) error {
	ctx := c.Request().Context()

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "authenticate or send X-Session-Id")
	}

	var req dto.AddItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	detail, err := h.cartService.AddItem(ctx, identity, req.ProductID, req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cartResponse(detail))
}

func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	ctx := c.Request().Context()

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "authenticate or send X-Session-Id")
	}

	var req dto.UpdateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	detail, err := h.cartService.UpdateQuantity(ctx, identity, c.Param("productID"), req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cartResponse(detail))
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()

	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "authenticate or send X-Session-Id")
	}

	detail, err := h.cartService.RemoveItem(ctx, identity, c.Param("productID"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cartResponse(detail))
}

// MergeCart folds the anonymous session cart into the authenticated user's
// cart, typically right after login.
func (h *CartHandler) MergeCart(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := middleware.ActorFrom(c)
	if !ok || actor.UserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	sessionID := c.Request().Header.Get("X-Session-Id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing X-Session-Id header")
	}

	detail, err := h.cartService.MergeSessionIntoUser(ctx, sessionID, actor.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cartResponse(detail))
}

func cartResponse(detail *service.CartDetail) dto.CartResponse {
	items := make([]dto.CartItemResponse, len(detail.Items))
	for i, item := range detail.Items {
		items[i] = dto.CartItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		}
	}
	return dto.CartResponse{
		ID:     detail.Cart.ID,
		Status: detail.Cart.Status,
		Items:  items,
		Total:  detail.Cart.Total,
	}
}
