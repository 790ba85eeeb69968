package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"charity-market/internal/dto"
	"charity-market/internal/middleware"
	"charity-market/internal/model"
	"charity-market/internal/service"
)

type OrderHandler struct {
	fulfillmentService service.FulfillmentService
}

func NewOrderHandler(fulfillmentService service.FulfillmentService) *OrderHandler {
	return &OrderHandler{fulfillmentService: fulfillmentService}
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	detail, err := h.fulfillmentService.GetOrder(ctx, actor, c.Param("orderID"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orderResponse(detail))
}

func (h *OrderHandler) MyOrders(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := middleware.ActorFrom(c)
	if !ok || actor.UserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	details, err := h.fulfillmentService.UserOrders(ctx, actor.UserID)
	if err != nil {
		return err
	}

	out := make([]dto.OrderResponse, len(details))
	for i, detail := range details {
		out[i] = orderResponse(detail)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) SupplierOrders(c echo.Context) error {
	ctx := c.Request().Context()

	actor, _ := middleware.ActorFrom(c)
	if actor.SupplierID == "" {
		return echo.NewHTTPError(http.StatusForbidden, "supplier account required")
	}

	scoped, err := h.fulfillmentService.SupplierOrders(ctx, actor.SupplierID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, scopedResponses(scoped))
}

func (h *OrderHandler) FoundationOrders(c echo.Context) error {
	ctx := c.Request().Context()

	actor, _ := middleware.ActorFrom(c)
	if actor.FoundationID == "" {
		return echo.NewHTTPError(http.StatusForbidden, "foundation account required")
	}

	scoped, err := h.fulfillmentService.FoundationOrders(ctx, actor.FoundationID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, scopedResponses(scoped))
}

func (h *OrderHandler) UpdateShipmentStatus(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req dto.ShipmentStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if req.NextStatus == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "nextStatus is required")
	}

	order, err := h.fulfillmentService.UpdateShipmentStatus(ctx, actor, c.Param("orderID"), req.NextStatus)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"id":             order.ID,
		"orderNumber":    order.OrderNumber,
		"shipmentStatus": order.ShipmentStatus,
	})
}

func (h *OrderHandler) RefundOrder(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	order, err := h.fulfillmentService.RefundOrder(ctx, actor, c.Param("orderID"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"id":            order.ID,
		"orderNumber":   order.OrderNumber,
		"paymentStatus": order.PaymentStatus,
	})
}

func orderResponse(detail *service.OrderDetail) dto.OrderResponse {
	return dto.OrderResponse{
		ID:             detail.Order.ID,
		OrderNumber:    detail.Order.OrderNumber,
		PaymentStatus:  detail.Order.PaymentStatus,
		ShipmentStatus: detail.Order.ShipmentStatus,
		Items:          orderItemResponses(detail.Items),
		Subtotal:       detail.Order.Subtotal,
		Taxes:          detail.Order.Taxes,
		Shipping:       detail.Order.ShippingCost,
		Total:          detail.Order.Total,
		CreatedAt:      detail.Order.CreatedAt.Format(time.RFC3339),
	}
}

func scopedResponses(scoped []*service.ScopedOrder) []dto.ScopedOrderResponse {
	out := make([]dto.ScopedOrderResponse, len(scoped))
	for i, so := range scoped {
		out[i] = dto.ScopedOrderResponse{
			OrderResponse: dto.OrderResponse{
				ID:             so.Order.ID,
				OrderNumber:    so.Order.OrderNumber,
				PaymentStatus:  so.Order.PaymentStatus,
				ShipmentStatus: so.Order.ShipmentStatus,
				Items:          orderItemResponses(so.Items),
				Subtotal:       so.Order.Subtotal,
				Taxes:          so.Order.Taxes,
				Shipping:       so.Order.ShippingCost,
				Total:          so.Order.Total,
				CreatedAt:      so.Order.CreatedAt.Format(time.RFC3339),
			},
			ItemsSubtotal: so.ItemsSubtotal,
		}
	}
	return out
}

func orderItemResponses(items []*model.OrderItem) []dto.OrderItemResponse {
	out := make([]dto.OrderItemResponse, len(items))
	for i, item := range items {
		out[i] = dto.OrderItemResponse{
			ProductID:  item.ProductID,
			SupplierID: item.SupplierID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Subtotal:   item.Subtotal,
		}
	}
	return out
}
