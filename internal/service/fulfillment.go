package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"charity-market/internal/apperr"
	"charity-market/internal/events"
	"charity-market/internal/model"
	"charity-market/internal/repository"
)

// Actor is the authenticated principal acting on an order. Capability
// checks take (actor, resource) pairs; handlers never compare role strings
// themselves.
type Actor struct {
	UserID       string
	Role         string
	SupplierID   string
	FoundationID string
}

// FulfillmentService exposes supplier/foundation scoped order views and the
// shipment state machine.
type FulfillmentService interface {
	GetOrder(ctx context.Context, actor Actor, orderID string) (*OrderDetail, error)
	UserOrders(ctx context.Context, userID string) ([]*OrderDetail, error)
	SupplierOrders(ctx context.Context, supplierID string) ([]*ScopedOrder, error)
	FoundationOrders(ctx context.Context, foundationID string) ([]*ScopedOrder, error)
	UpdateShipmentStatus(ctx context.Context, actor Actor, orderID, next string) (*model.Order, error)
	RefundOrder(ctx context.Context, actor Actor, orderID string) (*model.Order, error)
}

// ScopedOrder is an order narrowed to the items belonging to one supplier
// or foundation. ItemsSubtotal is recomputed over the filtered subset; the
// order's canonical totals are never rewritten.
type ScopedOrder struct {
	Order         *model.Order
	Items         []*model.OrderItem
	ItemsSubtotal decimal.Decimal
}

// shipmentNext lists the allowed transitions; anything absent is rejected.
// Forward-only, with cancellation possible until the goods ship.
var shipmentNext = map[string][]string{
	model.ShipmentPending:    {model.ShipmentProcessing, model.ShipmentCancelled},
	model.ShipmentProcessing: {model.ShipmentShipped, model.ShipmentCancelled},
	model.ShipmentShipped:    {model.ShipmentDelivered},
}

func shipmentTransitionAllowed(from, to string) bool {
	for _, allowed := range shipmentNext[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type fulfillmentServiceImpl struct {
	orderRepo    repository.OrderRepository
	supplierRepo repository.SupplierRepository
	publisher    *events.Publisher
	logger       *zap.Logger
}

func NewFulfillmentService(
	orderRepo repository.OrderRepository,
	supplierRepo repository.SupplierRepository,
	publisher *events.Publisher,
	logger *zap.Logger,
) FulfillmentService {
	return &fulfillmentServiceImpl{
		orderRepo:    orderRepo,
		supplierRepo: supplierRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

func (s *fulfillmentServiceImpl) GetOrder(ctx context.Context, actor Actor, orderID string) (*OrderDetail, error) {
	order, items, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := canViewOrder(actor, order, items); err != nil {
		return nil, err
	}
	return &OrderDetail{Order: order, Items: items}, nil
}

func (s *fulfillmentServiceImpl) UserOrders(ctx context.Context, userID string) ([]*OrderDetail, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	details := make([]*OrderDetail, 0, len(orders))
	for _, order := range orders {
		items, err := s.orderRepo.GetItems(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("get order items: %w", err)
		}
		details = append(details, &OrderDetail{Order: order, Items: items})
	}
	return details, nil
}

func (s *fulfillmentServiceImpl) SupplierOrders(ctx context.Context, supplierID string) ([]*ScopedOrder, error) {
	return s.scopedOrders(ctx, []string{supplierID})
}

func (s *fulfillmentServiceImpl) FoundationOrders(ctx context.Context, foundationID string) ([]*ScopedOrder, error) {
	suppliers, err := s.supplierRepo.ListByFoundation(ctx, foundationID)
	if err != nil {
		return nil, fmt.Errorf("list foundation suppliers: %w", err)
	}

	supplierIDs := make([]string, len(suppliers))
	for i, supplier := range suppliers {
		supplierIDs[i] = supplier.ID
	}
	return s.scopedOrders(ctx, supplierIDs)
}

func (s *fulfillmentServiceImpl) scopedOrders(ctx context.Context, supplierIDs []string) ([]*ScopedOrder, error) {
	orders, err := s.orderRepo.ListBySuppliers(ctx, supplierIDs)
	if err != nil {
		return nil, fmt.Errorf("list orders by supplier: %w", err)
	}

	idSet := make(map[string]bool, len(supplierIDs))
	for _, id := range supplierIDs {
		idSet[id] = true
	}

	scoped := make([]*ScopedOrder, 0, len(orders))
	for _, order := range orders {
		items, err := s.orderRepo.GetItems(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("get order items: %w", err)
		}

		var own []*model.OrderItem
		subtotal := decimal.Zero
		for _, item := range items {
			if idSet[item.SupplierID] {
				own = append(own, item)
				subtotal = subtotal.Add(item.Subtotal)
			}
		}

		scoped = append(scoped, &ScopedOrder{
			Order:         order,
			Items:         own,
			ItemsSubtotal: subtotal,
		})
	}
	return scoped, nil
}

func (s *fulfillmentServiceImpl) UpdateShipmentStatus(ctx context.Context, actor Actor, orderID, next string) (*model.Order, error) {
	order, items, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := canManageShipment(actor, items); err != nil {
		return nil, err
	}
	if !shipmentTransitionAllowed(order.ShipmentStatus, next) {
		return nil, fmt.Errorf("%w: shipment cannot go from %s to %s",
			apperr.ErrForbidden, order.ShipmentStatus, next)
	}

	moved, err := s.orderRepo.SetShipmentStatus(ctx, orderID, order.ShipmentStatus, next)
	if err != nil {
		return nil, fmt.Errorf("set shipment status: %w", err)
	}
	if !moved {
		return nil, fmt.Errorf("%w: shipment status changed concurrently", apperr.ErrInvalidArgument)
	}

	s.logger.Info("shipment status updated",
		zap.String("order", order.OrderNumber),
		zap.String("from", order.ShipmentStatus),
		zap.String("to", next),
		zap.String("supplier", actor.SupplierID))
	s.publisher.Publish(ctx, events.OrderShipmentUpdated, events.OrderEvent{
		OrderNumber: order.OrderNumber,
		Status:      next,
	})

	return s.orderRepo.FindByID(ctx, orderID)
}

// RefundOrder is the manual completed→refunded transition; admin only.
func (s *fulfillmentServiceImpl) RefundOrder(ctx context.Context, actor Actor, orderID string) (*model.Order, error) {
	if actor.Role != model.RoleAdmin {
		return nil, fmt.Errorf("%w: only admins may refund", apperr.ErrForbidden)
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %s", apperr.ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("find order: %w", err)
	}

	refunded, err := s.orderRepo.MarkRefunded(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("mark refunded: %w", err)
	}
	if !refunded {
		return nil, fmt.Errorf("%w: only completed payments can be refunded", apperr.ErrInvalidArgument)
	}

	s.logger.Info("order refunded", zap.String("order", order.OrderNumber))
	return s.orderRepo.FindByID(ctx, orderID)
}

func (s *fulfillmentServiceImpl) load(ctx context.Context, orderID string) (*model.Order, []*model.OrderItem, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: order %s", apperr.ErrNotFound, orderID)
		}
		return nil, nil, fmt.Errorf("find order: %w", err)
	}

	items, err := s.orderRepo.GetItems(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("get order items: %w", err)
	}
	return order, items, nil
}

// canManageShipment: only a supplier owning at least one line item may move
// the shipment state machine.
func canManageShipment(actor Actor, items []*model.OrderItem) error {
	if actor.Role != model.RoleSupplier || actor.SupplierID == "" {
		return fmt.Errorf("%w: shipment updates are supplier-only", apperr.ErrForbidden)
	}
	for _, item := range items {
		if item.SupplierID == actor.SupplierID {
			return nil
		}
	}
	return fmt.Errorf("%w: no items in this order belong to supplier %s", apperr.ErrForbidden, actor.SupplierID)
}

// canViewOrder: the owner, an admin, or a supplier/foundation with items in
// the order.
func canViewOrder(actor Actor, order *model.Order, items []*model.OrderItem) error {
	switch {
	case actor.Role == model.RoleAdmin:
		return nil
	case actor.UserID != "" && actor.UserID == order.UserID:
		return nil
	case actor.Role == model.RoleSupplier && actor.SupplierID != "":
		for _, item := range items {
			if item.SupplierID == actor.SupplierID {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: not allowed to view this order", apperr.ErrForbidden)
}
