package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"charity-market/internal/apperr"
	"charity-market/internal/model"
)

// placeOrder runs a full checkout for the given user and returns the order.
func (e *testEnv) placeOrder(t *testing.T, userID string, lines map[string]int) *model.Order {
	t.Helper()
	ctx := context.Background()

	identity := UserIdentity(userID)
	for productID, qty := range lines {
		_, err := e.carts.AddItem(ctx, identity, productID, qty)
		require.NoError(t, err)
	}

	intent, err := e.checkout.CreateCheckoutIntent(ctx, identity, testAddress, testContact)
	require.NoError(t, err)

	order, err := e.orderRepo.FindByID(ctx, intent.OrderID)
	require.NoError(t, err)
	e.gateway.markSucceeded(order.PaymentIntentID)
	_, err = e.checkout.ConfirmPayment(ctx, order.ID, order.PaymentIntentID)
	require.NoError(t, err)

	order, err = e.orderRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	return order
}

func supplierActor(supplierID string) Actor {
	return Actor{UserID: "sup-user", Role: model.RoleSupplier, SupplierID: supplierID}
}

func TestShipmentStatusFullFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)
	order := env.placeOrder(t, "user-1", map[string]int{product.ID: 1})

	actor := supplierActor(supplier.ID)
	for _, next := range []string{model.ShipmentProcessing, model.ShipmentShipped, model.ShipmentDelivered} {
		updated, err := env.fulfillment.UpdateShipmentStatus(ctx, actor, order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.ShipmentStatus)
	}

	// Delivered is terminal.
	_, err := env.fulfillment.UpdateShipmentStatus(ctx, actor, order.ID, model.ShipmentCancelled)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestShipmentStatusRejectsSkippedStates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)
	order := env.placeOrder(t, "user-1", map[string]int{product.ID: 1})

	actor := supplierActor(supplier.ID)
	_, err := env.fulfillment.UpdateShipmentStatus(ctx, actor, order.ID, model.ShipmentDelivered)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	reloaded, err := env.orderRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ShipmentPending, reloaded.ShipmentStatus)
}

func TestShipmentStatusCancellableUntilShipped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)
	order := env.placeOrder(t, "user-1", map[string]int{product.ID: 1})

	actor := supplierActor(supplier.ID)
	updated, err := env.fulfillment.UpdateShipmentStatus(ctx, actor, order.ID, model.ShipmentCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.ShipmentCancelled, updated.ShipmentStatus)
}

func TestShipmentStatusSupplierOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)
	order := env.placeOrder(t, "user-1", map[string]int{product.ID: 1})

	// The buyer cannot move the shipment.
	_, err := env.fulfillment.UpdateShipmentStatus(ctx,
		Actor{UserID: "user-1", Role: model.RoleCustomer}, order.ID, model.ShipmentProcessing)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	// Neither can a supplier with no items in the order.
	other := env.seedSupplier(t)
	_, err = env.fulfillment.UpdateShipmentStatus(ctx, supplierActor(other.ID), order.ID, model.ShipmentProcessing)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestGetOrderVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)
	order := env.placeOrder(t, "user-1", map[string]int{product.ID: 1})

	// Owner, admin, and the attributed supplier can all see the order.
	for _, actor := range []Actor{
		{UserID: "user-1", Role: model.RoleCustomer},
		{UserID: "admin-1", Role: model.RoleAdmin},
		supplierActor(supplier.ID),
	} {
		detail, err := env.fulfillment.GetOrder(ctx, actor, order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.ID, detail.Order.ID)
	}

	// A different customer cannot.
	_, err := env.fulfillment.GetOrder(ctx, Actor{UserID: "user-2", Role: model.RoleCustomer}, order.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestSupplierOrdersScopedToOwnItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.seedSupplier(t)
	second := env.seedSupplier(t)
	firstProduct := env.seedProduct(t, first, "10.00", 5)
	secondProduct := env.seedProduct(t, second, "7.00", 5)

	order := env.placeOrder(t, "user-1", map[string]int{firstProduct.ID: 2, secondProduct.ID: 1})

	scoped, err := env.fulfillment.SupplierOrders(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, order.ID, scoped[0].Order.ID)
	require.Len(t, scoped[0].Items, 1)
	assert.Equal(t, firstProduct.ID, scoped[0].Items[0].ProductID)
	assert.True(t, scoped[0].ItemsSubtotal.Equal(decimal.RequireFromString("20.00")))
	// The order's canonical total is untouched by the scoping.
	assert.True(t, scoped[0].Order.Total.Equal(order.Total))
}

func TestFoundationOrdersSpanItsSuppliers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)
	env.placeOrder(t, "user-1", map[string]int{product.ID: 3})

	scoped, err := env.fulfillment.FoundationOrders(ctx, supplier.FoundationID)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.True(t, scoped[0].ItemsSubtotal.Equal(decimal.RequireFromString("30.00")))

	other, err := env.fulfillment.FoundationOrders(ctx, "no-such-foundation")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRefundOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)
	order := env.placeOrder(t, "user-1", map[string]int{product.ID: 1})

	_, err := env.fulfillment.RefundOrder(ctx, Actor{UserID: "user-1", Role: model.RoleCustomer}, order.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	admin := Actor{UserID: "admin-1", Role: model.RoleAdmin}
	refunded, err := env.fulfillment.RefundOrder(ctx, admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRefunded, refunded.PaymentStatus)

	// Only completed payments are refundable; a second refund fails.
	_, err = env.fulfillment.RefundOrder(ctx, admin, order.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestRefundRequiresCompletedPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)

	identity := UserIdentity("user-1")
	_, err := env.carts.AddItem(ctx, identity, product.ID, 1)
	require.NoError(t, err)
	intent, err := env.checkout.CreateCheckoutIntent(ctx, identity, testAddress, testContact)
	require.NoError(t, err)

	_, err = env.fulfillment.RefundOrder(ctx, Actor{Role: model.RoleAdmin}, intent.OrderID)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}
