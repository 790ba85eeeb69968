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

var (
	testAddress = ShippingAddress{
		Address:   "12 Main St",
		City:      "Springfield",
		Country:   "US",
		Latitude:  39.78,
		Longitude: -89.65,
	}
	testContact = ContactInfo{Name: "Jane Doe", Email: "jane@example.com"}
)

func TestCreateCheckoutIntentHappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)

	identity := UserIdentity("user-1")
	_, err := env.carts.AddItem(ctx, identity, product.ID, 2)
	require.NoError(t, err)

	intent, err := env.checkout.CreateCheckoutIntent(ctx, identity, testAddress, testContact)
	require.NoError(t, err)

	assert.True(t, intent.Subtotal.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, intent.Taxes.Equal(decimal.RequireFromString("1.60")), "taxes: %s", intent.Taxes)
	assert.True(t, intent.Shipping.Equal(decimal.RequireFromString("5.00")))
	assert.True(t, intent.Total.Equal(decimal.RequireFromString("26.60")))
	assert.NotEmpty(t, intent.ClientSecret)

	order, err := env.orderRepo.FindByID(ctx, intent.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, order.PaymentStatus)
	assert.Equal(t, model.ShipmentPending, order.ShipmentStatus)
	assert.True(t, order.Total.Equal(order.Subtotal.Add(order.Taxes).Add(order.ShippingCost)))

	// The gateway got the amount in minor units, with guest/user metadata.
	gwIntent := env.gateway.intent(order.PaymentIntentID)
	assert.Equal(t, int64(2660), gwIntent.Amount)
	assert.Equal(t, "user-1", gwIntent.Metadata["user_id"])

	// Stock is untouched until payment confirms; the cart is locked.
	assert.Equal(t, 5, env.productStock(t, product.ID))
	cart, err := env.cartRepo.FindByID(ctx, order.CartID)
	require.NoError(t, err)
	assert.Equal(t, model.CartProcessing, cart.Status)
}

func TestCreateCheckoutIntentEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.checkout.CreateCheckoutIntent(ctx, UserIdentity("user-1"), testAddress, testContact)
	assert.ErrorIs(t, err, apperr.ErrEmptyCart)

	_, err = env.carts.Get(ctx, UserIdentity("user-1"))
	require.NoError(t, err)
	_, err = env.checkout.CreateCheckoutIntent(ctx, UserIdentity("user-1"), testAddress, testContact)
	assert.ErrorIs(t, err, apperr.ErrEmptyCart)
}

func TestCreateCheckoutIntentFreeShippingAboveThreshold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "25.00", 10)

	identity := UserIdentity("user-1")
	_, err := env.carts.AddItem(ctx, identity, product.ID, 2)
	require.NoError(t, err)

	intent, err := env.checkout.CreateCheckoutIntent(ctx, identity, testAddress, testContact)
	require.NoError(t, err)
	assert.True(t, intent.Shipping.IsZero())
	assert.True(t, intent.Total.Equal(decimal.RequireFromString("54.00"))) // 50 + 8% tax
}

func TestCreateCheckoutIntentMissingSupplier(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)

	identity := UserIdentity("user-1")
	_, err := env.carts.AddItem(ctx, identity, product.ID, 1)
	require.NoError(t, err)

	// Supplier reference dangles after the supplier is removed.
	require.NoError(t, env.supplierRepo.Delete(ctx, supplier.ID))

	_, err = env.checkout.CreateCheckoutIntent(ctx, identity, testAddress, testContact)
	var missing *apperr.MissingSupplierError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, product.ID, missing.ProductID)
}

func TestCreateCheckoutIntentInsufficientStockAfterMerge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)

	// Cart-level adds are not stock-authoritative: 3 + 3 lines merge to 6
	// against stock 5, and the conflict surfaces here.
	_, err := env.carts.AddItem(ctx, UserIdentity("user-1"), product.ID, 3)
	require.NoError(t, err)
	_, err = env.carts.AddItem(ctx, SessionIdentity("sess-1"), product.ID, 3)
	require.NoError(t, err)
	_, err = env.carts.MergeSessionIntoUser(ctx, "sess-1", "user-1")
	require.NoError(t, err)

	_, err = env.checkout.CreateCheckoutIntent(ctx, UserIdentity("user-1"), testAddress, testContact)
	var insufficient *apperr.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, product.ID, insufficient.ProductID)
	assert.Equal(t, 5, insufficient.Available)
}

func TestCreateCheckoutIntentAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	good := env.seedProduct(t, supplier, "10.00", 5)
	scarce := env.seedProduct(t, supplier, "4.00", 5)

	identity := UserIdentity("user-1")
	_, err := env.carts.AddItem(ctx, identity, good.ID, 2)
	require.NoError(t, err)
	_, err = env.carts.AddItem(ctx, identity, scarce.ID, 3)
	require.NoError(t, err)

	// Another order drains the scarce product before this checkout.
	newStock := 1
	require.NoError(t, env.productRepo.Update(ctx, scarce.ID, &model.ProductUpdate{Stock: &newStock}))

	_, err = env.checkout.CreateCheckoutIntent(ctx, identity, testAddress, testContact)
	var insufficient *apperr.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)

	// No order persisted, cart still active with its original lines.
	var orderCount int64
	require.NoError(t, env.db.Model(&model.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)

	detail, err := env.carts.Get(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, model.CartActive, detail.Cart.Status)
	assert.Len(t, detail.Items, 2)
}

func TestConfirmPaymentHappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)

	identity := UserIdentity("user-1")
	_, err := env.carts.AddItem(ctx, identity, product.ID, 2)
	require.NoError(t, err)

	intent, err := env.checkout.CreateCheckoutIntent(ctx, identity, testAddress, testContact)
	require.NoError(t, err)
	order, err := env.orderRepo.FindByID(ctx, intent.OrderID)
	require.NoError(t, err)

	env.gateway.markSucceeded(order.PaymentIntentID)

	detail, err := env.checkout.ConfirmPayment(ctx, order.ID, order.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, detail.Order.PaymentStatus)
	assert.NotNil(t, detail.Order.PaidAt)

	assert.Equal(t, 3, env.productStock(t, product.ID))

	cart, err := env.cartRepo.FindByID(ctx, order.CartID)
	require.NoError(t, err)
	assert.Equal(t, model.CartCompleted, cart.Status)
	items, err := env.cartRepo.GetItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestConfirmPaymentRejectsUnpaidIntent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)

	identity := UserIdentity("user-1")
	_, err := env.carts.AddItem(ctx, identity, product.ID, 2)
	require.NoError(t, err)
	intent, err := env.checkout.CreateCheckoutIntent(ctx, identity, testAddress, testContact)
	require.NoError(t, err)
	order, err := env.orderRepo.FindByID(ctx, intent.OrderID)
	require.NoError(t, err)

	_, err = env.checkout.ConfirmPayment(ctx, order.ID, order.PaymentIntentID)
	assert.ErrorIs(t, err, apperr.ErrPaymentNotCompleted)
	assert.Equal(t, 5, env.productStock(t, product.ID))
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)

	identity := UserIdentity("user-1")
	_, err := env.carts.AddItem(ctx, identity, product.ID, 2)
	require.NoError(t, err)
	intent, err := env.checkout.CreateCheckoutIntent(ctx, identity, testAddress, testContact)
	require.NoError(t, err)
	order, err := env.orderRepo.FindByID(ctx, intent.OrderID)
	require.NoError(t, err)
	env.gateway.markSucceeded(order.PaymentIntentID)

	_, err = env.checkout.ConfirmPayment(ctx, order.ID, order.PaymentIntentID)
	require.NoError(t, err)
	detail, err := env.checkout.ConfirmPayment(ctx, order.ID, order.PaymentIntentID)
	require.NoError(t, err)

	assert.Equal(t, model.PaymentCompleted, detail.Order.PaymentStatus)
	assert.Equal(t, 3, env.productStock(t, product.ID), "stock decremented exactly once")
}

func TestWebhookAndConfirmConverge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)

	identity := UserIdentity("user-1")
	_, err := env.carts.AddItem(ctx, identity, product.ID, 2)
	require.NoError(t, err)
	intent, err := env.checkout.CreateCheckoutIntent(ctx, identity, testAddress, testContact)
	require.NoError(t, err)
	order, err := env.orderRepo.FindByID(ctx, intent.OrderID)
	require.NoError(t, err)
	env.gateway.markSucceeded(order.PaymentIntentID)

	// Confirm wins; the later webhook is a no-op.
	_, err = env.checkout.ConfirmPayment(ctx, order.ID, order.PaymentIntentID)
	require.NoError(t, err)

	payload := succeededEvent(t, env.gateway.intent(order.PaymentIntentID))
	require.NoError(t, env.checkout.HandleWebhook(ctx, payload, "valid"))

	assert.Equal(t, 3, env.productStock(t, product.ID), "webhook must not re-decrement")
	reloaded, err := env.orderRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, reloaded.PaymentStatus)
}

func TestWebhookFirstThenConfirm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)

	identity := UserIdentity("user-1")
	_, err := env.carts.AddItem(ctx, identity, product.ID, 2)
	require.NoError(t, err)
	intent, err := env.checkout.CreateCheckoutIntent(ctx, identity, testAddress, testContact)
	require.NoError(t, err)
	order, err := env.orderRepo.FindByID(ctx, intent.OrderID)
	require.NoError(t, err)
	env.gateway.markSucceeded(order.PaymentIntentID)

	payload := succeededEvent(t, env.gateway.intent(order.PaymentIntentID))
	require.NoError(t, env.checkout.HandleWebhook(ctx, payload, "valid"))
	assert.Equal(t, 3, env.productStock(t, product.ID))

	detail, err := env.checkout.ConfirmPayment(ctx, order.ID, order.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, detail.Order.PaymentStatus)
	assert.Equal(t, 3, env.productStock(t, product.ID))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.checkout.HandleWebhook(ctx, []byte(`{}`), "forged")
	assert.ErrorIs(t, err, apperr.ErrSignatureInvalid)
}

func TestWebhookDeduplicatesByEventID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)

	identity := UserIdentity("user-1")
	_, err := env.carts.AddItem(ctx, identity, product.ID, 2)
	require.NoError(t, err)
	intent, err := env.checkout.CreateCheckoutIntent(ctx, identity, testAddress, testContact)
	require.NoError(t, err)
	order, err := env.orderRepo.FindByID(ctx, intent.OrderID)
	require.NoError(t, err)
	env.gateway.markSucceeded(order.PaymentIntentID)

	payload := succeededEvent(t, env.gateway.intent(order.PaymentIntentID))
	require.NoError(t, env.checkout.HandleWebhook(ctx, payload, "valid"))
	// Gateway re-delivery of the identical event.
	require.NoError(t, env.checkout.HandleWebhook(ctx, payload, "valid"))

	assert.Equal(t, 3, env.productStock(t, product.ID))
}

func TestWebhookPaymentFailedUnlocksCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)

	identity := UserIdentity("user-1")
	_, err := env.carts.AddItem(ctx, identity, product.ID, 2)
	require.NoError(t, err)
	intent, err := env.checkout.CreateCheckoutIntent(ctx, identity, testAddress, testContact)
	require.NoError(t, err)
	order, err := env.orderRepo.FindByID(ctx, intent.OrderID)
	require.NoError(t, err)

	payload := gatewayEvent(t, model.EventPaymentFailed, env.gateway.intent(order.PaymentIntentID))
	require.NoError(t, env.checkout.HandleWebhook(ctx, payload, "valid"))

	reloaded, err := env.orderRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, reloaded.PaymentStatus)
	assert.Equal(t, 5, env.productStock(t, product.ID), "failed payments never touch stock")

	cart, err := env.cartRepo.FindByID(ctx, order.CartID)
	require.NoError(t, err)
	assert.Equal(t, model.CartActive, cart.Status)
	items, err := env.cartRepo.GetItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1, "items survive a failed payment")
}

func TestSupplierAttributionIsStable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)

	identity := UserIdentity("user-1")
	_, err := env.carts.AddItem(ctx, identity, product.ID, 1)
	require.NoError(t, err)
	intent, err := env.checkout.CreateCheckoutIntent(ctx, identity, testAddress, testContact)
	require.NoError(t, err)

	// Reassign the product to a different supplier after the order exists.
	other := env.seedSupplier(t)
	require.NoError(t, env.productRepo.Update(ctx, product.ID, &model.ProductUpdate{SupplierID: &other.ID}))

	items, err := env.orderRepo.GetItems(ctx, intent.OrderID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, supplier.ID, items[0].SupplierID, "order keeps the supplier captured at creation")
}

func TestConfirmSurfacesStockShortfallWithoutGoingNegative(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)

	identity := UserIdentity("user-1")
	_, err := env.carts.AddItem(ctx, identity, product.ID, 3)
	require.NoError(t, err)
	intent, err := env.checkout.CreateCheckoutIntent(ctx, identity, testAddress, testContact)
	require.NoError(t, err)
	order, err := env.orderRepo.FindByID(ctx, intent.OrderID)
	require.NoError(t, err)

	// Stock drains between intent validation and payment confirmation.
	newStock := 1
	require.NoError(t, env.productRepo.Update(ctx, product.ID, &model.ProductUpdate{Stock: &newStock}))
	env.gateway.markSucceeded(order.PaymentIntentID)

	_, err = env.checkout.ConfirmPayment(ctx, order.ID, order.PaymentIntentID)
	var insufficient *apperr.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Available)

	// Never negative, and the gateway's truth still stands on the order.
	assert.Equal(t, 1, env.productStock(t, product.ID))
	reloaded, err := env.orderRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, reloaded.PaymentStatus)
}

func TestGuestCheckoutUsesGuestMetadata(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	supplier := env.seedSupplier(t)
	product := env.seedProduct(t, supplier, "10.00", 5)

	identity := SessionIdentity("sess-guest")
	_, err := env.carts.AddItem(ctx, identity, product.ID, 1)
	require.NoError(t, err)

	intent, err := env.checkout.CreateCheckoutIntent(ctx, identity, testAddress, testContact)
	require.NoError(t, err)

	order, err := env.orderRepo.FindByID(ctx, intent.OrderID)
	require.NoError(t, err)
	assert.Empty(t, order.UserID)
	assert.Equal(t, "guest", env.gateway.intent(order.PaymentIntentID).Metadata["user_id"])
}
