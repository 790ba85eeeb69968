package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"charity-market/internal/apperr"
	"charity-market/internal/client"
	"charity-market/internal/model"
	"charity-market/internal/repository"
)

type testEnv struct {
	db      *gorm.DB
	gateway *stubGateway

	foundationRepo repository.FoundationRepository
	supplierRepo   repository.SupplierRepository
	productRepo    repository.ProductRepository
	cartRepo       repository.CartRepository
	orderRepo      repository.OrderRepository
	webhookRepo    repository.WebhookEventRepository

	carts       CartService
	checkout    CheckoutService
	fulfillment FulfillmentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, client.Migrate(db))

	env := &testEnv{
		db:             db,
		gateway:        newStubGateway(),
		foundationRepo: repository.NewFoundationRepository(db),
		supplierRepo:   repository.NewSupplierRepository(db),
		productRepo:    repository.NewProductRepository(db),
		cartRepo:       repository.NewCartRepository(db),
		orderRepo:      repository.NewOrderRepository(db),
		webhookRepo:    repository.NewWebhookEventRepository(db),
	}

	logger := zap.NewNop()
	cfg := CheckoutConfig{
		Currency:          "usd",
		TaxRate:           decimal.RequireFromString("0.08"),
		ShippingFee:       decimal.RequireFromString("5.00"),
		FreeShippingAbove: decimal.RequireFromString("50.00"),
	}

	env.carts = NewCartService(env.cartRepo, env.productRepo, 0, logger)
	env.checkout = NewCheckoutService(db, env.gateway, cfg,
		env.cartRepo, env.productRepo, env.supplierRepo, env.orderRepo, env.webhookRepo, nil, logger)
	env.fulfillment = NewFulfillmentService(env.orderRepo, env.supplierRepo, nil, logger)

	return env
}

func (e *testEnv) seedSupplier(t *testing.T) *model.Supplier {
	t.Helper()

	foundation := &model.Foundation{ID: uuid.NewString(), Name: "Hope Foundation", Active: true}
	require.NoError(t, e.foundationRepo.Create(context.Background(), foundation))

	supplier := &model.Supplier{
		ID:           uuid.NewString(),
		FoundationID: foundation.ID,
		Name:         "Fresh Farms",
		Active:       true,
	}
	require.NoError(t, e.supplierRepo.Create(context.Background(), supplier))
	return supplier
}

func (e *testEnv) seedProduct(t *testing.T, supplier *model.Supplier, price string, stock int) *model.Product {
	t.Helper()

	product := &model.Product{
		ID:           uuid.NewString(),
		Name:         "Rice 1kg",
		Price:        decimal.RequireFromString(price),
		Stock:        stock,
		Unit:         "kg",
		Category:     "food",
		SupplierID:   supplier.ID,
		FoundationID: supplier.FoundationID,
		Status:       model.ProductActive,
	}
	require.NoError(t, e.productRepo.Create(context.Background(), product))
	return product
}

func (e *testEnv) productStock(t *testing.T, productID string) int {
	t.Helper()
	product, err := e.productRepo.FindByID(context.Background(), productID)
	require.NoError(t, err)
	return product.Stock
}

// succeededEvent builds a signed-looking gateway event wrapping the intent.
func succeededEvent(t *testing.T, intent *model.PaymentIntent) []byte {
	return gatewayEvent(t, model.EventPaymentSucceeded, intent)
}

func gatewayEvent(t *testing.T, eventType string, intent *model.PaymentIntent) []byte {
	t.Helper()

	object, err := json.Marshal(intent)
	require.NoError(t, err)

	payload, err := json.Marshal(map[string]interface{}{
		"id":   "evt_" + uuid.NewString(),
		"type": eventType,
		"data": map[string]json.RawMessage{"object": object},
	})
	require.NoError(t, err)
	return payload
}

// stubGateway is an in-memory StripeClient. Webhook verification accepts
// the literal signature "valid" so tests exercise the fail-closed branch.
type stubGateway struct {
	mu        sync.Mutex
	seq       int
	intents   map[string]*model.PaymentIntent
	createErr error
}

var _ client.StripeClient = (*stubGateway)(nil)

func newStubGateway() *stubGateway {
	return &stubGateway{intents: make(map[string]*model.PaymentIntent)}
}

func (g *stubGateway) CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*model.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.createErr != nil {
		return nil, g.createErr
	}

	g.seq++
	intent := &model.PaymentIntent{
		ID:            fmt.Sprintf("pi_test_%d", g.seq),
		ClientSecret:  fmt.Sprintf("pi_test_%d_secret", g.seq),
		Status:        "requires_payment_method",
		Amount:        amountMinor,
		Currency:      currency,
		PaymentMethod: "pm_card_visa",
		Metadata:      metadata,
	}
	g.intents[intent.ID] = intent
	return intent, nil
}

func (g *stubGateway) RetrieveIntent(ctx context.Context, intentID string) (*model.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[intentID]
	if !ok {
		return nil, &apperr.GatewayError{Op: "retrieve payment intent", StatusCode: 404, Body: "no such intent"}
	}
	copied := *intent
	return &copied, nil
}

func (g *stubGateway) VerifyWebhookSignature(payload []byte, sigHeader string) (*model.StripeWebhookEvent, error) {
	if sigHeader != "valid" {
		return nil, apperr.ErrSignatureInvalid
	}

	var event model.StripeWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (g *stubGateway) markSucceeded(intentID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[intentID].Status = model.IntentSucceeded
}

func (g *stubGateway) intent(intentID string) *model.PaymentIntent {
	g.mu.Lock()
	defer g.mu.Unlock()
	copied := *g.intents[intentID]
	return &copied
}
