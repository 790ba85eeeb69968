package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"charity-market/internal/apperr"
	"charity-market/internal/client"
	"charity-market/internal/events"
	"charity-market/internal/model"
	"charity-market/internal/repository"
)

type CheckoutService interface {
	CreateCheckoutIntent(ctx context.Context, identity Identity, address ShippingAddress, contact ContactInfo) (*CheckoutIntent, error)
	ConfirmPayment(ctx context.Context, orderID, intentID string) (*OrderDetail, error)
	HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error
}

type ShippingAddress struct {
	Address    string
	City       string
	PostalCode string
	Country    string
	Latitude   float64
	Longitude  float64
}

type ContactInfo struct {
	Name  string
	Email string
	Phone string
}

type CheckoutIntent struct {
	OrderID      string
	OrderNumber  string
	ClientSecret string
	Subtotal     decimal.Decimal
	Taxes        decimal.Decimal
	Shipping     decimal.Decimal
	Total        decimal.Decimal
}

type OrderDetail struct {
	Order *model.Order
	Items []*model.OrderItem
}

// CheckoutConfig carries the pricing knobs: tax as a fraction of the
// subtotal, a flat shipping fee waived at the free-shipping threshold.
type CheckoutConfig struct {
	Currency          string
	TaxRate           decimal.Decimal
	ShippingFee       decimal.Decimal
	FreeShippingAbove decimal.Decimal
}

type checkoutServiceImpl struct {
	db           *gorm.DB
	stripeClient client.StripeClient
	cfg          CheckoutConfig

	cartRepo     repository.CartRepository
	productRepo  repository.ProductRepository
	supplierRepo repository.SupplierRepository
	orderRepo    repository.OrderRepository
	webhookRepo  repository.WebhookEventRepository

	publisher *events.Publisher
	logger    *zap.Logger
}

func NewCheckoutService(
	db *gorm.DB,
	stripeClient client.StripeClient,
	cfg CheckoutConfig,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	supplierRepo repository.SupplierRepository,
	orderRepo repository.OrderRepository,
	webhookRepo repository.WebhookEventRepository,
	publisher *events.Publisher,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		db:           db,
		stripeClient: stripeClient,
		cfg:          cfg,
		cartRepo:     cartRepo,
		productRepo:  productRepo,
		supplierRepo: supplierRepo,
		orderRepo:    orderRepo,
		webhookRepo:  webhookRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

// CreateCheckoutIntent snapshots the cart into a pending order backed by a
// gateway payment intent. Validation failures abort before any write; a
// failed persist leaves the cart active (the orphaned intent just expires
// at the gateway).
func (s *checkoutServiceImpl) CreateCheckoutIntent(ctx context.Context, identity Identity, address ShippingAddress, contact ContactInfo) (*CheckoutIntent, error) {
	cart, items, err := s.loadActiveCart(ctx, identity)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.ErrEmptyCart
	}

	orderItems, subtotal, err := s.validateAndAttribute(ctx, items)
	if err != nil {
		return nil, err
	}

	taxes := subtotal.Mul(s.cfg.TaxRate).Round(2)
	shipping := s.cfg.ShippingFee
	if subtotal.GreaterThanOrEqual(s.cfg.FreeShippingAbove) {
		shipping = decimal.Zero
	}
	total := subtotal.Add(taxes).Add(shipping)

	orderID := uuid.NewString()
	orderNumber := newOrderNumber()

	metadata := map[string]string{
		"order_id":     orderID,
		"order_number": orderNumber,
		"cart_id":      cart.ID,
		"user_id":      metadataUserID(cart.UserID),
		"items":        summarizeItems(orderItems),
	}

	amountMinor := total.Shift(2).Round(0).IntPart()
	intent, err := s.stripeClient.CreatePaymentIntent(ctx, amountMinor, s.cfg.Currency, metadata)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	order := &model.Order{
		ID:              orderID,
		OrderNumber:     orderNumber,
		UserID:          cart.UserID,
		CartID:          cart.ID,
		Subtotal:        subtotal,
		Taxes:           taxes,
		ShippingCost:    shipping,
		Total:           total,
		PaymentStatus:   model.PaymentPending,
		ShipmentStatus:  model.ShipmentPending,
		PaymentIntentID: intent.ID,
		ShippingAddress: address.Address,
		City:            address.City,
		PostalCode:      address.PostalCode,
		Country:         address.Country,
		Latitude:        address.Latitude,
		Longitude:       address.Longitude,
		ContactName:     contact.Name,
		ContactEmail:    contact.Email,
		ContactPhone:    contact.Phone,
	}
	for _, item := range orderItems {
		item.OrderID = orderID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("store order: %w", err)
		}
		if err := s.orderRepo.CreateItems(ctx, tx, orderItems); err != nil {
			return fmt.Errorf("store order items: %w", err)
		}
		locked, err := s.cartRepo.SetStatus(ctx, tx, cart.ID, model.CartActive, model.CartProcessing)
		if err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}
		if !locked {
			return fmt.Errorf("%w: cart is no longer active", apperr.ErrInvalidArgument)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("checkout intent created",
		zap.String("order", orderNumber),
		zap.String("intent", intent.ID),
		zap.String("total", total.String()))
	s.publisher.Publish(ctx, events.OrderCreated, events.OrderEvent{
		OrderNumber: orderNumber,
		Status:      model.PaymentPending,
		Total:       total.String(),
	})

	return &CheckoutIntent{
		OrderID:      orderID,
		OrderNumber:  orderNumber,
		ClientSecret: intent.ClientSecret,
		Subtotal:     subtotal,
		Taxes:        taxes,
		Shipping:     shipping,
		Total:        total,
	}, nil
}

// validateAndAttribute re-fetches every product and builds the immutable
// order-item snapshots. Supplier references are resolved here, once; later
// supplier changes on a product never reach existing orders.
func (s *checkoutServiceImpl) validateAndAttribute(ctx context.Context, items []*model.CartItem) ([]*model.OrderItem, decimal.Decimal, error) {
	orderItems := make([]*model.OrderItem, 0, len(items))
	subtotal := decimal.Zero

	for _, item := range items {
		product, err := s.productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, decimal.Zero, fmt.Errorf("%w: product %s", apperr.ErrNotFound, item.ProductID)
			}
			return nil, decimal.Zero, fmt.Errorf("find product: %w", err)
		}

		if product.SupplierID == "" {
			return nil, decimal.Zero, &apperr.MissingSupplierError{ProductID: product.ID}
		}
		if _, err := s.supplierRepo.FindByID(ctx, product.SupplierID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, decimal.Zero, &apperr.MissingSupplierError{ProductID: product.ID}
			}
			return nil, decimal.Zero, fmt.Errorf("find supplier: %w", err)
		}

		if product.Stock < item.Quantity {
			return nil, decimal.Zero, &apperr.InsufficientStockError{ProductID: product.ID, Available: product.Stock}
		}

		lineSubtotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(lineSubtotal)

		orderItems = append(orderItems, &model.OrderItem{
			ProductID:  product.ID,
			SupplierID: product.SupplierID,
			Name:       product.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Subtotal:   lineSubtotal,
		})
	}

	return orderItems, subtotal, nil
}

// ConfirmPayment is the synchronous client-driven confirmation path. It is
// idempotent and safe to race with the webhook path: only the caller that
// wins the pending→completed compare-and-set decrements stock.
func (s *checkoutServiceImpl) ConfirmPayment(ctx context.Context, orderID, intentID string) (*OrderDetail, error) {
	intent, err := s.stripeClient.RetrieveIntent(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment intent: %w", err)
	}
	if intent.Status != model.IntentSucceeded {
		return nil, fmt.Errorf("%w: intent status is %q", apperr.ErrPaymentNotCompleted, intent.Status)
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %s", apperr.ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	if order.PaymentIntentID != intent.ID {
		return nil, fmt.Errorf("%w: payment intent does not belong to this order", apperr.ErrInvalidArgument)
	}

	if err := s.finalizePaid(ctx, order, intent); err != nil {
		return nil, err
	}
	return s.orderDetail(ctx, order.ID)
}

// HandleWebhook is the asynchronous confirmation path. Signature failures
// are rejected with no processing; succeeded/failed events converge with
// ConfirmPayment through the same status compare-and-set.
func (s *checkoutServiceImpl) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.stripeClient.VerifyWebhookSignature(payload, sigHeader)
	if err != nil {
		return err
	}

	seen, err := s.webhookRepo.Exists(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("check webhook event: %w", err)
	}
	if seen {
		return nil
	}

	switch event.Type {
	case model.EventPaymentSucceeded:
		if err := s.handlePaymentSucceeded(ctx, event); err != nil {
			return err
		}
	case model.EventPaymentFailed:
		if err := s.handlePaymentFailed(ctx, event); err != nil {
			return err
		}
	default:
		s.logger.Debug("ignoring webhook event", zap.String("type", event.Type))
	}

	return s.webhookRepo.MarkProcessed(ctx, event.ID, event.Type)
}

func (s *checkoutServiceImpl) handlePaymentSucceeded(ctx context.Context, event *model.StripeWebhookEvent) error {
	intent, err := event.Intent()
	if err != nil {
		return fmt.Errorf("decode intent from event: %w", err)
	}

	order, err := s.orderRepo.FindByIntentID(ctx, intent.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no order for intent %s", apperr.ErrNotFound, intent.ID)
		}
		return fmt.Errorf("find order by intent: %w", err)
	}

	return s.finalizePaid(ctx, order, intent)
}

func (s *checkoutServiceImpl) handlePaymentFailed(ctx context.Context, event *model.StripeWebhookEvent) error {
	intent, err := event.Intent()
	if err != nil {
		return fmt.Errorf("decode intent from event: %w", err)
	}

	order, err := s.orderRepo.FindByIntentID(ctx, intent.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no order for intent %s", apperr.ErrNotFound, intent.ID)
		}
		return fmt.Errorf("find order by intent: %w", err)
	}

	marked, err := s.orderRepo.MarkPaymentFailed(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("mark order failed: %w", err)
	}
	if !marked {
		// Already terminal; nothing to unwind.
		return nil
	}

	// Failed payments never touch stock; the cart goes back to shoppable.
	if _, err := s.cartRepo.SetStatus(ctx, nil, order.CartID, model.CartProcessing, model.CartActive); err != nil {
		return fmt.Errorf("unlock cart: %w", err)
	}

	s.publisher.Publish(ctx, events.OrderPaymentFailed, events.OrderEvent{
		OrderNumber: order.OrderNumber,
		Status:      model.PaymentFailed,
		Total:       order.Total.String(),
	})
	return nil
}

// finalizePaid is the shared success path. The pending→completed CAS is the
// sole convergence point between the confirm and webhook paths; stock is
// decremented exactly once, by whoever wins it.
func (s *checkoutServiceImpl) finalizePaid(ctx context.Context, order *model.Order, intent *model.PaymentIntent) error {
	items, err := s.orderRepo.GetItems(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}

	won, err := s.orderRepo.MarkPaymentCompleted(ctx, nil, order.ID, paymentMethodSummary(intent), time.Now())
	if err != nil {
		return fmt.Errorf("mark order completed: %w", err)
	}
	if !won {
		// The other path already processed this order.
		return nil
	}

	// Per-product conditional decrements. Stock may have been consumed by a
	// competing order since intent-time validation; the decrement refuses to
	// go negative and the shortfall is surfaced for reconciliation while the
	// remaining lines still decrement exactly once.
	var stockErr error
	for _, item := range items {
		if err := s.productRepo.DecrementStock(ctx, nil, item.ProductID, item.Quantity); err != nil {
			var insufficient *apperr.InsufficientStockError
			if errors.As(err, &insufficient) {
				s.logger.Warn("stock shortfall at confirmation",
					zap.String("order", order.OrderNumber),
					zap.String("product", item.ProductID),
					zap.Int("available", insufficient.Available))
				if stockErr == nil {
					stockErr = err
				}
				continue
			}
			return fmt.Errorf("decrement stock: %w", err)
		}
	}

	if _, err := s.cartRepo.SetStatus(ctx, nil, order.CartID, model.CartProcessing, model.CartCompleted); err != nil {
		return fmt.Errorf("complete cart: %w", err)
	}
	if err := s.cartRepo.ClearItems(ctx, nil, order.CartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	if err := s.cartRepo.UpdateTotal(ctx, order.CartID, decimal.Zero); err != nil {
		return fmt.Errorf("reset cart total: %w", err)
	}

	s.logger.Info("payment completed",
		zap.String("order", order.OrderNumber),
		zap.String("intent", intent.ID))
	s.publisher.Publish(ctx, events.OrderPaid, events.OrderEvent{
		OrderNumber: order.OrderNumber,
		Status:      model.PaymentCompleted,
		Total:       order.Total.String(),
	})

	return stockErr
}

func (s *checkoutServiceImpl) loadActiveCart(ctx context.Context, identity Identity) (*model.Cart, []*model.CartItem, error) {
	if identity.IsZero() {
		return nil, nil, fmt.Errorf("%w: missing cart identity", apperr.ErrInvalidArgument)
	}

	var (
		cart *model.Cart
		err  error
	)
	if identity.UserID != "" {
		cart, err = s.cartRepo.FindActiveByUser(ctx, identity.UserID)
	} else {
		cart, err = s.cartRepo.FindActiveBySession(ctx, identity.SessionID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.ErrEmptyCart
		}
		return nil, nil, fmt.Errorf("find cart: %w", err)
	}

	items, err := s.cartRepo.GetItems(ctx, cart.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("get cart items: %w", err)
	}
	return cart, items, nil
}

func (s *checkoutServiceImpl) orderDetail(ctx context.Context, orderID string) (*OrderDetail, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}
	items, err := s.orderRepo.GetItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	return &OrderDetail{Order: order, Items: items}, nil
}

func newOrderNumber() string {
	return "CM-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func metadataUserID(userID string) string {
	if userID == "" {
		return "guest"
	}
	return userID
}

func summarizeItems(items []*model.OrderItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%dx %s", item.Quantity, item.Name)
	}
	summary := strings.Join(parts, ", ")
	// Stripe caps metadata values at 500 chars.
	if len(summary) > 480 {
		summary = summary[:480]
	}
	return summary
}

func paymentMethodSummary(intent *model.PaymentIntent) string {
	if intent.PaymentMethod == "" {
		return "card"
	}
	return intent.PaymentMethod
}
