package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"charity-market/internal/apperr"
	"charity-market/internal/model"
	"charity-market/internal/repository"
)

// CartService is the cart aggregate. It validates quantities against current
// stock but never mutates product stock; stock is decremented only by the
// checkout service on confirmed payment.
type CartService interface {
	Get(ctx context.Context, identity Identity) (*CartDetail, error)
	AddItem(ctx context.Context, identity Identity, productID string, quantity int) (*CartDetail, error)
	UpdateQuantity(ctx context.Context, identity Identity, productID string, quantity int) (*CartDetail, error)
	RemoveItem(ctx context.Context, identity Identity, productID string) (*CartDetail, error)
	Clear(ctx context.Context, identity Identity) error
	MergeSessionIntoUser(ctx context.Context, sessionID, userID string) (*CartDetail, error)
}

type CartDetail struct {
	Cart  *model.Cart
	Items []*model.CartItem
}

type cartServiceImpl struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	sessionTTL  time.Duration
	logger      *zap.Logger
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	sessionTTL time.Duration,
	logger *zap.Logger,
) CartService {
	return &cartServiceImpl{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		sessionTTL:  sessionTTL,
		logger:      logger,
	}
}

func (s *cartServiceImpl) Get(ctx context.Context, identity Identity) (*CartDetail, error) {
	cart, err := s.findOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, cart)
}

func (s *cartServiceImpl) AddItem(ctx context.Context, identity Identity, productID string, quantity int) (*CartDetail, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", apperr.ErrInvalidArgument)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %s", apperr.ErrNotFound, productID)
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	if product.Status != model.ProductActive {
		return nil, fmt.Errorf("%w: product %s", apperr.ErrNotFound, productID)
	}

	cart, err := s.findOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}

	items, err := s.cartRepo.GetItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}

	// Requested total is what the cart would hold after the add, checked
	// against live stock rather than whatever was valid at last read.
	existing := findLine(items, productID)
	requested := quantity
	if existing != nil {
		requested += existing.Quantity
	}
	if product.Stock < requested {
		return nil, &apperr.InsufficientStockError{ProductID: productID, Available: product.Stock}
	}

	if existing != nil {
		subtotal := existing.UnitPrice.Mul(decimal.NewFromInt(int64(requested)))
		if err := s.cartRepo.UpdateItemQuantity(ctx, cart.ID, productID, requested, subtotal); err != nil {
			return nil, fmt.Errorf("update cart line: %w", err)
		}
	} else {
		line := &model.CartItem{
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: product.Price,
			Subtotal:  product.Price.Mul(decimal.NewFromInt(int64(quantity))),
		}
		if err := s.cartRepo.InsertItem(ctx, line); err != nil {
			return nil, fmt.Errorf("insert cart line: %w", err)
		}
	}

	return s.refreshTotal(ctx, cart)
}

func (s *cartServiceImpl) UpdateQuantity(ctx context.Context, identity Identity, productID string, quantity int) (*CartDetail, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", apperr.ErrInvalidArgument)
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, identity, productID)
	}

	cart, err := s.findOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}

	items, err := s.cartRepo.GetItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	line := findLine(items, productID)
	if line == nil {
		return nil, fmt.Errorf("%w: product %s not in cart", apperr.ErrNotFound, productID)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %s", apperr.ErrNotFound, productID)
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	if product.Stock < quantity {
		return nil, &apperr.InsufficientStockError{ProductID: productID, Available: product.Stock}
	}

	subtotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	if err := s.cartRepo.UpdateItemQuantity(ctx, cart.ID, productID, quantity, subtotal); err != nil {
		return nil, fmt.Errorf("update cart line: %w", err)
	}

	return s.refreshTotal(ctx, cart)
}

func (s *cartServiceImpl) RemoveItem(ctx context.Context, identity Identity, productID string) (*CartDetail, error) {
	cart, err := s.findOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.RemoveItem(ctx, cart.ID, productID); err != nil {
		return nil, fmt.Errorf("remove cart line: %w", err)
	}

	return s.refreshTotal(ctx, cart)
}

func (s *cartServiceImpl) Clear(ctx context.Context, identity Identity) error {
	cart, err := s.findOrCreate(ctx, identity)
	if err != nil {
		return err
	}

	if err := s.cartRepo.ClearItems(ctx, nil, cart.ID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return s.cartRepo.UpdateTotal(ctx, cart.ID, decimal.Zero)
}

func (s *cartServiceImpl) MergeSessionIntoUser(ctx context.Context, sessionID, userID string) (*CartDetail, error) {
	sessionCart, err := s.cartRepo.FindActiveBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no session cart", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("find session cart: %w", err)
	}

	sessionItems, err := s.cartRepo.GetItems(ctx, sessionCart.ID)
	if err != nil {
		return nil, fmt.Errorf("get session cart items: %w", err)
	}
	if len(sessionItems) == 0 {
		return nil, fmt.Errorf("%w: session cart is empty", apperr.ErrNotFound)
	}

	userCart, err := s.cartRepo.FindActiveByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// No user cart yet: the session cart simply changes owner.
		if err := s.cartRepo.ReassignToUser(ctx, sessionCart.ID, userID); err != nil {
			return nil, fmt.Errorf("reassign session cart: %w", err)
		}
		cart, err := s.cartRepo.FindByID(ctx, sessionCart.ID)
		if err != nil {
			return nil, err
		}
		return s.detail(ctx, cart)
	}
	if err != nil {
		return nil, fmt.Errorf("find user cart: %w", err)
	}

	// Quantities are summed without re-validating stock here; checkout
	// re-validates every line anyway.
	userItems, err := s.cartRepo.GetItems(ctx, userCart.ID)
	if err != nil {
		return nil, fmt.Errorf("get user cart items: %w", err)
	}

	for _, sessionLine := range sessionItems {
		existing := findLine(userItems, sessionLine.ProductID)
		if existing != nil {
			merged := existing.Quantity + sessionLine.Quantity
			subtotal := existing.UnitPrice.Mul(decimal.NewFromInt(int64(merged)))
			if err := s.cartRepo.UpdateItemQuantity(ctx, userCart.ID, sessionLine.ProductID, merged, subtotal); err != nil {
				return nil, fmt.Errorf("merge cart line: %w", err)
			}
			continue
		}

		line := &model.CartItem{
			CartID:    userCart.ID,
			ProductID: sessionLine.ProductID,
			Quantity:  sessionLine.Quantity,
			UnitPrice: sessionLine.UnitPrice,
			Subtotal:  sessionLine.Subtotal,
		}
		if err := s.cartRepo.InsertItem(ctx, line); err != nil {
			return nil, fmt.Errorf("move cart line: %w", err)
		}
	}

	if err := s.cartRepo.Delete(ctx, sessionCart.ID); err != nil {
		return nil, fmt.Errorf("discard session cart: %w", err)
	}

	s.logger.Info("merged session cart into user cart",
		zap.String("session_cart", sessionCart.ID),
		zap.String("user_cart", userCart.ID),
		zap.Int("lines", len(sessionItems)))

	return s.refreshTotal(ctx, userCart)
}

func (s *cartServiceImpl) findOrCreate(ctx context.Context, identity Identity) (*model.Cart, error) {
	if identity.IsZero() {
		return nil, fmt.Errorf("%w: missing cart identity", apperr.ErrInvalidArgument)
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

	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find cart: %w", err)
	}

	cart = &model.Cart{
		ID:        uuid.NewString(),
		UserID:    identity.UserID,
		SessionID: identity.SessionID,
		Status:    model.CartActive,
		Total:     decimal.Zero,
	}
	if identity.SessionID != "" {
		expiry := time.Now().Add(s.sessionTTL)
		cart.ExpiresAt = &expiry
	}

	if err := s.cartRepo.Create(ctx, cart); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return cart, nil
}

func (s *cartServiceImpl) refreshTotal(ctx context.Context, cart *model.Cart) (*CartDetail, error) {
	items, err := s.cartRepo.GetItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	if err := s.cartRepo.UpdateTotal(ctx, cart.ID, total); err != nil {
		return nil, fmt.Errorf("update cart total: %w", err)
	}

	cart.Total = total
	return &CartDetail{Cart: cart, Items: items}, nil
}

func (s *cartServiceImpl) detail(ctx context.Context, cart *model.Cart) (*CartDetail, error) {
	items, err := s.cartRepo.GetItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	return &CartDetail{Cart: cart, Items: items}, nil
}

func findLine(items []*model.CartItem, productID string) *model.CartItem {
	for _, item := range items {
		if item.ProductID == productID {
			return item
		}
	}
	return nil
}
