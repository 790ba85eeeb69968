package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"charity-market/internal/model"
)

type CartRepository interface {
	Create(ctx context.Context, cart *model.Cart) error
	FindByID(ctx context.Context, cartID string) (*model.Cart, error)
	FindActiveByUser(ctx context.Context, userID string) (*model.Cart, error)
	FindActiveBySession(ctx context.Context, sessionID string) (*model.Cart, error)
	GetItems(ctx context.Context, cartID string) ([]*model.CartItem, error)
	InsertItem(ctx context.Context, item *model.CartItem) error
	UpdateItemQuantity(ctx context.Context, cartID, productID string, quantity int, subtotal decimal.Decimal) error
	RemoveItem(ctx context.Context, cartID, productID string) error
	ClearItems(ctx context.Context, tx *gorm.DB, cartID string) error
	UpdateTotal(ctx context.Context, cartID string, total decimal.Decimal) error
	// SetStatus is a compare-and-set on the cart lifecycle; reports whether
	// this call performed the transition.
	SetStatus(ctx context.Context, tx *gorm.DB, cartID, from, to string) (bool, error)
	ReassignToUser(ctx context.Context, cartID, userID string) error
	Delete(ctx context.Context, cartID string) error
	// ReclaimStale flips processing carts untouched since the cutoff back
	// to active, so abandoned checkouts become shoppable again.
	ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type cartRepoImpl struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepoImpl{db: db}
}

func (r *cartRepoImpl) Create(ctx context.Context, cart *model.Cart) error {
	return r.db.WithContext(ctx).Create(cart).Error
}

func (r *cartRepoImpl) FindByID(ctx context.Context, cartID string) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Where("id = ?", cartID).
		First(&cart).Error

	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepoImpl) FindActiveByUser(ctx context.Context, userID string) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.CartActive).
		First(&cart).Error

	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepoImpl) FindActiveBySession(ctx context.Context, sessionID string) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND status = ?", sessionID, model.CartActive).
		First(&cart).Error

	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepoImpl) GetItems(ctx context.Context, cartID string) ([]*model.CartItem, error) {
	var items []*model.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Find(&items).Error

	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cartRepoImpl) InsertItem(ctx context.Context, item *model.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *cartRepoImpl) UpdateItemQuantity(ctx context.Context, cartID, productID string, quantity int, subtotal decimal.Decimal) error {
	result := r.db.WithContext(ctx).Model(&model.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"subtotal":   subtotal,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *cartRepoImpl) RemoveItem(ctx context.Context, cartID, productID string) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&model.CartItem{}).Error
}

func (r *cartRepoImpl) ClearItems(ctx context.Context, tx *gorm.DB, cartID string) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&model.CartItem{}).Error
}

func (r *cartRepoImpl) UpdateTotal(ctx context.Context, cartID string, total decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&model.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]interface{}{
			"total":      total,
			"updated_at": time.Now(),
		}).Error
}

func (r *cartRepoImpl) SetStatus(ctx context.Context, tx *gorm.DB, cartID, from, to string) (bool, error) {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).Model(&model.Cart{}).
		Where("id = ? AND status = ?", cartID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *cartRepoImpl) ReassignToUser(ctx context.Context, cartID, userID string) error {
	return r.db.WithContext(ctx).Model(&model.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]interface{}{
			"user_id":    userID,
			"session_id": "",
			"expires_at": nil,
			"updated_at": time.Now(),
		}).Error
}

func (r *cartRepoImpl) Delete(ctx context.Context, cartID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Cart{}, "id = ?", cartID).Error
	})
}

func (r *cartRepoImpl) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Cart{}).
		Where("status = ? AND updated_at < ?", model.CartProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":     model.CartActive,
			"updated_at": time.Now(),
		})

	return result.RowsAffected, result.Error
}
