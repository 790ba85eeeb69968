package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"charity-market/internal/model"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	CreateItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error
	FindByID(ctx context.Context, orderID string) (*model.Order, error)
	FindByIntentID(ctx context.Context, intentID string) (*model.Order, error)
	GetItems(ctx context.Context, orderID string) ([]*model.OrderItem, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Order, error)
	ListBySuppliers(ctx context.Context, supplierIDs []string) ([]*model.Order, error)
	// MarkPaymentCompleted is the pending→completed compare-and-set. Exactly
	// one of the racing confirm/webhook paths wins; the loser sees won=false
	// and must not touch stock.
	MarkPaymentCompleted(ctx context.Context, tx *gorm.DB, orderID, paymentMethod string, paidAt time.Time) (won bool, err error)
	MarkPaymentFailed(ctx context.Context, orderID string) (bool, error)
	MarkRefunded(ctx context.Context, orderID string) (bool, error)
	// SetShipmentStatus transitions only when the current status still
	// matches from, so concurrent supplier updates cannot skip states.
	SetShipmentStatus(ctx context.Context, orderID, from, to string) (bool, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{db: db}
}

func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) CreateItems(ctx context.Context, tx *gorm.DB, items []*model.OrderItem) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(&items).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error

	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepoImpl) FindByIntentID(ctx context.Context, intentID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("payment_intent_id = ?", intentID).
		First(&order).Error

	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepoImpl) GetItems(ctx context.Context, orderID string) ([]*model.OrderItem, error) {
	var items []*model.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&items).Error

	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *orderRepoImpl) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error

	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepoImpl) ListBySuppliers(ctx context.Context, supplierIDs []string) ([]*model.Order, error) {
	if len(supplierIDs) == 0 {
		return nil, nil
	}

	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Distinct("orders.*").
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Where("order_items.supplier_id IN ?", supplierIDs).
		Order("orders.created_at DESC").
		Find(&orders).Error

	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepoImpl) MarkPaymentCompleted(ctx context.Context, tx *gorm.DB, orderID, paymentMethod string, paidAt time.Time) (bool, error) {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_status = ?", orderID, model.PaymentPending).
		Updates(map[string]interface{}{
			"payment_status": model.PaymentCompleted,
			"payment_method": paymentMethod,
			"paid_at":        paidAt,
			"updated_at":     time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepoImpl) MarkPaymentFailed(ctx context.Context, orderID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_status = ?", orderID, model.PaymentPending).
		Updates(map[string]interface{}{
			"payment_status": model.PaymentFailed,
			"updated_at":     time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepoImpl) MarkRefunded(ctx context.Context, orderID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_status = ?", orderID, model.PaymentCompleted).
		Updates(map[string]interface{}{
			"payment_status": model.PaymentRefunded,
			"updated_at":     time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepoImpl) SetShipmentStatus(ctx context.Context, orderID, from, to string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND shipment_status = ?", orderID, from).
		Updates(map[string]interface{}{
			"shipment_status": to,
			"updated_at":      time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
