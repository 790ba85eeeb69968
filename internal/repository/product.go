package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"charity-market/internal/apperr"
	"charity-market/internal/model"
)

type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, productID string) (*model.Product, error)
	ListActive(ctx context.Context, category string) ([]*model.Product, error)
	ListBySupplier(ctx context.Context, supplierID string) ([]*model.Product, error)
	ListByFoundation(ctx context.Context, foundationID string) ([]*model.Product, error)
	Update(ctx context.Context, productID string, upd *model.ProductUpdate) error
	Delete(ctx context.Context, productID string) error
	// DecrementStock atomically subtracts quantity, refusing to go below
	// zero. Returns InsufficientStockError when the conditional update
	// matches no row.
	DecrementStock(ctx context.Context, tx *gorm.DB, productID string, quantity int) error
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{db: db}
}

func (r *productRepoImpl) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepoImpl) FindByID(ctx context.Context, productID string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", productID).
		First(&product).Error

	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *productRepoImpl) ListActive(ctx context.Context, category string) ([]*model.Product, error) {
	query := r.db.WithContext(ctx).Where("status = ?", model.ProductActive)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var products []*model.Product
	if err := query.Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepoImpl) ListBySupplier(ctx context.Context, supplierID string) ([]*model.Product, error) {
	var products []*model.Product
	err := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Find(&products).Error

	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepoImpl) ListByFoundation(ctx context.Context, foundationID string) ([]*model.Product, error) {
	var products []*model.Product
	err := r.db.WithContext(ctx).
		Where("foundation_id = ?", foundationID).
		Find(&products).Error

	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepoImpl) Update(ctx context.Context, productID string, upd *model.ProductUpdate) error {
	assignments := map[string]interface{}{"updated_at": time.Now()}
	if upd.Name != nil {
		assignments["name"] = *upd.Name
	}
	if upd.Description != nil {
		assignments["description"] = *upd.Description
	}
	if upd.Price != nil {
		assignments["price"] = *upd.Price
	}
	if upd.Stock != nil {
		assignments["stock"] = *upd.Stock
	}
	if upd.Unit != nil {
		assignments["unit"] = *upd.Unit
	}
	if upd.Category != nil {
		assignments["category"] = *upd.Category
	}
	if upd.SupplierID != nil {
		assignments["supplier_id"] = *upd.SupplierID
	}
	if upd.ImageURL != nil {
		assignments["image_url"] = *upd.ImageURL
	}
	if upd.Status != nil {
		assignments["status"] = *upd.Status
	}

	result := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", productID).
		Updates(assignments)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepoImpl) Delete(ctx context.Context, productID string) error {
	return r.db.WithContext(ctx).Delete(&model.Product{}, "id = ?", productID).Error
}

func (r *productRepoImpl) DecrementStock(ctx context.Context, tx *gorm.DB, productID string, quantity int) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Either the product vanished or stock ran out between validation
		// and confirmation; report the remaining units.
		available := 0
		var product model.Product
		err := tx.WithContext(ctx).Where("id = ?", productID).First(&product).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil {
			available = product.Stock
		}
		return &apperr.InsufficientStockError{ProductID: productID, Available: available}
	}
	return nil
}
