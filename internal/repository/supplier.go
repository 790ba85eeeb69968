package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"charity-market/internal/model"
)

type SupplierRepository interface {
	Create(ctx context.Context, s *model.Supplier) error
	FindByID(ctx context.Context, supplierID string) (*model.Supplier, error)
	ListByFoundation(ctx context.Context, foundationID string) ([]*model.Supplier, error)
	Update(ctx context.Context, supplierID string, upd *model.SupplierUpdate) error
	Delete(ctx context.Context, supplierID string) error
}

type supplierRepoImpl struct {
	db *gorm.DB
}

func NewSupplierRepository(db *gorm.DB) SupplierRepository {
	return &supplierRepoImpl{db: db}
}

func (r *supplierRepoImpl) Create(ctx context.Context, s *model.Supplier) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *supplierRepoImpl) FindByID(ctx context.Context, supplierID string) (*model.Supplier, error) {
	var supplier model.Supplier
	err := r.db.WithContext(ctx).
		Where("id = ?", supplierID).
		First(&supplier).Error

	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *supplierRepoImpl) ListByFoundation(ctx context.Context, foundationID string) ([]*model.Supplier, error) {
	var suppliers []*model.Supplier
	err := r.db.WithContext(ctx).
		Where("foundation_id = ?", foundationID).
		Order("name ASC").
		Find(&suppliers).Error

	if err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (r *supplierRepoImpl) Update(ctx context.Context, supplierID string, upd *model.SupplierUpdate) error {
	assignments := map[string]interface{}{"updated_at": time.Now()}
	if upd.Name != nil {
		assignments["name"] = *upd.Name
	}
	if upd.ContactEmail != nil {
		assignments["contact_email"] = *upd.ContactEmail
	}
	if upd.Active != nil {
		assignments["active"] = *upd.Active
	}

	result := r.db.WithContext(ctx).Model(&model.Supplier{}).
		Where("id = ?", supplierID).
		Updates(assignments)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *supplierRepoImpl) Delete(ctx context.Context, supplierID string) error {
	return r.db.WithContext(ctx).Delete(&model.Supplier{}, "id = ?", supplierID).Error
}
