package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"charity-market/internal/model"
)

type FoundationRepository interface {
	Create(ctx context.Context, f *model.Foundation) error
	FindByID(ctx context.Context, foundationID string) (*model.Foundation, error)
	List(ctx context.Context) ([]*model.Foundation, error)
	Update(ctx context.Context, foundationID string, upd *model.FoundationUpdate) error
	Delete(ctx context.Context, foundationID string) error
}

type foundationRepoImpl struct {
	db *gorm.DB
}

func NewFoundationRepository(db *gorm.DB) FoundationRepository {
	return &foundationRepoImpl{db: db}
}

func (r *foundationRepoImpl) Create(ctx context.Context, f *model.Foundation) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *foundationRepoImpl) FindByID(ctx context.Context, foundationID string) (*model.Foundation, error) {
	var foundation model.Foundation
	err := r.db.WithContext(ctx).
		Where("id = ?", foundationID).
		First(&foundation).Error

	if err != nil {
		return nil, err
	}
	return &foundation, nil
}

func (r *foundationRepoImpl) List(ctx context.Context) ([]*model.Foundation, error) {
	var foundations []*model.Foundation
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&foundations).Error; err != nil {
		return nil, err
	}
	return foundations, nil
}

func (r *foundationRepoImpl) Update(ctx context.Context, foundationID string, upd *model.FoundationUpdate) error {
	assignments := map[string]interface{}{"updated_at": time.Now()}
	if upd.Name != nil {
		assignments["name"] = *upd.Name
	}
	if upd.Description != nil {
		assignments["description"] = *upd.Description
	}
	if upd.LogoURL != nil {
		assignments["logo_url"] = *upd.LogoURL
	}
	if upd.Active != nil {
		assignments["active"] = *upd.Active
	}

	result := r.db.WithContext(ctx).Model(&model.Foundation{}).
		Where("id = ?", foundationID).
		Updates(assignments)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *foundationRepoImpl) Delete(ctx context.Context, foundationID string) error {
	return r.db.WithContext(ctx).Delete(&model.Foundation{}, "id = ?", foundationID).Error
}
