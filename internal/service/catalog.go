package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"charity-market/internal/apperr"
	"charity-market/internal/model"
	"charity-market/internal/repository"
)

// CatalogService covers foundation/supplier/product CRUD for the dashboards
// and the public storefront listing.
type CatalogService interface {
	CreateFoundation(ctx context.Context, name, description, logoURL string) (*model.Foundation, error)
	GetFoundation(ctx context.Context, foundationID string) (*model.Foundation, error)
	ListFoundations(ctx context.Context) ([]*model.Foundation, error)
	UpdateFoundation(ctx context.Context, foundationID string, upd *model.FoundationUpdate) (*model.Foundation, error)
	DeleteFoundation(ctx context.Context, foundationID string) error

	CreateSupplier(ctx context.Context, foundationID, name, contactEmail string) (*model.Supplier, error)
	GetSupplier(ctx context.Context, supplierID string) (*model.Supplier, error)
	ListSuppliers(ctx context.Context, foundationID string) ([]*model.Supplier, error)
	UpdateSupplier(ctx context.Context, supplierID string, upd *model.SupplierUpdate) (*model.Supplier, error)
	DeleteSupplier(ctx context.Context, supplierID string) error

	CreateProduct(ctx context.Context, input NewProduct) (*model.Product, error)
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	ListStorefront(ctx context.Context, category string) ([]*model.Product, error)
	ListSupplierProducts(ctx context.Context, supplierID string) ([]*model.Product, error)
	ListFoundationProducts(ctx context.Context, foundationID string) ([]*model.Product, error)
	UpdateProduct(ctx context.Context, productID string, upd *model.ProductUpdate) (*model.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

type NewProduct struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Unit        string
	Category    string
	SupplierID  string
	ImageURL    string
}

type catalogServiceImpl struct {
	foundationRepo repository.FoundationRepository
	supplierRepo   repository.SupplierRepository
	productRepo    repository.ProductRepository
}

func NewCatalogService(
	foundationRepo repository.FoundationRepository,
	supplierRepo repository.SupplierRepository,
	productRepo repository.ProductRepository,
) CatalogService {
	return &catalogServiceImpl{
		foundationRepo: foundationRepo,
		supplierRepo:   supplierRepo,
		productRepo:    productRepo,
	}
}

func (s *catalogServiceImpl) CreateFoundation(ctx context.Context, name, description, logoURL string) (*model.Foundation, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: foundation name is required", apperr.ErrInvalidArgument)
	}

	foundation := &model.Foundation{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		LogoURL:     logoURL,
		Active:      true,
	}
	if err := s.foundationRepo.Create(ctx, foundation); err != nil {
		return nil, fmt.Errorf("create foundation: %w", err)
	}
	return foundation, nil
}

func (s *catalogServiceImpl) GetFoundation(ctx context.Context, foundationID string) (*model.Foundation, error) {
	foundation, err := s.foundationRepo.FindByID(ctx, foundationID)
	if err != nil {
		return nil, notFoundOr(err, "foundation", foundationID)
	}
	return foundation, nil
}

func (s *catalogServiceImpl) ListFoundations(ctx context.Context) ([]*model.Foundation, error) {
	return s.foundationRepo.List(ctx)
}

func (s *catalogServiceImpl) UpdateFoundation(ctx context.Context, foundationID string, upd *model.FoundationUpdate) (*model.Foundation, error) {
	if err := s.foundationRepo.Update(ctx, foundationID, upd); err != nil {
		return nil, notFoundOr(err, "foundation", foundationID)
	}
	return s.foundationRepo.FindByID(ctx, foundationID)
}

func (s *catalogServiceImpl) DeleteFoundation(ctx context.Context, foundationID string) error {
	return s.foundationRepo.Delete(ctx, foundationID)
}

func (s *catalogServiceImpl) CreateSupplier(ctx context.Context, foundationID, name, contactEmail string) (*model.Supplier, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: supplier name is required", apperr.ErrInvalidArgument)
	}
	if _, err := s.foundationRepo.FindByID(ctx, foundationID); err != nil {
		return nil, notFoundOr(err, "foundation", foundationID)
	}

	supplier := &model.Supplier{
		ID:           uuid.NewString(),
		FoundationID: foundationID,
		Name:         name,
		ContactEmail: contactEmail,
		Active:       true,
	}
	if err := s.supplierRepo.Create(ctx, supplier); err != nil {
		return nil, fmt.Errorf("create supplier: %w", err)
	}
	return supplier, nil
}

func (s *catalogServiceImpl) GetSupplier(ctx context.Context, supplierID string) (*model.Supplier, error) {
	supplier, err := s.supplierRepo.FindByID(ctx, supplierID)
	if err != nil {
		return nil, notFoundOr(err, "supplier", supplierID)
	}
	return supplier, nil
}

func (s *catalogServiceImpl) ListSuppliers(ctx context.Context, foundationID string) ([]*model.Supplier, error) {
	return s.supplierRepo.ListByFoundation(ctx, foundationID)
}

func (s *catalogServiceImpl) UpdateSupplier(ctx context.Context, supplierID string, upd *model.SupplierUpdate) (*model.Supplier, error) {
	if err := s.supplierRepo.Update(ctx, supplierID, upd); err != nil {
		return nil, notFoundOr(err, "supplier", supplierID)
	}
	return s.supplierRepo.FindByID(ctx, supplierID)
}

func (s *catalogServiceImpl) DeleteSupplier(ctx context.Context, supplierID string) error {
	return s.supplierRepo.Delete(ctx, supplierID)
}

func (s *catalogServiceImpl) CreateProduct(ctx context.Context, input NewProduct) (*model.Product, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: product name is required", apperr.ErrInvalidArgument)
	}
	if input.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", apperr.ErrInvalidArgument)
	}
	if input.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", apperr.ErrInvalidArgument)
	}

	supplier, err := s.supplierRepo.FindByID(ctx, input.SupplierID)
	if err != nil {
		return nil, notFoundOr(err, "supplier", input.SupplierID)
	}

	product := &model.Product{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Description:  input.Description,
		Price:        input.Price,
		Stock:        input.Stock,
		Unit:         input.Unit,
		Category:     input.Category,
		SupplierID:   supplier.ID,
		FoundationID: supplier.FoundationID,
		ImageURL:     input.ImageURL,
		Status:       model.ProductActive,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

func (s *catalogServiceImpl) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "product", productID)
	}
	return product, nil
}

func (s *catalogServiceImpl) ListStorefront(ctx context.Context, category string) ([]*model.Product, error) {
	return s.productRepo.ListActive(ctx, category)
}

func (s *catalogServiceImpl) ListSupplierProducts(ctx context.Context, supplierID string) ([]*model.Product, error) {
	return s.productRepo.ListBySupplier(ctx, supplierID)
}

func (s *catalogServiceImpl) ListFoundationProducts(ctx context.Context, foundationID string) ([]*model.Product, error) {
	return s.productRepo.ListByFoundation(ctx, foundationID)
}

func (s *catalogServiceImpl) UpdateProduct(ctx context.Context, productID string, upd *model.ProductUpdate) (*model.Product, error) {
	if upd.Price != nil && upd.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", apperr.ErrInvalidArgument)
	}
	if upd.Stock != nil && *upd.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", apperr.ErrInvalidArgument)
	}
	if upd.SupplierID != nil {
		if _, err := s.supplierRepo.FindByID(ctx, *upd.SupplierID); err != nil {
			return nil, notFoundOr(err, "supplier", *upd.SupplierID)
		}
	}

	if err := s.productRepo.Update(ctx, productID, upd); err != nil {
		return nil, notFoundOr(err, "product", productID)
	}
	return s.productRepo.FindByID(ctx, productID)
}

func (s *catalogServiceImpl) DeleteProduct(ctx context.Context, productID string) error {
	return s.productRepo.Delete(ctx, productID)
}

func notFoundOr(err error, kind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", apperr.ErrNotFound, kind, id)
	}
	return fmt.Errorf("find %s: %w", kind, err)
}
