package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"charity-market/internal/dto"
	"charity-market/internal/model"
	"charity-market/internal/service"
)

type CatalogHandler struct {
	catalogService service.CatalogService
}

func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// -------- foundations --------

func (h *CatalogHandler) CreateFoundation(c echo.Context) error {
	var req dto.CreateFoundationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	foundation, err := h.catalogService.CreateFoundation(c.Request().Context(), req.Name, req.Description, req.LogoURL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, foundation)
}

func (h *CatalogHandler) GetFoundation(c echo.Context) error {
	foundation, err := h.catalogService.GetFoundation(c.Request().Context(), c.Param("foundationID"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, foundation)
}

func (h *CatalogHandler) ListFoundations(c echo.Context) error {
	foundations, err := h.catalogService.ListFoundations(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, foundations)
}

func (h *CatalogHandler) UpdateFoundation(c echo.Context) error {
	var req dto.UpdateFoundationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	foundation, err := h.catalogService.UpdateFoundation(c.Request().Context(), c.Param("foundationID"),
		&model.FoundationUpdate{
			Name:        req.Name,
			Description: req.Description,
			LogoURL:     req.LogoURL,
			Active:      req.Active,
		})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, foundation)
}

func (h *CatalogHandler) DeleteFoundation(c echo.Context) error {
	if err := h.catalogService.DeleteFoundation(c.Request().Context(), c.Param("foundationID")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -------- suppliers --------

func (h *CatalogHandler) CreateSupplier(c echo.Context) error {
	var req dto.CreateSupplierRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	supplier, err := h.catalogService.CreateSupplier(c.Request().Context(), req.FoundationID, req.Name, req.ContactEmail)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, supplier)
}

func (h *CatalogHandler) GetSupplier(c echo.Context) error {
	supplier, err := h.catalogService.GetSupplier(c.Request().Context(), c.Param("supplierID"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, supplier)
}

func (h *CatalogHandler) ListSuppliers(c echo.Context) error {
	foundationID := c.QueryParam("foundationId")
	if foundationID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "foundationId query param is required")
	}

	suppliers, err := h.catalogService.ListSuppliers(c.Request().Context(), foundationID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, suppliers)
}

func (h *CatalogHandler) UpdateSupplier(c echo.Context) error {
	var req dto.UpdateSupplierRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	supplier, err := h.catalogService.UpdateSupplier(c.Request().Context(), c.Param("supplierID"),
		&model.SupplierUpdate{
			Name:         req.Name,
			ContactEmail: req.ContactEmail,
			Active:       req.Active,
		})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, supplier)
}

func (h *CatalogHandler) DeleteSupplier(c echo.Context) error {
	if err := h.catalogService.DeleteSupplier(c.Request().Context(), c.Param("supplierID")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -------- products --------

func (h *CatalogHandler) CreateProduct(c echo.Context) error {
	var req dto.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	product, err := h.catalogService.CreateProduct(c.Request().Context(), service.NewProduct{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Unit:        req.Unit,
		Category:    req.Category,
		SupplierID:  req.SupplierID,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, product)
}

func (h *CatalogHandler) GetProduct(c echo.Context) error {
	product, err := h.catalogService.GetProduct(c.Request().Context(), c.Param("productID"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

// ListProducts serves the public storefront: active products, optionally
// filtered by category.
func (h *CatalogHandler) ListProducts(c echo.Context) error {
	products, err := h.catalogService.ListStorefront(c.Request().Context(), c.QueryParam("category"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

func (h *CatalogHandler) ListSupplierProducts(c echo.Context) error {
	products, err := h.catalogService.ListSupplierProducts(c.Request().Context(), c.Param("supplierID"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

func (h *CatalogHandler) ListFoundationProducts(c echo.Context) error {
	products, err := h.catalogService.ListFoundationProducts(c.Request().Context(), c.Param("foundationID"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

func (h *CatalogHandler) UpdateProduct(c echo.Context) error {
	var req dto.UpdateProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	product, err := h.catalogService.UpdateProduct(c.Request().Context(), c.Param("productID"),
		&model.ProductUpdate{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			Stock:       req.Stock,
			Unit:        req.Unit,
			Category:    req.Category,
			SupplierID:  req.SupplierID,
			ImageURL:    req.ImageURL,
			Status:      req.Status,
		})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) DeleteProduct(c echo.Context) error {
	if err := h.catalogService.DeleteProduct(c.Request().Context(), c.Param("productID")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
