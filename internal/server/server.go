package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"charity-market/internal/apperr"
	"charity-market/internal/handler"
	appmw "charity-market/internal/middleware"
	"charity-market/internal/model"
	"charity-market/internal/service"
)

type Server struct {
	echo            *echo.Echo
	authHandler     *handler.AuthHandler
	catalogHandler  *handler.CatalogHandler
	cartHandler     *handler.CartHandler
	checkoutHandler *handler.CheckoutHandler
	orderHandler    *handler.OrderHandler
}

func NewServer(
	jwtSecret string,
	userService service.UserService,
	catalogService service.CatalogService,
	cartService service.CartService,
	checkoutService service.CheckoutService,
	fulfillmentService service.FulfillmentService,
	logger *zap.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(appmw.Metrics())
	e.Use(appmw.Auth(jwtSecret))

	s := &Server{
		echo:            e,
		authHandler:     handler.NewAuthHandler(userService),
		catalogHandler:  handler.NewCatalogHandler(catalogService),
		cartHandler:     handler.NewCartHandler(cartService),
		checkoutHandler: handler.NewCheckoutHandler(checkoutService),
		orderHandler:    handler.NewOrderHandler(fulfillmentService),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// -------- auth --------
	api.POST("/auth/register", s.authHandler.Register)
	api.POST("/auth/login", s.authHandler.Login)

	// -------- catalog --------
	api.GET("/products", s.catalogHandler.ListProducts)
	api.GET("/products/:productID", s.catalogHandler.GetProduct)
	api.POST("/products", s.catalogHandler.CreateProduct,
		appmw.RequireRole(model.RoleAdmin, model.RoleFoundation, model.RoleSupplier))
	api.PUT("/products/:productID", s.catalogHandler.UpdateProduct,
		appmw.RequireRole(model.RoleAdmin, model.RoleFoundation, model.RoleSupplier))
	api.DELETE("/products/:productID", s.catalogHandler.DeleteProduct,
		appmw.RequireRole(model.RoleAdmin, model.RoleSupplier))

	api.GET("/foundations", s.catalogHandler.ListFoundations)
	api.GET("/foundations/:foundationID", s.catalogHandler.GetFoundation)
	api.GET("/foundations/:foundationID/products", s.catalogHandler.ListFoundationProducts)
	api.POST("/foundations", s.catalogHandler.CreateFoundation, appmw.RequireRole(model.RoleAdmin))
	api.PUT("/foundations/:foundationID", s.catalogHandler.UpdateFoundation,
		appmw.RequireRole(model.RoleAdmin, model.RoleFoundation))
	api.DELETE("/foundations/:foundationID", s.catalogHandler.DeleteFoundation, appmw.RequireRole(model.RoleAdmin))

	api.GET("/suppliers", s.catalogHandler.ListSuppliers)
	api.GET("/suppliers/:supplierID", s.catalogHandler.GetSupplier)
	api.GET("/suppliers/:supplierID/products", s.catalogHandler.ListSupplierProducts)
	api.POST("/suppliers", s.catalogHandler.CreateSupplier,
		appmw.RequireRole(model.RoleAdmin, model.RoleFoundation))
	api.PUT("/suppliers/:supplierID", s.catalogHandler.UpdateSupplier,
		appmw.RequireRole(model.RoleAdmin, model.RoleFoundation))
	api.DELETE("/suppliers/:supplierID", s.catalogHandler.DeleteSupplier,
		appmw.RequireRole(model.RoleAdmin, model.RoleFoundation))

	// -------- cart --------
	api.GET("/cart", s.cartHandler.GetCart)
	api.POST("/cart/items", s.cartHandler.AddItem)
	api.PUT("/cart/items/:productID", s.cartHandler.UpdateQuantity)
	api.DELETE("/cart/items/:productID", s.cartHandler.RemoveItem)
	api.POST("/cart/merge", s.cartHandler.MergeCart)

	// -------- checkout --------
	api.POST("/checkout/intent", s.checkoutHandler.CreateIntent)
	api.POST("/checkout/confirm", s.checkoutHandler.ConfirmPayment)
	api.POST("/checkout/webhook", s.checkoutHandler.Webhook)

	// -------- orders --------
	api.GET("/orders/mine", s.orderHandler.MyOrders)
	api.GET("/orders/as-supplier", s.orderHandler.SupplierOrders, appmw.RequireRole(model.RoleSupplier))
	api.GET("/orders/as-foundation", s.orderHandler.FoundationOrders, appmw.RequireRole(model.RoleFoundation))
	api.GET("/orders/:orderID", s.orderHandler.GetOrder)
	api.PUT("/orders/:orderID/shipment-status", s.orderHandler.UpdateShipmentStatus,
		appmw.RequireRole(model.RoleSupplier))
	api.POST("/orders/:orderID/refund", s.orderHandler.RefundOrder, appmw.RequireRole(model.RoleAdmin))
}

// errorHandler maps the domain error taxonomy to HTTP in one place.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			_ = c.JSON(httpErr.Code, map[string]interface{}{"error": httpErr.Message})
			return
		}

		status := http.StatusInternalServerError
		body := map[string]interface{}{"error": err.Error()}

		var insufficient *apperr.InsufficientStockError
		var missingSupplier *apperr.MissingSupplierError
		var gateway *apperr.GatewayError
		switch {
		case errors.As(err, &insufficient):
			status = http.StatusConflict
			body["productId"] = insufficient.ProductID
			body["available"] = insufficient.Available
		case errors.As(err, &missingSupplier):
			status = http.StatusUnprocessableEntity
			body["productId"] = missingSupplier.ProductID
		case errors.As(err, &gateway):
			status = http.StatusBadGateway
			body["error"] = "payment gateway error"
		case errors.Is(err, apperr.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperr.ErrInvalidArgument), errors.Is(err, apperr.ErrEmptyCart):
			status = http.StatusBadRequest
		case errors.Is(err, apperr.ErrPaymentNotCompleted):
			status = http.StatusPaymentRequired
		case errors.Is(err, apperr.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(err, apperr.ErrSignatureInvalid):
			status = http.StatusBadRequest
		}

		if status >= 500 {
			logger.Error("request failed",
				zap.String("path", c.Request().URL.Path),
				zap.Error(err))
			body["error"] = "internal error"
		}

		_ = c.JSON(status, body)
	}
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
