package dto

import "github.com/shopspring/decimal"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type AddItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type CartItemResponse struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CartResponse struct {
	ID     string             `json:"id"`
	Status string             `json:"status"`
	Items  []CartItemResponse `json:"items"`
	Total  decimal.Decimal    `json:"total"`
}

type ShippingAddressRequest struct {
	Address    string  `json:"address"`
	City       string  `json:"city"`
	PostalCode string  `json:"postalCode"`
	Country    string  `json:"country"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

type ContactInfoRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type CheckoutIntentRequest struct {
	ShippingAddress ShippingAddressRequest `json:"shippingAddress"`
	ContactInfo     ContactInfoRequest     `json:"contactInfo"`
}

type CheckoutIntentResponse struct {
	ClientSecret string            `json:"clientSecret"`
	OrderID      string            `json:"orderId"`
	OrderNumber  string            `json:"orderNumber"`
	Total        decimal.Decimal   `json:"total"`
	Breakdown    CheckoutBreakdown `json:"breakdown"`
}

type CheckoutBreakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Taxes    decimal.Decimal `json:"taxes"`
	Shipping decimal.Decimal `json:"shipping"`
}

type ConfirmPaymentRequest struct {
	OrderID         string `json:"orderId"`
	PaymentIntentID string `json:"paymentIntentId"`
}

type OrderItemResponse struct {
	ProductID  string          `json:"productId"`
	SupplierID string          `json:"supplierId"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

type OrderResponse struct {
	ID             string              `json:"id"`
	OrderNumber    string              `json:"orderNumber"`
	PaymentStatus  string              `json:"paymentStatus"`
	ShipmentStatus string              `json:"shipmentStatus"`
	Items          []OrderItemResponse `json:"items"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	Taxes          decimal.Decimal     `json:"taxes"`
	Shipping       decimal.Decimal     `json:"shipping"`
	Total          decimal.Decimal     `json:"total"`
	CreatedAt      string              `json:"createdAt"`
}

// ScopedOrderResponse narrows an order to one supplier's or foundation's
// items; itemsSubtotal covers only those.
type ScopedOrderResponse struct {
	OrderResponse
	ItemsSubtotal decimal.Decimal `json:"itemsSubtotal"`
}

type ShipmentStatusRequest struct {
	NextStatus string `json:"nextStatus"`
}

type CreateFoundationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	LogoURL     string `json:"logoUrl"`
}

type UpdateFoundationRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	LogoURL     *string `json:"logoUrl"`
	Active      *bool   `json:"active"`
}

type CreateSupplierRequest struct {
	FoundationID string `json:"foundationId"`
	Name         string `json:"name"`
	ContactEmail string `json:"contactEmail"`
}

type UpdateSupplierRequest struct {
	Name         *string `json:"name"`
	ContactEmail *string `json:"contactEmail"`
	Active       *bool   `json:"active"`
}

type CreateProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Unit        string          `json:"unit"`
	Category    string          `json:"category"`
	SupplierID  string          `json:"supplierId"`
	ImageURL    string          `json:"imageUrl"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Unit        *string          `json:"unit"`
	Category    *string          `json:"category"`
	SupplierID  *string          `json:"supplierId"`
	ImageURL    *string          `json:"imageUrl"`
	Status      *string          `json:"status"`
}
