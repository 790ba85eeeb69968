package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product lifecycle.
const (
	ProductActive   = "active"
	ProductInactive = "inactive"
)

// Cart lifecycle.
const (
	CartActive     = "active"
	CartProcessing = "processing"
	CartCompleted  = "completed"
)

// Payment state machine: pending is the only non-terminal state.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Shipment state machine, strictly forward plus early cancellation.
const (
	ShipmentPending    = "pending"
	ShipmentProcessing = "processing"
	ShipmentShipped    = "shipped"
	ShipmentDelivered  = "delivered"
	ShipmentCancelled  = "cancelled"
)

// User roles.
const (
	RoleAdmin      = "admin"
	RoleFoundation = "foundation"
	RoleSupplier   = "supplier"
	RoleCustomer   = "customer"
)

type Foundation struct {
	ID          string `gorm:"primaryKey;size:36;not null"`
	Name        string `gorm:"size:128;not null"`
	Description string `gorm:"size:512"`
	LogoURL     string `gorm:"size:256"`
	Active      bool   `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Supplier struct {
	ID           string `gorm:"primaryKey;size:36;not null"`
	FoundationID string `gorm:"size:36;index;not null"` // FK → foundation.id
	Name         string `gorm:"size:128;not null"`
	ContactEmail string `gorm:"size:128"`
	Active       bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type User struct {
	ID           string `gorm:"primaryKey;size:36;not null"`
	Email        string `gorm:"size:128;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:128;not null"`
	Name         string `gorm:"size:128"`
	Role         string `gorm:"size:16;index;not null"` // admin, foundation, supplier, customer
	SupplierID   string `gorm:"size:36;index"`          // set for supplier-role users
	FoundationID string `gorm:"size:36;index"`          // set for foundation-role users
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Product struct {
	ID          string          `gorm:"primaryKey;size:36;not null"`
	Name        string          `gorm:"size:128;not null"`
	Description string          `gorm:"size:512"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Stock       int             `gorm:"not null"` // never negative; decremented only on confirmed payment
	Unit        string          `gorm:"size:16;not null"`
	Category    string          `gorm:"size:32;index"`
	// FK → supplier.id; may be empty for badly onboarded products, checkout
	// refuses to attribute such lines.
	SupplierID   string `gorm:"size:36;index"`
	FoundationID string `gorm:"size:36;index;not null"` // denormalized for foundation-scoped listings
	ImageURL     string `gorm:"size:256"`
	Status       string `gorm:"size:16;index;not null"` // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Cart struct {
	ID string `gorm:"primaryKey;size:36;not null"`
	// Exactly one of UserID / SessionID is set.
	UserID    string          `gorm:"size:36;index"`
	SessionID string          `gorm:"size:64;index"`
	Status    string          `gorm:"size:16;index;not null"` // active, processing, completed
	Total     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	ExpiresAt *time.Time      // session carts only
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CartItem struct {
	ID        uint   `gorm:"primaryKey"`
	CartID    string `gorm:"size:36;uniqueIndex:idx_cart_product;not null"`
	ProductID string `gorm:"size:36;uniqueIndex:idx_cart_product;not null"`
	Quantity  int    `gorm:"not null"`
	// Captured when the line is first added; merges keep the captured price.
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Order struct {
	ID          string `gorm:"primaryKey;size:36;not null"`
	OrderNumber string `gorm:"size:32;uniqueIndex;not null"`
	UserID      string `gorm:"size:36;index"` // empty for guest checkouts
	CartID      string `gorm:"size:36;index;not null"`

	Subtotal     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Taxes        decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	ShippingCost decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	// total = subtotal + taxes + shipping, fixed at creation.
	Total decimal.Decimal `gorm:"type:decimal(10,2);not null"`

	PaymentStatus   string `gorm:"size:16;index;not null"`
	ShipmentStatus  string `gorm:"size:16;index;not null"`
	PaymentIntentID string `gorm:"size:64;uniqueIndex;not null"` // gateway correlation id
	PaymentMethod   string `gorm:"size:64"`
	PaidAt          *time.Time

	ShippingAddress string  `gorm:"size:256;not null"`
	City            string  `gorm:"size:64"`
	PostalCode      string  `gorm:"size:16"`
	Country         string  `gorm:"size:64"`
	Latitude        float64 `gorm:"not null"`
	Longitude       float64 `gorm:"not null"`

	ContactName  string `gorm:"size:128;not null"`
	ContactEmail string `gorm:"size:128;not null"`
	ContactPhone string `gorm:"size:32"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderItem struct {
	ID      uint   `gorm:"primaryKey"`
	OrderID string `gorm:"size:36;index;not null"`
	// FK → product.id
	ProductID string `gorm:"size:36;index;not null"`
	// Supplier attribution snapshot, resolved and verified at order creation.
	// Later supplier changes on the product never touch this.
	SupplierID string          `gorm:"size:36;index;not null"`
	Name       string          `gorm:"size:128;not null"`
	Quantity   int             `gorm:"not null"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Subtotal   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt  time.Time
}

type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}

// ProductUpdate enumerates the mutable product fields; nil means leave
// unchanged.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Unit        *string
	Category    *string
	SupplierID  *string
	ImageURL    *string
	Status      *string
}

type FoundationUpdate struct {
	Name        *string
	Description *string
	LogoURL     *string
	Active      *bool
}

type SupplierUpdate struct {
	Name         *string
	ContactEmail *string
	Active       *bool
}
