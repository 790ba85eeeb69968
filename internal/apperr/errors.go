// Package apperr defines the domain error taxonomy. Services return these;
// the HTTP layer maps them to status codes in one place.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrPaymentNotCompleted = errors.New("payment not completed")
	ErrForbidden           = errors.New("forbidden")
	ErrSignatureInvalid    = errors.New("webhook signature verification failed")
)

// InsufficientStockError reports the product that cannot cover the requested
// quantity and how many units are actually available.
type InsufficientStockError struct {
	ProductID string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: %d available", e.ProductID, e.Available)
}

// MissingSupplierError reports a product whose supplier reference is absent
// or dangling; such a line cannot be attributed and checkout refuses it.
type MissingSupplierError struct {
	ProductID string
}

func (e *MissingSupplierError) Error() string {
	return fmt.Sprintf("product %s has no valid supplier", e.ProductID)
}

// GatewayError wraps any non-2xx or transport failure from the payment
// gateway. Never retried by the adapter; retry policy belongs to callers.
type GatewayError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("payment gateway %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *GatewayError) Unwrap() error { return e.Err }
