package orders

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrProductNotFound  = errors.New("product not found")
	ErrSizeNotFound     = errors.New("size not found for product")
	ErrOrderNotFound    = errors.New("order not found")
	ErrTxNotFound       = errors.New("payment transaction not found")
	ErrAlreadyPaid      = errors.New("order already paid")
	ErrTxAlreadyExists  = errors.New("payment transaction already exists")
	ErrForbidden        = errors.New("order does not belong to user")
	ErrNotCancellable   = errors.New("order is not cancellable")
	ErrInvalidSignature = errors.New("webhook signature mismatch")
)

// InsufficientStockError membawa available vs requested supaya client bisa
// menyesuaikan jumlah.
type InsufficientStockError struct {
	ProductID string
	Size      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	if e.Size != "" {
		return fmt.Sprintf("insufficient stock for product %s size %s: available %d, requested %d",
			e.ProductID, e.Size, e.Available, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}
