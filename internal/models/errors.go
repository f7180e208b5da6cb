package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means the referenced medicine or sale does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmptyCart means checkout was invoked with no cart lines.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInsufficientStock means a conditional decrement could not be
	// satisfied. Retryable: the operator should re-attempt against
	// refreshed stock.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrPersistence means the catalog or ledger could not be reached
	// or the write failed. Retryable with the cart preserved.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError reports malformed medicine input before any I/O.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StockChangedWarning is surfaced when cart lines were clamped or
// dropped because stock shrank between add and checkout. Non-fatal:
// checkout proceeds with the remaining lines.
type StockChangedWarning struct {
	Items []string
}

func (w *StockChangedWarning) Error() string {
	return fmt.Sprintf("stock changed for: %s", strings.Join(w.Items, ", "))
}
