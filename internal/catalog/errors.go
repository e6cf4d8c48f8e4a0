package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the catalog has no product or category for the slug.
	ErrNotFound = errors.New("catalog: not found")
	// ErrInsufficientStock is returned when a stock decrement exceeds the units on hand.
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
	// ErrInvalidInput is returned when the catalog rejects the request payload.
	ErrInvalidInput = errors.New("catalog: invalid input")
)

// StatusError carries the upstream HTTP status and response detail for
// failures that do not map onto a sentinel.
type StatusError struct {
	Op     string
	Status int
	Detail string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("catalog: %s status %d: %s", e.Op, e.Status, e.Detail)
	}
	return fmt.Sprintf("catalog: %s status %d", e.Op, e.Status)
}
