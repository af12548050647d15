package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIdempotencyKeyReused is returned when a key that already placed an order
// arrives with a different submission or from a different customer.
var ErrIdempotencyKeyReused = errors.New("idempotency key was already used for a different submission")

// ValidationError lists every submission field that failed its precondition.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, ", ")
}

type NotFoundError struct {
	OrderID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order %s not found", e.OrderID)
}

// TerminalStateError is returned when advancing an order that has no
// further status.
type TerminalStateError struct {
	OrderID string
	Status  OrderStatus
}

func (e *TerminalStateError) Error() string {
	if e.OrderID == "" {
		return fmt.Sprintf("status %s is terminal", e.Status)
	}
	return fmt.Sprintf("order %s is %s and cannot advance", e.OrderID, e.Status)
}

// ConflictError means the order was not in the status the caller expected,
// usually because another advance won.
type ConflictError struct {
	OrderID  string
	Expected OrderStatus
	Actual   OrderStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("order %s: expected status %s, actual %s", e.OrderID, e.Expected, e.Actual)
}
