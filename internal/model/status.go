package model

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is matched by every *TransitionError
var ErrInvalidTransition = errors.New("invalid status transition")

// OrderStatus is the WhatsApp order lifecycle. It only moves forward.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDIENTE"
	OrderPreparing OrderStatus = "PREPARACION"
	OrderReady     OrderStatus = "LISTO"
	OrderDelivered OrderStatus = "ENTREGADO"
)

var orderFlow = []OrderStatus{OrderPending, OrderPreparing, OrderReady, OrderDelivered}

// Valid reports whether s is part of the lifecycle
func (s OrderStatus) Valid() bool {
	return s.position() >= 0
}

// Next returns the status that follows s
func (s OrderStatus) Next() (OrderStatus, bool) {
	pos := s.position()
	if pos < 0 || pos == len(orderFlow)-1 {
		return "", false
	}
	return orderFlow[pos+1], true
}

func (s OrderStatus) position() int {
	for i, known := range orderFlow {
		if s == known {
			return i
		}
	}
	return -1
}

// CanAdvance reports whether to is the single step after from
func CanAdvance(from, to OrderStatus) bool {
	next, ok := from.Next()
	return ok && next == to
}

// KitchenStatus is the kitchen ticket lifecycle: PENDING then DELIVERED
type KitchenStatus string

const (
	KitchenPending   KitchenStatus = "PENDING"
	KitchenDelivered KitchenStatus = "DELIVERED"
)

// TransitionError reports a rejected status change
type TransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %s cannot move from %q to %q", e.Entity, e.ID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ValidationError reports a field that failed input validation
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
