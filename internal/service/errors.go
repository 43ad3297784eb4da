package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"retail-service/internal/diagnostics"
	"retail-service/internal/store"
)

var (
	// ErrImportDisabled is returned by Import on a backend that cannot replace
	// whole collections (the cloud backend)
	ErrImportDisabled = errors.New("bulk import is disabled while the cloud database is active")
	// ErrAlreadyFinalized is returned when an order was already turned into a sale
	ErrAlreadyFinalized = errors.New("order already finalized")
)

// StockUpdateError means the sale was stored but some stock changes were not
type StockUpdateError struct {
	SaleID string
	Failed map[string]error
}

func (e *StockUpdateError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%s: %v", id, e.Failed[id])
	}
	return fmt.Sprintf("sale %s recorded but stock update failed (%s)", e.SaleID, strings.Join(parts, "; "))
}

func (e *StockUpdateError) Unwrap() []error {
	out := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		out = append(out, err)
	}
	return out
}

// OrderStatusError means the sale of a finalized order was stored but the
// order could not be marked delivered. It is never absorbed.
type OrderStatusError struct {
	OrderID string
	SaleID  string
	Err     error
}

func (e *OrderStatusError) Error() string {
	return fmt.Sprintf("sale %s recorded but whatsapp order %s was not marked delivered: %v", e.SaleID, e.OrderID, e.Err)
}

func (e *OrderStatusError) Unwrap() error {
	return e.Err
}

// absorbPermission publishes permission denials. A plain denial is reported
// as success to the caller; it is a standing condition fixed in the database
// rules. Errors raised after a sale was stored keep every non-permission
// failure, and an OrderStatusError is always returned.
func absorbPermission(diag *diagnostics.Bus, source string, err error) error {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case *StockUpdateError:
		return absorbStockDenials(diag, e)
	case *OrderStatusError:
		if errors.Is(e.Err, store.ErrPermissionDenied) {
			publishDenial(diag, store.WhatsAppOrders.Name, e.Err)
		}
		return e
	case interface{ Unwrap() []error }:
		var kept []error
		for _, inner := range e.Unwrap() {
			if inner = absorbPermission(diag, source, inner); inner != nil {
				kept = append(kept, inner)
			}
		}
		return errors.Join(kept...)
	}
	if !errors.Is(err, store.ErrPermissionDenied) {
		return err
	}
	publishDenial(diag, source, err)
	return nil
}

// absorbStockDenials publishes the denied products and keeps the rest
func absorbStockDenials(diag *diagnostics.Bus, e *StockUpdateError) error {
	remaining := make(map[string]error)
	var denied []string
	for id, err := range e.Failed {
		if errors.Is(err, store.ErrPermissionDenied) {
			denied = append(denied, id)
			continue
		}
		remaining[id] = err
	}
	if len(denied) > 0 {
		sort.Strings(denied)
		publishDenial(diag, store.Products.Name, fmt.Errorf("stock of %s for sale %s: %w", strings.Join(denied, ", "), e.SaleID, store.ErrPermissionDenied))
	}
	if len(remaining) == 0 {
		return nil
	}
	return &StockUpdateError{SaleID: e.SaleID, Failed: remaining}
}

func publishDenial(diag *diagnostics.Bus, source string, err error) {
	diag.Publish(diagnostics.Event{
		Kind:    diagnostics.KindPermission,
		Message: fmt.Sprintf("Permission denied writing %s: check the database access rules (%v)", source, err),
		Source:  source,
	})
}
