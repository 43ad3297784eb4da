package service

import (
	"context"
	"errors"
	"fmt"

	"retail-service/internal/model"
	"retail-service/internal/store"
)

var ordersByCreation = store.Query{OrderBy: "createdAt", Desc: true}

// SubscribeWhatsAppOrders delivers every chat order, newest first
func (s *SyncService) SubscribeWhatsAppOrders(ctx context.Context, fn func([]model.WhatsAppOrder)) store.Unsubscribe {
	return subscribe(ctx, s.backend, s.log, store.WhatsAppOrders, ordersByCreation, fn)
}

func (s *SyncService) ListWhatsAppOrders(ctx context.Context) ([]model.WhatsAppOrder, error) {
	return load[model.WhatsAppOrder](ctx, s.backend, s.log, store.WhatsAppOrders, ordersByCreation)
}

// AddWhatsAppOrder stores a new order. A missing status starts it as
// PENDIENTE and a zero total is filled from the items.
func (s *SyncService) AddWhatsAppOrder(ctx context.Context, order model.WhatsAppOrder) (model.WhatsAppOrder, error) {
	if err := order.Validate(); err != nil {
		return model.WhatsAppOrder{}, err
	}
	if order.Status == "" {
		order.Status = model.OrderPending
	}
	if order.CreatedAt == "" {
		order.CreatedAt = model.ISOTime(s.now())
	}
	if order.Total.IsZero() {
		order.Total = model.ItemsTotal(order.Items)
	}
	order.Items = model.FreezeItems(order.Items)

	err := s.ledger.Do(ctx, func(ctx context.Context) error {
		doc, err := store.Encode(order)
		if err != nil {
			return err
		}
		id, err := s.backend.Insert(ctx, store.WhatsAppOrders, doc)
		if err != nil {
			return err
		}
		order.ID = id
		return nil
	})
	return order, s.finish("add_whatsapp_order", store.WhatsAppOrders, err)
}

func (s *SyncService) findWhatsAppOrder(ctx context.Context, id string) (model.WhatsAppOrder, error) {
	orders, err := load[model.WhatsAppOrder](ctx, s.backend, s.log, store.WhatsAppOrders, store.Query{})
	if err != nil {
		return model.WhatsAppOrder{}, err
	}
	for _, o := range orders {
		if o.ID == id {
			return o, nil
		}
	}
	return model.WhatsAppOrder{}, fmt.Errorf("whatsapp order %s: %w", id, store.ErrNotFound)
}

// SetWhatsAppStatus moves an order to status. In strict mode only the single
// next step is accepted; otherwise any known status is.
func (s *SyncService) SetWhatsAppStatus(ctx context.Context, id string, status model.OrderStatus) error {
	if !status.Valid() {
		return &model.ValidationError{Field: "status", Reason: "unknown status " + string(status)}
	}
	err := s.ledger.Do(ctx, func(ctx context.Context) error {
		if s.opts.StrictTransitions {
			order, err := s.findWhatsAppOrder(ctx, id)
			if err != nil {
				return err
			}
			if !model.CanAdvance(order.Status, status) {
				return &model.TransitionError{Entity: "whatsapp order", ID: id, From: string(order.Status), To: string(status)}
			}
		}
		return s.setWhatsAppStatus(ctx, id, status)
	})
	return s.finish("set_whatsapp_status", store.WhatsAppOrders, err)
}

func (s *SyncService) setWhatsAppStatus(ctx context.Context, id string, status model.OrderStatus) error {
	if err := s.backend.Update(ctx, store.WhatsAppOrders, id, store.Document{"status": string(status)}); err != nil {
		return fmt.Errorf("set status of whatsapp order %s: %w", id, err)
	}
	return nil
}

// FinalizeWhatsAppOrder records the order as a cash sale, takes its items out
// of stock and marks it ENTREGADO. The order is re-read first: a delivered
// order, or one a stored sale already points at, gives ErrAlreadyFinalized.
// In strict mode an order that is not LISTO gives a *model.TransitionError.
// When the sale cannot be stored the order is left untouched; once it is
// stored, a failed status write is an *OrderStatusError carrying the sale id.
func (s *SyncService) FinalizeWhatsAppOrder(ctx context.Context, id, cashier string) (model.Sale, error) {
	if cashier == "" {
		cashier = s.opts.DefaultCashier
	}
	var sale model.Sale
	err := s.ledger.Do(ctx, func(ctx context.Context) error {
		order, err := s.findWhatsAppOrder(ctx, id)
		if err != nil {
			return err
		}
		if order.Status == model.OrderDelivered {
			return fmt.Errorf("whatsapp order %s: %w", id, ErrAlreadyFinalized)
		}
		saleID, err := s.saleForOrder(ctx, id)
		if err != nil {
			return err
		}
		if saleID != "" {
			return fmt.Errorf("whatsapp order %s already has sale %s: %w", id, saleID, ErrAlreadyFinalized)
		}
		if s.opts.StrictTransitions && order.Status != model.OrderReady {
			return &model.TransitionError{Entity: "whatsapp order", ID: id, From: string(order.Status), To: string(model.OrderDelivered)}
		}

		sale, err = s.recordSale(ctx, model.Sale{
			Date:          model.ISOTime(s.now()),
			Items:         order.Items,
			Total:         order.Total,
			PaymentMethod: model.PaymentCash,
			CashierName:   cashier,
			CustomerName:  order.CustomerName,
			DocumentType:  model.DocumentReceipt,
			OrderID:       id,
		}, nil)

		// once the sale is stored the order is delivered, even if stock failed
		var stockErr *StockUpdateError
		if err != nil && !errors.As(err, &stockErr) {
			return err
		}
		if serr := s.setWhatsAppStatus(ctx, id, model.OrderDelivered); serr != nil {
			return errors.Join(err, &OrderStatusError{OrderID: id, SaleID: sale.ID, Err: serr})
		}
		return err
	})
	return sale, s.finish("finalize_whatsapp_order", store.WhatsAppOrders, err)
}

// saleForOrder returns the id of the sale created from order id, if any
func (s *SyncService) saleForOrder(ctx context.Context, id string) (string, error) {
	sales, err := load[model.Sale](ctx, s.backend, s.log, store.Sales, store.Query{})
	if err != nil {
		return "", err
	}
	for _, sale := range sales {
		if sale.OrderID == id {
			return sale.ID, nil
		}
	}
	return "", nil
}
