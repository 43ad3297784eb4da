package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"retail-service/internal/model"
	"retail-service/internal/store"
	"retail-service/prometheus"
)

var salesByDate = store.Query{OrderBy: "date", Desc: true}

// SubscribeSales delivers every sale, newest first
func (s *SyncService) SubscribeSales(ctx context.Context, fn func([]model.Sale)) store.Unsubscribe {
	return subscribe(ctx, s.backend, s.log, store.Sales, salesByDate, fn)
}

func (s *SyncService) ListSales(ctx context.Context) ([]model.Sale, error) {
	return load[model.Sale](ctx, s.backend, s.log, store.Sales, salesByDate)
}

// RecordSale stores the sale and then takes the sold quantities out of stock.
// snapshot is only used to match line items to products (by id, then by
// name); stock itself changes by relative increments, so sales computed from
// the same stale snapshot all count. Without a snapshot the live products are
// used. When the sale is stored but a stock change fails, the returned sale
// carries its id and the error is a *StockUpdateError.
func (s *SyncService) RecordSale(ctx context.Context, sale model.Sale, snapshot []model.Product) (model.Sale, error) {
	if err := sale.Validate(); err != nil {
		return model.Sale{}, err
	}
	var recorded model.Sale
	err := s.ledger.Do(ctx, func(ctx context.Context) error {
		var err error
		recorded, err = s.recordSale(ctx, sale, snapshot)
		return err
	})
	return recorded, s.finish("record_sale", store.Sales, err)
}

// recordSale runs inside the ledger
func (s *SyncService) recordSale(ctx context.Context, sale model.Sale, snapshot []model.Product) (model.Sale, error) {
	sale.Items = model.FreezeItems(sale.Items)
	if sale.Date == "" {
		sale.Date = model.ISOTime(s.now())
	}

	doc, err := store.Encode(sale)
	if err != nil {
		return model.Sale{}, err
	}
	id, err := s.backend.Insert(ctx, store.Sales, doc)
	if err != nil {
		return model.Sale{}, fmt.Errorf("record sale: %w", err)
	}
	sale.ID = id
	amount, _ := sale.Total.Float64()
	prometheus.RecordSale(amount)

	if err := s.takeStock(ctx, sale, snapshot); err != nil {
		return sale, err
	}
	return sale, nil
}

// takeStock decrements the stock of every product sold
func (s *SyncService) takeStock(ctx context.Context, sale model.Sale, snapshot []model.Product) error {
	if snapshot == nil {
		live, err := load[model.Product](ctx, s.backend, s.log, store.Products, store.Query{})
		if err != nil {
			return &StockUpdateError{SaleID: sale.ID, Failed: map[string]error{"*": err}}
		}
		snapshot = live
	}

	// one increment per product even when it appears on several lines
	sold := make(map[string]int)
	var order []string
	for _, item := range sale.Items {
		p, ok := model.FindProduct(snapshot, item.ID, item.Name)
		if !ok {
			s.log.Warn("Sold item matches no product, stock unchanged",
				zap.String("sale_id", sale.ID), zap.String("id", item.ID), zap.String("name", item.Name))
			continue
		}
		if _, seen := sold[p.ID]; !seen {
			order = append(order, p.ID)
		}
		sold[p.ID] += item.Quantity
	}

	failed := make(map[string]error)
	for _, productID := range order {
		if err := s.backend.Increment(ctx, store.Products, productID, "stock", -sold[productID]); err != nil {
			failed[productID] = err
		}
	}
	if len(failed) > 0 {
		return &StockUpdateError{SaleID: sale.ID, Failed: failed}
	}
	return nil
}
