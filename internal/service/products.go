package service

import (
	"context"
	"fmt"
	"strings"

	"retail-service/internal/model"
	"retail-service/internal/store"
	"retail-service/prometheus"
)

// SubscribeProducts delivers the whole product collection, in backend order,
// now and after every change
func (s *SyncService) SubscribeProducts(ctx context.Context, fn func([]model.Product)) store.Unsubscribe {
	return subscribe(ctx, s.backend, s.log, store.Products, store.Query{}, fn)
}

func (s *SyncService) ListProducts(ctx context.Context) ([]model.Product, error) {
	return load[model.Product](ctx, s.backend, s.log, store.Products, store.Query{})
}

// LowStock lists the products under their alert threshold
func (s *SyncService) LowStock(ctx context.Context) ([]model.Product, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	low := make([]model.Product, 0)
	for _, p := range products {
		if p.LowStock() {
			low = append(low, p)
		}
	}
	return low, nil
}

// TrackStock mirrors product stock into the stock gauge for as long as the
// returned Unsubscribe is not called
func (s *SyncService) TrackStock(ctx context.Context) store.Unsubscribe {
	return s.SubscribeProducts(ctx, func(products []model.Product) {
		for _, p := range products {
			prometheus.UpdateProductStock(p.ID, p.Name, string(p.Category), p.Stock)
		}
	})
}

// AddProduct stores a new product under a backend assigned id
func (s *SyncService) AddProduct(ctx context.Context, p model.Product) (model.Product, error) {
	if err := p.Validate(); err != nil {
		return model.Product{}, err
	}
	err := s.ledger.Do(ctx, func(ctx context.Context) error {
		doc, err := store.Encode(p)
		if err != nil {
			return err
		}
		id, err := s.backend.Insert(ctx, store.Products, doc)
		if err != nil {
			return err
		}
		p.ID = id
		return nil
	})
	return p, s.finish("add_product", store.Products, err)
}

// UpdateProduct replaces the stored product with p
func (s *SyncService) UpdateProduct(ctx context.Context, p model.Product) error {
	if strings.TrimSpace(p.ID) == "" {
		return &model.ValidationError{Field: "id", Reason: "is required"}
	}
	if err := p.Validate(); err != nil {
		return err
	}
	err := s.ledger.Do(ctx, func(ctx context.Context) error {
		doc, err := store.Encode(p)
		if err != nil {
			return err
		}
		if err := s.backend.Set(ctx, store.Products, p.ID, doc); err != nil {
			return fmt.Errorf("update product %s: %w", p.ID, err)
		}
		return nil
	})
	return s.finish("update_product", store.Products, err)
}
