package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"retail-service/internal/store"
	"retail-service/prometheus"
)

// ReconcileResult counts the baseline records that were missing and got inserted
type ReconcileResult struct {
	Products int `json:"products"`
	Assets   int `json:"assets"`
}

// UpToDate reports that nothing had to be inserted
func (r ReconcileResult) UpToDate() bool {
	return r.Products == 0 && r.Assets == 0
}

// Reconcile merges the baseline catalog into live data. Only baseline ids
// absent from the live collections are written, under those same ids and in
// one batch, so existing records and sales are never touched and a second run
// inserts nothing.
func (s *SyncService) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var result ReconcileResult
	err := s.ledger.Do(ctx, func(ctx context.Context) error {
		liveProducts, err := s.liveIDs(ctx, store.Products)
		if err != nil {
			return err
		}
		liveAssets, err := s.liveIDs(ctx, store.Assets)
		if err != nil {
			return err
		}

		var ops []store.Op
		for _, p := range s.opts.Baseline.Products {
			if liveProducts[p.ID] {
				continue
			}
			doc, err := store.Encode(p)
			if err != nil {
				return err
			}
			ops = append(ops, store.Op{Kind: store.OpSet, Collection: store.Products, ID: p.ID, Doc: doc})
			result.Products++
		}
		for _, a := range s.opts.Baseline.Assets {
			if liveAssets[a.ID] {
				continue
			}
			doc, err := store.Encode(a)
			if err != nil {
				return err
			}
			ops = append(ops, store.Op{Kind: store.OpSet, Collection: store.Assets, ID: a.ID, Doc: doc})
			result.Assets++
		}

		if len(ops) == 0 {
			return nil
		}
		if err := s.backend.Batch(ctx, ops); err != nil {
			result = ReconcileResult{}
			return fmt.Errorf("reconcile catalog: %w", err)
		}
		return nil
	})
	if err == nil {
		prometheus.RecordReconciled(store.Products.Name, result.Products)
		prometheus.RecordReconciled(store.Assets.Name, result.Assets)
		s.log.Info("Catalog reconciled", zap.Int("products", result.Products), zap.Int("assets", result.Assets))
	}
	return result, s.finish("reconcile", store.Products, err)
}

func (s *SyncService) liveIDs(ctx context.Context, c store.Collection) (map[string]bool, error) {
	docs, err := s.backend.Load(ctx, c, store.Query{})
	if err != nil {
		return nil, fmt.Errorf("load live %s: %w", c.Name, err)
	}
	ids := make(map[string]bool, len(docs))
	for _, doc := range docs {
		ids[doc.ID()] = true
	}
	return ids, nil
}
