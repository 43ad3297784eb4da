package service

import (
	"context"

	"retail-service/internal/model"
	"retail-service/internal/store"
)

// SubscribeAssets delivers the fixed asset register. Assets are read-only here.
func (s *SyncService) SubscribeAssets(ctx context.Context, fn func([]model.Asset)) store.Unsubscribe {
	return subscribe(ctx, s.backend, s.log, store.Assets, store.Query{}, fn)
}

func (s *SyncService) ListAssets(ctx context.Context) ([]model.Asset, error) {
	return load[model.Asset](ctx, s.backend, s.log, store.Assets, store.Query{})
}
