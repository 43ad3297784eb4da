// Package service implements entity synchronization over a store.Backend:
// live collection feeds, mutations, the sale stock side effect, catalog
// reconciliation and backup. Every mutation runs through one ledger
// goroutine per service.
//
// Subscription callbacks run on the goroutine that performed the write and
// must not call mutating operations of the same service.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"retail-service/internal/catalog"
	"retail-service/internal/diagnostics"
	"retail-service/internal/store"
	"retail-service/prometheus"
)

// Options tunes the synchronization service
type Options struct {
	// StrictTransitions rejects status changes that skip or reverse a step and
	// finalizing orders that are not ready
	StrictTransitions bool
	// DefaultCashier names the cashier of sales created without an identity
	DefaultCashier string
	// Baseline is the catalog reconciliation merges into live data
	Baseline catalog.Baseline
}

// SyncService exposes products, sales, assets and WhatsApp orders
type SyncService struct {
	backend store.Backend
	diag    *diagnostics.Bus
	log     *zap.Logger
	opts    Options
	ledger  *ledger
	now     func() time.Time
}

// New builds the service on the backend selected at startup
func New(backend store.Backend, diag *diagnostics.Bus, log *zap.Logger, opts Options) *SyncService {
	if opts.DefaultCashier == "" {
		opts.DefaultCashier = "Sistema WA"
	}
	if opts.Baseline.Products == nil && opts.Baseline.Assets == nil {
		opts.Baseline = catalog.Default()
	}
	return &SyncService{
		backend: backend,
		diag:    diag,
		log:     log,
		opts:    opts,
		ledger:  newLedger(),
		now:     time.Now,
	}
}

// Close stops the ledger. The backend is owned by the caller.
func (s *SyncService) Close() {
	s.ledger.Close()
}

// finish records the outcome of an exported operation and absorbs
// permission denials
func (s *SyncService) finish(operation string, c store.Collection, err error) error {
	prometheus.RecordSyncOperation(operation, err)
	if err != nil {
		s.log.Warn("Sync operation failed", zap.String("operation", operation), zap.String("collection", c.Name), zap.Error(err))
	}
	return absorbPermission(s.diag, c.Name, err)
}

// decodeAll converts documents, skipping the ones that do not fit T
func decodeAll[T any](log *zap.Logger, c store.Collection, docs []store.Document) []T {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := store.Decode[T](doc)
		if err != nil {
			log.Warn("Skipping malformed record", zap.String("collection", c.Name), zap.String("id", doc.ID()), zap.Error(err))
			continue
		}
		out = append(out, v)
	}
	return out
}

// subscribe decodes every delivery of a live query into T
func subscribe[T any](ctx context.Context, b store.Backend, log *zap.Logger, c store.Collection, q store.Query, fn func([]T)) store.Unsubscribe {
	return b.Subscribe(ctx, c, q, func(docs []store.Document) {
		fn(decodeAll[T](log, c, docs))
	})
}

func load[T any](ctx context.Context, b store.Backend, log *zap.Logger, c store.Collection, q store.Query) ([]T, error) {
	docs, err := b.Load(ctx, c, q)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](log, c, docs), nil
}
