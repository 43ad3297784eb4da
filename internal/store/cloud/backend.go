package cloud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"retail-service/internal/diagnostics"
	"retail-service/internal/store"
	"retail-service/prometheus"
)

const kind = string(store.KindCloud)

// DefaultQueryTimeout bounds each subscription refresh
const DefaultQueryTimeout = 15 * time.Second

// Backend is the cloud variant of store.Backend. Subscriptions are live
// queries re-run after every write through this adapter and after every
// change notification from other writers (see Refresh).
type Backend struct {
	client       Client
	diag         *diagnostics.Bus
	log          *zap.Logger
	feed         *store.Feed[struct{}]
	queryTimeout time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewBackend wraps client
func NewBackend(client Client, diag *diagnostics.Bus, log *zap.Logger) *Backend {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Backend{
		client:       client,
		diag:         diag,
		log:          log.With(zap.String("backend", kind)),
		feed:         store.NewFeed[struct{}](),
		queryTimeout: DefaultQueryTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
	b.feed.OnCount = func(key string, count int) {
		prometheus.SetActiveSubscriptions(kind, key, count)
	}
	return b
}

func (b *Backend) Kind() store.Kind { return store.KindCloud }

// Subscribe opens a live query. Failures never reach the caller: permission
// denials are published as diagnostics, anything else is logged, and the
// subscription stays registered either way.
func (b *Backend) Subscribe(_ context.Context, c store.Collection, q store.Query, fn func([]store.Document)) store.Unsubscribe {
	sub, unsubscribe := b.feed.Add(c.Name, func(struct{}) {
		ctx, cancel := context.WithTimeout(b.ctx, b.queryTimeout)
		defer cancel()
		docs, err := b.client.Find(ctx, c.Name, q)
		if err != nil {
			b.subscriptionFailed(c, err)
			return
		}
		fn(docs)
	})
	sub.Deliver(struct{}{})
	return unsubscribe
}

func (b *Backend) subscriptionFailed(c store.Collection, err error) {
	if errors.Is(b.ctx.Err(), context.Canceled) {
		return
	}
	if errors.Is(err, store.ErrPermissionDenied) {
		prometheus.RecordBackendError(kind, "permission")
		b.diag.Publish(diagnostics.Event{
			Kind:    diagnostics.KindPermission,
			Message: fmt.Sprintf("permission denied reading %s: check the database access rules", c.Name),
			Source:  c.Name,
		})
		return
	}
	prometheus.RecordBackendError(kind, "subscribe")
	b.log.Error("Subscription refresh failed", zap.String("collection", c.Name), zap.Error(err))
}

// Refresh re-runs the live queries of the named collections, or of every
// collection when none is named
func (b *Backend) Refresh(collections ...string) {
	if len(collections) == 0 {
		for _, c := range store.Collections {
			collections = append(collections, c.Name)
		}
	}
	for _, name := range collections {
		b.feed.Broadcast(name, struct{}{})
	}
}

func (b *Backend) failed(operation string, c store.Collection, err error) error {
	if errors.Is(err, store.ErrPermissionDenied) {
		prometheus.RecordBackendError(kind, "permission")
	} else {
		prometheus.RecordBackendError(kind, operation)
	}
	b.log.Warn("Cloud write failed", zap.String("operation", operation), zap.String("collection", c.Name), zap.Error(err))
	return fmt.Errorf("%s %s: %w", operation, c.Name, err)
}

func (b *Backend) Load(ctx context.Context, c store.Collection, q store.Query) ([]store.Document, error) {
	defer prometheus.TrackStoreOperation(kind, "load")(time.Now())
	docs, err := b.client.Find(ctx, c.Name, q)
	if err != nil {
		return nil, b.failed("load", c, err)
	}
	return docs, nil
}

func (b *Backend) Insert(ctx context.Context, c store.Collection, doc store.Document) (string, error) {
	defer prometheus.TrackStoreOperation(kind, "insert")(time.Now())
	id, err := b.client.Create(ctx, c.Name, doc.Payload())
	if err != nil {
		return "", b.failed("insert", c, err)
	}
	b.Refresh(c.Name)
	return id, nil
}

func (b *Backend) Update(ctx context.Context, c store.Collection, id string, fields store.Document) error {
	defer prometheus.TrackStoreOperation(kind, "update")(time.Now())
	if err := b.client.Merge(ctx, c.Name, id, fields.Payload()); err != nil {
		return b.failed("update", c, err)
	}
	b.Refresh(c.Name)
	return nil
}

func (b *Backend) Set(ctx context.Context, c store.Collection, id string, doc store.Document) error {
	defer prometheus.TrackStoreOperation(kind, "set")(time.Now())
	if err := b.client.Set(ctx, c.Name, id, doc.Payload()); err != nil {
		return b.failed("set", c, err)
	}
	b.Refresh(c.Name)
	return nil
}

func (b *Backend) Increment(ctx context.Context, c store.Collection, id, field string, delta int) error {
	defer prometheus.TrackStoreOperation(kind, "increment")(time.Now())
	if err := b.client.Increment(ctx, c.Name, id, field, delta); err != nil {
		return b.failed("increment", c, err)
	}
	b.Refresh(c.Name)
	return nil
}

// Batch commits ops in one round trip. A failure covers the whole batch.
func (b *Backend) Batch(ctx context.Context, ops []store.Op) error {
	defer prometheus.TrackStoreOperation(kind, "batch")(time.Now())
	if len(ops) == 0 {
		return nil
	}
	payload := make([]store.Op, len(ops))
	var touched []string
	seen := make(map[string]bool)
	for i, op := range ops {
		op.Doc = op.Doc.Payload()
		payload[i] = op
		if !seen[op.Collection.Name] {
			seen[op.Collection.Name] = true
			touched = append(touched, op.Collection.Name)
		}
	}
	if err := b.client.Commit(ctx, payload); err != nil {
		if errors.Is(err, store.ErrPermissionDenied) {
			prometheus.RecordBackendError(kind, "permission")
		} else {
			prometheus.RecordBackendError(kind, "batch")
		}
		return fmt.Errorf("batch: %w", err)
	}
	b.Refresh(touched...)
	return nil
}

// Close stops pending refreshes and closes the client
func (b *Backend) Close() error {
	b.cancel()
	return b.client.Close()
}
