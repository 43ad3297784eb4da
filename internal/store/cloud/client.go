// Package cloud adapts a managed document database to store.Backend.
package cloud

import (
	"context"

	"retail-service/internal/store"
)

// Client is the document database the adapter talks to. Documents returned by
// Find carry their identity under "id"; documents passed in never do.
// Permission failures are reported wrapped in store.ErrPermissionDenied.
type Client interface {
	Find(ctx context.Context, collection string, q store.Query) ([]store.Document, error)
	// Create stores doc under a server generated id
	Create(ctx context.Context, collection string, doc store.Document) (string, error)
	Merge(ctx context.Context, collection, id string, fields store.Document) error
	Set(ctx context.Context, collection, id string, doc store.Document) error
	Increment(ctx context.Context, collection, id, field string, delta int) error
	// Commit applies ops in one round trip
	Commit(ctx context.Context, ops []store.Op) error
	Close() error
}
