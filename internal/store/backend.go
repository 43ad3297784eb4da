// Package store defines the storage capability the synchronization services
// run on. Two variants implement it: the cloud document database and the
// single-device local store.
package store

import (
	"context"
	"strings"
)

// Kind names a backend variant
type Kind string

const (
	KindCloud Kind = "cloud"
	KindLocal Kind = "local"
)

// Collection maps an entity type to its cloud collection name and local key
type Collection struct {
	Name     string
	LocalKey string
}

var (
	Products       = Collection{Name: "products", LocalKey: "products"}
	Sales          = Collection{Name: "sales", LocalKey: "sales"}
	Assets         = Collection{Name: "assets", LocalKey: "assets"}
	WhatsAppOrders = Collection{Name: "whatsapp_orders", LocalKey: "whatsappOrders"}
	KitchenOrders  = Collection{Name: "kitchen_orders", LocalKey: "kitchen_orders"}
)

// Collections lists every known collection
var Collections = []Collection{Products, Sales, Assets, WhatsAppOrders, KitchenOrders}

// CollectionByName accepts a cloud name, a local key or a dashed alias
func CollectionByName(name string) (Collection, bool) {
	normalized := strings.ReplaceAll(name, "-", "_")
	for _, c := range Collections {
		if c.Name == normalized || c.LocalKey == name {
			return c, true
		}
	}
	return Collection{}, false
}

// Query narrows a subscription or load. Zero value means backend order, no cap.
type Query struct {
	OrderBy string
	Desc    bool
	Limit   int
}

// OpKind is the kind of a batched write
type OpKind int

const (
	// OpInsert creates a document with a backend generated id
	OpInsert OpKind = iota + 1
	// OpSet writes a document under the given id, creating or replacing it
	OpSet
)

// Op is one write inside a Batch
type Op struct {
	Kind       OpKind
	Collection Collection
	ID         string
	Doc        Document
}

// Unsubscribe detaches a subscription. It is idempotent.
type Unsubscribe func()

// Backend is the storage capability handed to every service at startup.
// Subscribe delivers the full current result set on registration and after
// every change; failures are routed to diagnostics instead of the caller.
type Backend interface {
	Kind() Kind
	Subscribe(ctx context.Context, c Collection, q Query, fn func([]Document)) Unsubscribe
	Load(ctx context.Context, c Collection, q Query) ([]Document, error)
	Insert(ctx context.Context, c Collection, doc Document) (string, error)
	// Update merges fields into an existing document
	Update(ctx context.Context, c Collection, id string, fields Document) error
	// Set replaces an existing document
	Set(ctx context.Context, c Collection, id string, doc Document) error
	// Increment adds delta to an integer field in one atomic step
	Increment(ctx context.Context, c Collection, id, field string, delta int) error
	Batch(ctx context.Context, ops []Op) error
	Close() error
}

// Overwriter is implemented by backends that can replace a whole collection.
// Only the local backend does; wholesale replacement of live cloud data is refused.
type Overwriter interface {
	Overwrite(ctx context.Context, c Collection, docs []Document) error
}
