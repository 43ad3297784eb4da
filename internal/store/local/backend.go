package local

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"retail-service/internal/store"
	"retail-service/prometheus"
)

const kind = string(store.KindLocal)

// Backend is the local variant of store.Backend. Read-modify-write cycles are
// serialized in-process; two processes writing the same key concurrently
// resolve as last writer wins for the whole collection.
type Backend struct {
	store *Store
	seeds map[string][]byte
	log   *zap.Logger
	mu    sync.Mutex
}

// NewBackend wraps st. seeds holds the value each collection starts from
// until it is first written.
func NewBackend(st *Store, seeds map[store.Collection]any, log *zap.Logger) (*Backend, error) {
	b := &Backend{
		store: st,
		seeds: make(map[string][]byte, len(seeds)),
		log:   log.With(zap.String("backend", kind)),
	}
	for c, seed := range seeds {
		raw, err := json.Marshal(seed)
		if err != nil {
			return nil, fmt.Errorf("encode seed for %s: %w", c.LocalKey, err)
		}
		b.seeds[c.LocalKey] = raw
	}
	return b, nil
}

func (b *Backend) Kind() store.Kind { return store.KindLocal }

func (b *Backend) seed(c store.Collection) []byte {
	if raw, ok := b.seeds[c.LocalKey]; ok {
		return raw
	}
	return []byte("[]")
}

func (b *Backend) parse(c store.Collection, raw []byte) []store.Document {
	docs, err := store.ParseDocuments(raw)
	if err == nil {
		return docs
	}
	b.log.Warn("Local collection is not a list of records, using seed", zap.String("collection", c.LocalKey), zap.Error(err))
	docs, err = store.ParseDocuments(b.seed(c))
	if err != nil {
		return []store.Document{}
	}
	return docs
}

func (b *Backend) load(c store.Collection) []store.Document {
	return b.parse(c, b.store.Read(c.LocalKey, b.seed(c)))
}

// Subscribe registers fn on the collection key; delivery is synchronous with the write
func (b *Backend) Subscribe(_ context.Context, c store.Collection, q store.Query, fn func([]store.Document)) store.Unsubscribe {
	return b.store.Subscribe(c.LocalKey, b.seed(c), func(raw []byte) {
		fn(q.Apply(b.parse(c, raw)))
	})
}

func (b *Backend) Load(_ context.Context, c store.Collection, q store.Query) ([]store.Document, error) {
	defer prometheus.TrackStoreOperation(kind, "load")(time.Now())
	return q.Apply(b.load(c)), nil
}

// mutate runs fn on the current documents of c and persists the result.
// Subscribers are notified after the lock is released.
func (b *Backend) mutate(c store.Collection, fn func([]store.Document) ([]store.Document, error)) error {
	b.mu.Lock()
	docs, err := fn(b.load(c))
	if err != nil {
		b.mu.Unlock()
		return err
	}
	err = b.put(c, docs)
	b.mu.Unlock()
	if err != nil {
		return err
	}
	b.store.Notify(c.LocalKey)
	return nil
}

func (b *Backend) put(c store.Collection, docs []store.Document) error {
	raw, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.LocalKey, err)
	}
	return b.store.Put(c.LocalKey, raw)
}

func indexOf(docs []store.Document, id string) int {
	for i, doc := range docs {
		if doc.ID() == id {
			return i
		}
	}
	return -1
}

// Insert appends doc under a client generated id
func (b *Backend) Insert(_ context.Context, c store.Collection, doc store.Document) (string, error) {
	defer prometheus.TrackStoreOperation(kind, "insert")(time.Now())
	id := uuid.NewString()
	err := b.mutate(c, func(docs []store.Document) ([]store.Document, error) {
		return append(docs, doc.WithID(id)), nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Update merges fields into the document with the given id
func (b *Backend) Update(_ context.Context, c store.Collection, id string, fields store.Document) error {
	defer prometheus.TrackStoreOperation(kind, "update")(time.Now())
	return b.mutate(c, func(docs []store.Document) ([]store.Document, error) {
		i := indexOf(docs, id)
		if i < 0 {
			return nil, fmt.Errorf("%s/%s: %w", c.LocalKey, id, store.ErrNotFound)
		}
		merged := docs[i].Clone()
		for k, v := range fields {
			if k == "id" {
				continue
			}
			merged[k] = v
		}
		docs[i] = merged
		return docs, nil
	})
}

// Set replaces the document with the given id
func (b *Backend) Set(_ context.Context, c store.Collection, id string, doc store.Document) error {
	defer prometheus.TrackStoreOperation(kind, "set")(time.Now())
	return b.mutate(c, func(docs []store.Document) ([]store.Document, error) {
		i := indexOf(docs, id)
		if i < 0 {
			return nil, fmt.Errorf("%s/%s: %w", c.LocalKey, id, store.ErrNotFound)
		}
		docs[i] = doc.WithID(id)
		return docs, nil
	})
}

// Increment adds delta to an integer field under the backend lock
func (b *Backend) Increment(_ context.Context, c store.Collection, id, field string, delta int) error {
	defer prometheus.TrackStoreOperation(kind, "increment")(time.Now())
	return b.mutate(c, func(docs []store.Document) ([]store.Document, error) {
		i := indexOf(docs, id)
		if i < 0 {
			return nil, fmt.Errorf("%s/%s: %w", c.LocalKey, id, store.ErrNotFound)
		}
		current, ok := store.IntField(docs[i], field)
		if !ok {
			return nil, fmt.Errorf("%s/%s: field %s is not an integer", c.LocalKey, id, field)
		}
		updated := docs[i].Clone()
		updated[field] = current + delta
		docs[i] = updated
		return docs, nil
	})
}

// Batch applies ops grouped per collection, one rewrite per collection
func (b *Backend) Batch(_ context.Context, ops []store.Op) error {
	defer prometheus.TrackStoreOperation(kind, "batch")(time.Now())
	var order []store.Collection
	grouped := make(map[store.Collection][]store.Op)
	for _, op := range ops {
		if _, seen := grouped[op.Collection]; !seen {
			order = append(order, op.Collection)
		}
		grouped[op.Collection] = append(grouped[op.Collection], op)
	}

	b.mu.Lock()
	var written []store.Collection
	for _, c := range order {
		docs := b.load(c)
		for _, op := range grouped[c] {
			switch op.Kind {
			case store.OpInsert:
				docs = append(docs, op.Doc.WithID(uuid.NewString()))
			case store.OpSet:
				if i := indexOf(docs, op.ID); i >= 0 {
					docs[i] = op.Doc.WithID(op.ID)
				} else {
					docs = append(docs, op.Doc.WithID(op.ID))
				}
			default:
				b.mu.Unlock()
				return fmt.Errorf("batch: unknown op kind %d", op.Kind)
			}
		}
		if err := b.put(c, docs); err != nil {
			b.mu.Unlock()
			b.notify(written)
			return fmt.Errorf("batch: %w", err)
		}
		written = append(written, c)
	}
	b.mu.Unlock()
	b.notify(written)
	return nil
}

func (b *Backend) notify(collections []store.Collection) {
	for _, c := range collections {
		b.store.Notify(c.LocalKey)
	}
}

// Overwrite replaces the whole collection. Documents without an id get one.
func (b *Backend) Overwrite(_ context.Context, c store.Collection, docs []store.Document) error {
	defer prometheus.TrackStoreOperation(kind, "overwrite")(time.Now())
	return b.mutate(c, func([]store.Document) ([]store.Document, error) {
		out := make([]store.Document, len(docs))
		for i, doc := range docs {
			if doc.ID() == "" {
				doc = doc.WithID(uuid.NewString())
			}
			out[i] = doc
		}
		return out, nil
	})
}

func (b *Backend) Close() error {
	return b.store.Close()
}
