package cloud

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"retail-service/internal/diagnostics"
	"retail-service/internal/store"
)

// memClient is an in-memory Client
type memClient struct {
	mu        sync.Mutex
	next      int
	docs      map[string][]store.Document
	findErr   error
	writeErr  error
	finds     int
	committed [][]store.Op
}

func newMemClient() *memClient {
	return &memClient{docs: make(map[string][]store.Document)}
}

func (m *memClient) Find(_ context.Context, collection string, q store.Query) ([]store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := make([]store.Document, 0, len(m.docs[collection]))
	for _, doc := range m.docs[collection] {
		out = append(out, doc.Clone())
	}
	return q.Apply(out), nil
}

func (m *memClient) Create(_ context.Context, collection string, doc store.Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return "", m.writeErr
	}
	m.next++
	id := fmt.Sprintf("doc-%d", m.next)
	m.docs[collection] = append(m.docs[collection], doc.WithID(id))
	return id, nil
}

func (m *memClient) index(collection, id string) int {
	for i, doc := range m.docs[collection] {
		if doc.ID() == id {
			return i
		}
	}
	return -1
}

func (m *memClient) Merge(_ context.Context, collection, id string, fields store.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	i := m.index(collection, id)
	if i < 0 {
		return store.ErrNotFound
	}
	for k, v := range fields {
		m.docs[collection][i][k] = v
	}
	return nil
}

func (m *memClient) Set(_ context.Context, collection, id string, doc store.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	i := m.index(collection, id)
	if i < 0 {
		return store.ErrNotFound
	}
	m.docs[collection][i] = doc.WithID(id)
	return nil
}

func (m *memClient) Increment(_ context.Context, collection, id, field string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	i := m.index(collection, id)
	if i < 0 {
		return store.ErrNotFound
	}
	current, _ := store.IntField(m.docs[collection][i], field)
	m.docs[collection][i][field] = current + delta
	return nil
}

func (m *memClient) Commit(_ context.Context, ops []store.Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.committed = append(m.committed, ops)
	for _, op := range ops {
		name := op.Collection.Name
		switch op.Kind {
		case store.OpInsert:
			m.next++
			m.docs[name] = append(m.docs[name], op.Doc.WithID(fmt.Sprintf("doc-%d", m.next)))
		case store.OpSet:
			if i := m.index(name, op.ID); i >= 0 {
				m.docs[name][i] = op.Doc.WithID(op.ID)
			} else {
				m.docs[name] = append(m.docs[name], op.Doc.WithID(op.ID))
			}
		}
	}
	return nil
}

func (m *memClient) Close() error { return nil }

func (m *memClient) setFindErr(err error) {
	m.mu.Lock()
	m.findErr = err
	m.mu.Unlock()
}

func newTestBackend(t *testing.T) (*Backend, *memClient, *diagnostics.Bus) {
	t.Helper()
	client := newMemClient()
	bus := diagnostics.NewBus(10, zap.NewNop())
	b := NewBackend(client, bus, zap.NewNop())
	t.Cleanup(func() { _ = b.Close() })
	return b, client, bus
}

func TestBackend_PermissionDeniedIsBroadcastNotThrown(t *testing.T) {
	b, client, bus := newTestBackend(t)
	client.setFindErr(fmt.Errorf("%w: rls policy", store.ErrPermissionDenied))

	var events []diagnostics.Event
	bus.Subscribe(func(e diagnostics.Event) { events = append(events, e) })

	var deliveries [][]store.Document
	unsubscribe := b.Subscribe(context.Background(), store.Products, store.Query{}, func(docs []store.Document) {
		deliveries = append(deliveries, docs)
	})
	defer unsubscribe()

	require.Len(t, events, 1)
	assert.Equal(t, diagnostics.KindPermission, events[0].Kind)
	assert.Equal(t, "products", events[0].Source)
	assert.Empty(t, deliveries)

	// the subscription is still open: once access is granted, data flows
	client.setFindErr(nil)
	_, err := b.Insert(context.Background(), store.Products, store.Document{"name": "Pan"})
	require.NoError(t, err)

	assert.Len(t, events, 1)
	require.Len(t, deliveries, 1)
	assert.Len(t, deliveries[0], 1)
}

func TestBackend_EachDeniedRefreshIsOneEvent(t *testing.T) {
	b, client, bus := newTestBackend(t)
	client.setFindErr(fmt.Errorf("%w: rls policy", store.ErrPermissionDenied))
	var count int
	bus.Subscribe(func(diagnostics.Event) { count++ })

	unsubscribe := b.Subscribe(context.Background(), store.Products, store.Query{}, func([]store.Document) {})
	defer unsubscribe()
	b.Refresh("products")

	assert.Equal(t, 2, count)
}

func TestBackend_OtherSubscribeErrorsAreNotDiagnostics(t *testing.T) {
	b, client, bus := newTestBackend(t)
	client.setFindErr(errors.New("connection reset"))
	var count int
	bus.Subscribe(func(diagnostics.Event) { count++ })

	unsubscribe := b.Subscribe(context.Background(), store.Sales, store.Query{}, func([]store.Document) {})
	defer unsubscribe()

	assert.Zero(t, count)
}

func TestBackend_InsertStripsIdentityAndNulls(t *testing.T) {
	b, client, _ := newTestBackend(t)

	id, err := b.Insert(context.Background(), store.Products, store.Document{"id": "client-side", "name": "Pan", "image": nil})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", id)

	stored := client.docs["products"][0]
	assert.Equal(t, "doc-1", stored.ID())
	assert.Equal(t, "Pan", stored["name"])
	assert.NotContains(t, stored, "image")
}

func TestBackend_WriterSeesOwnWrites(t *testing.T) {
	b, _, _ := newTestBackend(t)
	ctx := context.Background()

	var last []store.Document
	unsubscribe := b.Subscribe(ctx, store.WhatsAppOrders, store.Query{OrderBy: "createdAt", Desc: true}, func(docs []store.Document) {
		last = docs
	})
	defer unsubscribe()
	assert.Empty(t, last)

	_, err := b.Insert(ctx, store.WhatsAppOrders, store.Document{"createdAt": "2026-01-01T10:00:00.000Z"})
	require.NoError(t, err)
	_, err = b.Insert(ctx, store.WhatsAppOrders, store.Document{"createdAt": "2026-01-02T10:00:00.000Z"})
	require.NoError(t, err)

	require.Len(t, last, 2)
	assert.Equal(t, "2026-01-02T10:00:00.000Z", last[0]["createdAt"])
}

func TestBackend_UnsubscribeStopsRefreshes(t *testing.T) {
	b, client, _ := newTestBackend(t)
	unsubscribe := b.Subscribe(context.Background(), store.Assets, store.Query{}, func([]store.Document) {})
	unsubscribe()
	unsubscribe()

	before := client.finds
	b.Refresh()
	assert.Equal(t, before, client.finds)
}

func TestBackend_WriteErrorsReachCaller(t *testing.T) {
	b, client, _ := newTestBackend(t)
	transient := errors.New("network unreachable")
	client.writeErr = transient

	_, err := b.Insert(context.Background(), store.Sales, store.Document{"total": "1"})
	assert.ErrorIs(t, err, transient)

	err = b.Increment(context.Background(), store.Products, "p1", "stock", -1)
	assert.ErrorIs(t, err, transient)

	err = b.Batch(context.Background(), []store.Op{{Kind: store.OpSet, Collection: store.Products, ID: "p1", Doc: store.Document{}}})
	assert.ErrorIs(t, err, transient)
}

func TestBackend_BatchIsOneCommit(t *testing.T) {
	b, client, _ := newTestBackend(t)

	err := b.Batch(context.Background(), []store.Op{
		{Kind: store.OpSet, Collection: store.Products, ID: "p1", Doc: store.Document{"id": "p1", "name": "Pan"}},
		{Kind: store.OpSet, Collection: store.Assets, ID: "a1", Doc: store.Document{"name": "Horno"}},
	})
	require.NoError(t, err)

	require.Len(t, client.committed, 1)
	assert.NotContains(t, client.committed[0][0].Doc, "id")
	assert.Equal(t, "p1", client.docs["products"][0].ID())
}

func TestClassify(t *testing.T) {
	denied := classify(&pgconn.PgError{Code: "42501", Message: "permission denied for table documents"})
	assert.ErrorIs(t, denied, store.ErrPermissionDenied)

	other := classify(&pgconn.PgError{Code: "23505", Message: "duplicate key"})
	assert.NotErrorIs(t, other, store.ErrPermissionDenied)

	assert.ErrorIs(t, classify(gorm.ErrRecordNotFound), store.ErrNotFound)
	assert.NoError(t, classify(nil))
}
