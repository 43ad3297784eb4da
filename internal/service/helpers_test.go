package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"retail-service/internal/catalog"
	"retail-service/internal/diagnostics"
	"retail-service/internal/model"
	"retail-service/internal/store"
	"retail-service/internal/store/local"
)

func testProducts() []model.Product {
	return []model.Product{
		{ID: "p1", Name: "Alfajor de Maicena", Barcode: "779001", Price: decimal.RequireFromString("2.50"), Cost: decimal.RequireFromString("1.00"), Stock: 50, MinStock: 10, Category: model.CategoryAlfajores, Unit: "unidad"},
		{ID: "p2", Name: "Café Americano", Barcode: "779002", Price: decimal.RequireFromString("3.00"), Cost: decimal.RequireFromString("0.80"), Stock: 5, MinStock: 10, Category: model.CategoryHotDrinks, Unit: "taza"},
	}
}

func testSeeds() map[store.Collection]any {
	return map[store.Collection]any{
		store.Products:       testProducts(),
		store.Sales:          []model.Sale{},
		store.Assets:         []model.Asset{},
		store.WhatsAppOrders: []model.WhatsAppOrder{},
		store.KitchenOrders:  []model.KitchenOrder{},
	}
}

func newLocalBackend(t *testing.T) *local.Backend {
	t.Helper()
	st, err := local.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	b, err := local.NewBackend(st, testSeeds(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// clock hands out strictly increasing times
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	backend store.Backend
	bus     *diagnostics.Bus
	svc     *SyncService
	events  *eventLog
}

type eventLog struct {
	mu     sync.Mutex
	events []diagnostics.Event
}

func (l *eventLog) add(e diagnostics.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func newFixture(t *testing.T, backend store.Backend, strict bool) *fixture {
	t.Helper()
	bus := diagnostics.NewBus(10, zap.NewNop())
	events := &eventLog{}
	bus.Subscribe(events.add)
	svc := New(backend, bus, zap.NewNop(), Options{
		StrictTransitions: strict,
		Baseline: catalog.Baseline{
			Products: testProducts(),
			Assets:   []model.Asset{{ID: "a1", Name: "Horno", Value: decimal.RequireFromString("1200"), Location: "Cocina", Status: model.AssetWorking, QRCode: "AF-001"}},
		},
	})
	svc.now = newClock().Now
	t.Cleanup(svc.Close)
	return &fixture{backend: backend, bus: bus, svc: svc, events: events}
}

// faultyBackend fails or slows selected operations
type faultyBackend struct {
	store.Backend
	insertErr   map[string]error
	insertDelay time.Duration
	updateErr   map[string]error
	incErr      error
	incErrFor   map[string]error
}

func (f *faultyBackend) Insert(ctx context.Context, c store.Collection, doc store.Document) (string, error) {
	if err := f.insertErr[c.Name]; err != nil {
		return "", err
	}
	time.Sleep(f.insertDelay)
	return f.Backend.Insert(ctx, c, doc)
}

func (f *faultyBackend) Update(ctx context.Context, c store.Collection, id string, fields store.Document) error {
	if err := f.updateErr[c.Name]; err != nil {
		return err
	}
	return f.Backend.Update(ctx, c, id, fields)
}

func (f *faultyBackend) Increment(ctx context.Context, c store.Collection, id, field string, delta int) error {
	if f.incErr != nil {
		return f.incErr
	}
	if err := f.incErrFor[id]; err != nil {
		return err
	}
	return f.Backend.Increment(ctx, c, id, field, delta)
}

func stockOf(t *testing.T, svc *SyncService, id string) int {
	t.Helper()
	products, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	for _, p := range products {
		if p.ID == id {
			return p.Stock
		}
	}
	t.Fatalf("product %s not found", id)
	return 0
}

func saleOf(p model.Product, qty int) model.Sale {
	return model.Sale{
		Items:         []model.LineItem{{Product: p, Quantity: qty}},
		Total:         p.Price.Mul(decimal.NewFromInt(int64(qty))),
		PaymentMethod: model.PaymentCash,
		CashierName:   "Ana",
		CustomerName:  "Consumidor Final",
		DocumentType:  model.DocumentReceipt,
	}
}
