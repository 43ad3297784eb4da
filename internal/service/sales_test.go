package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retail-service/internal/model"
	"retail-service/internal/store"
)

func TestRecordSale_DecrementsStockAndFreezesItems(t *testing.T) {
	f := newFixture(t, newLocalBackend(t), true)
	ctx := context.Background()
	products := testProducts()

	sale, err := f.svc.RecordSale(ctx, saleOf(products[0], 6), products)
	require.NoError(t, err)
	assert.NotEmpty(t, sale.ID)
	assert.Equal(t, 44, stockOf(t, f.svc, "p1"))

	renamed := products[0]
	renamed.Name = "Alfajor Triple"
	renamed.Price = decimal.RequireFromString("4.00")
	renamed.Stock = 44
	require.NoError(t, f.svc.UpdateProduct(ctx, renamed))

	sales, err := f.svc.ListSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	require.Len(t, sales[0].Items, 1)
	assert.Equal(t, "Alfajor de Maicena", sales[0].Items[0].Name)
	assert.True(t, sales[0].Items[0].Price.Equal(decimal.RequireFromString("2.50")))
	assert.True(t, sales[0].Total.Equal(decimal.RequireFromString("15")))
}

func TestRecordSale_StaleSnapshotsDoNotLoseDecrements(t *testing.T) {
	f := newFixture(t, newLocalBackend(t), true)
	ctx := context.Background()
	snapshot, err := f.svc.ListProducts(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RecordSale(ctx, saleOf(snapshot[0], 6), snapshot)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 38, stockOf(t, f.svc, "p1"))
}

func TestRecordSale_MatchesByNameAndAggregatesLines(t *testing.T) {
	f := newFixture(t, newLocalBackend(t), true)
	ctx := context.Background()
	products := testProducts()

	byName := products[1]
	byName.ID = "legacy-id"
	sale := saleOf(byName, 2)
	sale.Items = append(sale.Items, model.LineItem{Product: products[1], Quantity: 1})

	_, err := f.svc.RecordSale(ctx, sale, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, stockOf(t, f.svc, "p2"))
	assert.Equal(t, 50, stockOf(t, f.svc, "p1"))
}

func TestRecordSale_StockGoesNegative(t *testing.T) {
	f := newFixture(t, newLocalBackend(t), true)

	_, err := f.svc.RecordSale(context.Background(), saleOf(testProducts()[1], 8), nil)
	require.NoError(t, err)

	assert.Equal(t, -3, stockOf(t, f.svc, "p2"))
}

func TestRecordSale_StockFailureKeepsSale(t *testing.T) {
	broken := errors.New("disk full")
	backend := &faultyBackend{Backend: newLocalBackend(t), incErr: broken}
	f := newFixture(t, backend, true)

	sale, err := f.svc.RecordSale(context.Background(), saleOf(testProducts()[0], 1), nil)

	var stockErr *StockUpdateError
	require.ErrorAs(t, err, &stockErr)
	assert.ErrorIs(t, err, broken)
	assert.Equal(t, sale.ID, stockErr.SaleID)
	assert.Contains(t, stockErr.Failed, "p1")

	sales, lerr := f.svc.ListSales(context.Background())
	require.NoError(t, lerr)
	assert.Len(t, sales, 1)
}

func TestRecordSale_RejectsInvalidSale(t *testing.T) {
	f := newFixture(t, newLocalBackend(t), true)
	sale := saleOf(testProducts()[0], 1)
	sale.PaymentMethod = "Bitcoin"

	_, err := f.svc.RecordSale(context.Background(), sale, nil)

	var validation *model.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestRecordSale_PermissionDeniedIsBroadcast(t *testing.T) {
	backend := &faultyBackend{
		Backend:   newLocalBackend(t),
		insertErr: map[string]error{store.Sales.Name: store.ErrPermissionDenied},
	}
	f := newFixture(t, backend, true)

	_, err := f.svc.RecordSale(context.Background(), saleOf(testProducts()[0], 1), nil)

	assert.NoError(t, err)
	assert.Equal(t, 1, f.events.len())
	assert.Equal(t, 50, stockOf(t, f.svc, "p1"))
}

func TestRecordSale_StockDenialsAreBroadcastAndOtherFailuresReturned(t *testing.T) {
	backend := &faultyBackend{
		Backend:   newLocalBackend(t),
		incErrFor: map[string]error{"p1": store.ErrPermissionDenied},
	}
	f := newFixture(t, backend, true)
	products := testProducts()
	ghost := model.Product{ID: "p9", Name: "Budín de Limón", Price: decimal.RequireFromString("4.00"), Category: model.CategoryPastry, Unit: "porción"}
	sale := saleOf(products[0], 1)
	sale.Items = append(sale.Items, model.LineItem{Product: ghost, Quantity: 1})

	recorded, err := f.svc.RecordSale(context.Background(), sale, append(products, ghost))

	var stockErr *StockUpdateError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, recorded.ID, stockErr.SaleID)
	assert.Contains(t, stockErr.Failed, "p9")
	assert.NotContains(t, stockErr.Failed, "p1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NotErrorIs(t, err, store.ErrPermissionDenied)
	assert.Equal(t, 1, f.events.len())
}

func TestRecordSale_OnlyStockDenialsAreAbsorbed(t *testing.T) {
	backend := &faultyBackend{
		Backend:   newLocalBackend(t),
		incErrFor: map[string]error{"p1": store.ErrPermissionDenied},
	}
	f := newFixture(t, backend, true)

	sale, err := f.svc.RecordSale(context.Background(), saleOf(testProducts()[0], 2), nil)

	require.NoError(t, err)
	assert.NotEmpty(t, sale.ID)
	assert.Equal(t, 1, f.events.len())
	assert.Equal(t, 50, stockOf(t, f.svc, "p1"))
}
