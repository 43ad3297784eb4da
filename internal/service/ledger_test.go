package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSale_CallerDeadlineDoesNotAbandonAcceptedWrite(t *testing.T) {
	backend := &faultyBackend{Backend: newLocalBackend(t), insertDelay: 50 * time.Millisecond}
	f := newFixture(t, backend, true)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	sale, err := f.svc.RecordSale(ctx, saleOf(testProducts()[0], 1), nil)

	require.NoError(t, err)
	assert.NotEmpty(t, sale.ID)
	sales, err := f.svc.ListSales(context.Background())
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, sale.ID, sales[0].ID)
	assert.Equal(t, 49, stockOf(t, f.svc, "p1"))
}

func TestRecordSale_CancelledBeforeQueuedWritesNothing(t *testing.T) {
	f := newFixture(t, newLocalBackend(t), true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.RecordSale(ctx, saleOf(testProducts()[0], 1), nil)

	assert.ErrorIs(t, err, context.Canceled)
	sales, lerr := f.svc.ListSales(context.Background())
	require.NoError(t, lerr)
	assert.Empty(t, sales)
}

func TestLedger_RunsJobsInOrderAndRefusesAfterClose(t *testing.T) {
	l := newLedger()
	var seen []int
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, l.Do(context.Background(), func(context.Context) error {
			seen = append(seen, i)
			return nil
		}))
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, seen)

	l.Close()
	assert.Error(t, l.Do(context.Background(), func(context.Context) error { return nil }))
}
