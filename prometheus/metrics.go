package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "retail"

var (
	// HTTP request metrics
	HttpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	OpenStreamsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_streams",
			Help:      "Current number of open server-sent event streams",
		},
		[]string{"stream"},
	)

	// Store operation metrics
	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of storage backend operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	BackendErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_errors_total",
			Help:      "Total number of storage backend errors by kind",
		},
		[]string{"backend", "kind"},
	)

	ActiveSubscriptionsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_subscriptions",
			Help:      "Current number of live subscriptions per collection",
		},
		[]string{"backend", "collection"},
	)

	// Synchronization service metrics
	SyncOperationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_operations_total",
			Help:      "Total number of synchronization service operations",
		},
		[]string{"operation", "result"},
	)

	ProductStockGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "product_stock",
			Help:      "Last observed stock level per product",
		},
		[]string{"product_id", "product_name", "category"},
	)

	SalesRecordedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_recorded_total",
			Help:      "Total number of sales recorded",
		},
	)

	SalesAmountCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_amount_total",
			Help:      "Sum of recorded sale totals",
		},
	)

	ReconciledRecordsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciled_records_total",
			Help:      "Total number of baseline records inserted by reconciliation",
		},
		[]string{"collection"},
	)

	registerOnce sync.Once
)

// InitMetrics registers every collector with the default registry. Collectors
// work unregistered, so packages can record before or without this call.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HttpRequestsTotal,
			HttpRequestDuration,
			OpenStreamsGauge,
			StoreOperationDuration,
			BackendErrorsCounter,
			ActiveSubscriptionsGauge,
			SyncOperationsCounter,
			ProductStockGauge,
			SalesRecordedCounter,
			SalesAmountCounter,
			ReconciledRecordsCounter,
		)
	})
}

// TrackStoreOperation returns a function that records the duration of a backend operation
func TrackStoreOperation(backend, operation string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		StoreOperationDuration.WithLabelValues(backend, operation).Observe(duration)
	}
}

// RecordBackendError increments the error counter for a backend
func RecordBackendError(backend, kind string) {
	BackendErrorsCounter.WithLabelValues(backend, kind).Inc()
}

// SetActiveSubscriptions updates the subscription gauge of a collection
func SetActiveSubscriptions(backend, collection string, count int) {
	ActiveSubscriptionsGauge.WithLabelValues(backend, collection).Set(float64(count))
}

// RecordSyncOperation counts a service operation and its outcome
func RecordSyncOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	SyncOperationsCounter.WithLabelValues(operation, result).Inc()
}

// UpdateProductStock updates the gauge for product stock
func UpdateProductStock(productID, productName, category string, stock int) {
	ProductStockGauge.WithLabelValues(productID, productName, category).Set(float64(stock))
}

// RecordSale counts a sale and adds its amount
func RecordSale(amount float64) {
	SalesRecordedCounter.Inc()
	SalesAmountCounter.Add(amount)
}

// RecordReconciled counts baseline records inserted into a collection
func RecordReconciled(collection string, count int) {
	ReconciledRecordsCounter.WithLabelValues(collection).Add(float64(count))
}
