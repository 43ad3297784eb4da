package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"retail-service/internal/store"
	"retail-service/prometheus"
)

const streamPrefix = "/api/stream/"

// MetricsMiddleware adds prometheus metrics to track HTTP requests.
// Streams are counted while open; their lifetime is not a request latency.
func MetricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Start timer for request duration
		start := time.Now()

		stream, streaming := streamLabel(c)
		if streaming {
			gauge := prometheus.OpenStreamsGauge.WithLabelValues(stream)
			gauge.Inc()
			defer gauge.Dec()
		}

		// Process request
		err := next(c)

		// Get request details
		method := c.Request().Method
		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Response().Status)

		// Record metrics
		prometheus.HttpRequestsTotal.WithLabelValues(method, path, status).Inc()
		if !streaming {
			prometheus.HttpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		}

		return err
	}
}

// streamLabel names the stream a request opens, by collection
func streamLabel(c echo.Context) (string, bool) {
	path := c.Path()
	if !strings.HasPrefix(path, streamPrefix) {
		return "", false
	}
	name := c.Param("collection")
	if name == "" {
		return strings.TrimPrefix(path, streamPrefix), true
	}
	if collection, ok := store.CollectionByName(name); ok {
		return collection.Name, true
	}
	return "unknown", true
}
