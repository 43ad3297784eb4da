package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"retail-service/internal/diagnostics"
	"retail-service/internal/model"
	"retail-service/internal/store"
	"retail-service/pkg/logger"
)

const heartbeatInterval = 25 * time.Second

// latest holds the newest undelivered payload. Offers never block so a slow
// client cannot stall the services delivering snapshots.
type latest struct {
	ch chan []byte
}

func newLatest() *latest {
	return &latest{ch: make(chan []byte, 1)}
}

func (l *latest) offer(payload []byte) {
	for {
		select {
		case l.ch <- payload:
			return
		default:
		}
		select {
		case <-l.ch:
		default:
		}
	}
}

// queue buffers discrete events; once full, new ones are dropped
type queue struct {
	ch chan []byte
}

func (q *queue) offer(payload []byte) {
	select {
	case q.ch <- payload:
	default:
	}
}

func (h *Handler) subscribeCollection(ctx context.Context, c store.Collection, send func(any)) store.Unsubscribe {
	switch c {
	case store.Products:
		return h.sync.SubscribeProducts(ctx, func(v []model.Product) { send(productResponses(v)) })
	case store.Sales:
		return h.sync.SubscribeSales(ctx, func(v []model.Sale) { send(v) })
	case store.Assets:
		return h.sync.SubscribeAssets(ctx, func(v []model.Asset) { send(v) })
	case store.WhatsAppOrders:
		return h.sync.SubscribeWhatsAppOrders(ctx, func(v []model.WhatsAppOrder) { send(v) })
	case store.KitchenOrders:
		return h.kitchen.Subscribe(ctx, func(v []model.KitchenOrder) { send(v) })
	}
	return func() {}
}

// StreamCollection pushes the full snapshot of a collection on every change
func (h *Handler) StreamCollection(c echo.Context) error {
	log := logger.FromContext(c)
	collection, ok := store.CollectionByName(c.Param("collection"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Unknown collection"})
	}

	ctx := c.Request().Context()
	pending := newLatest()
	unsubscribe := h.subscribeCollection(ctx, collection, func(v any) {
		payload, err := json.Marshal(v)
		if err != nil {
			log.Error("Failed to encode snapshot", zap.String("collection", collection.Name), zap.Error(err))
			return
		}
		pending.offer(payload)
	})
	defer unsubscribe()

	log.Info("Stream opened", zap.String("collection", collection.Name))
	return serveEvents(c, collection.Name, pending.ch)
}

// StreamDiagnostics pushes backend errors as they are published
func (h *Handler) StreamDiagnostics(c echo.Context) error {
	log := logger.FromContext(c)
	events := &queue{ch: make(chan []byte, 64)}
	send := func(e diagnostics.Event) {
		payload, err := json.Marshal(e)
		if err != nil {
			log.Error("Failed to encode diagnostic", zap.Error(err))
			return
		}
		events.offer(payload)
	}

	for _, e := range h.diag.Recent() {
		send(e)
	}
	unsubscribe := h.diag.Subscribe(send)
	defer unsubscribe()

	return serveEvents(c, "backend_error", events.ch)
}

// serveEvents writes server-sent events until the client goes away
func serveEvents(c echo.Context, event string, payloads <-chan []byte) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case payload := <-payloads:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
