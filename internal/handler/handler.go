package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"retail-service/internal/backend"
	"retail-service/internal/diagnostics"
	"retail-service/internal/model"
	"retail-service/internal/service"
	"retail-service/internal/store"
	"retail-service/pkg/logger"
)

// Handler serves the consumer surface over the synchronization services
type Handler struct {
	sync    *service.SyncService
	kitchen *service.KitchenService
	backend backend.Info
	diag    *diagnostics.Bus
}

func New(sync *service.SyncService, kitchen *service.KitchenService, info backend.Info, diag *diagnostics.Bus) *Handler {
	return &Handler{sync: sync, kitchen: kitchen, backend: info, diag: diag}
}

// Register mounts every route on e
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.HealthCheck)

	api := e.Group("/api")
	api.GET("/backend", h.GetBackend)

	api.GET("/products", h.ListProducts)
	api.POST("/products", h.CreateProduct)
	api.PUT("/products/:id", h.UpdateProduct)
	api.GET("/products/low-stock", h.LowStock)

	api.GET("/sales", h.ListSales)
	api.POST("/sales", h.RecordSale)

	api.GET("/assets", h.ListAssets)

	api.GET("/whatsapp-orders", h.ListWhatsAppOrders)
	api.POST("/whatsapp-orders", h.CreateWhatsAppOrder)
	api.PATCH("/whatsapp-orders/:id/status", h.SetWhatsAppStatus)
	api.POST("/whatsapp-orders/:id/finalize", h.FinalizeWhatsAppOrder)

	api.GET("/kitchen/orders", h.ListKitchenOrders)
	api.POST("/kitchen/orders", h.PlaceKitchenOrder)
	api.POST("/kitchen/orders/:id/deliver", h.DeliverKitchenOrder)

	api.POST("/system/reconcile", h.Reconcile)
	api.GET("/system/export", h.Export)
	api.POST("/system/import", h.Import)

	api.GET("/stream/diagnostics", h.StreamDiagnostics)
	api.GET("/stream/:collection", h.StreamCollection)
}

// HealthCheck handles the health check endpoint
func (h *Handler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "ok",
		"time":    time.Now().Format(time.RFC3339),
		"backend": h.backend.Kind,
	})
}

// GetBackend reports the backend chosen at startup and the recent diagnostics
func (h *Handler) GetBackend(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"kind":        h.backend.Kind,
		"status":      h.backend.Status,
		"message":     h.backend.Message,
		"diagnostics": h.diag.Recent(),
	})
}

// fail maps service errors to HTTP responses
func fail(c echo.Context, err error, message string) error {
	log := logger.FromContext(c)

	var validation *model.ValidationError
	var transition *model.TransitionError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &transition),
		errors.Is(err, service.ErrAlreadyFinalized),
		errors.Is(err, service.ErrImportDisabled):
		status = http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		log.Error(message, zap.Error(err))
		return c.JSON(status, echo.Map{"error": message})
	}
	log.Warn(message, zap.Error(err))
	return c.JSON(status, echo.Map{"error": err.Error()})
}

func badRequest(c echo.Context, err error) error {
	logger.FromContext(c).Warn("Invalid request data", zap.Error(err))
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
}
