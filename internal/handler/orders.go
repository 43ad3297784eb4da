package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"retail-service/internal/middleware"
	"retail-service/internal/model"
	"retail-service/internal/service"
	"retail-service/pkg/logger"
)

// StatusRequest moves an order to a new status
type StatusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// ListWhatsAppOrders handles retrieving remote orders, newest first
func (h *Handler) ListWhatsAppOrders(c echo.Context) error {
	orders, err := h.sync.ListWhatsAppOrders(c.Request().Context())
	if err != nil {
		return fail(c, err, "Failed to retrieve orders")
	}
	return c.JSON(http.StatusOK, orders)
}

// CreateWhatsAppOrder handles taking a remote order
func (h *Handler) CreateWhatsAppOrder(c echo.Context) error {
	var req model.WhatsAppOrder
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	req.ID = ""

	order, err := h.sync.AddWhatsAppOrder(c.Request().Context(), req)
	if err != nil {
		return fail(c, err, "Failed to create order")
	}
	return c.JSON(http.StatusCreated, order)
}

// SetWhatsAppStatus handles moving an order along its lifecycle
func (h *Handler) SetWhatsAppStatus(c echo.Context) error {
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	id := c.Param("id")

	if err := h.sync.SetWhatsAppStatus(c.Request().Context(), id, req.Status); err != nil {
		return fail(c, err, "Failed to update order status")
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": req.Status})
}

// FinalizeWhatsAppOrder turns a ready order into a sale
func (h *Handler) FinalizeWhatsAppOrder(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")
	cashier, _ := middleware.CashierFromContext(c)

	sale, err := h.sync.FinalizeWhatsAppOrder(c.Request().Context(), id, cashier)
	var stockErr *service.StockUpdateError
	var statusErr *service.OrderStatusError
	switch {
	case errors.As(err, &statusErr):
		log.Error("Sale recorded but order not marked delivered",
			zap.String("order_id", id), zap.String("sale_id", statusErr.SaleID), zap.Error(err))
		resp := SaleResponse{Sale: sale, StatusError: statusErr.Error()}
		if errors.As(err, &stockErr) {
			resp.StockError = stockErr.Error()
		}
		return c.JSON(http.StatusOK, resp)
	case errors.As(err, &stockErr):
		log.Warn("Order finalized without full stock update", zap.String("order_id", id), zap.Error(err))
		return c.JSON(http.StatusOK, SaleResponse{Sale: sale, StockError: err.Error()})
	case err != nil:
		return fail(c, err, "Failed to finalize order")
	}

	log.Info("Order finalized", zap.String("order_id", id), zap.String("sale_id", sale.ID))
	return c.JSON(http.StatusOK, SaleResponse{Sale: sale})
}

// ListKitchenOrders handles the kitchen display feed
func (h *Handler) ListKitchenOrders(c echo.Context) error {
	orders, err := h.kitchen.List(c.Request().Context())
	if err != nil {
		return fail(c, err, "Failed to retrieve kitchen orders")
	}
	return c.JSON(http.StatusOK, orders)
}

// PlaceKitchenOrder handles sending a ticket to the kitchen
func (h *Handler) PlaceKitchenOrder(c echo.Context) error {
	var req model.KitchenTicket
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	if req.Origin == "" {
		req.Origin, _ = middleware.CashierFromContext(c)
	}

	order, err := h.kitchen.PlaceOrder(c.Request().Context(), req)
	if err != nil {
		return fail(c, err, "Failed to place kitchen order")
	}
	return c.JSON(http.StatusCreated, order)
}

// DeliverKitchenOrder handles marking a ticket served
func (h *Handler) DeliverKitchenOrder(c echo.Context) error {
	id := c.Param("id")
	if err := h.kitchen.MarkDelivered(c.Request().Context(), id); err != nil {
		return fail(c, err, "Failed to deliver kitchen order")
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": model.KitchenDelivered})
}
