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

// RecordSaleRequest carries the sale and, optionally, the catalog the
// register was showing when it was rung up
type RecordSaleRequest struct {
	Sale     model.Sale      `json:"sale"`
	Products []model.Product `json:"products,omitempty"`
}

// SaleResponse is the stored sale. StockError is set when the sale was kept
// but some stock changes could not be applied, StatusError when a finalized
// order could not be marked delivered.
type SaleResponse struct {
	Sale        model.Sale `json:"sale"`
	StockError  string     `json:"stockError,omitempty"`
	StatusError string     `json:"statusError,omitempty"`
}

// ListSales handles retrieving sales, newest first
func (h *Handler) ListSales(c echo.Context) error {
	sales, err := h.sync.ListSales(c.Request().Context())
	if err != nil {
		return fail(c, err, "Failed to retrieve sales")
	}
	return c.JSON(http.StatusOK, sales)
}

// RecordSale handles a checkout
func (h *Handler) RecordSale(c echo.Context) error {
	log := logger.FromContext(c)

	var req RecordSaleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	if req.Sale.CashierName == "" {
		if name, ok := middleware.CashierFromContext(c); ok {
			req.Sale.CashierName = name
		}
	}

	sale, err := h.sync.RecordSale(c.Request().Context(), req.Sale, req.Products)
	var stockErr *service.StockUpdateError
	switch {
	case errors.As(err, &stockErr):
		log.Warn("Sale recorded without full stock update", zap.String("sale_id", sale.ID), zap.Error(err))
		return c.JSON(http.StatusCreated, SaleResponse{Sale: sale, StockError: err.Error()})
	case err != nil:
		return fail(c, err, "Failed to record sale")
	}

	role, _ := middleware.RoleFromContext(c)
	log.Info("Sale recorded",
		zap.String("sale_id", sale.ID),
		zap.String("cashier", sale.CashierName),
		zap.String("role", role),
		zap.String("total", sale.Total.StringFixed(2)),
		zap.Int("items", len(sale.Items)),
	)
	return c.JSON(http.StatusCreated, SaleResponse{Sale: sale})
}
