package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"retail-service/internal/model"
	"retail-service/pkg/logger"
)

// ProductResponse is a product with its low-stock flag
type ProductResponse struct {
	model.Product
	LowStock bool `json:"lowStock"`
}

func productResponses(products []model.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = ProductResponse{Product: p, LowStock: p.LowStock()}
	}
	return out
}

// ListProducts handles retrieving all products
func (h *Handler) ListProducts(c echo.Context) error {
	products, err := h.sync.ListProducts(c.Request().Context())
	if err != nil {
		return fail(c, err, "Failed to retrieve products")
	}
	return c.JSON(http.StatusOK, productResponses(products))
}

// LowStock handles the low-stock report
func (h *Handler) LowStock(c echo.Context) error {
	products, err := h.sync.LowStock(c.Request().Context())
	if err != nil {
		return fail(c, err, "Failed to retrieve low stock products")
	}
	return c.JSON(http.StatusOK, productResponses(products))
}

// CreateProduct handles creating a new product
func (h *Handler) CreateProduct(c echo.Context) error {
	var req model.Product
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	req.ID = ""

	product, err := h.sync.AddProduct(c.Request().Context(), req)
	if err != nil {
		return fail(c, err, "Failed to create product")
	}
	logger.FromContext(c).Info("Product created", zap.String("product_id", product.ID), zap.String("name", product.Name))
	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles replacing a product
func (h *Handler) UpdateProduct(c echo.Context) error {
	var req model.Product
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	req.ID = c.Param("id")

	if err := h.sync.UpdateProduct(c.Request().Context(), req); err != nil {
		return fail(c, err, "Failed to update product")
	}
	return c.JSON(http.StatusOK, req)
}

// ListAssets handles retrieving the asset register
func (h *Handler) ListAssets(c echo.Context) error {
	assets, err := h.sync.ListAssets(c.Request().Context())
	if err != nil {
		return fail(c, err, "Failed to retrieve assets")
	}
	return c.JSON(http.StatusOK, assets)
}
