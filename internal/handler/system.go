package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"retail-service/pkg/logger"
)

// maxImportSize caps the backup body accepted by Import
const maxImportSize = 32 << 20

// Reconcile handles re-adding missing catalog records
func (h *Handler) Reconcile(c echo.Context) error {
	result, err := h.sync.Reconcile(c.Request().Context())
	if err != nil {
		return fail(c, err, "Failed to reconcile catalog")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"products": result.Products,
		"assets":   result.Assets,
		"upToDate": result.UpToDate(),
	})
}

// Export handles downloading a full backup
func (h *Handler) Export(c echo.Context) error {
	backup, err := h.sync.Export(c.Request().Context())
	if err != nil {
		return fail(c, err, "Failed to export data")
	}
	name := fmt.Sprintf("backup-%s.json", time.Now().UTC().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.JSON(http.StatusOK, backup)
}

// Import handles restoring a backup over the local store
func (h *Handler) Import(c echo.Context) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxImportSize))
	if err != nil {
		return badRequest(c, err)
	}
	if err := h.sync.Import(c.Request().Context(), raw); err != nil {
		return fail(c, err, "Failed to import data")
	}
	logger.FromContext(c).Info("Backup imported", zap.Int("bytes", len(raw)))
	return c.JSON(http.StatusOK, echo.Map{"status": "imported"})
}
