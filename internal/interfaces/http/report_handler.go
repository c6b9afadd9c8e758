package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cipa-correagro/notas-credito/internal/application/dashboard"
)

// ReportHandler rechazos, tipos de inventario nuevos y corridas del pipeline.
type ReportHandler struct {
	uc *dashboard.UseCase
}

// NewReportHandler construye el handler.
func NewReportHandler(uc *dashboard.UseCase) *ReportHandler {
	return &ReportHandler{uc: uc}
}

// RejectionSummary GET /api/rejections/summary?days=30
func (h *ReportHandler) RejectionSummary(c *fiber.Ctx) error {
	out, err := h.uc.RejectionSummary(c.UserContext(), c.QueryInt("days", dashboard.DefaultRejectionDays))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// NewInventoryTypes GET /api/inventory-types/new?days=7
func (h *ReportHandler) NewInventoryTypes(c *fiber.Ctx) error {
	out, err := h.uc.NewInventoryTypes(c.UserContext(), c.QueryInt("days", dashboard.DefaultNewTypeDays))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Runs GET /api/runs?limit=20
func (h *ReportHandler) Runs(c *fiber.Ctx) error {
	out, err := h.uc.RecentRuns(c.UserContext(), c.QueryInt("limit", dashboard.DefaultRuns))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
