package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cipa-correagro/notas-credito/internal/application/dashboard"
	"github.com/cipa-correagro/notas-credito/internal/application/dto"
)

// InvoiceHandler consultas de líneas de factura aceptadas.
type InvoiceHandler struct {
	uc *dashboard.UseCase
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(uc *dashboard.UseCase) *InvoiceHandler {
	return &InvoiceHandler{uc: uc}
}

// List godoc
// @Summary      Listar líneas de factura
// @Tags         invoices
// @Security     Bearer
// @Produce      json
// @Param        processing_date  query  string  false  "YYYY-MM-DD"
// @Param        customer         query  string  false  "NIT del cliente"
// @Param        with_note        query  bool    false  "Solo líneas con (o sin) nota aplicada"
// @Success      200  {object}  dto.InvoiceLineListResponse
// @Router       /api/invoices [get]
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	q := dto.InvoiceLineQuery{
		PageRequest:    dto.PageRequest{Limit: c.QueryInt("limit", dto.DefaultLimit), Offset: c.QueryInt("offset", 0)},
		ProcessingDate: c.Query("processing_date"),
		CustomerTaxID:  c.Query("customer"),
		WithNote:       c.Query("with_note"),
	}
	out, err := h.uc.ListInvoiceLines(c.UserContext(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Daily GET /api/invoices/daily?from=&to=
func (h *InvoiceHandler) Daily(c *fiber.Ctx) error {
	out, err := h.uc.DailyInvoices(c.UserContext(), c.Query("from"), c.Query("to"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
