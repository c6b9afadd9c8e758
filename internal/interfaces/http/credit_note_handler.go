package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cipa-correagro/notas-credito/internal/application/dashboard"
	"github.com/cipa-correagro/notas-credito/internal/application/dto"
)

// CreditNoteHandler consultas de notas crédito y aplicaciones.
type CreditNoteHandler struct {
	uc *dashboard.UseCase
}

// NewCreditNoteHandler construye el handler.
func NewCreditNoteHandler(uc *dashboard.UseCase) *CreditNoteHandler {
	return &CreditNoteHandler{uc: uc}
}

// List godoc
// @Summary      Listar notas crédito
// @Tags         credit-notes
// @Security     Bearer
// @Produce      json
// @Param        state     query  string  false  "PENDING, PARTIAL o APPLIED"
// @Param        customer  query  string  false  "NIT del cliente"
// @Param        from      query  string  false  "YYYY-MM-DD"
// @Param        to        query  string  false  "YYYY-MM-DD"
// @Param        limit     query  int     false  "Límite"  default(50)
// @Param        offset    query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.CreditNoteListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/credit-notes [get]
func (h *CreditNoteHandler) List(c *fiber.Ctx) error {
	q := dto.CreditNoteQuery{
		PageRequest:   dto.PageRequest{Limit: c.QueryInt("limit", dto.DefaultLimit), Offset: c.QueryInt("offset", 0)},
		State:         c.Query("state"),
		CustomerTaxID: c.Query("customer"),
		From:          c.Query("from"),
		To:            c.Query("to"),
	}
	out, err := h.uc.ListCreditNotes(c.UserContext(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ByState GET /api/credit-notes/by-state
func (h *CreditNoteHandler) ByState(c *fiber.Ctx) error {
	out, err := h.uc.CreditNotesByState(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Stats GET /api/credit-notes/stats
func (h *CreditNoteHandler) Stats(c *fiber.Ctx) error {
	out, err := h.uc.CreditNoteStats(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Nota crédito con su historial de aplicaciones
// @Tags         credit-notes
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID de la nota"
// @Success      200  {object}  dto.CreditNoteDetailDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/credit-notes/{id} [get]
func (h *CreditNoteHandler) GetByID(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_ID", Message: "id debe ser un entero positivo"})
	}
	out, err := h.uc.GetCreditNote(c.UserContext(), int64(id))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ApplicationsByNumber GET /api/applications/:number
func (h *CreditNoteHandler) ApplicationsByNumber(c *fiber.Ctx) error {
	out, err := h.uc.ApplicationsByNumber(c.UserContext(), c.Params("number"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
