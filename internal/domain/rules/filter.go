package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cipa-correagro/notas-credito/internal/domain/document"
	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
)

// DefaultMinInvoiceTotal total mínimo de factura en moneda local.
var DefaultMinInvoiceTotal = decimal.NewFromInt(498000)

// Rejection línea rechazada con su motivo.
type Rejection struct {
	Line         document.Line
	Reason       entity.RejectReason
	InvoiceTotal decimal.Decimal
	Detail       string
}

// Result partición de un lote normalizado.
type Result struct {
	Accepted    []document.Line
	CreditNotes []document.Line
	Rejected    []Rejection
}

// Filter reglas de negocio a granularidad de factura.
type Filter struct {
	minTotal decimal.Decimal
}

// NewFilter construye el filtro con el total mínimo leído al iniciar.
func NewFilter(minInvoiceTotal decimal.Decimal) *Filter {
	return &Filter{minTotal: minInvoiceTotal}
}

// MinInvoiceTotal total mínimo configurado.
func (f *Filter) MinInvoiceTotal() decimal.Decimal { return f.minTotal }

// Apply separa notas crédito, agrupa facturas por número y aplica mínimo y exclusiones.
// El orden del ERP se conserva dentro de cada partición.
func (f *Filter) Apply(lines []document.Line) Result {
	var res Result
	var order []string
	groups := make(map[string][]document.Line)
	for _, l := range lines {
		if l.CreditNote {
			res.CreditNotes = append(res.CreditNotes, l)
			continue
		}
		if _, seen := groups[l.DocumentID]; !seen {
			order = append(order, l.DocumentID)
		}
		groups[l.DocumentID] = append(groups[l.DocumentID], l)
	}

	for _, id := range order {
		group := groups[id]
		total := decimal.Zero
		for _, l := range group {
			total = total.Add(l.Total)
		}
		if total.LessThan(f.minTotal) {
			for _, l := range group {
				res.Rejected = append(res.Rejected, Rejection{
					Line:         l,
					Reason:       entity.RejectBelowMinimumTotal,
					InvoiceTotal: total,
					Detail:       fmt.Sprintf("total factura %s menor al mínimo %s", total.StringFixed(2), f.minTotal.StringFixed(2)),
				})
			}
			continue
		}
		for _, l := range group {
			if IsExcluded(l.InventoryType) {
				res.Rejected = append(res.Rejected, Rejection{
					Line:         l,
					Reason:       entity.RejectExcludedInventoryType,
					InvoiceTotal: total,
					Detail:       fmt.Sprintf("tipo de inventario excluido: %s", l.InventoryType),
				})
				continue
			}
			res.Accepted = append(res.Accepted, l)
		}
	}
	return res
}
