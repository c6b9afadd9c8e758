package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CreditNoteState ciclo de vida de una nota crédito.
type CreditNoteState string

const (
	CreditNotePending CreditNoteState = "PENDING"
	CreditNotePartial CreditNoteState = "PARTIAL"
	CreditNoteApplied CreditNoteState = "APPLIED"
)

// ParseCreditNoteState valida un estado leído del almacén o de un query param.
func ParseCreditNoteState(s string) (CreditNoteState, error) {
	switch st := CreditNoteState(s); st {
	case CreditNotePending, CreditNotePartial, CreditNoteApplied:
		return st, nil
	default:
		return "", fmt.Errorf("estado de nota crédito desconocido: %q", s)
	}
}

// CreditNote una línea de producto de una nota crédito del ERP.
// Clave natural: (Number, ProductCode). Valores y cantidades siempre no negativos.
type CreditNote struct {
	ID              int64
	Number          string // Prefijo inicia con "N"
	NoteDate        time.Time
	CustomerTaxID   string
	CustomerName    string
	ProductCode     string
	ProductName     string
	InventoryType   string
	TotalValue      decimal.Decimal
	TotalQuantity   decimal.Decimal
	PendingValue    decimal.Decimal
	PendingQuantity decimal.Decimal
	ReturnCause     *string
	State           CreditNoteState
	CreatedAt       time.Time
	FullyAppliedAt  *time.Time
}

// Admission reglas de admisión. Devuelve una descripción del motivo o "" si se admite.
func (n *CreditNote) Admission() string {
	if n.ProductCode == "" {
		return "código de producto vacío"
	}
	if !n.TotalQuantity.IsZero() && n.TotalValue.IsZero() {
		return "cantidad sin valor"
	}
	return ""
}

// Consume descuenta value y quantity del saldo (piso en 0) y recalcula el estado.
// epsilon es la tolerancia para considerar la nota totalmente aplicada.
func (n *CreditNote) Consume(value, quantity decimal.Decimal, now time.Time, epsilon decimal.Decimal) {
	n.PendingValue = floorZero(n.PendingValue.Sub(value))
	n.PendingQuantity = floorZero(n.PendingQuantity.Sub(quantity))
	if n.PendingValue.LessThanOrEqual(epsilon) {
		n.State = CreditNoteApplied
		t := now
		n.FullyAppliedAt = &t
		return
	}
	n.State = CreditNotePartial
}

// Applied devuelve lo consumido hasta ahora.
func (n *CreditNote) Applied() decimal.Decimal {
	return n.TotalValue.Sub(n.PendingValue)
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
