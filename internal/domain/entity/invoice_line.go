package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una línea de factura.
const (
	InvoiceLineProcessed = "PROCESSED" // Ingresada por el pipeline diario
)

// InvoiceLine representa una fila física de una factura de venta para una fecha de proceso.
// Clave natural: (InvoiceNumber, ProductCode, LineIndex, ProcessingDate).
type InvoiceLine struct {
	ID             int64
	InvoiceNumber  string // Prefijo + número, sin separador (ej. FME123)
	LineIndex      int    // Ordinal 0-based dentro de la factura en la respuesta del ERP
	ProcessingDate time.Time
	InvoiceDate    time.Time
	CustomerTaxID  string
	CustomerName   string
	ProductCode    string
	ProductName    string
	InventoryType  string

	OriginalQuantity decimal.Decimal
	UnitPrice        decimal.Decimal
	LineTotal        decimal.Decimal

	AppliedCreditNoteNumber *string
	AppliedDiscountQuantity decimal.Decimal
	AppliedDiscountValue    decimal.Decimal
	RemainingQuantity       decimal.Decimal
	RemainingValue          decimal.Decimal

	Status         string
	PaymentDueDate *time.Time
	CreatedAt      time.Time
}

// Recompute recalcula los saldos a partir de lo original y lo descontado.
func (l *InvoiceLine) Recompute() {
	l.RemainingQuantity = l.OriginalQuantity.Sub(l.AppliedDiscountQuantity)
	l.RemainingValue = l.LineTotal.Sub(l.AppliedDiscountValue)
}

// ApplyDiscount registra el consumo de una nota crédito sobre la línea.
// El número de nota aplicado es el del último consumo.
func (l *InvoiceLine) ApplyDiscount(creditNoteNumber string, quantity, value decimal.Decimal) {
	n := creditNoteNumber
	l.AppliedCreditNoteNumber = &n
	l.AppliedDiscountQuantity = l.AppliedDiscountQuantity.Add(quantity)
	l.AppliedDiscountValue = l.AppliedDiscountValue.Add(value)
	l.Recompute()
}

// CanAbsorb indica si la línea tiene saldo para consumir por completo value y quantity.
func (l *InvoiceLine) CanAbsorb(value, quantity decimal.Decimal) bool {
	return value.Abs().LessThanOrEqual(l.RemainingValue.Abs()) &&
		quantity.Abs().LessThanOrEqual(l.RemainingQuantity.Abs())
}
