package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditNoteApplication historial inmutable de consumo de una nota sobre una línea de factura.
type CreditNoteApplication struct {
	ID               int64
	CreditNoteID     int64
	CreditNoteNumber string
	InvoiceLineID    int64
	InvoiceNumber    string
	LineIndex        int
	InvoiceDate      time.Time
	ProcessingDate   time.Time
	CustomerTaxID    string
	ProductCode      string
	AppliedQuantity  decimal.Decimal
	AppliedValue     decimal.Decimal
	AppliedAt        time.Time
}
