package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RejectReason motivo estable de rechazo persistido.
type RejectReason string

const (
	RejectBelowMinimumTotal     RejectReason = "BELOW_MINIMUM_TOTAL"
	RejectExcludedInventoryType RejectReason = "EXCLUDED_INVENTORY_TYPE"
)

// RejectedLine línea de factura que no superó las reglas de negocio. Solo inserción.
type RejectedLine struct {
	ID             int64
	InvoiceNumber  string
	LineIndex      int
	ProcessingDate time.Time
	InvoiceDate    time.Time
	CustomerTaxID  string
	CustomerName   string
	ProductCode    string
	ProductName    string
	InventoryType  string
	LineTotal      decimal.Decimal
	InvoiceTotal   decimal.Decimal // Total calculado de la factura (BELOW_MINIMUM_TOTAL)
	Reason         RejectReason
	Detail         string
	RejectedAt     time.Time
}
