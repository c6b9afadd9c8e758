package dto

import "github.com/shopspring/decimal"

// InvoiceLineQuery filtros de GET /api/invoices.
type InvoiceLineQuery struct {
	PageRequest
	ProcessingDate string `query:"processing_date"`
	CustomerTaxID  string `query:"customer"`
	WithNote       string `query:"with_note"` // "true" / "false" / vacío
}

// InvoiceLineDTO línea de factura aceptada con su descuento.
type InvoiceLineDTO struct {
	ID                      int64           `json:"id"`
	InvoiceNumber           string          `json:"invoice_number"`
	LineIndex               int             `json:"line_index"`
	ProcessingDate          string          `json:"processing_date"`
	InvoiceDate             string          `json:"invoice_date"`
	CustomerTaxID           string          `json:"customer_tax_id"`
	CustomerName            string          `json:"customer_name"`
	ProductCode             string          `json:"product_code"`
	ProductName             string          `json:"product_name"`
	InventoryType           string          `json:"inventory_type"`
	OriginalQuantity        decimal.Decimal `json:"original_quantity"`
	UnitPrice               decimal.Decimal `json:"unit_price"`
	LineTotal               decimal.Decimal `json:"line_total"`
	AppliedCreditNoteNumber *string         `json:"applied_credit_note_number,omitempty"`
	AppliedDiscountQuantity decimal.Decimal `json:"applied_discount_quantity"`
	AppliedDiscountValue    decimal.Decimal `json:"applied_discount_value"`
	RemainingQuantity       decimal.Decimal `json:"remaining_quantity"`
	RemainingValue          decimal.Decimal `json:"remaining_value"`
	Status                  string          `json:"status"`
	PaymentDueDate          *string         `json:"payment_due_date,omitempty"`
}

// InvoiceLineListResponse listado paginado de líneas.
type InvoiceLineListResponse struct {
	Items []InvoiceLineDTO `json:"items"`
	Page  PageResponse     `json:"page"`
}

// DailyInvoiceSummaryDTO agregado por fecha de proceso.
type DailyInvoiceSummaryDTO struct {
	ProcessingDate  string          `json:"processing_date"`
	Invoices        int             `json:"invoices"`
	Lines           int             `json:"lines"`
	Total           decimal.Decimal `json:"total"`
	DiscountApplied decimal.Decimal `json:"discount_applied"`
	LinesWithNote   int             `json:"lines_with_note"`
}
