package dto

import "github.com/shopspring/decimal"

// CreditNoteQuery filtros de GET /api/credit-notes. Fechas en YYYY-MM-DD.
type CreditNoteQuery struct {
	PageRequest
	State         string `query:"state"`
	CustomerTaxID string `query:"customer"`
	From          string `query:"from"`
	To            string `query:"to"`
}

// CreditNoteDTO nota crédito con saldos.
type CreditNoteDTO struct {
	ID              int64           `json:"id"`
	Number          string          `json:"number"`
	NoteDate        string          `json:"note_date"`
	CustomerTaxID   string          `json:"customer_tax_id"`
	CustomerName    string          `json:"customer_name"`
	ProductCode     string          `json:"product_code"`
	ProductName     string          `json:"product_name"`
	InventoryType   string          `json:"inventory_type"`
	TotalValue      decimal.Decimal `json:"total_value"`
	TotalQuantity   decimal.Decimal `json:"total_quantity"`
	PendingValue    decimal.Decimal `json:"pending_value"`
	PendingQuantity decimal.Decimal `json:"pending_quantity"`
	ReturnCause     *string         `json:"return_cause,omitempty"`
	State           string          `json:"state"`
	CreatedAt       string          `json:"created_at"`
	FullyAppliedAt  *string         `json:"fully_applied_at,omitempty"`
}

// CreditNoteListResponse listado paginado de notas.
type CreditNoteListResponse struct {
	Items []CreditNoteDTO `json:"items"`
	Page  PageResponse    `json:"page"`
}

// ApplicationDTO consumo de una nota sobre una línea de factura.
type ApplicationDTO struct {
	ID               int64           `json:"id"`
	CreditNoteID     int64           `json:"credit_note_id"`
	CreditNoteNumber string          `json:"credit_note_number"`
	InvoiceNumber    string          `json:"invoice_number"`
	LineIndex        int             `json:"line_index"`
	InvoiceDate      string          `json:"invoice_date"`
	ProcessingDate   string          `json:"processing_date"`
	CustomerTaxID    string          `json:"customer_tax_id"`
	ProductCode      string          `json:"product_code"`
	AppliedQuantity  decimal.Decimal `json:"applied_quantity"`
	AppliedValue     decimal.Decimal `json:"applied_value"`
	AppliedAt        string          `json:"applied_at"`
}

// CreditNoteDetailDTO nota con su historial de aplicaciones.
type CreditNoteDetailDTO struct {
	CreditNoteDTO
	Applications []ApplicationDTO `json:"applications"`
}

// StateCountDTO notas por estado.
type StateCountDTO struct {
	State        string          `json:"state"`
	Count        int             `json:"count"`
	TotalValue   decimal.Decimal `json:"total_value"`
	PendingValue decimal.Decimal `json:"pending_value"`
}

// CreditNoteStatsDTO respuesta de GET /api/credit-notes/stats.
type CreditNoteStatsDTO struct {
	Notes             int             `json:"notes"`
	PendingNotes      int             `json:"pending_notes"`
	PartialNotes      int             `json:"partial_notes"`
	AppliedNotes      int             `json:"applied_notes"`
	TotalValue        decimal.Decimal `json:"total_value"`
	PendingValue      decimal.Decimal `json:"pending_value"`
	Applications      int             `json:"applications"`
	AppliedValue      decimal.Decimal `json:"applied_value"`
	AppliedQuantity   decimal.Decimal `json:"applied_quantity"`
	LastApplicationAt *string         `json:"last_application_at,omitempty"`
}
