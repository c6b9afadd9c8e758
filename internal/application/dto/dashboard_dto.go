package dto

import "github.com/shopspring/decimal"

// RejectionSummaryDTO respuesta de GET /api/rejections/summary.
type RejectionSummaryDTO struct {
	Since            string            `json:"since"`
	Total            int               `json:"total"`
	ByReason         []ReasonCountDTO  `json:"by_reason"`
	TopExcludedTypes []ExcludedTypeDTO `json:"top_excluded_types"`
}

// ReasonCountDTO rechazos por motivo.
type ReasonCountDTO struct {
	Reason string          `json:"reason"`
	Count  int             `json:"count"`
	Value  decimal.Decimal `json:"value"`
}

// ExcludedTypeDTO rechazos por tipo de inventario excluido.
type ExcludedTypeDTO struct {
	InventoryType string          `json:"inventory_type"`
	Count         int             `json:"count"`
	Value         decimal.Decimal `json:"value"`
}

// InventoryTypeDTO tipo de inventario visto en la ingesta.
type InventoryTypeDTO struct {
	Code         string `json:"code"`
	Description  string `json:"description"`
	FirstSeenAt  string `json:"first_seen_at"`
	LastSeenAt   string `json:"last_seen_at"`
	InvoicesSeen int    `json:"invoices_seen"`
	Excluded     bool   `json:"excluded"`
}

// IngestionRunDTO corrida del pipeline.
type IngestionRunDTO struct {
	RunID               string `json:"run_id"`
	ProcessingDate      string `json:"processing_date"`
	Status              string `json:"status"`
	Fetched             int    `json:"fetched"`
	Normalized          int    `json:"normalized"`
	NormalizationFailed int    `json:"normalization_failed"`
	Accepted            int    `json:"accepted"`
	Rejected            int    `json:"rejected"`
	NotesCreated        int    `json:"notes_created"`
	NotesDuplicate      int    `json:"notes_duplicate"`
	NotesFiltered       int    `json:"notes_filtered"`
	Applications        int    `json:"applications"`
	StoreFailures       int    `json:"store_failures"`
	Error               string `json:"error,omitempty"`
	StartedAt           string `json:"started_at"`
	FinishedAt          string `json:"finished_at"`
}
