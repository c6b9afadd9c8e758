package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
)

// ReasonCount rechazos agrupados por motivo.
type ReasonCount struct {
	Reason entity.RejectReason
	Count  int
	Value  decimal.Decimal
}

// ExcludedTypeCount rechazos EXCLUDED_INVENTORY_TYPE por tipo de inventario.
type ExcludedTypeCount struct {
	InventoryType string
	Count         int
	Value         decimal.Decimal
}

// RejectionSummary resumen de rechazos desde una fecha de proceso.
type RejectionSummary struct {
	Total            int
	ByReason         []ReasonCount
	TopExcludedTypes []ExcludedTypeCount
}

// RejectedLineRepository puerto de persistencia de rechazos (solo inserción).
type RejectedLineRepository interface {
	Insert(ctx context.Context, line *entity.RejectedLine) error
	ListByProcessingDate(ctx context.Context, date time.Time) ([]*entity.RejectedLine, error)
	// Summary agrega desde since (inclusive); top limita la lista de tipos excluidos.
	Summary(ctx context.Context, since time.Time, top int) (RejectionSummary, error)
}
