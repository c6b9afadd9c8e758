package pipeline

import (
	"context"
	"time"

	"github.com/cipa-correagro/notas-credito/internal/application/creditnote"
	"github.com/cipa-correagro/notas-credito/internal/domain/document"
	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
	"github.com/cipa-correagro/notas-credito/internal/domain/repository"
)

// Fetcher origen de documentos del ERP para un rango de fechas inclusive.
type Fetcher interface {
	Fetch(ctx context.Context, from, to time.Time) ([]document.Row, error)
}

// TxRunner transacción por escritura de ingesta.
type TxRunner interface {
	RunIngestion(ctx context.Context, fn func(
		lines repository.InvoiceLineRepository,
		rejected repository.RejectedLineRepository,
		types repository.InventoryTypeRepository,
	) error) error
}

// Applier aplica notas pendientes sobre líneas persistidas.
type Applier interface {
	ApplyAll(ctx context.Context, lines []*entity.InvoiceLine) creditnote.Summary
}
