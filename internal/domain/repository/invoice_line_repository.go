package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
)

// InvoiceLineKey direcciona una línea por su clave natural.
// Con LineIndex nil se toma la línea de menor line_index para (factura, producto, fecha de proceso).
type InvoiceLineKey struct {
	InvoiceNumber  string
	ProductCode    string
	LineIndex      *int
	ProcessingDate time.Time
}

// InvoiceLineFilter filtros del listado de líneas para el dashboard.
type InvoiceLineFilter struct {
	ProcessingDate *time.Time
	CustomerTaxID  string
	WithCreditNote *bool
	Limit          int
	Offset         int
}

// DailyInvoiceSummary agregado por fecha de proceso.
type DailyInvoiceSummary struct {
	ProcessingDate  time.Time
	Invoices        int
	Lines           int
	Total           decimal.Decimal
	DiscountApplied decimal.Decimal
	LinesWithNote   int
}

// InvoiceLineRepository define el puerto de persistencia para líneas de factura aceptadas.
type InvoiceLineRepository interface {
	// Upsert inserta o, ante conflicto de clave natural, actualiza cantidad, total y precio.
	// La entidad queda refrescada con el ID y los saldos almacenados.
	// Un total o cantidad por debajo de lo ya descontado no se escribe: devuelve domain.ErrConflict.
	Upsert(ctx context.Context, line *entity.InvoiceLine) error
	GetByKey(ctx context.Context, key InvoiceLineKey) (*entity.InvoiceLine, error)
	// UpdateDiscount persiste nota aplicada, descuentos y saldos de la línea.
	UpdateDiscount(ctx context.Context, line *entity.InvoiceLine) error
	List(ctx context.Context, f InvoiceLineFilter) ([]*entity.InvoiceLine, int, error)
	DailySummary(ctx context.Context, from, to time.Time) ([]DailyInvoiceSummary, error)
}
