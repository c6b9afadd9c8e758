package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
)

// InsertOutcome resultado de InsertOrSkip.
type InsertOutcome string

const (
	InsertCreated   InsertOutcome = "created"
	InsertDuplicate InsertOutcome = "duplicate"
	InsertFiltered  InsertOutcome = "filtered"
)

// CreditNoteFilter filtros del listado de notas.
type CreditNoteFilter struct {
	State         *entity.CreditNoteState
	CustomerTaxID string
	From          *time.Time // sobre note_date
	To            *time.Time
	Limit         int
	Offset        int
}

// StateCount notas agrupadas por estado.
type StateCount struct {
	State        entity.CreditNoteState
	Count        int
	TotalValue   decimal.Decimal
	PendingValue decimal.Decimal
}

// CreditNoteStats resumen global de notas y aplicaciones.
type CreditNoteStats struct {
	Notes             int
	PendingNotes      int
	PartialNotes      int
	AppliedNotes      int
	TotalValue        decimal.Decimal
	PendingValue      decimal.Decimal
	Applications      int
	AppliedValue      decimal.Decimal
	AppliedQuantity   decimal.Decimal
	LastApplicationAt *time.Time
}

// CreditNoteRepository define el puerto de persistencia para notas crédito.
type CreditNoteRepository interface {
	// InsertOrSkip aplica las reglas de admisión e inserta; un duplicado de
	// (número, producto) se reporta como InsertDuplicate sin error.
	InsertOrSkip(ctx context.Context, note *entity.CreditNote) (InsertOutcome, error)
	// FindPending devuelve notas PENDING con saldo > 0 para el par cliente/producto,
	// ordenadas por note_date y luego por ID.
	FindPending(ctx context.Context, customerTaxID, productCode string) ([]*entity.CreditNote, error)
	GetByID(ctx context.Context, id int64) (*entity.CreditNote, error)
	// UpdateBalance persiste saldos y estado solo si pending_value sigue siendo expectedPending.
	// Devuelve domain.ErrStaleCreditNote si otra escritura ganó.
	UpdateBalance(ctx context.Context, note *entity.CreditNote, expectedPending decimal.Decimal) error
	List(ctx context.Context, f CreditNoteFilter) ([]*entity.CreditNote, int, error)
	CountByState(ctx context.Context) ([]StateCount, error)
	Stats(ctx context.Context) (CreditNoteStats, error)
}
