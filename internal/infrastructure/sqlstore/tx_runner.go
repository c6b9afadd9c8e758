package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cipa-correagro/notas-credito/internal/application/creditnote"
	"github.com/cipa-correagro/notas-credito/internal/application/pipeline"
	"github.com/cipa-correagro/notas-credito/internal/domain/repository"
)

// Ensure TxRunner implements creditnote.TxRunner and pipeline.TxRunner.
var _ creditnote.TxRunner = (*TxRunner)(nil)
var _ pipeline.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción del almacén.
// Con SQLite hay una sola conexión: fn no debe usar repositorios fuera de la tx.
type TxRunner struct {
	db *DB
}

// NewTxRunner construye el runner con la conexión.
func NewTxRunner(db *DB) *TxRunner {
	return &TxRunner{db: db}
}

func (r *TxRunner) run(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunApplication transacción de una aplicación nota -> línea (historial, nota y línea).
func (r *TxRunner) RunApplication(ctx context.Context, fn func(
	notes repository.CreditNoteRepository,
	lines repository.InvoiceLineRepository,
	apps repository.ApplicationRepository,
) error) error {
	return r.run(ctx, func(tx *sqlx.Tx) error {
		return fn(NewCreditNoteRepository(tx), NewInvoiceLineRepository(tx), NewApplicationRepository(tx))
	})
}

// RunIngestion transacción de escritura de una línea aceptada o rechazada.
func (r *TxRunner) RunIngestion(ctx context.Context, fn func(
	lines repository.InvoiceLineRepository,
	rejected repository.RejectedLineRepository,
	types repository.InventoryTypeRepository,
) error) error {
	return r.run(ctx, func(tx *sqlx.Tx) error {
		return fn(NewInvoiceLineRepository(tx), NewRejectedLineRepository(tx), NewInventoryTypeRepository(tx))
	})
}
