package creditnote

import (
	"context"

	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
	"github.com/cipa-correagro/notas-credito/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn retorna error se hace Rollback; si no, Commit.
type TxRunner interface {
	RunApplication(ctx context.Context, fn func(
		notes repository.CreditNoteRepository,
		lines repository.InvoiceLineRepository,
		apps repository.ApplicationRepository,
	) error) error
}

// PendingFinder lectura de candidatas fuera de la transacción.
type PendingFinder interface {
	FindPending(ctx context.Context, customerTaxID, productCode string) ([]*entity.CreditNote, error)
}
