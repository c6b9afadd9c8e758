package repository

import (
	"context"

	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
)

// ApplicationRepository historial append-only de aplicaciones.
type ApplicationRepository interface {
	Insert(ctx context.Context, app *entity.CreditNoteApplication) error
	ListByCreditNoteID(ctx context.Context, creditNoteID int64) ([]*entity.CreditNoteApplication, error)
	ListByCreditNoteNumber(ctx context.Context, number string) ([]*entity.CreditNoteApplication, error)
}
