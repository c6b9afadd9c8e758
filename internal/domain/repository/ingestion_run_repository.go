package repository

import (
	"context"

	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
)

// IngestionRunRepository historial de corridas del pipeline.
type IngestionRunRepository interface {
	Insert(ctx context.Context, run *entity.IngestionRun) error
	ListRecent(ctx context.Context, limit int) ([]*entity.IngestionRun, error)
}
