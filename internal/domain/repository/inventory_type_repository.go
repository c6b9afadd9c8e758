package repository

import (
	"context"
	"time"

	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
)

// InventoryTypeRepository registro de tipos de inventario detectados.
type InventoryTypeRepository interface {
	// Touch crea el tipo o actualiza última detección, descripción y contador.
	Touch(ctx context.Context, t *entity.InventoryType, seenAt time.Time) error
	List(ctx context.Context) ([]*entity.InventoryType, error)
	// ListNew tipos no excluidos detectados por primera vez desde since.
	ListNew(ctx context.Context, since time.Time) ([]*entity.InventoryType, error)
}
