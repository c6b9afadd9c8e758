package sqlstore

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
	"github.com/cipa-correagro/notas-credito/internal/domain/repository"
)

var _ repository.InventoryTypeRepository = (*InventoryTypeRepo)(nil)

type inventoryTypeRow struct {
	Code         string `db:"code"`
	Description  string `db:"description"`
	FirstSeenAt  string `db:"first_seen_at"`
	LastSeenAt   string `db:"last_seen_at"`
	InvoicesSeen int    `db:"invoices_seen"`
	Excluded     int    `db:"is_excluded"`
}

func (r inventoryTypeRow) toEntity() (*entity.InventoryType, error) {
	first, err := parseTimestamp(r.FirstSeenAt)
	if err != nil {
		return nil, err
	}
	last, err := parseTimestamp(r.LastSeenAt)
	if err != nil {
		return nil, err
	}
	return &entity.InventoryType{
		Code:         r.Code,
		Description:  r.Description,
		FirstSeenAt:  first,
		LastSeenAt:   last,
		InvoicesSeen: r.InvoicesSeen,
		Excluded:     r.Excluded != 0,
	}, nil
}

// InventoryTypeRepo implementa repository.InventoryTypeRepository.
type InventoryTypeRepo struct {
	q Querier
}

// NewInventoryTypeRepository construye el repositorio sobre una conexión o transacción.
func NewInventoryTypeRepository(q Querier) *InventoryTypeRepo {
	return &InventoryTypeRepo{q: q}
}

// Touch registra una detección del tipo. InvoicesSeen del argumento es el incremento.
// Una descripción vacía no pisa la almacenada.
func (r *InventoryTypeRepo) Touch(ctx context.Context, t *entity.InventoryType, seenAt time.Time) error {
	excluded := 0
	if t.Excluded {
		excluded = 1
	}
	ts := formatTimestamp(seenAt)
	_, err := r.q.ExecContext(ctx, r.q.Rebind(`INSERT INTO inventory_types
			(code, description, first_seen_at, last_seen_at, invoices_seen, is_excluded)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (code) DO UPDATE SET
			description = CASE WHEN excluded.description <> '' THEN excluded.description ELSE inventory_types.description END,
			last_seen_at = excluded.last_seen_at,
			invoices_seen = inventory_types.invoices_seen + excluded.invoices_seen,
			is_excluded = excluded.is_excluded`),
		t.Code, t.Description, ts, ts, t.InvoicesSeen, excluded)
	if err != nil {
		return storeErr("registrar tipo de inventario", err)
	}
	return nil
}

// List todos los tipos registrados por código.
func (r *InventoryTypeRepo) List(ctx context.Context) ([]*entity.InventoryType, error) {
	return r.selectTypes(ctx, "listar tipos de inventario",
		`SELECT code, description, first_seen_at, last_seen_at, invoices_seen, is_excluded
		FROM inventory_types ORDER BY code ASC`)
}

// ListNew tipos no excluidos vistos por primera vez desde since.
func (r *InventoryTypeRepo) ListNew(ctx context.Context, since time.Time) ([]*entity.InventoryType, error) {
	return r.selectTypes(ctx, "listar tipos de inventario nuevos",
		`SELECT code, description, first_seen_at, last_seen_at, invoices_seen, is_excluded
		FROM inventory_types
		WHERE first_seen_at >= ? AND is_excluded = 0
		ORDER BY first_seen_at DESC, code ASC`, formatTimestamp(since))
}

func (r *InventoryTypeRepo) selectTypes(ctx context.Context, op, query string, args ...any) ([]*entity.InventoryType, error) {
	var rows []inventoryTypeRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(query), args...); err != nil {
		return nil, storeErr(op, err)
	}
	out := make([]*entity.InventoryType, 0, len(rows))
	for _, row := range rows {
		t, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
