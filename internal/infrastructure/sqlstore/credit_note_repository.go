package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/cipa-correagro/notas-credito/internal/domain"
	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
	"github.com/cipa-correagro/notas-credito/internal/domain/repository"
)

var _ repository.CreditNoteRepository = (*CreditNoteRepo)(nil)

const creditNoteColumns = `id, credit_note_number, note_date, customer_tax_id, customer_name,
	product_code, product_name, inventory_type, total_value, total_quantity,
	pending_value, pending_quantity, return_cause, state, created_at, fully_applied_at`

type creditNoteRow struct {
	ID              int64           `db:"id"`
	Number          string          `db:"credit_note_number"`
	NoteDate        string          `db:"note_date"`
	CustomerTaxID   string          `db:"customer_tax_id"`
	CustomerName    string          `db:"customer_name"`
	ProductCode     string          `db:"product_code"`
	ProductName     string          `db:"product_name"`
	InventoryType   string          `db:"inventory_type"`
	TotalValue      decimal.Decimal `db:"total_value"`
	TotalQuantity   decimal.Decimal `db:"total_quantity"`
	PendingValue    decimal.Decimal `db:"pending_value"`
	PendingQuantity decimal.Decimal `db:"pending_quantity"`
	ReturnCause     sql.NullString  `db:"return_cause"`
	State           string          `db:"state"`
	CreatedAt       string          `db:"created_at"`
	FullyAppliedAt  sql.NullString  `db:"fully_applied_at"`
}

func toCreditNoteRow(n *entity.CreditNote) creditNoteRow {
	return creditNoteRow{
		ID:              n.ID,
		Number:          n.Number,
		NoteDate:        formatDate(n.NoteDate),
		CustomerTaxID:   n.CustomerTaxID,
		CustomerName:    n.CustomerName,
		ProductCode:     n.ProductCode,
		ProductName:     n.ProductName,
		InventoryType:   n.InventoryType,
		TotalValue:      n.TotalValue,
		TotalQuantity:   n.TotalQuantity,
		PendingValue:    n.PendingValue,
		PendingQuantity: n.PendingQuantity,
		ReturnCause:     nullString(n.ReturnCause),
		State:           string(n.State),
		CreatedAt:       formatTimestamp(n.CreatedAt),
		FullyAppliedAt:  nullTimestamp(n.FullyAppliedAt),
	}
}

func (r creditNoteRow) toEntity() (*entity.CreditNote, error) {
	noteDate, err := parseDate(r.NoteDate)
	if err != nil {
		return nil, err
	}
	state, err := entity.ParseCreditNoteState(r.State)
	if err != nil {
		return nil, err
	}
	created, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	applied, err := timestampPtr(r.FullyAppliedAt)
	if err != nil {
		return nil, err
	}
	return &entity.CreditNote{
		ID:              r.ID,
		Number:          r.Number,
		NoteDate:        noteDate,
		CustomerTaxID:   r.CustomerTaxID,
		CustomerName:    r.CustomerName,
		ProductCode:     r.ProductCode,
		ProductName:     r.ProductName,
		InventoryType:   r.InventoryType,
		TotalValue:      r.TotalValue,
		TotalQuantity:   r.TotalQuantity,
		PendingValue:    r.PendingValue,
		PendingQuantity: r.PendingQuantity,
		ReturnCause:     stringPtr(r.ReturnCause),
		State:           state,
		CreatedAt:       created,
		FullyAppliedAt:  applied,
	}, nil
}

func creditNotesFromRows(rows []creditNoteRow) ([]*entity.CreditNote, error) {
	out := make([]*entity.CreditNote, 0, len(rows))
	for _, row := range rows {
		n, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// CreditNoteRepo implementa repository.CreditNoteRepository.
type CreditNoteRepo struct {
	q Querier
}

// NewCreditNoteRepository construye el repositorio sobre una conexión o transacción.
func NewCreditNoteRepository(q Querier) *CreditNoteRepo {
	return &CreditNoteRepo{q: q}
}

// InsertOrSkip inserta una nota nueva en estado PENDING con saldo igual al total.
// Si (número, producto) ya existe no toca la fila almacenada.
func (r *CreditNoteRepo) InsertOrSkip(ctx context.Context, note *entity.CreditNote) (repository.InsertOutcome, error) {
	if note.Admission() != "" {
		return repository.InsertFiltered, nil
	}
	note.PendingValue = note.TotalValue
	note.PendingQuantity = note.TotalQuantity
	note.State = entity.CreditNotePending
	note.FullyAppliedAt = nil
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now()
	}

	query := `INSERT INTO credit_notes (
			credit_note_number, note_date, customer_tax_id, customer_name, product_code, product_name,
			inventory_type, total_value, total_quantity, pending_value, pending_quantity,
			return_cause, state, created_at, fully_applied_at
		) VALUES (
			:credit_note_number, :note_date, :customer_tax_id, :customer_name, :product_code, :product_name,
			:inventory_type, :total_value, :total_quantity, :pending_value, :pending_quantity,
			:return_cause, :state, :created_at, :fully_applied_at
		)
		ON CONFLICT (credit_note_number, product_code) DO NOTHING
		RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, r.q, query, toCreditNoteRow(note))
	if err != nil {
		return "", storeErr("insertar nota crédito", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", storeErr("insertar nota crédito", err)
		}
		return repository.InsertDuplicate, nil
	}
	if err := rows.Scan(&note.ID); err != nil {
		return "", storeErr("insertar nota crédito", err)
	}
	return repository.InsertCreated, nil
}

// FindPending notas PENDING con saldo para el par, en orden FIFO (fecha de nota, luego ID).
func (r *CreditNoteRepo) FindPending(ctx context.Context, customerTaxID, productCode string) ([]*entity.CreditNote, error) {
	query := `SELECT ` + creditNoteColumns + ` FROM credit_notes
		WHERE customer_tax_id = ? AND product_code = ? AND state = ?
			AND CAST(pending_value AS NUMERIC) > 0
		ORDER BY note_date ASC, id ASC`
	var rows []creditNoteRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(query), customerTaxID, productCode, string(entity.CreditNotePending)); err != nil {
		return nil, storeErr("buscar notas pendientes", err)
	}
	return creditNotesFromRows(rows)
}

// GetByID nota por ID.
func (r *CreditNoteRepo) GetByID(ctx context.Context, id int64) (*entity.CreditNote, error) {
	var row creditNoteRow
	if err := sqlx.GetContext(ctx, r.q, &row, r.q.Rebind(`SELECT `+creditNoteColumns+` FROM credit_notes WHERE id = ?`), id); err != nil {
		return nil, storeErr("buscar nota crédito", err)
	}
	return row.toEntity()
}

// UpdateBalance escritura optimista: solo si el saldo almacenado sigue siendo expectedPending.
func (r *CreditNoteRepo) UpdateBalance(ctx context.Context, note *entity.CreditNote, expectedPending decimal.Decimal) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`UPDATE credit_notes SET
			pending_value = ?,
			pending_quantity = ?,
			state = ?,
			fully_applied_at = ?
		WHERE id = ? AND state <> ? AND CAST(pending_value AS NUMERIC) = CAST(? AS NUMERIC)`),
		note.PendingValue, note.PendingQuantity, string(note.State), nullTimestamp(note.FullyAppliedAt),
		note.ID, string(entity.CreditNoteApplied), expectedPending.String(),
	)
	if err != nil {
		return storeErr("actualizar saldo de nota", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("actualizar saldo de nota", err)
	}
	if n != 1 {
		return domain.ErrStaleCreditNote
	}
	return nil
}

// List listado paginado con total de filas.
func (r *CreditNoteRepo) List(ctx context.Context, f repository.CreditNoteFilter) ([]*entity.CreditNote, int, error) {
	var w where
	if f.State != nil {
		w.add("state = ?", string(*f.State))
	}
	if f.CustomerTaxID != "" {
		w.add("customer_tax_id = ?", f.CustomerTaxID)
	}
	if f.From != nil {
		w.add("note_date >= ?", formatDate(*f.From))
	}
	if f.To != nil {
		w.add("note_date <= ?", formatDate(*f.To))
	}

	var total int
	if err := sqlx.GetContext(ctx, r.q, &total, r.q.Rebind(`SELECT COUNT(*) FROM credit_notes`+w.String()), w.args...); err != nil {
		return nil, 0, storeErr("contar notas crédito", err)
	}
	limit, offset := pageArgs(f.Limit, f.Offset)
	query := `SELECT ` + creditNoteColumns + ` FROM credit_notes` + w.String() +
		` ORDER BY note_date DESC, id DESC LIMIT ? OFFSET ?`
	var rows []creditNoteRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(query), append(w.args, limit, offset)...); err != nil {
		return nil, 0, storeErr("listar notas crédito", err)
	}
	notes, err := creditNotesFromRows(rows)
	return notes, total, err
}

type stateCountRow struct {
	State        string          `db:"state"`
	Count        int             `db:"notes"`
	TotalValue   decimal.Decimal `db:"total_value"`
	PendingValue decimal.Decimal `db:"pending_value"`
}

// CountByState notas y saldos agrupados por estado.
func (r *CreditNoteRepo) CountByState(ctx context.Context) ([]repository.StateCount, error) {
	var rows []stateCountRow
	err := sqlx.SelectContext(ctx, r.q, &rows, `SELECT
			state,
			COUNT(*) AS notes,
			COALESCE(SUM(CAST(total_value AS NUMERIC)), 0) AS total_value,
			COALESCE(SUM(CAST(pending_value AS NUMERIC)), 0) AS pending_value
		FROM credit_notes
		GROUP BY state
		ORDER BY state`)
	if err != nil {
		return nil, storeErr("agrupar notas por estado", err)
	}
	out := make([]repository.StateCount, 0, len(rows))
	for _, row := range rows {
		st, err := entity.ParseCreditNoteState(row.State)
		if err != nil {
			return nil, err
		}
		out = append(out, repository.StateCount{
			State:        st,
			Count:        row.Count,
			TotalValue:   row.TotalValue.Round(2),
			PendingValue: row.PendingValue.Round(2),
		})
	}
	return out, nil
}

// Stats resumen global de notas y del historial de aplicaciones.
func (r *CreditNoteRepo) Stats(ctx context.Context) (repository.CreditNoteStats, error) {
	var notes struct {
		Notes        int             `db:"notes"`
		Pending      int             `db:"pending"`
		Partial      int             `db:"partial"`
		Applied      int             `db:"applied"`
		TotalValue   decimal.Decimal `db:"total_value"`
		PendingValue decimal.Decimal `db:"pending_value"`
	}
	err := sqlx.GetContext(ctx, r.q, &notes, `SELECT
			COUNT(*) AS notes,
			COALESCE(SUM(CASE WHEN state = 'PENDING' THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN state = 'PARTIAL' THEN 1 ELSE 0 END), 0) AS partial,
			COALESCE(SUM(CASE WHEN state = 'APPLIED' THEN 1 ELSE 0 END), 0) AS applied,
			COALESCE(SUM(CAST(total_value AS NUMERIC)), 0) AS total_value,
			COALESCE(SUM(CAST(pending_value AS NUMERIC)), 0) AS pending_value
		FROM credit_notes`)
	if err != nil {
		return repository.CreditNoteStats{}, storeErr("estadísticas de notas", err)
	}

	var apps struct {
		Applications int             `db:"applications"`
		Value        decimal.Decimal `db:"applied_value"`
		Quantity     decimal.Decimal `db:"applied_quantity"`
		Last         sql.NullString  `db:"last_applied_at"`
	}
	err = sqlx.GetContext(ctx, r.q, &apps, `SELECT
			COUNT(*) AS applications,
			COALESCE(SUM(CAST(applied_value AS NUMERIC)), 0) AS applied_value,
			COALESCE(SUM(CAST(applied_quantity AS NUMERIC)), 0) AS applied_quantity,
			MAX(applied_at) AS last_applied_at
		FROM credit_note_applications`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return repository.CreditNoteStats{}, storeErr("estadísticas de aplicaciones", err)
	}
	last, err := timestampPtr(apps.Last)
	if err != nil {
		return repository.CreditNoteStats{}, err
	}

	return repository.CreditNoteStats{
		Notes:             notes.Notes,
		PendingNotes:      notes.Pending,
		PartialNotes:      notes.Partial,
		AppliedNotes:      notes.Applied,
		TotalValue:        notes.TotalValue.Round(2),
		PendingValue:      notes.PendingValue.Round(2),
		Applications:      apps.Applications,
		AppliedValue:      apps.Value.Round(2),
		AppliedQuantity:   apps.Quantity.Round(6),
		LastApplicationAt: last,
	}, nil
}
