package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
	"github.com/cipa-correagro/notas-credito/internal/domain/repository"
)

var _ repository.ApplicationRepository = (*ApplicationRepo)(nil)

const applicationColumns = `id, credit_note_id, credit_note_number, invoice_line_id, invoice_number,
	line_index, invoice_date, processing_date, customer_tax_id, product_code,
	applied_quantity, applied_value, applied_at`

type applicationRow struct {
	ID               int64           `db:"id"`
	CreditNoteID     int64           `db:"credit_note_id"`
	CreditNoteNumber string          `db:"credit_note_number"`
	InvoiceLineID    sql.NullInt64   `db:"invoice_line_id"`
	InvoiceNumber    string          `db:"invoice_number"`
	LineIndex        int             `db:"line_index"`
	InvoiceDate      string          `db:"invoice_date"`
	ProcessingDate   sql.NullString  `db:"processing_date"`
	CustomerTaxID    string          `db:"customer_tax_id"`
	ProductCode      string          `db:"product_code"`
	AppliedQuantity  decimal.Decimal `db:"applied_quantity"`
	AppliedValue     decimal.Decimal `db:"applied_value"`
	AppliedAt        string          `db:"applied_at"`
}

func (r applicationRow) toEntity() (*entity.CreditNoteApplication, error) {
	invoiceDate, err := parseDate(r.InvoiceDate)
	if err != nil {
		return nil, err
	}
	processing := invoiceDate
	if p, err := datePtr(r.ProcessingDate); err != nil {
		return nil, err
	} else if p != nil {
		processing = *p
	}
	appliedAt, err := parseTimestamp(r.AppliedAt)
	if err != nil {
		return nil, err
	}
	return &entity.CreditNoteApplication{
		ID:               r.ID,
		CreditNoteID:     r.CreditNoteID,
		CreditNoteNumber: r.CreditNoteNumber,
		InvoiceLineID:    r.InvoiceLineID.Int64,
		InvoiceNumber:    r.InvoiceNumber,
		LineIndex:        r.LineIndex,
		InvoiceDate:      invoiceDate,
		ProcessingDate:   processing,
		CustomerTaxID:    r.CustomerTaxID,
		ProductCode:      r.ProductCode,
		AppliedQuantity:  r.AppliedQuantity,
		AppliedValue:     r.AppliedValue,
		AppliedAt:        appliedAt,
	}, nil
}

// ApplicationRepo implementa repository.ApplicationRepository.
type ApplicationRepo struct {
	q Querier
}

// NewApplicationRepository construye el repositorio sobre una conexión o transacción.
func NewApplicationRepository(q Querier) *ApplicationRepo {
	return &ApplicationRepo{q: q}
}

// Insert agrega una fila al historial. Las filas nunca se modifican.
func (r *ApplicationRepo) Insert(ctx context.Context, app *entity.CreditNoteApplication) error {
	if app.AppliedAt.IsZero() {
		app.AppliedAt = time.Now()
	}
	lineID := sql.NullInt64{Int64: app.InvoiceLineID, Valid: app.InvoiceLineID != 0}
	query := `INSERT INTO credit_note_applications (
			credit_note_id, credit_note_number, invoice_line_id, invoice_number, line_index,
			invoice_date, processing_date, customer_tax_id, product_code,
			applied_quantity, applied_value, applied_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	err := sqlx.GetContext(ctx, r.q, &app.ID, r.q.Rebind(query),
		app.CreditNoteID, app.CreditNoteNumber, lineID, app.InvoiceNumber, app.LineIndex,
		formatDate(app.InvoiceDate), formatDate(app.ProcessingDate), app.CustomerTaxID, app.ProductCode,
		app.AppliedQuantity, app.AppliedValue, formatTimestamp(app.AppliedAt),
	)
	if err != nil {
		return storeErr("insertar aplicación", err)
	}
	return nil
}

func (r *ApplicationRepo) list(ctx context.Context, op, cond string, arg any) ([]*entity.CreditNoteApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM credit_note_applications WHERE ` + cond +
		` ORDER BY applied_at ASC, id ASC`
	var rows []applicationRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(query), arg); err != nil {
		return nil, storeErr(op, err)
	}
	out := make([]*entity.CreditNoteApplication, 0, len(rows))
	for _, row := range rows {
		a, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// ListByCreditNoteID historial de una fila de nota.
func (r *ApplicationRepo) ListByCreditNoteID(ctx context.Context, creditNoteID int64) ([]*entity.CreditNoteApplication, error) {
	return r.list(ctx, "listar aplicaciones de nota", "credit_note_id = ?", creditNoteID)
}

// ListByCreditNoteNumber historial de todas las líneas de producto de un número de nota.
func (r *ApplicationRepo) ListByCreditNoteNumber(ctx context.Context, number string) ([]*entity.CreditNoteApplication, error) {
	return r.list(ctx, "listar aplicaciones por número", "credit_note_number = ?", number)
}
