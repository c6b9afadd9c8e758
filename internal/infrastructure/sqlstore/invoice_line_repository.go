package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/cipa-correagro/notas-credito/internal/domain"
	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
	"github.com/cipa-correagro/notas-credito/internal/domain/repository"
)

var _ repository.InvoiceLineRepository = (*InvoiceLineRepo)(nil)

const invoiceLineColumns = `id, invoice_number, line_index, processing_date, invoice_date,
	customer_tax_id, customer_name, product_code, product_name, inventory_type,
	original_quantity, unit_price, line_total, applied_credit_note_number,
	applied_discount_quantity, applied_discount_value, remaining_quantity, remaining_value,
	status, payment_due_date, created_at`

type invoiceLineRow struct {
	ID                      int64           `db:"id"`
	InvoiceNumber           string          `db:"invoice_number"`
	LineIndex               int             `db:"line_index"`
	ProcessingDate          string          `db:"processing_date"`
	InvoiceDate             string          `db:"invoice_date"`
	CustomerTaxID           string          `db:"customer_tax_id"`
	CustomerName            string          `db:"customer_name"`
	ProductCode             string          `db:"product_code"`
	ProductName             string          `db:"product_name"`
	InventoryType           string          `db:"inventory_type"`
	OriginalQuantity        decimal.Decimal `db:"original_quantity"`
	UnitPrice               decimal.Decimal `db:"unit_price"`
	LineTotal               decimal.Decimal `db:"line_total"`
	AppliedCreditNoteNumber sql.NullString  `db:"applied_credit_note_number"`
	AppliedDiscountQuantity decimal.Decimal `db:"applied_discount_quantity"`
	AppliedDiscountValue    decimal.Decimal `db:"applied_discount_value"`
	RemainingQuantity       decimal.Decimal `db:"remaining_quantity"`
	RemainingValue          decimal.Decimal `db:"remaining_value"`
	Status                  string          `db:"status"`
	PaymentDueDate          sql.NullString  `db:"payment_due_date"`
	CreatedAt               string          `db:"created_at"`
}

func toInvoiceLineRow(l *entity.InvoiceLine) invoiceLineRow {
	return invoiceLineRow{
		ID:                      l.ID,
		InvoiceNumber:           l.InvoiceNumber,
		LineIndex:               l.LineIndex,
		ProcessingDate:          formatDate(l.ProcessingDate),
		InvoiceDate:             formatDate(l.InvoiceDate),
		CustomerTaxID:           l.CustomerTaxID,
		CustomerName:            l.CustomerName,
		ProductCode:             l.ProductCode,
		ProductName:             l.ProductName,
		InventoryType:           l.InventoryType,
		OriginalQuantity:        l.OriginalQuantity,
		UnitPrice:               l.UnitPrice,
		LineTotal:               l.LineTotal,
		AppliedCreditNoteNumber: nullString(l.AppliedCreditNoteNumber),
		AppliedDiscountQuantity: l.AppliedDiscountQuantity,
		AppliedDiscountValue:    l.AppliedDiscountValue,
		RemainingQuantity:       l.RemainingQuantity,
		RemainingValue:          l.RemainingValue,
		Status:                  l.Status,
		PaymentDueDate:          nullDate(l.PaymentDueDate),
		CreatedAt:               formatTimestamp(l.CreatedAt),
	}
}

func (r invoiceLineRow) toEntity() (*entity.InvoiceLine, error) {
	processing, err := parseDate(r.ProcessingDate)
	if err != nil {
		return nil, err
	}
	invoiceDate, err := parseDate(r.InvoiceDate)
	if err != nil {
		return nil, err
	}
	due, err := datePtr(r.PaymentDueDate)
	if err != nil {
		return nil, err
	}
	created, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &entity.InvoiceLine{
		ID:                      r.ID,
		InvoiceNumber:           r.InvoiceNumber,
		LineIndex:               r.LineIndex,
		ProcessingDate:          processing,
		InvoiceDate:             invoiceDate,
		CustomerTaxID:           r.CustomerTaxID,
		CustomerName:            r.CustomerName,
		ProductCode:             r.ProductCode,
		ProductName:             r.ProductName,
		InventoryType:           r.InventoryType,
		OriginalQuantity:        r.OriginalQuantity,
		UnitPrice:               r.UnitPrice,
		LineTotal:               r.LineTotal,
		AppliedCreditNoteNumber: stringPtr(r.AppliedCreditNoteNumber),
		AppliedDiscountQuantity: r.AppliedDiscountQuantity,
		AppliedDiscountValue:    r.AppliedDiscountValue,
		RemainingQuantity:       r.RemainingQuantity,
		RemainingValue:          r.RemainingValue,
		Status:                  r.Status,
		PaymentDueDate:          due,
		CreatedAt:               created,
	}, nil
}

// InvoiceLineRepo implementa repository.InvoiceLineRepository.
type InvoiceLineRepo struct {
	q Querier
}

// NewInvoiceLineRepository construye el repositorio sobre una conexión o transacción.
func NewInvoiceLineRepository(q Querier) *InvoiceLineRepo {
	return &InvoiceLineRepo{q: q}
}

// Upsert inserta la línea o actualiza cantidad, total y precio si la clave ya existe.
// Los saldos se recalculan en Go con lo ya descontado; la llamada debe ir dentro de una
// transacción (TxRunner.RunIngestion) para que ambos pasos sean atómicos.
//
// Si la línea ya tiene descuentos y la reingesta trae un total o una cantidad menor que lo
// descontado, la fila guardada no se toca: line queda con los valores almacenados y se
// devuelve un DocumentError con domain.ErrConflict.
func (r *InvoiceLineRepo) Upsert(ctx context.Context, line *entity.InvoiceLine) error {
	if line.Status == "" {
		line.Status = entity.InvoiceLineProcessed
	}
	if line.CreatedAt.IsZero() {
		line.CreatedAt = time.Now()
	}
	line.Recompute()

	idx := line.LineIndex
	existing, err := r.GetByKey(ctx, repository.InvoiceLineKey{
		InvoiceNumber:  line.InvoiceNumber,
		ProductCode:    line.ProductCode,
		LineIndex:      &idx,
		ProcessingDate: line.ProcessingDate,
	})
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return err
	case shrinksBelowDiscount(existing, line):
		conflict := fmt.Errorf("total %s / cantidad %s por debajo de lo descontado %s / %s",
			line.LineTotal, line.OriginalQuantity, existing.AppliedDiscountValue, existing.AppliedDiscountQuantity)
		*line = *existing
		return domain.NewDocumentError(domain.ErrConflict, line.InvoiceNumber, conflict)
	}

	query := `INSERT INTO invoice_lines (
			invoice_number, line_index, processing_date, invoice_date, customer_tax_id, customer_name,
			product_code, product_name, inventory_type, original_quantity, unit_price, line_total,
			applied_credit_note_number, applied_discount_quantity, applied_discount_value,
			remaining_quantity, remaining_value, status, payment_due_date, created_at
		) VALUES (
			:invoice_number, :line_index, :processing_date, :invoice_date, :customer_tax_id, :customer_name,
			:product_code, :product_name, :inventory_type, :original_quantity, :unit_price, :line_total,
			:applied_credit_note_number, :applied_discount_quantity, :applied_discount_value,
			:remaining_quantity, :remaining_value, :status, :payment_due_date, :created_at
		)
		ON CONFLICT (invoice_number, product_code, line_index, processing_date) DO UPDATE SET
			original_quantity = excluded.original_quantity,
			line_total = excluded.line_total,
			unit_price = excluded.unit_price
		RETURNING ` + invoiceLineColumns

	rows, err := sqlx.NamedQueryContext(ctx, r.q, query, toInvoiceLineRow(line))
	if err != nil {
		return storeErr("upsert línea de factura", err)
	}
	var stored invoiceLineRow
	if !rows.Next() {
		_ = rows.Close()
		return storeErr("upsert línea de factura", fmt.Errorf("RETURNING sin filas"))
	}
	if err := rows.StructScan(&stored); err != nil {
		_ = rows.Close()
		return storeErr("upsert línea de factura", err)
	}
	_ = rows.Close()

	saved, err := stored.toEntity()
	if err != nil {
		return err
	}
	saved.Recompute()
	if !saved.RemainingQuantity.Equal(stored.RemainingQuantity) || !saved.RemainingValue.Equal(stored.RemainingValue) {
		_, err := r.q.ExecContext(ctx, r.q.Rebind(
			`UPDATE invoice_lines SET remaining_quantity = ?, remaining_value = ? WHERE id = ?`),
			saved.RemainingQuantity, saved.RemainingValue, saved.ID)
		if err != nil {
			return storeErr("recalcular saldos de línea", err)
		}
	}
	*line = *saved
	return nil
}

// GetByKey busca por clave natural; sin LineIndex devuelve la de menor line_index.
func (r *InvoiceLineRepo) GetByKey(ctx context.Context, key repository.InvoiceLineKey) (*entity.InvoiceLine, error) {
	query := `SELECT ` + invoiceLineColumns + ` FROM invoice_lines
		WHERE invoice_number = ? AND product_code = ? AND processing_date = ?`
	args := []any{key.InvoiceNumber, key.ProductCode, formatDate(key.ProcessingDate)}
	if key.LineIndex != nil {
		query += ` AND line_index = ?`
		args = append(args, *key.LineIndex)
	}
	query += ` ORDER BY line_index ASC LIMIT 1`

	var row invoiceLineRow
	if err := sqlx.GetContext(ctx, r.q, &row, r.q.Rebind(query), args...); err != nil {
		return nil, storeErr("buscar línea de factura", err)
	}
	return row.toEntity()
}

// UpdateDiscount persiste la nota aplicada, los descuentos acumulados y los saldos.
func (r *InvoiceLineRepo) UpdateDiscount(ctx context.Context, line *entity.InvoiceLine) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind(`UPDATE invoice_lines SET
			applied_credit_note_number = ?,
			applied_discount_quantity = ?,
			applied_discount_value = ?,
			remaining_quantity = ?,
			remaining_value = ?
		WHERE id = ?`),
		nullString(line.AppliedCreditNoteNumber),
		line.AppliedDiscountQuantity, line.AppliedDiscountValue,
		line.RemainingQuantity, line.RemainingValue,
		line.ID,
	)
	if err != nil {
		return storeErr("actualizar descuento de línea", err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return storeErr("actualizar descuento de línea", sql.ErrNoRows)
	}
	return nil
}

// List listado paginado con total de filas.
func (r *InvoiceLineRepo) List(ctx context.Context, f repository.InvoiceLineFilter) ([]*entity.InvoiceLine, int, error) {
	var w where
	if f.ProcessingDate != nil {
		w.add("processing_date = ?", formatDate(*f.ProcessingDate))
	}
	if f.CustomerTaxID != "" {
		w.add("customer_tax_id = ?", f.CustomerTaxID)
	}
	if f.WithCreditNote != nil {
		if *f.WithCreditNote {
			w.add("applied_credit_note_number IS NOT NULL")
		} else {
			w.add("applied_credit_note_number IS NULL")
		}
	}

	var total int
	if err := sqlx.GetContext(ctx, r.q, &total, r.q.Rebind(`SELECT COUNT(*) FROM invoice_lines`+w.String()), w.args...); err != nil {
		return nil, 0, storeErr("contar líneas de factura", err)
	}

	limit, offset := pageArgs(f.Limit, f.Offset)
	query := `SELECT ` + invoiceLineColumns + ` FROM invoice_lines` + w.String() +
		` ORDER BY processing_date DESC, invoice_number ASC, line_index ASC LIMIT ? OFFSET ?`
	var rows []invoiceLineRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(query), append(w.args, limit, offset)...); err != nil {
		return nil, 0, storeErr("listar líneas de factura", err)
	}
	out := make([]*entity.InvoiceLine, 0, len(rows))
	for _, row := range rows {
		l, err := row.toEntity()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, nil
}

type dailySummaryRow struct {
	ProcessingDate  string          `db:"processing_date"`
	Invoices        int             `db:"invoices"`
	Lines           int             `db:"lines"`
	Total           decimal.Decimal `db:"total"`
	DiscountApplied decimal.Decimal `db:"discount_applied"`
	LinesWithNote   int             `db:"lines_with_note"`
}

// DailySummary agregados por fecha de proceso en [from, to].
func (r *InvoiceLineRepo) DailySummary(ctx context.Context, from, to time.Time) ([]repository.DailyInvoiceSummary, error) {
	query := `SELECT
			processing_date,
			COUNT(DISTINCT invoice_number) AS invoices,
			COUNT(*) AS lines,
			COALESCE(SUM(CAST(line_total AS NUMERIC)), 0) AS total,
			COALESCE(SUM(CAST(applied_discount_value AS NUMERIC)), 0) AS discount_applied,
			COALESCE(SUM(CASE WHEN applied_credit_note_number IS NOT NULL THEN 1 ELSE 0 END), 0) AS lines_with_note
		FROM invoice_lines
		WHERE processing_date >= ? AND processing_date <= ?
		GROUP BY processing_date
		ORDER BY processing_date ASC`
	var rows []dailySummaryRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(query), formatDate(from), formatDate(to)); err != nil {
		return nil, storeErr("resumen diario de facturas", err)
	}
	out := make([]repository.DailyInvoiceSummary, 0, len(rows))
	for _, row := range rows {
		d, err := parseDate(row.ProcessingDate)
		if err != nil {
			return nil, err
		}
		out = append(out, repository.DailyInvoiceSummary{
			ProcessingDate:  d,
			Invoices:        row.Invoices,
			Lines:           row.Lines,
			Total:           row.Total.Round(2),
			DiscountApplied: row.DiscountApplied.Round(2),
			LinesWithNote:   row.LinesWithNote,
		})
	}
	return out, nil
}

func shrinksBelowDiscount(stored, incoming *entity.InvoiceLine) bool {
	return incoming.LineTotal.Abs().LessThan(stored.AppliedDiscountValue.Abs()) ||
		incoming.OriginalQuantity.Abs().LessThan(stored.AppliedDiscountQuantity.Abs())
}
