package sqlstore

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
	"github.com/cipa-correagro/notas-credito/internal/domain/repository"
)

var _ repository.RejectedLineRepository = (*RejectedLineRepo)(nil)

const rejectedLineColumns = `id, invoice_number, line_index, processing_date, invoice_date,
	customer_tax_id, customer_name, product_code, product_name, inventory_type,
	line_total, invoice_total, reason, detail, rejected_at`

type rejectedLineRow struct {
	ID             int64           `db:"id"`
	InvoiceNumber  string          `db:"invoice_number"`
	LineIndex      int             `db:"line_index"`
	ProcessingDate string          `db:"processing_date"`
	InvoiceDate    string          `db:"invoice_date"`
	CustomerTaxID  string          `db:"customer_tax_id"`
	CustomerName   string          `db:"customer_name"`
	ProductCode    string          `db:"product_code"`
	ProductName    string          `db:"product_name"`
	InventoryType  string          `db:"inventory_type"`
	LineTotal      decimal.Decimal `db:"line_total"`
	InvoiceTotal   decimal.Decimal `db:"invoice_total"`
	Reason         string          `db:"reason"`
	Detail         string          `db:"detail"`
	RejectedAt     string          `db:"rejected_at"`
}

func (r rejectedLineRow) toEntity() (*entity.RejectedLine, error) {
	processing, err := parseDate(r.ProcessingDate)
	if err != nil {
		return nil, err
	}
	invoiceDate, err := parseDate(r.InvoiceDate)
	if err != nil {
		return nil, err
	}
	rejectedAt, err := parseTimestamp(r.RejectedAt)
	if err != nil {
		return nil, err
	}
	return &entity.RejectedLine{
		ID:             r.ID,
		InvoiceNumber:  r.InvoiceNumber,
		LineIndex:      r.LineIndex,
		ProcessingDate: processing,
		InvoiceDate:    invoiceDate,
		CustomerTaxID:  r.CustomerTaxID,
		CustomerName:   r.CustomerName,
		ProductCode:    r.ProductCode,
		ProductName:    r.ProductName,
		InventoryType:  r.InventoryType,
		LineTotal:      r.LineTotal,
		InvoiceTotal:   r.InvoiceTotal,
		Reason:         entity.RejectReason(r.Reason),
		Detail:         r.Detail,
		RejectedAt:     rejectedAt,
	}, nil
}

// RejectedLineRepo implementa repository.RejectedLineRepository.
type RejectedLineRepo struct {
	q Querier
}

// NewRejectedLineRepository construye el repositorio sobre una conexión o transacción.
func NewRejectedLineRepository(q Querier) *RejectedLineRepo {
	return &RejectedLineRepo{q: q}
}

// Insert registra un rechazo. Re-procesar una fecha vuelve a insertar sus rechazos.
func (r *RejectedLineRepo) Insert(ctx context.Context, line *entity.RejectedLine) error {
	if line.RejectedAt.IsZero() {
		line.RejectedAt = time.Now()
	}
	row := rejectedLineRow{
		InvoiceNumber:  line.InvoiceNumber,
		LineIndex:      line.LineIndex,
		ProcessingDate: formatDate(line.ProcessingDate),
		InvoiceDate:    formatDate(line.InvoiceDate),
		CustomerTaxID:  line.CustomerTaxID,
		CustomerName:   line.CustomerName,
		ProductCode:    line.ProductCode,
		ProductName:    line.ProductName,
		InventoryType:  line.InventoryType,
		LineTotal:      line.LineTotal,
		InvoiceTotal:   line.InvoiceTotal,
		Reason:         string(line.Reason),
		Detail:         line.Detail,
		RejectedAt:     formatTimestamp(line.RejectedAt),
	}
	query := `INSERT INTO rejected_lines (
			invoice_number, line_index, processing_date, invoice_date, customer_tax_id, customer_name,
			product_code, product_name, inventory_type, line_total, invoice_total, reason, detail, rejected_at
		) VALUES (
			:invoice_number, :line_index, :processing_date, :invoice_date, :customer_tax_id, :customer_name,
			:product_code, :product_name, :inventory_type, :line_total, :invoice_total, :reason, :detail, :rejected_at
		) RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, r.q, query, row)
	if err != nil {
		return storeErr("insertar línea rechazada", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&line.ID); err != nil {
			return storeErr("insertar línea rechazada", err)
		}
	}
	return storeErr("insertar línea rechazada", rows.Err())
}

// ListByProcessingDate rechazos de una fecha de proceso en orden de inserción.
func (r *RejectedLineRepo) ListByProcessingDate(ctx context.Context, date time.Time) ([]*entity.RejectedLine, error) {
	var rows []rejectedLineRow
	query := `SELECT ` + rejectedLineColumns + ` FROM rejected_lines WHERE processing_date = ? ORDER BY id ASC`
	if err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(query), formatDate(date)); err != nil {
		return nil, storeErr("listar líneas rechazadas", err)
	}
	out := make([]*entity.RejectedLine, 0, len(rows))
	for _, row := range rows {
		l, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// Summary agregados de rechazos desde since.
func (r *RejectedLineRepo) Summary(ctx context.Context, since time.Time, top int) (repository.RejectionSummary, error) {
	if top <= 0 {
		top = 10
	}
	var byReason []struct {
		Reason string          `db:"reason"`
		Count  int             `db:"lines"`
		Value  decimal.Decimal `db:"total"`
	}
	err := sqlx.SelectContext(ctx, r.q, &byReason, r.q.Rebind(`SELECT
			reason,
			COUNT(*) AS lines,
			COALESCE(SUM(CAST(line_total AS NUMERIC)), 0) AS total
		FROM rejected_lines
		WHERE processing_date >= ?
		GROUP BY reason
		ORDER BY lines DESC, reason ASC`), formatDate(since))
	if err != nil {
		return repository.RejectionSummary{}, storeErr("resumen de rechazos", err)
	}

	var byType []struct {
		InventoryType string          `db:"inventory_type"`
		Count         int             `db:"lines"`
		Value         decimal.Decimal `db:"total"`
	}
	err = sqlx.SelectContext(ctx, r.q, &byType, r.q.Rebind(`SELECT
			inventory_type,
			COUNT(*) AS lines,
			COALESCE(SUM(CAST(line_total AS NUMERIC)), 0) AS total
		FROM rejected_lines
		WHERE processing_date >= ? AND reason = ?
		GROUP BY inventory_type
		ORDER BY lines DESC, inventory_type ASC
		LIMIT ?`), formatDate(since), string(entity.RejectExcludedInventoryType), top)
	if err != nil {
		return repository.RejectionSummary{}, storeErr("resumen de tipos excluidos", err)
	}

	var sum repository.RejectionSummary
	for _, row := range byReason {
		sum.Total += row.Count
		sum.ByReason = append(sum.ByReason, repository.ReasonCount{
			Reason: entity.RejectReason(row.Reason),
			Count:  row.Count,
			Value:  row.Value.Round(2),
		})
	}
	for _, row := range byType {
		sum.TopExcludedTypes = append(sum.TopExcludedTypes, repository.ExcludedTypeCount{
			InventoryType: row.InventoryType,
			Count:         row.Count,
			Value:         row.Value.Round(2),
		})
	}
	return sum, nil
}
