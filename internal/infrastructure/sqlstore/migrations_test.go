package sqlstore_test

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipa-correagro/notas-credito/internal/domain/repository"
	"github.com/cipa-correagro/notas-credito/internal/infrastructure/sqlstore"
)

// Esquema de la versión anterior de la aplicación: sin schema_migrations y con la clave
// de línea (invoice_number, product_code).
var legacySchema = []string{
	`CREATE TABLE invoice_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		invoice_number TEXT NOT NULL,
		invoice_date TEXT NOT NULL,
		customer_tax_id TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL DEFAULT '',
		product_code TEXT NOT NULL,
		product_name TEXT NOT NULL DEFAULT '',
		inventory_type TEXT NOT NULL DEFAULT '',
		original_quantity TEXT NOT NULL DEFAULT 0,
		unit_price TEXT NOT NULL DEFAULT 0,
		line_total TEXT NOT NULL DEFAULT 0,
		applied_credit_note_number TEXT,
		applied_discount_quantity TEXT NOT NULL DEFAULT 0,
		applied_discount_value TEXT NOT NULL DEFAULT 0,
		remaining_quantity TEXT NOT NULL DEFAULT 0,
		remaining_value TEXT NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'PROCESSED',
		payment_due_date TEXT,
		created_at TEXT NOT NULL,
		UNIQUE (invoice_number, product_code)
	)`,
	`CREATE TABLE rejected_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		invoice_number TEXT NOT NULL,
		invoice_date TEXT NOT NULL,
		customer_tax_id TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL DEFAULT '',
		product_code TEXT NOT NULL DEFAULT '',
		product_name TEXT NOT NULL DEFAULT '',
		inventory_type TEXT NOT NULL DEFAULT '',
		line_total TEXT NOT NULL DEFAULT 0,
		reason TEXT NOT NULL,
		rejected_at TEXT NOT NULL
	)`,
	`CREATE TABLE credit_notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		credit_note_number TEXT NOT NULL,
		note_date TEXT NOT NULL,
		customer_tax_id TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL DEFAULT '',
		product_code TEXT NOT NULL,
		product_name TEXT NOT NULL DEFAULT '',
		inventory_type TEXT NOT NULL DEFAULT '',
		total_value TEXT NOT NULL DEFAULT 0,
		total_quantity TEXT NOT NULL DEFAULT 0,
		pending_value TEXT NOT NULL DEFAULT 0,
		pending_quantity TEXT NOT NULL DEFAULT 0,
		return_cause TEXT,
		state TEXT NOT NULL DEFAULT 'PENDING',
		created_at TEXT NOT NULL,
		fully_applied_at TEXT,
		UNIQUE (credit_note_number, product_code)
	)`,
	`CREATE TABLE credit_note_applications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		credit_note_id INTEGER NOT NULL REFERENCES credit_notes(id),
		credit_note_number TEXT NOT NULL,
		invoice_number TEXT NOT NULL,
		invoice_date TEXT NOT NULL,
		customer_tax_id TEXT NOT NULL DEFAULT '',
		product_code TEXT NOT NULL DEFAULT '',
		applied_quantity TEXT NOT NULL DEFAULT 0,
		applied_value TEXT NOT NULL DEFAULT 0,
		applied_at TEXT NOT NULL
	)`,
	`INSERT INTO invoice_lines (invoice_number, invoice_date, customer_tax_id, product_code,
		original_quantity, unit_price, line_total, remaining_quantity, remaining_value, created_at)
	VALUES ('FME77', '2025-10-03', 'C1', 'P', '4', '25000', '100000', '4', '100000', '2025-10-03 08:00:00')`,
	`INSERT INTO rejected_lines (invoice_number, invoice_date, reason, line_total, rejected_at)
	VALUES ('FX9', '2025-10-03', 'BELOW_MINIMUM_TOTAL', '1000', '2025-10-03 08:00:00')`,
}

func openLegacy(t *testing.T) *sqlstore.DB {
	t.Helper()
	raw, err := sqlx.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	raw.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = raw.Close() })
	for _, stmt := range legacySchema {
		_, err := raw.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	return &sqlstore.DB{DB: raw, Dialect: sqlstore.SQLite}
}

func TestMigrate_ReescribeClaveLegacy(t *testing.T) {
	db := openLegacy(t)

	require.NoError(t, sqlstore.Migrate(ctx, db))
	v, err := sqlstore.SchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, sqlstore.LatestVersion(), v)

	// La fila existente queda con line_index 0 y processing_date = invoice_date
	var row struct {
		LineIndex      int    `db:"line_index"`
		ProcessingDate string `db:"processing_date"`
	}
	require.NoError(t, db.GetContext(ctx, &row, `SELECT line_index, processing_date FROM invoice_lines WHERE invoice_number = 'FME77'`))
	assert.Equal(t, 0, row.LineIndex)
	assert.Equal(t, "2025-10-03", row.ProcessingDate)

	// La clave nueva admite otra línea del mismo producto en la misma factura
	second := newLine("FME77", "P", 1, "1", "5000")
	second.ProcessingDate = mustDate("2025-10-03")
	upsert(t, db, second)
	assert.Equal(t, 2, count(t, db, `SELECT COUNT(*) FROM invoice_lines WHERE invoice_number = 'FME77'`))

	got, err := sqlstore.NewInvoiceLineRepository(db).GetByKey(ctx, repository.InvoiceLineKey{
		InvoiceNumber: "FME77", ProductCode: "P", ProcessingDate: mustDate("2025-10-03"),
	})
	require.NoError(t, err)
	assert.True(t, got.LineTotal.Equal(dec("100000")))

	rejected, err := sqlstore.NewRejectedLineRepository(db).ListByProcessingDate(ctx, mustDate("2025-10-03"))
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, "FX9", rejected[0].InvoiceNumber)

	// Segunda apertura: nada que migrar
	require.NoError(t, sqlstore.Migrate(ctx, db))
	v, err = sqlstore.SchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, sqlstore.LatestVersion(), v)
	assert.Equal(t, 0, count(t, db, `SELECT COUNT(*) FROM schema_migrations WHERE dirty = 1`))
}
