package sqlstore_test

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipa-correagro/notas-credito/internal/domain/repository"
	"github.com/cipa-correagro/notas-credito/internal/infrastructure/sqlstore"
)

// openPostgres usa TEST_DATABASE_URL (una base desechable); sin ella el test se omite.
func openPostgres(t *testing.T) *sqlstore.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL no definido")
	}
	db, err := sqlstore.OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgres_MigraYLeeNumeric(t *testing.T) {
	db := openPostgres(t)

	v, err := sqlstore.SchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, sqlstore.LatestVersion(), v)

	// Segunda pasada sobre la misma base: nada que migrar
	require.NoError(t, sqlstore.Migrate(ctx, db))

	invoice := "FPG-" + uuid.NewString()[:8]
	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, db.Rebind(`DELETE FROM invoice_lines WHERE invoice_number = ?`), invoice)
	})

	line := newLine(invoice, "P", 0, "3", "100000.123456")
	upsert(t, db, line)
	require.NotZero(t, line.ID)

	got, err := sqlstore.NewInvoiceLineRepository(db).GetByKey(ctx, repository.InvoiceLineKey{
		InvoiceNumber: invoice, ProductCode: "P", ProcessingDate: processDate,
	})
	require.NoError(t, err)
	assert.True(t, got.LineTotal.Equal(dec("100000.123456")), got.LineTotal.String())
	assert.True(t, got.OriginalQuantity.Equal(dec("3")))
	assert.True(t, got.RemainingValue.Equal(got.LineTotal))
}
