package dashboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipa-correagro/notas-credito/internal/application/creditnote"
	"github.com/cipa-correagro/notas-credito/internal/application/dashboard"
	"github.com/cipa-correagro/notas-credito/internal/application/dto"
	"github.com/cipa-correagro/notas-credito/internal/domain"
	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
	"github.com/cipa-correagro/notas-credito/internal/domain/repository"
	"github.com/cipa-correagro/notas-credito/internal/infrastructure/sqlstore"
	"github.com/cipa-correagro/notas-credito/pkg/logger"
)

var (
	ctx         = context.Background()
	processDate = time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC)
	fixedNow    = time.Date(2025, 11, 19, 6, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seed deja una nota aplicada (NCE1 sobre FY1), una pendiente (NCE2), un rechazo,
// un tipo de inventario nuevo y una corrida.
func seed(t *testing.T) *dashboard.UseCase {
	t.Helper()
	db, err := sqlstore.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	notes := sqlstore.NewCreditNoteRepository(db)
	tx := sqlstore.NewTxRunner(db)

	for _, n := range []*entity.CreditNote{
		{Number: "NCE1", NoteDate: processDate, CustomerTaxID: "C1", ProductCode: "A1",
			TotalValue: dec("5000"), TotalQuantity: dec("1"), CreatedAt: fixedNow},
		{Number: "NCE2", NoteDate: processDate, CustomerTaxID: "C2", ProductCode: "B1",
			TotalValue: dec("8000"), TotalQuantity: dec("2"), CreatedAt: fixedNow},
	} {
		_, err := notes.InsertOrSkip(ctx, n)
		require.NoError(t, err)
	}

	line := &entity.InvoiceLine{
		InvoiceNumber: "FY1", ProcessingDate: processDate, InvoiceDate: processDate,
		CustomerTaxID: "C1", ProductCode: "A1",
		OriginalQuantity: dec("10"), LineTotal: dec("150000"), UnitPrice: dec("15000"),
		CreatedAt: fixedNow,
	}
	err = tx.RunIngestion(ctx, func(lines repository.InvoiceLineRepository, rejected repository.RejectedLineRepository, types repository.InventoryTypeRepository) error {
		if err := lines.Upsert(ctx, line); err != nil {
			return err
		}
		if err := rejected.Insert(ctx, &entity.RejectedLine{
			InvoiceNumber: "FME9", ProcessingDate: processDate, InvoiceDate: processDate,
			ProductCode: "Z1", InventoryType: "INSUMOS", LineTotal: dec("1200"),
			InvoiceTotal: dec("1200"), Reason: entity.RejectExcludedInventoryType, RejectedAt: fixedNow,
		}); err != nil {
			return err
		}
		return types.Touch(ctx, &entity.InventoryType{Code: "PTNUEVO", Description: "NUEVO", InvoicesSeen: 1}, fixedNow)
	})
	require.NoError(t, err)

	applicator := creditnote.NewApplicator(notes, tx, logger.Nop(),
		creditnote.WithClock(func() time.Time { return fixedNow }))
	sum := applicator.ApplyAll(ctx, []*entity.InvoiceLine{line})
	require.Equal(t, 1, sum.Applications)

	runs := sqlstore.NewIngestionRunRepository(db)
	require.NoError(t, runs.Insert(ctx, &entity.IngestionRun{
		RunID: "run-1", ProcessingDate: processDate, Status: entity.RunSuccess,
		Fetched: 3, StartedAt: fixedNow, FinishedAt: fixedNow,
	}))

	return dashboard.NewUseCase(dashboard.Repositories{
		Notes:        notes,
		Applications: sqlstore.NewApplicationRepository(db),
		Lines:        sqlstore.NewInvoiceLineRepository(db),
		Rejected:     sqlstore.NewRejectedLineRepository(db),
		Types:        sqlstore.NewInventoryTypeRepository(db),
		Runs:         runs,
	}).WithClock(func() time.Time { return fixedNow })
}

// ──── Notas crédito ────

func TestListCreditNotes_FiltroEstado(t *testing.T) {
	uc := seed(t)

	res, err := uc.ListCreditNotes(ctx, dto.CreditNoteQuery{State: "pending"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "NCE2", res.Items[0].Number)
	assert.Equal(t, dto.DefaultLimit, res.Page.Limit)
	assert.Equal(t, 1, res.Page.Total)

	all, err := uc.ListCreditNotes(ctx, dto.CreditNoteQuery{From: "2025-11-01", To: "2025-11-30"})
	require.NoError(t, err)
	assert.Equal(t, 2, all.Page.Total)
}

func TestListCreditNotes_EntradaInvalida(t *testing.T) {
	uc := seed(t)

	_, err := uc.ListCreditNotes(ctx, dto.CreditNoteQuery{State: "CERRADA"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.ListCreditNotes(ctx, dto.CreditNoteQuery{From: "18/11/2025"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetCreditNote_ConAplicaciones(t *testing.T) {
	uc := seed(t)

	list, err := uc.ListCreditNotes(ctx, dto.CreditNoteQuery{State: "APPLIED"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)

	detail, err := uc.GetCreditNote(ctx, list.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "NCE1", detail.Number)
	assert.True(t, detail.PendingValue.IsZero())
	require.Len(t, detail.Applications, 1)
	assert.Equal(t, "FY1", detail.Applications[0].InvoiceNumber)
	assert.True(t, detail.Applications[0].AppliedValue.Equal(dec("5000")))

	_, err = uc.GetCreditNote(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreditNoteStats(t *testing.T) {
	uc := seed(t)

	stats, err := uc.CreditNoteStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Notes)
	assert.Equal(t, 1, stats.PendingNotes)
	assert.Equal(t, 1, stats.AppliedNotes)
	assert.Equal(t, 1, stats.Applications)
	assert.True(t, stats.PendingValue.Equal(dec("8000")))
	require.NotNil(t, stats.LastApplicationAt)

	byState, err := uc.CreditNotesByState(ctx)
	require.NoError(t, err)
	assert.Len(t, byState, 2)
}

func TestApplicationsByNumber(t *testing.T) {
	uc := seed(t)

	apps, err := uc.ApplicationsByNumber(ctx, "NCE1")
	require.NoError(t, err)
	assert.Len(t, apps, 1)

	_, err = uc.ApplicationsByNumber(ctx, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──── Facturas ────

func TestListInvoiceLines_ConNota(t *testing.T) {
	uc := seed(t)

	res, err := uc.ListInvoiceLines(ctx, dto.InvoiceLineQuery{WithNote: "true", ProcessingDate: "2025-11-18"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.NotNil(t, res.Items[0].AppliedCreditNoteNumber)
	assert.Equal(t, "NCE1", *res.Items[0].AppliedCreditNoteNumber)
	assert.True(t, res.Items[0].RemainingValue.Equal(dec("145000")))

	_, err = uc.ListInvoiceLines(ctx, dto.InvoiceLineQuery{WithNote: "quizas"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDailyInvoices(t *testing.T) {
	uc := seed(t)

	days, err := uc.DailyInvoices(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "2025-11-18", days[0].ProcessingDate)
	assert.Equal(t, 1, days[0].LinesWithNote)

	_, err = uc.DailyInvoices(ctx, "2025-11-20", "2025-11-01")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──── Rechazos, tipos y corridas ────

func TestRejectionSummary(t *testing.T) {
	uc := seed(t)

	s, err := uc.RejectionSummary(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-20", s.Since)
	assert.Equal(t, 1, s.Total)
	require.Len(t, s.TopExcludedTypes, 1)
	assert.Equal(t, "INSUMOS", s.TopExcludedTypes[0].InventoryType)

	_, err = uc.RejectionSummary(ctx, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewInventoryTypes(t *testing.T) {
	uc := seed(t)

	types, err := uc.NewInventoryTypes(ctx, 0)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "PTNUEVO", types[0].Code)
}

func TestRecentRuns(t *testing.T) {
	uc := seed(t)

	runs, err := uc.RecentRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, "2025-11-18", runs[0].ProcessingDate)
}
