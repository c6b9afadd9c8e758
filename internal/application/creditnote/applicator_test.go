package creditnote_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipa-correagro/notas-credito/internal/application/creditnote"
	"github.com/cipa-correagro/notas-credito/internal/domain"
	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
	"github.com/cipa-correagro/notas-credito/internal/domain/repository"
	"github.com/cipa-correagro/notas-credito/internal/infrastructure/sqlstore"
	"github.com/cipa-correagro/notas-credito/pkg/logger"
)

var (
	ctx         = context.Background()
	processDate = time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC)
	fixedNow    = time.Date(2025, 11, 21, 5, 0, 0, 0, time.UTC)
	eps         = decimal.RequireFromString("0.01")
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(d int) time.Time { return time.Date(2025, 11, d, 0, 0, 0, 0, time.UTC) }

type fixture struct {
	db         *sqlstore.DB
	notes      *sqlstore.CreditNoteRepo
	lines      *sqlstore.InvoiceLineRepo
	apps       *sqlstore.ApplicationRepo
	applicator *creditnote.Applicator
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlstore.OpenMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	f := &fixture{
		db:    db,
		notes: sqlstore.NewCreditNoteRepository(db),
		lines: sqlstore.NewInvoiceLineRepository(db),
		apps:  sqlstore.NewApplicationRepository(db),
	}
	f.applicator = creditnote.NewApplicator(f.notes, sqlstore.NewTxRunner(db), logger.Nop(),
		creditnote.WithEpsilon(eps), creditnote.WithClock(func() time.Time { return fixedNow }))
	return f
}

func (f *fixture) note(t *testing.T, number, customer, product string, date time.Time, value, qty string) *entity.CreditNote {
	t.Helper()
	n := &entity.CreditNote{
		Number: number, NoteDate: date, CustomerTaxID: customer, ProductCode: product,
		TotalValue: dec(value), TotalQuantity: dec(qty), CreatedAt: fixedNow,
	}
	out, err := f.notes.InsertOrSkip(ctx, n)
	require.NoError(t, err)
	require.Equal(t, repository.InsertCreated, out)
	return n
}

func (f *fixture) line(t *testing.T, invoice, customer, product string, idx int, qty, value string) *entity.InvoiceLine {
	t.Helper()
	l := &entity.InvoiceLine{
		InvoiceNumber: invoice, LineIndex: idx, ProcessingDate: processDate, InvoiceDate: processDate,
		CustomerTaxID: customer, ProductCode: product,
		OriginalQuantity: dec(qty), LineTotal: dec(value), UnitPrice: dec(value).Div(dec(qty)),
		CreatedAt: fixedNow,
	}
	err := sqlstore.NewTxRunner(f.db).RunIngestion(ctx, func(lines repository.InvoiceLineRepository, _ repository.RejectedLineRepository, _ repository.InventoryTypeRepository) error {
		return lines.Upsert(ctx, l)
	})
	require.NoError(t, err)
	return l
}

func (f *fixture) reload(t *testing.T, n *entity.CreditNote) *entity.CreditNote {
	t.Helper()
	got, err := f.notes.GetByID(ctx, n.ID)
	require.NoError(t, err)
	return got
}

// assertInvariants verifica saldos de notas y líneas contra el historial.
func (f *fixture) assertInvariants(t *testing.T) {
	t.Helper()
	notes, _, err := f.notes.List(ctx, repository.CreditNoteFilter{Limit: 500})
	require.NoError(t, err)
	for _, n := range notes {
		assert.False(t, n.PendingValue.IsNegative(), n.Number)
		assert.True(t, n.PendingValue.LessThanOrEqual(n.TotalValue), n.Number)
		assert.False(t, n.PendingQuantity.IsNegative(), n.Number)
		assert.True(t, n.PendingQuantity.LessThanOrEqual(n.TotalQuantity), n.Number)

		history, err := f.apps.ListByCreditNoteID(ctx, n.ID)
		require.NoError(t, err)
		applied := decimal.Zero
		for _, a := range history {
			applied = applied.Add(a.AppliedValue)
		}
		assert.True(t, n.Applied().Sub(applied).Abs().LessThanOrEqual(eps), "historial de %s", n.Number)

		for _, a := range history {
			assert.True(t, a.AppliedQuantity.IsPositive(), "cantidad aplicada de %s", n.Number)
		}
		// Sin historial no se exige la relación estado/saldo: las notas 0/0 admitidas
		// quedan PENDING indefinidamente y nunca se aplican.
		if len(history) > 0 {
			isApplied := n.State == entity.CreditNoteApplied
			assert.Equal(t, isApplied, n.PendingValue.LessThanOrEqual(eps), n.Number)
			assert.Equal(t, isApplied, n.FullyAppliedAt != nil, n.Number)
		}
	}

	lines, _, err := f.lines.List(ctx, repository.InvoiceLineFilter{Limit: 500})
	require.NoError(t, err)
	for _, l := range lines {
		assert.True(t, l.AppliedDiscountValue.LessThanOrEqual(l.LineTotal), l.InvoiceNumber)
		assert.True(t, l.AppliedDiscountQuantity.LessThanOrEqual(l.OriginalQuantity), l.InvoiceNumber)
		assert.True(t, l.RemainingValue.Equal(l.LineTotal.Sub(l.AppliedDiscountValue)), l.InvoiceNumber)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyAll_FIFOAplicacionCompleta(t *testing.T) {
	// Dos notas para el par cliente/producto: ambas se aplican, la más antigua primero.
	f := setup(t)
	na := f.note(t, "NA1", "C1", "P", day(1), "5000", "1")
	nb := f.note(t, "NB1", "C1", "P", day(2), "3000", "1")
	l := f.line(t, "FME10", "C1", "P", 0, "10", "100000")

	sum := f.applicator.ApplyAll(ctx, []*entity.InvoiceLine{l})
	assert.Equal(t, 2, sum.Applications)
	assert.Zero(t, sum.Failures)
	assert.True(t, sum.AppliedValue.Equal(dec("8000")))

	for _, n := range []*entity.CreditNote{na, nb} {
		got := f.reload(t, n)
		assert.Equal(t, entity.CreditNoteApplied, got.State, got.Number)
		assert.True(t, got.PendingValue.IsZero())
		require.NotNil(t, got.FullyAppliedAt)
		assert.True(t, got.FullyAppliedAt.Equal(fixedNow))
	}

	histA, err := f.apps.ListByCreditNoteID(ctx, na.ID)
	require.NoError(t, err)
	histB, err := f.apps.ListByCreditNoteID(ctx, nb.ID)
	require.NoError(t, err)
	require.Len(t, histA, 1)
	require.Len(t, histB, 1)
	assert.Less(t, histA[0].ID, histB[0].ID, "FIFO por fecha de nota")
	assert.Equal(t, l.ID, histA[0].InvoiceLineID)
	assert.True(t, histA[0].ProcessingDate.Equal(processDate))

	// Copia en memoria y fila almacenada
	assert.True(t, l.AppliedDiscountValue.Equal(dec("8000")))
	assert.True(t, l.RemainingValue.Equal(dec("92000")))
	assert.True(t, l.RemainingQuantity.Equal(dec("8")))
	require.NotNil(t, l.AppliedCreditNoteNumber)
	assert.Equal(t, "NB1", *l.AppliedCreditNoteNumber, "gana la última nota aplicada")

	idx := 0
	stored, err := f.lines.GetByKey(ctx, repository.InvoiceLineKey{InvoiceNumber: "FME10", ProductCode: "P", LineIndex: &idx, ProcessingDate: processDate})
	require.NoError(t, err)
	assert.True(t, stored.RemainingValue.Equal(dec("92000")))

	f.assertInvariants(t)
}

func TestApplyAll_ValorExcedeLinea(t *testing.T) {
	// La nota supera el saldo de la línea: no se aplica.
	f := setup(t)
	n := f.note(t, "NC1", "C1", "P", day(1), "150000", "2")
	l := f.line(t, "FME11", "C1", "P", 0, "10", "100000")

	sum := f.applicator.ApplyAll(ctx, []*entity.InvoiceLine{l})
	assert.Zero(t, sum.Applications)

	got := f.reload(t, n)
	assert.Equal(t, entity.CreditNotePending, got.State)
	assert.True(t, got.PendingValue.Equal(dec("150000")))
	history, err := f.apps.ListByCreditNoteID(ctx, n.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.True(t, l.RemainingValue.Equal(dec("100000")))
}

func TestApplyAll_CantidadExcedeLinea(t *testing.T) {
	// Ambas condiciones son obligatorias
	f := setup(t)
	n := f.note(t, "NC2", "C1", "P", day(1), "1000", "20")
	l := f.line(t, "FME12", "C1", "P", 0, "10", "100000")

	sum := f.applicator.ApplyAll(ctx, []*entity.InvoiceLine{l})
	assert.Zero(t, sum.Applications)
	assert.Equal(t, entity.CreditNotePending, f.reload(t, n).State)
}

func TestApplyAll_SaldoDecrecienteEntreCandidatas(t *testing.T) {
	// La segunda nota ya no cabe tras descontar la primera; se aplica la tercera más pequeña
	f := setup(t)
	f.note(t, "ND1", "C1", "P", day(1), "60000", "1")
	skipped := f.note(t, "ND2", "C1", "P", day(2), "50000", "1")
	f.note(t, "ND3", "C1", "P", day(3), "30000", "1")
	l := f.line(t, "FME13", "C1", "P", 0, "10", "100000")

	sum := f.applicator.ApplyAll(ctx, []*entity.InvoiceLine{l})
	assert.Equal(t, 2, sum.Applications)
	assert.True(t, l.RemainingValue.Equal(dec("10000")))
	assert.Equal(t, entity.CreditNotePending, f.reload(t, skipped).State)
	f.assertInvariants(t)
}

func TestApplyAll_LineaSinClienteSeOmite(t *testing.T) {
	f := setup(t)
	f.note(t, "NE1", "C1", "P", day(1), "100", "1")
	l := f.line(t, "FME14", "", "P", 0, "10", "100000")

	sum := f.applicator.ApplyAll(ctx, []*entity.InvoiceLine{l})
	assert.Equal(t, 1, sum.LinesSkipped)
	assert.Zero(t, sum.Applications)
}

func TestApplyAll_NotaEnEpsilonQuedaAplicada(t *testing.T) {
	f := setup(t)
	n := f.note(t, "NF1", "C1", "P", day(1), "0.01", "1")
	l := f.line(t, "FME15", "C1", "P", 0, "10", "100000")

	sum := f.applicator.ApplyAll(ctx, []*entity.InvoiceLine{l})
	assert.Equal(t, 1, sum.Applications)
	got := f.reload(t, n)
	assert.Equal(t, entity.CreditNoteApplied, got.State)
	assert.NotNil(t, got.FullyAppliedAt)
	assert.True(t, l.RemainingQuantity.Equal(dec("9")))
	f.assertInvariants(t)
}

func TestApplyAll_NotaConValorSinCantidadNoSeAplica(t *testing.T) {
	f := setup(t)
	n := f.note(t, "NC1", "C1", "P", day(1), "5000", "0")
	l := f.line(t, "FME20", "C1", "P", 0, "10", "100000")

	sum := f.applicator.ApplyAll(ctx, []*entity.InvoiceLine{l})
	assert.Zero(t, sum.Applications)
	assert.Zero(t, sum.Failures)

	got := f.reload(t, n)
	assert.Equal(t, entity.CreditNotePending, got.State)
	assert.True(t, got.PendingValue.Equal(dec("5000")))
	history, err := f.apps.ListByCreditNoteID(ctx, n.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.True(t, l.RemainingValue.Equal(dec("100000")))
	f.assertInvariants(t)
}

func TestApply_NotaSinCantidadEsSaldoInsuficiente(t *testing.T) {
	f := setup(t)
	n := f.note(t, "NC2", "C1", "P", day(1), "5000", "0")
	f.line(t, "FME21", "C1", "P", 0, "10", "100000")

	_, err := f.applicator.Apply(ctx, creditnote.ApplyCommand{
		CreditNoteID: n.ID,
		Line:         repository.InvoiceLineKey{InvoiceNumber: "FME21", ProductCode: "P", ProcessingDate: processDate},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Equal(t, entity.CreditNotePending, f.reload(t, n).State)
}

func TestApplyAll_SegundaPasadaNoReaplica(t *testing.T) {
	f := setup(t)
	f.note(t, "NG1", "C1", "P", day(1), "5000", "1")
	l := f.line(t, "FME16", "C1", "P", 0, "10", "100000")

	first := f.applicator.ApplyAll(ctx, []*entity.InvoiceLine{l})
	second := f.applicator.ApplyAll(ctx, []*entity.InvoiceLine{l})
	assert.Equal(t, 1, first.Applications)
	assert.Zero(t, second.Applications)
}

// ──────────────────────────────────────────────────────────────────────────────
// Atomicidad
// ──────────────────────────────────────────────────────────────────────────────

// failingLines falla al persistir el descuento, después de insertar historial y saldo.
type failingLines struct {
	repository.InvoiceLineRepository
}

func (failingLines) UpdateDiscount(context.Context, *entity.InvoiceLine) error {
	return errors.New("disco lleno")
}

type failingRunner struct {
	inner *sqlstore.TxRunner
}

func (r failingRunner) RunApplication(ctx context.Context, fn func(repository.CreditNoteRepository, repository.InvoiceLineRepository, repository.ApplicationRepository) error) error {
	return r.inner.RunApplication(ctx, func(n repository.CreditNoteRepository, l repository.InvoiceLineRepository, a repository.ApplicationRepository) error {
		return fn(n, failingLines{l}, a)
	})
}

func TestApplyAll_FalloRevierteTodo(t *testing.T) {
	f := setup(t)
	n := f.note(t, "NH1", "C1", "P", day(1), "5000", "1")
	l := f.line(t, "FME17", "C1", "P", 0, "10", "100000")

	applicator := creditnote.NewApplicator(f.notes, failingRunner{inner: sqlstore.NewTxRunner(f.db)}, logger.Nop())
	sum := applicator.ApplyAll(ctx, []*entity.InvoiceLine{l})
	assert.Equal(t, 1, sum.Failures)
	assert.Zero(t, sum.Applications)

	got := f.reload(t, n)
	assert.Equal(t, entity.CreditNotePending, got.State)
	assert.True(t, got.PendingValue.Equal(dec("5000")))
	history, err := f.apps.ListByCreditNoteID(ctx, n.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.True(t, l.RemainingValue.Equal(dec("100000")))
	assert.Nil(t, l.AppliedCreditNoteNumber)
}

func TestApply_ClienteDistintoEsInvalido(t *testing.T) {
	f := setup(t)
	n := f.note(t, "NI1", "C1", "P", day(1), "5000", "1")
	f.line(t, "FME18", "C2", "P", 0, "10", "100000")

	_, err := f.applicator.Apply(ctx, creditnote.ApplyCommand{
		CreditNoteID: n.ID,
		Line:         repository.InvoiceLineKey{InvoiceNumber: "FME18", ProductCode: "P", ProcessingDate: processDate},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestApply_NotaYaAplicadaEsObsoleta(t *testing.T) {
	f := setup(t)
	n := f.note(t, "NJ1", "C1", "P", day(1), "5000", "1")
	f.line(t, "FME19", "C1", "P", 0, "10", "100000")
	cmd := creditnote.ApplyCommand{
		CreditNoteID: n.ID,
		Line:         repository.InvoiceLineKey{InvoiceNumber: "FME19", ProductCode: "P", ProcessingDate: processDate},
	}

	_, err := f.applicator.Apply(ctx, cmd)
	require.NoError(t, err)
	_, err = f.applicator.Apply(ctx, cmd)
	assert.ErrorIs(t, err, domain.ErrStaleCreditNote)
}
