package creditnote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cipa-correagro/notas-credito/internal/domain"
	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
	"github.com/cipa-correagro/notas-credito/internal/domain/repository"
	"github.com/cipa-correagro/notas-credito/pkg/logger"
)

// DefaultEpsilon tolerancia (en moneda local) para dar una nota por aplicada.
var DefaultEpsilon = decimal.RequireFromString("0.01")

// ApplyCommand aplica el saldo completo de una nota sobre una línea direccionada por clave.
type ApplyCommand struct {
	CreditNoteID int64
	Line         repository.InvoiceLineKey
}

// ApplyResult estado de las tres filas después del commit.
type ApplyResult struct {
	Application *entity.CreditNoteApplication
	Note        *entity.CreditNote
	Line        *entity.InvoiceLine
}

// Summary contadores de ApplyAll.
type Summary struct {
	LinesExamined   int
	LinesSkipped    int // sin cliente o producto
	Applications    int
	AppliedValue    decimal.Decimal
	AppliedQuantity decimal.Decimal
	Failures        int
}

// Applicator empareja notas pendientes con líneas de factura recién ingresadas.
type Applicator struct {
	finder  PendingFinder
	tx      TxRunner
	log     *logger.Logger
	epsilon decimal.Decimal
	now     func() time.Time
}

// Option configura el Applicator.
type Option func(*Applicator)

// WithEpsilon reemplaza la tolerancia de estado APPLIED.
func WithEpsilon(eps decimal.Decimal) Option {
	return func(a *Applicator) { a.epsilon = eps }
}

// WithClock reloj inyectable (tests).
func WithClock(now func() time.Time) Option {
	return func(a *Applicator) { a.now = now }
}

// NewApplicator construye el caso de uso.
func NewApplicator(finder PendingFinder, tx TxRunner, log *logger.Logger, opts ...Option) *Applicator {
	a := &Applicator{
		finder:  finder,
		tx:      tx,
		log:     log,
		epsilon: DefaultEpsilon,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Nop()
	}
	return a
}

// ApplyAll recorre las líneas en orden y aplica cada nota candidata admisible.
// Las líneas se actualizan en memoria tras cada aplicación confirmada.
func (a *Applicator) ApplyAll(ctx context.Context, lines []*entity.InvoiceLine) Summary {
	sum := Summary{AppliedValue: decimal.Zero, AppliedQuantity: decimal.Zero}
	for _, line := range lines {
		sum.LinesExamined++
		if line.CustomerTaxID == "" || line.ProductCode == "" {
			sum.LinesSkipped++
			continue
		}
		if err := a.applyLine(ctx, line, &sum); err != nil {
			sum.Failures++
			a.log.Error().Err(err).
				Str("doc", line.InvoiceNumber).
				Int("line_index", line.LineIndex).
				Str("product", line.ProductCode).
				Msg("aplicación de notas abortada para la línea")
		}
	}
	return sum
}

func (a *Applicator) applyLine(ctx context.Context, line *entity.InvoiceLine, sum *Summary) error {
	candidates, err := a.finder.FindPending(ctx, line.CustomerTaxID, line.ProductCode)
	if err != nil {
		return fmt.Errorf("buscar notas pendientes: %w", err)
	}
	for _, note := range candidates {
		if note.CustomerTaxID != line.CustomerTaxID || note.ProductCode != line.ProductCode {
			continue
		}
		if !consumable(note) {
			a.log.Debug().
				Str("doc", line.InvoiceNumber).
				Str("note", note.Number).
				Str("pending_value", note.PendingValue.String()).
				Str("pending_quantity", note.PendingQuantity.String()).
				Msg("nota sin cantidad o valor pendiente")
			continue
		}
		if !line.CanAbsorb(note.PendingValue, note.PendingQuantity) {
			a.log.Debug().
				Str("doc", line.InvoiceNumber).
				Str("note", note.Number).
				Str("pending_value", note.PendingValue.String()).
				Str("remaining_value", line.RemainingValue.String()).
				Msg("nota no admisible para la línea")
			continue
		}

		idx := line.LineIndex
		res, err := a.Apply(ctx, ApplyCommand{
			CreditNoteID: note.ID,
			Line: repository.InvoiceLineKey{
				InvoiceNumber:  line.InvoiceNumber,
				ProductCode:    line.ProductCode,
				LineIndex:      &idx,
				ProcessingDate: line.ProcessingDate,
			},
		})
		if errors.Is(err, domain.ErrInsufficientBalance) || errors.Is(err, domain.ErrStaleCreditNote) {
			a.log.Warn().Err(err).Str("doc", line.InvoiceNumber).Str("note", note.Number).Msg("nota omitida")
			continue
		}
		if err != nil {
			return fmt.Errorf("aplicar nota %s: %w", note.Number, err)
		}

		*line = *res.Line
		sum.Applications++
		sum.AppliedValue = sum.AppliedValue.Add(res.Application.AppliedValue)
		sum.AppliedQuantity = sum.AppliedQuantity.Add(res.Application.AppliedQuantity)
		a.log.Info().
			Str("doc", line.InvoiceNumber).
			Int("line_index", line.LineIndex).
			Str("note", note.Number).
			Str("value", res.Application.AppliedValue.String()).
			Str("state", string(res.Note.State)).
			Msg("nota crédito aplicada")
	}
	return nil
}

// Apply consume el saldo pendiente completo de la nota sobre la línea en una sola transacción:
// historial, saldo de la nota y descuento de la línea. Cualquier error deja las tres filas intactas.
func (a *Applicator) Apply(ctx context.Context, cmd ApplyCommand) (*ApplyResult, error) {
	var res ApplyResult
	err := a.tx.RunApplication(ctx, func(
		notes repository.CreditNoteRepository,
		lines repository.InvoiceLineRepository,
		apps repository.ApplicationRepository,
	) error {
		note, err := notes.GetByID(ctx, cmd.CreditNoteID)
		if err != nil {
			return err
		}
		if note.State == entity.CreditNoteApplied || !note.PendingValue.IsPositive() {
			return domain.ErrStaleCreditNote
		}
		line, err := lines.GetByKey(ctx, cmd.Line)
		if err != nil {
			return err
		}
		if note.CustomerTaxID != line.CustomerTaxID || note.ProductCode != line.ProductCode {
			return fmt.Errorf("nota %s y factura %s no coinciden en cliente/producto: %w",
				note.Number, line.InvoiceNumber, domain.ErrInvalidInput)
		}
		if !consumable(note) || !line.CanAbsorb(note.PendingValue, note.PendingQuantity) {
			return domain.ErrInsufficientBalance
		}

		now := a.now()
		value, quantity, expected := note.PendingValue, note.PendingQuantity, note.PendingValue
		app := &entity.CreditNoteApplication{
			CreditNoteID:     note.ID,
			CreditNoteNumber: note.Number,
			InvoiceLineID:    line.ID,
			InvoiceNumber:    line.InvoiceNumber,
			LineIndex:        line.LineIndex,
			InvoiceDate:      line.InvoiceDate,
			ProcessingDate:   line.ProcessingDate,
			CustomerTaxID:    line.CustomerTaxID,
			ProductCode:      line.ProductCode,
			AppliedQuantity:  quantity,
			AppliedValue:     value,
			AppliedAt:        now,
		}
		if err := apps.Insert(ctx, app); err != nil {
			return err
		}

		note.Consume(value, quantity, now, a.epsilon)
		if err := notes.UpdateBalance(ctx, note, expected); err != nil {
			return err
		}

		line.ApplyDiscount(note.Number, quantity, value)
		if err := lines.UpdateDiscount(ctx, line); err != nil {
			return err
		}

		res = ApplyResult{Application: app, Note: note, Line: line}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// consumable exige cantidad y valor pendientes positivos: una aplicación nunca registra cantidad 0.
func consumable(note *entity.CreditNote) bool {
	return note.PendingValue.IsPositive() && note.PendingQuantity.IsPositive()
}
