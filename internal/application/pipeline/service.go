package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cipa-correagro/notas-credito/internal/application/creditnote"
	"github.com/cipa-correagro/notas-credito/internal/domain"
	"github.com/cipa-correagro/notas-credito/internal/domain/document"
	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
	"github.com/cipa-correagro/notas-credito/internal/domain/repository"
	"github.com/cipa-correagro/notas-credito/internal/domain/rules"
	"github.com/cipa-correagro/notas-credito/pkg/logger"
)

// AcceptedLine línea aceptada: la fila normalizada y su estado persistido tras aplicar notas.
type AcceptedLine struct {
	Source document.Line
	Stored *entity.InvoiceLine
}

// DayResult resultado de procesar una fecha.
type DayResult struct {
	Date     time.Time
	Run      *entity.IngestionRun
	Accepted []AcceptedLine
	Rejected []rules.Rejection
	Applied  creditnote.Summary
}

// Service orquesta fetch -> normalización -> reglas -> almacén -> aplicación de notas.
type Service struct {
	fetcher    Fetcher
	tx         TxRunner
	notes      repository.CreditNoteRepository
	runs       repository.IngestionRunRepository
	filter     *rules.Filter
	applicator Applier
	log        *logger.Logger
	now        func() time.Time
}

// Option configura el Service.
type Option func(*Service)

// WithClock reloj inyectable (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRunRepository registra cada corrida en el historial.
func WithRunRepository(runs repository.IngestionRunRepository) Option {
	return func(s *Service) { s.runs = runs }
}

// NewService construye el pipeline. Store y Applicator se comparten entre días.
func NewService(
	fetcher Fetcher,
	tx TxRunner,
	notes repository.CreditNoteRepository,
	filter *rules.Filter,
	applicator Applier,
	log *logger.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		fetcher:    fetcher,
		tx:         tx,
		notes:      notes,
		filter:     filter,
		applicator: applicator,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	return s
}

// RunDay procesa una fecha. Solo un ERP no disponible aborta el día; los fallos del
// almacén se cuentan por línea y la corrida queda "partial".
func (s *Service) RunDay(ctx context.Context, date time.Time) (*DayResult, error) {
	date = document.CivilDate(date)
	run := &entity.IngestionRun{
		RunID:          uuid.NewString(),
		ProcessingDate: date,
		Status:         entity.RunSuccess,
		StartedAt:      s.now(),
	}
	log := s.log.WithFields(map[string]any{"run_id": run.RunID, "date": date.Format("2006-01-02")})
	result := &DayResult{Date: date, Run: run}

	rows, err := s.fetcher.Fetch(ctx, date, date)
	if err != nil {
		run.Status = entity.RunFailure
		run.Error = err.Error()
		s.finish(ctx, log, run)
		if !errors.Is(err, domain.ErrUpstreamUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
		}
		return result, err
	}
	run.Fetched = len(rows)

	lines, failures := document.NormalizeBatch(rows, s.now())
	run.Normalized = len(lines)
	run.NormalizationFailed = len(failures)
	for _, ferr := range failures {
		ev := log.Warn().Err(ferr)
		var docErr *domain.DocumentError
		if errors.As(ferr, &docErr) {
			ev = ev.Str("doc", docErr.DocumentID)
		}
		ev.Msg("fila descartada en normalización")
	}

	part := s.filter.Apply(lines)
	result.Rejected = part.Rejected
	run.Rejected = len(part.Rejected)

	s.storeRejected(ctx, log, run, date, part.Rejected)
	s.storeCreditNotes(ctx, log, run, part.CreditNotes)
	result.Accepted = s.storeAccepted(ctx, log, run, date, part.Accepted)
	run.Accepted = len(result.Accepted)
	s.touchInventoryTypes(ctx, log, run, lines)

	stored := make([]*entity.InvoiceLine, len(result.Accepted))
	for i := range result.Accepted {
		stored[i] = result.Accepted[i].Stored
	}
	result.Applied = s.applicator.ApplyAll(ctx, stored)
	run.Applications = result.Applied.Applications
	run.StoreFailures += result.Applied.Failures

	if run.StoreFailures > 0 {
		run.Status = entity.RunPartial
	}
	s.finish(ctx, log, run)
	log.Info().
		Int("fetched", run.Fetched).
		Int("accepted", run.Accepted).
		Int("rejected", run.Rejected).
		Int("notes_created", run.NotesCreated).
		Int("applications", run.Applications).
		Str("status", run.Status).
		Msg("fecha procesada")
	return result, nil
}

// RunRange procesa [from, to] día a día. La cancelación se revisa antes de cada día;
// un día con el ERP caído queda registrado y el rango continúa.
func (s *Service) RunRange(ctx context.Context, from, to time.Time) ([]*DayResult, error) {
	from, to = document.CivilDate(from), document.CivilDate(to)
	if to.Before(from) {
		return nil, fmt.Errorf("rango inválido %s..%s: %w", from.Format("2006-01-02"), to.Format("2006-01-02"), domain.ErrInvalidInput)
	}
	var results []*DayResult
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.RunDay(ctx, d)
		if err != nil {
			if errors.Is(err, domain.ErrUpstreamUnavailable) {
				s.log.Error().Err(err).Str("date", d.Format("2006-01-02")).Msg("día omitido: ERP no disponible")
				results = append(results, res)
				continue
			}
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Service) storeRejected(ctx context.Context, log *logger.Logger, run *entity.IngestionRun, date time.Time, rejected []rules.Rejection) {
	now := s.now()
	for _, r := range rejected {
		row := toRejectedLine(r, date, now)
		err := s.tx.RunIngestion(ctx, func(_ repository.InvoiceLineRepository, repo repository.RejectedLineRepository, _ repository.InventoryTypeRepository) error {
			return repo.Insert(ctx, row)
		})
		if err != nil {
			run.StoreFailures++
			log.Error().Err(err).Str("doc", r.Line.DocumentID).Str("reason", string(r.Reason)).Msg("no se pudo registrar rechazo")
			continue
		}
		log.Debug().Str("doc", r.Line.DocumentID).Str("reason", string(r.Reason)).Str("detail", r.Detail).Msg("línea rechazada")
	}
}

func (s *Service) storeCreditNotes(ctx context.Context, log *logger.Logger, run *entity.IngestionRun, notes []document.Line) {
	now := s.now()
	for _, l := range notes {
		note := toCreditNote(l, now)
		outcome, err := s.notes.InsertOrSkip(ctx, note)
		if err != nil {
			run.StoreFailures++
			log.Error().Err(err).Str("doc", l.DocumentID).Msg("no se pudo guardar nota crédito")
			continue
		}
		switch outcome {
		case repository.InsertCreated:
			run.NotesCreated++
		case repository.InsertDuplicate:
			run.NotesDuplicate++
		case repository.InsertFiltered:
			run.NotesFiltered++
			log.Info().Err(domain.ErrCreditNoteFiltered).
				Str("doc", l.DocumentID).Str("product", l.ProductCode).
				Str("reason", note.Admission()).Msg("nota crédito no admitida")
		}
	}
}

func (s *Service) storeAccepted(ctx context.Context, log *logger.Logger, run *entity.IngestionRun, date time.Time, accepted []document.Line) []AcceptedLine {
	now := s.now()
	out := make([]AcceptedLine, 0, len(accepted))
	for _, l := range accepted {
		line := toInvoiceLine(l, date, now)
		err := s.tx.RunIngestion(ctx, func(repo repository.InvoiceLineRepository, _ repository.RejectedLineRepository, _ repository.InventoryTypeRepository) error {
			return repo.Upsert(ctx, line)
		})
		if errors.Is(err, domain.ErrConflict) {
			// La línea ya tiene descuentos mayores que lo reingresado: se conserva lo guardado.
			log.Warn().Err(err).Str("doc", l.DocumentID).Int("line_index", l.LineIndex).Msg("reingesta por debajo del descuento aplicado")
			out = append(out, AcceptedLine{Source: l, Stored: line})
			continue
		}
		if err != nil {
			run.StoreFailures++
			log.Error().Err(err).Str("doc", l.DocumentID).Int("line_index", l.LineIndex).Msg("no se pudo guardar línea de factura")
			continue
		}
		out = append(out, AcceptedLine{Source: l, Stored: line})
	}
	return out
}

// touchInventoryTypes registra los tipos vistos en el lote (contando documentos distintos).
func (s *Service) touchInventoryTypes(ctx context.Context, log *logger.Logger, run *entity.IngestionRun, lines []document.Line) {
	seen := make(map[string]*entity.InventoryType)
	docs := make(map[string]map[string]struct{})
	for _, l := range lines {
		if l.InventoryType == "" {
			continue
		}
		t, ok := seen[l.InventoryType]
		if !ok {
			t = &entity.InventoryType{Code: l.InventoryType, Excluded: rules.IsExcluded(l.InventoryType)}
			seen[l.InventoryType] = t
			docs[l.InventoryType] = make(map[string]struct{})
		}
		if t.Description == "" {
			t.Description = l.InventoryTypeDesc
		}
		docs[l.InventoryType][l.DocumentID] = struct{}{}
	}
	if len(seen) == 0 {
		return
	}
	codes := make([]string, 0, len(seen))
	for code, t := range seen {
		t.InvoicesSeen = len(docs[code])
		codes = append(codes, code)
	}
	sort.Strings(codes)

	now := s.now()
	err := s.tx.RunIngestion(ctx, func(_ repository.InvoiceLineRepository, _ repository.RejectedLineRepository, types repository.InventoryTypeRepository) error {
		for _, code := range codes {
			if err := types.Touch(ctx, seen[code], now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		run.StoreFailures++
		log.Error().Err(err).Msg("no se pudo actualizar el registro de tipos de inventario")
	}
}

func (s *Service) finish(ctx context.Context, log *logger.Logger, run *entity.IngestionRun) {
	run.FinishedAt = s.now()
	if s.runs == nil {
		return
	}
	if err := s.runs.Insert(ctx, run); err != nil {
		log.Error().Err(err).Msg("no se pudo registrar la corrida")
	}
}
