// Package dashboard contiene los casos de uso de consulta del tablero de notas crédito.
// Todo es de solo lectura; los datos los escribe el pipeline.
package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cipa-correagro/notas-credito/internal/application/dto"
	"github.com/cipa-correagro/notas-credito/internal/domain"
	"github.com/cipa-correagro/notas-credito/internal/domain/document"
	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
	"github.com/cipa-correagro/notas-credito/internal/domain/repository"
)

// Ventanas por defecto de los resúmenes.
const (
	DefaultRejectionDays = 30
	DefaultNewTypeDays   = 7
	DefaultDailyDays     = 30
	DefaultRuns          = 20
	topExcludedTypes     = 10
)

// Repositories almacén de lectura del tablero.
type Repositories struct {
	Notes        repository.CreditNoteRepository
	Applications repository.ApplicationRepository
	Lines        repository.InvoiceLineRepository
	Rejected     repository.RejectedLineRepository
	Types        repository.InventoryTypeRepository
	Runs         repository.IngestionRunRepository
}

// UseCase consultas del tablero.
type UseCase struct {
	repos Repositories
	now   func() time.Time
}

// NewUseCase construye el caso de uso.
func NewUseCase(repos Repositories) *UseCase {
	return &UseCase{repos: repos, now: time.Now}
}

// WithClock reloj inyectable (tests).
func (uc *UseCase) WithClock(now func() time.Time) *UseCase {
	uc.now = now
	return uc
}

func (uc *UseCase) today() time.Time { return document.CivilDate(uc.now()) }

// ── Notas crédito ─────────────────────────────────────────────────────────────

// ListCreditNotes listado filtrado y paginado.
func (uc *UseCase) ListCreditNotes(ctx context.Context, q dto.CreditNoteQuery) (*dto.CreditNoteListResponse, error) {
	q.DefaultPage()
	f := repository.CreditNoteFilter{
		CustomerTaxID: strings.TrimSpace(q.CustomerTaxID),
		Limit:         q.Limit,
		Offset:        q.Offset,
	}
	if q.State != "" {
		st, err := entity.ParseCreditNoteState(strings.ToUpper(strings.TrimSpace(q.State)))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		f.State = &st
	}
	var err error
	if f.From, err = optionalDate("from", q.From); err != nil {
		return nil, err
	}
	if f.To, err = optionalDate("to", q.To); err != nil {
		return nil, err
	}

	notes, total, err := uc.repos.Notes.List(ctx, f)
	if err != nil {
		return nil, err
	}
	items := make([]dto.CreditNoteDTO, 0, len(notes))
	for _, n := range notes {
		items = append(items, toCreditNoteDTO(n))
	}
	return &dto.CreditNoteListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: q.Limit, Offset: q.Offset, Total: total},
	}, nil
}

// CreditNotesByState conteo y saldos por estado.
func (uc *UseCase) CreditNotesByState(ctx context.Context) ([]dto.StateCountDTO, error) {
	counts, err := uc.repos.Notes.CountByState(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StateCountDTO, 0, len(counts))
	for _, c := range counts {
		out = append(out, dto.StateCountDTO{
			State:        string(c.State),
			Count:        c.Count,
			TotalValue:   c.TotalValue,
			PendingValue: c.PendingValue,
		})
	}
	return out, nil
}

// CreditNoteStats resumen global de notas y aplicaciones.
func (uc *UseCase) CreditNoteStats(ctx context.Context) (*dto.CreditNoteStatsDTO, error) {
	s, err := uc.repos.Notes.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.CreditNoteStatsDTO{
		Notes:             s.Notes,
		PendingNotes:      s.PendingNotes,
		PartialNotes:      s.PartialNotes,
		AppliedNotes:      s.AppliedNotes,
		TotalValue:        s.TotalValue,
		PendingValue:      s.PendingValue,
		Applications:      s.Applications,
		AppliedValue:      s.AppliedValue,
		AppliedQuantity:   s.AppliedQuantity,
		LastApplicationAt: timestampPtr(s.LastApplicationAt),
	}, nil
}

// GetCreditNote nota con su historial. La nota y las aplicaciones se leen en paralelo.
func (uc *UseCase) GetCreditNote(ctx context.Context, id int64) (*dto.CreditNoteDetailDTO, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id de nota crédito inválido", domain.ErrInvalidInput)
	}
	type appsResult struct {
		apps []*entity.CreditNoteApplication
		err  error
	}
	appsCh := make(chan appsResult, 1)
	go func() {
		apps, err := uc.repos.Applications.ListByCreditNoteID(ctx, id)
		appsCh <- appsResult{apps, err}
	}()

	note, err := uc.repos.Notes.GetByID(ctx, id)
	apps := <-appsCh
	if err != nil {
		return nil, err
	}
	if apps.err != nil {
		return nil, apps.err
	}
	return &dto.CreditNoteDetailDTO{
		CreditNoteDTO: toCreditNoteDTO(note),
		Applications:  toApplicationDTOs(apps.apps),
	}, nil
}

// ApplicationsByNumber historial de aplicaciones de un número de nota (todas sus líneas de producto).
func (uc *UseCase) ApplicationsByNumber(ctx context.Context, number string) ([]dto.ApplicationDTO, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, fmt.Errorf("%w: número de nota vacío", domain.ErrInvalidInput)
	}
	apps, err := uc.repos.Applications.ListByCreditNoteNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return toApplicationDTOs(apps), nil
}

// ── Facturas ──────────────────────────────────────────────────────────────────

// ListInvoiceLines listado de líneas aceptadas.
func (uc *UseCase) ListInvoiceLines(ctx context.Context, q dto.InvoiceLineQuery) (*dto.InvoiceLineListResponse, error) {
	q.DefaultPage()
	f := repository.InvoiceLineFilter{
		CustomerTaxID: strings.TrimSpace(q.CustomerTaxID),
		Limit:         q.Limit,
		Offset:        q.Offset,
	}
	var err error
	if f.ProcessingDate, err = optionalDate("processing_date", q.ProcessingDate); err != nil {
		return nil, err
	}
	if q.WithNote != "" {
		b, err := strconv.ParseBool(q.WithNote)
		if err != nil {
			return nil, fmt.Errorf("%w: with_note %q", domain.ErrInvalidInput, q.WithNote)
		}
		f.WithCreditNote = &b
	}

	lines, total, err := uc.repos.Lines.List(ctx, f)
	if err != nil {
		return nil, err
	}
	items := make([]dto.InvoiceLineDTO, 0, len(lines))
	for _, l := range lines {
		items = append(items, toInvoiceLineDTO(l))
	}
	return &dto.InvoiceLineListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: q.Limit, Offset: q.Offset, Total: total},
	}, nil
}

// DailyInvoices resumen por fecha de proceso. Sin rango: últimos DefaultDailyDays días.
func (uc *UseCase) DailyInvoices(ctx context.Context, from, to string) ([]dto.DailyInvoiceSummaryDTO, error) {
	end := uc.today()
	if to != "" {
		d, err := parseDate("to", to)
		if err != nil {
			return nil, err
		}
		end = d
	}
	start := end.AddDate(0, 0, -DefaultDailyDays)
	if from != "" {
		d, err := parseDate("from", from)
		if err != nil {
			return nil, err
		}
		start = d
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: rango %s..%s", domain.ErrInvalidInput, start.Format(dateLayout), end.Format(dateLayout))
	}

	days, err := uc.repos.Lines.DailySummary(ctx, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DailyInvoiceSummaryDTO, 0, len(days))
	for _, d := range days {
		out = append(out, dto.DailyInvoiceSummaryDTO{
			ProcessingDate:  d.ProcessingDate.Format(dateLayout),
			Invoices:        d.Invoices,
			Lines:           d.Lines,
			Total:           d.Total,
			DiscountApplied: d.DiscountApplied,
			LinesWithNote:   d.LinesWithNote,
		})
	}
	return out, nil
}

// ── Rechazos, tipos y corridas ────────────────────────────────────────────────

// RejectionSummary rechazos de los últimos days días (0 usa DefaultRejectionDays).
func (uc *UseCase) RejectionSummary(ctx context.Context, days int) (*dto.RejectionSummaryDTO, error) {
	since, err := uc.since(days, DefaultRejectionDays)
	if err != nil {
		return nil, err
	}
	s, err := uc.repos.Rejected.Summary(ctx, since, topExcludedTypes)
	if err != nil {
		return nil, err
	}
	out := &dto.RejectionSummaryDTO{
		Since:            since.Format(dateLayout),
		Total:            s.Total,
		ByReason:         make([]dto.ReasonCountDTO, 0, len(s.ByReason)),
		TopExcludedTypes: make([]dto.ExcludedTypeDTO, 0, len(s.TopExcludedTypes)),
	}
	for _, r := range s.ByReason {
		out.ByReason = append(out.ByReason, dto.ReasonCountDTO{Reason: string(r.Reason), Count: r.Count, Value: r.Value})
	}
	for _, t := range s.TopExcludedTypes {
		out.TopExcludedTypes = append(out.TopExcludedTypes, dto.ExcludedTypeDTO{InventoryType: t.InventoryType, Count: t.Count, Value: t.Value})
	}
	return out, nil
}

// NewInventoryTypes tipos no excluidos vistos por primera vez en los últimos days días.
func (uc *UseCase) NewInventoryTypes(ctx context.Context, days int) ([]dto.InventoryTypeDTO, error) {
	since, err := uc.since(days, DefaultNewTypeDays)
	if err != nil {
		return nil, err
	}
	types, err := uc.repos.Types.ListNew(ctx, since)
	if err != nil {
		return nil, err
	}
	out := make([]dto.InventoryTypeDTO, 0, len(types))
	for _, t := range types {
		out = append(out, dto.InventoryTypeDTO{
			Code:         t.Code,
			Description:  t.Description,
			FirstSeenAt:  t.FirstSeenAt.UTC().Format(time.RFC3339),
			LastSeenAt:   t.LastSeenAt.UTC().Format(time.RFC3339),
			InvoicesSeen: t.InvoicesSeen,
			Excluded:     t.Excluded,
		})
	}
	return out, nil
}

// RecentRuns últimas corridas del pipeline.
func (uc *UseCase) RecentRuns(ctx context.Context, limit int) ([]dto.IngestionRunDTO, error) {
	if limit <= 0 {
		limit = DefaultRuns
	}
	runs, err := uc.repos.Runs.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.IngestionRunDTO, 0, len(runs))
	for _, r := range runs {
		out = append(out, toRunDTO(r))
	}
	return out, nil
}

func (uc *UseCase) since(days, def int) (time.Time, error) {
	if days < 0 {
		return time.Time{}, fmt.Errorf("%w: days debe ser positivo", domain.ErrInvalidInput)
	}
	if days == 0 {
		days = def
	}
	return uc.today().AddDate(0, 0, -days), nil
}
