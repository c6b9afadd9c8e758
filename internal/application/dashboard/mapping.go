package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/cipa-correagro/notas-credito/internal/application/dto"
	"github.com/cipa-correagro/notas-credito/internal/domain"
	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
)

const dateLayout = "2006-01-02"

func parseDate(field, raw string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s debe ser YYYY-MM-DD", domain.ErrInvalidInput, field)
	}
	return d, nil
}

func optionalDate(field, raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := parseDate(field, raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func timestampPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func datePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func toCreditNoteDTO(n *entity.CreditNote) dto.CreditNoteDTO {
	return dto.CreditNoteDTO{
		ID:              n.ID,
		Number:          n.Number,
		NoteDate:        n.NoteDate.Format(dateLayout),
		CustomerTaxID:   n.CustomerTaxID,
		CustomerName:    n.CustomerName,
		ProductCode:     n.ProductCode,
		ProductName:     n.ProductName,
		InventoryType:   n.InventoryType,
		TotalValue:      n.TotalValue,
		TotalQuantity:   n.TotalQuantity,
		PendingValue:    n.PendingValue,
		PendingQuantity: n.PendingQuantity,
		ReturnCause:     n.ReturnCause,
		State:           string(n.State),
		CreatedAt:       n.CreatedAt.UTC().Format(time.RFC3339),
		FullyAppliedAt:  timestampPtr(n.FullyAppliedAt),
	}
}

func toApplicationDTOs(apps []*entity.CreditNoteApplication) []dto.ApplicationDTO {
	out := make([]dto.ApplicationDTO, 0, len(apps))
	for _, a := range apps {
		out = append(out, dto.ApplicationDTO{
			ID:               a.ID,
			CreditNoteID:     a.CreditNoteID,
			CreditNoteNumber: a.CreditNoteNumber,
			InvoiceNumber:    a.InvoiceNumber,
			LineIndex:        a.LineIndex,
			InvoiceDate:      a.InvoiceDate.Format(dateLayout),
			ProcessingDate:   a.ProcessingDate.Format(dateLayout),
			CustomerTaxID:    a.CustomerTaxID,
			ProductCode:      a.ProductCode,
			AppliedQuantity:  a.AppliedQuantity,
			AppliedValue:     a.AppliedValue,
			AppliedAt:        a.AppliedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func toInvoiceLineDTO(l *entity.InvoiceLine) dto.InvoiceLineDTO {
	return dto.InvoiceLineDTO{
		ID:                      l.ID,
		InvoiceNumber:           l.InvoiceNumber,
		LineIndex:               l.LineIndex,
		ProcessingDate:          l.ProcessingDate.Format(dateLayout),
		InvoiceDate:             l.InvoiceDate.Format(dateLayout),
		CustomerTaxID:           l.CustomerTaxID,
		CustomerName:            l.CustomerName,
		ProductCode:             l.ProductCode,
		ProductName:             l.ProductName,
		InventoryType:           l.InventoryType,
		OriginalQuantity:        l.OriginalQuantity,
		UnitPrice:               l.UnitPrice,
		LineTotal:               l.LineTotal,
		AppliedCreditNoteNumber: l.AppliedCreditNoteNumber,
		AppliedDiscountQuantity: l.AppliedDiscountQuantity,
		AppliedDiscountValue:    l.AppliedDiscountValue,
		RemainingQuantity:       l.RemainingQuantity,
		RemainingValue:          l.RemainingValue,
		Status:                  l.Status,
		PaymentDueDate:          datePtr(l.PaymentDueDate),
	}
}

func toRunDTO(r *entity.IngestionRun) dto.IngestionRunDTO {
	return dto.IngestionRunDTO{
		RunID:               r.RunID,
		ProcessingDate:      r.ProcessingDate.Format(dateLayout),
		Status:              r.Status,
		Fetched:             r.Fetched,
		Normalized:          r.Normalized,
		NormalizationFailed: r.NormalizationFailed,
		Accepted:            r.Accepted,
		Rejected:            r.Rejected,
		NotesCreated:        r.NotesCreated,
		NotesDuplicate:      r.NotesDuplicate,
		NotesFiltered:       r.NotesFiltered,
		Applications:        r.Applications,
		StoreFailures:       r.StoreFailures,
		Error:               r.Error,
		StartedAt:           r.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:          r.FinishedAt.UTC().Format(time.RFC3339),
	}
}
