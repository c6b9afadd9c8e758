package pipeline

import (
	"time"

	"github.com/cipa-correagro/notas-credito/internal/domain/document"
	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
	"github.com/cipa-correagro/notas-credito/internal/domain/rules"
)

func toInvoiceLine(l document.Line, processingDate, now time.Time) *entity.InvoiceLine {
	due := l.PaymentDueDate
	line := &entity.InvoiceLine{
		InvoiceNumber:    l.DocumentID,
		LineIndex:        l.LineIndex,
		ProcessingDate:   processingDate,
		InvoiceDate:      l.Date,
		CustomerTaxID:    l.CustomerTaxID,
		CustomerName:     l.CustomerName,
		ProductCode:      l.ProductCode,
		ProductName:      l.ProductName,
		InventoryType:    l.InventoryType,
		OriginalQuantity: l.Quantity,
		UnitPrice:        l.UnitPrice,
		LineTotal:        l.Total,
		Status:           entity.InvoiceLineProcessed,
		CreatedAt:        now,
	}
	if !due.IsZero() {
		line.PaymentDueDate = &due
	}
	line.Recompute()
	return line
}

func toCreditNote(l document.Line, now time.Time) *entity.CreditNote {
	note := &entity.CreditNote{
		Number:        l.DocumentID,
		NoteDate:      l.Date,
		CustomerTaxID: l.CustomerTaxID,
		CustomerName:  l.CustomerName,
		ProductCode:   l.ProductCode,
		ProductName:   l.ProductName,
		InventoryType: l.InventoryType,
		TotalValue:    l.Total,
		TotalQuantity: l.Quantity,
		State:         entity.CreditNotePending,
		CreatedAt:     now,
	}
	if l.ReturnCause != "" {
		cause := l.ReturnCause
		note.ReturnCause = &cause
	}
	return note
}

func toRejectedLine(r rules.Rejection, processingDate, now time.Time) *entity.RejectedLine {
	return &entity.RejectedLine{
		InvoiceNumber:  r.Line.DocumentID,
		LineIndex:      r.Line.LineIndex,
		ProcessingDate: processingDate,
		InvoiceDate:    r.Line.Date,
		CustomerTaxID:  r.Line.CustomerTaxID,
		CustomerName:   r.Line.CustomerName,
		ProductCode:    r.Line.ProductCode,
		ProductName:    r.Line.ProductName,
		InventoryType:  r.Line.InventoryType,
		LineTotal:      r.Line.Total,
		InvoiceTotal:   r.InvoiceTotal,
		Reason:         r.Reason,
		Detail:         r.Detail,
		RejectedAt:     now,
	}
}
