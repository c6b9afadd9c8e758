package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cipa-correagro/notas-credito/internal/domain"
)

const dateLayout = "2006-01-02"

// Line documento normalizado: una línea de factura o de nota crédito.
// Valores y cantidades de notas crédito quedan en valor absoluto.
type Line struct {
	DocumentID string
	Prefix     string
	CreditNote bool
	LineIndex  int
	Date       time.Time

	CustomerTaxID string
	CustomerName  string
	ProductCode   string
	ProductName   string

	InventoryType     string
	InventoryTypeDesc string

	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Total     decimal.Decimal

	BaseUnit      string
	InventoryUnit string
	PaymentTerms  string
	TaxGroup      string
	ShipToCity    string
	ReturnCause   string

	PaymentDueDate time.Time
}

// DocumentID identificador completo: prefijo y número sin separador.
func DocumentID(prefix, number string) string {
	return strings.TrimSpace(prefix) + strings.TrimSpace(number)
}

// SplitDocumentID separa un identificador en prefijo alfabético y parte numérica.
func SplitDocumentID(id string) (prefix, number string) {
	id = strings.TrimSpace(id)
	i := strings.IndexFunc(id, func(r rune) bool { return r >= '0' && r <= '9' })
	if i < 0 {
		return id, ""
	}
	return id[:i], id[i:]
}

// IsCreditNotePrefix los prefijos de nota crédito inician con "N".
func IsCreditNotePrefix(prefix string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(prefix)), "N")
}

// NormalizeInventoryType recorta y pasa a mayúsculas; vacío permanece vacío.
func NormalizeInventoryType(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// CivilDate trunca t a medianoche UTC conservando año, mes y día.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate acepta YYYY-MM-DD con sufijo opcional de hora (T00:00:00, espacio...).
// Vacío devuelve fallback.
func ParseDate(raw string, fallback time.Time) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return CivilDate(fallback), nil
	}
	if len(s) > len(dateLayout) && (s[len(dateLayout)] == 'T' || s[len(dateLayout)] == ' ') {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("fecha inválida %q", raw)
	}
	return t, nil
}

// Normalize convierte una fila cruda en una línea tipada. today se usa para fechas ausentes.
// LineIndex queda en 0; NormalizeBatch lo asigna.
func Normalize(row Row, today time.Time) (Line, error) {
	prefix := row.Prefix.Trim()
	id := DocumentID(prefix, string(row.Number))
	if id == "" {
		return Line{}, domain.NewDocumentError(domain.ErrNormalizationFailed, id, fmt.Errorf("documento sin prefijo ni número"))
	}
	fail := func(err error) (Line, error) {
		return Line{}, domain.NewDocumentError(domain.ErrNormalizationFailed, id, err)
	}

	date, err := ParseDate(string(row.Date), today)
	if err != nil {
		return fail(err)
	}
	qty, err := row.Quantity.Decimal()
	if err != nil {
		return fail(fmt.Errorf("f_cant_base: %w", err))
	}
	total, err := row.Subtotal.Decimal()
	if err != nil {
		return fail(fmt.Errorf("f_valor_subtotal_local: %w", err))
	}

	rawType := row.InventoryTypeCode.Trim()
	if rawType == "" {
		rawType = row.InventoryType.Trim()
	}
	code := row.ItemCode.Trim()
	if code == "" {
		code = row.ItemDescription.Trim()
	}

	l := Line{
		DocumentID:        id,
		Prefix:            prefix,
		CreditNote:        IsCreditNotePrefix(prefix),
		Date:              date,
		CustomerTaxID:     row.CustomerTaxID.Trim(),
		CustomerName:      row.CustomerName.Trim(),
		ProductCode:       code,
		ProductName:       row.ItemDescription.Trim(),
		InventoryType:     NormalizeInventoryType(rawType),
		InventoryTypeDesc: row.InventoryTypeDesc.Trim(),
		BaseUnit:          row.BaseUnit.Trim(),
		InventoryUnit:     row.InventoryUnit.Trim(),
		PaymentTerms:      row.PaymentTerms.Trim(),
		TaxGroup:          row.TaxGroup.Trim(),
		ShipToCity:        row.ShipToCity.Trim(),
		ReturnCause:       row.ReturnCause.Trim(),
	}

	if l.CreditNote {
		qty, total = qty.Abs(), total.Abs()
	} else if qty.IsNegative() || total.IsNegative() {
		return fail(fmt.Errorf("línea de factura con valores negativos (cantidad %s, total %s)", qty, total))
	}
	l.Quantity, l.Total = qty, total

	price := decimal.Zero
	if row.UnitPrice.Present() {
		if price, err = row.UnitPrice.Decimal(); err != nil {
			return fail(fmt.Errorf("f_precio_unit_docto: %w", err))
		}
		price = price.Abs()
	} else if !qty.IsZero() {
		price = total.Div(qty)
	}
	l.UnitPrice = price

	l.PaymentDueDate = PaymentDueDate(date, l.PaymentTerms)
	return l, nil
}

// NormalizeBatch normaliza en orden del ERP y asigna LineIndex por documento.
// Las filas que fallan se omiten y se devuelven como errores (*domain.DocumentError).
func NormalizeBatch(rows []Row, today time.Time) ([]Line, []error) {
	lines := make([]Line, 0, len(rows))
	var errs []error
	next := make(map[string]int)
	for _, row := range rows {
		l, err := Normalize(row, today)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		l.LineIndex = next[l.DocumentID]
		next[l.DocumentID]++
		lines = append(lines, l)
	}
	return lines, errs
}
