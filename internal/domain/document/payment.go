package document

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	daysPattern   = regexp.MustCompile(`(\d+)\s*DIAS?`)
	numberPattern = regexp.MustCompile(`\d+`)
)

// fold pasa a mayúsculas sin tildes ("30 días" -> "30 DIAS").
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(strings.TrimSpace(out))
}

// ExtractDays días de plazo de una condición de pago.
// CONTADO -> 0; "30 DIAS" -> 30; si no hay token DIA(S) se toma el primer entero; si no, 0.
func ExtractDays(terms string) int {
	s := fold(terms)
	if s == "" || strings.Contains(s, "CONTADO") {
		return 0
	}
	if m := daysPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if m := numberPattern.FindString(s); m != "" {
		n, _ := strconv.Atoi(m)
		return n
	}
	return 0
}

// PaymentDueDate fecha de factura más los días de la condición de pago.
func PaymentDueDate(invoiceDate time.Time, terms string) time.Time {
	return invoiceDate.AddDate(0, 0, ExtractDays(terms))
}
