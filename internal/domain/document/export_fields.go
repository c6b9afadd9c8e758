package document

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Unidades de medida de la planilla.
const (
	UnitKilogram = "KG"
	UnitUnit     = "UN"
	UnitLiter    = "LT"
)

var (
	vatPattern     = regexp.MustCompile(`(?i)IVA\s*(\d+)%`)
	percentPattern = regexp.MustCompile(`(\d+)%`)
)

// ExtractVAT porcentaje de IVA del grupo impositivo ("IVA 5% RTF BIENES" -> "5"). Por defecto "0".
func ExtractVAT(taxGroup string) string {
	if m := vatPattern.FindStringSubmatch(taxGroup); m != nil {
		return m[1]
	}
	if m := percentPattern.FindStringSubmatch(taxGroup); m != nil {
		return m[1]
	}
	return "0"
}

// ExtractCity nombre de ciudad de "001-Pereira".
func ExtractCity(raw string) string {
	raw = strings.TrimSpace(raw)
	if _, after, ok := strings.Cut(raw, "-"); ok {
		return strings.TrimSpace(after)
	}
	return raw
}

// NormalizeUnit reduce la unidad de inventario a KG, UN o LT.
// BULTO/BT se evalúa antes que UN porque "BULTO" contiene "UN".
func NormalizeUnit(desc string) string {
	u := strings.ToUpper(strings.TrimSpace(desc))
	switch {
	case u == "":
		return UnitUnit
	case strings.Contains(u, "BULTO"), strings.Contains(u, "BT"):
		return UnitKilogram
	case strings.Contains(u, "KILO"), strings.Contains(u, "KG"), strings.Contains(u, "KLS"):
		return UnitKilogram
	case strings.Contains(u, "LITRO"), strings.Contains(u, "LT"):
		return UnitLiter
	default:
		return UnitUnit
	}
}

// UnitMultiplier factor de la unidad base: "BT40" -> 40, "800G" -> 0.8, sin número -> 1.
func UnitMultiplier(baseUnit string) decimal.Decimal {
	m := numberPattern.FindString(baseUnit)
	if m == "" {
		return decimal.NewFromInt(1)
	}
	n, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.NewFromInt(1)
	}
	if strings.HasSuffix(strings.ToUpper(strings.TrimSpace(baseUnit)), "G") {
		return n.Div(decimal.NewFromInt(1000))
	}
	return n
}

// ConvertedQuantity cantidad en unidad de planilla (cantidad base x multiplicador).
func (l Line) ConvertedQuantity() decimal.Decimal {
	return l.Quantity.Mul(UnitMultiplier(l.BaseUnit))
}
