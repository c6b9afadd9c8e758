package rules

import "github.com/cipa-correagro/notas-credito/internal/domain/document"

// excludedTypes tipos de inventario que no se reportan (ventas menores, fletes, descuentos, medicados).
var excludedTypes = map[string]struct{}{
	"VSMENORCC":  {},
	"VS4205101":  {},
	"INVMEDICAD": {},
	"INV1430051": {},
	"VS42100501": {},
	"VS420515":   {},
	"VS42051003": {},
	"VS420510":   {},
	"VSMENOR":    {},
	"INVFLETEPT": {},
	"VSMENOR5%":  {},
	"VS42505090": {},
	"INVFLETGEN": {},
	"INV144542":  {},
	"INV144554":  {},
	"VSMAY-MECC": {},
	"VSMAY-MECP": {},
	"VSMAY-GEN":  {},
	"DESCESPEC":  {},
	"DESCUENTO":  {},
	"INV144562":  {},
	"VS425050":   {},
	"VS41200822": {},
	"INV1460":    {},
	"VS41200819": {},
}

// IsExcluded compara sobre la representación normalizada.
func IsExcluded(inventoryType string) bool {
	_, ok := excludedTypes[document.NormalizeInventoryType(inventoryType)]
	return ok
}

// ExcludedTypes copia del conjunto fijo, sin orden.
func ExcludedTypes() []string {
	out := make([]string, 0, len(excludedTypes))
	for t := range excludedTypes {
		out = append(out, t)
	}
	return out
}
