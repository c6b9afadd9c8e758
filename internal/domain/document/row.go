package document

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Row fila cruda de la consulta Api_Consulta_Fac_Correagro.
// El ERP mezcla números y strings en los mismos campos; Text y Number aceptan ambos.
type Row struct {
	Prefix            Text   `json:"f_prefijo"`
	Number            Text   `json:"f_nrodocto"`
	Date              Text   `json:"f_fecha"`
	CustomerTaxID     Text   `json:"f_cliente_desp"`
	CustomerName      Text   `json:"f_cliente_fact_razon_soc"`
	ItemCode          Text   `json:"f_cod_item"`
	ItemDescription   Text   `json:"f_desc_item"`
	InventoryType     Text   `json:"f_tipo_inv"`
	InventoryTypeCode Text   `json:"f_cod_tipo_inv"`
	InventoryTypeDesc Text   `json:"f_desc_tipo_inv"`
	Quantity          Number `json:"f_cant_base"`
	Subtotal          Number `json:"f_valor_subtotal_local"`
	UnitPrice         Number `json:"f_precio_unit_docto"`
	BaseUnit          Text   `json:"f_um_base"`
	InventoryUnit     Text   `json:"f_um_inv_desc"`
	PaymentTerms      Text   `json:"f_desc_cond_pago"`
	TaxGroup          Text   `json:"f_desc_grupo_impositivo"`
	ShipToCity        Text   `json:"f_ciudad_punto_envio"`
	ReturnCause       Text   `json:"f_notas_causal_dev"`
}

// Text campo de texto tolerante: string, número o null.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(b)
	return nil
}

// Trim devuelve el valor sin espacios alrededor.
func (t Text) Trim() string { return strings.TrimSpace(string(t)) }

// Number campo numérico tolerante. Se conserva el literal y se parsea al normalizar.
type Number struct {
	Raw  string
	Null bool
}

// NumberOf construye un Number desde un literal (tests y fixtures).
func NumberOf(raw string) Number { return Number{Raw: raw} }

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = Number{Null: true}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Number{Raw: s}
		return nil
	}
	*n = Number{Raw: string(b)}
	return nil
}

// Decimal parsea el literal; null, ausente o vacío valen 0.
func (n Number) Decimal() (decimal.Decimal, error) {
	s := strings.TrimSpace(n.Raw)
	if n.Null || s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// Present indica si el ERP envió un valor no vacío.
func (n Number) Present() bool {
	return !n.Null && strings.TrimSpace(n.Raw) != ""
}
