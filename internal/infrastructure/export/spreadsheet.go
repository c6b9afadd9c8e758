// Package export genera la planilla de operaciones de facturas aceptadas.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/cipa-correagro/notas-credito/internal/application/pipeline"
	"github.com/cipa-correagro/notas-credito/internal/domain/document"
)

// Datos fijos del vendedor en la planilla.
const (
	SellerTaxID      = "890907163"
	SellerName       = "COMPAÑIA INDUSTRIAL DE PRODUCTOS AGROPECUARIOS S.A"
	UnderlyingCode   = "SPN-1"
	dateLayout       = "2006-01-02"
	decimalPlaces    = 5
	fileNameTemplate = "facturas_%s.xlsx"

	// SheetName hoja única del libro.
	SheetName    = "Facturas"
	defaultSheet = "Sheet1"
)

// ErrNoLines no hay líneas aceptadas para exportar.
var ErrNoLines = errors.New("export: sin líneas para la planilla")

// Headers columnas de la planilla en orden.
var Headers = []string{
	"N° Factura",
	"Nombre Producto",
	"Codigo Subyacente",
	"Unidad Medida en Kg,Un,Lt",
	"Cantidad (5 decimales - separdor coma)",
	"Precio Unitario (5 decimales - separdor coma)",
	"Fecha Factura Año-Mes-Dia",
	"Fecha Pago Año-Mes-Dia",
	"Nit Comprador (Existente)",
	"Nombre Comprador",
	"Nit Vendedor (Existente)",
	"Nombre Vendedor",
	"Principal V,C",
	"Municipio (Nombre Exacto de la Ciudad)",
	"Iva (N°%)",
	"Descripción",
	"Activa Factura",
	"Activa Bodega",
	"Incentivo",
	"Cantidad Original (5 decimales - separdor coma)",
	"Moneda (1,2,3)",
	"UM Base",
	"Valor Total",
}

// Records filas de la planilla, encabezado incluido.
func Records(lines []pipeline.AcceptedLine) [][]string {
	out := make([][]string, 0, len(lines)+1)
	out = append(out, Headers)
	for _, l := range lines {
		out = append(out, record(l))
	}
	return out
}

func record(l pipeline.AcceptedLine) []string {
	src := l.Source
	converted := src.ConvertedQuantity()
	price := decimal.Zero
	if !converted.IsZero() {
		price = src.Total.Div(converted)
	}

	description := src.InventoryTypeDesc
	if l.Stored != nil && l.Stored.AppliedCreditNoteNumber != nil {
		description = strings.TrimSpace(description + " | Nota crédito " + *l.Stored.AppliedCreditNoteNumber)
	}

	due := ""
	if !src.PaymentDueDate.IsZero() {
		due = src.PaymentDueDate.Format(dateLayout)
	}

	return []string{
		src.DocumentID,
		src.ProductName,
		UnderlyingCode,
		document.NormalizeUnit(src.InventoryUnit),
		number(converted),
		number(price),
		src.Date.Format(dateLayout),
		due,
		src.CustomerTaxID,
		src.CustomerName,
		SellerTaxID,
		SellerName,
		"V",
		document.ExtractCity(src.ShipToCity),
		document.ExtractVAT(src.TaxGroup),
		description,
		"1",
		"1",
		"",
		number(src.Quantity),
		"1",
		src.BaseUnit,
		number(src.Total),
	}
}

// number cinco decimales con coma como separador decimal.
func number(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(decimalPlaces), ".", ",", 1)
}

// Frame arma la planilla como DataFrame de gota; todas las columnas se tratan como texto.
func Frame(lines []pipeline.AcceptedLine) (dataframe.DataFrame, error) {
	if len(lines) == 0 {
		return dataframe.DataFrame{}, ErrNoLines
	}
	df := dataframe.LoadRecords(Records(lines), dataframe.DetectTypes(false), dataframe.HasHeader(true))
	if df.Err != nil {
		return df, fmt.Errorf("export: construir dataframe: %w", df.Err)
	}
	return df, nil
}

// WriteXLSX escribe la planilla como libro Excel con una hoja.
func WriteXLSX(w io.Writer, lines []pipeline.AcceptedLine) error {
	df, err := Frame(lines)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(defaultSheet, SheetName); err != nil {
		return fmt.Errorf("export: nombrar hoja: %w", err)
	}
	for i, rec := range df.Records() {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("export: celda fila %d: %w", i+1, err)
		}
		row := make([]any, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("export: escribir fila %d: %w", i+1, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: escribir XLSX: %w", err)
	}
	return nil
}

// WriteFile guarda la planilla de la fecha en dir y devuelve la ruta.
func WriteFile(dir string, date time.Time, lines []pipeline.AcceptedLine) (string, error) {
	if len(lines) == 0 {
		return "", ErrNoLines
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: crear directorio: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf(fileNameTemplate, date.Format("20060102")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("export: crear archivo: %w", err)
	}
	defer f.Close()

	if err := WriteXLSX(f, lines); err != nil {
		return "", err
	}
	return path, nil
}
