// Package pdf genera el resumen diario del procesamiento en PDF.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Empresa + título     │  Fecha de proceso + estado   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CONTADORES: consultadas / aceptadas / rechazadas / notas    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RECHAZOS: motivo | líneas | valor                           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  APLICACIONES: factura | producto | nota | descuento | saldo │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: run id + hora de generación                         │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/cipa-correagro/notas-credito/internal/application/pipeline"
	"github.com/cipa-correagro/notas-credito/internal/domain/entity"
)

// DefaultCompany razón social impresa en el encabezado.
const DefaultCompany = "COMPAÑIA INDUSTRIAL DE PRODUCTOS AGROPECUARIOS S.A"

// ErrNoResult el resumen necesita un resultado con corrida.
var ErrNoResult = errors.New("pdf: resultado del día vacío")

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 170, Green: 30, Blue: 30}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// ReportGenerator arma el resumen diario con Maroto v2.
type ReportGenerator struct {
	company string
	now     func() time.Time
}

// NewReportGenerator construye el generador; company vacío usa DefaultCompany.
func NewReportGenerator(company string) *ReportGenerator {
	return &ReportGenerator{company: nonEmpty(company, DefaultCompany), now: time.Now}
}

// GenerateDailyReport genera el PDF y devuelve sus bytes.
func (g *ReportGenerator) GenerateDailyReport(_ context.Context, res *pipeline.DayResult) ([]byte, error) {
	if res == nil || res.Run == nil {
		return nil, ErrNoResult
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Resumen de procesamiento "+res.Date.Format("2006-01-02"), true).
		WithAuthor(g.company, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(g.company, res))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(countersRows(res.Run)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(sectionTitle("LÍNEAS RECHAZADAS"))
	m.AddRows(rejectionRows(res)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(sectionTitle("NOTAS CRÉDITO APLICADAS"))
	m.AddRows(applicationRows(res)...)

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(res.Run, g.now()))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// WriteFile guarda el resumen como resumen_YYYYMMDD.pdf en dir.
func (g *ReportGenerator) WriteFile(ctx context.Context, dir string, res *pipeline.DayResult) (string, error) {
	b, err := g.GenerateDailyReport(ctx, res)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("pdf: crear directorio: %w", err)
	}
	path := filepath.Join(dir, "resumen_"+res.Date.Format("20060102")+".pdf")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("pdf: escribir archivo: %w", err)
	}
	return path, nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(company string, res *pipeline.DayResult) core.Row {
	status := strings.ToUpper(res.Run.Status)
	statusColor := colorPrimary
	if res.Run.Status != entity.RunSuccess {
		statusColor = colorAlert
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(company, props.Text{
				Style: fontstyle.Bold, Size: 11, Color: colorPrimary, Top: 1,
			}),
			text.New("Resumen de ingesta y aplicación de notas crédito", props.Text{
				Size: 9, Top: 10, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("FECHA DE PROCESO", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(res.Date.Format("2006-01-02"), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 6,
			}),
			text.New("Estado: "+status, props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 13, Color: statusColor,
			}),
		),
	)
}

func countersRows(run *entity.IngestionRun) []core.Row {
	pair := func(label string, n int) core.Col {
		return col.New(3).Add(
			text.New(label, props.Text{Size: 7, Color: colorGray, Top: 1, Align: align.Center}),
			text.New(fmt.Sprintf("%d", n), props.Text{Style: fontstyle.Bold, Size: 11, Top: 5, Align: align.Center}),
		)
	}
	rows := []core.Row{
		row.New(13).Add(
			pair("Filas consultadas", run.Fetched),
			pair("Normalizadas", run.Normalized),
			pair("Fallos de normalización", run.NormalizationFailed),
			pair("Fallos del almacén", run.StoreFailures),
		),
		row.New(13).Add(
			pair("Líneas aceptadas", run.Accepted),
			pair("Líneas rechazadas", run.Rejected),
			pair("Notas nuevas / duplicadas", run.NotesCreated+run.NotesDuplicate),
			pair("Aplicaciones", run.Applications),
		),
	}
	if run.NotesFiltered > 0 {
		rows = append(rows, row.New(6).Add(col.New(12).Add(
			text.New(fmt.Sprintf("Notas crédito no admitidas por reglas: %d", run.NotesFiltered), props.Text{
				Size: 8, Color: colorGray, Top: 1,
			}),
		)))
	}
	if run.Error != "" {
		rows = append(rows, row.New(8).Add(col.New(12).Add(
			text.New("Error: "+run.Error, props.Text{Size: 8, Color: colorAlert, Top: 1}),
		)))
	}
	return rows
}

func sectionTitle(title string) core.Row {
	return row.New(7).Add(col.New(12).Add(
		text.New(title, props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2}),
	))
}

type reasonTotal struct {
	reason string
	lines  int
	value  decimal.Decimal
}

func rejectionRows(res *pipeline.DayResult) []core.Row {
	if len(res.Rejected) == 0 {
		return []core.Row{emptyRow("Sin líneas rechazadas.")}
	}
	byReason := map[entity.RejectReason]*reasonTotal{}
	for _, r := range res.Rejected {
		t, ok := byReason[r.Reason]
		if !ok {
			t = &reasonTotal{reason: reasonLabel(r.Reason)}
			byReason[r.Reason] = t
		}
		t.lines++
		t.value = t.value.Add(r.Line.Total)
	}
	totals := make([]*reasonTotal, 0, len(byReason))
	for _, t := range byReason {
		totals = append(totals, t)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].lines > totals[j].lines })

	rows := []core.Row{tableHeaderRow([]string{"Motivo", "Líneas", "Valor"}, []int{6, 2, 4})}
	for _, t := range totals {
		rows = append(rows, row.New(6).Add(
			col.New(6).Add(text.New(t.reason, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(fmt.Sprintf("%d", t.lines), props.Text{Size: 8, Top: 1, Align: align.Center})),
			col.New(4).Add(text.New(money(t.value), props.Text{Size: 8, Top: 1, Align: align.Right, Right: 1})),
		))
	}
	return rows
}

func applicationRows(res *pipeline.DayResult) []core.Row {
	var applied []pipeline.AcceptedLine
	for _, l := range res.Accepted {
		if l.Stored != nil && l.Stored.AppliedCreditNoteNumber != nil {
			applied = append(applied, l)
		}
	}
	if len(applied) == 0 {
		return []core.Row{emptyRow("No se aplicaron notas crédito.")}
	}
	rows := []core.Row{tableHeaderRow(
		[]string{"Factura", "Producto", "Nota", "Descuento", "Saldo"},
		[]int{2, 4, 2, 2, 2},
	)}
	for _, l := range applied {
		s := l.Stored
		rows = append(rows, row.New(6).Add(
			col.New(2).Add(text.New(s.InvoiceNumber, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(4).Add(text.New(nonEmpty(s.ProductName, s.ProductCode), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(*s.AppliedCreditNoteNumber, props.Text{Size: 8, Top: 1, Align: align.Center})),
			col.New(2).Add(text.New(money(s.AppliedDiscountValue), props.Text{Size: 8, Top: 1, Align: align.Right})),
			col.New(2).Add(text.New(money(s.RemainingValue), props.Text{Size: 8, Top: 1, Align: align.Right, Right: 1})),
		))
	}
	rows = append(rows, row.New(7).Add(
		col.New(8).Add(text.New("Total descontado:", props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: 1,
		})),
		col.New(4).Add(text.New(money(res.Applied.AppliedValue), props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Color: colorPrimary, Right: 1, Top: 1,
		})),
	))
	return rows
}

func tableHeaderRow(labels []string, sizes []int) core.Row {
	cols := make([]core.Col, 0, len(labels))
	for i, label := range labels {
		cols = append(cols, col.New(sizes[i]).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1, Left: 1,
		})))
	}
	return row.New(6).Add(cols...)
}

func emptyRow(msg string) core.Row {
	return row.New(6).Add(col.New(12).Add(
		text.New(msg, props.Text{Size: 8, Color: colorGray, Top: 1, Left: 1}),
	))
}

func footerRow(run *entity.IngestionRun, generatedAt time.Time) core.Row {
	return row.New(8).Add(col.New(12).Add(
		text.New(fmt.Sprintf("Corrida %s · generado %s", run.RunID, generatedAt.Format("2006-01-02 15:04")), props.Text{
			Size: 6.5, Color: colorGray, Top: 2,
		}),
	))
}

// ── helpers ───────────────────────────────────────────────────────────────────

func reasonLabel(r entity.RejectReason) string {
	switch r {
	case entity.RejectBelowMinimumTotal:
		return "Factura por debajo del total mínimo"
	case entity.RejectExcludedInventoryType:
		return "Tipo de inventario excluido"
	default:
		return string(r)
	}
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func money(d decimal.Decimal) string {
	s := d.Round(0).StringFixed(0)
	if strings.HasPrefix(s, "-") {
		return "-$" + formatMoney(s[1:])
	}
	return "$" + formatMoney(s)
}

// formatMoney inserta puntos de miles en un string numérico sin decimales.
// Ej: "25000" → "25.000", "1000000" → "1.000.000"
func formatMoney(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
