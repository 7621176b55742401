package report

import (
	"strings"

	"tesoreria/internal/core"
)

type (
	// Sheet is one logical worksheet: a name and a grid of typed cells.
	// The grid model is shared with the Google Sheets publisher, which
	// mirrors the same three sheets to a live spreadsheet.
	Sheet struct {
		Name string
		Rows [][]Cell
	}

	// Cell is a single spreadsheet value. Number marks the amount columns,
	// the only ones typed numerically; everything else is text.
	Cell struct {
		Value  string
		Number bool
	}
)

func text(v string) Cell       { return Cell{Value: v} }
func number(m core.Money) Cell { return Cell{Value: m.Decimal(), Number: true} }

// BuildSheets assembles the workbook contents: exactly three sheets, in the
// order Ingresos, Egresos, Total.
func BuildSheets(ingresos, egresos []core.Transaction, aggs core.Aggregates, periodLabel string) []Sheet {
	ingRows := [][]Cell{{
		text("Fecha"), text("Descripción"), text("Cuenta"),
		text("Cédula"), text("Nombres y Apellidos"), text("Valor"),
	}}
	for _, tx := range ingresos {
		ingRows = append(ingRows, []Cell{
			text(tx.Date.ISO()), text(tx.Description), text(tx.Account),
			text(tx.Cedula), text(tx.Nombres), number(tx.Amount),
		})
	}

	egrRows := [][]Cell{{
		text("Fecha"), text("Descripción"), text("Cuenta"), text("Valor"),
	}}
	for _, tx := range egresos {
		egrRows = append(egrRows, []Cell{
			text(tx.Date.ISO()), text(tx.Description), text(tx.Account), number(tx.Amount),
		})
	}

	totalRows := [][]Cell{
		{text("Periodo"), text(periodLabel)},
		{text("Ingresos"), number(aggs.TotalIngresos)},
		{text("Egresos"), number(aggs.TotalEgresos)},
		{text("Saldo Neto"), number(aggs.NetBalance)},
	}

	return []Sheet{
		{Name: "Ingresos", Rows: ingRows},
		{Name: "Egresos", Rows: egrRows},
		{Name: "Total", Rows: totalRows},
	}
}

// renderSpreadsheet serializes the sheets as a SpreadsheetML workbook, the
// XML dialect the host serves as application/vnd.ms-excel.
func renderSpreadsheet(sheets []Sheet) []byte {
	var b strings.Builder

	b.WriteString("<?xml version=\"1.0\"?>\n")
	b.WriteString("<?mso-application progid=\"Excel.Sheet\"?>\n")
	b.WriteString(`<Workbook xmlns="urn:schemas-microsoft-com:office:spreadsheet" xmlns:o="urn:schemas-microsoft-com:office:office" xmlns:x="urn:schemas-microsoft-com:office:excel" xmlns:ss="urn:schemas-microsoft-com:office:spreadsheet" xmlns:html="http://www.w3.org/TR/REC-html40">`)

	for _, sheet := range sheets {
		b.WriteString(`<Worksheet ss:Name="`)
		b.WriteString(escapeXML(sheet.Name))
		b.WriteString(`"><Table>`)
		for _, row := range sheet.Rows {
			b.WriteString(`<Row>`)
			for _, cell := range row {
				writeCell(&b, cell)
			}
			b.WriteString(`</Row>`)
		}
		b.WriteString(`</Table></Worksheet>`)
	}

	b.WriteString(`</Workbook>`)
	return []byte(b.String())
}

func writeCell(b *strings.Builder, cell Cell) {
	cellType := "String"
	if cell.Number {
		cellType = "Number"
	}
	b.WriteString(`<Cell><Data ss:Type="`)
	b.WriteString(cellType)
	b.WriteString(`">`)
	b.WriteString(escapeXML(cell.Value))
	b.WriteString(`</Data></Cell>`)
}

// escapeXML covers the markup-significant characters; cell text never lands
// in attribute position except sheet names, which the builder controls.
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
