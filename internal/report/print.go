package report

import (
	"html"
	"strings"

	"tesoreria/internal/core"
)

// printCSS keeps the document self-contained so the host print pipeline
// needs no external assets.
const printCSS = `*{font-family: Arial, sans-serif} body{padding:16px;color:#1a202c} h1{font-size:22px;text-align:center;margin:0 0 4px} .meta{text-align:center;font-size:12px;opacity:.8} .box{border:2px solid #e2e8f0;border-radius:12px;padding:12px;margin:16px 0} .orange{background:#ed8936;color:#fff;padding:8px 12px;font-weight:bold} .tbl{width:100%;border-collapse:collapse} .tbl th,.tbl td{border:1px solid #e2e8f0;padding:8px} .tbl th{background:#e6fffa} .row-total{font-weight:bold} .green-text{color:#2f855a} .red-text{color:#e53e3e} .center{text-align:center} .signature{margin-top:24px;text-align:center} .signature .line{width:60%;height:1px;background:#cbd5e0;margin:12px auto}`

// renderPrint serializes the typed document to self-contained HTML. Money
// values go through the shared formatter; no raw numerics appear in the
// rendered text.
func renderPrint(doc document) []byte {
	var b strings.Builder

	b.WriteString(`<!DOCTYPE html><html><head><title>Reporte</title><meta charset="utf-8"/><style>`)
	b.WriteString(printCSS)
	b.WriteString(`</style></head><body>`)

	b.WriteString(`<h1>`)
	b.WriteString(html.EscapeString(doc.Title))
	b.WriteString(`</h1>`)

	b.WriteString(`<div class="meta">`)
	for i, line := range doc.Meta {
		if i > 0 {
			b.WriteString(`<br/>`)
		}
		b.WriteString(html.EscapeString(line.Label))
		b.WriteString(`: `)
		b.WriteString(html.EscapeString(line.Value))
	}
	b.WriteString(`</div>`)

	b.WriteString(`<div class="box"><div><strong>Periodo:</strong> `)
	b.WriteString(html.EscapeString(doc.Summary.PeriodLabel))
	b.WriteString(`</div><div class="green-text">Ingresos: `)
	b.WriteString(doc.Summary.Ingresos.Format())
	b.WriteString(`</div><div class="red-text">Egresos: `)
	b.WriteString(doc.Summary.Egresos.Format())
	b.WriteString(`</div></div>`)

	for _, section := range doc.Sections {
		writeSection(&b, section)
	}

	b.WriteString(`<div class="box center"><strong>Total General (Saldo Neto): `)
	b.WriteString(doc.Net.Format())
	b.WriteString(`</strong></div>`)

	b.WriteString(`<div class="signature">`)
	b.WriteString(html.EscapeString(doc.Signature))
	b.WriteString(`<div class="line"></div></div>`)

	b.WriteString(`</body></html>`)
	return []byte(b.String())
}

func writeSection(b *strings.Builder, section accountSection) {
	b.WriteString(`<div class="orange">`)
	b.WriteString(html.EscapeString(section.Title))
	b.WriteString(`</div>`)

	b.WriteString(`<table class="tbl"><thead><tr><th>`)
	b.WriteString(html.EscapeString(section.Subtitle))
	b.WriteString(`</th><th>Valor</th></tr></thead><tbody>`)

	for _, row := range section.Rows {
		writeAccountRow(b, row)
	}

	b.WriteString(`<tr class="row-total"><td>Subtotal</td><td class="center">`)
	b.WriteString(section.Subtotal.Format())
	b.WriteString(`</td></tr></tbody></table>`)
}

func writeAccountRow(b *strings.Builder, row core.AccountTotal) {
	b.WriteString(`<tr><td>`)
	b.WriteString(html.EscapeString(row.Account))
	b.WriteString(`</td><td class="center">`)
	b.WriteString(row.Total.Format())
	b.WriteString(`</td></tr>`)
}
