package report

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"tesoreria/internal/core"
)

func scenarioRows() []core.Transaction {
	return []core.Transaction{
		{Type: core.Ingreso, Account: "Diezmos", Amount: core.Money{Cents: 10000000}, Date: core.NewDate(2024, 1, 5), Cedula: "123", Nombres: "Ana"},
		{Type: core.Egreso, Account: "Servicios", Amount: core.Money{Cents: 4000000}, Date: core.NewDate(2024, 1, 10)},
	}
}

func scenarioParams() Params {
	return Params{
		ProfileLabel: "tesorero@iglesia.org",
		Period:       Period{Mode: ModeMonth, Year: "2024", Month: "01"},
		GeneratedAt:  time.Date(2024, 2, 1, 10, 30, 0, 0, time.UTC),
		Code:         "CUR-A1B2C3",
	}
}

func mustAggregate(t *testing.T, rows []core.Transaction) core.Aggregates {
	t.Helper()
	aggs, err := core.Aggregate(rows)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	return aggs
}

func TestNewCode(t *testing.T) {
	pattern := regexp.MustCompile(`^CUR-[A-Z0-9]{6}$`)
	for i := 0; i < 50; i++ {
		code := NewCode()
		if !pattern.MatchString(code) {
			t.Fatalf("NewCode() = %q, want CUR-XXXXXX from [A-Z0-9]", code)
		}
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"print", FormatPrint, true},
		{"pdf", FormatPrint, true},
		{"spreadsheet", FormatSpreadsheet, true},
		{"xls", FormatSpreadsheet, true},
		{"delimited", FormatDelimited, true},
		{"csv", FormatDelimited, true},
		{"docx", "", false},
	}
	for _, tc := range cases {
		got, err := ParseFormat(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("ParseFormat(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("ParseFormat(%q) expected error", tc.in)
		}
	}
}

func TestRenderPrintDocument(t *testing.T) {
	rows := scenarioRows()
	out, err := Render(FormatPrint, rows, mustAggregate(t, rows), scenarioParams())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out.Filename != "" {
		t.Errorf("print output has filename %q, want in-memory document", out.Filename)
	}
	if out.ContentType != "text/html; charset=utf-8" {
		t.Errorf("ContentType = %q", out.ContentType)
	}

	body := string(out.Body)
	for _, want := range []string{
		"REPORTE GENERAL",
		"Perfil: tesorero@iglesia.org",
		"Código Único de Reporte: CUR-A1B2C3",
		"Generado el: 1/2/2024, 10:30:00",
		"<strong>Periodo:</strong> 2024-01",
		"Ingresos: $100.000",
		"Egresos: $40.000",
		"Total General (Saldo Neto): $60.000",
		"Cuenta Contable (Ingresos)",
		"Cuenta Contable (Egresos)",
		"<td>Diezmos</td>",
		"<td>Servicios</td>",
		"Subtotal",
		"Firma del Encargado",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("print document missing %q", want)
		}
	}

	// Every amount goes through the money formatter; the raw numeric never
	// appears in the rendered text.
	if strings.Contains(body, "100000") {
		t.Error("print document leaks a raw numeric amount")
	}
}

func TestRenderPrintEscapesMarkup(t *testing.T) {
	rows := []core.Transaction{
		{Type: core.Ingreso, Account: "A&B <Diezmos>", Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 1, 5), Cedula: "1", Nombres: "Ana"},
	}
	out, err := Render(FormatPrint, rows, mustAggregate(t, rows), scenarioParams())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	body := string(out.Body)
	if strings.Contains(body, "<Diezmos>") {
		t.Error("account name embedded unescaped")
	}
	if !strings.Contains(body, "A&amp;B &lt;Diezmos&gt;") {
		t.Error("account name not escaped as expected")
	}
}

func TestRenderSpreadsheetScenario(t *testing.T) {
	rows := scenarioRows()
	out, err := Render(FormatSpreadsheet, rows, mustAggregate(t, rows), scenarioParams())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out.Filename != "report_month_2024_01.xls" {
		t.Errorf("Filename = %q, want report_month_2024_01.xls", out.Filename)
	}

	body := string(out.Body)

	// Sheet order: Ingresos, Egresos, Total.
	iIng := strings.Index(body, `ss:Name="Ingresos"`)
	iEgr := strings.Index(body, `ss:Name="Egresos"`)
	iTot := strings.Index(body, `ss:Name="Total"`)
	if iIng == -1 || iEgr == -1 || iTot == -1 || !(iIng < iEgr && iEgr < iTot) {
		t.Errorf("sheet order wrong: Ingresos@%d Egresos@%d Total@%d", iIng, iEgr, iTot)
	}

	for _, want := range []string{
		// Ingresos data row: date, empty description, account, cedula, nombres, numeric amount.
		`<Row><Cell><Data ss:Type="String">2024-01-05</Data></Cell><Cell><Data ss:Type="String"></Data></Cell><Cell><Data ss:Type="String">Diezmos</Data></Cell><Cell><Data ss:Type="String">123</Data></Cell><Cell><Data ss:Type="String">Ana</Data></Cell><Cell><Data ss:Type="Number">100000</Data></Cell></Row>`,
		// Egresos data row.
		`<Row><Cell><Data ss:Type="String">2024-01-10</Data></Cell><Cell><Data ss:Type="String"></Data></Cell><Cell><Data ss:Type="String">Servicios</Data></Cell><Cell><Data ss:Type="Number">40000</Data></Cell></Row>`,
		// Total sheet rows.
		`<Row><Cell><Data ss:Type="String">Periodo</Data></Cell><Cell><Data ss:Type="String">2024-01</Data></Cell></Row>`,
		`<Row><Cell><Data ss:Type="String">Ingresos</Data></Cell><Cell><Data ss:Type="Number">100000</Data></Cell></Row>`,
		`<Row><Cell><Data ss:Type="String">Egresos</Data></Cell><Cell><Data ss:Type="Number">40000</Data></Cell></Row>`,
		`<Row><Cell><Data ss:Type="String">Saldo Neto</Data></Cell><Cell><Data ss:Type="Number">60000</Data></Cell></Row>`,
		// Header rows.
		`<Data ss:Type="String">Nombres y Apellidos</Data>`,
		`<Data ss:Type="String">Cédula</Data>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("spreadsheet missing %q", want)
		}
	}
}

func TestRenderSpreadsheetEscapesMarkup(t *testing.T) {
	rows := []core.Transaction{
		{Type: core.Egreso, Account: "Luz & Agua", Description: "pago <enero>", Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 1, 5)},
	}
	out, err := Render(FormatSpreadsheet, rows, mustAggregate(t, rows), scenarioParams())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	body := string(out.Body)
	if !strings.Contains(body, "Luz &amp; Agua") || !strings.Contains(body, "pago &lt;enero&gt;") {
		t.Error("markup-significant characters not escaped in cell data")
	}
}

func TestRenderDelimited(t *testing.T) {
	rows := scenarioRows()
	out, err := Render(FormatDelimited, rows, mustAggregate(t, rows), scenarioParams())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out.Filename != "report_month_2024_01.csv" {
		t.Errorf("Filename = %q, want report_month_2024_01.csv", out.Filename)
	}

	lines := strings.Split(strings.TrimRight(string(out.Body), "\n"), "\n")
	// Two fixed header/label lines plus one line per transaction.
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4: %q", len(lines), lines)
	}
	if lines[0] != "INGRESOSdate,description,account,cedula,nombres,amount" {
		t.Errorf("ingresos header = %q", lines[0])
	}
	if lines[1] != "2024-01-05,,Diezmos,123,Ana,100000" {
		t.Errorf("ingreso row = %q", lines[1])
	}
	if lines[2] != "EGRESOSdate,description,account,amount" {
		t.Errorf("egresos header = %q", lines[2])
	}
	if lines[3] != "2024-01-10,,Servicios,40000" {
		t.Errorf("egreso row = %q", lines[3])
	}
}

func TestRenderDelimitedRowCount(t *testing.T) {
	var rows []core.Transaction
	for i := 1; i <= 5; i++ {
		rows = append(rows, core.Transaction{
			Type: core.Ingreso, Account: "A", Amount: core.Money{Cents: int64(i) * 100},
			Date: core.NewDate(2024, 1, i), Cedula: "1", Nombres: "N",
		})
	}
	for i := 1; i <= 3; i++ {
		rows = append(rows, core.Transaction{
			Type: core.Egreso, Account: "B", Amount: core.Money{Cents: int64(i) * 100},
			Date: core.NewDate(2024, 2, i),
		})
	}
	out, err := Render(FormatDelimited, rows, mustAggregate(t, rows), scenarioParams())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(out.Body), "\n"), "\n")
	if len(lines) != 5+3+2 {
		t.Errorf("got %d lines, want 10", len(lines))
	}
}

func TestRenderFailsOnUnknownRowType(t *testing.T) {
	rows := []core.Transaction{
		{Type: "Transferencia", Account: "X", Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 1, 5)},
	}
	aggs := core.Aggregates{}
	for _, format := range []Format{FormatPrint, FormatSpreadsheet, FormatDelimited} {
		if _, err := Render(format, rows, aggs, scenarioParams()); err == nil {
			t.Errorf("Render(%s) with malformed row succeeded, want error", format)
		}
	}
}

func TestFilenameGeneralMode(t *testing.T) {
	rows := scenarioRows()
	params := scenarioParams()
	params.Period = Period{Mode: ModeGeneral, Year: "2024"}
	out, err := Render(FormatSpreadsheet, rows, mustAggregate(t, rows), params)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out.Filename != "report_general_2024.xls" {
		t.Errorf("Filename = %q, want report_general_2024.xls", out.Filename)
	}
}
