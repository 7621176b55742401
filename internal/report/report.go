// Package report renders a filtered row set plus its aggregates into the
// three output formats: a print-ready document, a spreadsheet workbook and a
// delimited text export. Each format has its own serializer over shared
// structured values; no format is assembled by string templating.
package report

import (
	"fmt"
	"time"

	"tesoreria/internal/core"
)

const (
	// FormatPrint is a self-contained markup document handed to the host's
	// print pipeline. By convention the host labels it "pdf"; no PDF bytes
	// are produced here.
	FormatPrint       Format = "print"
	FormatSpreadsheet Format = "spreadsheet"
	FormatDelimited   Format = "delimited"
)

const (
	ModeGeneral Mode = "general"
	ModeMonth   Mode = "month"
)

type (
	Format string

	// Mode is the period selection of the report: everything, or one month
	// of one year.
	Mode string

	// Period identifies the reported span. Year and Month are the zero-padded
	// strings the filter used; both empty in general mode.
	Period struct {
		Mode  Mode
		Year  string
		Month string
	}

	// Params carries the metadata rendered alongside the rows.
	Params struct {
		// ProfileLabel identifies the generating profile (username or email).
		ProfileLabel string
		Period       Period
		GeneratedAt  time.Time
		// Code is the unique report code; NewCode generates one.
		Code string
	}

	// Output is a rendered report. Filename is empty for the print format,
	// which is an in-memory document rather than a downloadable blob.
	Output struct {
		Body        []byte
		ContentType string
		Filename    string
	}
)

// ParseFormat maps both the canonical names and the conventional file
// extensions used by report download links.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "print", "pdf":
		return FormatPrint, nil
	case "spreadsheet", "xls":
		return FormatSpreadsheet, nil
	case "delimited", "csv":
		return FormatDelimited, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// Label renders the period for display: "General" or "YYYY-MM".
func (p Period) Label() string {
	if p.Mode == ModeMonth {
		return p.Year + "-" + p.Month
	}
	return "General"
}

// Render produces the report in the requested format from an already
// filtered row set and its aggregates. A row whose type matches neither
// Ingreso nor Egreso fails the whole report; the renderer never skips rows.
func Render(format Format, rows []core.Transaction, aggs core.Aggregates, params Params) (Output, error) {
	ingresos, egresos, err := core.SplitByType(rows)
	if err != nil {
		return Output{}, fmt.Errorf("render report: %w", err)
	}

	switch format {
	case FormatPrint:
		doc := buildDocument(aggs, params)
		return Output{
			Body:        renderPrint(doc),
			ContentType: "text/html; charset=utf-8",
		}, nil
	case FormatSpreadsheet:
		sheets := BuildSheets(ingresos, egresos, aggs, params.Period.Label())
		return Output{
			Body:        renderSpreadsheet(sheets),
			ContentType: "application/vnd.ms-excel",
			Filename:    filename(params.Period, "xls"),
		}, nil
	case FormatDelimited:
		return Output{
			Body:        renderDelimited(ingresos, egresos),
			ContentType: "text/csv; charset=utf-8",
			Filename:    filename(params.Period, "csv"),
		}, nil
	}
	return Output{}, fmt.Errorf("unknown report format %q", format)
}

// filename follows report_{general|month}_{year}[_{month}].{ext}.
func filename(p Period, ext string) string {
	name := fmt.Sprintf("report_%s_%s", p.Mode, p.Year)
	if p.Mode == ModeMonth {
		name += "_" + p.Month
	}
	return name + "." + ext
}
