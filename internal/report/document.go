package report

import (
	"tesoreria/internal/core"
)

// Typed model of the print document. The serializer in print.go is the only
// place that knows about markup; everything here is structured values so the
// document contract stays testable without string-diffing rendered output.
type (
	document struct {
		Title     string
		Meta      []metaLine
		Summary   summaryBox
		Sections  []accountSection
		Net       core.Money
		Signature string
	}

	metaLine struct {
		Label string
		Value string
	}

	summaryBox struct {
		PeriodLabel string
		Ingresos    core.Money
		Egresos     core.Money
	}

	// accountSection is one labeled block per entry type: a table of
	// (account, total) rows plus a subtotal row.
	accountSection struct {
		Title    string
		Subtitle string
		Rows     []core.AccountTotal
		Subtotal core.Money
	}
)

// timestampLayout is the fixed-locale rendering of the generation instant
// (day/month/year, 24h clock).
const timestampLayout = "2/1/2006, 15:04:05"

func buildDocument(aggs core.Aggregates, params Params) document {
	return document{
		Title: "REPORTE GENERAL",
		Meta: []metaLine{
			{Label: "Perfil", Value: params.ProfileLabel},
			{Label: "Código Único de Reporte", Value: params.Code},
			{Label: "Generado el", Value: params.GeneratedAt.Format(timestampLayout)},
		},
		Summary: summaryBox{
			PeriodLabel: params.Period.Label(),
			Ingresos:    aggs.TotalIngresos,
			Egresos:     aggs.TotalEgresos,
		},
		Sections: []accountSection{
			{
				Title:    "Reporte General — Ingresos",
				Subtitle: "Cuenta Contable (Ingresos)",
				Rows:     aggs.ByAccountIngresos,
				Subtotal: aggs.TotalIngresos,
			},
			{
				Title:    "Reporte General — Egresos",
				Subtitle: "Cuenta Contable (Egresos)",
				Rows:     aggs.ByAccountEgresos,
				Subtotal: aggs.TotalEgresos,
			},
		},
		Net:       aggs.NetBalance,
		Signature: "Firma del Encargado",
	}
}
