package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"tesoreria/internal/authz"
	"tesoreria/internal/core"
	"tesoreria/internal/ledger"
	"tesoreria/internal/report"
)

// ReportService renders downloadable reports over the caller's visible rows.
type ReportService struct {
	store ledger.Store
}

func NewReportService(store ledger.Store) *ReportService {
	return &ReportService{store: store}
}

// Generate queries the store under the caller's scope and filter, aggregates
// the rows and renders them in the requested format. Report rows are ordered
// oldest first.
func (s *ReportService) Generate(ctx context.Context, caller authz.Caller, profileLabel string, format report.Format, filter ledger.FilterSpec) (report.Output, error) {
	preds, err := filter.Predicates()
	if err != nil {
		return report.Output{}, fmt.Errorf("build filter: %w", err)
	}

	rows, err := s.store.SelectTransactions(ctx, authz.For(caller), preds, ledger.Ascending)
	if err != nil {
		return report.Output{}, fmt.Errorf("query transactions: %w", err)
	}

	aggs, err := core.Aggregate(rows)
	if err != nil {
		return report.Output{}, err
	}

	params := report.Params{
		ProfileLabel: profileLabel,
		Period:       periodFor(filter),
		GeneratedAt:  time.Now(),
		Code:         report.NewCode(),
	}
	return report.Render(format, rows, aggs, params)
}

// periodFor derives the report period from the filter: a month filter makes
// a month report, anything else is general. A general report still carries a
// year for its filename, defaulting to the current one.
func periodFor(filter ledger.FilterSpec) report.Period {
	if filter.Month != "" {
		return report.Period{Mode: report.ModeMonth, Year: filter.Year, Month: filter.Month}
	}
	year := filter.Year
	if year == "" {
		year = strconv.Itoa(time.Now().Year())
	}
	return report.Period{Mode: report.ModeGeneral, Year: year}
}
