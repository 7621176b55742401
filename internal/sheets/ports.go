package sheets

import (
	"context"

	"tesoreria/internal/report"
)

// ReportPublisher mirrors a set of report sheet grids to an external
// spreadsheet so the treasury board can review them without touching
// the application.
type ReportPublisher interface {
	// Publish replaces the contents of the destination tabs for the
	// given owner and year with the provided grids. Destinations are
	// keyed by both: each ledger owner mirrors to their own tabs, so
	// one owner's sync never overwrites another's.
	Publish(ctx context.Context, owner, year string, grids []report.Sheet) error
}
