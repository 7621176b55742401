// Package ledger defines the query contract against the transaction store:
// the predicate model, the user-facing filter criteria, and the Store
// interface the storage layer implements.
package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Transaction fields addressable by predicates.
const (
	FieldDate        = "date"
	FieldAccount     = "account"
	FieldDescription = "description"
	FieldCedula      = "cedula"
	FieldNombres     = "nombres"
)

const (
	// OpEq matches a field exactly.
	OpEq Op = "eq"
	// OpGte is an inclusive lower bound.
	OpGte Op = "gte"
	// OpLte is an inclusive upper bound.
	OpLte Op = "lte"
	// OpContainsAny is a case-insensitive substring match, OR-ed across
	// the named fields.
	OpContainsAny Op = "contains_any"
)

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

type (
	Op string

	// Direction orders result rows by date. It is a caller parameter of each
	// query, not a filter property.
	Direction string

	// Predicate is one condition against the store. Conditions are always
	// conjoined; OpContainsAny carries its own internal disjunction.
	Predicate struct {
		Field  string
		Op     Op
		Value  string
		Fields []string // OpContainsAny only
	}

	// FilterSpec is the user-supplied filter criteria. Every field is
	// optional; set fields combine with AND semantics. Date bounds are
	// inclusive and compared lexicographically on YYYY-MM-DD, which is
	// correct because the format is fixed-width and zero-padded.
	FilterSpec struct {
		DateFrom string
		DateTo   string
		Account  string
		// Month is a two-digit month expanded to [Year-Month-01, Year-Month-31].
		// Year must be set when Month is.
		Month string
		Year  string
		// Concept is matched case-insensitively as a substring of
		// description, cedula or nombres (OR).
		Concept string
	}
)

var ErrMonthWithoutYear = errors.New("month filter requires an explicit year")

// conceptFields lists the text columns the free-text filter searches. The OR
// is unconditional: cedula and nombres only carry values on Ingreso rows, so
// matching them on Egreso rows is a no-op.
var conceptFields = []string{FieldDescription, FieldCedula, FieldNombres}

// Predicates translates the filter into store conditions. The authorization
// scope is not part of the result; the store conjoins it separately and
// first.
func (f FilterSpec) Predicates() ([]Predicate, error) {
	var preds []Predicate

	if f.DateFrom != "" {
		preds = append(preds, Predicate{Field: FieldDate, Op: OpGte, Value: f.DateFrom})
	}
	if f.DateTo != "" {
		preds = append(preds, Predicate{Field: FieldDate, Op: OpLte, Value: f.DateTo})
	}
	if f.Account != "" {
		preds = append(preds, Predicate{Field: FieldAccount, Op: OpEq, Value: f.Account})
	}
	if f.Month != "" {
		from, to, err := monthRange(f.Year, f.Month)
		if err != nil {
			return nil, err
		}
		preds = append(preds,
			Predicate{Field: FieldDate, Op: OpGte, Value: from},
			Predicate{Field: FieldDate, Op: OpLte, Value: to},
		)
	}
	if f.Concept != "" {
		preds = append(preds, Predicate{Op: OpContainsAny, Value: f.Concept, Fields: conceptFields})
	}
	return preds, nil
}

// monthRange expands a year+month into inclusive date bounds. Day 31 is used
// as the upper bound for every month: stored dates are validated calendar
// dates, so a 30-day month can never contain a row dated the 31st and the
// lexicographic comparison stays safe.
func monthRange(year, month string) (from, to string, err error) {
	if strings.TrimSpace(year) == "" {
		return "", "", ErrMonthWithoutYear
	}
	y, err := strconv.Atoi(year)
	if err != nil || y < 1 {
		return "", "", fmt.Errorf("invalid year %q", year)
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return "", "", fmt.Errorf("invalid month %q", month)
	}
	from = fmt.Sprintf("%04d-%02d-01", y, m)
	to = fmt.Sprintf("%04d-%02d-31", y, m)
	return from, to, nil
}
