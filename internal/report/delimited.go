package report

import (
	"strings"

	"tesoreria/internal/core"
)

var (
	ingresoFields = []string{"date", "description", "account", "cedula", "nombres", "amount"}
	egresoFields  = []string{"date", "description", "account", "amount"}
)

// renderDelimited emits the two stacked blocks of the text export: INGRESOS
// then EGRESOS, with no blank separator. Each block's first line is the block
// label concatenated directly onto the first field name with no delimiter in
// between; prior exports carry that exact header shape, so it is preserved
// bit-exact. Field values are raw (not money-formatted) and unquoted: the
// data is operator-entered, embedded commas are accepted as a known
// limitation.
func renderDelimited(ingresos, egresos []core.Transaction) []byte {
	lines := make([]string, 0, len(ingresos)+len(egresos)+2)

	lines = append(lines, "INGRESOS"+strings.Join(ingresoFields, ","))
	for _, tx := range ingresos {
		lines = append(lines, strings.Join([]string{
			tx.Date.ISO(), tx.Description, tx.Account,
			tx.Cedula, tx.Nombres, tx.Amount.Decimal(),
		}, ","))
	}

	lines = append(lines, "EGRESOS"+strings.Join(egresoFields, ","))
	for _, tx := range egresos {
		lines = append(lines, strings.Join([]string{
			tx.Date.ISO(), tx.Description, tx.Account, tx.Amount.Decimal(),
		}, ","))
	}

	return []byte(strings.Join(lines, "\n") + "\n")
}
