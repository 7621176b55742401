package core

// AccountTotal is a running sum for one account name.
type AccountTotal struct {
	Account string
	Total   Money
}

// Aggregates holds the totals and per-account groupings derived from a
// filtered row set.
type Aggregates struct {
	TotalIngresos     Money
	TotalEgresos      Money
	NetBalance        Money
	ByAccountIngresos []AccountTotal
	ByAccountEgresos  []AccountTotal
}

// SplitByType partitions rows into ingresos and egresos, preserving order.
// A row whose type matches neither enum value means an invariant was
// violated upstream and fails the whole operation.
func SplitByType(rows []Transaction) (ingresos, egresos []Transaction, err error) {
	for _, row := range rows {
		switch row.Type {
		case Ingreso:
			ingresos = append(ingresos, row)
		case Egreso:
			egresos = append(egresos, row)
		default:
			return nil, nil, ErrUnknownType
		}
	}
	return ingresos, egresos, nil
}

// Aggregate computes totals and per-account groupings from a filtered row
// set. Sums are exact cent arithmetic; NetBalance may be negative. Grouping
// preserves the insertion order of first encounter, so the sequence is
// stable for a given row set but depends on the filter.
func Aggregate(rows []Transaction) (Aggregates, error) {
	ingresos, egresos, err := SplitByType(rows)
	if err != nil {
		return Aggregates{}, err
	}

	aggs := Aggregates{
		TotalIngresos:     sumAmounts(ingresos),
		TotalEgresos:      sumAmounts(egresos),
		ByAccountIngresos: groupByAccount(ingresos),
		ByAccountEgresos:  groupByAccount(egresos),
	}
	aggs.NetBalance = aggs.TotalIngresos.Sub(aggs.TotalEgresos)
	return aggs, nil
}

func sumAmounts(rows []Transaction) Money {
	var total Money
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	return total
}

func groupByAccount(rows []Transaction) []AccountTotal {
	index := make(map[string]int)
	var groups []AccountTotal
	for _, row := range rows {
		i, seen := index[row.Account]
		if !seen {
			index[row.Account] = len(groups)
			groups = append(groups, AccountTotal{Account: row.Account})
			i = len(groups) - 1
		}
		groups[i].Total = groups[i].Total.Add(row.Amount)
	}
	return groups
}
