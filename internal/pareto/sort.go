package pareto

import (
	"sort"

	"github.com/hope-box/frontier/internal/tabular"
)

// SortByNumeric returns a copy of the table stably ordered by the
// named numeric column. Stability is part of the contract: rows with
// equal keys keep their input order, which the frontier scan relies on
// for deterministic tie-breaks. Any row whose key cell does not parse
// as a float aborts the whole sort with a ParseError; downstream
// consumers assume every row is rankable, so a silently dropped or
// misplaced row would corrupt the ranking.
func SortByNumeric(t *tabular.Table, key string, ascending bool, idColumn string) (*tabular.Table, error) {
	if err := t.RequireColumns(key); err != nil {
		return nil, err
	}

	keys := make([]float64, t.Len())
	for i := range t.Rows {
		v, err := t.Float(i, key, idColumn)
		if err != nil {
			return nil, err
		}
		keys[i] = v
	}

	idx := make([]int, t.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		if ascending {
			return keys[idx[i]] < keys[idx[j]]
		}
		return keys[idx[i]] > keys[idx[j]]
	})

	out := &tabular.Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]tabular.Record, t.Len()),
	}
	for i, src := range idx {
		nr := make(tabular.Record, len(t.Rows[src]))
		for k, v := range t.Rows[src] {
			nr[k] = v
		}
		out.Rows[i] = nr
	}
	return out, nil
}
