package pareto

import (
	"github.com/hope-box/frontier/internal/tabular"
)

// MergeOptions control identifier normalization and how colliding
// column names are disambiguated.
type MergeOptions struct {
	// SuffixA/SuffixB are appended to column names present in both
	// tables, left and right side respectively.
	SuffixA string
	SuffixB string
	// StructureSuffix is appended to all-digit identifiers before
	// comparison (see NormalizeID).
	StructureSuffix string
}

// DefaultMergeOptions mirrors the upstream pipeline: synthesizability
// columns get _sa, docking columns get _vina, ligands are .sdf files.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{
		SuffixA:         "_sa",
		SuffixB:         "_vina",
		StructureSuffix: DefaultStructureSuffix,
	}
}

// MatchStats reports how a merge went. Zero output over non-empty
// inputs is how a mismatched key configuration shows up, and callers
// must be able to tell that apart from genuinely empty inputs.
type MatchStats struct {
	RowsA   int `json:"rows_a"`
	RowsB   int `json:"rows_b"`
	Matched int `json:"matched_keys"`
	Output  int `json:"output_rows"`
}

// EmptyIntersection reports the "both sides had rows but nothing
// joined" outcome that indicates wrong key columns rather than an
// empty experiment.
func (s MatchStats) EmptyIntersection() bool {
	return s.RowsA > 0 && s.RowsB > 0 && s.Output == 0
}

// Merge inner-joins two tables on their normalized key columns.
// Duplicate keys on either side expand cartesian: every matching pair
// of rows produces an output row, nothing is deduplicated. Output rows
// follow table a's order, each expanded by b's matches in b's order.
// The inputs are not modified.
func Merge(a, b *tabular.Table, keyA, keyB string, opts MergeOptions) (*tabular.Table, MatchStats, error) {
	stats := MatchStats{RowsA: a.Len(), RowsB: b.Len()}

	// Empty tables are a valid no-data case, not a schema error.
	if a.Len() > 0 {
		if err := a.RequireColumns(keyA); err != nil {
			return nil, stats, err
		}
	}
	if b.Len() > 0 {
		if err := b.RequireColumns(keyB); err != nil {
			return nil, stats, err
		}
	}

	// Column collisions get origin suffixes instead of overwriting.
	collide := make(map[string]bool)
	aCols := make(map[string]bool, len(a.Columns))
	for _, c := range a.Columns {
		aCols[c] = true
	}
	for _, c := range b.Columns {
		if aCols[c] {
			collide[c] = true
		}
	}
	outName := func(col, suffix string) string {
		if collide[col] {
			return col + suffix
		}
		return col
	}

	out := &tabular.Table{Name: "merged"}
	for _, c := range a.Columns {
		out.Columns = append(out.Columns, outName(c, opts.SuffixA))
	}
	for _, c := range b.Columns {
		out.Columns = append(out.Columns, outName(c, opts.SuffixB))
	}

	// Index b by normalized key, preserving row order per key.
	bIndex := make(map[string][]int, b.Len())
	for i, row := range b.Rows {
		k := NormalizeID(row[keyB], opts.StructureSuffix)
		bIndex[k] = append(bIndex[k], i)
	}

	matched := make(map[string]bool)
	for _, aRow := range a.Rows {
		k := NormalizeID(aRow[keyA], opts.StructureSuffix)
		bRows, ok := bIndex[k]
		if !ok {
			continue
		}
		matched[k] = true
		for _, bi := range bRows {
			merged := make(tabular.Record, len(out.Columns))
			for _, c := range a.Columns {
				merged[outName(c, opts.SuffixA)] = aRow[c]
			}
			for _, c := range b.Columns {
				merged[outName(c, opts.SuffixB)] = b.Rows[bi][c]
			}
			out.Rows = append(out.Rows, merged)
		}
	}

	stats.Matched = len(matched)
	stats.Output = out.Len()
	return out, stats, nil
}
