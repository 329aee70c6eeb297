package pareto

import (
	"math"
	"sort"

	"github.com/hope-box/frontier/internal/tabular"
)

// FrontierOptions name the two objective columns (both minimized) and
// select the tie and bad-row policies.
type FrontierOptions struct {
	ObjA     string // primary objective, e.g. SA_score
	ObjB     string // secondary objective, e.g. affinity_kcal/mol
	IDColumn string // used to name rows in parse errors, may be empty

	// IncludeTies additionally retains rows whose (objA, objB) exactly
	// equal an accepted frontier point. Off by default: the staircase
	// scan keeps only the first-seen point among exact duplicates.
	IncludeTies bool

	// Lenient skips rows with unparseable objectives instead of
	// aborting, counting them in the result. Never the default: a
	// corrupted score silently excluded can misreport the optimum.
	Lenient bool
}

// Point is one (objA, objB) position on the frontier staircase, in
// ascending-objA order, ready for polyline rendering.
type Point struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// FrontierResult carries the frontier rows, the staircase trace, and
// how many rows lenient mode dropped.
type FrontierResult struct {
	Points  *tabular.Table
	Trace   []Point
	Skipped int
}

type frontierEntry struct {
	row int
	a   float64
	b   float64
}

// ComputeFrontier extracts the non-dominated subset of a merged table
// under simultaneous minimization of the two objective columns.
//
// Rows are stably sorted by (objA asc, objB asc), then scanned keeping
// every row whose objB is strictly below the minimum seen so far. The
// result is the classic staircase: objA non-decreasing, objB strictly
// decreasing across accepted points. An empty input yields an empty
// frontier, not an error.
func ComputeFrontier(t *tabular.Table, opts FrontierOptions) (*FrontierResult, error) {
	if t.Len() > 0 {
		if err := t.RequireColumns(opts.ObjA, opts.ObjB); err != nil {
			return nil, err
		}
	}

	entries := make([]frontierEntry, 0, t.Len())
	skipped := 0
	for i := range t.Rows {
		a, err := t.Float(i, opts.ObjA, opts.IDColumn)
		if err == nil {
			var b float64
			b, err = t.Float(i, opts.ObjB, opts.IDColumn)
			if err == nil {
				entries = append(entries, frontierEntry{row: i, a: a, b: b})
				continue
			}
		}
		if !opts.Lenient {
			return nil, err
		}
		skipped++
	}

	// Stable on the secondary key too: rows sharing (objA, objB) keep
	// input order, so first-seen wins deterministically.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].a != entries[j].a {
			return entries[i].a < entries[j].a
		}
		return entries[i].b < entries[j].b
	})

	minB := math.Inf(1)
	var accepted []frontierEntry
	acceptedAt := make(map[Point]bool)
	for _, e := range entries {
		switch {
		case e.b < minB:
			accepted = append(accepted, e)
			acceptedAt[Point{A: e.a, B: e.b}] = true
			minB = e.b
		case opts.IncludeTies && acceptedAt[Point{A: e.a, B: e.b}]:
			accepted = append(accepted, e)
		}
	}

	out := &tabular.Table{
		Name:    "pareto_front",
		Columns: append([]string(nil), t.Columns...),
	}
	res := &FrontierResult{Points: out, Skipped: skipped}
	for _, e := range accepted {
		src := t.Rows[e.row]
		nr := make(tabular.Record, len(src))
		for k, v := range src {
			nr[k] = v
		}
		out.Rows = append(out.Rows, nr)
		res.Trace = append(res.Trace, Point{A: e.a, B: e.b})
	}
	return res, nil
}
