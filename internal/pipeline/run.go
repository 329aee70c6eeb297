package pipeline

import (
	"fmt"
	"strings"

	"github.com/hope-box/frontier/internal/pareto"
	"github.com/hope-box/frontier/internal/store"
	"github.com/hope-box/frontier/internal/tabular"
)

// Stage names used in failure events, matching the order work happens.
const (
	StageLoad     = "load"
	StageRank     = "rank"
	StageMerge    = "merge"
	StageFrontier = "frontier"
)

// Outputs is everything one run produces: the affinity ranking, the
// merged frontier rows, the staircase trace, and the stats to persist.
type Outputs struct {
	Ranked   *tabular.Table
	Frontier *tabular.Table
	Trace    []pareto.Point
	Points   []*store.FrontierPoint
	Stats    store.RunStats
}

// ExecuteRun pushes one run through the core pipeline:
// load both tables, rank the affinity table, merge on normalized
// identifiers, compute the Pareto frontier over the merged rows.
// Pure over the run's inputs; the returned stage names where a
// failure happened.
func ExecuteRun(run *store.Run) (*Outputs, string, error) {
	cfg := run.Config

	synth, err := tabular.ReadCSV(strings.NewReader(run.SynthCSV), "synth_scores")
	if err != nil {
		return nil, StageLoad, err
	}
	affinity, err := tabular.ReadCSV(strings.NewReader(run.AffinityCSV), "vina_results")
	if err != nil {
		return nil, StageLoad, err
	}

	// Column presence is a precondition, checked before any row work.
	// Empty tables (no header survived the load) are a valid no-data
	// case, not a schema error.
	if synth.Len() > 0 {
		if err := synth.RequireColumns(cfg.SynthKeyColumn, cfg.ObjectiveA); err != nil {
			return nil, StageLoad, err
		}
	}
	if affinity.Len() > 0 {
		if err := affinity.RequireColumns(cfg.AffinityKeyColumn, cfg.ObjectiveB); err != nil {
			return nil, StageLoad, err
		}
	}

	out := &Outputs{
		Stats: store.RunStats{
			RowsSynth:    synth.Len(),
			RowsAffinity: affinity.Len(),
		},
	}

	// Standalone ranking of the affinity table, ascending: best
	// (most negative) binding affinity first.
	if affinity.Len() > 0 {
		out.Ranked, err = pareto.SortByNumeric(affinity, cfg.ObjectiveB, true, cfg.AffinityKeyColumn)
		if err != nil {
			return nil, StageRank, err
		}
	} else {
		out.Ranked = affinity
	}

	mergeOpts := pareto.MergeOptions{
		SuffixA:         cfg.SynthSuffix,
		SuffixB:         cfg.AffinitySuffix,
		StructureSuffix: cfg.StructureSuffix,
	}
	merged, stats, err := pareto.Merge(synth, affinity, cfg.SynthKeyColumn, cfg.AffinityKeyColumn, mergeOpts)
	if err != nil {
		return nil, StageMerge, err
	}
	if stats.EmptyIntersection() {
		return nil, StageMerge, &tabular.ConfigError{
			Table: "merged",
			Reason: fmt.Sprintf("no rows matched joining %q to %q after normalization, check the key columns",
				cfg.SynthKeyColumn, cfg.AffinityKeyColumn),
		}
	}
	out.Stats.MatchedKeys = stats.Matched
	out.Stats.MergedRows = stats.Output

	// A colliding objective column carries its origin suffix after the
	// merge.
	objA := mergedColumn(synth, affinity, cfg.ObjectiveA, cfg.SynthSuffix)
	objB := mergedColumn(affinity, synth, cfg.ObjectiveB, cfg.AffinitySuffix)
	idCol := mergedColumn(affinity, synth, cfg.AffinityKeyColumn, cfg.AffinitySuffix)

	front, err := pareto.ComputeFrontier(merged, pareto.FrontierOptions{
		ObjA:        objA,
		ObjB:        objB,
		IDColumn:    idCol,
		IncludeTies: cfg.IncludeTies,
		Lenient:     cfg.Lenient,
	})
	if err != nil {
		return nil, StageFrontier, err
	}

	out.Frontier = front.Points
	out.Trace = front.Trace
	out.Stats.FrontierSize = front.Points.Len()
	out.Stats.SkippedRows = front.Skipped

	for i, row := range front.Points.Rows {
		out.Points = append(out.Points, &store.FrontierPoint{
			RunID:    run.ID,
			Rank:     i,
			LigandID: row[idCol],
			ObjA:     front.Trace[i].A,
			ObjB:     front.Trace[i].B,
		})
	}
	return out, "", nil
}

// mergedColumn returns the name a column of table t carries after
// merging with other: suffixed when both tables declare it.
func mergedColumn(t, other *tabular.Table, col, suffix string) string {
	if t.HasColumn(col) && other.HasColumn(col) {
		return col + suffix
	}
	return col
}

// RenderCSV serializes a table for persistence.
func RenderCSV(t *tabular.Table) (string, error) {
	var sb strings.Builder
	if err := tabular.WriteCSV(&sb, t); err != nil {
		return "", err
	}
	return sb.String(), nil
}
