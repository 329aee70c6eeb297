package events

import "time"

type RunQueuedEvent struct {
	RunID      string `json:"run_id"`
	PDBID      string `json:"pdbid"`
	Experiment string `json:"experiment"`
	Epoch      int    `json:"epoch"`
}

type RunCompletedEvent struct {
	RunID        string `json:"run_id"`
	MergedRows   int    `json:"merged_rows"`
	FrontierSize int    `json:"frontier_size"`
	SkippedRows  int    `json:"skipped_rows,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
}

type RunFailedEvent struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
	Stage string `json:"stage"` // load, merge, rank, frontier
}

type FrontierComputedEvent struct {
	RunID      string    `json:"run_id"`
	ObjectiveA string    `json:"objective_a"`
	ObjectiveB string    `json:"objective_b"`
	Size       int       `json:"size"`
	Ligands    []string  `json:"ligands"`
	Timestamp  time.Time `json:"timestamp"`
}
