package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	StatusQueued     RunStatus = "queued"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// RunConfig is the per-run table schema: which columns to join on,
// which columns are the two minimized objectives, and the tie/bad-row
// policies. Defaults come from config.DockingConfig; submitters may
// override any field.
type RunConfig struct {
	SynthKeyColumn    string `json:"synth_key_column"`
	AffinityKeyColumn string `json:"affinity_key_column"`
	ObjectiveA        string `json:"objective_a"`
	ObjectiveB        string `json:"objective_b"`
	StructureSuffix   string `json:"structure_suffix"`
	SynthSuffix       string `json:"synth_suffix"`
	AffinitySuffix    string `json:"affinity_suffix"`
	Lenient           bool   `json:"lenient"`
	IncludeTies       bool   `json:"include_ties"`
}

// RunStats summarizes one processed run: merge match counts, frontier
// size, rows dropped in lenient mode, and wall time.
type RunStats struct {
	RowsSynth    int   `json:"rows_synth"`
	RowsAffinity int   `json:"rows_affinity"`
	MatchedKeys  int   `json:"matched_keys"`
	MergedRows   int   `json:"merged_rows"`
	FrontierSize int   `json:"frontier_size"`
	SkippedRows  int   `json:"skipped_rows"`
	DurationMs   int64 `json:"duration_ms"`
}

// Run is one post-processing job: two submitted score tables plus the
// experiment coordinates of the docking run that produced them.
type Run struct {
	ID uuid.UUID `json:"run_id"`

	// Experiment coordinates, following the docking pipeline's
	// directory scheme.
	PDBID            string `json:"pdbid"`
	Experiment       string `json:"experiment"`
	Epoch            int    `json:"epoch"`
	NumGen           int    `json:"num_gen"`
	KnownBindingSite string `json:"known_binding_site,omitempty"`

	Status RunStatus `json:"status"`
	Config RunConfig `json:"config"`

	// Raw submitted tables, kept verbatim for reprocessing.
	SynthCSV    string `json:"-"`
	AffinityCSV string `json:"-"`

	// Outputs, present once completed.
	RankedCSV   string    `json:"-"`
	FrontierCSV string    `json:"-"`
	Stats       *RunStats `json:"stats,omitempty"`
	Error       string    `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// FrontierPoint is one Pareto-optimal ligand of a completed run, in
// staircase order.
type FrontierPoint struct {
	RunID    uuid.UUID `json:"run_id"`
	Rank     int       `json:"rank"`
	LigandID string    `json:"ligand_id"`
	ObjA     float64   `json:"obj_a"`
	ObjB     float64   `json:"obj_b"`
}

type RunFilter struct {
	Status     *RunStatus
	PDBID      string
	Experiment string
	Limit      int
	Offset     int
}

type ServiceStats struct {
	Queued          int     `json:"queued"`
	Processing      int     `json:"processing"`
	Completed       int     `json:"completed"`
	Failed          int     `json:"failed"`
	AvgProcessingMs float64 `json:"avg_processing_ms"`
}

type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
	UpdateRun(ctx context.Context, run *Run) error

	// ClaimNextQueuedRun atomically moves the oldest queued run to
	// processing and returns it, or nil when the queue is empty.
	ClaimNextQueuedRun(ctx context.Context) (*Run, error)

	ReplaceFrontierPoints(ctx context.Context, runID uuid.UUID, points []*FrontierPoint) error
	GetFrontierPoints(ctx context.Context, runID uuid.UUID) ([]*FrontierPoint, error)

	GetStats(ctx context.Context) (*ServiceStats, error)

	Close() error
}
