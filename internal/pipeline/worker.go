package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hope-box/frontier/internal/config"
	"github.com/hope-box/frontier/internal/events"
	"github.com/hope-box/frontier/internal/store"
)

// Worker drains the run queue: each tick claims the oldest queued run,
// executes the core pipeline, persists outputs, and announces the
// result. One run at a time; the core is in-memory and fast, and
// serial processing keeps failure reporting simple.
type Worker struct {
	store  store.Store
	events events.Client
	cfg    *config.Config
	logger *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func New(s store.Store, e events.Client, cfg *config.Config, logger *slog.Logger) *Worker {
	return &Worker{
		store:  s,
		events: e,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.loop(ctx)
}

func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick processes queued runs until the queue is empty.
func (w *Worker) Tick(ctx context.Context) {
	for {
		run, err := w.store.ClaimNextQueuedRun(ctx)
		if err != nil {
			w.logger.Error("failed to claim run", "error", err)
			return
		}
		if run == nil {
			return
		}
		w.processRun(ctx, run)
	}
}

func (w *Worker) processRun(ctx context.Context, run *store.Run) {
	w.logger.Info("processing run",
		"run_id", run.ID,
		"pdbid", run.PDBID,
		"experiment", run.Experiment,
	)
	start := time.Now()

	out, stage, err := ExecuteRun(run)
	elapsed := time.Since(start)

	if err != nil {
		w.failRun(ctx, run, stage, err)
		return
	}

	rankedCSV, err := RenderCSV(out.Ranked)
	if err != nil {
		w.failRun(ctx, run, StageRank, err)
		return
	}
	frontierCSV, err := RenderCSV(out.Frontier)
	if err != nil {
		w.failRun(ctx, run, StageFrontier, err)
		return
	}

	now := time.Now().UTC()
	run.Status = store.StatusCompleted
	run.CompletedAt = &now
	run.RankedCSV = rankedCSV
	run.FrontierCSV = frontierCSV
	out.Stats.DurationMs = elapsed.Milliseconds()
	run.Stats = &out.Stats

	if err := w.store.UpdateRun(ctx, run); err != nil {
		w.logger.Error("failed to persist run", "run_id", run.ID, "error", err)
		return
	}
	if err := w.store.ReplaceFrontierPoints(ctx, run.ID, out.Points); err != nil {
		w.logger.Error("failed to persist frontier points", "run_id", run.ID, "error", err)
	}

	runsProcessed.WithLabelValues(string(store.StatusCompleted)).Inc()
	runDuration.Observe(elapsed.Seconds())
	frontierSize.Observe(float64(out.Stats.FrontierSize))

	// Zero merged rows from empty inputs and an empty frontier are
	// reportable outcomes, not failures.
	if out.Stats.FrontierSize == 0 {
		w.logger.Warn("run produced an empty frontier",
			"run_id", run.ID,
			"merged_rows", out.Stats.MergedRows,
		)
	}
	if out.Stats.SkippedRows > 0 {
		w.logger.Warn("lenient mode skipped unparseable rows",
			"run_id", run.ID,
			"skipped", out.Stats.SkippedRows,
		)
	}

	w.logger.Info("run completed",
		"run_id", run.ID,
		"merged_rows", out.Stats.MergedRows,
		"frontier_size", out.Stats.FrontierSize,
		"duration_ms", out.Stats.DurationMs,
	)

	if w.events != nil {
		_ = w.events.Publish(events.SubjectRunCompleted(run.ID.String()), events.RunCompletedEvent{
			RunID:        run.ID.String(),
			MergedRows:   out.Stats.MergedRows,
			FrontierSize: out.Stats.FrontierSize,
			SkippedRows:  out.Stats.SkippedRows,
			DurationMs:   out.Stats.DurationMs,
		})
		ligandIDs := make([]string, len(out.Points))
		for i, p := range out.Points {
			ligandIDs[i] = p.LigandID
		}
		_ = w.events.Publish(events.SubjectFrontierComputed(run.ID.String()), events.FrontierComputedEvent{
			RunID:      run.ID.String(),
			ObjectiveA: run.Config.ObjectiveA,
			ObjectiveB: run.Config.ObjectiveB,
			Size:       len(ligandIDs),
			Ligands:    ligandIDs,
			Timestamp:  now,
		})
	}
}

func (w *Worker) failRun(ctx context.Context, run *store.Run, stage string, err error) {
	w.logger.Error("run failed",
		"run_id", run.ID,
		"stage", stage,
		"error", err,
	)

	now := time.Now().UTC()
	run.Status = store.StatusFailed
	run.CompletedAt = &now
	run.Error = err.Error()
	if uerr := w.store.UpdateRun(ctx, run); uerr != nil {
		w.logger.Error("failed to persist run failure", "run_id", run.ID, "error", uerr)
	}

	runsProcessed.WithLabelValues(string(store.StatusFailed)).Inc()

	if w.events != nil {
		_ = w.events.Publish(events.SubjectRunFailed(run.ID.String()), events.RunFailedEvent{
			RunID: run.ID.String(),
			Error: err.Error(),
			Stage: stage,
		})
	}
}
