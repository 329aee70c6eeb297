package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS docking_runs (
	run_id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	pdbid              TEXT NOT NULL,
	experiment         TEXT NOT NULL,
	epoch              INT NOT NULL DEFAULT 0,
	num_gen            INT NOT NULL DEFAULT 0,
	known_binding_site TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL,
	config             JSONB NOT NULL,
	synth_csv          TEXT NOT NULL DEFAULT '',
	affinity_csv       TEXT NOT NULL DEFAULT '',
	ranked_csv         TEXT NOT NULL DEFAULT '',
	frontier_csv       TEXT NOT NULL DEFAULT '',
	stats              JSONB,
	error              TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at         TIMESTAMPTZ,
	completed_at       TIMESTAMPTZ,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS docking_runs_status_idx ON docking_runs (status, created_at);

CREATE TABLE IF NOT EXISTS frontier_points (
	run_id    UUID NOT NULL REFERENCES docking_runs(run_id) ON DELETE CASCADE,
	rank      INT NOT NULL,
	ligand_id TEXT NOT NULL,
	obj_a     DOUBLE PRECISION NOT NULL,
	obj_b     DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, rank)
);
`

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const runColumns = `run_id, pdbid, experiment, epoch, num_gen, known_binding_site,
	status, config, synth_csv, affinity_csv, ranked_csv, frontier_csv,
	stats, error, created_at, started_at, completed_at, updated_at`

func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	configJSON, _ := json.Marshal(run.Config)

	return s.pool.QueryRow(ctx, `
		INSERT INTO docking_runs (pdbid, experiment, epoch, num_gen, known_binding_site,
			status, config, synth_csv, affinity_csv)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING run_id, created_at, updated_at`,
		run.PDBID, run.Experiment, run.Epoch, run.NumGen, run.KnownBindingSite,
		run.Status, configJSON, run.SynthCSV, run.AffinityCSV,
	).Scan(&run.ID, &run.CreatedAt, &run.UpdatedAt)
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+runColumns+`
		FROM docking_runs WHERE run_id = $1`, id)
	run, err := scanRun(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM docking_runs WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	if filter.PDBID != "" {
		n++
		query += fmt.Sprintf(" AND pdbid = $%d", n)
		args = append(args, filter.PDBID)
	}
	if filter.Experiment != "" {
		n++
		query += fmt.Sprintf(" AND experiment = $%d", n)
		args = append(args, filter.Experiment)
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *Run) error {
	configJSON, _ := json.Marshal(run.Config)
	var statsJSON []byte
	if run.Stats != nil {
		statsJSON, _ = json.Marshal(run.Stats)
	}

	_, err := s.pool.Exec(ctx, `
		UPDATE docking_runs
		SET status = $2, config = $3, ranked_csv = $4, frontier_csv = $5,
			stats = $6, error = $7, started_at = $8, completed_at = $9,
			updated_at = now()
		WHERE run_id = $1`,
		run.ID, run.Status, configJSON, run.RankedCSV, run.FrontierCSV,
		statsJSON, run.Error, run.StartedAt, run.CompletedAt,
	)
	return err
}

func (s *PostgresStore) ClaimNextQueuedRun(ctx context.Context) (*Run, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE docking_runs
		SET status = 'processing', started_at = now(), updated_at = now()
		WHERE run_id = (
			SELECT run_id FROM docking_runs
			WHERE status = 'queued'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+runColumns)
	run, err := scanRun(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *PostgresStore) ReplaceFrontierPoints(ctx context.Context, runID uuid.UUID, points []*FrontierPoint) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM frontier_points WHERE run_id = $1`, runID); err != nil {
		return err
	}
	for _, p := range points {
		if _, err := tx.Exec(ctx, `
			INSERT INTO frontier_points (run_id, rank, ligand_id, obj_a, obj_b)
			VALUES ($1, $2, $3, $4, $5)`,
			runID, p.Rank, p.LigandID, p.ObjA, p.ObjB,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetFrontierPoints(ctx context.Context, runID uuid.UUID) ([]*FrontierPoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, rank, ligand_id, obj_a, obj_b
		FROM frontier_points WHERE run_id = $1
		ORDER BY rank ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*FrontierPoint
	for rows.Next() {
		p := &FrontierPoint{}
		if err := rows.Scan(&p.RunID, &p.Rank, &p.LigandID, &p.ObjA, &p.ObjB); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetStats(ctx context.Context) (*ServiceStats, error) {
	stats := &ServiceStats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'queued'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - started_at)) * 1000)
				FILTER (WHERE status = 'completed'), 0)
		FROM docking_runs`,
	).Scan(&stats.Queued, &stats.Processing, &stats.Completed, &stats.Failed, &stats.AvgProcessingMs)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

type pgRow interface {
	Scan(dest ...interface{}) error
}

func scanRun(row pgRow) (*Run, error) {
	run := &Run{}
	var configJSON, statsJSON []byte
	err := row.Scan(
		&run.ID, &run.PDBID, &run.Experiment, &run.Epoch, &run.NumGen, &run.KnownBindingSite,
		&run.Status, &configJSON, &run.SynthCSV, &run.AffinityCSV, &run.RankedCSV, &run.FrontierCSV,
		&statsJSON, &run.Error, &run.CreatedAt, &run.StartedAt, &run.CompletedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if configJSON != nil {
		_ = json.Unmarshal(configJSON, &run.Config)
	}
	if statsJSON != nil {
		run.Stats = &RunStats{}
		_ = json.Unmarshal(statsJSON, run.Stats)
	}
	return run, nil
}
