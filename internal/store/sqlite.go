package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the single-node backend: same contract as Postgres,
// one file on disk, no server. The default for dev and for lab
// machines that run the whole pipeline locally.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS docking_runs (
	run_id             TEXT PRIMARY KEY,
	pdbid              TEXT NOT NULL,
	experiment         TEXT NOT NULL,
	epoch              INTEGER NOT NULL DEFAULT 0,
	num_gen            INTEGER NOT NULL DEFAULT 0,
	known_binding_site TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL,
	config             TEXT NOT NULL,
	synth_csv          TEXT NOT NULL DEFAULT '',
	affinity_csv       TEXT NOT NULL DEFAULT '',
	ranked_csv         TEXT NOT NULL DEFAULT '',
	frontier_csv       TEXT NOT NULL DEFAULT '',
	stats              TEXT,
	error              TEXT NOT NULL DEFAULT '',
	created_at         TEXT NOT NULL,
	started_at         TEXT,
	completed_at       TEXT,
	updated_at         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS docking_runs_status_idx ON docking_runs (status, created_at);

CREATE TABLE IF NOT EXISTS frontier_points (
	run_id    TEXT NOT NULL,
	rank      INTEGER NOT NULL,
	ligand_id TEXT NOT NULL,
	obj_a     REAL NOT NULL,
	obj_b     REAL NOT NULL,
	PRIMARY KEY (run_id, rank),
	FOREIGN KEY (run_id) REFERENCES docking_runs(run_id)
);
`

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	// The claim query read-modify-writes; one writer keeps it atomic.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	run.ID = uuid.New()
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now
	configJSON, _ := json.Marshal(run.Config)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO docking_runs (run_id, pdbid, experiment, epoch, num_gen, known_binding_site,
			status, config, synth_csv, affinity_csv, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.PDBID, run.Experiment, run.Epoch, run.NumGen, run.KnownBindingSite,
		string(run.Status), string(configJSON), run.SynthCSV, run.AffinityCSV,
		fmtTime(now), fmtTime(now),
	)
	return err
}

const sqliteRunColumns = `run_id, pdbid, experiment, epoch, num_gen, known_binding_site,
	status, config, synth_csv, affinity_csv, ranked_csv, frontier_csv,
	stats, error, created_at, started_at, completed_at, updated_at`

func (s *SQLiteStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sqliteRunColumns+`
		FROM docking_runs WHERE run_id = ?`, id.String())
	run, err := scanSQLiteRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM docking_runs WHERE 1=1`
	args := []interface{}{}

	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	if filter.PDBID != "" {
		query += " AND pdbid = ?"
		args = append(args, filter.PDBID)
	}
	if filter.Experiment != "" {
		query += " AND experiment = ?"
		args = append(args, filter.Experiment)
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		run, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *Run) error {
	run.UpdatedAt = time.Now().UTC()
	configJSON, _ := json.Marshal(run.Config)
	var statsJSON interface{}
	if run.Stats != nil {
		b, _ := json.Marshal(run.Stats)
		statsJSON = string(b)
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE docking_runs
		SET status = ?, config = ?, ranked_csv = ?, frontier_csv = ?,
			stats = ?, error = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE run_id = ?`,
		string(run.Status), string(configJSON), run.RankedCSV, run.FrontierCSV,
		statsJSON, run.Error, fmtTimePtr(run.StartedAt), fmtTimePtr(run.CompletedAt),
		fmtTime(run.UpdatedAt), run.ID.String(),
	)
	return err
}

func (s *SQLiteStore) ClaimNextQueuedRun(ctx context.Context) (*Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+sqliteRunColumns+`
		FROM docking_runs WHERE status = ?
		ORDER BY created_at ASC LIMIT 1`, string(StatusQueued))
	run, err := scanSQLiteRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	run.Status = StatusProcessing
	run.StartedAt = &now
	run.UpdatedAt = now
	if _, err := tx.ExecContext(ctx, `
		UPDATE docking_runs
		SET status = ?, started_at = ?, updated_at = ?
		WHERE run_id = ?`,
		string(StatusProcessing), fmtTime(now), fmtTime(now), run.ID.String(),
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStore) ReplaceFrontierPoints(ctx context.Context, runID uuid.UUID, points []*FrontierPoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM frontier_points WHERE run_id = ?`, runID.String()); err != nil {
		return err
	}
	for _, p := range points {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO frontier_points (run_id, rank, ligand_id, obj_a, obj_b)
			VALUES (?, ?, ?, ?, ?)`,
			runID.String(), p.Rank, p.LigandID, p.ObjA, p.ObjB,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetFrontierPoints(ctx context.Context, runID uuid.UUID) ([]*FrontierPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, rank, ligand_id, obj_a, obj_b
		FROM frontier_points WHERE run_id = ?
		ORDER BY rank ASC`, runID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*FrontierPoint
	for rows.Next() {
		p := &FrontierPoint{}
		var id string
		if err := rows.Scan(&id, &p.Rank, &p.LigandID, &p.ObjA, &p.ObjB); err != nil {
			return nil, err
		}
		p.RunID, _ = uuid.Parse(id)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetStats(ctx context.Context) (*ServiceStats, error) {
	stats := &ServiceStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'queued'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COALESCE(AVG(
				(julianday(completed_at) - julianday(started_at)) * 86400000.0
			) FILTER (WHERE status = 'completed'), 0)
		FROM docking_runs`,
	).Scan(&stats.Queued, &stats.Processing, &stats.Completed, &stats.Failed, &stats.AvgProcessingMs)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

type sqliteRow interface {
	Scan(dest ...interface{}) error
}

func scanSQLiteRun(row sqliteRow) (*Run, error) {
	run := &Run{}
	var id, status, configJSON, createdAt, updatedAt string
	var statsJSON, startedAt, completedAt sql.NullString
	err := row.Scan(
		&id, &run.PDBID, &run.Experiment, &run.Epoch, &run.NumGen, &run.KnownBindingSite,
		&status, &configJSON, &run.SynthCSV, &run.AffinityCSV, &run.RankedCSV, &run.FrontierCSV,
		&statsJSON, &run.Error, &createdAt, &startedAt, &completedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse run id: %w", err)
	}
	run.Status = RunStatus(status)
	_ = json.Unmarshal([]byte(configJSON), &run.Config)
	if statsJSON.Valid && statsJSON.String != "" {
		run.Stats = &RunStats{}
		_ = json.Unmarshal([]byte(statsJSON.String), run.Stats)
	}
	run.CreatedAt = parseTime(createdAt)
	run.UpdatedAt = parseTime(updatedAt)
	if startedAt.Valid && startedAt.String != "" {
		t := parseTime(startedAt.String)
		run.StartedAt = &t
	}
	if completedAt.Valid && completedAt.String != "" {
		t := parseTime(completedAt.String)
		run.CompletedAt = &t
	}
	return run, nil
}

// Fixed-width so lexicographic ORDER BY matches chronological order;
// RFC3339Nano trims trailing zeros and breaks string comparison.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func fmtTime(t time.Time) string { return t.UTC().Format(sqliteTimeLayout) }

func fmtTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
