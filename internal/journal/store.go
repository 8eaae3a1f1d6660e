package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// stampLayout is fixed width so stamps sort lexically in time order.
const stampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store persists runs and their stage outcomes.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a store on an opened journal database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// RunRecord is one pipeline run as stored in the journal.
type RunRecord struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt *time.Time
	Mode       string
	Status     string
	Tag        string
	Stages     []StageRecord
}

// StageRecord is the outcome of one stage within a run.
type StageRecord struct {
	Seq        int
	Stage      string
	Status     string
	Detail     string
	RecordedAt time.Time
}

// StartRun inserts a run in the running state.
func (s *Store) StartRun(ctx context.Context, runID, mode string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO runs(run_id, started_at, mode, status) VALUES(?, ?, ?, ?)`,
		runID, s.stamp(), mode, "running"); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordStage appends a stage outcome to the run.
func (s *Store) RecordStage(ctx context.Context, runID, stage, status, detail string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin record stage: %w", err)
	}
	var seq int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM stages WHERE run_id=?`, runID).Scan(&seq); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("next stage seq: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO stages(run_id, seq, stage, status, detail, recorded_at) VALUES(?, ?, ?, ?, ?, ?)`,
		runID, seq, stage, status, detail, s.stamp()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert stage: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record stage: %w", err)
	}
	return nil
}

// FinishRun sets the final status and the tag that was published, if any.
func (s *Store) FinishRun(ctx context.Context, runID, status, tag string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET finished_at=?, status=?, tag=? WHERE run_id=?`,
		s.stamp(), status, nullableString(tag), runID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run: unknown run %s", runID)
	}
	return nil
}

// ListRuns returns the newest runs first, each with its stages.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, started_at, finished_at, mode, status, tag
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []RunRecord
	for rows.Next() {
		var (
			rec           RunRecord
			started       string
			finished, tag sql.NullString
		)
		if err := rows.Scan(&rec.RunID, &started, &finished, &rec.Mode, &rec.Status, &tag); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if rec.StartedAt, err = parseStamp(started); err != nil {
			return nil, err
		}
		if finished.Valid {
			ts, err := parseStamp(finished.String)
			if err != nil {
				return nil, err
			}
			rec.FinishedAt = &ts
		}
		rec.Tag = tag.String
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	for i := range runs {
		stages, err := s.stages(ctx, runs[i].RunID)
		if err != nil {
			return nil, err
		}
		runs[i].Stages = stages
	}
	return runs, nil
}

func (s *Store) stages(ctx context.Context, runID string) ([]StageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, stage, status, detail, recorded_at FROM stages WHERE run_id=? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StageRecord
	for rows.Next() {
		var (
			rec      StageRecord
			recorded string
		)
		if err := rows.Scan(&rec.Seq, &rec.Stage, &rec.Status, &rec.Detail, &recorded); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		if rec.RecordedAt, err = parseStamp(recorded); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stages: %w", err)
	}
	return out, nil
}

func (s *Store) stamp() string {
	return s.now().UTC().Format(stampLayout)
}

func parseStamp(v string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", v, err)
	}
	return ts, nil
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
