package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/scoring"
)

// ScoreRun is one persisted all-engines comparison of a document.
type ScoreRun struct {
	ID               uuid.UUID        `json:"id"`
	DocumentSHA256   string           `json:"document_sha256"`
	SourcePath       string           `json:"source_path"`
	TotalModels      int              `json:"total_models"`
	SuccessfulModels int              `json:"successful_models"`
	BestEngine       string           `json:"best_engine"`
	MeanScore        float64          `json:"mean_score"`
	Factors          scoring.Factors  `json:"factors"`
	CreatedAt        time.Time        `json:"created_at"`
	Entries          []scoring.Result `json:"entries"`
}

type ScoreRunRepository interface {
	Save(ctx context.Context, run *ScoreRun) error
	Get(ctx context.Context, id uuid.UUID) (*ScoreRun, error)
	ListByDocument(ctx context.Context, sha256 string, limit int) ([]ScoreRun, error)
}

type scoreRunRepo struct {
	db  *DB
	log *slog.Logger
}

func NewScoreRunRepository(db *DB, log *slog.Logger) ScoreRunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &scoreRunRepo{db: db, log: log}
}

// Save assigns an id and timestamp when missing and writes the run and its
// entries in one transaction.
func (r *scoreRunRepo) Save(ctx context.Context, run *ScoreRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	factors, err := json.Marshal(run.Factors)
	if err != nil {
		return fmt.Errorf("encode factors: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", common.ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, r.db.rebind(`INSERT INTO score_runs
		(id, document_sha256, source_path, total_models, successful_models, best_engine, mean_score, factors, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID.String(), run.DocumentSHA256, run.SourcePath, run.TotalModels, run.SuccessfulModels,
		run.BestEngine, run.MeanScore, string(factors), run.CreatedAt)
	if err != nil {
		r.log.Error("score_run insert failed", "run_id", run.ID, "err", err)
		return fmt.Errorf("%w: insert run: %v", common.ErrDatabase, err)
	}

	insertEntry := r.db.rebind(`INSERT INTO score_entries
		(run_id, position, engine, score, confidence, success, error, processing_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	for i, e := range run.Entries {
		if _, err := tx.ExecContext(ctx, insertEntry,
			run.ID.String(), i, e.Engine, e.Score, e.Confidence, e.Success, e.Error, e.ProcessingTime); err != nil {
			r.log.Error("score_entry insert failed", "run_id", run.ID, "engine", e.Engine, "err", err)
			return fmt.Errorf("%w: insert entry: %v", common.ErrDatabase, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", common.ErrDatabase, err)
	}
	r.log.Info("score_run saved", "run_id", run.ID, "document_sha256", run.DocumentSHA256, "entries", len(run.Entries))
	return nil
}

func (r *scoreRunRepo) Get(ctx context.Context, id uuid.UUID) (*ScoreRun, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(selectRun+` WHERE id = ?`), id.String())
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: score run %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get run: %v", common.ErrDatabase, err)
	}
	if err := r.loadEntries(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// ListByDocument returns the newest runs for a document first.
func (r *scoreRunRepo) ListByDocument(ctx context.Context, sha256 string, limit int) ([]ScoreRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, r.db.rebind(selectRun+` WHERE document_sha256 = ? ORDER BY created_at DESC, id LIMIT ?`), sha256, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list runs: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []ScoreRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan run: %v", common.ErrDatabase, err)
		}
		out = append(out, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list runs: %v", common.ErrDatabase, err)
	}
	for i := range out {
		if err := r.loadEntries(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

const selectRun = `SELECT id, document_sha256, source_path, total_models, successful_models, best_engine, mean_score, factors, created_at FROM score_runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*ScoreRun, error) {
	var (
		run     ScoreRun
		id      string
		factors string
	)
	if err := s.Scan(&id, &run.DocumentSHA256, &run.SourcePath, &run.TotalModels, &run.SuccessfulModels,
		&run.BestEngine, &run.MeanScore, &factors, &run.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse run id: %w", err)
	}
	run.ID = parsed
	if err := json.Unmarshal([]byte(factors), &run.Factors); err != nil {
		return nil, fmt.Errorf("decode factors: %w", err)
	}
	return &run, nil
}

func (r *scoreRunRepo) loadEntries(ctx context.Context, run *ScoreRun) error {
	rows, err := r.db.QueryContext(ctx, r.db.rebind(`SELECT engine, score, confidence, success, error, processing_time
		FROM score_entries WHERE run_id = ? ORDER BY position`), run.ID.String())
	if err != nil {
		return fmt.Errorf("%w: load entries: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	run.Entries = []scoring.Result{}
	for rows.Next() {
		var e scoring.Result
		if err := rows.Scan(&e.Engine, &e.Score, &e.Confidence, &e.Success, &e.Error, &e.ProcessingTime); err != nil {
			return fmt.Errorf("%w: scan entry: %v", common.ErrDatabase, err)
		}
		run.Entries = append(run.Entries, e)
	}
	return rows.Err()
}
