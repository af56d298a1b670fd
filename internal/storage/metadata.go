package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

// created_at is stored as fixed-width UTC text so it sorts lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunSummary is one row of the run history.
type RunSummary struct {
	RunID       string              `json:"run_id"`
	CreatedAt   time.Time           `json:"created_at"`
	Summary     types.CorpusSummary `json:"summary"`
	Excluded    int                 `json:"excluded"`
	Failed      int                 `json:"failed"`
	SkippedRows int                 `json:"skipped_rows"`
}

// RunStore handles SQLite run history operations
type RunStore struct {
	db *sql.DB
}

// NewRunStore opens (or creates) the run history database
func NewRunStore(dbPath string) (*RunStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL,
		recordings INTEGER NOT NULL,
		average_wer REAL,
		average_der REAL,
		average_jer REAL,
		average_detection_error_rate REAL,
		excluded TEXT NOT NULL,
		failed TEXT NOT NULL,
		skipped_rows INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS recording_metrics (
		run_id TEXT NOT NULL,
		recording_id TEXT NOT NULL,
		wer REAL,
		der REAL,
		jer REAL,
		detection_error_rate REAL,
		PRIMARY KEY (run_id, recording_id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &RunStore{db: db}, nil
}

// SaveReport stores a run and its per-recording metrics in one transaction
func (rs *RunStore) SaveReport(report *types.Report) error {
	excluded, err := json.Marshal(nonNil(report.Excluded))
	if err != nil {
		return fmt.Errorf("failed to encode excluded recordings: %w", err)
	}
	failed, err := json.Marshal(nonNil(report.Failed))
	if err != nil {
		return fmt.Errorf("failed to encode failed recordings: %w", err)
	}

	tx, err := rs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	s := report.Summary
	_, err = tx.Exec(`
	INSERT INTO runs (run_id, created_at, recordings, average_wer, average_der, average_jer,
		average_detection_error_rate, excluded, failed, skipped_rows)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, report.CreatedAt.UTC().Format(timeLayout), s.Recordings,
		nullFloat(s.AverageWER), nullFloat(s.AverageDER), nullFloat(s.AverageJER),
		nullFloat(s.AverageDetectionErrorRate), string(excluded), string(failed), report.SkippedRows)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", report.RunID, err)
	}

	stmt, err := tx.Prepare(`
	INSERT INTO recording_metrics (run_id, recording_id, wer, der, jer, detection_error_rate)
	VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare metrics insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range report.Results {
		if _, err := stmt.Exec(report.RunID, r.RecordingID,
			nullFloat(r.WER), nullFloat(r.DER), nullFloat(r.JER), nullFloat(r.DetectionErrorRate)); err != nil {
			return fmt.Errorf("failed to save metrics for %s: %w", r.RecordingID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", report.RunID, err)
	}
	return nil
}

// GetRun retrieves a full report by run id
func (rs *RunStore) GetRun(runID string) (*types.Report, error) {
	row := rs.db.QueryRow(`
	SELECT run_id, created_at, recordings, average_wer, average_der, average_jer,
		average_detection_error_rate, excluded, failed, skipped_rows
	FROM runs WHERE run_id = ?`, runID)

	var (
		summary          RunSummary
		excluded, failed string
	)
	if err := scanRun(row, &summary, &excluded, &failed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", types.ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	report := &types.Report{
		RunID:       summary.RunID,
		CreatedAt:   summary.CreatedAt,
		Summary:     summary.Summary,
		SkippedRows: summary.SkippedRows,
		Results:     []types.MetricResult{},
	}
	if err := json.Unmarshal([]byte(excluded), &report.Excluded); err != nil {
		return nil, fmt.Errorf("failed to decode excluded recordings: %w", err)
	}
	if err := json.Unmarshal([]byte(failed), &report.Failed); err != nil {
		return nil, fmt.Errorf("failed to decode failed recordings: %w", err)
	}

	rows, err := rs.db.Query(`
	SELECT recording_id, wer, der, jer, detection_error_rate
	FROM recording_metrics WHERE run_id = ? ORDER BY recording_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run metrics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r                  types.MetricResult
			wer, der, jer, det sql.NullFloat64
		)
		if err := rows.Scan(&r.RecordingID, &wer, &der, &jer, &det); err != nil {
			return nil, fmt.Errorf("failed to scan run metrics: %w", err)
		}
		r.WER, r.DER, r.JER, r.DetectionErrorRate = fromNull(wer), fromNull(der), fromNull(jer), fromNull(det)
		report.Results = append(report.Results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run metrics: %w", err)
	}

	return report, nil
}

// ListRuns returns the most recent runs first
func (rs *RunStore) ListRuns(limit int) ([]RunSummary, error) {
	rows, err := rs.db.Query(`
	SELECT run_id, created_at, recordings, average_wer, average_der, average_jer,
		average_detection_error_rate, excluded, failed, skipped_rows
	FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			summary          RunSummary
			excluded, failed string
		)
		if err := scanRun(rows, &summary, &excluded, &failed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		var ex []types.RecordingMismatch
		var fl []string
		if json.Unmarshal([]byte(excluded), &ex) == nil {
			summary.Excluded = len(ex)
		}
		if json.Unmarshal([]byte(failed), &fl) == nil {
			summary.Failed = len(fl)
		}
		runs = append(runs, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}

// Close closes the database connection
func (rs *RunStore) Close() error {
	return rs.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner, s *RunSummary, excluded, failed *string) error {
	var (
		createdAt          string
		wer, der, jer, det sql.NullFloat64
	)
	if err := row.Scan(&s.RunID, &createdAt, &s.Summary.Recordings, &wer, &der, &jer, &det,
		excluded, failed, &s.SkippedRows); err != nil {
		return err
	}

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	s.CreatedAt = t
	s.Summary.AverageWER = fromNull(wer)
	s.Summary.AverageDER = fromNull(der)
	s.Summary.AverageJER = fromNull(jer)
	s.Summary.AverageDetectionErrorRate = fromNull(det)
	return nil
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
