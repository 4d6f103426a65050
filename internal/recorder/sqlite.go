package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"MarketLens/internal/logger"
	"MarketLens/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *logger.Entry
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, l *logger.Log) (*SQLiteRecorder, error) {
	if l == nil {
		l = logger.Discard()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the HTTP server read while a scheduled run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: l.WithComponent("recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.WithFields(logger.Fields{"path": dbPath}).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pipeline_runs (
			run_id      TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			succeeded   INTEGER NOT NULL,
			failed      INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON pipeline_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS dataset_runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL,
			dataset      TEXT NOT NULL,
			observations INTEGER NOT NULL,
			dropped      INTEGER NOT NULL,
			error        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dataset_runs_run ON dataset_runs(run_id)`,

		`CREATE TABLE IF NOT EXISTS observations (
			dataset         TEXT NOT NULL,
			date            TEXT NOT NULL,
			open            TEXT,
			high            TEXT,
			low             TEXT,
			close           TEXT,
			volume          TEXT,
			adjusted_close  TEXT,
			dividend_amount TEXT,
			run_id          TEXT NOT NULL,
			PRIMARY KEY (dataset, date)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

const upsertObservation = `INSERT INTO observations
	(dataset, date, open, high, low, close, volume, adjusted_close, dividend_amount, run_id)
	VALUES (?,?,?,?,?,?,?,?,?,?)
	ON CONFLICT(dataset, date) DO UPDATE SET
		open = excluded.open,
		high = excluded.high,
		low = excluded.low,
		close = excluded.close,
		volume = excluded.volume,
		adjusted_close = excluded.adjusted_close,
		dividend_amount = excluded.dividend_amount,
		run_id = excluded.run_id`

// RecordRun stores the run summary, one row per dataset outcome and upserts
// every cleaned observation by (dataset, date).
func (r *SQLiteRecorder) RecordRun(ctx context.Context, res *model.PipelineResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO pipeline_runs
		(run_id, started_at, finished_at, succeeded, failed) VALUES (?,?,?,?,?)`,
		res.RunID, res.StartedAt.Unix(), res.FinishedAt.Unix(), len(res.Datasets), len(res.Failures),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, name := range model.AllDatasets {
		var (
			count   int
			errText sql.NullString
		)
		if ds, ok := res.Datasets[name]; ok {
			count = ds.Len()
		} else if ferr, ok := res.Failures[name]; ok {
			errText = sql.NullString{String: ferr.Error(), Valid: true}
		} else {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO dataset_runs
			(run_id, dataset, observations, dropped, error) VALUES (?,?,?,?,?)`,
			res.RunID, string(name), count, res.Dropped[name], errText,
		); err != nil {
			return fmt.Errorf("insert dataset run %s: %w", name, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, upsertObservation)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	upserted := 0
	for _, ds := range res.Succeeded() {
		for i := range ds.Observations {
			o := &ds.Observations[i]
			if _, err := stmt.ExecContext(ctx,
				string(ds.Name), o.Date.Format(model.DateLayout),
				o.Open, o.High, o.Low, o.Close, o.Volume, o.AdjustedClose, o.DividendAmount,
				res.RunID,
			); err != nil {
				return fmt.Errorf("upsert %s %s: %w", ds.Name, o.Date.Format(model.DateLayout), err)
			}
			upserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.log.WithFields(logger.Fields{"run_id": res.RunID, "observations": upserted}).Debug("run recorded")
	return nil
}

// History returns every stored observation of a dataset in date order.
func (r *SQLiteRecorder) History(ctx context.Context, name model.DatasetName) (*model.Dataset, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT date, open, high, low, close, volume, adjusted_close, dividend_amount
		FROM observations WHERE dataset = ? ORDER BY date`, string(name))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	ds := &model.Dataset{Name: name}
	for rows.Next() {
		var (
			date string
			o    model.Observation
		)
		if err := rows.Scan(&date, &o.Open, &o.High, &o.Low, &o.Close, &o.Volume, &o.AdjustedClose, &o.DividendAmount); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if o.Date, err = model.ParseDate(date); err != nil {
			return nil, err
		}
		ds.Observations = append(ds.Observations, o)
	}
	return ds, rows.Err()
}

// Runs returns the most recent runs, newest first.
func (r *SQLiteRecorder) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT run_id, started_at, finished_at, succeeded, failed
		FROM pipeline_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec               RunRecord
			started, finished int64
		)
		if err := rows.Scan(&rec.RunID, &started, &finished, &rec.Succeeded, &rec.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.StartedAt = time.Unix(started, 0).UTC()
		rec.FinishedAt = time.Unix(finished, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
