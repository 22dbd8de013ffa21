package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"ValuationSentinel/internal/model"
)

// SQLiteRecorder persists evaluation runs to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the HTTP history endpoint read while a run is being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS evaluation_runs (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_uuid      TEXT,
			started_at    INTEGER NOT NULL,
			finished_at   INTEGER NOT NULL,
			policy        TEXT,
			rsi_method    TEXT,
			evaluated     INTEGER,
			skipped       INTEGER,
			opportunities INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON evaluation_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS ticker_results (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id            INTEGER NOT NULL REFERENCES evaluation_runs(id),
			ticker            TEXT NOT NULL,
			signal            TEXT,
			reasons           TEXT,
			price             REAL,
			rsi               REAL,
			rsi_defined       INTEGER,
			trend             TEXT,
			moving_average    REAL,
			graham_price      REAL,
			graham_margin_pct REAL,
			bazin_ceiling     REAL,
			roe               REAL,
			pe                REAL,
			pb                REAL,
			dividend_yield    REAL,
			error             TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_ticker ON ticker_results(ticker, run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores run and its per-ticker results in a single transaction
// and returns the new run id.
func (r *SQLiteRecorder) RecordRun(run *model.Run) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	counts := run.CountBySignal()
	skipped := len(run.Skipped())
	ins, err := tx.Exec(`INSERT INTO evaluation_runs
		(run_uuid, started_at, finished_at, policy, rsi_method, evaluated, skipped, opportunities)
		VALUES (?,?,?,?,?,?,?,?)`,
		run.ID, run.StartedAt.Unix(), run.FinishedAt.Unix(), run.Policy, run.RSIMethod,
		len(run.Results)-skipped, skipped,
		counts[model.SignalBuy]+counts[model.SignalBuyGold],
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := ins.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO ticker_results
		(run_id, ticker, signal, reasons, price, rsi, rsi_defined, trend, moving_average,
		 graham_price, graham_margin_pct, bazin_ceiling, roe, pe, pb, dividend_yield, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range run.Results {
		if res.Err != nil {
			if _, err := stmt.Exec(runID, res.Ticker, nil, nil, nil, nil, nil, nil, nil,
				nil, nil, nil, nil, nil, nil, nil, res.Err.Error()); err != nil {
				return 0, fmt.Errorf("insert %s: %w", res.Ticker, err)
			}
			continue
		}
		b := res.Bundle
		var signal, reasons string
		if res.Classification != nil {
			signal = string(res.Classification.Signal)
			reasons = strings.Join(res.Classification.Reasons, "; ")
		}
		if _, err := stmt.Exec(runID, res.Ticker, signal, reasons,
			b.LastPrice, b.RSI, b.RSIDefined, string(b.Trend), b.MovingAverage,
			b.GrahamPrice, b.GrahamMarginPct, b.BazinCeiling,
			b.ROE, b.PE, b.PB, b.DividendYield, nil); err != nil {
			return 0, fmt.Errorf("insert %s: %w", res.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}

// History returns the most recent classifications of ticker, newest first.
// Skipped entries are omitted.
func (r *SQLiteRecorder) History(ctx context.Context, ticker string, limit int) ([]HistoryRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT t.run_id, e.started_at, t.signal, t.price, t.rsi, t.trend, t.reasons
		FROM ticker_results t JOIN evaluation_runs e ON e.id = t.run_id
		WHERE t.ticker = ? AND t.error IS NULL
		ORDER BY t.run_id DESC LIMIT ?`, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var (
			h  HistoryRow
			ts int64
		)
		if err := rows.Scan(&h.RunID, &ts, &h.Signal, &h.Price, &h.RSI, &h.Trend, &h.Reasons); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.Timestamp = time.Unix(ts, 0)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
