// Package history keeps a local SQLite log of balance check runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // SQLite driver

	"satoribalance/internal/aggregate"
	"satoribalance/internal/fetcher"
)

// Store is a run history database.
type Store struct {
	db   *sql.DB
	path string
}

// Run is one completed balance check.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Summary    aggregate.Summary
	Records    []fetcher.Record
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a run and all its records in one transaction and returns the run ID.
func (s *Store) SaveRun(ctx context.Context, run Run) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (started_at, finished_at, address_count, total, valid_count, absent_count, failure_count, average)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		len(run.Records),
		run.Summary.Total.String(),
		run.Summary.ValidCount,
		run.Summary.AbsentCount,
		run.Summary.FailureCount,
		run.Summary.Average.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO balances (run_id, address, outcome, balance) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare balance insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range run.Records {
		if _, err := stmt.ExecContext(ctx, runID, r.Address, r.Outcome.Kind.String(), r.Outcome.Text); err != nil {
			return 0, fmt.Errorf("failed to insert balance for %s: %w", r.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	return runID, nil
}

// RecentRuns returns up to limit runs, newest first, without their records.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, finished_at, total, valid_count, absent_count, failure_count, average
		FROM runs
		ORDER BY run_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run               Run
			started, finished string
			total, average    string
		)
		if err := rows.Scan(&run.ID, &started, &finished, &total,
			&run.Summary.ValidCount, &run.Summary.AbsentCount, &run.Summary.FailureCount, &average); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("run %d: bad started_at: %w", run.ID, err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("run %d: bad finished_at: %w", run.ID, err)
		}
		if run.Summary.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("run %d: bad total: %w", run.ID, err)
		}
		if run.Summary.Average, err = decimal.NewFromString(average); err != nil {
			return nil, fmt.Errorf("run %d: bad average: %w", run.ID, err)
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Balances returns the records stored for a run, in the order they were saved.
func (s *Store) Balances(ctx context.Context, runID int64) ([]fetcher.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, outcome, balance
		FROM balances
		WHERE run_id = ?
		ORDER BY balance_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var records []fetcher.Record
	for rows.Next() {
		var address, kindName, text string
		if err := rows.Scan(&address, &kindName, &text); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}

		kind, err := fetcher.ParseKind(kindName)
		if err != nil {
			return nil, fmt.Errorf("balance for %s: %w", address, err)
		}

		outcome := fetcher.Outcome{Kind: kind, Text: text}
		if kind == fetcher.KindValue {
			amount, ok := fetcher.ParseAmount(text)
			if !ok {
				return nil, fmt.Errorf("balance for %s: stored value %q is not an amount", address, text)
			}
			outcome.Amount = amount
		}

		records = append(records, fetcher.Record{Address: address, Outcome: outcome})
	}

	return records, rows.Err()
}
