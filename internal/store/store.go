// Package store persists the history of service runs in sqlite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyFinished = errors.New("already finished")
)

// Run is one execution of a configured job
type Run struct {
	UUID          string
	Job           string
	Kind          string
	Target        string
	InProgress    bool
	Success       *bool
	Result        *string // JSON document, set when successful
	FailureReason *string
}

type RunRow struct {
	Run
	ID       int
	Started  time.Time
	Finished *time.Time
}

func (r RunRow) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "uuid: %q, job: %q, in_progress: %t", r.UUID, r.Job, r.InProgress)
	if r.Success != nil {
		fmt.Fprintf(&sb, ", success: %t", *r.Success)
	} else {
		sb.WriteString(", success: nil")
	}
	if r.FailureReason != nil {
		fmt.Fprintf(&sb, ", failure_reason: %q", *r.FailureReason)
	} else {
		sb.WriteString(", failure_reason: nil")
	}
	return sb.String()
}

// InitDB opens the database at dbPath and creates the schema. ":memory:"
// gives a private in-memory database.
func InitDB(ctx context.Context, dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// every pooled connection to :memory: would see its own database
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT NOT NULL UNIQUE,
			job TEXT NOT NULL,
			kind TEXT NOT NULL,
			target TEXT NOT NULL,
			in_progress BOOLEAN NOT NULL,
			success BOOLEAN DEFAULT NULL,
			result TEXT DEFAULT NULL,
			failure_reason TEXT DEFAULT NULL,
			started INTEGER NOT NULL,
			finished INTEGER DEFAULT NULL
		)`,
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS runs_job ON runs (job, id)`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

type TxCallback = func(ctx context.Context, tx *sql.Tx) error

func Tx(ctx context.Context, db *sql.DB, fn TxCallback) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("Calling `tx.Rollback()` failed.", slog.String("err", err.Error()))
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction failed: %w", err)
	}

	return nil
}

// Start records that the run identified by run.UUID is in progress.
// Starting a run which is still in progress is a no-op, a finished run
// returns ErrAlreadyFinished.
func Start(ctx context.Context, db *sql.DB, run Run) error {
	return Tx(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		var inProgress bool
		err := tx.QueryRowContext(ctx,
			`SELECT in_progress FROM runs WHERE uuid=?`, run.UUID,
		).Scan(&inProgress)
		switch {
		case err == nil && inProgress:
			return nil
		case err == nil && !inProgress:
			return ErrAlreadyFinished
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("executing sql query failed: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO runs (uuid, job, kind, target, in_progress, started) VALUES (?,?,?,?,?,?);`,
			run.UUID, run.Job, run.Kind, run.Target, true, time.Now().UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("executing sql insert failed: %w", err)
		}
		return nil
	})
}

// Get returns the run identified by uuid or ErrNotFound.
func Get(ctx context.Context, db *sql.DB, uuid string) (RunRow, error) {
	var ret RunRow
	txErr := Tx(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, selectRuns+` WHERE uuid=?`, uuid)
		r, err := scanRow(row)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrNotFound
		case err != nil:
			return fmt.Errorf("executing sql query failed: %w", err)
		}
		ret = r
		return nil
	})
	return ret, txErr
}

// ListByJob returns up to limit runs of a job, newest first. A limit
// lower than one returns all of them.
func ListByJob(ctx context.Context, db *sql.DB, job string, limit int) ([]RunRow, error) {
	if limit < 1 {
		limit = -1
	}
	var ret []RunRow
	txErr := Tx(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			selectRuns+` WHERE job=? ORDER BY id DESC LIMIT ?`, job, limit,
		)
		if err != nil {
			return fmt.Errorf("executing sql query failed: %w", err)
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			r, err := scanRow(rows)
			if err != nil {
				return fmt.Errorf("scanning row failed: %w", err)
			}
			ret = append(ret, r)
		}
		return rows.Err()
	})
	return ret, txErr
}

// FinishOK stores the JSON result of a successful run. A finished run
// returns ErrAlreadyFinished, an unknown one ErrNotFound.
func FinishOK(ctx context.Context, db *sql.DB, uuid, result string) error {
	return finish(ctx, db, uuid, true, `result`, result)
}

// FinishErr stores the reason of a failed run. A finished run returns
// ErrAlreadyFinished, an unknown one ErrNotFound.
func FinishErr(ctx context.Context, db *sql.DB, uuid, reason string) error {
	return finish(ctx, db, uuid, false, `failure_reason`, reason)
}

func finish(ctx context.Context, db *sql.DB, uuid string, success bool, column, value string) error {
	return Tx(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		if err := checkIsInProgress(ctx, tx, uuid); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE runs
			 SET
				in_progress = false,
				success = ?,
				`+column+` = ?,
				finished = ?
			WHERE uuid = ?;
			`, success, value, time.Now().UnixMilli(), uuid,
		)
		if err != nil {
			return fmt.Errorf("executing sql update failed: %w", err)
		}
		return nil
	})
}

func checkIsInProgress(ctx context.Context, tx *sql.Tx, uuid string) error {
	var inProgress bool
	err := tx.QueryRowContext(ctx,
		`SELECT in_progress FROM runs WHERE uuid=?`, uuid,
	).Scan(&inProgress)
	switch {
	case err == nil && !inProgress:
		return ErrAlreadyFinished
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case err != nil:
		return fmt.Errorf("executing sql query failed: %w", err)
	}
	return nil
}

// Delete removes the run identified by uuid or returns ErrNotFound.
func Delete(ctx context.Context, db *sql.DB, uuid string) error {
	return Tx(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM runs WHERE uuid=?`, uuid,
		)
		if err != nil {
			return fmt.Errorf("executing sql delete failed: %w", err)
		}

		ra, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("fetching affected rows failed: %w", err)
		}
		if ra != 1 {
			return ErrNotFound
		}
		return nil
	})
}

const selectRuns = `SELECT id, uuid, job, kind, target, in_progress, success, result, failure_reason, started, finished FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (RunRow, error) {
	var (
		r        RunRow
		started  int64
		finished *int64
	)
	err := s.Scan(
		&r.ID,
		&r.UUID,
		&r.Job,
		&r.Kind,
		&r.Target,
		&r.InProgress,
		&r.Success,
		&r.Result,
		&r.FailureReason,
		&started,
		&finished,
	)
	if err != nil {
		return RunRow{}, err
	}
	r.Started = time.UnixMilli(started).UTC()
	if finished != nil {
		t := time.UnixMilli(*finished).UTC()
		r.Finished = &t
	}
	return r, nil
}
