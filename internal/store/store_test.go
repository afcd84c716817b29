package store_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/CZERTAINLY/netprobe/internal/store"

	"github.com/stretchr/testify/require"
)

const specialFilename = ":memory:"

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.InitDB(context.Background(), specialFilename)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

func run(uuid, job string) store.Run {
	return store.Run{UUID: uuid, Job: job, Kind: "scan", Target: "example.com"}
}

func TestInitDB(t *testing.T) {
	t.Run("fail", func(t *testing.T) {
		t.Parallel()
		db, err := store.InitDB(context.Background(), "/non/existing/path")
		require.Error(t, err)
		require.Nil(t, db)
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		db, err := store.InitDB(context.Background(), specialFilename)
		require.NoError(t, err)
		require.NotNil(t, db)
		require.NoError(t, db.Close())
	})

	t.Run("fail exec context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		db, err := store.InitDB(ctx, specialFilename)
		require.Error(t, err)
		require.Nil(t, db)
		require.True(t, errors.Is(err, context.Canceled))
	})
}

func TestStart(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*sql.DB)
		uuid    string
		wantErr error
	}{
		{
			name:  "new run",
			setup: func(db *sql.DB) {},
			uuid:  "uuid-1",
		},
		{
			name: "run already in progress",
			setup: func(db *sql.DB) {
				require.NoError(t, store.Start(context.Background(), db, run("uuid-2", "web")))
			},
			uuid: "uuid-2",
		},
		{
			name: "run already finished",
			setup: func(db *sql.DB) {
				require.NoError(t, store.Start(context.Background(), db, run("uuid-3", "web")))
				require.NoError(t, store.FinishOK(context.Background(), db, "uuid-3", "[]"))
			},
			uuid:    "uuid-3",
			wantErr: store.ErrAlreadyFinished,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			tt.setup(db)

			err := store.Start(context.Background(), db, run(tt.uuid, "web"))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)

	_, err := store.Get(ctx, db, "uuid-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, store.Start(ctx, db, run("uuid-1", "web")))
	r, err := store.Get(ctx, db, "uuid-1")
	require.NoError(t, err)
	require.Equal(t, "uuid-1", r.UUID)
	require.Equal(t, "web", r.Job)
	require.Equal(t, "scan", r.Kind)
	require.Equal(t, "example.com", r.Target)
	require.True(t, r.InProgress)
	require.Nil(t, r.Success)
	require.Nil(t, r.Result)
	require.Nil(t, r.Finished)
	require.False(t, r.Started.IsZero())

	require.NoError(t, store.FinishOK(ctx, db, "uuid-1", `[{"port":80}]`))
	r, err = store.Get(ctx, db, "uuid-1")
	require.NoError(t, err)
	require.False(t, r.InProgress)
	require.NotNil(t, r.Success)
	require.True(t, *r.Success)
	require.Equal(t, `[{"port":80}]`, *r.Result)
	require.Nil(t, r.FailureReason)
	require.NotNil(t, r.Finished)
	require.False(t, r.Finished.Before(r.Started))

	require.ErrorIs(t, store.FinishOK(ctx, db, "uuid-1", "[]"), store.ErrAlreadyFinished)
	require.ErrorIs(t, store.FinishErr(ctx, db, "uuid-1", "boom"), store.ErrAlreadyFinished)

	require.NoError(t, store.Start(ctx, db, run("uuid-2", "web")))
	require.NoError(t, store.FinishErr(ctx, db, "uuid-2", "boom"))
	r, err = store.Get(ctx, db, "uuid-2")
	require.NoError(t, err)
	require.False(t, *r.Success)
	require.Equal(t, "boom", *r.FailureReason)
	require.Nil(t, r.Result)

	require.NoError(t, store.Delete(ctx, db, "uuid-1"))
	require.ErrorIs(t, store.Delete(ctx, db, "uuid-1"), store.ErrNotFound)
	require.ErrorIs(t, store.FinishOK(ctx, db, "uuid-1", "[]"), store.ErrNotFound)
	_, err = store.Get(ctx, db, "uuid-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestListByJob(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)

	for i := range 5 {
		require.NoError(t, store.Start(ctx, db, run(fmt.Sprintf("web-%d", i), "web")))
	}
	require.NoError(t, store.Start(ctx, db, run("dns-0", "dns")))

	rows, err := store.ListByJob(ctx, db, "web", 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, uuid := range []string{"web-4", "web-3", "web-2"} {
		require.Equal(t, uuid, rows[i].UUID)
	}

	rows, err = store.ListByJob(ctx, db, "web", 0)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	rows, err = store.ListByJob(ctx, db, "missing", 10)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, store.Start(ctx, db, run("uuid-1", "web")), context.Canceled)
	_, err := store.Get(ctx, db, "uuid-1")
	require.ErrorIs(t, err, context.Canceled)
	_, err = store.ListByJob(ctx, db, "web", 1)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, store.FinishOK(ctx, db, "uuid-1", "[]"), context.Canceled)
	require.ErrorIs(t, store.FinishErr(ctx, db, "uuid-1", "boom"), context.Canceled)
	require.ErrorIs(t, store.Delete(ctx, db, "uuid-1"), context.Canceled)
}

func TestRunRow_String(t *testing.T) {
	trueVal := true
	reason := "test-reason"

	tests := []struct {
		name     string
		row      store.RunRow
		expected string
	}{
		{
			name:     "in progress",
			row:      store.RunRow{Run: store.Run{UUID: "u", Job: "web", InProgress: true}},
			expected: `uuid: "u", job: "web", in_progress: true, success: nil, failure_reason: nil`,
		},
		{
			name:     "success",
			row:      store.RunRow{Run: store.Run{UUID: "u", Job: "web", Success: &trueVal}},
			expected: `uuid: "u", job: "web", in_progress: false, success: true, failure_reason: nil`,
		},
		{
			name:     "failure",
			row:      store.RunRow{Run: store.Run{UUID: "u", Job: "web", FailureReason: &reason}},
			expected: `uuid: "u", job: "web", in_progress: false, success: nil, failure_reason: "test-reason"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.row.String())
		})
	}
}
