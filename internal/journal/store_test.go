package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func TestStore_RunLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.StartRun(ctx, "run-1", "strict"))
	require.NoError(t, store.RecordStage(ctx, "run-1", "generate", "ok", ""))
	require.NoError(t, store.RecordStage(ctx, "run-1", "distribute", "ok", "2 files"))
	require.NoError(t, store.RecordStage(ctx, "run-1", "publish", "ok", "v1.2.0"))
	require.NoError(t, store.FinishRun(ctx, "run-1", "succeeded", "v1.2.0"))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, "run-1", run.RunID)
	assert.Equal(t, "strict", run.Mode)
	assert.Equal(t, "succeeded", run.Status)
	assert.Equal(t, "v1.2.0", run.Tag)
	require.NotNil(t, run.FinishedAt)
	require.Len(t, run.Stages, 3)
	assert.Equal(t, []string{"generate", "distribute", "publish"},
		[]string{run.Stages[0].Stage, run.Stages[1].Stage, run.Stages[2].Stage})
	assert.Equal(t, 2, run.Stages[1].Seq)
	assert.Equal(t, "2 files", run.Stages[1].Detail)
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.StartRun(ctx, id, "best-effort"))
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)
	assert.Nil(t, runs[0].FinishedAt)
	assert.Empty(t, runs[0].Tag)
	assert.Equal(t, "running", runs[0].Status)
}

func TestStore_ListRunsWithinOneSecond(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openStore(t)
	stamps := []time.Time{
		time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 12, 0, 0, 500_000_000, time.UTC),
	}
	next := 0
	store.now = func() time.Time {
		ts := stamps[next]
		next++
		return ts
	}

	require.NoError(t, store.StartRun(ctx, "whole", "strict"))
	require.NoError(t, store.StartRun(ctx, "half", "strict"))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "half", runs[0].RunID)
	assert.Equal(t, "whole", runs[1].RunID)
	assert.True(t, runs[1].StartedAt.Equal(stamps[0]))
}

func TestStore_FinishUnknownRun(t *testing.T) {
	t.Parallel()

	err := openStore(t).FinishRun(context.Background(), "ghost", "failed", "")
	assert.Error(t, err)
}

func TestStore_StageRequiresRun(t *testing.T) {
	t.Parallel()

	err := openStore(t).RecordStage(context.Background(), "ghost", "generate", "ok", "")
	assert.Error(t, err, "foreign key must reject stages for unknown runs")
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, NewStore(db).StartRun(ctx, "persisted", "strict"))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	runs, err := NewStore(db).ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "persisted", runs[0].RunID)
}
