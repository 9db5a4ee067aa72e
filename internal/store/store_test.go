package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *RunStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s, err := New(db)
	require.NoError(t, err)
	return s
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := Run{ID: uuid.NewString(), Command: "fit", Stage: "val", Status: "passed", StartedAt: base, ConfigHash: "aaa"}
	newer := Run{ID: uuid.NewString(), Command: "test", Stage: "test", Status: "failed", StartedAt: base.Add(time.Hour), ConfigHash: "aaa"}

	require.NoError(t, s.RecordRun(ctx, older, []MetricPoint{
		{Epoch: 1, Name: "val_loss", Value: 0.4},
		{Epoch: 0, Name: "val_loss", Value: 0.6},
		{Epoch: 0, Name: "train_loss", Value: 0.7},
	}))
	require.NoError(t, s.RecordRun(ctx, newer, []MetricPoint{
		{Epoch: FinalEpoch, Name: "test_accuracy", Value: 0.75},
	}))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, "failed", runs[0].Status)
	assert.True(t, runs[1].StartedAt.Equal(base))

	limited, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	points, err := s.RunMetrics(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, []MetricPoint{
		{Epoch: 0, Name: "train_loss", Value: 0.7},
		{Epoch: 0, Name: "val_loss", Value: 0.6},
		{Epoch: 1, Name: "val_loss", Value: 0.4},
	}, points)
}

func TestRecordRunRollsBackOnDuplicate(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	run := Run{ID: "dup", Command: "fit", StartedAt: time.Now(), ConfigHash: "x"}
	require.NoError(t, s.RecordRun(ctx, run, nil))
	assert.Error(t, s.RecordRun(ctx, run, []MetricPoint{{Epoch: 0, Name: "val_loss", Value: 1}}))

	points, err := s.RunMetrics(ctx, "dup")
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestRunMetricsUnknownRun(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.RunMetrics(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.RecordRun(context.Background(), Run{ID: "a", Command: "fit", StartedAt: time.Now(), ConfigHash: "h"}, nil))
	runs, err := s.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
