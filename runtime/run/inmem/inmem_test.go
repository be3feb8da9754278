package inmem

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tripsmith/tripsmith/runtime/run"
)

func TestStoreCreateGet(t *testing.T) {
	store := New()
	ctx := context.Background()

	r := run.Record{OrgID: "org-1", UserID: "user-1", RunID: "r1", Status: run.StatusRunning}
	require.NoError(t, store.Create(ctx, r))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "org-1", got.OrgID)
	require.Equal(t, run.StatusRunning, got.Status)
	require.False(t, got.StartedAt.IsZero(), "create must stamp StartedAt")
	require.Equal(t, got.StartedAt, got.UpdatedAt)
}

func TestStoreCreateDuplicate(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, run.Record{RunID: "r1", Status: run.StatusRunning}))
	err := store.Create(ctx, run.Record{RunID: "r1", Status: run.StatusRunning})
	require.ErrorIs(t, err, run.ErrExists)

	require.Error(t, store.Create(ctx, run.Record{}), "empty run id must be rejected")
}

func TestStoreGetMissing(t *testing.T) {
	store := New()
	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, run.ErrNotFound)
}

func TestStoreUpdateLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, run.Record{RunID: "r1", Status: run.StatusRunning}))

	done := time.Now().UTC()
	snapshot := json.RawMessage(`{"plan_id":"p1"}`)
	require.NoError(t, store.Update(ctx, "r1", run.Update{
		Status:       run.StatusCompleted,
		CompletedAt:  &done,
		PlanSnapshot: snapshot,
	}))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, run.StatusCompleted, got.Status)
	require.True(t, got.Status.Terminal())
	require.NotNil(t, got.CompletedAt)
	require.Equal(t, done, *got.CompletedAt)
	require.JSONEq(t, string(snapshot), string(got.PlanSnapshot))
	require.Empty(t, got.Error)
}

func TestStoreUpdateError(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, run.Record{RunID: "r1", Status: run.StatusRunning}))
	require.NoError(t, store.Update(ctx, "r1", run.Update{Status: run.StatusError, Error: "planner: no feasible days"}))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, run.StatusError, got.Status)
	require.Equal(t, "planner: no feasible days", got.Error)

	require.ErrorIs(t, store.Update(ctx, "missing", run.Update{Status: run.StatusError}), run.ErrNotFound)
}

func TestStorePartialUpdateKeepsFields(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, run.Record{RunID: "r1", OrgID: "org-1", Status: run.StatusRunning}))
	require.NoError(t, store.Update(ctx, "r1", run.Update{PlanSnapshot: json.RawMessage(`{"a":1}`)}))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, run.StatusRunning, got.Status, "zero-valued update fields must not clobber")
	require.Equal(t, "org-1", got.OrgID)
	require.True(t, got.UpdatedAt.After(got.StartedAt) || got.UpdatedAt.Equal(got.StartedAt))
}

func TestStoreDefensiveCopies(t *testing.T) {
	store := New()
	ctx := context.Background()

	snapshot := json.RawMessage(`{"plan_id":"p1"}`)
	require.NoError(t, store.Create(ctx, run.Record{RunID: "r1", Status: run.StatusRunning, PlanSnapshot: snapshot}))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	got.PlanSnapshot[2] = 'X'

	reread, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	require.JSONEq(t, string(snapshot), string(reread.PlanSnapshot), "expected defensive copy")
}

func TestStoreReset(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, run.Record{RunID: "r1", Status: run.StatusRunning}))
	store.Reset()
	_, err := store.Get(ctx, "r1")
	require.ErrorIs(t, err, run.ErrNotFound)
}
