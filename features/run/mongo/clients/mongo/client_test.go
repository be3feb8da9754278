package mongo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/tripsmith/tripsmith/runtime/run"
)

func TestEnsureIndexes(t *testing.T) {
	fc := newFakeCollection()
	err := ensureIndexes(context.Background(), fc)
	require.NoError(t, err)
	require.True(t, fc.indexCreated)
}

func TestCreateAndLoad(t *testing.T) {
	client := mustNewTestClient()
	completed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	rec := run.Record{
		RunID:        "run-1",
		OrgID:        "org-acme",
		UserID:       "user-7",
		Status:       run.StatusCompleted,
		StartedAt:    completed.Add(-time.Minute),
		UpdatedAt:    completed,
		CompletedAt:  &completed,
		PlanSnapshot: []byte(`{"days":3}`),
	}
	err := client.CreateRun(context.Background(), rec)
	require.NoError(t, err)

	stored, err := client.LoadRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, rec.RunID, stored.RunID)
	require.Equal(t, rec.OrgID, stored.OrgID)
	require.Equal(t, rec.UserID, stored.UserID)
	require.Equal(t, rec.Status, stored.Status)
	require.True(t, stored.StartedAt.Equal(rec.StartedAt))
	require.NotNil(t, stored.CompletedAt)
	require.True(t, stored.CompletedAt.Equal(completed))
	require.JSONEq(t, `{"days":3}`, string(stored.PlanSnapshot))
}

func TestCreateDefaultsTimestamps(t *testing.T) {
	client := mustNewTestClient()
	err := client.CreateRun(context.Background(), run.Record{RunID: "run-2", Status: run.StatusRunning})
	require.NoError(t, err)

	stored, err := client.LoadRun(context.Background(), "run-2")
	require.NoError(t, err)
	require.False(t, stored.StartedAt.IsZero())
	require.True(t, stored.UpdatedAt.Equal(stored.StartedAt))
	require.Nil(t, stored.CompletedAt)
}

func TestCreateDuplicateReturnsErrExists(t *testing.T) {
	client := mustNewTestClient()
	rec := run.Record{RunID: "run-dup", Status: run.StatusRunning}
	require.NoError(t, client.CreateRun(context.Background(), rec))

	err := client.CreateRun(context.Background(), rec)
	require.ErrorIs(t, err, run.ErrExists)
	require.Contains(t, err.Error(), "run-dup")
}

func TestCreateRequiresID(t *testing.T) {
	client := mustNewTestClient()
	err := client.CreateRun(context.Background(), run.Record{Status: run.StatusRunning})
	require.EqualError(t, err, "run id is required")
}

func TestLoadMissingReturnsErrNotFound(t *testing.T) {
	client := mustNewTestClient()
	_, err := client.LoadRun(context.Background(), "missing")
	require.ErrorIs(t, err, run.ErrNotFound)
}

func TestLoadRequiresID(t *testing.T) {
	client := mustNewTestClient()
	_, err := client.LoadRun(context.Background(), "")
	require.EqualError(t, err, "run id is required")
}

func TestUpdateAppliesPartialChange(t *testing.T) {
	client := mustNewTestClient()
	rec := run.Record{RunID: "run-3", OrgID: "org-acme", Status: run.StatusRunning}
	require.NoError(t, client.CreateRun(context.Background(), rec))
	before, err := client.LoadRun(context.Background(), "run-3")
	require.NoError(t, err)

	completed := time.Now().UTC().Truncate(time.Millisecond)
	err = client.UpdateRun(context.Background(), "run-3", run.Update{
		Status:       run.StatusCompleted,
		CompletedAt:  &completed,
		PlanSnapshot: []byte(`{"days":2}`),
	})
	require.NoError(t, err)

	after, err := client.LoadRun(context.Background(), "run-3")
	require.NoError(t, err)
	require.Equal(t, run.StatusCompleted, after.Status)
	require.NotNil(t, after.CompletedAt)
	require.True(t, after.CompletedAt.Equal(completed))
	require.JSONEq(t, `{"days":2}`, string(after.PlanSnapshot))
	require.Equal(t, "org-acme", after.OrgID)
	require.False(t, after.UpdatedAt.Before(before.UpdatedAt))
}

func TestUpdateKeepsUnsetFields(t *testing.T) {
	client := mustNewTestClient()
	rec := run.Record{RunID: "run-4", Status: run.StatusRunning}
	require.NoError(t, client.CreateRun(context.Background(), rec))

	err := client.UpdateRun(context.Background(), "run-4", run.Update{Error: "verifier budget exceeded"})
	require.NoError(t, err)

	after, err := client.LoadRun(context.Background(), "run-4")
	require.NoError(t, err)
	require.Equal(t, run.StatusRunning, after.Status)
	require.Equal(t, "verifier budget exceeded", after.Error)
	require.Nil(t, after.CompletedAt)
}

func TestUpdateMissingReturnsErrNotFound(t *testing.T) {
	client := mustNewTestClient()
	err := client.UpdateRun(context.Background(), "missing", run.Update{Status: run.StatusError})
	require.ErrorIs(t, err, run.ErrNotFound)
}

func TestUpdateRequiresID(t *testing.T) {
	client := mustNewTestClient()
	err := client.UpdateRun(context.Background(), "", run.Update{Status: run.StatusError})
	require.EqualError(t, err, "run id is required")
}

func mustNewTestClient() *client {
	fc := newFakeCollection()
	cl, err := newClientWithCollection(nil, fc, time.Second)
	if err != nil {
		panic(err)
	}
	return cl
}

type fakeCollection struct {
	mu           sync.Mutex
	indexCreated bool
	docs         map[string]runDocument
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{docs: make(map[string]runDocument)}
}

func (c *fakeCollection) FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	runID := filter.(bson.M)["run_id"].(string)
	doc, ok := c.docs[runID]
	if !ok {
		return fakeSingleResult{err: mongodriver.ErrNoDocuments}
	}
	copyDoc := doc
	return fakeSingleResult{doc: &copyDoc}
}

func (c *fakeCollection) InsertOne(ctx context.Context, doc any, opts ...options.Lister[options.InsertOneOptions]) (*mongodriver.InsertOneResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record := doc.(runDocument)
	if _, ok := c.docs[record.RunID]; ok {
		return nil, mongodriver.WriteException{WriteErrors: []mongodriver.WriteError{{Code: 11000}}}
	}
	c.docs[record.RunID] = record
	return &mongodriver.InsertOneResult{InsertedID: record.RunID}, nil
}

func (c *fakeCollection) UpdateOne(ctx context.Context, filter any, update any,
	opts ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	runID := filter.(bson.M)["run_id"].(string)
	doc, ok := c.docs[runID]
	if !ok {
		return &mongodriver.UpdateResult{MatchedCount: 0}, nil
	}
	sets := update.(bson.M)["$set"].(bson.M)
	for key, val := range sets {
		switch key {
		case "status":
			doc.Status = val.(run.Status)
		case "updated_at":
			doc.UpdatedAt = val.(time.Time)
		case "completed_at":
			ts := val.(time.Time)
			doc.CompletedAt = &ts
		case "plan_snapshot":
			doc.PlanSnapshot = val.([]byte)
		case "error":
			doc.Error = val.(string)
		}
	}
	c.docs[runID] = doc
	return &mongodriver.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (c *fakeCollection) Indexes() indexView {
	return fakeIndexView{parent: &c.indexCreated}
}

type fakeIndexView struct {
	parent *bool
}

func (v fakeIndexView) CreateOne(ctx context.Context, model mongodriver.IndexModel,
	opts ...options.Lister[options.CreateIndexesOptions]) (string, error) {
	if len(model.Keys.(bson.D)) == 0 {
		return "", errors.New("missing keys")
	}
	*v.parent = true
	return "run_id_idx", nil
}

type fakeSingleResult struct {
	doc *runDocument
	err error
}

func (r fakeSingleResult) Decode(val any) error {
	if r.err != nil {
		return r.err
	}
	target, ok := val.(*runDocument)
	if !ok {
		return errors.New("unsupported target")
	}
	*target = *r.doc
	return nil
}
