// Package mongo hosts the MongoDB client used by the run store.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"goa.design/clue/health"

	"github.com/tripsmith/tripsmith/runtime/run"
)

const (
	defaultRunsCollection = "planning_runs"
	defaultOpTimeout      = 5 * time.Second
	runClientName         = "run-mongo"
)

// Client exposes Mongo-backed operations for run records.
type Client interface {
	health.Pinger

	CreateRun(ctx context.Context, record run.Record) error
	LoadRun(ctx context.Context, runID string) (run.Record, error)
	UpdateRun(ctx context.Context, runID string, update run.Update) error
}

// Options configures the Mongo run client.
type Options struct {
	Client     *mongodriver.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

type client struct {
	mongo   *mongodriver.Client
	coll    collection
	timeout time.Duration
}

// New returns a Client backed by MongoDB.
func New(opts Options) (Client, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	collName := opts.Collection
	if collName == "" {
		collName = defaultRunsCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	mcoll := opts.Client.Database(opts.Database).Collection(collName)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	wrapper := mongoCollection{coll: mcoll}
	if err := ensureIndexes(ctx, wrapper); err != nil {
		return nil, err
	}
	return newClientWithCollection(opts.Client, wrapper, timeout)
}

func (c *client) Name() string {
	return runClientName
}

func (c *client) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.mongo.Ping(ctx, readpref.Primary())
}

func (c *client) CreateRun(ctx context.Context, record run.Record) error {
	if record.RunID == "" {
		return errors.New("run id is required")
	}
	now := time.Now().UTC()
	if record.StartedAt.IsZero() {
		record.StartedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.StartedAt
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if _, err := c.coll.InsertOne(ctx, fromRecord(record)); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("create run %q: %w", record.RunID, run.ErrExists)
		}
		return err
	}
	return nil
}

func (c *client) LoadRun(ctx context.Context, runID string) (run.Record, error) {
	if runID == "" {
		return run.Record{}, errors.New("run id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var doc runDocument
	if err := c.coll.FindOne(ctx, bson.M{"run_id": runID}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return run.Record{}, fmt.Errorf("get run %q: %w", runID, run.ErrNotFound)
		}
		return run.Record{}, err
	}
	return doc.toRecord(), nil
}

func (c *client) UpdateRun(ctx context.Context, runID string, update run.Update) error {
	if runID == "" {
		return errors.New("run id is required")
	}
	sets := bson.M{"updated_at": time.Now().UTC()}
	if update.Status != "" {
		sets["status"] = update.Status
	}
	if update.CompletedAt != nil {
		sets["completed_at"] = update.CompletedAt.UTC()
	}
	if len(update.PlanSnapshot) > 0 {
		sets["plan_snapshot"] = []byte(update.PlanSnapshot)
	}
	if update.Error != "" {
		sets["error"] = update.Error
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	res, err := c.coll.UpdateOne(ctx, bson.M{"run_id": runID}, bson.M{"$set": sets})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update run %q: %w", runID, run.ErrNotFound)
	}
	return nil
}

func (c *client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

type runDocument struct {
	RunID        string     `bson:"run_id"`
	OrgID        string     `bson:"org_id,omitempty"`
	UserID       string     `bson:"user_id,omitempty"`
	Status       run.Status `bson:"status"`
	StartedAt    time.Time  `bson:"started_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
	CompletedAt  *time.Time `bson:"completed_at,omitempty"`
	PlanSnapshot []byte     `bson:"plan_snapshot,omitempty"`
	Error        string     `bson:"error,omitempty"`
}

func fromRecord(record run.Record) runDocument {
	doc := runDocument{
		RunID:        record.RunID,
		OrgID:        record.OrgID,
		UserID:       record.UserID,
		Status:       record.Status,
		StartedAt:    record.StartedAt.UTC(),
		UpdatedAt:    record.UpdatedAt.UTC(),
		PlanSnapshot: append([]byte(nil), record.PlanSnapshot...),
		Error:        record.Error,
	}
	if record.CompletedAt != nil {
		t := record.CompletedAt.UTC()
		doc.CompletedAt = &t
	}
	return doc
}

func (doc runDocument) toRecord() run.Record {
	record := run.Record{
		RunID:        doc.RunID,
		OrgID:        doc.OrgID,
		UserID:       doc.UserID,
		Status:       doc.Status,
		StartedAt:    doc.StartedAt,
		UpdatedAt:    doc.UpdatedAt,
		PlanSnapshot: append([]byte(nil), doc.PlanSnapshot...),
		Error:        doc.Error,
	}
	if doc.CompletedAt != nil {
		t := *doc.CompletedAt
		record.CompletedAt = &t
	}
	return record
}

func ensureIndexes(ctx context.Context, coll collection) error {
	index := mongodriver.IndexModel{
		Keys:    bson.D{{Key: "run_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, err := coll.Indexes().CreateOne(ctx, index)
	return err
}

func newClientWithCollection(mongoClient *mongodriver.Client, coll collection, timeout time.Duration) (*client, error) {
	if coll == nil {
		return nil, errors.New("collection is required")
	}
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &client{
		mongo:   mongoClient,
		coll:    coll,
		timeout: timeout,
	}, nil
}

type collection interface {
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult
	InsertOne(ctx context.Context, doc any, opts ...options.Lister[options.InsertOneOptions]) (*mongodriver.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter any, update any, opts ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error)
	Indexes() indexView
}

type indexView interface {
	CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error)
}

type singleResult interface {
	Decode(val any) error
}

type mongoCollection struct {
	coll *mongodriver.Collection
}

func (c mongoCollection) FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult {
	return c.coll.FindOne(ctx, filter, opts...)
}

func (c mongoCollection) InsertOne(ctx context.Context, doc any, opts ...options.Lister[options.InsertOneOptions]) (*mongodriver.InsertOneResult, error) {
	return c.coll.InsertOne(ctx, doc, opts...)
}

func (c mongoCollection) UpdateOne(ctx context.Context, filter any, update any, opts ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error) {
	return c.coll.UpdateOne(ctx, filter, update, opts...)
}

func (c mongoCollection) Indexes() indexView {
	return mongoIndexView{view: c.coll.Indexes()}
}

type mongoIndexView struct {
	view mongodriver.IndexView
}

func (v mongoIndexView) CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error) {
	return v.view.CreateOne(ctx, model, opts...)
}
