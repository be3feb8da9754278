// Package mongo hosts the MongoDB client used by the artifact store.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"goa.design/clue/health"

	"github.com/tripsmith/tripsmith/runtime/artifact"
	"github.com/tripsmith/tripsmith/travel"
)

const (
	defaultItinerariesCollection = "itineraries"
	defaultOpTimeout             = 5 * time.Second
	artifactClientName           = "artifact-mongo"
)

// Client exposes Mongo-backed operations for archived itineraries.
type Client interface {
	health.Pinger

	PutItinerary(ctx context.Context, it travel.Itinerary) error
	LoadItinerary(ctx context.Context, traceID string) (travel.Itinerary, error)
}

// Options configures the Mongo artifact client.
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
		collName = defaultItinerariesCollection
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
	return artifactClientName
}

func (c *client) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.mongo.Ping(ctx, readpref.Primary())
}

func (c *client) PutItinerary(ctx context.Context, it travel.Itinerary) error {
	if it.ID == "" {
		return errors.New("itinerary id is required")
	}
	payload, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("encode itinerary: %w", err)
	}
	doc := itineraryDocument{
		TraceID:   it.ID,
		CreatedAt: time.Now().UTC(),
		Payload:   payload,
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("put %q: %w", it.ID, artifact.ErrExists)
		}
		return err
	}
	return nil
}

func (c *client) LoadItinerary(ctx context.Context, traceID string) (travel.Itinerary, error) {
	if traceID == "" {
		return travel.Itinerary{}, errors.New("trace id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var doc itineraryDocument
	if err := c.coll.FindOne(ctx, bson.M{"trace_id": traceID}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return travel.Itinerary{}, fmt.Errorf("get %q: %w", traceID, artifact.ErrNotFound)
		}
		return travel.Itinerary{}, err
	}
	var it travel.Itinerary
	if err := json.Unmarshal(doc.Payload, &it); err != nil {
		return travel.Itinerary{}, fmt.Errorf("decode itinerary: %w", err)
	}
	return it, nil
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

// itineraryDocument stores the itinerary as its JSON encoding so archived
// plans round-trip verbatim.
type itineraryDocument struct {
	TraceID   string    `bson:"trace_id"`
	CreatedAt time.Time `bson:"created_at"`
	Payload   []byte    `bson:"payload"`
}

func ensureIndexes(ctx context.Context, coll collection) error {
	index := mongodriver.IndexModel{
		Keys:    bson.D{{Key: "trace_id", Value: 1}},
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

func (c mongoCollection) Indexes() indexView {
	return mongoIndexView{view: c.coll.Indexes()}
}

type mongoIndexView struct {
	view mongodriver.IndexView
}

func (v mongoIndexView) CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error) {
	return v.view.CreateOne(ctx, model, opts...)
}
