package mongo

import (
	"context"
	"errors"

	mongoc "github.com/tripsmith/tripsmith/features/run/mongo/clients/mongo"
	"github.com/tripsmith/tripsmith/runtime/run"
)

// Options configures the Store.
type Options struct {
	// Client is the low-level Mongo run client.
	Client mongoc.Client
}

// Store implements run.Store by delegating to the Mongo client.
type Store struct {
	client mongoc.Client
}

// NewStore builds a Store using the provided client.
func NewStore(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("client is required")
	}
	return &Store{client: opts.Client}, nil
}

// NewStoreFromMongo builds the low-level Mongo client from opts and wraps it
// in a Store.
func NewStoreFromMongo(opts mongoc.Options) (*Store, error) {
	client, err := mongoc.New(opts)
	if err != nil {
		return nil, err
	}
	return NewStore(Options{Client: client})
}

// Create inserts a new run record.
func (s *Store) Create(ctx context.Context, record run.Record) error {
	return s.client.CreateRun(ctx, record)
}

// Get retrieves the record stored for runID.
func (s *Store) Get(ctx context.Context, runID string) (run.Record, error) {
	return s.client.LoadRun(ctx, runID)
}

// Update applies a partial change to an existing record.
func (s *Store) Update(ctx context.Context, runID string, update run.Update) error {
	return s.client.UpdateRun(ctx, runID, update)
}
