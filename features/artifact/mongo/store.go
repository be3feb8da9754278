package mongo

import (
	"context"
	"errors"

	mongoc "github.com/tripsmith/tripsmith/features/artifact/mongo/clients/mongo"
	"github.com/tripsmith/tripsmith/travel"
)

// Options configures the Store.
type Options struct {
	// Client is the low-level Mongo artifact client.
	Client mongoc.Client
}

// Store implements artifact.Store by delegating to the Mongo client.
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

// Put archives the itinerary under its trace id.
func (s *Store) Put(ctx context.Context, it travel.Itinerary) error {
	return s.client.PutItinerary(ctx, it)
}

// Get returns the itinerary archived under traceID.
func (s *Store) Get(ctx context.Context, traceID string) (travel.Itinerary, error) {
	return s.client.LoadItinerary(ctx, traceID)
}
