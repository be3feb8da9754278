// Package mongo provides a MongoDB-backed implementation of the run store.
// Build the low-level client via features/run/mongo/clients/mongo and pass it
// to NewStore, or use NewStoreFromMongo to do both in one step. Records are
// kept in a single collection with a unique index on the run id.
package mongo
