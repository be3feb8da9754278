// Package mongo provides a MongoDB-backed implementation of the artifact
// store. Itineraries are archived as their JSON encoding under a unique trace
// id so the document read back is byte-for-byte what the synthesizer wrote.
package mongo
