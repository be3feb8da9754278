// Package artifact archives finished itineraries.
//
// The archive is write-once: the synthesizer puts the final itinerary under
// the run's trace id and readers fetch it verbatim afterwards. Stores never
// overwrite an existing artifact.
package artifact

import (
	"context"
	"errors"

	"github.com/tripsmith/tripsmith/travel"
)

// ErrNotFound is returned when no itinerary exists for the requested id.
var ErrNotFound = errors.New("itinerary not found")

// ErrExists is returned by Put when an itinerary is already archived under
// the same id. Artifacts are immutable once written.
var ErrExists = errors.New("itinerary already archived")

// Store archives itineraries keyed by their trace id.
type Store interface {
	// Put archives the itinerary under it.ID. Putting an id that is already
	// archived returns ErrExists.
	Put(ctx context.Context, it travel.Itinerary) error

	// Get returns the itinerary archived under traceID, or ErrNotFound.
	Get(ctx context.Context, traceID string) (travel.Itinerary, error)
}
