package pipeline

import (
	"context"

	"github.com/tripsmith/tripsmith/travel"
)

// Knowledge resolves attraction slots without a network tool. The fetch
// stage consults it for every selected attraction ref missing from the run
// dictionaries; implementations return curated venue records carrying
// opening hours, indoor classification, themes and prices. The static
// catalog under features/knowledge/static is the shipped implementation.
type Knowledge interface {
	// Venue returns the venue for ref in city. The themes hint lets an
	// implementation pick a fitting venue for synthetic planner refs; ok
	// reports whether a venue was found.
	Venue(ctx context.Context, city, ref string, themes []string) (travel.Attraction, bool)
}
