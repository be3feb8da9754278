package travel

import "time"

type (
	// Itinerary is the final, cited output of a run. It is created by the
	// synthesizer and never mutated afterwards.
	Itinerary struct {
		// ID equals the run's trace id.
		ID string `json:"id"`
		// Intent is the originating request.
		Intent Intent `json:"intent"`
		// Days lists the concrete day-by-day schedule.
		Days []DayItinerary `json:"days"`
		// Costs is the categorized cost breakdown.
		Costs CostBreakdown `json:"costs"`
		// Decisions records why the pipeline chose what it chose.
		Decisions []Decision `json:"decisions"`
		// Citations ties every concrete claim to its evidence.
		Citations []Citation `json:"citations"`
		// CreatedAt is when synthesis completed.
		CreatedAt time.Time `json:"created_at"`
	}

	// DayItinerary is one date with its ordered activities.
	DayItinerary struct {
		Date       time.Time  `json:"date"`
		Activities []Activity `json:"activities"`
	}

	// Activity is a scheduled item referencing the selected choice that
	// produced it. Activities without a resolved tool-result record carry a
	// generic name and feature-level notes only.
	Activity struct {
		Kind      ChoiceKind `json:"kind"`
		Name      string     `json:"name"`
		Start     time.Time  `json:"start"`
		End       time.Time  `json:"end"`
		Geo       *GeoPoint  `json:"geo,omitempty"`
		Notes     string     `json:"notes,omitempty"`
		OptionRef string     `json:"option_ref"`
	}

	// CostBreakdown sums the trip by category in USD cents.
	CostBreakdown struct {
		FlightsCents     int64  `json:"flights_cents"`
		LodgingCents     int64  `json:"lodging_cents"`
		AttractionsCents int64  `json:"attractions_cents"`
		TransitCents     int64  `json:"transit_cents"`
		DailySpendCents  int64  `json:"daily_spend_cents"`
		TotalCents       int64  `json:"total_cents"`
		Currency         string `json:"currency"`
		// Disclaimer notes FX assumptions applied to converted prices.
		Disclaimer string `json:"disclaimer,omitempty"`
	}

	// Decision records a pipeline choice for the audit trail.
	Decision struct {
		// Stage names the stage that made the decision.
		Stage string `json:"stage"`
		// Rationale is a human-readable justification.
		Rationale string `json:"rationale"`
		// Alternatives lists the identifiers that were considered and not chosen.
		Alternatives []string `json:"alternatives,omitempty"`
		// Selected identifies the chosen alternative.
		Selected string `json:"selected"`
	}

	// Citation pairs a claim with the provenance backing it. The synthesizer
	// guarantees "no evidence, no claim": concrete facts always cite.
	Citation struct {
		Claim      string     `json:"claim"`
		Provenance Provenance `json:"provenance"`
	}
)
