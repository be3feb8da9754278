package travel

import "time"

type (
	// GeoPoint is a WGS84 coordinate pair.
	GeoPoint struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}

	// Flight is a fetched air travel option.
	Flight struct {
		Airline     string     `json:"airline"`
		Number      string     `json:"number"`
		Origin      string     `json:"origin"`
		Destination string     `json:"destination"`
		Depart      time.Time  `json:"depart"`
		Arrive      time.Time  `json:"arrive"`
		Overnight   bool       `json:"overnight"`
		PriceCents  int64      `json:"price_cents"`
		Provenance  Provenance `json:"provenance"`
	}

	// Lodging is a fetched stay option priced per night.
	Lodging struct {
		Name               string     `json:"name"`
		Tier               string     `json:"tier"`
		PricePerNightCents int64      `json:"price_per_night_cents"`
		Geo                GeoPoint   `json:"geo"`
		Provenance         Provenance `json:"provenance"`
	}

	// Attraction is a visitable venue. OpeningHours is keyed by weekday with
	// 0=Monday through 6=Sunday; each entry lists open windows in local
	// minutes, supporting split hours. A missing weekday or an empty list
	// means the venue is closed that day.
	Attraction struct {
		Name         string               `json:"name"`
		Category     string               `json:"category"`
		Geo          GeoPoint             `json:"geo"`
		OpeningHours map[int][]TimeWindow `json:"opening_hours,omitempty"`
		Indoor       TriState             `json:"indoor"`
		KidFriendly  TriState             `json:"kid_friendly"`
		Themes       []string             `json:"themes,omitempty"`
		PriceCents   int64                `json:"price_cents"`
		Provenance   Provenance           `json:"provenance"`
	}

	// TransitLeg is a fetched ground transit option.
	TransitLeg struct {
		Mode            string     `json:"mode"`
		DurationSeconds int64      `json:"duration_seconds"`
		PriceCents      int64      `json:"price_cents"`
		Provenance      Provenance `json:"provenance"`
	}

	// WeatherDay is a daily forecast for the destination.
	WeatherDay struct {
		Date       time.Time  `json:"date"`
		PrecipProb float64    `json:"precip_prob"`
		WindKMH    float64    `json:"wind_kmh"`
		TempC      float64    `json:"temp_c"`
		Provenance Provenance `json:"provenance"`
	}

	// FXRate is a fetched currency conversion rate.
	FXRate struct {
		Base       string     `json:"base"`
		Quote      string     `json:"quote"`
		Rate       float64    `json:"rate"`
		AsOf       time.Time  `json:"as_of"`
		Provenance Provenance `json:"provenance"`
	}
)

// WeekdayIndex converts a zone-aware instant into the 0=Monday..6=Sunday
// weekday index used by Attraction.OpeningHours.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// DateKey formats an instant's calendar date as the ISO key used by the
// weather dictionary.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
