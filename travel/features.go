package travel

// venueThemes is the canonical theme table keyed by attraction category. It is
// the single source of theme derivation for venues: enrichment, feature
// mapping, and synthesis all read it, so two records for the same category can
// never disagree on themes.
var venueThemes = map[string][]string{
	"museum":     {"art", "history", "culture"},
	"gallery":    {"art"},
	"park":       {"nature", "outdoor"},
	"garden":     {"nature", "outdoor"},
	"landmark":   {"culture", "history"},
	"market":     {"food", "culture"},
	"restaurant": {"food"},
	"aquarium":   {"nature", "family"},
	"theme_park": {"family", "fun"},
	"theater":    {"art", "culture"},
	"viewpoint":  {"outdoor", "scenic"},
}

// ThemesForCategory returns the canonical themes for a venue category, or nil
// when the category has no entry.
func ThemesForCategory(category string) []string {
	themes, ok := venueThemes[category]
	if !ok {
		return nil
	}
	return append([]string(nil), themes...)
}

// IndoorForCategory returns the canonical indoor classification for a venue
// category. Categories with no clear answer report Unknown.
func IndoorForCategory(category string) TriState {
	switch category {
	case "museum", "gallery", "aquarium", "theater", "restaurant":
		return Yes
	case "park", "garden", "viewpoint":
		return No
	default:
		return Unknown
	}
}

// FlightFeatures maps a Flight record to choice features. Travel seconds come
// from the scheduled duration.
func FlightFeatures(f Flight) ChoiceFeatures {
	secs := int64(f.Arrive.Sub(f.Depart).Seconds())
	return ChoiceFeatures{
		CostCents:     f.PriceCents,
		TravelSeconds: &secs,
		Indoor:        Yes,
	}
}

// LodgingFeatures maps a Lodging record to choice features. Cost is the
// per-night price: lodging slots are per-night occurrences.
func LodgingFeatures(l Lodging) ChoiceFeatures {
	return ChoiceFeatures{
		CostCents: l.PricePerNightCents,
		Indoor:    Yes,
	}
}

// AttractionFeatures maps an Attraction record to choice features. Themes
// fall back to the canonical table when the record carries none.
func AttractionFeatures(a Attraction) ChoiceFeatures {
	themes := a.Themes
	if len(themes) == 0 {
		themes = ThemesForCategory(a.Category)
	}
	indoor := a.Indoor
	if !indoor.Known() {
		indoor = IndoorForCategory(a.Category)
	}
	return ChoiceFeatures{
		CostCents: a.PriceCents,
		Indoor:    indoor,
		Themes:    themes,
	}
}

// TransitFeatures maps a TransitLeg record to choice features.
func TransitFeatures(t TransitLeg) ChoiceFeatures {
	secs := t.DurationSeconds
	return ChoiceFeatures{
		CostCents:     t.PriceCents,
		TravelSeconds: &secs,
		Indoor:        Unknown,
	}
}
