// Package static ships the built-in venue catalog consumed by the fetch
// stage. It resolves synthetic attraction refs to curated records carrying
// opening hours, indoor classification and admission prices, so plans built
// for covered cities verify against real venue data instead of fixtures.
//
// Resolution is deterministic: a ref always maps to the same venue, chosen
// by hashing the ref over the city's theme-matching candidates. Two runs of
// the same plan therefore enrich identically.
package static

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/tripsmith/tripsmith/travel"
)

// Catalog serves curated venues by city. The zero value is unusable; build
// one with New.
type Catalog struct {
	cities map[string][]travel.Attraction
}

// New returns the catalog preloaded with the built-in cities.
func New() *Catalog {
	return &Catalog{cities: builtinCities()}
}

// Cities lists the covered city names in no particular order.
func (c *Catalog) Cities() []string {
	out := make([]string, 0, len(c.cities))
	for city := range c.cities {
		out = append(out, city)
	}
	return out
}

// Venue resolves ref to a curated record for city. Candidates sharing a
// theme with the hint are preferred; when none match the whole city roster
// is eligible. The pick hashes ref so resolution is stable across runs. ok
// is false only for cities the catalog does not cover.
func (c *Catalog) Venue(_ context.Context, city, ref string, themes []string) (travel.Attraction, bool) {
	venues := c.cities[normalizeCity(city)]
	if len(venues) == 0 {
		return travel.Attraction{}, false
	}
	candidates := filterByThemes(venues, themes)
	if len(candidates) == 0 {
		candidates = venues
	}
	return cloneVenue(candidates[pickIndex(ref, len(candidates))]), true
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// filterByThemes keeps the venues whose themes intersect the hint. Venues
// without explicit themes fall back to the canonical category table, the
// same derivation the feature mapper applies downstream.
func filterByThemes(venues []travel.Attraction, themes []string) []travel.Attraction {
	if len(themes) == 0 {
		return nil
	}
	want := make(map[string]bool, len(themes))
	for _, t := range themes {
		want[t] = true
	}
	var out []travel.Attraction
	for _, v := range venues {
		vt := v.Themes
		if len(vt) == 0 {
			vt = travel.ThemesForCategory(v.Category)
		}
		for _, t := range vt {
			if want[t] {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// pickIndex maps ref onto [0, n) with an FNV-1a hash.
func pickIndex(ref string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(ref))
	return int(h.Sum32() % uint32(n))
}

// cloneVenue copies the record's reference fields so callers can hold or
// annotate the result without reaching back into the catalog.
func cloneVenue(v travel.Attraction) travel.Attraction {
	out := v
	if v.OpeningHours != nil {
		hours := make(map[int][]travel.TimeWindow, len(v.OpeningHours))
		for weekday, windows := range v.OpeningHours {
			hours[weekday] = append([]travel.TimeWindow(nil), windows...)
		}
		out.OpeningHours = hours
	}
	out.Themes = append([]string(nil), v.Themes...)
	return out
}
