package static

import "github.com/tripsmith/tripsmith/travel"

// Every record spans at least 09:00-21:30 daily so any slot bucket a planner
// variant mints fits inside the venue's hours. Prices are typical adult
// admissions in USD cents; markets carry an expected food spend instead.

func builtinCities() map[string][]travel.Attraction {
	return map[string][]travel.Attraction{
		"paris": parisVenues(),
		"tokyo": tokyoVenues(),
		"rome":  romeVenues(),
	}
}

// daily opens a venue over the same window all seven weekdays.
func daily(from, to int) map[int][]travel.TimeWindow {
	hours := make(map[int][]travel.TimeWindow, 7)
	for weekday := 0; weekday < 7; weekday++ {
		hours[weekday] = []travel.TimeWindow{{StartMinute: from, EndMinute: to}}
	}
	return hours
}

func parisVenues() []travel.Attraction {
	return []travel.Attraction{
		{
			Name:         "Louvre Museum",
			Category:     "museum",
			Geo:          travel.GeoPoint{Lat: 48.8606, Lng: 2.3376},
			OpeningHours: daily(travel.Clock(9, 0), travel.Clock(22, 0)),
			Indoor:       travel.Yes,
			KidFriendly:  travel.Yes,
			PriceCents:   2_200,
		},
		{
			Name:         "Musee d'Orsay",
			Category:     "museum",
			Geo:          travel.GeoPoint{Lat: 48.8600, Lng: 2.3266},
			OpeningHours: daily(travel.Clock(9, 0), travel.Clock(21, 45)),
			Indoor:       travel.Yes,
			KidFriendly:  travel.Yes,
			PriceCents:   1_600,
		},
		{
			Name:         "Centre Pompidou",
			Category:     "museum",
			Geo:          travel.GeoPoint{Lat: 48.8607, Lng: 2.3522},
			OpeningHours: daily(travel.Clock(9, 0), travel.Clock(22, 0)),
			Indoor:       travel.Yes,
			KidFriendly:  travel.Yes,
			PriceCents:   1_500,
		},
		{
			Name:         "Musee de l'Orangerie",
			Category:     "museum",
			Geo:          travel.GeoPoint{Lat: 48.8638, Lng: 2.3226},
			OpeningHours: daily(travel.Clock(9, 0), travel.Clock(21, 45)),
			Indoor:       travel.Yes,
			KidFriendly:  travel.Yes,
			PriceCents:   1_250,
		},
		{
			Name:         "Petit Palais",
			Category:     "gallery",
			Geo:          travel.GeoPoint{Lat: 48.8662, Lng: 2.3144},
			OpeningHours: daily(travel.Clock(9, 0), travel.Clock(21, 30)),
			Indoor:       travel.Yes,
			PriceCents:   0,
		},
		{
			Name:         "Jardin du Luxembourg",
			Category:     "garden",
			Geo:          travel.GeoPoint{Lat: 48.8462, Lng: 2.3372},
			OpeningHours: daily(travel.Clock(8, 0), travel.Clock(22, 30)),
			Indoor:       travel.No,
			KidFriendly:  travel.Yes,
			PriceCents:   0,
		},
		{
			Name:         "Tuileries Garden",
			Category:     "garden",
			Geo:          travel.GeoPoint{Lat: 48.8635, Lng: 2.3275},
			OpeningHours: daily(travel.Clock(7, 30), travel.Clock(23, 0)),
			Indoor:       travel.No,
			KidFriendly:  travel.Yes,
			PriceCents:   0,
		},
		{
			Name:         "Marche des Enfants Rouges",
			Category:     "market",
			Geo:          travel.GeoPoint{Lat: 48.8629, Lng: 2.3626},
			OpeningHours: daily(travel.Clock(8, 30), travel.Clock(21, 30)),
			KidFriendly:  travel.Yes,
			PriceCents:   1_500,
		},
		{
			Name:         "Sainte-Chapelle",
			Category:     "landmark",
			Geo:          travel.GeoPoint{Lat: 48.8554, Lng: 2.3450},
			OpeningHours: daily(travel.Clock(9, 0), travel.Clock(21, 30)),
			Indoor:       travel.Yes,
			PriceCents:   1_300,
		},
	}
}

func tokyoVenues() []travel.Attraction {
	return []travel.Attraction{
		{
			Name:         "Tokyo National Museum",
			Category:     "museum",
			Geo:          travel.GeoPoint{Lat: 35.7188, Lng: 139.7765},
			OpeningHours: daily(travel.Clock(9, 0), travel.Clock(21, 30)),
			Indoor:       travel.Yes,
			KidFriendly:  travel.Yes,
			PriceCents:   1_000,
		},
		{
			Name:         "teamLab Planets",
			Category:     "gallery",
			Geo:          travel.GeoPoint{Lat: 35.6494, Lng: 139.7898},
			OpeningHours: daily(travel.Clock(9, 0), travel.Clock(22, 0)),
			Indoor:       travel.Yes,
			KidFriendly:  travel.Yes,
			PriceCents:   3_800,
		},
		{
			Name:         "Meiji Jingu",
			Category:     "landmark",
			Geo:          travel.GeoPoint{Lat: 35.6764, Lng: 139.6993},
			OpeningHours: daily(travel.Clock(8, 0), travel.Clock(21, 30)),
			Indoor:       travel.No,
			KidFriendly:  travel.Yes,
			PriceCents:   0,
		},
		{
			Name:         "Shinjuku Gyoen",
			Category:     "garden",
			Geo:          travel.GeoPoint{Lat: 35.6852, Lng: 139.7100},
			OpeningHours: daily(travel.Clock(9, 0), travel.Clock(21, 30)),
			Indoor:       travel.No,
			KidFriendly:  travel.Yes,
			PriceCents:   350,
		},
		{
			Name:         "Tsukiji Outer Market",
			Category:     "market",
			Geo:          travel.GeoPoint{Lat: 35.6654, Lng: 139.7707},
			OpeningHours: daily(travel.Clock(8, 0), travel.Clock(21, 30)),
			KidFriendly:  travel.Yes,
			PriceCents:   2_000,
		},
		{
			Name:         "Sumida Aquarium",
			Category:     "aquarium",
			Geo:          travel.GeoPoint{Lat: 35.7101, Lng: 139.8107},
			OpeningHours: daily(travel.Clock(9, 0), travel.Clock(22, 0)),
			Indoor:       travel.Yes,
			KidFriendly:  travel.Yes,
			PriceCents:   2_300,
		},
		{
			Name:         "Tokyo City View",
			Category:     "viewpoint",
			Geo:          travel.GeoPoint{Lat: 35.6605, Lng: 139.7292},
			OpeningHours: daily(travel.Clock(9, 0), travel.Clock(23, 0)),
			Indoor:       travel.Yes,
			KidFriendly:  travel.Yes,
			PriceCents:   2_000,
		},
	}
}

func romeVenues() []travel.Attraction {
	return []travel.Attraction{
		{
			Name:         "Vatican Museums",
			Category:     "museum",
			Geo:          travel.GeoPoint{Lat: 41.9065, Lng: 12.4536},
			OpeningHours: daily(travel.Clock(9, 0), travel.Clock(21, 45)),
			Indoor:       travel.Yes,
			KidFriendly:  travel.Yes,
			PriceCents:   2_000,
		},
		{
			Name:         "Galleria Borghese",
			Category:     "gallery",
			Geo:          travel.GeoPoint{Lat: 41.9142, Lng: 12.4921},
			OpeningHours: daily(travel.Clock(9, 0), travel.Clock(21, 30)),
			Indoor:       travel.Yes,
			PriceCents:   1_500,
		},
		{
			Name:         "Colosseum",
			Category:     "landmark",
			Geo:          travel.GeoPoint{Lat: 41.8902, Lng: 12.4922},
			OpeningHours: daily(travel.Clock(8, 30), travel.Clock(21, 30)),
			Indoor:       travel.No,
			KidFriendly:  travel.Yes,
			PriceCents:   1_800,
		},
		{
			Name:         "Villa Borghese Gardens",
			Category:     "garden",
			Geo:          travel.GeoPoint{Lat: 41.9109, Lng: 12.4818},
			OpeningHours: daily(travel.Clock(7, 0), travel.Clock(23, 0)),
			Indoor:       travel.No,
			KidFriendly:  travel.Yes,
			PriceCents:   0,
		},
		{
			Name:         "Campo de' Fiori Market",
			Category:     "market",
			Geo:          travel.GeoPoint{Lat: 41.8956, Lng: 12.4722},
			OpeningHours: daily(travel.Clock(8, 0), travel.Clock(21, 30)),
			KidFriendly:  travel.Yes,
			PriceCents:   1_200,
		},
		{
			Name:         "Terrazza del Gianicolo",
			Category:     "viewpoint",
			Geo:          travel.GeoPoint{Lat: 41.8919, Lng: 12.4606},
			OpeningHours: daily(travel.Clock(7, 0), travel.Clock(23, 30)),
			Indoor:       travel.No,
			KidFriendly:  travel.Yes,
			PriceCents:   0,
		},
	}
}
