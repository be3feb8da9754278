package travel

import (
	"errors"
	"fmt"
	"time"
)

type (
	// Intent is the normalized user request the pipeline plans against. It is
	// validated once at intake and read-only afterwards.
	Intent struct {
		// City is the destination city name.
		City string `json:"city"`
		// Window is the inclusive travel date window in the trip's zone.
		Window DateWindow `json:"window"`
		// BudgetCents is the total trip budget in USD cents. Must be > 0.
		BudgetCents int64 `json:"budget_cents"`
		// Airports lists candidate arrival airport codes. Must be non-empty.
		Airports []string `json:"airports"`
		// Prefs carries the user's soft and hard preferences.
		Prefs Preferences `json:"prefs"`
	}

	// DateWindow is an inclusive [Start, End] date range in an IANA zone.
	DateWindow struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
		// Zone is the IANA zone identifier all day-level arithmetic uses.
		Zone string `json:"zone"`
	}

	// Preferences captures user constraints that steer planning, verification,
	// and repair.
	Preferences struct {
		// KidFriendly requires every activity to suit children.
		KidFriendly bool `json:"kid_friendly"`
		// Themes lists desired activity themes ("art", "food", ...).
		Themes []string `json:"themes,omitempty"`
		// AvoidOvernight rejects overnight flights.
		AvoidOvernight bool `json:"avoid_overnight"`
		// Locked pins user-chosen slots that every candidate plan must keep.
		Locked []LockedSlot `json:"locked_slots,omitempty"`
	}

	// LockedSlot pins an activity to a day offset and time window. The planner
	// reproduces locked slots verbatim in every candidate.
	LockedSlot struct {
		DayOffset   int        `json:"day_offset"`
		Window      TimeWindow `json:"time_window"`
		ActivityRef string     `json:"activity_ref"`
	}

	// TimeWindow is a same-day interval expressed as minutes from midnight.
	// End is exclusive for overlap purposes and must be greater than Start.
	TimeWindow struct {
		StartMinute int `json:"start_minute"`
		EndMinute   int `json:"end_minute"`
	}
)

// Validate checks the intent's structural invariants.
func (i Intent) Validate() error {
	if i.City == "" {
		return errors.New("intent: city is required")
	}
	if i.BudgetCents <= 0 {
		return errors.New("intent: budget must be positive")
	}
	if len(i.Airports) == 0 {
		return errors.New("intent: at least one airport is required")
	}
	if i.Window.Zone == "" {
		return errors.New("intent: window zone is required")
	}
	if _, err := time.LoadLocation(i.Window.Zone); err != nil {
		return fmt.Errorf("intent: invalid zone %q: %w", i.Window.Zone, err)
	}
	if i.Window.End.Before(i.Window.Start) {
		return errors.New("intent: window end precedes start")
	}
	days := i.Window.Days()
	for n, ls := range i.Prefs.Locked {
		if ls.DayOffset < 0 || ls.DayOffset >= days {
			return fmt.Errorf("intent: locked slot %q day offset %d outside the %d-day window", ls.ActivityRef, ls.DayOffset, days)
		}
		if ls.Window.EndMinute <= ls.Window.StartMinute {
			return fmt.Errorf("intent: locked slot %q window %s is empty", ls.ActivityRef, ls.Window)
		}
		for _, other := range i.Prefs.Locked[:n] {
			if other.DayOffset == ls.DayOffset && other.Window.Overlaps(ls.Window) {
				return fmt.Errorf("intent: locked slots %q and %q overlap on day %d", other.ActivityRef, ls.ActivityRef, ls.DayOffset)
			}
		}
	}
	return nil
}

// Location resolves the window's IANA zone.
func (w DateWindow) Location() (*time.Location, error) {
	return time.LoadLocation(w.Zone)
}

// Days returns the number of calendar days in the inclusive window.
func (w DateWindow) Days() int {
	start := w.Start.Truncate(24 * time.Hour)
	end := w.End.Truncate(24 * time.Hour)
	return int(end.Sub(start).Hours()/24) + 1
}

// Overlaps reports whether two windows share any minute.
func (t TimeWindow) Overlaps(o TimeWindow) bool {
	return t.StartMinute < o.EndMinute && o.StartMinute < t.EndMinute
}

// Contains reports whether o lies fully within t.
func (t TimeWindow) Contains(o TimeWindow) bool {
	return t.StartMinute <= o.StartMinute && o.EndMinute <= t.EndMinute
}

// Duration returns the window length.
func (t TimeWindow) Duration() time.Duration {
	return time.Duration(t.EndMinute-t.StartMinute) * time.Minute
}

// StartAt anchors the window start to the given date in loc, producing a
// zone-aware instant that survives DST transitions.
func (t TimeWindow) StartAt(date time.Time, loc *time.Location) time.Time {
	return minuteAt(date, t.StartMinute, loc)
}

// EndAt anchors the window end to the given date in loc.
func (t TimeWindow) EndAt(date time.Time, loc *time.Location) time.Time {
	return minuteAt(date, t.EndMinute, loc)
}

// String formats the window as "HH:MM-HH:MM".
func (t TimeWindow) String() string {
	return fmt.Sprintf("%s-%s", formatMinute(t.StartMinute), formatMinute(t.EndMinute))
}

// Clock builds a minutes-from-midnight value from an hour and minute, for
// readable fixture and test construction.
func Clock(hour, minute int) int { return hour*60 + minute }

func minuteAt(date time.Time, minute int, loc *time.Location) time.Time {
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, minute/60, minute%60, 0, 0, loc)
}

func formatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
