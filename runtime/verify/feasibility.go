package verify

import (
	"sort"
	"time"

	"github.com/tripsmith/tripsmith/runtime/telemetry"
	"github.com/tripsmith/tripsmith/travel"
)

const (
	// museumBufferMin is the gap required after a museum visit.
	museumBufferMin = 20
	// lastSlotCutoffMinute is the hard end of a day before transit buffers.
	lastSlotCutoffMinute = 23*60 + 30
)

// Feasibility reasons carried in violation details and metric tags.
const (
	ReasonInsufficientGap = "insufficient_gap"
	ReasonVenueClosed     = "venue_closed"
	ReasonLastTrainMissed = "last_train_missed"
)

// Feasibility checks each day's timeline: adjacent slots must leave enough
// transfer time, attractions must fall within their venue's opening hours,
// and the day must end early enough to catch the last train home. Gap
// arithmetic uses zone-aware instants so DST transition days measure real
// elapsed time.
type Feasibility struct {
	ins *telemetry.Instruments
}

// NewFeasibility returns a feasibility verifier reporting through ins.
func NewFeasibility(ins *telemetry.Instruments) *Feasibility {
	if ins == nil {
		ins = telemetry.NewInstruments(nil)
	}
	return &Feasibility{ins: ins}
}

// Name implements Verifier.
func (f *Feasibility) Name() string { return "feasibility" }

// Verify implements Verifier.
func (f *Feasibility) Verify(state *travel.RunState) []travel.Violation {
	plan := state.Plan
	if plan == nil {
		return nil
	}
	loc, err := state.Intent.Window.Location()
	if err != nil {
		loc = time.UTC
	}
	var out []travel.Violation
	for _, day := range plan.Days {
		slots := append([]travel.Slot(nil), day.Slots...)
		sort.SliceStable(slots, func(i, j int) bool {
			return slots[i].Window.StartMinute < slots[j].Window.StartMinute
		})
		out = append(out, f.checkGaps(state, plan.Assumptions, day.Date, slots, loc)...)
		out = append(out, f.checkVenueHours(state, day.Date, slots, loc)...)
		if v, ok := f.checkLastSlot(plan.Assumptions, day.Date, slots); ok {
			out = append(out, v)
		}
	}
	return out
}

// checkGaps verifies the transfer time between each adjacent pair. The
// required gap depends on the earlier slot: airport buffer after a flight,
// a fixed settle-down buffer after a museum, the transit buffer otherwise.
func (f *Feasibility) checkGaps(state *travel.RunState, assumptions travel.Assumptions, date time.Time, slots []travel.Slot, loc *time.Location) []travel.Violation {
	var out []travel.Violation
	for i := 0; i+1 < len(slots); i++ {
		cur, next := slots[i], slots[i+1]
		required := f.requiredGapMin(state, assumptions, cur)
		gap := next.Window.StartAt(date, loc).Sub(cur.Window.EndAt(date, loc))
		if gap >= time.Duration(required)*time.Minute {
			continue
		}
		f.ins.IncFeasibilityViolation(ReasonInsufficientGap)
		out = append(out, travel.Violation{
			Kind:     travel.ViolationTiming,
			NodeRef:  next.Selected().OptionRef,
			Blocking: true,
			Details: map[string]any{
				"reason":           ReasonInsufficientGap,
				"date":             travel.DateKey(date),
				"after":            cur.Selected().OptionRef,
				"gap_minutes":      int(gap.Minutes()),
				"required_minutes": required,
			},
		})
	}
	return out
}

func (f *Feasibility) requiredGapMin(state *travel.RunState, assumptions travel.Assumptions, slot travel.Slot) int {
	choice := slot.Selected()
	switch choice.Kind {
	case travel.KindFlight:
		return assumptions.AirportBufferMin
	case travel.KindAttraction:
		if attr, ok := state.Attractions[choice.OptionRef]; ok && attr.Category == "museum" {
			return museumBufferMin
		}
	}
	return assumptions.TransitBufferMin
}

// checkVenueHours verifies each attraction slot against its venue's opening
// hours for the slot's weekday. The slot window must lie fully inside a
// single opening window; a venue with no hours recorded for that weekday is
// closed. Attractions that never resolved to a record are skipped.
func (f *Feasibility) checkVenueHours(state *travel.RunState, date time.Time, slots []travel.Slot, loc *time.Location) []travel.Violation {
	var out []travel.Violation
	weekday := travel.WeekdayIndex(date.In(loc))
	for _, slot := range slots {
		choice := slot.Selected()
		if choice.Kind != travel.KindAttraction {
			continue
		}
		attr, ok := state.Attractions[choice.OptionRef]
		if !ok {
			continue
		}
		if openDuring(attr.OpeningHours[weekday], slot.Window) {
			continue
		}
		f.ins.IncFeasibilityViolation(ReasonVenueClosed)
		out = append(out, travel.Violation{
			Kind:     travel.ViolationVenueClosed,
			NodeRef:  choice.OptionRef,
			Blocking: true,
			Details: map[string]any{
				"reason":      ReasonVenueClosed,
				"date":        travel.DateKey(date),
				"venue":       attr.Name,
				"slot_window": slot.Window.String(),
				"open_hours":  formatHours(attr.OpeningHours[weekday]),
			},
		})
	}
	return out
}

func openDuring(hours []travel.TimeWindow, window travel.TimeWindow) bool {
	for _, open := range hours {
		if open.Contains(window) {
			return true
		}
	}
	return false
}

func formatHours(hours []travel.TimeWindow) []string {
	out := make([]string, len(hours))
	for i, h := range hours {
		out[i] = h.String()
	}
	return out
}

// checkLastSlot verifies the day's last slot ends early enough to leave the
// transit buffer before the 23:30 cutoff.
func (f *Feasibility) checkLastSlot(assumptions travel.Assumptions, date time.Time, slots []travel.Slot) (travel.Violation, bool) {
	if len(slots) == 0 {
		return travel.Violation{}, false
	}
	last := slots[len(slots)-1]
	cutoff := lastSlotCutoffMinute - assumptions.TransitBufferMin
	if last.Window.EndMinute <= cutoff {
		return travel.Violation{}, false
	}
	f.ins.IncFeasibilityViolation(ReasonLastTrainMissed)
	return travel.Violation{
		Kind:     travel.ViolationTiming,
		NodeRef:  last.Selected().OptionRef,
		Blocking: true,
		Details: map[string]any{
			"reason":         ReasonLastTrainMissed,
			"date":           travel.DateKey(date),
			"slot_window":    last.Window.String(),
			"cutoff_minute":  cutoff,
			"transit_buffer": assumptions.TransitBufferMin,
		},
	}, true
}
