package repair

import (
	"fmt"
	"math"

	"github.com/tripsmith/tripsmith/travel"
)

// Move names carried in diffs.
const (
	MoveChangeHotelTier = "change_hotel_tier"
	MoveReplaceSlot     = "replace_slot"
	MoveReorderSlots    = "reorder_slots"
	MoveSwapAirport     = "swap_airport"
)

// hotelTierDiscount is the price cut a tier downgrade buys.
const hotelTierDiscount = 0.20

// changeHotelTier downgrades the first lodging slot's selected choice to a
// cheaper tier. Every slot sharing the original option_ref switches with it
// since they represent one booking.
func changeHotelTier(plan *travel.Plan) (Diff, bool) {
	dayIdx, slotIdx, ok := firstLodgingSlot(plan)
	if !ok {
		return Diff{}, false
	}
	old := plan.Days[dayIdx].Slots[slotIdx].Selected()
	newCost := int64(math.Round(float64(old.Features.CostCents) * (1 - hotelTierDiscount)))
	newRef := old.OptionRef + ":tier-down"
	provenance := travel.Provenance{Source: travel.SourceRepair, RefID: newRef}

	switched := int64(0)
	for i := range plan.Days {
		for j := range plan.Days[i].Slots {
			slot := &plan.Days[i].Slots[j]
			if slot.Selected().OptionRef != old.OptionRef {
				continue
			}
			features := slot.Choices[0].Features
			features.CostCents = newCost
			slot.Choices[0] = travel.Choice{
				Kind:       travel.KindLodging,
				OptionRef:  newRef,
				Features:   features,
				Provenance: provenance,
			}
			switched++
		}
	}

	return Diff{
		Move:           MoveChangeHotelTier,
		Day:            dayIdx,
		Slot:           &slotIdx,
		Before:         fmt.Sprintf("%s %s/night", old.OptionRef, fmtUSD(old.Features.CostCents)),
		After:          fmt.Sprintf("%s %s/night", newRef, fmtUSD(newCost)),
		CostDeltaCents: (newCost - old.Features.CostCents) * switched,
		Reason:         string(travel.ViolationBudget),
		Provenance:     provenance,
	}, true
}

// replaceSlot swaps the outdoor choice a weather violation points at for an
// indoor stand-in with the same features.
func replaceSlot(plan *travel.Plan, v travel.Violation) (Diff, bool) {
	dayIdx, slotIdx, ok := slotBySelectedRef(plan, v.NodeRef)
	if !ok {
		return Diff{}, false
	}
	slot := &plan.Days[dayIdx].Slots[slotIdx]
	old := slot.Selected()
	if old.Features.Indoor != travel.No {
		return Diff{}, false
	}
	newRef := old.OptionRef + ":indoor"
	provenance := travel.Provenance{Source: travel.SourceRepair, RefID: newRef}
	features := old.Features
	features.Indoor = travel.Yes
	slot.Choices[0] = travel.Choice{
		Kind:       old.Kind,
		OptionRef:  newRef,
		Features:   features,
		Provenance: provenance,
	}

	reason := string(v.Kind)
	if condition, ok := v.Details["condition"].(string); ok && condition != "" {
		reason = condition
	}
	return Diff{
		Move:       MoveReplaceSlot,
		Day:        dayIdx,
		Slot:       &slotIdx,
		Before:     old.OptionRef,
		After:      newRef,
		Reason:     reason,
		Provenance: provenance,
	}, true
}

// reorderSlots is reserved for a future revision.
func reorderSlots(*travel.Plan, travel.Violation) (Diff, bool) { return Diff{}, false }

// swapAirport is reserved for a future revision.
func swapAirport(*travel.Plan, travel.Violation) (Diff, bool) { return Diff{}, false }

func firstLodgingSlot(plan *travel.Plan) (int, int, bool) {
	for i, day := range plan.Days {
		for j, slot := range day.Slots {
			if slot.Kind() == travel.KindLodging {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

func slotBySelectedRef(plan *travel.Plan, ref string) (int, int, bool) {
	if ref == "" {
		return 0, 0, false
	}
	for i, day := range plan.Days {
		for j, slot := range day.Slots {
			if slot.Selected().OptionRef == ref {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

func fmtUSD(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
