package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tripsmith/tripsmith/runtime/artifact"
	"github.com/tripsmith/tripsmith/travel"
)

func sampleItinerary(id string) travel.Itinerary {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return travel.Itinerary{
		ID: id,
		Days: []travel.DayItinerary{{
			Date: day,
			Activities: []travel.Activity{{
				Kind:      travel.KindAttraction,
				Name:      "Musée d'Orsay",
				Start:     day.Add(10 * time.Hour),
				End:       day.Add(12 * time.Hour),
				OptionRef: "attr-1",
			}},
		}},
		Decisions: []travel.Decision{{
			Stage:        "selector",
			Rationale:    "lowest cost under budget",
			Alternatives: []string{"plan-b"},
			Selected:     "plan-a",
		}},
		CreatedAt: day,
	}
}

func TestStorePutGet(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sampleItinerary("trace-1")))
	require.Equal(t, 1, store.Len())

	got, err := store.Get(ctx, "trace-1")
	require.NoError(t, err)
	require.Equal(t, "trace-1", got.ID)
	require.Len(t, got.Days, 1)
	require.Equal(t, "Musée d'Orsay", got.Days[0].Activities[0].Name)
}

func TestStorePutRejectsOverwrite(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sampleItinerary("trace-1")))

	again := sampleItinerary("trace-1")
	again.Days = nil
	err := store.Put(ctx, again)
	require.ErrorIs(t, err, artifact.ErrExists)

	got, err := store.Get(ctx, "trace-1")
	require.NoError(t, err)
	require.Len(t, got.Days, 1, "archived itinerary must be untouched by a rejected put")
}

func TestStorePutRequiresID(t *testing.T) {
	store := New()
	require.Error(t, store.Put(context.Background(), travel.Itinerary{}))
	require.Equal(t, 0, store.Len())
}

func TestStoreGetMissing(t *testing.T) {
	store := New()
	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, artifact.ErrNotFound)
}

func TestStoreDefensiveCopies(t *testing.T) {
	store := New()
	ctx := context.Background()

	it := sampleItinerary("trace-1")
	require.NoError(t, store.Put(ctx, it))

	// Mutating the caller's value after Put must not leak into the archive.
	it.Days[0].Activities[0].Name = "mutated"
	it.Decisions[0].Alternatives[0] = "mutated"

	got, err := store.Get(ctx, "trace-1")
	require.NoError(t, err)
	require.Equal(t, "Musée d'Orsay", got.Days[0].Activities[0].Name, "expected defensive copy")
	require.Equal(t, "plan-b", got.Decisions[0].Alternatives[0], "expected defensive copy")

	// Mutating a returned value must not leak either.
	got.Days[0].Activities[0].Name = "mutated again"
	reread, err := store.Get(ctx, "trace-1")
	require.NoError(t, err)
	require.Equal(t, "Musée d'Orsay", reread.Days[0].Activities[0].Name, "expected defensive copy")
}

func TestStoreReset(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sampleItinerary("trace-1")))
	store.Reset()
	require.Equal(t, 0, store.Len())
	_, err := store.Get(ctx, "trace-1")
	require.ErrorIs(t, err, artifact.ErrNotFound)
}
