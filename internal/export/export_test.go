package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewaynemartinjr/PixelB0T/internal/avail"
	"github.com/hirewaynemartinjr/PixelB0T/internal/storage"
)

// 2026-09-01 is a Tuesday.
var fixedNow = time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) (*Engine, *avail.Store) {
	t.Helper()
	store, err := avail.Open(storage.NewMemory(), "BF6")
	require.NoError(t, err)
	return New(store, "UTC", func() time.Time { return fixedNow }), store
}

func ct(h, m int) avail.ClockTime { return avail.ClockTime{Hour: h, Minute: m} }

func TestEventsPlaceNextOccurrences(t *testing.T) {
	eng, store := newEngine(t)

	store.SetZone("alice", "Asia/Manila")
	store.Upsert("alice", "BF6", avail.Tuesday, avail.Entry{Start: ct(17, 0), End: ct(21, 0)})
	store.Upsert("alice", "BF6", avail.Monday, avail.Entry{Start: ct(18, 0), End: ct(22, 0)})
	store.Upsert("alice", "BF6", avail.Sunday, avail.Entry{Start: ct(20, 0), End: ct(23, 0)})

	events, err := eng.Events("alice", "BF6")
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Sorted Monday first regardless of insertion order.
	assert.Equal(t, avail.Monday, events[0].Day)
	assert.Equal(t, avail.Tuesday, events[1].Day)
	assert.Equal(t, avail.Sunday, events[2].Day)

	// Today is Tuesday in Manila, so the Tuesday slot lands today:
	// 17:00 Manila (UTC+8) = 09:00 UTC.
	assert.Equal(t, time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC), events[1].Start)
	assert.Equal(t, time.Date(2026, time.September, 1, 13, 0, 0, 0, time.UTC), events[1].End)

	// Monday already passed this week; it rolls to the 7th.
	assert.Equal(t, time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC), events[0].Start)
	// Sunday lands on the 6th.
	assert.Equal(t, time.Date(2026, time.September, 6, 12, 0, 0, 0, time.UTC), events[2].Start)
}

func TestEventsStableAcrossExports(t *testing.T) {
	eng, store := newEngine(t)

	store.SetZone("bob", "America/New_York")
	store.Upsert("bob", "BF6", avail.Friday, avail.Entry{Start: ct(19, 0), End: ct(23, 0)})

	first, err := eng.Events("bob", "BF6")
	require.NoError(t, err)
	second, err := eng.Events("bob", "BF6")
	require.NoError(t, err)

	assert.Equal(t, first, second, "re-export without changes is identical")
	assert.Equal(t, "bob-BF6-4@pixelbot", first[0].UID)

	// Converting the emitted instants back through the stored zone
	// recovers the original wall clock.
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, 19, first[0].Start.In(ny).Hour())
	assert.Equal(t, 23, first[0].End.In(ny).Hour())
	assert.Equal(t, time.Friday, first[0].Start.In(ny).Weekday())
}

func TestEventsUseDefaultZoneWhenUnregistered(t *testing.T) {
	eng, store := newEngine(t)

	store.Upsert("carol", "BF6", avail.Tuesday, avail.Entry{Start: ct(10, 0), End: ct(11, 0)})

	events, err := eng.Events("carol", "BF6")
	require.NoError(t, err)
	require.Len(t, events, 1)
	// Default zone is UTC, so the wall clock is the instant.
	assert.Equal(t, time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC), events[0].Start)
}

func TestEventsEmptyWhenNoEntries(t *testing.T) {
	eng, _ := newEngine(t)

	events, err := eng.Events("nobody", "BF6")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventsBadRegisteredZone(t *testing.T) {
	eng, store := newEngine(t)

	store.SetZone("dave", "Mars/Olympus")
	store.Upsert("dave", "BF6", avail.Monday, avail.Entry{Start: ct(9, 0), End: ct(10, 0)})

	_, err := eng.Events("dave", "BF6")
	assert.Error(t, err)
}

func TestICSDocument(t *testing.T) {
	eng, store := newEngine(t)

	store.SetZone("erin", "Asia/Manila")
	store.Upsert("erin", "BF6", avail.Tuesday, avail.Entry{Start: ct(17, 0), End: ct(21, 0)})

	doc, err := eng.ICS("erin", "BF6")
	require.NoError(t, err)

	assert.Contains(t, doc, "BEGIN:VCALENDAR")
	assert.Contains(t, doc, "END:VCALENDAR")
	assert.Contains(t, doc, "PRODID:-//PixelB0T//AvailabilityBot//EN")
	assert.Contains(t, doc, "VERSION:2.0")
	assert.Contains(t, doc, "UID:erin-BF6-1@pixelbot")
	assert.Contains(t, doc, "SUMMARY:BF6 Available")
	assert.Contains(t, doc, "DTSTART:20260901T090000Z")
	assert.Contains(t, doc, "DTEND:20260901T130000Z")
}

func TestICSEmptyCalendar(t *testing.T) {
	eng, _ := newEngine(t)

	doc, err := eng.ICS("nobody", "BF6")
	require.NoError(t, err)
	assert.Contains(t, doc, "BEGIN:VCALENDAR")
	assert.NotContains(t, doc, "BEGIN:VEVENT")
}
