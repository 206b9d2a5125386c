package avail

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewaynemartinjr/PixelB0T/internal/storage"
)

func newStore(t *testing.T) (*Store, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	s, err := Open(mem, "BF6")
	require.NoError(t, err)
	return s, mem
}

func entry(sh, eh int, zone string) Entry {
	return Entry{
		Start: ClockTime{Hour: sh},
		End:   ClockTime{Hour: eh},
		TZ:    zone,
	}
}

func TestUpsertAndList(t *testing.T) {
	s, _ := newStore(t)

	s.Upsert("alice", "bf6", Monday, entry(17, 21, "America/New_York"))
	s.Upsert("bob", "BF6", Monday, entry(18, 23, ""))
	s.Upsert("alice", "BF6", Friday, entry(17, 23, ""))

	rows := s.ListEntries("BF6", Monday)
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0].Person)
	assert.Equal(t, "bob", rows[1].Person)
	assert.Equal(t, "America/New_York", rows[0].Entry.TZ)

	assert.Empty(t, s.ListEntries("BF6", Tuesday))
	assert.Empty(t, s.ListEntries("ARC", Monday))
}

func TestUpsertIsIdempotentPerKey(t *testing.T) {
	s, mem := newStore(t)

	s.Upsert("alice", "BF6", Monday, entry(17, 21, ""))
	first, _, err := mem.ReadRecord("availability")
	require.NoError(t, err)

	s.Upsert("alice", "BF6", Monday, entry(17, 21, ""))
	second, _, err := mem.ReadRecord("availability")
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
	require.Len(t, s.ListEntries("BF6", Monday), 1)
}

func TestUpsertReplacesOnlyThatWeekday(t *testing.T) {
	s, _ := newStore(t)

	s.Upsert("alice", "BF6", Monday, entry(17, 21, ""))
	s.Upsert("alice", "BF6", Friday, entry(18, 22, ""))
	s.Upsert("alice", "BF6", Monday, entry(10, 12, ""))

	entries := s.Entries("alice", "BF6")
	require.Len(t, entries, 2)
	assert.Equal(t, 10, entries[Monday].Start.Hour)
	assert.Equal(t, 18, entries[Friday].Start.Hour)
}

func TestClearActivityLeavesOthersAlone(t *testing.T) {
	s, _ := newStore(t)

	s.Upsert("alice", "BF6", Monday, entry(17, 21, ""))
	s.Upsert("alice", "ARC", Monday, entry(17, 21, ""))
	s.Upsert("bob", "BF6", Monday, entry(18, 23, ""))

	s.ClearActivity("alice", "BF6")

	assert.Empty(t, s.Entries("alice", "BF6"))
	assert.Len(t, s.Entries("alice", "ARC"), 1, "other activity untouched")

	rows := s.ListEntries("BF6", Monday)
	require.Len(t, rows, 1)
	assert.Equal(t, "bob", rows[0].Person, "other persons untouched")
}

func TestClearLastActivityRemovesPerson(t *testing.T) {
	s, _ := newStore(t)

	s.Upsert("alice", "BF6", Monday, entry(17, 21, ""))
	s.ClearActivity("alice", "BF6")

	assert.False(t, s.HasData("alice", "BF6"))
	s.mu.Lock()
	_, exists := s.people["alice"]
	s.mu.Unlock()
	assert.False(t, exists, "empty person record must be dropped")
}

func TestClearAll(t *testing.T) {
	s, _ := newStore(t)

	s.Upsert("alice", "BF6", Monday, entry(17, 21, ""))
	s.Upsert("alice", "ARC", Friday, entry(17, 21, ""))

	s.ClearAll("alice")
	assert.False(t, s.HasData("alice", "BF6"))
	assert.False(t, s.HasData("alice", "ARC"))
}

func TestZonePreferenceIndependentLifecycle(t *testing.T) {
	s, _ := newStore(t)

	// A zone can exist before any availability does.
	s.SetZone("carol", "Asia/Manila")
	z, ok := s.ZoneFor("carol")
	require.True(t, ok)
	assert.Equal(t, "Asia/Manila", z)

	_, ok = s.ZoneFor("nobody")
	assert.False(t, ok)

	// Clearing availability does not clear the zone.
	s.Upsert("carol", "BF6", Monday, entry(17, 21, ""))
	s.ClearAll("carol")
	_, ok = s.ZoneFor("carol")
	assert.True(t, ok)
}

func TestPersistenceRoundTrip(t *testing.T) {
	mem := storage.NewMemory()

	s1, err := Open(mem, "BF6")
	require.NoError(t, err)
	s1.Upsert("alice", "BF6", Monday, Entry{
		Start: ClockTime{Hour: 17, Minute: 30},
		End:   ClockTime{Hour: 21},
		TZ:    "America/New_York",
	})
	s1.SetZone("alice", "Asia/Manila")

	s2, err := Open(mem, "BF6")
	require.NoError(t, err)

	entries := s2.Entries("alice", "BF6")
	require.Len(t, entries, 1)
	assert.Equal(t, ClockTime{Hour: 17, Minute: 30}, entries[Monday].Start)
	assert.Equal(t, "America/New_York", entries[Monday].TZ)

	z, ok := s2.ZoneFor("alice")
	require.True(t, ok)
	assert.Equal(t, "Asia/Manila", z)
}

func TestLegacyArrayEntriesMigrate(t *testing.T) {
	mem := storage.NewMemory()
	mem.Seed("availability", `{
		"alice": {"BF6": {"0": ["17:00", "21:00", "America/New_York"], "4": ["18:00", "22:00", ""]}}
	}`)

	s, err := Open(mem, "BF6")
	require.NoError(t, err)

	entries := s.Entries("alice", "BF6")
	require.Len(t, entries, 2)
	assert.Equal(t, ClockTime{Hour: 17}, entries[Monday].Start)
	assert.Equal(t, "America/New_York", entries[Monday].TZ)
	assert.Empty(t, entries[Friday].TZ)

	// Migration rewrites the record in the current envelope.
	raw, ok, err := mem.ReadRecord("availability")
	require.NoError(t, err)
	require.True(t, ok)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.EqualValues(t, 2, doc["version"])
}

func TestLegacyPreActivityRecordsFoldUnderDefault(t *testing.T) {
	mem := storage.NewMemory()
	mem.Seed("availability", `{
		"alice": {"0": ["17:00", "21:00", ""]},
		"bob": {"ARC": {"2": ["10:00", "12:00", ""]}}
	}`)

	s, err := Open(mem, "BF6")
	require.NoError(t, err)

	assert.Len(t, s.Entries("alice", "BF6"), 1, "weekday-keyed record lands under default activity")
	assert.Len(t, s.Entries("bob", "ARC"), 1)
}

func TestWriteFailureKeepsMemoryAuthoritative(t *testing.T) {
	s, mem := newStore(t)
	mem.FailWrites = errors.New("disk full")

	s.Upsert("alice", "BF6", Monday, entry(17, 21, ""))
	require.Len(t, s.ListEntries("BF6", Monday), 1)

	// Flush surfaces the failure instead of swallowing it.
	assert.Error(t, s.Flush())

	mem.FailWrites = nil
	require.NoError(t, s.Flush())

	s2, err := Open(mem, "BF6")
	require.NoError(t, err)
	assert.Len(t, s2.ListEntries("BF6", Monday), 1)
}

func TestClockTimeParse(t *testing.T) {
	got, err := ParseClockTime("09:05")
	require.NoError(t, err)
	assert.Equal(t, ClockTime{Hour: 9, Minute: 5}, got)

	for _, bad := range []string{"", "9", "9:", "aa:bb", "24:00", "12:60"} {
		_, err := ParseClockTime(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestClockTimeFormat12h(t *testing.T) {
	assert.Equal(t, "12:00 AM", ClockTime{Hour: 0}.Format12h())
	assert.Equal(t, "12:00 PM", ClockTime{Hour: 12}.Format12h())
	assert.Equal(t, "5:30 PM", ClockTime{Hour: 17, Minute: 30}.Format12h())
	assert.Equal(t, "9:05 AM", ClockTime{Hour: 9, Minute: 5}.Format12h())
}
