package avail

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"

	appLog "github.com/hirewaynemartinjr/PixelB0T/internal/log"
	"github.com/hirewaynemartinjr/PixelB0T/internal/storage"
)

const (
	recordAvailability = "availability"
	recordUserZones    = "user_tzs"

	docVersion = 2
)

// availabilityDoc is the persistence envelope for all availability data.
// People maps person -> activity -> weekday digit -> Entry.
type availabilityDoc struct {
	Version int                                    `json:"version"`
	People  map[string]map[string]map[string]Entry `json:"people"`
}

// Store owns every PersonRecord and the per-person timezone preferences.
// Mutations write through to the record store; on write failure the
// in-memory state stays authoritative until the next successful write.
type Store struct {
	mu      sync.Mutex
	records storage.RecordStore

	// defaultActivity receives legacy pre-activity records on load.
	defaultActivity string

	people map[string]map[string]map[Weekday]Entry
	zones  map[string]string
}

// Open loads both records from rs, migrating legacy layouts in place.
func Open(rs storage.RecordStore, defaultActivity string) (*Store, error) {
	s := &Store{
		records:         rs,
		defaultActivity: strings.ToUpper(defaultActivity),
		people:          make(map[string]map[string]map[Weekday]Entry),
		zones:           make(map[string]string),
	}

	if err := s.loadAvailability(); err != nil {
		return nil, err
	}
	if err := s.loadZones(); err != nil {
		return nil, err
	}

	appLog.Info("availability store loaded", "people", len(s.people), "zones", len(s.zones))
	return s, nil
}

// Upsert replaces the entry for exactly (person, activity, weekday).
// Other weekdays under the same activity are untouched.
func (s *Store) Upsert(person, activity string, day Weekday, e Entry) {
	s.mu.Lock()
	activity = strings.ToUpper(activity)

	byActivity, ok := s.people[person]
	if !ok {
		byActivity = make(map[string]map[Weekday]Entry)
		s.people[person] = byActivity
	}
	byDay, ok := byActivity[activity]
	if !ok {
		byDay = make(map[Weekday]Entry)
		byActivity[activity] = byDay
	}
	byDay[day] = e
	s.mu.Unlock()

	s.saveAvailability()
}

// ClearActivity removes all weekday entries for one activity; the person
// record itself goes away when no activities remain.
func (s *Store) ClearActivity(person, activity string) {
	s.mu.Lock()
	activity = strings.ToUpper(activity)
	if byActivity, ok := s.people[person]; ok {
		delete(byActivity, activity)
		if len(byActivity) == 0 {
			delete(s.people, person)
		}
	}
	s.mu.Unlock()

	s.saveAvailability()
}

// ClearAll removes the person's record across all activities.
func (s *Store) ClearAll(person string) {
	s.mu.Lock()
	delete(s.people, person)
	s.mu.Unlock()

	s.saveAvailability()
}

// ListEntries returns every (person, entry) pair with the given weekday
// populated for the activity, sorted by person for stable output.
func (s *Store) ListEntries(activity string, day Weekday) []PersonEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	activity = strings.ToUpper(activity)
	out := make([]PersonEntry, 0)
	for person, byActivity := range s.people {
		if e, ok := byActivity[activity][day]; ok {
			out = append(out, PersonEntry{Person: person, Entry: e})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Person < out[j].Person })
	return out
}

// Entries returns a copy of one person's weekday map for an activity.
func (s *Store) Entries(person, activity string) map[Weekday]Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	byDay := s.people[person][strings.ToUpper(activity)]
	out := make(map[Weekday]Entry, len(byDay))
	for d, e := range byDay {
		out[d] = e
	}
	return out
}

// HasData reports whether the person stored anything for the activity.
func (s *Store) HasData(person, activity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.people[person][strings.ToUpper(activity)]) > 0
}

// SetZone registers the person's default timezone. The identifier must
// already be canonical (resolver-validated).
func (s *Store) SetZone(person, canonical string) {
	s.mu.Lock()
	s.zones[person] = canonical
	s.mu.Unlock()

	s.saveZones()
}

// ZoneFor returns the person's registered default zone, if any.
func (s *Store) ZoneFor(person string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[person]
	return z, ok
}

// Flush writes both records unconditionally. Used on shutdown, where a
// failed write must surface instead of being fire-and-forget.
func (s *Store) Flush() error {
	if err := s.records.WriteRecord(recordAvailability, s.snapshotDoc()); err != nil {
		return err
	}
	s.mu.Lock()
	zones := make(map[string]string, len(s.zones))
	for k, v := range s.zones {
		zones[k] = v
	}
	s.mu.Unlock()
	return s.records.WriteRecord(recordUserZones, zones)
}

func (s *Store) loadAvailability() error {
	raw, ok, err := s.records.ReadRecord(recordAvailability)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var doc availabilityDoc
	if err := json.Unmarshal(raw, &doc); err == nil && doc.Version >= docVersion {
		s.adoptDoc(doc.People)
		return nil
	}

	// Legacy layout: no envelope, person values are either activity maps
	// or (older still) bare weekday maps.
	migrated := s.migrateLegacy(raw)
	if migrated {
		s.saveAvailability()
	}
	return nil
}

// migrateLegacy folds pre-envelope records into the current layout.
// A person value whose keys are all weekday digits predates activities
// and lands under the default activity.
func (s *Store) migrateLegacy(raw json.RawMessage) bool {
	var people map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &people); err != nil {
		appLog.Error("availability record unreadable, starting empty", err)
		return false
	}

	adopted := make(map[string]map[string]map[string]Entry, len(people))
	for person, inner := range people {
		if isWeekdayKeyed(inner) {
			byDay := decodeDayMapRaw(inner)
			if len(byDay) > 0 {
				adopted[person] = map[string]map[string]Entry{s.defaultActivity: byDay}
			}
			continue
		}
		byActivity := make(map[string]map[string]Entry)
		for activity, dayRaw := range inner {
			var dayMap map[string]json.RawMessage
			if err := json.Unmarshal(dayRaw, &dayMap); err != nil {
				appLog.Error("skipping unreadable activity block", err, "person", person, "activity", activity)
				continue
			}
			byDay := decodeDayMapRaw(dayMap)
			if len(byDay) > 0 {
				byActivity[strings.ToUpper(activity)] = byDay
			}
		}
		if len(byActivity) > 0 {
			adopted[person] = byActivity
		}
	}

	s.adoptDoc(adopted)
	appLog.Info("availability record migrated", "people", len(adopted))
	return true
}

func isWeekdayKeyed(m map[string]json.RawMessage) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if n, err := strconv.Atoi(k); err != nil || n < 0 || n > 6 {
			return false
		}
	}
	return true
}

func decodeDayMapRaw(m map[string]json.RawMessage) map[string]Entry {
	out := make(map[string]Entry, len(m))
	for k, raw := range m {
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			appLog.Error("skipping unreadable availability entry", err, "weekday", k)
			continue
		}
		out[k] = e
	}
	return out
}

func (s *Store) adoptDoc(people map[string]map[string]map[string]Entry) {
	for person, byActivity := range people {
		adoptedActivities := make(map[string]map[Weekday]Entry, len(byActivity))
		for activity, byDayStr := range byActivity {
			byDay := make(map[Weekday]Entry, len(byDayStr))
			for k, e := range byDayStr {
				n, err := strconv.Atoi(k)
				if err != nil || n < 0 || n > 6 {
					appLog.Error("skipping entry with bad weekday key", err, "person", person, "key", k)
					continue
				}
				byDay[Weekday(n)] = e
			}
			if len(byDay) > 0 {
				adoptedActivities[strings.ToUpper(activity)] = byDay
			}
		}
		if len(adoptedActivities) > 0 {
			s.people[person] = adoptedActivities
		}
	}
}

func (s *Store) loadZones() error {
	raw, ok, err := s.records.ReadRecord(recordUserZones)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, &s.zones); err != nil {
		appLog.Error("timezone record unreadable, starting empty", err)
		s.zones = make(map[string]string)
	}
	return nil
}

func (s *Store) snapshotDoc() availabilityDoc {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := availabilityDoc{
		Version: docVersion,
		People:  make(map[string]map[string]map[string]Entry, len(s.people)),
	}
	for person, byActivity := range s.people {
		pa := make(map[string]map[string]Entry, len(byActivity))
		for activity, byDay := range byActivity {
			pd := make(map[string]Entry, len(byDay))
			for d, e := range byDay {
				pd[strconv.Itoa(int(d))] = e
			}
			pa[activity] = pd
		}
		doc.People[person] = pa
	}
	return doc
}

// saveAvailability persists after a mutation. Failures are logged, not
// fatal: memory stays authoritative until the next successful write.
func (s *Store) saveAvailability() {
	if err := s.records.WriteRecord(recordAvailability, s.snapshotDoc()); err != nil {
		appLog.Error("availability save failed", err)
	}
}

func (s *Store) saveZones() {
	s.mu.Lock()
	zones := make(map[string]string, len(s.zones))
	for k, v := range s.zones {
		zones[k] = v
	}
	s.mu.Unlock()

	if err := s.records.WriteRecord(recordUserZones, zones); err != nil {
		appLog.Error("timezone save failed", err)
	}
}
