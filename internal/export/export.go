// Package export turns stored weekly availability into iCalendar
// documents.
package export

import (
	"fmt"
	"sort"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/hirewaynemartinjr/PixelB0T/internal/avail"
	"github.com/hirewaynemartinjr/PixelB0T/internal/tz"
)

const productID = "-//PixelB0T//AvailabilityBot//EN"

var rruleDays = [7]rrule.Weekday{
	rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU,
}

// Event is one concrete exported occurrence with absolute instants.
type Event struct {
	UID     string
	Day     avail.Weekday
	Summary string
	Start   time.Time
	End     time.Time
}

// Engine projects a person's stored weekday entries onto concrete dates.
type Engine struct {
	store       *avail.Store
	defaultZone string
	now         func() time.Time
}

func New(store *avail.Store, defaultZone string, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{store: store, defaultZone: defaultZone, now: now}
}

// Events builds one event per stored weekday entry, placed on the next
// occurrence of that weekday (today included) in the person's registered
// zone. Re-exporting without intervening changes yields identical
// instants for the same reference day.
func (e *Engine) Events(person, activity string) ([]Event, error) {
	entries := e.store.Entries(person, activity)
	if len(entries) == 0 {
		return nil, nil
	}

	zone := e.defaultZone
	if z, ok := e.store.ZoneFor(person); ok {
		zone = z
	}
	loc, err := tz.Location(zone)
	if err != nil {
		return nil, fmt.Errorf("export: zone %q for %s: %w", zone, person, err)
	}

	ref := e.now().In(loc)
	dayStart := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)

	out := make([]Event, 0, len(entries))
	for day, entry := range entries {
		occurrence, err := nextWeekday(dayStart, day)
		if err != nil {
			return nil, err
		}

		start := time.Date(occurrence.Year(), occurrence.Month(), occurrence.Day(),
			entry.Start.Hour, entry.Start.Minute, 0, 0, loc)
		end := time.Date(occurrence.Year(), occurrence.Month(), occurrence.Day(),
			entry.End.Hour, entry.End.Minute, 0, 0, loc)

		out = append(out, Event{
			// UID stays stable across exports for the same slot.
			UID:     fmt.Sprintf("%s-%s-%d@pixelbot", person, activity, int(day)),
			Day:     day,
			Summary: fmt.Sprintf("%s Available", activity),
			Start:   start.UTC(),
			End:     end.UTC(),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

// ICS renders the person's events as a minimal iCalendar document.
func (e *Engine) ICS(person, activity string) (string, error) {
	events, err := e.Events(person, activity)
	if err != nil {
		return "", err
	}

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetVersion("2.0")

	for _, ev := range events {
		ve := cal.AddEvent(ev.UID)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetSummary(ev.Summary)
	}

	return cal.Serialize(), nil
}

// nextWeekday finds the first date on or after dayStart that falls on
// the given weekday, via a weekly recurrence anchored at dayStart.
func nextWeekday(dayStart time.Time, day avail.Weekday) (time.Time, error) {
	if !day.Valid() {
		return time.Time{}, fmt.Errorf("export: invalid weekday %d", int(day))
	}
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rruleDays[day]},
		Dtstart:   dayStart,
	})
	if err != nil {
		return time.Time{}, err
	}
	next := r.After(dayStart, true)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("export: no occurrence for %s", day)
	}
	return next, nil
}
