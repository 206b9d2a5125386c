// Package summary projects stored wall-clock availability into a target
// display timezone for aggregated views.
package summary

import (
	"time"

	"github.com/hirewaynemartinjr/PixelB0T/internal/avail"
	appLog "github.com/hirewaynemartinjr/PixelB0T/internal/log"
	"github.com/hirewaynemartinjr/PixelB0T/internal/tz"
)

// Row is one person's converted window for a weekday. When Converted is
// false the times are the raw source-local values and SourceZone names
// the zone that failed to resolve.
type Row struct {
	Person     string
	Start      avail.ClockTime
	End        avail.ClockTime
	Converted  bool
	SourceZone string
}

// Engine reads from the availability store and converts entries on a
// current-date reference. Entries carry no real date, so DST transitions
// are approximated with today's zone offsets; that precision limit is
// accepted.
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

// Summarize returns per-weekday rows for the activity, converted into
// displayZone. The display zone must be canonical; entries whose own
// zone fails to resolve are reported unconverted rather than dropped.
func (e *Engine) Summarize(activity, displayZone string) ([7][]Row, error) {
	var out [7][]Row

	displayLoc, err := tz.Location(displayZone)
	if err != nil {
		return out, err
	}

	for day := avail.Monday; day <= avail.Sunday; day++ {
		for _, pe := range e.store.ListEntries(activity, day) {
			out[day] = append(out[day], e.convert(pe, displayLoc))
		}
	}
	return out, nil
}

func (e *Engine) convert(pe avail.PersonEntry, displayLoc *time.Location) Row {
	sourceZone := pe.Entry.TZ
	if sourceZone == "" {
		if z, ok := e.store.ZoneFor(pe.Person); ok {
			sourceZone = z
		} else {
			sourceZone = e.defaultZone
		}
	}

	srcLoc, err := tz.Location(sourceZone)
	if err != nil {
		appLog.Error("summary: source zone unresolvable, reporting raw", err,
			"person", pe.Person, "zone", sourceZone)
		return Row{
			Person:     pe.Person,
			Start:      pe.Entry.Start,
			End:        pe.Entry.End,
			Converted:  false,
			SourceZone: sourceZone,
		}
	}

	// Fixed reference date: today in the source zone.
	ref := e.now().In(srcLoc)
	return Row{
		Person:     pe.Person,
		Start:      projectClock(pe.Entry.Start, ref, srcLoc, displayLoc),
		End:        projectClock(pe.Entry.End, ref, srcLoc, displayLoc),
		Converted:  true,
		SourceZone: sourceZone,
	}
}

func projectClock(c avail.ClockTime, ref time.Time, src, dst *time.Location) avail.ClockTime {
	local := time.Date(ref.Year(), ref.Month(), ref.Day(), c.Hour, c.Minute, 0, 0, src)
	converted := local.In(dst)
	return avail.ClockTime{Hour: converted.Hour(), Minute: converted.Minute()}
}
