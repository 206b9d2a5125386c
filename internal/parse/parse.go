// Package parse extracts weekly availability tuples from free-form chat
// text, resolving AM/PM ambiguity and optional timezone hints.
package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hirewaynemartinjr/PixelB0T/internal/avail"
	appLog "github.com/hirewaynemartinjr/PixelB0T/internal/log"
	"github.com/hirewaynemartinjr/PixelB0T/internal/tz"
)

// Slot is one parsed (start, end, timezone?) tuple. TZ is a canonical
// identifier or empty when the message carried no resolvable hint.
type Slot struct {
	Start avail.ClockTime
	End   avail.ClockTime
	TZ    string
}

var dayNames = map[string]avail.Weekday{
	"monday": avail.Monday, "mon": avail.Monday, "m": avail.Monday,
	"tuesday": avail.Tuesday, "tue": avail.Tuesday, "t": avail.Tuesday,
	"wednesday": avail.Wednesday, "wed": avail.Wednesday, "w": avail.Wednesday,
	"thursday": avail.Thursday, "thu": avail.Thursday, "th": avail.Thursday,
	"friday": avail.Friday, "fri": avail.Friday, "f": avail.Friday,
	"saturday": avail.Saturday, "sat": avail.Saturday, "s": avail.Saturday,
	"sunday": avail.Sunday, "sun": avail.Sunday, "su": avail.Sunday,
}

// entryRe matches one "<day> <start>[am|pm] (-|to) <end>[am|pm] [<tz>]"
// fragment. Longer day spellings come first in the alternation so the
// shorthand letters don't shadow them.
var entryRe = regexp.MustCompile(`(?i)` +
	`\b(?P<day>monday|mon|thursday|thu|th|tuesday|tue|wednesday|wed|sunday|sun|su|saturday|sat|friday|fri|m|t|w|f|s)\b\s*` +
	`(?P<start>\d{1,2}(?::\d{2})?)\s*(?P<startamp>[ap]m)?\s*(?:-|to)\s*` +
	`(?P<end>\d{1,2}(?::\d{2})?)\s*(?P<endamp>[ap]m)?` +
	`(?:[ \t]+(?P<tz>[A-Za-z][A-Za-z/_+-]*))?`)

// trailingZoneRe finds an uppercase abbreviation (2-4 letters) or an
// Area/City token at the very end of the message.
var trailingZoneRe = regexp.MustCompile(`\b([A-Z]{2,4}|[A-Z][a-z]+(?:/[A-Z][A-Za-z_]+)+)[\s.!]*$`)

var entryGroups = entryRe.SubexpNames()

// Availability extracts all parseable day/time tuples from text. It
// never fails: malformed fragments are skipped individually, and a
// message with no matches yields an empty map. When the same weekday
// appears more than once, the last occurrence wins.
func Availability(text string) map[avail.Weekday]Slot {
	out := make(map[avail.Weekday]Slot)

	globalZone := trailingZone(text)

	for _, m := range entryRe.FindAllStringSubmatch(text, -1) {
		g := groups(m)

		day, ok := dayNames[strings.ToLower(g["day"])]
		if !ok {
			continue
		}

		sh, sm, err := splitHourMinute(g["start"])
		if err != nil {
			appLog.Error("skipping unparseable fragment", err, "fragment", m[0])
			continue
		}
		eh, em, err := splitHourMinute(g["end"])
		if err != nil {
			appLog.Error("skipping unparseable fragment", err, "fragment", m[0])
			continue
		}

		startHour, endHour := applyMeridiem(sh, eh, strings.ToLower(g["startamp"]), strings.ToLower(g["endamp"]))

		zone := globalZone
		if token := g["tz"]; token != "" {
			if resolved, rerr := tz.Resolve(token); rerr == nil {
				zone = resolved
			}
			// Unresolvable inline token: keep the message-wide default.
		}

		slot := Slot{
			Start: avail.NewClockTime(startHour, sm),
			End:   avail.NewClockTime(endHour, em),
			TZ:    zone,
		}
		out[day] = slot
		appLog.Debug("parsed availability fragment",
			"day", day.String(), "start", slot.Start.String(), "end", slot.End.String(), "tz", zone)
	}

	return out
}

// applyMeridiem resolves AM/PM for a start/end hour pair, in order:
//
//  1. explicit markers always apply independently
//  2. bare start + PM end, start hour 1-11: start inherits PM
//  3. PM start + bare end, end hour (as typed) < 12 and > start hour
//     (as typed): end inherits PM
//  4. otherwise hours are literal 24-hour values
func applyMeridiem(startHour, endHour int, startMark, endMark string) (int, int) {
	outStart, outEnd := startHour, endHour

	switch {
	case startMark == "pm" && startHour < 12:
		outStart = startHour + 12
	case startMark == "am" && startHour == 12:
		outStart = 0
	case startMark == "" && endMark == "pm" && startHour >= 1 && startHour <= 11:
		outStart = startHour + 12
	}

	switch {
	case endMark == "pm" && endHour < 12:
		outEnd = endHour + 12
	case endMark == "am" && endHour == 12:
		outEnd = 0
	case endMark == "" && startMark == "pm" && endHour < 12 && endHour > startHour:
		outEnd = endHour + 12
	}

	return outStart, outEnd
}

// trailingZone returns the canonical zone for a resolvable token at the
// end of the message, or empty.
func trailingZone(text string) string {
	m := trailingZoneRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return ""
	}
	resolved, err := tz.Resolve(m[1])
	if err != nil {
		return ""
	}
	return resolved
}

// splitHourMinute parses "5", "17", or "5:30". Hours beyond 23 are
// tolerated here (reduced modulo 24 later); minutes must be 0-59.
func splitHourMinute(s string) (hour, minute int, err error) {
	hs, ms, hasMinute := strings.Cut(s, ":")
	hour, err = strconv.Atoi(hs)
	if err != nil {
		return 0, 0, err
	}
	if hasMinute {
		minute, err = strconv.Atoi(ms)
		if err != nil {
			return 0, 0, err
		}
		if minute < 0 || minute > 59 {
			return 0, 0, strconv.ErrRange
		}
	}
	return hour, minute, nil
}

func groups(m []string) map[string]string {
	g := make(map[string]string, len(entryGroups))
	for i, name := range entryGroups {
		if name != "" && i < len(m) {
			g[name] = m[i]
		}
	}
	return g
}
