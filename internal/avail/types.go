// Package avail holds the per-person, per-activity weekly availability
// model and its durable store.
package avail

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Weekday identifies a recurring day-of-week slot, Monday=0 .. Sunday=6.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [7]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

var weekdayShort = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func (d Weekday) Valid() bool { return d >= 0 && d <= 6 }

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// Short returns the three-letter form ("Mon").
func (d Weekday) Short() string {
	if !d.Valid() {
		return d.String()
	}
	return weekdayShort[d]
}

// ClockTime is a wall-clock time of day with no date component.
type ClockTime struct {
	Hour   int
	Minute int
}

// NewClockTime reduces hour modulo 24 so typo inputs like "25:00" stay
// representable.
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime{Hour: ((hour % 24) + 24) % 24, Minute: minute}
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Format12h renders "5:30 PM" style output for user-facing messages.
func (c ClockTime) Format12h() string {
	h := c.Hour % 12
	if h == 0 {
		h = 12
	}
	suffix := "AM"
	if c.Hour >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", h, c.Minute, suffix)
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClockTime(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseClockTime parses "HH:MM" (24-hour).
func ParseClockTime(s string) (ClockTime, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ClockTime{}, fmt.Errorf("avail: malformed clock time %q", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return ClockTime{}, fmt.Errorf("avail: malformed clock time %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 || hour < 0 || hour > 23 {
		return ClockTime{}, fmt.Errorf("avail: malformed clock time %q", s)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

// Entry is one weekday's availability window. TZ is the canonical zone
// the times were expressed in at capture time; empty means "resolve
// against the person's registered default zone at read time", so a
// default-zone change retroactively re-projects the entry. That is
// deliberate.
type Entry struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
	TZ    string    `json:"tz,omitempty"`
}

// UnmarshalJSON accepts both the object form and the legacy three-string
// array form ["17:00","21:00","America/New_York"].
func (e *Entry) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var parts []string
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		if len(parts) < 2 {
			return errors.New("avail: legacy entry needs start and end")
		}
		start, err := ParseClockTime(parts[0])
		if err != nil {
			return err
		}
		end, err := ParseClockTime(parts[1])
		if err != nil {
			return err
		}
		e.Start, e.End = start, end
		if len(parts) > 2 {
			e.TZ = parts[2]
		}
		return nil
	}

	type plain Entry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Entry(p)
	return nil
}

// PersonEntry pairs a person identifier with one stored entry, for
// aggregation views.
type PersonEntry struct {
	Person string
	Entry  Entry
}
