// Package tz resolves user-supplied timezone shortcuts and IANA names
// into canonical zone identifiers.
package tz

import (
	"errors"
	"strings"
	"time"
)

// ErrUnknownZone is returned when an input resolves to neither a known
// shortcut nor a loadable IANA zone.
var ErrUnknownZone = errors.New("unknown timezone")

// shortcuts maps uppercase country codes and common abbreviations to one
// canonical IANA identifier each. Many keys map to the same zone on
// purpose; the table is a pure forward lookup.
var shortcuts = map[string]string{
	"PH": "Asia/Manila", "PHK": "Asia/Manila", "PHT": "Asia/Manila",
	"JP": "Asia/Tokyo", "JST": "Asia/Tokyo",
	"KR": "Asia/Seoul", "KST": "Asia/Seoul",
	"CN": "Asia/Shanghai", "CST": "Asia/Shanghai",
	"HK": "Asia/Hong_Kong", "HKT": "Asia/Hong_Kong",
	"SG": "Asia/Singapore", "SGT": "Asia/Singapore",
	"MY": "Asia/Kuala_Lumpur", "MYT": "Asia/Kuala_Lumpur",
	"ID": "Asia/Jakarta", "WIB": "Asia/Jakarta",
	"TH": "Asia/Bangkok", "ICT": "Asia/Bangkok",
	"VN": "Asia/Ho_Chi_Minh",
	"IN": "Asia/Kolkata", "IST": "Asia/Kolkata",
	"PK": "Asia/Karachi", "PKT": "Asia/Karachi",
	"BD": "Asia/Dhaka", "BDT": "Asia/Dhaka",
	"LK": "Asia/Colombo",
	"NP": "Asia/Kathmandu",
	"AF": "Asia/Kabul",
	"AE": "Asia/Dubai", "GST": "Asia/Dubai",
	"IR": "Asia/Tehran", "IRST": "Asia/Tehran",
	"RU": "Europe/Moscow", "MSK": "Europe/Moscow",
	"KZ": "Asia/Almaty",
	"GB": "Europe/London", "GMT": "Europe/London", "BST": "Europe/London",
	"FR": "Europe/Paris", "CET": "Europe/Paris", "CEST": "Europe/Paris",
	"DE": "Europe/Berlin",
	"IT": "Europe/Rome",
	"ES": "Europe/Madrid",
	"NL": "Europe/Amsterdam",
	"SE": "Europe/Stockholm",
	"NO": "Europe/Oslo",
	"DK": "Europe/Copenhagen",
	"FI": "Europe/Helsinki",
	"PL": "Europe/Warsaw",
	"GR": "Europe/Athens", "EET": "Europe/Athens",
	"TR": "Europe/Istanbul",
	"UA": "Europe/Kiev",
	"RO": "Europe/Bucharest",
	"US": "America/New_York", "EST": "America/New_York", "EDT": "America/New_York",
	"US/PACIFIC": "America/Los_Angeles", "PST": "America/Los_Angeles", "PDT": "America/Los_Angeles",
	"US/CENTRAL": "America/Chicago", "CDT": "America/Chicago",
	"US/MOUNTAIN": "America/Denver", "MST": "America/Denver", "MDT": "America/Denver",
	"CA": "America/Toronto",
	"MX": "America/Mexico_City",
	"BR": "America/Sao_Paulo", "BRT": "America/Sao_Paulo",
	"AR": "America/Argentina/Buenos_Aires",
	"CL": "America/Santiago",
	"CO": "America/Bogota",
	"PE": "America/Lima",
	"VE": "America/Caracas",
	"AU": "Australia/Sydney", "AEST": "Australia/Sydney", "AEDT": "Australia/Sydney",
	"NZ": "Pacific/Auckland", "NZST": "Pacific/Auckland",
	"FJ": "Pacific/Fiji",
	"ZA": "Africa/Johannesburg", "SAST": "Africa/Johannesburg",
	"EG": "Africa/Cairo",
	"NG": "Africa/Lagos", "WAT": "Africa/Lagos",
	"MA": "Africa/Casablanca",
	"KE": "Africa/Nairobi", "EAT": "Africa/Nairobi",
	"UTC": "UTC", "ZULU": "UTC", "GMT+0": "UTC", "GMT-0": "UTC",
}

// Resolve maps input to a canonical timezone identifier. The uppercased
// input is checked against the shortcut table first; failing that, the
// raw input is validated directly against the zone database. No partial
// or fuzzy matching.
func Resolve(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ErrUnknownZone
	}

	if canonical, ok := shortcuts[strings.ToUpper(trimmed)]; ok {
		return canonical, nil
	}

	if _, err := time.LoadLocation(trimmed); err == nil {
		return trimmed, nil
	}
	return "", ErrUnknownZone
}

// Location loads the *time.Location for an already-canonical identifier.
// Stored identifiers must stay resolvable; a failure here means the zone
// database and the stored data disagree.
func Location(canonical string) (*time.Location, error) {
	loc, err := time.LoadLocation(canonical)
	if err != nil {
		return nil, ErrUnknownZone
	}
	return loc, nil
}
