package tz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveShortcuts(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"PHK", "Asia/Manila"},
		{"phk", "Asia/Manila"},
		{"  phk  ", "Asia/Manila"},
		{"EST", "America/New_York"},
		{"PST", "America/Los_Angeles"},
		{"JP", "Asia/Tokyo"},
		{"us/pacific", "America/Los_Angeles"},
		{"UTC", "UTC"},
		{"zulu", "UTC"},
	}
	for _, tt := range tests {
		got, err := Resolve(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestResolveIANAPassthrough(t *testing.T) {
	got, err := Resolve("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", got)

	got, err = Resolve("Europe/Berlin")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", got)
}

func TestResolveUnknown(t *testing.T) {
	for _, input := range []string{"NOTAREALZONE", "", "   ", "Atlantis/Lost"} {
		_, err := Resolve(input)
		assert.ErrorIs(t, err, ErrUnknownZone, "input %q", input)
	}
}

func TestLocationRoundTrip(t *testing.T) {
	canonical, err := Resolve("PHK")
	require.NoError(t, err)

	loc, err := Location(canonical)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Manila", loc.String())
}

func TestShortcutTargetsAllResolvable(t *testing.T) {
	for key, canonical := range shortcuts {
		_, err := Location(canonical)
		assert.NoError(t, err, "shortcut %s -> %s", key, canonical)
	}
}
