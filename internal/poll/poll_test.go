package poll

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewaynemartinjr/PixelB0T/internal/transport"
)

// boundary is a Sunday 00:00:30 UTC.
var boundary = time.Date(2026, time.September, 6, 0, 0, 30, 0, time.UTC)

type fixture struct {
	mem   *transport.Memory
	mgr   *Manager
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{mem: transport.NewMemory(), clock: boundary}
	f.mgr = NewManager(f.mem, []Activity{
		{ID: "BF6", Channel: "chan-bf6", PollTitle: "BF6 Weekly Availability"},
		{ID: "ARC", Channel: "chan-arc", PollTitle: "ARC Weekly Availability"},
	}, func() time.Time { return f.clock })
	return f
}

func TestAutoOpenFiresAtBoundary(t *testing.T) {
	f := newFixture(t)

	fired, err := f.mgr.MaybeAutoOpen(context.Background(), "BF6")
	require.NoError(t, err)
	assert.True(t, fired)

	ref, open := f.mgr.CurrentRef("BF6")
	require.True(t, open)
	assert.Equal(t, "chan-bf6", ref.Channel)

	// Poll message plus announce.
	msgs := f.mem.ChannelMessages("chan-bf6")
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, "BF6 Weekly Availability")
	assert.Len(t, msgs[0].Reactions, len(QuickReactions))
	assert.Contains(t, msgs[1].Content, "Mark BF6 availability")
}

func TestAutoOpenDebouncedWithinHour(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fired, err := f.mgr.MaybeAutoOpen(ctx, "BF6")
	require.NoError(t, err)
	require.True(t, fired)

	// The scheduled check runs again within the same minute window.
	f.clock = f.clock.Add(45 * time.Second)
	fired, err = f.mgr.MaybeAutoOpen(ctx, "BF6")
	require.NoError(t, err)
	assert.False(t, fired, "second trigger within the hour must be suppressed")

	assert.Len(t, f.mem.ChannelMessages("chan-bf6"), 2, "exactly one poll opened")
}

func TestAutoOpenOutsideBoundaryDoesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, clock := range []time.Time{
		boundary.Add(-time.Minute),       // Saturday 23:59
		boundary.Add(5 * time.Minute),    // Sunday 00:05
		boundary.Add(24 * time.Hour),     // Monday
		boundary.Add(12 * time.Hour),     // Sunday noon
	} {
		f.clock = clock
		fired, err := f.mgr.MaybeAutoOpen(ctx, "BF6")
		require.NoError(t, err)
		assert.False(t, fired, "clock %s", clock)
	}
	assert.Empty(t, f.mem.ChannelMessages("chan-bf6"))
}

func TestAutoOpenFiresAgainNextWeek(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fired, _ := f.mgr.MaybeAutoOpen(ctx, "BF6")
	require.True(t, fired)

	f.clock = boundary.AddDate(0, 0, 7)
	fired, err := f.mgr.MaybeAutoOpen(ctx, "BF6")
	require.NoError(t, err)
	assert.True(t, fired, "next week's boundary fires again")
}

func TestManualOpenReplacesAndKeepsSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.mgr.ManualOpen(ctx, "bf6")
	require.NoError(t, err)
	assert.True(t, f.mgr.IsCurrent("BF6", first))

	// Replace: a second manual poll supersedes the first.
	second, err := f.mgr.ManualOpen(ctx, "BF6")
	require.NoError(t, err)
	assert.False(t, f.mgr.IsCurrent("BF6", first), "old reference is discarded")
	assert.True(t, f.mgr.IsCurrent("BF6", second))

	// Manual polls never suppress the automatic schedule.
	fired, err := f.mgr.MaybeAutoOpen(ctx, "BF6")
	require.NoError(t, err)
	assert.True(t, fired)
}

func TestIsCurrentDistinguishesActivities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ref, err := f.mgr.ManualOpen(ctx, "BF6")
	require.NoError(t, err)

	assert.True(t, f.mgr.IsCurrent("BF6", ref))
	assert.False(t, f.mgr.IsCurrent("ARC", ref))
	assert.False(t, f.mgr.IsCurrent("BF6", transport.MessageRef{Channel: "chan-bf6", ID: "other"}))
}

func TestClosedUntilFirstOpen(t *testing.T) {
	f := newFixture(t)

	_, open := f.mgr.CurrentRef("BF6")
	assert.False(t, open)
	assert.False(t, f.mgr.IsCurrent("BF6", transport.MessageRef{}))
}

func TestUnknownActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.mgr.MaybeAutoOpen(ctx, "NOPE")
	assert.Error(t, err)
	_, err = f.mgr.ManualOpen(ctx, "NOPE")
	assert.Error(t, err)
}

func TestActivityLookups(t *testing.T) {
	f := newFixture(t)

	act, ok := f.mgr.ActivityByChannel("chan-arc")
	require.True(t, ok)
	assert.Equal(t, "ARC", act.ID)

	_, ok = f.mgr.ActivityByChannel("nowhere")
	assert.False(t, ok)

	act, ok = f.mgr.Activity("arc")
	require.True(t, ok)
	assert.Equal(t, "ARC", act.ID)
}
