// Package poll tracks the currently open availability poll per activity
// and drives the weekly auto-open schedule.
package poll

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	appLog "github.com/hirewaynemartinjr/PixelB0T/internal/log"
	"github.com/hirewaynemartinjr/PixelB0T/internal/transport"
)

// QuickReactions are the weekday quick-entry emojis added to every poll,
// index 0 = Monday.
var QuickReactions = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣"}

// autoDebounce is the minimum gap between two accepted automatic
// triggers for one activity. The scheduled check runs far more often
// than once per hour, so the debounce is what guarantees uniqueness.
const autoDebounce = time.Hour

// Activity describes one polled context.
type Activity struct {
	ID        string
	Channel   string
	PollTitle string
}

type state struct {
	openRef  transport.MessageRef
	lastAuto time.Time
}

// Manager owns per-activity poll state. An open poll is only ever
// superseded by a newer one; there is no close transition.
type Manager struct {
	msgr transport.Messenger
	now  func() time.Time

	mu         sync.Mutex
	activities map[string]Activity
	states     map[string]*state
}

// NewManager builds a Manager over the given activities. now may be nil,
// in which case time.Now is used.
func NewManager(msgr transport.Messenger, activities []Activity, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	m := &Manager{
		msgr:       msgr,
		now:        now,
		activities: make(map[string]Activity, len(activities)),
		states:     make(map[string]*state, len(activities)),
	}
	for _, a := range activities {
		id := strings.ToUpper(a.ID)
		a.ID = id
		m.activities[id] = a
		m.states[id] = &state{}
	}
	return m
}

// Activities returns the configured activities.
func (m *Manager) Activities() []Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Activity, 0, len(m.activities))
	for _, a := range m.activities {
		out = append(out, a)
	}
	return out
}

// ActivityByChannel finds the activity bound to a channel, if any.
func (m *Manager) ActivityByChannel(channel string) (Activity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.activities {
		if a.Channel == channel {
			return a, true
		}
	}
	return Activity{}, false
}

// Activity looks up one activity by (case-insensitive) id.
func (m *Manager) Activity(id string) (Activity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.activities[strings.ToUpper(id)]
	return a, ok
}

// MaybeAutoOpen fires the weekly poll for one activity when the clock
// sits on the week boundary (Sunday 00:00-00:01 UTC) and the last
// automatic trigger is absent or older than an hour. Safe to call on a
// short fixed interval.
func (m *Manager) MaybeAutoOpen(ctx context.Context, activityID string) (bool, error) {
	id := strings.ToUpper(activityID)

	m.mu.Lock()
	act, ok := m.activities[id]
	if !ok {
		m.mu.Unlock()
		return false, fmt.Errorf("poll: unknown activity %q", activityID)
	}
	st := m.states[id]

	now := m.now().UTC()
	if now.Weekday() != time.Sunday || now.Hour() != 0 || now.Minute() > 1 {
		m.mu.Unlock()
		return false, nil
	}
	if !st.lastAuto.IsZero() && now.Sub(st.lastAuto) < autoDebounce {
		m.mu.Unlock()
		return false, nil
	}
	m.mu.Unlock()

	ref, err := m.open(ctx, act)
	if err != nil {
		return false, err
	}

	// Weekly announce accompanies automatic polls only.
	announce := fmt.Sprintf("@everyone Mark %s availability! Use `!mycalendar %s` to export.",
		act.ID, strings.ToLower(act.ID))
	if _, err := m.msgr.SendMessage(ctx, act.Channel, transport.Outgoing{Body: announce}); err != nil {
		appLog.Error("poll announce failed", err, "activity", act.ID)
	}

	m.mu.Lock()
	st.openRef = ref
	st.lastAuto = now
	m.mu.Unlock()

	appLog.Info("weekly poll opened", "activity", act.ID, "message", ref.ID)
	return true, nil
}

// MaybeAutoOpenAll runs MaybeAutoOpen for every activity; one failure
// does not stop the others.
func (m *Manager) MaybeAutoOpenAll(ctx context.Context) {
	for _, act := range m.Activities() {
		if _, err := m.MaybeAutoOpen(ctx, act.ID); err != nil {
			appLog.Error("auto poll failed", err, "activity", act.ID)
		}
	}
}

// ManualOpen unconditionally opens a new poll, superseding any open one.
// It never touches the automatic trigger timestamp: manual polls must
// not suppress or reset the weekly schedule.
func (m *Manager) ManualOpen(ctx context.Context, activityID string) (transport.MessageRef, error) {
	id := strings.ToUpper(activityID)

	m.mu.Lock()
	act, ok := m.activities[id]
	m.mu.Unlock()
	if !ok {
		return transport.MessageRef{}, fmt.Errorf("poll: unknown activity %q", activityID)
	}

	ref, err := m.open(ctx, act)
	if err != nil {
		return transport.MessageRef{}, err
	}

	m.mu.Lock()
	m.states[id].openRef = ref
	m.mu.Unlock()

	appLog.Info("manual poll opened", "activity", act.ID, "message", ref.ID)
	return ref, nil
}

// IsCurrent reports whether ref is the live poll for the activity.
func (m *Manager) IsCurrent(activityID string, ref transport.MessageRef) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[strings.ToUpper(activityID)]
	return ok && !st.openRef.IsZero() && st.openRef == ref
}

// CurrentRef returns the live poll reference for the activity, if open.
func (m *Manager) CurrentRef(activityID string) (transport.MessageRef, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[strings.ToUpper(activityID)]
	if !ok || st.openRef.IsZero() {
		return transport.MessageRef{}, false
	}
	return st.openRef, true
}

func (m *Manager) open(ctx context.Context, act Activity) (transport.MessageRef, error) {
	// Poll covers the week starting tomorrow (Monday when fired on the
	// Sunday boundary).
	start := m.now().UTC().AddDate(0, 0, 1)
	end := start.AddDate(0, 0, 6)
	title := fmt.Sprintf("%s (%s - %s)", act.PollTitle, start.Format("Jan 2"), end.Format("Jan 2"))

	content := transport.Outgoing{
		Title: title,
		Body:  "React for quick entry!\nReply with times.\n`!settz <tz>`",
	}
	ref, err := m.msgr.SendMessage(ctx, act.Channel, content)
	if err != nil {
		return transport.MessageRef{}, err
	}

	if err := m.msgr.AddReactions(ctx, ref, QuickReactions); err != nil {
		// A poll without quick reactions still accepts replies.
		appLog.Error("adding quick reactions failed", err, "activity", act.ID, "message", ref.ID)
	}

	return ref, nil
}
