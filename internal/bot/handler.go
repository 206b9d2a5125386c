// Package bot wires inbound chat events and commands to the
// availability core: parsing replies to the open poll, quick-reaction
// entry, and the textual command set.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hirewaynemartinjr/PixelB0T/internal/avail"
	"github.com/hirewaynemartinjr/PixelB0T/internal/export"
	appLog "github.com/hirewaynemartinjr/PixelB0T/internal/log"
	"github.com/hirewaynemartinjr/PixelB0T/internal/parse"
	"github.com/hirewaynemartinjr/PixelB0T/internal/poll"
	"github.com/hirewaynemartinjr/PixelB0T/internal/summary"
	"github.com/hirewaynemartinjr/PixelB0T/internal/transport"
	"github.com/hirewaynemartinjr/PixelB0T/internal/tz"
)

// processedLimit caps the duplicate-event suppression window.
const processedLimit = 2000

// Params collects the handler's collaborators.
type Params struct {
	Messenger transport.Messenger
	Polls     *poll.Manager
	Store     *avail.Store
	Summaries *summary.Engine
	Exports   *export.Engine

	DefaultActivity string
	DefaultZone     string
	QuickStart      avail.ClockTime
	QuickEnd        avail.ClockTime

	// NameFor maps a person identifier to a display label; optional.
	NameFor func(person string) string
	Now     func() time.Time
}

// Handler processes inbound messages and reactions. All state it owns
// is the dedup window; everything else lives in its collaborators.
type Handler struct {
	msgr  transport.Messenger
	polls *poll.Manager
	store *avail.Store
	sum   *summary.Engine
	exp   *export.Engine

	defaultActivity string
	defaultZone     string
	quickStart      avail.ClockTime
	quickEnd        avail.ClockTime

	nameFor func(string) string
	now     func() time.Time
	started time.Time
	seen    *recencySet
}

func New(p Params) *Handler {
	nameFor := p.NameFor
	if nameFor == nil {
		nameFor = func(person string) string {
			if len(person) > 6 {
				return "User " + person[:6]
			}
			return "User " + person
		}
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		msgr:            p.Messenger,
		polls:           p.Polls,
		store:           p.Store,
		sum:             p.Summaries,
		exp:             p.Exports,
		defaultActivity: strings.ToUpper(p.DefaultActivity),
		defaultZone:     p.DefaultZone,
		quickStart:      p.QuickStart,
		quickEnd:        p.QuickEnd,
		nameFor:         nameFor,
		now:             now,
		started:         now(),
		seen:            newRecencySet(processedLimit),
	}
}

// HandleMessage processes one inbound channel message: commands first,
// otherwise availability replies bound to the open poll.
func (h *Handler) HandleMessage(ctx context.Context, msg *transport.Message) {
	if msg == nil || msg.AuthorBot {
		return
	}
	if !h.seen.Add(msg.Ref.ID) {
		return
	}

	if strings.HasPrefix(msg.Content, "!") {
		h.handleCommand(ctx, msg)
		return
	}

	act, ok := h.polls.ActivityByChannel(msg.Ref.Channel)
	if !ok {
		return
	}
	if msg.ReplyTo == nil || !h.polls.IsCurrent(act.ID, *msg.ReplyTo) {
		return
	}

	parsed := parse.Availability(msg.Content)
	if len(parsed) == 0 {
		h.react(ctx, msg.Ref, "❌")
		h.dm(ctx, msg.Author, "⚠️ Couldn't parse your availability. Please use format:\n"+
			"`Monday 5-9 PM`\nor\n`Monday 5-9 PM, Wednesday 5-9 PM, Friday 5-11 PM`")
		return
	}

	for day, slot := range parsed {
		h.store.Upsert(msg.Author, act.ID, day, avail.Entry{
			Start: slot.Start,
			End:   slot.End,
			TZ:    slot.TZ,
		})
	}

	h.dm(ctx, msg.Author, h.confirmation(msg.Author, act.ID, parsed))
	h.react(ctx, msg.Ref, "✅")
}

// HandleReactionAdd records a quick-entry window when someone reacts
// 1️⃣-7️⃣ (or a bare digit) on the live poll.
func (h *Handler) HandleReactionAdd(ctx context.Context, ref transport.MessageRef, emoji, person string, personIsBot bool) {
	if personIsBot {
		return
	}
	act, ok := h.polls.ActivityByChannel(ref.Channel)
	if !ok || !h.polls.IsCurrent(act.ID, ref) {
		return
	}
	day, ok := weekdayForEmoji(emoji)
	if !ok {
		return
	}

	zone := h.zoneFor(person)
	h.store.Upsert(person, act.ID, day, avail.Entry{
		Start: h.quickStart,
		End:   h.quickEnd,
		TZ:    zone,
	})

	h.dm(ctx, person, fmt.Sprintf("%s Quick availability set for %s %s–%s (%s).",
		act.ID, day.Short(), h.quickStart.Format12h(), h.quickEnd.Format12h(), zone))
}

func (h *Handler) handleCommand(ctx context.Context, msg *transport.Message) {
	fields := strings.Fields(msg.Content)
	cmd := strings.ToLower(strings.TrimPrefix(fields[0], "!"))
	args := fields[1:]

	switch cmd {
	case "settz":
		h.handleSetTZ(ctx, msg, strings.Join(args, " "))
	case "clear":
		h.handleClear(ctx, msg, first(args))
	case "summary":
		h.handleSummary(ctx, msg, args)
	case "mycalendar":
		h.handleCalendar(ctx, msg, first(args))
	case "start_polls":
		h.handleStartPoll(ctx, msg, first(args))
	case "bothelp":
		h.say(ctx, msg.Ref.Channel, helpText)
	case "uptime":
		h.say(ctx, msg.Ref.Channel, "PixelB0T uptime: `"+formatDuration(h.now().Sub(h.started))+"`")
	}
}

func (h *Handler) handleSetTZ(ctx context.Context, msg *transport.Message, arg string) {
	if arg == "" {
		h.say(ctx, msg.Ref.Channel, "Usage: `!settz <timezone>` e.g. `!settz PHK`")
		return
	}
	canonical, err := tz.Resolve(arg)
	if err != nil {
		h.say(ctx, msg.Ref.Channel, "Invalid timezone! Try `!settz PHK` or `!settz America/New_York`")
		return
	}
	h.store.SetZone(msg.Author, canonical)
	h.say(ctx, msg.Ref.Channel, "Timezone set to **"+canonical+"**")
}

func (h *Handler) handleClear(ctx context.Context, msg *transport.Message, arg string) {
	person := msg.Author

	if strings.EqualFold(arg, "confirm") {
		res := h.cleanupAll(ctx, person)
		h.store.ClearAll(person)
		if len(res.Errors) > 0 {
			h.say(ctx, msg.Ref.Channel, "✅ Data cleared, but some issues:\n"+formatErrors(res.Errors, "⚠️"))
		} else {
			h.say(ctx, msg.Ref.Channel, "✅ All your availability data has been **cleared** for all activities. Reactions and messages removed.")
		}
		return
	}

	activityID := strings.ToUpper(arg)
	if activityID == "" {
		if act, ok := h.polls.ActivityByChannel(msg.Ref.Channel); ok {
			activityID = act.ID
		}
	}
	if activityID == "" {
		h.say(ctx, msg.Ref.Channel, "⚠️ This will clear ALL your availability data for all activities.\n"+
			"Type `!clear confirm` to proceed, or name an activity: "+h.activityList())
		return
	}

	act, ok := h.polls.Activity(activityID)
	if !ok {
		h.say(ctx, msg.Ref.Channel, "Invalid activity. Use: "+h.activityList())
		return
	}

	res := h.cleanupActivity(ctx, person, act)
	h.store.ClearActivity(person, act.ID)

	switch {
	case res.OK() && len(res.Errors) == 0:
		h.say(ctx, msg.Ref.Channel, "✅ Your **"+act.ID+"** availability has been cleared. Reactions and messages removed.")
	case res.OK():
		h.say(ctx, msg.Ref.Channel, "✅ Your **"+act.ID+"** availability data cleared, but:\n"+formatErrors(res.Errors, "⚠️"))
	default:
		h.say(ctx, msg.Ref.Channel, "❌ Failed to clear **"+act.ID+"** data:\n"+formatErrors(res.Errors, "❌"))
		appLog.Error("clear failed", errors.New(strings.Join(res.Errors, "; ")), "person", person, "activity", act.ID)
	}
}

func (h *Handler) handleSummary(ctx context.Context, msg *transport.Message, args []string) {
	activityID := h.defaultActivity
	displayZone := ""

	if len(args) > 0 {
		if _, ok := h.polls.Activity(args[0]); ok {
			activityID = strings.ToUpper(args[0])
			args = args[1:]
		}
	}
	if len(args) > 0 {
		displayZone = strings.Join(args, " ")
	}

	act, ok := h.polls.Activity(activityID)
	if !ok {
		h.say(ctx, msg.Ref.Channel, "Invalid activity. Use: "+h.activityList())
		return
	}

	if displayZone == "" {
		displayZone = h.zoneFor(msg.Author)
	} else {
		canonical, err := tz.Resolve(displayZone)
		if err != nil {
			h.say(ctx, msg.Ref.Channel, "Invalid display timezone.")
			return
		}
		displayZone = canonical
	}

	rows, err := h.sum.Summarize(act.ID, displayZone)
	if err != nil {
		h.say(ctx, msg.Ref.Channel, "Invalid display timezone.")
		return
	}

	h.say(ctx, msg.Ref.Channel, h.formatSummary(act.ID, displayZone, rows))
}

func (h *Handler) handleCalendar(ctx context.Context, msg *transport.Message, arg string) {
	activityID := h.defaultActivity
	if arg != "" {
		activityID = strings.ToUpper(arg)
	}
	act, ok := h.polls.Activity(activityID)
	if !ok {
		h.say(ctx, msg.Ref.Channel, "Invalid activity. Use: "+h.activityList())
		return
	}
	if !h.store.HasData(msg.Author, act.ID) {
		h.say(ctx, msg.Ref.Channel, "No "+act.ID+" availability saved. React or reply to the "+act.ID+" poll!")
		return
	}

	ics, err := h.exp.ICS(msg.Author, act.ID)
	if err != nil {
		appLog.Error("calendar export failed", err, "person", msg.Author, "activity", act.ID)
		h.say(ctx, msg.Ref.Channel, "Calendar export failed; see logs.")
		return
	}

	name := strings.ToLower(act.ID) + "_avail_" + msg.Author + ".ics"
	if _, err := h.msgr.SendMessage(ctx, msg.Ref.Channel, transport.Outgoing{Title: name, Body: ics}); err != nil {
		appLog.Error("calendar delivery failed", err, "person", msg.Author)
	}
}

func (h *Handler) handleStartPoll(ctx context.Context, msg *transport.Message, arg string) {
	activityID := h.defaultActivity
	if arg != "" {
		activityID = strings.ToUpper(arg)
	}
	if _, ok := h.polls.Activity(activityID); !ok {
		h.say(ctx, msg.Ref.Channel, "Invalid activity. Use: "+h.activityList())
		return
	}
	if _, err := h.polls.ManualOpen(ctx, activityID); err != nil {
		appLog.Error("manual poll failed", err, "activity", activityID)
		h.say(ctx, msg.Ref.Channel, "Channel not accessible.")
		return
	}
	h.say(ctx, msg.Ref.Channel, activityID+" Manual poll started!")
}

func (h *Handler) formatSummary(activityID, displayZone string, rows [7][]summary.Row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s Availability Summary (%s)**\n", activityID, displayZone)

	total := 0
	for day := avail.Monday; day <= avail.Sunday; day++ {
		dayRows := rows[day]
		if len(dayRows) == 0 {
			fmt.Fprintf(&b, "\n**%s**: None\n", day.Short())
			continue
		}
		fmt.Fprintf(&b, "\n**%s** (%d):\n", day.Short(), len(dayRows))
		for _, row := range dayRows {
			line := fmt.Sprintf("%s: %s–%s", h.nameFor(row.Person), row.Start.Format12h(), row.End.Format12h())
			if !row.Converted {
				line += " (raw)"
			}
			b.WriteString(line + "\n")
		}
		total += len(dayRows)
	}
	fmt.Fprintf(&b, "\n**Total**: %d", total)
	return b.String()
}

func (h *Handler) confirmation(person, activityID string, parsed map[avail.Weekday]parse.Slot) string {
	days := make([]avail.Weekday, 0, len(parsed))
	for day := range parsed {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	lines := make([]string, 0, len(days))
	for _, day := range days {
		slot := parsed[day]
		zone := slot.TZ
		if zone == "" {
			zone = h.zoneFor(person)
		}
		lines = append(lines, fmt.Sprintf("• %s: %s - %s (%s)",
			day.String(), slot.Start.Format12h(), slot.End.Format12h(), zone))
	}
	return "✅ **" + activityID + " availability recorded:**\n" + strings.Join(lines, "\n")
}

func (h *Handler) zoneFor(person string) string {
	if z, ok := h.store.ZoneFor(person); ok {
		return z
	}
	return h.defaultZone
}

func (h *Handler) activityList() string {
	ids := make([]string, 0)
	for _, act := range h.polls.Activities() {
		ids = append(ids, act.ID)
	}
	sort.Strings(ids)
	return strings.Join(ids, ", ")
}

func (h *Handler) say(ctx context.Context, channel, text string) {
	if _, err := h.msgr.SendMessage(ctx, channel, transport.Outgoing{Body: text}); err != nil {
		appLog.Error("send failed", err, "channel", channel)
	}
}

func (h *Handler) dm(ctx context.Context, person, text string) {
	if err := h.msgr.SendDirect(ctx, person, transport.Outgoing{Body: text}); err != nil {
		appLog.Error("direct message failed", err, "person", person)
	}
}

func (h *Handler) react(ctx context.Context, ref transport.MessageRef, emoji string) {
	if err := h.msgr.AddReactions(ctx, ref, []string{emoji}); err != nil {
		appLog.Error("reaction failed", err, "message", ref.ID)
	}
}

func weekdayForEmoji(emoji string) (avail.Weekday, bool) {
	for i, e := range poll.QuickReactions {
		if emoji == e {
			return avail.Weekday(i), true
		}
	}
	if len(emoji) == 1 && emoji[0] >= '1' && emoji[0] <= '7' {
		return avail.Weekday(int(emoji[0]-'1')), true
	}
	return 0, false
}

func formatErrors(errs []string, marker string) string {
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		lines = append(lines, marker+" "+e)
	}
	return strings.Join(lines, "\n")
}

func formatDuration(d time.Duration) string {
	seconds := int(d.Seconds())
	return fmt.Sprintf("%dh %dm %ds", seconds/3600, (seconds%3600)/60, seconds%60)
}

func first(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

const helpText = "**PixelB0T Help**\n" +
	"`!settz <tz>` — set timezone (`!settz PHK` = Philippines)\n" +
	"React 1-7 — quick 18:00–23:00 entry\n" +
	"Reply to poll — `Monday 5-9 PM` or `Mon 5-9 PM, Wed 5-9 PM, Fri 5-11PM`\n" +
	"`!summary [activity] [tz]` — view availability\n" +
	"`!mycalendar [activity]` — export .ics\n" +
	"`!clear [activity]` — remove your data\n" +
	"`!start_polls [activity]` — manual poll\n" +
	"`!uptime` — bot stats\n" +
	"Auto-poll: Sundays 00:00 UTC"
