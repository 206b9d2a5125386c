package bot

import (
	"context"
	"errors"
	"fmt"

	appLog "github.com/hirewaynemartinjr/PixelB0T/internal/log"
	"github.com/hirewaynemartinjr/PixelB0T/internal/poll"
	"github.com/hirewaynemartinjr/PixelB0T/internal/transport"
)

// historyScanLimit bounds the channel scan for a person's poll replies.
const historyScanLimit = 100

// CleanupResult accumulates the outcome of a best-effort cleanup:
// per-sub-operation errors are collected instead of aborting, so the
// user gets an itemized report of what succeeded.
type CleanupResult struct {
	ReactionsRemoved int
	MessagesDeleted  int
	Errors           []string
}

// OK reports whether the cleanup made progress without being blocked
// outright.
func (r CleanupResult) OK() bool {
	return len(r.Errors) == 0 || r.ReactionsRemoved > 0 || r.MessagesDeleted > 0
}

func (r *CleanupResult) merge(other CleanupResult) {
	r.ReactionsRemoved += other.ReactionsRemoved
	r.MessagesDeleted += other.MessagesDeleted
	r.Errors = append(r.Errors, other.Errors...)
}

func (r *CleanupResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// cleanupActivity removes the person's reactions from the live poll and
// deletes their reply messages for one activity. Each step errors
// independently.
func (h *Handler) cleanupActivity(ctx context.Context, person string, act poll.Activity) CleanupResult {
	var res CleanupResult

	pollRef, ok := h.polls.CurrentRef(act.ID)
	if !ok {
		res.errorf("No active poll found for %s. Data cleared but reactions couldn't be removed.", act.ID)
		return res
	}

	pollMsg, err := h.msgr.FetchMessage(ctx, pollRef)
	switch {
	case errors.Is(err, transport.ErrNotFound):
		res.errorf("Poll message not found (may have been deleted)")
		return res
	case errors.Is(err, transport.ErrForbidden):
		res.errorf("Bot lacks permission to read messages in the %s channel", act.ID)
		return res
	case err != nil:
		res.errorf("Error fetching poll message: %v", err)
		return res
	}

	for _, reaction := range pollMsg.Reactions {
		if !containsPerson(reaction, person) {
			continue
		}
		err := h.msgr.RemoveReaction(ctx, pollRef, reaction.Emoji, person)
		switch {
		case err == nil:
			res.ReactionsRemoved++
		case errors.Is(err, transport.ErrNotFound):
			// Already gone.
		case errors.Is(err, transport.ErrForbidden):
			res.errorf("Bot lacks permission to remove reactions")
		default:
			appLog.Error("reaction removal failed", err, "activity", act.ID, "emoji", reaction.Emoji)
		}
	}

	err = h.msgr.IterateHistory(ctx, act.Channel, historyScanLimit, func(msg *transport.Message) error {
		if msg.Author != person || msg.ReplyTo == nil || *msg.ReplyTo != pollRef {
			return nil
		}
		derr := h.msgr.DeleteMessage(ctx, msg.Ref)
		switch {
		case derr == nil:
			res.MessagesDeleted++
		case errors.Is(derr, transport.ErrNotFound):
			// Already gone.
		case errors.Is(derr, transport.ErrForbidden):
			res.errorf("Bot lacks permission to delete messages")
		default:
			appLog.Error("reply deletion failed", derr, "activity", act.ID, "message", msg.Ref.ID)
		}
		// One failed deletion does not stop the scan.
		return nil
	})
	switch {
	case errors.Is(err, transport.ErrForbidden):
		res.errorf("Bot lacks permission to read message history")
	case err != nil:
		res.errorf("Error reading message history: %v", err)
	}

	appLog.Info("cleanup complete",
		"person", person, "activity", act.ID,
		"reactions_removed", res.ReactionsRemoved,
		"messages_deleted", res.MessagesDeleted,
		"errors", len(res.Errors))
	return res
}

// cleanupAll runs cleanupActivity across every configured activity.
func (h *Handler) cleanupAll(ctx context.Context, person string) CleanupResult {
	var res CleanupResult
	for _, act := range h.polls.Activities() {
		r := h.cleanupActivity(ctx, person, act)
		res.merge(r)
	}
	return res
}

func containsPerson(r transport.ReactionState, person string) bool {
	for _, p := range r.Persons {
		if p == person {
			return true
		}
	}
	return false
}
