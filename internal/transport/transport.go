// Package transport defines the chat collaborator contract the core
// depends on. Message delivery, reactions, and history live behind this
// interface; the core never talks to a chat service directly.
package transport

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a referenced message no longer exists.
	ErrNotFound = errors.New("transport: message not found")
	// ErrForbidden is returned when the bot lacks permission for an
	// operation on a channel or message.
	ErrForbidden = errors.New("transport: operation not permitted")
)

// MessageRef is an opaque reference to one transport-level message.
type MessageRef struct {
	Channel string
	ID      string
}

func (r MessageRef) IsZero() bool { return r.ID == "" }

// Outgoing is the content of a message the bot sends.
type Outgoing struct {
	Title string
	Body  string
}

// ReactionState describes one emoji on a message and who set it.
type ReactionState struct {
	Emoji   string
	Persons []string
}

// Message is an inbound or fetched chat message.
type Message struct {
	Ref       MessageRef
	Author    string
	AuthorBot bool
	Content   string
	ReplyTo   *MessageRef
	Reactions []ReactionState
}

// Messenger is the full collaborator surface. Implementations bind a
// concrete chat service; tests and dry runs use the in-memory one.
type Messenger interface {
	SendMessage(ctx context.Context, channel string, content Outgoing) (MessageRef, error)
	AddReactions(ctx context.Context, ref MessageRef, emojis []string) error
	FetchMessage(ctx context.Context, ref MessageRef) (*Message, error)

	// IterateHistory walks channel messages newest-first, at most limit,
	// invoking fn per message. fn returning an error stops the walk.
	IterateHistory(ctx context.Context, channel string, limit int, fn func(*Message) error) error

	RemoveReaction(ctx context.Context, ref MessageRef, emoji, person string) error
	DeleteMessage(ctx context.Context, ref MessageRef) error

	// SendDirect delivers a private message to one person.
	SendDirect(ctx context.Context, person string, content Outgoing) error
}
