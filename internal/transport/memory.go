package transport

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Messenger used by tests and console mode.
// Messages are kept per channel in send order.
type Memory struct {
	mu       sync.Mutex
	channels map[string][]*Message
	directs  map[string][]Outgoing

	// Forbidden simulates missing permissions per operation name
	// ("remove_reaction", "delete_message", "history", "fetch").
	Forbidden map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		channels:  make(map[string][]*Message),
		directs:   make(map[string][]Outgoing),
		Forbidden: make(map[string]bool),
	}
}

func (m *Memory) SendMessage(_ context.Context, channel string, content Outgoing) (MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref := MessageRef{Channel: channel, ID: uuid.NewString()}
	text := content.Body
	if content.Title != "" {
		text = content.Title + "\n" + content.Body
	}
	m.channels[channel] = append(m.channels[channel], &Message{
		Ref:       ref,
		AuthorBot: true,
		Content:   text,
	})
	return ref, nil
}

func (m *Memory) AddReactions(_ context.Context, ref MessageRef, emojis []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := m.find(ref)
	if msg == nil {
		return ErrNotFound
	}
	for _, e := range emojis {
		msg.Reactions = append(msg.Reactions, ReactionState{Emoji: e})
	}
	return nil
}

func (m *Memory) FetchMessage(_ context.Context, ref MessageRef) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Forbidden["fetch"] {
		return nil, ErrForbidden
	}
	msg := m.find(ref)
	if msg == nil {
		return nil, ErrNotFound
	}
	cp := *msg
	return &cp, nil
}

func (m *Memory) IterateHistory(_ context.Context, channel string, limit int, fn func(*Message) error) error {
	m.mu.Lock()
	if m.Forbidden["history"] {
		m.mu.Unlock()
		return ErrForbidden
	}
	msgs := m.channels[channel]
	snapshot := make([]*Message, len(msgs))
	copy(snapshot, msgs)
	m.mu.Unlock()

	seen := 0
	for i := len(snapshot) - 1; i >= 0; i-- {
		if limit > 0 && seen >= limit {
			return nil
		}
		cp := *snapshot[i]
		if err := fn(&cp); err != nil {
			return err
		}
		seen++
	}
	return nil
}

func (m *Memory) RemoveReaction(_ context.Context, ref MessageRef, emoji, person string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Forbidden["remove_reaction"] {
		return ErrForbidden
	}
	msg := m.find(ref)
	if msg == nil {
		return ErrNotFound
	}
	for i := range msg.Reactions {
		if msg.Reactions[i].Emoji != emoji {
			continue
		}
		persons := msg.Reactions[i].Persons
		for j, p := range persons {
			if p == person {
				msg.Reactions[i].Persons = append(persons[:j], persons[j+1:]...)
				return nil
			}
		}
	}
	return ErrNotFound
}

func (m *Memory) DeleteMessage(_ context.Context, ref MessageRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Forbidden["delete_message"] {
		return ErrForbidden
	}
	msgs := m.channels[ref.Channel]
	for i, msg := range msgs {
		if msg.Ref == ref {
			m.channels[ref.Channel] = append(msgs[:i], msgs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) SendDirect(_ context.Context, person string, content Outgoing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.directs[person] = append(m.directs[person], content)
	return nil
}

// Post injects a user message into a channel, optionally as a reply.
// Test helper standing in for the real transport's inbound events.
func (m *Memory) Post(channel, author, content string, replyTo *MessageRef) *Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := &Message{
		Ref:     MessageRef{Channel: channel, ID: uuid.NewString()},
		Author:  author,
		Content: content,
		ReplyTo: replyTo,
	}
	m.channels[channel] = append(m.channels[channel], msg)
	return msg
}

// React records person's reaction on a message.
func (m *Memory) React(ref MessageRef, emoji, person string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := m.find(ref)
	if msg == nil {
		return false
	}
	for i := range msg.Reactions {
		if msg.Reactions[i].Emoji == emoji {
			msg.Reactions[i].Persons = append(msg.Reactions[i].Persons, person)
			return true
		}
	}
	msg.Reactions = append(msg.Reactions, ReactionState{Emoji: emoji, Persons: []string{person}})
	return true
}

// Directs returns the direct messages sent to person so far.
func (m *Memory) Directs(person string) []Outgoing {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Outgoing, len(m.directs[person]))
	copy(out, m.directs[person])
	return out
}

// ChannelMessages returns a snapshot of a channel's messages in order.
func (m *Memory) ChannelMessages(channel string) []*Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Message, 0, len(m.channels[channel]))
	for _, msg := range m.channels[channel] {
		cp := *msg
		out = append(out, &cp)
	}
	return out
}

func (m *Memory) find(ref MessageRef) *Message {
	for _, msg := range m.channels[ref.Channel] {
		if msg.Ref == ref {
			return msg
		}
	}
	return nil
}
