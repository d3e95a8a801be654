// Package session implements the per-conversation state owned by a mentor
// session: the transcript, the accumulated metadata and the controller that
// serializes turns over both.
package session

import (
	"slices"
	"sync"

	"github.com/ashureev/crackd/internal/domain"
)

// MessageObserver receives the full transcript after every append.
type MessageObserver func(messages []domain.ChatMessage)

// MessageStore is an append-only ordered log of chat messages.
type MessageStore struct {
	mu       sync.RWMutex
	messages []domain.ChatMessage
	observer MessageObserver
}

// NewMessageStore creates an empty store. observer may be nil.
func NewMessageStore(observer MessageObserver) *MessageStore {
	return &MessageStore{observer: observer}
}

// Append adds msg to the end of the log and notifies the observer.
func (s *MessageStore) Append(msg domain.ChatMessage) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	snapshot := slices.Clone(s.messages)
	s.mu.Unlock()

	if s.observer != nil {
		s.observer(snapshot)
	}
}

// All returns the messages in append order. The slice is a copy.
func (s *MessageStore) All() []domain.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

// Len returns the number of messages.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
