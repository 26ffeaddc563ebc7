package internal

import (
	"sync"
	"time"
)

// TranscriptStore holds the ordered message list for one conversation.
// Order is insertion order and is never re-sorted.
type TranscriptStore struct {
	mu       sync.RWMutex
	messages []Message
	now      func() time.Time
}

// NewTranscriptStore creates an empty transcript
func NewTranscriptStore() *TranscriptStore {
	return &TranscriptStore{now: time.Now}
}

// ReplaceAll overwrites the transcript. Every message is stamped with the
// local receipt time, whatever it carried before.
func (s *TranscriptStore) ReplaceAll(messages []Message) {
	stamped := make([]Message, len(messages))
	copy(stamped, messages)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for i := range stamped {
		stamped[i].ReceivedAt = now
	}
	s.messages = stamped
}

// Append adds msg to the end of the transcript and returns the stored copy
func (s *TranscriptStore) Append(msg Message) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = s.now()
	}
	s.messages = append(s.messages, msg)
	return msg
}

// Snapshot returns a copy of the transcript
func (s *TranscriptStore) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages
func (s *TranscriptStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
