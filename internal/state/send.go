package state

import (
	"github.com/google/uuid"
)

// Turn is what a send needs to build its model request. Thread is the
// thread as it was before the new user message was appended. First is set
// when the thread has no completed exchange yet.
type Turn struct {
	Thread        Thread
	Document      []string
	FileName      string
	Content       string
	Prompt        string // synthesized prompt for a first message, "" otherwise
	First         bool
	UserMessageID string
	PlaceholderID string
}

// BeginSend appends a user message and an assistant placeholder to the
// thread and moves its request slot to pending. For a thread's first user
// message, synthesize (when non-nil) is called under the lock and its result
// is kept as the message's prompt.
//
// Sending while the thread's previous request is still pending fails with
// ErrRequestPending.
func (s *Store) BeginSend(threadID, content string, synthesize func(Turn) string) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.find(threadID)
	if t == nil {
		return Turn{}, ErrThreadNotFound
	}
	if t.Request.State == RequestPending {
		return Turn{}, ErrRequestPending
	}

	turn := Turn{
		Thread:        t.clone(),
		Document:      append([]string(nil), s.lines...),
		FileName:      s.fileName,
		Content:       content,
		First:         !hasUserTurn(t.History()),
		UserMessageID: uuid.NewString(),
		PlaceholderID: uuid.NewString(),
	}
	if turn.First && synthesize != nil {
		turn.Prompt = synthesize(turn)
	}

	now := s.now()
	t.Messages = append(t.Messages,
		Message{
			ID:        turn.UserMessageID,
			Role:      RoleUser,
			Content:   content,
			Prompt:    turn.Prompt,
			Timestamp: now,
		},
		Message{
			ID:        turn.PlaceholderID,
			Role:      RoleAssistant,
			Content:   PlaceholderContent,
			Timestamp: now,
		},
	)
	t.Request = Request{State: RequestPending, MessageID: turn.PlaceholderID}
	return turn, nil
}

// Fulfill resolves the pending placeholder with the model's reply. It only
// acts on the placeholder named by the thread's pending slot, so each
// placeholder is resolved at most once.
func (s *Store) Fulfill(threadID, messageID, content, suggested string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.pendingMessage(threadID, messageID)
	if m == nil {
		return false
	}
	m.Content = content
	m.SuggestedCode = suggested
	m.Timestamp = s.now()
	s.find(threadID).Request = Request{State: RequestFulfilled, MessageID: messageID}
	return true
}

// Fail resolves the pending placeholder with a user-visible error.
func (s *Store) Fail(threadID, messageID, content, reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.pendingMessage(threadID, messageID)
	if m == nil {
		return false
	}
	m.Content = content
	m.Failed = true
	m.Timestamp = s.now()
	s.find(threadID).Request = Request{State: RequestFailed, MessageID: messageID, Error: reason}
	return true
}

func (s *Store) pendingMessage(threadID, messageID string) *Message {
	t := s.find(threadID)
	if t == nil || t.Request.State != RequestPending || t.Request.MessageID != messageID {
		return nil
	}
	for i := range t.Messages {
		if t.Messages[i].ID == messageID {
			return &t.Messages[i]
		}
	}
	return nil
}

func hasUserTurn(history []Message) bool {
	for _, m := range history {
		if m.Role == RoleUser {
			return true
		}
	}
	return false
}
