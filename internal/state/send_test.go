package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginSend(t *testing.T) {
	s := newStore(t, fiveLines)
	id := createThread(t, s, 2, 3)

	var seen Turn
	turn, err := s.BeginSend(id, "why?", func(tr Turn) string {
		seen = tr
		return "synthesized"
	})
	require.NoError(t, err)
	assert.True(t, turn.First)
	assert.Equal(t, "synthesized", turn.Prompt)
	assert.Equal(t, "main.ts", seen.FileName)
	assert.Equal(t, []string{"line1", "line2", "line3", "line4", "line5"}, seen.Document)
	assert.Empty(t, seen.Thread.Messages)

	th, _ := s.Thread(id)
	require.Len(t, th.Messages, 2)
	assert.Equal(t, Message{
		ID:        turn.UserMessageID,
		Role:      RoleUser,
		Content:   "why?",
		Prompt:    "synthesized",
		Timestamp: th.Messages[0].Timestamp,
	}, th.Messages[0])
	assert.Equal(t, turn.PlaceholderID, th.Messages[1].ID)
	assert.Equal(t, PlaceholderContent, th.Messages[1].Content)
	assert.Equal(t, Request{State: RequestPending, MessageID: turn.PlaceholderID}, th.Request)
}

func TestBeginSend_RejectsWhilePending(t *testing.T) {
	s := newStore(t, fiveLines)
	a := createThread(t, s, 1, 1)
	b := createThread(t, s, 2, 2)

	_, err := s.BeginSend(a, "one", nil)
	require.NoError(t, err)
	_, err = s.BeginSend(a, "two", nil)
	assert.ErrorIs(t, err, ErrRequestPending)

	// other threads are independent
	_, err = s.BeginSend(b, "three", nil)
	assert.NoError(t, err)

	th, _ := s.Thread(a)
	assert.Len(t, th.Messages, 2)
}

func TestBeginSend_UnknownThread(t *testing.T) {
	s := newStore(t, fiveLines)
	_, err := s.BeginSend("missing", "hi", nil)
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestFulfill(t *testing.T) {
	s := newStore(t, fiveLines)
	id := createThread(t, s, 1, 1)
	turn, err := s.BeginSend(id, "q", nil)
	require.NoError(t, err)

	assert.False(t, s.Fulfill(id, turn.UserMessageID, "x", ""), "only the placeholder resolves")
	assert.True(t, s.Fulfill(id, turn.PlaceholderID, "answer", "code"))
	assert.False(t, s.Fulfill(id, turn.PlaceholderID, "again", ""), "placeholder resolves once")

	th, _ := s.Thread(id)
	require.Len(t, th.Messages, 2)
	assert.Equal(t, turn.PlaceholderID, th.Messages[1].ID)
	assert.Equal(t, "answer", th.Messages[1].Content)
	assert.Equal(t, "code", th.Messages[1].SuggestedCode)
	assert.Equal(t, RequestFulfilled, th.Request.State)

	last, ok := th.LastSuggestion()
	require.True(t, ok)
	assert.Equal(t, turn.PlaceholderID, last.ID)

	next, err := s.BeginSend(id, "follow-up", func(Turn) string { return "unused" })
	require.NoError(t, err)
	assert.False(t, next.First)
	assert.Empty(t, next.Prompt)
}

func TestFail(t *testing.T) {
	s := newStore(t, fiveLines)
	id := createThread(t, s, 1, 1)
	turn, err := s.BeginSend(id, "q", nil)
	require.NoError(t, err)

	assert.True(t, s.Fail(id, turn.PlaceholderID, "Error: boom\n\nPlease try again.", "boom"))
	assert.False(t, s.Fail(id, turn.PlaceholderID, "twice", "twice"))

	th, _ := s.Thread(id)
	assert.True(t, th.Messages[1].Failed)
	assert.Equal(t, "Error: boom\n\nPlease try again.", th.Messages[1].Content)
	assert.Equal(t, Request{State: RequestFailed, MessageID: turn.PlaceholderID, Error: "boom"}, th.Request)
	assert.Empty(t, th.History())

	// a failed first turn does not count as the first exchange
	retry, err := s.BeginSend(id, "q again", nil)
	require.NoError(t, err)
	assert.True(t, retry.First)
}

func TestHistory(t *testing.T) {
	s := newStore(t, fiveLines)
	id := createThread(t, s, 1, 1)

	t1, _ := s.BeginSend(id, "one", nil)
	s.Fulfill(id, t1.PlaceholderID, "reply one", "")
	t2, _ := s.BeginSend(id, "two", nil)
	s.Fail(id, t2.PlaceholderID, "Error: x", "x")
	t3, _ := s.BeginSend(id, "three", nil)

	th, _ := s.Thread(id)
	var contents []string
	for _, m := range th.History() {
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{"one", "reply one", "three"}, contents)
	assert.Equal(t, t3.PlaceholderID, th.Request.MessageID)
	assert.Equal(t, 3, th.UserMessages())
}
