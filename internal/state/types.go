package state

import (
	"time"
)

// Thread statuses. Archived threads are kept for viewing and export but are
// excluded from staleness recomputation and from Threads().
const (
	StatusActive   = "active"
	StatusResolved = "resolved"
	StatusArchived = "archived"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// PlaceholderContent is the content of an assistant message while its
// request is in flight.
const PlaceholderContent = "pending"

// Selection is the editor's current selection. Columns are informational:
// threads always anchor whole lines.
type Selection struct {
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	StartColumn int    `json:"start_column"`
	EndColumn   int    `json:"end_column"`
	Text        string `json:"text"`
}

// Message is one entry of a thread transcript.
type Message struct {
	ID            string    `json:"id"`
	Role          string    `json:"role"` // "user" or "assistant"
	Content       string    `json:"content"`
	Prompt        string    `json:"-"` // synthesized first-turn prompt sent in place of Content
	Timestamp     time.Time `json:"timestamp"`
	SuggestedCode string    `json:"suggested_code,omitempty"`
	Failed        bool      `json:"failed,omitempty"` // assistant error reply
}

// HasSuggestion reports whether the message carries a patch.
func (m Message) HasSuggestion() bool {
	return m.SuggestedCode != ""
}

// RequestState is the state of a thread's pending-request slot.
type RequestState string

const (
	RequestIdle      RequestState = "idle"
	RequestPending   RequestState = "pending"
	RequestFulfilled RequestState = "fulfilled"
	RequestFailed    RequestState = "failed"
)

// Request is the per-thread pending-request slot. MessageID names the
// assistant placeholder the request resolves.
type Request struct {
	State     RequestState `json:"state"`
	MessageID string       `json:"message_id,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// Thread is a conversation anchored to a line range of the document.
type Thread struct {
	ID           string    `json:"id"`
	StartLine    int       `json:"start_line"`
	EndLine      int       `json:"end_line"`
	SelectedText string    `json:"selected_text"`
	Language     string    `json:"language"`
	Snapshot     string    `json:"-"`
	SnapshotHash string    `json:"snapshot_hash"`
	Messages     []Message `json:"messages"`
	Status       string    `json:"status"`
	IsStale      bool      `json:"is_stale"`
	CreatedAt    time.Time `json:"created_at"`
	Request      Request   `json:"request"`
}

// Live reports whether the thread takes part in staleness tracking.
func (t *Thread) Live() bool {
	return t.Status == StatusActive || t.Status == StatusResolved
}

// Message returns the message with the given id.
func (t *Thread) Message(id string) (Message, bool) {
	for _, m := range t.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// LastSuggestion returns the most recent assistant message carrying a patch.
func (t *Thread) LastSuggestion() (Message, bool) {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		m := t.Messages[i]
		if m.Role == RoleAssistant && m.HasSuggestion() {
			return m, true
		}
	}
	return Message{}, false
}

// UserMessages counts the user turns in the transcript.
func (t *Thread) UserMessages() int {
	n := 0
	for _, m := range t.Messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// History returns the completed exchanges of the transcript in order. Failed
// replies, the user messages they answered, and an unresolved placeholder are
// left out.
func (t *Thread) History() []Message {
	out := make([]Message, 0, len(t.Messages))
	for i, m := range t.Messages {
		if m.Role == RoleUser && i+1 < len(t.Messages) {
			next := t.Messages[i+1]
			if next.Role == RoleAssistant && next.Failed {
				continue
			}
		}
		if m.Role == RoleAssistant && m.Failed {
			continue
		}
		if m.Role == RoleAssistant && t.Request.State == RequestPending && m.ID == t.Request.MessageID {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (t *Thread) clone() Thread {
	c := *t
	c.Messages = append([]Message(nil), t.Messages...)
	return c
}

// Decoration is the rendering data for one thread's range in the editor.
type Decoration struct {
	ThreadID  string `json:"thread_id"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Kind      string `json:"kind"` // "active", "resolved" or "stale"
	Current   bool   `json:"current"`
}

// Applied describes a completed patch application.
type Applied struct {
	ThreadID     string   `json:"thread_id"`
	MessageID    string   `json:"message_id"`
	StartLine    int      `json:"start_line"`
	OldEndLine   int      `json:"old_end_line"`
	EndLine      int      `json:"end_line"`
	LineDelta    int      `json:"line_delta"`
	NewlyStale   []string `json:"newly_stale,omitempty"`
	DocumentHash string   `json:"document_hash"`
}
