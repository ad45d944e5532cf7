// Package conversation drives a thread's request/response cycle against a
// chat model.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nsouzaco/code-assistant/internal/llm"
	"github.com/nsouzaco/code-assistant/internal/logging"
	"github.com/nsouzaco/code-assistant/internal/prompt"
	"github.com/nsouzaco/code-assistant/internal/state"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 30 * time.Second

var (
	ErrEmptyMessage = errors.New("message is empty")

	// ErrRequestPending is returned when a thread already has a request in
	// flight. Requests on other threads are unaffected.
	ErrRequestPending = state.ErrRequestPending
)

// Model completes an ordered, role-tagged message list.
type Model interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// Engine sends thread messages to a Model and records the outcome in the
// store.
type Engine struct {
	store   *state.Store
	model   Model
	timeout time.Duration
	tiers   prompt.Tiers
	limiter *rate.Limiter
}

// Option configures an Engine.
type Option func(*Engine)

func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithTiers(t prompt.Tiers) Option {
	return func(e *Engine) { e.tiers = t }
}

// WithRateLimit paces model calls to perMinute requests. Zero disables it.
func WithRateLimit(perMinute float64) Option {
	return func(e *Engine) {
		if perMinute > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(perMinute/60), 1)
		} else {
			e.limiter = nil
		}
	}
}

// New creates an engine. A nil model makes every send fail with
// llm.ErrMissingAPIKey.
func New(store *state.Store, model Model, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		model:   model,
		timeout: DefaultTimeout,
		tiers:   prompt.DefaultTiers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of one send.
type Result struct {
	ThreadID      string             `json:"thread_id"`
	UserMessageID string             `json:"user_message_id"`
	MessageID     string             `json:"message_id"`
	State         state.RequestState `json:"state"`
	Content       string             `json:"content"`
	SuggestedCode string             `json:"suggested_code,omitempty"`
	Error         string             `json:"error,omitempty"`
	Duration      time.Duration      `json:"-"`
}

// Call is a send whose messages are already in the thread and whose model
// request has not run yet.
type Call struct {
	engine   *Engine
	turn     state.Turn
	messages []llm.Message
}

func (c *Call) ThreadID() string      { return c.turn.Thread.ID }
func (c *Call) UserMessageID() string { return c.turn.UserMessageID }
func (c *Call) PlaceholderID() string { return c.turn.PlaceholderID }

// Messages returns the model request the call will make.
func (c *Call) Messages() []llm.Message {
	return append([]llm.Message(nil), c.messages...)
}

// Begin appends the user message and the placeholder to the thread and
// prepares the model request. Run must be called to resolve the placeholder.
func (e *Engine) Begin(threadID, text string) (*Call, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	turn, err := e.store.BeginSend(threadID, text, e.synthesize)
	if err != nil {
		return nil, err
	}
	return &Call{engine: e, turn: turn, messages: BuildMessages(turn)}, nil
}

// Send is Begin followed by Run.
func (e *Engine) Send(ctx context.Context, threadID, text string) (Result, error) {
	call, err := e.Begin(threadID, text)
	if err != nil {
		return Result{}, err
	}
	return call.Run(ctx), nil
}

// Run makes the model call and resolves the placeholder exactly once.
// Model failures are recorded as an assistant message, not returned.
func (c *Call) Run(ctx context.Context) Result {
	e := c.engine
	log := logging.Component("conversation")
	res := Result{
		ThreadID:      c.turn.Thread.ID,
		UserMessageID: c.turn.UserMessageID,
		MessageID:     c.turn.PlaceholderID,
	}

	if n, err := llm.EstimateMessages(c.messages); err == nil {
		log.Debug().Str("thread", res.ThreadID).Int("messages", len(c.messages)).Int("tokens", n).
			Bool("first", c.turn.First).Msg("sending")
	}

	start := time.Now()
	reply, err := e.complete(ctx, c.messages)
	res.Duration = time.Since(start)

	if err != nil {
		reason := llm.Reason(err)
		res.State = state.RequestFailed
		res.Error = reason
		res.Content = FailureContent(reason)
		e.store.Fail(res.ThreadID, res.MessageID, res.Content, reason)
		log.Warn().Err(err).Str("thread", res.ThreadID).Dur("took", res.Duration).Msg("send failed")
		return res
	}

	code, _ := prompt.ExtractSuggested(reply)
	res.State = state.RequestFulfilled
	res.Content = reply
	res.SuggestedCode = code
	e.store.Fulfill(res.ThreadID, res.MessageID, reply, code)
	log.Debug().Str("thread", res.ThreadID).Dur("took", res.Duration).Bool("suggestion", code != "").Msg("send done")
	return res
}

func (e *Engine) complete(ctx context.Context, messages []llm.Message) (string, error) {
	if e.model == nil {
		return "", llm.ErrMissingAPIKey
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return "", err
			}
			// Wait fails early when the next slot is past the deadline.
			return "", fmt.Errorf("%w: %v", llm.ErrTimeout, err)
		}
	}

	reply, err := e.model.Complete(ctx, messages)
	if err != nil {
		return "", timeoutErr(ctx, err)
	}
	return reply, nil
}

// timeoutErr reports an expired call deadline as llm.ErrTimeout.
func timeoutErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return llm.ErrTimeout
	}
	return err
}

// FailureContent is the assistant message shown in place of a failed reply.
func FailureContent(reason string) string {
	return fmt.Sprintf("Error: %s\n\nPlease try again.", reason)
}

func (e *Engine) synthesize(turn state.Turn) string {
	t := turn.Thread
	return prompt.BuildFirstPrompt(prompt.Request{
		FileName:     turn.FileName,
		Language:     t.Language,
		StartLine:    t.StartLine,
		EndLine:      t.EndLine,
		SelectedText: t.SelectedText,
		Document:     turn.Document,
		Question:     turn.Content,
		Tiers:        e.tiers,
	})
}

// BuildMessages assembles the model request for a turn: the system
// instruction, the completed history, then the new user message. A user
// message that carries a synthesized prompt is sent as that prompt.
func BuildMessages(turn state.Turn) []llm.Message {
	history := turn.Thread.History()
	out := make([]llm.Message, 0, len(history)+2)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: prompt.SystemMessage})
	for _, m := range history {
		out = append(out, toLLM(m))
	}
	out = append(out, toLLM(state.Message{Role: state.RoleUser, Content: turn.Content, Prompt: turn.Prompt}))
	return out
}

func toLLM(m state.Message) llm.Message {
	content := m.Content
	if m.Role == state.RoleUser && m.Prompt != "" {
		content = m.Prompt
	}
	role := llm.RoleUser
	if m.Role == state.RoleAssistant {
		role = llm.RoleAssistant
	}
	return llm.Message{Role: role, Content: content}
}
