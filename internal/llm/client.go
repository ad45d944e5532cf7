package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/nsouzaco/code-assistant/internal/logging"
)

// maxErrorBody bounds how much of a failed response body is kept in a
// ProviderError message.
const maxErrorBody = 500

// Client talks to an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// NewClient creates a new LLM client.
func NewClient(baseURL, apiKey, model string, maxTokens int) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		maxTokens:  maxTokens,
		httpClient: &http.Client{},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete sends the ordered messages and returns the reply text.
//
// The deadline is carried by ctx. A cancelled or expired context is returned
// as ctx.Err() so callers can tell a timeout from a transport failure.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	log := logging.Component("llm")

	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	body, err := json.Marshal(ChatRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Debug().
		Str("url", c.baseURL+"/chat/completions").
		Str("model", c.model).
		Int("messages", len(messages)).
		Msg("HTTP POST")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		log.Error().Err(err).Msg("HTTP request failed")
		return "", &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &NetworkError{Err: err}
	}

	log.Debug().Int("status", resp.StatusCode).Int("bytes", len(raw)).Msg("HTTP response")

	if resp.StatusCode != http.StatusOK {
		msg := errorMessage(raw)
		log.Error().Int("status", resp.StatusCode).Str("body", logging.Truncate(string(raw), maxErrorBody)).Msg("API error")
		return "", &ProviderError{StatusCode: resp.StatusCode, Message: msg}
	}

	return parseReply(raw)
}

// parseReply decodes a completion body. Bodies that are not valid JSON get
// one repair attempt before being reported as malformed.
func parseReply(raw []byte) (string, error) {
	var cr ChatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(string(raw))
		if rerr != nil {
			return "", malformed("%v", err)
		}
		cr = ChatResponse{}
		if err := json.Unmarshal([]byte(repaired), &cr); err != nil {
			return "", malformed("%v", err)
		}
		logger := logging.Component("llm")
		logger.Warn().Msg("repaired malformed completion body")
	}

	if cr.Error != nil {
		return "", &ProviderError{Message: cr.Error.Message}
	}
	if len(cr.Choices) == 0 {
		return "", malformed("no choices")
	}
	msg := cr.Choices[0].Message
	if msg == nil || msg.Content == nil {
		return "", malformed("missing message content")
	}
	return *msg.Content, nil
}

// errorMessage pulls a readable message out of an error body.
func errorMessage(raw []byte) string {
	var cr ChatResponse
	if err := json.Unmarshal(raw, &cr); err == nil && cr.Error != nil && cr.Error.Message != "" {
		return cr.Error.Message
	}
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return "empty response body"
	}
	return logging.Truncate(s, maxErrorBody)
}

// Reason renders err as the short human reason shown in a failed reply.
func Reason(err error) string {
	var netErr *NetworkError
	var provErr *ProviderError
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout.Error()
	case errors.Is(err, ErrMissingAPIKey):
		return ErrMissingAPIKey.Error()
	case errors.As(err, &netErr):
		return netErr.Error()
	case errors.As(err, &provErr):
		return provErr.Error()
	default:
		return fmt.Sprint(err)
	}
}
