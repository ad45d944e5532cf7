package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func completionServer(t *testing.T, status int, body string) (*httptest.Server, *ChatRequest) {
	t.Helper()
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestNewClient(t *testing.T) {
	c := NewClient("https://api.example.com/v1/", "key", "gpt-4o", 100)
	if c.baseURL != "https://api.example.com/v1" {
		t.Errorf("baseURL = %q, want trailing slash trimmed", c.baseURL)
	}
	if c.Model() != "gpt-4o" {
		t.Errorf("Model() = %q", c.Model())
	}
}

func TestComplete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv, req := completionServer(t, http.StatusOK,
			`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"hello"}}]}`)
		c := NewClient(srv.URL, "test-key", "gpt-4o", 256)

		got, err := c.Complete(context.Background(), []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "hi"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "hello" {
			t.Errorf("reply = %q, want %q", got, "hello")
		}
		if req.Model != "gpt-4o" || req.MaxTokens != 256 || req.Stream {
			t.Errorf("unexpected request: %+v", req)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != RoleSystem {
			t.Errorf("messages not forwarded in order: %+v", req.Messages)
		}
	})

	t.Run("missing api key", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:0", "", "m", 0)
		_, err := c.Complete(context.Background(), nil)
		if !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("err = %v, want ErrMissingAPIKey", err)
		}
	})

	t.Run("provider error", func(t *testing.T) {
		srv, _ := completionServer(t, http.StatusTooManyRequests,
			`{"error":{"message":"rate limited","type":"rate_limit"}}`)
		c := NewClient(srv.URL, "test-key", "m", 0)

		_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "q"}})
		var pe *ProviderError
		if !errors.As(err, &pe) {
			t.Fatalf("err = %v, want *ProviderError", err)
		}
		if pe.StatusCode != http.StatusTooManyRequests || pe.Message != "rate limited" {
			t.Errorf("unexpected provider error: %+v", pe)
		}
	})

	t.Run("plain text error body", func(t *testing.T) {
		srv, _ := completionServer(t, http.StatusBadGateway, "upstream down")
		c := NewClient(srv.URL, "test-key", "m", 0)

		_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "q"}})
		if err == nil || !strings.Contains(err.Error(), "upstream down") {
			t.Errorf("err = %v, want body in message", err)
		}
	})

	t.Run("no choices", func(t *testing.T) {
		srv, _ := completionServer(t, http.StatusOK, `{"id":"x","choices":[]}`)
		c := NewClient(srv.URL, "test-key", "m", 0)

		_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "q"}})
		var pe *ProviderError
		if !errors.As(err, &pe) || !strings.Contains(pe.Message, "malformed") {
			t.Errorf("err = %v, want malformed provider error", err)
		}
	})

	t.Run("truncated body is repaired", func(t *testing.T) {
		srv, _ := completionServer(t, http.StatusOK,
			`{"choices":[{"message":{"content":"patched"}}]`)
		c := NewClient(srv.URL, "test-key", "m", 0)

		got, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "q"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "patched" {
			t.Errorf("reply = %q, want %q", got, "patched")
		}
	})

	t.Run("network error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c := NewClient(url, "test-key", "m", 0)
		_, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "q"}})
		var ne *NetworkError
		if !errors.As(err, &ne) {
			t.Errorf("err = %v, want *NetworkError", err)
		}
	})

	t.Run("deadline", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		c := NewClient(srv.URL, "test-key", "m", 0)
		_, err := c.Complete(ctx, []Message{{Role: RoleUser, Content: "q"}})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("err = %v, want context.DeadlineExceeded", err)
		}
	})
}

func TestReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", context.DeadlineExceeded, "request timed out"},
		{"wrapped timeout", errors.Join(ErrTimeout), "request timed out"},
		{"missing key", ErrMissingAPIKey, ErrMissingAPIKey.Error()},
		{"network", &NetworkError{Err: errors.New("connection refused")}, "network error: connection refused"},
		{"provider", &ProviderError{StatusCode: 500, Message: "boom"}, "provider error (500): boom"},
		{"other", errors.New("odd"), "odd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reason(tt.err); got != tt.want {
				t.Errorf("Reason() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEstimateMessages(t *testing.T) {
	text, err := EstimateTokens("hello world")
	if err != nil {
		t.Fatalf("EstimateTokens: %v", err)
	}
	if text <= 0 {
		t.Fatalf("EstimateTokens = %d, want > 0", text)
	}

	total, err := EstimateMessages([]Message{
		{Role: RoleSystem, Content: "hello world"},
		{Role: RoleUser, Content: "hello world"},
	})
	if err != nil {
		t.Fatalf("EstimateMessages: %v", err)
	}
	if want := 2 * (text + messageOverhead); total != want {
		t.Errorf("EstimateMessages = %d, want %d", total, want)
	}
}

func TestChatType(t *testing.T) {
	if chatType(RoleSystem) != "system" {
		t.Errorf("system role mapped to %q", chatType(RoleSystem))
	}
	if chatType(RoleAssistant) != "ai" {
		t.Errorf("assistant role mapped to %q", chatType(RoleAssistant))
	}
	if chatType(RoleUser) != "human" {
		t.Errorf("user role mapped to %q", chatType(RoleUser))
	}
}
