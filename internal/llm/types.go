package llm

// Roles of a chat message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request types for OpenAI-compatible chat completion APIs

type ChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
	Stream    bool      `json:"stream"`
}

// Message is one role-tagged entry of the ordered prompt sequence.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response types

type ChatResponse struct {
	ID      string    `json:"id"`
	Choices []Choice  `json:"choices"`
	Usage   *Usage    `json:"usage,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// Usage contains token usage reported by the API.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Choice struct {
	Index        int           `json:"index"`
	Message      *ReplyMessage `json:"message,omitempty"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

type ReplyMessage struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content"`
}

type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}
