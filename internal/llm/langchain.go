package llm

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/nsouzaco/code-assistant/internal/logging"
)

// LangchainModel completes prompts through langchaingo's OpenAI backend.
// It is selected with provider = "langchain".
type LangchainModel struct {
	llm       llms.Model
	maxTokens int
}

// NewLangchainModel builds a langchaingo-backed model.
func NewLangchainModel(baseURL, apiKey, model string, maxTokens int) (*LangchainModel, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(strings.TrimSuffix(baseURL, "/")))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return &LangchainModel{llm: m, maxTokens: maxTokens}, nil
}

// Complete sends the ordered messages and returns the first choice.
func (m *LangchainModel) Complete(ctx context.Context, messages []Message) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.TextParts(chatType(msg.Role), msg.Content))
	}

	var opts []llms.CallOption
	if m.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(m.maxTokens))
	}

	resp, err := m.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		logger := logging.Component("llm")
		logger.Error().Err(err).Msg("langchain request failed")
		return "", &ProviderError{Message: err.Error()}
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", malformed("no choices")
	}
	return resp.Choices[0].Content, nil
}

func chatType(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
