package llm

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// messageOverhead approximates the per-message framing tokens of the chat
// format (role markers and separators).
const messageOverhead = 4

var (
	codec     tokenizer.Codec
	codecOnce sync.Once
	codecErr  error
)

// getCodec returns the cl100k_base tokenizer.
func getCodec() (tokenizer.Codec, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, codecErr
}

// EstimateTokens returns an approximate token count for the given text.
func EstimateTokens(text string) (int, error) {
	c, err := getCodec()
	if err != nil {
		return 0, err
	}

	ids, _, err := c.Encode(text)
	if err != nil {
		return 0, err
	}

	return len(ids), nil
}

// EstimateMessages estimates the prompt size of a full message sequence.
func EstimateMessages(messages []Message) (int, error) {
	total := 0
	for _, m := range messages {
		n, err := EstimateTokens(m.Content)
		if err != nil {
			return 0, err
		}
		total += n + messageOverhead
	}
	return total, nil
}
