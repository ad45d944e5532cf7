package conversation

import (
	"github.com/nsouzaco/code-assistant/internal/llm"
	"github.com/nsouzaco/code-assistant/internal/state"
)

// TokenEstimate breaks down the approximate size of the next request.
type TokenEstimate struct {
	Total        int  `json:"total"`         // Total tokens that would be sent
	SystemPrompt int  `json:"system_prompt"` // Tokens from the response-format instruction
	History      int  `json:"history"`       // Tokens from completed exchanges
	Input        int  `json:"input"`         // Tokens from the new message, synthesized when first
	First        bool `json:"first"`
}

// EstimateTokens estimates the request that sending text on the thread would
// make, without changing the thread.
func (e *Engine) EstimateTokens(threadID, text string) (TokenEstimate, error) {
	t, ok := e.store.Thread(threadID)
	if !ok {
		return TokenEstimate{}, state.ErrThreadNotFound
	}

	turn := state.Turn{
		Thread:   t,
		Document: e.store.Lines(),
		FileName: e.store.FileName(),
		Content:  text,
	}
	history := t.History()
	turn.First = true
	for _, m := range history {
		if m.Role == state.RoleUser {
			turn.First = false
			break
		}
	}
	if turn.First {
		turn.Prompt = e.synthesize(turn)
	}

	msgs := BuildMessages(turn)
	var est TokenEstimate
	est.First = turn.First
	for i, m := range msgs {
		n, err := llm.EstimateMessages([]llm.Message{m})
		if err != nil {
			return TokenEstimate{}, err
		}
		switch {
		case i == 0:
			est.SystemPrompt = n
		case i == len(msgs)-1:
			est.Input = n
		default:
			est.History += n
		}
		est.Total += n
	}
	return est, nil
}
