package ports

import "context"

// LLMClient is the minimal surface for chat-completion providers. Retry and
// backoff live behind this interface so callers see one attempt.
type LLMClient interface {
	ChatCompletion(ctx context.Context, model string, prompt string, maxTokens int) (string, error)
}
