package providers

import (
	"context"
	"fmt"
)

// Request carries one inference call.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response is the raw model output.
type Response struct {
	Text       string
	TokensUsed int
}

// Client is a single-attempt connection to one model vendor. Implementations
// make exactly one call per Infer and return typed errors (RateLimitError,
// ServerError, TransportError, AuthError) so callers decide what to retry.
type Client interface {
	Infer(ctx context.Context, req Request) (Response, error)
	Name() string
}

// New creates a client by vendor name. The endpoint overrides the vendor's
// default API URL when non-empty.
func New(provider, model, endpoint string) (Client, error) {
	switch provider {
	case "anthropic":
		return NewAnthropic(model, endpoint)
	case "openai":
		return NewOpenAI(model, endpoint)
	case "gemini", "google":
		return NewGemini(model)
	case "ollama", "lmstudio":
		return NewOllama(model, endpoint)
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}
