package providers

import (
	"context"
	"sync"
)

const mockReviewText = `{"findings": [], "summary": "Automated dry run; no analysis performed."}`

// Mock is an offline client that returns canned responses. It backs the
// "mock" provider name so the pipeline can run end to end with no network
// or credentials.
type Mock struct {
	// Responses are consumed in call order; the last one repeats. When
	// empty, a valid no-findings payload is returned.
	Responses []string
	// Err, when set, fails every call.
	Err error

	mu    sync.Mutex
	calls int
	reqs  []Request
}

// NewMock creates a mock client with the default response.
func NewMock() *Mock { return &Mock{} }

func (m *Mock) Name() string { return "mock" }

// Calls reports how many inferences were requested.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Requests returns a copy of every request received, in call order.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.reqs))
	copy(out, m.reqs)
	return out
}

func (m *Mock) Infer(ctx context.Context, req Request) (Response, error) {
	m.mu.Lock()
	i := m.calls
	m.calls++
	m.reqs = append(m.reqs, req)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if m.Err != nil {
		return Response{}, m.Err
	}
	if len(m.Responses) == 0 {
		return Response{Text: mockReviewText}, nil
	}
	if i >= len(m.Responses) {
		i = len(m.Responses) - 1
	}
	return Response{Text: m.Responses[i], TokensUsed: len(req.Prompt) / 4}, nil
}
