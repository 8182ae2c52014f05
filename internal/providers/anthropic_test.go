package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropic_Infer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("Missing API key header")
		}
		if r.Header.Get("anthropic-version") != anthropicAPIVersion {
			t.Error("Missing anthropic-version header")
		}

		resp := anthropicResponse{
			Content: []anthropicBlock{
				{Type: "text", Text: "{}"},
			},
			Usage: anthropicUsage{InputTokens: 100, OutputTokens: 10},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	a := &Anthropic{
		apiKey: "test-key",
		model:  "claude-sonnet-4-20250514",
		url:    server.URL,
		client: server.Client(),
	}

	resp, err := a.Infer(context.Background(), Request{
		System:    "test",
		Prompt:    "test",
		MaxTokens: 10,
	})
	if err != nil {
		t.Fatalf("Infer error: %v", err)
	}
	if resp.Text != "{}" {
		t.Errorf("Text = %q, want %q", resp.Text, "{}")
	}
	if resp.TokensUsed != 110 {
		t.Errorf("TokensUsed = %d, want 110", resp.TokensUsed)
	}
}

func TestAnthropic_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer server.Close()

	a := &Anthropic{
		apiKey: "bad-key",
		model:  "claude-sonnet-4-20250514",
		url:    server.URL,
		client: server.Client(),
	}

	_, err := a.Infer(context.Background(), Request{System: "test", Prompt: "test"})
	if err == nil {
		t.Fatal("Expected auth error")
	}
	if !IsAuthError(err) {
		t.Errorf("Expected auth error, got: %v", err)
	}
}

func TestAnthropic_SingleAttemptOnRateLimit(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(429)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	a := &Anthropic{
		apiKey: "test-key",
		model:  "claude-sonnet-4-20250514",
		url:    server.URL,
		client: server.Client(),
	}

	_, err := a.Infer(context.Background(), Request{System: "test", Prompt: "test"})
	if attempts != 1 {
		t.Errorf("Expected exactly 1 attempt, got %d", attempts)
	}
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("Expected RateLimitError, got: %v", err)
	}
	if rl.RetryAfter.Seconds() != 7 {
		t.Errorf("RetryAfter = %v, want 7s", rl.RetryAfter)
	}
}

func TestAnthropic_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := anthropicResponse{
			Content: []anthropicBlock{},
			Usage:   anthropicUsage{InputTokens: 10, OutputTokens: 0},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	a := &Anthropic{
		apiKey: "test-key",
		model:  "claude-sonnet-4-20250514",
		url:    server.URL,
		client: server.Client(),
	}

	_, err := a.Infer(context.Background(), Request{System: "test", Prompt: "test"})
	if err == nil {
		t.Error("Expected error for empty content")
	}
}

func TestAnthropic_DefaultMaxTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body anthropicRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.MaxTokens != 4096 {
			t.Errorf("Default MaxTokens = %d, want 4096", body.MaxTokens)
		}
		resp := anthropicResponse{
			Content: []anthropicBlock{{Type: "text", Text: "{}"}},
			Usage:   anthropicUsage{InputTokens: 10, OutputTokens: 5},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	a := &Anthropic{
		apiKey: "test-key",
		model:  "claude-sonnet-4-20250514",
		url:    server.URL,
		client: server.Client(),
	}

	_, err := a.Infer(context.Background(), Request{
		System:    "test",
		Prompt:    "test",
		MaxTokens: 0, // should default to 4096
	})
	if err != nil {
		t.Fatalf("Infer error: %v", err)
	}
}
