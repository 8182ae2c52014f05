//go:build integration

package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// providerSpec defines a provider to test.
type providerSpec struct {
	name   string
	model  string
	envVar string // env var that must be set (empty for ollama)
}

var providerSpecs = []providerSpec{
	{"anthropic", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
	{"openai", "gpt-4o-mini", "OPENAI_API_KEY"},
	{"gemini", "gemini-2.0-flash", "GEMINI_API_KEY"},
	{"ollama", "llama3", ""},
}

func skipIfEnvMissing(t *testing.T, envVar string) {
	t.Helper()
	if envVar == "" {
		return // no env var needed (e.g. ollama)
	}
	if os.Getenv(envVar) == "" {
		t.Skipf("skipping: %s not set", envVar)
	}
}

func skipIfOllamaUnavailable(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://localhost:11434/api/tags", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Skipf("skipping: ollama not reachable: %v", err)
	}
	resp.Body.Close()
}

func integrationContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	t.Cleanup(cancel)
	return ctx
}

// testDiff is a small Go change with an obvious command injection hole.
const testDiff = `### cmd/run.go (added)
@@ -0,0 +1,15 @@
   1 |+package cmd
   2 |+
   3 |+import (
   4 |+	"fmt"
   5 |+	"os/exec"
   6 |+)
   7 |+
   8 |+func RunUserCommand(userInput string) (string, error) {
   9 |+	cmd := exec.Command("bash", "-c", userInput)
  10 |+	out, err := cmd.CombinedOutput()
  11 |+	if err != nil {
  12 |+		return "", fmt.Errorf("command failed: %w", err)
  13 |+	}
  14 |+	return string(out), nil
  15 |+}
`

// reviewSystemPrompt duplicates the review contract here to avoid importing
// internal/review from internal/providers.
const reviewSystemPrompt = `You are a strict, expert code reviewer reviewing code diffs.

You MUST respond with ONLY a JSON object. No markdown, no explanation, no preamble.

The object has this exact structure:
{
  "findings": [
    {
      "file": "relative/file/path",
      "line": 42,
      "severity": "info|low|medium|high|critical",
      "category": "short category label",
      "message": "What is wrong and why it matters",
      "suggestion": "How to fix it, with code if helpful"
    }
  ],
  "summary": "One short paragraph summarizing the overall state of the change."
}

If there are no issues, return {"findings": [], "summary": "..."}.`

// testRawPayload mirrors the review contract for JSON parsing in the
// providers package without importing review.
type testRawPayload struct {
	Findings []struct {
		File       string `json:"file"`
		Line       int    `json:"line"`
		Severity   string `json:"severity"`
		Category   string `json:"category"`
		Message    string `json:"message"`
		Suggestion string `json:"suggestion"`
	} `json:"findings"`
	Summary string `json:"summary"`
}

// parsePayload parses model output, stripping markdown fences if present.
func parsePayload(content string) (testRawPayload, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		if len(lines) >= 2 {
			start := 1
			end := len(lines)
			if strings.TrimSpace(lines[end-1]) == "```" {
				end--
			}
			if start < end {
				content = strings.Join(lines[start:end], "\n")
			}
		}
	}
	var payload testRawPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return payload, fmt.Errorf("invalid JSON: %w\ncontent: %s", err, content[:min(len(content), 500)])
	}
	return payload, nil
}

var validSeverities = map[string]bool{
	"info": true, "low": true, "medium": true, "high": true, "critical": true,
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

// TestIntegration_Provider_BasicInfer verifies that each provider returns
// non-empty text and a token count for a simple prompt.
func TestIntegration_Provider_BasicInfer(t *testing.T) {
	for _, spec := range providerSpecs {
		spec := spec
		t.Run(spec.name, func(t *testing.T) {
			t.Parallel()
			skipIfEnvMissing(t, spec.envVar)
			if spec.name == "ollama" {
				skipIfOllamaUnavailable(t)
			}

			ctx := integrationContext(t)

			client, err := New(spec.name, spec.model, "")
			if err != nil {
				t.Fatalf("New(%s, %s): %v", spec.name, spec.model, err)
			}

			resp, err := client.Infer(ctx, Request{
				System:    "You are a helpful assistant.",
				Prompt:    "Reply with exactly: HELLO INTEGRATION TEST",
				MaxTokens: 256,
			})
			if err != nil {
				t.Fatalf("Infer() error: %v", err)
			}

			if resp.Text == "" {
				t.Fatal("expected non-empty response text")
			}
			if !strings.Contains(strings.ToUpper(resp.Text), "HELLO") {
				t.Logf("warning: response did not contain HELLO: %s", resp.Text)
			}
			t.Logf("provider=%s tokens=%d text_len=%d", spec.name, resp.TokensUsed, len(resp.Text))
		})
	}
}

// TestIntegration_Provider_StructuredReview verifies that each provider
// returns a parseable findings object when given the review contract and
// test diff. It validates structure but not exact content (LLMs are
// non-deterministic).
func TestIntegration_Provider_StructuredReview(t *testing.T) {
	userPrompt := fmt.Sprintf("Review the following code changes.\nLanguages: Go\n\n--- BEGIN DIFF ---\n%s--- END DIFF ---\n", testDiff)

	for _, spec := range providerSpecs {
		spec := spec
		t.Run(spec.name, func(t *testing.T) {
			t.Parallel()
			skipIfEnvMissing(t, spec.envVar)
			if spec.name == "ollama" {
				skipIfOllamaUnavailable(t)
			}

			ctx := integrationContext(t)

			client, err := New(spec.name, spec.model, "")
			if err != nil {
				t.Fatalf("New(%s, %s): %v", spec.name, spec.model, err)
			}

			resp, err := client.Infer(ctx, Request{
				System:    reviewSystemPrompt,
				Prompt:    userPrompt,
				MaxTokens: 4096,
			})
			if err != nil {
				t.Fatalf("Infer() error: %v", err)
			}

			payload, err := parsePayload(resp.Text)
			if err != nil {
				t.Fatalf("failed to parse findings: %v", err)
			}

			t.Logf("provider=%s findings=%d tokens=%d", spec.name, len(payload.Findings), resp.TokensUsed)

			if len(payload.Findings) == 0 {
				t.Fatal("expected at least one finding for command injection diff")
			}
			if payload.Summary == "" {
				t.Error("expected a non-empty summary")
			}

			for i, f := range payload.Findings {
				if f.Message == "" {
					t.Errorf("finding[%d]: empty message", i)
				}
				if !validSeverities[strings.ToLower(f.Severity)] {
					t.Errorf("finding[%d]: invalid severity %q", i, f.Severity)
				}
			}

			// Check if any finding mentions security/injection (warn, non-fatal)
			foundSecurity := false
			for _, f := range payload.Findings {
				lower := strings.ToLower(f.Category + " " + f.Message)
				if strings.Contains(lower, "security") ||
					strings.Contains(lower, "injection") ||
					strings.Contains(lower, "command") {
					foundSecurity = true
					break
				}
			}
			if !foundSecurity {
				t.Log("warning: no finding explicitly mentions security/injection/command; the model may have categorized differently")
			}
		})
	}
}
