package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/quorumhq/quorum/internal/providers"
)

var logger = log.WithField("package", "review")

// PassOptions tune a single reviewer pass.
type PassOptions struct {
	MaxTokens   int
	Temperature float64
	MaxFindings int
	Retry       providers.RetryPolicy
}

// PassResult carries one reviewer's validated output for one unit.
type PassResult struct {
	Result     ReviewResult
	Dropped    int
	Attempts   int
	TokensUsed int
}

// RunPass executes one reviewer's analysis of one unit: prompt, inference
// with retries, parse, validate. Infrastructure failures that outlast the
// retry budget surface as ReviewerUnavailableError. Output that arrived
// intact but cannot be parsed is an InvalidResponseError and is never
// re-requested.
func RunPass(ctx context.Context, client providers.Client, p Profile, u Unit, opts PassOptions) (PassResult, error) {
	req := providers.Request{
		System:      SystemPrompt(p),
		Prompt:      UserPrompt(u, opts.MaxFindings),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	var resp providers.Response
	attempts, err := providers.Retry(ctx, opts.Retry, func() error {
		r, inferErr := client.Infer(ctx, req)
		if inferErr != nil {
			return inferErr
		}
		resp = r
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return PassResult{}, ctxErr
		}
		return PassResult{}, &ReviewerUnavailableError{Reviewer: p.Name, Unit: u.Index, Attempts: attempts, Err: err}
	}

	payload, perr := parseReviewPayload(resp.Text)
	if perr != nil {
		return PassResult{}, &InvalidResponseError{Reviewer: p.Name, Unit: u.Index, Reason: perr.Error()}
	}

	known := make(map[string]bool, len(u.Files))
	for _, path := range u.Paths() {
		known[path] = true
	}

	res := PassResult{Attempts: attempts, TokensUsed: resp.TokensUsed}
	for _, rf := range payload.Findings {
		if strings.TrimSpace(rf.Message) == "" {
			res.Dropped++
			continue
		}
		file := strings.TrimSpace(rf.File)
		if file != "" && !known[file] {
			res.Dropped++
			continue
		}
		line := int(rf.Line)
		if line < 0 || file == "" {
			line = 0
		}
		res.Result.Findings = append(res.Result.Findings, Finding{
			File:       file,
			Line:       line,
			Severity:   NormalizeSeverity(rf.Severity),
			Category:   strings.ToLower(strings.TrimSpace(rf.Category)),
			Message:    strings.TrimSpace(rf.Message),
			Suggestion: strings.TrimSpace(rf.Suggestion),
			Reviewer:   p.Name,
		})
	}
	res.Result.Summary = strings.TrimSpace(payload.Summary)

	if res.Dropped > 0 {
		logger.WithFields(log.Fields{
			"reviewer": p.Name,
			"unit":     u.Index,
			"dropped":  res.Dropped,
		}).Debug("discarded findings that reference files outside the unit")
	}
	return res, nil
}

type rawPayload struct {
	Findings []rawFinding `json:"findings"`
	Summary  string       `json:"summary"`
}

type rawFinding struct {
	File       string  `json:"file"`
	Line       flexInt `json:"line"`
	Severity   string  `json:"severity"`
	Category   string  `json:"category"`
	Message    string  `json:"message"`
	Suggestion string  `json:"suggestion"`
}

// flexInt absorbs line numbers that arrive as JSON strings or floats.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*n = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		*n = 0
		return nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		*n = flexInt(v)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("line is not a number: %s", string(data))
	}
	*n = flexInt(int(f))
	return nil
}

// parseReviewPayload extracts the first JSON object from model output.
// Markdown fences are stripped first and prose after the object is
// tolerated; anything short of one decodable object is an error.
func parseReviewPayload(text string) (rawPayload, error) {
	var payload rawPayload

	text = stripFences(strings.TrimSpace(text))

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return payload, fmt.Errorf("no JSON object in response")
	}

	dec := json.NewDecoder(strings.NewReader(text[start:]))
	if err := dec.Decode(&payload); err != nil {
		return payload, fmt.Errorf("decoding findings object: %w", err)
	}
	return payload, nil
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.Join(lines[1:end], "\n")
}
