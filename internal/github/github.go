package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/go-github/v68/github"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/quorumhq/quorum/internal/diff"
	"github.com/quorumhq/quorum/internal/review"
)

var logger = log.WithField("package", "github")

// snapDistance bounds how far a finding line may drift from a commentable
// diff line before the finding folds into the review body instead.
const snapDistance = 5

// PRRef identifies a pull request. Owner and Repo may be empty after
// parsing a bare #number reference; the caller fills them from the local
// repository remote.
type PRRef struct {
	Owner  string
	Repo   string
	Number int
}

// Complete reports whether the reference names a concrete pull request.
func (r PRRef) Complete() bool {
	return r.Owner != "" && r.Repo != "" && r.Number > 0
}

func (r PRRef) String() string {
	if r.Owner == "" || r.Repo == "" {
		return fmt.Sprintf("#%d", r.Number)
	}
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

var (
	prURLRe   = regexp.MustCompile(`^https?://[^/]+/([^/]+)/([^/]+)/pull/(\d+)`)
	prShortRe = regexp.MustCompile(`^([^/#\s]+)/([^/#\s]+)#(\d+)$`)
	prBareRe  = regexp.MustCompile(`^#?(\d+)$`)
)

// ParsePRRef accepts a pull request URL, owner/repo#number, or a bare
// #number (leaving Owner/Repo empty).
func ParsePRRef(s string) (PRRef, error) {
	s = strings.TrimSpace(s)
	if m := prURLRe.FindStringSubmatch(s); m != nil {
		return refFrom(m[1], m[2], m[3])
	}
	if m := prShortRe.FindStringSubmatch(s); m != nil {
		return refFrom(m[1], m[2], m[3])
	}
	if m := prBareRe.FindStringSubmatch(s); m != nil {
		return refFrom("", "", m[1])
	}
	return PRRef{}, fmt.Errorf("cannot parse pull request reference %q (want a URL, owner/repo#number, or #number)", s)
}

func refFrom(owner, repo, num string) (PRRef, error) {
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return PRRef{}, fmt.Errorf("invalid pull request number %q", num)
	}
	return PRRef{Owner: owner, Repo: repo, Number: n}, nil
}

// PRMetadata describes the pull request under review.
type PRMetadata struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Draft       bool   `json:"draft"`
	State       string `json:"state"`
	BaseBranch  string `json:"base_branch"`
	HeadBranch  string `json:"head_branch"`
	HeadSHA     string `json:"head_sha"`
	Description string `json:"description,omitempty"`
}

// ReviewComment is an inline comment pinned to a diff line.
type ReviewComment struct {
	Path string
	Line int
	Side string
	Body string
}

// ReviewRequest is a complete review submission.
type ReviewRequest struct {
	Body     string
	Event    string
	Comments []ReviewComment
}

// PublishFailedError wraps a failure to post a review. Publishing is never
// retried; the rendered report is still available locally.
type PublishFailedError struct {
	Ref PRRef
	Err error
}

func (e *PublishFailedError) Error() string {
	return fmt.Sprintf("publishing review to %s: %v", e.Ref, e.Err)
}

func (e *PublishFailedError) Unwrap() error { return e.Err }

// Client talks to the GitHub API.
type Client struct {
	gh *github.Client
}

// NewClient builds an authenticated client. An empty token falls back to
// the GITHUB_TOKEN environment variable.
func NewClient(token string) (*Client, error) {
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("GitHub token not found: set github.token or the GITHUB_TOKEN environment variable")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)
	return &Client{gh: github.NewClient(tc)}, nil
}

// FetchDiff returns the raw unified diff for a pull request.
func (c *Client) FetchDiff(ctx context.Context, ref PRRef) (string, error) {
	raw, _, err := c.gh.PullRequests.GetRaw(ctx, ref.Owner, ref.Repo, ref.Number,
		github.RawOptions{Type: github.Diff})
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("PR %s not found: %w", ref, err)
		}
		return "", fmt.Errorf("fetching PR diff: %w", err)
	}
	logger.WithFields(log.Fields{"pr": ref.String(), "bytes": len(raw)}).Debug("fetched PR diff")
	return raw, nil
}

// FetchMetadata returns descriptive fields for a pull request.
func (c *Client) FetchMetadata(ctx context.Context, ref PRRef) (PRMetadata, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		if isNotFound(err) {
			return PRMetadata{}, fmt.Errorf("PR %s not found: %w", ref, err)
		}
		return PRMetadata{}, fmt.Errorf("fetching PR metadata: %w", err)
	}
	return PRMetadata{
		Number:      pr.GetNumber(),
		Title:       pr.GetTitle(),
		Author:      pr.GetUser().GetLogin(),
		Draft:       pr.GetDraft(),
		State:       pr.GetState(),
		BaseBranch:  pr.GetBase().GetRef(),
		HeadBranch:  pr.GetHead().GetRef(),
		HeadSHA:     pr.GetHead().GetSHA(),
		Description: pr.GetBody(),
	}, nil
}

// PostReview submits a review with inline comments. Failures wrap into
// PublishFailedError and are not retried.
func (c *Client) PostReview(ctx context.Context, ref PRRef, req ReviewRequest) error {
	comments := make([]*github.DraftReviewComment, 0, len(req.Comments))
	for _, cm := range req.Comments {
		side := cm.Side
		if side == "" {
			side = "RIGHT"
		}
		comments = append(comments, &github.DraftReviewComment{
			Path: github.Ptr(cm.Path),
			Line: github.Ptr(cm.Line),
			Side: github.Ptr(side),
			Body: github.Ptr(cm.Body),
		})
	}
	event := req.Event
	if event == "" {
		event = "COMMENT"
	}
	payload := &github.PullRequestReviewRequest{
		Body:     github.Ptr(req.Body),
		Event:    github.Ptr(event),
		Comments: comments,
	}
	if _, _, err := c.gh.PullRequests.CreateReview(ctx, ref.Owner, ref.Repo, ref.Number, payload); err != nil {
		return &PublishFailedError{Ref: ref, Err: err}
	}
	logger.WithFields(log.Fields{"pr": ref.String(), "comments": len(comments)}).Info("posted review")
	return nil
}

// IsAuthError reports whether err is a GitHub authentication or permission
// failure.
func IsAuthError(err error) bool {
	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) || ghErr.Response == nil {
		return false
	}
	code := ghErr.Response.StatusCode
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

func isNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil &&
		ghErr.Response.StatusCode == http.StatusNotFound
}

// BuildReview converts merged findings into a review submission. Each
// finding is pinned to the nearest commentable diff line within
// snapDistance; findings with no mappable location fold into the body.
func BuildReview(result review.ReviewResult, files []diff.FileDiff) ReviewRequest {
	commentable := diff.CommentableLines(files)

	var comments []ReviewComment
	var folded []string
	for _, f := range result.Findings {
		line := 0
		if f.File != "" && f.Line > 0 {
			line = diff.NearestValidLine(commentable[f.File], f.Line, snapDistance)
		}
		if line == 0 {
			folded = append(folded, formatFindingBody(f))
			continue
		}
		comments = append(comments, ReviewComment{
			Path: f.File,
			Line: line,
			Side: "RIGHT",
			Body: formatInlineComment(f),
		})
	}

	sum := review.ComputeSummary(result.Findings)
	var sb strings.Builder
	sb.WriteString("## Quorum Code Review\n\n")
	if result.Summary != "" {
		sb.WriteString(result.Summary)
		sb.WriteString("\n\n")
	}
	sb.WriteString("| Severity | Count |\n|----------|-------|\n")
	fmt.Fprintf(&sb, "| Critical | %d |\n", sum.Counts.Critical)
	fmt.Fprintf(&sb, "| High | %d |\n", sum.Counts.High)
	fmt.Fprintf(&sb, "| Medium | %d |\n", sum.Counts.Medium)
	fmt.Fprintf(&sb, "| Low | %d |\n", sum.Counts.Low)
	fmt.Fprintf(&sb, "| Info | %d |\n", sum.Counts.Info)

	if len(folded) > 0 {
		sb.WriteString("\n### Findings without a diff location\n\n")
		for _, b := range folded {
			sb.WriteString(b)
			sb.WriteString("\n")
		}
	}

	return ReviewRequest{
		Body:     sb.String(),
		Event:    "COMMENT",
		Comments: comments,
	}
}

func formatInlineComment(f review.Finding) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** %s (flagged by %s)\n\n%s", f.Severity, f.Category, f.Reviewer, f.Message)
	if f.Suggestion != "" {
		fmt.Fprintf(&sb, "\n\n**Suggestion:**\n```\n%s\n```", f.Suggestion)
	}
	return sb.String()
}

func formatFindingBody(f review.Finding) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "- **%s**", f.Severity)
	if f.File != "" {
		sb.WriteString(" `" + f.File)
		if f.Line > 0 {
			fmt.Fprintf(&sb, ":%d", f.Line)
		}
		sb.WriteString("`")
	}
	fmt.Fprintf(&sb, " (%s): %s", f.Category, f.Message)
	if f.Suggestion != "" {
		fmt.Fprintf(&sb, " *Suggestion: %s*", f.Suggestion)
	}
	return sb.String()
}

var (
	httpsRemoteRe = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/.\s]+)`)
	sshRemoteRe   = regexp.MustCompile(`[^@]+@[^:]+:([^/]+)/([^/.\s]+)`)
)

// DetectRepo parses owner/repo from the git remote origin URL.
func DetectRepo() (owner, repo string, err error) {
	out, err := exec.Command("git", "remote", "get-url", "origin").Output()
	if err != nil {
		return "", "", fmt.Errorf("cannot detect repo: git remote get-url origin failed: %w", err)
	}
	url := strings.TrimSpace(string(out))
	return ParseRemoteURL(url)
}

// ParseRemoteURL extracts owner/repo from a git remote URL.
func ParseRemoteURL(url string) (owner, repo string, err error) {
	url = strings.TrimSuffix(url, ".git")

	if m := httpsRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	if m := sshRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("cannot parse owner/repo from remote URL: %s", url)
}
