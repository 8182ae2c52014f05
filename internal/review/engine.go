package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/quorumhq/quorum/internal/config"
	"github.com/quorumhq/quorum/internal/diff"
	"github.com/quorumhq/quorum/internal/gitctx"
	"github.com/quorumhq/quorum/internal/providers"
	"github.com/quorumhq/quorum/internal/redact"
	"github.com/quorumhq/quorum/internal/trace"
)

const reportVersion = "1.0"

// passMaxTokens bounds one reviewer response.
const passMaxTokens = 8192

// RunOptions carries optional collaborators for a run. The zero value is
// ready to use: the inference client is built from the configuration and
// progress goes unreported.
type RunOptions struct {
	// Client overrides the provider built from cfg. Tests inject a
	// scripted providers.Mock here.
	Client providers.Client
	// Progress receives (completed, total) pass counts as workers finish.
	Progress func(done, total int)
}

// runState is one run's orchestration record. It is owned by the engine
// for the duration of the run and discarded once the report is built.
type runState struct {
	id       string
	input    gitctx.DiffResult
	files    []diff.FileDiff
	stats    diff.ParseStats
	units    []Unit
	profiles []Profile
	// passes holds exactly one slot per configured reviewer after the
	// join, failure recorded as the slot's Err rather than a missing key.
	passes  map[string]*PassOutcome
	merged  ReviewResult
	publish bool
	parseMs int64
	llmMs   int64
}

// Run executes a full review of the given change set: redact, parse, unit
// building, concurrent reviewer passes, merge, publish decision.
func Run(ctx context.Context, changes gitctx.DiffResult, cfg config.Config) (*Report, error) {
	return RunWith(ctx, changes, cfg, RunOptions{})
}

// RunWith is Run with injectable collaborators.
func RunWith(ctx context.Context, changes gitctx.DiffResult, cfg config.Config, opts RunOptions) (*Report, error) {
	start := time.Now()
	state := &runState{id: uuid.NewString(), input: changes}
	runLog := logger.WithField("run_id", state.id)

	ctx, runSpan := trace.StartSpan(ctx, "review-run")
	defer runSpan.End()

	// Redaction happens before anything else sees the text, so secrets
	// never reach units, prompts, or the report.
	raw := changes.Diff
	if cfg.Redact {
		raw = redact.Diff(raw)
	}

	if strings.TrimSpace(raw) == "" {
		runLog.Info("change set is empty, nothing to review")
		return buildReport(state, start), nil
	}

	parseStart := time.Now()
	_, parseSpan := trace.StartSpan(ctx, "parse")
	state.files, state.stats = diff.Parse(raw, filterPolicy(cfg.Filter))
	parseSpan.End()
	state.parseMs = time.Since(parseStart).Milliseconds()
	runLog.WithFields(log.Fields{
		"files":     len(state.files),
		"skipped":   len(state.stats.Skipped),
		"malformed": len(state.stats.Malformed),
	}).Debug("parsed change set")

	if len(state.files) == 0 {
		runLog.Info("no reviewable files in change set")
		return buildReport(state, start), nil
	}

	state.units = BuildUnits(state.files, UnitBudget{
		MaxBytes: cfg.Unit.MaxBytes,
		MaxLines: cfg.Unit.MaxLines,
	})

	profiles, err := ResolveProfiles(cfg.Profiles, cfg.ProfileDir)
	if err != nil {
		return nil, fmt.Errorf("resolving reviewer profiles: %w", err)
	}
	state.profiles = profiles

	client := opts.Client
	if client == nil {
		client, err = providers.New(cfg.Provider, cfg.Model, cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("creating provider: %w", err)
		}
	}

	passOpts := PassOptions{
		MaxTokens:   passMaxTokens,
		MaxFindings: cfg.MaxFindings,
		Retry: providers.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   time.Duration(cfg.Retry.BaseDelayMs) * time.Millisecond,
			Multiplier:  cfg.Retry.Multiplier,
		},
	}
	pass := func(ctx context.Context, p Profile, u Unit) (PassResult, error) {
		ctx, span := trace.StartSpan(ctx, "pass/"+p.Name)
		defer span.End()
		return RunPass(ctx, client, p, u, passOpts)
	}

	llmStart := time.Now()
	passCtx, passSpan := trace.StartSpan(ctx, "passes")
	outcomes, err := Execute(passCtx, pass, profiles, state.units, ExecOptions{
		Concurrency: cfg.Concurrency,
		Progress:    opts.Progress,
	})
	passSpan.End()
	if err != nil {
		return nil, fmt.Errorf("running reviewers: %w", err)
	}
	state.llmMs = time.Since(llmStart).Milliseconds()
	state.record(outcomes)

	var succeeded []ReviewResult
	for _, o := range outcomes {
		if o.Err != nil {
			runLog.WithField("reviewer", o.Reviewer).WithError(o.Err).Warn("reviewer produced no usable signal")
			continue
		}
		if o.FailedUnits > 0 {
			runLog.WithFields(log.Fields{
				"reviewer":     o.Reviewer,
				"failed_units": o.FailedUnits,
			}).Warn("reviewer failed on some units, keeping partial result")
		}
		r := o.Result
		if r.Summary != "" {
			r.Summary = o.Reviewer + ": " + r.Summary
		}
		succeeded = append(succeeded, r)
	}

	_, mergeSpan := trace.StartSpan(ctx, "merge")
	state.merged = Merge(succeeded, MergeOptions{
		LineWindow: cfg.Merge.LineWindow,
		Similarity: cfg.Merge.Similarity,
	})
	mergeSpan.End()
	if cfg.MaxFindings > 0 && len(state.merged.Findings) > cfg.MaxFindings {
		state.merged.Findings = state.merged.Findings[:cfg.MaxFindings]
	}
	state.publish = ShouldPublish(state.merged, Severity(cfg.MinSeverity))

	runLog.WithFields(log.Fields{
		"findings": len(state.merged.Findings),
		"publish":  state.publish,
		"total_ms": time.Since(start).Milliseconds(),
	}).Info("review complete")

	return buildReport(state, start), nil
}

func (s *runState) record(outcomes []PassOutcome) {
	s.passes = make(map[string]*PassOutcome, len(outcomes))
	for i := range outcomes {
		s.passes[outcomes[i].Reviewer] = &outcomes[i]
	}
}

// filterPolicy maps the configured filter onto the parser's policy, falling
// back to the built-in skip lists where the configuration is silent.
func filterPolicy(fc config.FilterConfig) diff.FilterPolicy {
	policy := diff.DefaultFilterPolicy()
	if len(fc.AllowedExtensions) > 0 {
		policy.AllowedExtensions = fc.AllowedExtensions
	}
	if len(fc.BlockedExtensions) > 0 {
		policy.BlockedExtensions = fc.BlockedExtensions
	}
	if len(fc.BlockedFiles) > 0 {
		policy.BlockedFilenames = fc.BlockedFiles
	}
	if len(fc.BlockedDirs) > 0 {
		policy.BlockedDirs = fc.BlockedDirs
	}
	if fc.MaxFileBytes > 0 {
		policy.MaxFileBytes = fc.MaxFileBytes
	}
	return policy
}

func buildReport(s *runState, start time.Time) *Report {
	truncated := 0
	for _, u := range s.units {
		if u.Truncated {
			truncated++
		}
	}

	statuses := make([]ReviewerStatus, 0, len(s.profiles))
	failedReviewers := 0
	for _, p := range s.profiles {
		o := s.passes[p.Name]
		if o == nil {
			continue
		}
		st := ReviewerStatus{
			Name:        p.Name,
			Findings:    len(o.Result.Findings),
			FailedUnits: o.FailedUnits,
		}
		if o.Err != nil {
			st.Error = o.Err.Error()
			failedReviewers++
		}
		statuses = append(statuses, st)
	}

	findings := s.merged.Findings
	if findings == nil {
		findings = []Finding{}
	}

	return &Report{
		Tool:    "quorum",
		Version: reportVersion,
		RunID:   s.id,
		Repo: RepoInfo{
			Root:   s.input.Repo.Root,
			Head:   s.input.Repo.Head,
			Branch: s.input.Repo.Branch,
			Remote: s.input.Repo.Remote,
		},
		Inputs: InputInfo{
			Mode:  s.input.Mode,
			Range: s.input.Range,
		},
		Summary:   ComputeSummary(findings),
		Findings:  findings,
		Overview:  s.merged.Summary,
		Reviewers: statuses,
		Stats: RunStats{
			FilesReviewed:     len(s.files),
			FilesSkipped:      len(s.stats.Skipped),
			MalformedSections: len(s.stats.Malformed),
			Units:             len(s.units),
			TruncatedUnits:    truncated,
			Reviewers:         len(s.profiles),
			FailedReviewers:   failedReviewers,
		},
		Timing: Timing{
			ParseMs: s.parseMs,
			LLMMs:   s.llmMs,
			TotalMs: time.Since(start).Milliseconds(),
		},
		Publish: s.publish,
	}
}
