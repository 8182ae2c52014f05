package review

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/atomic"
)

// defaultConcurrency limits parallel LLM calls.
const defaultConcurrency = 4

// PassFunc runs one reviewer's analysis of one unit.
type PassFunc func(ctx context.Context, p Profile, u Unit) (PassResult, error)

// ExecOptions control the fan-out.
type ExecOptions struct {
	// Concurrency caps in-flight passes across all reviewers, not per
	// reviewer. Zero means defaultConcurrency.
	Concurrency int
	// Progress, when set, is called after each finished pass.
	Progress func(done, total int)
}

// PassOutcome is one reviewer's aggregate over all units.
type PassOutcome struct {
	Reviewer    string
	Result      ReviewResult
	UnitErrs    []error // indexed by unit; nil entries succeeded
	Err         error   // set only when every unit failed
	FailedUnits int
	Dropped     int
	TokensUsed  int
}

// Execute runs every (reviewer, unit) pair exactly once under a global
// concurrency cap and joins once all of them have finished. A failing pass
// marks only its own slot; sibling passes always run to completion.
// Outcomes come back in profile order with findings in unit order,
// independent of completion timing.
//
// The returned error is non-nil only on cancellation or when no pair
// anywhere succeeded.
func Execute(ctx context.Context, pass PassFunc, profiles []Profile, units []Unit, opts ExecOptions) ([]PassOutcome, error) {
	if len(profiles) == 0 || len(units) == 0 {
		return nil, nil
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	results := make([][]PassResult, len(profiles))
	errs := make([][]error, len(profiles))
	for i := range profiles {
		results[i] = make([]PassResult, len(units))
		errs[i] = make([]error, len(units))
	}

	total := len(profiles) * len(units)
	done := atomic.NewInt32(0)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for pi := range profiles {
		for ui := range units {
			wg.Add(1)
			go func(pi, ui int) {
				defer wg.Done()
				defer func() {
					if opts.Progress != nil {
						opts.Progress(int(done.Inc()), total)
					}
				}()

				select {
				case sem <- struct{}{}: // acquire
					defer func() { <-sem }() // release
				case <-ctx.Done():
					errs[pi][ui] = ctx.Err()
					return
				}

				res, err := pass(ctx, profiles[pi], units[ui])
				if err != nil {
					errs[pi][ui] = err
					return
				}
				results[pi][ui] = res
			}(pi, ui)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcomes := make([]PassOutcome, len(profiles))
	anySuccess := false
	for pi, p := range profiles {
		out := PassOutcome{Reviewer: p.Name, UnitErrs: errs[pi]}
		var summaries []string
		for ui := range units {
			if errs[pi][ui] != nil {
				out.FailedUnits++
				continue
			}
			r := results[pi][ui]
			out.Result.Findings = append(out.Result.Findings, r.Result.Findings...)
			if r.Result.Summary != "" {
				summaries = append(summaries, r.Result.Summary)
			}
			out.Dropped += r.Dropped
			out.TokensUsed += r.TokensUsed
		}
		out.Result.Summary = strings.Join(summaries, " ")
		if out.FailedUnits == len(units) {
			out.Err = firstError(errs[pi])
		} else {
			anySuccess = true
		}
		outcomes[pi] = out
	}

	if !anySuccess {
		names := make([]string, len(outcomes))
		failures := make([]error, len(outcomes))
		for i, o := range outcomes {
			names[i] = o.Reviewer
			failures[i] = o.Err
		}
		return outcomes, &NoReviewersSucceededError{Reviewers: names, Errs: failures}
	}
	return outcomes, nil
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
