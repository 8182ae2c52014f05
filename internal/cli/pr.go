package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/quorumhq/quorum/internal/config"
	"github.com/quorumhq/quorum/internal/console"
	"github.com/quorumhq/quorum/internal/diff"
	"github.com/quorumhq/quorum/internal/github"
	"github.com/quorumhq/quorum/internal/gitctx"
	"github.com/quorumhq/quorum/internal/review"
	"github.com/quorumhq/quorum/internal/trace"
	"github.com/spf13/cobra"
)

var (
	flagPost bool
	flagYes  bool
)

var prCmd = &cobra.Command{
	Use:   "pr <url | owner/repo#number | #number>",
	Short: "Review a GitHub pull request",
	Long:  "Fetch a pull request diff and metadata from GitHub, review it with the configured panel, and optionally post the findings back as a PR review.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := github.ParsePRRef(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitUsageError
			return nil
		}
		if !ref.Complete() {
			owner, repo, err := github.DetectRepo()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\nName the pull request as owner/repo#%d.\n", err, ref.Number)
				exitCode = ExitUsageError
				return nil
			}
			ref.Owner, ref.Repo = owner, repo
		}

		applyFlagOverrides(cmd)
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if flagNoRedact {
			cfg.Redact = false
			fmt.Fprintln(os.Stderr, "WARNING: secret redaction is disabled")
		}

		shutdown, err := trace.Init(flagTimings, flagTimingsOut)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		defer shutdown()

		client, err := github.NewClient(cfg.GitHub.Token)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitAuthError
			return nil
		}

		ctx := context.Background()
		cons := console.New(os.Stderr)

		fetchStart := time.Now()
		fetchCtx, fetchSpan := trace.StartSpan(ctx, "fetch")
		raw, err := client.FetchDiff(fetchCtx, ref)
		var meta github.PRMetadata
		if err == nil {
			meta, err = client.FetchMetadata(fetchCtx, ref)
		}
		fetchSpan.End()
		fetchMs := time.Since(fetchStart).Milliseconds()
		if err != nil {
			cons.Errorf("%v", err)
			if github.IsAuthError(err) {
				exitCode = ExitAuthError
			} else {
				exitCode = ExitRuntimeError
			}
			return nil
		}

		cons.StartPRReview(ref.String(), &meta)

		changes := gitctx.DiffResult{
			Diff:  raw,
			Mode:  "pr",
			Range: ref.String(),
			Repo: gitctx.RepoMeta{
				Branch: meta.HeadBranch,
				Head:   meta.HeadSHA,
			},
		}

		report := runEngine(ctx, changes, cfg)
		if report == nil {
			return nil
		}
		report.Inputs.PR = ref.String()
		report.Timing.FetchMs = fetchMs
		report.Timing.TotalMs += fetchMs

		if !writeReport(report, cfg) {
			return nil
		}
		if flagPost {
			if !postReview(ctx, cons, client, ref, report, raw) {
				return nil
			}
		}
		gate(report)
		return nil
	},
}

// postReview publishes the merged findings back to the pull request after a
// confirmation. A false return means posting failed and exitCode is set;
// declining the prompt is not a failure.
func postReview(ctx context.Context, cons *console.Console, client *github.Client, ref github.PRRef, report *review.Report, raw string) bool {
	// Re-parse the raw diff without filters so comment placement sees
	// every file the PR touches.
	files, _ := diff.Parse(raw, diff.FilterPolicy{})
	ghReview := github.BuildReview(review.ReviewResult{
		Findings: report.Findings,
		Summary:  report.Overview,
	}, files)

	if !flagYes {
		ok, err := cons.ConfirmReviewPost(len(ghReview.Comments))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return false
		}
		if !ok {
			cons.Println("Not posting.")
			return true
		}
	}

	cons.PostingComments(len(ghReview.Comments))
	if err := client.PostReview(ctx, ref, ghReview); err != nil {
		cons.Errorf("%v", err)
		if github.IsAuthError(err) {
			exitCode = ExitAuthError
		} else {
			exitCode = ExitRuntimeError
		}
		return false
	}
	cons.Success("Review posted to " + ref.String())
	return true
}

func init() {
	prCmd.Flags().BoolVar(&flagPost, "post", false, "Post the review back to the pull request")
	prCmd.Flags().BoolVar(&flagYes, "yes", false, "Skip the confirmation prompt before posting")
	addConfigFlags(prCmd)
	addRunFlags(prCmd)
}
