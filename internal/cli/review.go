package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/quorumhq/quorum/internal/config"
	"github.com/quorumhq/quorum/internal/console"
	"github.com/quorumhq/quorum/internal/gitctx"
	"github.com/quorumhq/quorum/internal/output"
	"github.com/quorumhq/quorum/internal/providers"
	"github.com/quorumhq/quorum/internal/review"
	"github.com/quorumhq/quorum/internal/trace"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Change-set selection flags. The mode flags are mutually exclusive;
// unstaged is the default.
var (
	flagUnstaged     bool
	flagStaged       bool
	flagCommit       string
	flagRange        string
	flagDiffFile     string
	flagParent       string
	flagMergeBase    bool
	flagContextLines int
)

// Configuration override flags, shared by review and pr. Only flags the
// user actually set are pushed into the configuration.
var (
	flagProfiles    string
	flagOutput      string
	flagMinSeverity string
	flagConcurrency int
	flagMaxFindings int
	flagProvider    string
	flagModel       string
)

// Run behavior flags.
var (
	flagOut        string
	flagTimings    bool
	flagTimingsOut string
	flagNoRedact   bool
	flagFailOnAny  bool
)

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagProfiles, "profiles", "", "Reviewer profiles to run (comma-separated)")
	cmd.Flags().StringVar(&flagOutput, "output", "", "Output format (text, json, markdown, sarif)")
	cmd.Flags().StringVar(&flagMinSeverity, "min-severity", "", "Publish threshold (none, info, low, medium, high, critical)")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Maximum concurrent reviewer calls")
	cmd.Flags().IntVar(&flagMaxFindings, "max-findings", 0, "Cap on reported findings")
	cmd.Flags().StringVar(&flagProvider, "provider", "", "Inference provider (anthropic, openai, gemini, ollama, mock)")
	cmd.Flags().StringVar(&flagModel, "model", "", "Model name")
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagOut, "out", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&flagTimings, "timings", false, "Record per-stage timing spans")
	cmd.Flags().StringVar(&flagTimingsOut, "timings-out", "quorum-timings.json", "Timing report path (with --timings)")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	cmd.Flags().BoolVar(&flagFailOnAny, "fail-on-findings", false, "Exit 1 on any finding, regardless of severity")
}

// applyFlagOverrides pushes explicitly-set flags into viper so they win
// over file and environment values when the configuration is loaded.
func applyFlagOverrides(cmd *cobra.Command) {
	if cmd.Flags().Changed("profiles") {
		viper.Set("profiles", splitComma(flagProfiles))
	}
	if cmd.Flags().Changed("output") {
		viper.Set("output", flagOutput)
	}
	if cmd.Flags().Changed("min-severity") {
		viper.Set("min_severity", flagMinSeverity)
	}
	if cmd.Flags().Changed("concurrency") {
		viper.Set("concurrency", flagConcurrency)
	}
	if cmd.Flags().Changed("max-findings") {
		viper.Set("max_findings", flagMaxFindings)
	}
	if cmd.Flags().Changed("provider") {
		viper.Set("provider", flagProvider)
	}
	if cmd.Flags().Changed("model") {
		viper.Set("model", flagModel)
	}
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// resolveChanges reads the selected change set. Unstaged is the default
// when no mode flag is given.
func resolveChanges() (gitctx.DiffResult, error) {
	opts := gitctx.DiffOptions{ContextLines: flagContextLines}
	switch {
	case flagDiffFile != "":
		return gitctx.FromFile(flagDiffFile)
	case flagCommit != "":
		return gitctx.Commit(flagCommit, flagParent, opts)
	case flagRange != "":
		return gitctx.Range(flagRange, flagMergeBase, opts)
	case flagStaged:
		return gitctx.Staged(opts)
	default:
		return gitctx.Unstaged(opts)
	}
}

// runEngine executes the reviewer panel with a progress spinner on stderr.
// A nil return means the failure was already reported and exitCode set.
func runEngine(ctx context.Context, changes gitctx.DiffResult, cfg config.Config) *review.Report {
	cons := console.New(os.Stderr)

	var report *review.Report
	err := cons.WithSpinner(ctx, "Reviewing changes", func() error {
		var runErr error
		report, runErr = review.RunWith(ctx, changes, cfg, review.RunOptions{
			Progress: func(done, total int) {
				cons.UpdateSpinnerMessage(fmt.Sprintf("Reviewing (%d/%d passes)", done, total))
			},
		})
		return runErr
	})
	if err != nil {
		cons.Errorf("%v", err)
		if providers.IsAuthError(err) {
			exitCode = ExitAuthError
		} else {
			exitCode = ExitRuntimeError
		}
		return nil
	}
	return report
}

// writeReport renders the report to the configured format and destination.
// A false return means the failure was already reported and exitCode set.
func writeReport(report *review.Report, cfg config.Config) bool {
	if err := output.WriteReport(report, cfg.Output, flagOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		exitCode = ExitRuntimeError
		return false
	}
	return true
}

// gate applies the exit policy: fail when the publish decision fired, or on
// any finding at all under --fail-on-findings.
func gate(report *review.Report) {
	if flagFailOnAny && len(report.Findings) > 0 {
		exitCode = ExitFindings
		return
	}
	if report.Publish {
		exitCode = ExitFindings
	}
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review local code changes",
	Long:  "Review a local change set with the configured reviewer panel. By default the working tree (unstaged changes) is reviewed.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		ctx := context.Background()
		_, acquireSpan := trace.StartSpan(ctx, "acquire")
		changes, err := resolveChanges()
		acquireSpan.End()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		report := runEngine(ctx, changes, cfg)
		if report == nil {
			return nil
		}
		if !writeReport(report, cfg) {
			return nil
		}
		gate(report)
		return nil
	},
}

func init() {
	f := reviewCmd.Flags()
	f.BoolVar(&flagUnstaged, "unstaged", false, "Review working tree changes (default)")
	f.BoolVar(&flagStaged, "staged", false, "Review staged changes (index vs HEAD)")
	f.StringVar(&flagCommit, "commit", "", "Review a specific commit SHA")
	f.StringVar(&flagRange, "range", "", "Review a revision range (e.g. origin/main..HEAD)")
	f.StringVar(&flagDiffFile, "diff", "", "Review a unified diff read from a file")
	f.StringVar(&flagParent, "parent", "", "Override parent SHA for --commit (merge commits)")
	f.BoolVar(&flagMergeBase, "merge-base", true, "Use the merge base for --range comparisons")
	f.IntVar(&flagContextLines, "context-lines", 0, "Number of context lines in the diff")
	reviewCmd.MarkFlagsMutuallyExclusive("unstaged", "staged", "commit", "range", "diff")

	addConfigFlags(reviewCmd)
	addRunFlags(reviewCmd)
}
