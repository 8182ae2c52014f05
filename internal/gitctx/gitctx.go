package gitctx

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

var logger = log.WithField("package", "gitctx")

// DiffOptions controls how diffs are gathered.
type DiffOptions struct {
	// ContextLines is passed to git as -U<n>. Zero keeps git's default.
	ContextLines int
}

// DiffResult holds the collected change set and metadata.
type DiffResult struct {
	Diff  string
	Files []string
	Mode  string
	Range string
	Repo  RepoMeta
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string
	Head   string
	Branch string
	Remote string
}

// GetRepoMeta collects repository metadata from git.
func GetRepoMeta() (RepoMeta, error) {
	root, err := gitOutput("rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("not a git repository: %w", err)
	}
	head, err := gitOutput("rev-parse", "HEAD")
	if err != nil {
		head = "" // new repo with no commits
	}
	branch, err := gitOutput("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = ""
	}
	remote, err := gitOutput("remote", "get-url", "origin")
	if err != nil {
		remote = ""
	}
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
		Remote: strings.TrimSpace(remote),
	}, nil
}

// Unstaged returns the diff of working tree vs index.
func Unstaged(opts DiffOptions) (DiffResult, error) {
	diff, err := gitOutput(append([]string{"diff"}, buildDiffArgs(opts)...)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff: %w", err)
	}
	return buildResult(diff, "unstaged", ""), nil
}

// Staged returns the diff of index vs HEAD.
func Staged(opts DiffOptions) (DiffResult, error) {
	diff, err := gitOutput(append([]string{"diff", "--cached"}, buildDiffArgs(opts)...)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff --cached: %w", err)
	}
	return buildResult(diff, "staged", ""), nil
}

// Commit returns the diff for a specific commit vs its parent. A non-empty
// parent overrides the default first-parent comparison (merge commits).
func Commit(sha string, parent string, opts DiffOptions) (DiffResult, error) {
	args := buildDiffArgs(opts)
	if parent != "" {
		diff, err := gitOutput(append([]string{"diff", parent, sha}, args...)...)
		if err != nil {
			return DiffResult{}, fmt.Errorf("git diff %s %s: %w", parent, sha, err)
		}
		return buildResult(diff, "commit", sha), nil
	}
	diff, err := gitOutput(append([]string{"diff", sha + "~1", sha}, args...)...)
	if err != nil {
		// Might be the initial commit, fall back to show.
		diff, err = gitOutput("show", "--format=", sha)
		if err != nil {
			return DiffResult{}, fmt.Errorf("git show %s: %w", sha, err)
		}
	}
	return buildResult(diff, "commit", sha), nil
}

// Range returns the combined diff for a revision range. With mergeBase set,
// "A..B" becomes "A...B" so the comparison starts at the merge base.
func Range(revRange string, mergeBase bool, opts DiffOptions) (DiffResult, error) {
	diffRange := revRange
	if mergeBase && strings.Contains(revRange, "..") && !strings.Contains(revRange, "...") {
		diffRange = strings.Replace(revRange, "..", "...", 1)
	}
	diff, err := gitOutput(append([]string{"diff", diffRange}, buildDiffArgs(opts)...)...)
	if err != nil {
		return DiffResult{}, fmt.Errorf("git diff %s: %w", revRange, err)
	}
	return buildResult(diff, "range", revRange), nil
}

// FromFile reads a pre-computed unified diff from disk. Repository metadata
// is filled when the working directory is a repo, but is not required.
func FromFile(path string) (DiffResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DiffResult{}, fmt.Errorf("reading diff file: %w", err)
	}
	return buildResult(string(data), "file", path), nil
}

func buildDiffArgs(opts DiffOptions) []string {
	var args []string
	if opts.ContextLines > 0 {
		args = append(args, fmt.Sprintf("-U%d", opts.ContextLines))
	}
	return args
}

func buildResult(diff, mode, rangeStr string) DiffResult {
	meta, err := GetRepoMeta()
	if err != nil {
		meta = RepoMeta{}
	}
	files := extractFiles(diff)
	logger.WithFields(log.Fields{
		"mode":  mode,
		"files": len(files),
		"bytes": len(diff),
	}).Debug("collected change set")
	return DiffResult{
		Diff:  diff,
		Files: files,
		Mode:  mode,
		Range: rangeStr,
		Repo:  meta,
	}
}

func extractFiles(diff string) []string {
	var files []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "+++ b/") {
			f := strings.TrimPrefix(line, "+++ b/")
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	return files
}

func gitOutput(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(out), fmt.Errorf("%s: %s", err, string(exitErr.Stderr))
		}
		return "", err
	}
	return string(out), nil
}
