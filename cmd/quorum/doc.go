// Quorum is a CLI that reviews code changes with a panel of specialized AI
// reviewers running concurrently.
//
// It reviews unstaged, staged, commit, range, and file-based diffs as well
// as GitHub pull requests, merges findings across reviewers, and emits
// structured reports with deterministic exit codes suitable for CI gating
// and git hooks.
//
// Usage:
//
//	quorum review                       # review working tree changes
//	quorum review --staged              # review staged changes
//	quorum review --commit <sha>        # review a specific commit
//	quorum review --range origin/main..HEAD
//	quorum pr owner/repo#42 --post      # review a pull request and post findings
//
// See https://github.com/quorumhq/quorum for full documentation.
package main
