// Package review is the orchestration core: it turns a change set into a
// merged, deduplicated report produced by a panel of AI reviewers running
// concurrently.
//
// A run parses the raw diff into per-file changes, groups them into
// bounded-size units, and fans every configured reviewer profile out over
// those units with bounded concurrency. A pass is generic over its Profile
// (role instructions plus category taxonomy), so adding a reviewer role is
// configuration, not code. Individual reviewer failures are recorded per
// slot rather than aborting the run; the run fails only when no reviewer
// produces a usable result.
//
// Findings from the surviving passes are consolidated by line proximity
// and message similarity, attributed to every reviewer that raised them,
// ordered by severity, and capped. A pure publish decision compares the
// merged result against the configured severity threshold; the caller
// owns acting on it.
package review
