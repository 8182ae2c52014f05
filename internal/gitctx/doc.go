// Package gitctx collects the change set a review run operates on.
//
// It supports five input modes (unstaged, staged, commit, range, and a
// pre-computed diff read from a file) by shelling out to git with appropriate
// arguments. Every mode produces a DiffResult carrying the raw unified diff,
// the touched file list, and repository metadata.
//
// The raw diff is returned untouched: path filtering and size limits are
// applied downstream when the diff is parsed.
package gitctx
