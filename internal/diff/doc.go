// Package diff parses unified diff text into structured per-file change
// units.
//
// The parser recognizes git-style diffs (diff --git sections with extended
// headers, renames, and binary markers) as well as plain unified diffs that
// begin directly with ---/+++ file headers. Each file section becomes a
// FileDiff holding ordered hunks of line edits with both old and new line
// numbers.
//
// Files are filtered through a FilterPolicy (blocked extensions, filenames,
// directory prefixes, and a per-file size cap) before parsing; skipped files
// are reported in ParseStats rather than silently dropped. A file section
// whose headers promise content but carry no parseable hunk is recorded as a
// MalformedDiffError and skipped without aborting the rest of the diff.
//
// CommentableLines and NearestValidLine map findings back to new-side line
// numbers that a hosting platform will accept inline comments on.
package diff
