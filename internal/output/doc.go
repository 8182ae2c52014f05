// Package output formats review reports for display or machine consumption.
//
// Four formats are supported:
//   - text: human-readable terminal output (default), colored on a TTY
//   - json: full structured JSON report
//   - markdown: PR-comment-friendly with collapsible sections per severity
//   - sarif: SARIF v2.1.0 for upload to GitHub code scanning and other CI tools
//
// Use [GetWriter] to obtain a [Writer] for a given format string, then call
// its Write method with an [io.Writer] and a [*review.Report]. [WriteReport]
// is the convenience entry point the CLI uses: it picks stdout or a file and
// enables color only for terminal text output.
package output
