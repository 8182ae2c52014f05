package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/logrusorgru/aurora"

	"github.com/quorumhq/quorum/internal/review"
)

// TextWriter outputs a human-readable text report. Color is off unless the
// caller enables it; WriteReport turns it on when stdout is a terminal.
type TextWriter struct {
	Color bool
}

var severityOrder = []review.Severity{
	review.SeverityCritical,
	review.SeverityHigh,
	review.SeverityMedium,
	review.SeverityLow,
	review.SeverityInfo,
}

func (t *TextWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}

	// Summary header
	c := report.Summary.Counts
	total := c.Critical + c.High + c.Medium + c.Low + c.Info
	ew.printf("Quorum Code Review — %s mode\n", report.Inputs.Mode)
	if report.Inputs.Range != "" {
		ew.printf("Range: %s\n", report.Inputs.Range)
	}
	if report.Inputs.PR != "" {
		ew.printf("Pull request: %s\n", report.Inputs.PR)
	}
	if report.Repo.Root != "" {
		ew.printf("Repository: %s (branch: %s)\n", report.Repo.Root, report.Repo.Branch)
	}
	ew.println(strings.Repeat("─", 60))
	ew.printf("Findings: %d total", total)
	if total > 0 {
		ew.printf(" (%d critical, %d high, %d medium, %d low, %d info)",
			c.Critical, c.High, c.Medium, c.Low, c.Info)
	}
	ew.println("")
	ew.println(strings.Repeat("─", 60))

	if total == 0 {
		ew.println("\nNo issues found. Looks good!")
	}

	// Group by severity (critical first), then by file
	grouped := groupBySeverity(report.Findings)
	for _, sev := range severityOrder {
		findings := grouped[sev]
		if len(findings) == 0 {
			continue
		}

		ew.printf("\n%s\n", t.severityHeading(sev))
		ew.println(strings.Repeat("─", 40))

		// Sort by file path, then line, within severity
		sort.Slice(findings, func(i, j int) bool {
			if findings[i].File != findings[j].File {
				return findings[i].File < findings[j].File
			}
			return findings[i].Line < findings[j].Line
		})

		for _, f := range findings {
			ew.printf("\n  %s\n", t.location(f))
			ew.printf("  Category: %s | Reviewer: %s\n", f.Category, f.Reviewer)

			// Message (indented, wrapped)
			for _, line := range wrapText(f.Message, 70) {
				ew.printf("    %s\n", line)
			}

			// Suggestion
			if f.Suggestion != "" {
				ew.println("  Suggestion:")
				for _, line := range wrapText(f.Suggestion, 70) {
					ew.printf("    %s\n", line)
				}
			}
		}
	}

	if report.Overview != "" {
		ew.println("\nReviewer notes:")
		for _, line := range strings.Split(strings.TrimSpace(report.Overview), "\n") {
			for _, wrapped := range wrapText(line, 70) {
				ew.printf("  %s\n", wrapped)
			}
		}
	}

	if len(report.Reviewers) > 0 {
		ew.println("\nReviewers:")
		for _, r := range report.Reviewers {
			line := fmt.Sprintf("  %s: %d finding(s)", r.Name, r.Findings)
			if r.FailedUnits > 0 {
				line += fmt.Sprintf(", %d unit(s) failed", r.FailedUnits)
			}
			if r.Error != "" {
				line += fmt.Sprintf(" (failed: %s)", r.Error)
			}
			ew.println(line)
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	if report.Stats.FilesSkipped > 0 {
		ew.printf("Reviewed %d file(s) in %d unit(s); %d skipped by filters\n",
			report.Stats.FilesReviewed, report.Stats.Units, report.Stats.FilesSkipped)
	} else {
		ew.printf("Reviewed %d file(s) in %d unit(s)\n",
			report.Stats.FilesReviewed, report.Stats.Units)
	}
	if report.Timing.FetchMs > 0 {
		ew.printf("Completed in %dms (fetch: %dms, parse: %dms, LLM: %dms)\n",
			report.Timing.TotalMs, report.Timing.FetchMs, report.Timing.ParseMs, report.Timing.LLMMs)
	} else {
		ew.printf("Completed in %dms (parse: %dms, LLM: %dms)\n",
			report.Timing.TotalMs, report.Timing.ParseMs, report.Timing.LLMMs)
	}

	return ew.err
}

// severityHeading renders the section header for one severity group,
// colored when the writer has color enabled.
func (t *TextWriter) severityHeading(s review.Severity) string {
	label := fmt.Sprintf("%s %s", severityIcon(s), strings.ToUpper(string(s)))
	if !t.Color {
		return label
	}
	switch s {
	case review.SeverityCritical:
		return aurora.Red(label).Bold().String()
	case review.SeverityHigh:
		return aurora.Red(label).String()
	case review.SeverityMedium:
		return aurora.Yellow(label).String()
	case review.SeverityLow:
		return aurora.Cyan(label).String()
	default:
		return aurora.Blue(label).String()
	}
}

// location renders where a finding points. Findings without a file concern
// the change set as a whole; line 0 means the file as a whole.
func (t *TextWriter) location(f review.Finding) string {
	var loc string
	switch {
	case f.File == "":
		loc = "(change set)"
	case f.Line == 0:
		loc = f.File
	default:
		loc = fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	if t.Color {
		return aurora.Bold(loc).String()
	}
	return loc
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func groupBySeverity(findings []review.Finding) map[review.Severity][]review.Finding {
	m := make(map[review.Severity][]review.Finding)
	for _, f := range findings {
		m[f.Severity] = append(m[f.Severity], f)
	}
	return m
}

func severityIcon(s review.Severity) string {
	switch s {
	case review.SeverityCritical:
		return "[!!!]"
	case review.SeverityHigh:
		return "[!!]"
	case review.SeverityMedium:
		return "[!]"
	case review.SeverityLow:
		return "[-]"
	case review.SeverityInfo:
		return "[i]"
	default:
		return "[?]"
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
