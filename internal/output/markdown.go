package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/quorumhq/quorum/internal/review"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *review.Report) error {
	c := report.Summary.Counts
	total := c.Critical + c.High + c.Medium + c.Low + c.Info

	// Heading
	fmt.Fprintf(w, "## Quorum Code Review\n\n")

	if report.Overview != "" {
		fmt.Fprintf(w, "%s\n\n", strings.TrimSpace(report.Overview))
	}

	// Summary table
	fmt.Fprintf(w, "| Severity | Count |\n")
	fmt.Fprintf(w, "|----------|-------|\n")
	fmt.Fprintf(w, "| Critical | %d    |\n", c.Critical)
	fmt.Fprintf(w, "| High     | %d    |\n", c.High)
	fmt.Fprintf(w, "| Medium   | %d    |\n", c.Medium)
	fmt.Fprintf(w, "| Low      | %d    |\n", c.Low)
	fmt.Fprintf(w, "| Info     | %d    |\n", c.Info)
	fmt.Fprintf(w, "| **Total** | **%d** |\n\n", total)

	if total == 0 {
		fmt.Fprintln(w, "No issues found. :white_check_mark:")
		return nil
	}

	// Collapsible sections by severity
	grouped := groupBySeverity(report.Findings)
	for _, sev := range severityOrder {
		findings := grouped[sev]
		if len(findings) == 0 {
			continue
		}

		icon := mdSeverityIcon(sev)
		label := strings.ToUpper(string(sev))

		fmt.Fprintf(w, "<details>\n<summary>%s %s (%d)</summary>\n\n", icon, label, len(findings))

		// Sort by file path, then line, within severity
		sort.Slice(findings, func(i, j int) bool {
			if findings[i].File != findings[j].File {
				return findings[i].File < findings[j].File
			}
			return findings[i].Line < findings[j].Line
		})

		for _, f := range findings {
			fmt.Fprintf(w, "**`%s`** | %s | flagged by %s\n\n",
				mdLocation(f), f.Category, f.Reviewer)
			fmt.Fprintf(w, "%s\n\n", f.Message)

			if f.Suggestion != "" {
				fmt.Fprintf(w, "**Suggestion:**\n\n")
				// Wrap suggestion in code fence if it looks like code
				if looksLikeCode(f.Suggestion) {
					lang := inferLang(f.File)
					fmt.Fprintf(w, "```%s\n%s\n```\n\n", lang, f.Suggestion)
				} else {
					fmt.Fprintf(w, "> %s\n\n", strings.ReplaceAll(f.Suggestion, "\n", "\n> "))
				}
			}

			fmt.Fprintf(w, "---\n\n")
		}

		fmt.Fprintf(w, "</details>\n\n")
	}

	// Partial results are called out so a clean-looking comment cannot hide
	// a reviewer that never reported.
	var failed []string
	for _, r := range report.Reviewers {
		if r.Error != "" {
			failed = append(failed, r.Name)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintf(w, "> :warning: Reviewer(s) failed and contributed no findings: %s\n\n",
			strings.Join(failed, ", "))
	}

	// Timing footer
	if report.Timing.FetchMs > 0 {
		fmt.Fprintf(w, "*Reviewed in %dms (fetch: %dms, parse: %dms, LLM: %dms)*\n",
			report.Timing.TotalMs, report.Timing.FetchMs, report.Timing.ParseMs, report.Timing.LLMMs)
	} else {
		fmt.Fprintf(w, "*Reviewed in %dms (parse: %dms, LLM: %dms)*\n",
			report.Timing.TotalMs, report.Timing.ParseMs, report.Timing.LLMMs)
	}

	return nil
}

func mdLocation(f review.Finding) string {
	switch {
	case f.File == "":
		return "change set"
	case f.Line == 0:
		return f.File
	default:
		return fmt.Sprintf("%s:%d", f.File, f.Line)
	}
}

func mdSeverityIcon(s review.Severity) string {
	switch s {
	case review.SeverityCritical:
		return ":red_circle:"
	case review.SeverityHigh:
		return ":orange_circle:"
	case review.SeverityMedium:
		return ":yellow_circle:"
	case review.SeverityLow:
		return ":large_blue_circle:"
	default:
		return ":white_circle:"
	}
}

func looksLikeCode(s string) bool {
	codeIndicators := []string{
		"func ", "if ", "for ", "return ", "var ", "const ",
		"def ", "class ", "import ", "from ",
		"{", "}", "=>", "->", ":=", "==",
		"()", "[];",
	}
	for _, indicator := range codeIndicators {
		if strings.Contains(s, indicator) {
			return true
		}
	}
	return false
}

func inferLang(path string) string {
	langMap := map[string]string{
		".go":   "go",
		".py":   "python",
		".js":   "javascript",
		".ts":   "typescript",
		".tsx":  "tsx",
		".jsx":  "jsx",
		".rs":   "rust",
		".java": "java",
		".rb":   "ruby",
		".cpp":  "cpp",
		".c":    "c",
		".cs":   "csharp",
		".php":  "php",
		".sh":   "bash",
		".sql":  "sql",
		".yaml": "yaml",
		".yml":  "yaml",
		".json": "json",
		".tf":   "hcl",
	}
	for ext, lang := range langMap {
		if strings.HasSuffix(path, ext) {
			return lang
		}
	}
	return ""
}
