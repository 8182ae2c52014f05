package review

import (
	"fmt"
	"path/filepath"
	"strings"
)

const responseContract = `You MUST respond with ONLY a JSON object. No markdown, no explanation, no preamble.

The object has this exact structure:
{
  "findings": [
    {
      "file": "relative/file/path",
      "line": 42,
      "severity": "info|low|medium|high|critical",
      "category": "short category label",
      "message": "What is wrong and why it matters",
      "suggestion": "How to fix it, with code if helpful"
    }
  ],
  "summary": "One short paragraph summarizing the overall state of the change."
}

Line numbers refer to the new-side numbers shown in the diff. Use line 0 for
findings about a whole file and omit the file for findings about the change
as a whole. If there are no issues, return {"findings": [], "summary": "..."}.`

// SystemPrompt combines a reviewer profile's instructions with the shared
// response contract.
func SystemPrompt(p Profile) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(p.Instructions))
	b.WriteString("\n\n")
	if len(p.Categories) > 0 {
		fmt.Fprintf(&b, "Prefer these categories when they fit: %s.\n\n", strings.Join(p.Categories, ", "))
	}
	b.WriteString(responseContract)
	return b.String()
}

// UserPrompt wraps one unit's serialized diff for review.
func UserPrompt(u Unit, maxFindings int) string {
	var b strings.Builder

	b.WriteString("Review the following code changes.\n\n")
	if maxFindings > 0 {
		fmt.Fprintf(&b, "Return at most %d findings.\n", maxFindings)
	}
	if langs := detectLanguages(u.Paths()); len(langs) > 0 {
		fmt.Fprintf(&b, "Languages: %s\n", strings.Join(langs, ", "))
	}
	if u.Truncated {
		b.WriteString("Some oversized files were truncated; review what is shown.\n")
	}

	b.WriteString("\n--- BEGIN DIFF ---\n")
	b.WriteString(u.Text)
	b.WriteString("--- END DIFF ---\n")

	return b.String()
}

func detectLanguages(files []string) []string {
	langMap := map[string]string{
		".go":    "Go",
		".py":    "Python",
		".js":    "JavaScript",
		".ts":    "TypeScript",
		".tsx":   "TypeScript/React",
		".jsx":   "JavaScript/React",
		".rs":    "Rust",
		".java":  "Java",
		".rb":    "Ruby",
		".cpp":   "C++",
		".c":     "C",
		".h":     "C/C++",
		".cs":    "C#",
		".php":   "PHP",
		".swift": "Swift",
		".kt":    "Kotlin",
		".sql":   "SQL",
		".sh":    "Shell",
		".yaml":  "YAML",
		".yml":   "YAML",
		".tf":    "Terraform",
	}

	seen := make(map[string]bool)
	var langs []string
	for _, f := range files {
		lang, ok := langMap[strings.ToLower(filepath.Ext(f))]
		if ok && !seen[lang] {
			seen[lang] = true
			langs = append(langs, lang)
		}
	}
	return langs
}
