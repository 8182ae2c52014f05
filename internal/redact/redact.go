package redact

import (
	"path/filepath"
	"regexp"
	"strings"
)

const placeholder = "[REDACTED]"

// secretPatterns are regex heuristics for common secret types.
var secretPatterns = []*regexp.Regexp{
	// Generic API keys (long hex/base64 strings after common key patterns)
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`),
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// AWS secret access keys
	regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`),
	// Generic secrets/tokens/passwords in assignments
	regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWTs (three base64 segments separated by dots)
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	// Private key blocks
	regexp.MustCompile(`-----BEGIN\s+(RSA\s+)?PRIVATE KEY-----`),
	// GitHub tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	// Slack tokens
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	// Anthropic API keys
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),
	// OpenAI API keys
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
	// Generic long hex strings that look like secrets (32+ chars in an assignment)
	regexp.MustCompile(`(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`),
}

// sensitivePatterns match file names whose entire contents are masked
// instead of pattern-scanned. Values in these files are secrets by
// convention even when they do not look like one.
var sensitivePatterns = []string{
	".env", ".env.*",
	"*.pem", "*.key", "*.p12", "*.pfx", "*.keystore",
	"id_rsa", "id_dsa", "id_ecdsa", "id_ed25519",
	".netrc", ".npmrc", ".pypirc",
	"credentials", "htpasswd",
}

// Secrets replaces detected secrets in text with [REDACTED].
func Secrets(text string) string {
	result := text
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllStringFunc(result, func(match string) string {
			return placeholder
		})
	}
	return result
}

// SensitivePath reports whether the file name of path is a known secret
// carrier such as .env or a private key file.
func SensitivePath(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range sensitivePatterns {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}

// Diff redacts a unified diff line by line so the structural markers
// survive: headers and hunk lines pass through, content lines keep their
// leading +/-/space and have their text scanned. Content lines belonging
// to a sensitive file are masked entirely, secret-shaped or not.
func Diff(diff string) string {
	lines := strings.Split(diff, "\n")
	sensitive := false
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "diff --git"):
			sensitive = false
		case strings.HasPrefix(line, "--- a/"):
			if SensitivePath(strings.TrimPrefix(line, "--- a/")) {
				sensitive = true
			}
		case strings.HasPrefix(line, "+++ b/"):
			if SensitivePath(strings.TrimPrefix(line, "+++ b/")) {
				sensitive = true
			}
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "@@"):
			// /dev/null sides and hunk headers pass through.
		case line != "" && (line[0] == '+' || line[0] == '-' || line[0] == ' '):
			marker, content := line[:1], line[1:]
			if sensitive {
				if strings.TrimSpace(content) != "" {
					lines[i] = marker + placeholder
				}
			} else {
				lines[i] = marker + Secrets(content)
			}
		default:
			lines[i] = Secrets(line)
		}
	}
	return strings.Join(lines, "\n")
}
