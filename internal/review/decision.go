package review

// CountAtOrAbove returns how many findings meet or exceed the severity
// threshold. A "none" or empty threshold matches nothing.
func CountAtOrAbove(findings []Finding, threshold Severity) int {
	n := 0
	for _, f := range findings {
		if MeetsThreshold(f.Severity, threshold) {
			n++
		}
	}
	return n
}

// ShouldPublish reports whether a merged result carries at least one
// finding at or above the minimum severity. The decision is pure: callers
// handle the actual posting and its failures.
func ShouldPublish(result ReviewResult, minSeverity Severity) bool {
	return CountAtOrAbove(result.Findings, minSeverity) > 0
}
