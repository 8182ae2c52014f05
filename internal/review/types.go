package review

// Severity represents the severity level of a finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// NormalizeSeverity maps free-form severity labels from reviewer responses
// onto the fixed taxonomy. Unknown labels degrade to info rather than being
// dropped.
func NormalizeSeverity(raw string) Severity {
	switch Severity(raw) {
	case SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(raw)
	}
	switch raw {
	case "warning", "warn", "moderate":
		return SeverityMedium
	case "error", "major", "severe":
		return SeverityHigh
	case "blocker", "fatal":
		return SeverityCritical
	case "minor", "trivial":
		return SeverityLow
	case "note", "notice":
		return SeverityInfo
	default:
		return SeverityInfo
	}
}

// MeetsThreshold returns true if severity is at or above the threshold.
// A "none" or empty threshold never matches.
func MeetsThreshold(s Severity, threshold Severity) bool {
	if threshold == "none" || threshold == "" {
		return false
	}
	return SeverityRank(s) >= SeverityRank(threshold)
}

// Finding represents a single reported issue. File may be empty when the
// finding concerns the change set as a whole; Line is 0 for file-level
// findings. Immutable once produced by a pass.
type Finding struct {
	File       string   `json:"file,omitempty"`
	Line       int      `json:"line,omitempty"`
	Severity   Severity `json:"severity"`
	Category   string   `json:"category"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
	Reviewer   string   `json:"reviewer"`
}

// ReviewResult is an ordered sequence of findings plus the reviewer's
// free-text summary. Merge steps produce new values; results are never
// mutated in place.
type ReviewResult struct {
	Findings []Finding `json:"findings"`
	Summary  string    `json:"summary,omitempty"`
}

// RepoInfo contains repository metadata.
type RepoInfo struct {
	Root   string `json:"root,omitempty"`
	Head   string `json:"head,omitempty"`
	Branch string `json:"branch,omitempty"`
	Remote string `json:"remote,omitempty"`
}

// InputInfo describes what was reviewed.
type InputInfo struct {
	Mode  string `json:"mode"`
	Range string `json:"range,omitempty"`
	PR    string `json:"pr,omitempty"`
}

// SeverityCounts holds counts by severity level.
type SeverityCounts struct {
	Info     int `json:"info"`
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

// Summary provides an overview of merged findings.
type Summary struct {
	Counts          SeverityCounts `json:"counts"`
	HighestSeverity Severity       `json:"highestSeverity,omitempty"`
}

// ReviewerStatus records how one configured reviewer fared.
type ReviewerStatus struct {
	Name        string `json:"name"`
	Findings    int    `json:"findings"`
	FailedUnits int    `json:"failedUnits,omitempty"`
	Error       string `json:"error,omitempty"`
}

// RunStats summarizes the shape of the run.
type RunStats struct {
	FilesReviewed     int `json:"filesReviewed"`
	FilesSkipped      int `json:"filesSkipped"`
	MalformedSections int `json:"malformedSections"`
	Units             int `json:"units"`
	TruncatedUnits    int `json:"truncatedUnits"`
	Reviewers         int `json:"reviewers"`
	FailedReviewers   int `json:"failedReviewers"`
}

// Timing contains performance metrics.
type Timing struct {
	FetchMs int64 `json:"fetchMs,omitempty"`
	ParseMs int64 `json:"parseMs"`
	LLMMs   int64 `json:"llmMs"`
	TotalMs int64 `json:"totalMs"`
}

// Report is the top-level output structure of one review run.
type Report struct {
	Tool      string           `json:"tool"`
	Version   string           `json:"version"`
	RunID     string           `json:"runId"`
	Repo      RepoInfo         `json:"repo"`
	Inputs    InputInfo        `json:"inputs"`
	Summary   Summary          `json:"summary"`
	Findings  []Finding        `json:"findings"`
	Overview  string           `json:"overview,omitempty"`
	Reviewers []ReviewerStatus `json:"reviewers"`
	Stats     RunStats         `json:"stats"`
	Timing    Timing           `json:"timing"`
	Publish   bool             `json:"publish"`
}

// ComputeSummary calculates the summary from findings.
func ComputeSummary(findings []Finding) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Severity {
		case SeverityInfo:
			s.Counts.Info++
		case SeverityLow:
			s.Counts.Low++
		case SeverityMedium:
			s.Counts.Medium++
		case SeverityHigh:
			s.Counts.High++
		case SeverityCritical:
			s.Counts.Critical++
		}
		if SeverityRank(f.Severity) > SeverityRank(s.HighestSeverity) {
			s.HighestSeverity = f.Severity
		}
	}
	return s
}
