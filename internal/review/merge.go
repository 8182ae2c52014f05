package review

import (
	"sort"
	"strings"
)

// MergeOptions tune duplicate grouping.
type MergeOptions struct {
	// LineWindow is the largest distance between line numbers at which two
	// findings can still describe the same issue.
	LineWindow int
	// Similarity is the minimum message token-overlap ratio,
	// overlap / min(set sizes) over lowercased alphanumeric tokens.
	Similarity float64
}

// DefaultMergeOptions groups findings within two lines whose messages share
// at least half their tokens.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{LineWindow: 2, Similarity: 0.5}
}

func (o MergeOptions) normalized() MergeOptions {
	if o.LineWindow <= 0 {
		o.LineWindow = 2
	}
	if o.Similarity <= 0 {
		o.Similarity = 0.5
	}
	return o
}

// Merge consolidates per-reviewer results into one deduplicated result.
// Findings that describe the same issue (same file, nearby lines, similar
// message) collapse into one finding carrying the group's highest severity
// and the union of its category labels. Grouping and output order are both
// independent of input arrival order; summaries join in input order.
func Merge(results []ReviewResult, opts MergeOptions) ReviewResult {
	opts = opts.normalized()

	var all []Finding
	var summaries []string
	for _, r := range results {
		all = append(all, r.Findings...)
		if s := strings.TrimSpace(r.Summary); s != "" {
			summaries = append(summaries, s)
		}
	}

	merged := ReviewResult{Summary: strings.Join(summaries, "\n")}
	if len(all) == 0 {
		return merged
	}

	// Canonical pre-sort makes grouping independent of arrival order.
	sort.SliceStable(all, func(i, j int) bool { return canonicalLess(all[i], all[j]) })

	var groups [][]Finding
	for _, f := range all {
		placed := false
		for gi := range groups {
			if groupMatches(groups[gi], f, opts) {
				groups[gi] = append(groups[gi], f)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []Finding{f})
		}
	}

	out := make([]Finding, 0, len(groups))
	for _, group := range groups {
		out = append(out, collapse(group))
	}
	sort.SliceStable(out, func(i, j int) bool { return reportLess(out[i], out[j]) })

	merged.Findings = out
	return merged
}

// canonicalLess orders findings by (file, line, severity rank desc,
// reviewer, message). This is the grouping order, not the report order.
func canonicalLess(a, b Finding) bool {
	if a.File != b.File {
		return a.File < b.File
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	ra, rb := SeverityRank(a.Severity), SeverityRank(b.Severity)
	if ra != rb {
		return ra > rb
	}
	if a.Reviewer != b.Reviewer {
		return a.Reviewer < b.Reviewer
	}
	return a.Message < b.Message
}

// reportLess orders the merged report: path, then line (file-level findings
// first, whole-diff findings before any file), then severity high to low.
func reportLess(a, b Finding) bool {
	if a.File != b.File {
		return a.File < b.File
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	ra, rb := SeverityRank(a.Severity), SeverityRank(b.Severity)
	if ra != rb {
		return ra > rb
	}
	if a.Message != b.Message {
		return a.Message < b.Message
	}
	return a.Reviewer < b.Reviewer
}

func groupMatches(group []Finding, f Finding, opts MergeOptions) bool {
	for _, g := range group {
		if sameIssue(g, f, opts) {
			return true
		}
	}
	return false
}

// sameIssue decides whether two findings describe one problem. Files must
// match exactly. File-level findings (line 0) skip the line distance check,
// which leaves whole-diff findings (no file) compared by message alone.
func sameIssue(a, b Finding, opts MergeOptions) bool {
	if a.File != b.File {
		return false
	}
	if a.Line != 0 && b.Line != 0 {
		d := a.Line - b.Line
		if d < 0 {
			d = -d
		}
		if d > opts.LineWindow {
			return false
		}
	}
	return messageSimilar(a.Message, b.Message, opts.Similarity)
}

// messageSimilar compares lowercased alphanumeric token sets: the overlap
// divided by the smaller set size must reach the threshold.
func messageSimilar(a, b string, threshold float64) bool {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}

	overlap := 0
	for w := range ta {
		if tb[w] {
			overlap++
		}
	}
	smaller := len(ta)
	if len(tb) < smaller {
		smaller = len(tb)
	}
	return float64(overlap)/float64(smaller) >= threshold
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			set[b.String()] = true
			b.Reset()
		}
	}
	if b.Len() > 0 {
		set[b.String()] = true
	}
	return set
}

// collapse reduces a group to one finding. The representative has the
// highest severity, ties broken by reviewer tag, then message, then line.
// Category and Reviewer become the sorted union of the group's labels.
func collapse(group []Finding) Finding {
	rep := group[0]
	for _, f := range group[1:] {
		if repBetter(f, rep) {
			rep = f
		}
	}

	out := rep
	out.Category = joinDistinct(group, func(f Finding) string { return f.Category })
	out.Reviewer = joinDistinct(group, func(f Finding) string { return f.Reviewer })
	if out.Suggestion == "" {
		for _, f := range group {
			if f.Suggestion != "" {
				out.Suggestion = f.Suggestion
				break
			}
		}
	}
	return out
}

func repBetter(a, b Finding) bool {
	ra, rb := SeverityRank(a.Severity), SeverityRank(b.Severity)
	if ra != rb {
		return ra > rb
	}
	if a.Reviewer != b.Reviewer {
		return a.Reviewer < b.Reviewer
	}
	if a.Message != b.Message {
		return a.Message < b.Message
	}
	return a.Line < b.Line
}

func joinDistinct(group []Finding, key func(Finding) string) string {
	seen := make(map[string]bool)
	var vals []string
	for _, f := range group {
		v := strings.TrimSpace(key(f))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		vals = append(vals, v)
	}
	sort.Strings(vals)
	return strings.Join(vals, ", ")
}
