package review

import (
	"fmt"
	"strings"

	"github.com/quorumhq/quorum/internal/diff"
)

// UnitBudget bounds the serialized size of one review unit. Zero fields
// fall back to defaults.
type UnitBudget struct {
	MaxBytes int
	MaxLines int
}

const (
	defaultUnitBytes = 30000
	defaultUnitLines = 400
)

// DefaultUnitBudget sizes units to fit comfortably in one inference call.
func DefaultUnitBudget() UnitBudget {
	return UnitBudget{MaxBytes: defaultUnitBytes, MaxLines: defaultUnitLines}
}

func (b UnitBudget) normalized() UnitBudget {
	if b.MaxBytes <= 0 {
		b.MaxBytes = defaultUnitBytes
	}
	if b.MaxLines <= 0 {
		b.MaxLines = defaultUnitLines
	}
	return b
}

// Unit is a bounded bundle of file diffs serialized for one analysis call.
// Built once per run; passes never mutate it.
type Unit struct {
	Index     int
	Files     []diff.FileDiff
	Text      string
	Bytes     int
	Lines     int
	Truncated bool
}

// Paths returns the file paths bundled in this unit.
func (u Unit) Paths() []string {
	return diff.ChangedPaths(u.Files)
}

// BuildUnits packs file diffs into ordered units without exceeding the
// budget. Packing is greedy and order-preserving: files fill the current
// unit until the next one would overflow it, then a new unit starts. A
// single file too large for the byte budget on its own is truncated at a
// line boundary with an explicit marker instead of being dropped.
func BuildUnits(files []diff.FileDiff, budget UnitBudget) []Unit {
	budget = budget.normalized()
	if len(files) == 0 {
		return nil
	}

	var units []Unit
	var cur Unit
	var text strings.Builder

	flush := func() {
		if len(cur.Files) == 0 {
			return
		}
		cur.Index = len(units)
		cur.Text = text.String()
		cur.Bytes = len(cur.Text)
		units = append(units, cur)
		cur = Unit{}
		text.Reset()
	}

	for _, f := range files {
		rendered := renderFileDiff(f)
		lines := countLines(rendered)

		truncated := false
		if len(rendered) > budget.MaxBytes || lines > budget.MaxLines {
			rendered, lines = truncateRendered(rendered, budget)
			truncated = true
		}

		if len(cur.Files) > 0 &&
			(text.Len()+len(rendered) > budget.MaxBytes || cur.Lines+lines > budget.MaxLines) {
			flush()
		}

		cur.Files = append(cur.Files, f)
		cur.Lines += lines
		cur.Truncated = cur.Truncated || truncated
		text.WriteString(rendered)
	}
	flush()
	return units
}

// renderFileDiff serializes one file for review. Changed and context lines
// carry new-side line numbers so findings can reference real positions;
// removed lines have no new-side number.
func renderFileDiff(f diff.FileDiff) string {
	var b strings.Builder

	switch {
	case f.Binary:
		fmt.Fprintf(&b, "### %s (binary, %s)\n\n", f.Path, f.Change)
		return b.String()
	case f.Change == diff.ChangeRenamed && f.OldPath != "":
		fmt.Fprintf(&b, "### %s (renamed from %s)\n", f.Path, f.OldPath)
	default:
		fmt.Fprintf(&b, "### %s (%s)\n", f.Path, f.Change)
	}

	for _, h := range f.Hunks {
		if h.Section != "" {
			fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@ %s\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount, h.Section)
		} else {
			fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		}
		for _, l := range h.Lines {
			switch l.Kind {
			case diff.LineAdd:
				fmt.Fprintf(&b, "%4d |+%s\n", l.NewNo, l.Content)
			case diff.LineRemove:
				fmt.Fprintf(&b, "     |-%s\n", l.Content)
			default:
				fmt.Fprintf(&b, "%4d | %s\n", l.NewNo, l.Content)
			}
		}
	}
	b.WriteString("\n")
	return b.String()
}

// truncateRendered clips rendered text to the budget at a line boundary and
// appends a marker naming how much was cut.
func truncateRendered(rendered string, budget UnitBudget) (string, int) {
	const marker = "[... truncated: %d more lines ...]\n"

	all := strings.SplitAfter(rendered, "\n")
	if n := len(all); n > 0 && all[n-1] == "" {
		all = all[:n-1]
	}
	// reserve room for the marker line
	maxBytes := budget.MaxBytes - len(marker) - 8
	if maxBytes < 0 {
		maxBytes = 0
	}

	var b strings.Builder
	kept := 0
	for _, line := range all {
		if kept >= budget.MaxLines-1 || b.Len()+len(line) > maxBytes {
			break
		}
		b.WriteString(line)
		kept++
	}
	cut := len(all) - kept
	fmt.Fprintf(&b, marker, cut)
	return b.String(), kept + 1
}

func countLines(s string) int {
	return strings.Count(s, "\n")
}
