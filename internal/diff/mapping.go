package diff

// CommentableLines maps each file path to the set of new-side line numbers
// that appear in its hunks. Hosting platforms only accept inline comments on
// lines present in the diff, so findings are validated against this set
// before publishing.
func CommentableLines(files []FileDiff) map[string]map[int]bool {
	out := make(map[string]map[int]bool, len(files))
	for _, f := range files {
		if f.Binary || f.Change == ChangeDeleted {
			continue
		}
		lines := out[f.Path]
		if lines == nil {
			lines = make(map[int]bool)
			out[f.Path] = lines
		}
		for _, h := range f.Hunks {
			for _, l := range h.Lines {
				if l.NewNo > 0 {
					lines[l.NewNo] = true
				}
			}
		}
	}
	return out
}

// AddedLines maps each file path to the set of new-side line numbers that
// were added (not context).
func AddedLines(files []FileDiff) map[string]map[int]bool {
	out := make(map[string]map[int]bool, len(files))
	for _, f := range files {
		if f.Binary {
			continue
		}
		for _, h := range f.Hunks {
			for _, l := range h.Lines {
				if l.Kind != LineAdd {
					continue
				}
				if out[f.Path] == nil {
					out[f.Path] = make(map[int]bool)
				}
				out[f.Path][l.NewNo] = true
			}
		}
	}
	return out
}

// NearestValidLine snaps line to the closest member of valid within
// maxDistance, preferring the smaller line number on a tie. Returns 0 when
// nothing is close enough.
func NearestValidLine(valid map[int]bool, line, maxDistance int) int {
	if valid[line] {
		return line
	}
	for d := 1; d <= maxDistance; d++ {
		if valid[line-d] {
			return line - d
		}
		if valid[line+d] {
			return line + d
		}
	}
	return 0
}
