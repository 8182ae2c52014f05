package diff

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

var logger = log.WithField("package", "diff")

// LineKind classifies a single line edit within a hunk.
type LineKind string

const (
	LineContext LineKind = "context"
	LineAdd     LineKind = "add"
	LineRemove  LineKind = "remove"
)

// ChangeKind classifies what happened to a file in the change set.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeRenamed  ChangeKind = "renamed"
)

// Line is one line edit. OldNo and NewNo are 1-based; 0 means the line does
// not exist on that side (adds have no OldNo, removes no NewNo).
type Line struct {
	OldNo   int
	NewNo   int
	Kind    LineKind
	Content string
}

// Hunk is a contiguous block of line edits with its range header.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Section  string
	Lines    []Line
}

// FileDiff is the parsed change unit for one file. Binary files carry no
// hunks. Immutable once returned by Parse.
type FileDiff struct {
	Path    string
	OldPath string
	Change  ChangeKind
	Binary  bool
	Hunks   []Hunk
}

// MalformedDiffError describes one file section that could not be parsed.
// The parser records it and continues with the rest of the diff.
type MalformedDiffError struct {
	Path   string
	Line   int
	Reason string
}

func (e *MalformedDiffError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("malformed diff section for %s (line %d): %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed diff section (line %d): %s", e.Line, e.Reason)
}

// SkipRecord names a file excluded by the filter policy and why.
type SkipRecord struct {
	Path   string
	Reason string
}

// ParseStats reports what happened to every section of the input diff.
type ParseStats struct {
	Sections  int
	Included  int
	Skipped   []SkipRecord
	Malformed []*MalformedDiffError
}

// FilterPolicy controls which files are parsed. An empty AllowedExtensions
// means all extensions pass that check.
type FilterPolicy struct {
	AllowedExtensions []string
	BlockedExtensions []string
	BlockedFilenames  []string
	BlockedDirs       []string
	MaxFileBytes      int
}

// DefaultFilterPolicy excludes binary media, lock files, and generated
// directories that add noise without review value.
func DefaultFilterPolicy() FilterPolicy {
	return FilterPolicy{
		BlockedExtensions: []string{
			".png", ".jpg", ".jpeg", ".gif", ".ico", ".svg", ".pdf",
			".zip", ".tar", ".gz", ".exe", ".bin", ".so", ".dylib",
			".woff", ".woff2", ".ttf", ".eot", ".mp3", ".mp4", ".lock", ".sum",
		},
		BlockedFilenames: []string{
			"package-lock.json", "yarn.lock", "pnpm-lock.yaml",
			"Pipfile.lock", "poetry.lock", "go.sum", "Cargo.lock",
			"composer.lock", "Gemfile.lock",
		},
		BlockedDirs: []string{
			"vendor/", "node_modules/", "dist/", "build/", ".git/",
			"__pycache__/", ".idea/", ".vscode/",
		},
		MaxFileBytes: 0,
	}
}

// Excludes returns a non-empty reason when path (with a section of size
// sectionBytes) fails the policy.
func (p FilterPolicy) Excludes(path string, sectionBytes int) string {
	if path == "" {
		return ""
	}
	base := filepath.Base(path)
	for _, name := range p.BlockedFilenames {
		if base == name {
			return "blocked filename"
		}
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, blocked := range p.BlockedExtensions {
		if ext == strings.ToLower(blocked) {
			return "blocked extension " + ext
		}
	}
	if len(p.AllowedExtensions) > 0 {
		allowed := false
		for _, a := range p.AllowedExtensions {
			if ext == strings.ToLower(a) {
				allowed = true
				break
			}
		}
		if !allowed {
			return "extension " + ext + " not in allowed list"
		}
	}
	for _, dir := range p.BlockedDirs {
		d := strings.TrimSuffix(dir, "/")
		if d == "" {
			continue
		}
		if strings.HasPrefix(path, d+"/") || strings.Contains(path, "/"+d+"/") {
			return "blocked directory " + d
		}
	}
	if p.MaxFileBytes > 0 && sectionBytes > p.MaxFileBytes {
		return fmt.Sprintf("section too large (%d bytes)", sectionBytes)
	}
	return ""
}

// Parse turns raw unified-diff text into ordered FileDiffs, applying the
// filter policy per file. Malformed sections are skipped and surfaced in
// ParseStats; parsing never aborts on a bad section.
func Parse(raw string, policy FilterPolicy) ([]FileDiff, ParseStats) {
	var stats ParseStats
	if strings.TrimSpace(raw) == "" {
		return nil, stats
	}

	sections := splitSections(raw)
	stats.Sections = len(sections)

	var files []FileDiff
	for _, sec := range sections {
		path := sectionPath(sec.lines)
		if reason := policy.Excludes(path, sec.bytes); reason != "" {
			stats.Skipped = append(stats.Skipped, SkipRecord{Path: path, Reason: reason})
			logger.WithField("file", path).Debugf("skipping: %s", reason)
			continue
		}

		fd, merr := parseSection(sec)
		if merr != nil {
			stats.Malformed = append(stats.Malformed, merr)
			logger.WithField("file", merr.Path).Warnf("skipping malformed section: %s", merr.Reason)
			continue
		}
		stats.Included++
		files = append(files, fd)
	}
	return files, stats
}

// ChangedPaths returns every file path in order of appearance.
func ChangedPaths(files []FileDiff) []string {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	return paths
}

type section struct {
	lines     []string
	startLine int
	bytes     int
}

// splitSections cuts the diff at file boundaries. Git-style diffs split at
// "diff --git"; plain unified diffs split at top-level "--- " headers, which
// requires strict hunk-length counting to avoid misreading removed lines
// that begin with dashes.
func splitSections(raw string) []section {
	lines := strings.Split(raw, "\n")
	gitStyle := false
	for _, l := range lines {
		if strings.HasPrefix(l, "diff --git ") {
			gitStyle = true
			break
		}
	}

	var sections []section
	flush := func(buf []string, start int) {
		if len(buf) == 0 {
			return
		}
		joined := strings.Join(buf, "\n")
		if strings.TrimSpace(joined) == "" {
			return
		}
		sections = append(sections, section{lines: buf, startLine: start, bytes: len(joined)})
	}

	if gitStyle {
		var buf []string
		start := 0
		started := false
		for i, l := range lines {
			if strings.HasPrefix(l, "diff --git ") {
				if started {
					flush(buf, start)
				}
				buf = nil
				start = i
				started = true
			}
			if started {
				buf = append(buf, l)
			}
		}
		flush(buf, start)
		return sections
	}

	// Plain unified diff: track hunk body counts so content lines that look
	// like headers are not treated as boundaries.
	var buf []string
	start := 0
	started := false
	remainOld, remainNew := 0, 0
	for i, l := range lines {
		inHunk := remainOld > 0 || remainNew > 0
		if !inHunk && strings.HasPrefix(l, "--- ") {
			if started {
				flush(buf, start)
			}
			buf = nil
			start = i
			started = true
		}
		if !started {
			continue
		}
		buf = append(buf, l)
		if !inHunk {
			if _, oc, _, nc, _, ok := parseHunkHeader(l); ok {
				remainOld, remainNew = oc, nc
			}
			continue
		}
		switch {
		case strings.HasPrefix(l, "+"):
			remainNew--
		case strings.HasPrefix(l, "-"):
			remainOld--
		case strings.HasPrefix(l, "\\"):
			// "\ No newline at end of file" is not counted
		default:
			remainOld--
			remainNew--
		}
		if remainOld < 0 {
			remainOld = 0
		}
		if remainNew < 0 {
			remainNew = 0
		}
	}
	flush(buf, start)
	return sections
}

// sectionPath extracts the reviewable path for filtering before full parsing.
func sectionPath(lines []string) string {
	var oldPath, newPath string
	for _, l := range lines {
		if strings.HasPrefix(l, "@@") {
			// headers end at the first hunk
			break
		}
		switch {
		case strings.HasPrefix(l, "+++ "):
			newPath = stripPathPrefix(strings.TrimPrefix(l, "+++ "))
		case strings.HasPrefix(l, "--- "):
			oldPath = stripPathPrefix(strings.TrimPrefix(l, "--- "))
		case strings.HasPrefix(l, "rename to "):
			newPath = strings.TrimPrefix(l, "rename to ")
		}
	}
	if newPath != "" {
		return newPath
	}
	if oldPath != "" {
		return oldPath
	}
	// fall back to the diff --git header
	if len(lines) > 0 && strings.HasPrefix(lines[0], "diff --git ") {
		if _, b, ok := gitHeaderPaths(lines[0]); ok {
			return b
		}
	}
	return ""
}

func stripPathPrefix(p string) string {
	p = strings.TrimSpace(p)
	if tab := strings.IndexByte(p, '\t'); tab >= 0 {
		p = p[:tab]
	}
	if p == "/dev/null" {
		return ""
	}
	p = strings.TrimPrefix(p, "a/")
	p = strings.TrimPrefix(p, "b/")
	return p
}

func gitHeaderPaths(header string) (string, string, bool) {
	rest := strings.TrimPrefix(header, "diff --git ")
	parts := strings.SplitN(rest, " b/", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimPrefix(parts[0], "a/"), parts[1], true
}

// parseSection parses one file section into a FileDiff.
func parseSection(sec section) (FileDiff, *MalformedDiffError) {
	var (
		fd          FileDiff
		oldPath     string
		newPath     string
		isNew       bool
		isDeleted   bool
		isRename    bool
		sawOldHdr   bool
		sawNewHdr   bool
		sawModeOnly bool
	)

	malformed := func(reason string, offset int) *MalformedDiffError {
		path := newPath
		if path == "" {
			path = oldPath
		}
		if path == "" {
			path = sectionPath(sec.lines)
		}
		return &MalformedDiffError{Path: path, Line: sec.startLine + offset + 1, Reason: reason}
	}

	i := 0
	lines := sec.lines
	if len(lines) > 0 && strings.HasPrefix(lines[0], "diff --git ") {
		if a, b, ok := gitHeaderPaths(lines[0]); ok {
			oldPath, newPath = a, b
		}
		i = 1
	}

	// extended headers up to the first hunk
	for ; i < len(lines); i++ {
		l := lines[i]
		if strings.HasPrefix(l, "@@") {
			break
		}
		switch {
		case strings.HasPrefix(l, "--- "):
			oldPath = stripPathPrefix(strings.TrimPrefix(l, "--- "))
			sawOldHdr = true
		case strings.HasPrefix(l, "+++ "):
			newPath = stripPathPrefix(strings.TrimPrefix(l, "+++ "))
			sawNewHdr = true
		case strings.HasPrefix(l, "new file mode"):
			isNew = true
		case strings.HasPrefix(l, "deleted file mode"):
			isDeleted = true
		case strings.HasPrefix(l, "rename from "):
			oldPath = strings.TrimPrefix(l, "rename from ")
			isRename = true
		case strings.HasPrefix(l, "rename to "):
			newPath = strings.TrimPrefix(l, "rename to ")
			isRename = true
		case strings.HasPrefix(l, "old mode"), strings.HasPrefix(l, "new mode"):
			sawModeOnly = true
		case strings.HasPrefix(l, "Binary files "), strings.HasPrefix(l, "GIT binary patch"):
			fd.Binary = true
		}
	}

	for i < len(lines) {
		l := lines[i]
		if !strings.HasPrefix(l, "@@") {
			i++
			continue
		}
		oldStart, oldCount, newStart, newCount, sectionName, ok := parseHunkHeader(l)
		if !ok {
			return FileDiff{}, malformed("unparseable hunk header: "+l, i)
		}
		h := Hunk{
			OldStart: oldStart, OldCount: oldCount,
			NewStart: newStart, NewCount: newCount,
			Section: sectionName,
		}
		oldNo, newNo := oldStart, newStart
		remainOld, remainNew := oldCount, newCount
		i++
		for i < len(lines) && (remainOld > 0 || remainNew > 0) {
			body := lines[i]
			switch {
			case strings.HasPrefix(body, "+"):
				h.Lines = append(h.Lines, Line{NewNo: newNo, Kind: LineAdd, Content: body[1:]})
				newNo++
				remainNew--
			case strings.HasPrefix(body, "-"):
				h.Lines = append(h.Lines, Line{OldNo: oldNo, Kind: LineRemove, Content: body[1:]})
				oldNo++
				remainOld--
			case strings.HasPrefix(body, "\\"):
				// no-newline marker, not part of either side
			case strings.HasPrefix(body, " "), body == "":
				content := body
				if strings.HasPrefix(body, " ") {
					content = body[1:]
				}
				h.Lines = append(h.Lines, Line{OldNo: oldNo, NewNo: newNo, Kind: LineContext, Content: content})
				oldNo++
				newNo++
				remainOld--
				remainNew--
			default:
				return FileDiff{}, malformed("unexpected line in hunk body: "+body, i)
			}
			i++
		}
		if remainOld > 0 || remainNew > 0 {
			return FileDiff{}, malformed(
				fmt.Sprintf("truncated hunk: %d old / %d new lines missing", remainOld, remainNew), i-1)
		}
		fd.Hunks = append(fd.Hunks, h)
	}

	switch {
	case isRename:
		fd.Change = ChangeRenamed
	case isNew || (sawOldHdr && oldPath == ""):
		fd.Change = ChangeAdded
	case isDeleted || (sawNewHdr && newPath == ""):
		fd.Change = ChangeDeleted
	default:
		fd.Change = ChangeModified
	}

	fd.Path = newPath
	if fd.Path == "" {
		fd.Path = oldPath
	}
	if fd.Change == ChangeRenamed && oldPath != fd.Path {
		fd.OldPath = oldPath
	}

	if fd.Path == "" {
		return FileDiff{}, malformed("section has no file path", 0)
	}

	// Headers that promise content must deliver at least one hunk. Pure
	// renames, mode changes, binary files, and empty adds/deletes are fine
	// without one.
	if len(fd.Hunks) == 0 && !fd.Binary && !isRename && !sawModeOnly && !isNew && !isDeleted {
		if sawOldHdr || sawNewHdr {
			return FileDiff{}, malformed("file header without a matching hunk header", 0)
		}
		return FileDiff{}, malformed("section carries no recognizable content", 0)
	}

	return fd, nil
}

// parseHunkHeader parses "@@ -oldStart[,oldCount] +newStart[,newCount] @@ section".
func parseHunkHeader(l string) (oldStart, oldCount, newStart, newCount int, sectionName string, ok bool) {
	if !strings.HasPrefix(l, "@@ ") {
		return 0, 0, 0, 0, "", false
	}
	rest := l[3:]
	end := strings.Index(rest, " @@")
	if end < 0 {
		return 0, 0, 0, 0, "", false
	}
	ranges := rest[:end]
	sectionName = strings.TrimSpace(strings.TrimPrefix(rest[end:], " @@"))

	parts := strings.Fields(ranges)
	if len(parts) != 2 || !strings.HasPrefix(parts[0], "-") || !strings.HasPrefix(parts[1], "+") {
		return 0, 0, 0, 0, "", false
	}
	var err error
	oldStart, oldCount, err = parseRange(parts[0][1:])
	if err != nil {
		return 0, 0, 0, 0, "", false
	}
	newStart, newCount, err = parseRange(parts[1][1:])
	if err != nil {
		return 0, 0, 0, 0, "", false
	}
	return oldStart, oldCount, newStart, newCount, sectionName, true
}

func parseRange(s string) (start, count int, err error) {
	count = 1
	if comma := strings.IndexByte(s, ','); comma >= 0 {
		count, err = strconv.Atoi(s[comma+1:])
		if err != nil {
			return 0, 0, err
		}
		s = s[:comma]
	}
	start, err = strconv.Atoi(s)
	return start, count, err
}
