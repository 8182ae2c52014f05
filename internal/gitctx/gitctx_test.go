package gitctx

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractFiles(t *testing.T) {
	diff := `diff --git a/main.go b/main.go
--- a/main.go
+++ b/main.go
@@ -1,3 +1,4 @@
+import "fmt"
diff --git a/util.go b/util.go
--- a/util.go
+++ b/util.go
@@ -5,3 +5,4 @@
+func helper() {}
`
	files := extractFiles(diff)
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	if files[0] != "main.go" {
		t.Errorf("files[0] = %q, want %q", files[0], "main.go")
	}
	if files[1] != "util.go" {
		t.Errorf("files[1] = %q, want %q", files[1], "util.go")
	}
}

func TestExtractFiles_Dedup(t *testing.T) {
	diff := `+++ b/main.go
+++ b/main.go
`
	files := extractFiles(diff)
	if len(files) != 1 {
		t.Errorf("got %d files, want 1 (should dedup)", len(files))
	}
}

func TestExtractFiles_Empty(t *testing.T) {
	files := extractFiles("")
	if len(files) != 0 {
		t.Errorf("got %d files from empty diff, want 0", len(files))
	}
}

func TestBuildDiffArgs(t *testing.T) {
	args := buildDiffArgs(DiffOptions{ContextLines: 5})
	if len(args) != 1 || args[0] != "-U5" {
		t.Errorf("buildDiffArgs = %v, want [-U5]", args)
	}
}

func TestBuildDiffArgs_NoContextLines(t *testing.T) {
	args := buildDiffArgs(DiffOptions{})
	if len(args) != 0 {
		t.Errorf("buildDiffArgs = %v, want no args with ContextLines=0", args)
	}
}

func TestBuildResult_MetadataAndMode(t *testing.T) {
	diff := "diff --git a/main.go b/main.go\n--- a/main.go\n+++ b/main.go\n@@ -1 +1 @@\n+ok\n"
	result := buildResult(diff, "staged", "abc..def")
	if result.Mode != "staged" {
		t.Errorf("Mode = %q, want %q", result.Mode, "staged")
	}
	if result.Range != "abc..def" {
		t.Errorf("Range = %q, want %q", result.Range, "abc..def")
	}
	if len(result.Files) != 1 || result.Files[0] != "main.go" {
		t.Errorf("Files = %v, want [main.go]", result.Files)
	}
	if result.Diff != diff {
		t.Error("Diff should be passed through unchanged")
	}
}

func TestFromFile(t *testing.T) {
	diff := "diff --git a/pkg/a.go b/pkg/a.go\n--- a/pkg/a.go\n+++ b/pkg/a.go\n@@ -1 +1,2 @@\n context\n+added\n"
	path := filepath.Join(t.TempDir(), "change.diff")
	if err := os.WriteFile(path, []byte(diff), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile error: %v", err)
	}
	if result.Mode != "file" {
		t.Errorf("Mode = %q, want %q", result.Mode, "file")
	}
	if result.Range != path {
		t.Errorf("Range = %q, want the source path %q", result.Range, path)
	}
	if result.Diff != diff {
		t.Error("Diff should match file contents")
	}
	if len(result.Files) != 1 || result.Files[0] != "pkg/a.go" {
		t.Errorf("Files = %v, want [pkg/a.go]", result.Files)
	}
}

func TestFromFile_Missing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "nope.diff"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

// setupTestRepo creates a temp git repo with some tracked files and returns
// the path. Caller must defer cleanup.
func setupTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test",
			"GIT_AUTHOR_EMAIL=test@test.com",
			"GIT_COMMITTER_NAME=test",
			"GIT_COMMITTER_EMAIL=test@test.com",
		)
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("command %v failed: %v\n%s", args, err, out)
		}
	}

	run("git", "init")
	run("git", "checkout", "-b", "main")

	os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "util.go"), []byte("package main\n\nfunc helper() {}\n"), 0o644)

	run("git", "add", "-A")
	run("git", "commit", "-m", "init")

	return dir
}

// runGit runs a git command in dir and returns trimmed stdout.
func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test",
		"GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=test",
		"GIT_COMMITTER_EMAIL=test@test.com",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

func TestGetRepoMeta(t *testing.T) {
	dir := setupTestRepo(t)
	origDir, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(origDir)

	meta, err := GetRepoMeta()
	if err != nil {
		t.Fatalf("GetRepoMeta error: %v", err)
	}
	if meta.Root == "" {
		t.Error("Root should not be empty inside a repo")
	}
	if len(meta.Head) != 40 {
		t.Errorf("Head length = %d, want 40-char SHA", len(meta.Head))
	}
	if meta.Branch != "main" {
		t.Errorf("Branch = %q, want %q", meta.Branch, "main")
	}
	// No origin configured in the test repo.
	if meta.Remote != "" {
		t.Errorf("Remote = %q, want empty", meta.Remote)
	}
}

func TestUnstaged(t *testing.T) {
	dir := setupTestRepo(t)
	origDir, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(origDir)

	os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() { println(1) }\n"), 0o644)

	result, err := Unstaged(DiffOptions{})
	if err != nil {
		t.Fatalf("Unstaged error: %v", err)
	}
	if result.Mode != "unstaged" {
		t.Errorf("Mode = %q, want %q", result.Mode, "unstaged")
	}
	if !strings.Contains(result.Diff, "println(1)") {
		t.Error("Diff should contain the working tree change")
	}
	if len(result.Files) != 1 || result.Files[0] != "main.go" {
		t.Errorf("Files = %v, want [main.go]", result.Files)
	}
}

func TestStaged(t *testing.T) {
	dir := setupTestRepo(t)
	origDir, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(origDir)

	os.WriteFile(filepath.Join(dir, "util.go"), []byte("package main\n\nfunc helper() int { return 2 }\n"), 0o644)
	runGit(t, dir, "git", "add", "util.go")

	result, err := Staged(DiffOptions{})
	if err != nil {
		t.Fatalf("Staged error: %v", err)
	}
	if result.Mode != "staged" {
		t.Errorf("Mode = %q, want %q", result.Mode, "staged")
	}
	if !strings.Contains(result.Diff, "return 2") {
		t.Error("Diff should contain the staged change")
	}

	// The same change must not show up as unstaged once staged.
	unstaged, err := Unstaged(DiffOptions{})
	if err != nil {
		t.Fatalf("Unstaged error: %v", err)
	}
	if strings.Contains(unstaged.Diff, "return 2") {
		t.Error("staged change leaked into unstaged diff")
	}
}

func TestCommit(t *testing.T) {
	dir := setupTestRepo(t)
	origDir, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(origDir)

	os.WriteFile(filepath.Join(dir, "a.go"), []byte("package main\n"), 0o644)
	runGit(t, dir, "git", "add", "a.go")
	runGit(t, dir, "git", "commit", "-m", "add a.go")
	sha := runGit(t, dir, "git", "rev-parse", "HEAD")

	result, err := Commit(sha, "", DiffOptions{})
	if err != nil {
		t.Fatalf("Commit error: %v", err)
	}
	if result.Mode != "commit" {
		t.Errorf("Mode = %q, want %q", result.Mode, "commit")
	}
	if result.Range != sha {
		t.Errorf("Range = %q, want the SHA", result.Range)
	}
	if len(result.Files) != 1 || result.Files[0] != "a.go" {
		t.Errorf("Files = %v, want [a.go]", result.Files)
	}
}

func TestCommit_InitialCommit(t *testing.T) {
	dir := setupTestRepo(t)
	origDir, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(origDir)

	// The first commit has no parent; the show fallback must kick in.
	sha := runGit(t, dir, "git", "rev-parse", "HEAD")

	result, err := Commit(sha, "", DiffOptions{})
	if err != nil {
		t.Fatalf("Commit error on initial commit: %v", err)
	}
	if !strings.Contains(result.Diff, "main.go") {
		t.Error("Diff should contain the initial commit contents")
	}
}

func TestRange(t *testing.T) {
	dir := setupTestRepo(t)
	origDir, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(origDir)

	base := runGit(t, dir, "git", "rev-parse", "HEAD")

	os.WriteFile(filepath.Join(dir, "a.go"), []byte("package main\n"), 0o644)
	runGit(t, dir, "git", "add", "a.go")
	runGit(t, dir, "git", "commit", "-m", "add a.go")

	os.WriteFile(filepath.Join(dir, "b.go"), []byte("package main\n"), 0o644)
	runGit(t, dir, "git", "add", "b.go")
	runGit(t, dir, "git", "commit", "-m", "add b.go")

	result, err := Range(base+"..HEAD", false, DiffOptions{})
	if err != nil {
		t.Fatalf("Range error: %v", err)
	}
	if result.Mode != "range" {
		t.Errorf("Mode = %q, want %q", result.Mode, "range")
	}
	if result.Range != base+"..HEAD" {
		t.Errorf("Range = %q, want the requested range", result.Range)
	}
	if len(result.Files) != 2 {
		t.Errorf("Files = %v, want both committed files", result.Files)
	}
}

func TestRange_MergeBase(t *testing.T) {
	dir := setupTestRepo(t)
	origDir, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(origDir)

	base := runGit(t, dir, "git", "rev-parse", "HEAD")

	os.WriteFile(filepath.Join(dir, "a.go"), []byte("package main\n"), 0o644)
	runGit(t, dir, "git", "add", "a.go")
	runGit(t, dir, "git", "commit", "-m", "add a.go")

	// Linear history: merge-base comparison must give the same files and
	// keep the caller's range string in the result.
	result, err := Range(base+"..HEAD", true, DiffOptions{})
	if err != nil {
		t.Fatalf("Range error: %v", err)
	}
	if result.Range != base+"..HEAD" {
		t.Errorf("Range = %q, want the requested range unchanged", result.Range)
	}
	if len(result.Files) != 1 || result.Files[0] != "a.go" {
		t.Errorf("Files = %v, want [a.go]", result.Files)
	}
}

func TestUnstaged_ContextLines(t *testing.T) {
	dir := setupTestRepo(t)
	origDir, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(origDir)

	// A ten-line file where only the middle changes lets narrow context
	// produce a visibly smaller diff than wide context.
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = "// line"
	}
	content := "package main\n" + strings.Join(lines, "\n") + "\n"
	os.WriteFile(filepath.Join(dir, "big.go"), []byte(content), 0o644)
	runGit(t, dir, "git", "add", "big.go")
	runGit(t, dir, "git", "commit", "-m", "add big.go")

	lines[5] = "// changed"
	os.WriteFile(filepath.Join(dir, "big.go"), []byte("package main\n"+strings.Join(lines, "\n")+"\n"), 0o644)

	wide, err := Unstaged(DiffOptions{ContextLines: 8})
	if err != nil {
		t.Fatalf("Unstaged error: %v", err)
	}
	narrow, err := Unstaged(DiffOptions{ContextLines: 1})
	if err != nil {
		t.Fatalf("Unstaged error: %v", err)
	}
	if len(narrow.Diff) >= len(wide.Diff) {
		t.Errorf("narrow context produced %d bytes, wide %d; want narrow smaller", len(narrow.Diff), len(wide.Diff))
	}
}
