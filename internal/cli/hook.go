package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const (
	hookMarkerStart = "# >>> quorum review hook >>>"
	hookMarkerEnd   = "# <<< quorum review hook <<<"
)

const (
	hookPreCommit = "pre-commit"
	hookPrePush   = "pre-push"
)

var (
	hookType        string
	hookMinSeverity string
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage git hooks that run quorum",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install quorum as a git hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if hookType != hookPreCommit && hookType != hookPrePush {
			fmt.Fprintf(os.Stderr, "Error: unsupported hook type %q (pre-commit, pre-push)\n", hookType)
			exitCode = ExitUsageError
			return nil
		}

		hookPath, err := getHookPath(hookType)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		section := generateHookScript(hookType, hookMinSeverity)

		existing, err := os.ReadFile(hookPath)
		if err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error reading hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		var content string
		if os.IsNotExist(err) || len(existing) == 0 {
			content = "#!/bin/sh\n" + section
		} else {
			content = replaceHookSection(string(existing), section)
		}

		if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating hooks directory: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		fmt.Fprintf(os.Stdout, "Installed quorum %s hook at %s\n", hookType, hookPath)
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the quorum section from a git hook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if hookType != hookPreCommit && hookType != hookPrePush {
			fmt.Fprintf(os.Stderr, "Error: unsupported hook type %q (pre-commit, pre-push)\n", hookType)
			exitCode = ExitUsageError
			return nil
		}

		hookPath, err := getHookPath(hookType)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		existing, err := os.ReadFile(hookPath)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintf(os.Stdout, "No %s hook found.\n", hookType)
				return nil
			}
			fmt.Fprintf(os.Stderr, "Error reading hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		content := removeHookSection(string(existing))

		// If only a shebang (and whitespace) remains, delete the file entirely
		trimmed := strings.TrimSpace(content)
		if trimmed == "" || trimmed == "#!/bin/sh" || trimmed == "#!/bin/bash" {
			if err := os.Remove(hookPath); err != nil {
				fmt.Fprintf(os.Stderr, "Error removing hook file: %v\n", err)
				exitCode = ExitRuntimeError
				return nil
			}
			fmt.Fprintf(os.Stdout, "Removed quorum %s hook at %s\n", hookType, hookPath)
			return nil
		}

		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing hook file: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}

		fmt.Fprintf(os.Stdout, "Removed quorum section from %s\n", hookPath)
		return nil
	},
}

func getHookPath(hookType string) (string, error) {
	out, err := exec.Command("git", "rev-parse", "--git-dir").Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository (git rev-parse --git-dir failed)")
	}
	gitDir := strings.TrimSpace(string(out))
	return filepath.Join(gitDir, "hooks", hookType), nil
}

// hookAction names what the hook guards, for its block and allow messages.
func hookAction(hookType string) string {
	if hookType == hookPrePush {
		return "push"
	}
	return "commit"
}

func generateHookScript(hookType, minSeverity string) string {
	var b strings.Builder
	b.WriteString(hookMarkerStart + "\n")
	if hookType == hookPrePush {
		// Nothing to compare against until the branch has an upstream.
		b.WriteString("if git rev-parse --abbrev-ref --symbolic-full-name @{u} >/dev/null 2>&1; then\n")
		b.WriteString(fmt.Sprintf("  quorum review --range @{u}..HEAD --min-severity %s\n", minSeverity))
		b.WriteString("  QUORUM_EXIT=$?\n")
		b.WriteString("else\n")
		b.WriteString("  QUORUM_EXIT=0\n")
		b.WriteString("fi\n")
	} else {
		b.WriteString(fmt.Sprintf("quorum review --staged --min-severity %s\n", minSeverity))
		b.WriteString("QUORUM_EXIT=$?\n")
	}
	action := hookAction(hookType)
	b.WriteString("if [ $QUORUM_EXIT -eq 1 ]; then\n")
	b.WriteString(fmt.Sprintf("  echo \"quorum: findings at or above threshold, %s blocked\"\n", action))
	b.WriteString("  exit 1\n")
	b.WriteString("elif [ $QUORUM_EXIT -ge 2 ]; then\n")
	b.WriteString(fmt.Sprintf("  echo \"quorum: review failed (exit $QUORUM_EXIT), allowing %s\"\n", action))
	b.WriteString("fi\n")
	b.WriteString(hookMarkerEnd + "\n")
	return b.String()
}

func replaceHookSection(existing, section string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		// No existing quorum section, append
		if !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
		return existing + section
	}

	// Replace existing section
	before := existing[:startIdx]
	after := existing[endIdx+len(hookMarkerEnd):]
	// Trim leading newline from after to avoid double newlines
	after = strings.TrimPrefix(after, "\n")
	return before + section + after
}

func removeHookSection(existing string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		return existing
	}

	before := existing[:startIdx]
	after := existing[endIdx+len(hookMarkerEnd):]
	after = strings.TrimPrefix(after, "\n")

	return before + after
}

func init() {
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	hookCmd.PersistentFlags().StringVar(&hookType, "hook", hookPreCommit, "Hook to manage (pre-commit, pre-push)")
	hookInstallCmd.Flags().StringVar(&hookMinSeverity, "min-severity", "high", "Publish threshold for the hook run")
}
