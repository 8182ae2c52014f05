// Package console is the interactive surface of the CLI: progress
// spinners, confirmation prompts, and colored status lines, kept apart
// from structured logging.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/briandowns/spinner"
	"github.com/logrusorgru/aurora"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"

	"github.com/quorumhq/quorum/internal/github"
)

var logger = log.WithField("package", "console")

// Console handles user-facing output separate from logging.
type Console struct {
	w       io.Writer
	spinner *spinner.Spinner
	color   bool

	mu sync.Mutex
}

// New builds a console writing to w. Color is enabled only when w is a
// terminal.
func New(w io.Writer) *Console {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Prefix = ""
	if err := s.Color("cyan"); err != nil {
		logger.WithError(err).Debug("spinner color not set")
	}

	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd())
	}

	return &Console{
		w:       w,
		color:   color,
		spinner: s,
	}
}

// Color reports whether colored output is enabled.
func (c *Console) Color() bool {
	return c.color
}

func (c *Console) Printf(format string, a ...interface{}) {
	fmt.Fprintf(c.w, format, a...)
}

func (c *Console) Println(a ...interface{}) {
	fmt.Fprintln(c.w, a...)
}

// PrintHeader prints a section header.
func (c *Console) PrintHeader(text string) {
	if c.color {
		text = aurora.Bold(text).String()
	}
	c.Printf("\n=== %s ===\n", text)
}

// PrintFields prints aligned key/value lines in sorted key order.
func (c *Console) PrintFields(fields map[string]interface{}) {
	maxKeyLen := 0
	for k := range fields {
		if len(k) > maxKeyLen {
			maxKeyLen = len(k)
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		label := fmt.Sprintf("%-*s", maxKeyLen, k)
		if c.color {
			label = aurora.Blue(label).String()
		}
		c.Printf("%s : %v\n", label, fields[k])
	}
}

// Success prints a green completion line.
func (c *Console) Success(message string) {
	if c.color {
		c.Println(aurora.Green("✓ " + message).String())
	} else {
		c.Println("✓ " + message)
	}
}

// Errorf prints a red error line.
func (c *Console) Errorf(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	if c.color {
		c.Printf("%s %s\n", aurora.Red("✖").String(), msg)
	} else {
		c.Printf("✖ %s\n", msg)
	}
}

// StartPRReview announces the pull request about to be reviewed.
func (c *Console) StartPRReview(ref string, meta *github.PRMetadata) {
	c.PrintHeader(fmt.Sprintf("Reviewing %s: %s", ref, meta.Title))
	c.PrintFields(map[string]interface{}{
		"Author": meta.Author,
		"Branch": fmt.Sprintf("%s <- %s", meta.BaseBranch, meta.HeadBranch),
		"State":  meta.State,
	})
	c.Println()
}

// PostingComments announces the publish step.
func (c *Console) PostingComments(count int) {
	if count > 0 {
		c.Printf("\nPosting %d comment(s) to GitHub...\n", count)
	}
}

func (c *Console) StartSpinner(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.spinner.Suffix = fmt.Sprintf(" %s", message)
	c.spinner.Start()
}

// UpdateSpinnerMessage swaps the text shown next to a running spinner.
func (c *Console) UpdateSpinnerMessage(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.spinner.Suffix = fmt.Sprintf(" %s", message)
}

// StopSpinner stops the current spinner.
func (c *Console) StopSpinner() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.spinner.Active() {
		c.spinner.Stop()
	}
}

// WithSpinner runs fn with a spinner shown, honoring ctx cancellation.
func (c *Console) WithSpinner(ctx context.Context, message string, fn func() error) error {
	c.StartSpinner(message)
	defer c.StopSpinner()

	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Confirm asks a yes/no question. Piped input skips the prompt and
// returns the default; Ctrl+C answers no.
func (c *Console) Confirm(message, help string, def bool) (bool, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return def, nil
	}

	prompt := &survey.Confirm{
		Message: message,
		Default: def,
		Help:    help,
	}

	surveyOpts := []survey.AskOpt{
		survey.WithIcons(func(icons *survey.IconSet) {
			if c.color {
				icons.Question.Text = "?"
				icons.Question.Format = "cyan+b"
				icons.Help.Format = "blue"
			}
		}),
	}

	var response bool
	err := survey.AskOne(prompt, &response, surveyOpts...)
	if err == terminal.InterruptErr {
		c.Errorf("Operation cancelled")
		return false, nil
	}

	return response, err
}

// ConfirmReviewPost asks before publishing a review to GitHub. The default
// is yes, so piped invocations proceed without a terminal.
func (c *Console) ConfirmReviewPost(commentCount int) (bool, error) {
	return c.Confirm(
		reviewPostMessage(commentCount),
		"This will create a pull request review with the findings shown above",
		true,
	)
}

func reviewPostMessage(commentCount int) string {
	message := fmt.Sprintf("Post %d review comment", commentCount)
	if commentCount != 1 {
		message += "s"
	}
	return message + " to GitHub?"
}
