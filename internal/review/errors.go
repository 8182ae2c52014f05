package review

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidResponseError reports reviewer output that could not be parsed
// into findings. The response was received intact, so retrying the same
// call is pointless; the pass fails for that unit instead.
type InvalidResponseError struct {
	Reviewer string
	Unit     int
	Reason   string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("reviewer %s returned an unusable response for unit %d: %s", e.Reviewer, e.Unit, e.Reason)
}

// ReviewerUnavailableError reports that a reviewer could not produce a
// response for a unit after all retry attempts were spent.
type ReviewerUnavailableError struct {
	Reviewer string
	Unit     int
	Attempts int
	Err      error
}

func (e *ReviewerUnavailableError) Error() string {
	return fmt.Sprintf("reviewer %s unavailable for unit %d after %d attempts: %v", e.Reviewer, e.Unit, e.Attempts, e.Err)
}

func (e *ReviewerUnavailableError) Unwrap() error { return e.Err }

// NoReviewersSucceededError is returned when every reviewer failed on
// every unit and no findings could be produced at all.
type NoReviewersSucceededError struct {
	Reviewers []string
	Errs      []error
}

func (e *NoReviewersSucceededError) Error() string {
	var parts []string
	for i, name := range e.Reviewers {
		if i < len(e.Errs) && e.Errs[i] != nil {
			parts = append(parts, fmt.Sprintf("%s: %v", name, e.Errs[i]))
		} else {
			parts = append(parts, name)
		}
	}
	return "no reviewer produced a result (" + strings.Join(parts, "; ") + ")"
}

// Unwrap exposes the per-reviewer causes so errors.As can find, for
// example, an auth error buried under every reviewer failing the same way.
func (e *NoReviewersSucceededError) Unwrap() []error { return e.Errs }

// IsInvalidResponse checks whether err is an unusable reviewer response.
func IsInvalidResponse(err error) bool {
	var ire *InvalidResponseError
	return errors.As(err, &ire)
}
