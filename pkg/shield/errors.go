package shield

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrDenied marks a call the remote policy refused.
var ErrDenied = errors.New("shield: denied")

// Error is returned once a call has failed for good, either on a
// non-retryable status or after the last retry. Status is 0 for transport
// failures.
type Error struct {
	Status   int
	Message  string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("shield: request failed after %d attempt(s): %s", e.Attempts, e.Message)
	}
	return fmt.Sprintf("shield: %d %s after %d attempt(s): %s", e.Status, http.StatusText(e.Status), e.Attempts, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// retryable reports whether a failed attempt may be retried: transport
// errors and timeouts, 429 and every 5xx.
func retryable(status int) bool {
	return status == 0 || status == http.StatusTooManyRequests || status >= 500
}
