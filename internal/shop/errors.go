package shop

import (
	"errors"
	"fmt"
)

// ErrThrottled marks a fetch that was still rate limited (or failing with a
// transient 5xx) after the retry ceiling.
var ErrThrottled = errors.New("retry ceiling exceeded")

// FetchError is fatal for the window being fetched.
type FetchError struct {
	Kind   string
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s fetch failed: %d %s", e.Kind, e.Status, e.Body)
	if e.Err != nil {
		msg += " (" + e.Err.Error() + ")"
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

const maxErrorBody = 400

func excerpt(body []byte, n int) string {
	if len(body) > n {
		return string(body[:n])
	}
	return string(body)
}
