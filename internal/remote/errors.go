package remote

import (
	"errors"
	"fmt"
)

// ErrSessionClosed is returned by every session operation after Close.
var ErrSessionClosed = errors.New("remote session closed")

// ErrPageUnchanged means the page an action was expected to replace is
// still showing.
var ErrPageUnchanged = errors.New("page did not change")

type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate to %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// ElementNotFoundError means a wait ran out of time on every one of its attempts.
type ElementNotFoundError struct {
	Locator  Locator
	Attempts int
	// Err is the failure of the last attempt.
	Err error
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element %s not found after %d attempt(s): %v", e.Locator, e.Attempts, e.Err)
}

func (e *ElementNotFoundError) Unwrap() error {
	return e.Err
}

// InteractionError means the element was found but the browser rejected the action.
type InteractionError struct {
	Action  string
	Locator Locator
	Err     error
}

func (e *InteractionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Action, e.Locator, e.Err)
}

func (e *InteractionError) Unwrap() error {
	return e.Err
}
