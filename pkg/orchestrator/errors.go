package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a command arrives while another is running.
	ErrBusy = errors.New("a command is already in progress")

	// ErrNoTab is returned when there is no page to read.
	ErrNoTab = errors.New("no active page")

	// ErrRestricted is returned for pages the browser does not let beacon read.
	ErrRestricted = errors.New("page is restricted")
)

// Kind classifies a command failure.
type Kind string

const (
	// KindEnvironment covers restricted pages, missing tabs and microphone
	// problems. Reported with remediation text, never retried.
	KindEnvironment Kind = "environment"

	// KindTransient covers failures to reach the on-page side. Retried once.
	KindTransient Kind = "transient"

	// KindModel covers model and network failures. Reported as an apology.
	KindModel Kind = "model"

	// KindParse covers replies with a missing or malformed highlight block.
	// Never returned; text matching takes over and Outcome.Recovered says so.
	KindParse Kind = "parse"

	// KindResolution covers guidance that could not be matched to an element.
	// Never returned; the user is asked to rephrase and Outcome.Recovered
	// says so.
	KindResolution Kind = "resolution"
)

// User-facing texts.
const (
	MessageBusy       = "I'm still working on your last request. Please wait a moment."
	MessageNoTab      = "No page is open. Open a website and try again."
	MessageRestricted = "I can't read this page. Browser settings and store pages are off limits, so open a regular website and try again."
	MessageTransient  = "I couldn't reach the page. Reload it and try again."
	MessageModel      = "Sorry, I couldn't get an answer right now. Please try again in a moment."
	MessageNoTarget   = "I couldn't find that on the page. Could you describe what you're looking for in a different way?"
)

// Error is a command failure carrying the text shown to the user.
type Error struct {
	Kind        Kind
	UserMessage string
	Err         error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error: %s", e.Kind, e.UserMessage)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, UserMessage: message, Err: err}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns the text to show for err.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.UserMessage != "" {
		return e.UserMessage
	}
	if errors.Is(err, ErrBusy) {
		return MessageBusy
	}
	return MessageModel
}
