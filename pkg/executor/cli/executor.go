// Package cli provides a line-mode front end for Beacon. It reads one command
// per line and prints plain text with no cursor movement, which works better
// than the full-screen TUI under a terminal screen reader.
//
// Example usage:
//
//	executor := cli.NewExecutor(cli.WithShowProgress(false))
//	a, _ := assistant.Start(ctx, assistant.Options{OnEvent: executor.Handle})
//	defer a.Close(ctx)
//
//	if err := executor.Run(ctx, a.Orchestrator(), a); err != nil {
//	    log.Fatal(err)
//	}
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/entrhq/beacon/pkg/orchestrator"
	"github.com/entrhq/beacon/pkg/types"
)

// Runner executes pipeline commands.
type Runner interface {
	Run(ctx context.Context, in *types.Input) (*orchestrator.Outcome, error)
}

// Controls acts on the browser session and feature toggles.
type Controls interface {
	URL() string
	Open(ctx context.Context, url string) error
	Toggle(name string) (bool, error)
}

// Executor is a line-based front end that runs one command per input line.
type Executor struct {
	reader *bufio.Reader
	writer io.Writer
	mu     sync.Mutex

	// Display options
	showProgress bool
}

// ExecutorOption is a function that configures an Executor.
type ExecutorOption func(*Executor)

// WithShowProgress enables/disables progress lines such as "Reading the page".
func WithShowProgress(show bool) ExecutorOption {
	return func(e *Executor) {
		e.showProgress = show
	}
}

// WithWriter sets a custom output writer (default is os.Stdout).
func WithWriter(w io.Writer) ExecutorOption {
	return func(e *Executor) {
		e.writer = w
	}
}

// WithReader sets a custom input reader (default is os.Stdin).
func WithReader(r io.Reader) ExecutorOption {
	return func(e *Executor) {
		e.reader = bufio.NewReader(r)
	}
}

// NewExecutor creates a new CLI executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		reader:       bufio.NewReader(os.Stdin),
		writer:       os.Stdout,
		showProgress: true,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run starts the input loop. It returns when the user exits, input ends or
// ctx is canceled.
func (e *Executor) Run(ctx context.Context, runner Runner, controls Controls) error {
	e.println("Beacon")
	e.println("Ask about the page, or type summarize, guide, clear, open <url>, toggle <feature>. Type 'exit' or 'quit' to end.")
	e.println("")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		e.print("> ")
		input, err := e.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read input: %w", err)
		}
		eof := errors.Is(err, io.EOF)

		input = strings.TrimSpace(input)
		switch {
		case input == "exit" || input == "quit":
			return nil
		case input != "":
			e.dispatch(ctx, input, runner, controls)
		}

		if eof {
			return nil
		}
	}
}

// dispatch runs one input line
func (e *Executor) dispatch(ctx context.Context, input string, runner Runner, controls Controls) {
	word, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	var in *types.Input
	switch strings.ToLower(word) {
	case "summarize":
		in = types.NewSummarizeInput()
	case "guide":
		in = types.NewGuideInput()
	case "clear":
		in = types.NewClearInput()
	case "open":
		if rest == "" {
			e.println("Usage: open <url>")
			return
		}
		url := rest
		if !strings.Contains(url, "://") {
			url = "https://" + url
		}
		if err := controls.Open(ctx, url); err != nil {
			e.printf("Could not open %s: %v\n", url, err)
			return
		}
		e.printf("Loaded %s\n", controls.URL())
		return
	case "toggle":
		if rest == "" {
			e.println("Usage: toggle <feature>")
			return
		}
		name := strings.ReplaceAll(rest, "-", "_")
		on, err := controls.Toggle(name)
		if err != nil {
			e.printf("Could not toggle %s: %v\n", name, err)
			return
		}
		state := "off"
		if on {
			state = "on"
		}
		e.printf("%s is now %s\n", name, state)
		return
	default:
		in = types.NewNavigateInput(input)
	}

	// Replies and errors arrive through Handle
	if _, err := runner.Run(ctx, in.WithSource("cli")); err != nil && errors.Is(err, context.Canceled) {
		e.println("Canceled.")
	}
}

// Handle renders one pipeline event. It is safe for concurrent use.
func (e *Executor) Handle(event *types.Event) {
	switch event.Type {
	case types.EventTypeCommandStart:
		if e.showProgress {
			kind, _ := event.Metadata["kind"].(string)
			e.println(progressLine(types.InputType(kind)))
		}
	case types.EventTypeMessage:
		e.println(event.Content)
	case types.EventTypeClarification:
		e.printf("Question: %s\n", event.Content)
	case types.EventTypeHighlight:
		if h := event.Highlight; h != nil && h.Shown && h.Description != "" {
			e.printf("Highlighted: %s\n", h.Description)
		}
	case types.EventTypeHighlightCleared:
		e.println("Highlight cleared.")
	case types.EventTypeError:
		e.printf("Error: %s\n", event.Content)
	}
}

func progressLine(kind types.InputType) string {
	switch kind {
	case types.InputTypeSummarize:
		return "[Reading the page...]"
	case types.InputTypeGuide:
		return "[Looking for the next step...]"
	case types.InputTypeNavigate:
		return "[Searching the page...]"
	}
	return "[Working...]"
}

func (e *Executor) print(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprint(e.writer, s)
}

func (e *Executor) println(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintln(e.writer, s)
}

func (e *Executor) printf(format string, args ...interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintf(e.writer, format, args...)
}
