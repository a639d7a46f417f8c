// Package tui provides the interactive terminal shell for Beacon. It plays
// the part of the browser popup: buttons become slash commands, free text
// becomes a navigate request, and replies, highlights and errors stream in
// from orchestrator events.
//
// The TUI codebase is split into multiple files:
// - executor.go: Executor and program lifecycle
// - model.go: Core model structure and state
// - update.go: Bubble Tea Update function and message handling
// - view.go: Bubble Tea View function and rendering
// - events.go: Orchestrator event processing
// - commands.go: Slash command registry
// - palette.go, panel.go: Command palette and modal panel
// - helpers.go: Formatting utilities
// - styles.go: Color schemes and styling
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/beacon/pkg/config"
	"github.com/entrhq/beacon/pkg/logging"
	"github.com/entrhq/beacon/pkg/orchestrator"
	"github.com/entrhq/beacon/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("tui")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize tui logger, using stderr fallback: %v", err)
	}
}

// eventBuffer bounds events queued before the program drains them.
const eventBuffer = 256

// Runner runs narrator commands. *orchestrator.Orchestrator implements it.
type Runner interface {
	Run(ctx context.Context, in *types.Input) (*orchestrator.Outcome, error)
	Busy() bool
	Last() *orchestrator.Outcome
}

// Controls reaches the browser and settings. *assistant.Assistant
// implements it.
type Controls interface {
	URL() string
	Open(ctx context.Context, url string) error
	Toggle(name string) (bool, error)
	Flags() config.FeatureFlags
	Usage() *config.UsageSection
}

// Executor is the TUI front end.
type Executor struct {
	events  chan *types.Event
	program *tea.Program
	header  string
}

// NewExecutor creates a TUI executor. Pass Handle as the orchestrator's
// event handler before calling Run.
func NewExecutor(headerText string) *Executor {
	return &Executor{
		events: make(chan *types.Event, eventBuffer),
		header: headerText,
	}
}

// Handle queues an orchestrator event for display. It never blocks; events
// are dropped when the queue is full.
func (e *Executor) Handle(event *types.Event) {
	select {
	case e.events <- event:
	default:
		debugLog.Warnf("Event queue full, dropping %s event", event.Type)
	}
}

// Run starts the TUI and blocks until the user exits.
func (e *Executor) Run(ctx context.Context, runner Runner, controls Controls) error {
	debugLog.Infof("TUI Executor starting...")

	m := initialModel(ctx, runner, controls)
	m.header = e.header

	e.program = tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	go func() {
		// Forward orchestrator events to the program
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-e.events:
				e.program.Send(event)
			}
		}
	}()

	if _, err := e.program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to run TUI program: %w", err)
	}
	return nil
}
