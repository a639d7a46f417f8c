package tui

import (
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/beacon/pkg/orchestrator"
	"github.com/entrhq/beacon/pkg/types"
)

// Update handles all state updates for the TUI model.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var spinnerCmd tea.Cmd
	m.spinner, spinnerCmd = m.spinner.Update(msg)

	if m.panel != nil {
		switch msg.(type) {
		case tea.KeyMsg, tea.MouseMsg, tea.WindowSizeMsg:
			return m.updatePanel(msg, spinnerCmd)
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowResize(msg)

	case *types.Event:
		m.handleEvent(msg)
		return m, spinnerCmd

	case commandDoneMsg:
		return m.handleCommandDone(msg), spinnerCmd

	case openDoneMsg:
		if msg.err != nil {
			m.appendEntry(formatEntry("  ✗ ", "Could not open "+msg.url+": "+msg.err.Error(), errorStyle, m.width))
		} else {
			m.appendEntry(systemStyle.Render("  Loaded " + msg.url))
		}
		return m, spinnerCmd

	case tea.MouseMsg:
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		return m, tea.Batch(vpCmd, spinnerCmd)

	case tea.KeyMsg:
		return m.handleKeyPress(msg, spinnerCmd)
	}

	return m, spinnerCmd
}

func (m *model) updatePanel(msg tea.Msg, spinnerCmd tea.Cmd) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.handleWindowResize(size)
	}
	closed, cmd := m.panel.Update(msg)
	if closed {
		m.panel = nil
	}
	return m, tea.Batch(cmd, spinnerCmd)
}

func (m *model) handleWindowResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.textarea.SetWidth(m.width - 8)
	m.ready = true
	m.recalculateLayout()
	return m, nil
}

// handleCommandDone records the outcome. Replies and errors were already
// shown through events.
func (m *model) handleCommandDone(msg commandDoneMsg) tea.Model {
	// A clear can finish while another command is still running
	m.busy = m.runner.Busy()
	m.recalculateLayout()
	switch {
	case msg.err == nil:
		if msg.outcome != nil {
			debugLog.Infof("Command %s (%s) done in %s", msg.outcome.CommandID, msg.outcome.Kind, msg.outcome.Duration)
		}
	case errors.Is(msg.err, orchestrator.ErrBusy):
		m.showToast("Still working", orchestrator.MessageBusy, true)
	default:
		debugLog.Warnf("Command failed: %v", msg.err)
	}
	return m
}

func (m *model) handleKeyPress(msg tea.KeyMsg, spinnerCmd tea.Cmd) (tea.Model, tea.Cmd) {
	if m.palette.isActive() {
		switch msg.Type {
		case tea.KeyEsc:
			m.palette.deactivate()
			m.textarea.Reset()
			return m, spinnerCmd
		case tea.KeyUp:
			m.palette.selectPrev()
			return m, spinnerCmd
		case tea.KeyDown:
			m.palette.selectNext()
			return m, spinnerCmd
		case tea.KeyTab:
			m.completeFromPalette()
			return m, spinnerCmd
		case tea.KeyEnter:
			// Complete a partial name first; submit once it is exact
			if sel := m.palette.selected(); sel != nil && !m.inputNamesCommand(sel.Name) {
				m.completeFromPalette()
				return m, spinnerCmd
			}
		}
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyCtrlY:
		m.copyLastMessage()
		return m, spinnerCmd
	case tea.KeyEsc:
		return m, tea.Batch(m.runCommand(types.NewClearInput()), spinnerCmd)
	case tea.KeyEnter:
		cmd := m.submit()
		return m, tea.Batch(cmd, spinnerCmd)
	case tea.KeyPgUp, tea.KeyPgDown:
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		return m, tea.Batch(vpCmd, spinnerCmd)
	}

	var tiCmd tea.Cmd
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.syncPalette()
	return m, tea.Batch(tiCmd, spinnerCmd)
}

// syncPalette shows the palette while the input is a bare command name.
func (m *model) syncPalette() {
	value := m.textarea.Value()
	switch {
	case strings.HasPrefix(value, "/") && !strings.Contains(value, " "):
		if !m.palette.isActive() {
			m.palette.activate()
		}
		m.palette.updateFilter(strings.TrimPrefix(value, "/"))
	case m.palette.isActive():
		m.palette.deactivate()
	}
}

func (m *model) completeFromPalette() {
	if sel := m.palette.selected(); sel != nil {
		m.textarea.SetValue("/" + sel.Name + " ")
		m.textarea.CursorEnd()
	}
	m.palette.deactivate()
}

func (m *model) inputNamesCommand(name string) bool {
	return strings.EqualFold(strings.TrimSpace(m.textarea.Value()), "/"+name)
}

// submit dispatches the input line: slash commands run locally, anything
// else is a navigate request.
func (m *model) submit() tea.Cmd {
	input := strings.TrimSpace(m.textarea.Value())
	m.textarea.Reset()
	m.palette.deactivate()
	if input == "" {
		return nil
	}

	m.appendEntry(formatEntry("❯ ", input, userStyle, m.width))
	if name, args, ok := parseSlashCommand(input); ok {
		return executeSlashCommand(m, name, args)
	}
	return m.runCommand(types.NewNavigateInput(input).WithSource("tui"))
}

// runCommand runs in on the orchestrator off the update loop.
func (m *model) runCommand(in *types.Input) tea.Cmd {
	if !in.IsClear() {
		m.busy = true
		m.loadingMsg = loadingMessage(in.Type)
		m.recalculateLayout()
	}
	runner, ctx := m.runner, m.ctx
	return func() tea.Msg {
		start := time.Now()
		out, err := runner.Run(ctx, in)
		debugLog.Debugf("%s returned after %s", in.Type, time.Since(start))
		return commandDoneMsg{outcome: out, err: err}
	}
}
